package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/Veraticus/the-sales-must-flow/internal/common"
	"github.com/Veraticus/the-sales-must-flow/internal/model"
	"github.com/Veraticus/the-sales-must-flow/internal/service"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

var _ service.ReportWriter = (*Writer)(nil)

// Writer implements the ReportWriter interface for Google Sheets.
type Writer struct {
	service *sheets.Service
	logger  *slog.Logger
	config  Config
}

// NewWriter creates a new Google Sheets report writer.
func NewWriter(ctx context.Context, config Config, logger *slog.Logger) (*Writer, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	service, err := createSheetsService(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return &Writer{
		config:  config,
		service: service,
		logger:  common.LoggerOrDefault(logger),
	}, nil
}

// Write implements the ReportWriter interface.
func (w *Writer) Write(ctx context.Context, snapshot *model.Snapshot) error {
	report := NewReport(snapshot)
	w.logger.Info("starting report export",
		"city", report.City,
		"year", report.Year,
		"visualization_year", report.VisualizationYear)

	spreadsheetID, err := w.getOrCreateSpreadsheet(ctx)
	if err != nil {
		return fmt.Errorf("failed to get spreadsheet: %w", err)
	}

	if clearErr := w.clearSheet(ctx, spreadsheetID); clearErr != nil {
		return fmt.Errorf("failed to clear sheet: %w", clearErr)
	}

	layout := prepareReportData(report)

	retryOpts := service.RetryOptions{
		MaxAttempts:  w.config.RetryAttempts,
		InitialDelay: w.config.RetryDelay,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}

	err = common.WithRetry(ctx, func(ctx context.Context) error {
		return w.writeData(ctx, spreadsheetID, layout.values)
	}, retryOpts)
	if err != nil {
		return fmt.Errorf("failed to write data: %w", err)
	}

	if w.config.EnableFormatting {
		err = common.WithRetry(ctx, func(ctx context.Context) error {
			return w.applyFormatting(ctx, spreadsheetID, layout)
		}, retryOpts)
		if err != nil {
			// Formatting is cosmetic; the data is already written.
			w.logger.Warn("failed to apply formatting", "error", err)
		}
	}

	w.logger.Info("report export completed",
		"spreadsheet_id", spreadsheetID,
		"rows_written", len(layout.values))

	return nil
}

// createSheetsService creates a Google Sheets API service.
func createSheetsService(ctx context.Context, config Config) (*sheets.Service, error) {
	var tokenSource oauth2.TokenSource

	if config.ServiceAccountPath != "" {
		jsonKey, err := os.ReadFile(config.ServiceAccountPath)
		if err != nil {
			return nil, fmt.Errorf("unable to read service account key file: %w", err)
		}

		jwtConfig, err := google.JWTConfigFromJSON(jsonKey, sheets.SpreadsheetsScope)
		if err != nil {
			return nil, fmt.Errorf("unable to parse service account key: %w", err)
		}

		tokenSource = jwtConfig.TokenSource(ctx)
	} else {
		client := &oauth2.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			Endpoint:     google.Endpoint,
			Scopes:       []string{sheets.SpreadsheetsScope},
		}

		token := &oauth2.Token{
			RefreshToken: config.RefreshToken,
			TokenType:    "Bearer",
		}

		tokenSource = client.TokenSource(ctx, token)
	}

	httpClient := oauth2.NewClient(ctx, tokenSource)
	srv, err := sheets.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("unable to create sheets service: %w", err)
	}

	return srv, nil
}

// getOrCreateSpreadsheet gets an existing spreadsheet or creates a new one.
func (w *Writer) getOrCreateSpreadsheet(ctx context.Context) (string, error) {
	if w.config.SpreadsheetID != "" {
		_, err := w.service.Spreadsheets.Get(w.config.SpreadsheetID).Context(ctx).Do()
		if err != nil {
			return "", fmt.Errorf("unable to access spreadsheet %s: %w", w.config.SpreadsheetID, err)
		}
		return w.config.SpreadsheetID, nil
	}

	spreadsheet := &sheets.Spreadsheet{
		Properties: &sheets.SpreadsheetProperties{
			Title:    w.config.SpreadsheetName,
			TimeZone: w.config.TimeZone,
		},
		Sheets: []*sheets.Sheet{
			{
				Properties: &sheets.SheetProperties{
					Title: "Dashboard",
				},
			},
		},
	}

	created, err := w.service.Spreadsheets.Create(spreadsheet).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("unable to create spreadsheet: %w", err)
	}

	w.logger.Info("created new spreadsheet",
		"id", created.SpreadsheetId,
		"url", created.SpreadsheetUrl)

	return created.SpreadsheetId, nil
}

// clearSheet clears all data from the sheet.
func (w *Writer) clearSheet(ctx context.Context, spreadsheetID string) error {
	_, err := w.service.Spreadsheets.Values.Clear(spreadsheetID, "A:Z", &sheets.ClearValuesRequest{}).Context(ctx).Do()
	return err
}

// reportLayout is the cell grid plus the rows that need section styling.
type reportLayout struct {
	values        [][]any
	sectionRows   []int // 0-based rows holding a section title
	headerRows    []int // 0-based rows holding column headers
	currencyStart int   // first currency column
	columns       int
}

// prepareReportData lays the report out top to bottom as titled sections.
func prepareReportData(report Report) reportLayout {
	layout := reportLayout{currencyStart: 1, columns: 2}
	add := func(row ...any) {
		layout.values = append(layout.values, row)
		if len(row) > layout.columns {
			layout.columns = len(row)
		}
	}
	section := func(title string) {
		layout.sectionRows = append(layout.sectionRows, len(layout.values))
		add(title)
	}
	header := func(row ...any) {
		layout.headerRows = append(layout.headerRows, len(layout.values))
		add(row...)
	}

	add(report.Title, fmt.Sprintf("Generated %s", report.Generated.Format("Jan 2, 2006 15:04")))
	add("Source", report.Source)
	add()

	section(fmt.Sprintf("Key Metrics (%d)", report.Year))
	header("City", "Revenue", "Change")
	for _, m := range report.Metrics {
		if !m.Found {
			add(m.City, "", "No data")
			continue
		}
		add(m.City, m.Total.StringFixed(2), m.Change)
	}
	add()

	section("Revenue by Year")
	yearHeader := []any{"City"}
	for _, y := range report.Years {
		yearHeader = append(yearHeader, y)
	}
	header(append(yearHeader, "Change")...)
	for _, r := range report.Revenue {
		row := []any{r.City}
		for _, cell := range r.Totals {
			if cell.Valid {
				row = append(row, cell.Decimal.StringFixed(2))
			} else {
				row = append(row, "")
			}
		}
		add(append(row, r.Change)...)
	}
	add()

	section(fmt.Sprintf("Monthly Analysis: %s %d", report.City, report.VisualizationYear))
	header("Month", "Revenue")
	for _, b := range report.Monthly {
		add(b.Label, b.Total.StringFixed(2))
	}
	if len(report.Monthly) == 0 {
		add("No sales")
	}
	add()

	section(fmt.Sprintf("Category Analysis: %s %d", report.City, report.VisualizationYear))
	header("Category", "Revenue")
	for _, b := range report.Categories {
		add(b.Label, b.Total.StringFixed(2))
	}
	if len(report.Categories) == 0 {
		add("No sales")
	}

	return layout
}

// writeData writes the data to the spreadsheet.
func (w *Writer) writeData(ctx context.Context, spreadsheetID string, values [][]any) error {
	for i := 0; i < len(values); i += w.config.BatchSize {
		end := min(i+w.config.BatchSize, len(values))

		batch := values[i:end]
		valueRange := &sheets.ValueRange{
			Values: batch,
		}

		rangeStr := fmt.Sprintf("A%d", i+1)
		_, err := w.service.Spreadsheets.Values.Update(spreadsheetID, rangeStr, valueRange).
			ValueInputOption("USER_ENTERED").
			Context(ctx).
			Do()

		if err != nil {
			return fmt.Errorf("failed to write batch starting at row %d: %w", i+1, classifyAPIError(err))
		}

		w.logger.Debug("wrote batch", "start_row", i+1, "rows", len(batch))
	}

	return nil
}

// applyFormatting applies formatting to the spreadsheet.
func (w *Writer) applyFormatting(ctx context.Context, spreadsheetID string, layout reportLayout) error {
	requests := []*sheets.Request{
		boldRows(0, 1, 16),
		{
			RepeatCell: &sheets.RepeatCellRequest{
				Range: &sheets.GridRange{
					SheetId:          0,
					StartRowIndex:    0,
					EndRowIndex:      int64(len(layout.values)),
					StartColumnIndex: int64(layout.currencyStart),
					EndColumnIndex:   int64(layout.columns),
				},
				Cell: &sheets.CellData{
					UserEnteredFormat: &sheets.CellFormat{
						NumberFormat: &sheets.NumberFormat{
							Type:    "CURRENCY",
							Pattern: "$#,##0.00",
						},
					},
				},
				Fields: "userEnteredFormat.numberFormat",
			},
		},
		{
			AutoResizeDimensions: &sheets.AutoResizeDimensionsRequest{
				Dimensions: &sheets.DimensionRange{
					SheetId:    0,
					Dimension:  "COLUMNS",
					StartIndex: 0,
					EndIndex:   int64(layout.columns),
				},
			},
		},
	}

	for _, row := range layout.sectionRows {
		requests = append(requests, boldRows(row, row+1, 12))
	}
	for _, row := range layout.headerRows {
		requests = append(requests, boldRows(row, row+1, 0))
	}

	batchUpdate := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: requests,
	}

	_, err := w.service.Spreadsheets.BatchUpdate(spreadsheetID, batchUpdate).Context(ctx).Do()
	if err != nil {
		return classifyAPIError(err)
	}
	return nil
}

func boldRows(start, end int, fontSize int64) *sheets.Request {
	return &sheets.Request{
		RepeatCell: &sheets.RepeatCellRequest{
			Range: &sheets.GridRange{
				SheetId:       0,
				StartRowIndex: int64(start),
				EndRowIndex:   int64(end),
			},
			Cell: &sheets.CellData{
				UserEnteredFormat: &sheets.CellFormat{
					TextFormat: &sheets.TextFormat{
						Bold:     true,
						FontSize: fontSize,
					},
				},
			},
			Fields: "userEnteredFormat.textFormat",
		},
	}
}

// classifyAPIError maps Sheets API failures onto retry semantics:
// quota errors wait the maximum delay, other client errors are not retried.
func classifyAPIError(err error) error {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return err
	}
	switch {
	case apiErr.Code == 429:
		return fmt.Errorf("%w: %w", common.ErrRateLimit, err)
	case apiErr.Code >= 400 && apiErr.Code < 500:
		return common.Permanent(err)
	default:
		return err
	}
}
