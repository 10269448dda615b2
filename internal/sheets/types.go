package sheets

import (
	"time"

	"github.com/Veraticus/the-sales-must-flow/internal/dashboard"
	"github.com/Veraticus/the-sales-must-flow/internal/model"
	"github.com/shopspring/decimal"
)

// MetricRow represents one city in the Key Metrics section.
type MetricRow struct {
	City   string
	Total  decimal.Decimal
	Change string // Formatted, or N/A
	Found  bool
}

// RevenueRow represents one city in the Revenue by Year section.
type RevenueRow struct {
	City   string
	Totals []decimal.NullDecimal // Aligned with Report.Years
	Change string
}

// BucketRow represents one bar of a breakdown section.
type BucketRow struct {
	Label string
	Total decimal.Decimal
}

// Report holds everything written for one snapshot.
type Report struct {
	Generated         time.Time
	Title             string
	City              string
	Source            string
	Years             []string
	Metrics           []MetricRow
	Revenue           []RevenueRow
	Monthly           []BucketRow
	Categories        []BucketRow
	Year              int
	VisualizationYear int
}

// NewReport flattens a snapshot into report rows.
func NewReport(snapshot *model.Snapshot) Report {
	report := Report{
		Title:             "Sales Dashboard",
		Generated:         snapshot.LoadedAt,
		Source:            snapshot.Source,
		City:              snapshot.SelectedCity,
		Year:              snapshot.Year,
		VisualizationYear: snapshot.VisualizationYear,
	}

	for _, m := range snapshot.Metrics {
		report.Metrics = append(report.Metrics, MetricRow{
			City:   m.City,
			Total:  m.Total,
			Change: dashboard.FormatChange(m.Change),
			Found:  m.Found,
		})
	}

	for _, y := range snapshot.Revenue.Years {
		report.Years = append(report.Years, y.Label())
	}
	for _, c := range snapshot.Revenue.Cities {
		row := RevenueRow{City: c.City.Label(), Change: dashboard.FormatChange(c.Change)}
		for _, cell := range c.Totals {
			if cell.Present {
				row.Totals = append(row.Totals, decimal.NewNullDecimal(cell.Total))
			} else {
				row.Totals = append(row.Totals, decimal.NullDecimal{})
			}
		}
		report.Revenue = append(report.Revenue, row)
	}

	report.Monthly = bucketRows(snapshot.Monthly)
	report.Categories = bucketRows(snapshot.Categories)
	return report
}

func bucketRows(b model.Breakdown) []BucketRow {
	rows := make([]BucketRow, 0, len(b.Buckets))
	for _, bucket := range b.Buckets {
		rows = append(rows, BucketRow{
			Label: dashboard.BucketLabel(b.Dimension, bucket),
			Total: bucket.Total,
		})
	}
	return rows
}
