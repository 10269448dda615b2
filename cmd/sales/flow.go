package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Veraticus/the-sales-must-flow/internal/cli"
	"github.com/Veraticus/the-sales-must-flow/internal/config"
	"github.com/Veraticus/the-sales-must-flow/internal/service"
	"github.com/Veraticus/the-sales-must-flow/internal/sheets"
	"github.com/spf13/cobra"
)

// reportWriterFactory builds the Google Sheets exporter. Tests replace it.
var reportWriterFactory = func(ctx context.Context, logger *slog.Logger) (service.ReportWriter, error) {
	cfg, err := config.LoadSheetsConfig()
	if err != nil {
		return nil, err
	}
	return sheets.NewWriter(ctx, *cfg, logger)
}

func flowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "flow",
		Short: "Render the sales dashboard once",
		Long: `Load the sales data and print the dashboard: revenue and year-over-year
change for every configured city, then monthly and category breakdowns for
the selected city.

Use --export to also write the snapshot to Google Sheets.`,
		RunE: runFlow,
	}

	addSelectionFlags(cmd)
	cmd.Flags().String("format", cli.FormatTable, "Output format (table, json, csv)")
	cmd.Flags().Int("width", 0, "Terminal width for charts (0 uses the default)")
	cmd.Flags().Bool("export", false, "Export to Google Sheets")

	return cmd
}

func runFlow(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	logger := slog.Default()

	format, _ := cmd.Flags().GetString("format")
	width, _ := cmd.Flags().GetInt("width")
	export, _ := cmd.Flags().GetBool("export")

	svc, _, err := newDashboard(logger)
	if err != nil {
		return err
	}

	snapshot, err := svc.Render(ctx, readSelection(cmd))
	if err != nil {
		return fmt.Errorf("failed to render dashboard: %w", err)
	}

	if err := cli.WriteSnapshot(cmd.OutOrStdout(), snapshot, format, width); err != nil {
		return err
	}

	if !export {
		return nil
	}

	writer, err := reportWriterFactory(ctx, logger)
	if err != nil {
		return fmt.Errorf("failed to set up Google Sheets export: %w", err)
	}
	if err := writer.Write(ctx, snapshot); err != nil {
		return fmt.Errorf("failed to export to Google Sheets: %w", err)
	}
	_, err = fmt.Fprintln(cmd.ErrOrStderr(), cli.FormatSuccess("Exported to Google Sheets"))
	return err
}
