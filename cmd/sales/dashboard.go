package main

import (
	"log/slog"

	"github.com/Veraticus/the-sales-must-flow/internal/tui"
	"github.com/spf13/cobra"
)

func dashboardCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "dashboard",
		Aliases: []string{"tui"},
		Short:   "Browse the sales dashboard interactively",
		Long: `Open an interactive terminal dashboard.

Use ←/→ to switch cities, p to toggle the previous year, Tab to switch between
monthly and category analysis, r to reload the data, and q to quit.`,
		RunE: runDashboard,
	}

	addSelectionFlags(cmd)
	cmd.Flags().Bool("record", false, "Record every frame for debugging")
	cmd.Flags().String("record-dir", "", "Directory for recorded frames (default: a new temp dir)")

	return cmd
}

func runDashboard(cmd *cobra.Command, _ []string) error {
	logger := slog.Default()

	svc, _, err := newDashboard(logger)
	if err != nil {
		return err
	}

	record, _ := cmd.Flags().GetBool("record")
	recordDir, _ := cmd.Flags().GetString("record-dir")
	recorder := tui.NewRecorder(record, recordDir)

	if err := tui.Run(cmd.Context(), svc,
		tui.WithSelection(readSelection(cmd)),
		tui.WithRecorder(recorder),
	); err != nil {
		return err
	}

	if dir := recorder.Dir(); dir != "" {
		logger.Info("TUI frames recorded", "dir", dir, "frames", recorder.Frames())
	}
	return nil
}
