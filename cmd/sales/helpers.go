package main

import (
	"log/slog"
	"os"

	"github.com/Veraticus/the-sales-must-flow/internal/config"
	"github.com/Veraticus/the-sales-must-flow/internal/dashboard"
	"github.com/Veraticus/the-sales-must-flow/internal/loader"
	"github.com/spf13/cobra"
)

// newLoader builds the caching loader from the loader config section.
func newLoader(logger *slog.Logger) *loader.Loader {
	lc := config.LoadLoaderConfig()
	opts := []loader.Option{
		loader.WithLogger(logger),
		loader.WithHTTPTimeout(lc.HTTPTimeout),
	}
	if lc.Progress {
		opts = append(opts, loader.WithProgress(os.Stderr))
	}
	return loader.New(opts...)
}

// newDashboard wires a dashboard service to a fresh loader.
func newDashboard(logger *slog.Logger) (*dashboard.Service, *loader.Loader, error) {
	cfg, err := config.LoadDashboardConfig()
	if err != nil {
		return nil, nil, err
	}
	l := newLoader(logger)
	svc, err := dashboard.NewService(l, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return svc, l, nil
}

// addSelectionFlags registers the per-render selection flags.
func addSelectionFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("city", "c", "", "city to break down (default: first configured city)")
	cmd.Flags().BoolP("previous-year", "p", false, "show breakdowns for the year before the target year")
}

func readSelection(cmd *cobra.Command) dashboard.Selection {
	city, _ := cmd.Flags().GetString("city")
	previous, _ := cmd.Flags().GetBool("previous-year")
	return dashboard.Selection{City: city, ShowPreviousYear: previous}
}
