package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"time"

	"github.com/Veraticus/the-sales-must-flow/internal/aggregate"
	"github.com/Veraticus/the-sales-must-flow/internal/common"
	"github.com/Veraticus/the-sales-must-flow/internal/model"
	"github.com/Veraticus/the-sales-must-flow/internal/service"
)

// Service runs render passes against a loader.
type Service struct {
	loader service.TableLoader
	logger *slog.Logger
	config Config
}

// NewService creates a dashboard service. The config is validated here.
func NewService(loader service.TableLoader, cfg Config, logger *slog.Logger) (*Service, error) {
	if loader == nil {
		return nil, fmt.Errorf("%w: loader is required", common.ErrMissingConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.Cities = slices.Clone(cfg.Cities)
	return &Service{
		loader: loader,
		config: cfg,
		logger: common.LoggerOrDefault(logger),
	}, nil
}

// Config returns a copy of the service configuration.
func (s *Service) Config() Config {
	cfg := s.config
	cfg.Cities = slices.Clone(cfg.Cities)
	return cfg
}

// Table loads the configured source through the cache.
func (s *Service) Table(ctx context.Context) (*model.Table, error) {
	return s.loader.Load(ctx, s.config.DataURL)
}

// Render performs one render pass: load, per-city metrics, and both breakdowns
// for the selected city and visualization year.
func (s *Service) Render(ctx context.Context, sel Selection) (*model.Snapshot, error) {
	sel, err := s.config.Resolve(sel)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	table, err := s.Table(ctx)
	if err != nil {
		return nil, err
	}

	snapshot := Build(table, s.config, sel)

	s.logger.Debug("Rendered dashboard",
		"city", sel.City,
		"year", snapshot.VisualizationYear,
		"rows", table.Len(),
		"duration", time.Since(start))
	return snapshot, nil
}

// Refresh drops the cached table and loads it again.
func (s *Service) Refresh(ctx context.Context) (*model.Table, error) {
	s.loader.Invalidate(s.config.DataURL)
	return s.Table(ctx)
}

// Build composes a snapshot from an already loaded table.
func Build(table *model.Table, cfg Config, sel Selection) *model.Snapshot {
	visualizationYear := VisualizationYear(cfg.Year, sel.ShowPreviousYear)
	revenue := aggregate.CityYearRevenue(table, cfg.Year)

	snapshot := &model.Snapshot{
		Source:            table.Source(),
		LoadedAt:          table.LoadedAt(),
		Year:              cfg.Year,
		VisualizationYear: visualizationYear,
		SelectedCity:      sel.City,
		ShowPreviousYear:  sel.ShowPreviousYear,
		Revenue:           revenue,
		Metrics:           Metrics(revenue, cfg.Cities),
		Monthly:           aggregate.BreakdownBy(table, model.DimensionMonth, sel.City, visualizationYear),
		Categories:        aggregate.BreakdownBy(table, model.DimensionCategory, sel.City, visualizationYear),
	}
	return snapshot
}

// Metrics picks the headline number for each city, in the given order.
// A city with no revenue for the target year is reported as not found.
func Metrics(revenue model.RevenueTable, cities []string) []model.CityMetric {
	metrics := make([]model.CityMetric, 0, len(cities))
	for _, city := range cities {
		metric := model.CityMetric{City: city, Change: math.NaN()}
		if row, ok := revenue.City(city); ok {
			metric.Total, metric.Found = row.Total(revenue.TargetYear)
			metric.Change = row.Change
		}
		metrics = append(metrics, metric)
	}
	return metrics
}
