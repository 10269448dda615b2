package dashboard

import (
	"math"
	"time"

	"github.com/Veraticus/the-sales-must-flow/internal/model"
	"github.com/shopspring/decimal"
)

// MetricView is the JSON form of a city metric.
type MetricView struct {
	Total       *decimal.Decimal `json:"total"`
	Change      *float64         `json:"change"`
	City        string           `json:"city"`
	Display     string           `json:"display"`
	ChangeLabel string           `json:"change_label"`
	Found       bool             `json:"found"`
}

// YearCellView is one cell of a revenue row.
type YearCellView struct {
	Total *decimal.Decimal `json:"total"`
	Year  model.NullInt    `json:"year"`
}

// CityRevenueView is the JSON form of a revenue row.
type CityRevenueView struct {
	Change      *float64         `json:"change"`
	City        model.NullString `json:"city"`
	ChangeLabel string           `json:"change_label"`
	Years       []YearCellView   `json:"years"`
}

// RevenueView is the JSON form of the revenue table.
type RevenueView struct {
	Years      []model.NullInt   `json:"years"`
	Cities     []CityRevenueView `json:"cities"`
	TargetYear int               `json:"target_year"`
}

// BucketView is one bucket of a breakdown.
type BucketView struct {
	Key   model.NullString `json:"key"`
	Label string           `json:"label"`
	Total decimal.Decimal  `json:"total"`
}

// BreakdownView is the JSON form of a breakdown.
type BreakdownView struct {
	Dimension model.Dimension `json:"dimension"`
	City      string          `json:"city"`
	Buckets   []BucketView    `json:"buckets"`
	Total     decimal.Decimal `json:"total"`
	Year      int             `json:"year"`
}

// SnapshotView is the JSON form of a render pass.
type SnapshotView struct {
	LoadedAt          time.Time     `json:"loaded_at"`
	Source            string        `json:"source"`
	SelectedCity      string        `json:"selected_city"`
	Metrics           []MetricView  `json:"metrics"`
	Revenue           RevenueView   `json:"revenue"`
	Monthly           BreakdownView `json:"monthly"`
	Categories        BreakdownView `json:"categories"`
	Year              int           `json:"year"`
	VisualizationYear int           `json:"visualization_year"`
	ShowPreviousYear  bool          `json:"show_previous_year"`
}

// finite returns nil for NaN and ±Inf, which JSON cannot carry.
func finite(f float64) *float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

// NewSnapshotView converts a snapshot for JSON output.
func NewSnapshotView(s *model.Snapshot) SnapshotView {
	view := SnapshotView{
		LoadedAt:          s.LoadedAt,
		Source:            s.Source,
		SelectedCity:      s.SelectedCity,
		Year:              s.Year,
		VisualizationYear: s.VisualizationYear,
		ShowPreviousYear:  s.ShowPreviousYear,
		Metrics:           make([]MetricView, 0, len(s.Metrics)),
		Revenue:           NewRevenueView(s.Revenue),
		Monthly:           NewBreakdownView(s.Monthly),
		Categories:        NewBreakdownView(s.Categories),
	}
	for _, m := range s.Metrics {
		mv := MetricView{
			City:        m.City,
			Found:       m.Found,
			Change:      finite(m.Change),
			ChangeLabel: FormatChange(m.Change),
			Display:     NotAvailable,
		}
		if m.Found {
			total := m.Total
			mv.Total = &total
			mv.Display = FormatCurrency(total)
		}
		view.Metrics = append(view.Metrics, mv)
	}
	return view
}

// NewRevenueView converts a revenue table for JSON output.
func NewRevenueView(r model.RevenueTable) RevenueView {
	view := RevenueView{
		Years:      r.Years,
		TargetYear: r.TargetYear,
		Cities:     make([]CityRevenueView, 0, len(r.Cities)),
	}
	if view.Years == nil {
		view.Years = []model.NullInt{}
	}
	for _, c := range r.Cities {
		cv := CityRevenueView{
			City:        c.City,
			Change:      finite(c.Change),
			ChangeLabel: FormatChange(c.Change),
			Years:       make([]YearCellView, 0, len(c.Totals)),
		}
		for _, cell := range c.Totals {
			yc := YearCellView{Year: cell.Year}
			if cell.Present {
				total := cell.Total
				yc.Total = &total
			}
			cv.Years = append(cv.Years, yc)
		}
		view.Cities = append(view.Cities, cv)
	}
	return view
}

// NewBreakdownView converts a breakdown for JSON output.
func NewBreakdownView(b model.Breakdown) BreakdownView {
	view := BreakdownView{
		Dimension: b.Dimension,
		City:      b.City,
		Year:      b.Year,
		Total:     b.Total(),
		Buckets:   make([]BucketView, 0, len(b.Buckets)),
	}
	for _, bucket := range b.Buckets {
		view.Buckets = append(view.Buckets, BucketView{
			Key:   bucket.Key,
			Label: BucketLabel(b.Dimension, bucket),
			Total: bucket.Total,
		})
	}
	return view
}
