package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// CityMetric is the headline number shown for one configured city.
type CityMetric struct {
	City   string
	Total  decimal.Decimal
	Change float64
	Found  bool // false when the city has no revenue for the configured year
}

// Snapshot is the output of one render pass: everything a front end needs to draw.
type Snapshot struct {
	LoadedAt          time.Time
	Source            string
	SelectedCity      string
	Metrics           []CityMetric
	Revenue           RevenueTable
	Monthly           Breakdown
	Categories        Breakdown
	Year              int
	VisualizationYear int
	ShowPreviousYear  bool
}
