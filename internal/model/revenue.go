package model

import (
	"math"

	"github.com/shopspring/decimal"
)

// YearTotal is one cell of a city's row in the revenue table.
type YearTotal struct {
	Year    NullInt
	Total   decimal.Decimal
	Present bool // false when the city had no rows for this year
}

// CityRevenue holds a city's revenue per year plus its year-over-year change.
type CityRevenue struct {
	City   NullString
	Totals []YearTotal // Aligned with RevenueTable.Years
	Change float64     // Percent; NaN or ±Inf when undefined
}

// Total returns the city's total for a year, if the city has rows for it.
func (c CityRevenue) Total(year int) (decimal.Decimal, bool) {
	for _, cell := range c.Totals {
		if cell.Year.Valid && cell.Year.Int == year {
			return cell.Total, cell.Present
		}
	}
	return decimal.Zero, false
}

// Sum returns the city's revenue across all years.
func (c CityRevenue) Sum() decimal.Decimal {
	sum := decimal.Zero
	for _, cell := range c.Totals {
		if cell.Present {
			sum = sum.Add(cell.Total)
		}
	}
	return sum
}

// HasChange reports whether Change is a finite number.
func (c CityRevenue) HasChange() bool {
	return !math.IsNaN(c.Change) && !math.IsInf(c.Change, 0)
}

// RevenueTable is the city by year revenue reshape.
type RevenueTable struct {
	Years      []NullInt // Ascending, null last
	Cities     []CityRevenue
	TargetYear int
}

// City looks up a city's row.
func (r RevenueTable) City(name string) (CityRevenue, bool) {
	for _, c := range r.Cities {
		if c.City.Valid && c.City.String == name {
			return c, true
		}
	}
	return CityRevenue{}, false
}
