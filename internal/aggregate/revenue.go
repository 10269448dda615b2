// Package aggregate computes revenue totals from a loaded sales table.
// Every function is pure: it reads the table and returns freshly built results.
package aggregate

import (
	"math"
	"sort"

	"github.com/Veraticus/the-sales-must-flow/internal/model"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

type cityYear struct {
	city model.NullString
	year model.NullInt
}

// CityYearRevenue totals revenue per city and year and computes each city's
// percentage change from the year column before targetYear to targetYear.
//
// The year axis is the set of years present anywhere in the table, so
// "previous" means the previous column on that axis, which is not
// necessarily targetYear-1 when the data has gaps.
func CityYearRevenue(table *model.Table, targetYear int) model.RevenueTable {
	totals := make(map[cityYear]decimal.Decimal)
	cities := make(map[model.NullString]struct{})
	years := make(map[model.NullInt]struct{})

	table.Each(func(txn model.Transaction) {
		key := cityYear{city: txn.City, year: txn.Year}
		totals[key] = totals[key].Add(txn.Amount())
		cities[txn.City] = struct{}{}
		years[txn.Year] = struct{}{}
	})

	axis := make([]model.NullInt, 0, len(years))
	for y := range years {
		axis = append(axis, y)
	}
	sort.Slice(axis, func(i, j int) bool { return axis[i].Less(axis[j]) })

	order := make([]model.NullString, 0, len(cities))
	for c := range cities {
		order = append(order, c)
	}
	sort.Slice(order, func(i, j int) bool { return order[i].Less(order[j]) })

	target := axisIndex(axis, targetYear)

	result := model.RevenueTable{
		Years:      axis,
		Cities:     make([]model.CityRevenue, 0, len(order)),
		TargetYear: targetYear,
	}
	for _, city := range order {
		row := model.CityRevenue{
			City:   city,
			Totals: make([]model.YearTotal, len(axis)),
		}
		for i, year := range axis {
			total, ok := totals[cityYear{city: city, year: year}]
			row.Totals[i] = model.YearTotal{Year: year, Total: total, Present: ok}
		}
		row.Change = change(row.Totals, target)
		result.Cities = append(result.Cities, row)
	}
	return result
}

// Years lists the distinct valid years in the table, ascending.
func Years(table *model.Table) []int {
	seen := make(map[int]struct{})
	table.Each(func(txn model.Transaction) {
		if txn.Year.Valid {
			seen[txn.Year.Int] = struct{}{}
		}
	})
	years := make([]int, 0, len(seen))
	for y := range seen {
		years = append(years, y)
	}
	sort.Ints(years)
	return years
}

func axisIndex(axis []model.NullInt, year int) int {
	for i, y := range axis {
		if y.Valid && y.Int == year {
			return i
		}
	}
	return -1
}

// change returns the percent change between column target-1 and target.
// A missing column or cell gives NaN; a zero base gives ±Inf, or NaN for 0/0.
func change(cells []model.YearTotal, target int) float64 {
	if target < 1 {
		return math.NaN()
	}
	cur, prev := cells[target], cells[target-1]
	if !cur.Present || !prev.Present {
		return math.NaN()
	}
	if prev.Total.IsZero() {
		switch cur.Total.Sign() {
		case 1:
			return math.Inf(1)
		case -1:
			return math.Inf(-1)
		default:
			return math.NaN()
		}
	}
	return cur.Total.Div(prev.Total).Sub(decimal.NewFromInt(1)).Mul(hundred).InexactFloat64()
}
