package aggregate

import (
	"sort"
	"strconv"

	"github.com/Veraticus/the-sales-must-flow/internal/model"
	"github.com/shopspring/decimal"
)

// BreakdownBy totals revenue for one city and year, grouped by dimension.
// Rows match on exact city and year equality, so null cities and years never match.
// Rows with a null dimension value form their own bucket, ordered last.
// An unmatched filter returns an empty breakdown.
func BreakdownBy(table *model.Table, dimension model.Dimension, city string, year int) model.Breakdown {
	result := model.Breakdown{
		Dimension: dimension,
		City:      city,
		Year:      year,
		Buckets:   []model.Bucket{},
	}

	switch dimension {
	case model.DimensionMonth:
		result.Buckets = byMonth(table, city, year)
	case model.DimensionCategory:
		result.Buckets = byCategory(table, city, year)
	}
	return result
}

func matches(txn model.Transaction, city string, year int) bool {
	return txn.City.Valid && txn.City.String == city &&
		txn.Year.Valid && txn.Year.Int == year
}

func byMonth(table *model.Table, city string, year int) []model.Bucket {
	totals := make(map[model.NullInt]decimal.Decimal)
	table.Each(func(txn model.Transaction) {
		if matches(txn, city, year) {
			totals[txn.Month] = totals[txn.Month].Add(txn.Amount())
		}
	})

	months := make([]model.NullInt, 0, len(totals))
	for m := range totals {
		months = append(months, m)
	}
	sort.Slice(months, func(i, j int) bool { return months[i].Less(months[j]) })

	buckets := make([]model.Bucket, 0, len(months))
	for _, m := range months {
		key := model.NullString{}
		if m.Valid {
			key = model.NewNullString(strconv.Itoa(m.Int))
		}
		buckets = append(buckets, model.Bucket{Key: key, Total: totals[m]})
	}
	return buckets
}

func byCategory(table *model.Table, city string, year int) []model.Bucket {
	totals := make(map[model.NullString]decimal.Decimal)
	table.Each(func(txn model.Transaction) {
		if matches(txn, city, year) {
			totals[txn.ProductCategory] = totals[txn.ProductCategory].Add(txn.Amount())
		}
	})

	categories := make([]model.NullString, 0, len(totals))
	for c := range totals {
		categories = append(categories, c)
	}
	sort.Slice(categories, func(i, j int) bool { return categories[i].Less(categories[j]) })

	buckets := make([]model.Bucket, 0, len(categories))
	for _, c := range categories {
		buckets = append(buckets, model.Bucket{Key: c, Total: totals[c]})
	}
	return buckets
}
