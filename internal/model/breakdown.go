package model

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Dimension names the column a breakdown groups by.
type Dimension string

const (
	// DimensionMonth groups by the derived month column.
	DimensionMonth Dimension = "month"
	// DimensionCategory groups by product_category.
	DimensionCategory Dimension = "category"
)

// ParseDimension converts user input into a Dimension.
func ParseDimension(s string) (Dimension, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "month", "monthly":
		return DimensionMonth, nil
	case "category", "product_category":
		return DimensionCategory, nil
	default:
		return "", fmt.Errorf("unknown dimension %q: must be month or category", s)
	}
}

// Bucket is one group of a breakdown.
type Bucket struct {
	Key   NullString // Month number as text for the month dimension
	Total decimal.Decimal
}

// Month returns the bucket's month for month breakdowns.
func (b Bucket) Month() (int, bool) {
	if !b.Key.Valid {
		return 0, false
	}
	m, err := strconv.Atoi(b.Key.String)
	if err != nil {
		return 0, false
	}
	return m, true
}

// Breakdown is revenue for one city and year grouped by a single dimension.
type Breakdown struct {
	Dimension Dimension
	City      string
	Buckets   []Bucket
	Year      int
}

// IsEmpty reports whether no rows matched the filter.
func (b Breakdown) IsEmpty() bool {
	return len(b.Buckets) == 0
}

// Total sums every bucket.
func (b Breakdown) Total() decimal.Decimal {
	sum := decimal.Zero
	for _, bucket := range b.Buckets {
		sum = sum.Add(bucket.Total)
	}
	return sum
}

// Lookup finds a bucket by its valid key.
func (b Breakdown) Lookup(key string) (decimal.Decimal, bool) {
	for _, bucket := range b.Buckets {
		if bucket.Key.Valid && bucket.Key.String == key {
			return bucket.Total, true
		}
	}
	return decimal.Zero, false
}

// Null returns the total of the null-key bucket, if present.
func (b Breakdown) Null() (decimal.Decimal, bool) {
	for _, bucket := range b.Buckets {
		if !bucket.Key.Valid {
			return bucket.Total, true
		}
	}
	return decimal.Zero, false
}
