package dashboard

import (
	"fmt"
	"math"
	"time"

	"github.com/Veraticus/the-sales-must-flow/internal/model"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// NotAvailable is shown in place of an undefined change.
const NotAvailable = "N/A"

var printer = message.NewPrinter(language.English)

// FormatCurrency renders an amount as "$ 1,234.56".
// Cents come from the exact decimal; only the whole part goes through the printer.
func FormatCurrency(amount decimal.Decimal) string {
	rounded := amount.Round(2)
	fixed := rounded.Abs().StringFixed(2)
	cents := fixed[len(fixed)-2:]

	sign := ""
	if rounded.IsNegative() {
		sign = "-"
	}
	return printer.Sprintf("$ %s%d.%s", sign, rounded.Abs().IntPart(), cents)
}

// FormatChange renders a percent change as "50.00% vs. Last Year", or N/A when undefined.
func FormatChange(change float64) string {
	if math.IsNaN(change) || math.IsInf(change, 0) {
		return NotAvailable
	}
	return fmt.Sprintf("%.2f%% vs. Last Year", change)
}

// BucketLabel names a breakdown bucket for display.
// Month buckets use the short month name.
func BucketLabel(dimension model.Dimension, bucket model.Bucket) string {
	if dimension == model.DimensionMonth {
		if m, ok := bucket.Month(); ok && m >= 1 && m <= 12 {
			return time.Month(m).String()[:3]
		}
	}
	return bucket.Key.Label()
}

// DimensionTitle is the tab title for a dimension.
func DimensionTitle(dimension model.Dimension) string {
	switch dimension {
	case model.DimensionMonth:
		return "Monthly Analysis"
	case model.DimensionCategory:
		return "Category Analysis"
	default:
		return string(dimension)
	}
}
