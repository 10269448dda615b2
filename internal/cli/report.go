package cli

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/Veraticus/the-sales-must-flow/internal/dashboard"
	"github.com/Veraticus/the-sales-must-flow/internal/model"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
)

// Output formats accepted by WriteSnapshot.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatCSV   = "csv"
)

const defaultChartWidth = 40

// WriteSnapshot writes a snapshot in the requested format.
func WriteSnapshot(w io.Writer, snapshot *model.Snapshot, format string, width int) error {
	switch format {
	case "", FormatTable:
		_, err := fmt.Fprintln(w, RenderSnapshot(snapshot, width))
		return err
	case FormatJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(dashboard.NewSnapshotView(snapshot))
	case FormatCSV:
		return WriteCSV(w, snapshot)
	default:
		return fmt.Errorf("unknown output format %q: must be table, json, or csv", format)
	}
}

// RenderSnapshot draws the full dashboard as text.
func RenderSnapshot(snapshot *model.Snapshot, width int) string {
	chartWidth := defaultChartWidth
	if width > 0 {
		chartWidth = max(10, width-40)
	}

	heading := fmt.Sprintf("Sales for %d", snapshot.VisualizationYear)
	if snapshot.ShowPreviousYear {
		heading += " (previous year)"
	}

	sections := []string{
		FormatTitle("Sales Dashboard"),
		RenderMetrics(snapshot.Metrics),
		"",
		BoldStyle.Render(heading) + SubtleStyle.Render("  city: "+snapshot.SelectedCity),
		"",
		RenderBox(dashboard.DimensionTitle(model.DimensionMonth), RenderBarChart(snapshot.Monthly, chartWidth)),
		RenderBox(dashboard.DimensionTitle(model.DimensionCategory), RenderBarChart(snapshot.Categories, chartWidth)),
		SubtleStyle.Render(fmt.Sprintf("Source: %s (loaded %s)", snapshot.Source, snapshot.LoadedAt.Format("2006-01-02 15:04:05"))),
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// RenderMetrics lays the city metrics out side by side.
func RenderMetrics(metrics []model.CityMetric) string {
	boxes := make([]string, 0, len(metrics))
	for _, m := range metrics {
		boxes = append(boxes, RenderMetric(m))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, boxes...)
}

// RenderMetric draws one city's revenue and change.
func RenderMetric(m model.CityMetric) string {
	value := SubtleStyle.Render("No data")
	if m.Found {
		value = BoldStyle.Render(dashboard.FormatCurrency(m.Total))
	}
	return MetricBoxStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
		SubtitleStyle.Render(m.City),
		value,
		RenderChange(m.Change),
	))
}

// RenderChange colors a change by direction.
func RenderChange(change float64) string {
	label := dashboard.FormatChange(change)
	switch {
	case math.IsNaN(change) || math.IsInf(change, 0):
		return SubtleStyle.Render(label)
	case change > 0:
		return SuccessStyle.Render(UpIcon + " " + label)
	case change < 0:
		return ErrorStyle.Render(DownIcon + " " + label)
	default:
		return label
	}
}

// RenderBarChart draws a horizontal bar per bucket, scaled to the largest total.
func RenderBarChart(b model.Breakdown, width int) string {
	if b.IsEmpty() {
		return SubtleStyle.Render(fmt.Sprintf("No sales for %s in %d", b.City, b.Year))
	}
	if width <= 0 {
		width = defaultChartWidth
	}

	labels := make([]string, len(b.Buckets))
	labelWidth := 0
	peak := decimal.Zero
	for i, bucket := range b.Buckets {
		labels[i] = dashboard.BucketLabel(b.Dimension, bucket)
		labelWidth = max(labelWidth, lipgloss.Width(labels[i]))
		peak = decimal.Max(peak, bucket.Total)
	}

	lines := make([]string, 0, len(b.Buckets))
	for i, bucket := range b.Buckets {
		length := 0
		if peak.IsPositive() && bucket.Total.IsPositive() {
			length = int(bucket.Total.Div(peak).Mul(decimal.NewFromInt(int64(width))).Round(0).IntPart())
			length = max(length, 1)
		}
		lines = append(lines, fmt.Sprintf("%-*s %s %s",
			labelWidth, labels[i],
			BarStyle.Render(strings.Repeat("█", length)),
			dashboard.FormatCurrency(bucket.Total)))
	}
	return strings.Join(lines, "\n")
}

// WriteCSV writes the metrics and both breakdowns as one long table.
func WriteCSV(w io.Writer, snapshot *model.Snapshot) error {
	writer := csv.NewWriter(w)
	rows := [][]string{{"section", "city", "year", "key", "revenue", "change"}}

	for _, m := range snapshot.Metrics {
		revenue := ""
		if m.Found {
			revenue = m.Total.StringFixed(2)
		}
		rows = append(rows, []string{"metric", m.City, strconv.Itoa(snapshot.Year), "", revenue, changeCell(m.Change)})
	}
	for _, b := range []model.Breakdown{snapshot.Monthly, snapshot.Categories} {
		for _, bucket := range b.Buckets {
			key := ""
			if bucket.Key.Valid {
				key = bucket.Key.String
			}
			rows = append(rows, []string{string(b.Dimension), b.City, strconv.Itoa(b.Year), key, bucket.Total.StringFixed(2), ""})
		}
	}

	if err := writer.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}
	return nil
}

func changeCell(change float64) string {
	if math.IsNaN(change) || math.IsInf(change, 0) {
		return dashboard.NotAvailable
	}
	return strconv.FormatFloat(change, 'f', 2, 64)
}
