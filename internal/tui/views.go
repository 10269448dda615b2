package tui

import (
	"fmt"
	"strings"

	"github.com/Veraticus/the-sales-must-flow/internal/cli"
	"github.com/Veraticus/the-sales-must-flow/internal/dashboard"
	"github.com/Veraticus/the-sales-must-flow/internal/model"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"
)

// renderLoading renders the loading screen.
func (m Model) renderLoading() string {
	content := lipgloss.JoinVertical(
		lipgloss.Center,
		m.theme.Title.Render("Sales Dashboard"),
		m.spinner.View()+" "+m.theme.StatusPending.Render("Loading sales data..."),
	)
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
}

// renderFailure is shown when the first load fails and there is nothing to display.
func (m Model) renderFailure() string {
	content := lipgloss.JoinVertical(
		lipgloss.Left,
		m.theme.Title.Render("Sales Dashboard"),
		m.renderErrorBanner(),
		"",
		m.help.ShortHelpView([]key.Binding{m.keymap.Refresh, m.keymap.Quit}),
	)
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
}

func (m Model) renderErrorBanner() string {
	width := max(20, min(m.width-4, 80))
	return m.theme.ErrorBanner.
		Width(width).
		Render(fmt.Sprintf("%s %v\nPress r to retry.", cli.ErrorIcon, m.lastError))
}

// renderDashboard renders metrics, the city picker, and the active chart.
func (m Model) renderDashboard() string {
	s := m.snapshot

	heading := fmt.Sprintf("Sales for %d", s.VisualizationYear)
	if s.ShowPreviousYear {
		heading += " (previous year)"
	}

	sections := []string{
		m.theme.Title.Render(cli.ChartIcon + " Sales Dashboard"),
		cli.RenderMetrics(s.Metrics),
		"",
		m.renderCityPicker(),
		"",
		m.theme.Bold.Render(heading),
		m.renderTabs(),
		m.theme.RoundedBox.Render(cli.RenderBarChart(m.activeBreakdown(), m.chartWidth())),
	}
	if m.lastError != nil {
		sections = append(sections, m.renderErrorBanner())
	}
	sections = append(sections, "", m.renderStatusBar())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) activeBreakdown() model.Breakdown {
	if m.tab == TabCategory {
		return m.snapshot.Categories
	}
	return m.snapshot.Monthly
}

func (m Model) chartWidth() int {
	return max(10, m.width-40)
}

// renderCityPicker lists the configured cities with the selection highlighted.
func (m Model) renderCityPicker() string {
	items := make([]string, 0, len(m.cities)+1)
	items = append(items, m.theme.Subtitle.Render("Select a city:"))
	for _, city := range m.cities {
		if city == m.selection.City {
			items = append(items, m.theme.Selected.Render(city))
			continue
		}
		items = append(items, m.theme.Normal.Padding(0, 1).Render(city))
	}

	toggle := "[ ]"
	if m.selection.ShowPreviousYear {
		toggle = "[x]"
	}
	items = append(items, m.theme.Subtitle.Render("  "+toggle+" Show Previous Year"))
	return strings.Join(items, " ")
}

func (m Model) renderTabs() string {
	tabs := []struct {
		tab   Tab
		title string
	}{
		{TabMonthly, dashboard.DimensionTitle(model.DimensionMonth)},
		{TabCategory, dashboard.DimensionTitle(model.DimensionCategory)},
	}
	rendered := make([]string, 0, len(tabs))
	for _, t := range tabs {
		if t.tab == m.tab {
			rendered = append(rendered, m.theme.ActiveTab.Render(t.title))
			continue
		}
		rendered = append(rendered, m.theme.Tab.Render(t.title))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

// renderStatusBar renders the bottom status line.
func (m Model) renderStatusBar() string {
	status := m.theme.StatusBar.Render(fmt.Sprintf("%s · loaded %s",
		m.snapshot.Source, m.snapshot.LoadedAt.Format("15:04:05")))
	if m.loading {
		status = m.spinner.View() + " " + m.theme.StatusPending.Render("Refreshing...")
	}
	return lipgloss.JoinVertical(lipgloss.Left, status, m.help.View(m.keymap))
}

// renderHelp renders the help screen.
func (m Model) renderHelp() string {
	full := m.help
	full.ShowAll = true

	content := lipgloss.JoinVertical(
		lipgloss.Left,
		m.theme.Title.Render("Sales Dashboard - Help"),
		full.View(m.keymap),
		"",
		lipgloss.NewStyle().Foreground(m.theme.Muted).Render("Press ? to close help"),
	)
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center,
		m.theme.BorderedBox.Render(content))
}
