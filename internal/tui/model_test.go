package tui

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/Veraticus/the-sales-must-flow/internal/common"
	"github.com/Veraticus/the-sales-must-flow/internal/dashboard"
	"github.com/Veraticus/the-sales-must-flow/internal/model"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDashboard struct {
	err       error
	table     *model.Table
	config    dashboard.Config
	renders   []dashboard.Selection
	refreshes int
	mu        sync.Mutex
}

func (f *fakeDashboard) Config() dashboard.Config {
	return f.config
}

func (f *fakeDashboard) Render(_ context.Context, sel dashboard.Selection) (*model.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.renders = append(f.renders, sel)
	if f.err != nil {
		return nil, f.err
	}
	return dashboard.Build(f.table, f.config, sel), nil
}

func (f *fakeDashboard) Refresh(_ context.Context) (*model.Table, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshes++
	return f.table, f.err
}

func txn(date, city, category, amount string) model.Transaction {
	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		panic(err)
	}
	return model.NewTransaction(&d,
		model.NewNullString(city),
		model.NewNullString(category),
		decimal.NewNullDecimal(decimal.RequireFromString(amount)))
}

func newFakeDashboard() *fakeDashboard {
	return &fakeDashboard{
		config: dashboard.Config{Year: 2023, Cities: []string{"Tokyo", "Yokohama", "Osaka"}, DataURL: "mem://sales"},
		table: model.NewTable("mem://sales", []model.Transaction{
			txn("2022-01-10", "Tokyo", "Books", "100"),
			txn("2023-01-10", "Tokyo", "Books", "120"),
			txn("2023-02-10", "Tokyo", "Toys", "30"),
			txn("2022-03-10", "Osaka", "Toys", "200"),
			txn("2023-03-10", "Osaka", "Toys", "180"),
		}),
	}
}

func newTestModel(t *testing.T, d Dashboard, opts ...Option) Model {
	t.Helper()
	cfg := defaultConfig()
	cfg.Width = 120
	cfg.Height = 40
	for _, opt := range opts {
		opt(&cfg)
	}
	m, err := newModel(context.Background(), d, cfg)
	require.NoError(t, err)
	return m
}

// settle runs the pending render for the model's current sequence and feeds the result back.
func settle(t *testing.T, m Model, refresh bool) Model {
	t.Helper()
	msg := m.render(m.seq, m.selection, refresh)()
	next, _ := m.Update(msg)
	return next.(Model)
}

func press(t *testing.T, m Model, msg tea.KeyMsg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func runeKey(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func TestModel_InitialLoad(t *testing.T) {
	d := newFakeDashboard()
	m := newTestModel(t, d)

	assert.True(t, m.loading)
	assert.Equal(t, "Tokyo", m.selection.City, "first configured city is the default")
	assert.Contains(t, m.View(), "Loading sales data")
	require.NotNil(t, m.Init())

	m = settle(t, m, false)
	require.NotNil(t, m.snapshot)
	assert.False(t, m.loading)

	view := m.View()
	assert.Contains(t, view, "Sales Dashboard")
	assert.Contains(t, view, "$ 150.00")
	assert.Contains(t, view, "Sales for 2023")
	assert.Contains(t, view, "Monthly Analysis")
	assert.Contains(t, view, "Jan")
}

func TestModel_CityNavigation(t *testing.T) {
	d := newFakeDashboard()
	m := settle(t, newTestModel(t, d), false)

	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyRight})
	require.NotNil(t, cmd)
	assert.Equal(t, "Yokohama", m.selection.City)
	assert.True(t, m.loading)

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyLeft})
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyLeft})
	assert.Equal(t, "Osaka", m.selection.City, "navigation wraps around")

	m = settle(t, m, false)
	assert.Equal(t, "Osaka", m.snapshot.SelectedCity)
	assert.Contains(t, m.View(), "Mar")
}

func TestModel_StaleResultsAreDropped(t *testing.T) {
	d := newFakeDashboard()
	m := settle(t, newTestModel(t, d), false)

	stale := m.render(m.seq, m.selection, false)
	m, _ = press(t, m, runeKey('l'))
	assert.Equal(t, "Yokohama", m.selection.City)

	next, _ := m.Update(stale())
	m = next.(Model)
	assert.True(t, m.loading, "superseded result must not end the load")
	assert.Equal(t, "Tokyo", m.snapshot.SelectedCity)

	m = settle(t, m, false)
	assert.Equal(t, "Yokohama", m.snapshot.SelectedCity)
	assert.True(t, m.snapshot.Monthly.IsEmpty())
	assert.Contains(t, m.View(), "No sales for Yokohama in 2023")
}

func TestModel_TogglePreviousYear(t *testing.T) {
	d := newFakeDashboard()
	m := settle(t, newTestModel(t, d), false)

	m, _ = press(t, m, runeKey('p'))
	assert.True(t, m.selection.ShowPreviousYear)
	m = settle(t, m, false)

	assert.Equal(t, 2022, m.snapshot.VisualizationYear)
	assert.Contains(t, m.View(), "Sales for 2022 (previous year)")
	assert.Contains(t, m.View(), "[x] Show Previous Year")
}

func TestModel_ToggleTab(t *testing.T) {
	d := newFakeDashboard()
	m := settle(t, newTestModel(t, d), false)
	renders := len(d.renders)

	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Nil(t, cmd, "switching tabs does not reload")
	assert.Equal(t, TabCategory, m.tab)
	assert.Contains(t, m.View(), "Books")
	assert.Equal(t, renders, len(d.renders))

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, TabMonthly, m.tab)
}

func TestModel_Refresh(t *testing.T) {
	d := newFakeDashboard()
	m := settle(t, newTestModel(t, d), false)

	m, cmd := press(t, m, runeKey('r'))
	require.NotNil(t, cmd)
	m = settle(t, m, true)

	assert.Equal(t, 1, d.refreshes)
	assert.NotNil(t, m.snapshot)
	assert.NoError(t, m.lastError)
}

func TestModel_LoadError(t *testing.T) {
	d := newFakeDashboard()
	d.err = &common.LoadError{Source: "mem://sales", Err: errors.New("connection refused")}
	m := settle(t, newTestModel(t, d), false)

	assert.Nil(t, m.snapshot)
	view := m.View()
	assert.Contains(t, view, "connection refused")
	assert.Contains(t, view, "Press r to retry")

	d.err = nil
	m, _ = press(t, m, runeKey('r'))
	m = settle(t, m, true)
	require.NotNil(t, m.snapshot)
	assert.NotContains(t, m.View(), "Press r to retry")
}

func TestModel_ErrorKeepsLastSnapshot(t *testing.T) {
	d := newFakeDashboard()
	m := settle(t, newTestModel(t, d), false)

	d.err = errors.New("upstream timeout")
	m, _ = press(t, m, runeKey('r'))
	m = settle(t, m, true)

	require.NotNil(t, m.snapshot)
	view := m.View()
	assert.Contains(t, view, "$ 150.00")
	assert.Contains(t, view, "upstream timeout")
}

func TestModel_HelpAndQuit(t *testing.T) {
	m := settle(t, newTestModel(t, newFakeDashboard()), false)

	m, _ = press(t, m, runeKey('?'))
	assert.Contains(t, m.View(), "Sales Dashboard - Help")
	m, _ = press(t, m, runeKey('?'))
	assert.NotContains(t, m.View(), "Sales Dashboard - Help")

	m, cmd := press(t, m, runeKey('q'))
	require.NotNil(t, cmd)
	assert.True(t, m.quitting)
	assert.Empty(t, m.View())
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestModel_WindowResize(t *testing.T) {
	m := newTestModel(t, newFakeDashboard())
	next, _ := m.Update(tea.WindowSizeMsg{Width: 90, Height: 20})
	m = next.(Model)
	assert.Equal(t, 90, m.width)
	assert.Equal(t, 50, m.chartWidth())
}

func TestNewModel_UnknownCity(t *testing.T) {
	cfg := defaultConfig()
	cfg.Selection = dashboard.Selection{City: "Nagoya"}
	_, err := newModel(context.Background(), newFakeDashboard(), cfg)
	assert.ErrorIs(t, err, dashboard.ErrUnknownCity)
}

func TestRun_RequiresDashboard(t *testing.T) {
	err := Run(context.Background(), nil)
	assert.ErrorIs(t, err, common.ErrMissingConfig)
}

func TestRecorder(t *testing.T) {
	dir := t.TempDir()
	recorder := NewRecorder(true, dir)
	m := newTestModel(t, newFakeDashboard(), WithRecorder(recorder))

	m = settle(t, m, false)
	_, _ = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	recorder.Close()

	assert.Equal(t, 2, recorder.Frames())
	assert.Equal(t, dir, recorder.Dir())
	frame, err := os.ReadFile(filepath.Join(dir, "frame-0002.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(frame), "Category Analysis")

	disabled := NewRecorder(false, "")
	assert.Empty(t, disabled.Dir())
	disabled.RecordState(m, nil)
	assert.Zero(t, disabled.Frames())
}
