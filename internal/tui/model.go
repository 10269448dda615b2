package tui

import (
	"context"
	"slices"

	"github.com/Veraticus/the-sales-must-flow/internal/dashboard"
	"github.com/Veraticus/the-sales-must-flow/internal/model"
	"github.com/Veraticus/the-sales-must-flow/internal/tui/themes"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// Model holds the main TUI state.
type Model struct {
	ctx       context.Context
	lastError error
	dashboard Dashboard
	snapshot  *model.Snapshot
	recorder  *Recorder
	theme     themes.Theme
	config    Config
	keymap    KeyMap
	help      help.Model
	spinner   spinner.Model
	selection dashboard.Selection
	cities    []string
	cityIndex int
	seq       int
	width     int
	height    int
	tab       Tab
	loading   bool
	showHelp  bool
	quitting  bool
}

// newModel creates a model whose first render pass starts in Init.
func newModel(ctx context.Context, d Dashboard, cfg Config) (Model, error) {
	dashCfg := d.Config()
	sel, err := dashCfg.Resolve(cfg.Selection)
	if err != nil {
		return Model{}, err
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = cfg.Theme.Spinner

	h := help.New()
	h.Width = cfg.Width

	return Model{
		ctx:       ctx,
		dashboard: d,
		recorder:  cfg.Recorder,
		theme:     cfg.Theme,
		config:    cfg,
		keymap:    DefaultKeyMap(),
		help:      h,
		spinner:   s,
		selection: sel,
		cities:    dashCfg.Cities,
		cityIndex: slices.Index(dashCfg.Cities, sel.City),
		width:     cfg.Width,
		height:    cfg.Height,
		tab:       TabMonthly,
		loading:   true,
	}, nil
}

// Init starts the first render pass.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.render(m.seq, m.selection, false))
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	next, cmd := m.update(msg)
	if next.recorder != nil {
		next.recorder.RecordState(next, msg)
	}
	return next, cmd
}

func (m Model) update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeys(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case snapshotMsg:
		if msg.seq != m.seq {
			return m, nil
		}
		m.loading = false
		if msg.err != nil {
			m.lastError = msg.err
			return m, nil
		}
		m.lastError = nil
		m.snapshot = msg.snapshot
		return m, nil

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View renders the UI.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.showHelp {
		return m.renderHelp()
	}
	if m.snapshot == nil {
		if m.lastError != nil && !m.loading {
			return m.renderFailure()
		}
		return m.renderLoading()
	}
	return m.renderDashboard()
}

func (m Model) handleKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keymap.ForceQuit), key.Matches(msg, m.keymap.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keymap.Help):
		m.showHelp = !m.showHelp
		return m, nil

	case key.Matches(msg, m.keymap.NextCity):
		return m.moveCity(1)

	case key.Matches(msg, m.keymap.PrevCity):
		return m.moveCity(-1)

	case key.Matches(msg, m.keymap.TogglePrevious):
		m.selection.ShowPreviousYear = !m.selection.ShowPreviousYear
		return m.load(false)

	case key.Matches(msg, m.keymap.ToggleTab):
		m.tab = m.tab.next()
		return m, nil

	case key.Matches(msg, m.keymap.Refresh):
		return m.load(true)
	}
	return m, nil
}

// moveCity steps through the configured cities, wrapping at either end.
func (m Model) moveCity(step int) (Model, tea.Cmd) {
	n := len(m.cities)
	if n < 2 {
		return m, nil
	}
	m.cityIndex = ((m.cityIndex+step)%n + n) % n
	m.selection.City = m.cities[m.cityIndex]
	return m.load(false)
}

// load starts a render pass for the current selection. Any pass still in
// flight is superseded.
func (m Model) load(refresh bool) (Model, tea.Cmd) {
	m.seq++
	wasLoading := m.loading
	m.loading = true
	cmd := m.render(m.seq, m.selection, refresh)
	if wasLoading {
		return m, cmd
	}
	return m, tea.Batch(m.spinner.Tick, cmd)
}
