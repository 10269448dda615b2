package tui

import (
	"context"

	"github.com/Veraticus/the-sales-must-flow/internal/dashboard"
	tea "github.com/charmbracelet/bubbletea"
)

// render runs one pass against the dashboard. With refresh set the cached
// table is dropped first.
func (m Model) render(seq int, sel dashboard.Selection, refresh bool) tea.Cmd {
	d := m.dashboard
	parent := m.ctx
	timeout := m.config.RenderTimeout
	if timeout <= 0 {
		timeout = DefaultRenderTimeout
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(parent, timeout)
		defer cancel()

		if refresh {
			if _, err := d.Refresh(ctx); err != nil {
				return snapshotMsg{seq: seq, err: err}
			}
		}
		snapshot, err := d.Render(ctx, sel)
		return snapshotMsg{seq: seq, snapshot: snapshot, err: err}
	}
}
