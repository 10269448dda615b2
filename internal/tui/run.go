package tui

import (
	"context"
	"errors"
	"fmt"

	"github.com/Veraticus/the-sales-must-flow/internal/common"
	tea "github.com/charmbracelet/bubbletea"
)

// Run drives the interactive dashboard until the user quits or ctx is canceled.
func Run(ctx context.Context, d Dashboard, opts ...Option) error {
	if d == nil {
		return fmt.Errorf("%w: dashboard is required", common.ErrMissingConfig)
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Recorder != nil {
		defer cfg.Recorder.Close()
	}

	m, err := newModel(ctx, d, cfg)
	if err != nil {
		return err
	}

	program := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := program.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
