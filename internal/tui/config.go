package tui

import (
	"context"
	"time"

	"github.com/Veraticus/the-sales-must-flow/internal/dashboard"
	"github.com/Veraticus/the-sales-must-flow/internal/model"
	"github.com/Veraticus/the-sales-must-flow/internal/tui/themes"
)

// Dashboard is the render surface the TUI drives.
type Dashboard interface {
	Config() dashboard.Config
	Render(ctx context.Context, sel dashboard.Selection) (*model.Snapshot, error)
	Refresh(ctx context.Context) (*model.Table, error)
}

// Config holds TUI configuration.
type Config struct {
	Theme         themes.Theme
	Recorder      *Recorder
	Selection     dashboard.Selection
	Width         int
	Height        int
	RenderTimeout time.Duration
}

// Option is a functional option for configuring the TUI.
type Option func(*Config)

// DefaultRenderTimeout bounds a single render pass, including the fetch.
const DefaultRenderTimeout = 2 * time.Minute

// defaultConfig returns the default configuration.
func defaultConfig() Config {
	return Config{
		Theme:         themes.Default,
		Width:         100,
		Height:        30,
		RenderTimeout: DefaultRenderTimeout,
	}
}

// WithTheme sets the visual theme.
func WithTheme(theme themes.Theme) Option {
	return func(c *Config) {
		c.Theme = theme
	}
}

// WithSize sets the initial terminal size.
func WithSize(width, height int) Option {
	return func(c *Config) {
		c.Width = width
		c.Height = height
	}
}

// WithSelection sets the initial city and year toggle.
func WithSelection(sel dashboard.Selection) Option {
	return func(c *Config) {
		c.Selection = sel
	}
}

// WithRecorder records every frame for debugging.
func WithRecorder(r *Recorder) Option {
	return func(c *Config) {
		c.Recorder = r
	}
}

// WithRenderTimeout bounds each render pass.
func WithRenderTimeout(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.RenderTimeout = d
		}
	}
}
