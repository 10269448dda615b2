// Package service defines the interfaces shared between the engine and its front ends.
package service

import (
	"context"
	"time"

	"github.com/Veraticus/the-sales-must-flow/internal/model"
)

// TableLoader fetches source tables and memoizes them by URL.
type TableLoader interface {
	Load(ctx context.Context, sourceURL string) (*model.Table, error)
	Invalidate(sourceURL string)
	InvalidateAll()
}

// ReportWriter exports a rendered dashboard snapshot somewhere outside the process.
type ReportWriter interface {
	Write(ctx context.Context, snapshot *model.Snapshot) error
}

// Invalidator receives cache invalidation requests from outside the process.
type Invalidator interface {
	Invalidate(sourceURL string)
	InvalidateAll()
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
