package tui

import "github.com/Veraticus/the-sales-must-flow/internal/model"

// snapshotMsg carries the result of a render pass. seq identifies the
// request so late answers to superseded selections can be dropped.
type snapshotMsg struct {
	err      error
	snapshot *model.Snapshot
	seq      int
}

// Tab selects which breakdown the chart shows.
type Tab int

const (
	TabMonthly Tab = iota
	TabCategory
)

func (t Tab) next() Tab {
	if t == TabMonthly {
		return TabCategory
	}
	return TabMonthly
}
