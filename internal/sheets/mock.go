package sheets

import (
	"context"
	"sync"

	"github.com/Veraticus/the-sales-must-flow/internal/model"
	"github.com/Veraticus/the-sales-must-flow/internal/service"
)

var _ service.ReportWriter = (*MockWriter)(nil)

// MockWriter is a mock implementation of ReportWriter for testing.
type MockWriter struct {
	WriteFunc      func(ctx context.Context, snapshot *model.Snapshot) error
	LastSnapshot   *model.Snapshot
	WriteCalls     []WriteCall
	WriteCallCount int
	mu             sync.Mutex
}

// WriteCall represents a single call to Write.
type WriteCall struct {
	Error    error
	Snapshot *model.Snapshot
}

// NewMockWriter creates a new mock writer.
func NewMockWriter() *MockWriter {
	return &MockWriter{
		WriteCalls: make([]WriteCall, 0),
	}
}

// Write implements the ReportWriter interface.
func (m *MockWriter) Write(ctx context.Context, snapshot *model.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.WriteCallCount++
	m.LastSnapshot = snapshot

	var err error
	if m.WriteFunc != nil {
		err = m.WriteFunc(ctx, snapshot)
	}

	m.WriteCalls = append(m.WriteCalls, WriteCall{
		Snapshot: snapshot,
		Error:    err,
	})

	return err
}

// Reset clears all recorded calls.
func (m *MockWriter) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.WriteCallCount = 0
	m.WriteCalls = make([]WriteCall, 0)
	m.LastSnapshot = nil
}

// GetWriteCalls returns a copy of all write calls.
func (m *MockWriter) GetWriteCalls() []WriteCall {
	m.mu.Lock()
	defer m.mu.Unlock()

	calls := make([]WriteCall, len(m.WriteCalls))
	copy(calls, m.WriteCalls)
	return calls
}

// SetWriteError configures the mock to return an error on every Write call.
func (m *MockWriter) SetWriteError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.WriteFunc = func(_ context.Context, _ *model.Snapshot) error {
		return err
	}
}
