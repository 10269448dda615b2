package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// Recorder captures TUI state changes and renders for debugging.
type Recorder struct {
	logFile  *os.File
	frameDir string
	frameNum int
	enabled  bool
}

// NewRecorder creates a TUI state recorder writing under dir. An empty dir
// uses a fresh directory under the system temp dir.
func NewRecorder(enabled bool, dir string) *Recorder {
	if !enabled {
		return &Recorder{enabled: false}
	}

	if dir == "" {
		dir = filepath.Join(os.TempDir(), fmt.Sprintf("sales-tui-%d", time.Now().Unix()))
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return &Recorder{enabled: false}
	}

	logFile, err := os.Create(filepath.Join(filepath.Clean(dir), "tui.log"))
	if err != nil {
		return &Recorder{enabled: false}
	}

	r := &Recorder{
		enabled:  true,
		logFile:  logFile,
		frameDir: dir,
	}

	r.Log("TUI Recorder started at %s", dir)
	return r
}

// Dir returns the recording directory, or "" when disabled.
func (r *Recorder) Dir() string {
	if !r.enabled {
		return ""
	}
	return r.frameDir
}

// Frames returns how many frames were recorded.
func (r *Recorder) Frames() int {
	return r.frameNum
}

// RecordState captures the current state.
func (r *Recorder) RecordState(m Model, msg tea.Msg) {
	if !r.enabled {
		return
	}

	r.frameNum++

	r.Log("\n=== Frame %d ===", r.frameNum)
	r.Log("Time: %s", time.Now().Format("15:04:05.000"))
	r.Log("Message Type: %T", msg)
	r.Log("City: %s  Previous year: %v  Tab: %d", m.selection.City, m.selection.ShowPreviousYear, m.tab)
	r.Log("Loading: %v  Seq: %d  Error: %v", m.loading, m.seq, m.lastError)

	view := m.View()
	framePath := filepath.Join(r.frameDir, fmt.Sprintf("frame-%04d.txt", r.frameNum))
	if err := os.WriteFile(framePath, []byte(view), 0600); err != nil {
		r.Log("Error saving frame: %v", err)
	}
}

// Log writes to the log file.
func (r *Recorder) Log(format string, args ...any) {
	if !r.enabled || r.logFile == nil {
		return
	}

	if _, err := fmt.Fprintf(r.logFile, format+"\n", args...); err != nil {
		return
	}
	if err := r.logFile.Sync(); err != nil {
		return
	}
}

// Close closes the recorder.
func (r *Recorder) Close() {
	if r.logFile != nil {
		r.Log("Recording complete. %d frames captured.", r.frameNum)
		_ = r.logFile.Close() // Best effort close
		r.logFile = nil
	}
}
