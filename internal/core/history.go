package core

import (
	"context"
	"sync"
	"time"
)

// RunStatus is the outcome of a generation.
type RunStatus string

const (
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
)

// Run is one recorded generation.
type Run struct {
	ID          string    `json:"id"`
	Status      RunStatus `json:"status"`
	InputName   string    `json:"input_name"`
	ArchiveName string    `json:"archive_name"`
	Reference   bool      `json:"reference_uploaded"`
	XML         bool      `json:"xml"`
	Rows        int       `json:"rows"`
	Columns     int       `json:"columns"`
	Configs     int       `json:"configs"`
	Stage       string    `json:"stage,omitempty"`
	ErrorCode   string    `json:"error_code,omitempty"`
	Error       string    `json:"error,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	DurationMs  int64     `json:"duration_ms"`
}

// Recorder persists run history. Recording failures never fail a generation.
type Recorder interface {
	RecordRun(ctx context.Context, run Run) error
	RecentRuns(ctx context.Context, limit int) ([]Run, error)
}

// Pinger is implemented by recorders backed by an external store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// DefaultHistorySize is the number of runs MemoryRecorder keeps.
const DefaultHistorySize = 100

// MemoryRecorder keeps the most recent runs in a ring buffer.
type MemoryRecorder struct {
	mu   sync.Mutex
	runs []Run
	next int
	full bool
}

// NewMemoryRecorder keeps up to size runs.
func NewMemoryRecorder(size int) *MemoryRecorder {
	if size <= 0 {
		size = DefaultHistorySize
	}
	return &MemoryRecorder{runs: make([]Run, size)}
}

// RecordRun stores run, evicting the oldest entry when full.
func (m *MemoryRecorder) RecordRun(_ context.Context, run Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.runs[m.next] = run
	m.next = (m.next + 1) % len(m.runs)
	if m.next == 0 {
		m.full = true
	}
	return nil
}

// RecentRuns returns up to limit runs, newest first.
func (m *MemoryRecorder) RecentRuns(_ context.Context, limit int) ([]Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := m.next
	if m.full {
		count = len(m.runs)
	}
	if limit <= 0 || limit > count {
		limit = count
	}

	out := make([]Run, 0, limit)
	for i := 0; i < limit; i++ {
		idx := (m.next - 1 - i + len(m.runs)) % len(m.runs)
		out = append(out, m.runs[idx])
	}
	return out, nil
}
