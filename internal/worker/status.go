package worker

import (
	"context"
	"time"
)

// Status is the worker state served on /api/status.
type Status struct {
	Running     bool      `json:"running"`
	Processed   int64     `json:"processed"`
	Failed      int64     `json:"failed"`
	CurrentJob  string    `json:"currentJob,omitempty"`
	CurrentKind string    `json:"currentKind,omitempty"`
	LastPoll    time.Time `json:"lastPoll,omitzero"`
	LastError   string    `json:"lastError,omitempty"`
}

// Status snapshots the worker state.
func (w *Worker) Status(context.Context) Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	s := Status{
		Running:   w.running.Load(),
		Processed: w.processed.Load(),
		Failed:    w.failed.Load(),
		LastPoll:  w.lastPoll,
		LastError: w.lastError,
	}
	if w.current != nil {
		s.CurrentJob = w.current.ID
		s.CurrentKind = string(w.current.Kind)
	}
	return s
}
