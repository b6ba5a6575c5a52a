// Package tx carries an in-memory transaction journal through a context.
// Stores record the inverse of each write they make; rolling the journal
// back undoes exactly those writes and nothing written by other callers.
package tx

import (
	"context"
	"sync"
)

type journalKey struct{}

// Journal collects undo funcs for one in-memory transaction.
type Journal struct {
	mu   sync.Mutex
	undo []func()
	done bool
}

// WithJournal returns a context whose store writes are recorded in the
// returned journal.
func WithJournal(ctx context.Context) (context.Context, *Journal) {
	j := &Journal{}
	return context.WithValue(ctx, journalKey{}, j), j
}

// From returns the journal bound to ctx, if any.
func From(ctx context.Context) (*Journal, bool) {
	j, ok := ctx.Value(journalKey{}).(*Journal)
	return j, ok
}

// Record registers undo on the journal bound to ctx. Without a journal the
// write is final and Record does nothing.
func Record(ctx context.Context, undo func()) {
	if j, ok := From(ctx); ok {
		j.add(undo)
	}
}

func (j *Journal) add(undo func()) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.done {
		return
	}
	j.undo = append(j.undo, undo)
}

// Rollback runs the recorded undo funcs newest first. Later calls, and
// writes recorded after it, are ignored.
func (j *Journal) Rollback() {
	j.mu.Lock()
	undo := j.undo
	j.undo = nil
	j.done = true
	j.mu.Unlock()
	for i := len(undo) - 1; i >= 0; i-- {
		undo[i]()
	}
}

// Commit discards the journal; the recorded writes stay.
func (j *Journal) Commit() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.undo = nil
	j.done = true
}

// Len reports how many writes are pending undo.
func (j *Journal) Len() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.undo)
}
