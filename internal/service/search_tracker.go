package service

import (
	"context"
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v4"
)

// SearchTicket identifies one in-flight search.
type SearchTicket struct {
	key        string
	generation uint64
	ctx        context.Context
	cancel     context.CancelFunc
}

// Context is cancelled when a newer search for the same key begins or the
// ticket is finished.
func (t *SearchTicket) Context() context.Context {
	return t.ctx
}

// Key returns the tracked key.
func (t *SearchTicket) Key() string {
	return t.key
}

// SearchTracker keeps the latest search per key. Starting a search cancels the
// previous one for the same key; results of superseded searches are stale.
type SearchTracker struct {
	searches   *xsync.Map[string, *SearchTicket]
	generation atomic.Uint64
}

// NewSearchTracker constructs an empty tracker.
func NewSearchTracker() *SearchTracker {
	return &SearchTracker{searches: xsync.NewMap[string, *SearchTicket]()}
}

// Begin registers a new search for key derived from parent.
func (t *SearchTracker) Begin(parent context.Context, key string) *SearchTicket {
	ctx, cancel := context.WithCancel(parent)
	ticket := &SearchTicket{
		key:        key,
		generation: t.generation.Add(1),
		ctx:        ctx,
		cancel:     cancel,
	}
	if previous, loaded := t.searches.LoadAndStore(key, ticket); loaded {
		previous.cancel()
	}
	return ticket
}

// Current reports whether ticket is still the latest search for its key.
func (t *SearchTracker) Current(ticket *SearchTicket) bool {
	latest, ok := t.searches.Load(ticket.key)
	return ok && latest.generation == ticket.generation
}

// Finish releases the ticket's context and forgets the key unless a newer
// search has taken it over.
func (t *SearchTracker) Finish(ticket *SearchTicket) {
	ticket.cancel()
	t.searches.Compute(ticket.key, func(latest *SearchTicket, loaded bool) (*SearchTicket, xsync.ComputeOp) {
		if loaded && latest.generation == ticket.generation {
			return nil, xsync.DeleteOp
		}
		return latest, xsync.CancelOp
	})
}

// Len returns the number of keys with a search in flight.
func (t *SearchTracker) Len() int {
	return t.searches.Size()
}
