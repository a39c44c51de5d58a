// Package event defines the best-effort notification port. The engine
// publishes store and invalidation events so sibling processes can react
// (e.g. drop their own warm copies); delivery failures never affect the
// cache operation that produced the event.
package event

import (
	"context"
	"time"
)

// Event kinds.
const (
	TypeStore        = "store"
	TypeInvalidation = "invalidation"
	TypeEviction     = "eviction"
)

// Event describes one cache mutation.
type Event struct {
	Type            string    `json:"type"`
	Key             string    `json:"key,omitempty"`
	Reason          string    `json:"reason,omitempty"`
	AffectedEntries int       `json:"affected_entries,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
}

// Publisher delivers events. Implementations must be safe for concurrent
// use.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close(ctx context.Context) error
}

// Nop discards all events. The default when no publisher is wired.
type Nop struct{}

var _ Publisher = Nop{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close(context.Context) error          { return nil }
