package store

import "time"

// Entry is one cached response. Entries are immutable once published: any
// update (touch, TTL refresh) produces a new instance that atomically replaces
// the old one, so concurrent readers hold stable references without locks.
type Entry struct {
	Key             string
	Value           []byte
	Embedding       []float64 // optional; nil when semantic caching is off
	NormalizedQuery string
	Intent          string
	Context         string
	Model           string

	CreatedAt      time.Time
	ExpiresAt      time.Time // zero => never expires
	LastAccessedAt time.Time
	AccessCount    uint64
	TTL            time.Duration
	Metadata       map[string]string
}

// IsExpired reports whether the entry has an expiry and now has reached it.
// Entries without ExpiresAt never expire.
func (e *Entry) IsExpired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && !now.Before(e.ExpiresAt)
}

// Size is the capacity-accounting weight of the entry in bytes.
func (e *Entry) Size() int64 {
	n := int64(len(e.Key) + len(e.Value) + len(e.NormalizedQuery) + len(e.Intent))
	n += int64(8 * len(e.Embedding))
	for k, v := range e.Metadata {
		n += int64(len(k) + len(v))
	}
	return n
}

// Age is the time elapsed since the entry was created.
func (e *Entry) Age(now time.Time) time.Duration {
	return now.Sub(e.CreatedAt)
}

// Touch returns a copy with AccessCount incremented and LastAccessedAt
// advanced (never moved backwards). With refreshTTL, the expiry window is
// restarted from now. Key, Value and CreatedAt are never changed.
func (e *Entry) Touch(now time.Time, refreshTTL bool) *Entry {
	ne := *e
	ne.AccessCount++
	if now.After(ne.LastAccessedAt) {
		ne.LastAccessedAt = now
	}
	if refreshTTL && ne.TTL > 0 {
		ne.ExpiresAt = now.Add(ne.TTL)
	}
	return &ne
}
