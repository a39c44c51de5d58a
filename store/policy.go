package store

import (
	"errors"
	"fmt"
	"time"
)

// EvictionPolicy selects which entries are removed when capacity is exceeded.
type EvictionPolicy string

const (
	// LRU evicts the oldest LastAccessedAt first.
	LRU EvictionPolicy = "lru"
	// LFU evicts the lowest AccessCount first, ties broken by oldest CreatedAt.
	LFU EvictionPolicy = "lfu"
	// FIFO evicts the oldest CreatedAt first.
	FIFO EvictionPolicy = "fifo"
)

var (
	// ErrInvalidPolicy is returned at construction time; policy problems
	// never surface per-request.
	ErrInvalidPolicy = errors.New("store: invalid policy")

	// ErrInsufficientSpace means eviction could not free enough room and the
	// entry was not stored.
	ErrInsufficientSpace = errors.New("store: insufficient space")
)

// Policy is the immutable cache configuration.
type Policy struct {
	// MaxSizeBytes bounds the total Entry.Size of stored entries. 0 = unbounded.
	MaxSizeBytes int64 `yaml:"max_size_bytes"`

	// DefaultTTL applies to entries stored without an explicit TTL. 0 = no expiry.
	DefaultTTL time.Duration `yaml:"default_ttl"`

	// Eviction is the capacity eviction policy. Defaults to LRU when empty.
	Eviction EvictionPolicy `yaml:"eviction_policy"`

	// SemanticThreshold is the minimum cosine similarity for a semantic hit,
	// in (0,1].
	SemanticThreshold float64 `yaml:"semantic_threshold"`

	// RefreshTTLOnHit restarts an entry's expiry window when it is read.
	RefreshTTLOnHit bool `yaml:"refresh_ttl_on_hit"`
}

// DefaultPolicy returns a 64 MiB LRU cache with a 1h TTL and a 0.92 semantic
// threshold.
func DefaultPolicy() Policy {
	return Policy{
		MaxSizeBytes:      64 << 20,
		DefaultTTL:        time.Hour,
		Eviction:          LRU,
		SemanticThreshold: 0.92,
	}
}

// Validate fails fast on malformed configuration.
func (p Policy) Validate() error {
	if p.MaxSizeBytes < 0 {
		return fmt.Errorf("%w: max_size_bytes must be >= 0, got %d", ErrInvalidPolicy, p.MaxSizeBytes)
	}
	if p.DefaultTTL < 0 {
		return fmt.Errorf("%w: default_ttl must be >= 0, got %s", ErrInvalidPolicy, p.DefaultTTL)
	}
	switch p.Eviction {
	case "", LRU, LFU, FIFO:
	default:
		return fmt.Errorf("%w: unknown eviction_policy %q", ErrInvalidPolicy, p.Eviction)
	}
	if p.SemanticThreshold <= 0 || p.SemanticThreshold > 1 {
		return fmt.Errorf("%w: semantic_threshold must be in (0,1], got %g", ErrInvalidPolicy, p.SemanticThreshold)
	}
	return nil
}

// withDefaults fills zero-value knobs.
func (p Policy) withDefaults() Policy {
	if p.Eviction == "" {
		p.Eviction = LRU
	}
	return p
}
