// Package storage defines the persistent byte-store port the engine uses for
// write-through and warm start.
//
// Implementations MUST be byte-for-byte transparent: Get must return exactly
// the same []byte that was previously passed to Put for a key (no prepended
// metadata, no re-encoding, no mutation). The engine frames entries itself
// and treats anything that fails frame validation as corruption to delete.
package storage

import (
	"context"
	"time"
)

// Backend is a minimal byte store with TTLs and key enumeration.
// Must be safe for concurrent use.
type Backend interface {
	// Get returns (value, true, nil) on hit; (nil, false, nil) on miss.
	// IO/remote errors return (nil, false, err).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Put stores value with the given TTL (non-positive = no expiry).
	// Returns ok=false when the store rejected the write under pressure.
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) (ok bool, err error)

	// Delete removes a key (best-effort).
	Delete(ctx context.Context, key string) error

	// Keys enumerates all stored keys. Used for warm start; may be slow.
	Keys(ctx context.Context) ([]string, error)

	// Close releases resources.
	Close(ctx context.Context) error
}
