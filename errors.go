package aicache

import "errors"

var (
	// ErrEmptyQuery is the only failure surfaced to callers of Query/Store.
	// Everything else degrades to a miss-shaped result.
	ErrEmptyQuery = errors.New("aicache: empty query")

	// ErrStorageUnavailable wraps persistent-storage backend I/O failures.
	ErrStorageUnavailable = errors.New("aicache: storage unavailable")

	// ErrEmbeddingUnavailable wraps embedding backend failures; the semantic
	// step is skipped and exact/intent matching still function.
	ErrEmbeddingUnavailable = errors.New("aicache: embedding unavailable")

	// ErrConsistencyViolation marks a semantic index entry referencing a key
	// absent from the store. Treated as a miss; the stale index entry is
	// pruned asynchronously.
	ErrConsistencyViolation = errors.New("aicache: index references missing key")

	// ErrClosed is returned by operations on a closed engine.
	ErrClosed = errors.New("aicache: engine closed")
)
