package aicache

import "time"

// Hooks are lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking; the engine calls them on
// hot paths. Wrap with hooks/async to offload slow consumers.
type Hooks interface {
	// One decision pipeline invocation finished.
	// opType is the TOON operation type string (exact_hit, semantic_miss, ...).
	Decision(opType string, elapsed time.Duration)

	// An eviction run removed entries to make room for a put.
	Eviction(policy string, entries int, bytes int64)

	// The background sweep (or an explicit bulk invalidation) removed
	// expired entries.
	ExpiredSwept(entries int)

	// A semantic index entry referenced a key absent from the store and was
	// pruned. reason ∈ {"missing", "expired"}.
	IndexPruned(key, reason string)

	// A TOON record was dropped because the recorder queue was full.
	AuditDropped(n int)

	// A sink failed to persist a TOON record. The caller's result was
	// already returned; this is observability only.
	AuditPersistError(err error)

	// External embedding backend failure; the semantic step was skipped.
	EmbeddingFault(err error)

	// Persistent storage backend failure. op ∈ {"get", "put", "delete", "keys"}.
	StorageFault(op string, err error)

	// The storage backend returned ok=false on Put (backpressure/rejection).
	// The entry stays cached in memory; only the persisted copy is missing.
	StorageRejected(key string)
}

// NopHooks is the default no-op.
type NopHooks struct{}

func (NopHooks) Decision(string, time.Duration)  {}
func (NopHooks) Eviction(string, int, int64)     {}
func (NopHooks) ExpiredSwept(int)                {}
func (NopHooks) IndexPruned(string, string)      {}
func (NopHooks) AuditDropped(int)                {}
func (NopHooks) AuditPersistError(error)         {}
func (NopHooks) EmbeddingFault(error)            {}
func (NopHooks) StorageFault(string, error)      {}
func (NopHooks) StorageRejected(string)          {}
