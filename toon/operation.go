// Package toon builds, records, and aggregates the immutable audit record
// emitted for every cache decision. Records are constructed synchronously by
// the Generator, handed to the Recorder, and persisted asynchronously to one
// or more sinks; the Aggregator rolls them up into windowed metrics.
package toon

import "time"

// Type is the operation classification carried by a record.
type Type string

const (
	ExactHit     Type = "exact_hit"
	SemanticHit  Type = "semantic_hit"
	IntentHit    Type = "intent_hit"
	ExactMiss    Type = "exact_miss"
	SemanticMiss Type = "semantic_miss"
	CacheError   Type = "cache_error"
	Store        Type = "store"
	Invalidation Type = "invalidation"
)

// Operation is one immutable audit record. Created once per cache decision
// and never mutated afterwards.
type Operation struct {
	OperationID     string    `json:"operation_id"`
	Type            Type      `json:"operation_type"`
	TokensSaved     int       `json:"tokens_saved"`
	CostSaved       float64   `json:"cost_saved"`
	Similarity      *float64  `json:"similarity_score"`
	CacheAgeSeconds *int64    `json:"cache_age_seconds"`
	AffectedEntries int       `json:"affected_entries,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
}

// IsHit reports whether the record describes a served cache hit.
func (t Type) IsHit() bool {
	switch t {
	case ExactHit, SemanticHit, IntentHit:
		return true
	}
	return false
}

// IsMiss reports whether the record counts against the hit rate. Failures
// degrade to miss-shaped results, so cache_error counts as a miss.
func (t Type) IsMiss() bool {
	switch t {
	case ExactMiss, SemanticMiss, CacheError:
		return true
	}
	return false
}
