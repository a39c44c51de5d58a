package aicache

import "time"

// Strategy classifies how a query matched a cached entry.
type Strategy string

const (
	StrategyExact    Strategy = "exact"
	StrategySemantic Strategy = "semantic"
	StrategyIntent   Strategy = "intent"
	StrategyNone     Strategy = "none"
)

// MissReason tags why a lookup missed.
type MissReason string

const (
	MissNoSimilarEntry  MissReason = "no_similar_entry"
	MissThresholdNotMet MissReason = "threshold_not_met"
	MissContextMismatch MissReason = "context_mismatch"
	// MissDeadline marks a lookup that abandoned semantic escalation because
	// the caller's deadline was too near.
	MissDeadline MissReason = "deadline"
	// MissError marks a lookup degraded by an internal backend failure.
	MissError MissReason = "cache_error"
)

// Result is the outcome of one decision pipeline invocation. Every call gets
// a Result, even when internal backends fail.
type Result struct {
	Hit         bool
	Value       []byte
	OperationID string

	Strategy   Strategy
	Similarity float64       // set for semantic hits
	CacheAge   time.Duration // age of the matched entry, hits only
	MissReason MissReason    // set when Hit == false
}
