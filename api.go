package aicache

import (
	"time"

	"github.com/unkn0wn-root/aicache/codec"
	"github.com/unkn0wn-root/aicache/embedding"
	"github.com/unkn0wn-root/aicache/event"
	"github.com/unkn0wn-root/aicache/index"
	"github.com/unkn0wn-root/aicache/storage"
	"github.com/unkn0wn-root/aicache/store"
	"github.com/unkn0wn-root/aicache/token"
	"github.com/unkn0wn-root/aicache/toon"
)

// Options tune the engine. Everything is optional; the zero value yields an
// in-memory exact+intent cache with default policy and no audit sinks.
type Options struct {
	// Policy is the cache policy. Zero value => store.DefaultPolicy().
	// Validation failures surface from New, never per-request.
	Policy store.Policy

	// Embedder enables semantic matching. nil disables the semantic step;
	// exact and intent matching still function.
	Embedder embedding.Embedder

	// Index holds prompt embeddings. nil => in-process cosine index.
	// Ignored when Embedder is nil.
	Index index.Index

	// Counter measures token savings for audit records. nil => heuristic
	// estimator.
	Counter token.Counter

	// Pricer turns token counts into cost savings. nil => default pricing.
	Pricer *token.Pricer

	// Storage enables write-through persistence and WarmStart. nil disables
	// both. Backend failures degrade, they never fail cache operations.
	Storage storage.Backend

	// StorageCodec serializes entries for Storage. nil => JSON.
	StorageCodec codec.Codec[store.Entry]

	// Publisher receives best-effort store/invalidation events. nil => Nop.
	Publisher event.Publisher

	// Sinks persist audit records (e.g. toon/sqlite). Records flow through
	// an async recorder; sink failures are reported via Hooks, never to
	// callers.
	Sinks []toon.Sink

	Logger Logger // nil => NopLogger
	Hooks  Hooks  // nil => NopHooks

	// SweepInterval for the background expiry sweep. 0 => 1m; negative
	// disables it (lazy expiry still applies).
	SweepInterval time.Duration

	// SemanticBudget is the minimum remaining context deadline required to
	// attempt semantic escalation. Lookups closer to their deadline skip
	// straight past the semantic step. 0 => 100ms.
	SemanticBudget time.Duration

	// RecorderQueue bounds in-flight audit records. 0 => 1024.
	RecorderQueue int

	// AnalyticsBucket and AnalyticsBuckets size the metrics window ring.
	// 0 => 1m granularity, 120 buckets.
	AnalyticsBucket  time.Duration
	AnalyticsBuckets int

	// Clock overrides time.Now, for tests.
	Clock func() time.Time
}

// New validates the policy, wires the ports, and starts the background
// goroutines (expiry sweep, audit recorder). Callers own Close.
func New(opts Options) (*Engine, error) {
	return newEngine(opts)
}
