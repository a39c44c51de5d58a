package aicache

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/unkn0wn-root/aicache/codec"
	"github.com/unkn0wn-root/aicache/embedding"
	"github.com/unkn0wn-root/aicache/event"
	"github.com/unkn0wn-root/aicache/index"
	"github.com/unkn0wn-root/aicache/internal/util"
	"github.com/unkn0wn-root/aicache/internal/wire"
	"github.com/unkn0wn-root/aicache/normalize"
	"github.com/unkn0wn-root/aicache/storage"
	"github.com/unkn0wn-root/aicache/store"
	"github.com/unkn0wn-root/aicache/toon"
)

const defaultSemanticBudget = 100 * time.Millisecond

// Engine is the cache decision pipeline: exact match, semantic escalation,
// intent fallback. Safe for concurrent use. Every Query and Store emits
// exactly one audit record, including degraded (cache_error) outcomes.
type Engine struct {
	policy store.Policy
	store  *store.Store
	idx    index.Index
	emb    embedding.Embedder

	gen *toon.Generator
	rec *toon.Recorder
	agg *toon.Aggregator

	storage storage.Backend
	scodec  codec.Codec[store.Entry]
	pub     event.Publisher

	log   Logger
	hooks Hooks

	clock     func() time.Time
	semBudget time.Duration

	wg      sync.WaitGroup // async index prunes
	closeMu sync.RWMutex   // held (read) by in-flight operations
	closed  atomic.Bool
}

func newEngine(opts Options) (*Engine, error) {
	pol := opts.Policy
	if pol == (store.Policy{}) {
		pol = store.DefaultPolicy()
	}

	e := &Engine{
		policy:    pol,
		emb:       opts.Embedder,
		storage:   opts.Storage,
		scodec:    opts.StorageCodec,
		log:       opts.Logger,
		hooks:     opts.Hooks,
		clock:     opts.Clock,
		semBudget: coalesce(opts.SemanticBudget, defaultSemanticBudget),
	}
	if e.log == nil {
		e.log = NopLogger{}
	}
	if e.hooks == nil {
		e.hooks = NopHooks{}
	}
	if e.clock == nil {
		e.clock = time.Now
	}
	if e.scodec == nil {
		e.scodec = codec.JSON[store.Entry]{}
	}
	if e.emb != nil {
		e.idx = opts.Index
		if e.idx == nil {
			e.idx = index.NewMemory()
		}
	}
	e.pub = opts.Publisher
	if e.pub == nil {
		e.pub = event.Nop{}
	}

	st, err := store.New(store.Config{
		Policy:        pol,
		SweepInterval: opts.SweepInterval,
		Clock:         e.clock,
		OnRemove: func(ent *store.Entry, reason store.RemoveReason) {
			if e.idx != nil {
				e.idx.Remove(ent.Key)
			}
		},
		OnEvictRun: func(entries int, bytes int64) {
			e.hooks.Eviction(string(pol.Eviction), entries, bytes)
			e.publish(context.Background(), event.Event{
				Type:            event.TypeEviction,
				Reason:          string(pol.Eviction),
				AffectedEntries: entries,
				Timestamp:       e.clock(),
			})
		},
		OnSweep: func(entries int) {
			e.hooks.ExpiredSwept(entries)
		},
	})
	if err != nil {
		return nil, err
	}
	e.store = st

	e.gen = toon.NewGenerator(opts.Counter, opts.Pricer).WithClock(e.clock)
	e.agg = toon.NewAggregator(toon.AggregatorConfig{
		BucketSize: opts.AnalyticsBucket,
		Buckets:    opts.AnalyticsBuckets,
		Clock:      e.clock,
	})
	e.rec = toon.NewRecorder(toon.RecorderConfig{
		QueueSize: opts.RecorderQueue,
		OnDrop:    e.hooks.AuditDropped,
		OnPersistError: func(err error) {
			e.hooks.AuditPersistError(err)
			e.log.Warn("audit sink failed", Fields{"err": err.Error()})
		},
	}, e.agg, opts.Sinks...)

	return e, nil
}

// Query runs the decision pipeline for (prompt, scope, model). scope is the
// caller-supplied partition (tenant, conversation, system-prompt hash); the
// same prompt under different scopes never shares entries.
//
// The only error callers see is ErrEmptyQuery (and ErrClosed after Close).
// Internal backend failures degrade to a miss-shaped Result tagged
// cache_error.
func (e *Engine) Query(ctx context.Context, prompt, scope, model string) (Result, error) {
	if err := e.begin(); err != nil {
		return Result{}, err
	}
	defer e.end()
	if strings.TrimSpace(prompt) == "" {
		return Result{}, ErrEmptyQuery
	}

	start := time.Now()
	res, facts := e.decide(ctx, prompt, scope, model)

	op := e.gen.Generate(facts)
	res.OperationID = op.OperationID
	e.rec.Record(op)
	e.hooks.Decision(string(op.Type), time.Since(start))
	return res, nil
}

func (e *Engine) decide(ctx context.Context, prompt, scope, model string) (Result, toon.Facts) {
	normalized := normalize.Normalize(prompt)
	key := util.EntryKey(normalized, scope, model)

	// 1. Exact.
	if ent, ok := e.store.Get(key); ok {
		if touched, ok := e.store.Touch(key, e.policy.RefreshTTLOnHit); ok {
			ent = touched
		}
		return e.hit(StrategyExact, toon.ExactHit, prompt, ent, 0)
	}

	// 2. Semantic escalation, deadline-guarded.
	var (
		embedErr        error
		deadlineSkip    bool
		semanticRan     bool
		contextMismatch bool
	)
	if e.emb != nil {
		if dl, ok := ctx.Deadline(); ok && time.Until(dl) < e.semBudget {
			deadlineSkip = true
		} else if vec, err := e.emb.Embed(ctx, normalized); err != nil {
			embedErr = err
			e.hooks.EmbeddingFault(fmt.Errorf("%w: %v", ErrEmbeddingUnavailable, err))
			e.log.Warn("embedding backend unavailable, semantic step skipped", Fields{"err": err.Error()})
		} else {
			semanticRan = true
			if res, facts, ok := e.semanticLookup(prompt, scope, model, vec, &contextMismatch); ok {
				return res, facts
			}
		}
	}

	// 3. Intent fallback.
	if res, facts, ok := e.intentLookup(prompt, scope, model); ok {
		return res, facts
	}

	// 4. Miss.
	reason := MissNoSimilarEntry
	typ := toon.ExactMiss
	switch {
	case embedErr != nil:
		reason, typ = MissError, toon.CacheError
	case deadlineSkip:
		reason, typ = MissDeadline, toon.SemanticMiss
	case contextMismatch:
		reason, typ = MissContextMismatch, toon.SemanticMiss
	case semanticRan:
		typ = toon.SemanticMiss
		if e.idx.Len() > 0 {
			reason = MissThresholdNotMet
		}
	}
	return Result{Strategy: StrategyNone, MissReason: reason},
		toon.Facts{Type: typ, Query: prompt, Model: model}
}

// semanticLookup picks the most similar live entry at or above the policy
// threshold, breaking similarity ties by most recent access. Matches whose
// key no longer exists in the store are pruned from the index
// asynchronously; matches from another scope or model never hit.
func (e *Engine) semanticLookup(prompt, scope, model string, vec []float64, mismatch *bool) (Result, toon.Facts, bool) {
	var (
		best    *store.Entry
		bestSim float64
	)
	for _, m := range e.idx.Search(vec, e.policy.SemanticThreshold) {
		if best != nil && m.Similarity < bestSim {
			break // sorted descending; only ties can still compete
		}
		cand, ok := e.store.Get(m.Key)
		if !ok {
			e.pruneIndex(m.Key, "missing")
			continue
		}
		if cand.Context != scope || cand.Model != model {
			*mismatch = true
			continue
		}
		if best == nil || cand.LastAccessedAt.After(best.LastAccessedAt) {
			best, bestSim = cand, m.Similarity
		}
	}
	if best == nil {
		return Result{}, toon.Facts{}, false
	}

	if touched, ok := e.store.Touch(best.Key, e.policy.RefreshTTLOnHit); ok {
		best = touched
	}
	res, facts := e.hit(StrategySemantic, toon.SemanticHit, prompt, best, bestSim)
	return res, facts, true
}

// intentLookup serves entries sharing the prompt's intent label within the
// same scope and model. It hits only with an unambiguous winner: a single
// candidate, or a strict most-recently-used one.
func (e *Engine) intentLookup(prompt, scope, model string) (Result, toon.Facts, bool) {
	label := normalize.Intent(prompt)
	cands := e.store.GetByIntent(label, scope, model)
	if len(cands) == 0 {
		return Result{}, toon.Facts{}, false
	}

	winner := cands[0]
	tied := false
	for _, c := range cands[1:] {
		switch {
		case c.LastAccessedAt.After(winner.LastAccessedAt):
			winner, tied = c, false
		case c.LastAccessedAt.Equal(winner.LastAccessedAt):
			tied = true
		}
	}
	if tied {
		return Result{}, toon.Facts{}, false
	}

	if touched, ok := e.store.Touch(winner.Key, e.policy.RefreshTTLOnHit); ok {
		winner = touched
	}
	res, facts := e.hit(StrategyIntent, toon.IntentHit, prompt, winner, 0)
	return res, facts, true
}

func (e *Engine) hit(strategy Strategy, typ toon.Type, prompt string, ent *store.Entry, sim float64) (Result, toon.Facts) {
	age := ent.Age(e.clock())
	res := Result{
		Hit:      true,
		Value:    ent.Value,
		Strategy: strategy,
		CacheAge: age,
	}
	facts := toon.Facts{
		Type:     typ,
		Query:    prompt,
		Value:    ent.Value,
		Model:    ent.Model,
		CacheAge: &age,
	}
	if strategy == StrategySemantic {
		res.Similarity = sim
		facts.Similarity = &sim
	}
	return res, facts
}

// Store caches response under (prompt, scope, model). The entry is embedded
// best-effort (an embedding failure stores it without semantic reach),
// written through to a storage backend when one is wired, and announced via
// the event publisher.
//
// Internal failures (capacity, storage) are audited and logged, never
// returned; only an empty prompt errors.
func (e *Engine) Store(ctx context.Context, prompt string, response []byte, scope, model string) error {
	if err := e.begin(); err != nil {
		return err
	}
	defer e.end()
	if strings.TrimSpace(prompt) == "" {
		return ErrEmptyQuery
	}

	start := time.Now()
	normalized := normalize.Normalize(prompt)
	key := util.EntryKey(normalized, scope, model)
	now := e.clock()

	ent := &store.Entry{
		Key:             key,
		Value:           response,
		NormalizedQuery: normalized,
		Intent:          normalize.Intent(prompt),
		Context:         scope,
		Model:           model,
		CreatedAt:       now,
		LastAccessedAt:  now,
		TTL:             e.policy.DefaultTTL,
	}
	if ent.TTL > 0 {
		ent.ExpiresAt = now.Add(ent.TTL)
	}

	if e.emb != nil {
		vec, err := e.emb.Embed(ctx, normalized)
		if err != nil {
			e.hooks.EmbeddingFault(fmt.Errorf("%w: %v", ErrEmbeddingUnavailable, err))
			e.log.Warn("embedding failed, storing without semantic reach", Fields{"err": err.Error()})
		} else {
			ent.Embedding = vec
		}
	}

	ver, err := e.store.Put(ent)
	typ := toon.Store
	if err != nil {
		// Capacity exhausted (or a malformed entry): the value is not
		// cached. Audited as a failed operation, not surfaced.
		typ = toon.CacheError
		e.log.Warn("store rejected entry", Fields{"key": key, "err": err.Error()})
	} else {
		if ent.Embedding != nil {
			e.idx.Upsert(key, ent.Embedding)
		}
		e.writeThrough(ctx, key, ver, ent)
		e.publish(ctx, event.Event{Type: event.TypeStore, Key: key, Timestamp: now})
	}

	op := e.gen.Generate(toon.Facts{Type: typ, Query: prompt, Model: model})
	e.rec.Record(op)
	e.hooks.Decision(string(op.Type), time.Since(start))
	return nil
}

// Analytics exposes the windowed metrics rollup.
func (e *Engine) Analytics() *toon.Aggregator { return e.agg }

// begin gates an operation against Close. On success the caller holds a read
// lock for the duration of the operation and must call end.
func (e *Engine) begin() error {
	e.closeMu.RLock()
	if e.closed.Load() {
		e.closeMu.RUnlock()
		return ErrClosed
	}
	return nil
}

func (e *Engine) end() { e.closeMu.RUnlock() }

// Close waits for in-flight operations to finish, stops the background
// goroutines, drains pending audit records, and releases the publisher and
// storage backend. Idempotent.
func (e *Engine) Close(ctx context.Context) error {
	e.closeMu.Lock()
	already := e.closed.Load()
	e.closed.Store(true)
	e.closeMu.Unlock()
	if already {
		return nil
	}
	e.store.Close()
	e.wg.Wait()
	e.rec.Close()

	err := e.pub.Close(ctx)
	if e.storage != nil {
		if serr := e.storage.Close(ctx); err == nil {
			err = serr
		}
	}
	return err
}

func (e *Engine) writeThrough(ctx context.Context, key string, ver uint64, ent *store.Entry) {
	if e.storage == nil {
		return
	}
	payload, err := e.scodec.Encode(*ent)
	if err != nil {
		e.log.Error("entry encode failed, skipping write-through", Fields{"key": key, "err": err.Error()})
		return
	}
	ok, err := e.storage.Put(ctx, key, wire.Encode(ver, payload), ent.TTL)
	switch {
	case err != nil:
		e.hooks.StorageFault("put", fmt.Errorf("%w: %v", ErrStorageUnavailable, err))
		e.log.Warn("write-through failed", Fields{"key": key, "err": err.Error()})
	case !ok:
		// Backend backpressure. The entry stays served from memory; it just
		// won't survive a warm start.
		e.hooks.StorageRejected(key)
		e.log.Warn("write-through rejected by backend", Fields{"key": key})
	}
}

func (e *Engine) publish(ctx context.Context, ev event.Event) {
	if err := e.pub.Publish(ctx, ev); err != nil {
		e.log.Debug("event publish failed", Fields{"type": ev.Type, "err": err.Error()})
	}
}

// pruneIndex drops a dangling index key off the request path.
func (e *Engine) pruneIndex(key, reason string) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.idx.Remove(key)
		e.hooks.IndexPruned(key, reason)
		e.log.Debug("pruned stale index entry", Fields{
			"key":    key,
			"reason": reason,
			"err":    ErrConsistencyViolation.Error(),
		})
	}()
}
