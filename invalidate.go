package aicache

import (
	"context"
	"fmt"

	"github.com/unkn0wn-root/aicache/event"
	"github.com/unkn0wn-root/aicache/normalize"
	"github.com/unkn0wn-root/aicache/toon"
)

// InvalidateKey removes key from the store, the semantic index, and the
// storage backend. Invalidating an absent key is a no-op audited with
// affected_entries=0. reason is carried on the published event.
func (e *Engine) InvalidateKey(ctx context.Context, key, reason string) error {
	if err := e.begin(); err != nil {
		return err
	}
	defer e.end()

	affected := 0
	if _, ok := e.store.Delete(key); ok {
		affected = 1
		if e.idx != nil {
			e.idx.Remove(key)
		}
		e.dropPersisted(ctx, key)
	}

	e.recordInvalidation(affected)
	e.publish(ctx, event.Event{
		Type:            event.TypeInvalidation,
		Key:             key,
		Reason:          reason,
		AffectedEntries: affected,
		Timestamp:       e.clock(),
	})
	return nil
}

// InvalidateSemanticNeighbors removes every entry within threshold
// similarity of query's embedding and returns the count. One aggregate audit
// record covers the whole bulk operation.
//
// With no embedder wired, or when the embedding backend is down, nothing is
// removed and the count is zero (the failure is audited as cache_error).
func (e *Engine) InvalidateSemanticNeighbors(ctx context.Context, query string, threshold float64) (int, error) {
	if err := e.begin(); err != nil {
		return 0, err
	}
	defer e.end()
	if e.emb == nil {
		e.recordInvalidation(0)
		return 0, nil
	}

	vec, err := e.emb.Embed(ctx, normalize.Normalize(query))
	if err != nil {
		e.hooks.EmbeddingFault(fmt.Errorf("%w: %v", ErrEmbeddingUnavailable, err))
		e.log.Warn("embedding failed, neighbors not invalidated", Fields{"err": err.Error()})
		e.rec.Record(e.gen.Generate(toon.Facts{Type: toon.CacheError, Query: query}))
		return 0, nil
	}

	affected := 0
	for _, m := range e.idx.Search(vec, threshold) {
		if _, ok := e.store.Delete(m.Key); ok {
			affected++
			e.dropPersisted(ctx, m.Key)
		}
		e.idx.Remove(m.Key)
	}

	e.recordInvalidation(affected)
	e.publish(ctx, event.Event{
		Type:            event.TypeInvalidation,
		Reason:          "semantic_neighbors",
		AffectedEntries: affected,
		Timestamp:       e.clock(),
	})
	return affected, nil
}

// InvalidateExpired removes every expired entry right now instead of waiting
// for the background sweep, and returns the count. Audited as one bulk
// invalidation.
func (e *Engine) InvalidateExpired(ctx context.Context) (int, error) {
	if err := e.begin(); err != nil {
		return 0, err
	}
	defer e.end()

	removed := e.store.SweepExpired()
	for _, ent := range removed {
		e.dropPersisted(ctx, ent.Key)
	}
	if len(removed) > 0 {
		e.hooks.ExpiredSwept(len(removed))
	}

	e.recordInvalidation(len(removed))
	e.publish(ctx, event.Event{
		Type:            event.TypeInvalidation,
		Reason:          "expired",
		AffectedEntries: len(removed),
		Timestamp:       e.clock(),
	})
	return len(removed), nil
}

func (e *Engine) recordInvalidation(affected int) {
	e.rec.Record(e.gen.Generate(toon.Facts{
		Type:            toon.Invalidation,
		AffectedEntries: affected,
	}))
}

// dropPersisted removes the write-through copy, best-effort.
func (e *Engine) dropPersisted(ctx context.Context, key string) {
	if e.storage == nil {
		return
	}
	if err := e.storage.Delete(ctx, key); err != nil {
		e.hooks.StorageFault("delete", fmt.Errorf("%w: %v", ErrStorageUnavailable, err))
		e.log.Warn("persisted entry delete failed", Fields{"key": key, "err": err.Error()})
	}
}
