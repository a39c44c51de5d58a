package aicache

import (
	"context"
	"fmt"

	"github.com/unkn0wn-root/aicache/internal/wire"
)

// WarmStart reloads persisted entries from the storage backend into the
// store and semantic index. Frames that fail validation or decoding are
// deleted from the backend (self-heal) and skipped, as are entries that
// expired while persisted. Returns the number of entries loaded.
//
// Call once after New, before serving traffic. With no backend wired it is a
// no-op.
func (e *Engine) WarmStart(ctx context.Context) (int, error) {
	if err := e.begin(); err != nil {
		return 0, err
	}
	defer e.end()
	if e.storage == nil {
		return 0, nil
	}

	keys, err := e.storage.Keys(ctx)
	if err != nil {
		err = fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
		e.hooks.StorageFault("keys", err)
		return 0, err
	}

	loaded := 0
	now := e.clock()
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return loaded, err
		}

		raw, ok, err := e.storage.Get(ctx, key)
		if err != nil {
			e.hooks.StorageFault("get", fmt.Errorf("%w: %v", ErrStorageUnavailable, err))
			continue
		}
		if !ok {
			continue // expired or deleted between Keys and Get
		}

		_, payload, err := wire.Decode(raw)
		if err != nil {
			e.selfHeal(ctx, key, "corrupt_frame")
			continue
		}
		ent, err := e.scodec.Decode(payload)
		if err != nil {
			e.selfHeal(ctx, key, "corrupt_payload")
			continue
		}
		if ent.Key != key {
			e.selfHeal(ctx, key, "key_mismatch")
			continue
		}
		if ent.IsExpired(now) {
			e.dropPersisted(ctx, key)
			continue
		}

		if _, err := e.store.Put(&ent); err != nil {
			// Capacity filled up mid-reload; the rest would evict what we
			// just loaded.
			e.log.Warn("warm start stopped at capacity", Fields{"loaded": loaded})
			break
		}
		if ent.Embedding != nil && e.idx != nil {
			e.idx.Upsert(ent.Key, ent.Embedding)
		}
		loaded++
	}

	e.log.Info("warm start complete", Fields{"keys": len(keys), "loaded": loaded})
	return loaded, nil
}

// selfHeal deletes a persisted record the engine cannot trust.
func (e *Engine) selfHeal(ctx context.Context, key, reason string) {
	e.log.Warn("self-healing persisted entry", Fields{"key": key, "reason": reason})
	e.dropPersisted(ctx, key)
}
