// usage:
//
// import (
//
//	"log/slog"
//
//	"github.com/unkn0wn-root/aicache"
//	"github.com/unkn0wn-root/aicache/hooks/async"
//	"github.com/unkn0wn-root/aicache/sloghooks"
//
// )
//
//	raw := sloghooks.New(slog.Default(), sloghooks.Options{
//	    DecisionEvery: 100, // sample the hot path: ~every 100th decision
//	})
//
// hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
// defer hooks.Close()
//
//	engine, _ := aicache.New(aicache.Options{
//	    Embedder: embedder,
//	    Hooks:    hooks, // or `raw` if you don't want async
//	})
package asynchook

import (
	"sync"
	"time"

	"github.com/unkn0wn-root/aicache"
)

type Hooks struct {
	inner aicache.Hooks
	q     chan func()
	wg    sync.WaitGroup
	once  sync.Once
}

var _ aicache.Hooks = (*Hooks)(nil)

func New(inner aicache.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

func (h *Hooks) Close() {
	h.once.Do(func() {
		close(h.q)
		h.wg.Wait()
	})
}

func (h *Hooks) try(f func()) {
	select {
	case h.q <- f:
	default: // drop
	}
}

func (h *Hooks) Decision(op string, d time.Duration) { h.try(func() { h.inner.Decision(op, d) }) }
func (h *Hooks) Eviction(p string, n int, b int64)   { h.try(func() { h.inner.Eviction(p, n, b) }) }
func (h *Hooks) ExpiredSwept(n int)                  { h.try(func() { h.inner.ExpiredSwept(n) }) }
func (h *Hooks) IndexPruned(k, r string)             { h.try(func() { h.inner.IndexPruned(k, r) }) }
func (h *Hooks) AuditDropped(n int)                  { h.try(func() { h.inner.AuditDropped(n) }) }
func (h *Hooks) AuditPersistError(err error)         { h.try(func() { h.inner.AuditPersistError(err) }) }
func (h *Hooks) EmbeddingFault(err error)            { h.try(func() { h.inner.EmbeddingFault(err) }) }
func (h *Hooks) StorageFault(op string, err error) {
	h.try(func() { h.inner.StorageFault(op, err) })
}
func (h *Hooks) StorageRejected(key string) { h.try(func() { h.inner.StorageRejected(key) }) }
