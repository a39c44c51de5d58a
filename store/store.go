// Package store implements the capacity-bounded entry store behind the
// decision engine. Writes are copy-on-write replacements of the key->entry
// mapping with a per-key version check, so concurrent readers never observe a
// partially updated entry and concurrent writers resolve last-writer-wins
// against the version instead of silently losing updates.
//
// TTL is enforced twice on purpose: lazily at read, which keeps the hot path
// fast, and by a periodic single-goroutine sweep, which bounds memory growth
// from entries that are never re-read.
package store

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/unkn0wn-root/aicache/internal/util"
)

const defaultSweep = time.Minute

// RemoveReason tags store-initiated removals reported through OnRemove.
type RemoveReason string

const (
	RemovedEvicted RemoveReason = "evicted"
	RemovedExpired RemoveReason = "expired"
)

type versioned struct {
	e   *Entry
	ver uint64
}

type slot struct {
	p atomic.Pointer[versioned]
}

// Config tunes the store. Policy is required (validated in New).
type Config struct {
	Policy Policy

	// SweepInterval for the background expiry sweep. 0 => 1m. Negative
	// disables the sweep (lazy expiry still applies).
	SweepInterval time.Duration

	// Clock overrides time.Now, for tests.
	Clock func() time.Time

	// OnRemove is called once per entry the store removes on its own
	// (eviction or expiry), outside the map lock. It must be cheap; the
	// engine uses it to keep the semantic index consistent.
	OnRemove func(e *Entry, reason RemoveReason)

	// OnEvictRun is called after an eviction run with the totals freed.
	OnEvictRun func(entries int, bytes int64)

	// OnSweep is called after each background sweep that removed entries.
	OnSweep func(entries int)
}

// Store is safe for concurrent use. There is no global data lock: the map
// shape is guarded by an RWMutex, published entries are immutable, and the
// capacity counter is atomic. Eviction runs with concurrency 1.
type Store struct {
	policy Config // policy + callbacks, fixed after New
	clock  func() time.Time

	mu      sync.RWMutex
	slots   map[string]*slot
	intents map[string]map[string]struct{} // intent key -> entry keys

	size atomic.Int64

	// evictMu serializes writers with respect to capacity accounting. Reads
	// and touches never take it.
	evictMu sync.Mutex

	ticker    *time.Ticker
	stopCh    chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// New validates the policy and starts the background sweep.
func New(cfg Config) (*Store, error) {
	if err := cfg.Policy.Validate(); err != nil {
		return nil, err
	}
	cfg.Policy = cfg.Policy.withDefaults()
	s := &Store{
		policy:  cfg,
		clock:   cfg.Clock,
		slots:   make(map[string]*slot),
		intents: make(map[string]map[string]struct{}),
	}
	if s.clock == nil {
		s.clock = time.Now
	}

	sweep := cfg.SweepInterval
	if sweep == 0 {
		sweep = defaultSweep
	}
	if sweep > 0 {
		s.ticker = time.NewTicker(sweep)
		s.stopCh = make(chan struct{})
		s.wg.Add(1)
		go s.sweepLoop()
	}
	return s, nil
}

// Close stops the background sweep. Entries remain readable.
func (s *Store) Close() {
	s.closeOnce.Do(func() {
		if s.stopCh != nil {
			close(s.stopCh)
			s.wg.Wait()
			s.ticker.Stop()
		}
	})
}

// Get returns the live entry for key. Expired entries are removed on read
// (lazy expiry) and reported as a miss.
func (s *Store) Get(key string) (*Entry, bool) {
	v := s.load(key)
	if v == nil {
		return nil, false
	}
	if v.e.IsExpired(s.clock()) {
		if removed := s.removeIf(key, v); removed != nil && s.policy.OnRemove != nil {
			s.policy.OnRemove(removed, RemovedExpired)
		}
		return nil, false
	}
	return v.e, true
}

// Version returns the current per-key version; 0 for absent keys.
func (s *Store) Version(key string) uint64 {
	if v := s.load(key); v != nil {
		return v.ver
	}
	return 0
}

// Put stores an immutable entry, evicting per policy first when capacity
// would be exceeded. It returns the new per-key version. If eviction cannot
// free enough room the entry is not stored and ErrInsufficientSpace is
// returned.
func (s *Store) Put(e *Entry) (uint64, error) {
	if e == nil || e.Key == "" {
		return 0, fmt.Errorf("store: entry key is required")
	}
	need := e.Size()
	max := s.policy.Policy.MaxSizeBytes

	s.evictMu.Lock()
	defer s.evictMu.Unlock()

	if max > 0 {
		if need > max {
			return 0, ErrInsufficientSpace
		}
		var replaced int64
		if old := s.load(e.Key); old != nil {
			replaced = old.e.Size()
		}
		if s.size.Load()-replaced+need > max {
			if err := s.evictFor(need-replaced, e.Key); err != nil {
				return 0, err
			}
		}
	}

	ver, delta := s.publish(e)
	s.size.Add(delta)
	return ver, nil
}

// Touch replaces the entry under key with a copy whose access statistics are
// advanced; with refreshTTL the expiry window restarts. Lock-free: a CAS loop
// against the per-key version. Returns the new instance, or false when the
// key is absent or expired.
func (s *Store) Touch(key string, refreshTTL bool) (*Entry, bool) {
	s.mu.RLock()
	sl := s.slots[key]
	s.mu.RUnlock()
	if sl == nil {
		return nil, false
	}
	now := s.clock()
	for {
		cur := sl.p.Load()
		if cur == nil || cur.e.IsExpired(now) {
			return nil, false
		}
		ne := cur.e.Touch(now, refreshTTL)
		if sl.p.CompareAndSwap(cur, &versioned{e: ne, ver: cur.ver + 1}) {
			return ne, true
		}
	}
}

// Delete removes key and returns the removed entry. Explicit deletions are
// not reported through OnRemove; the caller pairs them with index removal
// itself.
func (s *Store) Delete(key string) (*Entry, bool) {
	e := s.remove(key)
	if e == nil {
		return nil, false
	}
	return e, true
}

// GetByIntent returns live entries sharing (intent, context, model). Expired
// candidates found along the way are removed, like in Get.
func (s *Store) GetByIntent(intent, context, model string) []*Entry {
	ik := util.IntentKey(intent, context, model)

	s.mu.RLock()
	keys := make([]string, 0, len(s.intents[ik]))
	for k := range s.intents[ik] {
		keys = append(keys, k)
	}
	s.mu.RUnlock()

	now := s.clock()
	out := make([]*Entry, 0, len(keys))
	for _, k := range keys {
		v := s.load(k)
		if v == nil {
			continue
		}
		if v.e.IsExpired(now) {
			if removed := s.removeIf(k, v); removed != nil && s.policy.OnRemove != nil {
				s.policy.OnRemove(removed, RemovedExpired)
			}
			continue
		}
		out = append(out, v.e)
	}
	return out
}

// Keys returns a snapshot of all keys, including not-yet-swept expired ones.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.slots))
	for k := range s.slots {
		out = append(out, k)
	}
	return out
}

// Len is the number of stored entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.slots)
}

// SizeBytes is the current capacity usage.
func (s *Store) SizeBytes() int64 { return s.size.Load() }

// SweepExpired removes every expired entry and returns them. Used by the
// background sweep and by explicit bulk invalidation.
func (s *Store) SweepExpired() []*Entry {
	now := s.clock()
	var removed []*Entry
	for _, k := range s.Keys() {
		v := s.load(k)
		if v == nil || !v.e.IsExpired(now) {
			continue
		}
		if e := s.removeIf(k, v); e != nil {
			removed = append(removed, e)
			if s.policy.OnRemove != nil {
				s.policy.OnRemove(e, RemovedExpired)
			}
		}
	}
	return removed
}

func (s *Store) sweepLoop() {
	defer s.wg.Done()
	for {
		select {
		case <-s.ticker.C:
			if removed := s.SweepExpired(); len(removed) > 0 && s.policy.OnSweep != nil {
				s.policy.OnSweep(len(removed))
			}
		case <-s.stopCh:
			return
		}
	}
}

func (s *Store) load(key string) *versioned {
	s.mu.RLock()
	sl := s.slots[key]
	s.mu.RUnlock()
	if sl == nil {
		return nil
	}
	return sl.p.Load()
}

// publish installs e under its key via CAS and returns the new version and
// the size delta versus the replaced entry.
func (s *Store) publish(e *Entry) (uint64, int64) {
	s.mu.Lock()
	sl := s.slots[e.Key]
	if sl == nil {
		sl = &slot{}
		s.slots[e.Key] = sl
	}
	// Touch never changes intent fields, so the old mapping is stable here
	// even though the CAS below runs outside the lock.
	if old := sl.p.Load(); old != nil {
		s.unindexIntent(old.e)
	}
	s.indexIntent(e)
	s.mu.Unlock()

	for {
		cur := sl.p.Load()
		var ver uint64 = 1
		var replaced int64
		if cur != nil {
			ver = cur.ver + 1
			replaced = cur.e.Size()
		}
		if sl.p.CompareAndSwap(cur, &versioned{e: e, ver: ver}) {
			return ver, e.Size() - replaced
		}
	}
}

// remove deletes key from the map and the intent index and adjusts size.
func (s *Store) remove(key string) *Entry {
	s.mu.Lock()
	sl := s.slots[key]
	if sl == nil {
		s.mu.Unlock()
		return nil
	}
	delete(s.slots, key)
	v := sl.p.Load()
	if v != nil {
		s.unindexIntent(v.e)
	}
	s.mu.Unlock()

	if v == nil {
		return nil
	}
	s.size.Add(-v.e.Size())
	return v.e
}

// removeIf deletes key only if its slot still holds exactly want, so a
// concurrent Put that already replaced the expired entry is not clobbered.
func (s *Store) removeIf(key string, want *versioned) *Entry {
	s.mu.Lock()
	sl := s.slots[key]
	if sl == nil || sl.p.Load() != want {
		s.mu.Unlock()
		return nil
	}
	delete(s.slots, key)
	s.unindexIntent(want.e)
	s.mu.Unlock()

	s.size.Add(-want.e.Size())
	return want.e
}

// indexIntent/unindexIntent maintain the (intent, context, model) secondary
// index. Callers hold s.mu.
func (s *Store) indexIntent(e *Entry) {
	if e.Intent == "" {
		return
	}
	ik := util.IntentKey(e.Intent, e.Context, e.Model)
	set := s.intents[ik]
	if set == nil {
		set = make(map[string]struct{})
		s.intents[ik] = set
	}
	set[e.Key] = struct{}{}
}

func (s *Store) unindexIntent(e *Entry) {
	if e.Intent == "" {
		return
	}
	ik := util.IntentKey(e.Intent, e.Context, e.Model)
	if set := s.intents[ik]; set != nil {
		delete(set, e.Key)
		if len(set) == 0 {
			delete(s.intents, ik)
		}
	}
}
