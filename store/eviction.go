package store

import "time"

// evictFor removes entries per policy until need bytes fit under the capacity
// bound. Expired entries are taken first regardless of policy; they are free
// wins. Caller holds evictMu, so at most one eviction run is in flight.
func (s *Store) evictFor(need int64, exclude string) error {
	max := s.policy.Policy.MaxSizeBytes
	now := s.clock()

	var evicted int
	var freed int64
	for s.size.Load()+need > max {
		key, v := s.pickVictim(exclude, now)
		if v == nil {
			// Nothing evictable besides the key being replaced.
			return ErrInsufficientSpace
		}
		e := s.removeIf(key, v)
		if e == nil {
			continue // lost a race with a concurrent touch; re-pick
		}
		evicted++
		freed += e.Size()
		reason := RemovedEvicted
		if e.IsExpired(now) {
			reason = RemovedExpired
		}
		if s.policy.OnRemove != nil {
			s.policy.OnRemove(e, reason)
		}
	}

	if evicted > 0 && s.policy.OnEvictRun != nil {
		s.policy.OnEvictRun(evicted, freed)
	}
	return nil
}

// pickVictim scans live entries and returns the policy-minimal victim: no
// surviving entry orders strictly before the returned one under the active
// policy. An expired entry wins immediately.
func (s *Store) pickVictim(exclude string, now time.Time) (string, *versioned) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var bestKey string
	var best *versioned
	for k, sl := range s.slots {
		if k == exclude {
			continue
		}
		v := sl.p.Load()
		if v == nil {
			continue
		}
		if v.e.IsExpired(now) {
			return k, v
		}
		if best == nil || s.ordersBefore(v.e, best.e) {
			bestKey, best = k, v
		}
	}
	return bestKey, best
}

// ordersBefore reports whether a is a better eviction candidate than b.
func (s *Store) ordersBefore(a, b *Entry) bool {
	switch s.policy.Policy.Eviction {
	case LFU:
		if a.AccessCount != b.AccessCount {
			return a.AccessCount < b.AccessCount
		}
		return a.CreatedAt.Before(b.CreatedAt)
	case FIFO:
		return a.CreatedAt.Before(b.CreatedAt)
	default: // LRU
		return a.LastAccessedAt.Before(b.LastAccessedAt)
	}
}
