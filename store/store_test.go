package store

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

// fakeClock lets tests move time explicitly instead of sleeping.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestStore(t *testing.T, p Policy, clk *fakeClock) *Store {
	t.Helper()
	s, err := New(Config{
		Policy:        p,
		SweepInterval: -1, // tests drive expiry explicitly
		Clock:         clk.Now,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func entry(key string, valueLen int, clk *fakeClock, ttl time.Duration) *Entry {
	now := clk.Now()
	e := &Entry{
		Key:            key,
		Value:          make([]byte, valueLen),
		Context:        "ctx",
		Model:          "gpt-4o",
		CreatedAt:      now,
		LastAccessedAt: now,
		TTL:            ttl,
	}
	if ttl > 0 {
		e.ExpiresAt = now.Add(ttl)
	}
	return e
}

func TestPutGetRoundTrip(t *testing.T) {
	clk := newFakeClock()
	s := newTestStore(t, DefaultPolicy(), clk)

	e := entry("k1", 32, clk, time.Minute)
	e.Value = []byte("the answer is 4")
	if _, err := s.Put(e); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, ok := s.Get("k1")
	if !ok {
		t.Fatal("Get: expected hit")
	}
	if got.Key != e.Key || string(got.Value) != string(e.Value) || got.Context != e.Context {
		t.Fatalf("round trip mismatch: got %+v", got)
	}
	if s.SizeBytes() != e.Size() {
		t.Fatalf("SizeBytes = %d, want %d", s.SizeBytes(), e.Size())
	}
}

func TestIsExpired(t *testing.T) {
	clk := newFakeClock()
	now := clk.Now()

	noExpiry := &Entry{Key: "a", CreatedAt: now}
	if noExpiry.IsExpired(now.Add(1000 * time.Hour)) {
		t.Fatal("entry without ExpiresAt must never expire")
	}

	e := &Entry{Key: "b", CreatedAt: now, ExpiresAt: now.Add(time.Minute)}
	if e.IsExpired(now.Add(59 * time.Second)) {
		t.Fatal("expired before deadline")
	}
	if !e.IsExpired(now.Add(time.Minute)) {
		t.Fatal("is_expired must be true at exactly expires_at")
	}
	if !e.IsExpired(now.Add(2 * time.Minute)) {
		t.Fatal("not expired after deadline")
	}
}

func TestLazyExpiryOnGet(t *testing.T) {
	clk := newFakeClock()
	var removed []*Entry
	s, err := New(Config{
		Policy:        DefaultPolicy(),
		SweepInterval: -1,
		Clock:         clk.Now,
		OnRemove: func(e *Entry, reason RemoveReason) {
			if reason != RemovedExpired {
				t.Errorf("reason = %q, want expired", reason)
			}
			removed = append(removed, e)
		},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Close()

	if _, err := s.Put(entry("q", 10, clk, 60*time.Second)); err != nil {
		t.Fatalf("Put: %v", err)
	}

	clk.Advance(30 * time.Second)
	if _, ok := s.Get("q"); !ok {
		t.Fatal("expected hit at t=30s")
	}

	clk.Advance(31 * time.Second)
	if _, ok := s.Get("q"); ok {
		t.Fatal("expected miss at t=61s")
	}
	if len(removed) != 1 || removed[0].Key != "q" {
		t.Fatalf("expected one expiry removal, got %v", removed)
	}
	if s.Len() != 0 || s.SizeBytes() != 0 {
		t.Fatalf("store not drained after lazy expiry: len=%d size=%d", s.Len(), s.SizeBytes())
	}
}

func TestTouchSemantics(t *testing.T) {
	clk := newFakeClock()
	s := newTestStore(t, DefaultPolicy(), clk)

	orig := entry("k", 8, clk, time.Minute)
	if _, err := s.Put(orig); err != nil {
		t.Fatalf("Put: %v", err)
	}

	clk.Advance(10 * time.Second)
	touched, ok := s.Touch("k", false)
	if !ok {
		t.Fatal("Touch: expected success")
	}

	if touched.Key != orig.Key || string(touched.Value) != string(orig.Value) || !touched.CreatedAt.Equal(orig.CreatedAt) {
		t.Fatal("touch must not change key, value or created_at")
	}
	if touched.AccessCount != orig.AccessCount+1 {
		t.Fatalf("access_count = %d, want %d", touched.AccessCount, orig.AccessCount+1)
	}
	if touched.LastAccessedAt.Before(orig.LastAccessedAt) {
		t.Fatal("last_accessed_at went backwards")
	}
	if !touched.ExpiresAt.Equal(orig.ExpiresAt) {
		t.Fatal("expiry moved without refreshTTL")
	}

	// The original instance is untouched (copy-on-write).
	if orig.AccessCount != 0 {
		t.Fatal("touch mutated the published entry")
	}

	clk.Advance(10 * time.Second)
	refreshed, ok := s.Touch("k", true)
	if !ok {
		t.Fatal("Touch refresh: expected success")
	}
	if want := clk.Now().Add(time.Minute); !refreshed.ExpiresAt.Equal(want) {
		t.Fatalf("refreshed expiry = %v, want %v", refreshed.ExpiresAt, want)
	}
}

func TestTouchVersionCAS(t *testing.T) {
	clk := newFakeClock()
	s := newTestStore(t, DefaultPolicy(), clk)

	if _, err := s.Put(entry("k", 8, clk, 0)); err != nil {
		t.Fatalf("Put: %v", err)
	}
	v1 := s.Version("k")

	var wg sync.WaitGroup
	const touches = 64
	for i := 0; i < touches; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok := s.Touch("k", false); !ok {
				t.Error("Touch failed")
			}
		}()
	}
	wg.Wait()

	if got := s.Version("k"); got != v1+touches {
		t.Fatalf("version = %d, want %d (no lost updates)", got, v1+touches)
	}
	e, _ := s.Get("k")
	if e.AccessCount != touches {
		t.Fatalf("access_count = %d, want %d", e.AccessCount, touches)
	}
}

func TestDeleteAndIntentIndex(t *testing.T) {
	clk := newFakeClock()
	s := newTestStore(t, DefaultPolicy(), clk)

	for i := 0; i < 3; i++ {
		e := entry(fmt.Sprintf("k%d", i), 8, clk, 0)
		e.Intent = "define:goroutines"
		if _, err := s.Put(e); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}

	got := s.GetByIntent("define:goroutines", "ctx", "gpt-4o")
	if len(got) != 3 {
		t.Fatalf("GetByIntent = %d entries, want 3", len(got))
	}
	if got := s.GetByIntent("define:goroutines", "other-ctx", "gpt-4o"); len(got) != 0 {
		t.Fatalf("intent lookup crossed contexts: %d", len(got))
	}

	if _, ok := s.Delete("k1"); !ok {
		t.Fatal("Delete: expected removal")
	}
	if got := s.GetByIntent("define:goroutines", "ctx", "gpt-4o"); len(got) != 2 {
		t.Fatalf("intent index not trimmed on delete: %d", len(got))
	}
	if _, ok := s.Get("k1"); ok {
		t.Fatal("deleted key still readable")
	}
}

func TestSweepExpired(t *testing.T) {
	clk := newFakeClock()
	s := newTestStore(t, DefaultPolicy(), clk)

	if _, err := s.Put(entry("short", 8, clk, time.Second)); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Put(entry("long", 8, clk, time.Hour)); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Put(entry("forever", 8, clk, 0)); err != nil {
		t.Fatal(err)
	}

	clk.Advance(2 * time.Second)
	removed := s.SweepExpired()
	if len(removed) != 1 || removed[0].Key != "short" {
		t.Fatalf("SweepExpired removed %v, want [short]", removed)
	}
	if s.Len() != 2 {
		t.Fatalf("Len = %d after sweep, want 2", s.Len())
	}
}

func TestPolicyValidation(t *testing.T) {
	bad := []Policy{
		{MaxSizeBytes: -1, SemanticThreshold: 0.9},
		{SemanticThreshold: 0},
		{SemanticThreshold: 1.2},
		{SemanticThreshold: 0.9, Eviction: "random"},
		{SemanticThreshold: 0.9, DefaultTTL: -time.Second},
	}
	for i, p := range bad {
		if _, err := New(Config{Policy: p, SweepInterval: -1}); err == nil {
			t.Errorf("case %d: New accepted invalid policy %+v", i, p)
		}
	}

	if err := DefaultPolicy().Validate(); err != nil {
		t.Fatalf("default policy invalid: %v", err)
	}
}

func TestConcurrentReadersSeeStableEntries(t *testing.T) {
	clk := newFakeClock()
	s := newTestStore(t, DefaultPolicy(), clk)

	e := entry("k", 64, clk, 0)
	if _, err := s.Put(e); err != nil {
		t.Fatal(err)
	}

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				s.Touch("k", true)
			}
		}
	}()

	for i := 0; i < 1000; i++ {
		got, ok := s.Get("k")
		if !ok {
			t.Fatal("lost entry under concurrent touches")
		}
		// A reader's snapshot never mutates underneath it.
		if got.Key != "k" || len(got.Value) != 64 {
			t.Fatalf("torn read: %+v", got)
		}
	}
	close(stop)
	wg.Wait()
}
