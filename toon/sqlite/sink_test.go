package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/unkn0wn-root/aicache/toon"
)

func newTestSink(t *testing.T) *Sink {
	t.Helper()
	s, err := New(Config{
		Path:      filepath.Join(t.TempDir(), "ops.db"),
		Retention: -1, // no background sweep in tests
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPersistAndQueryRoundTrip(t *testing.T) {
	s := newTestSink(t)
	ctx := context.Background()

	sim := 0.93
	age := int64(45)
	want := toon.Operation{
		OperationID:     "op-1",
		Type:            toon.SemanticHit,
		TokensSaved:     600,
		CostSaved:       1.1,
		Similarity:      &sim,
		CacheAgeSeconds: &age,
		Timestamp:       time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}
	if err := s.Persist(ctx, want); err != nil {
		t.Fatalf("Persist: %v", err)
	}

	got, err := s.Query(ctx, QueryOpts{OperationID: "op-1"})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d records, want 1", len(got))
	}
	op := got[0]
	if op.Type != toon.SemanticHit || op.TokensSaved != 600 || op.CostSaved != 1.1 {
		t.Fatalf("round trip mismatch: %+v", op)
	}
	if op.Similarity == nil || *op.Similarity != sim {
		t.Fatalf("similarity = %v", op.Similarity)
	}
	if op.CacheAgeSeconds == nil || *op.CacheAgeSeconds != age {
		t.Fatalf("cache age = %v", op.CacheAgeSeconds)
	}
	if !op.Timestamp.Equal(want.Timestamp) {
		t.Fatalf("timestamp = %v, want %v", op.Timestamp, want.Timestamp)
	}
}

func TestQueryNullableFields(t *testing.T) {
	s := newTestSink(t)
	ctx := context.Background()

	err := s.Persist(ctx, toon.Operation{
		OperationID: "op-miss",
		Type:        toon.ExactMiss,
		Timestamp:   time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("Persist: %v", err)
	}

	got, err := s.Query(ctx, QueryOpts{OperationID: "op-miss"})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if got[0].Similarity != nil || got[0].CacheAgeSeconds != nil {
		t.Fatalf("miss record should have null optionals: %+v", got[0])
	}
}

func TestQueryFiltersAndOrder(t *testing.T) {
	s := newTestSink(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	for i, typ := range []toon.Type{toon.ExactHit, toon.ExactMiss, toon.ExactHit} {
		err := s.Persist(ctx, toon.Operation{
			OperationID: string(rune('a' + i)),
			Type:        typ,
			Timestamp:   base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("Persist: %v", err)
		}
	}

	hits, err := s.Query(ctx, QueryOpts{Type: toon.ExactHit})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("got %d hits, want 2", len(hits))
	}
	// Newest first.
	if hits[0].OperationID != "c" || hits[1].OperationID != "a" {
		t.Fatalf("order = %q, %q", hits[0].OperationID, hits[1].OperationID)
	}

	recent, err := s.Query(ctx, QueryOpts{Since: base.Add(90 * time.Second)})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(recent) != 1 || recent[0].OperationID != "c" {
		t.Fatalf("since filter: %+v", recent)
	}
}

func TestCleanupPurgesOldRecords(t *testing.T) {
	s := newTestSink(t)
	s.retention = 24 * time.Hour
	ctx := context.Background()

	old := toon.Operation{
		OperationID: "old",
		Type:        toon.ExactHit,
		Timestamp:   time.Now().UTC().Add(-48 * time.Hour),
	}
	fresh := toon.Operation{
		OperationID: "fresh",
		Type:        toon.ExactHit,
		Timestamp:   time.Now().UTC(),
	}
	for _, op := range []toon.Operation{old, fresh} {
		if err := s.Persist(ctx, op); err != nil {
			t.Fatalf("Persist: %v", err)
		}
	}

	n, err := s.Cleanup(ctx)
	if err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if n != 1 {
		t.Fatalf("purged %d, want 1", n)
	}

	left, err := s.Query(ctx, QueryOpts{})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(left) != 1 || left[0].OperationID != "fresh" {
		t.Fatalf("remaining = %+v", left)
	}
}

func TestDuplicateOperationIDRejected(t *testing.T) {
	s := newTestSink(t)
	ctx := context.Background()

	op := toon.Operation{OperationID: "dup", Type: toon.Store, Timestamp: time.Now().UTC()}
	if err := s.Persist(ctx, op); err != nil {
		t.Fatalf("first Persist: %v", err)
	}
	if err := s.Persist(ctx, op); err == nil {
		t.Fatal("duplicate operation_id should fail")
	}
}
