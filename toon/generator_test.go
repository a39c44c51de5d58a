package toon

import (
	"testing"
	"time"

	"github.com/unkn0wn-root/aicache/token"
)

// fixedCounter returns constant token counts so savings are predictable.
type fixedCounter struct {
	prompt, completion int
}

func (f fixedCounter) PromptTokens(string, string) int     { return f.prompt }
func (f fixedCounter) CompletionTokens(string, string) int { return f.completion }

func testGenerator() *Generator {
	pricer := token.NewPricer([]token.ModelPricing{
		{Model: "test-model", PromptPer1K: 1.0, CompletionPer1K: 2.0},
	})
	g := NewGenerator(fixedCounter{prompt: 100, completion: 500}, pricer)
	return g.WithClock(func() time.Time { return time.Unix(1700000000, 0) })
}

func TestGenerateHitComputesSavings(t *testing.T) {
	g := testGenerator()
	sim := 0.95
	age := 30 * time.Second

	op := g.Generate(Facts{
		Type:       SemanticHit,
		Query:      "what is a goroutine",
		Value:      []byte("a goroutine is a lightweight thread"),
		Model:      "test-model",
		Similarity: &sim,
		CacheAge:   &age,
	})

	if op.OperationID == "" {
		t.Fatal("operation id not set")
	}
	if op.Type != SemanticHit {
		t.Fatalf("type = %q", op.Type)
	}
	if op.TokensSaved != 600 {
		t.Fatalf("tokens saved = %d, want 600", op.TokensSaved)
	}
	// 100 prompt tokens at $1/1K plus 500 completion tokens at $2/1K.
	if want := 0.1 + 1.0; op.CostSaved != want {
		t.Fatalf("cost saved = %v, want %v", op.CostSaved, want)
	}
	if op.Similarity == nil || *op.Similarity != 0.95 {
		t.Fatalf("similarity = %v", op.Similarity)
	}
	if op.CacheAgeSeconds == nil || *op.CacheAgeSeconds != 30 {
		t.Fatalf("cache age = %v", op.CacheAgeSeconds)
	}
	if !op.Timestamp.Equal(time.Unix(1700000000, 0).UTC()) {
		t.Fatalf("timestamp = %v", op.Timestamp)
	}
}

func TestGenerateMissSavesNothing(t *testing.T) {
	g := testGenerator()

	for _, typ := range []Type{ExactMiss, SemanticMiss, CacheError} {
		op := g.Generate(Facts{Type: typ, Query: "q", Model: "test-model"})
		if op.TokensSaved != 0 || op.CostSaved != 0 {
			t.Fatalf("%s: saved %d tokens / %v cost, want zero", typ, op.TokensSaved, op.CostSaved)
		}
		if op.Similarity != nil || op.CacheAgeSeconds != nil {
			t.Fatalf("%s: optional fields should be nil", typ)
		}
	}
}

func TestGenerateInvalidationCarriesAffectedEntries(t *testing.T) {
	g := testGenerator()

	op := g.Generate(Facts{Type: Invalidation, AffectedEntries: 2})
	if op.AffectedEntries != 2 {
		t.Fatalf("affected entries = %d, want 2", op.AffectedEntries)
	}
	if op.TokensSaved != 0 || op.CostSaved != 0 {
		t.Fatal("invalidation must not record savings")
	}
}

func TestGenerateUniqueOperationIDs(t *testing.T) {
	g := testGenerator()

	a := g.Generate(Facts{Type: ExactHit, Query: "q", Model: "test-model"})
	b := g.Generate(Facts{Type: ExactHit, Query: "q", Model: "test-model"})
	if a.OperationID == b.OperationID {
		t.Fatal("operation ids must be unique per call")
	}
}
