package toon

import (
	"time"

	"github.com/google/uuid"

	"github.com/unkn0wn-root/aicache/token"
)

// Facts carries everything the decision pipeline knows about one operation.
// Query and Value feed token counting on hits; misses and errors record zero
// savings (nothing was served from cache).
type Facts struct {
	Type            Type
	Query           string
	Value           []byte
	Model           string
	Similarity      *float64
	CacheAge        *time.Duration
	AffectedEntries int
}

// Generator turns decision facts into Operations. It is a pure function of
// its inputs plus the token counting and pricing ports; it never blocks on
// I/O and never fails.
type Generator struct {
	counter token.Counter
	pricer  *token.Pricer
	clock   func() time.Time
}

// NewGenerator builds a Generator. A nil counter uses the heuristic
// estimator, a nil pricer uses the default pricing table.
func NewGenerator(counter token.Counter, pricer *token.Pricer) *Generator {
	if counter == nil {
		counter = token.Heuristic{}
	}
	if pricer == nil {
		pricer = token.NewPricer(nil)
	}
	return &Generator{counter: counter, pricer: pricer, clock: time.Now}
}

// WithClock overrides the timestamp source. Test seam.
func (g *Generator) WithClock(clock func() time.Time) *Generator {
	g.clock = clock
	return g
}

// Generate builds the record for one operation. A hit saves the prompt
// tokens the caller would have resent plus the completion tokens the model
// would have regenerated; every other outcome saves nothing.
func (g *Generator) Generate(f Facts) Operation {
	op := Operation{
		OperationID:     uuid.NewString(),
		Type:            f.Type,
		Similarity:      f.Similarity,
		AffectedEntries: f.AffectedEntries,
		Timestamp:       g.clock().UTC(),
	}
	if f.CacheAge != nil {
		secs := int64(*f.CacheAge / time.Second)
		op.CacheAgeSeconds = &secs
	}
	if f.Type.IsHit() {
		prompt := g.counter.PromptTokens(f.Query, f.Model)
		completion := g.counter.CompletionTokens(string(f.Value), f.Model)
		op.TokensSaved = prompt + completion
		op.CostSaved = g.pricer.Cost(f.Model, prompt, token.Prompt) +
			g.pricer.Cost(f.Model, completion, token.Completion)
	}
	return op
}
