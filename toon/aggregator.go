package toon

import (
	"sync"
	"time"
)

// Metrics is the rollup of all records in one time window.
type Metrics struct {
	Hits        int64
	Misses      int64
	HitRate     float64 // hits / (hits+misses); 0 when the window is empty
	TokensSaved int64
	CostSaved   float64
	ROIScore    float64 // cost saved per lookup in the window
}

// Trend compares the current window against the previous one.
type Trend struct {
	Direction string  // "up", "down", "flat"
	Magnitude float64 // absolute ROI score difference
}

// AggregatorConfig tunes the windowed rollup.
type AggregatorConfig struct {
	// BucketSize is the rollup granularity. 0 => 1 minute.
	BucketSize time.Duration

	// Buckets bounds retained history; windows longer than
	// BucketSize*Buckets read as empty beyond that horizon. 0 => 120.
	Buckets int

	// Clock overrides time.Now. Test seam.
	Clock func() time.Time
}

// Aggregator rolls records into a fixed ring of time buckets. Observe is
// O(1); Window and Trend scan the ring. All methods are safe for concurrent
// use.
type Aggregator struct {
	mu      sync.Mutex
	buckets []bucket
	size    time.Duration
	clock   func() time.Time
}

type bucket struct {
	start  int64 // unix seconds of the bucket boundary; 0 = unused
	hits   int64
	misses int64
	tokens int64
	cost   float64
}

// NewAggregator builds an Aggregator with the given config.
func NewAggregator(cfg AggregatorConfig) *Aggregator {
	size := cfg.BucketSize
	if size <= 0 {
		size = time.Minute
	}
	n := cfg.Buckets
	if n <= 0 {
		n = 120
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Aggregator{buckets: make([]bucket, n), size: size, clock: clock}
}

// Observe folds one record into the current bucket. Store and invalidation
// records carry no savings and no hit/miss weight, so they leave the rollup
// untouched.
func (a *Aggregator) Observe(op Operation) {
	hit, miss := op.Type.IsHit(), op.Type.IsMiss()
	if !hit && !miss {
		return
	}

	now := a.clock().Unix()
	start := now - now%int64(a.size/time.Second)

	a.mu.Lock()
	defer a.mu.Unlock()

	b := &a.buckets[a.index(start)]
	if b.start != start {
		*b = bucket{start: start}
	}
	if hit {
		b.hits++
		b.tokens += int64(op.TokensSaved)
		b.cost += op.CostSaved
	} else {
		b.misses++
	}
}

// Window aggregates all records observed in the last d. An empty window
// returns zeroed metrics.
func (a *Aggregator) Window(d time.Duration) Metrics {
	now := a.clock().Unix()
	return a.between(now-int64(d/time.Second), now)
}

// Trend compares the last d against the d before it. Two empty windows are
// flat.
func (a *Aggregator) Trend(d time.Duration) Trend {
	now := a.clock().Unix()
	span := int64(d / time.Second)
	cur := a.between(now-span, now)
	prev := a.between(now-2*span, now-span)

	diff := cur.ROIScore - prev.ROIScore
	switch {
	case diff > 0:
		return Trend{Direction: "up", Magnitude: diff}
	case diff < 0:
		return Trend{Direction: "down", Magnitude: -diff}
	}
	return Trend{Direction: "flat"}
}

// between sums buckets whose start falls in (from, to].
func (a *Aggregator) between(from, to int64) Metrics {
	a.mu.Lock()
	defer a.mu.Unlock()

	var m Metrics
	for i := range a.buckets {
		b := &a.buckets[i]
		if b.start == 0 || b.start <= from || b.start > to {
			continue
		}
		m.Hits += b.hits
		m.Misses += b.misses
		m.TokensSaved += b.tokens
		m.CostSaved += b.cost
	}
	if total := m.Hits + m.Misses; total > 0 {
		m.HitRate = float64(m.Hits) / float64(total)
		m.ROIScore = m.CostSaved / float64(total)
	}
	return m
}

func (a *Aggregator) index(start int64) int {
	return int((start / int64(a.size/time.Second)) % int64(len(a.buckets)))
}
