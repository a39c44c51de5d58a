package embedding

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto"
	"golang.org/x/sync/singleflight"
)

// Cached memoizes embeddings per input text and collapses concurrent requests
// for the same text into one upstream call. Embedding the same normalized
// query twice is pure waste; the vectors are deterministic per model.
type Cached struct {
	inner Embedder
	cache *ristretto.Cache
	sf    singleflight.Group
	ttl   time.Duration
}

var _ Embedder = (*Cached)(nil)

type CachedConfig struct {
	// MaxCost bounds the memo cache in bytes (8 bytes per vector element
	// accounted). 0 => 32 MiB.
	MaxCost int64
	// TTL for memoized vectors. 0 => 1h.
	TTL time.Duration
}

func NewCached(inner Embedder, cfg CachedConfig) (*Cached, error) {
	if inner == nil {
		return nil, fmt.Errorf("embedding: inner embedder is required")
	}
	maxCost := cfg.MaxCost
	if maxCost <= 0 {
		maxCost = 32 << 20
	}
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: maxCost / 64, // rough: one counter per expected entry
		MaxCost:     maxCost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Cached{inner: inner, cache: c, ttl: ttl}, nil
}

func (c *Cached) Model() string  { return c.inner.Model() }
func (c *Cached) Dimension() int { return c.inner.Dimension() }

func (c *Cached) Close() { c.cache.Close() }

func (c *Cached) Embed(ctx context.Context, text string) ([]float64, error) {
	if v, ok := c.cache.Get(text); ok {
		if vec, ok := v.([]float64); ok {
			return vec, nil
		}
		c.cache.Del(text) // unexpected shape; self-heal
	}

	v, err, _ := c.sf.Do(text, func() (any, error) {
		vec, err := c.inner.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		c.cache.SetWithTTL(text, vec, int64(8*len(vec)), c.ttl)
		return vec, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]float64), nil
}

func (c *Cached) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	missing := make([]string, 0, len(texts))
	missingIdx := make([]int, 0, len(texts))

	for i, t := range texts {
		if v, ok := c.cache.Get(t); ok {
			if vec, ok := v.([]float64); ok {
				out[i] = vec
				continue
			}
			c.cache.Del(t)
		}
		missing = append(missing, t)
		missingIdx = append(missingIdx, i)
	}
	if len(missing) == 0 {
		return out, nil
	}

	vecs, err := c.inner.EmbedBatch(ctx, missing)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(missing) {
		return nil, fmt.Errorf("embedding: got %d vectors for %d inputs", len(vecs), len(missing))
	}
	for j, vec := range vecs {
		out[missingIdx[j]] = vec
		c.cache.SetWithTTL(missing[j], vec, int64(8*len(vec)), c.ttl)
	}
	return out, nil
}
