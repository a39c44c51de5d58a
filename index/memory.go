package index

import (
	"math"
	"sort"
	"sync"
)

// Memory is an in-process brute-force cosine index. Vectors are stored
// L2-normalized so Search reduces to dot products. Suitable for the entry
// counts a single cache instance holds; swap in a real ANN store behind the
// Index interface if you need more.
type Memory struct {
	mu   sync.RWMutex
	vecs map[string][]float64
}

var _ Index = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{vecs: make(map[string][]float64)}
}

func (m *Memory) Upsert(key string, vec []float64) {
	n := normalize(vec)
	m.mu.Lock()
	m.vecs[key] = n
	m.mu.Unlock()
}

func (m *Memory) Search(vec []float64, threshold float64) []Match {
	q := normalize(vec)

	m.mu.RLock()
	out := make([]Match, 0, 4)
	for k, v := range m.vecs {
		if len(v) != len(q) {
			continue
		}
		if sim := dot(q, v); sim >= threshold {
			out = append(out, Match{Key: k, Similarity: sim})
		}
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Similarity > out[j].Similarity })
	return out
}

func (m *Memory) Remove(key string) {
	m.mu.Lock()
	delete(m.vecs, key)
	m.mu.Unlock()
}

func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.vecs)
}

func normalize(v []float64) []float64 {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	if sum == 0 {
		return append([]float64(nil), v...)
	}
	inv := 1 / math.Sqrt(sum)
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = x * inv
	}
	return out
}

func dot(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}
