// Package index provides nearest-neighbor search over prompt embeddings.
// The index is allowed to drift from the entry store between operations; the
// decision engine validates every match against the live store and prunes
// dangling keys, so transient inconsistency is tolerated by construction.
package index

// Match is one search result.
type Match struct {
	// Key of the indexed entry.
	Key string
	// Similarity is cosine similarity in [-1,1]; hits are filtered to the
	// caller's threshold before they are returned.
	Similarity float64
}

// Index is a vector index keyed by entry key. Implementations must be safe
// for concurrent use.
type Index interface {
	// Upsert stores or replaces the vector for key.
	Upsert(key string, vec []float64)

	// Search returns matches with similarity >= threshold, most similar
	// first.
	Search(vec []float64, threshold float64) []Match

	// Remove drops key. Removing an absent key is a no-op.
	Remove(key string)

	// Len is the number of indexed vectors.
	Len() int
}
