// Package embedding defines the embedding provider port and adapters around
// it. The engine never assumes a concrete model; anything that turns text
// into a vector can sit behind Embedder.
package embedding

import "context"

// Embedder generates text embeddings. Implementations must be safe for
// concurrent use.
type Embedder interface {
	// Embed generates an embedding vector for the given text.
	Embed(ctx context.Context, text string) ([]float64, error)

	// EmbedBatch generates embeddings for multiple texts in one request.
	EmbedBatch(ctx context.Context, texts []string) ([][]float64, error)

	// Model returns the name of the embedding model being used.
	Model() string

	// Dimension returns the dimension of the embedding vectors.
	Dimension() int
}
