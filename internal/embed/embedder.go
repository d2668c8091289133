// Package embed defines the text-embedding collaborator contract and its
// implementations. The embedding dimension is stable for the lifetime of a
// database; the database records it in its index subdirectory name.
package embed

import (
	"context"
)

// Embedder converts text to fixed-dimension vectors.
type Embedder interface {
	// Embed returns the vector for one text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch embeds texts in sub-batches of batchSize, preserving
	// input order.
	EmbedBatch(ctx context.Context, texts []string, batchSize int) ([][]float32, error)

	// Dimensions returns the vector dimension d.
	Dimensions() int
}
