package driven

import (
	"context"

	"github.com/adiirockstar/trial-matthew-schramm/internal/core/domain"
)

// VectorIndex stores chunk embeddings with metadata and answers
// nearest-neighbour queries.
type VectorIndex interface {
	// Upsert writes records. Writing an existing ID overwrites it.
	Upsert(ctx context.Context, records []domain.VectorRecord) error

	// Query returns up to topK matches ordered by descending similarity,
	// with metadata included.
	Query(ctx context.Context, vector []float32, topK int) ([]domain.RetrievalMatch, error)

	// DeleteByFilename removes every record whose metadata file equals filename.
	DeleteByFilename(ctx context.Context, filename string) error

	// Dimension reports the vector length the index is configured for.
	// Returns 0 if the index has not fixed a dimension yet.
	Dimension(ctx context.Context) (int, error)

	// Close releases resources.
	Close() error
}
