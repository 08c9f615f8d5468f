// Package memory provides a map-backed vector index for tests and ephemeral runs.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/adiirockstar/trial-matthew-schramm/internal/adapters/driven/vector/vecmath"
	"github.com/adiirockstar/trial-matthew-schramm/internal/core/domain"
	"github.com/adiirockstar/trial-matthew-schramm/internal/core/ports/driven"
)

// Ensure VectorIndex implements the interface.
var _ driven.VectorIndex = (*VectorIndex)(nil)

// VectorIndex is an in-memory implementation of driven.VectorIndex
// using brute-force cosine similarity.
type VectorIndex struct {
	mu        sync.RWMutex
	records   map[string]domain.VectorRecord
	dimension int
}

// NewVectorIndex creates an empty index. A dimension of 0 is fixed by the first upsert.
func NewVectorIndex(dimension int) *VectorIndex {
	return &VectorIndex{
		records:   make(map[string]domain.VectorRecord),
		dimension: dimension,
	}
}

// Upsert stores records, replacing any with the same ID.
func (v *VectorIndex) Upsert(_ context.Context, records []domain.VectorRecord) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	for _, r := range records {
		if v.dimension == 0 {
			v.dimension = len(r.Values)
		}
		if len(r.Values) != v.dimension {
			return fmt.Errorf("%w: record %s has %d values, index has %d",
				domain.ErrDimensionMismatch, r.ID, len(r.Values), v.dimension)
		}
	}
	for _, r := range records {
		values := make([]float32, len(r.Values))
		copy(values, r.Values)
		r.Values = values
		v.records[r.ID] = r
	}
	return nil
}

// Query returns the topK most similar records.
func (v *VectorIndex) Query(_ context.Context, vector []float32, topK int) ([]domain.RetrievalMatch, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	matches := make([]domain.RetrievalMatch, 0, len(v.records))
	for _, r := range v.records {
		matches = append(matches, domain.RetrievalMatch{
			ID:       r.ID,
			Score:    vecmath.Cosine(vector, r.Values),
			Metadata: r.Metadata,
		})
	}
	return vecmath.TopK(matches, topK), nil
}

// DeleteByFilename removes every record for filename.
func (v *VectorIndex) DeleteByFilename(_ context.Context, filename string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	for id, r := range v.records {
		if r.Metadata.File == filename {
			delete(v.records, id)
		}
	}
	return nil
}

// Dimension returns the index dimension.
func (v *VectorIndex) Dimension(_ context.Context) (int, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.dimension, nil
}

// Len returns the number of stored records.
func (v *VectorIndex) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.records)
}

// Close is a no-op for the in-memory index.
func (v *VectorIndex) Close() error {
	return nil
}
