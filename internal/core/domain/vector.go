package domain

// VectorRecord is the unit written to the vector index.
type VectorRecord struct {
	// ID is the chunk ID.
	ID string

	// Values is the embedding.
	Values []float32

	// Metadata is the chunk's index metadata.
	Metadata ChunkMetadata
}

// RetrievalMatch is a single nearest-neighbour result. Never persisted.
type RetrievalMatch struct {
	// ID is the matched chunk ID.
	ID string

	// Score is the similarity score; higher is more similar.
	Score float64

	// Metadata is whatever metadata the index returned for the record.
	Metadata ChunkMetadata
}

// DisplayTitle returns the title used to cite this match as a source:
// the title, else the filename, else fallback.
func (m RetrievalMatch) DisplayTitle(fallback string) string {
	if m.Metadata.Title != "" {
		return m.Metadata.Title
	}
	if m.Metadata.File != "" {
		return m.Metadata.File
	}
	return fallback
}
