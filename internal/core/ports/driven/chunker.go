package driven

import "github.com/adiirockstar/trial-matthew-schramm/internal/core/domain"

// Chunker splits normalised document text into chunks.
// Identical input must always yield identical output.
type Chunker interface {
	// Chunk splits text into chunks identified by filename and ordinal.
	Chunk(text, filename string, md domain.Metadata) []domain.Chunk
}
