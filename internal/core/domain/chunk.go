package domain

import "fmt"

// Chunk is a bounded slice of a document's normalised text.
// Chunks are immutable; re-ingesting a document produces a new set.
type Chunk struct {
	// ID is "<filename>:<4-digit index>".
	ID string

	// Text is the chunk content.
	Text string

	// Index is the zero-based ordinal within the parent document.
	Index int

	// Total is the number of chunks the parent document was split into.
	Total int

	// Filename is the parent document's name.
	Filename string

	// Metadata is a copy of the parent document's metadata.
	Metadata Metadata
}

// ChunkID formats the stable identifier for the chunk at index.
func ChunkID(filename string, index int) string {
	return fmt.Sprintf("%s:%04d", filename, index)
}

// ChunkMetadata is the metadata stored alongside each vector.
// Field names match the keys written to the index.
type ChunkMetadata struct {
	Text        string   `json:"text"`
	Title       string   `json:"title"`
	Source      string   `json:"source"`
	Tags        []string `json:"tags"`
	File        string   `json:"file"`
	ChunkIndex  int      `json:"chunkIndex"`
	TotalChunks int      `json:"totalChunks"`
}

// IndexMetadata returns the metadata recorded for this chunk in the vector index.
func (c Chunk) IndexMetadata() ChunkMetadata {
	tags := c.Metadata.Tags
	if tags == nil {
		tags = []string{}
	}
	return ChunkMetadata{
		Text:        c.Text,
		Title:       c.Metadata.Title,
		Source:      c.Metadata.Source,
		Tags:        tags,
		File:        c.Filename,
		ChunkIndex:  c.Index,
		TotalChunks: c.Total,
	}
}
