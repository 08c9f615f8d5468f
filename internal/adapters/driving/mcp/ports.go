package mcp

import (
	"github.com/adiirockstar/trial-matthew-schramm/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Answer answers questions from the indexed documents.
	Answer driving.AnswerService

	// Ingest runs ingestion of the data directory.
	Ingest driving.IngestService

	// Dataset lists and reads the documents in the data directory.
	Dataset driving.DatasetService
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Answer == nil {
		return ErrMissingAnswerService
	}
	// Ingest and Dataset are optional; their tools report unavailability
	return nil
}
