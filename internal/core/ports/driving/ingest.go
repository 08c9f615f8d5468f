package driving

import (
	"context"

	"github.com/adiirockstar/trial-matthew-schramm/internal/core/domain"
)

// IngestService runs the ingestion pipeline over the data directory.
type IngestService interface {
	// Ingest performs one run. A concurrent call returns domain.ErrIngestInProgress.
	Ingest(ctx context.Context, opts domain.IngestOptions) (*domain.IngestReport, error)

	// Status returns the current run state.
	Status() domain.IngestStatus
}
