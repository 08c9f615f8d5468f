package driving

import (
	"context"

	"github.com/adiirockstar/trial-matthew-schramm/internal/core/domain"
)

// WatchService keeps the index in step with the data directory.
type WatchService interface {
	// Watch runs until ctx is done. onRun, when non-nil, is called after
	// every ingestion the watcher triggers.
	Watch(ctx context.Context, onRun func(*domain.IngestReport, error)) error
}
