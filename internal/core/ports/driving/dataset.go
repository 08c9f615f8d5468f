package driving

import (
	"context"
	"io"

	"github.com/adiirockstar/trial-matthew-schramm/internal/core/domain"
)

// DatasetService manages the files in the data directory.
type DatasetService interface {
	// List returns allowed files, newest first.
	List(ctx context.Context) ([]domain.DatasetFile, error)

	// Open returns the file for download. The caller closes the reader.
	Open(ctx context.Context, name string) (io.ReadCloser, *domain.DatasetFile, error)

	// Upload stores r under a sanitised, collision-free variant of name
	// and returns the final filename.
	Upload(ctx context.Context, name string, r io.Reader) (string, error)

	// Delete removes the file, its vectors and its tracking entry.
	Delete(ctx context.Context, name string) error
}
