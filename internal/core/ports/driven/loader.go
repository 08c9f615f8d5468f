package driven

import (
	"context"

	"github.com/adiirockstar/trial-matthew-schramm/internal/core/domain"
)

// ContentLoader reads a file and extracts its plain text and metadata.
// Loaders are format-specific (markdown, PDF, ...).
type ContentLoader interface {
	// Extensions returns the lower-case file extensions this loader handles, with dot.
	Extensions() []string

	// Load reads the file at path.
	Load(ctx context.Context, path string) (*domain.Document, error)
}

// LoaderRegistry selects the loader for a file.
type LoaderRegistry interface {
	// Register adds a loader. Later registrations win for shared extensions.
	Register(l ContentLoader)

	// Get returns the loader for a filename, or domain.ErrUnsupportedType.
	Get(filename string) (ContentLoader, error)

	// Load loads the file at path with the matching loader.
	Load(ctx context.Context, path string) (*domain.Document, error)
}
