package normalisers

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/adiirockstar/trial-matthew-schramm/internal/core/domain"
	"github.com/adiirockstar/trial-matthew-schramm/internal/core/ports/driven"
)

// Ensure Registry implements the interface.
var _ driven.LoaderRegistry = (*Registry)(nil)

// Registry maps file extensions to content loaders.
type Registry struct {
	mu      sync.RWMutex
	loaders map[string]driven.ContentLoader
}

// NewRegistry creates a registry holding the given loaders.
func NewRegistry(loaders ...driven.ContentLoader) *Registry {
	r := &Registry{loaders: make(map[string]driven.ContentLoader)}
	for _, l := range loaders {
		r.Register(l)
	}
	return r
}

// Register adds a loader for each of its extensions.
func (r *Registry) Register(l driven.ContentLoader) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ext := range l.Extensions() {
		r.loaders[strings.ToLower(ext)] = l
	}
}

// Get returns the loader for filename's extension.
func (r *Registry) Get(filename string) (driven.ContentLoader, error) {
	ext := strings.ToLower(filepath.Ext(filename))

	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.loaders[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedType, ext)
	}
	return l, nil
}

// Load loads path with the loader registered for its extension.
func (r *Registry) Load(ctx context.Context, path string) (*domain.Document, error) {
	l, err := r.Get(path)
	if err != nil {
		return nil, err
	}
	return l.Load(ctx, path)
}
