// Package file persists ingestion tracking hashes as a JSON document on disk.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/adiirockstar/trial-matthew-schramm/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.TrackingStore = (*Store)(nil)

// Store reads and writes a filename -> hash map as pretty-printed JSON.
type Store struct {
	mu   sync.Mutex
	path string
}

// NewStore creates a tracking store backed by the file at path.
// The file is created on the first Save.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the tracking file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads the tracking file. A missing file yields an empty map.
func (s *Store) Load(_ context.Context) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return make(map[string]string), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading tracking file: %w", err)
	}

	hashes := make(map[string]string)
	if err := json.Unmarshal(data, &hashes); err != nil {
		return nil, fmt.Errorf("parsing tracking file: %w", err)
	}
	return hashes, nil
}

// Save rewrites the tracking file in full.
func (s *Store) Save(_ context.Context, hashes map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if hashes == nil {
		hashes = map[string]string{}
	}
	data, err := json.MarshalIndent(hashes, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding tracking file: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating tracking directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".tracking-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck // gone after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing tracking file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing tracking file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replacing tracking file: %w", err)
	}
	return nil
}
