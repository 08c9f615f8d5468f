// Package memory provides an in-memory tracking store.
package memory

import (
	"context"
	"sync"

	"github.com/adiirockstar/trial-matthew-schramm/internal/core/ports/driven"
)

// Ensure TrackingStore implements the interface.
var _ driven.TrackingStore = (*TrackingStore)(nil)

// TrackingStore is an in-memory implementation of driven.TrackingStore.
type TrackingStore struct {
	mu     sync.RWMutex
	hashes map[string]string
	saves  int
}

// NewTrackingStore creates a new in-memory tracking store seeded with hashes.
func NewTrackingStore(hashes map[string]string) *TrackingStore {
	return &TrackingStore{hashes: copyHashes(hashes)}
}

// Load returns a copy of the stored hashes.
func (s *TrackingStore) Load(_ context.Context) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyHashes(s.hashes), nil
}

// Save replaces the stored hashes.
func (s *TrackingStore) Save(_ context.Context, hashes map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hashes = copyHashes(hashes)
	s.saves++
	return nil
}

// Saves returns how many times Save has been called.
func (s *TrackingStore) Saves() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saves
}

func copyHashes(src map[string]string) map[string]string {
	dst := make(map[string]string, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
