package driven

import "context"

// TrackingStore persists the filename -> content hash map used for
// incremental ingestion.
type TrackingStore interface {
	// Load returns the tracked hashes. A missing store yields an empty map.
	Load(ctx context.Context) (map[string]string, error)

	// Save replaces the stored map with hashes.
	Save(ctx context.Context, hashes map[string]string) error
}

// RunLock keeps ingestion runs in separate processes that share a tracking
// file from overlapping.
type RunLock interface {
	// TryLock takes the lock without waiting and reports whether it was taken.
	TryLock() (bool, error)

	// Unlock releases a lock taken by TryLock.
	Unlock() error
}
