package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/adiirockstar/trial-matthew-schramm/internal/core/domain"
	"github.com/adiirockstar/trial-matthew-schramm/internal/core/ports/driven"
	"github.com/adiirockstar/trial-matthew-schramm/internal/logger"
)

// ChangeTracker decides which discovered files a run processes.
type ChangeTracker struct {
	// File restricts processing to one filename when non-empty.
	File string

	// Incremental selects only files whose hash differs from the tracked one.
	Incremental bool
}

// NeedsProcessing reports whether fp should be (re)processed given the
// hashes recorded by earlier runs.
func (t ChangeTracker) NeedsProcessing(fp domain.FileFingerprint, tracked map[string]string) bool {
	if t.File != "" && fp.Name != t.File {
		return false
	}
	if t.Incremental {
		last, ok := tracked[fp.Name]
		return !ok || last != fp.Hash
	}
	return true
}

// Select filters files down to those that need processing, keeping order.
func (t ChangeTracker) Select(files []domain.FileFingerprint, tracked map[string]string) []domain.FileFingerprint {
	var out []domain.FileFingerprint
	for _, fp := range files {
		if t.NeedsProcessing(fp, tracked) {
			out = append(out, fp)
		}
	}
	return out
}

// HashFile returns the hex SHA-256 digest of the file's bytes.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Fingerprint stats and hashes the file at path.
func Fingerprint(path string) (domain.FileFingerprint, error) {
	info, err := os.Stat(path)
	if err != nil {
		return domain.FileFingerprint{}, fmt.Errorf("stat %s: %w", path, err)
	}
	hash, err := HashFile(path)
	if err != nil {
		return domain.FileFingerprint{}, fmt.Errorf("hash %s: %w", path, err)
	}
	return domain.FileFingerprint{
		Name:    filepath.Base(path),
		Path:    path,
		Hash:    hash,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}

// Discover lists the allowed files directly inside dir, sorted by name.
// A missing directory yields no files and no error. Files that cannot be
// hashed are skipped with a warning.
func Discover(dir string) ([]domain.FileFingerprint, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		logger.Warn("Data directory not found: %s", dir)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read data dir: %w", err)
	}

	var files []domain.FileFingerprint
	for _, e := range entries {
		if e.IsDir() || !domain.IsAllowedFile(e.Name()) {
			continue
		}
		fp, err := Fingerprint(filepath.Join(dir, e.Name()))
		if err != nil {
			logger.Warn("Could not read file %s: %v", e.Name(), err)
			continue
		}
		files = append(files, fp)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

// LoadTracking reads the tracked hashes, starting fresh if the store is unreadable.
func LoadTracking(ctx context.Context, store driven.TrackingStore) map[string]string {
	hashes, err := store.Load(ctx)
	if err != nil {
		logger.Warn("Could not load tracking file, starting fresh: %v", err)
		return map[string]string{}
	}
	if hashes == nil {
		hashes = map[string]string{}
	}
	return hashes
}

// Forget removes filename from the tracking store so the next
// incremental run treats it as new.
func Forget(ctx context.Context, store driven.TrackingStore, filename string) error {
	hashes := LoadTracking(ctx, store)
	if _, ok := hashes[filename]; !ok {
		return nil
	}
	delete(hashes, filename)
	if err := store.Save(ctx, hashes); err != nil {
		return fmt.Errorf("save tracking: %w", err)
	}
	return nil
}
