package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/adiirockstar/trial-matthew-schramm/internal/core/domain"
	"github.com/adiirockstar/trial-matthew-schramm/internal/core/ports/driven"
	"github.com/adiirockstar/trial-matthew-schramm/internal/core/ports/driving"
	"github.com/adiirockstar/trial-matthew-schramm/internal/logger"
)

// Ensure DatasetService implements the interface.
var _ driving.DatasetService = (*DatasetService)(nil)

var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9.-]`)

// maxUploadAttempts bounds the _1, _2, ... suffix search.
const maxUploadAttempts = 1000

// RunGuard serialises document removal with ingestion runs.
type RunGuard interface {
	// Exclusive runs fn while no ingestion run is active.
	Exclusive(ctx context.Context, fn func(context.Context) error) error
}

// exclusive runs fn under g, or directly when g is nil.
func exclusive(ctx context.Context, g RunGuard, fn func(context.Context) error) error {
	if g == nil {
		return fn(ctx)
	}
	return g.Exclusive(ctx, fn)
}

// DatasetService manages the documents in the data directory. Deleting a
// document also removes its vectors and its tracking entry.
type DatasetService struct {
	dataDir  string
	index    driven.VectorIndex
	tracking driven.TrackingStore
	guard    RunGuard
}

// NewDatasetService creates a dataset service. index may be nil, in which
// case deletions only touch the filesystem and tracking.
func NewDatasetService(dataDir string, index driven.VectorIndex, tracking driven.TrackingStore) *DatasetService {
	return &DatasetService{
		dataDir:  dataDir,
		index:    index,
		tracking: tracking,
	}
}

// SetRunGuard makes deletions wait for any active ingestion run.
func (s *DatasetService) SetRunGuard(g RunGuard) {
	s.guard = g
}

// List returns the allowed files in the data directory, newest first.
// A missing directory yields an empty list.
func (s *DatasetService) List(_ context.Context) ([]domain.DatasetFile, error) {
	entries, err := os.ReadDir(s.dataDir)
	if errors.Is(err, fs.ErrNotExist) {
		return []domain.DatasetFile{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read data dir: %w", err)
	}

	files := make([]domain.DatasetFile, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !domain.IsAllowedFile(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			logger.Warn("Could not stat %s: %v", e.Name(), err)
			continue
		}
		files = append(files, s.describe(e.Name(), info))
	}

	sort.SliceStable(files, func(i, j int) bool {
		return files[i].LastModified.After(files[j].LastModified)
	})
	return files, nil
}

// Open returns the named file for reading.
func (s *DatasetService) Open(_ context.Context, name string) (io.ReadCloser, *domain.DatasetFile, error) {
	path, err := s.resolve(name)
	if err != nil {
		return nil, nil, err
	}

	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil, fmt.Errorf("%w: %s", domain.ErrNotFound, name)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", name, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("stat %s: %w", name, err)
	}
	if info.IsDir() {
		f.Close()
		return nil, nil, fmt.Errorf("%w: %s", domain.ErrNotFound, name)
	}

	file := s.describe(name, info)
	return f, &file, nil
}

// Upload stores r under a sanitised name. An existing file is never
// overwritten: the name gains a _1, _2, ... suffix before the extension.
func (s *DatasetService) Upload(_ context.Context, name string, r io.Reader) (string, error) {
	base := SanitizeFilename(filepath.Base(name))
	if !domain.IsAllowedFile(base) {
		return "", fmt.Errorf("%w: only PDF, Markdown and text files are allowed", domain.ErrUnsupportedType)
	}

	if err := os.MkdirAll(s.dataDir, 0755); err != nil {
		return "", fmt.Errorf("create data dir: %w", err)
	}

	f, final, err := s.createUnique(base)
	if err != nil {
		return "", err
	}

	n, copyErr := io.Copy(f, io.LimitReader(r, domain.MaxUploadSize+1))
	closeErr := f.Close()
	switch {
	case copyErr != nil:
		_ = os.Remove(filepath.Join(s.dataDir, final))
		return "", fmt.Errorf("write %s: %w", final, copyErr)
	case n > domain.MaxUploadSize:
		_ = os.Remove(filepath.Join(s.dataDir, final))
		return "", fmt.Errorf("%w: maximum size is 50MB", domain.ErrFileTooLarge)
	case closeErr != nil:
		_ = os.Remove(filepath.Join(s.dataDir, final))
		return "", fmt.Errorf("write %s: %w", final, closeErr)
	}

	logger.Info("Uploaded %s (%d bytes)", final, n)
	return final, nil
}

// createUnique opens a new file named base, or base with a numeric suffix.
func (s *DatasetService) createUnique(base string) (*os.File, string, error) {
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	candidate := base
	for i := 1; i <= maxUploadAttempts; i++ {
		f, err := os.OpenFile(filepath.Join(s.dataDir, candidate), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if err == nil {
			return f, candidate, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, "", fmt.Errorf("create %s: %w", candidate, err)
		}
		candidate = fmt.Sprintf("%s_%d%s", stem, i, ext)
	}
	return nil, "", fmt.Errorf("%w: too many files named %s", domain.ErrAlreadyExists, base)
}

// Delete removes the file's vectors, the file and its tracking entry.
func (s *DatasetService) Delete(ctx context.Context, name string) error {
	path, err := s.resolve(name)
	if err != nil {
		return err
	}

	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) || (err == nil && info.IsDir()) {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, name)
	}
	if err != nil {
		return fmt.Errorf("stat %s: %w", name, err)
	}

	return exclusive(ctx, s.guard, func(ctx context.Context) error {
		return s.remove(ctx, name, path)
	})
}

// remove deletes the vectors, then the file, then the tracking entry.
func (s *DatasetService) remove(ctx context.Context, name, path string) error {
	if s.index != nil {
		if err := s.index.DeleteByFilename(ctx, name); err != nil {
			return fmt.Errorf("delete vectors for %s: %w", name, err)
		}
	}

	if err := os.Remove(path); errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, name)
	} else if err != nil {
		return fmt.Errorf("delete %s: %w", name, err)
	}

	if s.tracking != nil {
		if err := Forget(ctx, s.tracking, name); err != nil {
			logger.Warn("Deleted %s but could not update tracking: %v", name, err)
		}
	}

	logger.Info("Deleted %s", name)
	return nil
}

// resolve maps name to a path inside the data directory.
// Names containing separators or dot segments are rejected.
func (s *DatasetService) resolve(name string) (string, error) {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0) {
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidPath, name)
	}
	return filepath.Join(s.dataDir, name), nil
}

func (s *DatasetService) describe(name string, info fs.FileInfo) domain.DatasetFile {
	return domain.DatasetFile{
		Name:         name,
		Size:         info.Size(),
		Type:         domain.MIMEType(name),
		LastModified: info.ModTime(),
		Path:         filepath.Join(s.dataDir, name),
	}
}

// SanitizeFilename replaces every character outside [a-zA-Z0-9.-] with "_".
func SanitizeFilename(name string) string {
	return unsafeFilenameChars.ReplaceAllString(name, "_")
}
