package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/adiirockstar/trial-matthew-schramm/internal/core/domain"
	"github.com/adiirockstar/trial-matthew-schramm/internal/core/ports/driven"
	"github.com/adiirockstar/trial-matthew-schramm/internal/core/ports/driving"
	"github.com/adiirockstar/trial-matthew-schramm/internal/logger"
)

// DefaultDebounce is how long the watcher waits for the folder to settle.
const DefaultDebounce = 2 * time.Second

// fileChange is a filtered filesystem event.
type fileChange struct {
	name    string
	removed bool
}

// Watcher re-runs incremental ingestion when documents in the data
// directory change. Removed documents lose their vectors and tracking entry.
type Watcher struct {
	dataDir  string
	ingest   driving.IngestService
	index    driven.VectorIndex
	tracking driven.TrackingStore
	debounce time.Duration
	guard    RunGuard

	// OnRun, when set, is called after every triggered run.
	OnRun func(*domain.IngestReport, error)
}

// NewWatcher creates a watcher over dataDir.
func NewWatcher(
	dataDir string,
	ingest driving.IngestService,
	index driven.VectorIndex,
	tracking driven.TrackingStore,
	debounce time.Duration,
) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		dataDir:  dataDir,
		ingest:   ingest,
		index:    index,
		tracking: tracking,
		debounce: debounce,
	}
}

// SetRunGuard makes removals wait for any active ingestion run.
func (w *Watcher) SetRunGuard(g RunGuard) {
	w.guard = g
}

// Ensure Watcher implements the interface.
var _ driving.WatchService = (*Watcher)(nil)

// Watch sets OnRun and runs until ctx is done.
func (w *Watcher) Watch(ctx context.Context, onRun func(*domain.IngestReport, error)) error {
	w.OnRun = onRun
	return w.Run(ctx)
}

// Run performs an initial incremental run, then watches until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	if err := os.MkdirAll(w.dataDir, 0755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fsw.Close()

	if err := fsw.Add(w.dataDir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dataDir, err)
	}
	logger.Info("Watching %s", w.dataDir)

	w.trigger(ctx)

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			change, ok := w.classify(ev)
			if !ok {
				continue
			}
			logger.Debug("Change detected: %s (removed=%t)", change.name, change.removed)
			if change.removed {
				w.forget(ctx, change.name)
			}
			timer.Reset(w.debounce)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Watch error: %v", err)

		case <-timer.C:
			if !w.trigger(ctx) {
				timer.Reset(w.debounce)
			}
		}
	}
}

// classify filters an fsnotify event down to a change of an allowed file.
// Chmod-only events, directories and hidden files are ignored.
func (w *Watcher) classify(ev fsnotify.Event) (fileChange, bool) {
	name := filepath.Base(ev.Name)
	if strings.HasPrefix(name, ".") || !domain.IsAllowedFile(name) {
		return fileChange{}, false
	}
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) &&
		!ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
		return fileChange{}, false
	}

	info, err := os.Stat(ev.Name)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return fileChange{name: name, removed: true}, true
	case err != nil:
		logger.Warn("Could not stat %s: %v", ev.Name, err)
		return fileChange{}, false
	case info.IsDir():
		return fileChange{}, false
	}
	return fileChange{name: name}, true
}

// forget drops a removed file's vectors and tracking entry.
func (w *Watcher) forget(ctx context.Context, name string) {
	err := exclusive(ctx, w.guard, func(ctx context.Context) error {
		if w.index != nil {
			if err := w.index.DeleteByFilename(ctx, name); err != nil {
				logger.Warn("Could not delete vectors for %s: %v", name, err)
			}
		}
		return Forget(ctx, w.tracking, name)
	})
	if err != nil {
		logger.Warn("Could not update tracking for %s: %v", name, err)
	}
}

// trigger runs incremental ingestion, clearing the old vectors of every
// changed file first so a shrunken document keeps no stale chunks. It
// returns false if another run was already active and this one should be
// retried.
func (w *Watcher) trigger(ctx context.Context) bool {
	report, err := w.ingest.Ingest(ctx, domain.IngestOptions{Incremental: true, Clear: true})
	if errors.Is(err, domain.ErrIngestInProgress) {
		logger.Debug("Ingestion already running, retrying after %s", w.debounce)
		return false
	}
	if err != nil {
		logger.Error("Ingestion failed: %v", err)
	} else {
		logger.Info("%s", report.Summary())
	}
	if w.OnRun != nil {
		w.OnRun(report, err)
	}
	return true
}
