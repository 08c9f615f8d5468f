package services

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adiirockstar/trial-matthew-schramm/internal/adapters/driven/vector/memory"
	"github.com/adiirockstar/trial-matthew-schramm/internal/core/domain"
)

// stubIngestService records incremental runs triggered by the watcher.
type stubIngestService struct {
	mu   sync.Mutex
	runs []domain.IngestOptions
	errs []error // returned in order, then nil
}

func (s *stubIngestService) Ingest(_ context.Context, opts domain.IngestOptions) (*domain.IngestReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var err error
	if len(s.errs) > 0 {
		err, s.errs = s.errs[0], s.errs[1:]
	}
	if err == nil {
		s.runs = append(s.runs, opts)
	}
	return &domain.IngestReport{}, err
}

func (s *stubIngestService) Status() domain.IngestStatus {
	return domain.IngestStatus{}
}

func (s *stubIngestService) runCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.runs)
}

func TestNewWatcher_DefaultDebounce(t *testing.T) {
	w := NewWatcher(t.TempDir(), &stubIngestService{}, nil, newMockTrackingStore(nil), 0)
	assert.Equal(t, DefaultDebounce, w.debounce)
}

func TestWatcher_Classify(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"cv.md":      "cv",
		".hidden.md": "x",
		"photo.png":  "x",
	})
	require.NoError(t, os.Mkdir(filepath.Join(dir, "folder.md"), 0755))
	w := NewWatcher(dir, &stubIngestService{}, nil, newMockTrackingStore(nil), time.Millisecond)

	tests := []struct {
		name    string
		event   fsnotify.Event
		want    fileChange
		wantHit bool
	}{
		{"write", fsnotify.Event{Name: filepath.Join(dir, "cv.md"), Op: fsnotify.Write}, fileChange{name: "cv.md"}, true},
		{"create", fsnotify.Event{Name: filepath.Join(dir, "cv.md"), Op: fsnotify.Create}, fileChange{name: "cv.md"}, true},
		{"remove", fsnotify.Event{Name: filepath.Join(dir, "gone.md"), Op: fsnotify.Remove}, fileChange{name: "gone.md", removed: true}, true},
		{"rename away", fsnotify.Event{Name: filepath.Join(dir, "old.txt"), Op: fsnotify.Rename}, fileChange{name: "old.txt", removed: true}, true},
		{"chmod only", fsnotify.Event{Name: filepath.Join(dir, "cv.md"), Op: fsnotify.Chmod}, fileChange{}, false},
		{"hidden", fsnotify.Event{Name: filepath.Join(dir, ".hidden.md"), Op: fsnotify.Write}, fileChange{}, false},
		{"disallowed", fsnotify.Event{Name: filepath.Join(dir, "photo.png"), Op: fsnotify.Write}, fileChange{}, false},
		{"directory", fsnotify.Event{Name: filepath.Join(dir, "folder.md"), Op: fsnotify.Create}, fileChange{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := w.classify(tt.event)
			assert.Equal(t, tt.wantHit, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWatcher_TriggerRetriesWhenBusy(t *testing.T) {
	ingest := &stubIngestService{errs: []error{domain.ErrIngestInProgress}}
	w := NewWatcher(t.TempDir(), ingest, nil, newMockTrackingStore(nil), time.Millisecond)

	var reports int
	w.OnRun = func(*domain.IngestReport, error) { reports++ }

	assert.False(t, w.trigger(context.Background()))
	assert.Zero(t, reports)

	assert.True(t, w.trigger(context.Background()))
	assert.Equal(t, 1, reports)
	assert.True(t, ingest.runs[0].Incremental)
	assert.True(t, ingest.runs[0].Clear)
}

func TestWatcher_Run(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"cv.md": "cv"})

	ingest := &stubIngestService{}
	index := &mockVectorIndex{}
	tracking := newMockTrackingStore(map[string]string{"cv.md": "h1"})
	w := NewWatcher(dir, ingest, index, tracking, 20*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool { return ingest.runCount() == 1 },
		2*time.Second, 10*time.Millisecond, "initial run")

	writeFiles(t, dir, map[string]string{"notes.md": "notes"})
	require.Eventually(t, func() bool { return ingest.runCount() >= 2 },
		2*time.Second, 10*time.Millisecond, "run after create")

	require.NoError(t, os.Remove(filepath.Join(dir, "cv.md")))
	require.Eventually(t, func() bool {
		index.mu.Lock()
		defer index.mu.Unlock()
		return len(index.deleted) == 1 && index.deleted[0] == "cv.md"
	}, 2*time.Second, 10*time.Millisecond, "vectors removed")
	require.Eventually(t, func() bool {
		_, ok := tracking.snapshot()["cv.md"]
		return !ok
	}, 2*time.Second, 10*time.Millisecond, "tracking forgotten")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestWatcher_RunCreatesDataDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	ingest := &stubIngestService{}
	w := NewWatcher(dir, ingest, nil, newMockTrackingStore(nil), time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool { return ingest.runCount() == 1 },
		2*time.Second, 10*time.Millisecond)
	assert.DirExists(t, dir)

	cancel()
	assert.NoError(t, <-done)
}

func TestWatcher_ShrunkDocumentKeepsNoStaleChunks(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"notes.md": "one two three four five six"})

	index := memory.NewVectorIndex(3)
	tracking := newMockTrackingStore(nil)
	orch := NewIngestOrchestrator(IngestConfig{DataDir: dir, BatchSize: 32, Dimensions: 3},
		mockLoaderRegistry{}, wordChunker{},
		&mockEmbeddingService{embedding: []float32{0.1, 0.2, 0.3}}, index, tracking)

	w := NewWatcher(dir, orch, index, tracking, 20*time.Millisecond)
	w.SetRunGuard(orch)

	var mu sync.Mutex
	runs := 0
	w.OnRun = func(_ *domain.IngestReport, err error) {
		assert.NoError(t, err)
		mu.Lock()
		runs++
		mu.Unlock()
	}
	runCount := func() int {
		mu.Lock()
		defer mu.Unlock()
		return runs
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool { return runCount() == 1 },
		2*time.Second, 10*time.Millisecond, "initial run")
	require.Equal(t, 6, index.Len())

	writeFiles(t, dir, map[string]string{"notes.md": "Short now."})
	require.Eventually(t, func() bool { return index.Len() == 2 },
		2*time.Second, 10*time.Millisecond, "old chunks replaced")

	cancel()
	assert.NoError(t, <-done)
}

func TestWatcher_ForgetWaitsForRun(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"cv.md": "cv"})
	embed := newGatedEmbedding()
	index := memory.NewVectorIndex(3)
	tracking := newMockTrackingStore(nil)
	orch := NewIngestOrchestrator(IngestConfig{DataDir: dir, BatchSize: 32, Dimensions: 3},
		mockLoaderRegistry{}, wordChunker{}, embed, index, tracking)

	w := NewWatcher(dir, orch, index, tracking, time.Millisecond)
	w.SetRunGuard(orch)

	runDone := make(chan error, 1)
	go func() {
		_, err := orch.Ingest(context.Background(), domain.IngestOptions{})
		runDone <- err
	}()
	<-embed.entered

	require.NoError(t, os.Remove(filepath.Join(dir, "cv.md")))
	forgotten := make(chan struct{})
	go func() {
		w.forget(context.Background(), "cv.md")
		close(forgotten)
	}()

	select {
	case <-forgotten:
		t.Fatal("forget returned during an ingestion run")
	case <-time.After(50 * time.Millisecond):
	}

	close(embed.release)
	require.NoError(t, <-runDone)
	<-forgotten

	assert.Zero(t, index.Len())
	assert.NotContains(t, tracking.snapshot(), "cv.md")
}
