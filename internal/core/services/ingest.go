package services

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/adiirockstar/trial-matthew-schramm/internal/core/domain"
	"github.com/adiirockstar/trial-matthew-schramm/internal/core/ports/driven"
	"github.com/adiirockstar/trial-matthew-schramm/internal/core/ports/driving"
	"github.com/adiirockstar/trial-matthew-schramm/internal/logger"
)

// Ensure IngestOrchestrator implements the interface.
var _ driving.IngestService = (*IngestOrchestrator)(nil)

// IngestConfig holds the orchestrator's static settings.
type IngestConfig struct {
	// DataDir is the directory scanned for documents.
	DataDir string

	// BatchSize is the number of chunks embedded and upserted together.
	BatchSize int

	// Dimensions is the embedding length the index is expected to hold.
	Dimensions int
}

// IngestOrchestrator runs discover, filter, load, chunk, embed, upsert and
// tracking as one pass. At most one run is active at a time.
type IngestOrchestrator struct {
	cfg       IngestConfig
	loaders   driven.LoaderRegistry
	chunker   driven.Chunker
	embedding driven.EmbeddingService
	index     driven.VectorIndex
	tracking  driven.TrackingStore

	// run holds a token while a run or an exclusive operation is active.
	run chan struct{}

	// lock, when set, keeps runs in other processes out.
	lock driven.RunLock

	mu      sync.RWMutex
	running bool
	last    *domain.IngestReport
	lastErr error
}

// NewIngestOrchestrator creates an orchestrator.
// embedding and index may be nil; such an orchestrator can only dry-run.
func NewIngestOrchestrator(
	cfg IngestConfig,
	loaders driven.LoaderRegistry,
	chunker driven.Chunker,
	embedding driven.EmbeddingService,
	index driven.VectorIndex,
	tracking driven.TrackingStore,
) *IngestOrchestrator {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = domain.DefaultBatchSize
	}
	return &IngestOrchestrator{
		cfg:       cfg,
		loaders:   loaders,
		chunker:   chunker,
		embedding: embedding,
		index:     index,
		tracking:  tracking,
		run:       make(chan struct{}, 1),
	}
}

// lockRetry is how often Exclusive retries a lock held by another process.
const lockRetry = 100 * time.Millisecond

// SetRunLock makes runs and exclusive operations also take l, so processes
// sharing a tracking file do not overlap.
func (o *IngestOrchestrator) SetRunLock(l driven.RunLock) {
	o.lock = l
}

// loadedDoc is a selected file that survived loading and chunking.
type loadedDoc struct {
	fp     domain.FileFingerprint
	report int // index into IngestReport.Files
}

// Ingest performs one run. A run already in progress yields ErrIngestInProgress.
// On batch failure the returned report describes the partial run and the
// error is a *domain.BatchError; tracking is left untouched.
func (o *IngestOrchestrator) Ingest(ctx context.Context, opts domain.IngestOptions) (*domain.IngestReport, error) {
	select {
	case o.run <- struct{}{}:
	default:
		return nil, domain.ErrIngestInProgress
	}
	defer func() { <-o.run }()

	held, err := o.lockProcess()
	if err != nil {
		return nil, err
	}
	if !held {
		return nil, domain.ErrIngestInProgress
	}
	defer o.unlockProcess()

	o.setRunning(true)
	report, err := o.ingest(ctx, opts)
	o.finish(report, err)
	return report, err
}

//nolint:gocyclo // Orchestration function with necessary sequential steps
func (o *IngestOrchestrator) ingest(ctx context.Context, opts domain.IngestOptions) (*domain.IngestReport, error) {
	report := &domain.IngestReport{
		RunID:     uuid.NewString(),
		DryRun:    opts.DryRun,
		Files:     []domain.FileReport{},
		StartedAt: time.Now(),
	}
	defer func() { report.Duration = time.Since(report.StartedAt) }()

	if !opts.DryRun && (o.embedding == nil || o.index == nil) {
		return report, fmt.Errorf("%w: embedding service and vector index are required unless dry-running",
			domain.ErrConfigMissing)
	}

	logger.Section("Ingestion " + report.RunID)
	logger.Debug("Options: dryRun=%t clear=%t incremental=%t file=%q",
		opts.DryRun, opts.Clear, opts.Incremental, opts.File)

	// 1. Discover
	files, err := Discover(o.cfg.DataDir)
	if err != nil {
		return report, err
	}
	report.Discovered = len(files)

	// 2. Filter
	tracked := LoadTracking(ctx, o.tracking)
	tracker := ChangeTracker{File: opts.File, Incremental: opts.Incremental}
	selected := tracker.Select(files, tracked)
	report.Selected = len(selected)

	if len(selected) == 0 {
		report.UpToDate = true
		logger.Info("All files are up to date. No processing needed.")
		return report, nil
	}

	logger.Info("Found %d total files, %d need processing", len(files), len(selected))
	for _, fp := range selected {
		status := domain.FileStatusNew
		if _, ok := tracked[fp.Name]; ok {
			status = domain.FileStatusUpdated
		}
		fr := domain.FileReport{Name: fp.Name, Size: fp.Size, Status: status}
		report.Files = append(report.Files, fr)
		opts.Emit(domain.IngestEvent{Stage: domain.StagePlanned, File: fr})
	}

	// 3-5. Load, normalise, chunk
	var (
		docs      []loadedDoc
		allChunks []domain.Chunk
	)
	for i, fp := range selected {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		logger.Debug("Processing %s", fp.Name)
		doc, reason := LoadDocument(ctx, o.loaders, fp.Path)
		if doc == nil {
			report.Files[i].Status = domain.FileStatusSkipped
			report.Files[i].Reason = reason
			report.Warnings = append(report.Warnings, fmt.Sprintf("%s: %s", fp.Name, reason))
			continue
		}

		chunks := o.chunker.Chunk(doc.Content, fp.Name, doc.Metadata)
		report.Files[i].Chunks = len(chunks)
		docs = append(docs, loadedDoc{fp: fp, report: i})
		allChunks = append(allChunks, chunks...)

		logger.Debug("%s: %d chunks", fp.Name, len(chunks))
		opts.Emit(domain.IngestEvent{Stage: domain.StageChunked, File: report.Files[i]})
	}

	report.Documents = len(docs)
	report.Chunks = len(allChunks)

	if len(docs) == 0 {
		logger.Warn("No valid documents to process.")
		return report, nil
	}

	// 6. Dry run stops before any external call.
	if opts.DryRun {
		logger.Info("Dry run: %d documents processed, %d chunks created", report.Documents, report.Chunks)
		return report, nil
	}

	// 7. Dimension check
	o.checkDimension(ctx, report)

	// 8. Clear
	if opts.Clear {
		for _, d := range docs {
			if err := o.index.DeleteByFilename(ctx, d.fp.Name); err != nil {
				msg := fmt.Sprintf("could not clear vectors for %s: %v", d.fp.Name, err)
				logger.Warn("%s", msg)
				report.Warnings = append(report.Warnings, msg)
				continue
			}
			logger.Debug("Cleared vectors for %s", d.fp.Name)
			opts.Emit(domain.IngestEvent{Stage: domain.StageCleared, File: report.Files[d.report]})
		}
	}

	// 9-10. Embed and upsert, one batch at a time.
	if err := o.upsertBatches(ctx, allChunks, report, opts); err != nil {
		return report, err
	}

	// 11. Persist tracking for the documents that were written and still exist.
	for _, d := range docs {
		if o.vanished(ctx, d.fp, report) {
			delete(tracked, d.fp.Name)
			report.Files[d.report].Status = domain.FileStatusSkipped
			report.Files[d.report].Reason = "deleted during ingestion"
			continue
		}
		tracked[d.fp.Name] = d.fp.Hash
		report.Files[d.report].Status = domain.FileStatusIngested
	}
	if err := o.tracking.Save(ctx, tracked); err != nil {
		return report, fmt.Errorf("save tracking: %w", err)
	}

	logger.Info("Ingestion complete: %d vectors from %d documents", report.Upserted, report.Documents)
	return report, nil
}

// Exclusive runs fn once no ingestion run is active and keeps new runs out
// until fn returns. Removing a document goes through here so a run cannot
// write its vectors or tracking entry back afterwards.
func (o *IngestOrchestrator) Exclusive(ctx context.Context, fn func(context.Context) error) error {
	select {
	case o.run <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-o.run }()

	for {
		held, err := o.lockProcess()
		if err != nil {
			return err
		}
		if held {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(lockRetry):
		}
	}
	defer o.unlockProcess()

	return fn(ctx)
}

func (o *IngestOrchestrator) lockProcess() (bool, error) {
	if o.lock == nil {
		return true, nil
	}
	held, err := o.lock.TryLock()
	if err != nil {
		return false, fmt.Errorf("taking run lock: %w", err)
	}
	if !held {
		logger.Debug("Run lock is held by another process")
	}
	return held, nil
}

func (o *IngestOrchestrator) unlockProcess() {
	if o.lock == nil {
		return
	}
	if err := o.lock.Unlock(); err != nil {
		logger.Warn("Could not release run lock: %v", err)
	}
}

// vanished reports whether fp's file was removed while the run was in
// flight, dropping the vectors just written for it.
func (o *IngestOrchestrator) vanished(ctx context.Context, fp domain.FileFingerprint, report *domain.IngestReport) bool {
	if _, err := os.Stat(fp.Path); !errors.Is(err, fs.ErrNotExist) {
		return false
	}
	msg := fmt.Sprintf("%s was deleted during ingestion", fp.Name)
	if err := o.index.DeleteByFilename(ctx, fp.Name); err != nil {
		msg = fmt.Sprintf("%s was deleted during ingestion and its vectors could not be removed: %v", fp.Name, err)
	}
	logger.Warn("%s", msg)
	report.Warnings = append(report.Warnings, msg)
	return true
}

// checkDimension warns when the index was built for a different embedding length.
func (o *IngestOrchestrator) checkDimension(ctx context.Context, report *domain.IngestReport) {
	expected := o.cfg.Dimensions
	if expected <= 0 {
		expected = o.embedding.Dimensions()
	}

	dim, err := o.index.Dimension(ctx)
	if err != nil {
		logger.Warn("Could not verify index dimensions: %v", err)
		report.Warnings = append(report.Warnings, "could not verify index dimensions")
		return
	}
	if dim != 0 && dim != expected {
		msg := fmt.Sprintf("index dimension is %d, expected %d for %s", dim, expected, o.embedding.ModelName())
		logger.Warn("%s", msg)
		report.Warnings = append(report.Warnings, msg)
	}
}

// upsertBatches embeds and writes chunks sequentially. The first failure
// stops the run; earlier batches stay written.
func (o *IngestOrchestrator) upsertBatches(
	ctx context.Context, chunks []domain.Chunk, report *domain.IngestReport, opts domain.IngestOptions,
) error {
	total := len(chunks)
	size := o.cfg.BatchSize

	for start := 0; start < total; start += size {
		end := min(start+size, total)
		batchNo := start/size + 1

		fail := func(err error) error {
			logger.Error("Error processing batch %d: %v", batchNo, err)
			return &domain.BatchError{Batch: batchNo, Completed: report.Upserted, Total: total, Err: err}
		}

		if err := ctx.Err(); err != nil {
			return fail(err)
		}

		batch := chunks[start:end]
		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Text
		}

		vectors, err := o.embedding.EmbedBatch(ctx, texts)
		if err != nil {
			return fail(fmt.Errorf("embed: %w", err))
		}
		if len(vectors) != len(batch) {
			return fail(fmt.Errorf("embed: got %d vectors for %d chunks", len(vectors), len(batch)))
		}

		records := make([]domain.VectorRecord, len(batch))
		for i, c := range batch {
			records[i] = domain.VectorRecord{ID: c.ID, Values: vectors[i], Metadata: c.IndexMetadata()}
		}
		if err := o.index.Upsert(ctx, records); err != nil {
			return fail(fmt.Errorf("upsert: %w", err))
		}

		report.Upserted += len(batch)
		logger.Debug("Processed %d/%d chunks (%.1f%%)", report.Upserted, total,
			float64(report.Upserted)/float64(total)*100)
		opts.Emit(domain.IngestEvent{Stage: domain.StageBatch, Done: report.Upserted, Total: total})
	}
	return nil
}

// Status returns the current run state.
func (o *IngestOrchestrator) Status() domain.IngestStatus {
	o.mu.RLock()
	defer o.mu.RUnlock()

	status := domain.IngestStatus{Running: o.running}
	if o.last != nil {
		cp := *o.last
		status.LastReport = &cp
	}
	if o.lastErr != nil {
		status.LastError = o.lastErr.Error()
	}
	return status
}

func (o *IngestOrchestrator) setRunning(running bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.running = running
}

func (o *IngestOrchestrator) finish(report *domain.IngestReport, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.running = false
	o.last = report
	o.lastErr = err

	var batchErr *domain.BatchError
	if errors.As(err, &batchErr) {
		logger.Warn("Run %s stopped after %d/%d chunks", report.RunID, batchErr.Completed, batchErr.Total)
	}
}
