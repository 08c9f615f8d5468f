package domain

import (
	"fmt"
	"time"
)

// IngestOptions controls a single ingestion run.
type IngestOptions struct {
	// DryRun stops after chunking: no embedding calls, no writes.
	DryRun bool `json:"dryRun"`

	// Clear deletes existing vectors for every selected file before upserting.
	Clear bool `json:"clear"`

	// Incremental only selects files whose content hash changed.
	Incremental bool `json:"incremental"`

	// File restricts the run to a single filename.
	File string `json:"file,omitempty"`

	// Progress, when set, receives events as the run advances.
	Progress func(IngestEvent) `json:"-"`
}

// IngestStage names a point in a run reported through IngestOptions.Progress.
type IngestStage string

// Stages reported while a run advances.
const (
	StagePlanned IngestStage = "planned"
	StageChunked IngestStage = "chunked"
	StageCleared IngestStage = "cleared"
	StageBatch   IngestStage = "batch"
)

// IngestEvent is one progress notification.
type IngestEvent struct {
	Stage IngestStage

	// File is the affected file for planned, chunked and cleared events.
	File FileReport

	// Done and Total count chunks written for batch events.
	Done  int
	Total int
}

// Emit forwards ev to the progress callback, if any.
func (o IngestOptions) Emit(ev IngestEvent) {
	if o.Progress != nil {
		o.Progress(ev)
	}
}

// FileStatus describes what happened to one selected file.
type FileStatus string

// File statuses reported by an ingestion run.
const (
	FileStatusNew      FileStatus = "new"
	FileStatusUpdated  FileStatus = "updated"
	FileStatusSkipped  FileStatus = "skipped"
	FileStatusIngested FileStatus = "ingested"
)

// FileReport is the per-file outcome of a run.
type FileReport struct {
	Name   string     `json:"name"`
	Size   int64      `json:"size"`
	Status FileStatus `json:"status"`
	Chunks int        `json:"chunks"`
	Reason string     `json:"reason,omitempty"`
}

// IngestReport summarises an ingestion run.
type IngestReport struct {
	// RunID uniquely identifies the run in logs.
	RunID string `json:"runId"`

	// Discovered is the number of allowed files found in the data directory.
	Discovered int `json:"discovered"`

	// Selected is the number of files that passed the change tracker.
	Selected int `json:"selected"`

	// Documents is the number of files that loaded to non-empty text.
	Documents int `json:"documents"`

	// Chunks is the total number of chunks produced.
	Chunks int `json:"chunks"`

	// Upserted is the number of vectors written.
	Upserted int `json:"upserted"`

	// Files holds the per-file outcomes in processing order.
	Files []FileReport `json:"files"`

	// Warnings collects recoverable problems.
	Warnings []string `json:"warnings,omitempty"`

	// DryRun is true if no embedding or writes were performed.
	DryRun bool `json:"dryRun"`

	// UpToDate is true if no file needed processing.
	UpToDate bool `json:"upToDate"`

	// StartedAt is when the run began.
	StartedAt time.Time `json:"startedAt"`

	// Duration is the wall-clock time of the run.
	Duration time.Duration `json:"duration"`
}

// Summary returns a one-line description of the run.
func (r *IngestReport) Summary() string {
	switch {
	case r.UpToDate:
		return "All files are up to date. No processing needed."
	case r.DryRun:
		return fmt.Sprintf("Dry run: %d documents processed, %d chunks created", r.Documents, r.Chunks)
	default:
		return fmt.Sprintf("Ingested %d documents, %d chunks, %d vectors", r.Documents, r.Chunks, r.Upserted)
	}
}

// BatchError reports a failed embed/upsert batch.
// Batches before the failed one are not rolled back.
type BatchError struct {
	// Batch is the 1-based batch number that failed.
	Batch int

	// Completed is the number of chunks written before the failure.
	Completed int

	// Total is the number of chunks the run intended to write.
	Total int

	// Err is the underlying failure.
	Err error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("batch %d failed after %d/%d chunks: %v", e.Batch, e.Completed, e.Total, e.Err)
}

func (e *BatchError) Unwrap() error {
	return e.Err
}

// IngestStatus is the live state of the orchestrator.
type IngestStatus struct {
	// Running indicates a run is in progress.
	Running bool `json:"running"`

	// LastReport is the most recent completed report, if any.
	LastReport *IngestReport `json:"lastReport,omitempty"`

	// LastError is the error of the most recent run, if it failed.
	LastError string `json:"lastError,omitempty"`
}
