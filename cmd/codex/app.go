package main

import (
	"context"
	"os"

	"github.com/adiirockstar/trial-matthew-schramm/internal/adapters/driven/ai"
	"github.com/adiirockstar/trial-matthew-schramm/internal/adapters/driven/config/file"
	trackingfile "github.com/adiirockstar/trial-matthew-schramm/internal/adapters/driven/tracking/file"
	"github.com/adiirockstar/trial-matthew-schramm/internal/adapters/driving/cli"
	"github.com/adiirockstar/trial-matthew-schramm/internal/core/domain"
	"github.com/adiirockstar/trial-matthew-schramm/internal/core/ports/driving"
	"github.com/adiirockstar/trial-matthew-schramm/internal/core/services"
	"github.com/adiirockstar/trial-matthew-schramm/internal/logger"
	"github.com/adiirockstar/trial-matthew-schramm/internal/normalisers"
	"github.com/adiirockstar/trial-matthew-schramm/internal/normalisers/markdown"
	"github.com/adiirockstar/trial-matthew-schramm/internal/normalisers/pdf"
	"github.com/adiirockstar/trial-matthew-schramm/internal/postprocessors/chunker"
)

// app wires configuration to the core services.
type app struct {
	// getenv overrides os.Getenv.
	getenv func(string) string
}

// Settings opens the TOML config store at path, or ~/.codex/config.toml.
func (a app) Settings(path string) (driving.SettingsService, error) {
	var (
		store *file.ConfigStore
		err   error
	)
	if path != "" {
		store, err = file.NewConfigStoreAt(path)
	} else {
		store, err = file.NewConfigStore("")
	}
	if err != nil {
		return nil, err
	}

	getenv := a.getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	return services.NewSettingsService(store, getenv), nil
}

// Services builds the adapters named by needs and the services on top of
// them. Ingestion and dataset management are always available; answering
// and watching need every external service they call.
func (a app) Services(ctx context.Context, cfg domain.Config, needs domain.Requirement) (*cli.Services, error) {
	res, err := ai.Init(ctx, cfg, needs)
	if err != nil {
		return nil, err
	}

	tracking := trackingfile.NewStore(cfg.TrackingFile)
	loaders := normalisers.NewRegistry(markdown.New(), pdf.New())
	chunks := chunker.New(
		chunker.WithChunkSize(cfg.Chunking.Size),
		chunker.WithOverlap(cfg.Chunking.Overlap),
	)

	ingest := services.NewIngestOrchestrator(services.IngestConfig{
		DataDir:    cfg.DataDir,
		BatchSize:  cfg.Embedding.BatchSize,
		Dimensions: cfg.Embedding.Dimensions,
	}, loaders, chunks, res.EmbeddingService, res.VectorIndex, tracking)
	ingest.SetRunLock(trackingfile.NewLock(trackingfile.LockPath(cfg.TrackingFile)))

	dataset := services.NewDatasetService(cfg.DataDir, res.VectorIndex, tracking)
	dataset.SetRunGuard(ingest)

	svc := &cli.Services{
		Ingest:  ingest,
		Dataset: dataset,
		Check: func(ctx context.Context) []cli.CheckResult {
			var out []cli.CheckResult
			for _, r := range ai.Check(ctx, res) {
				out = append(out, cli.CheckResult{Name: r.Name, Err: r.Err})
			}
			return out
		},
		Close: res.Close,
	}

	if res.EmbeddingService != nil && res.VectorIndex != nil {
		watcher := services.NewWatcher(cfg.DataDir, ingest, res.VectorIndex, tracking, services.DefaultDebounce)
		watcher.SetRunGuard(ingest)
		svc.Watch = watcher
	}

	if res.EmbeddingService != nil && res.LLMService != nil && res.VectorIndex != nil {
		composer := services.NewAnswerComposer(res.EmbeddingService, res.VectorIndex, res.LLMService, cfg.Retrieval)
		prompts, err := file.NewPromptStore(cfg.PromptDir)
		if err != nil {
			logger.Warn("Using built-in prompts: %v", err)
		} else {
			composer.SetPromptStore(prompts)
		}
		svc.Answer = composer
	}

	return svc, nil
}
