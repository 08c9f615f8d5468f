// Package ai provides factory functions that build driven adapters from configuration.
package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	openaiembed "github.com/adiirockstar/trial-matthew-schramm/internal/adapters/driven/embedding/openai"
	openaillm "github.com/adiirockstar/trial-matthew-schramm/internal/adapters/driven/llm/openai"
	"github.com/adiirockstar/trial-matthew-schramm/internal/adapters/driven/vector/memory"
	"github.com/adiirockstar/trial-matthew-schramm/internal/adapters/driven/vector/pgvector"
	"github.com/adiirockstar/trial-matthew-schramm/internal/adapters/driven/vector/pinecone"
	"github.com/adiirockstar/trial-matthew-schramm/internal/adapters/driven/vector/sqlite"
	"github.com/adiirockstar/trial-matthew-schramm/internal/core/domain"
	"github.com/adiirockstar/trial-matthew-schramm/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// InitResult holds the services built for a command.
// Fields the command did not ask for are nil.
type InitResult struct {
	EmbeddingService driven.EmbeddingService
	LLMService       driven.LLMService
	VectorIndex      driven.VectorIndex
}

// Close releases all resources held by InitResult.
func (r *InitResult) Close() {
	if r.EmbeddingService != nil {
		r.EmbeddingService.Close()
	}
	if r.VectorIndex != nil {
		r.VectorIndex.Close()
	}
	if r.LLMService != nil {
		r.LLMService.Close()
	}
}

// Init validates cfg for needs and builds the requested services.
// On error, anything already built is closed.
func Init(ctx context.Context, cfg domain.Config, needs domain.Requirement) (*InitResult, error) {
	if err := cfg.Validate(needs); err != nil {
		return nil, err
	}

	res := &InitResult{}
	if needs&domain.NeedEmbedding != 0 {
		svc, err := CreateEmbeddingService(cfg.Embedding)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
		}
		res.EmbeddingService = svc
	}
	if needs&domain.NeedLLM != 0 {
		svc, err := CreateLLMService(cfg.LLM)
		if err != nil {
			res.Close()
			return nil, fmt.Errorf("%w: %w", domain.ErrLLMUnavailable, err)
		}
		res.LLMService = svc
	}
	if needs&domain.NeedIndex != 0 {
		idx, err := CreateVectorIndex(ctx, cfg.Index, cfg.Embedding.Dimensions)
		if err != nil {
			res.Close()
			return nil, fmt.Errorf("%w: %w", domain.ErrVectorIndexUnavailable, err)
		}
		res.VectorIndex = idx
	}
	return res, nil
}

// CreateEmbeddingService creates the OpenAI embedding service.
func CreateEmbeddingService(settings domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	svc, err := openaiembed.NewEmbeddingService(openaiembed.Config{
		APIKey:            settings.APIKey,
		BaseURL:           settings.BaseURL,
		Model:             settings.Model,
		Dimensions:        settings.Dimensions,
		RequestsPerMinute: settings.RequestsPerMinute,
	})
	if err != nil {
		return nil, err
	}
	return svc, nil
}

// CreateLLMService creates the OpenAI chat service.
func CreateLLMService(settings domain.LLMSettings) (driven.LLMService, error) {
	svc, err := openaillm.NewLLMService(openaillm.LLMConfig{
		APIKey:  settings.APIKey,
		BaseURL: settings.BaseURL,
		Model:   settings.Model,
	})
	if err != nil {
		return nil, err
	}
	return svc, nil
}

// CreateVectorIndex creates the index selected by settings.Backend.
// dimension sizes new indexes; existing ones keep theirs.
func CreateVectorIndex(ctx context.Context, settings domain.IndexSettings, dimension int) (driven.VectorIndex, error) {
	var (
		idx driven.VectorIndex
		err error
	)
	switch settings.Backend {
	case domain.IndexBackendSQLite:
		idx, err = sqlite.NewStore(settings.Path, dimension)

	case domain.IndexBackendPinecone:
		var opts []pinecone.Option
		if settings.Namespace != "" {
			opts = append(opts, pinecone.WithNamespace(settings.Namespace))
		}
		idx, err = pinecone.NewIndex(settings.PineconeHost, settings.PineconeAPIKey, opts...)

	case domain.IndexBackendPgvector:
		idx, err = pgvector.NewIndex(ctx, settings.DatabaseURL, settings.Table, dimension)

	case domain.IndexBackendMemory:
		idx = memory.NewVectorIndex(dimension)

	default:
		err = fmt.Errorf("%w: unsupported index backend %q", domain.ErrInvalidInput, settings.Backend)
	}
	if err != nil {
		return nil, err
	}
	return idx, nil
}

// CheckResult is the outcome of probing one service.
type CheckResult struct {
	Name string
	Err  error
}

// Check pings every service in res and reads the index dimension.
func Check(ctx context.Context, res *InitResult) []CheckResult {
	var out []CheckResult

	ping := func(name string, fn func(context.Context) error) {
		pctx, cancel := context.WithTimeout(ctx, pingTimeout)
		defer cancel()
		out = append(out, CheckResult{Name: name, Err: fn(pctx)})
	}

	if res.EmbeddingService != nil {
		ping("embedding ("+res.EmbeddingService.ModelName()+")", res.EmbeddingService.Ping)
	}
	if res.LLMService != nil {
		ping("llm ("+res.LLMService.ModelName()+")", res.LLMService.Ping)
	}
	if res.VectorIndex != nil {
		ping("vector index", func(ctx context.Context) error {
			_, err := res.VectorIndex.Dimension(ctx)
			return err
		})
	}
	return out
}

// Failed reports whether any check failed, joining their errors.
func Failed(results []CheckResult) error {
	var errs []error
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", r.Name, r.Err))
		}
	}
	return errors.Join(errs...)
}
