package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates a file type no loader handles.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrEmptyContent indicates a document had no text after normalisation.
	ErrEmptyContent = errors.New("empty content")

	// ErrInvalidPath indicates a filename escapes the data directory.
	ErrInvalidPath = errors.New("invalid file path")

	// ErrFileTooLarge indicates an upload exceeds MaxUploadSize.
	ErrFileTooLarge = errors.New("file too large")

	// ErrIngestInProgress indicates an ingestion run is already active.
	ErrIngestInProgress = errors.New("ingestion in progress")

	// ErrConfigMissing indicates required configuration is absent.
	ErrConfigMissing = errors.New("missing required configuration")

	// ErrLLMUnavailable indicates the language model is not configured.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrVectorIndexUnavailable indicates the vector index is not configured.
	ErrVectorIndexUnavailable = errors.New("vector index unavailable")

	// ErrDimensionMismatch indicates a vector has the wrong length for the index.
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrRateLimited indicates an upstream API rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")
)
