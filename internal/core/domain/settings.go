package domain

import (
	"fmt"
	"strings"
	"time"
)

// Default configuration values.
const (
	DefaultDataDir           = "data"
	DefaultTrackingFile      = ".ingest-tracking.json"
	DefaultChunkSize         = 1200
	DefaultChunkOverlap      = 200
	DefaultBatchSize         = 32
	DefaultEmbeddingModel    = "text-embedding-3-small"
	DefaultEmbeddingDims     = 1536
	DefaultChatModel         = "gpt-4o-mini"
	DefaultTopK              = 5
	DefaultRelevance         = 0.2
	DefaultServerAddr        = ":3000"
	DefaultIngestTimeout     = 5 * time.Minute
	DefaultPgvectorTable     = "codex_vectors"
	DefaultSQLiteIndexFile   = "vectors.db"
	DefaultRequestsPerMinute = 3000
)

// IndexBackend selects the vector index implementation.
type IndexBackend string

// Available index backends.
const (
	// IndexBackendSQLite is a local single-file index.
	IndexBackendSQLite IndexBackend = "sqlite"

	// IndexBackendPinecone is the hosted Pinecone service.
	IndexBackendPinecone IndexBackend = "pinecone"

	// IndexBackendPgvector is PostgreSQL with the pgvector extension.
	IndexBackendPgvector IndexBackend = "pgvector"

	// IndexBackendMemory is an in-process index that is lost on exit.
	IndexBackendMemory IndexBackend = "memory"
)

// IsValid returns true if the backend is recognised.
func (b IndexBackend) IsValid() bool {
	switch b {
	case IndexBackendSQLite, IndexBackendPinecone, IndexBackendPgvector, IndexBackendMemory:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (b IndexBackend) String() string {
	return string(b)
}

// ChunkingSettings holds chunker configuration.
type ChunkingSettings struct {
	// Size is the target chunk length in characters.
	Size int

	// Overlap is the number of characters shared by adjacent chunks.
	Overlap int
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Model is the embedding model name.
	Model string

	// APIKey is the OpenAI API key.
	APIKey string

	// BaseURL overrides the API endpoint (OpenAI-compatible servers).
	BaseURL string

	// Dimensions is the expected vector length.
	Dimensions int

	// BatchSize is the number of texts sent per embedding request.
	BatchSize int

	// RequestsPerMinute paces embedding requests. Zero disables pacing.
	RequestsPerMinute int
}

// LLMSettings holds language model configuration.
type LLMSettings struct {
	// Model is the chat model name.
	Model string

	// APIKey is the OpenAI API key.
	APIKey string

	// BaseURL overrides the API endpoint.
	BaseURL string
}

// IndexSettings holds vector index configuration.
type IndexSettings struct {
	// Backend selects the implementation.
	Backend IndexBackend

	// Path is the SQLite index file (sqlite backend).
	Path string

	// DatabaseURL is the PostgreSQL connection string (pgvector backend).
	DatabaseURL string

	// Table is the pgvector table name.
	Table string

	// PineconeAPIKey authenticates against Pinecone.
	PineconeAPIKey string

	// PineconeHost is the index data-plane host.
	PineconeHost string

	// PineconeIndex is the index name, used in messages only.
	PineconeIndex string

	// Namespace scopes Pinecone records. Empty uses the default namespace.
	Namespace string
}

// RetrievalSettings holds query-time configuration.
type RetrievalSettings struct {
	// TopK is the number of nearest chunks requested.
	TopK int

	// Threshold is the minimum similarity a match needs to count as relevant.
	Threshold float64
}

// ServerSettings holds HTTP API configuration.
type ServerSettings struct {
	// Addr is the listen address.
	Addr string

	// IngestTimeout bounds remotely triggered ingestion runs.
	IngestTimeout time.Duration
}

// Config is the complete application configuration.
// It is built once at start-up and passed to constructors.
type Config struct {
	DataDir      string
	TrackingFile string
	Chunking     ChunkingSettings
	Embedding    EmbeddingSettings
	LLM          LLMSettings
	Index        IndexSettings
	Retrieval    RetrievalSettings
	Server       ServerSettings

	// PromptDir holds user-edited prompt files. Empty uses ~/.codex/prompts.
	PromptDir string
}

// DefaultConfig returns a Config with every default applied.
func DefaultConfig() Config {
	return Config{
		DataDir:      DefaultDataDir,
		TrackingFile: DefaultTrackingFile,
		Chunking: ChunkingSettings{
			Size:    DefaultChunkSize,
			Overlap: DefaultChunkOverlap,
		},
		Embedding: EmbeddingSettings{
			Model:             DefaultEmbeddingModel,
			Dimensions:        DefaultEmbeddingDims,
			BatchSize:         DefaultBatchSize,
			RequestsPerMinute: DefaultRequestsPerMinute,
		},
		LLM: LLMSettings{
			Model: DefaultChatModel,
		},
		Index: IndexSettings{
			Backend: IndexBackendSQLite,
			Path:    DefaultSQLiteIndexFile,
			Table:   DefaultPgvectorTable,
		},
		Retrieval: RetrievalSettings{
			TopK:      DefaultTopK,
			Threshold: DefaultRelevance,
		},
		Server: ServerSettings{
			Addr:          DefaultServerAddr,
			IngestTimeout: DefaultIngestTimeout,
		},
	}
}

// Requirement names a capability a command needs from the configuration.
type Requirement int

// Requirements checked by Validate.
const (
	NeedEmbedding Requirement = 1 << iota
	NeedLLM
	NeedIndex
)

// Validate checks the fields the requested capabilities depend on.
// The returned error wraps ErrConfigMissing or ErrInvalidInput and names every problem.
func (c Config) Validate(needs Requirement) error {
	var missing, invalid []string

	if c.DataDir == "" {
		missing = append(missing, "data_dir")
	}
	if c.Chunking.Size <= 0 {
		invalid = append(invalid, "chunking.size must be positive")
	}
	if c.Chunking.Overlap < 0 || c.Chunking.Overlap >= c.Chunking.Size {
		invalid = append(invalid, "chunking.overlap must be in [0, chunking.size)")
	}

	if needs&NeedEmbedding != 0 {
		if c.Embedding.APIKey == "" {
			missing = append(missing, "OPENAI_API_KEY")
		}
		if c.Embedding.BatchSize <= 0 {
			invalid = append(invalid, "embedding.batch_size must be positive")
		}
	}
	if needs&NeedLLM != 0 && c.LLM.APIKey == "" {
		missing = append(missing, "OPENAI_API_KEY")
	}
	if needs&NeedIndex != 0 {
		missing = append(missing, c.Index.missing()...)
		if !c.Index.Backend.IsValid() {
			invalid = append(invalid, fmt.Sprintf("index.backend %q is not one of sqlite, pinecone, pgvector, memory", c.Index.Backend))
		}
	}

	missing = dedupe(missing)
	switch {
	case len(missing) > 0:
		return fmt.Errorf("%w: %s", ErrConfigMissing, strings.Join(missing, ", "))
	case len(invalid) > 0:
		return fmt.Errorf("%w: %s", ErrInvalidInput, strings.Join(invalid, "; "))
	}
	return nil
}

func (s IndexSettings) missing() []string {
	var out []string
	switch s.Backend {
	case IndexBackendPinecone:
		if s.PineconeAPIKey == "" {
			out = append(out, "PINECONE_API_KEY")
		}
		if s.PineconeHost == "" {
			out = append(out, "PINECONE_HOST")
		}
	case IndexBackendPgvector:
		if s.DatabaseURL == "" {
			out = append(out, "DATABASE_URL")
		}
	case IndexBackendSQLite:
		if s.Path == "" {
			out = append(out, "index.path")
		}
	}
	return out
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := in[:0]
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
