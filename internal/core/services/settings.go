package services

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/adiirockstar/trial-matthew-schramm/internal/core/domain"
	"github.com/adiirockstar/trial-matthew-schramm/internal/core/ports/driven"
	"github.com/adiirockstar/trial-matthew-schramm/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Environment variables read on top of the config file.
//
//nolint:gosec // G101: These are variable names, not actual credentials.
const (
	EnvOpenAIKey     = "OPENAI_API_KEY"
	EnvPineconeKey   = "PINECONE_API_KEY"
	EnvPineconeHost  = "PINECONE_HOST"
	EnvPineconeIndex = "PINECONE_INDEX"
	EnvDatabaseURL   = "DATABASE_URL"
	EnvDataDir       = "CODEX_DATA_DIR"
	EnvIndexBackend  = "CODEX_INDEX"
)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyDataDir         = "data_dir"
	keyTrackingFile    = "tracking_file"
	keyChunkSize       = "chunking.size"
	keyChunkOverlap    = "chunking.overlap"
	keyEmbedModel      = "embedding.model"
	keyEmbedBaseURL    = "embedding.base_url"
	keyEmbedDims       = "embedding.dimensions"
	keyEmbedBatch      = "embedding.batch_size"
	keyEmbedRPM        = "embedding.requests_per_minute"
	keyLLMModel        = "llm.model"
	keyLLMBaseURL      = "llm.base_url"
	keyOpenAIKey       = "openai.api_key"
	keyIndexBackend    = "index.backend"
	keyIndexPath       = "index.path"
	keyIndexTable      = "index.table"
	keyIndexNamespace  = "index.namespace"
	keyDatabaseURL     = "index.database_url"
	keyPineconeKey     = "pinecone.api_key"
	keyPineconeHost    = "pinecone.host"
	keyPineconeIndex   = "pinecone.index"
	keyTopK            = "retrieval.top_k"
	keyThreshold       = "retrieval.threshold"
	keyServerAddr      = "server.addr"
	keyIngestTimeout   = "server.ingest_timeout"
	keyPromptOverrides = "prompts.dir"
)

type settingKind int

const (
	kindString settingKind = iota
	kindInt
	kindFloat
	kindDuration
)

// setting binds a config key to a Config field.
type setting struct {
	key    string
	desc   string
	kind   settingKind
	secret bool
	apply  func(cfg *domain.Config, v any) error
	show   func(cfg domain.Config) string
}

func stringSetting(key, desc string, field func(*domain.Config) *string) setting {
	return setting{
		key:  key,
		desc: desc,
		kind: kindString,
		apply: func(cfg *domain.Config, v any) error {
			s, err := toString(v)
			if err != nil {
				return err
			}
			*field(cfg) = s
			return nil
		},
		show: func(cfg domain.Config) string { return *field(&cfg) },
	}
}

func secretSetting(key, desc string, field func(*domain.Config) *string) setting {
	s := stringSetting(key, desc, field)
	s.secret = true
	return s
}

func intSetting(key, desc string, field func(*domain.Config) *int) setting {
	return setting{
		key:  key,
		desc: desc,
		kind: kindInt,
		apply: func(cfg *domain.Config, v any) error {
			n, err := toInt(v)
			if err != nil {
				return err
			}
			*field(cfg) = n
			return nil
		},
		show: func(cfg domain.Config) string { return strconv.Itoa(*field(&cfg)) },
	}
}

func floatSetting(key, desc string, field func(*domain.Config) *float64) setting {
	return setting{
		key:  key,
		desc: desc,
		kind: kindFloat,
		apply: func(cfg *domain.Config, v any) error {
			f, err := toFloat(v)
			if err != nil {
				return err
			}
			*field(cfg) = f
			return nil
		},
		show: func(cfg domain.Config) string { return strconv.FormatFloat(*field(&cfg), 'g', -1, 64) },
	}
}

func durationSetting(key, desc string, field func(*domain.Config) *time.Duration) setting {
	return setting{
		key:  key,
		desc: desc,
		kind: kindDuration,
		apply: func(cfg *domain.Config, v any) error {
			d, err := toDuration(v)
			if err != nil {
				return err
			}
			*field(cfg) = d
			return nil
		},
		show: func(cfg domain.Config) string { return field(&cfg).String() },
	}
}

// settings lists every configurable key in display order.
var settings = []setting{
	stringSetting(keyDataDir, "directory holding the knowledge base files",
		func(c *domain.Config) *string { return &c.DataDir }),
	stringSetting(keyTrackingFile, "file recording content hashes of ingested files",
		func(c *domain.Config) *string { return &c.TrackingFile }),
	intSetting(keyChunkSize, "target chunk length in characters",
		func(c *domain.Config) *int { return &c.Chunking.Size }),
	intSetting(keyChunkOverlap, "characters shared by adjacent chunks",
		func(c *domain.Config) *int { return &c.Chunking.Overlap }),
	stringSetting(keyEmbedModel, "embedding model",
		func(c *domain.Config) *string { return &c.Embedding.Model }),
	stringSetting(keyEmbedBaseURL, "embedding API base URL (OpenAI-compatible)",
		func(c *domain.Config) *string { return &c.Embedding.BaseURL }),
	intSetting(keyEmbedDims, "expected embedding dimensions",
		func(c *domain.Config) *int { return &c.Embedding.Dimensions }),
	intSetting(keyEmbedBatch, "chunks embedded per request",
		func(c *domain.Config) *int { return &c.Embedding.BatchSize }),
	intSetting(keyEmbedRPM, "embedding requests per minute (0 = unlimited)",
		func(c *domain.Config) *int { return &c.Embedding.RequestsPerMinute }),
	stringSetting(keyLLMModel, "chat model",
		func(c *domain.Config) *string { return &c.LLM.Model }),
	stringSetting(keyLLMBaseURL, "chat API base URL (OpenAI-compatible)",
		func(c *domain.Config) *string { return &c.LLM.BaseURL }),
	{
		key:    keyOpenAIKey,
		desc:   "OpenAI API key (env " + EnvOpenAIKey + ")",
		kind:   kindString,
		secret: true,
		apply: func(cfg *domain.Config, v any) error {
			s, err := toString(v)
			if err != nil {
				return err
			}
			cfg.Embedding.APIKey = s
			cfg.LLM.APIKey = s
			return nil
		},
		show: func(cfg domain.Config) string { return cfg.Embedding.APIKey },
	},
	{
		key:  keyIndexBackend,
		desc: "vector index backend: sqlite, pinecone, pgvector or memory (env " + EnvIndexBackend + ")",
		kind: kindString,
		apply: func(cfg *domain.Config, v any) error {
			s, err := toString(v)
			if err != nil {
				return err
			}
			backend := domain.IndexBackend(strings.ToLower(s))
			if !backend.IsValid() {
				return fmt.Errorf("unknown backend %q", s)
			}
			cfg.Index.Backend = backend
			return nil
		},
		show: func(cfg domain.Config) string { return cfg.Index.Backend.String() },
	},
	stringSetting(keyIndexPath, "sqlite index file",
		func(c *domain.Config) *string { return &c.Index.Path }),
	stringSetting(keyIndexTable, "pgvector table name",
		func(c *domain.Config) *string { return &c.Index.Table }),
	stringSetting(keyIndexNamespace, "pinecone namespace",
		func(c *domain.Config) *string { return &c.Index.Namespace }),
	secretSetting(keyDatabaseURL, "PostgreSQL connection string (env "+EnvDatabaseURL+")",
		func(c *domain.Config) *string { return &c.Index.DatabaseURL }),
	secretSetting(keyPineconeKey, "Pinecone API key (env "+EnvPineconeKey+")",
		func(c *domain.Config) *string { return &c.Index.PineconeAPIKey }),
	stringSetting(keyPineconeHost, "Pinecone index host (env "+EnvPineconeHost+")",
		func(c *domain.Config) *string { return &c.Index.PineconeHost }),
	stringSetting(keyPineconeIndex, "Pinecone index name (env "+EnvPineconeIndex+")",
		func(c *domain.Config) *string { return &c.Index.PineconeIndex }),
	intSetting(keyTopK, "nearest chunks retrieved per question",
		func(c *domain.Config) *int { return &c.Retrieval.TopK }),
	floatSetting(keyThreshold, "minimum similarity for a chunk to count as relevant",
		func(c *domain.Config) *float64 { return &c.Retrieval.Threshold }),
	stringSetting(keyServerAddr, "HTTP API listen address",
		func(c *domain.Config) *string { return &c.Server.Addr }),
	durationSetting(keyIngestTimeout, "time limit for remotely triggered ingestion",
		func(c *domain.Config) *time.Duration { return &c.Server.IngestTimeout }),
	stringSetting(keyPromptOverrides, "directory of user-edited prompt files",
		func(c *domain.Config) *string { return &c.PromptDir }),
}

func lookupSetting(key string) (setting, bool) {
	for _, s := range settings {
		if s.key == key {
			return s, true
		}
	}
	return setting{}, false
}

// SettingKeys returns every configurable key, sorted.
func SettingKeys() []string {
	keys := make([]string, len(settings))
	for i, s := range settings {
		keys[i] = s.key
	}
	sort.Strings(keys)
	return keys
}

// SettingsService builds domain.Config from the config store and environment.
type SettingsService struct {
	configStore driven.ConfigStore
	getenv      func(string) string
}

// NewSettingsService creates a settings service. getenv is usually os.Getenv.
func NewSettingsService(configStore driven.ConfigStore, getenv func(string) string) *SettingsService {
	if getenv == nil {
		getenv = func(string) string { return "" }
	}
	return &SettingsService{
		configStore: configStore,
		getenv:      getenv,
	}
}

// Config returns the effective configuration.
// A config file value of the wrong type fails with ErrInvalidInput naming the key.
func (s *SettingsService) Config() (domain.Config, error) {
	cfg := domain.DefaultConfig()

	for _, st := range settings {
		val, ok := s.configStore.Get(st.key)
		if !ok {
			continue
		}
		if err := st.apply(&cfg, val); err != nil {
			return domain.Config{}, fmt.Errorf("%w: %s in %s: %w", domain.ErrInvalidInput, st.key, s.configStore.Path(), err)
		}
	}

	_, backendSet := s.configStore.Get(keyIndexBackend)
	if err := s.applyEnv(&cfg, backendSet); err != nil {
		return domain.Config{}, err
	}
	return cfg, nil
}

// applyEnv overlays environment variables. When no backend was chosen
// explicitly and Pinecone credentials are present, Pinecone is selected.
func (s *SettingsService) applyEnv(cfg *domain.Config, backendSet bool) error {
	if v := s.getenv(EnvOpenAIKey); v != "" {
		cfg.Embedding.APIKey = v
		cfg.LLM.APIKey = v
	}
	if v := s.getenv(EnvPineconeKey); v != "" {
		cfg.Index.PineconeAPIKey = v
	}
	if v := s.getenv(EnvPineconeHost); v != "" {
		cfg.Index.PineconeHost = v
	}
	if v := s.getenv(EnvPineconeIndex); v != "" {
		cfg.Index.PineconeIndex = v
	}
	if v := s.getenv(EnvDatabaseURL); v != "" {
		cfg.Index.DatabaseURL = v
	}
	if v := s.getenv(EnvDataDir); v != "" {
		cfg.DataDir = v
	}

	if v := s.getenv(EnvIndexBackend); v != "" {
		backend := domain.IndexBackend(strings.ToLower(v))
		if !backend.IsValid() {
			return fmt.Errorf("%w: %s=%q is not one of sqlite, pinecone, pgvector, memory",
				domain.ErrInvalidInput, EnvIndexBackend, v)
		}
		cfg.Index.Backend = backend
	} else if !backendSet && cfg.Index.PineconeAPIKey != "" && cfg.Index.PineconeHost != "" {
		cfg.Index.Backend = domain.IndexBackendPinecone
	}
	return nil
}

// Set parses value according to key's type and persists it.
func (s *SettingsService) Set(key, value string) error {
	st, ok := lookupSetting(key)
	if !ok {
		return fmt.Errorf("%w: unknown key %q (known: %s)", domain.ErrInvalidInput, key, strings.Join(SettingKeys(), ", "))
	}

	typed, err := parseSettingValue(st.kind, value)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", domain.ErrInvalidInput, key, err)
	}

	probe := domain.DefaultConfig()
	if err := st.apply(&probe, typed); err != nil {
		return fmt.Errorf("%w: %s: %w", domain.ErrInvalidInput, key, err)
	}

	if err := s.configStore.Set(key, typed); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// Unset removes key from the config file.
func (s *SettingsService) Unset(key string) error {
	if _, ok := lookupSetting(key); !ok {
		return fmt.Errorf("%w: unknown key %q", domain.ErrInvalidInput, key)
	}
	if err := s.configStore.Unset(key); err != nil {
		return fmt.Errorf("unset %s: %w", key, err)
	}
	return nil
}

// Entries lists every key with its effective value. Secrets are masked.
func (s *SettingsService) Entries(cfg domain.Config) []driving.SettingEntry {
	out := make([]driving.SettingEntry, 0, len(settings))
	for _, st := range settings {
		val := st.show(cfg)
		if st.secret {
			val = MaskSecret(val)
		}
		out = append(out, driving.SettingEntry{Key: st.key, Value: val, Description: st.desc})
	}
	return out
}

// Path returns the config file path.
func (s *SettingsService) Path() string {
	return s.configStore.Path()
}

// MaskSecret hides all but the edges of a secret. Short secrets are fully masked.
func MaskSecret(v string) string {
	switch {
	case v == "":
		return ""
	case len(v) <= 8:
		return "****"
	default:
		return v[:4] + "****" + v[len(v)-4:]
	}
}

func parseSettingValue(kind settingKind, raw string) (any, error) {
	raw = strings.TrimSpace(raw)
	switch kind {
	case kindInt:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("expected an integer, got %q", raw)
		}
		return n, nil
	case kindFloat:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("expected a number, got %q", raw)
		}
		return f, nil
	case kindDuration:
		if _, err := time.ParseDuration(raw); err != nil {
			return nil, fmt.Errorf("expected a duration like 5m, got %q", raw)
		}
		return raw, nil
	default:
		return raw, nil
	}
}

func toString(v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("expected a string, got %T", v)
	}
	return s, nil
}

func toInt(v any) (int, error) {
	switch n := v.(type) {
	case int64:
		return int(n), nil
	case int:
		return n, nil
	case float64:
		if n != float64(int64(n)) {
			return 0, fmt.Errorf("expected an integer, got %v", n)
		}
		return int(n), nil
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0, fmt.Errorf("expected an integer, got %q", n)
		}
		return i, nil
	default:
		return 0, fmt.Errorf("expected an integer, got %T", v)
	}
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case int64:
		return float64(n), nil
	case int:
		return float64(n), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, fmt.Errorf("expected a number, got %q", n)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("expected a number, got %T", v)
	}
}

// toDuration accepts Go duration strings or whole seconds.
func toDuration(v any) (time.Duration, error) {
	switch d := v.(type) {
	case string:
		parsed, err := time.ParseDuration(strings.TrimSpace(d))
		if err != nil {
			return 0, fmt.Errorf("expected a duration like 5m, got %q", d)
		}
		return parsed, nil
	case int64:
		return time.Duration(d) * time.Second, nil
	case int:
		return time.Duration(d) * time.Second, nil
	default:
		return 0, fmt.Errorf("expected a duration, got %T", v)
	}
}
