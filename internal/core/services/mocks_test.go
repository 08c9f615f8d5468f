package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/adiirockstar/trial-matthew-schramm/internal/core/domain"
	"github.com/adiirockstar/trial-matthew-schramm/internal/core/ports/driven"
)

// --- Mock implementations ---

// mockEmbeddingService implements driven.EmbeddingService for testing.
// Every text embeds to the same vector unless vectorFor is set.
type mockEmbeddingService struct {
	mu        sync.Mutex
	embedding []float32
	vectorFor func(text string) []float32
	embedErr  error
	failOn    int // 1-based EmbedBatch call that fails; 0 never
	dims      int

	embedCalls int
	batchCalls int
	batchSizes []int
}

func (m *mockEmbeddingService) vector(text string) []float32 {
	if m.vectorFor != nil {
		return m.vectorFor(text)
	}
	return m.embedding
}

func (m *mockEmbeddingService) Embed(_ context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.embedCalls++
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	return m.vector(text), nil
}

func (m *mockEmbeddingService) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batchCalls++
	m.batchSizes = append(m.batchSizes, len(texts))
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	if m.failOn > 0 && m.batchCalls == m.failOn {
		return nil, fmt.Errorf("%w: boom", domain.ErrEmbeddingUnavailable)
	}
	result := make([][]float32, len(texts))
	for i, t := range texts {
		result[i] = m.vector(t)
	}
	return result, nil
}

func (m *mockEmbeddingService) Dimensions() int {
	if m.dims > 0 {
		return m.dims
	}
	return len(m.embedding)
}

func (m *mockEmbeddingService) ModelName() string {
	return "mock-embed"
}

func (m *mockEmbeddingService) Ping(_ context.Context) error {
	return nil
}

func (m *mockEmbeddingService) Close() error {
	return nil
}

// mockVectorIndex implements driven.VectorIndex for testing.
type mockVectorIndex struct {
	mu        sync.Mutex
	matches   []domain.RetrievalMatch
	queryErr  error
	upsertErr error
	deleteErr error
	dim       int
	dimErr    error

	queries  int
	lastTopK int
	upserted []domain.VectorRecord
	deleted  []string
}

func (m *mockVectorIndex) Upsert(_ context.Context, records []domain.VectorRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.upserted = append(m.upserted, records...)
	return nil
}

func (m *mockVectorIndex) Query(_ context.Context, _ []float32, topK int) ([]domain.RetrievalMatch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries++
	m.lastTopK = topK
	if m.queryErr != nil {
		return nil, m.queryErr
	}
	if topK < len(m.matches) {
		return m.matches[:topK], nil
	}
	return m.matches, nil
}

func (m *mockVectorIndex) DeleteByFilename(_ context.Context, filename string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deleted = append(m.deleted, filename)
	return nil
}

func (m *mockVectorIndex) Dimension(_ context.Context) (int, error) {
	return m.dim, m.dimErr
}

func (m *mockVectorIndex) Close() error {
	return nil
}

func (m *mockVectorIndex) upsertedIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, len(m.upserted))
	for i, r := range m.upserted {
		ids[i] = r.ID
	}
	return ids
}

// mockLLMService implements driven.LLMService for testing.
// It records every call and replies with a fixed answer.
type mockLLMService struct {
	reply   string
	chatErr error

	calls    int
	messages []driven.ChatMessage
	opts     driven.ChatOptions
}

func (m *mockLLMService) Chat(_ context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	m.calls++
	m.messages = messages
	m.opts = opts
	if m.chatErr != nil {
		return "", m.chatErr
	}
	return m.reply, nil
}

func (m *mockLLMService) ModelName() string {
	return "mock-llm"
}

func (m *mockLLMService) Ping(_ context.Context) error {
	return nil
}

func (m *mockLLMService) Close() error {
	return nil
}

// mockTrackingStore implements driven.TrackingStore for testing.
type mockTrackingStore struct {
	mu      sync.Mutex
	hashes  map[string]string
	loadErr error
	saveErr error
	saves   int
}

func newMockTrackingStore(seed map[string]string) *mockTrackingStore {
	hashes := make(map[string]string, len(seed))
	for k, v := range seed {
		hashes[k] = v
	}
	return &mockTrackingStore{hashes: hashes}
}

func (m *mockTrackingStore) Load(_ context.Context) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	out := make(map[string]string, len(m.hashes))
	for k, v := range m.hashes {
		out[k] = v
	}
	return out, nil
}

func (m *mockTrackingStore) Save(_ context.Context, hashes map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.hashes = make(map[string]string, len(hashes))
	for k, v := range hashes {
		m.hashes[k] = v
	}
	return nil
}

func (m *mockTrackingStore) snapshot() map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]string, len(m.hashes))
	for k, v := range m.hashes {
		out[k] = v
	}
	return out
}

// mockLoaderRegistry implements driven.LoaderRegistry by reading files
// verbatim. Files whose content starts with "FAIL" fail to load.
type mockLoaderRegistry struct{}

func (mockLoaderRegistry) Register(_ driven.ContentLoader) {}

func (mockLoaderRegistry) Get(filename string) (driven.ContentLoader, error) {
	if !domain.IsAllowedFile(filename) {
		return nil, domain.ErrUnsupportedType
	}
	return nil, nil
}

func (mockLoaderRegistry) Load(_ context.Context, path string) (*domain.Document, error) {
	name := filepath.Base(path)
	ft, ok := domain.DetectFileType(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedType, name)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if strings.HasPrefix(string(data), "FAIL") {
		return nil, fmt.Errorf("parse %s: corrupt", name)
	}
	return &domain.Document{
		Filename: name,
		Path:     path,
		Type:     ft,
		Content:  string(data),
		Metadata: domain.InferMetadata(name),
	}, nil
}

// mockPromptStore implements driven.PromptStore for testing.
type mockPromptStore struct {
	prompts map[string]string
	reloads int
}

func (m *mockPromptStore) Load(name string) (string, error) {
	if p, ok := m.prompts[name]; ok {
		return p, nil
	}
	return "", domain.ErrNotFound
}

func (m *mockPromptStore) Reload() {
	m.reloads++
}

// wordChunker implements driven.Chunker by emitting one chunk per
// whitespace-separated word, which keeps chunk counts easy to predict.
type wordChunker struct{}

func (wordChunker) Chunk(text, filename string, md domain.Metadata) []domain.Chunk {
	words := strings.Fields(text)
	chunks := make([]domain.Chunk, len(words))
	for i, w := range words {
		chunks[i] = domain.Chunk{
			ID:       domain.ChunkID(filename, i),
			Text:     w,
			Index:    i,
			Total:    len(words),
			Filename: filename,
			Metadata: md,
		}
	}
	return chunks
}

// --- Test helpers ---

// writeFiles creates name -> content files in dir.
func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}
}

// gatedEmbedding blocks EmbedBatch until release is closed, signalling
// entered once a call is waiting.
type gatedEmbedding struct {
	*mockEmbeddingService
	entered chan struct{}
	release chan struct{}
}

func newGatedEmbedding() *gatedEmbedding {
	return &gatedEmbedding{
		mockEmbeddingService: &mockEmbeddingService{embedding: []float32{0.1, 0.2, 0.3}},
		entered:              make(chan struct{}, 1),
		release:              make(chan struct{}),
	}
}

func (g *gatedEmbedding) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	select {
	case g.entered <- struct{}{}:
	default:
	}
	<-g.release
	return g.mockEmbeddingService.EmbedBatch(ctx, texts)
}

// stubRunLock stands in for a lock shared with another process.
type stubRunLock struct {
	mu      sync.Mutex
	other   bool // held elsewhere
	held    bool
	err     error
	unlocks int
}

func (l *stubRunLock) TryLock() (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return false, l.err
	}
	if l.other || l.held {
		return false, nil
	}
	l.held = true
	return true, nil
}

func (l *stubRunLock) Unlock() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.held = false
	l.unlocks++
	return nil
}

func (l *stubRunLock) releaseOther() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.other = false
}
