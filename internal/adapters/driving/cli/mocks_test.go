package cli

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/adiirockstar/trial-matthew-schramm/internal/core/domain"
	"github.com/adiirockstar/trial-matthew-schramm/internal/core/ports/driving"
)

// fakeBootstrap records what commands asked for and hands out canned services.
type fakeBootstrap struct {
	settings     *mockSettingsService
	services     Services
	servicesErr  error
	settingsPath string
	cfg          domain.Config
	needs        []domain.Requirement
	closed       int
}

func newFakeBootstrap() *fakeBootstrap {
	return &fakeBootstrap{settings: newMockSettingsService()}
}

func (b *fakeBootstrap) Settings(path string) (driving.SettingsService, error) {
	b.settingsPath = path
	return b.settings, nil
}

func (b *fakeBootstrap) Services(_ context.Context, cfg domain.Config, needs domain.Requirement) (*Services, error) {
	b.cfg = cfg
	b.needs = append(b.needs, needs)
	if b.servicesErr != nil {
		return nil, b.servicesErr
	}
	svc := b.services
	svc.Close = func() { b.closed++ }
	return &svc, nil
}

// mockSettingsService is a mock implementation of driving.SettingsService.
type mockSettingsService struct {
	cfg     domain.Config
	err     error
	setErr  error
	values  map[string]string
	entries []driving.SettingEntry
}

func newMockSettingsService() *mockSettingsService {
	cfg := domain.DefaultConfig()
	cfg.Embedding.APIKey = "sk-test-1234567890"
	cfg.LLM.APIKey = "sk-test-1234567890"
	return &mockSettingsService{cfg: cfg, values: map[string]string{}}
}

func (m *mockSettingsService) Config() (domain.Config, error) {
	return m.cfg, m.err
}

func (m *mockSettingsService) Set(key, value string) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.values[key] = value
	return nil
}

func (m *mockSettingsService) Unset(key string) error {
	if m.setErr != nil {
		return m.setErr
	}
	delete(m.values, key)
	return nil
}

func (m *mockSettingsService) Entries(cfg domain.Config) []driving.SettingEntry {
	if m.entries != nil {
		return m.entries
	}
	return []driving.SettingEntry{
		{Key: "data_dir", Value: cfg.DataDir},
		{Key: "index.backend", Value: cfg.Index.Backend.String()},
		{Key: "openai.api_key", Value: "sk-t****7890"},
		{Key: "pinecone.host", Value: ""},
	}
}

func (m *mockSettingsService) Path() string {
	return "/home/test/.codex/config.toml"
}

// mockAnswerService is a mock implementation of driving.AnswerService.
type mockAnswerService struct {
	answer   *domain.Answer
	err      error
	question string
	mode     domain.Mode
}

func (m *mockAnswerService) Answer(_ context.Context, question string, mode domain.Mode) (*domain.Answer, error) {
	m.question = question
	m.mode = mode
	return m.answer, m.err
}

// mockIngestService is a mock implementation of driving.IngestService.
// events are replayed through the progress callback.
type mockIngestService struct {
	report *domain.IngestReport
	err    error
	events []domain.IngestEvent
	opts   domain.IngestOptions
}

func (m *mockIngestService) Ingest(_ context.Context, opts domain.IngestOptions) (*domain.IngestReport, error) {
	m.opts = opts
	for _, ev := range m.events {
		opts.Emit(ev)
	}
	return m.report, m.err
}

func (m *mockIngestService) Status() domain.IngestStatus {
	return domain.IngestStatus{LastReport: m.report}
}

// mockDatasetService is a mock implementation of driving.DatasetService.
type mockDatasetService struct {
	files    []domain.DatasetFile
	err      error
	deleted  []string
	uploaded map[string]string
}

func (m *mockDatasetService) List(_ context.Context) ([]domain.DatasetFile, error) {
	return m.files, m.err
}

func (m *mockDatasetService) Open(_ context.Context, _ string) (io.ReadCloser, *domain.DatasetFile, error) {
	return nil, nil, domain.ErrNotFound
}

func (m *mockDatasetService) Upload(_ context.Context, name string, r io.Reader) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	if m.uploaded == nil {
		m.uploaded = map[string]string{}
	}
	m.uploaded[name] = string(data)
	return strings.ReplaceAll(name, " ", "_"), nil
}

func (m *mockDatasetService) Delete(_ context.Context, name string) error {
	if m.err != nil {
		return m.err
	}
	m.deleted = append(m.deleted, name)
	return nil
}

// mockWatchService is a mock implementation of driving.WatchService.
// It reports each canned run and returns.
type mockWatchService struct {
	reports []*domain.IngestReport
	errs    []error
}

func (m *mockWatchService) Watch(_ context.Context, onRun func(*domain.IngestReport, error)) error {
	for i, r := range m.reports {
		var err error
		if i < len(m.errs) {
			err = m.errs[i]
		}
		onRun(r, err)
	}
	return nil
}

// syncBuffer is a bytes.Buffer safe for a command running in another goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// resetCLI restores flag values and package state between command runs.
func resetCLI(b Bootstrap) {
	bootstrap = b
	settingsService = nil

	verbose = false
	configPath = ""
	dataDirFlag = ""
	indexFlag = ""

	ingestDryRun = false
	ingestClear = false
	ingestIncremental = false
	ingestFile = ""

	askMode = string(domain.DefaultMode)
	askJSON = false

	serveAddr = ""
	_ = mcpServeCmd.Flags().Set("port", "0")
}

// setContext gives cmd and all its descendants ctx.
func setContext(ctx context.Context, cmd *cobra.Command) {
	cmd.SetContext(ctx)
	for _, c := range cmd.Commands() {
		setContext(ctx, c)
	}
}

// executeContext runs the root command with args and the given stdin.
func executeContext(ctx context.Context, b Bootstrap, out io.Writer, stdin string, args ...string) error {
	resetCLI(b)
	setContext(ctx, rootCmd)

	rootCmd.SetOut(out)
	rootCmd.SetErr(out)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
	}()

	return rootCmd.ExecuteContext(ctx)
}

// execute runs the root command with args and returns everything it printed.
func execute(b Bootstrap, args ...string) (string, error) {
	buf := new(bytes.Buffer)
	err := executeContext(context.Background(), b, buf, "", args...)
	return buf.String(), err
}
