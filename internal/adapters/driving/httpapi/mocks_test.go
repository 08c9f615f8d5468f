package httpapi

import (
	"context"
	"io"
	"strings"
	"sync"

	"github.com/adiirockstar/trial-matthew-schramm/internal/core/domain"
)

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
type mockIngestService struct {
	report *domain.IngestReport
	err    error
	opts   domain.IngestOptions
	block  bool // wait for ctx and return its error
}

func (m *mockIngestService) Ingest(ctx context.Context, opts domain.IngestOptions) (*domain.IngestReport, error) {
	m.opts = opts
	if m.block {
		<-ctx.Done()
		return m.report, ctx.Err()
	}
	return m.report, m.err
}

func (m *mockIngestService) Status() domain.IngestStatus {
	return domain.IngestStatus{Running: m.block, LastReport: m.report}
}

// mockDatasetService is a mock implementation of driving.DatasetService.
type mockDatasetService struct {
	mu       sync.Mutex
	files    []domain.DatasetFile
	contents map[string]string
	err      error

	deleted  []string
	uploaded map[string]string
}

func (m *mockDatasetService) List(_ context.Context) ([]domain.DatasetFile, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.files, nil
}

func (m *mockDatasetService) Open(_ context.Context, name string) (io.ReadCloser, *domain.DatasetFile, error) {
	if m.err != nil {
		return nil, nil, m.err
	}
	content, ok := m.contents[name]
	if !ok {
		return nil, nil, domain.ErrNotFound
	}
	return io.NopCloser(strings.NewReader(content)), &domain.DatasetFile{
		Name: name,
		Size: int64(len(content)),
		Type: domain.MIMEType(name),
	}, nil
}

func (m *mockDatasetService) Upload(_ context.Context, name string, r io.Reader) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	if !domain.IsAllowedFile(name) {
		return "", domain.ErrUnsupportedType
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.uploaded == nil {
		m.uploaded = map[string]string{}
	}
	m.uploaded[name] = string(data)
	return name, nil
}

func (m *mockDatasetService) Delete(_ context.Context, name string) error {
	if m.err != nil {
		return m.err
	}
	if _, ok := m.contents[name]; !ok {
		return domain.ErrNotFound
	}
	m.deleted = append(m.deleted, name)
	return nil
}
