package mcp

import (
	"context"
	"io"
	"strings"

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
	// block, when set, waits for ctx to finish and returns its error.
	block bool
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
	return domain.IngestStatus{LastReport: m.report}
}

// mockDatasetService is a mock implementation of driving.DatasetService.
type mockDatasetService struct {
	files    []domain.DatasetFile
	contents map[string]string
	err      error
}

func (m *mockDatasetService) List(_ context.Context) ([]domain.DatasetFile, error) {
	return m.files, m.err
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

func (m *mockDatasetService) Upload(_ context.Context, name string, _ io.Reader) (string, error) {
	return name, m.err
}

func (m *mockDatasetService) Delete(_ context.Context, _ string) error {
	return m.err
}
