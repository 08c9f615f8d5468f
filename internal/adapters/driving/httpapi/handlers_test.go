package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adiirockstar/trial-matthew-schramm/internal/core/domain"
)

func newTestHandler(t *testing.T, ports *Ports, opts ...Option) http.Handler {
	t.Helper()
	if ports.Answer == nil {
		ports.Answer = &mockAnswerService{}
	}
	server, err := NewServer(ports, opts...)
	require.NoError(t, err)
	return server.Handler()
}

func do(h http.Handler, method, target string, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestNewServer(t *testing.T) {
	t.Run("requires answer service", func(t *testing.T) {
		server, err := NewServer(&Ports{})
		assert.Nil(t, server)
		assert.ErrorIs(t, err, ErrMissingAnswerService)
	})

	t.Run("defaults", func(t *testing.T) {
		server, err := NewServer(&Ports{Answer: &mockAnswerService{}})
		require.NoError(t, err)
		assert.Equal(t, ":3000", server.Addr())
		assert.Equal(t, domain.DefaultIngestTimeout, server.ingestTimeout)
	})

	t.Run("options", func(t *testing.T) {
		server, err := NewServer(&Ports{Answer: &mockAnswerService{}},
			WithAddr("127.0.0.1:9000"), WithIngestTimeout(time.Minute))
		require.NoError(t, err)
		assert.Equal(t, "127.0.0.1:9000", server.Addr())
		assert.Equal(t, time.Minute, server.ingestTimeout)
	})
}

func TestHandleChat(t *testing.T) {
	t.Run("returns answer and sources", func(t *testing.T) {
		answers := &mockAnswerService{answer: &domain.Answer{
			Answer:  "Go, mostly.\nSources: CV",
			Sources: []string{"CV", "notes"},
		}}
		h := newTestHandler(t, &Ports{Answer: answers})

		rec := do(h, http.MethodPost, "/api/chat", `{"message":"What do you write?","mode":"Humble Brag"}`)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		assert.JSONEq(t, `{"answer":"Go, mostly.\nSources: CV","sources":["CV","notes"]}`, rec.Body.String())
		assert.Equal(t, "What do you write?", answers.question)
		assert.Equal(t, domain.ModeHumbleBrag, answers.mode)
	})

	t.Run("missing mode defaults to interview", func(t *testing.T) {
		answers := &mockAnswerService{answer: &domain.Answer{Sources: []string{}}}
		h := newTestHandler(t, &Ports{Answer: answers})

		rec := do(h, http.MethodPost, "/api/chat", `{"message":"hi"}`)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, domain.ModeInterview, answers.mode)
		assert.JSONEq(t, `{"answer":"","sources":[]}`, rec.Body.String())
	})

	tests := []struct {
		name string
		body string
	}{
		{"empty body", ""},
		{"missing message", `{"mode":"story"}`},
		{"empty message", `{"message":""}`},
		{"non-string message", `{"message":42}`},
		{"malformed json", `{"message":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(t, &Ports{})
			rec := do(h, http.MethodPost, "/api/chat", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.JSONEq(t, `{"error":"message required"}`, rec.Body.String())
		})
	}

	t.Run("whitespace message rejected by service", func(t *testing.T) {
		h := newTestHandler(t, &Ports{Answer: &mockAnswerService{err: domain.ErrInvalidInput}})
		rec := do(h, http.MethodPost, "/api/chat", `{"message":"   "}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("upstream failure", func(t *testing.T) {
		h := newTestHandler(t, &Ports{Answer: &mockAnswerService{err: errors.New("openai: 503")}})

		rec := do(h, http.MethodPost, "/api/chat", `{"message":"question"}`)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		body := decode(t, rec)
		assert.Equal(t, "chat_error", body["error"])
		assert.Contains(t, body["detail"], "openai: 503")
	})

	t.Run("wrong method", func(t *testing.T) {
		h := newTestHandler(t, &Ports{})
		rec := do(h, http.MethodGet, "/api/chat", "")
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})
}

func TestHandleIngest(t *testing.T) {
	t.Run("GET describes the endpoint", func(t *testing.T) {
		ingest := &mockIngestService{report: &domain.IngestReport{RunID: "run-1"}}
		h := newTestHandler(t, &Ports{Ingest: ingest})

		rec := do(h, http.MethodGet, "/api/ingest", "")

		require.Equal(t, http.StatusOK, rec.Code)
		body := decode(t, rec)
		assert.Equal(t, "Ingestion endpoint. Use POST to trigger ingestion.", body["message"])
		assert.Contains(t, body, "status")
	})

	t.Run("POST without body runs a full ingest", func(t *testing.T) {
		ingest := &mockIngestService{report: &domain.IngestReport{Documents: 2, Chunks: 5, Upserted: 5}}
		h := newTestHandler(t, &Ports{Ingest: ingest})

		rec := do(h, http.MethodPost, "/api/ingest", "")

		require.Equal(t, http.StatusOK, rec.Code)
		body := decode(t, rec)
		assert.Equal(t, true, body["success"])
		assert.Equal(t, "Ingestion completed successfully", body["message"])
		report := body["report"].(map[string]any)
		assert.Equal(t, float64(5), report["upserted"])
		assert.Equal(t, domain.IngestOptions{}, ingest.opts)
	})

	t.Run("POST passes options", func(t *testing.T) {
		ingest := &mockIngestService{report: &domain.IngestReport{}}
		h := newTestHandler(t, &Ports{Ingest: ingest})

		rec := do(h, http.MethodPost, "/api/ingest", `{"dryRun":true,"incremental":true,"file":"cv.md"}`)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, domain.IngestOptions{DryRun: true, Incremental: true, File: "cv.md"}, ingest.opts)
	})

	t.Run("invalid body", func(t *testing.T) {
		h := newTestHandler(t, &Ports{Ingest: &mockIngestService{}})
		rec := do(h, http.MethodPost, "/api/ingest", `{"dryRun":"yes"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("conflict when a run is active", func(t *testing.T) {
		h := newTestHandler(t, &Ports{Ingest: &mockIngestService{err: domain.ErrIngestInProgress}})

		rec := do(h, http.MethodPost, "/api/ingest", "")

		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, false, decode(t, rec)["success"])
	})

	t.Run("batch failure", func(t *testing.T) {
		batchErr := &domain.BatchError{Batch: 2, Completed: 32, Total: 70, Err: errors.New("rate limited")}
		h := newTestHandler(t, &Ports{Ingest: &mockIngestService{
			report: &domain.IngestReport{Upserted: 32},
			err:    batchErr,
		}})

		rec := do(h, http.MethodPost, "/api/ingest", "")

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		body := decode(t, rec)
		assert.Equal(t, false, body["success"])
		assert.Contains(t, body["error"], "batch 2 failed after 32/70 chunks")
		assert.NotNil(t, body["report"])
	})

	t.Run("timeout", func(t *testing.T) {
		h := newTestHandler(t, &Ports{Ingest: &mockIngestService{block: true}},
			WithIngestTimeout(10*time.Millisecond))

		rec := do(h, http.MethodPost, "/api/ingest", "")

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		body := decode(t, rec)
		assert.Equal(t, false, body["success"])
		assert.Equal(t, "Ingestion process timed out", body["error"])
	})

	t.Run("not configured", func(t *testing.T) {
		h := newTestHandler(t, &Ports{})
		rec := do(h, http.MethodPost, "/api/ingest", "")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestHandleListDataset(t *testing.T) {
	t.Run("lists files", func(t *testing.T) {
		modified := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
		dataset := &mockDatasetService{files: []domain.DatasetFile{
			{Name: "cv.pdf", Size: 2048, Type: "application/pdf", LastModified: modified, Path: "data/cv.pdf"},
		}}
		h := newTestHandler(t, &Ports{Dataset: dataset})

		rec := do(h, http.MethodGet, "/api/dataset", "")

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"files":[{"name":"cv.pdf","size":2048,"type":"application/pdf",
			"lastModified":"2024-05-01T12:00:00Z","path":"data/cv.pdf"}]}`, rec.Body.String())
	})

	t.Run("empty dataset", func(t *testing.T) {
		h := newTestHandler(t, &Ports{Dataset: &mockDatasetService{files: []domain.DatasetFile{}}})
		rec := do(h, http.MethodGet, "/api/dataset", "")
		assert.JSONEq(t, `{"files":[]}`, rec.Body.String())
	})

	t.Run("read failure", func(t *testing.T) {
		h := newTestHandler(t, &Ports{Dataset: &mockDatasetService{err: errors.New("permission denied")}})
		rec := do(h, http.MethodGet, "/api/dataset", "")
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.JSONEq(t, `{"error":"Failed to read dataset"}`, rec.Body.String())
	})
}

func TestHandleDeleteFile(t *testing.T) {
	t.Run("deletes file", func(t *testing.T) {
		dataset := &mockDatasetService{contents: map[string]string{"My CV.md": "cv"}}
		h := newTestHandler(t, &Ports{Dataset: dataset})

		rec := do(h, http.MethodDelete, "/api/dataset/My%20CV.md", "")

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"success":true,"message":"File deleted successfully"}`, rec.Body.String())
		assert.Equal(t, []string{"My CV.md"}, dataset.deleted)
	})

	t.Run("missing file", func(t *testing.T) {
		h := newTestHandler(t, &Ports{Dataset: &mockDatasetService{}})
		rec := do(h, http.MethodDelete, "/api/dataset/nope.md", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.JSONEq(t, `{"error":"File not found"}`, rec.Body.String())
	})

	t.Run("invalid path", func(t *testing.T) {
		h := newTestHandler(t, &Ports{Dataset: &mockDatasetService{err: domain.ErrInvalidPath}})
		rec := do(h, http.MethodDelete, "/api/dataset/.secret.md", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, `{"error":"Invalid file path"}`, rec.Body.String())
	})

	t.Run("failure", func(t *testing.T) {
		h := newTestHandler(t, &Ports{Dataset: &mockDatasetService{err: errors.New("index offline")}})
		rec := do(h, http.MethodDelete, "/api/dataset/cv.md", "")
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestHandleDownloadFile(t *testing.T) {
	dataset := &mockDatasetService{contents: map[string]string{
		"cv.pdf":   "%PDF-1.4 body",
		"notes.md": "# Notes",
	}}
	h := newTestHandler(t, &Ports{Dataset: dataset})

	t.Run("pdf", func(t *testing.T) {
		rec := do(h, http.MethodGet, "/api/dataset/cv.pdf/download", "")

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
		assert.Equal(t, `attachment; filename="cv.pdf"`, rec.Header().Get("Content-Disposition"))
		assert.Equal(t, "13", rec.Header().Get("Content-Length"))
		assert.Equal(t, "%PDF-1.4 body", rec.Body.String())
	})

	t.Run("markdown", func(t *testing.T) {
		rec := do(h, http.MethodGet, "/api/dataset/notes.md/download", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "text/markdown", rec.Header().Get("Content-Type"))
	})

	t.Run("missing file", func(t *testing.T) {
		rec := do(h, http.MethodGet, "/api/dataset/nope.md/download", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func multipartBody(t *testing.T, field, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if field != "" {
		fw, err := mw.CreateFormFile(field, filename)
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	} else {
		require.NoError(t, mw.WriteField("other", "value"))
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func upload(h http.Handler, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandleUpload(t *testing.T) {
	t.Run("GET describes the endpoint", func(t *testing.T) {
		h := newTestHandler(t, &Ports{Dataset: &mockDatasetService{}})
		rec := do(h, http.MethodGet, "/api/upload", "")
		assert.JSONEq(t, `{"message":"File upload endpoint. Use POST to upload files."}`, rec.Body.String())
	})

	t.Run("stores file", func(t *testing.T) {
		dataset := &mockDatasetService{}
		h := newTestHandler(t, &Ports{Dataset: dataset})
		body, ct := multipartBody(t, "file", "notes.md", []byte("# Notes"))

		rec := upload(h, body, ct)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"success":true,"filename":"notes.md","message":"File uploaded successfully"}`,
			rec.Body.String())
		assert.Equal(t, "# Notes", dataset.uploaded["notes.md"])
	})

	t.Run("no file", func(t *testing.T) {
		h := newTestHandler(t, &Ports{Dataset: &mockDatasetService{}})
		body, ct := multipartBody(t, "", "", nil)

		rec := upload(h, body, ct)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, `{"error":"No file provided"}`, rec.Body.String())
	})

	t.Run("invalid type", func(t *testing.T) {
		h := newTestHandler(t, &Ports{Dataset: &mockDatasetService{}})
		body, ct := multipartBody(t, "file", "photo.png", []byte("png"))

		rec := upload(h, body, ct)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, decode(t, rec)["error"], "Invalid file type")
	})

	t.Run("too large", func(t *testing.T) {
		h := newTestHandler(t, &Ports{Dataset: &mockDatasetService{}})
		body, ct := multipartBody(t, "file", "big.txt", make([]byte, domain.MaxUploadSize+1))

		rec := upload(h, body, ct)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "File too large. Maximum size is 50MB.", decode(t, rec)["error"])
	})

	t.Run("storage failure", func(t *testing.T) {
		h := newTestHandler(t, &Ports{Dataset: &mockDatasetService{err: errors.New("disk full")}})
		body, ct := multipartBody(t, "file", "notes.md", []byte("x"))

		rec := upload(h, body, ct)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.JSONEq(t, `{"error":"Failed to upload file"}`, rec.Body.String())
	})
}
