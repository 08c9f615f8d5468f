package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/adiirockstar/trial-matthew-schramm/internal/core/domain"
	"github.com/adiirockstar/trial-matthew-schramm/internal/logger"
)

// multipartOverhead is the allowance for multipart framing on top of the file size.
const multipartOverhead = 1 << 20

type chatRequest struct {
	Message string `json:"message"`
	Mode    string `json:"mode"`
}

type errorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

type ingestResponse struct {
	Success bool                 `json:"success"`
	Message string               `json:"message,omitempty"`
	Error   string               `json:"error,omitempty"`
	Report  *domain.IngestReport `json:"report,omitempty"`
}

type actionResponse struct {
	Success  bool   `json:"success"`
	Filename string `json:"filename,omitempty"`
	Message  string `json:"message"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Message == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "message required"})
		return
	}

	answer, err := s.ports.Answer.Answer(r.Context(), req.Message, domain.ParseMode(req.Mode))
	if errors.Is(err, domain.ErrInvalidInput) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "message required"})
		return
	}
	if err != nil {
		logger.Error("Chat failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "chat_error", Detail: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, answer)
}

func (s *Server) handleIngestInfo(w http.ResponseWriter, _ *http.Request) {
	resp := map[string]any{
		"message": "Ingestion endpoint. Use POST to trigger ingestion.",
	}
	if s.ports.Ingest != nil {
		resp["status"] = s.ports.Ingest.Status()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	if s.ports.Ingest == nil {
		writeJSON(w, http.StatusServiceUnavailable, ingestResponse{Error: "ingestion is not configured"})
		return
	}

	var opts domain.IngestOptions
	if err := json.NewDecoder(r.Body).Decode(&opts); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, ingestResponse{Error: "invalid request body"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.ingestTimeout)
	defer cancel()

	report, err := s.ports.Ingest.Ingest(ctx, opts)
	switch {
	case errors.Is(err, domain.ErrIngestInProgress):
		writeJSON(w, http.StatusConflict, ingestResponse{Error: "Ingestion already in progress"})
	case errors.Is(err, context.DeadlineExceeded):
		logger.Warn("Ingestion timed out after %s", s.ingestTimeout)
		writeJSON(w, http.StatusInternalServerError, ingestResponse{Error: "Ingestion process timed out", Report: report})
	case err != nil:
		logger.Error("Ingestion failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, ingestResponse{Error: err.Error(), Report: report})
	default:
		writeJSON(w, http.StatusOK, ingestResponse{
			Success: true,
			Message: "Ingestion completed successfully",
			Report:  report,
		})
	}
}

func (s *Server) handleListDataset(w http.ResponseWriter, r *http.Request) {
	if s.ports.Dataset == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "dataset is not configured"})
		return
	}

	files, err := s.ports.Dataset.List(r.Context())
	if err != nil {
		logger.Error("Error reading dataset: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Failed to read dataset"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"files": files})
}

func (s *Server) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
	if s.ports.Dataset == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "dataset is not configured"})
		return
	}

	err := s.ports.Dataset.Delete(r.Context(), r.PathValue("filename"))
	switch {
	case errors.Is(err, domain.ErrInvalidPath):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid file path"})
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "File not found"})
	case err != nil:
		logger.Error("Error deleting file: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Failed to delete file"})
	default:
		writeJSON(w, http.StatusOK, actionResponse{Success: true, Message: "File deleted successfully"})
	}
}

func (s *Server) handleDownloadFile(w http.ResponseWriter, r *http.Request) {
	if s.ports.Dataset == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "dataset is not configured"})
		return
	}

	rc, file, err := s.ports.Dataset.Open(r.Context(), r.PathValue("filename"))
	switch {
	case errors.Is(err, domain.ErrInvalidPath):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid file path"})
		return
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "File not found"})
		return
	case err != nil:
		logger.Error("Error downloading file: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Failed to download file"})
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", file.Type)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Name))
	w.Header().Set("Content-Length", strconv.FormatInt(file.Size, 10))
	if _, err := io.Copy(w, rc); err != nil {
		logger.Warn("Download of %s interrupted: %v", file.Name, err)
	}
}

func (s *Server) handleUploadInfo(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "File upload endpoint. Use POST to upload files.",
	})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if s.ports.Dataset == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "dataset is not configured"})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, domain.MaxUploadSize+multipartOverhead)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "File too large. Maximum size is 50MB."})
			return
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "No file provided"})
		return
	}
	defer file.Close()

	if header.Size > domain.MaxUploadSize {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "File too large. Maximum size is 50MB."})
		return
	}

	name, err := s.ports.Dataset.Upload(r.Context(), header.Filename, file)
	switch {
	case errors.Is(err, domain.ErrUnsupportedType):
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error: "Invalid file type. Only PDF, Markdown, and Text files are allowed.",
		})
	case errors.Is(err, domain.ErrFileTooLarge):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "File too large. Maximum size is 50MB."})
	case err != nil:
		logger.Error("Upload error: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Failed to upload file"})
	default:
		writeJSON(w, http.StatusOK, actionResponse{
			Success:  true,
			Filename: name,
			Message:  "File uploaded successfully",
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("Failed to write response: %v", err)
	}
}
