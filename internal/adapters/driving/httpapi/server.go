// Package httpapi serves the Codex JSON API used by the web front end:
// chat, ingestion and dataset management.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/adiirockstar/trial-matthew-schramm/internal/core/domain"
	"github.com/adiirockstar/trial-matthew-schramm/internal/core/ports/driving"
	"github.com/adiirockstar/trial-matthew-schramm/internal/logger"
)

// ErrMissingAnswerService is returned when the answer service is not provided.
var ErrMissingAnswerService = errors.New("httpapi: answer service is required")

// Ports aggregates the driving ports the API calls into.
type Ports struct {
	// Answer answers chat messages.
	Answer driving.AnswerService

	// Ingest runs ingestion. Optional; without it the ingest routes return 503.
	Ingest driving.IngestService

	// Dataset manages the data directory. Optional; without it the dataset
	// and upload routes return 503.
	Dataset driving.DatasetService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Answer == nil {
		return ErrMissingAnswerService
	}
	return nil
}

// Server is the HTTP API server.
type Server struct {
	mu            sync.Mutex
	ports         *Ports
	addr          string
	ingestTimeout time.Duration
	server        *http.Server
	listener      net.Listener
}

// Option configures a Server.
type Option func(*Server)

// WithAddr sets the listen address. Default ":3000".
func WithAddr(addr string) Option {
	return func(s *Server) {
		if addr != "" {
			s.addr = addr
		}
	}
}

// WithIngestTimeout bounds a single POST /api/ingest run. Default 5 minutes.
func WithIngestTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.ingestTimeout = d
		}
	}
}

// NewServer creates an API server over the given ports.
func NewServer(ports *Ports, opts ...Option) (*Server, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("validating ports: %w", err)
	}

	s := &Server{
		ports:         ports,
		addr:          domain.DefaultServerAddr,
		ingestTimeout: domain.DefaultIngestTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Handler returns the API routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/chat", s.handleChat)
	mux.HandleFunc("GET /api/ingest", s.handleIngestInfo)
	mux.HandleFunc("POST /api/ingest", s.handleIngest)
	mux.HandleFunc("GET /api/dataset", s.handleListDataset)
	mux.HandleFunc("DELETE /api/dataset/{filename}", s.handleDeleteFile)
	mux.HandleFunc("GET /api/dataset/{filename}/download", s.handleDownloadFile)
	mux.HandleFunc("GET /api/upload", s.handleUploadInfo)
	mux.HandleFunc("POST /api/upload", s.handleUpload)
	return logRequests(mux)
}

// Start begins listening in the background.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.listener = listener

	// Ingestion may run for minutes, so there is no write timeout.
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server stopped: %v", err)
		}
	}()

	logger.Info("API listening on %s", listener.Addr())
	return nil
}

// Addr returns the bound address, or the configured one before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Run starts the server and blocks until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	return s.Stop()
}

// Stop shuts the server down, waiting up to 5 seconds for open requests.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.server.Shutdown(ctx)
	}
	return nil
}

// statusRecorder captures the response status for request logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Debug("%s %s -> %d (%s)", r.Method, r.URL.Path, rec.status, time.Since(start).Round(time.Millisecond))
	})
}
