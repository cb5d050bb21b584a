// Package server exposes the answer engine and the passage index over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Aman-CERP/amanrag/internal/answer"
	"github.com/Aman-CERP/amanrag/internal/index"
	"github.com/Aman-CERP/amanrag/internal/store"
	"github.com/Aman-CERP/amanrag/internal/telemetry"
)

// Engine answers questions; *answer.Assembler implements it.
type Engine interface {
	Query(ctx context.Context, question string, opts answer.QueryOptions) (*answer.Answer, error)
	QueryStream(ctx context.Context, question string, opts answer.QueryOptions) iter.Seq2[string, error]
}

// Index mutates and describes the passage set; *index.Coordinator implements it.
type Index interface {
	Add(ctx context.Context, passages []store.Passage) ([]store.StoredPassage, error)
	DeleteSource(ctx context.Context, sourceID string) (int, error)
	Clear(ctx context.Context) error
	Sources(ctx context.Context) ([]store.SourceInfo, error)
	Tags(ctx context.Context) ([]string, error)
	Status(ctx context.Context) (*index.Status, error)
}

// QueryLog records answered questions; *telemetry.QueryLog implements it.
type QueryLog interface {
	Record(ctx context.Context, question, mode string, sources int) error
	Stats(ctx context.Context, limit int) (*telemetry.QueryStats, error)
}

// Metrics observes requests and serves the scrape endpoint; *telemetry.Metrics implements it.
type Metrics interface {
	RecordHTTP(method, route string, status int, d time.Duration)
	Handler() http.Handler
}

// ModelLister lists the generation models; *llm.ModelCatalog implements it.
type ModelLister interface {
	Models(ctx context.Context) ([]string, error)
}

// Config holds the server settings.
type Config struct {
	Addr string
	// Defaults are the query options a request body starts from.
	Defaults answer.QueryOptions
	// StreamTimeout bounds one query. Zero disables the bound.
	StreamTimeout time.Duration
	Version       string
}

// Option configures a Server.
type Option func(*Server)

// WithQueryLog records every answered question.
func WithQueryLog(l QueryLog) Option {
	return func(s *Server) { s.queryLog = l }
}

// WithMetrics enables request metrics and GET /metrics.
func WithMetrics(m Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithModels enables GET /models and the ollama_available health field.
func WithModels(m ModelLister) Option {
	return func(s *Server) { s.models = m }
}

// Server is the HTTP API.
type Server struct {
	engine   Engine
	index    Index
	queryLog QueryLog
	metrics  Metrics
	models   ModelLister
	config   Config
	started  time.Time

	httpServer *http.Server
}

// New creates a server. engine and index are required.
func New(engine Engine, idx Index, cfg Config, opts ...Option) (*Server, error) {
	if engine == nil || idx == nil {
		return nil, errors.New("server requires an engine and an index")
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8765"
	}
	s := &Server{
		engine:  engine,
		index:   idx,
		config:  cfg,
		started: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Router builds the route table.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(middleware.Recoverer)
	r.Use(s.observe)

	r.Post("/query", s.handleQuery)
	r.Post("/query/stream", s.handleQueryStream)
	r.Post("/passages", s.handleAddPassages)
	r.Delete("/passages", s.handleClear)
	r.Get("/sources", s.handleSources)
	r.Delete("/sources/{id}", s.handleDeleteSource)
	r.Get("/tags", s.handleTags)
	r.Get("/status", s.handleStatus)
	r.Get("/stats", s.handleStats)
	r.Get("/models", s.handleModels)
	r.Get("/health", s.handleHealth)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}
	return r
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.config.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.httpServer = &http.Server{
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http_server_started", slog.String("addr", ln.Addr().String()))
		errCh <- s.httpServer.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := s.httpServer.Shutdown(shutdownCtx)
		slog.Info("http_server_stopped")
		return err
	}
}
