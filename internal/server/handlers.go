package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Aman-CERP/amanrag/internal/answer"
	amanerrors "github.com/Aman-CERP/amanrag/internal/errors"
	"github.com/Aman-CERP/amanrag/internal/llm"
	"github.com/Aman-CERP/amanrag/internal/store"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 32 << 20

type queryRequest struct {
	Question string `json:"question"`
	answer.QueryOptions
}

type queryResponse struct {
	*answer.Answer
	RequestID string `json:"request_id"`
}

// decodeQuery reads a query body on top of the configured defaults.
func (s *Server) decodeQuery(w http.ResponseWriter, r *http.Request) (queryRequest, error) {
	req := queryRequest{QueryOptions: cloneOptions(s.config.Defaults)}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		return req, badRequest("invalid request body", err)
	}
	return req, nil
}

// cloneOptions copies o so a decoded body cannot write through shared pointers.
func cloneOptions(o answer.QueryOptions) answer.QueryOptions {
	if o.VectorWeight != nil {
		w := *o.VectorWeight
		o.VectorWeight = &w
	}
	o.ChatHistory = nil
	o.Tags = nil
	o.Generation = llm.GenerationParams{}
	return o
}

func (s *Server) queryContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.config.StreamTimeout > 0 {
		return context.WithTimeout(ctx, s.config.StreamTimeout)
	}
	return context.WithCancel(ctx)
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	req, err := s.decodeQuery(w, r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	ctx, cancel := s.queryContext(r.Context())
	defer cancel()

	ans, err := s.engine.Query(ctx, req.Question, req.QueryOptions)
	if err != nil {
		respondError(w, r, err)
		return
	}
	s.recordQuery(r.Context(), req.Question, ans.Mode, len(ans.Provenance.Sources))
	respondJSON(w, http.StatusOK, queryResponse{Answer: ans, RequestID: RequestIDFrom(r.Context())})
}

func (s *Server) recordQuery(ctx context.Context, question, mode string, sources int) {
	if s.queryLog == nil {
		return
	}
	if err := s.queryLog.Record(context.WithoutCancel(ctx), question, mode, sources); err != nil {
		slog.Warn("query_log_record_failed", slog.String("error", err.Error()))
	}
}

type addPassagesRequest struct {
	Passages []store.PassageRecord `json:"passages"`
}

type addPassagesResponse struct {
	Added int      `json:"added"`
	IDs   []string `json:"ids"`
}

func (s *Server) handleAddPassages(w http.ResponseWriter, r *http.Request) {
	var req addPassagesRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		respondError(w, r, badRequest("invalid request body", err))
		return
	}
	if len(req.Passages) == 0 {
		respondError(w, r, badRequest("passages must not be empty", nil))
		return
	}

	passages := make([]store.Passage, len(req.Passages))
	for i, rec := range req.Passages {
		if err := rec.Validate(); err != nil {
			respondError(w, r, badRequest(fmt.Sprintf("passages[%d]: %v", i, err), nil))
			return
		}
		passages[i] = rec.Passage()
	}

	stored, err := s.index.Add(r.Context(), passages)
	if err != nil {
		respondError(w, r, err)
		return
	}
	ids := make([]string, len(stored))
	for i, p := range stored {
		ids[i] = p.ID
	}
	respondJSON(w, http.StatusCreated, addPassagesResponse{Added: len(stored), IDs: ids})
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if err := s.index.Clear(r.Context()); err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (s *Server) handleSources(w http.ResponseWriter, r *http.Request) {
	sources, err := s.index.Sources(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	if sources == nil {
		sources = []store.SourceInfo{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"sources": sources})
}

func (s *Server) handleDeleteSource(w http.ResponseWriter, r *http.Request) {
	id, err := url.PathUnescape(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, badRequest("invalid source id", err))
		return
	}
	n, err := s.index.DeleteSource(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"source": id, "deleted": n})
}

func (s *Server) handleTags(w http.ResponseWriter, r *http.Request) {
	tags, err := s.index.Tags(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	if tags == nil {
		tags = []string{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"tags": tags})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.index.Status(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"index":   status,
		"version": s.config.Version,
		"uptime":  time.Since(s.started).Round(time.Second).String(),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.queryLog == nil {
		respondError(w, r, amanerrors.New(amanerrors.ErrCodeFileNotFound, "query log is disabled", nil))
		return
	}
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 1000 {
			respondError(w, r, badRequest("limit must be between 1 and 1000", err))
			return
		}
		limit = n
	}
	stats, err := s.queryLog.Stats(r.Context(), limit)
	if err != nil {
		respondError(w, r, amanerrors.StoreError("read query stats", err))
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

// healthProbeTimeout bounds the model server check in GET /health.
const healthProbeTimeout = 2 * time.Second

type healthResponse struct {
	Status          string `json:"status"`
	Version         string `json:"version"`
	OllamaAvailable bool   `json:"ollama_available"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Version: s.config.Version}
	if s.models != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthProbeTimeout)
		defer cancel()
		_, err := s.models.Models(ctx)
		resp.OllamaAvailable = err == nil
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	if s.models == nil {
		respondError(w, r, amanerrors.New(amanerrors.ErrCodeFileNotFound, "model listing is disabled", nil))
		return
	}
	models, err := s.models.Models(r.Context())
	if err != nil {
		respondError(w, r, amanerrors.New(amanerrors.ErrCodeModelServerDown, "model server unavailable", err).
			WithSuggestion("Start Ollama with 'ollama serve'"))
		return
	}
	respondJSON(w, http.StatusOK, map[string][]string{"models": models})
}
