package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Aman-CERP/amanrag/internal/embed"
	amanerrors "github.com/Aman-CERP/amanrag/internal/errors"
	"github.com/Aman-CERP/amanrag/internal/store"
)

// SemanticIndex pairs an embedder with the HNSW vector store and resolves
// vector hits back to passages. It implements search.VectorIndex.
type SemanticIndex struct {
	embedder embed.Embedder
	vectors  *store.HNSWStore

	mu       sync.RWMutex
	passages map[string]store.Passage
}

// NewSemanticIndex creates an empty semantic index. The vector width is taken
// from the embedder.
func NewSemanticIndex(embedder embed.Embedder, m, efSearch int) (*SemanticIndex, error) {
	if embedder == nil {
		return nil, errors.New("semantic index requires an embedder")
	}
	cfg := store.DefaultVectorStoreConfig(embedder.Dimensions())
	if m > 0 {
		cfg.M = m
	}
	if efSearch > 0 {
		cfg.EfSearch = efSearch
	}
	vectors, err := store.NewHNSWStore(cfg)
	if err != nil {
		return nil, err
	}
	return &SemanticIndex{
		embedder: embedder,
		vectors:  vectors,
		passages: make(map[string]store.Passage),
	}, nil
}

// Search embeds query and returns up to limit nearest passages, nearest first.
// Distance is the cosine distance reported by the vector store.
func (s *SemanticIndex) Search(ctx context.Context, query string, limit int) ([]store.VectorHit, error) {
	if limit <= 0 {
		return []store.VectorHit{}, nil
	}
	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, amanerrors.New(amanerrors.ErrCodeEmbeddingFailed, "embed query", err)
	}
	results, err := s.vectors.Search(ctx, vec, limit)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	hits := make([]store.VectorHit, 0, len(results))
	for _, r := range results {
		p, ok := s.passages[r.ID]
		if !ok {
			// vector without a stored passage; the consistency check removes these
			continue
		}
		hits = append(hits, store.VectorHit{Passage: p, Distance: float64(r.Distance)})
	}
	return hits, nil
}

// Index adds vectors for passages; vectors[i] belongs to passages[i].
func (s *SemanticIndex) Index(ctx context.Context, passages []store.StoredPassage, vectors [][]float32) error {
	if len(passages) != len(vectors) {
		return fmt.Errorf("passages and vectors length mismatch: %d vs %d", len(passages), len(vectors))
	}
	ids := make([]string, len(passages))
	for i, p := range passages {
		ids[i] = p.ID
	}
	if err := s.vectors.Add(ctx, ids, vectors); err != nil {
		return err
	}
	s.Remember(passages)
	return nil
}

// Remember registers passages whose vectors are already in the store, as
// after loading a saved graph.
func (s *SemanticIndex) Remember(passages []store.StoredPassage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range passages {
		s.passages[p.ID] = p.Passage
	}
}

// Delete removes passages and their vectors.
func (s *SemanticIndex) Delete(ctx context.Context, ids []string) error {
	if err := s.vectors.Delete(ctx, ids); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		delete(s.passages, id)
	}
	return nil
}

// Reset drops every vector and passage.
func (s *SemanticIndex) Reset() error {
	if err := s.vectors.Reset(); err != nil {
		return err
	}
	s.mu.Lock()
	s.passages = make(map[string]store.Passage)
	s.mu.Unlock()
	return nil
}

// Count returns the number of live vectors.
func (s *SemanticIndex) Count() int {
	return s.vectors.Count()
}

// IDs returns the IDs of all live vectors.
func (s *SemanticIndex) IDs() []string {
	return s.vectors.IDs()
}

// Dimensions returns the vector width.
func (s *SemanticIndex) Dimensions() int {
	return s.vectors.Dimensions()
}

// Model returns the embedding model name.
func (s *SemanticIndex) Model() string {
	return s.embedder.ModelName()
}

// Save persists the vector graph to path.
func (s *SemanticIndex) Save(path string) error {
	return s.vectors.Save(path)
}

// Load restores the vector graph from path. A graph written with a different
// vector width is discarded so the caller can re-embed.
func (s *SemanticIndex) Load(path string) error {
	err := s.vectors.Load(path)
	var mismatch store.ErrDimensionMismatch
	if errors.As(err, &mismatch) {
		slog.Warn("vector_graph_discarded",
			slog.String("path", path),
			slog.Int("expected", mismatch.Expected),
			slog.Int("found", mismatch.Got))
		return s.vectors.Reset()
	}
	return err
}

// Close releases the vector store.
func (s *SemanticIndex) Close() error {
	return s.vectors.Close()
}
