// Package index keeps the passage store, the lexical index and the semantic
// index in step. Every mutation goes through the Coordinator, which persists
// passages first and then rebuilds the lexical snapshot from the store.
package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	amanerrors "github.com/Aman-CERP/amanrag/internal/errors"
	"github.com/Aman-CERP/amanrag/internal/store"
)

const (
	// VectorFileName is the vector graph file inside the data directory.
	VectorFileName = "vectors.hnsw"

	// PassageDBName is the passage database file inside the data directory.
	PassageDBName = "passages.db"

	// DefaultWorkers is the default embedding pool size.
	DefaultWorkers = 4

	// DefaultBatchSize is the number of passages per embedding request.
	DefaultBatchSize = 32
)

// Passages is the persistent passage set; *store.PassageStore implements it.
type Passages interface {
	Add(ctx context.Context, passages []store.Passage) ([]store.StoredPassage, error)
	All(ctx context.Context) ([]store.StoredPassage, error)
	DeleteSource(ctx context.Context, sourceID string) ([]string, error)
	Clear(ctx context.Context) error
	Sources(ctx context.Context) ([]store.SourceInfo, error)
	Tags(ctx context.Context) ([]string, error)
}

// Recorder receives lexical rebuild observations.
type Recorder interface {
	RecordRebuild(outcome string, documents int)
}

type nopRecorder struct{}

func (nopRecorder) RecordRebuild(string, int) {}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithDataDir persists the vector graph under dir. Without it the graph
// lives in memory only.
func WithDataDir(dir string) Option {
	return func(c *Coordinator) {
		if dir != "" {
			c.vectorPath = filepath.Join(dir, VectorFileName)
		}
	}
}

// WithWorkers sets the embedding pool size.
func WithWorkers(n int) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithBatchSize sets the number of passages per embedding request.
func WithBatchSize(n int) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.batchSize = n
		}
	}
}

// WithRecorder sets the rebuild metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(c *Coordinator) {
		if r != nil {
			c.recorder = r
		}
	}
}

// Coordinator owns the passage store and both search indexes.
type Coordinator struct {
	passages Passages
	lexical  *store.LexicalIndex
	semantic *SemanticIndex
	recorder Recorder

	pool       *ants.Pool
	workers    int
	batchSize  int
	vectorPath string

	// serializes mutations; searches never take it
	mu sync.Mutex
}

// NewCoordinator creates a coordinator. Call Load before serving queries.
func NewCoordinator(passages Passages, lexical *store.LexicalIndex, semantic *SemanticIndex, opts ...Option) (*Coordinator, error) {
	if passages == nil || lexical == nil || semantic == nil {
		return nil, errors.New("coordinator requires a passage store, a lexical index and a semantic index")
	}

	c := &Coordinator{
		passages:  passages,
		lexical:   lexical,
		semantic:  semantic,
		recorder:  nopRecorder{},
		workers:   DefaultWorkers,
		batchSize: DefaultBatchSize,
	}
	for _, opt := range opts {
		opt(c)
	}

	pool, err := ants.NewPool(c.workers)
	if err != nil {
		return nil, fmt.Errorf("create embedding pool: %w", err)
	}
	c.pool = pool
	return c, nil
}

// Lexical returns the lexical index, the lexical side of retrieval.
func (c *Coordinator) Lexical() *store.LexicalIndex {
	return c.lexical
}

// Semantic returns the semantic index, the vector side of retrieval.
func (c *Coordinator) Semantic() *SemanticIndex {
	return c.semantic
}

// Add validates, embeds and persists passages, then rebuilds the lexical
// index. Passages are embedded before anything is written, so an embedding
// failure leaves the stores untouched. Cancellation is honored only until the
// passages are committed; after that the indexes are always brought in step.
func (c *Coordinator) Add(ctx context.Context, passages []store.Passage) ([]store.StoredPassage, error) {
	if err := validatePassages(passages); err != nil {
		return nil, err
	}
	if len(passages) == 0 {
		return []store.StoredPassage{}, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	start := time.Now()
	texts := make([]string, len(passages))
	for i, p := range passages {
		texts[i] = p.Text
	}
	vectors, err := c.embed(ctx, texts)
	if err != nil {
		return nil, err
	}

	stored, err := c.passages.Add(ctx, passages)
	if err != nil {
		return nil, amanerrors.StoreError("store passages", err)
	}
	ctx = context.WithoutCancel(ctx)

	if err := c.semantic.Index(ctx, stored, vectors); err != nil {
		// the store already holds the passages; Load repairs the missing vectors
		return nil, amanerrors.StoreError("index passage vectors", err)
	}
	c.saveVectors()

	if err := c.onPassagesAdded(ctx, passages); err != nil {
		return nil, err
	}

	slog.Info("passages_added",
		slog.Int("count", len(stored)),
		slog.Duration("duration", time.Since(start)))
	return stored, nil
}

// OnPassagesAdded handles an external "passages added" event: the lexical
// index is rebuilt from the full stored passage set.
func (c *Coordinator) OnPassagesAdded(ctx context.Context, added []store.Passage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.onPassagesAdded(ctx, added)
}

func (c *Coordinator) onPassagesAdded(ctx context.Context, added []store.Passage) error {
	all, err := c.allPassages(ctx)
	if err != nil {
		return err
	}
	slog.Debug("passages_added_event", slog.Int("added", len(added)), slog.Int("total", len(all)))
	return c.rebuild(ctx, all)
}

// OnPassageSetChanged handles an external "passage set changed" event:
// passages is the complete new set and the lexical index is rebuilt from it.
func (c *Coordinator) OnPassageSetChanged(ctx context.Context, passages []store.Passage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rebuild(ctx, passages)
}

// DeleteSource removes every passage of sourceID from all stores and returns
// how many were removed. Once the store delete commits, cancellation of ctx
// no longer stops the index updates.
func (c *Coordinator) DeleteSource(ctx context.Context, sourceID string) (int, error) {
	if strings.TrimSpace(sourceID) == "" {
		return 0, amanerrors.ValidationError("source id is required", nil)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	ids, err := c.passages.DeleteSource(ctx, sourceID)
	if err != nil {
		return 0, amanerrors.StoreError("delete source", err)
	}
	if len(ids) == 0 {
		return 0, amanerrors.New(amanerrors.ErrCodeFileNotFound, "source not found", nil).
			WithDetail("source", sourceID)
	}
	ctx = context.WithoutCancel(ctx)

	if err := c.semantic.Delete(ctx, ids); err != nil {
		return 0, amanerrors.StoreError("delete source vectors", err)
	}
	c.saveVectors()

	all, err := c.allPassages(ctx)
	if err != nil {
		return 0, err
	}
	if err := c.rebuild(ctx, all); err != nil {
		return 0, err
	}

	slog.Info("source_deleted", slog.String("source", sourceID), slog.Int("passages", len(ids)))
	return len(ids), nil
}

// Clear removes every passage. The lexical index returns to its absent state.
func (c *Coordinator) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.passages.Clear(ctx); err != nil {
		return amanerrors.StoreError("clear passages", err)
	}
	ctx = context.WithoutCancel(ctx)

	if err := c.semantic.Reset(); err != nil {
		return amanerrors.StoreError("clear vectors", err)
	}
	c.saveVectors()

	if err := c.rebuild(ctx, nil); err != nil {
		return err
	}
	slog.Info("passages_cleared")
	return nil
}

// Load restores both indexes from disk at startup and repairs any drift
// between the passage store and the vector graph.
func (c *Coordinator) Load(ctx context.Context) (*CheckResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.vectorPath != "" {
		if err := c.semantic.Load(c.vectorPath); err != nil {
			slog.Warn("vector_graph_load_failed",
				slog.String("path", c.vectorPath),
				slog.String("error", err.Error()))
			if err := c.semantic.Reset(); err != nil {
				return nil, amanerrors.StoreError("reset vectors", err)
			}
		}
	}

	stored, err := c.passages.All(ctx)
	if err != nil {
		return nil, amanerrors.StoreError("load passages", err)
	}
	c.semantic.Remember(stored)

	passages := make([]store.Passage, len(stored))
	for i, p := range stored {
		passages[i] = p.Passage
	}
	if err := c.rebuild(ctx, passages); err != nil {
		return nil, err
	}

	result, err := c.repair(ctx)
	if err != nil {
		return nil, err
	}

	slog.Info("index_loaded",
		slog.Int("passages", len(stored)),
		slog.Int("vectors", c.semantic.Count()),
		slog.Int("repaired", len(result.Inconsistencies)))
	return result, nil
}

// Check compares the stores without changing them.
func (c *Coordinator) Check(ctx context.Context) (*CheckResult, error) {
	return NewConsistencyChecker(c.passages, c.semantic, c.lexical).Check(ctx)
}

// repair re-embeds passages missing from the vector graph, drops orphaned
// vectors and rebuilds a drifted lexical index. Callers hold c.mu.
func (c *Coordinator) repair(ctx context.Context) (*CheckResult, error) {
	result, err := c.Check(ctx)
	if err != nil {
		return nil, amanerrors.StoreError("consistency check", err)
	}

	if orphans := result.IDs(InconsistencyOrphanVector); len(orphans) > 0 {
		if err := c.semantic.Delete(ctx, orphans); err != nil {
			return nil, amanerrors.StoreError("delete orphan vectors", err)
		}
		slog.Info("orphan_vectors_deleted", slog.Int("count", len(orphans)))
	}

	all, err := c.passages.All(ctx)
	if err != nil {
		return nil, amanerrors.StoreError("load passages", err)
	}

	if missing := result.IDs(InconsistencyMissingVector); len(missing) > 0 {
		want := make(map[string]bool, len(missing))
		for _, id := range missing {
			want[id] = true
		}
		var todo []store.StoredPassage
		var texts []string
		for _, p := range all {
			if want[p.ID] {
				todo = append(todo, p)
				texts = append(texts, p.Text)
			}
		}
		vectors, err := c.embed(ctx, texts)
		if err != nil {
			return nil, err
		}
		if err := c.semantic.Index(ctx, todo, vectors); err != nil {
			return nil, amanerrors.StoreError("index missing vectors", err)
		}
		slog.Info("missing_vectors_embedded", slog.Int("count", len(todo)))
	}

	if !result.Consistent() {
		c.saveVectors()
	}

	if result.Count(InconsistencyLexicalDrift) > 0 {
		passages := make([]store.Passage, len(all))
		for i, p := range all {
			passages[i] = p.Passage
		}
		if err := c.rebuild(ctx, passages); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// Status is a snapshot of the index state for status surfaces.
type Status struct {
	Passages   int                `json:"passages"`
	Vectors    int                `json:"vectors"`
	Lexical    store.IndexStats   `json:"lexical"`
	Sources    []store.SourceInfo `json:"sources"`
	Model      string             `json:"embedding_model"`
	Dimensions int                `json:"dimensions"`
}

// Status reports passage, vector and lexical counts.
func (c *Coordinator) Status(ctx context.Context) (*Status, error) {
	sources, err := c.passages.Sources(ctx)
	if err != nil {
		return nil, amanerrors.StoreError("list sources", err)
	}
	total := 0
	for _, s := range sources {
		total += s.Passages
	}
	return &Status{
		Passages:   total,
		Vectors:    c.semantic.Count(),
		Lexical:    c.lexical.Stats(),
		Sources:    sources,
		Model:      c.semantic.Model(),
		Dimensions: c.semantic.Dimensions(),
	}, nil
}

// Sources lists stored sources.
func (c *Coordinator) Sources(ctx context.Context) ([]store.SourceInfo, error) {
	sources, err := c.passages.Sources(ctx)
	if err != nil {
		return nil, amanerrors.StoreError("list sources", err)
	}
	return sources, nil
}

// Tags lists every tag used by a stored passage.
func (c *Coordinator) Tags(ctx context.Context) ([]string, error) {
	tags, err := c.passages.Tags(ctx)
	if err != nil {
		return nil, amanerrors.StoreError("list tags", err)
	}
	return tags, nil
}

// Close releases the embedding pool and saves the vector graph. The passage
// store is owned by the caller.
func (c *Coordinator) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pool.Release()
	if c.vectorPath != "" {
		if err := c.semantic.Save(c.vectorPath); err != nil {
			return fmt.Errorf("save vectors: %w", err)
		}
	}
	return c.semantic.Close()
}

// rebuild republishes the lexical snapshot. Callers hold c.mu.
func (c *Coordinator) rebuild(ctx context.Context, passages []store.Passage) error {
	start := time.Now()
	if err := c.lexical.Rebuild(ctx, passages); err != nil {
		c.recorder.RecordRebuild("failed", len(passages))
		slog.Error("lexical_index_rebuild_failed",
			slog.Int("passages", len(passages)),
			slog.String("error", err.Error()))
		return err
	}
	c.recorder.RecordRebuild("ok", len(passages))
	slog.Info("lexical_index_rebuilt",
		slog.Int("passages", len(passages)),
		slog.Duration("duration", time.Since(start)))
	return nil
}

func (c *Coordinator) allPassages(ctx context.Context) ([]store.Passage, error) {
	stored, err := c.passages.All(ctx)
	if err != nil {
		return nil, amanerrors.StoreError("load passages", err)
	}
	out := make([]store.Passage, len(stored))
	for i, p := range stored {
		out[i] = p.Passage
	}
	return out, nil
}

// embed runs batches of texts through the embedding pool and returns the
// vectors in input order.
func (c *Coordinator) embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	fail := func(err error) {
		mu.Lock()
		defer mu.Unlock()
		if firstErr == nil {
			firstErr = err
		}
	}

	for start := 0; start < len(texts); start += c.batchSize {
		if err := ctx.Err(); err != nil {
			fail(err)
			break
		}
		end := min(start+c.batchSize, len(texts))
		wg.Add(1)
		err := c.pool.Submit(func() {
			defer wg.Done()
			vecs, err := c.semantic.embedder.EmbedBatch(ctx, texts[start:end])
			if err == nil && len(vecs) != end-start {
				err = fmt.Errorf("embedder returned %d vectors for %d texts", len(vecs), end-start)
			}
			if err != nil {
				fail(fmt.Errorf("batch %d-%d: %w", start, end, err))
				return
			}
			copy(out[start:end], vecs)
		})
		if err != nil {
			wg.Done()
			fail(err)
			break
		}
	}
	wg.Wait()

	if firstErr != nil {
		slog.Warn("passage_embedding_failed",
			slog.Int("passages", len(texts)),
			slog.String("error", firstErr.Error()))
		return nil, amanerrors.New(amanerrors.ErrCodeEmbeddingFailed, "embed passages", firstErr).
			WithSuggestion("Check that the embedding model is available: ollama pull " + c.semantic.Model())
	}
	return out, nil
}

func (c *Coordinator) saveVectors() {
	if c.vectorPath == "" {
		return
	}
	if err := c.semantic.Save(c.vectorPath); err != nil {
		slog.Warn("vector_graph_save_failed",
			slog.String("path", c.vectorPath),
			slog.String("error", err.Error()))
	}
}

func validatePassages(passages []store.Passage) error {
	for i, p := range passages {
		if strings.TrimSpace(p.Text) == "" {
			return amanerrors.ValidationError(fmt.Sprintf("passage %d has empty text", i), nil)
		}
		if strings.TrimSpace(p.Metadata.SourceID) == "" {
			return amanerrors.ValidationError(fmt.Sprintf("passage %d is missing a source", i), nil)
		}
	}
	return nil
}
