package embed

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
)

// OllamaConfig configures the Ollama embedder.
type OllamaConfig struct {
	Host       string
	Model      string
	Dimensions int // 0 means probe the model once at construction
	BatchSize  int
}

// OllamaEmbedder embeds text through an Ollama server using langchaingo.
type OllamaEmbedder struct {
	inner embeddings.Embedder
	model string
	dims  int
}

// NewOllamaEmbedder connects to Ollama and resolves the embedding dimension.
func NewOllamaEmbedder(ctx context.Context, cfg OllamaConfig) (*OllamaEmbedder, error) {
	if cfg.Host == "" {
		cfg.Host = DefaultOllamaHost
	}
	if cfg.Model == "" {
		cfg.Model = DefaultOllamaModel
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}

	client, err := ollama.New(ollama.WithServerURL(cfg.Host), ollama.WithModel(cfg.Model))
	if err != nil {
		return nil, fmt.Errorf("create ollama client: %w", err)
	}
	inner, err := embeddings.NewEmbedder(client,
		embeddings.WithStripNewLines(true),
		embeddings.WithBatchSize(cfg.BatchSize))
	if err != nil {
		return nil, fmt.Errorf("create ollama embedder: %w", err)
	}

	return newOllamaEmbedder(ctx, inner, cfg.Model, cfg.Dimensions)
}

func newOllamaEmbedder(ctx context.Context, inner embeddings.Embedder, model string, dims int) (*OllamaEmbedder, error) {
	e := &OllamaEmbedder{inner: inner, model: model, dims: dims}
	if dims > 0 {
		return e, nil
	}

	probeCtx, cancel := context.WithTimeout(ctx, DefaultTimeout)
	defer cancel()
	vec, err := inner.EmbedQuery(probeCtx, "dimension probe")
	if err != nil {
		return nil, fmt.Errorf("probe ollama model %s: %w", model, err)
	}
	if len(vec) == 0 {
		return nil, fmt.Errorf("ollama model %s returned an empty embedding", model)
	}
	e.dims = len(vec)

	slog.Info("ollama_embedder_ready",
		slog.String("model", model),
		slog.Int("dimensions", e.dims))
	return e, nil
}

// Embed generates the embedding for a single text.
func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return make([]float32, e.dims), nil
	}
	vec, err := e.inner.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("ollama embed: %w", err)
	}
	if len(vec) != e.dims {
		return nil, fmt.Errorf("ollama model %s returned %d dimensions, expected %d", e.model, len(vec), e.dims)
	}
	return normalizeVector(vec), nil
}

// EmbedBatch generates embeddings for multiple texts.
func (e *OllamaEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	vecs, err := e.inner.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("ollama embed batch: %w", err)
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("ollama returned %d embeddings for %d texts", len(vecs), len(texts))
	}
	out := make([][]float32, len(vecs))
	for i, v := range vecs {
		if len(v) != e.dims {
			return nil, fmt.Errorf("ollama model %s returned %d dimensions, expected %d", e.model, len(v), e.dims)
		}
		out[i] = normalizeVector(v)
	}
	return out, nil
}

// Dimensions returns the embedding dimension.
func (e *OllamaEmbedder) Dimensions() int { return e.dims }

// ModelName returns the model identifier.
func (e *OllamaEmbedder) ModelName() string { return e.model }

// Close releases resources.
func (e *OllamaEmbedder) Close() error { return nil }
