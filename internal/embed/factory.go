package embed

import (
	"context"
	"fmt"
	"strings"
)

// ProviderType represents an embedding provider.
type ProviderType string

const (
	// ProviderOllama embeds through an Ollama server.
	ProviderOllama ProviderType = "ollama"

	// ProviderStatic uses hash-based embeddings; works offline.
	ProviderStatic ProviderType = "static"
)

// Config selects and configures an embedder.
type Config struct {
	Provider   ProviderType
	Host       string
	Model      string
	Dimensions int
	BatchSize  int
	// CacheSize < 0 disables the LRU cache; 0 uses the default size.
	CacheSize int
}

// NewEmbedder creates the embedder described by cfg, wrapped in an LRU cache
// unless caching is disabled. An unavailable Ollama server is an error; there
// is no silent fallback to static embeddings.
func NewEmbedder(ctx context.Context, cfg Config) (Embedder, error) {
	var (
		embedder Embedder
		err      error
	)

	switch ProviderType(strings.ToLower(string(cfg.Provider))) {
	case ProviderStatic:
		embedder = NewStaticEmbedder(cfg.Dimensions)
	case ProviderOllama, "":
		embedder, err = NewOllamaEmbedder(ctx, OllamaConfig{
			Host:       cfg.Host,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
			BatchSize:  cfg.BatchSize,
		})
		if err != nil {
			return nil, fmt.Errorf("ollama unavailable: %w\n\nTo fix:\n  1. Start Ollama: ollama serve\n  2. Pull the model: ollama pull %s\n  3. Or use offline embeddings: embeddings.provider: static", err, orDefault(cfg.Model, DefaultOllamaModel))
		}
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}

	if cfg.CacheSize < 0 {
		return embedder, nil
	}
	return NewCachedEmbedder(embedder, cfg.CacheSize), nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
