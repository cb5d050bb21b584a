// Package config loads amanrag configuration.
//
// Sources are applied in order of increasing precedence:
//  1. Built-in defaults
//  2. User config ($XDG_CONFIG_HOME/amanrag/config.yaml or ~/.config/amanrag/config.yaml)
//  3. Project config (.amanrag.yaml or .amanrag.yml in the working directory)
//  4. A .env file in the working directory (never overrides variables already set)
//  5. AMANRAG_* environment variables
//
// The merged result is validated before it is returned.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	amanerrors "github.com/Aman-CERP/amanrag/internal/errors"
)

// CurrentVersion is the config schema version.
const CurrentVersion = 1

// ProjectConfigName is the project config file looked up in the project dir.
const ProjectConfigName = ".amanrag.yaml"

// Config is the complete amanrag configuration.
type Config struct {
	Version    int              `yaml:"version" json:"version"`
	Retrieval  RetrievalConfig  `yaml:"retrieval" json:"retrieval"`
	BM25       BM25Config       `yaml:"bm25" json:"bm25"`
	LLM        LLMConfig        `yaml:"llm" json:"llm"`
	Embeddings EmbeddingsConfig `yaml:"embeddings" json:"embeddings"`
	Vector     VectorConfig     `yaml:"vector" json:"vector"`
	Server     ServerConfig     `yaml:"server" json:"server"`
	Paths      PathsConfig      `yaml:"paths" json:"paths"`
}

// RetrievalConfig holds the default query options. Requests may override them.
type RetrievalConfig struct {
	K                int     `yaml:"k" json:"k"`
	SearchMultiplier int     `yaml:"search_multiplier" json:"search_multiplier"`
	VectorWeight     float64 `yaml:"vector_weight" json:"vector_weight"`
	Hybrid           bool    `yaml:"hybrid" json:"hybrid"`
	Expansion        bool    `yaml:"expansion" json:"expansion"`
	MaxVariants      int     `yaml:"max_variants" json:"max_variants"`
	HistoryLimit     int     `yaml:"history_limit" json:"history_limit"`
}

// BM25Config holds the lexical scoring constants.
type BM25Config struct {
	K1 float64 `yaml:"k1" json:"k1"`
	B  float64 `yaml:"b" json:"b"`
}

// LLMConfig configures the text generator.
type LLMConfig struct {
	Host           string  `yaml:"host" json:"host"`
	Model          string  `yaml:"model" json:"model"`
	ExpansionModel string  `yaml:"expansion_model" json:"expansion_model"`
	Temperature    float64 `yaml:"temperature" json:"temperature"`
	TopP           float64 `yaml:"top_p" json:"top_p"`
	RepeatPenalty  float64 `yaml:"repeat_penalty" json:"repeat_penalty"`
	// StreamTimeout bounds one generation, e.g. "5m". Zero disables the bound.
	StreamTimeout Duration `yaml:"stream_timeout" json:"stream_timeout"`
}

// EmbeddingsConfig configures the embedder used by the semantic index.
type EmbeddingsConfig struct {
	// Provider is "ollama" or "static".
	Provider   string `yaml:"provider" json:"provider"`
	Host       string `yaml:"host" json:"host"`
	Model      string `yaml:"model" json:"model"`
	Dimensions int    `yaml:"dimensions" json:"dimensions"`
	BatchSize  int    `yaml:"batch_size" json:"batch_size"`
	// CacheSize is the number of cached query embeddings; negative disables the cache.
	CacheSize int `yaml:"cache_size" json:"cache_size"`
	// Workers bounds concurrent embedding batches during ingestion.
	Workers int `yaml:"workers" json:"workers"`
}

// VectorConfig tunes the HNSW graph.
type VectorConfig struct {
	M        int `yaml:"m" json:"m"`
	EfSearch int `yaml:"ef_search" json:"ef_search"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Addr     string `yaml:"addr" json:"addr"`
	LogLevel string `yaml:"log_level" json:"log_level"`
}

// PathsConfig locates persistent state.
type PathsConfig struct {
	DataDir  string `yaml:"data_dir" json:"data_dir"`
	InboxDir string `yaml:"inbox_dir" json:"inbox_dir"`
}

// Duration is a time.Duration that reads and writes strings such as "90s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	parsed, err := time.ParseDuration(node.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", node.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// MarshalText renders the duration for JSON.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// NewConfig returns the built-in defaults.
func NewConfig() *Config {
	dataDir := defaultDataDir()
	return &Config{
		Version: CurrentVersion,
		Retrieval: RetrievalConfig{
			K:                5,
			SearchMultiplier: 10,
			VectorWeight:     0.5,
			Hybrid:           true,
			Expansion:        true,
			MaxVariants:      3,
			HistoryLimit:     10,
		},
		BM25: BM25Config{K1: 1.2, B: 0.75},
		LLM: LLMConfig{
			Host:          "http://localhost:11434",
			Model:         "llama3.2",
			Temperature:   0.7,
			StreamTimeout: Duration(5 * time.Minute),
		},
		Embeddings: EmbeddingsConfig{
			Provider:  "ollama",
			Host:      "http://localhost:11434",
			Model:     "nomic-embed-text",
			BatchSize: 32,
			CacheSize: 1000,
			Workers:   4,
		},
		Vector: VectorConfig{M: 16, EfSearch: 64},
		Server: ServerConfig{Addr: "127.0.0.1:8765", LogLevel: "info"},
		Paths: PathsConfig{
			DataDir:  dataDir,
			InboxDir: filepath.Join(dataDir, "inbox"),
		},
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".amanrag", "data")
	}
	return filepath.Join(home, ".amanrag", "data")
}

// UserConfigPath returns the user configuration file path.
func UserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "amanrag", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "amanrag", "config.yaml")
	}
	return filepath.Join(home, ".config", "amanrag", "config.yaml")
}

// Load builds the configuration for the project directory dir.
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if err := cfg.loadYAML(UserConfigPath()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	for _, name := range []string{ProjectConfigName, ".amanrag.yml"} {
		err := cfg.loadYAML(filepath.Join(dir, name))
		if err == nil {
			break
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	if err := godotenv.Load(filepath.Join(dir, ".env")); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, amanerrors.ConfigError("failed to read .env", err)
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	cfg.Paths.DataDir = expandHome(cfg.Paths.DataDir)
	cfg.Paths.InboxDir = expandHome(cfg.Paths.InboxDir)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadYAML decodes path over the current values; keys absent from the file
// keep their previous value.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return err
		}
		return amanerrors.ConfigError("failed to read config file", err).WithDetail("path", path)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return amanerrors.ConfigError("failed to parse config file", err).
			WithDetail("path", path).
			WithSuggestion("Check the YAML syntax of " + path)
	}
	return nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return amanerrors.ConfigError(fmt.Sprintf(format, args...), nil)
	}

	r := c.Retrieval
	switch {
	case r.K < 1 || r.K > 50:
		return invalid("retrieval.k must be between 1 and 50, got %d", r.K)
	case r.SearchMultiplier < 1 || r.SearchMultiplier > 100:
		return invalid("retrieval.search_multiplier must be between 1 and 100, got %d", r.SearchMultiplier)
	case r.VectorWeight < 0 || r.VectorWeight > 1:
		return invalid("retrieval.vector_weight must be between 0 and 1, got %v", r.VectorWeight)
	case r.MaxVariants < 0:
		return invalid("retrieval.max_variants must be non-negative, got %d", r.MaxVariants)
	case r.HistoryLimit < 0:
		return invalid("retrieval.history_limit must be non-negative, got %d", r.HistoryLimit)
	}

	if c.BM25.K1 < 0 {
		return invalid("bm25.k1 must be non-negative, got %v", c.BM25.K1)
	}
	if c.BM25.B < 0 || c.BM25.B > 1 {
		return invalid("bm25.b must be between 0 and 1, got %v", c.BM25.B)
	}

	if c.LLM.Model == "" {
		return invalid("llm.model must be set")
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return invalid("llm.temperature must be between 0 and 2, got %v", c.LLM.Temperature)
	}
	if c.LLM.TopP < 0 || c.LLM.TopP > 1 {
		return invalid("llm.top_p must be between 0 and 1, got %v", c.LLM.TopP)
	}
	if c.LLM.StreamTimeout < 0 {
		return invalid("llm.stream_timeout must be non-negative")
	}

	switch strings.ToLower(c.Embeddings.Provider) {
	case "ollama", "static":
	default:
		return invalid("embeddings.provider must be 'ollama' or 'static', got %q", c.Embeddings.Provider)
	}
	if c.Embeddings.Dimensions < 0 {
		return invalid("embeddings.dimensions must be non-negative, got %d", c.Embeddings.Dimensions)
	}
	if c.Embeddings.Workers < 1 {
		return invalid("embeddings.workers must be at least 1, got %d", c.Embeddings.Workers)
	}

	if c.Vector.M < 2 || c.Vector.EfSearch < 1 {
		return invalid("vector.m must be >= 2 and vector.ef_search >= 1, got %d and %d", c.Vector.M, c.Vector.EfSearch)
	}

	switch strings.ToLower(c.Server.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return invalid("server.log_level must be 'debug', 'info', 'warn' or 'error', got %q", c.Server.LogLevel)
	}

	if c.Paths.DataDir == "" {
		return invalid("paths.data_dir must be set")
	}
	return nil
}

// EncodeYAML writes c as YAML.
func (c *Config) EncodeYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return enc.Close()
}

func expandHome(path string) string {
	rest, ok := strings.CutPrefix(path, "~")
	if !ok || (rest != "" && rest[0] != '/' && rest[0] != filepath.Separator) {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, rest)
}
