package config

import (
	"fmt"
	"strconv"
	"time"

	amanerrors "github.com/Aman-CERP/amanrag/internal/errors"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "AMANRAG_"

// envBinding maps one environment variable onto a config field.
type envBinding struct {
	name string
	set  func(c *Config, v string) error
}

func str(field func(*Config) *string) func(*Config, string) error {
	return func(c *Config, v string) error {
		*field(c) = v
		return nil
	}
}

func integer(field func(*Config) *int) func(*Config, string) error {
	return func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		*field(c) = n
		return nil
	}
}

func float(field func(*Config) *float64) func(*Config, string) error {
	return func(c *Config, v string) error {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return err
		}
		*field(c) = f
		return nil
	}
}

func boolean(field func(*Config) *bool) func(*Config, string) error {
	return func(c *Config, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		*field(c) = b
		return nil
	}
}

var envBindings = []envBinding{
	{"K", integer(func(c *Config) *int { return &c.Retrieval.K })},
	{"SEARCH_MULTIPLIER", integer(func(c *Config) *int { return &c.Retrieval.SearchMultiplier })},
	{"VECTOR_WEIGHT", float(func(c *Config) *float64 { return &c.Retrieval.VectorWeight })},
	{"HYBRID", boolean(func(c *Config) *bool { return &c.Retrieval.Hybrid })},
	{"EXPANSION", boolean(func(c *Config) *bool { return &c.Retrieval.Expansion })},
	{"HISTORY_LIMIT", integer(func(c *Config) *int { return &c.Retrieval.HistoryLimit })},
	{"BM25_K1", float(func(c *Config) *float64 { return &c.BM25.K1 })},
	{"BM25_B", float(func(c *Config) *float64 { return &c.BM25.B })},
	{"OLLAMA_HOST", func(c *Config, v string) error {
		c.LLM.Host = v
		c.Embeddings.Host = v
		return nil
	}},
	{"LLM_HOST", str(func(c *Config) *string { return &c.LLM.Host })},
	{"LLM_MODEL", str(func(c *Config) *string { return &c.LLM.Model })},
	{"EXPANSION_MODEL", str(func(c *Config) *string { return &c.LLM.ExpansionModel })},
	{"TEMPERATURE", float(func(c *Config) *float64 { return &c.LLM.Temperature })},
	{"STREAM_TIMEOUT", func(c *Config, v string) error {
		d, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		c.LLM.StreamTimeout = Duration(d)
		return nil
	}},
	{"EMBEDDINGS_PROVIDER", str(func(c *Config) *string { return &c.Embeddings.Provider })},
	{"EMBEDDINGS_HOST", str(func(c *Config) *string { return &c.Embeddings.Host })},
	{"EMBEDDINGS_MODEL", str(func(c *Config) *string { return &c.Embeddings.Model })},
	{"EMBEDDINGS_DIMENSIONS", integer(func(c *Config) *int { return &c.Embeddings.Dimensions })},
	{"SERVER_ADDR", str(func(c *Config) *string { return &c.Server.Addr })},
	{"LOG_LEVEL", str(func(c *Config) *string { return &c.Server.LogLevel })},
	{"DATA_DIR", str(func(c *Config) *string { return &c.Paths.DataDir })},
	{"INBOX_DIR", str(func(c *Config) *string { return &c.Paths.InboxDir })},
}

// applyEnv applies AMANRAG_* overrides read through lookup.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	for _, b := range envBindings {
		name := EnvPrefix + b.name
		v, ok := lookup(name)
		if !ok || v == "" {
			continue
		}
		if err := b.set(c, v); err != nil {
			return amanerrors.ConfigError(fmt.Sprintf("invalid value for %s", name), err).WithDetail("value", v)
		}
	}
	return nil
}
