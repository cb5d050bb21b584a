package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/Aman-CERP/amanrag/internal/answer"
	"github.com/Aman-CERP/amanrag/internal/config"
	"github.com/Aman-CERP/amanrag/internal/embed"
	"github.com/Aman-CERP/amanrag/internal/index"
	"github.com/Aman-CERP/amanrag/internal/llm"
	"github.com/Aman-CERP/amanrag/internal/search"
	"github.com/Aman-CERP/amanrag/internal/store"
	"github.com/Aman-CERP/amanrag/internal/telemetry"
)

// QueryLogName is the query log database in the data dir.
const QueryLogName = "queries.db"

// app is the wired engine shared by the commands.
type app struct {
	cfg       *config.Config
	lock      *index.DataDirLock
	embedder  embed.Embedder
	generator llm.Generator
	passages  *store.PassageStore
	coord     *index.Coordinator
	retriever *search.Retriever
	assembler *answer.Assembler
	metrics   *telemetry.Metrics
	queryLog  *telemetry.QueryLog
}

// appOptions select the optional parts of the wiring.
type appOptions struct {
	// generator wires the language model; ingestion commands do not need it.
	generator bool
	// embedder overrides the configured embedder, for tests.
	embedder embed.Embedder
	// llm overrides the configured generator, for tests.
	llm llm.Generator
}

// loadConfig loads the layered configuration for the project dir.
func loadConfig(opts *globalOptions) (*config.Config, error) {
	dir, err := filepath.Abs(opts.projectDir)
	if err != nil {
		return nil, fmt.Errorf("resolve project dir: %w", err)
	}
	return config.Load(dir)
}

// openApp locks the data dir and wires stores, indexes and the answer engine.
// The caller must call close.
func openApp(ctx context.Context, cfg *config.Config, ao appOptions) (a *app, err error) {
	start := time.Now()
	a = &app{cfg: cfg, metrics: telemetry.New()}
	defer func() {
		if err != nil {
			a.close()
		}
	}()

	dataDir := cfg.Paths.DataDir
	a.lock = index.NewDataDirLock(dataDir)
	if err := a.lock.TryLock(); err != nil {
		return nil, err
	}

	a.embedder = ao.embedder
	if a.embedder == nil {
		a.embedder, err = embed.NewEmbedder(ctx, embed.Config{
			Provider:   embed.ProviderType(cfg.Embeddings.Provider),
			Host:       cfg.Embeddings.Host,
			Model:      cfg.Embeddings.Model,
			Dimensions: cfg.Embeddings.Dimensions,
			BatchSize:  cfg.Embeddings.BatchSize,
			CacheSize:  cfg.Embeddings.CacheSize,
		})
		if err != nil {
			return nil, err
		}
	}

	a.passages, err = store.OpenPassageStore(filepath.Join(dataDir, index.PassageDBName))
	if err != nil {
		return nil, err
	}
	semantic, err := index.NewSemanticIndex(a.embedder, cfg.Vector.M, cfg.Vector.EfSearch)
	if err != nil {
		return nil, err
	}
	a.coord, err = index.NewCoordinator(a.passages,
		store.NewLexicalIndex(store.BM25Config{K1: cfg.BM25.K1, B: cfg.BM25.B}),
		semantic,
		index.WithDataDir(dataDir),
		index.WithWorkers(cfg.Embeddings.Workers),
		index.WithBatchSize(cfg.Embeddings.BatchSize),
		index.WithRecorder(a.metrics),
	)
	if err != nil {
		_ = semantic.Close()
		return nil, err
	}
	check, err := a.coord.Load(ctx)
	if err != nil {
		return nil, err
	}

	a.queryLog, err = telemetry.OpenQueryLog(filepath.Join(dataDir, QueryLogName))
	if err != nil {
		return nil, err
	}

	if ao.generator {
		if err := a.wireAnswering(ao.llm); err != nil {
			return nil, err
		}
	}

	slog.Info("engine_ready",
		slog.String("data_dir", dataDir),
		slog.Int("passages", check.Checked),
		slog.Int("repaired", len(check.Inconsistencies)),
		slog.String("embedding_model", a.embedder.ModelName()),
		slog.Duration("duration", time.Since(start)))
	return a, nil
}

// wireAnswering builds the generator, retriever and assembler.
func (a *app) wireAnswering(gen llm.Generator) error {
	cfg := a.cfg
	if gen == nil {
		g, err := llm.NewOllamaGenerator(llm.OllamaConfig{Host: cfg.LLM.Host, Model: cfg.LLM.Model})
		if err != nil {
			return err
		}
		gen = g
	}
	a.generator = gen

	expansion := llm.GenerationParams{Model: cfg.LLM.ExpansionModel}
	expander := search.NewQueryExpander(gen,
		search.WithMaxVariants(cfg.Retrieval.MaxVariants),
		search.WithExpansionParams(expansion))

	var err error
	a.retriever, err = search.NewRetriever(a.coord.Lexical(), a.coord.Semantic(),
		search.WithExpander(expander),
		search.WithRecorder(a.metrics))
	if err != nil {
		return err
	}

	a.assembler, err = answer.NewAssembler(a.retriever, gen,
		answer.WithGenerationDefaults(generationDefaults(cfg)),
		answer.WithHistoryLimit(cfg.Retrieval.HistoryLimit),
		answer.WithRecorder(a.metrics))
	return err
}

// generationDefaults maps the llm config section; zero values stay unset.
func generationDefaults(cfg *config.Config) llm.GenerationParams {
	p := llm.GenerationParams{Temperature: llm.Float(cfg.LLM.Temperature)}
	if cfg.LLM.TopP > 0 {
		p.TopP = llm.Float(cfg.LLM.TopP)
	}
	if cfg.LLM.RepeatPenalty > 0 {
		p.RepeatPenalty = llm.Float(cfg.LLM.RepeatPenalty)
	}
	return p
}

// defaultQueryOptions maps the retrieval config section.
func defaultQueryOptions(cfg *config.Config) answer.QueryOptions {
	w := cfg.Retrieval.VectorWeight
	return answer.QueryOptions{
		K:                    cfg.Retrieval.K,
		SearchMultiplier:     cfg.Retrieval.SearchMultiplier,
		UseRAG:               true,
		UseHybridSearch:      cfg.Retrieval.Hybrid,
		VectorWeight:         &w,
		EnableQueryExpansion: cfg.Retrieval.Expansion,
	}
}

// close releases everything openApp acquired, in reverse order.
func (a *app) close() {
	var errs []error
	if a.queryLog != nil {
		errs = append(errs, a.queryLog.Close())
	}
	if a.coord != nil {
		errs = append(errs, a.coord.Close())
	}
	if a.passages != nil {
		errs = append(errs, a.passages.Close())
	}
	if a.embedder != nil {
		errs = append(errs, a.embedder.Close())
	}
	if a.lock != nil {
		errs = append(errs, a.lock.Unlock())
	}
	if err := errors.Join(errs...); err != nil {
		slog.Warn("shutdown_incomplete", slog.String("error", err.Error()))
	}
}

// fileSize returns the size of path, or 0 when it does not exist.
func fileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}
