// Package llm adapts the generative language model to the engine: a Generator
// interface with whole-string and streamed generation, and an Ollama
// implementation built on langchaingo.
package llm

import (
	"context"
	"fmt"
	"iter"
	"log/slog"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
)

// Generator produces text from a prompt.
type Generator interface {
	// Generate returns the complete response.
	Generate(ctx context.Context, prompt string, params GenerationParams) (string, error)

	// GenerateStream yields response fragments in emission order. A non-nil
	// error is yielded at most once and ends the sequence. Stopping iteration
	// early cancels the underlying request.
	GenerateStream(ctx context.Context, prompt string, params GenerationParams) iter.Seq2[string, error]
}

// OllamaConfig configures the Ollama generator.
type OllamaConfig struct {
	Host  string
	Model string
}

// OllamaGenerator generates text through an Ollama server.
type OllamaGenerator struct {
	model llms.Model
	name  string
}

// NewOllamaGenerator creates a generator for the given server and default model.
func NewOllamaGenerator(cfg OllamaConfig) (*OllamaGenerator, error) {
	opts := []ollama.Option{ollama.WithModel(cfg.Model)}
	if cfg.Host != "" {
		opts = append(opts, ollama.WithServerURL(cfg.Host))
	}
	client, err := ollama.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create ollama client: %w", err)
	}
	return NewModelGenerator(client, cfg.Model), nil
}

// NewModelGenerator wraps any langchaingo model.
func NewModelGenerator(model llms.Model, name string) *OllamaGenerator {
	return &OllamaGenerator{model: model, name: name}
}

// ModelName returns the default model name.
func (g *OllamaGenerator) ModelName() string {
	return g.name
}

// Generate returns the complete response for prompt.
func (g *OllamaGenerator) Generate(ctx context.Context, prompt string, params GenerationParams) (string, error) {
	out, err := llms.GenerateFromSinglePrompt(ctx, g.model, prompt, params.CallOptions()...)
	if err != nil {
		return "", fmt.Errorf("generate with %s: %w", g.modelFor(params), err)
	}
	return out, nil
}

// GenerateStream streams the response for prompt fragment by fragment.
func (g *OllamaGenerator) GenerateStream(ctx context.Context, prompt string, params GenerationParams) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		chunks := make(chan string)
		var genErr error

		go func() {
			defer close(chunks)
			opts := append(params.CallOptions(), llms.WithStreamingFunc(func(ctx context.Context, chunk []byte) error {
				if err := ctx.Err(); err != nil {
					return err
				}
				if len(chunk) == 0 {
					return nil
				}
				select {
				case chunks <- string(chunk):
					return nil
				case <-ctx.Done():
					return ctx.Err()
				}
			}))
			_, genErr = llms.GenerateFromSinglePrompt(ctx, g.model, prompt, opts...)
		}()

		for chunk := range chunks {
			if !yield(chunk, nil) {
				cancel()
				for range chunks {
				}
				slog.Debug("generation_stream_abandoned", slog.String("model", g.modelFor(params)))
				return
			}
		}

		if genErr != nil {
			yield("", fmt.Errorf("stream with %s: %w", g.modelFor(params), genErr))
		}
	}
}

func (g *OllamaGenerator) modelFor(params GenerationParams) string {
	if params.Model != "" {
		return params.Model
	}
	return g.name
}

var _ Generator = (*OllamaGenerator)(nil)
