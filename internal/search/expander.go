package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	amanerrors "github.com/Aman-CERP/amanrag/internal/errors"
	"github.com/Aman-CERP/amanrag/internal/llm"
)

// DefaultMaxVariants is the number of generated variants kept after the original question.
const DefaultMaxVariants = 3

const expansionPromptTemplate = `Question: "%s"

Write %d related search keywords or rephrasings that would help find passages answering this question.
Output one per line. Output only the keywords, no explanations.`

// QueryExpander turns one question into several search queries using a text generator.
type QueryExpander struct {
	generator   llm.Generator
	maxVariants int
	params      llm.GenerationParams
}

// QueryExpanderOption configures the query expander.
type QueryExpanderOption func(*QueryExpander)

// WithMaxVariants sets how many generated variants may follow the original question.
func WithMaxVariants(n int) QueryExpanderOption {
	return func(e *QueryExpander) {
		if n >= 0 {
			e.maxVariants = n
		}
	}
}

// WithExpansionParams sets the generation parameters used for expansion calls,
// e.g. a smaller model.
func WithExpansionParams(p llm.GenerationParams) QueryExpanderOption {
	return func(e *QueryExpander) {
		e.params = p
	}
}

// NewQueryExpander creates an expander backed by generator.
func NewQueryExpander(generator llm.Generator, opts ...QueryExpanderOption) *QueryExpander {
	e := &QueryExpander{
		generator:   generator,
		maxVariants: DefaultMaxVariants,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Expand returns the question followed by up to maxVariants generated queries.
// Element 0 is always the question. Generator failure is logged and yields
// only the question.
func (e *QueryExpander) Expand(ctx context.Context, question string) []string {
	queries := []string{question}
	if e == nil || e.generator == nil || e.maxVariants == 0 {
		return queries
	}

	prompt := fmt.Sprintf(expansionPromptTemplate, question, e.maxVariants)
	out, err := e.generator.Generate(ctx, prompt, e.params)
	if err != nil {
		werr := amanerrors.New(amanerrors.ErrCodeExpansionFailed, "query expansion failed, using original question", err)
		slog.Warn("query_expansion_failed", amanerrors.LogAttrs(werr)...)
		return queries
	}

	queries = append(queries, ParseExpansion(out, e.maxVariants)...)

	slog.Debug("query_expanded",
		slog.String("question", question),
		slog.Int("variants", len(queries)-1))
	return queries
}

// ParseExpansion extracts up to limit query lines from generator output:
// lines are trimmed, and blank lines and lines starting with '#' are dropped.
func ParseExpansion(output string, limit int) []string {
	variants := []string{}
	for _, line := range strings.Split(output, "\n") {
		if len(variants) == limit {
			break
		}
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		variants = append(variants, line)
	}
	return variants
}
