package answer

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"strings"
	"time"

	amanerrors "github.com/Aman-CERP/amanrag/internal/errors"
	"github.com/Aman-CERP/amanrag/internal/llm"
	"github.com/Aman-CERP/amanrag/internal/search"
)

// Retriever selects the passages for a question; *search.Retriever implements it.
type Retriever interface {
	Retrieve(ctx context.Context, question string, opts search.Options) (*search.Retrieval, error)
}

// Recorder receives one observation per finished query.
type Recorder interface {
	RecordQuery(mode, outcome string, duration time.Duration)
}

// Query outcomes reported to the Recorder.
const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
	OutcomeCancelled = "cancelled"
	OutcomeInvalid   = "invalid"
)

type nopRecorder struct{}

func (nopRecorder) RecordQuery(string, string, time.Duration) {}

// Assembler answers questions from retrieved passages.
type Assembler struct {
	retriever Retriever
	generator llm.Generator
	defaults  llm.GenerationParams
	prompts   promptBuilder
	recorder  Recorder
}

// Option configures the assembler.
type Option func(*Assembler)

// WithGenerationDefaults sets the parameters used for fields a query leaves unset.
func WithGenerationDefaults(p llm.GenerationParams) Option {
	return func(a *Assembler) {
		a.defaults = p
	}
}

// WithHistoryLimit sets how many recent conversation turns enter the prompt.
func WithHistoryLimit(n int) Option {
	return func(a *Assembler) {
		if n >= 0 {
			a.prompts.historyLimit = n
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(a *Assembler) {
		if r != nil {
			a.recorder = r
		}
	}
}

// NewAssembler creates an assembler.
func NewAssembler(retriever Retriever, generator llm.Generator, opts ...Option) (*Assembler, error) {
	if retriever == nil {
		return nil, fmt.Errorf("%w: retriever is required", search.ErrNilDependency)
	}
	if generator == nil {
		return nil, fmt.Errorf("%w: generator is required", search.ErrNilDependency)
	}
	a := &Assembler{
		retriever: retriever,
		generator: generator,
		prompts:   promptBuilder{historyLimit: DefaultHistoryLimit},
		recorder:  nopRecorder{},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// run tracks one query through its states.
type run struct {
	question   string
	mode       search.RetrievalMode
	state      State
	queries    []string
	prompt     string
	params     llm.GenerationParams
	provenance Provenance
	start      time.Time
}

func (r *run) transition(s State) {
	r.state = s
	slog.Debug("answer_state",
		slog.String("state", s.String()),
		slog.String("mode", r.mode.String()))
}

// prepare validates the query, retrieves passages and builds the prompt.
func (a *Assembler) prepare(ctx context.Context, question string, opts QueryOptions) (*run, error) {
	r := &run{question: question, mode: opts.Mode(), start: time.Now()}

	if strings.TrimSpace(question) == "" {
		return r, amanerrors.New(amanerrors.ErrCodeQueryEmpty, "question must not be empty", nil)
	}
	if err := opts.Generation.Validate(); err != nil {
		return r, amanerrors.New(amanerrors.ErrCodeInvalidOptions, err.Error(), err)
	}

	retrieval, err := a.retriever.Retrieve(ctx, question, opts.searchOptions())
	if err != nil {
		return r, err
	}

	r.queries = retrieval.Queries
	r.params = opts.Generation.WithDefaults(a.defaults)
	r.prompt = a.prompts.build(question, retrieval.Results, opts.ChatHistory, opts.SystemPrompt)
	r.provenance = NewProvenance(retrieval.Results)
	if len(retrieval.Results) == 0 {
		r.transition(StateNoContext)
	} else {
		r.transition(StateContextBuilt)
	}
	return r, nil
}

// Query answers question and returns the complete text with its provenance.
func (a *Assembler) Query(ctx context.Context, question string, opts QueryOptions) (*Answer, error) {
	r, err := a.prepare(ctx, question, opts)
	if err != nil {
		a.finish(r, err)
		return nil, err
	}

	r.transition(StateGenerating)
	text, err := a.generator.Generate(ctx, r.prompt, r.params)
	if err != nil {
		err = a.generationError(ctx, err)
		a.finish(r, err)
		return nil, err
	}

	r.transition(StateCompleted)
	a.finish(r, nil)
	return &Answer{
		Text:       text,
		Provenance: r.provenance,
		State:      r.state,
		Mode:       r.mode.String(),
		Queries:    r.queries,
	}, nil
}

// QueryStream answers question fragment by fragment. After the generator ends
// the sequence yields one more fragment, the SourcesSentinel provenance
// record. Consumers detect it by position: it is the last error-free pair.
// Breaking out of the loop or cancelling ctx stops generation without a
// provenance fragment. An error is yielded once, as the last pair.
func (a *Assembler) QueryStream(ctx context.Context, question string, opts QueryOptions) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		r, err := a.prepare(ctx, question, opts)
		if err != nil {
			a.finish(r, err)
			yield("", err)
			return
		}

		r.transition(StateGenerating)
		for fragment, err := range a.generator.GenerateStream(ctx, r.prompt, r.params) {
			if err != nil {
				err = a.generationError(ctx, err)
				a.finish(r, err)
				yield("", err)
				return
			}
			if !yield(fragment, nil) {
				a.finish(r, context.Canceled)
				return
			}
		}
		if err := ctx.Err(); err != nil {
			a.finish(r, err)
			yield("", err)
			return
		}

		r.transition(StateCompleted)
		sources, err := r.provenance.Fragment()
		if err != nil {
			err = amanerrors.InternalError("encode provenance", err)
			a.finish(r, err)
			yield("", err)
			return
		}
		a.finish(r, nil)
		yield(sources, nil)
	}
}

// generationError maps a generator failure; cancellation passes through.
func (a *Assembler) generationError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return amanerrors.New(amanerrors.ErrCodeGenerationFailed, "answer generation failed", err).
		WithSuggestion("Check that the language model server is running and the model is available")
}

// finish logs and records the end of a query.
func (a *Assembler) finish(r *run, err error) {
	outcome := outcomeOf(err)
	a.recorder.RecordQuery(r.mode.String(), outcome, time.Since(r.start))

	switch outcome {
	case OutcomeCompleted:
		slog.Info("answer_completed",
			slog.String("mode", r.mode.String()),
			slog.String("state", r.state.String()),
			slog.Int("queries", len(r.queries)),
			slog.Int("sources", len(r.provenance.SourceScores)),
			slog.Float64("quality_score", r.provenance.QualityScore),
			slog.Duration("duration", time.Since(r.start)))
	case OutcomeCancelled:
		slog.Info("answer_cancelled",
			slog.String("mode", r.mode.String()),
			slog.String("state", r.state.String()))
	case OutcomeInvalid:
		slog.Warn("answer_rejected", amanerrors.LogAttrs(err)...)
	default:
		attrs := append(amanerrors.LogAttrs(err), slog.String("state", r.state.String()))
		slog.Error("answer_generation_failed", attrs...)
	}
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return OutcomeCompleted
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return OutcomeCancelled
	case amanerrors.GetCategory(err) == amanerrors.CategoryValidation:
		return OutcomeInvalid
	default:
		return OutcomeFailed
	}
}
