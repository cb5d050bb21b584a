package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	amanerrors "github.com/Aman-CERP/amanrag/internal/errors"
	"github.com/Aman-CERP/amanrag/internal/store"
)

// ErrNilDependency is returned when a required dependency is nil.
var ErrNilDependency = errors.New("nil dependency")

// maxConcurrentSearches bounds the per-retrieval fan-out.
const maxConcurrentSearches = 8

// Retriever runs lexical and vector search for every query variant and fuses
// the results into one ranking.
type Retriever struct {
	lexical  LexicalSearcher
	vector   VectorIndex
	expander *QueryExpander
	recorder Recorder
}

// RetrieverOption configures the retriever.
type RetrieverOption func(*Retriever)

// WithExpander enables query expansion for retrievals that request it.
func WithExpander(e *QueryExpander) RetrieverOption {
	return func(r *Retriever) {
		r.expander = e
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(rec Recorder) RetrieverOption {
	return func(r *Retriever) {
		if rec != nil {
			r.recorder = rec
		}
	}
}

// NewRetriever creates a retriever over the two search collaborators.
func NewRetriever(lexical LexicalSearcher, vector VectorIndex, opts ...RetrieverOption) (*Retriever, error) {
	if lexical == nil {
		return nil, fmt.Errorf("%w: lexical index is required", ErrNilDependency)
	}
	if vector == nil {
		return nil, fmt.Errorf("%w: vector index is required", ErrNilDependency)
	}

	r := &Retriever{
		lexical:  lexical,
		vector:   vector,
		recorder: nopRecorder{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Retrieval is the outcome of one retrieval.
type Retrieval struct {
	Mode              RetrievalMode
	Queries           []string
	Results           []FusedResult
	LexicalCandidates int
	VectorCandidates  int
}

// queryHits holds the raw hits of one query variant.
type queryHits struct {
	vector  []store.VectorHit
	lexical []store.ScoredPassage
}

// Retrieve returns the top passages for question. Failures of either search
// collaborator or of query expansion only reduce the candidate set; the only
// errors returned are invalid options and caller cancellation.
func (r *Retriever) Retrieve(ctx context.Context, question string, opts Options) (*Retrieval, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	opts = opts.withDefaults()

	out := &Retrieval{Mode: opts.Mode, Queries: []string{question}, Results: []FusedResult{}}
	if opts.Mode == ModeNone {
		return out, nil
	}

	start := time.Now()
	if opts.ExpandQuery && r.expander != nil {
		out.Queries = r.expander.Expand(ctx, question)
	}

	hits := r.gather(ctx, out.Queries, opts)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	candidates := make([]Candidate, 0)
	for _, h := range hits {
		for _, v := range h.vector {
			if v.Passage.HasAnyTag(opts.Tags) {
				candidates = append(candidates, Candidate{Passage: v.Passage, Raw: v.Distance, Strategy: StrategyVector})
				out.VectorCandidates++
			}
		}
		for _, l := range h.lexical {
			if l.Passage.HasAnyTag(opts.Tags) {
				candidates = append(candidates, Candidate{Passage: l.Passage, Raw: l.Score, Strategy: StrategyLexical})
				out.LexicalCandidates++
			}
		}
	}
	r.recorder.RecordCandidates(StrategyVector.String(), out.VectorCandidates)
	if opts.Mode == ModeHybrid {
		r.recorder.RecordCandidates(StrategyLexical.String(), out.LexicalCandidates)
	}

	out.Results = Rank(opts.Mode, candidates, opts.K, opts.weight())

	slog.Debug("retrieval_complete",
		slog.String("mode", opts.Mode.String()),
		slog.Int("queries", len(out.Queries)),
		slog.Int("vector_candidates", out.VectorCandidates),
		slog.Int("lexical_candidates", out.LexicalCandidates),
		slog.Int("selected", len(out.Results)),
		slog.Duration("duration", time.Since(start)))
	return out, nil
}

// gather runs every search concurrently and waits for all of them.
func (r *Retriever) gather(ctx context.Context, queries []string, opts Options) []queryHits {
	limit := opts.K * opts.Multiplier
	hits := make([]queryHits, len(queries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentSearches)

	for i, q := range queries {
		g.Go(func() error {
			res, err := r.vector.Search(gctx, q, limit)
			if err != nil {
				r.searchFailed(StrategyVector, q, err)
				return nil // degrade: no vector candidates for this query
			}
			hits[i].vector = res
			return nil
		})

		if opts.Mode != ModeHybrid {
			continue
		}
		g.Go(func() error {
			res, err := r.lexical.Search(gctx, q, limit)
			if err != nil {
				r.searchFailed(StrategyLexical, q, err)
				return nil
			}
			hits[i].lexical = res
			return nil
		})
	}

	_ = g.Wait()
	return hits
}

func (r *Retriever) searchFailed(strategy Strategy, query string, err error) {
	r.recorder.RecordRetrievalFailure(strategy.String())
	werr := amanerrors.New(amanerrors.ErrCodeRetrievalUnavailable, strategy.String()+" search failed", err).
		WithDetail("strategy", strategy.String()).
		WithDetail("query", query)
	slog.Warn("retrieval_unavailable", amanerrors.LogAttrs(werr)...)
}
