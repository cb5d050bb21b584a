package search

import (
	"context"
	"errors"
	"iter"
	"strings"
	"sync"

	"github.com/Aman-CERP/amanrag/internal/llm"
	"github.com/Aman-CERP/amanrag/internal/store"
)

func lex(text, source string, score float64) Candidate {
	return Candidate{Passage: store.NewPassage(text, source), Raw: score, Strategy: StrategyLexical}
}

func vec(text, source string, distance float64) Candidate {
	return Candidate{Passage: store.NewPassage(text, source), Raw: distance, Strategy: StrategyVector}
}

func sources(results []FusedResult) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Passage.Metadata.SourceID
	}
	return out
}

// fakeVectorIndex returns canned hits per query, or an error.
type fakeVectorIndex struct {
	mu      sync.Mutex
	hits    map[string][]store.VectorHit
	err     error
	queries []string
	limits  []int
}

func (f *fakeVectorIndex) Search(_ context.Context, query string, limit int) ([]store.VectorHit, error) {
	f.mu.Lock()
	f.queries = append(f.queries, query)
	f.limits = append(f.limits, limit)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.hits[query], nil
}

// fakeLexical returns canned hits per query, or an error.
type fakeLexical struct {
	hits map[string][]store.ScoredPassage
	err  error
}

func (f *fakeLexical) Search(_ context.Context, query string, _ int) ([]store.ScoredPassage, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.hits[query], nil
}

// fakeGenerator returns a fixed response.
type fakeGenerator struct {
	response string
	err      error
	prompts  []string
}

func (g *fakeGenerator) Generate(_ context.Context, prompt string, _ llm.GenerationParams) (string, error) {
	g.prompts = append(g.prompts, prompt)
	return g.response, g.err
}

func (g *fakeGenerator) GenerateStream(_ context.Context, prompt string, _ llm.GenerationParams) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		if g.err != nil {
			yield("", g.err)
			return
		}
		for _, w := range strings.Fields(g.response) {
			if !yield(w, nil) {
				return
			}
		}
	}
}

var errConnRefused = errors.New("dial tcp 127.0.0.1:11434: connect: connection refused")

// recorder counts metrics calls.
type countingRecorder struct {
	mu         sync.Mutex
	candidates map[string]int
	failures   map[string]int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{candidates: map[string]int{}, failures: map[string]int{}}
}

func (r *countingRecorder) RecordCandidates(strategy string, n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.candidates[strategy] += n
}

func (r *countingRecorder) RecordRetrievalFailure(strategy string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures[strategy]++
}
