package answer

import (
	"context"
	"iter"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/amanrag/internal/llm"
	"github.com/Aman-CERP/amanrag/internal/search"
	"github.com/Aman-CERP/amanrag/internal/store"
)

// scriptedGenerator replays fixed fragments and records what it was asked.
type scriptedGenerator struct {
	fragments []string
	err       error // returned after the fragments
	expansion string

	mu      sync.Mutex
	prompts []string
	params  []llm.GenerationParams
	stopped bool
	emitted int
}

func (g *scriptedGenerator) Generate(_ context.Context, prompt string, params llm.GenerationParams) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if strings.Contains(prompt, "search keywords") {
		return g.expansion, nil
	}
	g.prompts = append(g.prompts, prompt)
	g.params = append(g.params, params)
	if g.err != nil {
		return "", g.err
	}
	return strings.Join(g.fragments, ""), nil
}

func (g *scriptedGenerator) GenerateStream(ctx context.Context, prompt string, params llm.GenerationParams) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		g.mu.Lock()
		g.prompts = append(g.prompts, prompt)
		g.params = append(g.params, params)
		g.mu.Unlock()

		for _, f := range g.fragments {
			if err := ctx.Err(); err != nil {
				yield("", err)
				return
			}
			if !yield(f, nil) {
				g.mu.Lock()
				g.stopped = true
				g.mu.Unlock()
				return
			}
			g.mu.Lock()
			g.emitted++
			g.mu.Unlock()
		}
		if g.err != nil {
			yield("", g.err)
		}
	}
}

func (g *scriptedGenerator) lastPrompt(t *testing.T) string {
	t.Helper()
	g.mu.Lock()
	defer g.mu.Unlock()
	require.NotEmpty(t, g.prompts)
	return g.prompts[len(g.prompts)-1]
}

// passageVectors answers vector searches with the same hits for every query.
type passageVectors struct {
	hits []store.VectorHit
	err  error
}

func (v *passageVectors) Search(_ context.Context, _ string, limit int) ([]store.VectorHit, error) {
	if v.err != nil {
		return nil, v.err
	}
	if len(v.hits) > limit {
		return v.hits[:limit], nil
	}
	return v.hits, nil
}

type outcomeRecorder struct {
	mu       sync.Mutex
	outcomes []string
	modes    []string
}

func (r *outcomeRecorder) RecordQuery(mode, outcome string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.modes = append(r.modes, mode)
	r.outcomes = append(r.outcomes, outcome)
}

// newEngine wires a real retriever over passages with fixed vector hits.
func newEngine(t *testing.T, gen *scriptedGenerator, vectors *passageVectors, passages []store.Passage, opts ...Option) *Assembler {
	t.Helper()
	lexical := store.NewLexicalIndex(store.DefaultBM25Config())
	require.NoError(t, lexical.Rebuild(context.Background(), passages))

	retriever, err := search.NewRetriever(lexical, vectors, search.WithExpander(search.NewQueryExpander(gen)))
	require.NoError(t, err)

	a, err := NewAssembler(retriever, gen, opts...)
	require.NoError(t, err)
	return a
}

func mammalCorpus() ([]store.Passage, *passageVectors) {
	cats := store.NewPassage("cats are mammals", "doc1")
	dogs := store.NewPassage("dogs are mammals", "doc2")
	return []store.Passage{cats, dogs}, &passageVectors{hits: []store.VectorHit{
		{Passage: cats, Distance: 0.21},
		{Passage: dogs, Distance: 0.35},
	}}
}

func hybridOptions(k int) QueryOptions {
	w := 0.5
	return QueryOptions{K: k, UseRAG: true, UseHybridSearch: true, VectorWeight: &w}
}

func collect(seq iter.Seq2[string, error]) ([]string, error) {
	var out []string
	for f, err := range seq {
		if err != nil {
			return out, err
		}
		out = append(out, f)
	}
	return out, nil
}
