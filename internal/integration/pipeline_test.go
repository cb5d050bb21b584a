// Package integration exercises ingestion, retrieval and answering together
// over real stores.
package integration

import (
	"context"
	"iter"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/amanrag/internal/answer"
	"github.com/Aman-CERP/amanrag/internal/embed"
	"github.com/Aman-CERP/amanrag/internal/index"
	"github.com/Aman-CERP/amanrag/internal/llm"
	"github.com/Aman-CERP/amanrag/internal/search"
	"github.com/Aman-CERP/amanrag/internal/store"
	"github.com/Aman-CERP/amanrag/internal/watcher"
)

const animals = `{"text": "Cats are small domesticated mammals that purr.", "source": "animals.pdf", "page": 1, "tags": ["pets"]}
{"text": "Dogs are loyal mammals that bark at strangers.", "source": "animals.pdf", "page": 2}
{"text": "Sparrows are small birds that build nests.", "source": "birds.txt"}
`

type engine struct {
	passages  *store.PassageStore
	coord     *index.Coordinator
	retriever *search.Retriever
}

// openEngine wires an engine persisted under dataDir.
func openEngine(t *testing.T, dataDir string) *engine {
	t.Helper()
	passages, err := store.OpenPassageStore(filepath.Join(dataDir, index.PassageDBName))
	require.NoError(t, err)
	semantic, err := index.NewSemanticIndex(embed.NewStaticEmbedder(64), 0, 0)
	require.NoError(t, err)
	coord, err := index.NewCoordinator(passages, store.NewLexicalIndex(store.DefaultBM25Config()), semantic, index.WithDataDir(dataDir))
	require.NoError(t, err)
	_, err = coord.Load(context.Background())
	require.NoError(t, err)
	retriever, err := search.NewRetriever(coord.Lexical(), coord.Semantic())
	require.NoError(t, err)
	return &engine{passages: passages, coord: coord, retriever: retriever}
}

func (e *engine) close() {
	_ = e.coord.Close()
	_ = e.passages.Close()
}

func lexicalOnly(k int) search.Options {
	w := 0.0
	return search.Options{Mode: search.ModeHybrid, K: k, VectorWeight: &w}
}

func TestInboxToRetrieval(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	// Given: an engine with an inbox watcher
	e := openEngine(t, t.TempDir())
	defer e.close()
	inbox := t.TempDir()
	w, err := watcher.New(inbox, watcher.NewIngester(e.coord, inbox), watcher.Options{DebounceWindow: 50 * time.Millisecond})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// When: a passage file lands in the inbox
	require.NoError(t, os.WriteFile(filepath.Join(inbox, "animals.jsonl"), []byte(animals), 0o644))

	var res watcher.Result
	select {
	case res = <-w.Results():
	case <-ctx.Done():
		t.Fatal("inbox file was not ingested")
	}

	// Then: it is indexed and moved out of the inbox
	require.NoError(t, res.Err)
	assert.Equal(t, 3, res.Passages)
	assert.NoFileExists(t, filepath.Join(inbox, "animals.jsonl"))

	// And: keyword retrieval ranks the matching passage first
	r, err := e.retriever.Retrieve(ctx, "why do cats purr", lexicalOnly(2))
	require.NoError(t, err)
	require.NotEmpty(t, r.Results)
	assert.Equal(t, "animals.pdf (Page 1)", r.Results[0].Passage.Label())
	assert.InDelta(t, 1.0, r.Results[0].Fused, 1e-9)

	cancel()
	assert.NoError(t, <-done)
}

func TestRestartKeepsIndexes(t *testing.T) {
	// Given: an engine that indexed passages and was closed
	dataDir := t.TempDir()
	ctx := context.Background()
	first := openEngine(t, dataDir)
	passages, err := store.ReadJSONL(strings.NewReader(animals))
	require.NoError(t, err)
	_, err = first.coord.Add(ctx, passages)
	require.NoError(t, err)
	first.close()

	// When: reopening the same data dir
	second := openEngine(t, dataDir)
	defer second.close()

	// Then: every index holds every passage
	st, err := second.coord.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, st.Passages)
	assert.Equal(t, 3, st.Vectors)
	assert.Equal(t, 3, st.Lexical.Documents)

	// And: vector retrieval finds the identical text first
	r, err := second.retriever.Retrieve(ctx, "Sparrows are small birds that build nests.", search.Options{Mode: search.ModeVector, K: 1})
	require.NoError(t, err)
	require.Len(t, r.Results, 1)
	assert.Equal(t, "birds.txt", r.Results[0].Passage.Metadata.SourceID)
}

func TestDeleteSourceThenAnswer(t *testing.T) {
	// Given: an engine with both sources
	ctx := context.Background()
	e := openEngine(t, t.TempDir())
	defer e.close()
	passages, err := store.ReadJSONL(strings.NewReader(animals))
	require.NoError(t, err)
	_, err = e.coord.Add(ctx, passages)
	require.NoError(t, err)

	// When: one source is removed and a question is streamed
	n, err := e.coord.DeleteSource(ctx, "animals.pdf")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	gen := &cannedGenerator{answer: "Small birds."}
	assembler, err := answer.NewAssembler(e.retriever, gen)
	require.NoError(t, err)
	opts := answer.DefaultQueryOptions()
	opts.EnableQueryExpansion = false

	var fragments []string
	for f, err := range assembler.QueryStream(ctx, "small mammals", opts) {
		require.NoError(t, err)
		fragments = append(fragments, f)
	}

	// Then: the answer ends with provenance naming only the remaining source
	require.NotEmpty(t, fragments)
	prov, ok, err := answer.ParseFragment(fragments[len(fragments)-1])
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"birds.txt"}, prov.Sources)
	assert.NotContains(t, gen.prompt, "Cats")
}

type cannedGenerator struct {
	answer string
	prompt string
}

func (g *cannedGenerator) Generate(_ context.Context, prompt string, _ llm.GenerationParams) (string, error) {
	g.prompt = prompt
	return g.answer, nil
}

func (g *cannedGenerator) GenerateStream(_ context.Context, prompt string, _ llm.GenerationParams) iter.Seq2[string, error] {
	g.prompt = prompt
	return func(yield func(string, error) bool) {
		yield(g.answer, nil)
	}
}
