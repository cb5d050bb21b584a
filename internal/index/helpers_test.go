package index

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/amanrag/internal/embed"
	"github.com/Aman-CERP/amanrag/internal/store"
)

var errModelMissing = errors.New(`model "nomic-embed-text" not found`)

// switchEmbedder wraps the static embedder and can be told to fail.
type switchEmbedder struct {
	*embed.StaticEmbedder
	fail       atomic.Bool
	batchCalls atomic.Int64
}

func newSwitchEmbedder() *switchEmbedder {
	return &switchEmbedder{StaticEmbedder: embed.NewStaticEmbedder(64)}
}

func (e *switchEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if e.fail.Load() {
		return nil, errModelMissing
	}
	return e.StaticEmbedder.Embed(ctx, text)
}

func (e *switchEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	e.batchCalls.Add(1)
	if e.fail.Load() {
		return nil, errModelMissing
	}
	return e.StaticEmbedder.EmbedBatch(ctx, texts)
}

type rebuildRecorder struct {
	mu       sync.Mutex
	outcomes []string
	docs     []int
}

func (r *rebuildRecorder) RecordRebuild(outcome string, documents int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome)
	r.docs = append(r.docs, documents)
}

type fixture struct {
	coord    *Coordinator
	passages *store.PassageStore
	embedder *switchEmbedder
	recorder *rebuildRecorder
}

// newFixture wires a coordinator over an in-memory passage store unless a
// store is supplied.
func newFixture(t *testing.T, passages *store.PassageStore, opts ...Option) *fixture {
	t.Helper()
	if passages == nil {
		var err error
		passages, err = store.OpenPassageStore("")
		require.NoError(t, err)
		t.Cleanup(func() { _ = passages.Close() })
	}

	embedder := newSwitchEmbedder()
	semantic, err := NewSemanticIndex(embedder, 0, 0)
	require.NoError(t, err)

	recorder := &rebuildRecorder{}
	opts = append([]Option{WithRecorder(recorder)}, opts...)
	coord, err := NewCoordinator(passages, store.NewLexicalIndex(store.DefaultBM25Config()), semantic, opts...)
	require.NoError(t, err)

	return &fixture{coord: coord, passages: passages, embedder: embedder, recorder: recorder}
}

func animalPassages() []store.Passage {
	return []store.Passage{
		store.NewPassage("Cats are small domesticated mammals that purr.", "animals.pdf").WithPage(1),
		store.NewPassage("Dogs are loyal mammals that bark at strangers.", "animals.pdf").WithPage(2),
		store.NewPassage("Sparrows are small birds that build nests.", "birds.txt"),
	}
}

// committingStore cancels the caller's context right after each write
// commits, as a disconnecting client would.
type committingStore struct {
	*store.PassageStore
	cancel context.CancelFunc
}

func (s *committingStore) Add(ctx context.Context, passages []store.Passage) ([]store.StoredPassage, error) {
	stored, err := s.PassageStore.Add(ctx, passages)
	s.cancel()
	return stored, err
}

func (s *committingStore) DeleteSource(ctx context.Context, sourceID string) ([]string, error) {
	ids, err := s.PassageStore.DeleteSource(ctx, sourceID)
	s.cancel()
	return ids, err
}

// newCommittingCoordinator wires a coordinator whose store cancels cancel
// after every committed write.
func newCommittingCoordinator(t *testing.T, cancel context.CancelFunc) (*Coordinator, *store.PassageStore) {
	t.Helper()
	passages, err := store.OpenPassageStore("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = passages.Close() })

	semantic, err := NewSemanticIndex(newSwitchEmbedder(), 0, 0)
	require.NoError(t, err)
	coord, err := NewCoordinator(&committingStore{PassageStore: passages, cancel: cancel},
		store.NewLexicalIndex(store.DefaultBM25Config()), semantic)
	require.NoError(t, err)
	t.Cleanup(func() { _ = coord.Close() })
	return coord, passages
}
