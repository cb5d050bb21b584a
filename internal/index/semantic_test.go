package index

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/amanrag/internal/embed"
	amanerrors "github.com/Aman-CERP/amanrag/internal/errors"
	"github.com/Aman-CERP/amanrag/internal/store"
)

func indexedSemantic(t *testing.T, embedder embed.Embedder) *SemanticIndex {
	t.Helper()
	s, err := NewSemanticIndex(embedder, 0, 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	ctx := context.Background()
	passages := []store.StoredPassage{
		{ID: "p1", Passage: store.NewPassage("quarterly revenue grew in the north region", "report.pdf").WithPage(3)},
		{ID: "p2", Passage: store.NewPassage("the office cafeteria serves lunch at noon", "handbook.md")},
	}
	texts := []string{passages[0].Text, passages[1].Text}
	vectors, err := embedder.EmbedBatch(ctx, texts)
	require.NoError(t, err)
	require.NoError(t, s.Index(ctx, passages, vectors))
	return s
}

func TestNewSemanticIndex_RequiresEmbedder(t *testing.T) {
	_, err := NewSemanticIndex(nil, 0, 0)
	assert.Error(t, err)
}

func TestSemanticIndex_SearchResolvesPassages(t *testing.T) {
	// Given: two indexed passages
	s := indexedSemantic(t, embed.NewStaticEmbedder(64))

	// When: searching with text close to the first
	hits, err := s.Search(context.Background(), "revenue grew in the north", 2)
	require.NoError(t, err)

	// Then: hits come back nearest first as passages with non-negative distance
	require.Len(t, hits, 2)
	assert.Equal(t, "report.pdf (Page 3)", hits[0].Passage.Label())
	assert.GreaterOrEqual(t, hits[0].Distance, 0.0)
	assert.LessOrEqual(t, hits[0].Distance, hits[1].Distance)
}

func TestSemanticIndex_SearchNonPositiveLimit(t *testing.T) {
	s := indexedSemantic(t, embed.NewStaticEmbedder(64))

	hits, err := s.Search(context.Background(), "revenue", 0)

	require.NoError(t, err)
	assert.NotNil(t, hits)
	assert.Empty(t, hits)
}

func TestSemanticIndex_SearchEmbeddingFailure(t *testing.T) {
	embedder := newSwitchEmbedder()
	s := indexedSemantic(t, embedder)
	embedder.fail.Store(true)

	_, err := s.Search(context.Background(), "revenue", 2)

	require.Error(t, err)
	assert.True(t, errors.Is(err, amanerrors.ErrEmbeddingFailed))
}

func TestSemanticIndex_DeleteAndReset(t *testing.T) {
	s := indexedSemantic(t, embed.NewStaticEmbedder(64))
	ctx := context.Background()

	require.NoError(t, s.Delete(ctx, []string{"p1"}))
	assert.Equal(t, []string{"p2"}, s.IDs())

	require.NoError(t, s.Reset())
	assert.Equal(t, 0, s.Count())
	hits, err := s.Search(ctx, "lunch", 2)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestSemanticIndex_IndexLengthMismatch(t *testing.T) {
	s, err := NewSemanticIndex(embed.NewStaticEmbedder(64), 0, 0)
	require.NoError(t, err)

	err = s.Index(context.Background(), []store.StoredPassage{{ID: "a"}}, nil)

	assert.Error(t, err)
}

func TestSemanticIndex_LoadDiscardsOtherWidth(t *testing.T) {
	// Given: a graph saved with 64-dimensional vectors
	path := filepath.Join(t.TempDir(), VectorFileName)
	s := indexedSemantic(t, embed.NewStaticEmbedder(64))
	require.NoError(t, s.Save(path))

	// When: an index with 32 dimensions loads it
	other, err := NewSemanticIndex(embed.NewStaticEmbedder(32), 0, 0)
	require.NoError(t, err)
	err = other.Load(path)

	// Then: the graph is discarded rather than failing startup
	require.NoError(t, err)
	assert.Equal(t, 0, other.Count())
}
