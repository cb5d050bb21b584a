package telemetry

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newQueryLog(t *testing.T) *QueryLog {
	t.Helper()
	l, err := OpenQueryLog("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func TestQueryLog_TermCounts(t *testing.T) {
	// Given: several questions sharing terms
	l := newQueryLog(t)
	ctx := context.Background()
	require.NoError(t, l.Record(ctx, "What is BM25 scoring?", "hybrid", 3))
	require.NoError(t, l.Record(ctx, "bm25 vs vector", "hybrid", 2))
	require.NoError(t, l.Record(ctx, "vector vector", "vector", 1))

	// When: reading stats
	stats, err := l.Stats(ctx, 2)

	// Then: the most frequent terms come first, lowercased
	require.NoError(t, err)
	assert.Equal(t, []TermCount{{Term: "vector", Count: 3}, {Term: "bm25", Count: 2}}, stats.TopTerms)
	assert.Empty(t, stats.Unanswered)
}

func TestQueryLog_Unanswered(t *testing.T) {
	l := newQueryLog(t)
	ctx := context.Background()

	require.NoError(t, l.Record(ctx, "found", "hybrid", 2))
	require.NoError(t, l.Record(ctx, "not found", "hybrid", 0))
	require.NoError(t, l.Record(ctx, "rag disabled", "none", 0))

	stats, err := l.Stats(ctx, 10)

	require.NoError(t, err)
	assert.Equal(t, []string{"not found"}, stats.Unanswered)
}

func TestQueryLog_UnansweredIsBounded(t *testing.T) {
	l := newQueryLog(t)
	ctx := context.Background()

	for i := 0; i < MaxUnansweredQuestions+5; i++ {
		require.NoError(t, l.Record(ctx, fmt.Sprintf("q%d", i), "vector", 0))
	}

	stats, err := l.Stats(ctx, MaxUnansweredQuestions*2)
	require.NoError(t, err)
	assert.Len(t, stats.Unanswered, MaxUnansweredQuestions)
	assert.Equal(t, fmt.Sprintf("q%d", MaxUnansweredQuestions+4), stats.Unanswered[0])
}

func TestQueryLog_DailyCounts(t *testing.T) {
	l := newQueryLog(t)
	day := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return day }
	ctx := context.Background()

	require.NoError(t, l.Record(ctx, "a", "hybrid", 1))
	require.NoError(t, l.Record(ctx, "b", "vector", 1))

	stats, err := l.Stats(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"2026-03-01": 2}, stats.Daily)
}

func TestQueryLog_Persists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "telemetry.db")
	ctx := context.Background()

	l, err := OpenQueryLog(path)
	require.NoError(t, err)
	require.NoError(t, l.Record(ctx, "persisted term", "hybrid", 1))
	require.NoError(t, l.Close())

	l, err = OpenQueryLog(path)
	require.NoError(t, err)
	defer func() { _ = l.Close() }()
	stats, err := l.Stats(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, stats.TopTerms, 2)
}
