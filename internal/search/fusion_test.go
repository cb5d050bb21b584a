package search

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Fingerprint
// =============================================================================

func TestFingerprint_UsesFirst200Characters(t *testing.T) {
	prefix := strings.Repeat("あ", 200)

	assert.Equal(t, Fingerprint(prefix+"tail one"), Fingerprint(prefix+"different tail"))
	assert.NotEqual(t, Fingerprint("a"+prefix), Fingerprint("b"+prefix))
	assert.Equal(t, Fingerprint("short"), Fingerprint("short"))
}

// =============================================================================
// Hybrid ranking
// =============================================================================

func TestRank_Hybrid_NormalizationBounds(t *testing.T) {
	// Given: mixed candidates with spread-out raw scores
	candidates := []Candidate{
		vec("alpha", "a", 0.2),
		vec("beta", "b", 0.9),
		lex("gamma", "c", 12.5),
		lex("alpha", "a", 3.0),
		lex("delta", "d", 0.4),
	}

	// When: ranking
	results := Rank(ModeHybrid, candidates, 10, 0.5)

	// Then: every normalized score is within [0,1]
	require.Len(t, results, 4)
	for _, r := range results {
		assert.GreaterOrEqual(t, r.LexicalNorm, 0.0)
		assert.LessOrEqual(t, r.LexicalNorm, 1.0)
		assert.GreaterOrEqual(t, r.VectorNorm, 0.0)
		assert.LessOrEqual(t, r.VectorNorm, 1.0)
	}

	// And: the best raw scores normalize to 1.0
	byText := map[string]FusedResult{}
	for _, r := range results {
		byText[r.Passage.Text] = r
	}
	assert.Equal(t, 1.0, byText["gamma"].LexicalNorm)
	assert.Equal(t, 1.0, byText["alpha"].VectorNorm)
	assert.Equal(t, 0.0, byText["beta"].VectorNorm)
	assert.Equal(t, 0.0, byText["delta"].LexicalNorm)
}

func TestRank_Hybrid_FusedIsWeightedSum(t *testing.T) {
	candidates := []Candidate{
		vec("alpha", "a", 0.1),
		vec("beta", "b", 0.5),
		lex("beta", "b", 4),
		lex("alpha", "a", 2),
	}

	results := Rank(ModeHybrid, candidates, 10, 0.25)

	require.Len(t, results, 2)
	for _, r := range results {
		assert.InDelta(t, r.VectorNorm*0.25+r.LexicalNorm*0.75, r.Fused, 1e-12)
	}
	// beta: lexical 1.0 weighs 0.75; alpha: vector 1.0 weighs 0.25
	assert.Equal(t, []string{"b", "a"}, sources(results))
}

func TestRank_Hybrid_DeduplicatesAcrossStrategiesAndVariants(t *testing.T) {
	// Given: the same passage found twice by vector and once by lexical,
	// with a text differing only after the first 200 characters
	long := strings.Repeat("x", 200)
	candidates := []Candidate{
		vec(long+" first window", "doc1", 0.3),
		vec("other", "doc2", 0.6),
		vec(long+" second window", "doc1b", 0.1),
		lex(long+" third window", "doc1c", 5),
	}

	// When: ranking
	results := Rank(ModeHybrid, candidates, 10, 0.5)

	// Then: the duplicates collapse to one entry holding the first-seen passage
	require.Len(t, results, 2)
	var found bool
	for _, r := range results {
		if r.Passage.Metadata.SourceID == "doc1" {
			found = true
			assert.Equal(t, long+" first window", r.Passage.Text)
			assert.Equal(t, 1.0, r.VectorNorm, "first vector occurrence (0.3) is the best surviving distance")
			assert.Equal(t, 1.0, r.LexicalNorm)
		}
	}
	assert.True(t, found)
}

func TestRank_Hybrid_DegenerateRange(t *testing.T) {
	// Given: identical raw scores in both strategies
	candidates := []Candidate{
		vec("a", "a", 0.4),
		vec("b", "b", 0.4),
		lex("c", "c", 2),
		lex("d", "d", 2),
	}

	// When: ranking
	results := Rank(ModeHybrid, candidates, 10, 0.5)

	// Then: no division error and every member of a set shares one value
	require.Len(t, results, 4)
	for _, r := range results {
		assert.False(t, math.IsNaN(r.Fused))
		assert.InDelta(t, 0.5, r.Fused, 1e-12)
	}
	// And: ties keep merge order
	assert.Equal(t, []string{"a", "b", "c", "d"}, sources(results))
}

func TestRank_Hybrid_SingleStrategyKeepsItsOrder(t *testing.T) {
	// Given: only lexical candidates (vector search returned nothing)
	candidates := []Candidate{
		lex("low", "low", 1),
		lex("high", "high", 9),
		lex("mid", "mid", 5),
	}

	results := Rank(ModeHybrid, candidates, 10, 0.5)

	// Then: ranking follows the lexical scores, vector contributes 0
	assert.Equal(t, []string{"high", "mid", "low"}, sources(results))
	for _, r := range results {
		assert.Zero(t, r.VectorNorm)
	}
}

func TestRank_Hybrid_VectorWeightMonotonicity(t *testing.T) {
	// Given: items with equal lexical scores and different distances
	candidates := []Candidate{
		lex("a", "a", 3), lex("b", "b", 3), lex("c", "c", 1),
		vec("c", "c", 0.9), vec("b", "b", 0.1), vec("a", "a", 0.5),
	}

	rankOf := func(results []FusedResult, source string) int {
		for i, r := range results {
			if r.Passage.Metadata.SourceID == source {
				return i
			}
		}
		return -1
	}

	// When: sweeping the vector weight upward
	prev := len(candidates)
	for w := 0.0; w <= 1.0001; w += 0.1 {
		results := Rank(ModeHybrid, candidates, 10, w)
		r := rankOf(results, "b")

		// Then: b (best vector score, tied lexical) never drops in rank
		require.GreaterOrEqual(t, r, 0)
		assert.LessOrEqual(t, r, prev, "weight %.1f", w)
		prev = r
	}
}

func TestRank_KSelection(t *testing.T) {
	candidates := []Candidate{
		vec("a", "a", 0.1), vec("b", "b", 0.2), vec("c", "c", 0.3),
		lex("a", "a", 1), lex("d", "d", 2),
	}

	for k, want := range map[int]int{1: 1, 2: 2, 4: 4, 10: 4} {
		assert.Len(t, Rank(ModeHybrid, candidates, k, 0.5), want, "k=%d", k)
	}
}

func TestRank_EmptyAndNone(t *testing.T) {
	assert.NotNil(t, Rank(ModeHybrid, nil, 5, 0.5))
	assert.Empty(t, Rank(ModeHybrid, nil, 5, 0.5))
	assert.Empty(t, Rank(ModeNone, []Candidate{vec("a", "a", 0.1)}, 5, 0.5))
}

// =============================================================================
// Vector-only ranking
// =============================================================================

func TestRank_Vector_SortsByAscendingDistance(t *testing.T) {
	candidates := []Candidate{
		vec("far", "far", 0.9),
		vec("near", "near", 0.1),
		lex("ignored", "lexical", 50),
		vec("near", "near-dup", 0.05),
		vec("mid", "mid", 0.5),
	}

	results := Rank(ModeVector, candidates, 10, 0.5)

	require.Len(t, results, 3)
	assert.Equal(t, []string{"near", "mid", "far"}, sources(results))
	assert.Equal(t, 1.0, results[0].Fused)
	assert.Equal(t, 0.0, results[2].Fused)
	for _, r := range results {
		assert.Equal(t, r.VectorNorm, r.Fused)
		assert.Zero(t, r.LexicalNorm)
	}
}

func TestRank_Vector_DegenerateRange(t *testing.T) {
	results := Rank(ModeVector, []Candidate{vec("a", "a", 0.3), vec("b", "b", 0.3)}, 1, 0.5)

	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].Passage.Metadata.SourceID)
	assert.Equal(t, 1.0, results[0].Fused)
}
