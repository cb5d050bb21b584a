package search

import (
	"cmp"
	"crypto/sha256"
	"encoding/hex"
	"slices"

	"github.com/Aman-CERP/amanrag/internal/store"
)

// FingerprintRunes is the length of the text prefix that identifies a passage.
const FingerprintRunes = 200

// Fingerprint derives the deduplication identity of a passage from the first
// FingerprintRunes characters of its text. Overlapping chunk windows and
// repeated query variants collapse onto the same fingerprint.
func Fingerprint(text string) string {
	prefix := text
	n := 0
	for i := range text {
		if n == FingerprintRunes {
			prefix = text[:i]
			break
		}
		n++
	}
	sum := sha256.Sum256([]byte(prefix))
	return hex.EncodeToString(sum[:])
}

// ranker orders the candidates of one fusion pass.
type ranker interface {
	rank(candidates []Candidate, k int, vectorWeight float64) []FusedResult
}

var rankers = map[RetrievalMode]ranker{
	ModeVector: vectorRanker{},
	ModeHybrid: hybridRanker{},
}

// Rank deduplicates, scores and selects the top k candidates for mode.
// Candidates must be in merge order; ties keep that order. ModeNone and an
// empty candidate set yield an empty, non-nil result.
func Rank(mode RetrievalMode, candidates []Candidate, k int, vectorWeight float64) []FusedResult {
	r, ok := rankers[mode]
	if !ok || len(candidates) == 0 || k <= 0 {
		return []FusedResult{}
	}
	return r.rank(candidates, k, vectorWeight)
}

// scoreRange tracks min and max raw scores of one strategy.
type scoreRange struct {
	min, max float64
	seen     bool
}

func (r *scoreRange) add(v float64) {
	if !r.seen {
		r.min, r.max, r.seen = v, v, true
		return
	}
	r.min = min(r.min, v)
	r.max = max(r.max, v)
}

// span is max-min, or 1 for a degenerate range.
func (r *scoreRange) span() float64 {
	if s := r.max - r.min; s > 0 {
		return s
	}
	return 1
}

// higherIsBetter maps a score into [0,1] with the maximum at 1.0.
func (r *scoreRange) higherIsBetter(v float64) float64 {
	return clamp01(1 - (r.max-v)/r.span())
}

// lowerIsBetter maps a distance into [0,1] with the minimum at 1.0.
func (r *scoreRange) lowerIsBetter(v float64) float64 {
	return clamp01(1 - (v-r.min)/r.span())
}

func clamp01(v float64) float64 {
	return max(0, min(1, v))
}

// hybridRanker fuses normalized lexical and vector scores.
type hybridRanker struct{}

type fusionEntry struct {
	passage         store.Passage
	lexical, vector float64
	hasLex, hasVec  bool
}

func (hybridRanker) rank(candidates []Candidate, k int, vectorWeight float64) []FusedResult {
	entries := make([]*fusionEntry, 0, len(candidates))
	byFingerprint := make(map[string]*fusionEntry, len(candidates))
	var lexRange, vecRange scoreRange

	for _, c := range candidates {
		fp := Fingerprint(c.Passage.Text)
		e, ok := byFingerprint[fp]
		if !ok {
			e = &fusionEntry{passage: c.Passage}
			byFingerprint[fp] = e
			entries = append(entries, e)
		}

		// First occurrence per strategy wins.
		switch c.Strategy {
		case StrategyLexical:
			if e.hasLex {
				continue
			}
			e.lexical, e.hasLex = c.Raw, true
			lexRange.add(c.Raw)
		case StrategyVector:
			if e.hasVec {
				continue
			}
			e.vector, e.hasVec = c.Raw, true
			vecRange.add(c.Raw)
		}
	}

	results := make([]FusedResult, 0, len(entries))
	for _, e := range entries {
		r := FusedResult{Passage: e.passage}
		if e.hasLex {
			r.LexicalNorm = lexRange.higherIsBetter(e.lexical)
		}
		if e.hasVec {
			r.VectorNorm = vecRange.lowerIsBetter(e.vector)
		}
		r.Fused = r.VectorNorm*vectorWeight + r.LexicalNorm*(1-vectorWeight)
		results = append(results, r)
	}

	slices.SortStableFunc(results, func(a, b FusedResult) int {
		return cmp.Compare(b.Fused, a.Fused)
	})
	return topK(results, k)
}

// vectorRanker orders vector candidates by ascending raw distance.
type vectorRanker struct{}

func (vectorRanker) rank(candidates []Candidate, k int, _ float64) []FusedResult {
	type hit struct {
		passage  store.Passage
		distance float64
	}

	seen := make(map[string]struct{}, len(candidates))
	hits := make([]hit, 0, len(candidates))
	var rng scoreRange
	for _, c := range candidates {
		if c.Strategy != StrategyVector {
			continue
		}
		fp := Fingerprint(c.Passage.Text)
		if _, dup := seen[fp]; dup {
			continue
		}
		seen[fp] = struct{}{}
		hits = append(hits, hit{passage: c.Passage, distance: c.Raw})
		rng.add(c.Raw)
	}

	slices.SortStableFunc(hits, func(a, b hit) int {
		return cmp.Compare(a.distance, b.distance)
	})

	results := make([]FusedResult, 0, min(k, len(hits)))
	for _, h := range hits {
		if len(results) == k {
			break
		}
		norm := rng.lowerIsBetter(h.distance)
		results = append(results, FusedResult{Passage: h.passage, VectorNorm: norm, Fused: norm})
	}
	return results
}

func topK(results []FusedResult, k int) []FusedResult {
	if len(results) > k {
		return results[:k]
	}
	return results
}
