package store

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"maps"
	"math"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	amanerrors "github.com/Aman-CERP/amanrag/internal/errors"
)

// LexicalIndex is an in-memory BM25 index over the current passage set.
//
// Each Rebuild constructs a fresh immutable snapshot off to the side and
// publishes it with a single atomic pointer swap. Score calls load whichever
// snapshot is current and never block on a rebuild in progress.
type LexicalIndex struct {
	config  BM25Config
	buildMu sync.Mutex
	current atomic.Pointer[lexicalSnapshot]
}

// posting records one passage containing a term.
type posting struct {
	doc int
	tf  int
}

// lexicalSnapshot is never mutated after publication.
type lexicalSnapshot struct {
	corpusTokens [][]string
	docs         []Passage
	docLens      []int
	avgLen       float64
	postings     map[string][]posting
	builtAt      time.Time
}

// NewLexicalIndex creates an empty (absent) index.
func NewLexicalIndex(cfg BM25Config) *LexicalIndex {
	if cfg.K1 <= 0 {
		cfg.K1 = DefaultBM25Config().K1
	}
	if cfg.B < 0 || cfg.B > 1 {
		cfg.B = DefaultBM25Config().B
	}
	return &LexicalIndex{config: cfg}
}

// Rebuild replaces the index with one built from passages.
// An empty set makes the index absent. If the new snapshot fails validation
// the previous snapshot stays published and an IndexInconsistent error is returned.
func (ix *LexicalIndex) Rebuild(ctx context.Context, passages []Passage) error {
	ix.buildMu.Lock()
	defer ix.buildMu.Unlock()

	start := time.Now()

	if len(passages) == 0 {
		ix.current.Store(nil)
		slog.Debug("lexical_index_cleared")
		return nil
	}

	snap, err := buildSnapshot(ctx, passages)
	if err != nil {
		return err
	}
	if err := snap.validate(); err != nil {
		slog.Error("lexical_index_rebuild_rejected", amanerrors.LogAttrs(err)...)
		return err
	}

	ix.current.Store(snap)

	slog.Debug("lexical_index_rebuilt",
		slog.Int("documents", len(snap.docs)),
		slog.Int("terms", len(snap.postings)),
		slog.Duration("duration", time.Since(start)))
	return nil
}

func buildSnapshot(ctx context.Context, passages []Passage) (*lexicalSnapshot, error) {
	snap := &lexicalSnapshot{
		corpusTokens: make([][]string, 0, len(passages)),
		docs:         make([]Passage, 0, len(passages)),
		docLens:      make([]int, 0, len(passages)),
		postings:     make(map[string][]posting),
		builtAt:      time.Now(),
	}

	total := 0
	for i, p := range passages {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("lexical rebuild cancelled: %w", err)
			}
		}

		tokens := Tokenize(p.Text)
		snap.corpusTokens = append(snap.corpusTokens, tokens)
		snap.docs = append(snap.docs, p)
		snap.docLens = append(snap.docLens, len(tokens))
		total += len(tokens)

		tf := make(map[string]int, len(tokens))
		for _, tok := range tokens {
			tf[tok]++
		}
		for term, n := range tf {
			snap.postings[term] = append(snap.postings[term], posting{doc: i, tf: n})
		}
	}
	snap.avgLen = float64(total) / float64(len(passages))

	return snap, nil
}

// validate checks the parallel-sequence invariants of a snapshot.
func (s *lexicalSnapshot) validate() error {
	if len(s.corpusTokens) != len(s.docs) || len(s.docLens) != len(s.docs) {
		return amanerrors.New(amanerrors.ErrCodeIndexInconsistent,
			fmt.Sprintf("lexical snapshot has %d token rows, %d lengths and %d passages",
				len(s.corpusTokens), len(s.docLens), len(s.docs)), nil)
	}
	return nil
}

// idf is the Lucene variant of BM25 inverse document frequency; it is always positive.
func idf(n, df int) float64 {
	return math.Log(1 + (float64(n)-float64(df)+0.5)/(float64(df)+0.5))
}

// Score returns every passage with a positive BM25 score for queryTokens,
// in corpus order rather than score order. Repeated query tokens contribute repeatedly.
// An absent index or empty query yields an empty slice.
func (ix *LexicalIndex) Score(queryTokens []string) []ScoredPassage {
	snap := ix.current.Load()
	if snap == nil || len(queryTokens) == 0 {
		return []ScoredPassage{}
	}

	k1, b := ix.config.K1, ix.config.B
	n := len(snap.docs)
	scores := make(map[int]float64)

	for _, term := range queryTokens {
		plist, ok := snap.postings[term]
		if !ok {
			continue
		}
		w := idf(n, len(plist))
		for _, p := range plist {
			tf := float64(p.tf)
			norm := 1 - b + b*float64(snap.docLens[p.doc])/snap.avgLen
			scores[p.doc] += w * tf * (k1 + 1) / (tf + k1*norm)
		}
	}

	results := make([]ScoredPassage, 0, len(scores))
	for _, doc := range slices.Sorted(maps.Keys(scores)) {
		if s := scores[doc]; s > 0 {
			results = append(results, ScoredPassage{Passage: snap.docs[doc], Score: s})
		}
	}
	return results
}

// Search tokenizes query, scores it and returns at most limit hits ordered by
// descending score. Ties are ordered by corpus position.
func (ix *LexicalIndex) Search(ctx context.Context, query string, limit int) ([]ScoredPassage, error) {
	if err := ctx.Err(); err != nil {
		return nil, amanerrors.New(amanerrors.ErrCodeRetrievalUnavailable, "lexical search cancelled", err)
	}

	hits := ix.Score(Tokenize(query))
	slices.SortStableFunc(hits, func(a, b ScoredPassage) int {
		return cmp.Compare(b.Score, a.Score)
	})
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// Len returns the number of indexed passages.
func (ix *LexicalIndex) Len() int {
	snap := ix.current.Load()
	if snap == nil {
		return 0
	}
	return len(snap.docs)
}

// Stats returns statistics for the current snapshot.
func (ix *LexicalIndex) Stats() IndexStats {
	snap := ix.current.Load()
	if snap == nil {
		return IndexStats{}
	}
	return IndexStats{
		Documents: len(snap.docs),
		Terms:     len(snap.postings),
		AvgLength: snap.avgLen,
	}
}
