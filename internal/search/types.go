// Package search turns a question into a ranked, deduplicated set of passages.
// Lexical (BM25) and vector candidates are gathered for every expanded query
// variant, min-max normalized per strategy and fused with a weighted sum.
package search

import (
	"context"

	"github.com/Aman-CERP/amanrag/internal/store"
)

// RetrievalMode selects how passages are retrieved and ranked.
type RetrievalMode int

const (
	// ModeNone answers without retrieved context.
	ModeNone RetrievalMode = iota
	// ModeVector ranks vector candidates by ascending distance.
	ModeVector
	// ModeHybrid fuses normalized lexical and vector scores.
	ModeHybrid
)

func (m RetrievalMode) String() string {
	switch m {
	case ModeNone:
		return "none"
	case ModeVector:
		return "vector"
	case ModeHybrid:
		return "hybrid"
	default:
		return "unknown"
	}
}

// ModeFor maps the transport-level flags to a retrieval mode.
func ModeFor(useRAG, useHybrid bool) RetrievalMode {
	switch {
	case !useRAG:
		return ModeNone
	case useHybrid:
		return ModeHybrid
	default:
		return ModeVector
	}
}

// Strategy identifies which search produced a candidate.
type Strategy int

const (
	StrategyLexical Strategy = iota
	StrategyVector
)

func (s Strategy) String() string {
	if s == StrategyVector {
		return "vector"
	}
	return "lexical"
}

// Candidate is one raw hit from one strategy. For lexical candidates Raw is
// a BM25 score (higher is better); for vector candidates it is a distance
// (lower is better).
type Candidate struct {
	Passage  store.Passage
	Raw      float64
	Strategy Strategy
}

// FusedResult is a ranked passage. In hybrid mode Fused is the weighted sum of
// the normalized strategy scores; in vector mode it equals VectorNorm.
type FusedResult struct {
	Passage     store.Passage
	LexicalNorm float64
	VectorNorm  float64
	Fused       float64
}

// VectorIndex is the semantic search collaborator.
type VectorIndex interface {
	// Search returns up to limit (passage, distance) pairs, nearest first.
	Search(ctx context.Context, query string, limit int) ([]store.VectorHit, error)
}

// LexicalSearcher is the lexical search collaborator; *store.LexicalIndex implements it.
type LexicalSearcher interface {
	Search(ctx context.Context, query string, limit int) ([]store.ScoredPassage, error)
}

// Recorder receives retrieval observations. Implementations must be safe for
// concurrent use.
type Recorder interface {
	RecordCandidates(strategy string, n int)
	RecordRetrievalFailure(strategy string)
}

type nopRecorder struct{}

func (nopRecorder) RecordCandidates(string, int)  {}
func (nopRecorder) RecordRetrievalFailure(string) {}
