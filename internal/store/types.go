// Package store holds the retrieval data model and the persistence layers behind it:
// the lexical BM25 snapshot index, the HNSW vector store and the SQLite passage store.
package store

import (
	"fmt"
	"slices"
	"strconv"
)

// Passage is a chunk of source text plus its provenance metadata, the unit of retrieval.
// Passages are treated as immutable once created.
type Passage struct {
	Text     string   `json:"text"`
	Metadata Metadata `json:"metadata"`
}

// Metadata describes where a passage came from.
type Metadata struct {
	SourceID string            `json:"source"`
	Page     *int              `json:"page,omitempty"`
	Tags     []string          `json:"tags,omitempty"`
	Extra    map[string]string `json:"extra,omitempty"`
}

// NewPassage builds a passage without page information.
func NewPassage(text, sourceID string) Passage {
	return Passage{Text: text, Metadata: Metadata{SourceID: sourceID}}
}

// WithPage returns a copy of p carrying the given page number.
func (p Passage) WithPage(page int) Passage {
	p.Metadata.Page = &page
	return p
}

// Label is the human-readable source attribution: "source (Page N)" or "source".
func (p Passage) Label() string {
	if p.Metadata.Page != nil {
		return p.Metadata.SourceID + " (Page " + strconv.Itoa(*p.Metadata.Page) + ")"
	}
	return p.Metadata.SourceID
}

// HasAnyTag reports whether the passage carries at least one of tags.
// An empty filter matches everything.
func (p Passage) HasAnyTag(tags []string) bool {
	if len(tags) == 0 {
		return true
	}
	for _, t := range p.Metadata.Tags {
		if slices.Contains(tags, t) {
			return true
		}
	}
	return false
}

// StoredPassage is a passage together with the ID assigned by the passage store.
type StoredPassage struct {
	ID string `json:"id"`
	Passage
}

// ScoredPassage is a lexical hit with its raw BM25 score.
type ScoredPassage struct {
	Passage Passage
	Score   float64
}

// VectorHit is a semantic hit; Distance is a metric distance, smaller is more similar.
type VectorHit struct {
	Passage  Passage
	Distance float64
}

// BM25Config configures BM25 scoring parameters.
type BM25Config struct {
	K1 float64 `yaml:"k1" json:"k1"` // Term frequency saturation (default: 1.2)
	B  float64 `yaml:"b" json:"b"`   // Length normalization (default: 0.75)
}

// DefaultBM25Config returns sensible defaults for BM25 scoring.
func DefaultBM25Config() BM25Config {
	return BM25Config{K1: 1.2, B: 0.75}
}

// IndexStats contains lexical index statistics.
type IndexStats struct {
	Documents int     `json:"documents"`
	Terms     int     `json:"terms"`
	AvgLength float64 `json:"avg_length"`
}

// SourceInfo summarizes the passages stored for one source.
type SourceInfo struct {
	SourceID string   `json:"source"`
	Passages int      `json:"passages"`
	Tags     []string `json:"tags,omitempty"`
}

// VectorStoreConfig configures the HNSW vector store.
type VectorStoreConfig struct {
	Dimensions int    // Embedding dimensions
	Metric     string // "cos" or "l2"
	M          int    // Max connections per node (default: 16)
	EfSearch   int    // Search-time candidate list size (default: 20)
}

// DefaultVectorStoreConfig returns defaults for the given dimensions.
func DefaultVectorStoreConfig(dimensions int) VectorStoreConfig {
	return VectorStoreConfig{
		Dimensions: dimensions,
		Metric:     "cos",
		M:          16,
		EfSearch:   64,
	}
}

// VectorResult is one nearest neighbour returned by the vector store.
type VectorResult struct {
	ID       string
	Distance float32
}

// ErrDimensionMismatch indicates vector dimensions don't match the store configuration.
type ErrDimensionMismatch struct {
	Expected int
	Got      int
}

func (e ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Got)
}
