package mcp

import "github.com/Aman-CERP/amanrag/internal/answer"

// AskInput defines the input schema for the ask tool. Unset options fall
// back to the configured defaults.
type AskInput struct {
	Question        string   `json:"question" jsonschema:"the question to answer"`
	K               int      `json:"k,omitempty" jsonschema:"number of passages used as context, default 5"`
	UseRAG          *bool    `json:"use_rag,omitempty" jsonschema:"retrieve passages before answering, default true"`
	UseHybridSearch *bool    `json:"use_hybrid_search,omitempty" jsonschema:"fuse keyword and vector search, default true"`
	VectorWeight    *float64 `json:"vector_weight,omitempty" jsonschema:"weight of the vector score in hybrid fusion, 0 to 1"`
	ExpandQuery     *bool    `json:"expand_query,omitempty" jsonschema:"ask the language model for alternative phrasings"`
	Tags            []string `json:"tags,omitempty" jsonschema:"only use passages carrying at least one of these tags"`
	SystemPrompt    string   `json:"system_prompt,omitempty" jsonschema:"overrides the default system instruction"`
}

// AskOutput defines the output schema for the ask tool.
type AskOutput struct {
	Answer       string               `json:"answer" jsonschema:"the generated answer"`
	Mode         string               `json:"mode" jsonschema:"retrieval mode used: none, vector or hybrid"`
	Sources      []string             `json:"sources" jsonschema:"distinct labels of the passages used"`
	SourceScores []answer.SourceScore `json:"source_scores" jsonschema:"fused score of every passage used"`
	QualityScore float64              `json:"quality_score" jsonschema:"mean fused score of the passages used"`
	Queries      []string             `json:"queries,omitempty" jsonschema:"query variants that were searched"`
}

// RetrieveInput defines the input schema for the retrieve tool.
type RetrieveInput struct {
	Query           string   `json:"query" jsonschema:"the search query"`
	K               int      `json:"k,omitempty" jsonschema:"maximum number of passages, default 5"`
	UseHybridSearch *bool    `json:"use_hybrid_search,omitempty" jsonschema:"fuse keyword and vector search, default true"`
	VectorWeight    *float64 `json:"vector_weight,omitempty" jsonschema:"weight of the vector score in hybrid fusion, 0 to 1"`
	ExpandQuery     *bool    `json:"expand_query,omitempty" jsonschema:"ask the language model for alternative phrasings"`
	Tags            []string `json:"tags,omitempty" jsonschema:"only return passages carrying at least one of these tags"`
}

// RetrieveOutput defines the output schema for the retrieve tool.
type RetrieveOutput struct {
	Queries  []string        `json:"queries" jsonschema:"query variants that were searched"`
	Passages []PassageOutput `json:"passages" jsonschema:"ranked passages, best first"`
}

// PassageOutput is a single ranked passage.
type PassageOutput struct {
	Source       string   `json:"source" jsonschema:"source document identifier"`
	Page         *int     `json:"page,omitempty" jsonschema:"page number within the source"`
	Label        string   `json:"label" jsonschema:"citation label of the passage"`
	Text         string   `json:"text" jsonschema:"passage text"`
	Tags         []string `json:"tags,omitempty" jsonschema:"passage tags"`
	Score        float64  `json:"score" jsonschema:"fused relevance score between 0 and 1"`
	LexicalScore float64  `json:"lexical_score" jsonschema:"normalized keyword score"`
	VectorScore  float64  `json:"vector_score" jsonschema:"normalized vector similarity"`
}

// IndexStatusInput defines the input schema for the index_status tool (no parameters).
type IndexStatusInput struct{}

// IndexStatusOutput defines the output schema for the index_status tool.
type IndexStatusOutput struct {
	Passages   int           `json:"passages"`
	Vectors    int           `json:"vectors"`
	Lexical    LexicalStats  `json:"lexical"`
	Sources    []SourceStats `json:"sources"`
	Embeddings EmbeddingInfo `json:"embeddings"`
	Version    string        `json:"version"`
}

// LexicalStats describes the published BM25 snapshot.
type LexicalStats struct {
	Documents int     `json:"documents"`
	Terms     int     `json:"terms"`
	AvgLength float64 `json:"avg_length"`
}

// SourceStats counts the passages of one source.
type SourceStats struct {
	Source   string   `json:"source"`
	Passages int      `json:"passages"`
	Tags     []string `json:"tags,omitempty"`
}

// EmbeddingInfo contains information about the active embedding model.
type EmbeddingInfo struct {
	Model      string `json:"model"`
	Dimensions int    `json:"dimensions"`
	Status     string `json:"status"` // "ready" or "empty"
}
