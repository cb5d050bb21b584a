// Package answer assembles retrieved passages into a prompt, drives text
// generation and attaches a provenance record to the generated answer.
//
// One query moves through NoContext or ContextBuilt, then Generating, then
// Completed. Streaming answers end with a single out-of-band fragment that
// starts with SourcesSentinel and carries the provenance as JSON.
package answer

import (
	"github.com/Aman-CERP/amanrag/internal/llm"
	"github.com/Aman-CERP/amanrag/internal/search"
)

// State is the assembler state of one query.
type State int

const (
	// StateNoContext means retrieval produced no passages (or was disabled).
	StateNoContext State = iota
	// StateContextBuilt means the selected passages form the prompt context.
	StateContextBuilt
	// StateGenerating means the prompt was submitted to the generator.
	StateGenerating
	// StateCompleted means generation ended and provenance was computed.
	StateCompleted
)

func (s State) String() string {
	switch s {
	case StateNoContext:
		return "no_context"
	case StateContextBuilt:
		return "context_built"
	case StateGenerating:
		return "generating"
	case StateCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// Turn is one conversation message.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// QueryOptions are the per-query options accepted from transports.
type QueryOptions struct {
	K                    int                  `json:"k,omitempty"`
	SearchMultiplier     int                  `json:"search_multiplier,omitempty"`
	UseRAG               bool                 `json:"use_rag"`
	UseHybridSearch      bool                 `json:"use_hybrid_search"`
	VectorWeight         *float64             `json:"vector_weight,omitempty"`
	EnableQueryExpansion bool                 `json:"enable_query_expansion"`
	ChatHistory          []Turn               `json:"chat_history,omitempty"`
	SystemPrompt         string               `json:"system_prompt,omitempty"`
	Tags                 []string             `json:"tags,omitempty"`
	Generation           llm.GenerationParams `json:"generation"`
}

// DefaultQueryOptions returns hybrid RAG with query expansion.
func DefaultQueryOptions() QueryOptions {
	return QueryOptions{
		K:                    search.DefaultK,
		SearchMultiplier:     search.DefaultSearchMultiplier,
		UseRAG:               true,
		UseHybridSearch:      true,
		EnableQueryExpansion: true,
	}
}

// Mode returns the retrieval mode selected by the flags.
func (o QueryOptions) Mode() search.RetrievalMode {
	return search.ModeFor(o.UseRAG, o.UseHybridSearch)
}

func (o QueryOptions) searchOptions() search.Options {
	return search.Options{
		Mode:         o.Mode(),
		K:            o.K,
		Multiplier:   o.SearchMultiplier,
		VectorWeight: o.VectorWeight,
		ExpandQuery:  o.EnableQueryExpansion,
		Tags:         o.Tags,
	}
}

// Answer is the result of a non-streaming query.
type Answer struct {
	Text       string     `json:"answer"`
	Provenance Provenance `json:"provenance"`
	State      State      `json:"-"`
	Mode       string     `json:"mode"`
	Queries    []string   `json:"queries,omitempty"`
}
