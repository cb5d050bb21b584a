package search

import (
	"fmt"

	amanerrors "github.com/Aman-CERP/amanrag/internal/errors"
)

// Retrieval defaults.
const (
	DefaultK                = 5
	DefaultSearchMultiplier = 10
	DefaultVectorWeight     = 0.5

	// MaxK bounds the number of passages handed to the generator.
	MaxK = 50
	// MaxSearchMultiplier bounds per-strategy candidate fan-out.
	MaxSearchMultiplier = 100
)

// Options configures one retrieval.
type Options struct {
	Mode RetrievalMode

	// K is the number of passages to return (default 5).
	K int

	// Multiplier scales the per-strategy candidate count to K*Multiplier (default 10).
	Multiplier int

	// VectorWeight is the hybrid weight of the vector score in [0,1].
	// nil means DefaultVectorWeight; 0 is a valid explicit value.
	VectorWeight *float64

	// ExpandQuery enables LLM query expansion.
	ExpandQuery bool

	// Tags restricts candidates to passages carrying at least one tag.
	Tags []string
}

// DefaultOptions returns hybrid retrieval with expansion enabled.
func DefaultOptions() Options {
	w := DefaultVectorWeight
	return Options{
		Mode:         ModeHybrid,
		K:            DefaultK,
		Multiplier:   DefaultSearchMultiplier,
		VectorWeight: &w,
		ExpandQuery:  true,
	}
}

// withDefaults fills zero values.
func (o Options) withDefaults() Options {
	if o.K <= 0 {
		o.K = DefaultK
	}
	if o.Multiplier <= 0 {
		o.Multiplier = DefaultSearchMultiplier
	}
	if o.VectorWeight == nil {
		w := DefaultVectorWeight
		o.VectorWeight = &w
	}
	return o
}

// weight returns the vector weight, defaulted.
func (o Options) weight() float64 {
	if o.VectorWeight == nil {
		return DefaultVectorWeight
	}
	return *o.VectorWeight
}

// Validate checks option ranges.
func (o Options) Validate() error {
	if o.K < 0 || o.K > MaxK {
		return amanerrors.New(amanerrors.ErrCodeInvalidOptions, fmt.Sprintf("k must be between 1 and %d, got %d", MaxK, o.K), nil)
	}
	if o.Multiplier < 0 || o.Multiplier > MaxSearchMultiplier {
		return amanerrors.New(amanerrors.ErrCodeInvalidOptions, fmt.Sprintf("search multiplier must be between 1 and %d, got %d", MaxSearchMultiplier, o.Multiplier), nil)
	}
	if w := o.weight(); w < 0 || w > 1 {
		return amanerrors.New(amanerrors.ErrCodeInvalidOptions, fmt.Sprintf("vector weight must be between 0 and 1, got %v", w), nil)
	}
	if o.Mode < ModeNone || o.Mode > ModeHybrid {
		return amanerrors.New(amanerrors.ErrCodeInvalidOptions, fmt.Sprintf("unknown retrieval mode %d", o.Mode), nil)
	}
	return nil
}
