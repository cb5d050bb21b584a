package llm

import (
	"fmt"

	"github.com/tmc/langchaingo/llms"
)

// GenerationParams is the closed set of per-call options forwarded to the
// text generator. A nil pointer or empty value means "unset": the option is
// not forwarded and the model's own default applies.
type GenerationParams struct {
	Model         string   `json:"model,omitempty" yaml:"model,omitempty"`
	Temperature   *float64 `json:"temperature,omitempty" yaml:"temperature,omitempty"`
	TopP          *float64 `json:"top_p,omitempty" yaml:"top_p,omitempty"`
	TopK          *int     `json:"top_k,omitempty" yaml:"top_k,omitempty"`
	RepeatPenalty *float64 `json:"repeat_penalty,omitempty" yaml:"repeat_penalty,omitempty"`
	NumPredict    *int     `json:"num_predict,omitempty" yaml:"num_predict,omitempty"`
	Seed          *int     `json:"seed,omitempty" yaml:"seed,omitempty"`
	Stop          []string `json:"stop,omitempty" yaml:"stop,omitempty"`
}

// Float returns a pointer to v, for building params literals.
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v, for building params literals.
func Int(v int) *int { return &v }

// WithDefaults returns p with every unset field taken from defaults.
func (p GenerationParams) WithDefaults(defaults GenerationParams) GenerationParams {
	if p.Model == "" {
		p.Model = defaults.Model
	}
	if p.Temperature == nil {
		p.Temperature = defaults.Temperature
	}
	if p.TopP == nil {
		p.TopP = defaults.TopP
	}
	if p.TopK == nil {
		p.TopK = defaults.TopK
	}
	if p.RepeatPenalty == nil {
		p.RepeatPenalty = defaults.RepeatPenalty
	}
	if p.NumPredict == nil {
		p.NumPredict = defaults.NumPredict
	}
	if p.Seed == nil {
		p.Seed = defaults.Seed
	}
	if p.Stop == nil {
		p.Stop = defaults.Stop
	}
	return p
}

// Validate checks value ranges of the set fields.
func (p GenerationParams) Validate() error {
	if p.Temperature != nil && (*p.Temperature < 0 || *p.Temperature > 2) {
		return fmt.Errorf("temperature must be between 0 and 2, got %v", *p.Temperature)
	}
	if p.TopP != nil && (*p.TopP < 0 || *p.TopP > 1) {
		return fmt.Errorf("top_p must be between 0 and 1, got %v", *p.TopP)
	}
	if p.TopK != nil && *p.TopK < 0 {
		return fmt.Errorf("top_k must be non-negative, got %d", *p.TopK)
	}
	if p.RepeatPenalty != nil && *p.RepeatPenalty < 0 {
		return fmt.Errorf("repeat_penalty must be non-negative, got %v", *p.RepeatPenalty)
	}
	if p.NumPredict != nil && *p.NumPredict < -2 {
		return fmt.Errorf("num_predict must be >= -2, got %d", *p.NumPredict)
	}
	return nil
}

// CallOptions translates the set fields into langchaingo call options.
func (p GenerationParams) CallOptions() []llms.CallOption {
	var opts []llms.CallOption
	if p.Model != "" {
		opts = append(opts, llms.WithModel(p.Model))
	}
	if p.Temperature != nil {
		opts = append(opts, llms.WithTemperature(*p.Temperature))
	}
	if p.TopP != nil {
		opts = append(opts, llms.WithTopP(*p.TopP))
	}
	if p.TopK != nil {
		opts = append(opts, llms.WithTopK(*p.TopK))
	}
	if p.RepeatPenalty != nil {
		opts = append(opts, llms.WithRepetitionPenalty(*p.RepeatPenalty))
	}
	if p.NumPredict != nil {
		opts = append(opts, llms.WithMaxTokens(*p.NumPredict))
	}
	if p.Seed != nil {
		opts = append(opts, llms.WithSeed(*p.Seed))
	}
	if len(p.Stop) > 0 {
		opts = append(opts, llms.WithStopWords(p.Stop))
	}
	return opts
}
