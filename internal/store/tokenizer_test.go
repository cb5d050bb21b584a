package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		expect []string
	}{
		{
			name:   "lower-cases ascii words",
			input:  "Cats ARE Mammals",
			expect: []string{"cats", "are", "mammals"},
		},
		{
			name:   "drops punctuation and whitespace",
			input:  "hello, world! (again)",
			expect: []string{"hello", "world", "again"},
		},
		{
			name:   "decimal splits on the point",
			input:  "pi is 3.14",
			expect: []string{"pi", "is", "3", "14"},
		},
		{
			name:   "ideographic run is one token",
			input:  "東京タワーへ行く",
			expect: []string{"東京タワーへ行く"},
		},
		{
			name:   "mixed scripts split at class boundaries",
			input:  "Go言語2024年",
			expect: []string{"go", "言語", "2024", "年"},
		},
		{
			name:   "only punctuation",
			input:  "!?,.",
			expect: []string{},
		},
		{
			name:   "empty input",
			input:  "",
			expect: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, Tokenize(tt.input))
		})
	}
}

func TestTokenize_IsDeterministic(t *testing.T) {
	// Given: the same input tokenized twice
	text := "Hybrid retrieval 混合検索 v2.0"

	// Then: the results are identical
	assert.Equal(t, Tokenize(text), Tokenize(text))
}
