package store

import (
	"regexp"
	"strings"
)

// tokenPattern extracts, in priority order: runs of CJK ideographs, hiragana and
// katakana; runs of ASCII letters and digits; numeric literals with one decimal point.
// Alternation is leftmost-first, so "3.14" yields ["3", "14"].
var tokenPattern = regexp.MustCompile(`[一-龥ぁ-んァ-ヴー]+|[a-zA-Z0-9]+|[0-9]+(?:\.[0-9]+)?`)

// Tokenize lower-cases text and splits it into lexical tokens.
// Punctuation and whitespace never produce tokens.
func Tokenize(text string) []string {
	// Return empty slice, not nil, for consistent API behavior
	if text == "" {
		return []string{}
	}
	tokens := tokenPattern.FindAllString(strings.ToLower(text), -1)
	if tokens == nil {
		return []string{}
	}
	return tokens
}
