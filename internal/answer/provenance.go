package answer

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/Aman-CERP/amanrag/internal/search"
)

// SourcesSentinel prefixes the trailing provenance fragment of a stream.
const SourcesSentinel = "__SOURCES__:"

// SourceScore is the relevance of one selected passage.
type SourceScore struct {
	Source string  `json:"source"`
	Score  float64 `json:"score"`
}

// Provenance attributes an answer to the passages used to build its context.
// SourceScores is in ranking order; Sources holds the distinct labels in
// first-seen order.
type Provenance struct {
	Sources      []string      `json:"sources"`
	SourceScores []SourceScore `json:"source_scores"`
	QualityScore float64       `json:"quality_score"`
}

// NewProvenance builds the provenance record of ranked results. The score of
// each result is its fused score, which in vector mode is the normalized distance.
func NewProvenance(results []search.FusedResult) Provenance {
	p := Provenance{
		Sources:      make([]string, 0, len(results)),
		SourceScores: make([]SourceScore, 0, len(results)),
	}
	seen := make(map[string]struct{}, len(results))
	var total float64
	for _, r := range results {
		label := r.Passage.Label()
		if _, ok := seen[label]; !ok {
			seen[label] = struct{}{}
			p.Sources = append(p.Sources, label)
		}
		score := round3(r.Fused)
		p.SourceScores = append(p.SourceScores, SourceScore{Source: label, Score: score})
		total += score
	}
	if len(p.SourceScores) > 0 {
		p.QualityScore = round3(total / float64(len(p.SourceScores)))
	}
	return p
}

// IsEmpty reports whether no passage was used.
func (p Provenance) IsEmpty() bool {
	return len(p.SourceScores) == 0
}

// Fragment encodes p as the trailing stream fragment.
func (p Provenance) Fragment() (string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("encode provenance: %w", err)
	}
	return SourcesSentinel + string(data), nil
}

// ParseFragment decodes a fragment produced by Fragment. ok is false when the
// fragment does not carry the sentinel.
func ParseFragment(fragment string) (p Provenance, ok bool, err error) {
	payload, found := strings.CutPrefix(fragment, SourcesSentinel)
	if !found {
		return Provenance{}, false, nil
	}
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		return Provenance{}, true, fmt.Errorf("decode provenance: %w", err)
	}
	return p, true, nil
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
