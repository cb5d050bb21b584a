package mcp

import (
	"fmt"
	"strings"

	"github.com/Aman-CERP/amanrag/internal/answer"
	"github.com/Aman-CERP/amanrag/internal/index"
	"github.com/Aman-CERP/amanrag/internal/search"
)

// FormatAnswer renders an answer with its sources as markdown.
func FormatAnswer(out AskOutput) string {
	var sb strings.Builder
	sb.WriteString(out.Answer)
	sb.WriteString("\n")

	if len(out.Sources) == 0 {
		if out.Mode != search.ModeNone.String() {
			sb.WriteString("\n_No matching passages were found; the answer is not grounded in indexed sources._\n")
		}
		return sb.String()
	}

	fmt.Fprintf(&sb, "\n**Sources** (quality %.2f):\n", out.QualityScore)
	for _, src := range out.Sources {
		fmt.Fprintf(&sb, "- %s\n", src)
	}
	return sb.String()
}

// FormatPassages renders ranked passages as markdown.
func FormatPassages(query string, out RetrieveOutput) string {
	if len(out.Passages) == 0 {
		return fmt.Sprintf("No passages found for \"%s\"", query)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Passages for \"%s\"\n\n", query)
	fmt.Fprintf(&sb, "Found %d passage", len(out.Passages))
	if len(out.Passages) != 1 {
		sb.WriteString("s")
	}
	sb.WriteString("\n\n")
	if len(out.Queries) > 1 {
		fmt.Fprintf(&sb, "Searched: %s\n\n", strings.Join(out.Queries, " | "))
	}

	for i, p := range out.Passages {
		fmt.Fprintf(&sb, "### %d. %s (score: %.2f)\n\n", i+1, p.Label, p.Score)
		if len(p.Tags) > 0 {
			fmt.Fprintf(&sb, "**Tags:** %s\n\n", strings.Join(p.Tags, ", "))
		}
		sb.WriteString(p.Text)
		sb.WriteString("\n\n")
	}
	return sb.String()
}

// clampLimit ensures limit is within bounds.
func clampLimit(limit, defaultVal, min, max int) int {
	if limit <= 0 {
		return defaultVal
	}
	if limit < min {
		return min
	}
	if limit > max {
		return max
	}
	return limit
}

// ToPassageOutput converts a fused result to its tool output form.
func ToPassageOutput(r search.FusedResult) PassageOutput {
	return PassageOutput{
		Source:       r.Passage.Metadata.SourceID,
		Page:         r.Passage.Metadata.Page,
		Label:        r.Passage.Label(),
		Text:         r.Passage.Text,
		Tags:         r.Passage.Metadata.Tags,
		Score:        r.Fused,
		LexicalScore: r.LexicalNorm,
		VectorScore:  r.VectorNorm,
	}
}

func toAskOutput(ans *answer.Answer) AskOutput {
	return AskOutput{
		Answer:       ans.Text,
		Mode:         ans.Mode,
		Sources:      ans.Provenance.Sources,
		SourceScores: ans.Provenance.SourceScores,
		QualityScore: ans.Provenance.QualityScore,
		Queries:      ans.Queries,
	}
}

func toIndexStatus(st *index.Status, version string) *IndexStatusOutput {
	out := &IndexStatusOutput{
		Passages: st.Passages,
		Vectors:  st.Vectors,
		Lexical: LexicalStats{
			Documents: st.Lexical.Documents,
			Terms:     st.Lexical.Terms,
			AvgLength: st.Lexical.AvgLength,
		},
		Sources: make([]SourceStats, 0, len(st.Sources)),
		Embeddings: EmbeddingInfo{
			Model:      st.Model,
			Dimensions: st.Dimensions,
			Status:     "ready",
		},
		Version: version,
	}
	if st.Passages == 0 {
		out.Embeddings.Status = "empty"
	}
	for _, src := range st.Sources {
		out.Sources = append(out.Sources, SourceStats{Source: src.SourceID, Passages: src.Passages, Tags: src.Tags})
	}
	return out
}
