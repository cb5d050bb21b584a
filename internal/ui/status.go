package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/Aman-CERP/amanrag/internal/answer"
	"github.com/Aman-CERP/amanrag/internal/index"
	"github.com/Aman-CERP/amanrag/internal/store"
)

// StatusInfo is the index status plus on-disk sizes.
type StatusInfo struct {
	DataDir     string        `json:"data_dir"`
	Index       *index.Status `json:"index"`
	PassageSize int64         `json:"passage_db_size"`
	VectorSize  int64         `json:"vector_graph_size"`
}

// StatusRenderer displays index status and source listings.
type StatusRenderer struct {
	out    io.Writer
	styles Styles
}

// NewStatusRenderer creates a status renderer.
func NewStatusRenderer(out io.Writer, noColor bool) *StatusRenderer {
	return &StatusRenderer{out: out, styles: GetStyles(noColor)}
}

// Render displays status info to terminal.
func (r *StatusRenderer) Render(info StatusInfo) error {
	st := info.Index
	if st == nil {
		st = &index.Status{}
	}
	_, _ = fmt.Fprintf(r.out, "%s\n\n", r.styles.Header.Render("Index Status"))

	_, _ = fmt.Fprintf(r.out, "  %s %d\n", r.styles.Label.Render("Passages:   "), st.Passages)
	_, _ = fmt.Fprintf(r.out, "  %s %d\n", r.styles.Label.Render("Sources:    "), len(st.Sources))
	_, _ = fmt.Fprintf(r.out, "  %s %d documents, %d terms, avg length %.1f\n",
		r.styles.Label.Render("Lexical:    "), st.Lexical.Documents, st.Lexical.Terms, st.Lexical.AvgLength)
	_, _ = fmt.Fprintf(r.out, "  %s %d (%s, %d dims)\n",
		r.styles.Label.Render("Vectors:    "), st.Vectors, st.Model, st.Dimensions)
	_, _ = fmt.Fprintf(r.out, "  %s %s\n", r.styles.Label.Render("Consistency:"), r.consistency(st))
	_, _ = fmt.Fprintln(r.out)

	if info.DataDir != "" {
		_, _ = fmt.Fprintf(r.out, "  Storage (%s):\n", info.DataDir)
		_, _ = fmt.Fprintf(r.out, "    Passages: %s\n", FormatBytes(info.PassageSize))
		_, _ = fmt.Fprintf(r.out, "    Vectors:  %s\n", FormatBytes(info.VectorSize))
		_, _ = fmt.Fprintf(r.out, "    Total:    %s\n", FormatBytes(info.PassageSize+info.VectorSize))
	}
	return nil
}

func (r *StatusRenderer) consistency(st *index.Status) string {
	if st.Passages == st.Vectors && st.Passages == st.Lexical.Documents {
		return r.styles.Success.Render("ok")
	}
	return r.styles.Warning.Render("drift (restart to repair)")
}

// RenderJSON outputs status as JSON.
func (r *StatusRenderer) RenderJSON(v any) error {
	encoder := json.NewEncoder(r.out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// RenderSources lists sources with their passage counts and tags.
func (r *StatusRenderer) RenderSources(sources []store.SourceInfo) {
	if len(sources) == 0 {
		_, _ = fmt.Fprintln(r.out, r.styles.Dim.Render("No sources indexed."))
		return
	}
	width := 0
	for _, s := range sources {
		width = max(width, len(s.SourceID))
	}
	for _, s := range sources {
		line := fmt.Sprintf("%-*s  %5d passage", width, s.SourceID, s.Passages)
		if s.Passages != 1 {
			line += "s"
		}
		if len(s.Tags) > 0 {
			line += "  " + r.styles.Label.Render("["+strings.Join(s.Tags, ", ")+"]")
		}
		_, _ = fmt.Fprintln(r.out, line)
	}
}

// RenderProvenance writes the sources footer printed after a streamed answer.
func (r *StatusRenderer) RenderProvenance(p answer.Provenance) {
	rule := r.styles.Rule.Render(strings.Repeat("─", 40))
	_, _ = fmt.Fprintf(r.out, "\n%s\n", rule)
	if p.IsEmpty() {
		_, _ = fmt.Fprintln(r.out, r.styles.Warning.Render("No supporting passages found."))
		return
	}
	_, _ = fmt.Fprintf(r.out, "%s %s\n",
		r.styles.Header.Render("Sources"),
		r.styles.Score.Render(fmt.Sprintf("(quality %.2f)", p.QualityScore)))
	for _, s := range p.SourceScores {
		_, _ = fmt.Fprintf(r.out, "  %s %s\n", s.Source, r.styles.Score.Render(fmt.Sprintf("%.3f", s.Score)))
	}
}

// FormatBytes formats bytes to human-readable format.
func FormatBytes(bytes int64) string {
	const (
		KB = 1024
		MB = 1024 * KB
		GB = 1024 * MB
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/float64(GB))
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
