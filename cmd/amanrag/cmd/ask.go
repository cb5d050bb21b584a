package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/amanrag/internal/answer"
	"github.com/Aman-CERP/amanrag/internal/llm"
	"github.com/Aman-CERP/amanrag/internal/search"
	"github.com/Aman-CERP/amanrag/internal/ui"
)

type askOptions struct {
	k          int
	noRAG      bool
	vectorOnly bool
	weight     float64
	noExpand   bool
	tags       []string
	system     string
	jsonOutput bool

	// llm replaces the configured generator in tests.
	llm llm.Generator
}

func newAskCmd(global *globalOptions) *cobra.Command {
	var opts askOptions

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a question from the indexed passages",
		Long: `Answer a question from the indexed passages.

The answer is streamed as it is generated and followed by the sources it
was grounded on.

Examples:
  amanrag ask "why do cats purr"
  amanrag ask "nesting habits" --tag birds -k 3
  amanrag ask "what is BM25" --vector-only --weight 1
  amanrag ask "tell me a joke" --no-rag`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAsk(cmd.Context(), cmd, global, strings.Join(args, " "), opts)
		},
	}

	cmd.Flags().IntVarP(&opts.k, "k", "k", 0, "Number of passages in the prompt context (default from retrieval.k)")
	cmd.Flags().BoolVar(&opts.noRAG, "no-rag", false, "Ask the model directly without retrieval")
	cmd.Flags().BoolVar(&opts.vectorOnly, "vector-only", false, "Use vector search only")
	cmd.Flags().Float64Var(&opts.weight, "weight", -1, "Vector weight in [0,1] for hybrid fusion (default from retrieval.vector_weight)")
	cmd.Flags().BoolVar(&opts.noExpand, "no-expand", false, "Disable query expansion")
	cmd.Flags().StringSliceVarP(&opts.tags, "tag", "t", nil, "Only use passages with this tag (repeatable)")
	cmd.Flags().StringVar(&opts.system, "system", "", "Custom system prompt")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Print the complete answer as JSON")

	return cmd
}

// queryOptions applies the flags over the configured defaults.
func (o askOptions) queryOptions(defaults answer.QueryOptions) answer.QueryOptions {
	q := defaults
	if o.k > 0 {
		q.K = o.k
	}
	if o.noRAG {
		q.UseRAG = false
	}
	if o.vectorOnly {
		q.UseHybridSearch = false
	}
	if o.weight >= 0 {
		w := o.weight
		q.VectorWeight = &w
	}
	if o.noExpand {
		q.EnableQueryExpansion = false
	}
	q.Tags = o.tags
	q.SystemPrompt = o.system
	return q
}

func runAsk(ctx context.Context, cmd *cobra.Command, global *globalOptions, question string, opts askOptions) error {
	cfg, err := loadConfig(global)
	if err != nil {
		return err
	}
	a, err := openApp(ctx, cfg, appOptions{generator: true, llm: opts.llm})
	if err != nil {
		return err
	}
	defer a.close()

	q := opts.queryOptions(defaultQueryOptions(cfg))
	out := cmd.OutOrStdout()

	if opts.jsonOutput {
		ans, err := a.assembler.Query(ctx, question, q)
		if err != nil {
			return err
		}
		a.record(ctx, question, ans.Mode, len(ans.Provenance.Sources))
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(ans)
	}

	renderer := ui.NewStatusRenderer(out, !ui.ColorEnabled(out))
	// one fragment is held back: only the final one carries provenance
	var pending string
	held := false
	for fragment, err := range a.assembler.QueryStream(ctx, question, q) {
		if err != nil {
			_, _ = fmt.Fprintln(out)
			return err
		}
		if held {
			_, _ = fmt.Fprint(out, pending)
		}
		pending, held = fragment, true
	}
	prov, ok, err := answer.ParseFragment(pending)
	if err != nil {
		return err
	}
	if !ok {
		_, _ = fmt.Fprint(out, pending)
	}
	_, _ = fmt.Fprintln(out)

	if q.UseRAG {
		renderer.RenderProvenance(prov)
	}
	a.record(ctx, question, search.ModeFor(q.UseRAG, q.UseHybridSearch).String(), len(prov.Sources))
	return nil
}

// record appends to the query log; failures only warn.
func (a *app) record(ctx context.Context, question, mode string, sources int) {
	if err := a.queryLog.Record(ctx, question, mode, sources); err != nil {
		slog.Warn("query_log_failed", slog.String("error", err.Error()))
	}
}
