package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/amanrag/internal/telemetry"
	"github.com/Aman-CERP/amanrag/internal/ui"
)

func newStatsCmd(global *globalOptions) *cobra.Command {
	var (
		limit      int
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show query statistics",
		Long: `Show what has been asked: the most frequent question terms, recent
questions no passage could answer and the number of questions per day.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), global, func(a *app) error {
				stats, err := a.queryLog.Stats(cmd.Context(), limit)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				r := ui.NewStatusRenderer(out, !ui.ColorEnabled(out))
				if jsonOutput {
					return r.RenderJSON(stats)
				}
				printStats(cmd, stats)
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of terms and unanswered questions")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func printStats(cmd *cobra.Command, stats *telemetry.QueryStats) {
	out := cmd.OutOrStdout()
	styles := ui.GetStyles(!ui.ColorEnabled(out))

	_, _ = fmt.Fprintln(out, styles.Header.Render("Top terms"))
	if len(stats.TopTerms) == 0 {
		_, _ = fmt.Fprintln(out, styles.Dim.Render("  none yet"))
	}
	for _, tc := range stats.TopTerms {
		_, _ = fmt.Fprintf(out, "  %-20s %d\n", tc.Term, tc.Count)
	}

	_, _ = fmt.Fprintln(out, "\n"+styles.Header.Render("Unanswered"))
	if len(stats.Unanswered) == 0 {
		_, _ = fmt.Fprintln(out, styles.Dim.Render("  none"))
	}
	for _, q := range stats.Unanswered {
		_, _ = fmt.Fprintf(out, "  %s\n", q)
	}

	_, _ = fmt.Fprintln(out, "\n"+styles.Header.Render("Questions per day"))
	days := make([]string, 0, len(stats.Daily))
	for day := range stats.Daily {
		days = append(days, day)
	}
	sort.Strings(days)
	for _, day := range days {
		_, _ = fmt.Fprintf(out, "  %s %d\n", day, stats.Daily[day])
	}
}
