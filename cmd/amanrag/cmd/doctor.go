package cmd

import (
	"encoding/json"
	"errors"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/amanrag/internal/preflight"
)

// errChecksFailed makes doctor exit non-zero after printing its report.
var errChecksFailed = errors.New("required checks failed")

func newDoctorCmd(global *globalOptions) *cobra.Command {
	var verbose, jsonOutput bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check system requirements and diagnose issues",
		Long: `Check that amanrag can run with the current configuration.

Checks:
  - Data directory write access and free disk space (100MB minimum)
  - File descriptor limit (1024 minimum)
  - Whether another amanrag process holds the data directory
  - Ollama reachability and the embedding model (required)
  - The chat model (warning only; retrieval works without it)`,
		Example: `  amanrag doctor
  amanrag doctor --verbose
  amanrag doctor --json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(global)
			if err != nil {
				return err
			}
			checker := preflight.New(preflight.WithOutput(cmd.OutOrStdout()), preflight.WithVerbose(verbose))
			results := checker.RunAll(cmd.Context(), cfg)

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(map[string]any{
					"status": checker.SummaryStatus(results),
					"checks": results,
				}); err != nil {
					return err
				}
			} else {
				checker.PrintResults(results)
			}
			if checker.HasCriticalFailures(results) {
				return errChecksFailed
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show check details")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}
