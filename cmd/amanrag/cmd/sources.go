package cmd

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/amanrag/internal/output"
	"github.com/Aman-CERP/amanrag/internal/ui"
)

func newSourcesCmd(global *globalOptions) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "sources",
		Short: "List indexed sources",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), global, func(a *app) error {
				sources, err := a.coord.Sources(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				r := ui.NewStatusRenderer(out, !ui.ColorEnabled(out))
				if jsonOutput {
					return r.RenderJSON(sources)
				}
				r.RenderSources(sources)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newDeleteCmd(global *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <source>",
		Short: "Remove every passage of a source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), global, func(a *app) error {
				n, err := a.coord.DeleteSource(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				output.New(cmd.OutOrStdout()).Successf("Removed %d passages of %s", n, args[0])
				return nil
			})
		},
	}
}

func newClearCmd(global *globalOptions) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every passage and reset the indexes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := output.New(cmd.OutOrStdout())
			if !yes && !confirm(cmd, "Remove every indexed passage?") {
				out.Warning("Aborted")
				return nil
			}
			return withApp(cmd.Context(), global, func(a *app) error {
				if err := a.coord.Clear(cmd.Context()); err != nil {
					return err
				}
				out.Success("Index cleared")
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}

// withApp runs fn against an engine without a language model.
func withApp(ctx context.Context, global *globalOptions, fn func(*app) error) error {
	cfg, err := loadConfig(global)
	if err != nil {
		return err
	}
	a, err := openApp(ctx, cfg, appOptions{})
	if err != nil {
		return err
	}
	defer a.close()
	return fn(a)
}

func confirm(cmd *cobra.Command, prompt string) bool {
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s [y/N] ", prompt)
	line, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
