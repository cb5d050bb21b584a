package cmd

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/amanrag/internal/index"
	"github.com/Aman-CERP/amanrag/internal/ui"
)

func newStatusCmd(global *globalOptions) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show index status",
		Long: `Show passage, lexical and vector counts, the embedding model and
on-disk sizes. Counts that disagree mean the indexes drifted; they are
repaired on the next start.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), global, func(a *app) error {
				st, err := a.coord.Status(cmd.Context())
				if err != nil {
					return err
				}
				dataDir := a.cfg.Paths.DataDir
				info := ui.StatusInfo{
					DataDir:     dataDir,
					Index:       st,
					PassageSize: fileSize(filepath.Join(dataDir, index.PassageDBName)),
					VectorSize:  fileSize(filepath.Join(dataDir, index.VectorFileName)),
				}
				out := cmd.OutOrStdout()
				r := ui.NewStatusRenderer(out, !ui.ColorEnabled(out))
				if jsonOutput {
					return r.RenderJSON(info)
				}
				return r.Render(info)
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}
