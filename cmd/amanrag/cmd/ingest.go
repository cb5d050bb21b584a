package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/amanrag/internal/output"
	"github.com/Aman-CERP/amanrag/internal/store"
)

func newIngestCmd(global *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ingest <file.jsonl>...",
		Short: "Add passages from JSONL files",
		Long: `Add passages from JSONL files, one passage per line:

  {"text": "Cats purr.", "source": "animals.pdf", "page": 1, "tags": ["pets"]}

Every file is validated before anything is indexed. Use '-' to read stdin.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(cmd.Context(), cmd, global, args)
		},
	}
}

func runIngest(ctx context.Context, cmd *cobra.Command, global *globalOptions, files []string) error {
	var passages []store.Passage
	for _, path := range files {
		batch, err := readPassageFile(cmd, path)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		passages = append(passages, batch...)
	}

	out := output.New(cmd.OutOrStdout())
	if len(passages) == 0 {
		out.Warning("No passages found")
		return nil
	}

	cfg, err := loadConfig(global)
	if err != nil {
		return err
	}
	a, err := openApp(ctx, cfg, appOptions{})
	if err != nil {
		return err
	}
	defer a.close()

	stored, err := a.coord.Add(ctx, passages)
	if err != nil {
		return err
	}
	slog.Info("ingest_complete", slog.Int("files", len(files)), slog.Int("passages", len(stored)))
	out.Successf("Indexed %d passages from %d file(s)", len(stored), len(files))
	return nil
}

func readPassageFile(cmd *cobra.Command, path string) ([]store.Passage, error) {
	if path == "-" {
		return store.ReadJSONL(cmd.InOrStdin())
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return store.ReadJSONL(f)
}
