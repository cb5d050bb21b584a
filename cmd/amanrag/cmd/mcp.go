package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/amanrag/internal/mcp"
	"github.com/Aman-CERP/amanrag/pkg/version"
)

func newMCPCmd(global *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Run the MCP server on stdio",
		Long: `Run a Model Context Protocol server over stdin/stdout.

Tools: ask, retrieve, index_status.
Resources: amanrag://sources, amanrag://query_stats.

Example client configuration:
  {"mcpServers": {"amanrag": {"command": "amanrag", "args": ["mcp"]}}}`,
		Annotations: map[string]string{annotationStdio: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMCP(cmd.Context(), global)
		},
	}
}

func runMCP(ctx context.Context, global *globalOptions) error {
	cfg, err := loadConfig(global)
	if err != nil {
		return err
	}
	a, err := openApp(ctx, cfg, appOptions{generator: true})
	if err != nil {
		return err
	}
	defer a.close()

	srv, err := mcp.NewServer(a.assembler, a.retriever, a.coord, mcp.Config{
		Defaults: defaultQueryOptions(cfg),
		Version:  version.Version,
	}, mcp.WithQueryLog(a.queryLog))
	if err != nil {
		return err
	}
	return srv.Serve(ctx)
}
