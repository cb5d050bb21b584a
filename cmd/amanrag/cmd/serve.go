package cmd

import (
	"context"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/amanrag/internal/llm"
	"github.com/Aman-CERP/amanrag/internal/output"
	"github.com/Aman-CERP/amanrag/internal/server"
	"github.com/Aman-CERP/amanrag/internal/watcher"
	"github.com/Aman-CERP/amanrag/pkg/version"
)

type serveOptions struct {
	addr    string
	noWatch bool
}

func newServeCmd(global *globalOptions) *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the inbox watcher",
		Long: `Run the HTTP API and watch the inbox directory for passage files.

Endpoints:
  POST   /query             answer a question (JSON)
  POST   /query/stream      answer a question (Server-Sent Events)
  POST   /passages          add passages
  GET    /sources           list indexed sources
  DELETE /sources/{id}      remove a source
  GET    /tags              list tags
  DELETE /passages          remove every passage
  GET    /status            index status
  GET    /stats             query statistics
  GET    /models            models pulled on the Ollama server
  GET    /health            liveness and Ollama availability
  GET    /metrics           Prometheus metrics

JSONL files dropped into the inbox are ingested and moved to inbox/processed
(or inbox/failed).`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), cmd, global, opts)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", "", "Listen address (default from server.addr)")
	cmd.Flags().BoolVar(&opts.noWatch, "no-watch", false, "Do not watch the inbox directory")

	return cmd
}

func runServe(ctx context.Context, cmd *cobra.Command, global *globalOptions, opts serveOptions) error {
	cfg, err := loadConfig(global)
	if err != nil {
		return err
	}
	if opts.addr != "" {
		cfg.Server.Addr = opts.addr
	}

	a, err := openApp(ctx, cfg, appOptions{generator: true})
	if err != nil {
		return err
	}
	defer a.close()

	srv, err := server.New(a.assembler, a.coord, server.Config{
		Addr:          cfg.Server.Addr,
		Defaults:      defaultQueryOptions(cfg),
		StreamTimeout: time.Duration(cfg.LLM.StreamTimeout),
		Version:       version.Version,
	}, server.WithQueryLog(a.queryLog), server.WithMetrics(a.metrics),
		server.WithModels(llm.NewModelCatalog(cfg.LLM.Host, nil)))
	if err != nil {
		return err
	}

	out := output.New(cmd.OutOrStdout())
	out.Successf("Listening on http://%s", cfg.Server.Addr)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.ListenAndServe(ctx)
	})
	if !opts.noWatch {
		w, err := watcher.New(cfg.Paths.InboxDir, watcher.NewIngester(a.coord, cfg.Paths.InboxDir), watcher.DefaultOptions())
		if err != nil {
			return err
		}
		out.Statusf("📥", "Watching %s", w.Dir())
		g.Go(func() error {
			return w.Run(ctx)
		})
	}

	err = g.Wait()
	slog.Info("serve_stopped", slog.Any("error", err))
	return err
}
