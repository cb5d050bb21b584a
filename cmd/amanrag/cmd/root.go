// Package cmd provides the CLI commands for amanrag.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	amanerrors "github.com/Aman-CERP/amanrag/internal/errors"
	"github.com/Aman-CERP/amanrag/internal/logging"
	"github.com/Aman-CERP/amanrag/internal/profiling"
	"github.com/Aman-CERP/amanrag/pkg/version"
)

// annotationStdio marks commands whose stdout/stderr belong to a protocol.
const annotationStdio = "stdio"

// globalOptions are the persistent flags.
type globalOptions struct {
	debug      bool
	projectDir string
	profileDir string
}

// NewRootCmd creates the root command for the amanrag CLI.
func NewRootCmd() *cobra.Command {
	opts := &globalOptions{}
	var (
		loggingCleanup func()
		profile        *profiling.Session
	)

	cmd := &cobra.Command{
		Use:   "amanrag",
		Short: "Local hybrid retrieval and answer engine",
		Long: `amanrag answers questions from your own passages.

Passages are indexed for BM25 keyword search and HNSW vector search; at query
time both are fused, the best passages become the prompt context, and a local
language model (Ollama) writes the answer with its sources.

Run 'amanrag serve' for the HTTP API and inbox watcher, 'amanrag mcp' for
AI assistants, or 'amanrag ask' from the terminal.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg := logging.DefaultConfig()
			if opts.debug {
				cfg = logging.DebugConfig()
			}
			if cmd.Annotations[annotationStdio] == "true" {
				cfg = logging.StdioConfig(cfg.Level)
			}
			cleanup, err := logging.Setup(cfg)
			if err != nil {
				// logging is best effort
				slog.SetDefault(slog.New(slog.DiscardHandler))
			} else {
				loggingCleanup = cleanup
			}
			slog.Debug("command_started", slog.String("command", cmd.CommandPath()), slog.String("version", version.Version))

			if opts.profileDir != "" {
				profile, err = profiling.Start(opts.profileDir)
				if err != nil {
					return err
				}
			}
			return nil
		},
		PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
			var err error
			if profile != nil {
				err = profile.Stop()
				slog.Info("profiles_written", slog.String("dir", profile.Dir()))
				profile = nil
			}
			if loggingCleanup != nil {
				loggingCleanup()
				loggingCleanup = nil
			}
			return err
		},
	}

	cmd.SetVersionTemplate("amanrag version {{.Version}}\n")
	cmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "Enable debug logging to stderr and ~/.amanrag/logs/")
	cmd.PersistentFlags().StringVarP(&opts.projectDir, "dir", "C", ".", "Project directory holding .amanrag.yaml and .env")
	cmd.PersistentFlags().StringVar(&opts.profileDir, "profile-dir", "", "Write CPU, heap and goroutine profiles of this run to a directory")

	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newMCPCmd(opts))
	cmd.AddCommand(newAskCmd(opts))
	cmd.AddCommand(newIngestCmd(opts))
	cmd.AddCommand(newSourcesCmd(opts))
	cmd.AddCommand(newDeleteCmd(opts))
	cmd.AddCommand(newClearCmd(opts))
	cmd.AddCommand(newStatusCmd(opts))
	cmd.AddCommand(newStatsCmd(opts))
	cmd.AddCommand(newConfigCmd(opts))
	cmd.AddCommand(newDoctorCmd(opts))
	cmd.AddCommand(newLogsCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command with SIGINT/SIGTERM cancelling its context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := NewRootCmd()
	err := root.ExecuteContext(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprint(root.ErrOrStderr(), amanerrors.FormatForCLI(err))
	}
	return err
}
