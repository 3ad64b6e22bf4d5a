package commands

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/codetally/internal/config"
	"github.com/Sumatoshi-tech/codetally/internal/lsp"
	"github.com/Sumatoshi-tech/codetally/internal/observability"
)

// lspExecutor runs the LSP server until the client disconnects.
type lspExecutor func(repo string, logger *slog.Logger) error

// LSPCommand holds configuration and dependencies for the lsp command.
type LSPCommand struct {
	repoPath  string
	appConfig string
	debug     bool

	runFn lspExecutor
}

// NewLSPCommand creates the LSP server command.
func NewLSPCommand() *cobra.Command {
	return newLSPCommandWithDeps(runLSPServer)
}

func newLSPCommandWithDeps(runFn lspExecutor) *cobra.Command {
	lc := &LSPCommand{runFn: runFn}

	cmd := &cobra.Command{
		Use:   "lsp",
		Short: "Start LSP server for editor integration",
		Long: `Start a Language Server Protocol server on stdio transport.

The server attributes open documents on open and save and answers hover
requests with the author and commit of the line under the cursor. Without
--repo each document's enclosing repository is discovered by walking up
from the file.`,
		Args: cobra.NoArgs,
		RunE: lc.run,
	}

	cmd.Flags().StringVar(&lc.repoPath, "repo", "", "Repository root (default: discovered per document)")
	cmd.Flags().StringVar(&lc.appConfig, "config", "", "Application config path")
	cmd.Flags().BoolVar(&lc.debug, "debug", false, "Enable debug logging to stderr")

	return cmd
}

func (lc *LSPCommand) run(cmd *cobra.Command, _ []string) error {
	app, err := config.LoadConfig(lc.appConfig)
	if err != nil {
		return err
	}

	obsCfg, err := app.BuildObservability(observability.ModeLSP)
	if err != nil {
		return err
	}

	// Stdio transport owns stdout; logs stay structured on stderr.
	obsCfg.LogJSON = true

	if lc.debug {
		obsCfg.LogLevel = slog.LevelDebug
	}

	providers, err := observability.Init(obsCfg)
	if err != nil {
		return err
	}

	defer func() {
		shutdownErr := providers.Shutdown(context.Background())
		if shutdownErr != nil {
			providers.Logger.Warn("observability shutdown failed", "error", shutdownErr)
		}
	}()

	return lc.runFn(lc.repoPath, providers.Logger)
}

// runLSPServer is the production executor.
func runLSPServer(repo string, logger *slog.Logger) error {
	opts := []lsp.Option{lsp.WithLogger(logger)}

	if repo != "" {
		opts = append(opts, lsp.WithRepo(repo))
	}

	return lsp.NewServer(opts...).Run()
}
