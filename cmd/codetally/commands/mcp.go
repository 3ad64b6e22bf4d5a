package commands

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/codetally/internal/config"
	"github.com/Sumatoshi-tech/codetally/internal/mcp"
	"github.com/Sumatoshi-tech/codetally/internal/observability"
)

// mcpExecutor runs the MCP server until the context ends.
type mcpExecutor func(ctx context.Context, deps mcp.ServerDeps) error

const (
	// metricsScope names the instrumentation scope of the scrape-exposed
	// RED instruments.
	metricsScope = "codetally"

	// metricsReadHeaderTimeout bounds header reads on the scrape endpoint.
	metricsReadHeaderTimeout = 5 * time.Second

	// metricsShutdownTimeout bounds the scrape endpoint drain on exit.
	metricsShutdownTimeout = 5 * time.Second
)

// MCPCommand holds configuration and dependencies for the mcp command.
type MCPCommand struct {
	appConfig   string
	metricsAddr string
	debug       bool

	runFn mcpExecutor
}

// NewMCPCommand creates the MCP server command.
func NewMCPCommand() *cobra.Command {
	return newMCPCommandWithDeps(runMCPServer)
}

func newMCPCommandWithDeps(runFn mcpExecutor) *cobra.Command {
	mc := &MCPCommand{runFn: runFn}

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server for AI agent integration",
		Long: `Start a Model Context Protocol (MCP) server on stdio transport.

The server exposes attribution as tools AI agents can discover and invoke:
  - attribute_file: per-author line counts for one file
  - repo_summary: aggregated per-author totals for a repository`,
		Args: cobra.NoArgs,
		RunE: mc.run,
	}

	cmd.Flags().StringVar(&mc.appConfig, "config", "", "Application config path")
	cmd.Flags().StringVar(&mc.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")
	cmd.Flags().BoolVar(&mc.debug, "debug", false, "Enable debug logging to stderr")

	return cmd
}

func (mc *MCPCommand) run(cmd *cobra.Command, _ []string) error {
	app, err := config.LoadConfig(mc.appConfig)
	if err != nil {
		return err
	}

	obsCfg, err := app.BuildObservability(observability.ModeMCP)
	if err != nil {
		return err
	}

	// Stdio transport owns stdout; logs stay structured on stderr.
	obsCfg.LogJSON = true

	if mc.debug {
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

	red, stopMetrics, err := mc.buildMetrics(providers)
	if err != nil {
		return err
	}

	defer stopMetrics()

	deps := mcp.ServerDeps{Logger: providers.Logger, Metrics: red, Tracer: providers.Tracer}

	return mc.runFn(cmd.Context(), deps)
}

// buildMetrics wires the RED instruments. With --metrics-addr they are
// created from a Prometheus-backed provider and a scrape endpoint is served
// on the address; otherwise they come from the OTLP meter.
func (mc *MCPCommand) buildMetrics(providers observability.Providers) (*observability.REDMetrics, func(), error) {
	if mc.metricsAddr == "" {
		red, err := observability.NewREDMetrics(providers.Meter)
		if err != nil {
			return nil, nil, err
		}

		return red, func() {}, nil
	}

	handler, promProvider, err := observability.PrometheusHandler()
	if err != nil {
		return nil, nil, err
	}

	red, err := observability.NewREDMetrics(promProvider.Meter(metricsScope))
	if err != nil {
		return nil, nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)

	srv := &http.Server{
		Addr:              mc.metricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: metricsReadHeaderTimeout,
	}

	go func() {
		serveErr := srv.ListenAndServe()
		if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			providers.Logger.Error("metrics endpoint failed", "addr", mc.metricsAddr, "error", serveErr)
		}
	}()

	providers.Logger.Info("serving metrics", "addr", mc.metricsAddr)

	stop := func() {
		ctx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
		defer cancel()

		shutdownErr := srv.Shutdown(ctx)
		if shutdownErr != nil {
			providers.Logger.Warn("metrics endpoint shutdown failed", "error", shutdownErr)
		}

		shutdownErr = promProvider.Shutdown(ctx)
		if shutdownErr != nil {
			providers.Logger.Warn("metrics provider shutdown failed", "error", shutdownErr)
		}
	}

	return red, stop, nil
}

// runMCPServer is the production executor.
func runMCPServer(ctx context.Context, deps mcp.ServerDeps) error {
	return mcp.NewServer(deps).Run(ctx)
}
