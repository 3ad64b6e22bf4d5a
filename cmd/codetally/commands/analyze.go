// Package commands implements CLI command handlers for codetally.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/metric"

	"github.com/Sumatoshi-tech/codetally/internal/config"
	"github.com/Sumatoshi-tech/codetally/internal/gitcmd"
	"github.com/Sumatoshi-tech/codetally/internal/observability"
	"github.com/Sumatoshi-tech/codetally/internal/repocfg"
	"github.com/Sumatoshi-tech/codetally/internal/report"
)

// analyzeExecutor runs the attribution engine and returns the assembled
// report.
type analyzeExecutor func(
	ctx context.Context,
	cfg *repocfg.Analysis,
	logger *slog.Logger,
	meter metric.Meter,
	workers int,
) (*report.Report, error)

var (
	// ErrCompressNeedsOutput indicates --compress without an output path.
	ErrCompressNeedsOutput = errors.New("--compress requires --output")
	// ErrCompressedFormat indicates a non-JSON format combined with --compress.
	ErrCompressedFormat = errors.New("compressed archives always store JSON; drop --format")
)

// AnalyzeCommand holds configuration and dependencies for the analyze command.
type AnalyzeCommand struct {
	repoPath   string
	repoConfig string
	appConfig  string

	since    string
	until    string
	timezone string

	format   string
	output   string
	compress bool

	churn           bool
	lastModified    bool
	previousAuthors bool
	workers         int

	runFn analyzeExecutor
}

// NewAnalyzeCommand creates the analyze command.
func NewAnalyzeCommand() *cobra.Command {
	return newAnalyzeCommandWithDeps(runAnalysis)
}

func newAnalyzeCommandWithDeps(runFn analyzeExecutor) *cobra.Command {
	ac := &AnalyzeCommand{runFn: runFn}

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Attribute repository lines to their authors and write a report",
		Long: `Analyze blames every tracked file of a git repository, attributes each
line to a configured author, and writes the aggregated contribution report.

The repository configuration is read from ` + repocfg.FileName + ` at the
repository root unless --repo-config names another file. Flags override the
file for the settings they cover.`,
		Args: cobra.NoArgs,
		RunE: ac.run,
	}

	cmd.Flags().StringVar(&ac.repoPath, "repo", ".", "Repository root to analyze")
	cmd.Flags().StringVar(&ac.repoConfig, "repo-config", "", "Repository config path (default: "+repocfg.FileName+" at the root)")
	cmd.Flags().StringVar(&ac.appConfig, "config", "", "Application config path")
	cmd.Flags().StringVar(&ac.since, "since", "", "Attribution window start (YYYY-MM-DD)")
	cmd.Flags().StringVar(&ac.until, "until", "", "Attribution window end (YYYY-MM-DD)")
	cmd.Flags().StringVar(&ac.timezone, "timezone", "", "IANA zone for window boundaries")
	cmd.Flags().StringVar(&ac.format, "format", string(report.FormatJSON), "Output format: json, yaml, table")
	cmd.Flags().StringVarP(&ac.output, "output", "o", "", "Write the report to a file instead of stdout")
	cmd.Flags().BoolVar(&ac.compress, "compress", false, "Write an lz4-compressed archive (requires --output)")
	cmd.Flags().BoolVar(&ac.churn, "churn", false, "Include per-author commit churn totals")
	cmd.Flags().BoolVar(&ac.lastModified, "last-modified", false, "Record per-line last-modified timestamps")
	cmd.Flags().BoolVar(&ac.previousAuthors, "previous-authors", false, "Attribute past ignored commits to earlier authors")
	cmd.Flags().IntVar(&ac.workers, "workers", 0, "Number of analysis workers (0 = CPU count)")

	return cmd
}

func (ac *AnalyzeCommand) run(cmd *cobra.Command, _ []string) error {
	app, err := config.LoadConfig(ac.appConfig)
	if err != nil {
		return err
	}

	obsCfg, err := app.BuildObservability(observability.ModeCLI)
	if err != nil {
		return err
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

	analysis, err := ac.buildAnalysis(cmd, app)
	if err != nil {
		return err
	}

	workers := ac.workers
	if workers == 0 {
		workers = app.Analysis.Workers
	}

	rep, err := ac.runFn(cmd.Context(), analysis, providers.Logger, providers.Meter, workers)
	if err != nil {
		return err
	}

	return ac.writeReport(cmd, rep)
}

func (ac *AnalyzeCommand) buildAnalysis(cmd *cobra.Command, app *config.Config) (*repocfg.Analysis, error) {
	repoCfg, err := ac.loadRepoConfig(cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}

	ac.applyOverrides(cmd, app, repoCfg)

	root := repoCfg.Root
	if cmd.Flags().Changed("repo") || root == "" {
		root = ac.repoPath
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve repository root: %w", err)
	}

	repoCfg.Root = absRoot

	analysis, err := repoCfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build analysis config: %w", err)
	}

	return analysis, nil
}

// loadRepoConfig locates the repository configuration, checks it against the
// bundled schema, and loads it. A repository without a config file analyzes
// with defaults.
func (ac *AnalyzeCommand) loadRepoConfig(problems io.Writer) (*repocfg.Config, error) {
	path := ac.repoConfig
	if path == "" {
		bundled := filepath.Join(ac.repoPath, repocfg.FileName)

		_, statErr := os.Stat(bundled)
		if statErr != nil {
			return repocfg.DefaultConfig(), nil
		}

		path = bundled
	}

	doc, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read repo config %s: %w", path, err)
	}

	found, err := repocfg.ValidateYAML(doc, nil)
	if err != nil {
		return nil, fmt.Errorf("validate repo config %s: %w", path, err)
	}

	if len(found) > 0 {
		for _, problem := range found {
			fmt.Fprintf(problems, "  - %s\n", problem)
		}

		return nil, fmt.Errorf("%w: %s", ErrConfigInvalid, path)
	}

	cfg, err := repocfg.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load repo config %s: %w", path, err)
	}

	return cfg, nil
}

// applyOverrides layers explicit CLI flags over the loaded repository config.
// Only flags the user actually set override the file.
func (ac *AnalyzeCommand) applyOverrides(cmd *cobra.Command, app *config.Config, cfg *repocfg.Config) {
	flags := cmd.Flags()

	if flags.Changed("since") {
		cfg.Since = ac.since
	}

	if flags.Changed("until") {
		cfg.Until = ac.until
	}

	if flags.Changed("timezone") {
		cfg.Timezone = ac.timezone
	}

	if flags.Changed("last-modified") {
		cfg.LastModified = ac.lastModified
	}

	if flags.Changed("previous-authors") {
		cfg.PreviousAuthors = ac.previousAuthors
	}

	// Churn: the flag has final say, then the application default can turn
	// it on for every repository.
	if flags.Changed("churn") {
		cfg.Churn = ac.churn
	} else if app.Analysis.Churn {
		cfg.Churn = true
	}

	// The application-level line limit applies when the repository keeps the
	// package default.
	if app.Analysis.FileLineLimit > 0 && cfg.FileLineLimit == repocfg.DefaultFileLineLimit {
		cfg.FileLineLimit = app.Analysis.FileLineLimit
	}
}

func (ac *AnalyzeCommand) writeReport(cmd *cobra.Command, rep *report.Report) error {
	if ac.compress {
		return ac.writeArchive(cmd, rep)
	}

	format, err := report.ParseFormat(ac.format)
	if err != nil {
		return err
	}

	if ac.output == "" {
		return report.Render(cmd.OutOrStdout(), rep, format)
	}

	file, err := os.Create(ac.output)
	if err != nil {
		return fmt.Errorf("create output %s: %w", ac.output, err)
	}

	err = report.Render(file, rep, format)
	if err != nil {
		_ = file.Close()

		return err
	}

	return file.Close()
}

// writeArchive writes the lz4-compressed report. Archives always store JSON,
// so an explicit non-JSON format is rejected rather than silently ignored.
func (ac *AnalyzeCommand) writeArchive(cmd *cobra.Command, rep *report.Report) error {
	if ac.output == "" {
		return ErrCompressNeedsOutput
	}

	if cmd.Flags().Changed("format") && ac.format != string(report.FormatJSON) {
		return fmt.Errorf("%w: %s", ErrCompressedFormat, ac.format)
	}

	path := ac.output
	if !strings.HasSuffix(path, report.ArchiveExt) {
		path += report.ArchiveExt
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create archive %s: %w", path, err)
	}

	err = report.WriteArchive(file, rep)
	if err != nil {
		_ = file.Close()

		return err
	}

	return file.Close()
}

// runAnalysis is the production executor: a git CLI runner feeding the report
// generator.
func runAnalysis(
	ctx context.Context,
	cfg *repocfg.Analysis,
	logger *slog.Logger,
	meter metric.Meter,
	workers int,
) (*report.Report, error) {
	runMetrics, err := observability.NewRunMetrics(meter)
	if err != nil {
		return nil, err
	}

	runner := gitcmd.NewRunner(cfg.Root, gitcmd.WithLogger(logger))

	gen := report.NewGenerator(runner, cfg, logger,
		report.WithWorkers(workers),
		report.WithMetrics(runMetrics),
	)

	return gen.Run(ctx)
}
