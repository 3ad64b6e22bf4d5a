// Package report runs per-file attribution across a worker pool and
// assembles the results into a single ordered report document, with JSON,
// YAML, table, and lz4-archived renderings.
package report

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/Sumatoshi-tech/codetally/internal/authorship"
	"github.com/Sumatoshi-tech/codetally/internal/churn"
	"github.com/Sumatoshi-tech/codetally/internal/filetype"
	"github.com/Sumatoshi-tech/codetally/internal/gitcmd"
	"github.com/Sumatoshi-tech/codetally/internal/identity"
	"github.com/Sumatoshi-tech/codetally/internal/observability"
	"github.com/Sumatoshi-tech/codetally/internal/repocfg"
	"github.com/Sumatoshi-tech/codetally/pkg/result"
)

// History is the repository access the generator needs. *gitcmd.Runner
// satisfies it.
type History interface {
	Blame(ctx context.Context, path string) (string, error)
	BlamePrevious(ctx context.Context, path string) (string, error)
	FileAuthors(ctx context.Context, path string) ([]gitcmd.NameEmail, error)
	CommitsInWindow(ctx context.Context, since, until time.Time) ([]gitcmd.Commit, error)
	ChangedPaths(ctx context.Context, hash string) ([]gitcmd.Change, error)
	ShowBlob(ctx context.Context, rev, path string) ([]byte, error)
	LsFiles(ctx context.Context) ([]string, error)
	IsShallow(ctx context.Context) (bool, error)
	CurrentBranch(ctx context.Context) (string, error)
	PrepareIgnoreRevs(ctx context.Context, hashes []string) error
}

// Generator walks the tracked tree and produces the attribution report.
type Generator struct {
	history History
	cfg     *repocfg.Analysis
	logger  *slog.Logger
	metrics *observability.RunMetrics
	workers int
}

// Option configures a Generator.
type Option func(*Generator)

// WithWorkers overrides the analysis worker count. Non-positive values keep
// the default of one worker per CPU.
func WithWorkers(n int) Option {
	return func(g *Generator) {
		g.workers = n
	}
}

// WithMetrics attaches run metric instruments.
func WithMetrics(metrics *observability.RunMetrics) Option {
	return func(g *Generator) {
		g.metrics = metrics
	}
}

// NewGenerator builds a report generator over the given repository history.
func NewGenerator(history History, cfg *repocfg.Analysis, logger *slog.Logger, opts ...Option) *Generator {
	g := &Generator{
		history: history,
		cfg:     cfg,
		logger:  logger,
	}

	for _, opt := range opts {
		opt(g)
	}

	if g.workers <= 0 {
		g.workers = max(1, runtime.NumCPU())
	}

	return g
}

// Run analyzes every selected tracked file and returns the assembled report.
// Per-file failures are counted, never escalated; only repository-level
// queries can fail the run.
func (g *Generator) Run(ctx context.Context) (*Report, error) {
	started := time.Now()

	branch, err := g.checkBranch(ctx)
	if err != nil {
		return nil, err
	}

	shallow, err := g.history.IsShallow(ctx)
	if err != nil {
		return nil, fmt.Errorf("detect shallow repository: %w", err)
	}

	if g.cfg.PreviousAuthors {
		err = g.history.PrepareIgnoreRevs(ctx, g.cfg.IgnoreCommits.Entries())
		if err != nil {
			return nil, fmt.Errorf("prepare ignore revs: %w", err)
		}
	}

	paths, err := g.history.LsFiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tracked files: %w", err)
	}

	paths = g.selectPaths(paths)

	analyzer := authorship.NewAnalyzer(g.history, g.cfg, shallow, g.logger)
	state := g.analyzeAll(ctx, analyzer, paths)

	var churnTotals map[*identity.Author]*churn.Stats

	if g.cfg.Churn {
		churnTotals, err = churn.NewCalculator(g.history, g.cfg, g.logger).Run(ctx)
		if err != nil {
			return nil, fmt.Errorf("churn: %w", err)
		}
	}

	rep := Summarize(g.cfg, branch, state.results, churnTotals, Totals{
		FilesDropped: int(state.dropped),
		FilesFailed:  int(state.failed),
	})

	g.recordMetrics(ctx, rep, state, churnTotals)

	g.logger.InfoContext(ctx, "analysis complete",
		"files", len(paths),
		"attributed", rep.Totals.FilesAttributed,
		"dropped", rep.Totals.FilesDropped,
		"failed", rep.Totals.FilesFailed,
		"took", time.Since(started))

	return rep, nil
}

// checkBranch reports which branch is being analyzed. A configured branch
// that is not checked out only warns: the engine reads the working tree
// as-is and never switches branches.
func (g *Generator) checkBranch(ctx context.Context) (string, error) {
	current, err := g.history.CurrentBranch(ctx)
	if err != nil {
		return "", fmt.Errorf("determine current branch: %w", err)
	}

	if g.cfg.Branch != "" && g.cfg.Branch != current {
		g.logger.WarnContext(ctx, "configured branch is not checked out; analyzing current tree",
			"configured", g.cfg.Branch,
			"current", current)
	}

	return current, nil
}

// selectPaths filters tracked paths through the vendored-path skip and the
// repository-level ignore globs.
func (g *Generator) selectPaths(paths []string) []string {
	selected := make([]string, 0, len(paths))

	for _, path := range paths {
		if g.cfg.Classifier.SkipPath(path) {
			continue
		}

		if matchesAny(g.cfg.IgnoreGlobs, path) {
			continue
		}

		selected = append(selected, path)
	}

	return selected
}

func matchesAny(globs []string, path string) bool {
	for _, glob := range globs {
		ok, err := doublestar.Match(glob, path)
		if err == nil && ok {
			return true
		}
	}

	return false
}

// poolState collects worker outcomes behind one mutex.
type poolState struct {
	mu        sync.Mutex
	results   []authorship.FileResult
	dropped   int64
	failed    int64
	durations []time.Duration
}

func (s *poolState) record(res result.Result[authorship.FileResult], took time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.durations = append(s.durations, took)

	switch {
	case res.IsFailed():
		s.failed++
	case res.IsAbsent():
		s.dropped++
	default:
		fileRes, ok := res.Value()
		if ok {
			s.results = append(s.results, fileRes)
		}
	}
}

// analyzeAll fans per-file analysis out across the worker pool and waits for
// every task to finish.
func (g *Generator) analyzeAll(ctx context.Context, analyzer *authorship.Analyzer, paths []string) *poolState {
	fileChan := make(chan string, g.workers)
	state := &poolState{}

	var wg sync.WaitGroup

	wg.Add(g.workers)

	for range g.workers {
		go g.fileWorker(ctx, &wg, fileChan, analyzer, state)
	}

	for _, path := range paths {
		fileChan <- path
	}

	close(fileChan)
	wg.Wait()

	return state
}

// fileWorker is the body of each analysis goroutine.
func (g *Generator) fileWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	fileChan <-chan string,
	analyzer *authorship.Analyzer,
	state *poolState,
) {
	defer wg.Done()

	for path := range fileChan {
		if ctx.Err() != nil {
			continue // Drain remaining items so the feeder never blocks.
		}

		taskStart := time.Now()
		res := g.processPath(ctx, analyzer, path)
		state.record(res, time.Since(taskStart))
	}
}

// processPath reads one tracked file and runs the attribution pipeline for
// its kind.
func (g *Generator) processPath(ctx context.Context, analyzer *authorship.Analyzer, path string) result.Result[authorship.FileResult] {
	full := filepath.Join(g.cfg.Root, filepath.FromSlash(path))

	content, err := os.ReadFile(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			g.logger.ErrorContext(ctx, "tracked file missing from working tree; skipping", "path", path)

			return result.Absent[authorship.FileResult]()
		}

		return result.Fail[authorship.FileResult](fmt.Errorf("read %s: %w", path, err))
	}

	group := g.cfg.Classifier.Group(path, content)

	if filetype.IsBinary(content) {
		return analyzer.AnalyzeFile(ctx, &authorship.FileInfo{Path: path, Group: group}, true)
	}

	info := authorship.NewFileInfo(path, group, content, g.cfg.FileLineLimit)

	return analyzer.AnalyzeFile(ctx, info, false)
}

func (g *Generator) recordMetrics(ctx context.Context, rep *Report, state *poolState, churnTotals map[*identity.Author]*churn.Stats) {
	var commits int64
	for _, stats := range churnTotals {
		commits += int64(stats.Commits)
	}

	g.metrics.RecordRun(ctx, observability.RunStats{
		FilesAttributed: int64(rep.Totals.FilesAttributed),
		FilesDropped:    state.dropped,
		FilesFailed:     state.failed,
		Lines:           int64(rep.Totals.Lines),
		Commits:         commits,
		FileDurations:   state.durations,
	})
}
