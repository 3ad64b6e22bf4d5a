// Package churn computes per-author commit and line-change totals over the
// analysis window, complementing the per-line attribution with how much each
// author touched during the period.
package churn

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Sumatoshi-tech/codetally/internal/filetype"
	"github.com/Sumatoshi-tech/codetally/internal/gitcmd"
	"github.com/Sumatoshi-tech/codetally/internal/identity"
	"github.com/Sumatoshi-tech/codetally/internal/repocfg"
)

// History is the slice of repository access the calculator needs.
type History interface {
	CommitsInWindow(ctx context.Context, since, until time.Time) ([]gitcmd.Commit, error)
	ChangedPaths(ctx context.Context, hash string) ([]gitcmd.Change, error)
	ShowBlob(ctx context.Context, rev, path string) ([]byte, error)
}

// Stats are one author's totals over the window.
type Stats struct {
	Commits int `json:"commits" yaml:"commits"`
	Added   int `json:"added"   yaml:"added"`
	Removed int `json:"removed" yaml:"removed"`
	Changed int `json:"changed" yaml:"changed"`
}

// Calculator walks window commits and accumulates churn per author.
type Calculator struct {
	history History
	cfg     *repocfg.Analysis
	logger  *slog.Logger
}

// NewCalculator builds a churn calculator over the given history.
func NewCalculator(history History, cfg *repocfg.Analysis, logger *slog.Logger) *Calculator {
	return &Calculator{
		history: history,
		cfg:     cfg,
		logger:  logger,
	}
}

// Run lists non-merge commits inside the window and accumulates per-author
// totals. Commits by unresolvable or filtered authors are skipped. A commit
// whose changes cannot be read is logged and skipped rather than failing the
// run.
func (c *Calculator) Run(ctx context.Context) (map[*identity.Author]*Stats, error) {
	commits, err := c.history.CommitsInWindow(ctx, c.cfg.Since, c.cfg.Until)
	if err != nil {
		return nil, fmt.Errorf("list window commits: %w", err)
	}

	totals := make(map[*identity.Author]*Stats)

	for _, commit := range commits {
		author := c.cfg.Resolver.Resolve(commit.Name, commit.Email)
		if author.IsUnknown() || !c.cfg.Allowed.Allows(author) {
			continue
		}

		stats, ok := totals[author]
		if !ok {
			stats = &Stats{}
			totals[author] = stats
		}

		stats.Commits++

		err = c.accumulate(ctx, commit.Hash, author, stats)
		if err != nil {
			c.logger.WarnContext(ctx, "skipping commit changes",
				"hash", commit.Hash,
				"error", err)
		}
	}

	return totals, nil
}

func (c *Calculator) accumulate(ctx context.Context, hash string, author *identity.Author, stats *Stats) error {
	changes, err := c.history.ChangedPaths(ctx, hash)
	if err != nil {
		return fmt.Errorf("changed paths: %w", err)
	}

	for _, change := range changes {
		if author.IgnoresFile(change.Path) {
			continue
		}

		fileStats, statErr := c.changeStats(ctx, hash, change)
		if statErr != nil {
			c.logger.WarnContext(ctx, "skipping changed file",
				"hash", hash,
				"path", change.Path,
				"error", statErr)

			continue
		}

		stats.Added += fileStats.Added
		stats.Removed += fileStats.Removed
		stats.Changed += fileStats.Changed
	}

	return nil
}

// changeStats computes the line totals of one changed path. Binary blobs on
// either side contribute nothing.
func (c *Calculator) changeStats(ctx context.Context, hash string, change gitcmd.Change) (FileStats, error) {
	switch change.Status {
	case "A", "C":
		return c.introducedStats(ctx, hash, change.Path)
	case "D":
		return c.deletedStats(ctx, hash, change.Path)
	case "M", "R":
		return c.modifiedStats(ctx, hash, change)
	default:
		return FileStats{}, nil
	}
}

func (c *Calculator) introducedStats(ctx context.Context, hash, path string) (FileStats, error) {
	content, err := c.history.ShowBlob(ctx, hash, path)
	if err != nil {
		return FileStats{}, fmt.Errorf("new blob: %w", err)
	}

	lines, err := filetype.CountLines(content)
	if err != nil {
		if errors.Is(err, filetype.ErrBinary) {
			return FileStats{}, nil
		}

		return FileStats{}, err
	}

	return FileStats{Added: lines}, nil
}

func (c *Calculator) deletedStats(ctx context.Context, hash, path string) (FileStats, error) {
	content, err := c.history.ShowBlob(ctx, hash+"^", path)
	if err != nil {
		return FileStats{}, fmt.Errorf("old blob: %w", err)
	}

	lines, err := filetype.CountLines(content)
	if err != nil {
		if errors.Is(err, filetype.ErrBinary) {
			return FileStats{}, nil
		}

		return FileStats{}, err
	}

	return FileStats{Removed: lines}, nil
}

func (c *Calculator) modifiedStats(ctx context.Context, hash string, change gitcmd.Change) (FileStats, error) {
	oldPath := change.Path
	if change.OldPath != "" {
		oldPath = change.OldPath
	}

	oldContent, err := c.history.ShowBlob(ctx, hash+"^", oldPath)
	if err != nil {
		return FileStats{}, fmt.Errorf("old blob: %w", err)
	}

	newContent, err := c.history.ShowBlob(ctx, hash, change.Path)
	if err != nil {
		return FileStats{}, fmt.Errorf("new blob: %w", err)
	}

	if filetype.IsBinary(oldContent) || filetype.IsBinary(newContent) {
		return FileStats{}, nil
	}

	return diffStats(oldContent, newContent), nil
}
