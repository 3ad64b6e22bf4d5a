package authorship

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/Sumatoshi-tech/codetally/internal/gitcmd"
	"github.com/Sumatoshi-tech/codetally/internal/identity"
	"github.com/Sumatoshi-tech/codetally/internal/repocfg"
	"github.com/Sumatoshi-tech/codetally/pkg/result"
)

// History produces raw per-line history for one file. *gitcmd.Runner
// satisfies it.
type History interface {
	Blame(ctx context.Context, path string) (string, error)
	BlamePrevious(ctx context.Context, path string) (string, error)
	FileAuthors(ctx context.Context, path string) ([]gitcmd.NameEmail, error)
}

// Analyzer runs the per-file attribution pipeline. One Analyzer serves a
// whole run; it is safe for concurrent use by the worker pool.
type Analyzer struct {
	history    History
	cfg        *repocfg.Analysis
	attributor *Attributor
	logger     *slog.Logger
}

// NewAnalyzer builds an Analyzer. Shallow marks a shallow repository so the
// last-modified warning fires once when stamping is enabled.
func NewAnalyzer(history History, cfg *repocfg.Analysis, shallow bool, logger *slog.Logger) *Analyzer {
	return &Analyzer{
		history: history,
		cfg:     cfg,
		logger:  logger,
		attributor: &Attributor{
			Resolver:      cfg.Resolver,
			IgnoreCommits: cfg.IgnoreCommits,
			Since:         cfg.Since,
			Until:         cfg.Until,
			Zone:          cfg.Zone,
			LastModified:  cfg.LastModified,
			Shallow:       shallow,
			Logger:        logger,
		},
	}
}

// AnalyzeFile dispatches to the text or binary pipeline. A file produces a
// present result, an absent result (dropped), or a failed result; never a
// run-level error.
func (a *Analyzer) AnalyzeFile(ctx context.Context, info *FileInfo, binary bool) result.Result[FileResult] {
	if binary {
		return a.AnalyzeBinaryFile(ctx, info)
	}

	return a.AnalyzeTextFile(ctx, info)
}

// AnalyzeTextFile attributes every line of a text file. Dropped outcomes:
// missing from the working tree (logged severe), empty, or no allow-listed
// author contributed. Undecodable history fails the file, never the run.
func (a *Analyzer) AnalyzeTextFile(ctx context.Context, info *FileInfo) result.Result[FileResult] {
	if a.fileMissing(ctx, info.Path) {
		return result.Absent[FileResult]()
	}

	if len(info.Lines) == 0 {
		return result.Absent[FileResult]()
	}

	raw, err := a.blame(ctx, info.Path)
	if err != nil {
		a.logger.WarnContext(ctx, "blame failed", "path", info.Path, "error", err)

		return result.Fail[FileResult](fmt.Errorf("blame %s: %w", info.Path, err))
	}

	records, err := ParseBlame(raw)
	if err != nil {
		a.logger.WarnContext(ctx, "undecodable blame output", "path", info.Path, "error", err)

		return result.Fail[FileResult](fmt.Errorf("parse blame %s: %w", info.Path, err))
	}

	if len(records) < len(info.Lines) {
		a.logger.WarnContext(ctx, "blame records do not cover file",
			"path", info.Path, "records", len(records), "lines", len(info.Lines))

		return result.Fail[FileResult](fmt.Errorf(
			"parse blame %s: %w: %d records for %d lines", info.Path, ErrMalformedBlame, len(records), len(info.Lines)))
	}

	a.attributor.Apply(ctx, info, records[:len(info.Lines)])
	ApplyAnnotations(info, a.cfg.Resolver)

	contributions := a.textContributions(info.Lines)
	if len(contributions) == 0 {
		return result.Absent[FileResult]()
	}

	return result.Of(NewTextResult(info, contributions))
}

// AnalyzeBinaryFile attributes a binary file by the authors in its commit
// history, each with zero-weight presence.
func (a *Analyzer) AnalyzeBinaryFile(ctx context.Context, info *FileInfo) result.Result[FileResult] {
	if a.fileMissing(ctx, info.Path) {
		return result.Absent[FileResult]()
	}

	sigs, err := a.history.FileAuthors(ctx, info.Path)
	if err != nil {
		a.logger.WarnContext(ctx, "file history failed", "path", info.Path, "error", err)

		return result.Fail[FileResult](fmt.Errorf("file authors %s: %w", info.Path, err))
	}

	contributions := make(map[*identity.Author]int)

	for _, sig := range sigs {
		author := a.cfg.Resolver.Resolve(sig.Name, sig.Email)
		if author.IsUnknown() || !a.cfg.Allowed.Allows(author) {
			continue
		}

		contributions[author] = 0
	}

	if len(contributions) == 0 {
		return result.Absent[FileResult]()
	}

	return result.Of(NewBinaryResult(info.Path, info.Group, contributions))
}

func (a *Analyzer) blame(ctx context.Context, path string) (string, error) {
	if a.cfg.PreviousAuthors {
		return a.history.BlamePrevious(ctx, path)
	}

	return a.history.Blame(ctx, path)
}

func (a *Analyzer) fileMissing(ctx context.Context, path string) bool {
	_, err := os.Stat(filepath.Join(a.cfg.Root, filepath.FromSlash(path)))
	if err == nil {
		return false
	}

	a.logger.ErrorContext(ctx, "file missing from working tree; skipping", "path", path)

	return true
}

// textContributions tallies lines per final author, keeping the unknown
// author and non-allow-listed authors out of the map.
func (a *Analyzer) textContributions(lines []LineInfo) map[*identity.Author]int {
	contributions := make(map[*identity.Author]int)

	for _, line := range lines {
		if line.Author.IsUnknown() || !a.cfg.Allowed.Allows(line.Author) {
			continue
		}

		contributions[line.Author]++
	}

	return contributions
}
