package authorship

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Sumatoshi-tech/codetally/internal/identity"
)

// Attributor resolves each parsed record to its final author under the
// exclusion rule stack: untracked content, per-author file-ignore globs,
// ignored commits, and the closed [Since, Until] window.
type Attributor struct {
	Resolver      *identity.Resolver
	IgnoreCommits *identity.HashSet
	Since         time.Time
	Until         time.Time
	Zone          *time.Location
	LastModified  bool
	Shallow       bool
	Logger        *slog.Logger

	warnShallow sync.Once
}

// Apply writes the resolved author, commit hash, and optional last-modified
// timestamp onto every line. Records and lines correspond by index; the
// caller guarantees equal lengths. Excluded lines keep counting toward the
// file total but are attributed to the unknown author.
func (a *Attributor) Apply(ctx context.Context, info *FileInfo, records []BlameRecord) {
	if a.LastModified && a.Shallow {
		a.warnShallow.Do(func() {
			a.Logger.WarnContext(ctx, "repository is shallow; last modified dates may be inaccurate")
		})
	}

	for i, record := range records {
		line := &info.Lines[i]

		author := a.Resolver.Resolve(record.Name, record.Email)
		when := time.Unix(record.Epoch, 0).In(a.Zone)
		tracked := !record.Untracked()

		if !tracked || a.excluded(author, info.Path, record.Hash, when) {
			author = identity.Unknown
		}

		line.Tracked = tracked
		line.Author = author
		line.Hash = record.Hash

		if a.LastModified {
			line.LastModified = when
		}
	}
}

// excluded applies the rule stack to one tracked line. Boundary timestamps
// equal to Since or Until stay inside the window.
func (a *Attributor) excluded(author *identity.Author, path, hash string, when time.Time) bool {
	if author.IgnoresFile(path) {
		return true
	}

	if a.IgnoreCommits.Contains(hash) {
		return true
	}

	return when.Before(a.Since) || when.After(a.Until)
}
