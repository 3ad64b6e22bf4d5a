package gitcmd

import (
	"context"
	"strconv"
	"strings"
	"time"
)

// logFieldSep separates fields in --format output. Author names and emails
// cannot contain it; subjects may, so the subject is always the last field.
const logFieldSep = "|"

// NameEmail is one (author name, author email) signature from history.
type NameEmail struct {
	Name  string
	Email string
}

// Commit is one history entry with its author signature and time.
type Commit struct {
	Hash    string
	Name    string
	Email   string
	When    time.Time
	Subject string
}

// Change is one changed path within a commit.
type Change struct {
	// Status is the single-letter change kind: A, M, D, R, C.
	Status string

	// Path is the path after the change.
	Path string

	// OldPath is the pre-rename path. Empty unless Status is R or C.
	OldPath string
}

// FileAuthors returns the author signature of every commit touching path,
// following renames. Order is newest first; duplicates are preserved for the
// caller to dedupe by resolved identity.
func (r *Runner) FileAuthors(ctx context.Context, path string) ([]NameEmail, error) {
	out, err := r.run(ctx, "log", "--follow", "--format=%an"+logFieldSep+"%ae", "--", path)
	if err != nil {
		return nil, err
	}

	return parseNameEmails(string(out)), nil
}

// CommitsInWindow returns all non-merge commits authored inside the closed
// [since, until] window, newest first.
func (r *Runner) CommitsInWindow(ctx context.Context, since, until time.Time) ([]Commit, error) {
	out, err := r.run(ctx, "log",
		"--no-merges",
		"--format=%H"+logFieldSep+"%an"+logFieldSep+"%ae"+logFieldSep+"%at"+logFieldSep+"%s",
		"--since="+since.Format(time.RFC3339),
		"--until="+until.Format(time.RFC3339),
	)
	if err != nil {
		return nil, err
	}

	return parseCommits(string(out)), nil
}

// ChangedPaths returns the paths changed by a commit, with rename detection.
func (r *Runner) ChangedPaths(ctx context.Context, hash string) ([]Change, error) {
	out, err := r.run(ctx, "diff-tree", "--no-commit-id", "--name-status", "-r", "-M", "--root", hash)
	if err != nil {
		return nil, err
	}

	return parseChanges(string(out)), nil
}

func parseNameEmails(out string) []NameEmail {
	var sigs []NameEmail

	for line := range strings.SplitSeq(out, "\n") {
		if line == "" {
			continue
		}

		name, email, _ := strings.Cut(line, logFieldSep)
		sigs = append(sigs, NameEmail{Name: name, Email: email})
	}

	return sigs
}

// parseCommits decodes hash|name|email|epoch|subject lines. Malformed lines
// are skipped; history listing is best effort.
func parseCommits(out string) []Commit {
	var commits []Commit

	const fieldCount = 5

	for line := range strings.SplitSeq(out, "\n") {
		if line == "" {
			continue
		}

		fields := strings.SplitN(line, logFieldSep, fieldCount)
		if len(fields) != fieldCount {
			continue
		}

		epoch, err := strconv.ParseInt(fields[3], 10, 64)
		if err != nil {
			continue
		}

		commits = append(commits, Commit{
			Hash:    fields[0],
			Name:    fields[1],
			Email:   fields[2],
			When:    time.Unix(epoch, 0),
			Subject: fields[4],
		})
	}

	return commits
}

// parseChanges decodes name-status lines: "M\tpath" or "R100\told\tnew".
func parseChanges(out string) []Change {
	var changes []Change

	for line := range strings.SplitSeq(out, "\n") {
		if line == "" {
			continue
		}

		fields := strings.Split(line, "\t")
		if len(fields) < 2 || fields[0] == "" {
			continue
		}

		change := Change{Status: fields[0][:1]}

		const renamedFields = 3
		if len(fields) >= renamedFields && (change.Status == "R" || change.Status == "C") {
			change.OldPath = fields[1]
			change.Path = fields[2]
		} else {
			change.Path = fields[1]
		}

		changes = append(changes, change)
	}

	return changes
}
