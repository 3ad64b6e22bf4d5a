package gitcmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ignoreRevsFileName is the file written under .git/ for previous-author
// blame runs.
const ignoreRevsFileName = "codetally-ignore-revs"

// hashLength is the length of a full hex commit hash.
const hashLength = 40

// blameFieldPrefixes are the porcelain header fields kept by normalization,
// in the order they appear within each record.
var blameFieldPrefixes = []string{"author ", "author-mail ", "author-time ", "author-tz "}

// Blame returns normalized blame record text for path: five lines per source
// line (commit header, author, author-mail, author-time, author-tz), from
// `git blame -w --line-porcelain` with all other porcelain fields removed.
// Whitespace-only changes are ignored so reformatting keeps original authors.
func (r *Runner) Blame(ctx context.Context, path string) (string, error) {
	out, err := r.run(ctx, "blame", "-w", "--line-porcelain", "--", path)
	if err != nil {
		return "", err
	}

	return normalizeBlame(string(out)), nil
}

// BlamePrevious returns blame record text in the same normalized format, with
// the runner's prepared ignore-revs file applied so each line reports its
// deepest known predecessor author across the ignored revisions. Without a
// prepared file it behaves like Blame.
func (r *Runner) BlamePrevious(ctx context.Context, path string) (string, error) {
	args := []string{"blame", "-w", "--line-porcelain"}

	if r.ignoreRevsPath != "" {
		args = append(args, "--ignore-revs-file", r.ignoreRevsPath)
	}

	args = append(args, "--", path)

	out, err := r.run(ctx, args...)
	if err != nil {
		return "", err
	}

	return normalizeBlame(string(out)), nil
}

// PrepareIgnoreRevs expands the given commit entries (full hashes or
// abbreviations) and writes them to .git/codetally-ignore-revs, enabling
// BlamePrevious. Entries that fail to resolve are skipped with a warning so
// one stale configuration entry cannot fail the run. An empty entry list
// clears any previously prepared file.
func (r *Runner) PrepareIgnoreRevs(ctx context.Context, entries []string) error {
	if len(entries) == 0 {
		r.ignoreRevsPath = ""

		return nil
	}

	full := make([]string, 0, len(entries))

	for _, entry := range entries {
		if len(entry) == hashLength {
			full = append(full, entry)

			continue
		}

		hash, err := r.ResolveCommit(ctx, entry)
		if err != nil {
			r.logger.WarnContext(ctx, "skipping unresolvable ignored commit", "entry", entry, "error", err)

			continue
		}

		full = append(full, hash)
	}

	path := filepath.Join(r.dir, ".git", ignoreRevsFileName)

	err := os.WriteFile(path, []byte(strings.Join(full, "\n")+"\n"), 0o644)
	if err != nil {
		return fmt.Errorf("write ignore-revs file: %w", err)
	}

	r.ignoreRevsPath = path

	return nil
}

// normalizeBlame filters raw line-porcelain output down to the fixed 5-line
// record format: for each source line the commit header line (40-hex hash
// first) and the four author fields survive; summary, committer, filename,
// and content lines are dropped.
func normalizeBlame(raw string) string {
	var b strings.Builder

	for line := range strings.SplitSeq(raw, "\n") {
		if isBlameRecordLine(line) {
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}

	return strings.TrimSuffix(b.String(), "\n")
}

// isBlameRecordLine reports whether a porcelain output line belongs to the
// normalized record format.
func isBlameRecordLine(line string) bool {
	if isHashHeader(line) {
		return true
	}

	for _, prefix := range blameFieldPrefixes {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}

	return false
}

// isHashHeader reports whether the line is a porcelain commit header:
// a full hex hash followed by line-number fields. Content lines cannot be
// mistaken for headers because porcelain prefixes them with a tab.
func isHashHeader(line string) bool {
	if len(line) < hashLength {
		return false
	}

	if len(line) > hashLength && line[hashLength] != ' ' {
		return false
	}

	for i := range hashLength {
		c := line[i]

		isHex := (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')
		if !isHex {
			return false
		}
	}

	return true
}
