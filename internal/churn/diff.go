package churn

import (
	"time"
	"unicode/utf8"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// defaultDiffTimeout bounds a single diff computation.
const defaultDiffTimeout = 1000 * time.Millisecond

// FileStats are the line-level totals of one changed file.
type FileStats struct {
	Added   int
	Removed int
	Changed int
}

// diffStats computes line totals between two blob versions. Each line is
// collapsed to one rune before diffing, so run lengths count lines.
func diffStats(oldContent, newContent []byte) FileStats {
	dmp := diffmatchpatch.New()
	dmp.DiffTimeout = defaultDiffTimeout

	src, dst, _ := dmp.DiffLinesToRunes(string(oldContent), string(newContent))

	diffs := dmp.DiffMainRunes(src, dst, false)
	diffs = dmp.DiffCleanupMerge(dmp.DiffCleanupSemanticLossless(diffs))

	return lineTotals(diffs)
}

// lineTotals folds a diff into added, removed, and changed line counts. A
// delete run immediately followed by an insert run pairs up line for line as
// Changed; the surplus on either side counts as Removed or Added.
func lineTotals(diffs []diffmatchpatch.Diff) FileStats {
	var stats FileStats

	var removedPending int

	for _, edit := range diffs {
		switch edit.Type {
		case diffmatchpatch.DiffEqual:
			stats.Removed += removedPending
			removedPending = 0
		case diffmatchpatch.DiffInsert:
			delta := utf8.RuneCountInString(edit.Text)
			if removedPending > delta {
				stats.Changed += delta
				stats.Removed += removedPending - delta
			} else {
				stats.Changed += removedPending
				stats.Added += delta - removedPending
			}

			removedPending = 0
		case diffmatchpatch.DiffDelete:
			removedPending = utf8.RuneCountInString(edit.Text)
		}
	}

	stats.Removed += removedPending

	return stats
}
