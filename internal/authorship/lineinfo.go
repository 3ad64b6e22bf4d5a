package authorship

import (
	"strings"
	"time"

	"github.com/Sumatoshi-tech/codetally/internal/identity"
)

// LineInfo carries one line's attribution state. Author and LastModified are
// written by the attributor and may be overwritten by annotation overrides.
type LineInfo struct {
	// Number is 1-based and contiguous within a file.
	Number int

	// Author is never nil in a completed analysis; excluded lines carry
	// identity.Unknown.
	Author *identity.Author

	// Hash is the commit that last touched the line. The zero-hash for
	// uncommitted working tree content.
	Hash string

	// LastModified is the authored timestamp in the configured zone. Zero
	// when last-modified stamping is disabled.
	LastModified time.Time

	// Tracked is false for uncommitted working tree content. Annotation
	// overrides force it back to true.
	Tracked bool

	// Text is the line's current content.
	Text string
}

// FileInfo is one file prepared for analysis: its repo-relative path, report
// group, and ordered lines. Lines stays nil for binary files.
type FileInfo struct {
	Path         string
	Group        string
	Lines        []LineInfo
	ExceedsLimit bool
}

// NewFileInfo splits text content into numbered lines. When the content has
// more than limit lines, only the first limit lines are kept and
// ExceedsLimit is set. A non-positive limit keeps everything.
func NewFileInfo(path, group string, content []byte, limit int) *FileInfo {
	info := &FileInfo{Path: path, Group: group}

	if len(content) == 0 {
		return info
	}

	raw := strings.Split(string(content), "\n")
	if raw[len(raw)-1] == "" {
		raw = raw[:len(raw)-1]
	}

	if limit > 0 && len(raw) > limit {
		raw = raw[:limit]
		info.ExceedsLimit = true
	}

	info.Lines = make([]LineInfo, len(raw))
	for i, text := range raw {
		info.Lines[i] = LineInfo{Number: i + 1, Tracked: true, Text: text}
	}

	return info
}

// LineCount returns the number of analyzed lines.
func (f *FileInfo) LineCount() int {
	return len(f.Lines)
}

// Committed reports whether the line's content is part of a commit.
func (l LineInfo) Committed() bool {
	return l.Hash != "" && l.Hash != zeroHash
}
