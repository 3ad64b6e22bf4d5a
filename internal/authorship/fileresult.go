package authorship

import "github.com/Sumatoshi-tech/codetally/internal/identity"

// Kind tags a FileResult as text or binary; the two are built by distinct
// factory paths.
type Kind string

const (
	// KindText marks a blame-attributed text file result.
	KindText Kind = "text"

	// KindBinary marks a history-presence binary file result.
	KindBinary Kind = "binary"
)

// FileResult is one analyzed file's contribution summary. Contributions maps
// each author to attributed line count for text files, or to zero for binary
// files where authors appear with presence only. The unknown author is never
// a key.
type FileResult struct {
	Path          string
	Group         string
	Kind          Kind
	Lines         []LineInfo
	LineCount     int
	Contributions map[*identity.Author]int
	ExceedsLimit  bool
}

// NewTextResult builds the text-file variant from a completed line array.
func NewTextResult(info *FileInfo, contributions map[*identity.Author]int) FileResult {
	return FileResult{
		Path:          info.Path,
		Group:         info.Group,
		Kind:          KindText,
		Lines:         info.Lines,
		LineCount:     len(info.Lines),
		Contributions: contributions,
		ExceedsLimit:  info.ExceedsLimit,
	}
}

// NewBinaryResult builds the binary-file variant: no lines, zero-weight
// author presence.
func NewBinaryResult(path, group string, contributions map[*identity.Author]int) FileResult {
	return FileResult{
		Path:          path,
		Group:         group,
		Kind:          KindBinary,
		Contributions: contributions,
	}
}
