// Package authorship is the attribution engine: it decodes per-line history
// records, resolves each line to a canonical author under the exclusion and
// override rule stack, and aggregates per-file contribution summaries.
package authorship

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformedBlame indicates blame text that does not decode into complete
// per-line records.
var ErrMalformedBlame = errors.New("malformed blame record")

const (
	authorNameOffset  = len("author ")
	authorEmailOffset = len("author-mail ")
	authorTimeOffset  = len("author-time ")

	hashLength  = 40
	recordLines = 5
)

// zeroHash marks uncommitted working tree content in blame output.
const zeroHash = "0000000000000000000000000000000000000000"

// BlameRecord is one source line's decoded history facts.
type BlameRecord struct {
	Hash  string
	Name  string
	Email string
	Epoch int64
}

// Untracked reports whether the record belongs to uncommitted content.
func (r BlameRecord) Untracked() bool {
	return r.Hash == zeroHash
}

// ParseBlame decodes normalized blame text into one record per source line.
// Line k's record occupies raw lines k*5 .. k*5+4: the commit hash header,
// then author, author-mail, author-time and author-tz fields. Fields are
// extracted by offset; the email's angle brackets are stripped. Any truncated
// record, short hash line or non-numeric epoch fails the whole parse.
func ParseBlame(raw string) ([]BlameRecord, error) {
	if raw == "" {
		return nil, nil
	}

	lines := strings.Split(raw, "\n")
	if len(lines)%recordLines != 0 {
		return nil, fmt.Errorf("%w: %d lines is not a multiple of %d", ErrMalformedBlame, len(lines), recordLines)
	}

	records := make([]BlameRecord, 0, len(lines)/recordLines)

	for i := 0; i < len(lines); i += recordLines {
		record, err := parseRecord(lines[i : i+recordLines])
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i/recordLines, err)
		}

		records = append(records, record)
	}

	return records, nil
}

func parseRecord(lines []string) (BlameRecord, error) {
	if len(lines[0]) < hashLength {
		return BlameRecord{}, fmt.Errorf("%w: short hash line %q", ErrMalformedBlame, lines[0])
	}

	if len(lines[1]) < authorNameOffset || len(lines[2]) < authorEmailOffset || len(lines[3]) < authorTimeOffset {
		return BlameRecord{}, fmt.Errorf("%w: truncated author fields", ErrMalformedBlame)
	}

	email := lines[2][authorEmailOffset:]
	email = strings.TrimPrefix(email, "<")
	email = strings.TrimSuffix(email, ">")

	epoch, err := strconv.ParseInt(lines[3][authorTimeOffset:], 10, 64)
	if err != nil {
		return BlameRecord{}, fmt.Errorf("%w: author-time %q", ErrMalformedBlame, lines[3])
	}

	return BlameRecord{
		Hash:  lines[0][:hashLength],
		Name:  lines[1][authorNameOffset:],
		Email: email,
		Epoch: epoch,
	}, nil
}
