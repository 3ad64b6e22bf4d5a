package filetype

import (
	"bytes"
	"errors"
)

// ErrBinary is returned by CountLines when the content is binary.
var ErrBinary = errors.New("binary content")

// binarySniffLength is the number of bytes to scan for null bytes when
// detecting binary content.
const binarySniffLength = 8000

// IsBinary reports whether the content looks binary: a null byte within the
// sniff window.
func IsBinary(data []byte) bool {
	if len(data) == 0 {
		return false
	}

	sniff := data
	if len(sniff) > binarySniffLength {
		sniff = sniff[:binarySniffLength]
	}

	return bytes.IndexByte(sniff, 0) >= 0
}

// CountLines returns the number of lines in the content, or (0, ErrBinary)
// for binary content. A final line without a trailing newline still counts.
func CountLines(data []byte) (int, error) {
	if len(data) == 0 {
		return 0, nil
	}

	if IsBinary(data) {
		return 0, ErrBinary
	}

	lines := bytes.Count(data, []byte{'\n'})

	if data[len(data)-1] != '\n' {
		lines++
	}

	return lines, nil
}
