package report

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/pierrec/lz4/v4"
)

// ArchiveExt is the file extension of lz4-compressed reports.
const ArchiveExt = ".lz4"

// lz4FrameMagic opens every lz4 frame.
var lz4FrameMagic = []byte{0x04, 0x22, 0x4d, 0x18}

// WriteArchive streams the report as JSON through an lz4 frame writer.
func WriteArchive(w io.Writer, rep *Report) error {
	zw := lz4.NewWriter(w)

	err := json.NewEncoder(zw).Encode(rep)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	err = zw.Close()
	if err != nil {
		return fmt.Errorf("close archive: %w", err)
	}

	return nil
}

// ReadArchive decodes a report written by WriteArchive.
func ReadArchive(r io.Reader) (*Report, error) {
	var rep Report

	err := json.NewDecoder(lz4.NewReader(r)).Decode(&rep)
	if err != nil {
		return nil, fmt.Errorf("decode archive: %w", err)
	}

	return &rep, nil
}

// Load reads a stored report from disk. The lz4 frame magic decides how the
// file is decoded, so renamed archives still load.
func Load(path string) (*Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open report: %w", err)
	}
	defer f.Close()

	buffered := bufio.NewReader(f)

	magic, err := buffered.Peek(len(lz4FrameMagic))
	if err == nil && bytes.Equal(magic, lz4FrameMagic) {
		return ReadArchive(buffered)
	}

	var rep Report

	err = json.NewDecoder(buffered).Decode(&rep)
	if err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}

	return &rep, nil
}
