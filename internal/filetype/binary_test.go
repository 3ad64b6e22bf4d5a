package filetype

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsBinary(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data []byte
		want bool
	}{
		{name: "empty", data: nil, want: false},
		{name: "plain_text", data: []byte("package main\n"), want: false},
		{name: "null_byte", data: []byte{'P', 'N', 'G', 0, 1, 2}, want: true},
		{
			name: "null_beyond_sniff_window",
			data: append(bytes.Repeat([]byte{'a'}, binarySniffLength), 0),
			want: false,
		},
		{
			name: "null_at_sniff_edge",
			data: append(bytes.Repeat([]byte{'a'}, binarySniffLength-1), 0),
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, IsBinary(tt.data))
		})
	}
}

func TestCountLines(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data []byte
		want int
	}{
		{name: "empty", data: nil, want: 0},
		{name: "single_line_with_newline", data: []byte("hello\n"), want: 1},
		{name: "single_line_without_newline", data: []byte("hello"), want: 1},
		{name: "trailing_partial_line", data: []byte("a\nb\nc"), want: 3},
		{name: "all_terminated", data: []byte("a\nb\nc\n"), want: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := CountLines(tt.data)

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("binary_content", func(t *testing.T) {
		t.Parallel()

		_, err := CountLines([]byte{0, 1, 2})

		assert.ErrorIs(t, err, ErrBinary)
	})
}
