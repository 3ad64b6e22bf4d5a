package gitcmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNameEmails(t *testing.T) {
	t.Parallel()

	t.Run("splits_name_and_email", func(t *testing.T) {
		t.Parallel()

		out := "Alice|alice@example.com\nBob|bob@example.com\n"

		got := parseNameEmails(out)

		require.Len(t, got, 2)
		assert.Equal(t, NameEmail{Name: "Alice", Email: "alice@example.com"}, got[0])
		assert.Equal(t, NameEmail{Name: "Bob", Email: "bob@example.com"}, got[1])
	})

	t.Run("skips_blank_lines", func(t *testing.T) {
		t.Parallel()

		got := parseNameEmails("\nAlice|alice@example.com\n\n")

		require.Len(t, got, 1)
		assert.Equal(t, "Alice", got[0].Name)
	})

	t.Run("empty_output", func(t *testing.T) {
		t.Parallel()

		assert.Empty(t, parseNameEmails(""))
	})
}

func TestParseCommits(t *testing.T) {
	t.Parallel()

	t.Run("decodes_fields", func(t *testing.T) {
		t.Parallel()

		out := "4f3c2b1a4f3c2b1a4f3c2b1a4f3c2b1a4f3c2b1a|Alice|alice@example.com|1700000000|first commit\n"

		got := parseCommits(out)

		require.Len(t, got, 1)
		assert.Equal(t, "4f3c2b1a4f3c2b1a4f3c2b1a4f3c2b1a4f3c2b1a", got[0].Hash)
		assert.Equal(t, "Alice", got[0].Name)
		assert.Equal(t, "alice@example.com", got[0].Email)
		assert.Equal(t, int64(1700000000), got[0].When.Unix())
		assert.Equal(t, "first commit", got[0].Subject)
	})

	t.Run("subject_keeps_separator_characters", func(t *testing.T) {
		t.Parallel()

		out := "aaaa|Alice|alice@example.com|1700000000|fix: a|b|c\n"

		got := parseCommits(out)

		require.Len(t, got, 1)
		assert.Equal(t, "fix: a|b|c", got[0].Subject)
	})

	t.Run("skips_malformed_lines", func(t *testing.T) {
		t.Parallel()

		out := "only|three|fields\n" +
			"aaaa|Alice|alice@example.com|notanumber|subject\n" +
			"bbbb|Bob|bob@example.com|1700000500|kept\n"

		got := parseCommits(out)

		require.Len(t, got, 1)
		assert.Equal(t, "kept", got[0].Subject)
	})
}

func TestParseChanges(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		out  string
		want []Change
	}{
		{
			name: "modified_and_added",
			out:  "M\tinternal/run.go\nA\tdocs/new.md\n",
			want: []Change{
				{Status: "M", Path: "internal/run.go"},
				{Status: "A", Path: "docs/new.md"},
			},
		},
		{
			name: "rename_carries_both_paths",
			out:  "R100\told/name.go\tnew/name.go\n",
			want: []Change{
				{Status: "R", OldPath: "old/name.go", Path: "new/name.go"},
			},
		},
		{
			name: "copy_carries_both_paths",
			out:  "C75\tsrc.go\tcopy.go\n",
			want: []Change{
				{Status: "C", OldPath: "src.go", Path: "copy.go"},
			},
		},
		{
			name: "deleted",
			out:  "D\tgone.go\n",
			want: []Change{
				{Status: "D", Path: "gone.go"},
			},
		},
		{
			name: "skips_malformed",
			out:  "\nnotabs\nM\tkept.go\n",
			want: []Change{
				{Status: "M", Path: "kept.go"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, parseChanges(tt.out))
		})
	}
}
