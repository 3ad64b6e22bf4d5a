package authorship

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/codetally/internal/gitcmd"
	"github.com/Sumatoshi-tech/codetally/internal/repocfg"
)

type stubHistory struct {
	blame         map[string]string
	previousBlame map[string]string
	fileAuthors   map[string][]gitcmd.NameEmail
	blameErr      error
	authorsErr    error
}

func (s *stubHistory) Blame(_ context.Context, path string) (string, error) {
	if s.blameErr != nil {
		return "", s.blameErr
	}

	return s.blame[path], nil
}

func (s *stubHistory) BlamePrevious(_ context.Context, path string) (string, error) {
	if s.blameErr != nil {
		return "", s.blameErr
	}

	if s.previousBlame != nil {
		return s.previousBlame[path], nil
	}

	return s.blame[path], nil
}

func (s *stubHistory) FileAuthors(_ context.Context, path string) ([]gitcmd.NameEmail, error) {
	if s.authorsErr != nil {
		return nil, s.authorsErr
	}

	return s.fileAuthors[path], nil
}

// testAnalysis builds run artifacts over a temp working tree with a fixed
// 2024-01-01..2024-03-31 UTC window.
func testAnalysis(t *testing.T, root string, mutate func(*repocfg.Config)) *repocfg.Analysis {
	t.Helper()

	cfg := repocfg.Config{
		Root:     root,
		Since:    "2024-01-01",
		Until:    "2024-03-31",
		Timezone: "UTC",
	}

	if mutate != nil {
		mutate(&cfg)
	}

	analysis, err := cfg.Build()
	require.NoError(t, err)

	return analysis
}

func writeTreeFile(t *testing.T, root, path, content string) {
	t.Helper()

	full := filepath.Join(root, filepath.FromSlash(path))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

func repeatedRecords(n int, hash, name, email string, epoch int64) []string {
	records := make([]string, n)
	for i := range records {
		records[i] = record(hash, name, email, epoch)
	}

	return records
}

func contributionsByID(res FileResult) map[string]int {
	byID := make(map[string]int, len(res.Contributions))
	for author, count := range res.Contributions {
		byID[author.GitID] = count
	}

	return byID
}

func TestAnalyzeTextFileScenarios(t *testing.T) {
	t.Parallel()

	t.Run("all_lines_by_one_author_in_window", func(t *testing.T) {
		t.Parallel()

		root := t.TempDir()
		content := strings.Repeat("line\n", 10)
		writeTreeFile(t, root, "main.go", content)

		history := &stubHistory{blame: map[string]string{
			"main.go": blameText(repeatedRecords(10, testHashX, "xavier", "x@example.com", epochInWindow)...),
		}}

		analyzer := NewAnalyzer(history, testAnalysis(t, root, nil), false, discardLogger())
		res := analyzer.AnalyzeTextFile(context.Background(), NewFileInfo("main.go", "go", []byte(content), 0))

		fileRes, ok := res.Value()
		require.True(t, ok)

		assert.Equal(t, map[string]int{"xavier": 10}, contributionsByID(fileRes))
		assert.Equal(t, 10, fileRes.LineCount)
		assert.Equal(t, KindText, fileRes.Kind)
	})

	t.Run("lines_before_window_become_unknown", func(t *testing.T) {
		t.Parallel()

		root := t.TempDir()
		content := strings.Repeat("line\n", 10)
		writeTreeFile(t, root, "main.go", content)

		records := append(
			repeatedRecords(4, testHashX, "xavier", "x@example.com", epochBeforeWindow),
			repeatedRecords(6, testHashX, "xavier", "x@example.com", epochInWindow)...)

		history := &stubHistory{blame: map[string]string{"main.go": blameText(records...)}}

		analyzer := NewAnalyzer(history, testAnalysis(t, root, nil), false, discardLogger())
		res := analyzer.AnalyzeTextFile(context.Background(), NewFileInfo("main.go", "go", []byte(content), 0))

		fileRes, ok := res.Value()
		require.True(t, ok)

		assert.Equal(t, map[string]int{"xavier": 6}, contributionsByID(fileRes))
		assert.Equal(t, 10, fileRes.LineCount)

		unknownLines := 0

		for _, line := range fileRes.Lines {
			if line.Author.IsUnknown() {
				unknownLines++
			}
		}

		assert.Equal(t, 4, unknownLines)
	})

	t.Run("allow_list_drops_file_authored_by_others", func(t *testing.T) {
		t.Parallel()

		root := t.TempDir()
		content := strings.Repeat("line\n", 5)
		writeTreeFile(t, root, "main.go", content)

		history := &stubHistory{blame: map[string]string{
			"main.go": blameText(repeatedRecords(5, testHashY, "yolanda", "y@example.com", epochInWindow)...),
		}}

		analysis := testAnalysis(t, root, func(cfg *repocfg.Config) {
			cfg.AllowAuthors = []string{"xavier"}
		})

		analyzer := NewAnalyzer(history, analysis, false, discardLogger())
		res := analyzer.AnalyzeTextFile(context.Background(), NewFileInfo("main.go", "go", []byte(content), 0))

		assert.True(t, res.IsAbsent())
	})

	t.Run("annotation_reassigns_over_history", func(t *testing.T) {
		t.Parallel()

		root := t.TempDir()
		lines := []string{
			"plain one",
			"plain two",
			"// @@author zoe",
			"reassigned",
			"// @@author",
			"plain three",
			"plain four",
			"plain five",
			"plain six",
			"plain seven",
		}
		content := strings.Join(lines, "\n") + "\n"
		writeTreeFile(t, root, "main.go", content)

		history := &stubHistory{blame: map[string]string{
			"main.go": blameText(repeatedRecords(10, testHashX, "xavier", "x@example.com", epochInWindow)...),
		}}

		analyzer := NewAnalyzer(history, testAnalysis(t, root, nil), false, discardLogger())
		res := analyzer.AnalyzeTextFile(context.Background(), NewFileInfo("main.go", "go", []byte(content), 0))

		fileRes, ok := res.Value()
		require.True(t, ok)

		assert.Equal(t, map[string]int{"xavier": 7, "zoe": 3}, contributionsByID(fileRes))
	})

	t.Run("counts_sum_to_attributed_lines", func(t *testing.T) {
		t.Parallel()

		root := t.TempDir()
		content := strings.Repeat("line\n", 6)
		writeTreeFile(t, root, "main.go", content)

		records := []string{
			record(testHashX, "xavier", "x@example.com", epochInWindow),
			record(testHashX, "xavier", "x@example.com", epochBeforeWindow),
			record(testHashY, "yolanda", "y@example.com", epochInWindow),
			record(strings.Repeat("0", 40), "xavier", "x@example.com", epochInWindow),
			record(testHashY, "yolanda", "y@example.com", epochInWindow),
			record(testHashX, "xavier", "x@example.com", epochAfterWindow),
		}

		history := &stubHistory{blame: map[string]string{"main.go": blameText(records...)}}

		analyzer := NewAnalyzer(history, testAnalysis(t, root, nil), false, discardLogger())
		res := analyzer.AnalyzeTextFile(context.Background(), NewFileInfo("main.go", "go", []byte(content), 0))

		fileRes, ok := res.Value()
		require.True(t, ok)

		total := 0
		for _, count := range fileRes.Contributions {
			total += count
		}

		attributed := 0

		for _, line := range fileRes.Lines {
			if !line.Author.IsUnknown() {
				attributed++
			}
		}

		assert.Equal(t, attributed, total)
		assert.Equal(t, map[string]int{"xavier": 1, "yolanda": 2}, contributionsByID(fileRes))
	})

	t.Run("identical_input_yields_identical_result", func(t *testing.T) {
		t.Parallel()

		root := t.TempDir()
		content := strings.Repeat("line\n", 8)
		writeTreeFile(t, root, "main.go", content)

		records := append(
			repeatedRecords(5, testHashX, "xavier", "x@example.com", epochInWindow),
			repeatedRecords(3, testHashY, "yolanda", "y@example.com", epochBeforeWindow)...)

		history := &stubHistory{blame: map[string]string{"main.go": blameText(records...)}}

		analyzer := NewAnalyzer(history, testAnalysis(t, root, nil), false, discardLogger())

		first := analyzer.AnalyzeTextFile(context.Background(), NewFileInfo("main.go", "go", []byte(content), 0))
		second := analyzer.AnalyzeTextFile(context.Background(), NewFileInfo("main.go", "go", []byte(content), 0))

		firstRes, ok := first.Value()
		require.True(t, ok)
		secondRes, ok := second.Value()
		require.True(t, ok)

		assert.Equal(t, firstRes.Contributions, secondRes.Contributions)
		assert.Equal(t, contributionsByID(firstRes), contributionsByID(secondRes))
	})
}

func TestAnalyzeTextFileOutcomes(t *testing.T) {
	t.Parallel()

	t.Run("missing_file_logs_severe_and_drops", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer

		root := t.TempDir()
		history := &stubHistory{}
		logger := slog.New(slog.NewTextHandler(&buf, nil))

		analyzer := NewAnalyzer(history, testAnalysis(t, root, nil), false, logger)
		res := analyzer.AnalyzeTextFile(context.Background(), NewFileInfo("gone.go", "go", []byte("x\n"), 0))

		assert.True(t, res.IsAbsent())
		assert.Contains(t, buf.String(), "level=ERROR")
		assert.Contains(t, buf.String(), "gone.go")
	})

	t.Run("empty_file_drops_silently", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer

		root := t.TempDir()
		writeTreeFile(t, root, "empty.go", "")

		logger := slog.New(slog.NewTextHandler(&buf, nil))
		analyzer := NewAnalyzer(&stubHistory{}, testAnalysis(t, root, nil), false, logger)

		res := analyzer.AnalyzeTextFile(context.Background(), NewFileInfo("empty.go", "go", nil, 0))

		assert.True(t, res.IsAbsent())
		assert.Empty(t, buf.String())
	})

	t.Run("blame_command_failure_fails_the_file", func(t *testing.T) {
		t.Parallel()

		root := t.TempDir()
		writeTreeFile(t, root, "main.go", "x\n")

		wantErr := errors.New("exit status 128")
		history := &stubHistory{blameErr: wantErr}

		analyzer := NewAnalyzer(history, testAnalysis(t, root, nil), false, discardLogger())
		res := analyzer.AnalyzeTextFile(context.Background(), NewFileInfo("main.go", "go", []byte("x\n"), 0))

		require.True(t, res.IsFailed())
		assert.ErrorIs(t, res.Err(), wantErr)
	})

	t.Run("undecodable_blame_fails_the_file", func(t *testing.T) {
		t.Parallel()

		root := t.TempDir()
		writeTreeFile(t, root, "main.go", "x\n")

		history := &stubHistory{blame: map[string]string{"main.go": "garbage output"}}

		analyzer := NewAnalyzer(history, testAnalysis(t, root, nil), false, discardLogger())
		res := analyzer.AnalyzeTextFile(context.Background(), NewFileInfo("main.go", "go", []byte("x\n"), 0))

		require.True(t, res.IsFailed())
		assert.ErrorIs(t, res.Err(), ErrMalformedBlame)
	})

	t.Run("short_blame_coverage_fails_the_file", func(t *testing.T) {
		t.Parallel()

		root := t.TempDir()
		content := "a\nb\nc\n"
		writeTreeFile(t, root, "main.go", content)

		history := &stubHistory{blame: map[string]string{
			"main.go": record(testHashX, "xavier", "x@example.com", epochInWindow),
		}}

		analyzer := NewAnalyzer(history, testAnalysis(t, root, nil), false, discardLogger())
		res := analyzer.AnalyzeTextFile(context.Background(), NewFileInfo("main.go", "go", []byte(content), 0))

		require.True(t, res.IsFailed())
		assert.ErrorIs(t, res.Err(), ErrMalformedBlame)
	})

	t.Run("truncated_file_uses_record_prefix", func(t *testing.T) {
		t.Parallel()

		root := t.TempDir()
		content := "a\nb\nc\nd\n"
		writeTreeFile(t, root, "main.go", content)

		history := &stubHistory{blame: map[string]string{
			"main.go": blameText(repeatedRecords(4, testHashX, "xavier", "x@example.com", epochInWindow)...),
		}}

		analyzer := NewAnalyzer(history, testAnalysis(t, root, nil), false, discardLogger())
		res := analyzer.AnalyzeTextFile(context.Background(), NewFileInfo("main.go", "go", []byte(content), 2))

		fileRes, ok := res.Value()
		require.True(t, ok)

		assert.True(t, fileRes.ExceedsLimit)
		assert.Equal(t, 2, fileRes.LineCount)
		assert.Equal(t, map[string]int{"xavier": 2}, contributionsByID(fileRes))
	})

	t.Run("previous_authors_mode_uses_previous_blame", func(t *testing.T) {
		t.Parallel()

		root := t.TempDir()
		content := "x\n"
		writeTreeFile(t, root, "main.go", content)

		history := &stubHistory{
			blame: map[string]string{
				"main.go": record(testHashY, "yolanda", "y@example.com", epochInWindow),
			},
			previousBlame: map[string]string{
				"main.go": record(testHashX, "xavier", "x@example.com", epochInWindow),
			},
		}

		analysis := testAnalysis(t, root, func(cfg *repocfg.Config) {
			cfg.PreviousAuthors = true
		})

		analyzer := NewAnalyzer(history, analysis, false, discardLogger())
		res := analyzer.AnalyzeTextFile(context.Background(), NewFileInfo("main.go", "go", []byte(content), 0))

		fileRes, ok := res.Value()
		require.True(t, ok)

		assert.Equal(t, map[string]int{"xavier": 1}, contributionsByID(fileRes))
	})
}

func TestAnalyzeBinaryFile(t *testing.T) {
	t.Parallel()

	t.Run("history_authors_get_zero_weight_presence", func(t *testing.T) {
		t.Parallel()

		root := t.TempDir()
		writeTreeFile(t, root, "logo.png", "\x89PNG")

		history := &stubHistory{fileAuthors: map[string][]gitcmd.NameEmail{
			"logo.png": {
				{Name: "xavier", Email: "x@example.com"},
				{Name: "yolanda", Email: "y@example.com"},
				{Name: "xavier", Email: "x@example.com"},
			},
		}}

		analyzer := NewAnalyzer(history, testAnalysis(t, root, nil), false, discardLogger())
		res := analyzer.AnalyzeBinaryFile(context.Background(), &FileInfo{Path: "logo.png", Group: "image"})

		fileRes, ok := res.Value()
		require.True(t, ok)

		assert.Equal(t, KindBinary, fileRes.Kind)
		assert.Equal(t, map[string]int{"xavier": 0, "yolanda": 0}, contributionsByID(fileRes))
		assert.Zero(t, fileRes.LineCount)
	})

	t.Run("allow_list_filters_presence", func(t *testing.T) {
		t.Parallel()

		root := t.TempDir()
		writeTreeFile(t, root, "logo.png", "\x89PNG")

		history := &stubHistory{fileAuthors: map[string][]gitcmd.NameEmail{
			"logo.png": {
				{Name: "xavier", Email: "x@example.com"},
				{Name: "yolanda", Email: "y@example.com"},
			},
		}}

		analysis := testAnalysis(t, root, func(cfg *repocfg.Config) {
			cfg.AllowAuthors = []string{"xavier"}
		})

		analyzer := NewAnalyzer(history, analysis, false, discardLogger())
		res := analyzer.AnalyzeBinaryFile(context.Background(), &FileInfo{Path: "logo.png", Group: "image"})

		fileRes, ok := res.Value()
		require.True(t, ok)

		assert.Equal(t, map[string]int{"xavier": 0}, contributionsByID(fileRes))
	})

	t.Run("no_history_drops_silently", func(t *testing.T) {
		t.Parallel()

		root := t.TempDir()
		writeTreeFile(t, root, "logo.png", "\x89PNG")

		analyzer := NewAnalyzer(&stubHistory{}, testAnalysis(t, root, nil), false, discardLogger())
		res := analyzer.AnalyzeBinaryFile(context.Background(), &FileInfo{Path: "logo.png", Group: "image"})

		assert.True(t, res.IsAbsent())
	})

	t.Run("ignored_authors_never_appear", func(t *testing.T) {
		t.Parallel()

		root := t.TempDir()
		writeTreeFile(t, root, "logo.png", "\x89PNG")

		history := &stubHistory{fileAuthors: map[string][]gitcmd.NameEmail{
			"logo.png": {{Name: "bot", Email: "bot@example.com"}},
		}}

		analysis := testAnalysis(t, root, func(cfg *repocfg.Config) {
			cfg.IgnoreAuthors = []string{"bot"}
		})

		analyzer := NewAnalyzer(history, analysis, false, discardLogger())
		res := analyzer.AnalyzeBinaryFile(context.Background(), &FileInfo{Path: "logo.png", Group: "image"})

		assert.True(t, res.IsAbsent())
	})

	t.Run("history_failure_fails_the_file", func(t *testing.T) {
		t.Parallel()

		root := t.TempDir()
		writeTreeFile(t, root, "logo.png", "\x89PNG")

		wantErr := errors.New("exit status 128")
		history := &stubHistory{authorsErr: wantErr}

		analyzer := NewAnalyzer(history, testAnalysis(t, root, nil), false, discardLogger())
		res := analyzer.AnalyzeBinaryFile(context.Background(), &FileInfo{Path: "logo.png", Group: "image"})

		require.True(t, res.IsFailed())
		assert.ErrorIs(t, res.Err(), wantErr)
	})

	t.Run("missing_binary_drops_with_severe_log", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer

		root := t.TempDir()
		logger := slog.New(slog.NewTextHandler(&buf, nil))

		analyzer := NewAnalyzer(&stubHistory{}, testAnalysis(t, root, nil), false, logger)
		res := analyzer.AnalyzeBinaryFile(context.Background(), &FileInfo{Path: "gone.png", Group: "image"})

		assert.True(t, res.IsAbsent())
		assert.Contains(t, buf.String(), "level=ERROR")
	})

	t.Run("dispatch_picks_pipeline_by_kind", func(t *testing.T) {
		t.Parallel()

		root := t.TempDir()
		writeTreeFile(t, root, "logo.png", "\x89PNG")

		history := &stubHistory{fileAuthors: map[string][]gitcmd.NameEmail{
			"logo.png": {{Name: "xavier", Email: "x@example.com"}},
		}}

		analyzer := NewAnalyzer(history, testAnalysis(t, root, nil), false, discardLogger())
		res := analyzer.AnalyzeFile(context.Background(), &FileInfo{Path: "logo.png", Group: "image"}, true)

		fileRes, ok := res.Value()
		require.True(t, ok)
		assert.Equal(t, KindBinary, fileRes.Kind)
	})
}
