package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/codetally/internal/authorship"
	"github.com/Sumatoshi-tech/codetally/internal/churn"
	"github.com/Sumatoshi-tech/codetally/internal/identity"
	"github.com/Sumatoshi-tech/codetally/internal/repocfg"
)

func testAnalysis(t *testing.T, mutate func(*repocfg.Config)) *repocfg.Analysis {
	t.Helper()

	cfg := repocfg.Config{
		Root:     t.TempDir(),
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

func textResult(path string, lines int, contributions map[*identity.Author]int) authorship.FileResult {
	return authorship.FileResult{
		Path:          path,
		Group:         "go",
		Kind:          authorship.KindText,
		LineCount:     lines,
		Contributions: contributions,
	}
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	alice := &identity.Author{GitID: "alice", DisplayName: "Alice"}
	bob := &identity.Author{GitID: "bob", DisplayName: "Bob"}

	t.Run("files_sort_by_path", func(t *testing.T) {
		t.Parallel()

		results := []authorship.FileResult{
			textResult("z/last.go", 1, map[*identity.Author]int{alice: 1}),
			textResult("a/first.go", 1, map[*identity.Author]int{alice: 1}),
			textResult("m/middle.go", 1, map[*identity.Author]int{alice: 1}),
		}

		rep := Summarize(testAnalysis(t, nil), "main", results, nil, Totals{})

		paths := make([]string, 0, len(rep.Files))
		for _, file := range rep.Files {
			paths = append(paths, file.Path)
		}

		assert.Equal(t, []string{"a/first.go", "m/middle.go", "z/last.go"}, paths)
	})

	t.Run("authors_sort_by_lines_then_name", func(t *testing.T) {
		t.Parallel()

		carol := &identity.Author{GitID: "carol", DisplayName: "Carol"}

		results := []authorship.FileResult{
			textResult("one.go", 9, map[*identity.Author]int{alice: 3, bob: 5, carol: 1}),
			textResult("two.go", 5, map[*identity.Author]int{alice: 2, carol: 3}),
		}

		rep := Summarize(testAnalysis(t, nil), "main", results, nil, Totals{})

		names := make([]string, 0, len(rep.Authors))
		for _, author := range rep.Authors {
			names = append(names, author.Name)
		}

		// alice and bob both hold 5 lines; the name breaks the tie.
		assert.Equal(t, []string{"Alice", "Bob", "Carol"}, names)
	})

	t.Run("totals_count_attributed_lines_and_files", func(t *testing.T) {
		t.Parallel()

		results := []authorship.FileResult{
			textResult("one.go", 10, map[*identity.Author]int{alice: 6}),
			textResult("two.go", 4, map[*identity.Author]int{alice: 1, bob: 3}),
		}

		rep := Summarize(testAnalysis(t, nil), "main", results, nil, Totals{FilesDropped: 2, FilesFailed: 1})

		assert.Equal(t, Totals{
			FilesAttributed: 2,
			FilesDropped:    2,
			FilesFailed:     1,
			Lines:           10,
		}, rep.Totals)
	})

	t.Run("author_files_count_distinct_files", func(t *testing.T) {
		t.Parallel()

		results := []authorship.FileResult{
			textResult("one.go", 2, map[*identity.Author]int{alice: 2}),
			textResult("two.go", 3, map[*identity.Author]int{alice: 1, bob: 2}),
		}

		rep := Summarize(testAnalysis(t, nil), "main", results, nil, Totals{})

		byID := make(map[string]AuthorSummary, len(rep.Authors))
		for _, author := range rep.Authors {
			byID[author.GitID] = author
		}

		assert.Equal(t, 2, byID["alice"].Files)
		assert.Equal(t, 3, byID["alice"].Lines)
		assert.Equal(t, 1, byID["bob"].Files)
	})

	t.Run("churn_merges_into_line_authors", func(t *testing.T) {
		t.Parallel()

		results := []authorship.FileResult{
			textResult("one.go", 2, map[*identity.Author]int{alice: 2}),
		}
		churnTotals := map[*identity.Author]*churn.Stats{
			alice: {Commits: 3, Added: 10},
		}

		rep := Summarize(testAnalysis(t, nil), "main", results, churnTotals, Totals{})

		require.Len(t, rep.Authors, 1)
		require.NotNil(t, rep.Authors[0].Churn)
		assert.Equal(t, 3, rep.Authors[0].Churn.Commits)
		assert.Equal(t, 2, rep.Authors[0].Lines)
	})

	t.Run("churn_only_author_appears_with_zero_lines", func(t *testing.T) {
		t.Parallel()

		results := []authorship.FileResult{
			textResult("one.go", 2, map[*identity.Author]int{alice: 2}),
		}
		churnTotals := map[*identity.Author]*churn.Stats{
			bob: {Commits: 1, Removed: 4},
		}

		rep := Summarize(testAnalysis(t, nil), "main", results, churnTotals, Totals{})

		require.Len(t, rep.Authors, 2)

		last := rep.Authors[len(rep.Authors)-1]
		assert.Equal(t, "bob", last.GitID)
		assert.Zero(t, last.Lines)
		require.NotNil(t, last.Churn)
		assert.Equal(t, 1, last.Churn.Commits)
	})

	t.Run("window_echoes_configuration", func(t *testing.T) {
		t.Parallel()

		analysis := testAnalysis(t, func(cfg *repocfg.Config) {
			cfg.Blurb = "quarterly attribution"
		})

		rep := Summarize(analysis, "main", nil, nil, Totals{})

		assert.True(t, rep.Window.Since.Equal(analysis.Since))
		assert.True(t, rep.Window.Until.Equal(analysis.Until))
		assert.Equal(t, "UTC", rep.Window.Timezone)
		assert.Equal(t, "main", rep.Branch)
		assert.Equal(t, "quarterly attribution", rep.Blurb)
		assert.False(t, rep.GeneratedAt.IsZero())
	})

	t.Run("binary_results_carry_zero_weight", func(t *testing.T) {
		t.Parallel()

		results := []authorship.FileResult{
			{
				Path:          "logo.png",
				Group:         "image",
				Kind:          authorship.KindBinary,
				Contributions: map[*identity.Author]int{alice: 0},
			},
		}

		rep := Summarize(testAnalysis(t, nil), "main", results, nil, Totals{})

		require.Len(t, rep.Files, 1)
		assert.Equal(t, string(authorship.KindBinary), rep.Files[0].Kind)
		assert.Equal(t, map[string]int{"alice": 0}, rep.Files[0].Authors)
		assert.Zero(t, rep.Totals.Lines)
	})
}
