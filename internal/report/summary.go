package report

import (
	"sort"
	"time"

	"github.com/Sumatoshi-tech/codetally/internal/authorship"
	"github.com/Sumatoshi-tech/codetally/internal/churn"
	"github.com/Sumatoshi-tech/codetally/internal/identity"
	"github.com/Sumatoshi-tech/codetally/internal/repocfg"
)

// Window is the analysis date range echoed into the report.
type Window struct {
	Since    time.Time `json:"since"    yaml:"since"`
	Until    time.Time `json:"until"    yaml:"until"`
	Timezone string    `json:"timezone" yaml:"timezone"`
}

// FileSummary is one analyzed file's attribution, authors keyed by git id.
type FileSummary struct {
	Path         string         `json:"path"                    yaml:"path"`
	Group        string         `json:"group"                   yaml:"group"`
	Kind         string         `json:"kind"                    yaml:"kind"`
	Lines        int            `json:"lines"                   yaml:"lines"`
	ExceedsLimit bool           `json:"exceeds_limit,omitempty" yaml:"exceeds_limit,omitempty"`
	Authors      map[string]int `json:"authors"                 yaml:"authors"`
}

// AuthorSummary is one author's totals across the repository.
type AuthorSummary struct {
	GitID string       `json:"git_id"          yaml:"git_id"`
	Name  string       `json:"name"            yaml:"name"`
	Lines int          `json:"lines"           yaml:"lines"`
	Files int          `json:"files"           yaml:"files"`
	Churn *churn.Stats `json:"churn,omitempty" yaml:"churn,omitempty"`
}

// Totals summarizes run outcomes.
type Totals struct {
	FilesAttributed int `json:"files_attributed" yaml:"files_attributed"`
	FilesDropped    int `json:"files_dropped"    yaml:"files_dropped"`
	FilesFailed     int `json:"files_failed"     yaml:"files_failed"`
	Lines           int `json:"lines"            yaml:"lines"`
}

// Report is the full attribution document for one repository window.
type Report struct {
	GeneratedAt time.Time       `json:"generated_at"     yaml:"generated_at"`
	Repo        string          `json:"repo"             yaml:"repo"`
	Branch      string          `json:"branch,omitempty" yaml:"branch,omitempty"`
	Blurb       string          `json:"blurb,omitempty"  yaml:"blurb,omitempty"`
	Window      Window          `json:"window"           yaml:"window"`
	Totals      Totals          `json:"totals"           yaml:"totals"`
	Files       []FileSummary   `json:"files"            yaml:"files"`
	Authors     []AuthorSummary `json:"authors"          yaml:"authors"`
}

// Summarize folds per-file results and optional churn totals into the final
// report document. The engine guarantees no result order, so this is where
// determinism is imposed: files sort by path, authors by line count
// descending with name as tie break.
func Summarize(
	cfg *repocfg.Analysis,
	branch string,
	results []authorship.FileResult,
	churnTotals map[*identity.Author]*churn.Stats,
	totals Totals,
) *Report {
	files := make([]FileSummary, 0, len(results))
	byAuthor := make(map[*identity.Author]*AuthorSummary)

	lines := 0

	for _, res := range results {
		summary := FileSummary{
			Path:         res.Path,
			Group:        res.Group,
			Kind:         string(res.Kind),
			Lines:        res.LineCount,
			ExceedsLimit: res.ExceedsLimit,
			Authors:      make(map[string]int, len(res.Contributions)),
		}

		for author, count := range res.Contributions {
			summary.Authors[author.GitID] = count
			lines += count

			entry := byAuthor[author]
			if entry == nil {
				entry = &AuthorSummary{GitID: author.GitID, Name: author.Name()}
				byAuthor[author] = entry
			}

			entry.Lines += count
			entry.Files++
		}

		files = append(files, summary)
	}

	for author, stats := range churnTotals {
		entry := byAuthor[author]
		if entry == nil {
			entry = &AuthorSummary{GitID: author.GitID, Name: author.Name()}
			byAuthor[author] = entry
		}

		entry.Churn = stats
	}

	authors := make([]AuthorSummary, 0, len(byAuthor))
	for _, entry := range byAuthor {
		authors = append(authors, *entry)
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Path < files[j].Path
	})

	sort.Slice(authors, func(i, j int) bool {
		if authors[i].Lines != authors[j].Lines {
			return authors[i].Lines > authors[j].Lines
		}

		if authors[i].Name != authors[j].Name {
			return authors[i].Name < authors[j].Name
		}

		return authors[i].GitID < authors[j].GitID
	})

	totals.FilesAttributed = len(files)
	totals.Lines = lines

	return &Report{
		GeneratedAt: time.Now().In(cfg.Zone),
		Repo:        cfg.Root,
		Branch:      branch,
		Blurb:       cfg.Blurb,
		Window: Window{
			Since:    cfg.Since,
			Until:    cfg.Until,
			Timezone: cfg.Zone.String(),
		},
		Totals:  totals,
		Files:   files,
		Authors: authors,
	}
}
