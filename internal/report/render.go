package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/codetally/internal/repocfg"
)

// Format selects the report encoding.
type Format string

// Supported report encodings.
const (
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
	FormatTable Format = "table"
)

// ErrUnknownFormat is returned for unrecognized format names.
var ErrUnknownFormat = errors.New("unknown report format")

// ParseFormat maps a CLI format name to a Format. Empty means table.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(name) {
	case "", string(FormatTable):
		return FormatTable, nil
	case string(FormatJSON):
		return FormatJSON, nil
	case string(FormatYAML), "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, name)
	}
}

// Render writes the report to w in the given format.
func Render(w io.Writer, rep *Report, format Format) error {
	switch format {
	case FormatJSON:
		return renderJSON(w, rep)
	case FormatYAML:
		return renderYAML(w, rep)
	case FormatTable:
		return renderTable(w, rep)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

func renderJSON(w io.Writer, rep *Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	err := enc.Encode(rep)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	return nil
}

func renderYAML(w io.Writer, rep *Report) error {
	enc := yaml.NewEncoder(w)

	err := enc.Encode(rep)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	err = enc.Close()
	if err != nil {
		return fmt.Errorf("close encoder: %w", err)
	}

	return nil
}

func renderTable(w io.Writer, rep *Report) error {
	fmt.Fprintf(w, "%s", headerBlock(rep))

	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(authorHeader(rep))

	for _, author := range rep.Authors {
		tbl.AppendRow(authorRow(rep, author))
	}

	tbl.AppendFooter(table.Row{
		"Total",
		humanize.Comma(int64(rep.Totals.Lines)),
		fmt.Sprintf("%d files", rep.Totals.FilesAttributed),
	})

	_, err := fmt.Fprintln(w, tbl.Render())
	if err != nil {
		return fmt.Errorf("write table: %w", err)
	}

	return nil
}

func headerBlock(rep *Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Repository: %s", rep.Repo)

	if rep.Branch != "" {
		fmt.Fprintf(&b, " (%s)", rep.Branch)
	}

	b.WriteString("\n")

	if rep.Blurb != "" {
		fmt.Fprintf(&b, "%s\n", rep.Blurb)
	}

	fmt.Fprintf(&b, "Window:     %s .. %s (%s)\n",
		rep.Window.Since.Format(repocfg.DateFormat),
		rep.Window.Until.Format(repocfg.DateFormat),
		rep.Window.Timezone)
	fmt.Fprintf(&b, "Generated:  %s\n\n", humanize.Time(rep.GeneratedAt))

	return b.String()
}

func withChurn(rep *Report) bool {
	for _, author := range rep.Authors {
		if author.Churn != nil {
			return true
		}
	}

	return false
}

func authorHeader(rep *Report) table.Row {
	header := table.Row{"Author", "Lines", "Files"}
	if withChurn(rep) {
		header = append(header, "Commits", "Added", "Removed", "Changed")
	}

	return header
}

func authorRow(rep *Report, author AuthorSummary) table.Row {
	row := table.Row{
		author.Name,
		humanize.Comma(int64(author.Lines)),
		author.Files,
	}

	if !withChurn(rep) {
		return row
	}

	if author.Churn == nil {
		return append(row, 0, 0, 0, 0)
	}

	return append(row,
		author.Churn.Commits,
		humanize.Comma(int64(author.Churn.Added)),
		humanize.Comma(int64(author.Churn.Removed)),
		humanize.Comma(int64(author.Churn.Changed)))
}
