package commands

import (
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/codetally/internal/report"
)

// reportLoader reads a stored report from disk.
type reportLoader func(path string) (*report.Report, error)

// ReportShowCommand holds configuration and dependencies for report show.
type ReportShowCommand struct {
	format string

	loadFn reportLoader
}

// NewReportCommand creates the report command group.
func NewReportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Inspect stored attribution reports",
	}

	cmd.AddCommand(newReportShowCommandWithDeps(report.Load))

	return cmd
}

func newReportShowCommandWithDeps(loadFn reportLoader) *cobra.Command {
	rs := &ReportShowCommand{loadFn: loadFn}

	cmd := &cobra.Command{
		Use:   "show FILE",
		Short: "Render a stored report",
		Long: `Show renders a report written by analyze. Plain JSON reports and
lz4-compressed archives (` + report.ArchiveExt + `) are both accepted.`,
		Args: cobra.ExactArgs(1),
		RunE: rs.run,
	}

	cmd.Flags().StringVar(&rs.format, "format", string(report.FormatTable), "Output format: json, yaml, table")

	return cmd
}

func (rs *ReportShowCommand) run(cmd *cobra.Command, args []string) error {
	format, err := report.ParseFormat(rs.format)
	if err != nil {
		return err
	}

	rep, err := rs.loadFn(args[0])
	if err != nil {
		return err
	}

	return report.Render(cmd.OutOrStdout(), rep, format)
}
