// Package main provides the entry point for the codetally CLI tool.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/codetally/cmd/codetally/commands"
	"github.com/Sumatoshi-tech/codetally/pkg/version"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "codetally",
		Short: "Codetally - line authorship attribution for git repositories",
		Long: `Codetally attributes every line of a repository to its author and
aggregates the results into per-author contribution reports.

Commands:
  analyze   Run the attribution engine and write a report
  report    Inspect stored reports
  config    Check repository configuration files
  mcp       Serve attribution tools over the Model Context Protocol
  lsp       Serve line authorship over the Language Server Protocol`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Add commands.
	rootCmd.AddCommand(commands.NewAnalyzeCommand())
	rootCmd.AddCommand(commands.NewReportCommand())
	rootCmd.AddCommand(commands.NewConfigCommand())
	rootCmd.AddCommand(commands.NewMCPCommand())
	rootCmd.AddCommand(commands.NewLSPCommand())
	rootCmd.AddCommand(versionCmd())

	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Fprintln(os.Stdout, version.String())
		},
	}
}
