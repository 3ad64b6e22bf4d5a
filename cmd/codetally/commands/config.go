package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/codetally/internal/repocfg"
)

// ErrConfigInvalid indicates a repository config that violates the schema.
var ErrConfigInvalid = errors.New("configuration is invalid")

// ConfigValidateCommand holds configuration for config validate.
type ConfigValidateCommand struct {
	schemaPath string
	colorize   bool
	noColor    bool
}

// NewConfigCommand creates the config command group.
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Check repository configuration files",
	}

	cmd.AddCommand(newConfigValidateCommand())

	return cmd
}

func newConfigValidateCommand() *cobra.Command {
	cv := &ConfigValidateCommand{}

	cmd := &cobra.Command{
		Use:   "validate FILE",
		Short: "Validate a repository config against the schema",
		Long: `Validate checks a ` + repocfg.FileName + ` document against the bundled
JSON schema and reports every violation with its field path.`,
		Args: cobra.ExactArgs(1),
		RunE: cv.run,
	}

	cmd.Flags().StringVar(&cv.schemaPath, "schema", "", "Path to an alternative JSON schema")
	cmd.Flags().BoolVar(&cv.colorize, "color", false, "Force colored output")
	cmd.Flags().BoolVar(&cv.noColor, "no-color", false, "Disable colored output")

	return cmd
}

func (cv *ConfigValidateCommand) run(cmd *cobra.Command, args []string) error {
	if cv.noColor {
		color.NoColor = true //nolint:reassign // intentional override of library global
	} else if cv.colorize {
		color.NoColor = false //nolint:reassign // intentional override of library global
	}

	path := args[0]

	doc, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	var schema []byte

	if cv.schemaPath != "" {
		schema, err = os.ReadFile(cv.schemaPath)
		if err != nil {
			return fmt.Errorf("read schema %s: %w", cv.schemaPath, err)
		}
	}

	problems, err := repocfg.ValidateYAML(doc, schema)
	if err != nil {
		return fmt.Errorf("validate %s: %w", path, err)
	}

	out := cmd.OutOrStdout()

	if len(problems) == 0 {
		color.New(color.FgGreen).Fprintf(out, "%s is valid\n", path)

		return nil
	}

	color.New(color.FgRed).Fprintf(out, "%s is invalid\n", path)
	fmt.Fprintf(out, "\nProblems:\n")

	for _, problem := range problems {
		color.New(color.FgRed).Fprintf(out, "  - %s\n", problem)
	}

	return fmt.Errorf("%w: %s", ErrConfigInvalid, path)
}
