package commands

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/pyrefactor/pkg/recipe"
)

const (
	exitCodeFailure           = 1
	exitCodeValidationFailure = 2
)

// ErrNoRecipe is returned when validate has neither a path nor --print-schema.
var ErrNoRecipe = errors.New("validate needs a recipe path or - for stdin")

// ExitError carries a process exit code for main.
type ExitError struct {
	Code int
	Err  error
}

func (ee *ExitError) Error() string {
	return ee.Err.Error()
}

func (ee *ExitError) Unwrap() error {
	return ee.Err
}

// ExitCode maps a command error to the process exit code: 2 for invalid
// recipes, the code of an *ExitError, and 1 otherwise.
func ExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}

	if errors.Is(err, recipe.ErrInvalidRecipe) {
		return exitCodeValidationFailure
	}

	return exitCodeFailure
}

// NewValidateCommand creates the validate subcommand.
func NewValidateCommand() *cobra.Command {
	var (
		colorize    bool
		nocolor     bool
		quiet       bool
		printSchema bool
	)

	cmd := &cobra.Command{
		Use:   "validate [recipe.yaml|-]",
		Short: "Validate a recipe against the recipe schema",
		Long: `Validate a YAML or JSON recipe against the embedded JSON schema and list
its steps. Exits with status 2 when the recipe is invalid.

Examples:
  pyrefactor validate migrate.yaml
  pyrefactor validate - < migrate.yaml
  pyrefactor validate --print-schema`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			setColor(colorize, nocolor)

			if printSchema {
				_, err := cmd.OutOrStdout().Write(recipe.Schema())

				return err
			}

			if len(args) == 0 {
				return ErrNoRecipe
			}

			return runValidate(cmd, args[0], quiet)
		},
	}

	cmd.Flags().BoolVar(&colorize, "color", false, "force colored output")
	cmd.Flags().BoolVar(&nocolor, "no-color", false, "disable colored output")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "print nothing on success")
	cmd.Flags().BoolVar(&printSchema, "print-schema", false, "print the recipe JSON schema and exit")

	return cmd
}

func setColor(colorize, nocolor bool) {
	if nocolor {
		color.NoColor = true //nolint:reassign // intentional override of library global
	} else if colorize {
		color.NoColor = false //nolint:reassign // intentional override of library global
	}
}

func runValidate(cmd *cobra.Command, path string, quiet bool) error {
	data, err := readSource(cmd, path)
	if err != nil {
		return err
	}

	label := displayName(path)
	out := cmd.OutOrStdout()

	rcp, err := recipe.Parse(data)
	if err != nil {
		reportInvalid(out, label, err)

		return &ExitError{Code: exitCodeValidationFailure, Err: fmt.Errorf("%s: %w", label, err)}
	}

	if quiet {
		return nil
	}

	color.New(color.FgGreen).Fprintf(out, "Recipe is valid (%s)\n", label)

	if rcp.Description != "" {
		fmt.Fprintf(out, "  %s\n", rcp.Description)
	}

	for idx, step := range rcp.Steps {
		color.New(color.FgCyan).Fprintf(out, "  %d. %s", idx+1, step.Op)
		fmt.Fprintln(out, describeStep(step))
	}

	return nil
}

func reportInvalid(out io.Writer, label string, err error) {
	color.New(color.FgRed).Fprintf(out, "Recipe validation failed (%s)\n", label)

	var validationErr *recipe.ValidationError
	if !errors.As(err, &validationErr) {
		color.New(color.FgRed).Fprintf(out, "  - %v\n", err)

		return
	}

	fmt.Fprintf(out, "\nErrors:\n")

	for _, problem := range validationErr.Problems {
		color.New(color.FgRed).Fprintf(out, "  - %s\n", problem)
	}

	fmt.Fprintf(out, "\nSupported operations:\n")

	for _, op := range recipe.Ops {
		color.New(color.FgYellow).Fprintf(out, "  - %s\n", op)
	}
}

// describeStep renders the arguments a step uses.
func describeStep(step recipe.Step) string {
	var parts []string

	if step.Old != "" || step.New != "" {
		parts = append(parts, step.Old+" -> "+step.New)
	}

	if step.Module != "" {
		target := step.Module
		if step.Function != "" {
			target += "." + step.Function
		}

		parts = append(parts, target)
	}

	if len(step.Names) > 0 {
		parts = append(parts, "import "+strings.Join(step.Names, ", "))
	}

	for _, mapping := range step.Mappings {
		parts = append(parts, mapping.Old+" -> "+mapping.New)
	}

	if len(step.Hints) > 0 {
		parts = append(parts, fmt.Sprintf("%d hints", len(step.Hints)))
	}

	if step.Optional {
		parts = append(parts, "optional")
	}

	if len(parts) == 0 {
		return ""
	}

	return " (" + strings.Join(parts, "; ") + ")"
}
