package commands

import (
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/pyrefactor/pkg/observability"
	"github.com/Sumatoshi-tech/pyrefactor/pkg/recipe"
)

const (
	opApply       = "apply"
	applyArgCount = 2
)

// NewApplyCommand creates the apply subcommand.
func NewApplyCommand() *cobra.Command {
	var out outputOptions

	cmd := &cobra.Command{
		Use:   "apply <recipe.yaml> <file|->",
		Short: "Apply a recipe to one module",
		Long: `Apply every step of a YAML or JSON recipe to one module, in order.

A failing step stops the run unless it is marked optional and its target
is missing. Check recipes with "pyrefactor validate".

Example recipe:
  version: 1
  steps:
    - op: modernize_imports
    - op: rename_function
      old: get_config
      new: load_config
      optional: true
    - op: sort_imports`,
		Args: cobra.ExactArgs(applyArgCount),
		RunE: func(cmd *cobra.Command, args []string) error {
			rcp, err := recipe.Load(args[0])
			if err != nil {
				return err
			}

			env, err := newEnvironment(cmd, observability.ModeCLI, false)
			if err != nil {
				return err
			}
			defer env.close()

			return env.applyRecipe(cmd, opApply, args[1], rcp, out)
		},
	}

	registerOutputFlags(cmd, &out)

	return cmd
}
