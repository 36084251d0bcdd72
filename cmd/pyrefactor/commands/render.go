package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/pyrefactor/pkg/observability"
	"github.com/Sumatoshi-tech/pyrefactor/pkg/unparse"
)

const opRender = "render"

// NewRenderCommand creates the render subcommand.
func NewRenderCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render <file|->",
		Short: "Parse a module and print it back",
		Long: `Parse a Python module and print it with the configured printer.

Modes:
  lenient   normalize supported statements, keep others as source text
  strict    fail on any statement the printer cannot normalize
  verbatim  keep unsupported statements exactly as written`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newEnvironment(cmd, observability.ModeCLI, false)
			if err != nil {
				return err
			}
			defer env.close()

			return env.render(cmd, args[0])
		},
	}

	cmd.Flags().String(modeFlag, "", "printer mode: lenient, strict or verbatim (overrides config)")

	return cmd
}

func (env *environment) render(cmd *cobra.Command, path string) error {
	return env.metrics.Instrument(cmd.Context(), env.providers.Tracer, opRender, func(ctx context.Context) (int, error) {
		src, err := env.load(ctx, cmd, path)
		if err != nil {
			return 0, err
		}

		text, err := unparse.New(env.mode).Module(src.mod)
		if err != nil {
			return 0, fmt.Errorf("render %s: %w", displayName(path), err)
		}

		_, err = fmt.Fprintln(cmd.OutOrStdout(), text)

		return 0, err
	})
}
