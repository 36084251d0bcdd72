package commands

import (
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/pyrefactor/pkg/lsp"
	"github.com/Sumatoshi-tech/pyrefactor/pkg/observability"
)

// NewLSPCommand creates the language server command.
func NewLSPCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lsp",
		Short: "Start Language Server Protocol server for Python files",
		Long: `Start an LSP server on stdio for editor integration.

Features:
  - Diagnostics for syntax errors and deprecated imports
  - Whole-document formatting through the printer
  - Document symbols and hover for functions and classes
  - Code actions for import cleanup and modernization`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := newEnvironment(cmd, observability.ModeLSP, false)
			if err != nil {
				return err
			}
			defer env.close()

			srv := lsp.NewServer(lsp.Options{
				Logger:  env.logger,
				Mode:    env.mode,
				Applier: env.applier,
			})

			return srv.Run()
		},
	}

	cmd.Flags().String(modeFlag, "", "printer mode for formatting: lenient, strict or verbatim (overrides config)")

	return cmd
}
