// Package main provides the entry point for the pyrefactor CLI tool.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/pyrefactor/cmd/pyrefactor/commands"
	"github.com/Sumatoshi-tech/pyrefactor/pkg/version"
)

func main() {
	version.InitBinaryVersion()

	rootCmd := newRootCommand()

	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(commands.ExitCode(err))
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "pyrefactor",
		Short: "Parse, query and refactor Python source",
		Long: `pyrefactor parses Python modules into a syntax tree, answers structural
queries and applies undoable refactorings before printing the result.

Commands:
  render    Parse and print a module
  query     List nodes, imports, calls, try blocks or assignments
  refactor  Apply operations selected by flags
  apply     Apply a recipe to one file
  batch     Apply a recipe to every Python file under a directory
  validate  Check a recipe against its schema
  mcp       Serve tools over the Model Context Protocol
  lsp       Serve the Language Server Protocol`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	commands.RegisterGlobalFlags(rootCmd)

	rootCmd.AddCommand(
		commands.NewRenderCommand(),
		commands.NewQueryCommand(),
		commands.NewRefactorCommand(),
		commands.NewApplyCommand(),
		commands.NewBatchCommand(),
		commands.NewValidateCommand(),
		commands.NewMCPCommand(),
		commands.NewLSPCommand(),
		commands.NewVersionCommand(),
	)

	return rootCmd
}
