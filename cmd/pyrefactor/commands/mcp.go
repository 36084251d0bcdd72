package commands

import (
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/pyrefactor/pkg/mcp"
	"github.com/Sumatoshi-tech/pyrefactor/pkg/observability"
)

// NewMCPCommand creates the MCP server command.
func NewMCPCommand() *cobra.Command {
	var maxSessions int

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server for AI agent integration",
		Long: `Start a Model Context Protocol (MCP) server on stdio transport.

The MCP server exposes pyrefactor as tools that AI agents can discover and
invoke:
  - pyrefactor_parse: Parse a module and summarize its definitions and imports
  - pyrefactor_query: Run a structural query
  - pyrefactor_refactor: Apply a list of steps and return the rewritten module
  - pyrefactor_session_open/apply/undo/close: Multi-step sessions with undo

Logs are JSON on stderr; use -v for debug logging and full trace sampling.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := newEnvironment(cmd, observability.ModeMCP, true)
			if err != nil {
				return err
			}
			defer env.close()

			srv := mcp.NewServer(mcp.ServerDeps{
				Logger:      env.logger,
				Metrics:     env.metrics,
				Tracer:      env.providers.Tracer,
				Applier:     env.applier,
				Mode:        env.mode,
				MaxSessions: maxSessions,
			})

			return srv.Run(cmd.Context())
		},
	}

	cmd.Flags().IntVar(&maxSessions, "max-sessions", mcp.DefaultMaxSessions, "maximum concurrently open refactoring sessions")
	cmd.Flags().String(modeFlag, "", "printer mode: lenient, strict or verbatim (overrides config)")

	return cmd
}
