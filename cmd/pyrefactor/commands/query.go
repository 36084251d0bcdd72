package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/pyrefactor/pkg/observability"
	"github.com/Sumatoshi-tech/pyrefactor/pkg/pyast"
	"github.com/Sumatoshi-tech/pyrefactor/pkg/query"
)

const (
	opQuery       = "query"
	queryArgCount = 2
)

// Query names accepted as the first argument.
const (
	queryNodes   = "nodes"
	queryImports = "imports"
	queryCalls   = "calls"
	queryTry     = "try"
	queryAssign  = "assign"
)

var queryNames = []string{queryNodes, queryImports, queryCalls, queryTry, queryAssign}

// ErrUnknownQuery is returned for a query name outside queryNames.
var ErrUnknownQuery = errors.New("unknown query")

// ErrFilterRequired is returned when the calls query has no --filter.
var ErrFilterRequired = errors.New("the calls query needs --filter with a function name")

// queryResult is a query's rows in both output shapes.
type queryResult struct {
	header  table.Row
	rows    []table.Row
	records any
}

// NewQueryCommand creates the query subcommand.
func NewQueryCommand() *cobra.Command {
	var (
		filter  string
		kinds   []string
		asJSON  bool
		noTitle bool
	)

	cmd := &cobra.Command{
		Use:   "query <nodes|imports|calls|try|assign> <file|->",
		Short: "Run a structural query over a module",
		Long: `Run a read-only structural query and print the matches.

Queries:
  nodes    every statement, optionally restricted with --kind
  imports  import statements whose module or alias contains --filter
  calls    calls to the function or method named by --filter
  try      try statements, optionally only those catching --filter
  assign   identifier assignments whose target contains --filter

Examples:
  pyrefactor query imports app.py
  pyrefactor query calls --filter get_distribution app.py
  pyrefactor query nodes --kind function_def --kind class_def --json app.py`,
		Args: cobra.ExactArgs(queryArgCount),
		ValidArgsFunction: func(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
			if len(args) == 0 {
				return queryNames, cobra.ShellCompDirectiveNoFileComp
			}

			return nil, cobra.ShellCompDirectiveDefault
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newEnvironment(cmd, observability.ModeCLI, false)
			if err != nil {
				return err
			}
			defer env.close()

			return env.metrics.Instrument(cmd.Context(), env.providers.Tracer, opQuery, func(ctx context.Context) (int, error) {
				src, loadErr := env.load(ctx, cmd, args[1])
				if loadErr != nil {
					return 0, loadErr
				}

				result, runErr := runQuery(src.mod, args[0], filter, kinds)
				if runErr != nil {
					return 0, runErr
				}

				if asJSON {
					return 0, writeJSON(cmd.OutOrStdout(), result.records)
				}

				return 0, result.writeTable(cmd.OutOrStdout(), !noTitle)
			})
		},
	}

	cmd.Flags().StringVarP(&filter, "filter", "f", "", "name or substring to match")
	cmd.Flags().StringSliceVarP(&kinds, "kind", "k", nil, "node kinds for the nodes query (repeatable)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print matches as JSON")
	cmd.Flags().BoolVar(&noTitle, "no-header", false, "omit the table header")

	return cmd
}

func runQuery(mod *pyast.Module, name, filter string, kindNames []string) (*queryResult, error) {
	switch strings.ToLower(name) {
	case queryNodes:
		kinds := make([]query.NodeKind, 0, len(kindNames))

		for _, kindName := range kindNames {
			kind, err := query.ParseNodeKind(kindName)
			if err != nil {
				return nil, err
			}

			kinds = append(kinds, kind)
		}

		return nodeRows(query.FindNodes(mod, kinds...)), nil
	case queryImports:
		return importRows(query.FindImports(mod, filter)), nil
	case queryCalls:
		if filter == "" {
			return nil, ErrFilterRequired
		}

		return callRows(query.FindFunctionCalls(mod, filter)), nil
	case queryTry:
		return tryRows(query.FindTryExceptBlocks(mod, filter)), nil
	case queryAssign:
		return assignRows(query.FindAssignments(mod, filter)), nil
	default:
		return nil, fmt.Errorf("%w: %q (want one of %s)", ErrUnknownQuery, name, strings.Join(queryNames, ", "))
	}
}

func nodeRows(refs []query.NodeRef) *queryResult {
	result := &queryResult{header: table.Row{"Ref", "Kind", "Line"}, records: nonNil(refs)}

	for _, ref := range refs {
		result.rows = append(result.rows, table.Row{ref.String(), string(ref.Kind), line(ref.Location)})
	}

	return result
}

func importRows(infos []query.ImportInfo) *queryResult {
	result := &queryResult{header: table.Row{"Ref", "Statement", "Line"}, records: nonNil(infos)}

	for _, info := range infos {
		result.rows = append(result.rows, table.Row{info.Ref.String(), info.String(), line(info.Location)})
	}

	return result
}

func callRows(records []query.CallRecord) *queryResult {
	result := &queryResult{header: table.Row{"Ref", "Call", "Args", "Line"}, records: nonNil(records)}

	for _, record := range records {
		name := record.Name + "()"
		if record.Attribute {
			name = "." + name
		}

		result.rows = append(result.rows, table.Row{record.Ref.String(), name, record.ArgCount, line(record.Location)})
	}

	return result
}

func tryRows(records []query.TryExceptRecord) *queryResult {
	result := &queryResult{
		header:  table.Row{"Ref", "Handles", "Handlers", "Else", "Finally", "Line"},
		records: nonNil(records),
	}

	for _, record := range records {
		result.rows = append(result.rows, table.Row{
			record.Ref.String(), strings.Join(record.ExceptionTypes, ", "), record.HandlerCount,
			record.HasElse, record.HasFinally, line(record.Location),
		})
	}

	return result
}

func assignRows(records []query.AssignmentRecord) *queryResult {
	result := &queryResult{header: table.Row{"Ref", "Target", "Line"}, records: nonNil(records)}

	for _, record := range records {
		result.rows = append(result.rows, table.Row{record.Ref.String(), record.Target, line(record.Location)})
	}

	return result
}

func (qr *queryResult) writeTable(w io.Writer, header bool) error {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.DrawBorder = false
	tbl.Style().Options.SeparateColumns = false

	if header {
		tbl.AppendHeader(qr.header)
	}

	tbl.AppendRows(qr.rows)
	tbl.AppendFooter(table.Row{fmt.Sprintf("%d matches", len(qr.rows))})

	_, err := fmt.Fprintln(w, tbl.Render())
	if err != nil {
		return fmt.Errorf("write table: %w", err)
	}

	return nil
}

func writeJSON(w io.Writer, value any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	err := enc.Encode(value)
	if err != nil {
		return fmt.Errorf("encode json: %w", err)
	}

	return nil
}

// line renders a 1-based line, or "-" for synthesized nodes.
func line(loc *pyast.Location) string {
	if loc == nil {
		return "-"
	}

	return fmt.Sprint(loc.Line)
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}

	return items
}
