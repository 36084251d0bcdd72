package mcp

import (
	"context"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Sumatoshi-tech/pyrefactor/pkg/pyast"
	"github.com/Sumatoshi-tech/pyrefactor/pkg/query"
	"github.com/Sumatoshi-tech/pyrefactor/pkg/recipe"
	"github.com/Sumatoshi-tech/pyrefactor/pkg/refactor"
	"github.com/Sumatoshi-tech/pyrefactor/pkg/unparse"
)

func (s *Server) handleParse(
	ctx context.Context, _ *mcpsdk.CallToolRequest, input ParseInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	mod, printer, err := s.load(ctx, input.Code, input.Mode)
	if err != nil {
		return errorResult(err)
	}

	text, err := printer.Module(mod)
	if err != nil {
		return errorResult(fmt.Errorf("render: %w", err))
	}

	imports := query.Imports(mod)
	lines := make([]string, 0, len(imports))

	for _, info := range imports {
		lines = append(lines, info.String())
	}

	return jsonResult(ParseResult{
		Statements: mod.StatementCount(),
		Functions:  nonNil(mod.FunctionNames()),
		Classes:    nonNil(mod.ClassNames()),
		AllClasses: nonNil(mod.AllClassNames()),
		Imports:    lines,
		Text:       text,
	})
}

func (s *Server) handleQuery(
	ctx context.Context, _ *mcpsdk.CallToolRequest, input QueryInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	mod, _, err := s.load(ctx, input.Code, "")
	if err != nil {
		return errorResult(err)
	}

	switch input.Query {
	case QueryNodes:
		kinds := make([]query.NodeKind, 0, len(input.Kinds))

		for _, name := range input.Kinds {
			kind, kindErr := query.ParseNodeKind(name)
			if kindErr != nil {
				return errorResult(kindErr)
			}

			kinds = append(kinds, kind)
		}

		return jsonResult(nonNil(query.FindNodes(mod, kinds...)))
	case QueryImports:
		return jsonResult(nonNil(query.FindImports(mod, input.Filter)))
	case QueryCalls:
		return jsonResult(nonNil(query.FindFunctionCalls(mod, input.Filter)))
	case QueryTryExcept:
		return jsonResult(nonNil(query.FindTryExceptBlocks(mod, input.Filter)))
	case QueryAssignments:
		return jsonResult(nonNil(query.FindAssignments(mod, input.Filter)))
	default:
		return errorResult(fmt.Errorf("%w: %q", ErrUnknownQuery, input.Query))
	}
}

func (s *Server) handleRefactor(
	ctx context.Context, _ *mcpsdk.CallToolRequest, input RefactorInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	err := validateSteps(input.Steps)
	if err != nil {
		return errorResult(err)
	}

	mod, printer, err := s.load(ctx, input.Code, input.Mode)
	if err != nil {
		return errorResult(err)
	}

	session := refactor.New(mod, refactor.WithPrinter(printer), refactor.WithLogger(s.logger))

	err = s.applier.Apply(session, &recipe.Recipe{Steps: input.Steps})
	if err != nil {
		return errorResult(err)
	}

	result, err := sessionResult("", session)
	if err != nil {
		return errorResult(err)
	}

	return jsonResult(result)
}

// load validates and parses code and resolves the render mode name.
func (s *Server) load(ctx context.Context, code, modeName string) (*pyast.Module, *unparse.Printer, error) {
	err := validateCode(code)
	if err != nil {
		return nil, nil, err
	}

	mode := s.mode

	if modeName != "" {
		mode, err = unparse.ParseMode(modeName)
		if err != nil {
			return nil, nil, err
		}
	}

	mod, err := s.parser.Parse(ctx, []byte(code))
	if err != nil {
		return nil, nil, err
	}

	return mod, unparse.New(mode), nil
}

func sessionResult(id string, session *refactor.Session) (RefactorResult, error) {
	text, err := session.Text()
	if err != nil {
		return RefactorResult{}, fmt.Errorf("render: %w", err)
	}

	return RefactorResult{
		SessionID: id,
		Text:      text,
		Summary:   session.ChangeSummary(),
		Changes:   session.Changes(),
	}, nil
}

// nonNil keeps empty results encoded as [] rather than null.
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}

	return items
}
