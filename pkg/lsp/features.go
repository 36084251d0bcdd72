package lsp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/Sumatoshi-tech/pyrefactor/pkg/pyast"
	"github.com/Sumatoshi-tech/pyrefactor/pkg/pyparse"
	"github.com/Sumatoshi-tech/pyrefactor/pkg/query"
	"github.com/Sumatoshi-tech/pyrefactor/pkg/recipe"
	"github.com/Sumatoshi-tech/pyrefactor/pkg/refactor"
)

const diagnosticSource = "pyrefactor"

// pkgResourcesModule is flagged with a hint; the version lookup action
// replaces it.
const pkgResourcesModule = "pkg_resources"

type action struct {
	title string
	op    recipe.Op
	kind  protocol.CodeActionKind
}

var codeActions = []action{
	{"Sort imports", recipe.OpSortImports, protocol.CodeActionKindSourceOrganizeImports},
	{"Remove unused imports", recipe.OpRemoveUnusedImports, protocol.CodeActionKindSourceOrganizeImports},
	{"Modernize deprecated imports", recipe.OpModernizeImports, protocol.CodeActionKindRefactorRewrite},
	{"Replace pkg_resources version lookups", recipe.OpModernizePkgResources, protocol.CodeActionKindRefactorRewrite},
	{"Convert % formatting to str.format", recipe.OpModernizeStringFormatting, protocol.CodeActionKindRefactorRewrite},
}

// diagnose reports the first syntax error, or hints for legacy imports
// when the document parses.
func (srv *Server) diagnose(ctx context.Context, text string) []protocol.Diagnostic {
	diagnostics := []protocol.Diagnostic{}

	mod, err := srv.parser.Parse(ctx, []byte(text))
	if err != nil {
		var syntaxErr *pyparse.SyntaxError
		if !errors.As(err, &syntaxErr) {
			srv.logger.Warn("lsp parse failed", "error", err)

			return diagnostics
		}

		return append(diagnostics, newDiagnostic(
			lineRange(text, syntaxErr.Line-1, syntaxErr.Column-1),
			protocol.DiagnosticSeverityError,
			syntaxErr.Message,
		))
	}

	legacy := make(map[string]string, len(refactor.LegacyImports))
	for _, mapping := range refactor.LegacyImports {
		legacy[mapping.Old] = mapping.New
	}

	seen := make(map[pyast.Location]bool)

	for _, info := range query.FindImports(mod, "") {
		loc := info.Location
		if loc == nil || seen[*loc] {
			continue
		}

		path := info.Path()
		seen[*loc] = legacy[path] != "" || path == pkgResourcesModule

		switch {
		case legacy[path] != "":
			diagnostics = append(diagnostics, newDiagnostic(
				lineRange(text, loc.Line-1, loc.Column-1),
				protocol.DiagnosticSeverityHint,
				fmt.Sprintf("%s is deprecated; use %s", path, legacy[path]),
			))
		case path == pkgResourcesModule:
			diagnostics = append(diagnostics, newDiagnostic(
				lineRange(text, loc.Line-1, loc.Column-1),
				protocol.DiagnosticSeverityHint,
				"pkg_resources is deprecated; use importlib.metadata",
			))
		}
	}

	return diagnostics
}

func newDiagnostic(rng protocol.Range, severity protocol.DiagnosticSeverity, message string) protocol.Diagnostic {
	source := diagnosticSource

	return protocol.Diagnostic{
		Range:    rng,
		Severity: &severity,
		Source:   &source,
		Message:  message,
	}
}

// lineRange spans from a 0-based line and column to the end of that line.
func lineRange(text string, line, column int) protocol.Range {
	lines := splitLines(text)
	line = max(0, min(line, len(lines)-1))
	column = max(0, min(column, len(lines[line])))

	return protocol.Range{
		Start: protocol.Position{Line: protocol.UInteger(line), Character: protocol.UInteger(column)},
		End:   protocol.Position{Line: protocol.UInteger(line), Character: protocol.UInteger(len(lines[line]))},
	}
}

func (srv *Server) formatting(_ *glsp.Context, params *protocol.DocumentFormattingParams) ([]protocol.TextEdit, error) {
	text, ok := srv.store.Get(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}

	mod, err := srv.parser.Parse(context.Background(), []byte(text))
	if err != nil {
		// Diagnostics already report the syntax error.
		return nil, nil
	}

	formatted, err := srv.printer.Module(mod)
	if err != nil {
		return nil, fmt.Errorf("format %s: %w", params.TextDocument.URI, err)
	}

	formatted = withTrailingNewline(formatted)
	if formatted == text {
		return []protocol.TextEdit{}, nil
	}

	return []protocol.TextEdit{replaceAll(text, formatted)}, nil
}

func withTrailingNewline(text string) string {
	if text == "" || strings.HasSuffix(text, "\n") {
		return text
	}

	return text + "\n"
}

func (srv *Server) documentSymbol(_ *glsp.Context, params *protocol.DocumentSymbolParams) (any, error) {
	text, ok := srv.store.Get(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}

	mod, err := srv.parser.Parse(context.Background(), []byte(text))
	if err != nil {
		return []protocol.DocumentSymbol{}, nil
	}

	lines := splitLines(text)

	return symbols(mod.Body, lines, len(lines)-1, false), nil
}

// symbols lists function and class definitions in body. A definition
// spans up to the line before the next statement of the same body, or
// to end when it is the last one; trailing blank lines are trimmed.
func symbols(body []pyast.Stmt, lines []string, end int, inClass bool) []protocol.DocumentSymbol {
	out := []protocol.DocumentSymbol{}

	for idx, stmt := range body {
		loc := stmt.Pos()
		if loc == nil {
			continue
		}

		var (
			name     string
			kind     protocol.SymbolKind
			detail   string
			children []pyast.Stmt
			isClass  bool
		)

		switch def := stmt.(type) {
		case *pyast.FunctionDef:
			name, kind = def.Name, protocol.SymbolKindFunction
			if inClass {
				kind = protocol.SymbolKindMethod
			}

			detail = signature(def)
			children = def.Body
		case *pyast.ClassDef:
			name, kind, isClass = def.Name, protocol.SymbolKindClass, true
			detail = "class " + def.Name
			children = def.Body
		default:
			continue
		}

		last := end
		if next := nextLocated(body[idx+1:]); next != nil {
			last = next.Line - 2
		}

		start := loc.Line - 1
		last = trimBlank(lines, start, last)
		selection := nameRange(lines, start, name)

		symbol := protocol.DocumentSymbol{
			Name:   name,
			Detail: &detail,
			Kind:   kind,
			Range: protocol.Range{
				Start: protocol.Position{Line: protocol.UInteger(start), Character: 0},
				End:   protocol.Position{Line: protocol.UInteger(last), Character: protocol.UInteger(len(lines[last]))},
			},
			SelectionRange: selection,
			Children:       symbols(children, lines, last, isClass),
		}

		out = append(out, symbol)
	}

	return out
}

func nextLocated(body []pyast.Stmt) *pyast.Location {
	for _, stmt := range body {
		if loc := stmt.Pos(); loc != nil {
			return loc
		}
	}

	return nil
}

func trimBlank(lines []string, start, last int) int {
	last = min(last, len(lines)-1)

	for last > start && strings.TrimSpace(lines[last]) == "" {
		last--
	}

	return max(last, start)
}

// nameRange locates name on the definition line, falling back to the
// line start.
func nameRange(lines []string, line int, name string) protocol.Range {
	col := 0

	if line < len(lines) {
		text := lines[line]
		for _, keyword := range []string{"def ", "class "} {
			if at := strings.Index(text, keyword+name); at >= 0 {
				col = at + len(keyword)

				break
			}
		}
	}

	return protocol.Range{
		Start: protocol.Position{Line: protocol.UInteger(line), Character: protocol.UInteger(col)},
		End:   protocol.Position{Line: protocol.UInteger(line), Character: protocol.UInteger(col + len(name))},
	}
}

func signature(def *pyast.FunctionDef) string {
	prefix := "def "
	if def.Async {
		prefix = "async def "
	}

	return prefix + def.Name + "(" + strings.Join(def.Params, ", ") + ")"
}

func (srv *Server) hover(_ *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	uri := params.TextDocument.URI
	pos := params.Position

	text, ok := srv.store.Get(uri)
	if !ok {
		return nil, nil // LSP protocol expects nil hover when no document found.
	}

	word := extractWordAtPosition(text, int(pos.Line), int(pos.Character))
	if word == "" {
		return nil, nil
	}

	mod, err := srv.parser.Parse(context.Background(), []byte(text))
	if err != nil {
		return nil, nil
	}

	doc := definitionDoc(mod, word)
	if doc == "" {
		return nil, nil // LSP protocol expects nil hover when no docs available.
	}

	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: "```python\n" + doc + "\n```",
		},
	}, nil
}

// definitionDoc returns the signature of the first function or class named
// word, searching depth-first.
func definitionDoc(mod *pyast.Module, word string) string {
	var doc string

	query.Walk(mod, func(_ query.NodeRef, stmt pyast.Stmt) bool {
		if doc != "" {
			return false
		}

		switch def := stmt.(type) {
		case *pyast.FunctionDef:
			if def.Name == word {
				doc = signature(def)
			}
		case *pyast.ClassDef:
			if def.Name == word {
				doc = "class " + def.Name
			}
		}

		return doc == ""
	})

	return doc
}

func (srv *Server) codeAction(_ *glsp.Context, params *protocol.CodeActionParams) (any, error) {
	uri := params.TextDocument.URI

	text, ok := srv.store.Get(uri)
	if !ok {
		return nil, nil
	}

	mod, err := srv.parser.Parse(context.Background(), []byte(text))
	if err != nil {
		return []protocol.CodeAction{}, nil
	}

	out := []protocol.CodeAction{}

	for _, act := range codeActions {
		if !wanted(params.Context.Only, act.kind) {
			continue
		}

		session := refactor.New(mod.Clone(), refactor.WithPrinter(srv.printer), refactor.WithLogger(srv.logger))

		err = srv.applier.ApplyStep(session, recipe.Step{Op: act.op})
		if err != nil || len(session.Changes()) == 0 {
			continue
		}

		rewritten, textErr := session.Text()
		if textErr != nil {
			srv.logger.Debug("lsp code action skipped", "op", string(act.op), "error", textErr)

			continue
		}

		kind := act.kind

		out = append(out, protocol.CodeAction{
			Title: act.title,
			Kind:  &kind,
			Edit: &protocol.WorkspaceEdit{
				Changes: map[protocol.DocumentUri][]protocol.TextEdit{
					uri: {replaceAll(text, withTrailingNewline(rewritten))},
				},
			},
		})
	}

	return out, nil
}

// wanted reports whether kind matches the client's filter. An empty filter
// accepts everything; "source" accepts "source.organizeImports".
func wanted(only []protocol.CodeActionKind, kind protocol.CodeActionKind) bool {
	if len(only) == 0 {
		return true
	}

	for _, prefix := range only {
		if kind == prefix || strings.HasPrefix(string(kind), string(prefix)+".") {
			return true
		}
	}

	return false
}
