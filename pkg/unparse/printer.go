package unparse

import (
	"strings"

	"github.com/Sumatoshi-tech/pyrefactor/pkg/pyast"
)

const indentUnit = "    "

// Printer renders trees in one Mode. A Printer holds no per-call state and
// may be shared between goroutines.
type Printer struct {
	mode Mode
}

// New returns a Printer for the given mode.
func New(mode Mode) *Printer {
	return &Printer{mode: mode}
}

// Mode returns the printer's mode.
func (printer *Printer) Mode() Mode {
	return printer.mode
}

// Render renders mod with a Printer in the given mode.
func Render(mod *pyast.Module, mode Mode) (string, error) {
	return New(mode).Module(mod)
}

// Module renders every statement of mod, joined by newlines. The result
// has no trailing newline.
func (printer *Printer) Module(mod *pyast.Module) (string, error) {
	state := &renderer{mode: printer.mode}
	state.block(mod.Body, 0, false)

	return state.result()
}

// Stmt renders a single statement at indentation level zero.
func (printer *Printer) Stmt(stmt pyast.Stmt) (string, error) {
	state := &renderer{mode: printer.mode}
	state.stmt(stmt, 0)

	return state.result()
}

// Expr renders a single expression. In lenient mode unsupported parts
// render as `...` without the trailing comment a statement would carry.
func (printer *Printer) Expr(expr pyast.Expr) (string, error) {
	state := &renderer{mode: printer.mode}
	text := state.expr(expr)

	if state.err != nil {
		return "", state.err
	}

	return text, nil
}

// renderer accumulates output lines for one call.
type renderer struct {
	mode    Mode
	lines   []string
	pending []string
	err     error
}

func (state *renderer) result() (string, error) {
	if state.err != nil {
		return "", state.err
	}

	return strings.Join(state.lines, "\n"), nil
}

// line emits one line at the given depth, appending a note for any
// unsupported expressions rendered since the previous line.
func (state *renderer) line(depth int, text string) {
	if state.err != nil {
		return
	}

	if len(state.pending) > 0 {
		text += "  # unsupported expression: " + strings.Join(state.pending, ", ")
		state.pending = state.pending[:0]
	}

	state.lines = append(state.lines, strings.Repeat(indentUnit, depth)+text)
}

// block renders a statement list. A required block that is empty renders
// as `pass`.
func (state *renderer) block(body []pyast.Stmt, depth int, required bool) {
	if len(body) == 0 && required {
		state.line(depth, "pass")

		return
	}

	for _, stmt := range body {
		if state.err != nil {
			return
		}

		state.stmt(stmt, depth)
	}
}

func (state *renderer) stmt(stmt pyast.Stmt, depth int) {
	switch node := stmt.(type) {
	case *pyast.FunctionDef:
		state.functionDef(node, depth)
	case *pyast.ClassDef:
		state.classDef(node, depth)
	case *pyast.Import:
		state.line(depth, "import "+aliases(node.Names))
	case *pyast.ImportFrom:
		state.line(depth, "from "+node.Source()+" import "+aliases(node.Names))
	case *pyast.Assign:
		targets := make([]string, len(node.Targets))
		for idx, target := range node.Targets {
			targets[idx] = state.expr(target)
		}

		state.line(depth, strings.Join(targets, ", ")+" = "+state.expr(node.Value))
	case *pyast.Return:
		if node.Value == nil {
			state.line(depth, "return")
		} else {
			state.line(depth, "return "+state.expr(node.Value))
		}
	case *pyast.Pass:
		state.line(depth, "pass")
	case *pyast.ExprStmt:
		state.line(depth, state.expr(node.Value))
	case *pyast.Try:
		state.try(node, depth)
	case *pyast.OpaqueStmt:
		state.opaqueStmt(node, depth)
	case nil:
		state.opaqueStmt(&pyast.OpaqueStmt{Type: "<missing>"}, depth)
	default:
		state.fail(stmt)
	}
}

func (state *renderer) functionDef(node *pyast.FunctionDef, depth int) {
	state.decorators(node.Decorators, depth)

	var header strings.Builder

	if node.Async {
		header.WriteString("async ")
	}

	header.WriteString("def ")
	header.WriteString(node.Name)
	header.WriteString("(")
	header.WriteString(strings.Join(node.Params, ", "))
	header.WriteString(")")

	if node.Returns != nil {
		header.WriteString(" -> ")
		header.WriteString(state.expr(node.Returns))
	}

	header.WriteString(":")

	state.line(depth, header.String())
	state.block(node.Body, depth+1, true)
}

func (state *renderer) classDef(node *pyast.ClassDef, depth int) {
	state.decorators(node.Decorators, depth)

	header := "class " + node.Name

	args := make([]string, 0, len(node.Bases)+len(node.Keywords))
	for _, base := range node.Bases {
		args = append(args, state.expr(base))
	}

	args = append(args, state.keywords(node.Keywords)...)

	if len(args) > 0 {
		header += "(" + strings.Join(args, ", ") + ")"
	}

	state.line(depth, header+":")
	state.block(node.Body, depth+1, true)
}

func (state *renderer) decorators(decorators []pyast.Expr, depth int) {
	for _, dec := range decorators {
		state.line(depth, "@"+state.expr(dec))
	}
}

func (state *renderer) try(node *pyast.Try, depth int) {
	state.line(depth, "try:")
	state.block(node.Body, depth+1, true)

	for _, handler := range node.Handlers {
		header := "except"

		if handler.Type != nil {
			header += " " + state.expr(handler.Type)

			if handler.Name != "" {
				header += " as " + handler.Name
			}
		}

		state.line(depth, header+":")
		state.block(handler.Body, depth+1, true)
	}

	if len(node.Orelse) > 0 {
		state.line(depth, "else:")
		state.block(node.Orelse, depth+1, true)
	}

	if len(node.Finalbody) > 0 || len(node.Handlers) == 0 {
		state.line(depth, "finally:")
		state.block(node.Finalbody, depth+1, true)
	}
}

func (state *renderer) opaqueStmt(node *pyast.OpaqueStmt, depth int) {
	switch {
	case state.mode == Strict:
		state.fail(node)
	case state.mode == Verbatim && node.Text != "":
		state.verbatim(node, depth)
	default:
		state.line(depth, "pass  # unsupported statement: "+node.Type)
	}
}

// verbatim re-emits captured source, shifting continuation lines from the
// node's original column to the current depth.
func (state *renderer) verbatim(node *pyast.OpaqueStmt, depth int) {
	origIndent := 0
	if node.Loc != nil && node.Loc.Column > 1 {
		origIndent = node.Loc.Column - 1
	}

	newIndent := strings.Repeat(indentUnit, depth)
	lines := strings.Split(strings.TrimRight(node.Text, "\n"), "\n")

	state.line(depth, lines[0])

	for _, text := range lines[1:] {
		if origIndent != len(newIndent) {
			prefix := strings.Repeat(" ", origIndent)
			if strings.HasPrefix(text, prefix) {
				text = newIndent + strings.TrimPrefix(text, prefix)
			}
		}

		if state.err == nil {
			state.lines = append(state.lines, text)
		}
	}
}

func (state *renderer) fail(node pyast.Node) {
	if state.err == nil {
		state.err = pyast.Unsupported(node)
	}
}

func aliases(names []pyast.Alias) string {
	parts := make([]string, len(names))

	for idx, alias := range names {
		if alias.HasAlias() {
			parts[idx] = alias.Name + " as " + alias.AsName
		} else {
			parts[idx] = alias.Name
		}
	}

	return strings.Join(parts, ", ")
}
