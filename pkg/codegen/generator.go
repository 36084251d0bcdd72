// Package codegen builds small Python snippets from text fragments.
//
// Fragments passed as expressions or statements are trusted source text and
// emitted unchanged; only the surrounding structure is generated.
package codegen

import (
	"strings"

	"github.com/Sumatoshi-tech/pyrefactor/pkg/pyast"
	"github.com/Sumatoshi-tech/pyrefactor/pkg/unparse"
)

const fragmentKind = "fragment"

// Generator renders snippets. The zero value is not usable; call New.
type Generator struct {
	printer *unparse.Printer
}

// New returns a Generator.
func New() *Generator {
	return &Generator{printer: unparse.New(unparse.Verbatim)}
}

func fragment(text string) *pyast.OpaqueExpr {
	return &pyast.OpaqueExpr{Type: fragmentKind, Text: strings.TrimSpace(text)}
}

// ImportNode returns `import module [as alias]` when names is empty, and
// `from module import n1, n2` otherwise.
func ImportNode(module string, names []string, alias string) pyast.Stmt {
	if len(names) == 0 {
		return &pyast.Import{Names: []pyast.Alias{{Name: module, AsName: alias}}}
	}

	from := &pyast.ImportFrom{Module: strings.TrimLeft(module, "."), Level: len(module) - len(strings.TrimLeft(module, "."))}
	for _, name := range names {
		from.Names = append(from.Names, pyast.Alias{Name: name})
	}

	return from
}

// CreateImport renders ImportNode.
func (gen *Generator) CreateImport(module string, names []string, alias string) (string, error) {
	return gen.printer.Stmt(ImportNode(module, names, alias))
}

// CreateAssignment renders `target = value`.
func (gen *Generator) CreateAssignment(target, value string) (string, error) {
	return gen.printer.Stmt(&pyast.Assign{
		Targets: []pyast.Expr{fragment(target)},
		Value:   fragment(value),
	})
}

// CreateFunctionCall renders `name(arg1, arg2)`.
func (gen *Generator) CreateFunctionCall(name string, args []string) (string, error) {
	call := &pyast.Call{Func: pyast.NewName(strings.TrimSpace(name))}
	for _, arg := range args {
		call.Args = append(call.Args, fragment(arg))
	}

	return gen.printer.Expr(call)
}

// CreateTryExcept renders a try statement with one handler. body and
// handler may span several lines.
func (gen *Generator) CreateTryExcept(body, exceptionType, handler string) (string, error) {
	try := &pyast.Try{
		Body: []pyast.Stmt{&pyast.OpaqueStmt{Type: fragmentKind, Text: strings.TrimSpace(body)}},
		Handlers: []pyast.ExceptHandler{{
			Body: []pyast.Stmt{&pyast.OpaqueStmt{Type: fragmentKind, Text: strings.TrimSpace(handler)}},
		}},
	}

	if exceptionType != "" {
		try.Handlers[0].Type = fragment(exceptionType)
	}

	return gen.printer.Stmt(try)
}
