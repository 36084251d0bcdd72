package pyparse

import (
	"strings"

	sitter "github.com/alexaandru/go-tree-sitter-bare"

	"github.com/Sumatoshi-tech/pyrefactor/pkg/pyast"
)

const (
	typeComment    = "comment"
	futureModule   = "__future__"
	typeBlock      = "block"
	typeIdentifier = "identifier"
)

// converter walks one tree-sitter tree. It is not reused across parses.
type converter struct {
	src    []byte
	opaque int
}

func (conv *converter) text(node sitter.Node) string {
	return string(conv.src[node.StartByte():node.EndByte()])
}

func (conv *converter) pos(node sitter.Node) pyast.Position {
	start := node.StartPoint()

	return pyast.At(int(start.Row)+1, int(start.Column)+1)
}

// namedChildren returns the named children of node, comments excluded.
func namedChildren(node sitter.Node) []sitter.Node {
	out := make([]sitter.Node, 0, node.NamedChildCount())

	for idx := range node.NamedChildCount() {
		child := node.NamedChild(idx)
		if child.IsNull() || child.Type() == typeComment {
			continue
		}

		out = append(out, child)
	}

	return out
}

func sameNode(left, right sitter.Node) bool {
	return left.StartByte() == right.StartByte() && left.EndByte() == right.EndByte() && left.Type() == right.Type()
}

// block converts the statements directly under node (a module or block).
func (conv *converter) block(node sitter.Node) []pyast.Stmt {
	children := namedChildren(node)
	body := make([]pyast.Stmt, 0, len(children))

	for _, child := range children {
		body = append(body, conv.stmt(child))
	}

	return body
}

// body converts the block found under field, or nil if there is none.
func (conv *converter) body(node sitter.Node, field string) []pyast.Stmt {
	block := node.ChildByFieldName(field)
	if block.IsNull() {
		return nil
	}

	return conv.block(block)
}

func (conv *converter) opaqueStmt(node sitter.Node) pyast.Stmt {
	conv.opaque++

	return &pyast.OpaqueStmt{Position: conv.pos(node), Type: node.Type(), Text: conv.text(node)}
}

func (conv *converter) stmt(node sitter.Node) pyast.Stmt {
	switch node.Type() {
	case "function_definition":
		return conv.functionDef(node, nil)
	case "class_definition":
		return conv.classDef(node, nil)
	case "decorated_definition":
		return conv.decorated(node)
	case "import_statement":
		return &pyast.Import{Position: conv.pos(node), Names: conv.aliases(namedChildren(node))}
	case "import_from_statement":
		return conv.importFrom(node)
	case "future_import_statement":
		return &pyast.ImportFrom{Position: conv.pos(node), Module: futureModule, Names: conv.aliases(namedChildren(node))}
	case "expression_statement":
		return conv.expressionStmt(node)
	case "return_statement":
		ret := &pyast.Return{Position: conv.pos(node)}
		if children := namedChildren(node); len(children) == 1 {
			ret.Value = conv.expr(children[0])
		} else if len(children) > 1 {
			return conv.opaqueStmt(node)
		}

		return ret
	case "pass_statement":
		return &pyast.Pass{Position: conv.pos(node)}
	case "try_statement":
		return conv.try(node)
	default:
		return conv.opaqueStmt(node)
	}
}

func (conv *converter) functionDef(node sitter.Node, decorators []pyast.Expr) pyast.Stmt {
	fn := &pyast.FunctionDef{
		Position:   conv.pos(node),
		Name:       conv.text(node.ChildByFieldName("name")),
		Params:     conv.params(node.ChildByFieldName("parameters")),
		Body:       conv.body(node, "body"),
		Decorators: decorators,
	}

	if first := node.Child(0); !first.IsNull() && first.Type() == "async" {
		fn.Async = true
	}

	if returns := node.ChildByFieldName("return_type"); !returns.IsNull() {
		fn.Returns = conv.expr(returns)
	}

	return fn
}

// params keeps each parameter as written, including separators and
// defaults: `a`, `b=1`, `*args`, `*`, `/`.
func (conv *converter) params(node sitter.Node) []string {
	if node.IsNull() {
		return nil
	}

	var out []string

	for idx := range node.ChildCount() {
		child := node.Child(idx)

		switch child.Type() {
		case "(", ")", ",", typeComment:
			continue
		}

		out = append(out, conv.text(child))
	}

	return out
}

func (conv *converter) classDef(node sitter.Node, decorators []pyast.Expr) pyast.Stmt {
	class := &pyast.ClassDef{
		Position:   conv.pos(node),
		Name:       conv.text(node.ChildByFieldName("name")),
		Body:       conv.body(node, "body"),
		Decorators: decorators,
	}

	if supers := node.ChildByFieldName("superclasses"); !supers.IsNull() {
		class.Bases, class.Keywords = conv.arguments(supers)
	}

	return class
}

func (conv *converter) decorated(node sitter.Node) pyast.Stmt {
	var decorators []pyast.Expr

	for _, child := range namedChildren(node) {
		if child.Type() != "decorator" {
			continue
		}

		if inner := namedChildren(child); len(inner) == 1 {
			decorators = append(decorators, conv.expr(inner[0]))
		}
	}

	definition := node.ChildByFieldName("definition")

	switch definition.Type() {
	case "function_definition":
		return conv.functionDef(definition, decorators)
	case "class_definition":
		return conv.classDef(definition, decorators)
	default:
		return conv.opaqueStmt(node)
	}
}

// aliases converts dotted_name and aliased_import nodes; anything else is
// skipped.
func (conv *converter) aliases(nodes []sitter.Node) []pyast.Alias {
	out := make([]pyast.Alias, 0, len(nodes))

	for _, node := range nodes {
		switch node.Type() {
		case "dotted_name", typeIdentifier:
			out = append(out, pyast.Alias{Name: conv.text(node)})
		case "aliased_import":
			out = append(out, pyast.Alias{
				Name:   conv.text(node.ChildByFieldName("name")),
				AsName: conv.text(node.ChildByFieldName("alias")),
			})
		case "wildcard_import":
			out = append(out, pyast.Alias{Name: "*"})
		}
	}

	return out
}

func (conv *converter) importFrom(node sitter.Node) pyast.Stmt {
	from := &pyast.ImportFrom{Position: conv.pos(node)}

	moduleName := node.ChildByFieldName("module_name")
	if !moduleName.IsNull() {
		from.Module, from.Level = conv.relativeModule(moduleName)
	}

	var names []sitter.Node

	for _, child := range namedChildren(node) {
		if !moduleName.IsNull() && sameNode(child, moduleName) {
			continue
		}

		names = append(names, child)
	}

	from.Names = conv.aliases(names)

	return from
}

// relativeModule splits `..pkg.mod` into its module path and dot count.
func (conv *converter) relativeModule(node sitter.Node) (string, int) {
	text := strings.Join(strings.Fields(conv.text(node)), "")
	trimmed := strings.TrimLeft(text, ".")

	return trimmed, len(text) - len(trimmed)
}

func (conv *converter) expressionStmt(node sitter.Node) pyast.Stmt {
	children := namedChildren(node)
	if len(children) != 1 {
		return conv.opaqueStmt(node)
	}

	child := children[0]

	if child.Type() == "augmented_assignment" {
		return conv.opaqueStmt(node)
	}

	if child.Type() != "assignment" {
		return &pyast.ExprStmt{Position: conv.pos(node), Value: conv.expr(child)}
	}

	left := child.ChildByFieldName("left")
	right := child.ChildByFieldName("right")

	// Annotated, bare-annotation and chained forms are kept opaque.
	if !child.ChildByFieldName("type").IsNull() || right.IsNull() || left.IsNull() || right.Type() == "assignment" {
		return conv.opaqueStmt(node)
	}

	return &pyast.Assign{
		Position: conv.pos(node),
		Targets:  []pyast.Expr{conv.expr(left)},
		Value:    conv.expr(right),
	}
}

func (conv *converter) try(node sitter.Node) pyast.Stmt {
	try := &pyast.Try{Position: conv.pos(node), Body: conv.body(node, "body")}

	for _, child := range namedChildren(node) {
		switch child.Type() {
		case "except_clause":
			try.Handlers = append(try.Handlers, conv.handler(child))
		case "except_group_clause":
			// `except*` has no place in the handler model.
			return conv.opaqueStmt(node)
		case "else_clause":
			try.Orelse = conv.clauseBlock(child)
		case "finally_clause":
			try.Finalbody = conv.clauseBlock(child)
		}
	}

	return try
}

// clauseBlock returns the statements of an else or finally clause.
func (conv *converter) clauseBlock(node sitter.Node) []pyast.Stmt {
	if body := node.ChildByFieldName("body"); !body.IsNull() {
		return conv.block(body)
	}

	for _, child := range namedChildren(node) {
		if child.Type() == typeBlock {
			return conv.block(child)
		}
	}

	return nil
}

// handler accepts both grammar shapes: `except E as n` as an as_pattern,
// and the older expression-then-identifier form.
func (conv *converter) handler(node sitter.Node) pyast.ExceptHandler {
	handler := pyast.ExceptHandler{Position: conv.pos(node)}

	var parts []sitter.Node

	for _, child := range namedChildren(node) {
		if child.Type() == typeBlock {
			handler.Body = conv.block(child)

			continue
		}

		parts = append(parts, child)
	}

	if len(parts) == 0 {
		return handler
	}

	typeNode := parts[0]
	if typeNode.Type() == "as_pattern" {
		inner := namedChildren(typeNode)
		if len(inner) > 0 {
			handler.Type = conv.expr(inner[0])
		}

		if alias := typeNode.ChildByFieldName("alias"); !alias.IsNull() {
			handler.Name = conv.aliasName(alias)
		} else if len(inner) > 1 {
			handler.Name = conv.aliasName(inner[len(inner)-1])
		}

		return handler
	}

	handler.Type = conv.expr(typeNode)

	if len(parts) > 1 {
		handler.Name = conv.aliasName(parts[1])
	}

	return handler
}

// aliasName unwraps an as_pattern_target down to its identifier text.
func (conv *converter) aliasName(node sitter.Node) string {
	for node.Type() != typeIdentifier {
		inner := namedChildren(node)
		if len(inner) != 1 {
			break
		}

		node = inner[0]
	}

	return conv.text(node)
}
