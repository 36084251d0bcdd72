package pyparse

import (
	"strings"

	sitter "github.com/alexaandru/go-tree-sitter-bare"

	"github.com/Sumatoshi-tech/pyrefactor/pkg/pyast"
)

func (conv *converter) expr(node sitter.Node) pyast.Expr {
	switch node.Type() {
	case typeIdentifier:
		return &pyast.Name{Position: conv.pos(node), ID: conv.text(node)}
	case "true", "false":
		return &pyast.Bool{Position: conv.pos(node), Value: node.Type() == "true"}
	case "none":
		return &pyast.NoneLit{Position: conv.pos(node)}
	case "integer", "float":
		return conv.number(node)
	case "string", "concatenated_string":
		return conv.str(node)
	case "parenthesized_expression":
		if inner := unwrapParens(node); !sameNode(inner, node) {
			return conv.expr(inner)
		}
	case "call":
		return conv.call(node)
	case "binary_operator":
		return conv.binOp(node)
	case "attribute":
		return &pyast.Attribute{
			Position: conv.pos(node),
			Value:    conv.expr(node.ChildByFieldName("object")),
			Attr:     conv.text(node.ChildByFieldName("attribute")),
		}
	case "subscript":
		return conv.subscript(node)
	case "unary_operator":
		return conv.unary(node)
	}

	return conv.opaqueExpr(node)
}

// opaqueExpr keeps an unmodelled expression with its operands so that
// name scans still see the identifiers inside it.
func (conv *converter) opaqueExpr(node sitter.Node) pyast.Expr {
	conv.opaque++

	opaque := &pyast.OpaqueExpr{Position: conv.pos(node), Type: node.Type(), Text: conv.text(node)}
	base := int(node.StartByte())

	for _, child := range namedChildren(node) {
		// Spans cover the unwrapped expression so the parentheses stay in Text.
		inner := unwrapParens(child)
		operand := conv.expr(inner)

		opaque.Operands = append(opaque.Operands, operand)
		opaque.Spans = append(opaque.Spans, pyast.Span{
			Start:   int(inner.StartByte()) - base,
			End:     int(inner.EndByte()) - base,
			Binding: pyast.Binding(operand),
		})
	}

	return opaque
}

// keepParens lists expressions whose parentheses are required syntax.
var keepParens = map[string]bool{
	"yield":            true,
	"named_expression": true,
}

// unwrapParens returns the expression inside redundant parentheses, or node
// itself when the parentheses must stay.
func unwrapParens(node sitter.Node) sitter.Node {
	for node.Type() == "parenthesized_expression" {
		inner := namedChildren(node)
		if len(inner) != 1 || keepParens[inner[0].Type()] {
			break
		}

		node = inner[0]
	}

	return node
}

func (conv *converter) number(node sitter.Node) pyast.Expr {
	value, ok := parseNumber(conv.text(node))
	if !ok {
		return conv.opaqueExpr(node)
	}

	return &pyast.Num{Position: conv.pos(node), Value: value}
}

func (conv *converter) str(node sitter.Node) pyast.Expr {
	parts := []sitter.Node{node}
	if node.Type() == "concatenated_string" {
		parts = namedChildren(node)
	}

	var joined strings.Builder

	for _, part := range parts {
		value, ok := decodeString(conv.text(part))
		if !ok {
			return conv.opaqueExpr(node)
		}

		joined.WriteString(value)
	}

	return &pyast.Str{Position: conv.pos(node), Value: joined.String()}
}

func (conv *converter) call(node sitter.Node) pyast.Expr {
	call := &pyast.Call{Position: conv.pos(node), Func: conv.expr(node.ChildByFieldName("function"))}

	arguments := node.ChildByFieldName("arguments")

	switch {
	case arguments.IsNull():
	case arguments.Type() == "argument_list":
		call.Args, call.Keywords = conv.arguments(arguments)
	default:
		// A bare generator argument: f(x for x in y).
		call.Args = []pyast.Expr{conv.opaqueExpr(arguments)}
	}

	return call
}

// arguments splits an argument_list into positional and keyword arguments.
// `**mapping` becomes a Keyword with an empty name.
func (conv *converter) arguments(node sitter.Node) ([]pyast.Expr, []pyast.Keyword) {
	var (
		args     []pyast.Expr
		keywords []pyast.Keyword
	)

	for _, child := range namedChildren(node) {
		switch child.Type() {
		case "keyword_argument":
			keywords = append(keywords, pyast.Keyword{
				Name:  conv.text(child.ChildByFieldName("name")),
				Value: conv.expr(child.ChildByFieldName("value")),
			})
		case "dictionary_splat":
			inner := namedChildren(child)
			if len(inner) != 1 {
				args = append(args, conv.opaqueExpr(child))

				continue
			}

			keywords = append(keywords, pyast.Keyword{Value: conv.expr(inner[0])})
		default:
			args = append(args, conv.expr(child))
		}
	}

	return args, keywords
}

func (conv *converter) binOp(node sitter.Node) pyast.Expr {
	operator := node.ChildByFieldName("operator")

	op, ok := pyast.ParseOperator(conv.text(operator))
	if operator.IsNull() || !ok {
		return conv.opaqueExpr(node)
	}

	return &pyast.BinOp{
		Position: conv.pos(node),
		Left:     conv.expr(node.ChildByFieldName("left")),
		Op:       op,
		Right:    conv.expr(node.ChildByFieldName("right")),
	}
}

// subscript models single-index subscripts; slices and multi-index forms
// keep their index opaque or the whole node opaque.
func (conv *converter) subscript(node sitter.Node) pyast.Expr {
	value := node.ChildByFieldName("value")

	var indices []sitter.Node

	for _, child := range namedChildren(node) {
		if !sameNode(child, value) {
			indices = append(indices, child)
		}
	}

	if value.IsNull() || len(indices) != 1 {
		return conv.opaqueExpr(node)
	}

	return &pyast.Subscript{Position: conv.pos(node), Value: conv.expr(value), Index: conv.expr(indices[0])}
}

// unary folds a minus sign into a numeric literal; other unary forms stay
// opaque.
func (conv *converter) unary(node sitter.Node) pyast.Expr {
	operator := node.ChildByFieldName("operator")
	argument := node.ChildByFieldName("argument")

	if operator.IsNull() || argument.IsNull() || conv.text(operator) != "-" {
		return conv.opaqueExpr(node)
	}

	if argument.Type() != "integer" && argument.Type() != "float" {
		return conv.opaqueExpr(node)
	}

	value, ok := parseNumber(conv.text(argument))
	if !ok {
		return conv.opaqueExpr(node)
	}

	return &pyast.Num{Position: conv.pos(node), Value: value.Negate()}
}
