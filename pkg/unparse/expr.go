package unparse

import (
	"strings"

	"github.com/Sumatoshi-tech/pyrefactor/pkg/pyast"
)

const (
	precLowest = 0
	// postfix is the binding required of a receiver of `.attr`, `[i]` or `(...)`.
	postfix = pyast.PrecAtom
)

// atomKinds are opaque grammar kinds that are self-delimiting and never need
// parentheses as operands.
var atomKinds = map[string]bool{
	"list":                     true,
	"dictionary":               true,
	"set":                      true,
	"tuple":                    true,
	"list_comprehension":       true,
	"dictionary_comprehension": true,
	"set_comprehension":        true,
	"generator_expression":     true,
	"parenthesized_expression": true,
	"string":                   true,
	"concatenated_string":      true,
	"ellipsis":                 true,
	"integer":                  true,
	"float":                    true,
}

// prefixKinds bind like unary minus.
var prefixKinds = map[string]bool{
	"unary_operator": true,
	"await":          true,
}

// precedence returns how tightly a rendered expression binds.
func (state *renderer) precedence(expr pyast.Expr) int {
	switch node := expr.(type) {
	case *pyast.BinOp, *pyast.Num:
		return pyast.Binding(node)
	case *pyast.OpaqueExpr:
		if state.mode != Verbatim || node.Text == "" || atomKinds[node.Type] {
			// A placeholder `...` is an atom.
			return pyast.PrecAtom
		}

		if prefixKinds[node.Type] {
			return pyast.PrecUnary
		}

		return precLowest
	case *pyast.Name, *pyast.Str, *pyast.Bool, *pyast.NoneLit,
		*pyast.Call, *pyast.Attribute, *pyast.Subscript:
		return pyast.PrecAtom
	default:
		return pyast.PrecAtom
	}
}

// operand renders expr, parenthesized when it binds looser than need.
func (state *renderer) operand(expr pyast.Expr, need int) string {
	text := state.expr(expr)
	if state.precedence(expr) < need {
		return "(" + text + ")"
	}

	return text
}

func (state *renderer) expr(expr pyast.Expr) string {
	switch node := expr.(type) {
	case *pyast.Name:
		return node.ID
	case *pyast.Str:
		return Quote(node.Value)
	case *pyast.Num:
		return node.Value.String()
	case *pyast.Bool:
		if node.Value {
			return "True"
		}

		return "False"
	case *pyast.NoneLit:
		return "None"
	case *pyast.Call:
		return state.call(node)
	case *pyast.BinOp:
		return state.binOp(node)
	case *pyast.Attribute:
		receiver := state.operand(node.Value, postfix)
		if num, ok := node.Value.(*pyast.Num); ok && num.Value.Kind == pyast.IntNumber && !strings.HasPrefix(receiver, "(") {
			// `1.real` would lex as a float.
			receiver = "(" + receiver + ")"
		}

		return receiver + "." + node.Attr
	case *pyast.Subscript:
		return state.operand(node.Value, postfix) + "[" + state.expr(node.Index) + "]"
	case *pyast.OpaqueExpr:
		return state.opaqueExpr(node)
	case nil:
		return state.opaqueExpr(&pyast.OpaqueExpr{Type: "<missing>"})
	default:
		state.fail(expr)

		return ""
	}
}

func (state *renderer) call(node *pyast.Call) string {
	args := make([]string, 0, len(node.Args)+len(node.Keywords))
	for _, arg := range node.Args {
		args = append(args, state.expr(arg))
	}

	args = append(args, state.keywords(node.Keywords)...)

	return state.operand(node.Func, postfix) + "(" + strings.Join(args, ", ") + ")"
}

func (state *renderer) keywords(keywords []pyast.Keyword) []string {
	out := make([]string, len(keywords))

	for idx, kw := range keywords {
		if kw.Name == "" {
			out[idx] = "**" + state.expr(kw.Value)
		} else {
			out[idx] = kw.Name + "=" + state.expr(kw.Value)
		}
	}

	return out
}

// binOp parenthesizes a child only when it binds looser than the operator,
// or equally on the side the operator does not associate toward.
func (state *renderer) binOp(node *pyast.BinOp) string {
	if !node.Op.Valid() {
		state.fail(node)

		return ""
	}

	prec := node.Op.Precedence()

	leftNeed, rightNeed := prec, prec+1
	if node.Op.RightAssociative() {
		leftNeed, rightNeed = prec+1, prec
	}

	if node.Op == pyast.Pow {
		// The exponent may be a bare unary operand: `2 ** -1`.
		rightNeed = pyast.PrecUnary
	}

	return state.operand(node.Left, leftNeed) + " " + node.Op.String() + " " + state.operand(node.Right, rightNeed)
}

func (state *renderer) opaqueExpr(node *pyast.OpaqueExpr) string {
	switch {
	case state.mode == Strict:
		state.fail(node)

		return ""
	case state.mode == Verbatim && node.Text != "":
		return state.splice(node)
	default:
		state.pending = append(state.pending, node.Type)

		return "..."
	}
}

// splice rebuilds an opaque node's text with each located operand
// re-rendered, so edits below the node are not lost. Without usable spans
// the original text is kept.
func (state *renderer) splice(node *pyast.OpaqueExpr) string {
	if len(node.Spans) == 0 || len(node.Spans) != len(node.Operands) {
		return node.Text
	}

	var out strings.Builder

	last := 0

	for idx, operand := range node.Operands {
		span := node.Spans[idx]
		if span.Start < last || span.End < span.Start || span.End > len(node.Text) {
			return node.Text
		}

		out.WriteString(node.Text[last:span.Start])
		out.WriteString(state.operand(operand, span.Binding))

		last = span.End
	}

	out.WriteString(node.Text[last:])

	return out.String()
}
