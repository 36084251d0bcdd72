package refactor

import (
	"fmt"
	"strings"

	"github.com/Sumatoshi-tech/pyrefactor/pkg/pyast"
)

// ModernizeStringFormatting rewrites `"..." % args` into
// `"...".format(args)` where the conversion keeps meaning: the format
// string uses only %s, %r, %a and %%, and args is a tuple of matching
// length or a single literal.
func (session *Session) ModernizeStringFormatting() error {
	return session.mutate(func(tx *txn) error {
		count := 0

		pyast.RewriteExprs(tx.work.Body, func(expr pyast.Expr) pyast.Expr {
			rewritten, ok := percentToFormat(expr)
			if !ok {
				return expr
			}

			count++

			return rewritten
		})

		if count == 0 {
			return nil
		}

		tx.record(Change{
			Kind:        SyntaxModernized,
			Description: fmt.Sprintf("Modernized %d string formatting patterns", count),
		})

		return nil
	})
}

func percentToFormat(expr pyast.Expr) (pyast.Expr, bool) {
	binop, ok := expr.(*pyast.BinOp)
	if !ok || binop.Op != pyast.Mod {
		return nil, false
	}

	format, ok := binop.Left.(*pyast.Str)
	if !ok {
		return nil, false
	}

	converted, directives, ok := convertFormat(format.Value)
	if !ok {
		return nil, false
	}

	args, ok := formatArgs(binop.Right)
	if !ok || len(args) != directives {
		return nil, false
	}

	return &pyast.Call{
		Position: binop.Position,
		Func:     &pyast.Attribute{Value: &pyast.Str{Position: format.Position, Value: converted}, Attr: "format"},
		Args:     args,
	}, true
}

var conversions = map[byte]string{
	's': "{}",
	'r': "{!r}",
	'a': "{!a}",
}

// convertFormat translates a %-format string to str.format syntax and
// counts its directives.
func convertFormat(format string) (string, int, bool) {
	var out strings.Builder

	directives := 0

	for idx := 0; idx < len(format); idx++ {
		char := format[idx]

		switch char {
		case '{':
			out.WriteString("{{")
		case '}':
			out.WriteString("}}")
		case '%':
			if idx+1 >= len(format) {
				return "", 0, false
			}

			idx++

			if format[idx] == '%' {
				out.WriteByte('%')

				continue
			}

			repl, ok := conversions[format[idx]]
			if !ok {
				return "", 0, false
			}

			out.WriteString(repl)

			directives++
		default:
			out.WriteByte(char)
		}
	}

	return out.String(), directives, true
}

// formatArgs returns the positional arguments a % right operand supplies.
// Only tuples and literals are accepted: any other value might itself be
// a tuple at run time.
func formatArgs(right pyast.Expr) ([]pyast.Expr, bool) {
	switch node := right.(type) {
	case *pyast.OpaqueExpr:
		if node.Type != "tuple" {
			return nil, false
		}

		for _, operand := range node.Operands {
			if opaque, isOpaque := operand.(*pyast.OpaqueExpr); isOpaque && strings.HasSuffix(opaque.Type, "splat") {
				return nil, false
			}
		}

		return node.Operands, true
	case *pyast.Str, *pyast.Num, *pyast.Bool, *pyast.NoneLit:
		return []pyast.Expr{right}, true
	default:
		return nil, false
	}
}
