package pyparse

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/pyrefactor/pkg/pyast"
	"github.com/Sumatoshi-tech/pyrefactor/pkg/unparse"
)

const versionSource = `import os
import numpy as np
from pkg_resources import get_distribution, DistributionNotFound

try:
    __version__ = get_distribution("mypkg").version
except DistributionNotFound:
    __version__ = "unknown"


class Helper(Base):
    """Docs."""

    def run(self, value=1):
        # comment
        return os.path.join(value, "x")
`

func mustParse(t *testing.T, src string) *pyast.Module {
	t.Helper()

	mod, err := ParseString(src)
	require.NoError(t, err)

	return mod
}

func TestParse_Statements(t *testing.T) {
	t.Parallel()

	mod := mustParse(t, versionSource)
	require.Len(t, mod.Body, 5)

	imp, ok := mod.Body[1].(*pyast.Import)
	require.True(t, ok)
	assert.Equal(t, []pyast.Alias{{Name: "numpy", AsName: "np"}}, imp.Names)
	assert.Equal(t, &pyast.Location{Line: 2, Column: 1}, imp.Pos())

	from, ok := mod.Body[2].(*pyast.ImportFrom)
	require.True(t, ok)
	assert.Equal(t, "pkg_resources", from.Module)
	assert.Equal(t, []pyast.Alias{{Name: "get_distribution"}, {Name: "DistributionNotFound"}}, from.Names)

	try, ok := mod.Body[3].(*pyast.Try)
	require.True(t, ok)
	require.Len(t, try.Handlers, 1)
	assert.Equal(t, "DistributionNotFound", try.Handlers[0].Type.(*pyast.Name).ID)

	assign, ok := try.Body[0].(*pyast.Assign)
	require.True(t, ok)
	assert.Equal(t, "__version__", assign.Targets[0].(*pyast.Name).ID)

	attr, ok := assign.Value.(*pyast.Attribute)
	require.True(t, ok)
	assert.Equal(t, "version", attr.Attr)

	class, ok := mod.Body[4].(*pyast.ClassDef)
	require.True(t, ok)
	assert.Equal(t, "Helper", class.Name)
	require.Len(t, class.Bases, 1)
	require.Len(t, class.Body, 2)

	doc, ok := class.Body[0].(*pyast.ExprStmt)
	require.True(t, ok)
	assert.Equal(t, "Docs.", doc.Value.(*pyast.Str).Value)

	fn, ok := class.Body[1].(*pyast.FunctionDef)
	require.True(t, ok)
	assert.Equal(t, []string{"self", "value=1"}, fn.Params)
	require.Len(t, fn.Body, 1, "comments are dropped")
}

func TestParse_ImportForms(t *testing.T) {
	t.Parallel()

	mod := mustParse(t, "from . import a\nfrom ..pkg.sub import b as c\nfrom os import *\nfrom __future__ import annotations\n")
	require.Len(t, mod.Body, 4)

	rel := mod.Body[0].(*pyast.ImportFrom)
	assert.Equal(t, 1, rel.Level)
	assert.Empty(t, rel.Module)
	assert.Equal(t, "a", rel.Names[0].Name)

	deep := mod.Body[1].(*pyast.ImportFrom)
	assert.Equal(t, 2, deep.Level)
	assert.Equal(t, "pkg.sub", deep.Module)
	assert.Equal(t, pyast.Alias{Name: "b", AsName: "c"}, deep.Names[0])

	star := mod.Body[2].(*pyast.ImportFrom)
	assert.Equal(t, "*", star.Names[0].Name)

	future := mod.Body[3].(*pyast.ImportFrom)
	assert.Equal(t, "__future__", future.Module)
}

func TestParse_Expressions(t *testing.T) {
	t.Parallel()

	mod := mustParse(t, "x = (a + b) * -2\ny = f(1, key='v', **extra)\nz = items[0]\n")

	mul := mod.Body[0].(*pyast.Assign).Value.(*pyast.BinOp)
	assert.Equal(t, pyast.Mult, mul.Op)
	assert.Equal(t, pyast.Add, mul.Left.(*pyast.BinOp).Op)
	assert.Equal(t, "-2", mul.Right.(*pyast.Num).Value.String())

	call := mod.Body[1].(*pyast.Assign).Value.(*pyast.Call)
	assert.Equal(t, "f", call.CalleeName())
	require.Len(t, call.Args, 1)
	require.Len(t, call.Keywords, 2)
	assert.Equal(t, "key", call.Keywords[0].Name)
	assert.Empty(t, call.Keywords[1].Name)

	sub := mod.Body[2].(*pyast.Assign).Value.(*pyast.Subscript)
	assert.Equal(t, "items", sub.Value.(*pyast.Name).ID)
}

func TestParse_OpaqueConstructs(t *testing.T) {
	t.Parallel()

	mod := mustParse(t, "for i in range(3):\n    pass\na = b = 1\nx: int = 2\ncount += 1\n")
	require.Len(t, mod.Body, 4)

	for _, stmt := range mod.Body {
		opaque, ok := stmt.(*pyast.OpaqueStmt)
		require.True(t, ok, "%T", stmt)
		assert.NotEmpty(t, opaque.Text)
	}

	assert.Equal(t, "for_statement", mod.Body[0].Kind())
	assert.ErrorIs(t, mod.Validate(), pyast.ErrUnsupportedNode)
}

func TestParse_TupleTargetIsOpaque(t *testing.T) {
	t.Parallel()

	mod := mustParse(t, "a, b = pair\n")

	assign := mod.Body[0].(*pyast.Assign)
	_, isName := assign.Targets[0].(*pyast.Name)
	assert.False(t, isName)
}

func TestParse_SyntaxError(t *testing.T) {
	t.Parallel()

	_, err := ParseString("def broken(:\n    pass\n")
	require.Error(t, err)

	var syntaxErr *SyntaxError
	require.ErrorAs(t, err, &syntaxErr)
	assert.Equal(t, 1, syntaxErr.Line)
	assert.Positive(t, syntaxErr.Column)
	assert.Contains(t, err.Error(), "line 1")
}

func TestParse_EmptySource(t *testing.T) {
	t.Parallel()

	mod := mustParse(t, "")
	assert.True(t, mod.IsEmpty())
}

func TestParse_ConcurrentUse(t *testing.T) {
	t.Parallel()

	parser := New()
	done := make(chan error, 8)

	for range 8 {
		go func() {
			_, err := parser.Parse(context.Background(), []byte(versionSource))
			done <- err
		}()
	}

	for range 8 {
		require.NoError(t, <-done)
	}
}

// shape lists every node in pre-order with its names, operators and literal
// values. Positions and source text are left out.
func shape(mod *pyast.Module) []string {
	var out []string

	for _, stmt := range mod.Body {
		pyast.Inspect(stmt, func(node pyast.Node) bool {
			entry := node.Kind()

			switch typed := node.(type) {
			case *pyast.Name:
				entry += " " + typed.ID
			case *pyast.Str:
				entry += " " + strconv.Quote(typed.Value)
			case *pyast.Num:
				entry += " " + typed.Value.String()
			case *pyast.BinOp:
				entry += " " + typed.Op.String()
			case *pyast.Attribute:
				entry += " ." + typed.Attr
			case *pyast.FunctionDef:
				entry += " " + typed.Name + "(" + strings.Join(typed.Params, ", ") + ")"
			case *pyast.ClassDef:
				entry += " " + typed.Name
			case *pyast.Import:
				entry += " " + fmt.Sprint(typed.Names)
			case *pyast.ImportFrom:
				entry += " " + typed.Source() + " " + fmt.Sprint(typed.Names)
			}

			out = append(out, entry)

			return true
		})
	}

	return out
}

// Parsing the rendered output of a module yields the same tree, and
// rendering it again is stable.
func TestParse_RenderRoundTrip(t *testing.T) {
	t.Parallel()

	sources := []string{
		versionSource,
		"x = 2 ** -1\ny = (-2) ** 2\nz = a - (b - c)\n",
		"@decorator\nasync def fetch(url, *, timeout=3) -> bytes:\n    return await get(url)\n",
		"s = 'tab\\there' + \"quote\\\"d\"\n",
		"try:\n    pass\nexcept (A, B) as err:\n    raise\nelse:\n    x = 1\nfinally:\n    y = 2\n",
		"n = 1.5e-07 + 3j\nbig = 123456789012345678901234567890\n",
		`dash = "\N{EM DASH}"` + "\n" + `half = "\uD800"` + "\n",
		"(n := 10)\ny = (m := 3)\nz = [(k := 1), k]\n",
		"y = [x, 'a', {\"k\": (a + b) * c}]\nz = not (a or b)\nw = -(p + q)\n",
	}

	for _, src := range sources {
		mod := mustParse(t, src)

		first, err := unparse.Render(mod, unparse.Verbatim)
		require.NoError(t, err, src)

		reparsed := mustParse(t, first)
		assert.Equal(t, shape(mod), shape(reparsed), first)

		second, err := unparse.Render(reparsed, unparse.Verbatim)
		require.NoError(t, err, first)

		assert.Equal(t, first, second)
	}
}

func TestParse_UndecodableStringStaysVerbatim(t *testing.T) {
	t.Parallel()

	src := `dash = "\N{EM DASH}"` + "\n" + `half = "\uD800"` + "\n"

	out, err := unparse.Render(mustParse(t, src), unparse.Verbatim)
	require.NoError(t, err)
	assert.Equal(t, strings.TrimSuffix(src, "\n"), out)
}

func TestParse_WalrusKeepsParentheses(t *testing.T) {
	t.Parallel()

	mod := mustParse(t, "(n := 10)\ny = (m := 3)\n")

	stmt, ok := mod.Body[0].(*pyast.ExprStmt)
	require.True(t, ok)

	paren, ok := stmt.Value.(*pyast.OpaqueExpr)
	require.True(t, ok)
	assert.Equal(t, "parenthesized_expression", paren.Type)
	require.Len(t, paren.Operands, 1)
	assert.Equal(t, "named_expression", paren.Operands[0].Kind())

	out, err := unparse.Render(mod, unparse.Verbatim)
	require.NoError(t, err)
	assert.Equal(t, "(n := 10)\ny = (m := 3)", out)
}

func TestParse_OpaqueOperandSpans(t *testing.T) {
	t.Parallel()

	mod := mustParse(t, "y = [x, (a + b), not (c)]\n")

	list, ok := mod.Body[0].(*pyast.Assign).Value.(*pyast.OpaqueExpr)
	require.True(t, ok)
	require.Len(t, list.Spans, len(list.Operands))

	var located []string
	for _, span := range list.Spans {
		located = append(located, list.Text[span.Start:span.End])
	}

	assert.Equal(t, []string{"x", "a + b", "not (c)"}, located)
	assert.Equal(t, pyast.PrecAtom, list.Spans[0].Binding)
	assert.Equal(t, pyast.PrecAdditive, list.Spans[1].Binding)
	assert.Equal(t, 0, list.Spans[2].Binding)

	negation := list.Operands[2].(*pyast.OpaqueExpr)
	require.Len(t, negation.Spans, 1)
	assert.Equal(t, "c", negation.Text[negation.Spans[0].Start:negation.Spans[0].End])
}
