package unparse_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/pyrefactor/pkg/pyast"
	"github.com/Sumatoshi-tech/pyrefactor/pkg/unparse"
)

func render(t *testing.T, mode unparse.Mode, body ...pyast.Stmt) string {
	t.Helper()

	text, err := unparse.Render(pyast.NewModule(body...), mode)
	require.NoError(t, err)

	return text
}

func name(id string) *pyast.Name { return pyast.NewName(id) }

func TestRender_FunctionDef(t *testing.T) {
	t.Parallel()

	text := render(t, unparse.Lenient,
		&pyast.FunctionDef{Name: "add", Params: []string{"a", "b"}, Body: []pyast.Stmt{
			&pyast.Return{Value: &pyast.BinOp{Left: name("a"), Op: pyast.Add, Right: name("b")}},
		}},
		&pyast.FunctionDef{Name: "noop"},
	)

	assert.Equal(t, "def add(a, b):\n    return a + b\ndef noop():\n    pass", text)
}

func TestRender_FunctionDefDecoratorsAndReturns(t *testing.T) {
	t.Parallel()

	text := render(t, unparse.Lenient, &pyast.FunctionDef{
		Name:       "fetch",
		Params:     []string{"self", "timeout=5"},
		Async:      true,
		Decorators: []pyast.Expr{&pyast.Attribute{Value: name("functools"), Attr: "cache"}},
		Returns:    name("int"),
		Body:       []pyast.Stmt{&pyast.Pass{}},
	})

	assert.Equal(t, "@functools.cache\nasync def fetch(self, timeout=5) -> int:\n    pass", text)
}

func TestRender_ClassDef(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "class Plain:\n    pass", render(t, unparse.Lenient, &pyast.ClassDef{Name: "Plain"}))

	text := render(t, unparse.Lenient, &pyast.ClassDef{
		Name:     "Child",
		Bases:    []pyast.Expr{name("Base"), &pyast.Attribute{Value: name("abc"), Attr: "ABC"}},
		Keywords: []pyast.Keyword{{Name: "metaclass", Value: name("Meta")}},
		Body: []pyast.Stmt{
			&pyast.FunctionDef{Name: "run", Params: []string{"self"}, Body: []pyast.Stmt{&pyast.Pass{}}},
		},
	})

	assert.Equal(t, "class Child(Base, abc.ABC, metaclass=Meta):\n    def run(self):\n        pass", text)
}

func TestRender_Imports(t *testing.T) {
	t.Parallel()

	text := render(t, unparse.Lenient,
		&pyast.Import{Names: []pyast.Alias{{Name: "os"}, {Name: "numpy", AsName: "np"}}},
		&pyast.ImportFrom{Module: "typing", Names: []pyast.Alias{{Name: "List"}, {Name: "Dict", AsName: "D"}}},
		&pyast.ImportFrom{Names: []pyast.Alias{{Name: "sibling"}}},
		&pyast.ImportFrom{Level: 2, Module: "pkg", Names: []pyast.Alias{{Name: "*"}}},
	)

	assert.Equal(t, "import os, numpy as np\n"+
		"from typing import List, Dict as D\n"+
		"from . import sibling\n"+
		"from ..pkg import *", text)
}

func TestRender_AssignReturnPassExpr(t *testing.T) {
	t.Parallel()

	text := render(t, unparse.Lenient,
		&pyast.Assign{Targets: []pyast.Expr{name("x")}, Value: pyast.NewNum(pyast.IntValue(42))},
		&pyast.Assign{Targets: []pyast.Expr{name("a"), name("b")}, Value: name("pair")},
		&pyast.Return{},
		&pyast.Return{Value: &pyast.NoneLit{}},
		&pyast.Pass{},
		&pyast.ExprStmt{Value: pyast.NewCall(name("print"), pyast.NewStr("hello"), &pyast.Bool{Value: true})},
	)

	assert.Equal(t, "x = 42\na, b = pair\nreturn\nreturn None\npass\nprint(\"hello\", True)", text)
}

func TestRender_TryExcept(t *testing.T) {
	t.Parallel()

	text := render(t, unparse.Lenient, &pyast.Try{
		Body: []pyast.Stmt{&pyast.Assign{
			Targets: []pyast.Expr{name("result")},
			Value:   pyast.NewCall(name("risky_operation")),
		}},
		Handlers: []pyast.ExceptHandler{
			{Type: name("ValueError"), Name: "err", Body: []pyast.Stmt{&pyast.Pass{}}},
			{Body: nil},
		},
		Orelse:    []pyast.Stmt{&pyast.ExprStmt{Value: pyast.NewCall(name("ok"))}},
		Finalbody: []pyast.Stmt{&pyast.ExprStmt{Value: pyast.NewCall(name("cleanup"))}},
	})

	assert.Equal(t, "try:\n"+
		"    result = risky_operation()\n"+
		"except ValueError as err:\n"+
		"    pass\n"+
		"except:\n"+
		"    pass\n"+
		"else:\n"+
		"    ok()\n"+
		"finally:\n"+
		"    cleanup()", text)
}

func TestQuote_EscapeOrder(t *testing.T) {
	t.Parallel()

	assert.Equal(t, `"plain"`, unparse.Quote("plain"))
	assert.Equal(t, `"a\\b"`, unparse.Quote(`a\b`))
	assert.Equal(t, `"say \"hi\""`, unparse.Quote(`say "hi"`))
	assert.Equal(t, `"l1\nl2\r\tx"`, unparse.Quote("l1\nl2\r\tx"))
	assert.Equal(t, `"\\n is not a newline"`, unparse.Quote(`\n is not a newline`))
	assert.Equal(t, `"it's"`, unparse.Quote("it's"))
}

func TestRender_Literals(t *testing.T) {
	t.Parallel()

	printer := unparse.New(unparse.Lenient)

	tests := []struct {
		expr pyast.Expr
		want string
	}{
		{pyast.NewNum(pyast.FloatValue(1.0)), "1.0"},
		{pyast.NewNum(pyast.ComplexValue(1, 2)), "(1+2j)"},
		{pyast.NewNum(pyast.ComplexValue(0, 2)), "2j"},
		{&pyast.Bool{Value: false}, "False"},
		{&pyast.NoneLit{}, "None"},
		{&pyast.Subscript{Value: name("items"), Index: pyast.NewNum(pyast.IntValue(0))}, "items[0]"},
		{&pyast.Attribute{Value: pyast.NewNum(pyast.IntValue(1)), Attr: "real"}, "(1).real"},
		{&pyast.Call{Func: name("f"), Args: []pyast.Expr{name("a")}, Keywords: []pyast.Keyword{
			{Name: "key", Value: pyast.NewStr("v")}, {Value: name("extra")},
		}}, `f(a, key="v", **extra)`},
	}

	for _, tt := range tests {
		got, err := printer.Expr(tt.expr)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestRender_Precedence(t *testing.T) {
	t.Parallel()

	bin := func(left pyast.Expr, op pyast.Operator, right pyast.Expr) *pyast.BinOp {
		return &pyast.BinOp{Left: left, Op: op, Right: right}
	}

	a, b, c := name("a"), name("b"), name("c")

	tests := []struct {
		expr pyast.Expr
		want string
	}{
		{bin(bin(a, pyast.Add, b), pyast.Mult, c), "(a + b) * c"},
		{bin(a, pyast.Add, bin(b, pyast.Mult, c)), "a + b * c"},
		{bin(bin(a, pyast.Sub, b), pyast.Sub, c), "a - b - c"},
		{bin(a, pyast.Sub, bin(b, pyast.Sub, c)), "a - (b - c)"},
		{bin(a, pyast.Pow, bin(b, pyast.Pow, c)), "a ** b ** c"},
		{bin(bin(a, pyast.Pow, b), pyast.Pow, c), "(a ** b) ** c"},
		{bin(pyast.NewNum(pyast.IntValue(-2)), pyast.Pow, pyast.NewNum(pyast.IntValue(2))), "(-2) ** 2"},
		{bin(pyast.NewNum(pyast.IntValue(2)), pyast.Pow, pyast.NewNum(pyast.IntValue(-1))), "2 ** -1"},
		{bin(a, pyast.BitOr, bin(b, pyast.BitAnd, c)), "a | b & c"},
		{bin(bin(a, pyast.BitOr, b), pyast.BitAnd, c), "(a | b) & c"},
		{bin(bin(a, pyast.Add, b), pyast.LShift, c), "a + b << c"},
		{&pyast.Attribute{Value: bin(a, pyast.Add, b), Attr: "real"}, "(a + b).real"},
		{pyast.NewCall(&pyast.Subscript{Value: a, Index: bin(b, pyast.FloorDiv, c)}), "a[b // c]()"},
		{bin(a, pyast.MatMult, bin(b, pyast.Mod, c)), "a @ (b % c)"},
	}

	printer := unparse.New(unparse.Lenient)

	for _, tt := range tests {
		got, err := printer.Expr(tt.expr)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestRender_LenientPlaceholders(t *testing.T) {
	t.Parallel()

	text := render(t, unparse.Lenient,
		&pyast.OpaqueStmt{Type: "for_statement", Text: "for x in y:\n    pass"},
		&pyast.FunctionDef{Name: "f", Body: []pyast.Stmt{
			&pyast.Assign{
				Targets: []pyast.Expr{name("x")},
				Value:   &pyast.OpaqueExpr{Type: "lambda", Text: "lambda: 1"},
			},
		}},
	)

	assert.Equal(t, "pass  # unsupported statement: for_statement\n"+
		"def f():\n"+
		"    x = ...  # unsupported expression: lambda", text)
}

func TestRender_StrictFailsWithKind(t *testing.T) {
	t.Parallel()

	mod := pyast.NewModule(
		&pyast.Import{Names: []pyast.Alias{{Name: "os"}}},
		&pyast.ClassDef{Name: "C", Body: []pyast.Stmt{
			&pyast.OpaqueStmt{Position: pyast.At(3, 5), Type: "while_statement"},
		}},
	)

	text, err := unparse.Render(mod, unparse.Strict)
	require.Error(t, err)
	assert.Empty(t, text)

	var structErr *pyast.StructureError
	require.ErrorAs(t, err, &structErr)
	assert.Equal(t, "while_statement", structErr.Kind)
	require.ErrorIs(t, err, pyast.ErrUnsupportedNode)

	_, err = unparse.New(unparse.Strict).Expr(&pyast.OpaqueExpr{Type: "lambda"})
	require.ErrorIs(t, err, pyast.ErrUnsupportedNode)
	assert.Contains(t, err.Error(), "lambda")
}

func TestRender_VerbatimReindents(t *testing.T) {
	t.Parallel()

	text := render(t, unparse.Verbatim,
		&pyast.ClassDef{Name: "C", Body: []pyast.Stmt{
			&pyast.OpaqueStmt{
				Position: pyast.At(2, 9),
				Type:     "if_statement",
				Text:     "if flag:\n            go()",
			},
			&pyast.Assign{
				Targets: []pyast.Expr{name("y")},
				Value:   &pyast.OpaqueExpr{Type: "list", Text: "[1, 2]"},
			},
		}},
		&pyast.OpaqueStmt{Type: "global_statement"},
	)

	assert.Equal(t, "class C:\n"+
		"    if flag:\n"+
		"        go()\n"+
		"    y = [1, 2]\n"+
		"pass  # unsupported statement: global_statement", text)
}

func TestRender_VerbatimParenthesizesLooseOperands(t *testing.T) {
	t.Parallel()

	expr := &pyast.BinOp{
		Left:  &pyast.OpaqueExpr{Type: "boolean_operator", Text: "a or b"},
		Op:    pyast.Add,
		Right: &pyast.OpaqueExpr{Type: "unary_operator", Text: "-c"},
	}

	got, err := unparse.New(unparse.Verbatim).Expr(expr)
	require.NoError(t, err)
	assert.Equal(t, "(a or b) + -c", got)
}

func TestRender_VerbatimSplicesOperands(t *testing.T) {
	t.Parallel()

	list := &pyast.OpaqueExpr{
		Type:     "list",
		Text:     "[x,  2]",
		Operands: []pyast.Expr{name("w"), pyast.NewNum(pyast.IntValue(2))},
		Spans:    []pyast.Span{{Start: 1, End: 2, Binding: pyast.PrecAtom}, {Start: 5, End: 6, Binding: pyast.PrecAtom}},
	}

	negation := &pyast.OpaqueExpr{
		Type:     "not_operator",
		Text:     "not x",
		Operands: []pyast.Expr{&pyast.BinOp{Left: name("a"), Op: pyast.Add, Right: name("b")}},
		Spans:    []pyast.Span{{Start: 4, End: 5, Binding: pyast.PrecAtom}},
	}

	text := render(t, unparse.Verbatim,
		&pyast.Assign{Targets: []pyast.Expr{name("y")}, Value: list},
		&pyast.ExprStmt{Value: negation},
	)

	assert.Equal(t, "y = [w,  2]\nnot (a + b)", text)
}

func TestRender_VerbatimKeepsTextWithoutSpans(t *testing.T) {
	t.Parallel()

	expr := &pyast.OpaqueExpr{
		Type:     "list",
		Text:     "[x]",
		Operands: []pyast.Expr{name("w")},
		Spans:    []pyast.Span{{Start: 1, End: 9}},
	}

	got, err := unparse.New(unparse.Verbatim).Expr(expr)
	require.NoError(t, err)
	assert.Equal(t, "[x]", got, "out of range span")

	expr.Spans = nil
	got, err = unparse.New(unparse.Verbatim).Expr(expr)
	require.NoError(t, err)
	assert.Equal(t, "[x]", got)
}

func TestRender_NilStatement(t *testing.T) {
	t.Parallel()

	body := []pyast.Stmt{&pyast.Pass{}, nil}

	text := render(t, unparse.Lenient, body...)
	assert.Equal(t, "pass\npass  # unsupported statement: <missing>", text)

	_, err := unparse.Render(pyast.NewModule(body...), unparse.Strict)
	require.ErrorIs(t, err, pyast.ErrUnsupportedNode)
}

func TestRender_EmptyModule(t *testing.T) {
	t.Parallel()

	assert.Empty(t, render(t, unparse.Strict))
}

func TestParseMode(t *testing.T) {
	t.Parallel()

	for _, mode := range []unparse.Mode{unparse.Lenient, unparse.Strict, unparse.Verbatim} {
		parsed, err := unparse.ParseMode(mode.String())
		require.NoError(t, err)
		assert.Equal(t, mode, parsed)
	}

	_, err := unparse.ParseMode("loose")
	require.ErrorIs(t, err, unparse.ErrUnknownMode)
}
