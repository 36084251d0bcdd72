package pyast_test

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Sumatoshi-tech/pyrefactor/pkg/pyast"
)

func TestFormatFloat_MatchesPythonRepr(t *testing.T) {
	t.Parallel()

	tests := []struct {
		value float64
		want  string
	}{
		{1.0, "1.0"},
		{0.1, "0.1"},
		{2.5, "2.5"},
		{1234567.0, "1234567.0"},
		{0.0001, "0.0001"},
		{1e-05, "1e-05"},
		{1.5e-07, "1.5e-07"},
		{1e16, "1e+16"},
		{1e15, "1000000000000000.0"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, pyast.FormatFloat(tt.value), "value %v", tt.value)
	}
}

func TestNumber_String(t *testing.T) {
	t.Parallel()

	huge, ok := new(big.Int).SetString("123456789012345678901234567890", 10)
	assert.True(t, ok)

	assert.Equal(t, "42", pyast.IntValue(42).String())
	assert.Equal(t, "123456789012345678901234567890", pyast.BigIntValue(huge).String())
	assert.Equal(t, "3.14", pyast.FloatValue(3.14).String())
	assert.Equal(t, "(1+2j)", pyast.ComplexValue(1, 2).String())
	assert.Equal(t, "(1.5-2j)", pyast.ComplexValue(1.5, -2).String())
	assert.Equal(t, "3j", pyast.ComplexValue(0, 3).String())
	assert.Equal(t, "0.5j", pyast.ComplexValue(0, 0.5).String())
	assert.Equal(t, "0", pyast.Number{}.String())
}

func TestNumber_Equal(t *testing.T) {
	t.Parallel()

	assert.True(t, pyast.IntValue(7).Equal(pyast.BigIntValue(big.NewInt(7))))
	assert.False(t, pyast.IntValue(7).Equal(pyast.FloatValue(7)))
	assert.True(t, pyast.ComplexValue(0, 1).Equal(pyast.ComplexValue(0, 1)))
	assert.False(t, pyast.FloatValue(0.1).Equal(pyast.FloatValue(0.2)))
}

func TestOperator_TokensAndPrecedence(t *testing.T) {
	t.Parallel()

	tokens := []string{"+", "-", "*", "/", "%", "**", "<<", ">>", "|", "^", "&", "//", "@"}

	for idx, tok := range tokens {
		op, ok := pyast.ParseOperator(tok)
		assert.True(t, ok, tok)
		assert.Equal(t, pyast.Operator(idx), op)
		assert.Equal(t, tok, op.String())
	}

	_, ok := pyast.ParseOperator("and")
	assert.False(t, ok)

	assert.Greater(t, pyast.Mult.Precedence(), pyast.Add.Precedence())
	assert.Greater(t, pyast.Pow.Precedence(), pyast.Mult.Precedence())
	assert.Greater(t, pyast.BitAnd.Precedence(), pyast.BitXor.Precedence())
	assert.Greater(t, pyast.BitXor.Precedence(), pyast.BitOr.Precedence())
	assert.True(t, pyast.Pow.RightAssociative())
	assert.False(t, pyast.Sub.RightAssociative())
	assert.False(t, pyast.Operator(99).Valid())
}

func TestBinding(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		expr pyast.Expr
		want int
	}{
		{"name", pyast.NewName("x"), pyast.PrecAtom},
		{"sum", &pyast.BinOp{Left: pyast.NewName("a"), Op: pyast.Add, Right: pyast.NewName("b")}, pyast.PrecAdditive},
		{"negative int", pyast.NewNum(pyast.IntValue(-3)), pyast.PrecUnary},
		{"positive float", pyast.NewNum(pyast.FloatValue(2.5)), pyast.PrecAtom},
		{"negative imaginary", pyast.NewNum(pyast.ComplexValue(0, -2)), pyast.PrecUnary},
		{"parenthesized complex", pyast.NewNum(pyast.ComplexValue(1, -2)), pyast.PrecAtom},
		{"opaque", &pyast.OpaqueExpr{Type: "lambda", Text: "lambda: 0"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, pyast.Binding(tt.expr))
		})
	}
}
