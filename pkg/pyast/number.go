package pyast

import (
	"math"
	"math/big"
	"strconv"
	"strings"
)

// NumberKind distinguishes the numeric literal forms.
type NumberKind int

// Numeric literal forms.
const (
	IntNumber NumberKind = iota
	FloatNumber
	ComplexNumber
)

// Exponent bounds outside which floats render in scientific notation.
const (
	minFixedExponent = -4
	maxFixedExponent = 15
)

// Number is the value of a numeric literal. Integers are arbitrary
// precision.
type Number struct {
	Kind  NumberKind
	Int   *big.Int
	Float float64
	Real  float64
	Imag  float64
}

// IntValue returns an integer number.
func IntValue(v int64) Number {
	return Number{Kind: IntNumber, Int: big.NewInt(v)}
}

// BigIntValue returns an integer number backed by v.
func BigIntValue(v *big.Int) Number {
	return Number{Kind: IntNumber, Int: new(big.Int).Set(v)}
}

// FloatValue returns a float number.
func FloatValue(v float64) Number {
	return Number{Kind: FloatNumber, Float: v}
}

// ComplexValue returns a complex number.
func ComplexValue(re, im float64) Number {
	return Number{Kind: ComplexNumber, Real: re, Imag: im}
}

// NewNum returns a synthesized numeric literal.
func NewNum(value Number) *Num {
	return &Num{Value: value}
}

// String returns the canonical source form: decimal integers, Python repr
// style floats, and `(real+imagj)` for complex values. A complex value with
// a zero real part renders as a bare imaginary literal.
func (num Number) String() string {
	switch num.Kind {
	case IntNumber:
		if num.Int == nil {
			return "0"
		}

		return num.Int.String()
	case FloatNumber:
		return FormatFloat(num.Float)
	case ComplexNumber:
		imagText := formatComplexPart(num.Imag) + "j"
		if num.Real == 0 && !math.Signbit(num.Real) {
			return imagText
		}

		sign := "+"
		if num.Imag < 0 || math.Signbit(num.Imag) {
			sign = "-"
			imagText = formatComplexPart(-num.Imag) + "j"
		}

		return "(" + formatComplexPart(num.Real) + sign + imagText + ")"
	default:
		return "0"
	}
}

// negative reports whether the canonical form starts with a minus sign.
func (num Number) negative() bool {
	switch num.Kind {
	case IntNumber:
		return num.Int != nil && num.Int.Sign() < 0
	case FloatNumber:
		return !math.IsNaN(num.Float) && math.Signbit(num.Float)
	case ComplexNumber:
		return num.Real == 0 && !math.Signbit(num.Real) && math.Signbit(num.Imag)
	default:
		return false
	}
}

// Equal reports whether two numbers have the same form and value.
func (num Number) Equal(other Number) bool {
	if num.Kind != other.Kind {
		return false
	}

	switch num.Kind {
	case IntNumber:
		left, right := num.Int, other.Int
		if left == nil {
			left = new(big.Int)
		}

		if right == nil {
			right = new(big.Int)
		}

		return left.Cmp(right) == 0
	case FloatNumber:
		return num.Float == other.Float
	case ComplexNumber:
		return num.Real == other.Real && num.Imag == other.Imag
	default:
		return false
	}
}

// FormatFloat renders a float the way Python's repr does: the shortest
// round-tripping digits, fixed notation for moderate exponents with a
// trailing ".0" for integral values, scientific notation otherwise.
func FormatFloat(value float64) string {
	switch {
	case math.IsInf(value, 1):
		return "1e309"
	case math.IsInf(value, -1):
		return "-1e309"
	case math.IsNaN(value):
		return `float("nan")`
	}

	sci := strconv.FormatFloat(value, 'e', -1, 64)

	exp := 0
	if idx := strings.IndexByte(sci, 'e'); idx >= 0 {
		exp, _ = strconv.Atoi(sci[idx+1:])
	}

	if exp < minFixedExponent || exp > maxFixedExponent {
		return sci
	}

	fixed := strconv.FormatFloat(value, 'f', -1, 64)
	if !strings.ContainsRune(fixed, '.') {
		fixed += ".0"
	}

	return fixed
}

func formatComplexPart(value float64) string {
	text := FormatFloat(value)

	return strings.TrimSuffix(text, ".0")
}

// Negate returns the value with its sign flipped, as a leading minus in
// source would. A zero real part of a complex value stays positive so the
// result still renders as a bare imaginary literal.
func (num Number) Negate() Number {
	switch num.Kind {
	case IntNumber:
		out := new(big.Int)
		if num.Int != nil {
			out.Neg(num.Int)
		}

		return Number{Kind: IntNumber, Int: out}
	case FloatNumber:
		return FloatValue(-num.Float)
	case ComplexNumber:
		re := num.Real
		if re != 0 {
			re = -re
		}

		return ComplexValue(re, -num.Imag)
	default:
		return num
	}
}
