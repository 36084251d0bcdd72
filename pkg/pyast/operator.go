package pyast

// Operator is one of the thirteen binary operators.
type Operator int

// Binary operators.
const (
	Add Operator = iota
	Sub
	Mult
	Div
	Mod
	Pow
	LShift
	RShift
	BitOr
	BitXor
	BitAnd
	FloorDiv
	MatMult
)

var operatorTokens = [...]string{
	Add:      "+",
	Sub:      "-",
	Mult:     "*",
	Div:      "/",
	Mod:      "%",
	Pow:      "**",
	LShift:   "<<",
	RShift:   ">>",
	BitOr:    "|",
	BitXor:   "^",
	BitAnd:   "&",
	FloorDiv: "//",
	MatMult:  "@",
}

// Binding strengths, loosest first. Unary minus sits between
// multiplicative operators and power.
const (
	PrecBitOr = iota + 1
	PrecBitXor
	PrecBitAnd
	PrecShift
	PrecAdditive
	PrecMultiplicative
	PrecUnary
	PrecPower
	PrecAtom
)

// String returns the source token of the operator.
func (op Operator) String() string {
	if op < 0 || int(op) >= len(operatorTokens) {
		return "?"
	}

	return operatorTokens[op]
}

// Valid reports whether op is one of the defined operators.
func (op Operator) Valid() bool {
	return op >= 0 && int(op) < len(operatorTokens)
}

// Precedence returns the binding strength of the operator.
func (op Operator) Precedence() int {
	switch op {
	case BitOr:
		return PrecBitOr
	case BitXor:
		return PrecBitXor
	case BitAnd:
		return PrecBitAnd
	case LShift, RShift:
		return PrecShift
	case Add, Sub:
		return PrecAdditive
	case Mult, Div, Mod, FloorDiv, MatMult:
		return PrecMultiplicative
	case Pow:
		return PrecPower
	default:
		return PrecAtom
	}
}

// Binding returns how tightly expr binds in canonical form: the operator
// strength for binary operations, unary strength for negative literals and
// atom strength for the other modelled expressions. Opaque expressions
// report zero.
func Binding(expr Expr) int {
	switch node := expr.(type) {
	case *BinOp:
		return node.Op.Precedence()
	case *Num:
		if node.Value.negative() {
			return PrecUnary
		}

		return PrecAtom
	case *OpaqueExpr:
		return 0
	default:
		return PrecAtom
	}
}

// RightAssociative reports whether the operator groups right to left.
// Only `**` does.
func (op Operator) RightAssociative() bool {
	return op == Pow
}

// ParseOperator maps a source token to its operator.
func ParseOperator(token string) (Operator, bool) {
	for idx, tok := range operatorTokens {
		if tok == token {
			return Operator(idx), true
		}
	}

	return 0, false
}
