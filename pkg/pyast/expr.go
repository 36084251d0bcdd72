package pyast

// Expr is an expression node. The set of implementations is closed; syntax
// outside it is carried by OpaqueExpr.
type Expr interface {
	Node
	exprNode()
}

// Name is an identifier reference.
type Name struct {
	Position
	ID string
}

// Str is a string literal holding the decoded value.
type Str struct {
	Position
	Value string
}

// Num is a numeric literal.
type Num struct {
	Position
	Value Number
}

// Bool is True or False.
type Bool struct {
	Position
	Value bool
}

// NoneLit is None.
type NoneLit struct {
	Position
}

// Keyword is a `name=value` argument. An empty Name marks `**value`.
type Keyword struct {
	Name  string
	Value Expr
}

// Call is a call with positional arguments followed by keyword arguments.
type Call struct {
	Position
	Func     Expr
	Args     []Expr
	Keywords []Keyword
}

// BinOp is `left op right`.
type BinOp struct {
	Position
	Left  Expr
	Op    Operator
	Right Expr
}

// Attribute is `value.attr`.
type Attribute struct {
	Position
	Value Expr
	Attr  string
}

// Subscript is `value[index]`.
type Subscript struct {
	Position
	Value Expr
	Index Expr
}

// OpaqueExpr is any expression outside the supported set. Operands holds
// the sub-expressions that were understood, so traversals can still reach
// calls and names nested in unary, comparison, boolean and similar forms.
// Spans, when parallel to Operands, locates each operand inside Text.
type OpaqueExpr struct {
	Position
	Type     string
	Text     string
	Operands []Expr
	Spans    []Span
}

// Span is the byte range of one operand within its opaque parent's Text.
// Binding is how tightly the original operand bound, so a replacement that
// binds looser can be parenthesized.
type Span struct {
	Start   int
	End     int
	Binding int
}

func (*Name) exprNode()       {}
func (*Str) exprNode()        {}
func (*Num) exprNode()        {}
func (*Bool) exprNode()       {}
func (*NoneLit) exprNode()    {}
func (*Call) exprNode()       {}
func (*BinOp) exprNode()      {}
func (*Attribute) exprNode()  {}
func (*Subscript) exprNode()  {}
func (*OpaqueExpr) exprNode() {}

// Kind implements Node.
func (*Name) Kind() string { return KindName }

// Kind implements Node.
func (*Str) Kind() string { return KindStr }

// Kind implements Node.
func (*Num) Kind() string { return KindNum }

// Kind implements Node.
func (*Bool) Kind() string { return KindBool }

// Kind implements Node.
func (*NoneLit) Kind() string { return KindNone }

// Kind implements Node.
func (*Call) Kind() string { return KindCall }

// Kind implements Node.
func (*BinOp) Kind() string { return KindBinOp }

// Kind implements Node.
func (*Attribute) Kind() string { return KindAttribute }

// Kind implements Node.
func (*Subscript) Kind() string { return KindSubscript }

// Kind returns the grammar type of the unsupported expression.
func (expr *OpaqueExpr) Kind() string { return expr.Type }

// NewName returns a synthesized identifier.
func NewName(id string) *Name {
	return &Name{ID: id}
}

// NewStr returns a synthesized string literal.
func NewStr(value string) *Str {
	return &Str{Value: value}
}

// NewCall returns a synthesized call with positional arguments.
func NewCall(fn Expr, args ...Expr) *Call {
	return &Call{Func: fn, Args: args}
}

// CalleeName returns the identifier a call resolves through: the name of
// a bare identifier callee, or the attribute name of an attribute callee.
func (call *Call) CalleeName() string {
	switch fn := call.Func.(type) {
	case *Name:
		return fn.ID
	case *Attribute:
		return fn.Attr
	default:
		return ""
	}
}
