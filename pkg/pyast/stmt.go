package pyast

import "strings"

// Stmt is a statement node. The set of implementations is closed; syntax
// outside it is carried by OpaqueStmt.
type Stmt interface {
	Node
	stmtNode()
}

// FunctionDef is a `def` statement. Params holds each parameter as
// written; for a plain parameter that is just its name.
type FunctionDef struct {
	Position
	Name       string
	Params     []string
	Body       []Stmt
	Decorators []Expr
	Returns    Expr
	Async      bool
}

// ClassDef is a `class` statement.
type ClassDef struct {
	Position
	Name       string
	Bases      []Expr
	Keywords   []Keyword
	Body       []Stmt
	Decorators []Expr
}

// Alias is one imported name with an optional `as` binding. An empty
// AsName means no alias.
type Alias struct {
	Name   string
	AsName string
}

// HasAlias reports whether the name is imported under an alias.
func (alias Alias) HasAlias() bool {
	return alias.AsName != ""
}

// BoundName returns the name the import binds in the importing scope.
// For `import a.b` that is `a`.
func (alias Alias) BoundName() string {
	if alias.AsName != "" {
		return alias.AsName
	}

	for idx := range len(alias.Name) {
		if alias.Name[idx] == '.' {
			return alias.Name[:idx]
		}
	}

	return alias.Name
}

// Import is `import a, b as c`.
type Import struct {
	Position
	Names []Alias
}

// ImportFrom is `from module import a, b as c`. Module is empty when the
// import has no source module (`from . import x`); Level counts leading
// dots of a relative import.
type ImportFrom struct {
	Position
	Module string
	Level  int
	Names  []Alias
}

// HasModule reports whether the import names a source module.
func (imp *ImportFrom) HasModule() bool {
	return imp.Module != ""
}

// Source returns the rendered source module: one dot per relative level
// followed by the module name, or "." when there is neither.
func (imp *ImportFrom) Source() string {
	source := strings.Repeat(".", imp.Level) + imp.Module
	if source == "" {
		return "."
	}

	return source
}

// Assign is `t1, t2 = value`.
type Assign struct {
	Position
	Targets []Expr
	Value   Expr
}

// Return is `return [value]`. Value is nil for a bare return.
type Return struct {
	Position
	Value Expr
}

// Pass is `pass`.
type Pass struct {
	Position
}

// ExprStmt is an expression evaluated for its side effects.
type ExprStmt struct {
	Position
	Value Expr
}

// ExceptHandler is one `except` clause. Type is nil for a bare except.
type ExceptHandler struct {
	Position
	Type Expr
	Name string
	Body []Stmt
}

// Try is a try statement with its four regions.
type Try struct {
	Position
	Body      []Stmt
	Handlers  []ExceptHandler
	Orelse    []Stmt
	Finalbody []Stmt
}

// OpaqueStmt is any statement outside the supported set. Type is the
// grammar's name for it; Text is the original source, when known.
type OpaqueStmt struct {
	Position
	Type string
	Text string
}

func (*FunctionDef) stmtNode() {}
func (*ClassDef) stmtNode()    {}
func (*Import) stmtNode()      {}
func (*ImportFrom) stmtNode()  {}
func (*Assign) stmtNode()      {}
func (*Return) stmtNode()      {}
func (*Pass) stmtNode()        {}
func (*ExprStmt) stmtNode()    {}
func (*Try) stmtNode()         {}
func (*OpaqueStmt) stmtNode()  {}

// Kind implements Node.
func (*FunctionDef) Kind() string { return KindFunctionDef }

// Kind implements Node.
func (*ClassDef) Kind() string { return KindClassDef }

// Kind implements Node.
func (*Import) Kind() string { return KindImport }

// Kind implements Node.
func (*ImportFrom) Kind() string { return KindImportFrom }

// Kind implements Node.
func (*Assign) Kind() string { return KindAssign }

// Kind implements Node.
func (*Return) Kind() string { return KindReturn }

// Kind implements Node.
func (*Pass) Kind() string { return KindPass }

// Kind implements Node.
func (*ExprStmt) Kind() string { return KindExprStmt }

// Kind implements Node.
func (*Try) Kind() string { return KindTry }

// Kind returns the grammar type of the unsupported statement.
func (stmt *OpaqueStmt) Kind() string { return stmt.Type }
