// Package pyast provides the in-memory syntax tree for Python modules: a
// closed set of statement and expression variants, each with an explicit
// opaque arm for syntax the model does not cover.
package pyast

// Kind names for statement variants, as returned by Node.Kind.
const (
	KindFunctionDef = "FunctionDef"
	KindClassDef    = "ClassDef"
	KindImport      = "Import"
	KindImportFrom  = "ImportFrom"
	KindAssign      = "Assign"
	KindReturn      = "Return"
	KindPass        = "Pass"
	KindExprStmt    = "Expr"
	KindTry         = "Try"
)

// Kind names for expression variants, as returned by Node.Kind.
const (
	KindName      = "Name"
	KindStr       = "Str"
	KindNum       = "Num"
	KindBool      = "Bool"
	KindNone      = "None"
	KindCall      = "Call"
	KindBinOp     = "BinOp"
	KindAttribute = "Attribute"
	KindSubscript = "Subscript"
)

// Location is a 1-based line/column position in the source the node was
// parsed from.
type Location struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// Position carries the optional source location of a node. Synthesized
// nodes have a nil Loc.
type Position struct {
	Loc *Location `json:"loc,omitempty"`
}

// Pos returns the source location, or nil.
func (p Position) Pos() *Location {
	return p.Loc
}

// At returns a Position for the given 1-based line and column.
func At(line, column int) Position {
	return Position{Loc: &Location{Line: line, Column: column}}
}

// Node is implemented by every statement and expression variant.
type Node interface {
	Pos() *Location
	Kind() string
}

// Module is the root of a parsed source file. Body order is significant.
type Module struct {
	Body []Stmt
}

// NewModule returns a module holding the given statements.
func NewModule(body ...Stmt) *Module {
	return &Module{Body: body}
}

// IsEmpty reports whether the module has no statements.
func (mod *Module) IsEmpty() bool {
	return len(mod.Body) == 0
}

// StatementCount returns the number of top-level statements.
func (mod *Module) StatementCount() int {
	return len(mod.Body)
}

// Clone returns a deep copy of the module.
func (mod *Module) Clone() *Module {
	return &Module{Body: CloneStmts(mod.Body)}
}

// FunctionNames returns the names of function definitions at module level
// and inside class bodies, in depth-first order. Functions nested inside
// other functions are not collected.
func (mod *Module) FunctionNames() []string {
	var names []string

	var collect func(body []Stmt)

	collect = func(body []Stmt) {
		for _, stmt := range body {
			switch def := stmt.(type) {
			case *FunctionDef:
				names = append(names, def.Name)
			case *ClassDef:
				collect(def.Body)
			}
		}
	}

	collect(mod.Body)

	return names
}

// ClassNames returns the names of top-level class definitions only.
// Use AllClassNames for nested classes too.
func (mod *Module) ClassNames() []string {
	var names []string

	for _, stmt := range mod.Body {
		if def, ok := stmt.(*ClassDef); ok {
			names = append(names, def.Name)
		}
	}

	return names
}

// AllClassNames returns class names collected depth-first through class
// bodies, matching the traversal used by FunctionNames.
func (mod *Module) AllClassNames() []string {
	var names []string

	var collect func(body []Stmt)

	collect = func(body []Stmt) {
		for _, stmt := range body {
			if def, ok := stmt.(*ClassDef); ok {
				names = append(names, def.Name)
				collect(def.Body)
			}
		}
	}

	collect(mod.Body)

	return names
}
