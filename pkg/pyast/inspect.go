package pyast

// Inspect traverses the tree rooted at node in depth-first pre-order,
// calling fn for each node. If fn returns false the children of that node
// are skipped. Nil nodes are ignored.
func Inspect(node Node, fn func(Node) bool) {
	if node == nil || !fn(node) {
		return
	}

	switch typed := node.(type) {
	case *FunctionDef:
		inspectExprs(typed.Decorators, fn)
		inspectExpr(typed.Returns, fn)
		inspectStmts(typed.Body, fn)
	case *ClassDef:
		inspectExprs(typed.Decorators, fn)
		inspectExprs(typed.Bases, fn)
		inspectKeywords(typed.Keywords, fn)
		inspectStmts(typed.Body, fn)
	case *Assign:
		inspectExprs(typed.Targets, fn)
		inspectExpr(typed.Value, fn)
	case *Return:
		inspectExpr(typed.Value, fn)
	case *ExprStmt:
		inspectExpr(typed.Value, fn)
	case *Try:
		inspectStmts(typed.Body, fn)

		for _, handler := range typed.Handlers {
			inspectExpr(handler.Type, fn)
			inspectStmts(handler.Body, fn)
		}

		inspectStmts(typed.Orelse, fn)
		inspectStmts(typed.Finalbody, fn)
	case *Import, *ImportFrom, *Pass, *OpaqueStmt:
	case *Call:
		inspectExpr(typed.Func, fn)
		inspectExprs(typed.Args, fn)
		inspectKeywords(typed.Keywords, fn)
	case *BinOp:
		inspectExpr(typed.Left, fn)
		inspectExpr(typed.Right, fn)
	case *Attribute:
		inspectExpr(typed.Value, fn)
	case *Subscript:
		inspectExpr(typed.Value, fn)
		inspectExpr(typed.Index, fn)
	case *OpaqueExpr:
		inspectExprs(typed.Operands, fn)
	case *Name, *Str, *Num, *Bool, *NoneLit:
	}
}

// Inspect traverses every top-level statement of the module in order.
func (mod *Module) Inspect(fn func(Node) bool) {
	inspectStmts(mod.Body, fn)
}

func inspectStmts(body []Stmt, fn func(Node) bool) {
	for _, stmt := range body {
		if stmt != nil {
			Inspect(stmt, fn)
		}
	}
}

func inspectExprs(exprs []Expr, fn func(Node) bool) {
	for _, expr := range exprs {
		inspectExpr(expr, fn)
	}
}

func inspectExpr(expr Expr, fn func(Node) bool) {
	if expr != nil {
		Inspect(expr, fn)
	}
}

func inspectKeywords(keywords []Keyword, fn func(Node) bool) {
	for _, kw := range keywords {
		inspectExpr(kw.Value, fn)
	}
}
