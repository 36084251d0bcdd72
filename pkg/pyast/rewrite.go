package pyast

// RewriteExprs replaces expressions throughout body in place. Children are
// rewritten before their parent, and fn's result takes the parent's slot.
// Statements in nested bodies are visited too.
func RewriteExprs(body []Stmt, fn func(Expr) Expr) {
	for _, stmt := range body {
		rewriteStmt(stmt, fn)
	}
}

// RewriteExpr rewrites a single expression tree and returns the new root.
func RewriteExpr(expr Expr, fn func(Expr) Expr) Expr {
	if expr == nil {
		return nil
	}

	switch node := expr.(type) {
	case *Call:
		node.Func = RewriteExpr(node.Func, fn)
		rewriteExprList(node.Args, fn)
		rewriteKeywords(node.Keywords, fn)
	case *BinOp:
		node.Left = RewriteExpr(node.Left, fn)
		node.Right = RewriteExpr(node.Right, fn)
	case *Attribute:
		node.Value = RewriteExpr(node.Value, fn)
	case *Subscript:
		node.Value = RewriteExpr(node.Value, fn)
		node.Index = RewriteExpr(node.Index, fn)
	case *OpaqueExpr:
		rewriteExprList(node.Operands, fn)
	}

	return fn(expr)
}

func rewriteStmt(stmt Stmt, fn func(Expr) Expr) {
	switch node := stmt.(type) {
	case *FunctionDef:
		rewriteExprList(node.Decorators, fn)
		node.Returns = RewriteExpr(node.Returns, fn)
		RewriteExprs(node.Body, fn)
	case *ClassDef:
		rewriteExprList(node.Decorators, fn)
		rewriteExprList(node.Bases, fn)
		rewriteKeywords(node.Keywords, fn)
		RewriteExprs(node.Body, fn)
	case *Assign:
		rewriteExprList(node.Targets, fn)
		node.Value = RewriteExpr(node.Value, fn)
	case *Return:
		node.Value = RewriteExpr(node.Value, fn)
	case *ExprStmt:
		node.Value = RewriteExpr(node.Value, fn)
	case *Try:
		RewriteExprs(node.Body, fn)

		for idx := range node.Handlers {
			node.Handlers[idx].Type = RewriteExpr(node.Handlers[idx].Type, fn)
			RewriteExprs(node.Handlers[idx].Body, fn)
		}

		RewriteExprs(node.Orelse, fn)
		RewriteExprs(node.Finalbody, fn)
	}
}

func rewriteExprList(exprs []Expr, fn func(Expr) Expr) {
	for idx, expr := range exprs {
		exprs[idx] = RewriteExpr(expr, fn)
	}
}

func rewriteKeywords(keywords []Keyword, fn func(Expr) Expr) {
	for idx := range keywords {
		keywords[idx].Value = RewriteExpr(keywords[idx].Value, fn)
	}
}
