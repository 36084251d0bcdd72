package pyast

import (
	"math/big"
	"slices"
)

// CloneStmts deep-copies a statement list. A nil list stays nil.
func CloneStmts(body []Stmt) []Stmt {
	if body == nil {
		return nil
	}

	out := make([]Stmt, len(body))
	for idx, stmt := range body {
		out[idx] = CloneStmt(stmt)
	}

	return out
}

// CloneExprs deep-copies an expression list. A nil list stays nil.
func CloneExprs(exprs []Expr) []Expr {
	if exprs == nil {
		return nil
	}

	out := make([]Expr, len(exprs))
	for idx, expr := range exprs {
		out[idx] = CloneExpr(expr)
	}

	return out
}

// CloneStmt returns a deep copy of stmt.
func CloneStmt(stmt Stmt) Stmt {
	switch node := stmt.(type) {
	case nil:
		return nil
	case *FunctionDef:
		dup := *node
		dup.Position = clonePosition(node.Position)
		dup.Params = cloneStrings(node.Params)
		dup.Body = CloneStmts(node.Body)
		dup.Decorators = CloneExprs(node.Decorators)
		dup.Returns = CloneExpr(node.Returns)

		return &dup
	case *ClassDef:
		dup := *node
		dup.Position = clonePosition(node.Position)
		dup.Bases = CloneExprs(node.Bases)
		dup.Keywords = cloneKeywords(node.Keywords)
		dup.Body = CloneStmts(node.Body)
		dup.Decorators = CloneExprs(node.Decorators)

		return &dup
	case *Import:
		return &Import{Position: clonePosition(node.Position), Names: cloneAliases(node.Names)}
	case *ImportFrom:
		return &ImportFrom{
			Position: clonePosition(node.Position),
			Module:   node.Module,
			Level:    node.Level,
			Names:    cloneAliases(node.Names),
		}
	case *Assign:
		return &Assign{
			Position: clonePosition(node.Position),
			Targets:  CloneExprs(node.Targets),
			Value:    CloneExpr(node.Value),
		}
	case *Return:
		return &Return{Position: clonePosition(node.Position), Value: CloneExpr(node.Value)}
	case *Pass:
		return &Pass{Position: clonePosition(node.Position)}
	case *ExprStmt:
		return &ExprStmt{Position: clonePosition(node.Position), Value: CloneExpr(node.Value)}
	case *Try:
		handlers := make([]ExceptHandler, len(node.Handlers))
		for idx, handler := range node.Handlers {
			handlers[idx] = ExceptHandler{
				Position: clonePosition(handler.Position),
				Type:     CloneExpr(handler.Type),
				Name:     handler.Name,
				Body:     CloneStmts(handler.Body),
			}
		}

		return &Try{
			Position:  clonePosition(node.Position),
			Body:      CloneStmts(node.Body),
			Handlers:  handlers,
			Orelse:    CloneStmts(node.Orelse),
			Finalbody: CloneStmts(node.Finalbody),
		}
	case *OpaqueStmt:
		dup := *node
		dup.Position = clonePosition(node.Position)

		return &dup
	default:
		return stmt
	}
}

// CloneExpr returns a deep copy of expr.
func CloneExpr(expr Expr) Expr {
	switch node := expr.(type) {
	case nil:
		return nil
	case *Name:
		return &Name{Position: clonePosition(node.Position), ID: node.ID}
	case *Str:
		return &Str{Position: clonePosition(node.Position), Value: node.Value}
	case *Num:
		value := node.Value
		if value.Int != nil {
			value.Int = new(big.Int).Set(value.Int)
		}

		return &Num{Position: clonePosition(node.Position), Value: value}
	case *Bool:
		return &Bool{Position: clonePosition(node.Position), Value: node.Value}
	case *NoneLit:
		return &NoneLit{Position: clonePosition(node.Position)}
	case *Call:
		return &Call{
			Position: clonePosition(node.Position),
			Func:     CloneExpr(node.Func),
			Args:     CloneExprs(node.Args),
			Keywords: cloneKeywords(node.Keywords),
		}
	case *BinOp:
		return &BinOp{
			Position: clonePosition(node.Position),
			Left:     CloneExpr(node.Left),
			Op:       node.Op,
			Right:    CloneExpr(node.Right),
		}
	case *Attribute:
		return &Attribute{Position: clonePosition(node.Position), Value: CloneExpr(node.Value), Attr: node.Attr}
	case *Subscript:
		return &Subscript{
			Position: clonePosition(node.Position),
			Value:    CloneExpr(node.Value),
			Index:    CloneExpr(node.Index),
		}
	case *OpaqueExpr:
		return &OpaqueExpr{
			Position: clonePosition(node.Position),
			Type:     node.Type,
			Text:     node.Text,
			Operands: CloneExprs(node.Operands),
			Spans:    slices.Clone(node.Spans),
		}
	default:
		return expr
	}
}

func clonePosition(pos Position) Position {
	if pos.Loc == nil {
		return Position{}
	}

	loc := *pos.Loc

	return Position{Loc: &loc}
}

func cloneStrings(values []string) []string {
	if values == nil {
		return nil
	}

	return append([]string(nil), values...)
}

func cloneAliases(aliases []Alias) []Alias {
	if aliases == nil {
		return nil
	}

	return append([]Alias(nil), aliases...)
}

func cloneKeywords(keywords []Keyword) []Keyword {
	if keywords == nil {
		return nil
	}

	out := make([]Keyword, len(keywords))
	for idx, kw := range keywords {
		out[idx] = Keyword{Name: kw.Name, Value: CloneExpr(kw.Value)}
	}

	return out
}
