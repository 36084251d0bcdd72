package query

import (
	"slices"

	"github.com/Sumatoshi-tech/pyrefactor/pkg/pyast"
)

// Visitor is called for every statement in pre-order. Returning false
// skips the statement's nested blocks.
type Visitor func(ref NodeRef, stmt pyast.Stmt) bool

// Walk visits every statement of mod depth-first, descending into function
// and class bodies and all regions of try statements.
func Walk(mod *pyast.Module, visit Visitor) {
	walkBlock(mod.Body, nil, visit)
}

func walkBlock(body []pyast.Stmt, prefix []int, visit Visitor) {
	for idx, stmt := range body {
		if stmt == nil {
			continue
		}

		path := append(slices.Clip(prefix), idx)

		ref := NodeRef{Path: path, Kind: KindOf(stmt), Location: stmt.Pos()}
		if !visit(ref, stmt) {
			continue
		}

		switch node := stmt.(type) {
		case *pyast.FunctionDef:
			walkBlock(node.Body, path, visit)
		case *pyast.ClassDef:
			walkBlock(node.Body, path, visit)
		case *pyast.Try:
			for region, block := range tryBlocks(node) {
				walkBlock(*block, append(slices.Clip(path), region), visit)
			}
		case *pyast.Import, *pyast.ImportFrom, *pyast.Assign, *pyast.Return,
			*pyast.Pass, *pyast.ExprStmt, *pyast.OpaqueStmt:
		}
	}
}

// FindNodes returns a reference to every statement, or only those of the
// given kinds when any are passed.
func FindNodes(mod *pyast.Module, kinds ...NodeKind) []NodeRef {
	var refs []NodeRef

	Walk(mod, func(ref NodeRef, _ pyast.Stmt) bool {
		if len(kinds) == 0 || slices.Contains(kinds, ref.Kind) {
			refs = append(refs, ref)
		}

		return true
	})

	return refs
}

// stmtExprs returns the expressions owned directly by a statement, not
// those of nested statements.
func stmtExprs(stmt pyast.Stmt) []pyast.Expr {
	switch node := stmt.(type) {
	case *pyast.FunctionDef:
		exprs := slices.Clone(node.Decorators)
		if node.Returns != nil {
			exprs = append(exprs, node.Returns)
		}

		return exprs
	case *pyast.ClassDef:
		exprs := slices.Concat(node.Decorators, node.Bases)
		for _, kw := range node.Keywords {
			exprs = append(exprs, kw.Value)
		}

		return exprs
	case *pyast.Assign:
		return append(slices.Clone(node.Targets), node.Value)
	case *pyast.Return:
		if node.Value == nil {
			return nil
		}

		return []pyast.Expr{node.Value}
	case *pyast.ExprStmt:
		return []pyast.Expr{node.Value}
	case *pyast.Try:
		var exprs []pyast.Expr

		for _, handler := range node.Handlers {
			if handler.Type != nil {
				exprs = append(exprs, handler.Type)
			}
		}

		return exprs
	case *pyast.Import, *pyast.ImportFrom, *pyast.Pass, *pyast.OpaqueStmt:
		return nil
	default:
		return nil
	}
}
