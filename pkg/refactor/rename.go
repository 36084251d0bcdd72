package refactor

import (
	"fmt"
	"strings"

	"github.com/Sumatoshi-tech/pyrefactor/pkg/pyast"
)

// RenameFunction renames every top-level function named oldName. Methods
// and nested functions are left alone, as are call sites.
func (session *Session) RenameFunction(oldName, newName string) error {
	return session.mutate(func(tx *txn) error {
		var first *pyast.Location

		for _, stmt := range tx.work.Body {
			if fn, ok := stmt.(*pyast.FunctionDef); ok && fn.Name == oldName {
				fn.Name = newName

				if first == nil {
					first = fn.Pos()
				}
			}
		}

		if first == nil {
			return opError("rename_function", ErrNotFound, "Function '%s' not found", oldName)
		}

		tx.record(Change{
			Kind:        FunctionRenamed,
			Description: fmt.Sprintf("Renamed function '%s' to '%s'", oldName, newName),
			Old:         oldName,
			New:         newName,
			Location:    first,
		})

		return nil
	})
}

// RenameClass renames every top-level class named oldName.
func (session *Session) RenameClass(oldName, newName string) error {
	return session.mutate(func(tx *txn) error {
		var first *pyast.Location

		for _, stmt := range tx.work.Body {
			if class, ok := stmt.(*pyast.ClassDef); ok && class.Name == oldName {
				class.Name = newName

				if first == nil {
					first = class.Pos()
				}
			}
		}

		if first == nil {
			return opError("rename_class", ErrNotFound, "Class '%s' not found", oldName)
		}

		tx.record(Change{
			Kind:        ClassRenamed,
			Description: fmt.Sprintf("Renamed class '%s' to '%s'", oldName, newName),
			Old:         oldName,
			New:         newName,
			Location:    first,
		})

		return nil
	})
}

// RenameVariable renames identifier references to oldName, both targets
// and loads. Function bodies that bind oldName as a parameter keep their
// own binding. Opaque statements are not rewritten.
func (session *Session) RenameVariable(oldName, newName string) error {
	return session.mutate(func(tx *txn) error {
		count := renameInBody(tx.work.Body, oldName, newName)
		if count == 0 {
			return opError("rename_variable", ErrNotFound, "Variable '%s' not found", oldName)
		}

		tx.record(Change{
			Kind:        VariableRenamed,
			Description: fmt.Sprintf("Renamed variable '%s' to '%s'", oldName, newName),
			Old:         oldName,
			New:         newName,
		})

		return nil
	})
}

func renameInBody(body []pyast.Stmt, oldName, newName string) int {
	count := 0

	rename := func(expr pyast.Expr) pyast.Expr {
		if name, ok := expr.(*pyast.Name); ok && name.ID == oldName {
			name.ID = newName
			count++
		}

		return expr
	}

	for _, stmt := range body {
		switch node := stmt.(type) {
		case *pyast.FunctionDef:
			for idx, dec := range node.Decorators {
				node.Decorators[idx] = pyast.RewriteExpr(dec, rename)
			}

			node.Returns = pyast.RewriteExpr(node.Returns, rename)

			if !bindsParam(node.Params, oldName) {
				count += renameInBody(node.Body, oldName, newName)
			}
		case *pyast.ClassDef:
			shallow := *node
			shallow.Body = nil
			pyast.RewriteExprs([]pyast.Stmt{&shallow}, rename)
			node.Decorators, node.Bases, node.Keywords = shallow.Decorators, shallow.Bases, shallow.Keywords

			count += renameInBody(node.Body, oldName, newName)
		case *pyast.Try:
			count += renameInBody(node.Body, oldName, newName)

			for idx := range node.Handlers {
				handler := &node.Handlers[idx]
				handler.Type = pyast.RewriteExpr(handler.Type, rename)

				if handler.Name == oldName {
					handler.Name = newName
					count++
				}

				count += renameInBody(handler.Body, oldName, newName)
			}

			count += renameInBody(node.Orelse, oldName, newName)
			count += renameInBody(node.Finalbody, oldName, newName)
		default:
			pyast.RewriteExprs([]pyast.Stmt{stmt}, rename)
		}
	}

	return count
}

// paramName strips stars, annotation and default from a parameter as
// written.
func paramName(param string) string {
	name := strings.TrimLeft(param, "*")
	if idx := strings.IndexAny(name, ":="); idx >= 0 {
		name = name[:idx]
	}

	return strings.TrimSpace(name)
}

func bindsParam(params []string, name string) bool {
	for _, param := range params {
		if paramName(param) == name {
			return true
		}
	}

	return false
}
