package refactor

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/Sumatoshi-tech/pyrefactor/pkg/pyast"
	"github.com/Sumatoshi-tech/pyrefactor/pkg/query"
)

// resolve finds the block holding ref in work and checks the statement
// there is still of the kind the ref was taken from.
func resolve(op string, work *pyast.Module, ref query.NodeRef) (*[]pyast.Stmt, int, error) {
	block, idx, err := query.ResolveBlock(work, ref.Path)
	if err != nil {
		return nil, 0, &OperationError{Op: op, Message: fmt.Sprintf("Invalid node reference %s", ref), Err: errors.Join(ErrInvalidRef, err)}
	}

	if ref.Kind != "" && query.KindOf((*block)[idx]) != ref.Kind {
		return nil, 0, opError(op, ErrInvalidRef, "Stale node reference %s: expected %s, found %s",
			ref, ref.Kind, query.KindOf((*block)[idx]))
	}

	return block, idx, nil
}

// ReplaceNode swaps the statement at ref for stmt.
func (session *Session) ReplaceNode(ref query.NodeRef, stmt pyast.Stmt) error {
	return session.mutate(func(tx *txn) error {
		block, idx, err := resolve("replace_node", tx.work, ref)
		if err != nil {
			return err
		}

		old := (*block)[idx]
		(*block)[idx] = pyast.CloneStmt(stmt)

		tx.record(Change{
			Kind:        Custom,
			Description: fmt.Sprintf("Replaced %s at %s", kindOf(old), ref),
			Location:    old.Pos(),
		})

		return nil
	})
}

// InsertBefore inserts stmts ahead of the statement at ref.
func (session *Session) InsertBefore(ref query.NodeRef, stmts ...pyast.Stmt) error {
	return session.insert("insert_before", ref, 0, stmts)
}

// InsertAfter inserts stmts following the statement at ref.
func (session *Session) InsertAfter(ref query.NodeRef, stmts ...pyast.Stmt) error {
	return session.insert("insert_after", ref, 1, stmts)
}

func (session *Session) insert(op string, ref query.NodeRef, offset int, stmts []pyast.Stmt) error {
	return session.mutate(func(tx *txn) error {
		block, idx, err := resolve(op, tx.work, ref)
		if err != nil {
			return err
		}

		if len(stmts) == 0 {
			return nil
		}

		anchor := (*block)[idx]
		*block = slices.Insert(*block, idx+offset, pyast.CloneStmts(stmts)...)

		where := "before"
		if offset > 0 {
			where = "after"
		}

		tx.record(Change{
			Kind:        Custom,
			Description: fmt.Sprintf("Inserted %d statements %s %s at %s", len(stmts), where, kindOf(anchor), ref),
			Location:    anchor.Pos(),
		})

		return nil
	})
}

// RemoveNode deletes the statement at ref. A block left empty renders as
// `pass`.
func (session *Session) RemoveNode(ref query.NodeRef) error {
	return session.mutate(func(tx *txn) error {
		block, idx, err := resolve("remove_node", tx.work, ref)
		if err != nil {
			return err
		}

		old := (*block)[idx]
		*block = slices.Delete(*block, idx, idx+1)

		tx.record(Change{
			Kind:        Custom,
			Description: fmt.Sprintf("Removed %s at %s", kindOf(old), ref),
			Location:    old.Pos(),
		})

		return nil
	})
}

// AddStatement appends stmt to the module.
func (session *Session) AddStatement(stmt pyast.Stmt) error {
	if stmt == nil {
		return opError("add_statement", pyast.ErrUnsupportedNode, "Statement is missing")
	}

	return session.mutate(func(tx *txn) error {
		tx.work.Body = append(tx.work.Body, pyast.CloneStmt(stmt))

		tx.record(Change{Kind: Custom, Description: "Added " + kindOf(stmt) + " statement"})

		return nil
	})
}

// ApplyCustomTransform runs mutator against the tree and logs one change
// with the given description, whether or not the mutator edited anything.
// When the mutator fails nothing is applied or logged.
func (session *Session) ApplyCustomTransform(description string, mutator func(*pyast.Module) error) error {
	return session.mutate(func(tx *txn) error {
		if err := mutator(tx.work); err != nil {
			return fmt.Errorf("custom transform %q: %w", description, err)
		}

		tx.record(Change{Kind: Custom, Description: description})

		return nil
	})
}

// AddTypeHints sets return annotations from hints, keyed by function
// name, on functions and methods that have none. One change is logged per
// annotated function name.
func (session *Session) AddTypeHints(hints map[string]string) error {
	return session.mutate(func(tx *txn) error {
		for _, name := range slices.Sorted(maps.Keys(hints)) {
			hint := hints[name]
			annotated := 0

			tx.work.Inspect(func(node pyast.Node) bool {
				fn, ok := node.(*pyast.FunctionDef)
				if ok && fn.Name == name && fn.Returns == nil {
					fn.Returns = pyast.NewName(hint)
					annotated++
				}

				_, isExpr := node.(pyast.Expr)

				return !isExpr
			})

			if annotated == 0 {
				continue
			}

			tx.record(Change{
				Kind:        Custom,
				Description: fmt.Sprintf("Added type hint '%s' to function '%s'", hint, name),
				Old:         name,
				New:         hint,
			})
		}

		return nil
	})
}
