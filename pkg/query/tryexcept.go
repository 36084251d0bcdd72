package query

import (
	"slices"

	"github.com/Sumatoshi-tech/pyrefactor/pkg/pyast"
)

// TryExceptRecord summarizes one try statement.
type TryExceptRecord struct {
	ExceptionTypes []string        `json:"exception_types"`
	HandlerCount   int             `json:"handler_count"`
	HasElse        bool            `json:"has_else"`
	HasFinally     bool            `json:"has_finally"`
	Ref            NodeRef         `json:"ref"`
	Location       *pyast.Location `json:"location,omitempty"`
	Try            *pyast.Try      `json:"-"`
}

// FindTryExceptBlocks returns one record per try statement. When
// exceptionType is non-empty only statements with a handler naming that
// type are kept.
func FindTryExceptBlocks(mod *pyast.Module, exceptionType string) []TryExceptRecord {
	var records []TryExceptRecord

	Walk(mod, func(ref NodeRef, stmt pyast.Stmt) bool {
		node, ok := stmt.(*pyast.Try)
		if !ok {
			return true
		}

		types := HandlerTypeNames(node)
		if exceptionType != "" && !slices.Contains(types, exceptionType) {
			return true
		}

		records = append(records, TryExceptRecord{
			ExceptionTypes: types,
			HandlerCount:   len(node.Handlers),
			HasElse:        len(node.Orelse) > 0,
			HasFinally:     len(node.Finalbody) > 0,
			Ref:            ref,
			Location:       node.Pos(),
			Try:            node,
		})

		return true
	})

	return records
}

// HandlerTypeNames returns the identifier-form exception types named by
// the handlers of a try statement, in handler order. A parenthesized tuple
// of identifiers contributes each identifier; other forms such as
// `module.Error` are skipped.
func HandlerTypeNames(node *pyast.Try) []string {
	var names []string

	for _, handler := range node.Handlers {
		names = appendTypeNames(names, handler.Type)
	}

	return names
}

// HandlerCatches reports whether a handler names exceptionType.
func HandlerCatches(handler pyast.ExceptHandler, exceptionType string) bool {
	return slices.Contains(appendTypeNames(nil, handler.Type), exceptionType)
}

func appendTypeNames(names []string, typ pyast.Expr) []string {
	switch node := typ.(type) {
	case *pyast.Name:
		return append(names, node.ID)
	case *pyast.OpaqueExpr:
		if node.Type != "tuple" {
			return names
		}

		for _, operand := range node.Operands {
			if ident, ok := operand.(*pyast.Name); ok {
				names = append(names, ident.ID)
			}
		}

		return names
	default:
		return names
	}
}
