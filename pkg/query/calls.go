package query

import "github.com/Sumatoshi-tech/pyrefactor/pkg/pyast"

// CallRecord is one matching call expression.
type CallRecord struct {
	Name      string          `json:"name"`
	Attribute bool            `json:"attribute"`
	ArgCount  int             `json:"arg_count"`
	Ref       NodeRef         `json:"ref"`
	Location  *pyast.Location `json:"location,omitempty"`
	Call      *pyast.Call     `json:"-"`
}

// FindFunctionCalls returns calls whose callee is the identifier name, or
// an attribute access whose attribute is name, so both `f()` and `obj.f()`
// match. Calls nested anywhere inside a statement's expressions are found,
// e.g. the call in `get_x(y).attr`.
func FindFunctionCalls(mod *pyast.Module, name string) []CallRecord {
	var records []CallRecord

	Walk(mod, func(ref NodeRef, stmt pyast.Stmt) bool {
		for _, expr := range stmtExprs(stmt) {
			pyast.Inspect(expr, func(node pyast.Node) bool {
				call, ok := node.(*pyast.Call)
				if !ok || call.CalleeName() != name {
					return true
				}

				_, isAttr := call.Func.(*pyast.Attribute)

				records = append(records, CallRecord{
					Name:      name,
					Attribute: isAttr,
					ArgCount:  len(call.Args) + len(call.Keywords),
					Ref:       ref,
					Location:  call.Pos(),
					Call:      call,
				})

				return true
			})
		}

		return true
	})

	return records
}
