package query

import (
	"strings"

	"github.com/Sumatoshi-tech/pyrefactor/pkg/pyast"
)

// AssignmentRecord is one simple-identifier assignment target.
type AssignmentRecord struct {
	Target   string          `json:"target"`
	Ref      NodeRef         `json:"ref"`
	Location *pyast.Location `json:"location,omitempty"`
	Value    pyast.Expr      `json:"-"`
}

// FindAssignments returns identifier targets whose name contains filter.
// Tuple-unpacking and attribute or subscript targets are never matched.
func FindAssignments(mod *pyast.Module, filter string) []AssignmentRecord {
	var records []AssignmentRecord

	Walk(mod, func(ref NodeRef, stmt pyast.Stmt) bool {
		assign, ok := stmt.(*pyast.Assign)
		if !ok {
			return true
		}

		for _, target := range assign.Targets {
			ident, isName := target.(*pyast.Name)
			if !isName || !strings.Contains(ident.ID, filter) {
				continue
			}

			records = append(records, AssignmentRecord{
				Target:   ident.ID,
				Ref:      ref,
				Location: assign.Pos(),
				Value:    assign.Value,
			})
		}

		return true
	})

	return records
}
