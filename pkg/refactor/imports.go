package refactor

import (
	"fmt"
	"slices"
	"strings"

	"github.com/Sumatoshi-tech/pyrefactor/pkg/pyast"
)

// ImportMapping is a legacy module and its modern replacement.
type ImportMapping struct {
	Old string
	New string
}

// LegacyImports is the table applied by ModernizeImports.
var LegacyImports = []ImportMapping{
	{Old: "imp", New: "importlib"},
	{Old: "optparse", New: "argparse"},
	{Old: "ConfigParser", New: "configparser"},
	{Old: "StringIO", New: "io"},
	{Old: "cPickle", New: "pickle"},
	{Old: "urllib2", New: "urllib.request"},
	{Old: "urlparse", New: "urllib.parse"},
}

// ReplaceImport rewrites `import oldModule` names and `from oldModule
// import ...` sources to newModule, at any depth. A change is recorded only
// when something was rewritten.
func (session *Session) ReplaceImport(oldModule, newModule string) error {
	return session.mutate(func(tx *txn) error {
		replaceImport(tx, oldModule, newModule)

		return nil
	})
}

func replaceImport(tx *txn, oldModule, newModule string) bool {
	var first *pyast.Location

	tx.work.Inspect(func(node pyast.Node) bool {
		switch imp := node.(type) {
		case *pyast.Import:
			for idx := range imp.Names {
				if imp.Names[idx].Name == oldModule {
					imp.Names[idx].Name = newModule

					if first == nil {
						first = imp.Pos()
					}
				}
			}
		case *pyast.ImportFrom:
			if imp.Level == 0 && imp.Module == oldModule {
				imp.Module = newModule

				if first == nil {
					first = imp.Pos()
				}
			}
		case pyast.Expr:
			return false
		}

		return true
	})

	if first == nil {
		return false
	}

	tx.record(Change{
		Kind:        ImportModified,
		Description: fmt.Sprintf("Replaced import '%s' with '%s'", oldModule, newModule),
		Old:         oldModule,
		New:         newModule,
		Location:    first,
	})

	return true
}

// ModernizeImports applies LegacyImports plus any extra mappings. Each
// applied mapping is logged as an import change, followed by one summary
// change.
func (session *Session) ModernizeImports(extra ...ImportMapping) error {
	return session.mutate(func(tx *txn) error {
		applied := 0

		for _, mapping := range slices.Concat(LegacyImports, extra) {
			if replaceImport(tx, mapping.Old, mapping.New) {
				applied++
			}
		}

		if applied > 0 {
			tx.record(Change{
				Kind:        SyntaxModernized,
				Description: "Modernized deprecated imports",
			})
		}

		return nil
	})
}

// AddImport inserts an import statement after the last top-level import,
// or after the module docstring and any `__future__` imports when there
// are none.
func (session *Session) AddImport(stmt pyast.Stmt) error {
	switch stmt.(type) {
	case *pyast.Import, *pyast.ImportFrom:
	default:
		return opError("add_import", pyast.ErrUnsupportedNode, "Statement '%s' is not an import", kindOf(stmt))
	}

	return session.mutate(func(tx *txn) error {
		at := importInsertIndex(tx.work.Body)
		tx.work.Body = slices.Insert(tx.work.Body, at, pyast.CloneStmt(stmt))

		text, err := session.printer.Stmt(stmt)
		if err != nil {
			text = kindOf(stmt)
		}

		tx.record(Change{Kind: ImportModified, Description: fmt.Sprintf("Added import '%s'", text), New: text})

		return nil
	})
}

func importInsertIndex(body []pyast.Stmt) int {
	at := -1

	for idx, stmt := range body {
		switch stmt.(type) {
		case *pyast.Import, *pyast.ImportFrom:
			at = idx
		}
	}

	if at >= 0 {
		return at + 1
	}

	idx := 0
	if len(body) > 0 && isDocstring(body[0]) {
		idx = 1
	}

	for idx < len(body) && isFutureImport(body[idx]) {
		idx++
	}

	return idx
}

func isDocstring(stmt pyast.Stmt) bool {
	expr, ok := stmt.(*pyast.ExprStmt)
	if !ok {
		return false
	}

	_, isStr := expr.Value.(*pyast.Str)

	return isStr
}

func isFutureImport(stmt pyast.Stmt) bool {
	from, ok := stmt.(*pyast.ImportFrom)

	return ok && from.Level == 0 && from.Module == "__future__"
}

func kindOf(stmt pyast.Stmt) string {
	if stmt == nil {
		return "<missing>"
	}

	return stmt.Kind()
}

// RemoveUnusedImports drops import aliases whose bound name is never
// referenced outside import statements. Statements left without names
// are removed. `__future__` and star imports are always kept.
func (session *Session) RemoveUnusedImports() error {
	return session.mutate(func(tx *txn) error {
		used := usedNames(tx.work)

		var removed []string

		tx.work.Body = pruneImports(tx.work.Body, used, &removed)

		if len(removed) == 0 {
			return nil
		}

		tx.record(Change{
			Kind:        Custom,
			Description: fmt.Sprintf("Removed %d unused imports", len(removed)),
			Old:         strings.Join(removed, ", "),
		})

		return nil
	})
}

// pruneImports filters import aliases in body and nested bodies.
func pruneImports(body []pyast.Stmt, used map[string]bool, removed *[]string) []pyast.Stmt {
	out := body[:0]

	for _, stmt := range body {
		switch node := stmt.(type) {
		case *pyast.Import:
			node.Names = pruneAliases(node.Names, used, removed)
			if len(node.Names) == 0 {
				continue
			}
		case *pyast.ImportFrom:
			if isFutureImport(node) {
				break
			}

			node.Names = pruneAliases(node.Names, used, removed)
			if len(node.Names) == 0 {
				continue
			}
		case *pyast.FunctionDef:
			node.Body = pruneImports(node.Body, used, removed)
		case *pyast.ClassDef:
			node.Body = pruneImports(node.Body, used, removed)
		case *pyast.Try:
			node.Body = pruneImports(node.Body, used, removed)

			for idx := range node.Handlers {
				node.Handlers[idx].Body = pruneImports(node.Handlers[idx].Body, used, removed)
			}

			node.Orelse = pruneImports(node.Orelse, used, removed)
			node.Finalbody = pruneImports(node.Finalbody, used, removed)
		}

		out = append(out, stmt)
	}

	return out
}

func pruneAliases(names []pyast.Alias, used map[string]bool, removed *[]string) []pyast.Alias {
	out := names[:0]

	for _, alias := range names {
		if alias.Name == "*" || used[alias.BoundName()] {
			out = append(out, alias)

			continue
		}

		*removed = append(*removed, alias.BoundName())
	}

	return out
}

// SortImports stably sorts the first contiguous run of top-level imports:
// plain imports before from-imports, each ordered by module name.
// `__future__` imports stay in front.
func (session *Session) SortImports() error {
	return session.mutate(func(tx *txn) error {
		body := tx.work.Body

		start := slices.IndexFunc(body, func(stmt pyast.Stmt) bool {
			return isImport(stmt) && !isFutureImport(stmt)
		})
		if start < 0 {
			return nil
		}

		end := start
		for end < len(body) && isImport(body[end]) && !isFutureImport(body[end]) {
			end++
		}

		run := slices.Clone(body[start:end])
		slices.SortStableFunc(run, compareImports)

		if slices.Equal(run, body[start:end]) {
			return nil
		}

		copy(body[start:end], run)

		tx.record(Change{
			Kind:        Custom,
			Description: fmt.Sprintf("Sorted %d imports", end-start),
			Location:    body[start].Pos(),
		})

		return nil
	})
}

func isImport(stmt pyast.Stmt) bool {
	switch stmt.(type) {
	case *pyast.Import, *pyast.ImportFrom:
		return true
	default:
		return false
	}
}

func importSortKey(stmt pyast.Stmt) (int, string) {
	switch node := stmt.(type) {
	case *pyast.Import:
		if len(node.Names) > 0 {
			return 0, node.Names[0].Name
		}

		return 0, ""
	case *pyast.ImportFrom:
		return 1, node.Source()
	default:
		return 2, ""
	}
}

func compareImports(left, right pyast.Stmt) int {
	leftGroup, leftName := importSortKey(left)
	rightGroup, rightName := importSortKey(right)

	if leftGroup != rightGroup {
		return leftGroup - rightGroup
	}

	return strings.Compare(strings.ToLower(leftName), strings.ToLower(rightName))
}
