package refactor

import (
	"fmt"

	"github.com/Sumatoshi-tech/pyrefactor/pkg/pyast"
	"github.com/Sumatoshi-tech/pyrefactor/pkg/query"
)

const (
	pkgResources         = "pkg_resources"
	getDistribution      = "get_distribution"
	distributionNotFound = "DistributionNotFound"
	versionAttr          = "version"
)

// ModernizePkgResourcesVersion replaces the pkg_resources version lookup
// idiom:
//
//	from pkg_resources import get_distribution, DistributionNotFound
//	try:
//	    __version__ = get_distribution(__name__).version
//	except DistributionNotFound:
//	    __version__ = "unknown"
//
// with `from targetModule import targetFunction` and a direct
// `__version__ = targetFunction(__name__)`. Code without a top-level
// `from pkg_resources import` is left alone and logs nothing.
func (session *Session) ModernizePkgResourcesVersion(targetModule, targetFunction string) error {
	return session.mutate(func(tx *txn) error {
		froms := pkgResourcesImports(tx.work)
		if len(froms) == 0 {
			return nil
		}

		getters := make(map[string]bool)

		for _, from := range froms {
			from.Module = targetModule

			for idx, alias := range from.Names {
				if alias.Name == getDistribution {
					getters[alias.BoundName()] = true
					from.Names[idx] = pyast.Alias{Name: targetFunction}
				}
			}
		}

		collapsed := collapseVersionBlocks(&tx.work.Body, getters, targetFunction)
		rewritten := rewriteVersionLookups(tx.work.Body, getters, targetFunction)

		dropUnusedAliases(tx.work, froms, distributionNotFound)

		tx.record(Change{
			Kind:        ImportModified,
			Description: fmt.Sprintf("Replaced import '%s' with '%s'", pkgResources, targetModule),
			Old:         pkgResources,
			New:         targetModule,
			Location:    froms[0].Pos(),
		})

		if collapsed+rewritten > 0 {
			tx.record(Change{
				Kind: SyntaxModernized,
				Description: fmt.Sprintf("Modernized version detection pattern to use %s.%s (%d sites)",
					targetModule, targetFunction, collapsed+rewritten),
				New: targetModule + "." + targetFunction,
			})
		}

		return nil
	})
}

func pkgResourcesImports(mod *pyast.Module) []*pyast.ImportFrom {
	var out []*pyast.ImportFrom

	for _, stmt := range mod.Body {
		if from, ok := stmt.(*pyast.ImportFrom); ok && from.Level == 0 && from.Module == pkgResources {
			out = append(out, from)
		}
	}

	return out
}

// collapseVersionBlocks replaces qualifying try statements in body and
// nested bodies with their single assignment.
func collapseVersionBlocks(body *[]pyast.Stmt, getters map[string]bool, targetFunction string) int {
	count := 0

	for idx, stmt := range *body {
		switch node := stmt.(type) {
		case *pyast.Try:
			if assign := versionAssignment(node, getters); assign != nil {
				lookup := assign.Value.(*pyast.Attribute).Value.(*pyast.Call)
				(*body)[idx] = &pyast.Assign{
					Position: node.Position,
					Targets:  assign.Targets,
					Value:    versionCall(lookup, targetFunction),
				}
				count++

				continue
			}

			count += collapseVersionBlocks(&node.Body, getters, targetFunction)
			count += collapseVersionBlocks(&node.Orelse, getters, targetFunction)
			count += collapseVersionBlocks(&node.Finalbody, getters, targetFunction)
		case *pyast.FunctionDef:
			count += collapseVersionBlocks(&node.Body, getters, targetFunction)
		case *pyast.ClassDef:
			count += collapseVersionBlocks(&node.Body, getters, targetFunction)
		}
	}

	return count
}

// versionAssignment returns the body assignment of a try statement shaped
// like the idiom, or nil.
func versionAssignment(node *pyast.Try, getters map[string]bool) *pyast.Assign {
	if len(node.Body) != 1 || len(node.Handlers) == 0 || len(node.Orelse) > 0 || len(node.Finalbody) > 0 {
		return nil
	}

	for _, handler := range node.Handlers {
		if !query.HandlerCatches(handler, distributionNotFound) {
			return nil
		}
	}

	assign, ok := node.Body[0].(*pyast.Assign)
	if !ok || len(assign.Targets) != 1 {
		return nil
	}

	if _, isName := assign.Targets[0].(*pyast.Name); !isName {
		return nil
	}

	if !isVersionLookup(assign.Value, getters) {
		return nil
	}

	return assign
}

// isVersionLookup matches `get_distribution(...).version`.
func isVersionLookup(expr pyast.Expr, getters map[string]bool) bool {
	attr, ok := expr.(*pyast.Attribute)
	if !ok || attr.Attr != versionAttr {
		return false
	}

	call, ok := attr.Value.(*pyast.Call)
	if !ok {
		return false
	}

	name, ok := call.Func.(*pyast.Name)

	return ok && getters[name.ID]
}

func versionCall(lookup *pyast.Call, targetFunction string) *pyast.Call {
	return &pyast.Call{
		Position: lookup.Position,
		Func:     pyast.NewName(targetFunction),
		Args:     lookup.Args,
		Keywords: lookup.Keywords,
	}
}

// rewriteVersionLookups rewrites remaining `get_distribution(...).version`
// expressions outside the idiom.
func rewriteVersionLookups(body []pyast.Stmt, getters map[string]bool, targetFunction string) int {
	count := 0

	pyast.RewriteExprs(body, func(expr pyast.Expr) pyast.Expr {
		if !isVersionLookup(expr, getters) {
			return expr
		}

		count++

		return versionCall(expr.(*pyast.Attribute).Value.(*pyast.Call), targetFunction)
	})

	return count
}

// dropUnusedAliases removes name from the given imports when nothing else
// in the module references it, and removes imports left empty.
func dropUnusedAliases(mod *pyast.Module, froms []*pyast.ImportFrom, name string) {
	if usedNames(mod)[name] {
		return
	}

	empty := make(map[*pyast.ImportFrom]bool)

	for _, from := range froms {
		kept := from.Names[:0]

		for _, alias := range from.Names {
			if alias.BoundName() != name {
				kept = append(kept, alias)
			}
		}

		from.Names = kept
		if len(kept) == 0 {
			empty[from] = true
		}
	}

	if len(empty) == 0 {
		return
	}

	body := mod.Body[:0]

	for _, stmt := range mod.Body {
		if from, ok := stmt.(*pyast.ImportFrom); ok && empty[from] {
			continue
		}

		body = append(body, stmt)
	}

	mod.Body = body
}
