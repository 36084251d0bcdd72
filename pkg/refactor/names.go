package refactor

import (
	"regexp"

	"github.com/Sumatoshi-tech/pyrefactor/pkg/pyast"
)

var identifierPattern = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)

// usedNames collects every identifier the module may reference outside
// import statements. Source text kept for opaque nodes and parameter
// defaults is scanned word by word, so the result over-approximates.
// Strings listed in `__all__` count as uses.
func usedNames(mod *pyast.Module) map[string]bool {
	used := make(map[string]bool)

	addWords := func(text string) {
		for _, word := range identifierPattern.FindAllString(text, -1) {
			used[word] = true
		}
	}

	mod.Inspect(func(node pyast.Node) bool {
		switch typed := node.(type) {
		case *pyast.Import, *pyast.ImportFrom:
			return false
		case *pyast.Name:
			used[typed.ID] = true
		case *pyast.OpaqueStmt:
			addWords(typed.Text)
		case *pyast.OpaqueExpr:
			addWords(typed.Text)
		case *pyast.FunctionDef:
			for _, param := range typed.Params {
				addWords(param)
			}
		case *pyast.Assign:
			if exportsList(typed) {
				pyast.Inspect(typed.Value, func(inner pyast.Node) bool {
					if str, ok := inner.(*pyast.Str); ok {
						used[str.Value] = true
					}

					return true
				})
			}
		}

		return true
	})

	return used
}

func exportsList(assign *pyast.Assign) bool {
	for _, target := range assign.Targets {
		if name, ok := target.(*pyast.Name); ok && name.ID == "__all__" {
			return true
		}
	}

	return false
}
