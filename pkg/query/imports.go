package query

import (
	"strings"

	"github.com/Sumatoshi-tech/pyrefactor/pkg/pyast"
)

// ImportInfo is one imported name. A statement importing three names
// yields three records in source order.
type ImportInfo struct {
	Module       string          `json:"module"`
	Alias        string          `json:"alias,omitempty"`
	IsFromImport bool            `json:"is_from_import"`
	FromModule   string          `json:"from_module,omitempty"`
	Ref          NodeRef         `json:"ref"`
	Location     *pyast.Location `json:"location,omitempty"`
}

// Path returns the module path the record is matched against: the source
// module of a from-import, or the imported module otherwise.
func (info ImportInfo) Path() string {
	if info.IsFromImport && info.FromModule != "" {
		return info.FromModule
	}

	return info.Module
}

func (info ImportInfo) String() string {
	var sb strings.Builder

	if info.IsFromImport {
		sb.WriteString("from ")
		sb.WriteString(info.FromModule)
		sb.WriteString(" ")
	}

	sb.WriteString("import ")
	sb.WriteString(info.Module)

	if info.Alias != "" {
		sb.WriteString(" as ")
		sb.WriteString(info.Alias)
	}

	return sb.String()
}

// Imports flattens the top-level import statements of mod.
func Imports(mod *pyast.Module) []ImportInfo {
	var infos []ImportInfo

	for idx, stmt := range mod.Body {
		ref := NodeRef{Path: []int{idx}, Kind: KindOf(stmt), Location: stmt.Pos()}
		infos = appendImportInfos(infos, ref, stmt)
	}

	return infos
}

// FindImports flattens every import statement in mod, including nested
// ones, keeping records whose module path contains filter. An empty filter
// keeps everything.
func FindImports(mod *pyast.Module, filter string) []ImportInfo {
	var infos []ImportInfo

	Walk(mod, func(ref NodeRef, stmt pyast.Stmt) bool {
		for _, info := range appendImportInfos(nil, ref, stmt) {
			if filter == "" || strings.Contains(info.Path(), filter) {
				infos = append(infos, info)
			}
		}

		return true
	})

	return infos
}

func appendImportInfos(infos []ImportInfo, ref NodeRef, stmt pyast.Stmt) []ImportInfo {
	switch node := stmt.(type) {
	case *pyast.Import:
		for _, alias := range node.Names {
			infos = append(infos, ImportInfo{
				Module:   alias.Name,
				Alias:    alias.AsName,
				Ref:      ref,
				Location: node.Pos(),
			})
		}
	case *pyast.ImportFrom:
		source := node.Source()

		for _, alias := range node.Names {
			infos = append(infos, ImportInfo{
				Module:       alias.Name,
				Alias:        alias.AsName,
				IsFromImport: true,
				FromModule:   source,
				Ref:          ref,
				Location:     node.Pos(),
			})
		}
	}

	return infos
}
