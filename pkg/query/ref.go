// Package query implements read-only, depth-first searches over a pyast
// module. Every call re-walks the tree; nothing is cached.
package query

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Sumatoshi-tech/pyrefactor/pkg/pyast"
)

// NodeKind is the coarse statement classification used by FindNodes.
type NodeKind string

// Statement kinds.
const (
	KindFunctionDef NodeKind = "function_def"
	KindClassDef    NodeKind = "class_def"
	KindImport      NodeKind = "import"
	KindImportFrom  NodeKind = "import_from"
	KindTryExcept   NodeKind = "try_except"
	KindAssign      NodeKind = "assign"
	KindOther       NodeKind = "other"
)

// AllKinds lists every NodeKind in a stable order.
var AllKinds = []NodeKind{
	KindFunctionDef, KindClassDef, KindImport, KindImportFrom, KindTryExcept, KindAssign, KindOther,
}

var (
	// ErrUnknownKind is returned for a kind name outside AllKinds.
	ErrUnknownKind = errors.New("unknown node kind")
	// ErrInvalidPath is returned when a path does not address a statement.
	ErrInvalidPath = errors.New("invalid node path")
)

// ParseNodeKind converts a kind name to a NodeKind.
func ParseNodeKind(name string) (NodeKind, error) {
	for _, kind := range AllKinds {
		if string(kind) == strings.ToLower(name) {
			return kind, nil
		}
	}

	return "", fmt.Errorf("%w: %q", ErrUnknownKind, name)
}

// KindOf classifies a statement.
func KindOf(stmt pyast.Stmt) NodeKind {
	switch stmt.(type) {
	case *pyast.FunctionDef:
		return KindFunctionDef
	case *pyast.ClassDef:
		return KindClassDef
	case *pyast.Import:
		return KindImport
	case *pyast.ImportFrom:
		return KindImportFrom
	case *pyast.Try:
		return KindTryExcept
	case *pyast.Assign:
		return KindAssign
	case *pyast.Return, *pyast.Pass, *pyast.ExprStmt, *pyast.OpaqueStmt:
		return KindOther
	default:
		return KindOther
	}
}

// NodeRef locates a statement inside one module snapshot. Path holds one
// index per nesting level; a try statement consumes two elements, the
// block number (0 for the body, 1..n for handlers, then else, then
// finally) followed by the index within that block. A NodeRef is only
// valid until the tree is mutated.
type NodeRef struct {
	Path     []int           `json:"path"`
	Kind     NodeKind        `json:"kind"`
	Location *pyast.Location `json:"location,omitempty"`
}

// String renders the path as dotted indices, e.g. "2.1.0".
func (ref NodeRef) String() string {
	parts := make([]string, len(ref.Path))
	for idx, step := range ref.Path {
		parts[idx] = strconv.Itoa(step)
	}

	return strings.Join(parts, ".")
}

// ParsePath parses the dotted form produced by NodeRef.String.
func ParsePath(text string) ([]int, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidPath)
	}

	parts := strings.Split(text, ".")
	path := make([]int, len(parts))

	for idx, part := range parts {
		step, err := strconv.Atoi(part)
		if err != nil || step < 0 {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPath, text)
		}

		path[idx] = step
	}

	return path, nil
}

// Resolve returns the statement addressed by path.
func Resolve(mod *pyast.Module, path []int) (pyast.Stmt, error) {
	block, idx, err := ResolveBlock(mod, path)
	if err != nil {
		return nil, err
	}

	return (*block)[idx], nil
}

// ResolveBlock returns the statement list containing the addressed
// statement and its index in that list, so callers can edit in place.
func ResolveBlock(mod *pyast.Module, path []int) (*[]pyast.Stmt, int, error) {
	if len(path) == 0 {
		return nil, 0, fmt.Errorf("%w: empty", ErrInvalidPath)
	}

	block := &mod.Body
	rest := path

	for {
		idx := rest[0]
		if idx < 0 || idx >= len(*block) {
			return nil, 0, fmt.Errorf("%w: %v", ErrInvalidPath, path)
		}

		rest = rest[1:]
		if len(rest) == 0 {
			return block, idx, nil
		}

		next, consumed, ok := childBlock((*block)[idx], rest)
		if !ok {
			return nil, 0, fmt.Errorf("%w: %v", ErrInvalidPath, path)
		}

		block = next
		rest = rest[consumed:]

		if len(rest) == 0 {
			return nil, 0, fmt.Errorf("%w: %v", ErrInvalidPath, path)
		}
	}
}

// childBlock selects the nested statement list a path step descends into
// and reports how many steps that selection consumed.
func childBlock(stmt pyast.Stmt, rest []int) (*[]pyast.Stmt, int, bool) {
	switch node := stmt.(type) {
	case *pyast.FunctionDef:
		return &node.Body, 0, true
	case *pyast.ClassDef:
		return &node.Body, 0, true
	case *pyast.Try:
		blocks := tryBlocks(node)

		region := rest[0]
		if region < 0 || region >= len(blocks) {
			return nil, 0, false
		}

		return blocks[region], 1, true
	default:
		return nil, 0, false
	}
}

// tryBlocks lists the statement lists of a try statement in path order.
func tryBlocks(node *pyast.Try) []*[]pyast.Stmt {
	blocks := make([]*[]pyast.Stmt, 0, len(node.Handlers)+3)
	blocks = append(blocks, &node.Body)

	for idx := range node.Handlers {
		blocks = append(blocks, &node.Handlers[idx].Body)
	}

	return append(blocks, &node.Orelse, &node.Finalbody)
}
