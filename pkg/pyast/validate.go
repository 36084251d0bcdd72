package pyast

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyModule is returned when a non-empty module is required.
	ErrEmptyModule = errors.New("empty module")
	// ErrUnsupportedNode is returned when a node outside the supported
	// variant set is encountered in strict mode.
	ErrUnsupportedNode = errors.New("unsupported node")
)

// StructureError reports a violated tree invariant. Kind names the
// offending node kind, when there is one.
type StructureError struct {
	Kind string
	Loc  *Location
	Err  error
}

func (se *StructureError) Error() string {
	msg := se.Err.Error()
	if se.Kind != "" {
		msg = fmt.Sprintf("%s: %s", msg, se.Kind)
	}

	if se.Loc != nil {
		msg = fmt.Sprintf("%s at line %d, column %d", msg, se.Loc.Line, se.Loc.Column)
	}

	return msg
}

func (se *StructureError) Unwrap() error {
	return se.Err
}

// Unsupported returns a StructureError for a node outside the supported set.
func Unsupported(node Node) *StructureError {
	return &StructureError{Kind: node.Kind(), Loc: node.Pos(), Err: ErrUnsupportedNode}
}

// Validate checks the module-level invariants.
func (mod *Module) Validate() error {
	if mod.IsEmpty() {
		return &StructureError{Err: ErrEmptyModule}
	}

	return nil
}
