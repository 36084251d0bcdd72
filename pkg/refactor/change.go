package refactor

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Sumatoshi-tech/pyrefactor/pkg/pyast"
)

// Sentinel errors carried by OperationError.
var (
	ErrNotFound      = errors.New("target not found")
	ErrNothingToUndo = errors.New("nothing to undo")
	ErrInvalidRef    = errors.New("invalid node reference")
)

// ChangeKind tags a Change.
type ChangeKind int

// Change kinds.
const (
	FunctionRenamed ChangeKind = iota
	ClassRenamed
	VariableRenamed
	ImportModified
	SyntaxModernized
	Custom
)

var changeKindNames = [...]string{
	FunctionRenamed:  "function_renamed",
	ClassRenamed:     "class_renamed",
	VariableRenamed:  "variable_renamed",
	ImportModified:   "import_modified",
	SyntaxModernized: "syntax_modernized",
	Custom:           "custom",
}

func (kind ChangeKind) String() string {
	if kind >= 0 && int(kind) < len(changeKindNames) {
		return changeKindNames[kind]
	}

	return fmt.Sprintf("ChangeKind(%d)", int(kind))
}

// MarshalText encodes the kind by name.
func (kind ChangeKind) MarshalText() ([]byte, error) {
	return []byte(kind.String()), nil
}

// Change is one entry of a session's log. Old and New carry the renamed
// or replaced identifiers where the kind has them.
type Change struct {
	Kind        ChangeKind      `json:"kind"`
	Description string          `json:"description"`
	Old         string          `json:"old,omitempty"`
	New         string          `json:"new,omitempty"`
	Location    *pyast.Location `json:"location,omitempty"`
}

// OperationError reports a failed precondition of a session operation.
// The session is unchanged when it is returned.
type OperationError struct {
	Op      string
	Message string
	Err     error
}

func (oe *OperationError) Error() string {
	return oe.Message
}

func (oe *OperationError) Unwrap() error {
	return oe.Err
}

func opError(op string, err error, format string, args ...any) *OperationError {
	return &OperationError{Op: op, Message: fmt.Sprintf(format, args...), Err: err}
}

// Summary renders a change log as `Made N changes:` followed by one
// numbered line per change, or `No changes made`.
func Summary(changes []Change) string {
	if len(changes) == 0 {
		return "No changes made"
	}

	var out strings.Builder

	fmt.Fprintf(&out, "Made %d changes:\n", len(changes))

	for idx, change := range changes {
		fmt.Fprintf(&out, "%d. %s\n", idx+1, change.Description)
	}

	return out.String()
}
