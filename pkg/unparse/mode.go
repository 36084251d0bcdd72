// Package unparse renders a pyast module back to canonical Python source.
//
// Output is a re-serialization of the tree: original formatting and
// comments are not reproduced. Indentation is four spaces per level.
package unparse

import (
	"errors"
	"fmt"
	"strings"
)

// Mode selects how nodes outside the supported variant set are handled.
type Mode int

const (
	// Lenient emits a visible placeholder and keeps going.
	Lenient Mode = iota
	// Strict fails with a StructureError naming the unsupported kind.
	Strict
	// Verbatim re-emits the original source captured for opaque nodes and
	// falls back to Lenient when none was captured.
	Verbatim
)

// ErrUnknownMode is returned by ParseMode for an unrecognized name.
var ErrUnknownMode = errors.New("unknown render mode")

var modeNames = map[Mode]string{
	Lenient:  "lenient",
	Strict:   "strict",
	Verbatim: "verbatim",
}

func (mode Mode) String() string {
	if name, ok := modeNames[mode]; ok {
		return name
	}

	return fmt.Sprintf("Mode(%d)", int(mode))
}

// ParseMode converts a mode name to a Mode.
func ParseMode(name string) (Mode, error) {
	for mode, modeName := range modeNames {
		if strings.EqualFold(name, modeName) {
			return mode, nil
		}
	}

	return Lenient, fmt.Errorf("%w: %q", ErrUnknownMode, name)
}
