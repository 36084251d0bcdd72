// Package recipe reads YAML refactoring recipes and applies them to a
// refactor session.
//
// A recipe lists steps by operation name:
//
//	version: 1
//	description: drop pkg_resources
//	steps:
//	  - op: modernize_pkg_resources
//	  - op: rename_function
//	    old: get_version
//	    new: package_version
//	    optional: true
//
// Documents are checked against an embedded JSON schema before decoding.
package recipe

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Op names a refactoring operation.
type Op string

// Supported operations.
const (
	OpRenameFunction            Op = "rename_function"
	OpRenameClass               Op = "rename_class"
	OpRenameVariable            Op = "rename_variable"
	OpReplaceImport             Op = "replace_import"
	OpModernizeImports          Op = "modernize_imports"
	OpModernizePkgResources     Op = "modernize_pkg_resources"
	OpRemoveUnusedImports       Op = "remove_unused_imports"
	OpSortImports               Op = "sort_imports"
	OpModernizeStringFormatting Op = "modernize_string_formatting"
	OpAddImport                 Op = "add_import"
	OpAddTypeHints              Op = "add_type_hints"
)

// Ops lists every supported operation in documentation order.
var Ops = []Op{
	OpRenameFunction, OpRenameClass, OpRenameVariable,
	OpReplaceImport, OpModernizeImports, OpModernizePkgResources,
	OpRemoveUnusedImports, OpSortImports, OpModernizeStringFormatting,
	OpAddImport, OpAddTypeHints,
}

// ErrInvalidRecipe is returned for documents that fail schema validation.
var ErrInvalidRecipe = errors.New("invalid recipe")

// ValidationError lists every schema violation found in a document.
type ValidationError struct {
	Problems []string
}

func (ve *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrInvalidRecipe, strings.Join(ve.Problems, "; "))
}

func (ve *ValidationError) Unwrap() error {
	return ErrInvalidRecipe
}

// Mapping is a legacy-to-modern module pair.
type Mapping struct {
	Old string `yaml:"old" json:"old"`
	New string `yaml:"new" json:"new"`
}

// Step is one operation with its arguments. Which fields apply depends on
// Op; unused fields are ignored.
type Step struct {
	Op       Op                `yaml:"op"                 json:"op"`
	Optional bool              `yaml:"optional,omitempty" json:"optional,omitempty"`
	Old      string            `yaml:"old,omitempty"      json:"old,omitempty"`
	New      string            `yaml:"new,omitempty"      json:"new,omitempty"`
	Module   string            `yaml:"module,omitempty"   json:"module,omitempty"`
	Function string            `yaml:"function,omitempty" json:"function,omitempty"`
	Names    []string          `yaml:"names,omitempty"    json:"names,omitempty"`
	Alias    string            `yaml:"alias,omitempty"    json:"alias,omitempty"`
	Mappings []Mapping         `yaml:"mappings,omitempty" json:"mappings,omitempty"`
	Hints    map[string]string `yaml:"hints,omitempty"    json:"hints,omitempty"`
}

// Recipe is an ordered list of steps.
type Recipe struct {
	Version     int    `yaml:"version,omitempty"     json:"version,omitempty"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	Steps       []Step `yaml:"steps"                 json:"steps"`
}

// Parse validates and decodes a YAML (or JSON) recipe document.
func Parse(data []byte) (*Recipe, error) {
	var doc any

	err := yaml.Unmarshal(data, &doc)
	if err != nil {
		return nil, fmt.Errorf("decode recipe: %w", err)
	}

	err = Validate(doc)
	if err != nil {
		return nil, err
	}

	var rcp Recipe

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	err = dec.Decode(&rcp)
	if err != nil {
		return nil, fmt.Errorf("decode recipe: %w", err)
	}

	return &rcp, nil
}

// Read parses a recipe from r.
func Read(r io.Reader) (*Recipe, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read recipe: %w", err)
	}

	return Parse(data)
}

// Load parses the recipe file at path.
func Load(path string) (*Recipe, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read recipe: %w", err)
	}

	rcp, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return rcp, nil
}
