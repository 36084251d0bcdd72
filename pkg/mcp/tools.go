package mcp

import (
	"encoding/json"
	"errors"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Sumatoshi-tech/pyrefactor/pkg/recipe"
	"github.com/Sumatoshi-tech/pyrefactor/pkg/refactor"
)

// Tool name constants.
const (
	ToolNameParse        = "pyrefactor_parse"
	ToolNameQuery        = "pyrefactor_query"
	ToolNameRefactor     = "pyrefactor_refactor"
	ToolNameSessionOpen  = "pyrefactor_session_open"
	ToolNameSessionApply = "pyrefactor_session_apply"
	ToolNameSessionUndo  = "pyrefactor_session_undo"
	ToolNameSessionClose = "pyrefactor_session_close"
)

// Query names accepted by the pyrefactor_query tool.
const (
	QueryNodes       = "nodes"
	QueryImports     = "imports"
	QueryCalls       = "calls"
	QueryTryExcept   = "try"
	QueryAssignments = "assign"
)

// Input size limits.
const (
	// MaxCodeInputBytes is the maximum allowed size for inline code input (1 MB).
	MaxCodeInputBytes = 1 << 20
)

// Sentinel errors for tool input validation.
var (
	// ErrEmptyCode indicates the code parameter is empty.
	ErrEmptyCode = errors.New("code parameter is required and must not be empty")
	// ErrCodeTooLarge indicates the code input exceeds the size limit.
	ErrCodeTooLarge = errors.New("code input exceeds maximum size")
	// ErrNoSteps indicates a refactor call without operations.
	ErrNoSteps = errors.New("steps parameter is required and must not be empty")
	// ErrUnknownQuery indicates an unsupported query name.
	ErrUnknownQuery = errors.New("unknown query")
	// ErrSessionNotFound indicates an unknown or closed session id.
	ErrSessionNotFound = errors.New("session not found")
	// ErrTooManySessions indicates the open session limit was reached.
	ErrTooManySessions = errors.New("too many open sessions")
)

// Input types (auto-generate JSON schemas via struct tags).

// ParseInput is the input schema for the pyrefactor_parse tool.
type ParseInput struct {
	Code string `json:"code"           jsonschema:"Python source code to parse"`
	Mode string `json:"mode,omitempty" jsonschema:"render mode for the canonical text: verbatim, lenient or strict"`
}

// QueryInput is the input schema for the pyrefactor_query tool.
type QueryInput struct {
	Code   string   `json:"code"             jsonschema:"Python source code to search"`
	Query  string   `json:"query"            jsonschema:"one of nodes, imports, calls, try, assign"`
	Filter string   `json:"filter,omitempty" jsonschema:"name filter: module substring, call name, exception type or target substring"`
	Kinds  []string `json:"kinds,omitempty"  jsonschema:"node kinds for the nodes query (e.g. function_def class_def)"`
}

// RefactorInput is the input schema for the pyrefactor_refactor tool.
type RefactorInput struct {
	Code  string        `json:"code"           jsonschema:"Python source code to refactor"`
	Steps []recipe.Step `json:"steps"          jsonschema:"operations to apply in order, as in a recipe file"`
	Mode  string        `json:"mode,omitempty" jsonschema:"render mode for the result: verbatim, lenient or strict"`
}

// SessionOpenInput is the input schema for the pyrefactor_session_open tool.
type SessionOpenInput struct {
	Code string `json:"code"           jsonschema:"Python source code owned by the new session"`
	Mode string `json:"mode,omitempty" jsonschema:"render mode for session text: verbatim, lenient or strict"`
}

// SessionApplyInput is the input schema for the pyrefactor_session_apply tool.
type SessionApplyInput struct {
	SessionID string        `json:"session_id" jsonschema:"id returned by pyrefactor_session_open"`
	Steps     []recipe.Step `json:"steps"      jsonschema:"operations to apply in order"`
}

// SessionInput addresses an open session.
type SessionInput struct {
	SessionID string `json:"session_id" jsonschema:"id returned by pyrefactor_session_open"`
}

// Output types.

// ToolOutput is a generic wrapper for tool results.
type ToolOutput struct {
	Data any `json:"data"`
}

// ParseResult summarizes a parsed module.
type ParseResult struct {
	Statements int      `json:"statements"`
	Functions  []string `json:"functions"`
	Classes    []string `json:"classes"`
	AllClasses []string `json:"all_classes"`
	Imports    []string `json:"imports"`
	Text       string   `json:"text"`
}

// RefactorResult is the text and change log after applying operations.
type RefactorResult struct {
	SessionID string            `json:"session_id,omitempty"`
	Text      string            `json:"text"`
	Summary   string            `json:"summary"`
	Changes   []refactor.Change `json:"changes"`
}

// Result helpers.

// errorResult builds a CallToolResult with isError set.
func errorResult(err error) (*mcpsdk.CallToolResult, ToolOutput, error) {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: err.Error()},
		},
		IsError: true,
	}, ToolOutput{}, nil
}

// jsonResult builds a CallToolResult with JSON-encoded content.
func jsonResult(value any) (*mcpsdk.CallToolResult, ToolOutput, error) {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return errorResult(fmt.Errorf("encode result: %w", err))
	}

	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: string(data)},
		},
	}, ToolOutput{Data: value}, nil
}

// validateCode checks common code input constraints.
func validateCode(code string) error {
	if code == "" {
		return ErrEmptyCode
	}

	if len(code) > MaxCodeInputBytes {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrCodeTooLarge, len(code), MaxCodeInputBytes)
	}

	return nil
}

// validateSteps checks operations against the recipe schema.
func validateSteps(steps []recipe.Step) error {
	if len(steps) == 0 {
		return ErrNoSteps
	}

	data, err := json.Marshal(recipe.Recipe{Steps: steps})
	if err != nil {
		return fmt.Errorf("encode steps: %w", err)
	}

	var doc any

	err = json.Unmarshal(data, &doc)
	if err != nil {
		return fmt.Errorf("decode steps: %w", err)
	}

	return recipe.Validate(doc)
}
