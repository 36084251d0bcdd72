// Package pyparse builds pyast trees from Python source using the
// tree-sitter Python grammar.
//
// Constructs outside the modelled subset are kept as opaque nodes carrying
// their grammar kind, location and original text, so a parse never fails on
// valid input. Comments and original formatting are discarded.
package pyparse

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	sitter "github.com/alexaandru/go-tree-sitter-bare"

	"github.com/alexaandru/go-sitter-forest/python"

	"github.com/Sumatoshi-tech/pyrefactor/pkg/pyast"
)

var (
	errPoolType   = errors.New("pyparse: unexpected parser pool type")
	errNoRootNode = errors.New("pyparse: no root node")
)

// SyntaxError reports the first error node found in the source.
type SyntaxError struct {
	Message string
	Line    int
	Column  int
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at line %d, column %d: %s", e.Line, e.Column, e.Message)
}

// Parser converts Python source to pyast modules. It is safe for
// concurrent use; tree-sitter parsers are pooled internally.
type Parser struct {
	pool   sync.Pool
	logger *slog.Logger
}

// Option configures a Parser.
type Option func(*Parser)

// WithLogger sets the logger used for debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(parser *Parser) {
		parser.logger = logger
	}
}

var (
	languageOnce sync.Once
	language     *sitter.Language
)

func pythonLanguage() *sitter.Language {
	languageOnce.Do(func() {
		language = sitter.NewLanguage(python.GetLanguage())
	})

	return language
}

// New returns a Parser.
func New(opts ...Option) *Parser {
	parser := &Parser{logger: slog.Default()}

	for _, opt := range opts {
		opt(parser)
	}

	lang := pythonLanguage()
	parser.pool = sync.Pool{
		New: func() any {
			tsParser := sitter.NewParser()
			tsParser.SetLanguage(lang)

			return tsParser
		},
	}

	return parser
}

var defaultParser = sync.OnceValue(func() *Parser { return New() })

// ParseString parses src with a shared default Parser.
func ParseString(src string) (*pyast.Module, error) {
	return defaultParser().Parse(context.Background(), []byte(src))
}

// Parse parses src into a module. Source that does not parse cleanly
// yields a *SyntaxError.
func (parser *Parser) Parse(ctx context.Context, src []byte) (*pyast.Module, error) {
	tsParser, ok := parser.pool.Get().(*sitter.Parser)
	if !ok {
		return nil, errPoolType
	}

	defer parser.pool.Put(tsParser)

	tree, err := tsParser.ParseString(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("pyparse: failed to parse: %w", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.IsNull() {
		return nil, errNoRootNode
	}

	if root.HasError() {
		return nil, firstError(root)
	}

	conv := &converter{src: src}
	mod := pyast.NewModule(conv.block(root)...)

	parser.logger.DebugContext(ctx, "parsed python module",
		"bytes", len(src), "statements", mod.StatementCount(), "opaque", conv.opaque)

	return mod, nil
}

// firstError locates the earliest ERROR or MISSING node in document order.
func firstError(root sitter.Node) *SyntaxError {
	found := findError(root)
	if found.IsNull() {
		found = root
	}

	start := found.StartPoint()
	message := "invalid syntax"

	if found.IsMissing() {
		message = "missing " + found.Type()
	}

	return &SyntaxError{Message: message, Line: int(start.Row) + 1, Column: int(start.Column) + 1}
}

func findError(node sitter.Node) sitter.Node {
	if node.IsError() || node.IsMissing() {
		return node
	}

	for idx := range node.ChildCount() {
		child := node.Child(idx)
		if child.IsNull() || !child.HasError() && !child.IsMissing() {
			continue
		}

		if found := findError(child); !found.IsNull() {
			return found
		}
	}

	return sitter.Node{}
}
