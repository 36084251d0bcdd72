// Package mcp implements a Model Context Protocol server exposing pyrefactor
// parsing, queries and refactoring sessions as MCP tools over stdio transport.
package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/pyrefactor/pkg/observability"
	"github.com/Sumatoshi-tech/pyrefactor/pkg/pyparse"
	"github.com/Sumatoshi-tech/pyrefactor/pkg/recipe"
	"github.com/Sumatoshi-tech/pyrefactor/pkg/unparse"
	"github.com/Sumatoshi-tech/pyrefactor/pkg/version"
)

const (
	// serverName is the MCP server implementation name.
	serverName = "pyrefactor"

	// toolCount is the expected number of registered tools.
	toolCount = 7
)

// ServerDeps holds injectable dependencies for the MCP server.
// Zero-value fields use production defaults.
type ServerDeps struct {
	// Logger is an optional structured logger. Nil uses slog default.
	Logger *slog.Logger

	// Metrics is an optional RED metrics recorder. Nil disables per-tool metrics.
	Metrics *observability.OperationMetrics

	// Tracer is an optional OTel tracer for per-tool-call spans. Nil disables tracing.
	Tracer trace.Tracer

	// Applier runs refactor steps. Nil uses recipe defaults.
	Applier *recipe.Applier

	// Mode is the render mode used when a call does not name one.
	Mode unparse.Mode

	// MaxSessions caps concurrently open sessions. Zero uses DefaultMaxSessions.
	MaxSessions int
}

// Server wraps the MCP SDK server with pyrefactor tool registrations.
type Server struct {
	inner    *mcpsdk.Server
	mu       sync.RWMutex
	tools    []string
	metrics  *observability.OperationMetrics
	tracer   trace.Tracer
	logger   *slog.Logger
	parser   *pyparse.Parser
	applier  *recipe.Applier
	mode     unparse.Mode
	sessions *sessionStore
}

// NewServer creates a new MCP server with all pyrefactor tools registered.
func NewServer(deps ServerDeps) *Server {
	opts := &mcpsdk.ServerOptions{}
	if deps.Logger != nil {
		opts.Logger = deps.Logger
	}

	inner := mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    serverName,
			Version: version.Version,
		},
		opts,
	)

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	applier := deps.Applier
	if applier == nil {
		applier = recipe.NewApplier(recipe.WithLogger(logger))
	}

	srv := &Server{
		inner:    inner,
		tools:    make([]string, 0, toolCount),
		metrics:  deps.Metrics,
		tracer:   deps.Tracer,
		logger:   logger,
		parser:   pyparse.New(pyparse.WithLogger(logger)),
		applier:  applier,
		mode:     deps.Mode,
		sessions: newSessionStore(deps.MaxSessions),
	}

	srv.registerTools()

	return srv
}

// ListToolNames returns the sorted names of all registered tools.
func (s *Server) ListToolNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, len(s.tools))
	copy(names, s.tools)
	sort.Strings(names)

	return names
}

// Run starts the MCP server on stdio transport. It blocks until the context
// is canceled or the connection closes.
func (s *Server) Run(ctx context.Context) error {
	err := s.inner.Run(ctx, &mcpsdk.StdioTransport{})
	if err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}

	return nil
}

// RunWithTransport starts the MCP server on the given transport. It blocks
// until the context is canceled or the connection closes.
func (s *Server) RunWithTransport(ctx context.Context, transport mcpsdk.Transport) error {
	err := s.inner.Run(ctx, transport)
	if err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}

	return nil
}

// registerTools adds all pyrefactor MCP tools to the server.
func (s *Server) registerTools() {
	addTool(s, ToolNameParse, parseToolDescription, s.handleParse)
	addTool(s, ToolNameQuery, queryToolDescription, s.handleQuery)
	addTool(s, ToolNameRefactor, refactorToolDescription, s.handleRefactor)
	addTool(s, ToolNameSessionOpen, sessionOpenToolDescription, s.handleSessionOpen)
	addTool(s, ToolNameSessionApply, sessionApplyToolDescription, s.handleSessionApply)
	addTool(s, ToolNameSessionUndo, sessionUndoToolDescription, s.handleSessionUndo)
	addTool(s, ToolNameSessionClose, sessionCloseToolDescription, s.handleSessionClose)
}

func addTool[Input any](
	s *Server,
	name, description string,
	handler func(context.Context, *mcpsdk.CallToolRequest, Input) (*mcpsdk.CallToolResult, ToolOutput, error),
) {
	mcpsdk.AddTool(s.inner, &mcpsdk.Tool{
		Name:        name,
		Description: description,
	}, withMetrics(s.metrics, name, withTracing(s.tracer, name, handler)))

	s.trackTool(name)
}

// mcpSpanPrefix is the prefix for MCP tool span names.
const mcpSpanPrefix = "mcp."

// traceIDMetaKey is the metadata key for trace_id in MCP tool responses.
const traceIDMetaKey = "trace_id"

// withTracing wraps an MCP tool handler to create an OTel span per invocation
// and include trace_id in the response content when sampled.
func withTracing[Input any](
	tracer trace.Tracer,
	toolName string,
	handler func(context.Context, *mcpsdk.CallToolRequest, Input) (*mcpsdk.CallToolResult, ToolOutput, error),
) func(context.Context, *mcpsdk.CallToolRequest, Input) (*mcpsdk.CallToolResult, ToolOutput, error) {
	if tracer == nil {
		return handler
	}

	return func(ctx context.Context, req *mcpsdk.CallToolRequest, input Input) (*mcpsdk.CallToolResult, ToolOutput, error) {
		ctx, span := tracer.Start(ctx, mcpSpanPrefix+toolName,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(attribute.String("mcp.tool", toolName)),
		)
		defer span.End()

		ctx = observability.ContextWithOperation(ctx, mcpSpanPrefix+toolName)

		result, output, err := handler(ctx, req, input)

		sc := span.SpanContext()
		if sc.IsSampled() && result != nil {
			traceContent := &mcpsdk.TextContent{Text: fmt.Sprintf("%s=%s", traceIDMetaKey, sc.TraceID().String())}
			result.Content = append(result.Content, traceContent)
		}

		return result, output, err
	}
}

// withMetrics wraps an MCP tool handler to record RED metrics per invocation.
func withMetrics[Input any](
	metrics *observability.OperationMetrics,
	toolName string,
	handler func(context.Context, *mcpsdk.CallToolRequest, Input) (*mcpsdk.CallToolResult, ToolOutput, error),
) func(context.Context, *mcpsdk.CallToolRequest, Input) (*mcpsdk.CallToolResult, ToolOutput, error) {
	if metrics == nil {
		return handler
	}

	return func(ctx context.Context, req *mcpsdk.CallToolRequest, input Input) (*mcpsdk.CallToolResult, ToolOutput, error) {
		start := time.Now()

		decInflight := metrics.TrackInflight(ctx, mcpSpanPrefix+toolName)
		defer decInflight()

		result, output, err := handler(ctx, req, input)

		status := observability.StatusOK
		if err != nil || (result != nil && result.IsError) {
			status = observability.StatusError
		}

		metrics.RecordOperation(ctx, mcpSpanPrefix+toolName, status, time.Since(start), changeCount(output))

		return result, output, err
	}
}

func changeCount(output ToolOutput) int {
	if res, ok := output.Data.(RefactorResult); ok {
		return len(res.Changes)
	}

	return 0
}

func (s *Server) trackTool(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tools = append(s.tools, name)
}

// Tool description constants.
const (
	parseToolDescription = "Parse Python source and summarize it: statement count, " +
		"top-level functions and classes, nested classes, imports and the canonical rendering."

	queryToolDescription = "Search Python source. Queries: nodes (optionally by kind), " +
		"imports (module filter), calls (function name), try (exception type), assign (target filter)."

	refactorToolDescription = "Apply refactoring operations to Python source and return the new text " +
		"with a change summary. Steps use the recipe format (op plus arguments)."

	sessionOpenToolDescription = "Open a refactoring session on Python source. " +
		"Returns a session_id for pyrefactor_session_apply, _undo and _close."

	sessionApplyToolDescription = "Apply refactoring operations to an open session. " +
		"Operations stay in the session log and can be undone one at a time."

	sessionUndoToolDescription = "Undo the most recent change recorded in an open session."

	sessionCloseToolDescription = "Close a session and release its tree."
)
