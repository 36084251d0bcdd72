// Package lsp provides a Language Server Protocol (LSP) server for Python
// files backed by the pyrefactor parser, printer and refactor engine.
//
// It publishes syntax diagnostics, formats whole documents through the
// printer, lists functions and classes as document symbols and offers
// import and syntax modernizations as code actions.
package lsp

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"

	"github.com/Sumatoshi-tech/pyrefactor/pkg/pyparse"
	"github.com/Sumatoshi-tech/pyrefactor/pkg/recipe"
	"github.com/Sumatoshi-tech/pyrefactor/pkg/unparse"
	"github.com/Sumatoshi-tech/pyrefactor/pkg/version"
)

const (
	serverName               = "pyrefactor"
	methodPublishDiagnostics = "textDocument/publishDiagnostics"
)

// Options configures a Server. Zero values use defaults.
type Options struct {
	Logger  *slog.Logger
	Mode    unparse.Mode
	Applier *recipe.Applier
}

// Server implements the Python LSP server.
type Server struct {
	store   *DocumentStore
	handler protocol.Handler
	parser  *pyparse.Parser
	printer *unparse.Printer
	applier *recipe.Applier
	logger  *slog.Logger
}

// NewServer creates a new LSP server with default handlers.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	applier := opts.Applier
	if applier == nil {
		applier = recipe.NewApplier(recipe.WithLogger(logger))
	}

	srv := &Server{
		store:   NewDocumentStore(),
		parser:  pyparse.New(pyparse.WithLogger(logger)),
		printer: unparse.New(opts.Mode),
		applier: applier,
		logger:  logger,
	}

	srv.handler = protocol.Handler{
		Initialize:                 srv.initialize,
		Initialized:                srv.initialized,
		Shutdown:                   srv.shutdown,
		SetTrace:                   srv.setTrace,
		TextDocumentDidOpen:        srv.didOpen,
		TextDocumentDidChange:      srv.didChange,
		TextDocumentDidSave:        srv.didSave,
		TextDocumentDidClose:       srv.didClose,
		TextDocumentHover:          srv.hover,
		TextDocumentFormatting:     srv.formatting,
		TextDocumentDocumentSymbol: srv.documentSymbol,
		TextDocumentCodeAction:     srv.codeAction,
	}

	return srv
}

// Run starts the LSP server on stdio. It blocks until the client exits.
func (srv *Server) Run() error {
	lspServer := server.NewServer(&srv.handler, serverName, false)

	err := lspServer.RunStdio()
	if err != nil {
		return fmt.Errorf("lsp server: %w", err)
	}

	return nil
}

func (srv *Server) initialize(_ *glsp.Context, params *protocol.InitializeParams) (any, error) {
	capabilities := srv.handler.CreateServerCapabilities()

	// Documents are re-parsed in full on every change.
	if syncOpts, ok := capabilities.TextDocumentSync.(*protocol.TextDocumentSyncOptions); ok {
		full := protocol.TextDocumentSyncKindFull
		syncOpts.Change = &full
	}

	client := "unknown"
	if params != nil && params.ClientInfo != nil {
		client = params.ClientInfo.Name
	}

	srv.logger.Info("lsp client connected", "client", client)

	serverVersion := version.Version

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    serverName,
			Version: &serverVersion,
		},
	}, nil
}

func (srv *Server) initialized(_ *glsp.Context, _ *protocol.InitializedParams) error {
	return nil
}

func (srv *Server) shutdown(_ *glsp.Context) error {
	protocol.SetTraceValue(protocol.TraceValueOff)

	return nil
}

func (srv *Server) setTrace(_ *glsp.Context, params *protocol.SetTraceParams) error {
	protocol.SetTraceValue(params.Value)

	return nil
}

func (srv *Server) didOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	uri := params.TextDocument.URI
	text := params.TextDocument.Text

	srv.store.Set(uri, text)
	srv.publishDiagnostics(ctx, uri)

	return nil
}

func (srv *Server) didChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	uri := params.TextDocument.URI

	if len(params.ContentChanges) == 0 {
		return nil
	}

	// With full sync the last event carries the whole document.
	var (
		text string
		ok   bool
	)

	switch change := params.ContentChanges[len(params.ContentChanges)-1].(type) {
	case protocol.TextDocumentContentChangeEventWhole:
		text, ok = change.Text, true
	case protocol.TextDocumentContentChangeEvent:
		text, ok = change.Text, change.Range == nil
	case map[string]any:
		text, ok = change["text"].(string)
	}

	if ok {
		srv.store.Set(uri, text)
		srv.publishDiagnostics(ctx, uri)
	}

	return nil
}

func (srv *Server) didSave(ctx *glsp.Context, params *protocol.DidSaveTextDocumentParams) error {
	uri := params.TextDocument.URI

	if params.Text != nil {
		srv.store.Set(uri, *params.Text)
	}

	if _, ok := srv.store.Get(uri); ok {
		srv.publishDiagnostics(ctx, uri)
	}

	return nil
}

func (srv *Server) didClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	uri := params.TextDocument.URI
	srv.store.Delete(uri)

	// Clear diagnostics left in the client for the closed file.
	ctx.Notify(methodPublishDiagnostics, &protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: []protocol.Diagnostic{},
	})

	return nil
}

func (srv *Server) publishDiagnostics(ctx *glsp.Context, uri string) {
	text, ok := srv.store.Get(uri)
	if !ok {
		return
	}

	ctx.Notify(methodPublishDiagnostics, &protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: srv.diagnose(context.Background(), text),
	})
}
