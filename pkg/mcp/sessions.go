package mcp

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Sumatoshi-tech/pyrefactor/pkg/recipe"
	"github.com/Sumatoshi-tech/pyrefactor/pkg/refactor"
)

// DefaultMaxSessions is the open session limit when ServerDeps leaves it unset.
const DefaultMaxSessions = 64

// sessionEntry serializes calls against one refactor session, which has no
// locking of its own.
type sessionEntry struct {
	mu      sync.Mutex
	session *refactor.Session
}

type sessionStore struct {
	mu       sync.Mutex
	limit    int
	sessions map[string]*sessionEntry
}

func newSessionStore(limit int) *sessionStore {
	if limit <= 0 {
		limit = DefaultMaxSessions
	}

	return &sessionStore{limit: limit, sessions: make(map[string]*sessionEntry)}
}

func (store *sessionStore) open(session *refactor.Session) (string, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	if len(store.sessions) >= store.limit {
		return "", fmt.Errorf("%w (limit %d)", ErrTooManySessions, store.limit)
	}

	id := uuid.NewString()
	store.sessions[id] = &sessionEntry{session: session}

	return id, nil
}

func (store *sessionStore) get(id string) (*sessionEntry, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	entry, ok := store.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrSessionNotFound, id)
	}

	return entry, nil
}

func (store *sessionStore) close(id string) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	if _, ok := store.sessions[id]; !ok {
		return fmt.Errorf("%w: %q", ErrSessionNotFound, id)
	}

	delete(store.sessions, id)

	return nil
}

func (store *sessionStore) count() int {
	store.mu.Lock()
	defer store.mu.Unlock()

	return len(store.sessions)
}

// OpenSessions reports how many sessions are open.
func (s *Server) OpenSessions() int {
	return s.sessions.count()
}

func (s *Server) handleSessionOpen(
	ctx context.Context, _ *mcpsdk.CallToolRequest, input SessionOpenInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	mod, printer, err := s.load(ctx, input.Code, input.Mode)
	if err != nil {
		return errorResult(err)
	}

	session := refactor.New(mod, refactor.WithPrinter(printer), refactor.WithLogger(s.logger))

	id, err := s.sessions.open(session)
	if err != nil {
		return errorResult(err)
	}

	s.logger.DebugContext(ctx, "mcp session opened", "session_id", id)

	result, err := sessionResult(id, session)
	if err != nil {
		return errorResult(err)
	}

	return jsonResult(result)
}

func (s *Server) handleSessionApply(
	ctx context.Context, _ *mcpsdk.CallToolRequest, input SessionApplyInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	err := validateSteps(input.Steps)
	if err != nil {
		return errorResult(err)
	}

	entry, err := s.sessions.get(input.SessionID)
	if err != nil {
		return errorResult(err)
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	err = s.applier.Apply(entry.session, &recipe.Recipe{Steps: input.Steps})
	if err != nil {
		s.logger.DebugContext(ctx, "mcp session step failed", "session_id", input.SessionID, "error", err)

		return errorResult(err)
	}

	result, err := sessionResult(input.SessionID, entry.session)
	if err != nil {
		return errorResult(err)
	}

	return jsonResult(result)
}

func (s *Server) handleSessionUndo(
	_ context.Context, _ *mcpsdk.CallToolRequest, input SessionInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	entry, err := s.sessions.get(input.SessionID)
	if err != nil {
		return errorResult(err)
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	err = entry.session.UndoLastChange()
	if err != nil {
		return errorResult(err)
	}

	result, err := sessionResult(input.SessionID, entry.session)
	if err != nil {
		return errorResult(err)
	}

	return jsonResult(result)
}

func (s *Server) handleSessionClose(
	ctx context.Context, _ *mcpsdk.CallToolRequest, input SessionInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	err := s.sessions.close(input.SessionID)
	if err != nil {
		return errorResult(err)
	}

	s.logger.DebugContext(ctx, "mcp session closed", "session_id", input.SessionID)

	return jsonResult(map[string]string{"closed": input.SessionID})
}
