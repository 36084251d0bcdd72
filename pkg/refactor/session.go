// Package refactor applies structural edits to a pyast module and keeps a
// log of what changed.
//
// A Session owns one tree. Every mutating operation runs against a private
// copy and is committed only when it succeeds, so a failed operation never
// leaves a partial edit behind. Each logged change remembers the tree it
// replaced, which is what UndoLastChange restores.
//
// Sessions are not safe for concurrent use.
package refactor

import (
	"log/slog"

	"github.com/Sumatoshi-tech/pyrefactor/pkg/pyast"
	"github.com/Sumatoshi-tech/pyrefactor/pkg/unparse"
)

// entry pairs a change with the tree as it was before the change.
type entry struct {
	change Change
	before *pyast.Module
}

// Session owns a module and its change log.
type Session struct {
	module  *pyast.Module
	log     []entry
	printer *unparse.Printer
	logger  *slog.Logger
}

// Option configures a Session.
type Option func(*Session)

// WithPrinter sets the printer used by Text.
func WithPrinter(printer *unparse.Printer) Option {
	return func(session *Session) {
		session.printer = printer
	}
}

// WithLogger sets the session logger.
func WithLogger(logger *slog.Logger) Option {
	return func(session *Session) {
		session.logger = logger
	}
}

// New starts a session that takes ownership of mod. A nil module is
// treated as empty.
func New(mod *pyast.Module, opts ...Option) *Session {
	if mod == nil {
		mod = pyast.NewModule()
	}

	session := &Session{
		module:  mod,
		printer: unparse.New(unparse.Lenient),
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		opt(session)
	}

	return session
}

// Module returns the current tree. Callers must not modify it; use
// ApplyCustomTransform for arbitrary edits.
func (session *Session) Module() *pyast.Module {
	return session.module
}

// Changes returns a copy of the change log, oldest first.
func (session *Session) Changes() []Change {
	out := make([]Change, len(session.log))
	for idx, item := range session.log {
		out[idx] = item.change
	}

	return out
}

// Text renders the current tree.
func (session *Session) Text() (string, error) {
	return session.printer.Module(session.module)
}

// ChangeSummary describes the change log in human-readable form.
func (session *Session) ChangeSummary() string {
	return Summary(session.Changes())
}

// UndoLastChange drops the most recent change and restores the tree to
// its state before that change.
func (session *Session) UndoLastChange() error {
	if len(session.log) == 0 {
		return opError("undo_last_change", ErrNothingToUndo, "No changes to undo")
	}

	last := session.log[len(session.log)-1]
	session.log = session.log[:len(session.log)-1]
	session.module = last.before

	session.logger.Debug("undid change", "kind", last.change.Kind.String(), "description", last.change.Description)

	return nil
}

// txn is one mutating operation in progress.
type txn struct {
	work    *pyast.Module
	base    *pyast.Module
	entries []entry
}

// record logs a change made to work since the previous record.
func (tx *txn) record(change Change) {
	tx.entries = append(tx.entries, entry{change: change, before: tx.base})
	tx.base = tx.work.Clone()
}

// mutate runs edit against a copy of the tree and commits the copy along
// with any recorded changes. Nothing is committed when edit fails or
// records no change.
func (session *Session) mutate(edit func(tx *txn) error) error {
	tx := &txn{work: session.module.Clone(), base: session.module}

	if err := edit(tx); err != nil {
		return err
	}

	if len(tx.entries) == 0 {
		return nil
	}

	session.module = tx.work
	session.log = append(session.log, tx.entries...)

	for _, item := range tx.entries {
		session.logger.Debug("applied change", "kind", item.change.Kind.String(), "description", item.change.Description)
	}

	return nil
}
