package refactor

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/pyrefactor/pkg/pyast"
	"github.com/Sumatoshi-tech/pyrefactor/pkg/pyparse"
	"github.com/Sumatoshi-tech/pyrefactor/pkg/query"
	"github.com/Sumatoshi-tech/pyrefactor/pkg/unparse"
)

var errBoom = errors.New("boom")

func newSession(t *testing.T, src string) *Session {
	t.Helper()

	mod, err := pyparse.ParseString(src)
	require.NoError(t, err)

	return New(mod, WithPrinter(unparse.New(unparse.Verbatim)))
}

func text(t *testing.T, session *Session) string {
	t.Helper()

	out, err := session.Text()
	require.NoError(t, err)

	return out
}

func TestSession_EmptyLog(t *testing.T) {
	t.Parallel()

	session := newSession(t, "x = 1\n")

	assert.Empty(t, session.Changes())
	assert.Equal(t, "No changes made", session.ChangeSummary())
	assert.Equal(t, "x = 1", text(t, session))
}

func TestSession_NilModule(t *testing.T) {
	t.Parallel()

	session := New(nil)
	assert.True(t, session.Module().IsEmpty())
}

func TestSession_Summary(t *testing.T) {
	t.Parallel()

	session := newSession(t, "def a():\n    pass\n\nclass B:\n    pass\n")

	require.NoError(t, session.RenameFunction("a", "c"))
	require.NoError(t, session.RenameClass("B", "D"))

	assert.Equal(t,
		"Made 2 changes:\n1. Renamed function 'a' to 'c'\n2. Renamed class 'B' to 'D'\n",
		session.ChangeSummary())
}

func TestSession_UndoRestoresTree(t *testing.T) {
	t.Parallel()

	session := newSession(t, "def old():\n    pass\n")
	before := text(t, session)

	require.NoError(t, session.RenameFunction("old", "new"))
	assert.Equal(t, "def new():\n    pass", text(t, session))

	require.NoError(t, session.UndoLastChange())
	assert.Equal(t, before, text(t, session))
	assert.Empty(t, session.Changes())
}

func TestSession_UndoEachStepOfCompoundOperation(t *testing.T) {
	t.Parallel()

	session := newSession(t, "import imp\nimport urllib2\n")

	require.NoError(t, session.ModernizeImports())
	require.Len(t, session.Changes(), 3)
	assert.Equal(t, "import importlib\nimport urllib.request", text(t, session))

	// The summary entry carries no edit of its own.
	require.NoError(t, session.UndoLastChange())
	assert.Equal(t, "import importlib\nimport urllib.request", text(t, session))

	require.NoError(t, session.UndoLastChange())
	assert.Equal(t, "import importlib\nimport urllib2", text(t, session))

	require.NoError(t, session.UndoLastChange())
	assert.Equal(t, "import imp\nimport urllib2", text(t, session))
}

func TestSession_UndoEmptyLog(t *testing.T) {
	t.Parallel()

	session := newSession(t, "x = 1\n")

	err := session.UndoLastChange()
	require.Error(t, err)
	require.ErrorIs(t, err, ErrNothingToUndo)
	assert.Equal(t, "No changes to undo", err.Error())

	var opErr *OperationError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, "undo_last_change", opErr.Op)
}

func TestSession_CustomTransform(t *testing.T) {
	t.Parallel()

	session := newSession(t, "x = 1\n")

	err := session.ApplyCustomTransform("Add marker", func(mod *pyast.Module) error {
		mod.Body = append(mod.Body, &pyast.Pass{})

		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "x = 1\npass", text(t, session))

	err = session.ApplyCustomTransform("Nothing", func(*pyast.Module) error { return nil })
	require.NoError(t, err)

	changes := session.Changes()
	require.Len(t, changes, 2)
	assert.Equal(t, Custom, changes[1].Kind)
	assert.Equal(t, "Nothing", changes[1].Description)
}

func TestSession_CustomTransformFailureIsAtomic(t *testing.T) {
	t.Parallel()

	session := newSession(t, "x = 1\n")

	err := session.ApplyCustomTransform("Half done", func(mod *pyast.Module) error {
		mod.Body = nil

		return errBoom
	})
	require.ErrorIs(t, err, errBoom)
	assert.Empty(t, session.Changes())
	assert.Equal(t, "x = 1", text(t, session))
}

func TestSession_NodeEditing(t *testing.T) {
	t.Parallel()

	session := newSession(t, "a = 1\nb = 2\n")
	refs := query.FindNodes(session.Module(), query.KindAssign)
	require.Len(t, refs, 2)

	require.NoError(t, session.InsertBefore(refs[0], &pyast.Assign{
		Targets: []pyast.Expr{pyast.NewName("z")},
		Value:   pyast.NewNum(pyast.IntValue(0)),
	}))
	assert.Equal(t, "z = 0\na = 1\nb = 2", text(t, session))

	refs = query.FindNodes(session.Module(), query.KindAssign)
	require.NoError(t, session.InsertAfter(refs[2], &pyast.Pass{}))
	require.NoError(t, session.RemoveNode(refs[1]))
	assert.Equal(t, "z = 0\nb = 2\npass", text(t, session))

	require.NoError(t, session.ReplaceNode(query.FindNodes(session.Module(), query.KindAssign)[0], &pyast.ExprStmt{
		Value: pyast.NewCall(pyast.NewName("main")),
	}))
	require.NoError(t, session.AddStatement(&pyast.Return{}))
	assert.Equal(t, "main()\nb = 2\npass\nreturn", text(t, session))
	assert.Len(t, session.Changes(), 5)
}

func TestSession_StaleRef(t *testing.T) {
	t.Parallel()

	session := newSession(t, "a = 1\ndef f():\n    pass\n")
	ref := query.FindNodes(session.Module(), query.KindFunctionDef)[0]

	require.NoError(t, session.RemoveNode(query.FindNodes(session.Module(), query.KindAssign)[0]))

	err := session.RemoveNode(ref)
	require.ErrorIs(t, err, ErrInvalidRef)
	assert.Len(t, session.Changes(), 1)

	err = session.ReplaceNode(query.NodeRef{Path: []int{9}}, &pyast.Pass{})
	require.ErrorIs(t, err, ErrInvalidRef)
	require.ErrorIs(t, err, query.ErrInvalidPath)
}
