package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/pyrefactor/pkg/unparse"
)

func TestRenderCommand_NormalizesFile(t *testing.T) {
	t.Parallel()

	path := writeFile(t, t.TempDir(), "app.py", "x   =  1\ny=f( 2 )\n")

	stdout, _, err := run(t, NewRenderCommand(), "", "render", "--mode", "lenient", path)
	require.NoError(t, err)
	assert.Equal(t, "x = 1\ny = f(2)\n", stdout)
}

func TestRenderCommand_Stdin(t *testing.T) {
	t.Parallel()

	stdout, _, err := run(t, NewRenderCommand(), "import os\n", "render", "-")
	require.NoError(t, err)
	assert.Equal(t, "import os\n", stdout)
}

func TestRenderCommand_SyntaxError(t *testing.T) {
	t.Parallel()

	_, _, err := run(t, NewRenderCommand(), "def broken(:\n", "render", "-")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "<stdin>")
	assert.Contains(t, err.Error(), "syntax error")
}

func TestRenderCommand_UnknownMode(t *testing.T) {
	t.Parallel()

	_, _, err := run(t, NewRenderCommand(), "pass\n", "render", "--mode", "pretty", "-")
	require.ErrorIs(t, err, unparse.ErrUnknownMode)
}

func TestRenderCommand_MissingFile(t *testing.T) {
	t.Parallel()

	_, _, err := run(t, NewRenderCommand(), "", "render", "does-not-exist.py")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read source")
}
