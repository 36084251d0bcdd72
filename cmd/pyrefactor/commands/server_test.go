package commands

import (
	"bytes"
	"strconv"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/pyrefactor/pkg/config"
	"github.com/Sumatoshi-tech/pyrefactor/pkg/mcp"
	"github.com/Sumatoshi-tech/pyrefactor/pkg/observability"
	"github.com/Sumatoshi-tech/pyrefactor/pkg/unparse"
	"github.com/Sumatoshi-tech/pyrefactor/pkg/version"
)

func TestMCPCommand_Exists(t *testing.T) {
	t.Parallel()

	cmd := NewMCPCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "mcp", cmd.Use)
	assert.NotEmpty(t, cmd.Short)
	assert.Contains(t, cmd.Long, mcp.ToolNameRefactor)

	flag := cmd.Flags().Lookup("max-sessions")
	require.NotNil(t, flag)
	assert.Equal(t, strconv.Itoa(mcp.DefaultMaxSessions), flag.DefValue)
}

func TestLSPCommand_Exists(t *testing.T) {
	t.Parallel()

	cmd := NewLSPCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "lsp", cmd.Use)
	assert.NotNil(t, cmd.Flags().Lookup(modeFlag))
}

func TestVersionCommand(t *testing.T) {
	t.Parallel()

	stdout, _, err := run(t, NewVersionCommand(), "", "version")
	require.NoError(t, err)
	assert.Equal(t, version.String()+"\n", stdout)
}

func TestObservabilityConfig(t *testing.T) {
	t.Parallel()

	cfg := configWith(t, "log:\n  level: warn\n  json: true\ntelemetry:\n  sample_ratio: 0.25\n  metrics_file: /tmp/m.prom\n")

	root := &cobra.Command{Use: "pyrefactor"}
	RegisterGlobalFlags(root)

	var stderr bytes.Buffer

	root.SetErr(&stderr)

	obsCfg, err := observabilityConfig(root, cfg, observability.ModeMCP)
	require.NoError(t, err)

	assert.Equal(t, observability.ModeMCP, obsCfg.Mode)
	assert.Equal(t, "WARN", obsCfg.LogLevel.String())
	assert.True(t, obsCfg.LogJSON)
	assert.InDelta(t, 0.25, obsCfg.SampleRatio, 1e-9)
	assert.Equal(t, "/tmp/m.prom", obsCfg.MetricsFile)
	assert.Same(t, &stderr, obsCfg.LogOutput)
	assert.False(t, obsCfg.DebugTrace)

	require.NoError(t, root.PersistentFlags().Set(verboseFlag, "true"))

	obsCfg, err = observabilityConfig(root, cfg, observability.ModeCLI)
	require.NoError(t, err)
	assert.Equal(t, "DEBUG", obsCfg.LogLevel.String())
	assert.True(t, obsCfg.DebugTrace)
}

func TestNewEnvironment_ModeOverride(t *testing.T) {
	t.Parallel()

	cmd := NewRenderCommand()
	RegisterGlobalFlags(cmd)

	path := writeFile(t, t.TempDir(), "pyrefactor.yaml", "render:\n  mode: strict\nlog:\n  level: error\n")
	require.NoError(t, cmd.PersistentFlags().Set(configFlag, path))

	env, err := newEnvironment(cmd, observability.ModeCLI, false)
	require.NoError(t, err)
	assert.Equal(t, unparse.Strict, env.mode)
	env.close()

	require.NoError(t, cmd.Flags().Set(modeFlag, "verbatim"))

	env, err = newEnvironment(cmd, observability.ModeCLI, false)
	require.NoError(t, err)
	assert.Equal(t, unparse.Verbatim, env.mode)
	env.close()
}

func TestNewEnvironment_InvalidConfig(t *testing.T) {
	t.Parallel()

	cmd := NewRenderCommand()
	RegisterGlobalFlags(cmd)

	path := writeFile(t, t.TempDir(), "pyrefactor.yaml", "render:\n  mode: pretty\n")
	require.NoError(t, cmd.PersistentFlags().Set(configFlag, path))

	_, err := newEnvironment(cmd, observability.ModeCLI, false)
	require.ErrorIs(t, err, config.ErrInvalidRenderMode)
}
