package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/pyrefactor/pkg/config"
)

const legacySource = `import cPickle
def get_config(path):
    return cPickle.load(path)
`

// run executes sub under a root carrying the global flags, with a quiet
// config file so neither the user's config nor log output leak in.
func run(t *testing.T, sub *cobra.Command, stdin string, args ...string) (string, string, error) {
	t.Helper()

	configPath := filepath.Join(t.TempDir(), "pyrefactor.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("log:\n  level: error\n"), 0o600))

	root := &cobra.Command{Use: "pyrefactor", SilenceUsage: true, SilenceErrors: true}
	RegisterGlobalFlags(root)
	root.AddCommand(sub)

	var stdout, stderr bytes.Buffer

	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append(args, "--config", configPath))

	err := root.Execute()

	return stdout.String(), stderr.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func readFile(t *testing.T, path string) string {
	t.Helper()

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	return string(data)
}

func configWith(t *testing.T, content string) *config.Config {
	t.Helper()

	cfg, err := config.LoadConfig(writeFile(t, t.TempDir(), "pyrefactor.yaml", content))
	require.NoError(t, err)

	return cfg
}
