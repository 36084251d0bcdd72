package commands

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/pyrefactor/pkg/config"
)

const modernizeRecipe = "steps:\n  - op: modernize_imports\n"

type batchJSON struct {
	Files []struct {
		Path    string `json:"path"`
		Outcome string `json:"outcome"`
	} `json:"files"`
	Totals struct {
		Changed   int `json:"changed"`
		Unchanged int `json:"unchanged"`
		Failed    int `json:"failed"`
	} `json:"totals"`
}

func batchTree(t *testing.T) (string, string) {
	t.Helper()

	dir := t.TempDir()
	recipePath := writeFile(t, dir, "recipe.yaml", modernizeRecipe)

	root := filepath.Join(dir, "src")
	writeFile(t, root, "legacy.py", legacySource)
	writeFile(t, root, "modern.py", "import json\n")
	writeFile(t, root, "notes.txt", "import cPickle\n")

	return recipePath, root
}

func TestBatchCommand_JSONReport(t *testing.T) {
	t.Parallel()

	recipePath, root := batchTree(t)

	stdout, _, err := run(t, NewBatchCommand(), "", "batch", recipePath, root, "--report", "json")
	require.NoError(t, err)

	var report batchJSON
	require.NoError(t, json.Unmarshal([]byte(stdout), &report))
	require.Len(t, report.Files, 2)
	assert.Equal(t, 1, report.Totals.Changed)
	assert.Equal(t, 1, report.Totals.Unchanged)

	assert.Contains(t, readFile(t, filepath.Join(root, "legacy.py")), "import pickle")
	assert.Equal(t, "import json\n", readFile(t, filepath.Join(root, "modern.py")))
}

func TestBatchCommand_DryRunDiff(t *testing.T) {
	t.Parallel()

	recipePath, root := batchTree(t)

	stdout, _, err := run(t, NewBatchCommand(), "", "batch", recipePath, root, "-n", "--diff")
	require.NoError(t, err)

	assert.Contains(t, stdout, "+import pickle")
	assert.Contains(t, stdout, "legacy.py")
	assert.Equal(t, legacySource, readFile(t, filepath.Join(root, "legacy.py")))
}

func TestBatchCommand_BackupAndRestore(t *testing.T) {
	t.Parallel()

	recipePath, root := batchTree(t)
	backupDir := filepath.Join(t.TempDir(), "backup")
	legacy := filepath.Join(root, "legacy.py")

	_, _, err := run(t, NewBatchCommand(), "", "batch", recipePath, root, "--backup-dir", backupDir)
	require.NoError(t, err)
	assert.Contains(t, readFile(t, legacy), "import pickle")

	stdout, _, err := run(t, NewBatchCommand(), "", "batch", "restore", root, "--backup-dir", backupDir)
	require.NoError(t, err)
	assert.Contains(t, stdout, "restored 1 of 2 files")
	assert.Equal(t, legacySource, readFile(t, legacy))
}

func TestBatchCommand_RestoreNeedsDir(t *testing.T) {
	t.Parallel()

	_, root := batchTree(t)

	_, _, err := run(t, NewBatchCommand(), "", "batch", "restore", root)
	require.ErrorIs(t, err, ErrNoBackupDir)
}

func TestBatchCommand_Failures(t *testing.T) {
	t.Parallel()

	recipePath, root := batchTree(t)
	writeFile(t, root, "broken.py", "def broken(:\n")

	_, stderr, err := run(t, NewBatchCommand(), "", "batch", recipePath, root, "--report", "table")
	require.ErrorIs(t, err, ErrBatchFailed)
	assert.Contains(t, err.Error(), "1 of 3 files")
	assert.Contains(t, stderr, "broken.py")
	assert.Contains(t, readFile(t, filepath.Join(root, "legacy.py")), "import pickle")
}

func TestBatchCommand_HTMLReportFile(t *testing.T) {
	t.Parallel()

	recipePath, root := batchTree(t)
	reportPath := filepath.Join(t.TempDir(), "report.html")

	stdout, _, err := run(t, NewBatchCommand(), "", "batch", recipePath, root, "--report", "html", "-o", reportPath)
	require.NoError(t, err)
	assert.Empty(t, stdout)
	assert.Contains(t, readFile(t, reportPath), "<html")
}

func TestBatchFlags_Merge(t *testing.T) {
	t.Parallel()

	cmd := NewBatchCommand()
	env := &environment{cfg: config.Default()}
	env.cfg.Batch.Workers = 3
	env.cfg.Batch.Report = "JSON"

	merged, err := batchFlags{}.merge(cmd, env)
	require.NoError(t, err)
	assert.Equal(t, 3, merged.workers)
	assert.Equal(t, reportJSON, merged.report)
	assert.False(t, merged.includeVendor)
	assert.False(t, merged.gitTrackedOnly)

	require.NoError(t, cmd.Flags().Set("workers", "1"))
	require.NoError(t, cmd.Flags().Set("include-vendor", "true"))

	merged, err = batchFlags{workers: 1, includeVendor: true, requireClean: true}.merge(cmd, env)
	require.NoError(t, err)
	assert.Equal(t, 1, merged.workers)
	assert.True(t, merged.includeVendor)
	assert.True(t, merged.gitTrackedOnly, "require-clean implies tracked files")

	_, err = batchFlags{report: "pdf"}.merge(&cobra.Command{}, env)
	require.ErrorIs(t, err, ErrUnknownReport)
}
