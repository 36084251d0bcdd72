package recipe_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/pyrefactor/pkg/pyparse"
	"github.com/Sumatoshi-tech/pyrefactor/pkg/recipe"
	"github.com/Sumatoshi-tech/pyrefactor/pkg/refactor"
	"github.com/Sumatoshi-tech/pyrefactor/pkg/unparse"
)

const modernizeRecipe = `version: 1
description: drop legacy imports
steps:
  - op: replace_import
    old: simplejson
    new: json
  - op: rename_function
    old: load
    new: load_config
  - op: rename_class
    old: Missing
    new: Present
    optional: true
  - op: add_import
    module: os
`

func newSession(t *testing.T, src string) *refactor.Session {
	t.Helper()

	mod, err := pyparse.ParseString(src)
	require.NoError(t, err)

	return refactor.New(mod, refactor.WithPrinter(unparse.New(unparse.Verbatim)))
}

func TestParse_Valid(t *testing.T) {
	t.Parallel()

	rcp, err := recipe.Parse([]byte(modernizeRecipe))
	require.NoError(t, err)

	assert.Equal(t, 1, rcp.Version)
	assert.Equal(t, "drop legacy imports", rcp.Description)
	require.Len(t, rcp.Steps, 4)
	assert.Equal(t, recipe.OpReplaceImport, rcp.Steps[0].Op)
	assert.Equal(t, "simplejson", rcp.Steps[0].Old)
	assert.True(t, rcp.Steps[2].Optional)
	assert.Equal(t, "os", rcp.Steps[3].Module)
}

func TestParse_SchemaViolations(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"empty document", "", "object"},
		{"no steps", "steps: []\n", "steps"},
		{"unknown op", "steps:\n  - op: explode\n", "op"},
		{"rename without new", "steps:\n  - op: rename_function\n    old: f\n", "new"},
		{"bad identifier", "steps:\n  - op: rename_class\n    old: A\n    new: 1B\n", "new"},
		{"unknown top-level key", "steps:\n  - op: sort_imports\nextra: 1\n", "extra"},
		{"hints missing", "steps:\n  - op: add_type_hints\n", "hints"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := recipe.Parse([]byte(tt.doc))
			require.ErrorIs(t, err, recipe.ErrInvalidRecipe)

			var verr *recipe.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.NotEmpty(t, verr.Problems)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParse_MalformedYAML(t *testing.T) {
	t.Parallel()

	_, err := recipe.Parse([]byte("steps: [\n"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, recipe.ErrInvalidRecipe)
}

func TestLoad(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "recipe.yaml")
	require.NoError(t, os.WriteFile(path, []byte(modernizeRecipe), 0o600))

	rcp, err := recipe.Load(path)
	require.NoError(t, err)
	assert.Len(t, rcp.Steps, 4)

	_, err = recipe.Read(strings.NewReader("steps: []\n"))
	require.ErrorIs(t, err, recipe.ErrInvalidRecipe)
}

func TestApplier_Apply(t *testing.T) {
	t.Parallel()

	rcp, err := recipe.Parse([]byte(modernizeRecipe))
	require.NoError(t, err)

	session := newSession(t, "import simplejson\n\ndef load(path):\n    return simplejson.load(path)\n")

	require.NoError(t, recipe.NewApplier().Apply(session, rcp))

	out, err := session.Text()
	require.NoError(t, err)
	assert.Equal(t, "import json\nimport os\ndef load_config(path):\n    return simplejson.load(path)", out)
	assert.Len(t, session.Changes(), 3)
}

func TestApplier_StopsAtFailingStep(t *testing.T) {
	t.Parallel()

	rcp := &recipe.Recipe{Steps: []recipe.Step{
		{Op: recipe.OpRenameFunction, Old: "f", New: "g"},
		{Op: recipe.OpRenameClass, Old: "Missing", New: "Other"},
		{Op: recipe.OpRenameFunction, Old: "g", New: "h"},
	}}

	session := newSession(t, "def f():\n    pass\n")

	err := recipe.NewApplier().Apply(session, rcp)
	require.ErrorIs(t, err, refactor.ErrNotFound)

	var stepErr *recipe.StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, 1, stepErr.Index)
	assert.Equal(t, recipe.OpRenameClass, stepErr.Op)
	assert.Equal(t, "step 2 (rename_class): Class 'Missing' not found", err.Error())

	assert.Equal(t, []string{"g"}, session.Module().FunctionNames())
}

func TestApplier_VersionTargetAndMappings(t *testing.T) {
	t.Parallel()

	src := "from pkg_resources import get_distribution\nimport yaml_compat\n"
	session := newSession(t, src)

	app := recipe.NewApplier(
		recipe.WithVersionTarget("compat", "version_of"),
		recipe.WithImportMappings(refactor.ImportMapping{Old: "yaml_compat", New: "yaml"}),
	)

	rcp := &recipe.Recipe{Steps: []recipe.Step{
		{Op: recipe.OpModernizePkgResources},
		{Op: recipe.OpModernizeImports},
	}}
	require.NoError(t, app.Apply(session, rcp))

	out, err := session.Text()
	require.NoError(t, err)
	assert.Equal(t, "from compat import version_of\nimport yaml", out)
}

func TestApplier_UnknownOp(t *testing.T) {
	t.Parallel()

	err := recipe.NewApplier().ApplyStep(newSession(t, "x = 1\n"), recipe.Step{Op: "explode"})
	require.ErrorIs(t, err, recipe.ErrUnknownOp)
}

func TestOps_MatchSchemaEnum(t *testing.T) {
	t.Parallel()

	schema := string(recipe.Schema())
	for _, op := range recipe.Ops {
		assert.Contains(t, schema, `"`+string(op)+`"`)
	}
}
