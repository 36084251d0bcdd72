package refactor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/pyrefactor/pkg/pyast"
)

func TestRenameFunction_TopLevelOnly(t *testing.T) {
	t.Parallel()

	session := newSession(t, "def f():\n    pass\n\nclass C:\n    def f(self):\n        pass\n")

	require.NoError(t, session.RenameFunction("f", "g"))

	assert.Equal(t, "def g():\n    pass\nclass C:\n    def f(self):\n        pass", text(t, session))

	changes := session.Changes()
	require.Len(t, changes, 1)
	assert.Equal(t, FunctionRenamed, changes[0].Kind)
	assert.Equal(t, "f", changes[0].Old)
	assert.Equal(t, "g", changes[0].New)
	assert.Equal(t, &pyast.Location{Line: 1, Column: 1}, changes[0].Location)
}

func TestRenameFunction_EveryTopLevelMatchOneChange(t *testing.T) {
	t.Parallel()

	session := newSession(t, "def f():\n    pass\ndef f():\n    return 1\n")

	require.NoError(t, session.RenameFunction("f", "g"))
	assert.Equal(t, []string{"g", "g"}, session.Module().FunctionNames())
	assert.Len(t, session.Changes(), 1)
}

func TestRename_Missing(t *testing.T) {
	t.Parallel()

	session := newSession(t, "class C:\n    def method(self):\n        pass\n")

	err := session.RenameFunction("method", "other")
	require.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "Function 'method' not found", err.Error())

	err = session.RenameClass("Missing", "Other")
	require.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "Class 'Missing' not found", err.Error())

	assert.Empty(t, session.Changes())
}

func TestRenameVariable(t *testing.T) {
	t.Parallel()

	src := "count = 0\ntotal = count + 1\n\ndef show(count):\n    return count\n\ndef use():\n    return count\n"
	session := newSession(t, src)

	require.NoError(t, session.RenameVariable("count", "n"))

	assert.Equal(t,
		"n = 0\ntotal = n + 1\ndef show(count):\n    return count\ndef use():\n    return n",
		text(t, session))
	assert.Equal(t, VariableRenamed, session.Changes()[0].Kind)

	require.ErrorIs(t, session.RenameVariable("absent", "x"), ErrNotFound)
}

func TestRenameVariable_InsideContainers(t *testing.T) {
	t.Parallel()

	session := newSession(t, "x = 1\ny = [x, 2]\nz = {\"k\": not (x)}\n")

	require.NoError(t, session.RenameVariable("x", "w"))
	assert.Equal(t, "w = 1\ny = [w, 2]\nz = {\"k\": not (w)}", text(t, session))
}

func TestReplaceImport(t *testing.T) {
	t.Parallel()

	session := newSession(t, "import os\nimport json as js\nfrom json import loads\n")

	require.NoError(t, session.ReplaceImport("json", "ujson"))
	assert.Equal(t, "import os\nimport ujson as js\nfrom ujson import loads", text(t, session))

	changes := session.Changes()
	require.Len(t, changes, 1)
	assert.Equal(t, "Replaced import 'json' with 'ujson'", changes[0].Description)

	// A second run matches nothing and logs nothing.
	require.NoError(t, session.ReplaceImport("json", "ujson"))
	assert.Len(t, session.Changes(), 1)
}

func TestModernizeImports(t *testing.T) {
	t.Parallel()

	session := newSession(t, "import ConfigParser\nfrom urlparse import urljoin\nimport os\n")

	require.NoError(t, session.ModernizeImports())
	assert.Equal(t, "import configparser\nfrom urllib.parse import urljoin\nimport os", text(t, session))

	changes := session.Changes()
	require.Len(t, changes, 3)
	assert.Equal(t, SyntaxModernized, changes[2].Kind)
	assert.Equal(t, "Modernized deprecated imports", changes[2].Description)

	fresh := newSession(t, "import os\n")
	require.NoError(t, fresh.ModernizeImports())
	assert.Empty(t, fresh.Changes())
}

func TestModernizeImports_ExtraMappings(t *testing.T) {
	t.Parallel()

	session := newSession(t, "import simplejson\n")

	require.NoError(t, session.ModernizeImports(ImportMapping{Old: "simplejson", New: "json"}))
	assert.Equal(t, "import json", text(t, session))
}

const pkgResourcesSource = `from pkg_resources import get_distribution, DistributionNotFound

try:
    __version__ = get_distribution(__name__).version
except DistributionNotFound:
    __version__ = "0.0.0-dev.1"
`

func TestModernizePkgResourcesVersion(t *testing.T) {
	t.Parallel()

	session := newSession(t, pkgResourcesSource)

	require.NoError(t, session.ModernizePkgResourcesVersion("mylib.version", "get_package_version"))

	assert.Equal(t,
		"from mylib.version import get_package_version\n__version__ = get_package_version(__name__)",
		text(t, session))

	changes := session.Changes()
	require.Len(t, changes, 2)
	assert.Equal(t, ImportModified, changes[0].Kind)
	assert.Equal(t, SyntaxModernized, changes[1].Kind)
}

func TestModernizePkgResourcesVersion_KeepsUsedExceptionAlias(t *testing.T) {
	t.Parallel()

	src := pkgResourcesSource + "\ndef check(err):\n    return isinstance(err, DistributionNotFound)\n"
	session := newSession(t, src)

	require.NoError(t, session.ModernizePkgResourcesVersion("compat", "version_of"))

	from := session.Module().Body[0].(*pyast.ImportFrom)
	assert.Equal(t, []pyast.Alias{{Name: "version_of"}, {Name: "DistributionNotFound"}}, from.Names)
}

func TestModernizePkgResourcesVersion_AlreadyModern(t *testing.T) {
	t.Parallel()

	session := newSession(t, "from mylib.version import get_package_version\n__version__ = get_package_version(__name__)\n")
	before := text(t, session)

	require.NoError(t, session.ModernizePkgResourcesVersion("mylib.version", "get_package_version"))
	assert.Empty(t, session.Changes())
	assert.Equal(t, before, text(t, session))
}

func TestModernizePkgResourcesVersion_LookupInsideContainer(t *testing.T) {
	t.Parallel()

	session := newSession(t, "from pkg_resources import get_distribution\ninfo = {\"v\": get_distribution(\"pkg\").version}\n")

	require.NoError(t, session.ModernizePkgResourcesVersion("compat", "version_of"))
	assert.Equal(t, "from compat import version_of\ninfo = {\"v\": version_of(\"pkg\")}", text(t, session))
}

func TestModernizePkgResourcesVersion_ImportOnly(t *testing.T) {
	t.Parallel()

	session := newSession(t, "from pkg_resources import get_distribution\n")

	require.NoError(t, session.ModernizePkgResourcesVersion("compat", "version_of"))
	assert.Equal(t, "from compat import version_of", text(t, session))
	assert.Len(t, session.Changes(), 1)
}

func TestRemoveUnusedImports(t *testing.T) {
	t.Parallel()

	src := "from __future__ import annotations\nimport os, sys\nimport json as js\nfrom typing import *\n" +
		"from collections import OrderedDict, defaultdict\n\nprint(sys.argv, defaultdict)\n"
	session := newSession(t, src)

	require.NoError(t, session.RemoveUnusedImports())
	assert.Equal(t,
		"from __future__ import annotations\nimport sys\nfrom typing import *\n"+
			"from collections import defaultdict\nprint(sys.argv, defaultdict)",
		text(t, session))

	changes := session.Changes()
	require.Len(t, changes, 1)
	assert.Equal(t, "Removed 3 unused imports", changes[0].Description)
}

func TestRemoveUnusedImports_OpaqueAndExports(t *testing.T) {
	t.Parallel()

	src := "import os\nimport re\nfrom pkg import api\n__all__ = [\"api\"]\nfor name in os.listdir():\n    pass\n"
	session := newSession(t, src)

	require.NoError(t, session.RemoveUnusedImports())

	imports := 0

	for _, stmt := range session.Module().Body {
		if isImport(stmt) {
			imports++
		}
	}

	assert.Equal(t, 2, imports, "os is used inside an opaque loop, api is exported")
	assert.Equal(t, "re", session.Changes()[0].Old)
}

func TestSortImports(t *testing.T) {
	t.Parallel()

	session := newSession(t, "from __future__ import annotations\nfrom z import a\nimport sys\nimport abc\n\nx = 1\nimport late\n")

	require.NoError(t, session.SortImports())
	assert.Equal(t,
		"from __future__ import annotations\nimport abc\nimport sys\nfrom z import a\nx = 1\nimport late",
		text(t, session))
	assert.Len(t, session.Changes(), 1)

	require.NoError(t, session.SortImports())
	assert.Len(t, session.Changes(), 1, "already sorted")
}

func TestAddImport(t *testing.T) {
	t.Parallel()

	session := newSession(t, "\"\"\"Doc.\"\"\"\nx = 1\n")

	require.NoError(t, session.AddImport(&pyast.Import{Names: []pyast.Alias{{Name: "os"}}}))
	require.NoError(t, session.AddImport(&pyast.ImportFrom{Module: "typing", Names: []pyast.Alias{{Name: "Any"}}}))
	assert.Equal(t, "\"Doc.\"\nimport os\nfrom typing import Any\nx = 1", text(t, session))
	assert.Equal(t, "Added import 'import os'", session.Changes()[0].Description)

	err := session.AddImport(&pyast.Pass{})
	require.ErrorIs(t, err, pyast.ErrUnsupportedNode)
}

func TestModernizeStringFormatting(t *testing.T) {
	t.Parallel()

	src := "a = \"%s and %r\" % (x, y)\nb = \"100%% {done}: %s\" % \"ok\"\nc = \"%d\" % (n,)\nd = \"%s\" % value\n"
	session := newSession(t, src)

	require.NoError(t, session.ModernizeStringFormatting())
	assert.Equal(t,
		"a = \"{} and {!r}\".format(x, y)\nb = \"100% {{done}}: {}\".format(\"ok\")\nc = \"%d\" % (n,)\nd = \"%s\" % value",
		text(t, session))

	changes := session.Changes()
	require.Len(t, changes, 1)
	assert.Equal(t, "Modernized 2 string formatting patterns", changes[0].Description)
}

func TestModernizeStringFormatting_InsideContainer(t *testing.T) {
	t.Parallel()

	session := newSession(t, "y = [\"%s\" % \"a\", -(\"%r-%s\" % (b, c))]\n")

	require.NoError(t, session.ModernizeStringFormatting())
	assert.Equal(t, "y = [\"{}\".format(\"a\"), -(\"{!r}-{}\".format(b, c))]", text(t, session))
	assert.Equal(t, "Modernized 2 string formatting patterns", session.Changes()[0].Description)
}

func TestAddTypeHints(t *testing.T) {
	t.Parallel()

	session := newSession(t, "def f():\n    pass\ndef g() -> int:\n    pass\n")

	require.NoError(t, session.AddTypeHints(map[string]string{"f": "str", "g": "bytes", "h": "None"}))
	assert.Equal(t, "def f() -> str:\n    pass\ndef g() -> int:\n    pass", text(t, session))

	changes := session.Changes()
	require.Len(t, changes, 1)
	assert.Equal(t, "Added type hint 'str' to function 'f'", changes[0].Description)
}

func TestChangeKind_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "function_renamed", FunctionRenamed.String())
	assert.Equal(t, "custom", Custom.String())
	assert.Equal(t, "ChangeKind(42)", ChangeKind(42).String())

	encoded, err := ImportModified.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "import_modified", string(encoded))
}
