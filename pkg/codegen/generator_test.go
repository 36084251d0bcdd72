package codegen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerator_Snippets(t *testing.T) {
	t.Parallel()

	gen := New()

	tests := []struct {
		name   string
		render func() (string, error)
		want   string
	}{
		{"import", func() (string, error) { return gen.CreateImport("os", nil, "") }, "import os"},
		{"import alias", func() (string, error) { return gen.CreateImport("json", nil, "js") }, "import json as js"},
		{"from import", func() (string, error) { return gen.CreateImport("pathlib", []string{"Path"}, "") }, "from pathlib import Path"},
		{
			"from import many",
			func() (string, error) { return gen.CreateImport("typing", []string{"List", "Dict"}, "") },
			"from typing import List, Dict",
		},
		{"relative", func() (string, error) { return gen.CreateImport("..pkg", []string{"x"}, "") }, "from ..pkg import x"},
		{"assignment", func() (string, error) { return gen.CreateAssignment("x", "42") }, "x = 42"},
		{
			"call assignment",
			func() (string, error) { return gen.CreateAssignment("__version__", "get_package_version(__name__)") },
			"__version__ = get_package_version(__name__)",
		},
		{"call", func() (string, error) { return gen.CreateFunctionCall("print", []string{"'hello'"}) }, "print('hello')"},
		{"call no args", func() (string, error) { return gen.CreateFunctionCall("main", nil) }, "main()"},
		{
			"try",
			func() (string, error) {
				return gen.CreateTryExcept("result = risky_operation()", "ValueError", "result = 'error'")
			},
			"try:\n    result = risky_operation()\nexcept ValueError:\n    result = 'error'",
		},
		{
			"try multi-line bare except",
			func() (string, error) { return gen.CreateTryExcept("a = 1\nb = 2", "", "raise") },
			"try:\n    a = 1\n    b = 2\nexcept:\n    raise",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := tt.render()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
