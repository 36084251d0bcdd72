package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/pyrefactor/pkg/pyast"
	"github.com/Sumatoshi-tech/pyrefactor/pkg/pyparse"
)

// stdinPath selects standard input wherever a source file is expected.
const stdinPath = "-"

// source is one parsed input module.
type source struct {
	path string
	text string
	mod  *pyast.Module
}

func readSource(cmd *cobra.Command, path string) ([]byte, error) {
	if path == stdinPath {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}

		return data, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read source: %w", err)
	}

	return data, nil
}

func (env *environment) load(ctx context.Context, cmd *cobra.Command, path string) (*source, error) {
	data, err := readSource(cmd, path)
	if err != nil {
		return nil, err
	}

	parser := pyparse.New(pyparse.WithLogger(env.logger))

	mod, err := parser.Parse(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", displayName(path), err)
	}

	return &source{path: path, text: string(data), mod: mod}, nil
}

func displayName(path string) string {
	if path == stdinPath {
		return "<stdin>"
	}

	return path
}
