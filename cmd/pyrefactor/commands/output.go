package commands

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/pyrefactor/pkg/batch"
	"github.com/Sumatoshi-tech/pyrefactor/pkg/refactor"
	"github.com/Sumatoshi-tech/pyrefactor/pkg/unparse"
)

// ErrWriteStdin is returned for --write on standard input.
var ErrWriteStdin = errors.New("--write needs a file, not stdin")

// outputOptions selects what refactor and apply print.
type outputOptions struct {
	diff    bool
	write   bool
	summary bool
	changes bool
}

func registerOutputFlags(cmd *cobra.Command, opts *outputOptions) {
	cmd.Flags().BoolVarP(&opts.diff, "diff", "d", false, "print a unified diff instead of the rewritten module")
	cmd.Flags().BoolVarP(&opts.write, "write", "w", false, "write the result back to the source file")
	cmd.Flags().BoolVarP(&opts.summary, "summary", "s", false, "print the change summary to stderr")
	cmd.Flags().BoolVar(&opts.changes, "changes", false, "print the change log as JSON instead of the module")
	cmd.Flags().String(modeFlag, "", "printer mode: lenient, strict or verbatim (overrides config)")
}

// emit prints or writes the session result according to opts.
func (env *environment) emit(cmd *cobra.Command, src *source, session *refactor.Session, opts outputOptions) error {
	if opts.write && src.path == stdinPath {
		return ErrWriteStdin
	}

	text, err := session.Text()
	if err != nil {
		return fmt.Errorf("render %s: %w", displayName(src.path), err)
	}

	text = withTrailingNewline(text)
	out := cmd.OutOrStdout()

	switch {
	case opts.changes:
		err = writeJSON(out, nonNil(session.Changes()))
	case opts.diff:
		err = writeDiff(out, batch.UnifiedDiff(src.path, src.text, text))
	case !opts.write:
		_, err = io.WriteString(out, text)
	}

	if err != nil {
		return err
	}

	if opts.write && len(session.Changes()) > 0 {
		err = writeBack(src.path, text)
		if err != nil {
			return err
		}

		env.logger.Info("file rewritten", "path", src.path, "changes", len(session.Changes()))
	}

	if opts.summary {
		color.New(color.FgCyan).Fprintln(cmd.ErrOrStderr(), session.ChangeSummary())
	}

	return nil
}

// writeDiff colors a unified diff line by line.
func writeDiff(w io.Writer, diff string) error {
	var (
		added   = color.New(color.FgGreen)
		removed = color.New(color.FgRed)
		hunk    = color.New(color.FgCyan)
		header  = color.New(color.Bold)
	)

	scanner := bufio.NewScanner(strings.NewReader(diff))
	for scanner.Scan() {
		text := scanner.Text()

		var err error

		switch {
		case strings.HasPrefix(text, "+++"), strings.HasPrefix(text, "---"):
			_, err = header.Fprintln(w, text)
		case strings.HasPrefix(text, "@@"):
			_, err = hunk.Fprintln(w, text)
		case strings.HasPrefix(text, "+"):
			_, err = added.Fprintln(w, text)
		case strings.HasPrefix(text, "-"):
			_, err = removed.Fprintln(w, text)
		default:
			_, err = fmt.Fprintln(w, text)
		}

		if err != nil {
			return fmt.Errorf("write diff: %w", err)
		}
	}

	return scanner.Err()
}

func writeBack(path, text string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}

	err = os.WriteFile(path, []byte(text), info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	return nil
}

func withTrailingNewline(text string) string {
	if text == "" || strings.HasSuffix(text, "\n") {
		return text
	}

	return text + "\n"
}

func newSession(env *environment, src *source) *refactor.Session {
	return refactor.New(src.mod,
		refactor.WithPrinter(unparse.New(env.mode)),
		refactor.WithLogger(env.logger),
	)
}
