package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/pyrefactor/pkg/observability"
	"github.com/Sumatoshi-tech/pyrefactor/pkg/recipe"
)

const opRefactor = "refactor"

var (
	// ErrInvalidPair is returned for an old=new flag value missing a side.
	ErrInvalidPair = errors.New("expected old=new")
	// ErrNoOperations is returned when no operation flag is set.
	ErrNoOperations = errors.New("no refactoring selected; see pyrefactor refactor --help")
)

// refactorFlags holds one field per operation flag.
type refactorFlags struct {
	renameFunction      []string
	renameClass         []string
	renameVariable      []string
	replaceImport       []string
	addImport           []string
	typeHints           map[string]string
	modernizeImports    bool
	modernizePkg        bool
	removeUnused        bool
	sortImports         bool
	modernizeFormatting bool
	optional            bool
}

// NewRefactorCommand creates the refactor subcommand.
func NewRefactorCommand() *cobra.Command {
	var (
		flags refactorFlags
		out   outputOptions
	)

	cmd := &cobra.Command{
		Use:   "refactor <file|->",
		Short: "Apply refactorings selected by flags",
		Long: `Apply refactorings to one module and print the result.

Operations run in a fixed order (renames, import edits, modernizations,
type hints) regardless of flag order. Use "pyrefactor apply" with a recipe
when the order matters.

Examples:
  pyrefactor refactor --rename-function get_config=load_config app.py
  pyrefactor refactor --modernize-imports --sort-imports --diff app.py
  pyrefactor refactor --add-import importlib.metadata:version -w app.py`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rcp, err := flags.recipe()
			if err != nil {
				return err
			}

			env, err := newEnvironment(cmd, observability.ModeCLI, false)
			if err != nil {
				return err
			}
			defer env.close()

			return env.applyRecipe(cmd, opRefactor, args[0], rcp, out)
		},
	}

	fs := cmd.Flags()
	fs.StringArrayVar(&flags.renameFunction, "rename-function", nil, "rename a top-level function (old=new, repeatable)")
	fs.StringArrayVar(&flags.renameClass, "rename-class", nil, "rename a top-level class (old=new, repeatable)")
	fs.StringArrayVar(&flags.renameVariable, "rename-variable", nil, "rename a variable (old=new, repeatable)")
	fs.StringArrayVar(&flags.replaceImport, "replace-import", nil, "replace an imported module (old=new, repeatable)")
	fs.StringArrayVar(&flags.addImport, "add-import", nil, "add `module` or `module:name,name` (repeatable)")
	fs.StringToStringVar(&flags.typeHints, "type-hint", nil, "set a return annotation (function=type, repeatable)")
	fs.BoolVar(&flags.modernizeImports, "modernize-imports", false, "replace deprecated modules with their successors")
	fs.BoolVar(&flags.modernizePkg, "modernize-pkg-resources", false, "replace pkg_resources version lookups")
	fs.BoolVar(&flags.removeUnused, "remove-unused-imports", false, "drop imports whose names are never used")
	fs.BoolVar(&flags.sortImports, "sort-imports", false, "sort the leading import block")
	fs.BoolVar(&flags.modernizeFormatting, "modernize-string-formatting", false, "convert % formatting to str.format")
	fs.BoolVar(&flags.optional, "ignore-missing", false, "skip renames and replacements whose target is absent")

	registerOutputFlags(cmd, &out)

	return cmd
}

// recipe converts the flags to steps in recipe.Ops order.
func (rf *refactorFlags) recipe() (*recipe.Recipe, error) {
	rcp := &recipe.Recipe{}

	pairs := []struct {
		op     recipe.Op
		values []string
	}{
		{recipe.OpRenameFunction, rf.renameFunction},
		{recipe.OpRenameClass, rf.renameClass},
		{recipe.OpRenameVariable, rf.renameVariable},
		{recipe.OpReplaceImport, rf.replaceImport},
	}

	for _, pair := range pairs {
		for _, value := range pair.values {
			oldName, newName, err := splitPair(value)
			if err != nil {
				return nil, fmt.Errorf("--%s: %w", strings.ReplaceAll(string(pair.op), "_", "-"), err)
			}

			rcp.Steps = append(rcp.Steps, recipe.Step{Op: pair.op, Old: oldName, New: newName, Optional: rf.optional})
		}
	}

	toggles := []struct {
		op      recipe.Op
		enabled bool
	}{
		{recipe.OpModernizeImports, rf.modernizeImports},
		{recipe.OpModernizePkgResources, rf.modernizePkg},
		{recipe.OpRemoveUnusedImports, rf.removeUnused},
		{recipe.OpSortImports, rf.sortImports},
		{recipe.OpModernizeStringFormatting, rf.modernizeFormatting},
	}

	for _, toggle := range toggles {
		if toggle.enabled {
			rcp.Steps = append(rcp.Steps, recipe.Step{Op: toggle.op})
		}
	}

	for _, value := range rf.addImport {
		rcp.Steps = append(rcp.Steps, importStep(value))
	}

	if len(rf.typeHints) > 0 {
		rcp.Steps = append(rcp.Steps, recipe.Step{Op: recipe.OpAddTypeHints, Hints: rf.typeHints})
	}

	if len(rcp.Steps) == 0 {
		return nil, ErrNoOperations
	}

	return rcp, nil
}

func splitPair(value string) (string, string, error) {
	oldName, newName, ok := strings.Cut(value, "=")
	oldName, newName = strings.TrimSpace(oldName), strings.TrimSpace(newName)

	if !ok || oldName == "" || newName == "" {
		return "", "", fmt.Errorf("%w, got %q", ErrInvalidPair, value)
	}

	return oldName, newName, nil
}

// importStep parses "module", "module as alias" or "module:a,b".
func importStep(value string) recipe.Step {
	step := recipe.Step{Op: recipe.OpAddImport}

	module, names, isFrom := strings.Cut(value, ":")
	if isFrom {
		for _, name := range strings.Split(names, ",") {
			if name = strings.TrimSpace(name); name != "" {
				step.Names = append(step.Names, name)
			}
		}
	} else if base, alias, ok := strings.Cut(module, " as "); ok {
		module, step.Alias = base, strings.TrimSpace(alias)
	}

	step.Module = strings.TrimSpace(module)

	return step
}

// applyRecipe parses path, runs rcp in one session and emits the result.
func (env *environment) applyRecipe(
	cmd *cobra.Command, op, path string, rcp *recipe.Recipe, out outputOptions,
) error {
	return env.metrics.Instrument(cmd.Context(), env.providers.Tracer, op, func(ctx context.Context) (int, error) {
		ctx = observability.ContextWithOperation(ctx, op)

		src, err := env.load(ctx, cmd, path)
		if err != nil {
			return 0, err
		}

		session := newSession(env, src)

		err = env.applier.Apply(session, rcp)
		if err != nil {
			return len(session.Changes()), err
		}

		env.logger.DebugContext(ctx, "recipe applied", "path", displayName(path), "steps", len(rcp.Steps),
			"changes", len(session.Changes()))

		return len(session.Changes()), env.emit(cmd, src, session, out)
	})
}
