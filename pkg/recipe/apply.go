package recipe

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/Sumatoshi-tech/pyrefactor/pkg/codegen"
	"github.com/Sumatoshi-tech/pyrefactor/pkg/refactor"
)

// Default pkg_resources replacement target.
const (
	DefaultVersionModule   = "importlib.metadata"
	DefaultVersionFunction = "version"
)

// ErrUnknownOp is returned for a step naming no known operation. Schema
// validation rejects these first; the check guards hand-built recipes.
var ErrUnknownOp = errors.New("unknown recipe operation")

// StepError reports which step failed.
type StepError struct {
	Index int
	Op    Op
	Err   error
}

func (se *StepError) Error() string {
	return fmt.Sprintf("step %d (%s): %v", se.Index+1, se.Op, se.Err)
}

func (se *StepError) Unwrap() error {
	return se.Err
}

// Applier runs recipes against sessions.
type Applier struct {
	versionModule   string
	versionFunction string
	mappings        []refactor.ImportMapping
	logger          *slog.Logger
}

// Option configures an Applier.
type Option func(*Applier)

// WithVersionTarget sets the default replacement for pkg_resources steps
// that do not name one.
func WithVersionTarget(module, function string) Option {
	return func(app *Applier) {
		app.versionModule = module
		app.versionFunction = function
	}
}

// WithImportMappings adds mappings to every modernize_imports step.
func WithImportMappings(mappings ...refactor.ImportMapping) Option {
	return func(app *Applier) {
		app.mappings = append(app.mappings, mappings...)
	}
}

// WithLogger sets the logger for skipped optional steps.
func WithLogger(logger *slog.Logger) Option {
	return func(app *Applier) {
		app.logger = logger
	}
}

// NewApplier returns an Applier with the given options.
func NewApplier(opts ...Option) *Applier {
	app := &Applier{
		versionModule:   DefaultVersionModule,
		versionFunction: DefaultVersionFunction,
		logger:          slog.Default(),
	}

	for _, opt := range opts {
		opt(app)
	}

	return app
}

// Apply runs every step in order. An optional step that fails with
// refactor.ErrNotFound is skipped; any other failure stops the run and is
// returned as a *StepError. Steps applied before the failure stay in the
// session and can be undone individually.
func (app *Applier) Apply(session *refactor.Session, rcp *Recipe) error {
	for idx, step := range rcp.Steps {
		err := app.ApplyStep(session, step)
		if err == nil {
			continue
		}

		if step.Optional && errors.Is(err, refactor.ErrNotFound) {
			app.logger.Debug("optional recipe step skipped", "step", idx+1, "op", string(step.Op), "error", err)

			continue
		}

		return &StepError{Index: idx, Op: step.Op, Err: err}
	}

	return nil
}

// ApplyStep runs a single step.
func (app *Applier) ApplyStep(session *refactor.Session, step Step) error {
	switch step.Op {
	case OpRenameFunction:
		return session.RenameFunction(step.Old, step.New)
	case OpRenameClass:
		return session.RenameClass(step.Old, step.New)
	case OpRenameVariable:
		return session.RenameVariable(step.Old, step.New)
	case OpReplaceImport:
		return session.ReplaceImport(step.Old, step.New)
	case OpModernizeImports:
		extra := append([]refactor.ImportMapping(nil), app.mappings...)
		for _, mapping := range step.Mappings {
			extra = append(extra, refactor.ImportMapping{Old: mapping.Old, New: mapping.New})
		}

		return session.ModernizeImports(extra...)
	case OpModernizePkgResources:
		module, function := app.versionModule, app.versionFunction
		if step.Module != "" {
			module = step.Module
		}

		if step.Function != "" {
			function = step.Function
		}

		return session.ModernizePkgResourcesVersion(module, function)
	case OpRemoveUnusedImports:
		return session.RemoveUnusedImports()
	case OpSortImports:
		return session.SortImports()
	case OpModernizeStringFormatting:
		return session.ModernizeStringFormatting()
	case OpAddImport:
		return session.AddImport(codegen.ImportNode(step.Module, step.Names, step.Alias))
	case OpAddTypeHints:
		return session.AddTypeHints(step.Hints)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownOp, step.Op)
	}
}
