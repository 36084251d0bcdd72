package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/dustin/go-humanize"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"

	"github.com/Sumatoshi-tech/pyrefactor/pkg/observability"
	"github.com/Sumatoshi-tech/pyrefactor/pkg/pyparse"
	"github.com/Sumatoshi-tech/pyrefactor/pkg/recipe"
	"github.com/Sumatoshi-tech/pyrefactor/pkg/refactor"
	"github.com/Sumatoshi-tech/pyrefactor/pkg/unparse"
)

// Sentinel per-file failures.
var (
	ErrFileTooLarge = errors.New("file exceeds size limit")
	ErrDirtyFile    = errors.New("file has uncommitted changes")
)

// Outcome classifies a processed file.
type Outcome string

// File outcomes.
const (
	OutcomeChanged   Outcome = "changed"
	OutcomeUnchanged Outcome = "unchanged"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeFailed    Outcome = "failed"
)

// FileResult is the result for one file.
type FileResult struct {
	Path      string            `json:"path"`
	Outcome   Outcome           `json:"outcome"`
	Changes   []refactor.Change `json:"changes,omitempty"`
	Diff      string            `json:"diff,omitempty"`
	Backup    string            `json:"backup,omitempty"`
	SizeIn    int               `json:"size_in"`
	SizeOut   int               `json:"size_out"`
	Err       error             `json:"-"`
	ErrorText string            `json:"error,omitempty"`
	Duration  time.Duration     `json:"duration_ns"`
}

// Options configures a Processor.
type Options struct {
	// Workers bounds concurrent files. Zero means GOMAXPROCS.
	Workers int

	// MaxFileSize skips larger files. Zero means no limit.
	MaxFileSize uint64

	// DryRun computes results and diffs without touching files.
	DryRun bool

	// Diff keeps a unified diff on every changed result.
	Diff bool

	// Backups, when set, receives the original of every rewritten file.
	Backups *Backups

	// Tracker, when set with RequireClean, makes files with uncommitted
	// edits fail instead of being rewritten.
	Tracker      Tracker
	RequireClean bool

	// Mode selects the renderer for rewritten files.
	Mode unparse.Mode

	Applier *recipe.Applier
	Logger  *slog.Logger
	Metrics *observability.OperationMetrics
	Tracer  trace.Tracer
}

// Processor applies one recipe to many files.
type Processor struct {
	opts   Options
	parser *pyparse.Parser
}

// NewProcessor returns a Processor, filling unset options with defaults.
func NewProcessor(opts Options) *Processor {
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}

	if opts.Applier == nil {
		opts.Applier = recipe.NewApplier()
	}

	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	if opts.Tracer == nil {
		opts.Tracer = nooptrace.NewTracerProvider().Tracer("batch")
	}

	return &Processor{
		opts:   opts,
		parser: pyparse.New(pyparse.WithLogger(opts.Logger)),
	}
}

// Run processes files concurrently and returns one result per file in
// input order. Per-file failures are recorded on the result and do not stop
// siblings; only context cancellation aborts the run.
func (p *Processor) Run(ctx context.Context, rcp *recipe.Recipe, files []string) (*Report, error) {
	started := time.Now()
	results := make([]FileResult, len(files))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(p.opts.Workers)

	for idx, path := range files {
		group.Go(func() error {
			if groupCtx.Err() != nil {
				return groupCtx.Err()
			}

			results[idx] = p.processFile(groupCtx, rcp, path)

			return nil
		})
	}

	err := group.Wait()
	if err != nil {
		return nil, fmt.Errorf("batch: %w", err)
	}

	report := &Report{Files: results, Started: started, Duration: time.Since(started), DryRun: p.opts.DryRun}

	totals := report.Totals()
	p.opts.Logger.InfoContext(ctx, "batch finished",
		"files", len(files),
		"changed", totals.Changed,
		"failed", totals.Failed,
		"changes", totals.Changes,
		"duration", report.Duration)

	return report, nil
}

func (p *Processor) processFile(ctx context.Context, rcp *recipe.Recipe, path string) FileResult {
	start := time.Now()
	result := FileResult{Path: path}

	err := p.opts.Metrics.Instrument(ctx, p.opts.Tracer, "batch.file", func(ctx context.Context) (int, error) {
		return p.refactorFile(ctx, rcp, &result)
	})

	result.Duration = time.Since(start)

	switch {
	case errors.Is(err, ErrFileTooLarge) || errors.Is(err, ErrDirtyFile):
		result.Outcome = OutcomeSkipped
		result.Err = err
		result.ErrorText = err.Error()

		p.opts.Logger.InfoContext(ctx, "file skipped", "path", path, "reason", err)
	case err != nil:
		result.Outcome = OutcomeFailed
		result.Err = err
		result.ErrorText = err.Error()

		p.opts.Logger.WarnContext(ctx, "file failed", "path", path, "error", err)
	case len(result.Changes) == 0:
		result.Outcome = OutcomeUnchanged
	default:
		result.Outcome = OutcomeChanged
	}

	return result
}

func (p *Processor) refactorFile(ctx context.Context, rcp *recipe.Recipe, result *FileResult) (int, error) {
	path := result.Path

	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("stat: %w", err)
	}

	if p.opts.MaxFileSize > 0 && uint64(info.Size()) > p.opts.MaxFileSize {
		return 0, fmt.Errorf("%w: %s > %s", ErrFileTooLarge,
			humanize.IBytes(uint64(info.Size())), humanize.IBytes(p.opts.MaxFileSize))
	}

	if p.opts.RequireClean && p.opts.Tracker != nil && !p.opts.DryRun {
		dirty, dirtyErr := p.opts.Tracker.IsDirty(path)
		if dirtyErr != nil {
			return 0, fmt.Errorf("git status: %w", dirtyErr)
		}

		if dirty {
			return 0, ErrDirtyFile
		}
	}

	src, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read: %w", err)
	}

	result.SizeIn = len(src)

	mod, err := p.parser.Parse(ctx, src)
	if err != nil {
		return 0, err
	}

	session := refactor.New(mod,
		refactor.WithPrinter(unparse.New(p.opts.Mode)),
		refactor.WithLogger(p.opts.Logger))

	err = p.opts.Applier.Apply(session, rcp)
	if err != nil {
		return 0, err
	}

	result.Changes = session.Changes()
	if len(result.Changes) == 0 {
		return 0, nil
	}

	text, err := session.Text()
	if err != nil {
		return 0, fmt.Errorf("render: %w", err)
	}

	text += "\n"
	result.SizeOut = len(text)

	if p.opts.Diff {
		result.Diff = UnifiedDiff(path, string(src), text)
	}

	if p.opts.DryRun {
		return len(result.Changes), nil
	}

	err = p.write(path, src, text, result)
	if err != nil {
		return 0, err
	}

	return len(result.Changes), nil
}

func (p *Processor) write(path string, src []byte, text string, result *FileResult) error {
	if p.opts.Backups != nil {
		backup, err := p.opts.Backups.Save(path, src)
		if err != nil {
			return err
		}

		result.Backup = backup
	}

	return writeFileAtomic(path, []byte(text))
}
