package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/pyrefactor/pkg/batch"
	"github.com/Sumatoshi-tech/pyrefactor/pkg/gitlib"
	"github.com/Sumatoshi-tech/pyrefactor/pkg/observability"
	"github.com/Sumatoshi-tech/pyrefactor/pkg/recipe"
)

const (
	opBatch       = "batch"
	batchArgCount = 2
)

// Report formats.
const (
	reportTable = "table"
	reportJSON  = "json"
	reportHTML  = "html"
)

var (
	// ErrUnknownReport is returned for a --report value outside table, json and html.
	ErrUnknownReport = errors.New("unknown report format")
	// ErrBatchFailed is returned when at least one file failed.
	ErrBatchFailed = errors.New("batch finished with failures")
	// ErrNoBackupDir is returned by restore without a backup directory.
	ErrNoBackupDir = errors.New("a backup directory is required (--backup-dir or batch.backup_dir)")
)

// batchFlags override the batch section of the config.
type batchFlags struct {
	dryRun         bool
	diff           bool
	workers        int
	backupDir      string
	report         string
	reportFile     string
	gitTrackedOnly bool
	requireClean   bool
	includeVendor  bool
}

// NewBatchCommand creates the batch subcommand.
func NewBatchCommand() *cobra.Command {
	var flags batchFlags

	cmd := &cobra.Command{
		Use:   "batch <recipe.yaml> <dir|file>",
		Short: "Apply a recipe to every Python file under a directory",
		Long: `Apply a recipe to every Python file found under a directory, in parallel.

Files are detected by extension and shebang; vendored trees are skipped.
Only files that change are rewritten. Failures are reported per file and do
not stop the others; the command exits non-zero when any file failed.

Examples:
  pyrefactor batch migrate.yaml src/ --dry-run --diff
  pyrefactor batch migrate.yaml . --git-tracked-only --require-clean
  pyrefactor batch migrate.yaml src/ --backup-dir .pyrefactor-backup --report html --report-file report.html`,
		Args: cobra.ExactArgs(batchArgCount),
		RunE: func(cmd *cobra.Command, args []string) error {
			rcp, err := recipe.Load(args[0])
			if err != nil {
				return err
			}

			env, err := newEnvironment(cmd, observability.ModeCLI, false)
			if err != nil {
				return err
			}
			defer env.close()

			return env.runBatch(cmd, rcp, args[1], flags)
		},
	}

	fs := cmd.Flags()
	fs.BoolVarP(&flags.dryRun, "dry-run", "n", false, "compute changes without writing files")
	fs.BoolVarP(&flags.diff, "diff", "d", false, "print a unified diff for every changed file")
	fs.IntVarP(&flags.workers, "workers", "j", 0, "concurrent files (default from config, 0 means all CPUs)")
	fs.StringVar(&flags.backupDir, "backup-dir", "", "keep compressed originals under this directory")
	fs.StringVar(&flags.report, "report", "", "report format: table, json or html (default table)")
	fs.StringVarP(&flags.reportFile, "report-file", "o", "", "write the report to a file instead of stdout")
	fs.BoolVar(&flags.gitTrackedOnly, "git-tracked-only", false, "only process files tracked by git")
	fs.BoolVar(&flags.requireClean, "require-clean", false, "fail files with uncommitted changes instead of rewriting them")
	fs.BoolVar(&flags.includeVendor, "include-vendor", false, "also process vendored directories")
	fs.String(modeFlag, "", "printer mode: lenient, strict or verbatim (overrides config)")

	cmd.AddCommand(newRestoreCommand())

	return cmd
}

// merge resolves flags over the batch config section.
func (bf batchFlags) merge(cmd *cobra.Command, env *environment) (batchFlags, error) {
	cfg := env.cfg.Batch
	merged := bf

	if !cmd.Flags().Changed("workers") {
		merged.workers = cfg.Workers
	}

	if merged.backupDir == "" {
		merged.backupDir = cfg.BackupDir
	}

	if merged.report == "" {
		merged.report = cfg.Report
	}

	if merged.report == "" {
		merged.report = reportTable
	}

	merged.report = strings.ToLower(merged.report)
	if merged.report != reportTable && merged.report != reportJSON && merged.report != reportHTML {
		return merged, fmt.Errorf("%w: %q", ErrUnknownReport, merged.report)
	}

	merged.gitTrackedOnly = merged.gitTrackedOnly || cfg.GitTrackedOnly || merged.requireClean

	if !cmd.Flags().Changed("include-vendor") {
		merged.includeVendor = !cfg.ExcludeVendor
	}

	return merged, nil
}

func (env *environment) runBatch(cmd *cobra.Command, rcp *recipe.Recipe, root string, flags batchFlags) error {
	flags, err := flags.merge(cmd, env)
	if err != nil {
		return err
	}

	maxSize, err := env.cfg.Batch.MaxFileSizeBytes()
	if err != nil {
		return err
	}

	ctx := observability.ContextWithOperation(cmd.Context(), opBatch)

	var tracker batch.Tracker

	if flags.gitTrackedOnly {
		repo, repoErr := gitlib.Discover(root)
		if repoErr != nil {
			return fmt.Errorf("--git-tracked-only: %w", repoErr)
		}
		defer repo.Free()

		tracker = repo
	}

	files, err := batch.Discover(ctx, root, batch.DiscoverOptions{ExcludeVendor: !flags.includeVendor, Tracker: tracker})
	if err != nil {
		return err
	}

	env.logger.InfoContext(ctx, "batch started", "root", root, "files", len(files), "steps", len(rcp.Steps),
		"dry_run", flags.dryRun, "max_file_size", humanize.IBytes(maxSize))

	opts := batch.Options{
		Workers:      flags.workers,
		MaxFileSize:  maxSize,
		DryRun:       flags.dryRun,
		Diff:         flags.diff,
		Tracker:      tracker,
		RequireClean: flags.requireClean,
		Mode:         env.mode,
		Applier:      env.applier,
		Logger:       env.logger,
		Metrics:      env.metrics,
		Tracer:       env.providers.Tracer,
	}

	if flags.backupDir != "" && !flags.dryRun {
		opts.Backups = batch.NewBackups(flags.backupDir, root)
	}

	report, err := batch.NewProcessor(opts).Run(ctx, rcp, files)
	if err != nil {
		return err
	}

	if flags.diff {
		err = writeDiffs(cmd.OutOrStdout(), report)
		if err != nil {
			return err
		}
	}

	err = writeReport(cmd.OutOrStdout(), report, flags)
	if err != nil {
		return err
	}

	if failed := report.Failed(); len(failed) > 0 {
		for _, file := range failed {
			color.New(color.FgRed).Fprintf(cmd.ErrOrStderr(), "%s: %s\n", file.Path, file.ErrorText)
		}

		return fmt.Errorf("%w: %d of %d files", ErrBatchFailed, len(failed), len(report.Files))
	}

	return nil
}

func writeDiffs(w io.Writer, report *batch.Report) error {
	for _, file := range report.Files {
		if file.Diff == "" {
			continue
		}

		err := writeDiff(w, file.Diff)
		if err != nil {
			return err
		}
	}

	return nil
}

func writeReport(stdout io.Writer, report *batch.Report, flags batchFlags) (err error) {
	out := stdout

	if flags.reportFile != "" {
		file, createErr := os.Create(flags.reportFile)
		if createErr != nil {
			return fmt.Errorf("create report: %w", createErr)
		}

		defer func() {
			err = errors.Join(err, file.Close())
		}()

		out = file
	}

	switch flags.report {
	case reportJSON:
		return report.WriteJSON(out)
	case reportHTML:
		return report.WriteHTML(out)
	default:
		return report.WriteTable(out)
	}
}

func newRestoreCommand() *cobra.Command {
	var backupDir string

	cmd := &cobra.Command{
		Use:   "restore <dir|file>",
		Short: "Restore originals saved by a batch run with --backup-dir",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newEnvironment(cmd, observability.ModeCLI, false)
			if err != nil {
				return err
			}
			defer env.close()

			if backupDir == "" {
				backupDir = env.cfg.Batch.BackupDir
			}

			if backupDir == "" {
				return ErrNoBackupDir
			}

			return env.restore(cmd, args[0], backupDir)
		},
	}

	cmd.Flags().StringVar(&backupDir, "backup-dir", "", "directory the batch run saved originals to")

	return cmd
}

// restore puts back every discovered file that has a saved original.
func (env *environment) restore(cmd *cobra.Command, root, backupDir string) error {
	ctx := observability.ContextWithOperation(cmd.Context(), "batch.restore")

	files, err := batch.Discover(ctx, root, batch.DiscoverOptions{})
	if err != nil {
		return err
	}

	backups := batch.NewBackups(backupDir, root)
	restored := 0

	err = env.metrics.Instrument(ctx, env.providers.Tracer, "batch.restore", func(context.Context) (int, error) {
		for _, path := range files {
			if _, statErr := os.Stat(backups.PathFor(path)); statErr != nil {
				continue
			}

			restoreErr := backups.Restore(path)
			if restoreErr != nil {
				return restored, fmt.Errorf("restore %s: %w", path, restoreErr)
			}

			restored++

			env.logger.DebugContext(ctx, "file restored", "path", path)
		}

		return restored, nil
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "restored %d of %d files from %s\n", restored, len(files), filepath.Clean(backupDir))

	return nil
}
