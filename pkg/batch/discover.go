// Package batch runs refactoring recipes over many Python files: discovery,
// a bounded worker pool with one session per file, per-file failure
// accumulation, compressed backups, diffs and reports.
package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/src-d/enry/v2"
)

const (
	languagePython = "Python"

	// sniffBytes is how much of an extensionless file is read to look for
	// a python shebang.
	sniffBytes = 512
)

// skippedDirs are never descended into regardless of vendor detection.
var skippedDirs = map[string]bool{
	"__pycache__":   true,
	"node_modules":  true,
	"site-packages": true,
	"venv":          true,
	".venv":         true,
	".tox":          true,
	".git":          true,
}

// Tracker restricts discovery to version-controlled files and reports
// uncommitted edits. gitlib.Repository satisfies it.
type Tracker interface {
	TrackedFiles(root string) ([]string, error)
	IsDirty(path string) (bool, error)
}

// DiscoverOptions controls which files Discover returns.
type DiscoverOptions struct {
	// ExcludeVendor drops paths enry classifies as vendored or generated
	// dependencies (vendor/, third_party/, *.egg-info, ...).
	ExcludeVendor bool

	// Tracker, when set, replaces the directory walk with the tracked-file
	// listing.
	Tracker Tracker
}

// Discover returns the Python files under root, sorted. root may also be a
// single file, which is returned as is.
func Discover(ctx context.Context, root string, opts DiscoverOptions) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("discover: %w", err)
	}

	if !info.IsDir() {
		return []string{root}, nil
	}

	var candidates []string

	if opts.Tracker != nil {
		candidates, err = opts.Tracker.TrackedFiles(root)
		if err != nil {
			return nil, fmt.Errorf("discover: %w", err)
		}
	} else {
		candidates, err = walk(ctx, root)
		if err != nil {
			return nil, err
		}
	}

	files := make([]string, 0, len(candidates))

	for _, path := range candidates {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("discover: %w", ctx.Err())
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			rel = path
		}

		if opts.ExcludeVendor && enry.IsVendor(filepath.ToSlash(rel)) {
			continue
		}

		if inSkippedDir(rel) || !IsPython(path) {
			continue
		}

		files = append(files, path)
	}

	slices.Sort(files)

	return files, nil
}

func walk(ctx context.Context, root string) ([]string, error) {
	var files []string

	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}

		if entry.IsDir() {
			if path != root && (skippedDirs[entry.Name()] || strings.HasPrefix(entry.Name(), ".")) {
				return filepath.SkipDir
			}

			return nil
		}

		if entry.Type().IsRegular() {
			files = append(files, path)
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}

	return files, nil
}

func inSkippedDir(rel string) bool {
	for part := range strings.SplitSeq(filepath.ToSlash(filepath.Dir(rel)), "/") {
		if skippedDirs[part] {
			return true
		}
	}

	return false
}

// IsPython reports whether path holds Python source, by extension or, for
// extensionless scripts, by shebang.
func IsPython(path string) bool {
	if lang, safe := enry.GetLanguageByExtension(filepath.Base(path)); safe || lang != "" {
		return lang == languagePython
	}

	if filepath.Ext(path) != "" {
		return false
	}

	head, err := readHead(path)
	if err != nil {
		return false
	}

	lang, _ := enry.GetLanguageByShebang(head)

	return lang == languagePython
}

func readHead(path string) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	buf := make([]byte, sniffBytes)

	n, err := io.ReadFull(file, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, err
	}

	return buf[:n], nil
}
