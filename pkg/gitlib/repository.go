// Package gitlib answers the git questions batch refactoring needs: which
// files the index tracks and whether a file has uncommitted edits. It wraps
// libgit2 through git2go.
package gitlib

import (
	"errors"
	"fmt"
	"path/filepath"

	git2go "github.com/libgit2/git2go/v34"
)

// ErrBareRepository is returned when a repository has no working tree.
var ErrBareRepository = errors.New("repository has no working tree")

// Repository wraps a libgit2 repository.
type Repository struct {
	repo    *git2go.Repository
	workdir string
}

// OpenRepository opens the git repository at path.
func OpenRepository(path string) (*Repository, error) {
	repo, err := git2go.OpenRepository(path)
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}

	workdir := repo.Workdir()
	if workdir == "" {
		repo.Free()

		return nil, fmt.Errorf("%w: %s", ErrBareRepository, path)
	}

	abs, err := filepath.Abs(workdir)
	if err != nil {
		repo.Free()

		return nil, fmt.Errorf("resolve workdir: %w", err)
	}

	return &Repository{repo: repo, workdir: abs}, nil
}

// Discover opens the repository containing path, searching parent
// directories the way `git` does.
func Discover(path string) (*Repository, error) {
	gitDir, err := git2go.Discover(path, false, nil)
	if err != nil {
		return nil, fmt.Errorf("discover repository from %s: %w", path, err)
	}

	return OpenRepository(gitDir)
}

// Workdir returns the absolute working tree root.
func (r *Repository) Workdir() string {
	return r.workdir
}

// Free releases the repository resources.
func (r *Repository) Free() {
	if r.repo != nil {
		r.repo.Free()
		r.repo = nil
	}
}

// relative converts an absolute path inside the working tree to the
// slash-separated form libgit2 expects.
func (r *Repository) relative(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", path, err)
	}

	rel, err := filepath.Rel(r.workdir, abs)
	if err != nil {
		return "", fmt.Errorf("relativize %s: %w", path, err)
	}

	return filepath.ToSlash(rel), nil
}
