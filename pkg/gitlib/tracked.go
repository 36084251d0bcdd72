package gitlib

import (
	"fmt"
	"path/filepath"
	"strings"

	git2go "github.com/libgit2/git2go/v34"
)

// TrackedFiles returns absolute paths of index entries under root, in
// index order (sorted by path).
func (r *Repository) TrackedFiles(root string) ([]string, error) {
	prefix, err := r.relative(root)
	if err != nil {
		return nil, err
	}

	index, err := r.repo.Index()
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	defer index.Free()

	count := index.EntryCount()
	files := make([]string, 0, count)

	for idx := range count {
		entry, entryErr := index.EntryByIndex(idx)
		if entryErr != nil {
			return nil, fmt.Errorf("read index entry %d: %w", idx, entryErr)
		}

		if !underPrefix(entry.Path, prefix) {
			continue
		}

		files = append(files, filepath.Join(r.workdir, filepath.FromSlash(entry.Path)))
	}

	return files, nil
}

func underPrefix(path, prefix string) bool {
	if prefix == "." || prefix == "" {
		return true
	}

	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

// dirtyMask covers every status bit except "current" and "ignored".
const dirtyMask = git2go.StatusIndexNew | git2go.StatusIndexModified | git2go.StatusIndexDeleted |
	git2go.StatusIndexRenamed | git2go.StatusIndexTypeChange |
	git2go.StatusWtNew | git2go.StatusWtModified | git2go.StatusWtDeleted |
	git2go.StatusWtTypeChange | git2go.StatusWtRenamed | git2go.StatusConflicted

// IsDirty reports whether path differs from HEAD in the index or the
// working tree, or is untracked.
func (r *Repository) IsDirty(path string) (bool, error) {
	rel, err := r.relative(path)
	if err != nil {
		return false, err
	}

	status, err := r.repo.StatusFile(rel)
	if err != nil {
		return false, fmt.Errorf("status %s: %w", rel, err)
	}

	return status&dirtyMask != 0, nil
}
