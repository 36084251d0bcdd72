package batch

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pierrec/lz4/v4"
)

// backupExt is appended to every backup file name.
const backupExt = ".lz4"

// Backups stores LZ4-compressed copies of original files under a
// directory, mirroring their path relative to a root.
type Backups struct {
	dir  string
	root string
}

// NewBackups returns a store writing under dir for files below root.
func NewBackups(dir, root string) *Backups {
	return &Backups{dir: dir, root: root}
}

// PathFor returns where the backup of path is stored.
func (b *Backups) PathFor(path string) string {
	rel, err := filepath.Rel(b.root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		rel = strings.TrimPrefix(filepath.Clean(path), string(filepath.Separator))
	}

	return filepath.Join(b.dir, rel+backupExt)
}

// Save compresses data into the backup slot for path.
func (b *Backups) Save(path string, data []byte) (string, error) {
	target := b.PathFor(path)

	err := os.MkdirAll(filepath.Dir(target), 0o750)
	if err != nil {
		return "", fmt.Errorf("create backup dir: %w", err)
	}

	var buf bytes.Buffer

	zw := lz4.NewWriter(&buf)

	_, err = zw.Write(data)
	if err != nil {
		return "", fmt.Errorf("compress backup: %w", err)
	}

	err = zw.Close()
	if err != nil {
		return "", fmt.Errorf("compress backup: %w", err)
	}

	err = os.WriteFile(target, buf.Bytes(), 0o600)
	if err != nil {
		return "", fmt.Errorf("write backup: %w", err)
	}

	return target, nil
}

// Load returns the original content saved for path.
func (b *Backups) Load(path string) ([]byte, error) {
	return ReadBackup(b.PathFor(path))
}

// ReadBackup decompresses a backup file.
func ReadBackup(backupPath string) ([]byte, error) {
	file, err := os.Open(backupPath)
	if err != nil {
		return nil, fmt.Errorf("open backup: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(lz4.NewReader(file))
	if err != nil {
		return nil, fmt.Errorf("decompress backup: %w", err)
	}

	return data, nil
}

// Restore writes the saved original back over path.
func (b *Backups) Restore(path string) error {
	data, err := b.Load(path)
	if err != nil {
		return err
	}

	return writeFileAtomic(path, data)
}

// writeFileAtomic replaces path through a temporary sibling and rename,
// keeping the original permissions.
func writeFileAtomic(path string, data []byte) error {
	mode := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	tmpName := tmp.Name()

	_, err = tmp.Write(data)
	if err == nil {
		err = tmp.Chmod(mode)
	}

	closeErr := tmp.Close()
	if err == nil {
		err = closeErr
	}

	if err != nil {
		_ = os.Remove(tmpName)

		return fmt.Errorf("write %s: %w", path, err)
	}

	err = os.Rename(tmpName, path)
	if err != nil {
		_ = os.Remove(tmpName)

		return fmt.Errorf("replace %s: %w", path, err)
	}

	return nil
}
