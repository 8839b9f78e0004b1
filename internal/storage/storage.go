// Package storage maps gallery items to files under the download directory.
package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
)

// InfoFile is the name of the metadata sidecar in each item directory.
const InfoFile = "info.yaml"

// Layout resolves paths of the form {root}/{slug}/{page}.png.
type Layout struct {
	Root string
}

// Dir returns the directory holding an item's files.
func (l Layout) Dir(slug string) string {
	return filepath.Join(l.Root, slug)
}

// Page returns the bitmap path of a single page.
func (l Layout) Page(slug string, page int) string {
	return filepath.Join(l.Dir(slug), strconv.Itoa(page)+".png")
}

// Spread returns the bitmap path of a joined page pair.
func (l Layout) Spread(slug string, a, b int) string {
	return filepath.Join(l.Dir(slug), fmt.Sprintf("%d_%d.png", a, b))
}

// Info returns the metadata sidecar path.
func (l Layout) Info(slug string) string {
	return filepath.Join(l.Dir(slug), InfoFile)
}

// Exists reports whether a file is present at path.
func Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("checking %s: %w", path, err)
	}
}

// WriteFile writes data to path through a temporary file in the same
// directory, creating parent directories as needed. A crash mid-write never
// leaves a partial file at path.
func WriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("creating temp file for %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("renaming into %s: %w", path, err)
	}
	return nil
}
