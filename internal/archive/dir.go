package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// DirStore writes messages as files below a base directory.
type DirStore struct {
	base string
}

// NewDirStore creates the base directory if needed.
func NewDirStore(base string) (*DirStore, error) {
	if base == "" {
		return nil, fmt.Errorf("archive: dir store needs a path")
	}
	if err := os.MkdirAll(base, 0o750); err != nil {
		return nil, fmt.Errorf("archive: create base directory: %w", err)
	}
	return &DirStore{base: base}, nil
}

// Put writes data to a temp file and renames it into place, so readers never
// see a partial message.
func (s *DirStore) Put(_ context.Context, key string, data []byte) error {
	final := filepath.Join(s.base, filepath.FromSlash(key))
	dir := filepath.Dir(final)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("archive: create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("archive: create temp file: %w", err)
	}
	name := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(name)
		return fmt.Errorf("archive: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(name)
		return fmt.Errorf("archive: close temp file: %w", err)
	}
	if err := os.Rename(name, final); err != nil {
		os.Remove(name)
		return fmt.Errorf("archive: rename temp file: %w", err)
	}
	return nil
}
