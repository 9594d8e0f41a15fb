package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

const (
	dirPerm  = 0o755
	filePerm = 0o644
)

// FileStore writes images to a local directory, created before the first write
type FileStore struct {
	dir string
}

// NewFileStore creates a store rooted at dir
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Dir returns the output directory
func (s *FileStore) Dir() string {
	return s.dir
}

// Save writes data verbatim to <dir>/<name>.<ext> and returns the path
func (s *FileStore) Save(ctx context.Context, name string, data []byte, mimeType string) (string, error) {
	if name == "" {
		return "", ErrEmptyName
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if err := os.MkdirAll(s.dir, dirPerm); err != nil {
		return "", fmt.Errorf("create output directory %s: %w", s.dir, err)
	}

	path := filepath.Join(s.dir, ObjectName(name, mimeType))
	if err := os.WriteFile(path, data, filePerm); err != nil {
		return "", fmt.Errorf("write image %s: %w", path, err)
	}
	return path, nil
}
