// Package osfilesystem provides a filesystem implementation using the os package.
package osfilesystem

import (
	"os"
	"path/filepath"

	"github.com/user/serexport/pkg/ports"
)

// FileSystem implements ports.FileSystem using the os package.
type FileSystem struct{}

// New creates a new FileSystem.
func New() *FileSystem {
	return &FileSystem{}
}

// Create creates or truncates a file for streaming output, creating the
// parent directory if needed.
func (fs *FileSystem) Create(path string) (ports.File, error) {
	if err := ensureParent(path); err != nil {
		return nil, err
	}
	return os.Create(path)
}

// WriteFile writes data to a file, creating it if necessary.
func (fs *FileSystem) WriteFile(path string, data []byte) error {
	if err := ensureParent(path); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// MkdirAll creates a directory and all parent directories.
func (fs *FileSystem) MkdirAll(path string) error {
	return os.MkdirAll(path, 0755)
}

// Exists checks if a file or directory exists.
func (fs *FileSystem) Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

func ensureParent(path string) error {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		return os.MkdirAll(dir, 0755)
	}
	return nil
}

// Ensure FileSystem implements ports.FileSystem
var _ ports.FileSystem = (*FileSystem)(nil)
