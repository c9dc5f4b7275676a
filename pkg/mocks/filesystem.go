// Package mocks provides mock implementations for testing.
package mocks

import (
	"errors"
	"io"
	"sync"

	"github.com/user/serexport/pkg/ports"
)

// FileSystem is a mock implementation of ports.FileSystem that keeps files
// in memory.
type FileSystem struct {
	mu    sync.RWMutex
	files map[string][]byte
	dirs  map[string]bool

	CreateFunc    func(path string) (ports.File, error)
	WriteFileFunc func(path string, data []byte) error
	MkdirAllFunc  func(path string) error
	ExistsFunc    func(path string) (bool, error)

	// FailAfter is copied into every file opened with Create.
	FailAfter int64
}

// NewFileSystem creates a new mock FileSystem.
func NewFileSystem() *FileSystem {
	return &FileSystem{
		files: make(map[string][]byte),
		dirs:  make(map[string]bool),
	}
}

// Create returns an in-memory file whose content becomes visible through
// GetFile as it is written.
func (m *FileSystem) Create(path string) (ports.File, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(path)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[path] = []byte{}
	return &File{fs: m, path: path, FailAfter: m.FailAfter}, nil
}

func (m *FileSystem) WriteFile(path string, data []byte) error {
	if m.WriteFileFunc != nil {
		return m.WriteFileFunc(path, data)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[path] = data
	return nil
}

func (m *FileSystem) MkdirAll(path string) error {
	if m.MkdirAllFunc != nil {
		return m.MkdirAllFunc(path)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dirs[path] = true
	return nil
}

func (m *FileSystem) Exists(path string) (bool, error) {
	if m.ExistsFunc != nil {
		return m.ExistsFunc(path)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.files[path]; ok {
		return true, nil
	}
	if _, ok := m.dirs[path]; ok {
		return true, nil
	}
	return false, nil
}

// GetFile returns the contents of a file (for test verification).
func (m *FileSystem) GetFile(path string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.files[path]
	return data, ok
}

// GetAllFiles returns all files (for test verification).
func (m *FileSystem) GetAllFiles() map[string][]byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make(map[string][]byte)
	for k, v := range m.files {
		result[k] = v
	}
	return result
}

var _ ports.FileSystem = (*FileSystem)(nil)

// File is an in-memory ports.File backed by a mock FileSystem.
type File struct {
	fs     *FileSystem
	path   string
	pos    int64
	closed bool

	// FailAfter makes writes fail once the file would grow beyond this
	// many bytes. Zero disables the limit.
	FailAfter int64
}

// ErrDiskFull is returned by File writes past FailAfter.
var ErrDiskFull = errors.New("mock: no space left on device")

func (f *File) Write(p []byte) (int, error) {
	if f.closed {
		return 0, errors.New("mock: write to closed file")
	}
	f.fs.mu.Lock()
	defer f.fs.mu.Unlock()

	end := f.pos + int64(len(p))
	if f.FailAfter > 0 && end > f.FailAfter {
		return 0, ErrDiskFull
	}
	data := f.fs.files[f.path]
	if end > int64(len(data)) {
		grown := make([]byte, end)
		copy(grown, data)
		data = grown
	}
	copy(data[f.pos:], p)
	f.fs.files[f.path] = data
	f.pos = end
	return len(p), nil
}

func (f *File) Seek(offset int64, whence int) (int64, error) {
	f.fs.mu.RLock()
	size := int64(len(f.fs.files[f.path]))
	f.fs.mu.RUnlock()

	var pos int64
	switch whence {
	case io.SeekStart:
		pos = offset
	case io.SeekCurrent:
		pos = f.pos + offset
	case io.SeekEnd:
		pos = size + offset
	default:
		return 0, errors.New("mock: invalid whence")
	}
	if pos < 0 {
		return 0, errors.New("mock: negative position")
	}
	f.pos = pos
	return pos, nil
}

func (f *File) Close() error {
	f.closed = true
	return nil
}

var _ ports.File = (*File)(nil)
