package ports

import "io"

// File is a writable, seekable output file. Container encoders seek back
// to patch frame counts and chunk sizes once the frame count is known.
type File interface {
	io.Writer
	io.Seeker
	io.Closer
}

// FileSystem abstracts file system operations.
type FileSystem interface {
	// Create creates or truncates the file at path for streaming output.
	Create(path string) (File, error)

	// WriteFile writes data to a file, creating it if necessary.
	WriteFile(path string, data []byte) error

	// MkdirAll creates a directory and all parent directories.
	MkdirAll(path string) error

	// Exists checks if a file or directory exists.
	Exists(path string) (bool, error)
}
