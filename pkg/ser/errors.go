package ser

import (
	"errors"
	"fmt"
)

var (
	// ErrTooShortForHeader is returned when the file cannot hold a header.
	ErrTooShortForHeader = errors.New("ser: file too short to contain header")

	// ErrInvalidEndianness is returned when the LittleEndian field is not 0 or 1.
	ErrInvalidEndianness = errors.New("ser: invalid little endian value")

	// ErrInvalidWidth is returned when the image width is not positive.
	ErrInvalidWidth = errors.New("ser: invalid image width")

	// ErrInvalidHeight is returned when the image height is not positive.
	ErrInvalidHeight = errors.New("ser: invalid image height")

	// ErrInvalidPixelDepth is returned for unsupported bits per sample.
	ErrInvalidPixelDepth = errors.New("ser: invalid pixel depth")

	// ErrInvalidFrameCount is returned when the declared frame count is not positive.
	ErrInvalidFrameCount = errors.New("ser: invalid frame count")

	// ErrTooShortForFrames is returned when the file cannot hold the declared frames.
	ErrTooShortForFrames = errors.New("ser: file too short to hold all frames")

	// ErrIndexOutOfRange is returned when reading a frame past the last one.
	ErrIndexOutOfRange = errors.New("ser: frame index out of range")

	// ErrFrameSize is returned when a frame buffer does not match the header geometry.
	ErrFrameSize = errors.New("ser: frame size does not match header")

	// ErrOpen is returned when a file cannot be opened or created.
	ErrOpen = errors.New("ser: open failed")

	// ErrRead is returned when reading from the container fails.
	ErrRead = errors.New("ser: read failed")

	// ErrWrite is returned when writing a container fails. The partially
	// written file is left on disk.
	ErrWrite = errors.New("ser: write failed")
)

// FormatError reports a header field that failed validation, with the raw
// value found in the file.
type FormatError struct {
	Path  string
	Field string
	Value int64
	Err   error

	// Recoverable is set when Repair can fix the file.
	Recoverable bool
}

func (e *FormatError) Error() string {
	switch e.Err {
	case ErrTooShortForHeader:
		return fmt.Sprintf("file '%s' is too short to contain SER header (%d bytes)", e.Path, e.Value)
	case ErrTooShortForFrames:
		return fmt.Sprintf("file '%s' is too short to hold all the frames (%d declared)", e.Path, e.Value)
	case ErrInvalidEndianness:
		return fmt.Sprintf("file '%s' has an invalid little endian value of %d", e.Path, e.Value)
	case ErrInvalidWidth:
		return fmt.Sprintf("file '%s' has an invalid image width of %d", e.Path, e.Value)
	case ErrInvalidHeight:
		return fmt.Sprintf("file '%s' has an invalid image height of %d", e.Path, e.Value)
	case ErrInvalidPixelDepth:
		return fmt.Sprintf("file '%s' has an invalid pixel depth of %d", e.Path, e.Value)
	case ErrInvalidFrameCount:
		return fmt.Sprintf("file '%s' has an invalid frame count of %d", e.Path, e.Value)
	}
	return fmt.Sprintf("file '%s': %s = %d: %v", e.Path, e.Field, e.Value, e.Err)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// IOError reports a failed file operation on a container.
type IOError struct {
	Op   string // "open", "read" or "write"
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

func ioError(op, path string, kind, cause error) error {
	return &IOError{Op: op, Path: path, Err: fmt.Errorf("%w: %w", kind, cause)}
}

// IsRecoverable reports whether err is a format error that Repair can fix.
func IsRecoverable(err error) bool {
	var fe *FormatError
	return errors.As(err, &fe) && fe.Recoverable
}
