package ser

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// OpenOptions tunes header validation.
type OpenOptions struct {
	// LenientDepth accepts any pixel depth from 1 to 16 bits, as written by
	// cameras with 10, 12 or 14-bit sensors. By default only 8 and 16 are
	// accepted.
	LenientDepth bool
}

// Frame is one raw frame read from a container.
type Frame struct {
	Index        int
	Data         []byte // Borrowed; valid until the next read on the same container
	Timestamp    uint64
	HasTimestamp bool
}

// FrameSource yields frames in order and returns io.EOF after the last one.
type FrameSource interface {
	Next() (Frame, error)
}

// Container is an open SER file. It reads one frame at a time into a
// reusable buffer and is not safe for concurrent use.
type Container struct {
	name       string
	r          io.ReaderAt
	closer     io.Closer
	size       int64
	header     Header
	frameSize  int64
	timestamps []uint64
	buf        []byte
}

// Open opens and validates the SER file at path.
func Open(path string) (*Container, error) {
	return OpenWithOptions(path, OpenOptions{})
}

// OpenWithOptions opens and validates the SER file at path.
func OpenWithOptions(path string, opts OpenOptions) (*Container, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, ioError("open", path, ErrOpen, err)
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, ioError("open", path, ErrOpen, err)
	}
	c, err := NewContainer(f, st.Size(), path, opts)
	if err != nil {
		f.Close()
		return nil, err
	}
	c.closer = f
	return c, nil
}

// NewContainer validates a SER image held by r. name is used in errors.
func NewContainer(r io.ReaderAt, size int64, name string, opts OpenOptions) (*Container, error) {
	h, err := readHeader(r, size, name)
	if err != nil {
		return nil, err
	}
	if err := validate(h, size, name, opts, true); err != nil {
		return nil, err
	}

	c := &Container{
		name:      name,
		r:         r,
		size:      size,
		header:    h,
		frameSize: h.FrameSize(),
	}
	if err := c.loadTimestamps(); err != nil {
		return nil, err
	}
	return c, nil
}

func readHeader(r io.ReaderAt, size int64, name string) (Header, error) {
	var h Header
	if size < HeaderSize {
		return h, &FormatError{Path: name, Field: "file_size", Value: size, Err: ErrTooShortForHeader}
	}
	b := make([]byte, HeaderSize)
	if _, err := r.ReadAt(b, 0); err != nil {
		return h, ioError("read", name, ErrRead, err)
	}
	if err := h.UnmarshalBinary(b); err != nil {
		return h, err
	}
	return h, nil
}

// validate checks the declared header values against the file size, in a
// fixed order, and reports the first failure. checkCount is false while
// repairing, when the frame count is about to be replaced.
func validate(h Header, size int64, name string, opts OpenOptions, checkCount bool) error {
	fail := func(field string, value int64, err error) error {
		return &FormatError{Path: name, Field: field, Value: value, Err: err}
	}

	if h.LittleEndian != 0 && h.LittleEndian != 1 {
		return fail("little_endian", int64(h.LittleEndian), ErrInvalidEndianness)
	}
	if h.Width <= 0 {
		return fail("image_width", int64(h.Width), ErrInvalidWidth)
	}
	if h.Height <= 0 {
		return fail("image_height", int64(h.Height), ErrInvalidHeight)
	}
	if opts.LenientDepth {
		if h.PixelDepth < 1 || h.PixelDepth > 16 {
			return fail("pixel_depth", int64(h.PixelDepth), ErrInvalidPixelDepth)
		}
	} else if h.PixelDepth != 8 && h.PixelDepth != 16 {
		return fail("pixel_depth", int64(h.PixelDepth), ErrInvalidPixelDepth)
	}
	if !checkCount {
		return nil
	}

	available := framesAvailable(h, size)
	if h.FrameCount <= 0 {
		return &FormatError{
			Path: name, Field: "frame_count", Value: int64(h.FrameCount),
			Err: ErrInvalidFrameCount, Recoverable: available > 0,
		}
	}
	if available < int64(h.FrameCount) {
		return &FormatError{
			Path: name, Field: "frame_count", Value: int64(h.FrameCount),
			Err: ErrTooShortForFrames, Recoverable: available > 0,
		}
	}
	return nil
}

// framesAvailable returns how many whole frames fit after the header.
func framesAvailable(h Header, size int64) int64 {
	pixels := int64(h.Width) * int64(h.Height)
	if pixels <= 0 || size <= HeaderSize || pixels > size {
		return 0
	}
	return (size - HeaderSize) / h.FrameSize()
}

func (c *Container) loadTimestamps() error {
	if !c.header.TimestampsDeclared() {
		return nil
	}
	count := int64(c.header.FrameCount)
	start := HeaderSize + count*c.frameSize
	if c.size-start < count*TimestampSize {
		// Declared but missing; capture software sometimes crashes before
		// writing the trailer.
		return nil
	}
	b := make([]byte, count*TimestampSize)
	if _, err := c.r.ReadAt(b, start); err != nil {
		return ioError("read", c.name, ErrRead, err)
	}
	c.timestamps = make([]uint64, count)
	for i := range c.timestamps {
		c.timestamps[i] = binary.LittleEndian.Uint64(b[i*TimestampSize:])
	}
	return nil
}

// Header returns the validated header.
func (c *Container) Header() Header {
	return c.header
}

// Name returns the path or name the container was opened with.
func (c *Container) Name() string {
	return c.name
}

// Size returns the file size in bytes.
func (c *Container) Size() int64 {
	return c.size
}

// FrameCount returns the number of frames.
func (c *Container) FrameCount() int {
	return int(c.header.FrameCount)
}

// FrameSize returns the size of one raw frame in bytes.
func (c *Container) FrameSize() int64 {
	return c.frameSize
}

// HasTimestamps reports whether a timestamp trailer was found.
func (c *Container) HasTimestamps() bool {
	return c.timestamps != nil
}

// Timestamps returns a copy of the per-frame timestamps, or nil.
func (c *Container) Timestamps() []uint64 {
	if c.timestamps == nil {
		return nil
	}
	out := make([]uint64, len(c.timestamps))
	copy(out, c.timestamps)
	return out
}

// ReadFrame reads frame index into the container's buffer.
func (c *Container) ReadFrame(index int) (Frame, error) {
	if index < 0 || index >= int(c.header.FrameCount) {
		return Frame{}, fmt.Errorf("%w: frame %d of %d", ErrIndexOutOfRange, index, c.header.FrameCount)
	}
	if c.buf == nil {
		c.buf = make([]byte, c.frameSize)
	}
	offset := HeaderSize + int64(index)*c.frameSize
	if _, err := c.r.ReadAt(c.buf, offset); err != nil {
		return Frame{}, ioError("read", c.name, ErrRead, err)
	}

	f := Frame{Index: index, Data: c.buf}
	if c.timestamps != nil {
		f.Timestamp = c.timestamps[index]
		f.HasTimestamp = true
	}
	return f, nil
}

// Source returns a FrameSource that yields every frame in file order.
func (c *Container) Source() FrameSource {
	return &containerSource{c: c}
}

// Close releases the underlying file, if the container owns one.
func (c *Container) Close() error {
	if c.closer == nil {
		return nil
	}
	err := c.closer.Close()
	c.closer = nil
	return err
}

type containerSource struct {
	c    *Container
	next int
}

func (s *containerSource) Next() (Frame, error) {
	if s.next >= s.c.FrameCount() {
		return Frame{}, io.EOF
	}
	f, err := s.c.ReadFrame(s.next)
	if err != nil {
		return Frame{}, err
	}
	s.next++
	return f, nil
}
