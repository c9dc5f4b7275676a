package ser

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

// Writer streams frames into a new SER file. The header frame count is
// patched when the writer is finalized, so a writer that is stopped early
// still produces a valid file describing the frames it wrote.
type Writer struct {
	w          io.WriteSeeker
	path       string
	header     Header
	frameSize  int64
	withTimes  bool
	timestamps []uint64
	missingTS  bool
	frames     int
	written    int64
	finalized  bool
}

// NewWriter writes h to w and returns a writer for its frames. When
// includeTimestamps is set, a timestamp trailer is appended on Finalize if
// every written frame carried one.
func NewWriter(w io.WriteSeeker, path string, h Header, includeTimestamps bool) (*Writer, error) {
	h.FrameCount = 0
	b, err := h.MarshalBinary()
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(b); err != nil {
		return nil, ioError("write", path, ErrWrite, err)
	}
	return &Writer{
		w:         w,
		path:      path,
		header:    h,
		frameSize: h.FrameSize(),
		withTimes: includeTimestamps,
		written:   HeaderSize,
	}, nil
}

// Header returns the header being written.
func (w *Writer) Header() Header {
	return w.header
}

// WriteFrame appends one raw frame.
func (w *Writer) WriteFrame(f Frame) error {
	if w.finalized {
		return fmt.Errorf("ser: write after finalize")
	}
	if int64(len(f.Data)) != w.frameSize {
		return fmt.Errorf("%w: got %d bytes, want %d", ErrFrameSize, len(f.Data), w.frameSize)
	}
	if _, err := w.w.Write(f.Data); err != nil {
		return ioError("write", w.path, ErrWrite, err)
	}
	w.frames++
	w.written += w.frameSize

	if w.withTimes {
		if f.HasTimestamp {
			w.timestamps = append(w.timestamps, f.Timestamp)
		} else {
			w.missingTS = true
		}
	}
	return nil
}

// Frames returns the number of frames written so far.
func (w *Writer) Frames() int {
	return w.frames
}

// BytesWritten returns the number of bytes written so far.
func (w *Writer) BytesWritten() int64 {
	return w.written
}

// Finalize writes the timestamp trailer, if any, and patches the frame
// count in the header. It does not close the underlying writer.
func (w *Writer) Finalize() error {
	if w.finalized {
		return nil
	}
	w.finalized = true

	if w.withTimes && !w.missingTS && len(w.timestamps) > 0 {
		b := make([]byte, len(w.timestamps)*TimestampSize)
		for i, ts := range w.timestamps {
			binary.LittleEndian.PutUint64(b[i*TimestampSize:], ts)
		}
		if _, err := w.w.Write(b); err != nil {
			return ioError("write", w.path, ErrWrite, err)
		}
		w.written += int64(len(b))
	}

	if _, err := w.w.Seek(offsetFrameCount, io.SeekStart); err != nil {
		return ioError("write", w.path, ErrWrite, err)
	}
	var count [4]byte
	binary.LittleEndian.PutUint32(count[:], uint32(w.frames))
	if _, err := w.w.Write(count[:]); err != nil {
		return ioError("write", w.path, ErrWrite, err)
	}
	if _, err := w.w.Seek(0, io.SeekEnd); err != nil {
		return ioError("write", w.path, ErrWrite, err)
	}
	w.header.FrameCount = int32(w.frames)
	return nil
}

// EstimateSize returns the size of a container holding frames frames laid
// out as described by h, with a timestamp trailer when timestamps is set.
func EstimateSize(h Header, frames int, timestamps bool) int64 {
	size := HeaderSize + int64(frames)*h.FrameSize()
	if timestamps {
		size += int64(frames) * TimestampSize
	}
	return size
}

// Write creates path and copies every frame from src into it. On failure
// the partial file is left in place and the error names it.
func Write(path string, h Header, src FrameSource, includeTimestamps bool) error {
	f, err := os.Create(path)
	if err != nil {
		return ioError("open", path, ErrOpen, err)
	}

	w, err := NewWriter(f, path, h, includeTimestamps)
	if err != nil {
		f.Close()
		return err
	}
	for {
		frame, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			w.Finalize()
			f.Close()
			return err
		}
		if err := w.WriteFrame(frame); err != nil {
			w.Finalize()
			f.Close()
			return err
		}
	}
	if err := w.Finalize(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return ioError("write", path, ErrWrite, err)
	}
	return nil
}
