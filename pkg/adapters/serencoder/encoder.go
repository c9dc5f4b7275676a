// Package serencoder writes processed frames into a new SER container.
package serencoder

import (
	"fmt"

	"github.com/user/serexport/pkg/pipeline"
	"github.com/user/serexport/pkg/ports"
	"github.com/user/serexport/pkg/ser"
)

// Encoder implements ports.FrameEncoder for SER output. The header is
// derived from the source header and the first frame, so processing that
// debayers, folds to mono or resizes is reflected in the output.
type Encoder struct {
	fs     ports.FileSystem
	params ports.EncoderParams
	file   ports.File
	w      *ser.Writer
	done   bool
}

// New creates a new SER encoder writing through fs.
func New(fs ports.FileSystem) *Encoder {
	return &Encoder{fs: fs}
}

// Begin creates the output file.
func (e *Encoder) Begin(params ports.EncoderParams) error {
	f, err := e.fs.Create(params.Path)
	if err != nil {
		return &ser.IOError{Op: "open", Path: params.Path, Err: fmt.Errorf("%w: %w", ser.ErrOpen, err)}
	}
	e.params = params
	e.file = f
	return nil
}

// EncodeFrame appends one frame, writing the header first if needed.
func (e *Encoder) EncodeFrame(img *pipeline.Image) error {
	if e.file == nil {
		return fmt.Errorf("ser encoder: EncodeFrame before Begin")
	}
	if e.w == nil {
		h := ser.OutputHeader(e.params.Source, img)
		e.params.Metadata.Apply(&h)
		if err := e.start(h); err != nil {
			return err
		}
	}
	return e.w.WriteFrame(ser.Frame{
		Index:        img.Index,
		Data:         ser.EncodeImage(img, e.w.Header()),
		Timestamp:    img.Timestamp,
		HasTimestamp: img.HasTimestamp,
	})
}

func (e *Encoder) start(h ser.Header) error {
	w, err := ser.NewWriter(e.file, e.params.Path, h, e.params.IncludeTimestamps)
	if err != nil {
		return err
	}
	e.w = w
	return nil
}

// End writes the trailer and the final frame count.
func (e *Encoder) End() error {
	return e.finish()
}

// Abort finalizes the file with the frames written so far.
func (e *Encoder) Abort() error {
	return e.finish()
}

func (e *Encoder) finish() error {
	if e.done || e.file == nil {
		return nil
	}
	e.done = true

	if e.w == nil {
		// No frames: leave a header describing an empty sequence.
		if err := e.start(e.params.Source); err != nil {
			e.file.Close()
			return err
		}
	}
	if err := e.w.Finalize(); err != nil {
		e.file.Close()
		return err
	}
	if err := e.file.Close(); err != nil {
		return &ser.IOError{Op: "write", Path: e.params.Path, Err: fmt.Errorf("%w: %w", ser.ErrWrite, err)}
	}
	return nil
}

// BytesWritten returns the number of bytes written so far.
func (e *Encoder) BytesWritten() int64 {
	if e.w == nil {
		return 0
	}
	return e.w.BytesWritten()
}

var _ ports.FrameEncoder = (*Encoder)(nil)
