package ports

import (
	"github.com/user/serexport/pkg/pipeline"
	"github.com/user/serexport/pkg/ser"
	"github.com/user/serexport/pkg/timestamp"
)

// FrameEncoder writes a sequence of frames into one output container.
//
// Begin is called once before the first frame, EncodeFrame once per
// selected frame in output order, and then exactly one of End (all frames
// consumed) or Abort (cancelled or failed). Both End and Abort must leave a
// well-formed file holding every frame accepted so far.
type FrameEncoder interface {
	// Begin prepares the output. Geometry is taken from the first frame.
	Begin(params EncoderParams) error

	// EncodeFrame appends one frame.
	EncodeFrame(img *pipeline.Image) error

	// End finalizes the output after the last frame.
	End() error

	// Abort finalizes a truncated output after cancellation or failure.
	Abort() error

	// BytesWritten returns the number of bytes written so far.
	BytesWritten() int64
}

// EncoderParams carries the per-run settings shared by all encoders.
type EncoderParams struct {
	Path              string     // Output file path (or base path for image sequences)
	Source            ser.Header // Header of the source container
	FrameRate         float64    // Output frames per second (AVI only, 0 = default)
	IncludeTimestamps bool       // Write per-frame timestamps when the format supports them

	// TimeBase converts frame timestamps to UTC where an encoder shows them.
	TimeBase timestamp.Base

	// Metadata overrides the free-text header fields of SER output.
	Metadata ser.Metadata
}
