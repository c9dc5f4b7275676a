package ports

import (
	"image"
)

// DebugSink abstracts debug output for intermediate results of an export run.
type DebugSink interface {
	// Enabled returns true if debug output is enabled.
	Enabled() bool

	// SaveSelectionJSON saves the ordered list of selected source frames.
	SaveSelectionJSON(data []byte) error

	// SaveTimestampsJSON saves the timestamp report of the source container.
	SaveTimestampsJSON(data []byte) error

	// SaveFrame saves a processed frame as it is handed to the encoder.
	SaveFrame(index int, img image.Image) error
}
