package aviencoder

import "errors"

var (
	// ErrSizeLimit is returned when the next frame would push the file past
	// the configured size ceiling. The file written so far stays valid once
	// the encoder is ended or aborted.
	ErrSizeLimit = errors.New("avi: file size limit reached")

	// ErrGeometry is returned when a frame does not match the first frame's
	// size or channel count.
	ErrGeometry = errors.New("avi: frame geometry changed")

	// ErrNotStarted is returned when frames are sent before Begin.
	ErrNotStarted = errors.New("avi: encoder not started")
)
