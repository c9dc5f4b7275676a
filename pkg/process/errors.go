package process

import "errors"

var (
	// ErrCropBounds is returned when the crop rectangle does not fit the frame.
	ErrCropBounds = errors.New("crop rectangle outside frame")

	// ErrResizeTarget is returned for empty resize targets.
	ErrResizeTarget = errors.New("invalid resize target")
)
