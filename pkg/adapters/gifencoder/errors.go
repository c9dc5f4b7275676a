package gifencoder

import "errors"

var (
	// ErrInvalidPreset is returned for preset numbers outside 1..5.
	ErrInvalidPreset = errors.New("gif: invalid preset")

	// ErrInvalidQuantizer is returned for unknown quantizer names.
	ErrInvalidQuantizer = errors.New("gif: invalid quantizer")

	// ErrInvalidOption is returned for option values out of range.
	ErrInvalidOption = errors.New("gif: invalid option")

	// ErrGeometry is returned when a frame does not match the first frame's size.
	ErrGeometry = errors.New("gif: frame geometry changed")

	// ErrNotStarted is returned when frames are sent before Begin.
	ErrNotStarted = errors.New("gif: encoder not started")
)
