package export

import (
	"errors"
	"fmt"
)

var (
	// ErrCancelled is returned by Run.Wait when the run was cancelled. The
	// output written so far is a valid, truncated file.
	ErrCancelled = errors.New("export cancelled")

	// ErrNoFrames is returned when the selection is empty.
	ErrNoFrames = errors.New("no frames selected")

	// ErrNoEstimate is returned by Engine.Estimate for formats whose size
	// depends on the frame content.
	ErrNoEstimate = errors.New("output size cannot be estimated")
)

// ConfigError reports an invalid configuration value. It is returned
// before any output is created.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
