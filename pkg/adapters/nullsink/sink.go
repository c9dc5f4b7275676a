// Package nullsink provides a no-op debug sink implementation.
package nullsink

import (
	"image"

	"github.com/user/serexport/pkg/ports"
)

// Sink is a no-op implementation of ports.DebugSink.
// It discards all debug output.
type Sink struct{}

// New creates a new NullSink.
func New() *Sink {
	return &Sink{}
}

// Enabled returns false as this sink discards all output.
func (s *Sink) Enabled() bool {
	return false
}

// SaveSelectionJSON does nothing.
func (s *Sink) SaveSelectionJSON(data []byte) error {
	return nil
}

// SaveTimestampsJSON does nothing.
func (s *Sink) SaveTimestampsJSON(data []byte) error {
	return nil
}

// SaveFrame does nothing.
func (s *Sink) SaveFrame(index int, img image.Image) error {
	return nil
}

// Ensure Sink implements ports.DebugSink
var _ ports.DebugSink = (*Sink)(nil)
