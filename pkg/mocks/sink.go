package mocks

import (
	"image"
	"sync"

	"github.com/user/serexport/pkg/ports"
)

// DebugSink is a mock implementation of ports.DebugSink.
type DebugSink struct {
	mu sync.RWMutex

	enabled bool

	SelectionJSON  []byte
	TimestampsJSON []byte
	Frames         map[int]image.Image
}

// NewDebugSink creates a new mock DebugSink.
func NewDebugSink(enabled bool) *DebugSink {
	return &DebugSink{
		enabled: enabled,
		Frames:  make(map[int]image.Image),
	}
}

func (m *DebugSink) Enabled() bool {
	return m.enabled
}

func (m *DebugSink) SaveSelectionJSON(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SelectionJSON = data
	return nil
}

func (m *DebugSink) SaveTimestampsJSON(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TimestampsJSON = data
	return nil
}

func (m *DebugSink) SaveFrame(index int, img image.Image) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Frames[index] = img
	return nil
}

var _ ports.DebugSink = (*DebugSink)(nil)
