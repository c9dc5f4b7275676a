package mocks

import (
	"sync"

	"github.com/user/serexport/pkg/pipeline"
	"github.com/user/serexport/pkg/ports"
)

// FrameEncoder is a mock implementation of ports.FrameEncoder.
type FrameEncoder struct {
	mu sync.Mutex

	BeginFunc       func(params ports.EncoderParams) error
	EncodeFrameFunc func(img *pipeline.Image) error
	EndFunc         func() error
	AbortFunc       func() error

	// Recorded calls for verification
	BeginCalled  bool
	Params       ports.EncoderParams
	Frames       []EncodedFrame
	EndCalled    bool
	AbortCalled  bool
	BytesPerCall int64
}

// EncodedFrame records a call to EncodeFrame.
type EncodedFrame struct {
	Index     int
	Timestamp uint64
	Width     int
	Height    int
	Channels  int
}

func (m *FrameEncoder) Begin(params ports.EncoderParams) error {
	m.mu.Lock()
	m.BeginCalled = true
	m.Params = params
	m.mu.Unlock()
	if m.BeginFunc != nil {
		return m.BeginFunc(params)
	}
	return nil
}

func (m *FrameEncoder) EncodeFrame(img *pipeline.Image) error {
	if m.EncodeFrameFunc != nil {
		if err := m.EncodeFrameFunc(img); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Frames = append(m.Frames, EncodedFrame{
		Index:     img.Index,
		Timestamp: img.Timestamp,
		Width:     img.Width,
		Height:    img.Height,
		Channels:  img.Channels,
	})
	return nil
}

func (m *FrameEncoder) End() error {
	m.mu.Lock()
	m.EndCalled = true
	m.mu.Unlock()
	if m.EndFunc != nil {
		return m.EndFunc()
	}
	return nil
}

func (m *FrameEncoder) Abort() error {
	m.mu.Lock()
	m.AbortCalled = true
	m.mu.Unlock()
	if m.AbortFunc != nil {
		return m.AbortFunc()
	}
	return nil
}

func (m *FrameEncoder) BytesWritten() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.Frames)) * m.BytesPerCall
}

// Indices returns the source indices of the encoded frames in order.
func (m *FrameEncoder) Indices() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]int, len(m.Frames))
	for i, f := range m.Frames {
		out[i] = f.Index
	}
	return out
}

var _ ports.FrameEncoder = (*FrameEncoder)(nil)
