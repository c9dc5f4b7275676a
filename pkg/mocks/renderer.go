package mocks

import (
	"image"

	"github.com/user/serexport/pkg/ports"
)

// Renderer is a mock implementation of ports.Renderer.
type Renderer struct {
	EncodeImageFunc func(img image.Image, format ports.ImageFormat, quality int) ([]byte, error)
	RenderLabelFunc func(text string, scale int) *image.Alpha

	// Recorded calls for verification
	Labels []string
}

func (m *Renderer) EncodeImage(img image.Image, format ports.ImageFormat, quality int) ([]byte, error) {
	if m.EncodeImageFunc != nil {
		return m.EncodeImageFunc(img, format, quality)
	}
	return []byte{}, nil
}

// RenderLabel records the text and, by default, returns a solid mask of
// one 4x8 cell per character.
func (m *Renderer) RenderLabel(text string, scale int) *image.Alpha {
	m.Labels = append(m.Labels, text)
	if m.RenderLabelFunc != nil {
		return m.RenderLabelFunc(text, scale)
	}
	mask := image.NewAlpha(image.Rect(0, 0, 4*len(text)*scale, 8*scale))
	for i := range mask.Pix {
		mask.Pix[i] = 0xff
	}
	return mask
}

var _ ports.Renderer = (*Renderer)(nil)
