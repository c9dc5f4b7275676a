package pipeline

import (
	"image"
	"image/color"
)

// Image is a decoded frame as it flows through the processing chain.
//
// Samples are stored as uint16 regardless of storage depth, interleaved in
// R, G, B order for three-channel images. Bits is the number of significant
// bits per sample, so a 12-bit capture stored in 16-bit words keeps values
// in 0..4095 until an operator decides otherwise.
type Image struct {
	Width    int
	Height   int
	Channels int // 1 or 3
	Depth    int // Storage depth: 8 or 16
	Bits     int // Significant bits per sample (1..Depth)
	Mosaic   CFA // Non-zero for single-channel data that still needs debayering
	Pix      []uint16

	Index        int    // 0-based source frame index
	Timestamp    uint64 // Source timestamp in 100 ns ticks
	HasTimestamp bool
}

// NewImage allocates an image with zeroed samples.
func NewImage(width, height, channels, depth, bits int) *Image {
	return &Image{
		Width:    width,
		Height:   height,
		Channels: channels,
		Depth:    depth,
		Bits:     bits,
		Pix:      make([]uint16, width*height*channels),
	}
}

// Max returns the largest sample value allowed by Bits.
func (m *Image) Max() uint16 {
	return uint16(uint32(1)<<uint(m.Bits) - 1)
}

// Blank returns a new image with the same depth and frame metadata but new
// geometry. Mosaic information is not carried over.
func (m *Image) Blank(width, height, channels int) *Image {
	out := NewImage(width, height, channels, m.Depth, m.Bits)
	out.Index = m.Index
	out.Timestamp = m.Timestamp
	out.HasTimestamp = m.HasTimestamp
	return out
}

// Clone returns a deep copy.
func (m *Image) Clone() *Image {
	out := *m
	out.Pix = make([]uint16, len(m.Pix))
	copy(out.Pix, m.Pix)
	return &out
}

// Offset returns the index of channel c of pixel (x, y) in Pix.
func (m *Image) Offset(x, y, c int) int {
	return (y*m.Width+x)*m.Channels + c
}

// To8 returns the samples scaled to 8 bits, interleaved like Pix. Samples
// above Max, which a detected depth can leave in unsampled frames, are
// clipped to white.
func (m *Image) To8() []uint8 {
	out := make([]uint8, len(m.Pix))
	max := uint32(m.Max())
	for i, v := range m.Pix {
		s := min(uint32(v), max)
		if m.Bits == 8 {
			out[i] = uint8(s)
			continue
		}
		out[i] = uint8((s*255 + max/2) / max)
	}
	return out
}

// RGB8 returns 8-bit samples with exactly three channels; single-channel
// images are replicated into grey.
func (m *Image) RGB8() []uint8 {
	src := m.To8()
	if m.Channels == 3 {
		return src
	}
	out := make([]uint8, len(src)*3)
	for i, v := range src {
		out[i*3] = v
		out[i*3+1] = v
		out[i*3+2] = v
	}
	return out
}

// scale16 stretches a sample to the full 16-bit range, clipping at Max.
func (m *Image) scale16(v uint16) uint16 {
	if m.Bits == 16 {
		return v
	}
	max := uint32(m.Max())
	return uint16((min(uint32(v), max)*65535 + max/2) / max)
}

// ToImage converts to a standard library image. 8-bit images become
// *image.Gray or *image.RGBA, deeper images *image.Gray16 or *image.RGBA64
// with samples stretched to the full 16-bit range.
func (m *Image) ToImage() image.Image {
	rect := image.Rect(0, 0, m.Width, m.Height)
	if m.Depth <= 8 {
		px := m.To8()
		if m.Channels == 1 {
			g := image.NewGray(rect)
			copy(g.Pix, px)
			return g
		}
		rgba := image.NewRGBA(rect)
		for i := 0; i < m.Width*m.Height; i++ {
			rgba.Pix[i*4] = px[i*3]
			rgba.Pix[i*4+1] = px[i*3+1]
			rgba.Pix[i*4+2] = px[i*3+2]
			rgba.Pix[i*4+3] = 0xff
		}
		return rgba
	}

	if m.Channels == 1 {
		g := image.NewGray16(rect)
		for y := 0; y < m.Height; y++ {
			for x := 0; x < m.Width; x++ {
				g.SetGray16(x, y, color.Gray16{Y: m.scale16(m.Pix[y*m.Width+x])})
			}
		}
		return g
	}
	rgba := image.NewRGBA64(rect)
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			o := m.Offset(x, y, 0)
			rgba.SetRGBA64(x, y, color.RGBA64{
				R: m.scale16(m.Pix[o]),
				G: m.scale16(m.Pix[o+1]),
				B: m.scale16(m.Pix[o+2]),
				A: 0xffff,
			})
		}
	}
	return rgba
}

// FromImage converts src back into an Image with the depth, bit count and
// frame metadata of tmpl and the channel count given.
func FromImage(src image.Image, tmpl *Image, channels int) *Image {
	b := src.Bounds()
	out := tmpl.Blank(b.Dx(), b.Dy(), channels)
	max := uint32(out.Max())
	conv := func(v uint32) uint16 {
		return uint16((v*max + 0x7fff) / 0xffff)
	}
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			r, g, bl, _ := src.At(b.Min.X+x, b.Min.Y+y).RGBA()
			o := out.Offset(x, y, 0)
			if channels == 1 {
				out.Pix[o] = conv(r)
				continue
			}
			out.Pix[o] = conv(r)
			out.Pix[o+1] = conv(g)
			out.Pix[o+2] = conv(bl)
		}
	}
	return out
}
