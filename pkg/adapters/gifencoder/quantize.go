package gifencoder

import (
	"image"
	"image/color"
	"image/draw"
)

type rgb [3]uint8

// pixels returns the opaque pixels of m as 8-bit RGB.
func pixels(m image.Image) []rgb {
	b := m.Bounds()
	out := make([]rgb, 0, b.Dx()*b.Dy())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, a := m.At(x, y).RGBA()
			if a == 0 {
				continue
			}
			out = append(out, rgb{uint8(r >> 8), uint8(g >> 8), uint8(bl >> 8)})
		}
	}
	return out
}

// exactPalette returns the distinct colours of px when there are at most
// max of them.
func exactPalette(px []rgb, max int) ([]rgb, bool) {
	seen := make(map[rgb]struct{}, max+1)
	var out []rgb
	for _, c := range px {
		if _, ok := seen[c]; ok {
			continue
		}
		if len(out) == max {
			return nil, false
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out, true
}

func appendColors(p color.Palette, cs []rgb) color.Palette {
	for _, c := range cs {
		p = append(p, color.RGBA{R: c[0], G: c[1], B: c[2], A: 0xff})
	}
	return p
}

// newQuantizer returns the quantizer selected by k.
func newQuantizer(k paletteKey) draw.Quantizer {
	if k.quantizer == QuantizerMedianCut {
		return MedianCut{}
	}
	return NeuQuant{SampleFactor: k.sampleFactor}
}

// mapper maps colours to the nearest palette entry, caching results.
type mapper struct {
	pal   []rgb
	cache map[rgb]uint8
}

func newMapper(p color.Palette) *mapper {
	m := &mapper{cache: make(map[rgb]uint8)}
	for _, c := range p {
		r, g, b, _ := c.RGBA()
		m.pal = append(m.pal, rgb{uint8(r >> 8), uint8(g >> 8), uint8(b >> 8)})
	}
	return m
}

func (m *mapper) index(c rgb) uint8 {
	if i, ok := m.cache[c]; ok {
		return i
	}
	best, bestD := 0, 1<<30
	for i, p := range m.pal {
		dr := int(c[0]) - int(p[0])
		dg := int(c[1]) - int(p[1])
		db := int(c[2]) - int(p[2])
		if d := dr*dr + dg*dg + db*db; d < bestD {
			best, bestD = i, d
			if d == 0 {
				break
			}
		}
	}
	m.cache[c] = uint8(best)
	return uint8(best)
}

// maxDiff returns the largest per-channel difference.
func maxDiff(a, b rgb) int {
	d := 0
	for i := 0; i < 3; i++ {
		v := int(a[i]) - int(b[i])
		if v < 0 {
			v = -v
		}
		if v > d {
			d = v
		}
	}
	return d
}
