package gifencoder

import (
	"image"
	"image/color"
	"image/draw"
	"testing"
)

func gradient() *image.RGBA {
	m := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			m.SetRGBA(x, y, color.RGBA{R: uint8(x * 4), G: uint8(y * 4), B: uint8((x + y) * 2), A: 0xff})
		}
	}
	return m
}

func TestQuantizers_RespectCapacity(t *testing.T) {
	quantizers := map[string]draw.Quantizer{
		"neuquant":  NeuQuant{SampleFactor: 1},
		"mediancut": MedianCut{},
	}
	for name, q := range quantizers {
		t.Run(name, func(t *testing.T) {
			for _, n := range []int{1, 15, 127, 255} {
				p := q.Quantize(make(color.Palette, 0, n), gradient())
				if len(p) == 0 || len(p) > n {
					t.Errorf("capacity %d: got %d colours", n, len(p))
				}
			}
		})
	}
}

func TestQuantizers_ExactWhenFewColours(t *testing.T) {
	m := image.NewRGBA(image.Rect(0, 0, 4, 1))
	m.SetRGBA(0, 0, color.RGBA{R: 10, A: 0xff})
	m.SetRGBA(1, 0, color.RGBA{G: 20, A: 0xff})
	m.SetRGBA(2, 0, color.RGBA{B: 30, A: 0xff})
	m.SetRGBA(3, 0, color.RGBA{R: 10, A: 0xff})

	for _, q := range []draw.Quantizer{NeuQuant{}, MedianCut{}} {
		p := q.Quantize(make(color.Palette, 0, 255), m)
		if len(p) != 3 {
			t.Fatalf("%T: %d colours, want 3", q, len(p))
		}
		if p[0] != (color.RGBA{R: 10, A: 0xff}) {
			t.Errorf("%T: first colour = %v", q, p[0])
		}
	}
}

func TestMedianCut_SeparatesClusters(t *testing.T) {
	m := image.NewRGBA(image.Rect(0, 0, 10, 10))
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			c := color.RGBA{R: uint8(x), G: uint8(y), B: 0, A: 0xff}
			if x >= 5 {
				c = color.RGBA{R: 200 + uint8(x), G: 200 + uint8(y), B: 200, A: 0xff}
			}
			m.SetRGBA(x, y, c)
		}
	}
	p := MedianCut{}.Quantize(make(color.Palette, 0, 2), m)
	if len(p) != 2 {
		t.Fatalf("%d colours, want 2", len(p))
	}
	dark, light := p[0].(color.RGBA), p[1].(color.RGBA)
	if dark.R > light.R {
		dark, light = light, dark
	}
	if dark.R > 10 || light.R < 200 {
		t.Errorf("palette = %v, %v", dark, light)
	}
}

func TestNeuQuant_CoversRange(t *testing.T) {
	p := NeuQuant{SampleFactor: 1}.Quantize(make(color.Palette, 0, 16), gradient())
	m := newMapper(p)
	// Every corner of the gradient should map to something close.
	for _, c := range []rgb{{0, 0, 0}, {252, 0, 126}, {0, 252, 126}, {252, 252, 252}} {
		got := m.pal[m.index(c)]
		if d := maxDiff(c, got); d > 128 {
			t.Errorf("corner %v maps to %v (diff %d)", c, got, d)
		}
	}
}
