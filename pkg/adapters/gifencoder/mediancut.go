package gifencoder

import (
	"image"
	"image/color"
	"image/draw"
	"sort"
)

// MedianCut splits the colour space box with the widest channel range at
// its median until the palette is full, then averages each box.
type MedianCut struct{}

type box struct {
	px      []rgb
	channel int
	span    int
}

func newBox(px []rgb) box {
	b := box{px: px}
	for k := 0; k < 3; k++ {
		lo, hi := 255, 0
		for _, c := range px {
			v := int(c[k])
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
		if hi-lo > b.span {
			b.span, b.channel = hi-lo, k
		}
	}
	return b
}

func (b box) mean() rgb {
	var sum [3]int
	for _, c := range b.px {
		for k := 0; k < 3; k++ {
			sum[k] += int(c[k])
		}
	}
	n := len(b.px)
	return rgb{
		uint8((sum[0] + n/2) / n),
		uint8((sum[1] + n/2) / n),
		uint8((sum[2] + n/2) / n),
	}
}

// Quantize implements draw.Quantizer.
func (MedianCut) Quantize(p color.Palette, m image.Image) color.Palette {
	n := cap(p) - len(p)
	if n <= 0 {
		return p
	}
	px := pixels(m)
	if len(px) == 0 {
		return p
	}
	if exact, ok := exactPalette(px, n); ok {
		return appendColors(p, exact)
	}

	boxes := []box{newBox(px)}
	for len(boxes) < n {
		pick := -1
		for i, b := range boxes {
			if len(b.px) < 2 || b.span == 0 {
				continue
			}
			if pick < 0 || b.span > boxes[pick].span {
				pick = i
			}
		}
		if pick < 0 {
			break
		}
		b := boxes[pick]
		k := b.channel
		sort.Slice(b.px, func(i, j int) bool { return b.px[i][k] < b.px[j][k] })
		mid := len(b.px) / 2
		boxes[pick] = newBox(b.px[:mid])
		boxes = append(boxes, newBox(b.px[mid:]))
	}

	out := make([]rgb, len(boxes))
	for i, b := range boxes {
		out[i] = b.mean()
	}
	return appendColors(p, out)
}

var _ draw.Quantizer = MedianCut{}
