package process

import (
	"math"

	"github.com/user/serexport/pkg/pipeline"
)

// Luma weights used by saturation.
const (
	lumaR = 0.299
	lumaG = 0.587
	lumaB = 0.114
)

// Monochrome folds a three-channel image into one channel by averaging the
// channels selected by mode.
func Monochrome(img *pipeline.Image, mode MonoMode) *pipeline.Image {
	chans := mode.channels()
	if img.Channels != 3 || len(chans) == 0 {
		return img
	}
	out := img.Blank(img.Width, img.Height, 1)
	n := uint32(len(chans))
	for i := range out.Pix {
		var sum uint32
		for _, c := range chans {
			sum += uint32(img.Pix[i*3+c])
		}
		out.Pix[i] = uint16((sum + n/2) / n)
	}
	return out
}

// Align shifts the red and blue channels of a three-channel image by the
// given offsets, clamping reads at the image edges.
func Align(img *pipeline.Image, red, blue Offset) *pipeline.Image {
	if img.Channels != 3 || (red == Offset{} && blue == Offset{}) {
		return img
	}
	out := img.Clone()
	shift := func(c int, off Offset) {
		if off == (Offset{}) {
			return
		}
		for y := 0; y < img.Height; y++ {
			sy := clampInt(y-off.Y, 0, img.Height-1)
			for x := 0; x < img.Width; x++ {
				sx := clampInt(x-off.X, 0, img.Width-1)
				out.Pix[img.Offset(x, y, c)] = img.Pix[img.Offset(sx, sy, c)]
			}
		}
	}
	shift(0, red)
	shift(2, blue)
	return out
}

// toneCurve maps samples through a lookup table built for one bit depth.
type toneCurve struct {
	gain  float64
	gamma float64
	bits  int
	lut   []uint16
}

func newToneCurve(gain, gamma float64) *toneCurve {
	if gain == 0 {
		gain = 1
	}
	if gamma == 0 {
		gamma = 1
	}
	return &toneCurve{gain: gain, gamma: gamma}
}

func (t *toneCurve) identity() bool {
	return t.gain == 1 && t.gamma == 1
}

// table returns the LUT for the given bit depth, rebuilding it when the
// depth changes: out = max * ((v/max) * gain) ^ (1/gamma), clamped.
func (t *toneCurve) table(bits int) []uint16 {
	if t.lut != nil && t.bits == bits {
		return t.lut
	}
	max := float64(uint32(1)<<uint(bits) - 1)
	t.lut = make([]uint16, int(max)+1)
	for v := range t.lut {
		x := float64(v) / max * t.gain
		if x > 1 {
			x = 1
		}
		y := math.Pow(x, 1/t.gamma) * max
		t.lut[v] = uint16(math.Min(max, math.Round(y)))
	}
	t.bits = bits
	return t.lut
}

// Apply maps every sample in place on a copy of img.
func (t *toneCurve) Apply(img *pipeline.Image) *pipeline.Image {
	if t.identity() {
		return img
	}
	lut := t.table(img.Bits)
	out := img.Clone()
	for i, v := range out.Pix {
		if int(v) < len(lut) {
			out.Pix[i] = lut[v]
		} else {
			out.Pix[i] = lut[len(lut)-1]
		}
	}
	return out
}

// Saturate scales each pixel's distance from its luma by percent/100.
func Saturate(img *pipeline.Image, percent float64) *pipeline.Image {
	if img.Channels != 3 || percent == 100 {
		return img
	}
	s := percent / 100
	max := float64(img.Max())
	out := img.Clone()
	for i := 0; i+2 < len(out.Pix); i += 3 {
		r, g, b := float64(img.Pix[i]), float64(img.Pix[i+1]), float64(img.Pix[i+2])
		l := lumaR*r + lumaG*g + lumaB*b
		out.Pix[i] = clampF(l+(r-l)*s, max)
		out.Pix[i+1] = clampF(l+(g-l)*s, max)
		out.Pix[i+2] = clampF(l+(b-l)*s, max)
	}
	return out
}

// ApplyBalance multiplies each channel of a three-channel image by its factor.
func ApplyBalance(img *pipeline.Image, r, g, b float64) *pipeline.Image {
	if img.Channels != 3 || (r == 1 && g == 1 && b == 1) {
		return img
	}
	max := float64(img.Max())
	f := [3]float64{r, g, b}
	out := img.Clone()
	for i, v := range img.Pix {
		out.Pix[i] = clampF(float64(v)*f[i%3], max)
	}
	return out
}

// EstimateBalance returns factors that scale the red and blue channel means
// to the green mean. Channels with a zero mean keep a factor of 1.
func EstimateBalance(img *pipeline.Image) (r, g, b float64) {
	if img.Channels != 3 || len(img.Pix) == 0 {
		return 1, 1, 1
	}
	var sum [3]float64
	for i, v := range img.Pix {
		sum[i%3] += float64(v)
	}
	factor := func(c float64) float64 {
		if c == 0 || sum[1] == 0 {
			return 1
		}
		return sum[1] / c
	}
	return factor(sum[0]), 1, factor(sum[2])
}

// Invert replaces every sample v with max-v for the image's bit depth.
func Invert(img *pipeline.Image) *pipeline.Image {
	max := img.Max()
	out := img.Clone()
	for i, v := range img.Pix {
		if v > max {
			v = max
		}
		out.Pix[i] = max - v
	}
	return out
}

func clampF(v, max float64) uint16 {
	if v <= 0 {
		return 0
	}
	if v >= max {
		return uint16(max)
	}
	return uint16(v + 0.5)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
