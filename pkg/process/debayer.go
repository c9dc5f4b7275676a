package process

import (
	"github.com/user/serexport/pkg/pipeline"
)

// Debayer reconstructs a three-channel image from single-channel mosaic
// data by bilinear interpolation. Each missing colour at a pixel is the mean
// of the photosites of that colour in the surrounding 3x3 block; the
// pixel's own colour is kept as is. Complementary (CMY) patterns are
// interpolated in CMY and converted to RGB.
//
// Images that are not single-channel, or that have no pattern, are
// returned unchanged.
func Debayer(img *pipeline.Image, pattern pipeline.CFA) *pipeline.Image {
	if pattern.IsZero() {
		pattern = img.Mosaic
	}
	if img.Channels != 1 || pattern.IsZero() {
		return img
	}

	w, h := img.Width, img.Height
	out := img.Blank(w, h, 3)
	complementary := pattern.Complementary()
	max := int32(img.Max())

	var sum [7]uint32
	var cnt [7]uint32
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			sum = [7]uint32{}
			cnt = [7]uint32{}
			for dy := -1; dy <= 1; dy++ {
				yy := y + dy
				if yy < 0 || yy >= h {
					continue
				}
				for dx := -1; dx <= 1; dx++ {
					xx := x + dx
					if xx < 0 || xx >= w {
						continue
					}
					f := pattern.At(xx, yy)
					sum[f] += uint32(img.Pix[yy*w+xx])
					cnt[f]++
				}
			}
			own := pattern.At(x, y)
			value := func(f pipeline.Filter) int32 {
				if f == own {
					return int32(img.Pix[y*w+x])
				}
				if cnt[f] == 0 {
					return 0
				}
				return int32((sum[f] + cnt[f]/2) / cnt[f])
			}

			o := (y*w + x) * 3
			if complementary {
				c, ye, m := value(pipeline.FilterC), value(pipeline.FilterY), value(pipeline.FilterM)
				out.Pix[o] = clamp16((m+ye-c)/2, max)
				out.Pix[o+1] = clamp16((c+ye-m)/2, max)
				out.Pix[o+2] = clamp16((c+m-ye)/2, max)
				continue
			}
			out.Pix[o] = uint16(value(pipeline.FilterR))
			out.Pix[o+1] = uint16(value(pipeline.FilterG))
			out.Pix[o+2] = uint16(value(pipeline.FilterB))
		}
	}
	return out
}

func clamp16(v, max int32) uint16 {
	if v < 0 {
		return 0
	}
	if v > max {
		return uint16(max)
	}
	return uint16(v)
}
