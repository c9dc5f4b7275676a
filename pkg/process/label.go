package process

import (
	"fmt"

	"github.com/user/serexport/pkg/pipeline"
	"github.com/user/serexport/pkg/ports"
	"github.com/user/serexport/pkg/timestamp"
)

// LabelText returns the overlay text for img. Timestamps are shown in UTC.
func LabelText(img *pipeline.Image, l Label) string {
	frame := fmt.Sprintf("#%d", img.Index+1)
	ts := "--/--/---- --:--:--.---"
	if img.HasTimestamp {
		ts = timestamp.FormatTime(l.TimeBase.ToUTC(img.Timestamp)) + " UT"
	}
	switch l.Content {
	case LabelTimestamp:
		return ts
	case LabelBoth:
		return frame + "  " + ts
	}
	return frame
}

// DrawLabel blends the rendered text into a copy of img at the requested
// corner using the brightest sample value.
func DrawLabel(img *pipeline.Image, renderer ports.Renderer, l Label) *pipeline.Image {
	scale := max(l.Scale, 1)
	mask := renderer.RenderLabel(LabelText(img, l), scale)
	if mask == nil {
		return img
	}
	mb := mask.Bounds()
	margin := 4 * scale

	x0, y0 := margin, margin
	switch l.Corner {
	case TopRight:
		x0 = img.Width - mb.Dx() - margin
	case BottomLeft:
		y0 = img.Height - mb.Dy() - margin
	case BottomRight:
		x0 = img.Width - mb.Dx() - margin
		y0 = img.Height - mb.Dy() - margin
	}

	out := img.Clone()
	top := uint32(img.Max())
	for y := 0; y < mb.Dy(); y++ {
		py := y0 + y
		if py < 0 || py >= img.Height {
			continue
		}
		for x := 0; x < mb.Dx(); x++ {
			px := x0 + x
			if px < 0 || px >= img.Width {
				continue
			}
			a := uint32(mask.AlphaAt(mb.Min.X+x, mb.Min.Y+y).A)
			if a == 0 {
				continue
			}
			for c := 0; c < img.Channels; c++ {
				o := out.Offset(px, py, c)
				v := uint32(out.Pix[o])
				out.Pix[o] = uint16((v*(255-a) + top*a + 127) / 255)
			}
		}
	}
	return out
}
