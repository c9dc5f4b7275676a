package process

import (
	"fmt"
	"image"
	"image/color"

	"golang.org/x/image/draw"

	"github.com/user/serexport/pkg/pipeline"
)

// Crop returns the part of img inside r. Cropping mosaic data at an odd
// offset shifts the pattern accordingly.
func Crop(img *pipeline.Image, r pipeline.Rectangle) (*pipeline.Image, error) {
	if !r.Within(img.Width, img.Height) {
		return nil, fmt.Errorf("%w: %s outside %dx%d", ErrCropBounds, r, img.Width, img.Height)
	}
	if r.X == 0 && r.Y == 0 && r.Width == img.Width && r.Height == img.Height {
		return img, nil
	}
	out := img.Blank(r.Width, r.Height, img.Channels)
	out.Mosaic = img.Mosaic.Shift(r.X, r.Y)
	rowLen := r.Width * img.Channels
	for y := 0; y < r.Height; y++ {
		src := img.Offset(r.X, r.Y+y, 0)
		copy(out.Pix[y*rowLen:(y+1)*rowLen], img.Pix[src:src+rowLen])
	}
	return out, nil
}

// ResizeImage scales img to the size described by rs using Catmull-Rom
// interpolation at the image's full sample depth.
func ResizeImage(img *pipeline.Image, rs Resize) (*pipeline.Image, error) {
	tw, th := rs.Target(img.Width, img.Height)
	if tw <= 0 || th <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrResizeTarget, tw, th)
	}
	if tw == img.Width && th == img.Height {
		return img, nil
	}

	src := img.ToImage()
	dst := newLike(src, tw, th)
	sb := src.Bounds()

	switch rs.Fit {
	case FitPad:
		bar := rs.Bar
		if bar == nil {
			bar = color.Black
		}
		draw.Draw(dst, dst.Bounds(), image.NewUniform(bar), image.Point{}, draw.Src)
		scale := min(float64(tw)/float64(img.Width), float64(th)/float64(img.Height))
		sw := max(int(float64(img.Width)*scale+0.5), 1)
		sh := max(int(float64(img.Height)*scale+0.5), 1)
		x0, y0 := (tw-sw)/2, (th-sh)/2
		draw.CatmullRom.Scale(dst, image.Rect(x0, y0, x0+sw, y0+sh), src, sb, draw.Src, nil)

	case FitCrop:
		scale := max(float64(tw)/float64(img.Width), float64(th)/float64(img.Height))
		cw := min(int(float64(tw)/scale+0.5), img.Width)
		ch := min(int(float64(th)/scale+0.5), img.Height)
		cw, ch = max(cw, 1), max(ch, 1)
		x0, y0 := (img.Width-cw)/2, (img.Height-ch)/2
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, image.Rect(x0, y0, x0+cw, y0+ch), draw.Src, nil)

	default:
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, sb, draw.Src, nil)
	}

	return pipeline.FromImage(dst, img, img.Channels), nil
}

// newLike allocates an image of the same colour model as src.
func newLike(src image.Image, w, h int) draw.Image {
	r := image.Rect(0, 0, w, h)
	switch src.(type) {
	case *image.Gray:
		return image.NewGray(r)
	case *image.Gray16:
		return image.NewGray16(r)
	case *image.RGBA64:
		return image.NewRGBA64(r)
	}
	return image.NewRGBA(r)
}
