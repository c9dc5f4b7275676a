// Package ggrenderer provides a renderer implementation using the gg library.
package ggrenderer

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"math"

	"github.com/fogleman/gg"
	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	"golang.org/x/image/tiff"

	"github.com/user/serexport/pkg/ports"
)

// labelPadding is the blank border around rendered text, in unscaled pixels.
const labelPadding = 2

// Renderer implements ports.Renderer using gg for text and the standard and
// x/image codecs for still images.
type Renderer struct{}

// New creates a new Renderer.
func New() *Renderer {
	return &Renderer{}
}

// EncodeImage encodes an image to the specified format.
func (r *Renderer) EncodeImage(img image.Image, format ports.ImageFormat, quality int) ([]byte, error) {
	var buf bytes.Buffer

	switch format {
	case ports.FormatJPEG:
		if quality <= 0 || quality > 100 {
			quality = jpeg.DefaultQuality
		}
		opts := &jpeg.Options{Quality: quality}
		if err := jpeg.Encode(&buf, img, opts); err != nil {
			return nil, fmt.Errorf("encode JPEG: %w", err)
		}
	case ports.FormatPNG:
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("encode PNG: %w", err)
		}
	case ports.FormatBMP:
		if err := bmp.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("encode BMP: %w", err)
		}
	case ports.FormatTIFF:
		if err := tiff.Encode(&buf, img, &tiff.Options{Compression: tiff.Deflate}); err != nil {
			return nil, fmt.Errorf("encode TIFF: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported format: %d", format)
	}

	return buf.Bytes(), nil
}

// RenderLabel draws text with gg's built-in face and returns its coverage
// as an alpha mask, magnified by scale with nearest-neighbour sampling so
// the glyphs stay crisp.
func (r *Renderer) RenderLabel(text string, scale int) *image.Alpha {
	if text == "" {
		return nil
	}
	if scale < 1 {
		scale = 1
	}

	measure := gg.NewContext(1, 1)
	tw, th := measure.MeasureString(text)
	w := int(math.Ceil(tw)) + 2*labelPadding
	h := int(math.Ceil(th)) + 2*labelPadding + 3 // room for descenders

	dc := gg.NewContext(w, h)
	dc.SetRGB(1, 1, 1)
	dc.DrawStringAnchored(text, labelPadding, labelPadding, 0, 1)

	rgba := dc.Image()
	mask := image.NewAlpha(image.Rect(0, 0, w, h))
	draw.Draw(mask, mask.Bounds(), rgba, rgba.Bounds().Min, draw.Src)
	if scale == 1 {
		return mask
	}

	out := image.NewAlpha(image.Rect(0, 0, w*scale, h*scale))
	draw.NearestNeighbor.Scale(out, out.Bounds(), mask, mask.Bounds(), draw.Src, nil)
	return out
}

// Ensure Renderer implements ports.Renderer
var _ ports.Renderer = (*Renderer)(nil)
