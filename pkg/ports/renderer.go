package ports

import (
	"image"
	"strings"
)

// Renderer abstracts still-image encoding and text rendering.
type Renderer interface {
	// EncodeImage encodes an image to the specified format.
	// quality is only used for JPEG (1-100).
	EncodeImage(img image.Image, format ImageFormat, quality int) ([]byte, error)

	// RenderLabel renders text as an alpha mask, scaled by an integer factor.
	RenderLabel(text string, scale int) *image.Alpha
}

// ImageFormat specifies a still-image encoding format.
type ImageFormat int

const (
	FormatPNG ImageFormat = iota
	FormatJPEG
	FormatBMP
	FormatTIFF
)

// Extension returns the file extension for the format, including the dot.
func (f ImageFormat) Extension() string {
	switch f {
	case FormatJPEG:
		return ".jpg"
	case FormatBMP:
		return ".bmp"
	case FormatTIFF:
		return ".tif"
	default:
		return ".png"
	}
}

// String returns the format name.
func (f ImageFormat) String() string {
	return strings.TrimPrefix(f.Extension(), ".")
}

// ParseImageFormat parses a format name or extension such as "png" or ".tiff".
func ParseImageFormat(s string) (ImageFormat, bool) {
	switch strings.TrimPrefix(strings.ToLower(s), ".") {
	case "png":
		return FormatPNG, true
	case "jpg", "jpeg":
		return FormatJPEG, true
	case "bmp":
		return FormatBMP, true
	case "tif", "tiff":
		return FormatTIFF, true
	}
	return FormatPNG, false
}
