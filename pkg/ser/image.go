package ser

import (
	"github.com/user/serexport/pkg/pipeline"
)

// DecodeImage converts a raw frame into a pipeline image without altering
// sample values. bits is the number of significant bits, usually the
// declared pixel depth or the result of DetectPixelDepth; values outside
// 1..storage depth fall back to the storage depth. BGR frames are reordered
// to RGB and mosaic color ids set the image's CFA pattern.
func DecodeImage(h Header, f Frame, bits int) *pipeline.Image {
	depth := h.StorageDepth()
	if bits < 1 || bits > depth {
		bits = depth
	}
	ch := h.Channels()
	img := pipeline.NewImage(int(h.Width), int(h.Height), ch, depth, bits)
	img.Index = f.Index
	img.Timestamp = f.Timestamp
	img.HasTimestamp = f.HasTimestamp
	if cfa, ok := h.ColorID.CFA(); ok {
		img.Mosaic = cfa
	}

	n := len(img.Pix)
	if depth == 8 {
		for i := 0; i < n && i < len(f.Data); i++ {
			img.Pix[i] = uint16(f.Data[i])
		}
	} else {
		order := h.sampleOrder()
		for i := 0; i < n && 2*i+1 < len(f.Data); i++ {
			img.Pix[i] = order.Uint16(f.Data[2*i:])
		}
	}

	if h.ColorID == ColorBGR {
		swapRB(img.Pix)
	}
	return img
}

// EncodeImage converts img back into raw frame bytes laid out as described
// by h. It is the inverse of DecodeImage for an unmodified frame.
func EncodeImage(img *pipeline.Image, h Header) []byte {
	pix := img.Pix
	if h.ColorID == ColorBGR && img.Channels == 3 {
		pix = make([]uint16, len(img.Pix))
		copy(pix, img.Pix)
		swapRB(pix)
	}

	if h.BytesPerSample() == 1 {
		out := make([]byte, len(pix))
		for i, v := range pix {
			out[i] = uint8(v)
		}
		return out
	}
	order := h.sampleOrder()
	out := make([]byte, len(pix)*2)
	for i, v := range pix {
		order.PutUint16(out[2*i:], v)
	}
	return out
}

// OutputHeader derives the header of an output container from the source
// header and the first processed frame. Metadata, the sample byte order and
// the declared depth are kept when the storage layout is unchanged.
func OutputHeader(src Header, img *pipeline.Image) Header {
	h := src
	h.Width = int32(img.Width)
	h.Height = int32(img.Height)
	h.FrameCount = 0
	if img.Depth != src.StorageDepth() {
		h.PixelDepth = int32(img.Depth)
	}

	switch {
	case img.Channels == 3 && src.ColorID == ColorBGR:
		h.ColorID = ColorBGR
	case img.Channels == 3:
		h.ColorID = ColorRGB
	case !img.Mosaic.IsZero():
		h.ColorID = ColorIDForCFA(img.Mosaic)
	default:
		h.ColorID = ColorMono
	}
	return h
}

func swapRB(pix []uint16) {
	for i := 0; i+2 < len(pix); i += 3 {
		pix[i], pix[i+2] = pix[i+2], pix[i]
	}
}
