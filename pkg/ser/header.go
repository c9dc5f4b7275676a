// Package ser reads, validates, repairs and writes SER frame-sequence
// containers.
//
// A SER file is a 178-byte header followed by FrameCount raw frames of
// identical size and an optional trailer of one 64-bit timestamp per frame.
// Header integers are always little-endian.
package ser

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/user/serexport/pkg/pipeline"
)

const (
	// HeaderSize is the size of the fixed SER header in bytes.
	HeaderSize = 178

	// TimestampSize is the size of one trailer entry in bytes.
	TimestampSize = 8

	// FileID is the conventional file identifier written by capture software.
	FileID = "LUCAM-RECORDER"

	stringSize = 40

	offsetLuID         = 14
	offsetColorID      = 18
	offsetLittleEndian = 22
	offsetWidth        = 26
	offsetHeight       = 30
	offsetPixelDepth   = 34
	offsetFrameCount   = 38
	offsetObserver     = 42
	offsetInstrument   = 82
	offsetTelescope    = 122
	offsetDateTime     = 162
	offsetDateTimeUTC  = 170
)

// ColorID identifies the sample layout of the frames.
type ColorID int32

const (
	ColorMono ColorID = 0
	ColorRGGB ColorID = 8
	ColorGRBG ColorID = 9
	ColorGBRG ColorID = 10
	ColorBGGR ColorID = 11
	ColorCYYM ColorID = 16
	ColorYCMY ColorID = 17
	ColorYMCY ColorID = 18
	ColorMYYC ColorID = 19
	ColorRGB  ColorID = 100
	ColorBGR  ColorID = 101
)

var colorPatterns = map[ColorID]pipeline.CFA{
	ColorRGGB: pipeline.CFARGGB,
	ColorGRBG: pipeline.CFAGRBG,
	ColorGBRG: pipeline.CFAGBRG,
	ColorBGGR: pipeline.CFABGGR,
	ColorCYYM: pipeline.CFACYYM,
	ColorYCMY: pipeline.CFAYCMY,
	ColorYMCY: pipeline.CFAYMCY,
	ColorMYYC: pipeline.CFAMYYC,
}

// String returns the display name of the color id.
func (c ColorID) String() string {
	switch c {
	case ColorMono:
		return "MONO"
	case ColorRGB:
		return "RGB"
	case ColorBGR:
		return "BGR"
	}
	if p, ok := colorPatterns[c]; ok {
		return p.Name
	}
	return fmt.Sprintf("UNKNOWN(%d)", int32(c))
}

// CFA returns the bayer pattern matrix for mosaic color ids.
func (c ColorID) CFA() (pipeline.CFA, bool) {
	p, ok := colorPatterns[c]
	return p, ok
}

// IsColor reports whether frames carry three interleaved channels.
func (c ColorID) IsColor() bool {
	return c == ColorRGB || c == ColorBGR
}

// Channels returns the number of samples per pixel.
func (c ColorID) Channels() int {
	if c.IsColor() {
		return 3
	}
	return 1
}

// ColorIDForCFA maps a pattern back to its color id. The zero pattern maps
// to ColorMono.
func ColorIDForCFA(p pipeline.CFA) ColorID {
	for id, cfa := range colorPatterns {
		if cfa.Name == p.Name {
			return id
		}
	}
	return ColorMono
}

// Header is the fixed-size SER file header. Fixed-width fields are kept
// raw so that an unmodified header serializes back to identical bytes.
type Header struct {
	FileID       [14]byte
	LuID         int32
	ColorID      ColorID
	LittleEndian int32
	Width        int32
	Height       int32
	PixelDepth   int32 // Bits per sample per plane
	FrameCount   int32
	Observer     [stringSize]byte
	Instrument   [stringSize]byte
	Telescope    [stringSize]byte
	DateTime     int64 // Local start time, 100 ns ticks since 0001-01-01
	DateTimeUTC  int64 // UTC start time, 100 ns ticks since 0001-01-01
}

// NewHeader returns a header with the standard file id and the given geometry.
func NewHeader(width, height int, color ColorID, pixelDepth int) Header {
	h := Header{
		ColorID:    color,
		Width:      int32(width),
		Height:     int32(height),
		PixelDepth: int32(pixelDepth),
	}
	copy(h.FileID[:], FileID)
	return h
}

// BytesPerSample returns 1 for depths up to 8 bits and 2 above.
func (h Header) BytesPerSample() int {
	if h.PixelDepth > 8 {
		return 2
	}
	return 1
}

// StorageDepth returns the sample storage width in bits (8 or 16).
func (h Header) StorageDepth() int {
	return h.BytesPerSample() * 8
}

// Channels returns the number of samples per pixel.
func (h Header) Channels() int {
	return h.ColorID.Channels()
}

// FrameSize returns the size of one frame in bytes.
func (h Header) FrameSize() int64 {
	return int64(h.Width) * int64(h.Height) * int64(h.BytesPerSample()) * int64(h.Channels())
}

// TimestampsDeclared reports whether the header announces a timestamp
// trailer. Capture software sets the start time whenever it writes one.
func (h Header) TimestampsDeclared() bool {
	return h.DateTime != 0
}

// ObserverString returns the observer field without padding.
func (h Header) ObserverString() string { return fieldString(h.Observer[:]) }

// InstrumentString returns the instrument field without padding.
func (h Header) InstrumentString() string { return fieldString(h.Instrument[:]) }

// TelescopeString returns the telescope field without padding.
func (h Header) TelescopeString() string { return fieldString(h.Telescope[:]) }

// SetObserver stores s, truncated to 40 bytes.
func (h *Header) SetObserver(s string) { setField(h.Observer[:], s) }

// SetInstrument stores s, truncated to 40 bytes.
func (h *Header) SetInstrument(s string) { setField(h.Instrument[:], s) }

// SetTelescope stores s, truncated to 40 bytes.
func (h *Header) SetTelescope(s string) { setField(h.Telescope[:], s) }

// Metadata replaces the free-text fields of an output header. Nil fields
// keep the source text; an empty string clears it.
type Metadata struct {
	Observer   *string
	Instrument *string
	Telescope  *string
}

// Apply writes the set fields into h.
func (m Metadata) Apply(h *Header) {
	if m.Observer != nil {
		h.SetObserver(*m.Observer)
	}
	if m.Instrument != nil {
		h.SetInstrument(*m.Instrument)
	}
	if m.Telescope != nil {
		h.SetTelescope(*m.Telescope)
	}
}

func fieldString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(bytes.TrimRight(b, " "))
}

func setField(dst []byte, s string) {
	for i := range dst {
		dst[i] = 0
	}
	copy(dst, s)
}

// MarshalBinary encodes the header into its 178-byte wire form.
func (h Header) MarshalBinary() ([]byte, error) {
	b := make([]byte, HeaderSize)
	le := binary.LittleEndian
	copy(b[0:14], h.FileID[:])
	le.PutUint32(b[offsetLuID:], uint32(h.LuID))
	le.PutUint32(b[offsetColorID:], uint32(h.ColorID))
	le.PutUint32(b[offsetLittleEndian:], uint32(h.LittleEndian))
	le.PutUint32(b[offsetWidth:], uint32(h.Width))
	le.PutUint32(b[offsetHeight:], uint32(h.Height))
	le.PutUint32(b[offsetPixelDepth:], uint32(h.PixelDepth))
	le.PutUint32(b[offsetFrameCount:], uint32(h.FrameCount))
	copy(b[offsetObserver:offsetObserver+stringSize], h.Observer[:])
	copy(b[offsetInstrument:offsetInstrument+stringSize], h.Instrument[:])
	copy(b[offsetTelescope:offsetTelescope+stringSize], h.Telescope[:])
	le.PutUint64(b[offsetDateTime:], uint64(h.DateTime))
	le.PutUint64(b[offsetDateTimeUTC:], uint64(h.DateTimeUTC))
	return b, nil
}

// UnmarshalBinary decodes a header from at least HeaderSize bytes. It does
// not validate field values.
func (h *Header) UnmarshalBinary(b []byte) error {
	if len(b) < HeaderSize {
		return fmt.Errorf("%w: got %d bytes", ErrTooShortForHeader, len(b))
	}
	le := binary.LittleEndian
	copy(h.FileID[:], b[0:14])
	h.LuID = int32(le.Uint32(b[offsetLuID:]))
	h.ColorID = ColorID(int32(le.Uint32(b[offsetColorID:])))
	h.LittleEndian = int32(le.Uint32(b[offsetLittleEndian:]))
	h.Width = int32(le.Uint32(b[offsetWidth:]))
	h.Height = int32(le.Uint32(b[offsetHeight:]))
	h.PixelDepth = int32(le.Uint32(b[offsetPixelDepth:]))
	h.FrameCount = int32(le.Uint32(b[offsetFrameCount:]))
	copy(h.Observer[:], b[offsetObserver:offsetObserver+stringSize])
	copy(h.Instrument[:], b[offsetInstrument:offsetInstrument+stringSize])
	copy(h.Telescope[:], b[offsetTelescope:offsetTelescope+stringSize])
	h.DateTime = int64(le.Uint64(b[offsetDateTime:]))
	h.DateTimeUTC = int64(le.Uint64(b[offsetDateTimeUTC:]))
	return nil
}

// sampleOrder returns the byte order of 16-bit samples.
//
// Capture software has always written LittleEndian=0 for little-endian
// sample data despite the field name, and readers follow that convention:
// 0 selects little-endian and 1 big-endian samples.
func (h Header) sampleOrder() binary.ByteOrder {
	if h.LittleEndian == 1 {
		return binary.BigEndian
	}
	return binary.LittleEndian
}
