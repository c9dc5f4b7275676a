package aviencoder

import (
	"encoding/binary"
)

// Sizes of the fixed AVI structures.
const (
	avihSize        = 56
	strhSize        = 56
	bitmapInfoSize  = 40
	paletteSize     = 256 * 4
	dmlhSize        = 248
	superIndexHead  = 24
	superIndexEntry = 16
	stdIndexHead    = 24
	stdIndexEntry   = 8
	idx1Entry       = 16

	avifHasIndex   = 0x10
	aviifKeyframe  = 0x10
	indexOfIndexes = 0x00
	indexOfChunks  = 0x01
)

// chunkID is the fourcc of uncompressed video chunks of stream 0.
const chunkID = "00db"

// buf is a little-endian byte builder for RIFF structures.
type buf struct {
	b []byte
}

func (w *buf) fourcc(s string) {
	w.b = append(w.b, s[0], s[1], s[2], s[3])
}

func (w *buf) u16(v uint16) {
	w.b = binary.LittleEndian.AppendUint16(w.b, v)
}

func (w *buf) u32(v uint32) {
	w.b = binary.LittleEndian.AppendUint32(w.b, v)
}

func (w *buf) u64(v uint64) {
	w.b = binary.LittleEndian.AppendUint64(w.b, v)
}

func (w *buf) zero(n int) {
	w.b = append(w.b, make([]byte, n)...)
}

func (w *buf) len() int64 {
	return int64(len(w.b))
}

func u32le(v uint32) []byte {
	return binary.LittleEndian.AppendUint32(nil, v)
}

// rowBytes returns the DIB row stride, padded to four bytes.
func rowBytes(width, bitCount int) int {
	return (width*bitCount/8 + 3) &^ 3
}
