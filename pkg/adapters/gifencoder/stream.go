package gifencoder

import (
	"bufio"
	"compress/lzw"
	"encoding/binary"
	"image"
	"io"
)

// GIF block markers.
const (
	extensionIntroducer = 0x21
	imageSeparator      = 0x2c
	trailer             = 0x3b

	graphicControlLabel = 0xf9
	applicationLabel    = 0xff

	disposalNone = 1 << 2
)

// blockWriter splits LZW output into sub-blocks of at most 255 bytes.
type blockWriter struct {
	w   *bufio.Writer
	buf [256]byte
	n   int
}

func (b *blockWriter) Write(p []byte) (int, error) {
	written := 0
	for len(p) > 0 {
		c := copy(b.buf[1+b.n:], p)
		b.n += c
		p = p[c:]
		written += c
		if b.n == 255 {
			if err := b.flush(); err != nil {
				return written, err
			}
		}
	}
	return written, nil
}

func (b *blockWriter) flush() error {
	if b.n == 0 {
		return nil
	}
	b.buf[0] = byte(b.n)
	_, err := b.w.Write(b.buf[:1+b.n])
	b.n = 0
	return err
}

// close flushes the last sub-block and writes the block terminator.
func (b *blockWriter) close() error {
	if err := b.flush(); err != nil {
		return err
	}
	return b.w.WriteByte(0)
}

// stream writes GIF89a blocks one at a time.
type stream struct {
	w *bufio.Writer
}

func newStream(w io.Writer) *stream {
	return &stream{w: bufio.NewWriter(w)}
}

func (s *stream) u16(v int) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], uint16(v))
	s.w.Write(b[:])
}

// header writes the signature, a logical screen without global colour
// table and an infinite NETSCAPE2.0 loop.
func (s *stream) header(width, height int) error {
	s.w.WriteString("GIF89a")
	s.u16(width)
	s.u16(height)
	s.w.Write([]byte{0, 0, 0})

	s.w.Write([]byte{extensionIntroducer, applicationLabel, 11})
	s.w.WriteString("NETSCAPE2.0")
	s.w.Write([]byte{3, 1})
	s.u16(0)
	return s.w.WriteByte(0)
}

// frame is a prepared image block.
type frame struct {
	rect        image.Rectangle
	palette     []rgb // Exactly 1<<bits entries
	bits        int
	indices     []uint8
	transparent int // -1 when the frame has no transparent pixels
}

func (s *stream) frame(f *frame, delay int) error {
	flags := byte(disposalNone)
	ti := byte(0)
	if f.transparent >= 0 {
		flags |= 1
		ti = byte(f.transparent)
	}
	s.w.Write([]byte{extensionIntroducer, graphicControlLabel, 4, flags})
	s.u16(delay)
	s.w.Write([]byte{ti, 0})

	s.w.WriteByte(imageSeparator)
	s.u16(f.rect.Min.X)
	s.u16(f.rect.Min.Y)
	s.u16(f.rect.Dx())
	s.u16(f.rect.Dy())
	s.w.WriteByte(0x80 | byte(f.bits-1))
	for _, c := range f.palette {
		s.w.Write(c[:])
	}

	litWidth := f.bits
	if litWidth < 2 {
		litWidth = 2
	}
	s.w.WriteByte(byte(litWidth))
	bw := &blockWriter{w: s.w}
	lw := lzw.NewWriter(bw, lzw.LSB, litWidth)
	if _, err := lw.Write(f.indices); err != nil {
		return err
	}
	if err := lw.Close(); err != nil {
		return err
	}
	return bw.close()
}

func (s *stream) trailer() error {
	s.w.WriteByte(trailer)
	return s.w.Flush()
}

func (s *stream) flush() error {
	return s.w.Flush()
}
