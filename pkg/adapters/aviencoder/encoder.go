// Package aviencoder writes uncompressed AVI files.
//
// Frames are stored as bottom-up DIBs: 8-bit palettised grey for single
// channel images and 24-bit BGR for colour. Legacy files follow AVI 1.0
// with an idx1 index and are capped at 2 GB. Modern files additionally
// carry an OpenDML header, a super index and a standard index, and may grow
// to 4 GB. Everything lives in a single RIFF chunk; frames that would cross
// the size ceiling are refused rather than spilled into extension chunks.
package aviencoder

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/user/serexport/pkg/pipeline"
	"github.com/user/serexport/pkg/ports"
	"github.com/user/serexport/pkg/ser"
)

const (
	// Limit2GB is the size ceiling of legacy AVI files.
	Limit2GB int64 = 2 << 30
	// Limit4GB is the size ceiling of single-RIFF OpenDML files.
	Limit4GB int64 = 4<<30 - 1

	// DefaultFrameRate is used when no frame rate is configured.
	DefaultFrameRate = 25.0
)

// Options configures the container flavour.
type Options struct {
	// Legacy writes plain AVI 1.0 without OpenDML indexes.
	Legacy bool
	// SizeLimit caps the file size. Zero selects 2 GB for legacy and 4 GB
	// for modern files; larger values are clamped to those ceilings.
	SizeLimit int64
}

type indexEntry struct {
	offset int64 // File offset of the chunk header
	size   uint32
}

// Encoder implements ports.FrameEncoder for AVI output.
type Encoder struct {
	fs   ports.FileSystem
	opts Options

	params ports.EncoderParams
	file   ports.File
	pos    int64
	limit  int64

	started  bool
	done     bool
	width    int
	height   int
	channels int
	bitCount int
	index    []indexEntry

	avihFramesPos int64
	strhLengthPos int64
	indxPos       int64
	dmlhFramesPos int64
	moviSizePos   int64
	moviPos       int64
}

// Limit returns the effective file size ceiling.
func (o Options) Limit() int64 {
	ceiling := Limit4GB
	if o.Legacy {
		ceiling = Limit2GB
	}
	if o.SizeLimit > 0 && o.SizeLimit < ceiling {
		return o.SizeLimit
	}
	return ceiling
}

// New creates a new AVI encoder writing through fs.
func New(fs ports.FileSystem, opts Options) *Encoder {
	return &Encoder{fs: fs, opts: opts}
}

// Begin creates the output file. Headers are written with the first frame.
func (e *Encoder) Begin(params ports.EncoderParams) error {
	f, err := e.fs.Create(params.Path)
	if err != nil {
		return e.ioError("open", ser.ErrOpen, err)
	}
	e.params = params
	e.file = f
	e.limit = e.opts.Limit()
	return nil
}

// EncodeFrame appends one frame.
func (e *Encoder) EncodeFrame(img *pipeline.Image) error {
	if e.file == nil || e.done {
		return ErrNotStarted
	}
	if !e.started {
		if err := e.writeHeaders(img.Width, img.Height, img.Channels); err != nil {
			return err
		}
	}
	if img.Width != e.width || img.Height != e.height || img.Channels != e.channels {
		return fmt.Errorf("%w: %dx%dx%d after %dx%dx%d", ErrGeometry,
			img.Width, img.Height, img.Channels, e.width, e.height, e.channels)
	}

	data := e.dib(img)
	size := int64(len(data))
	padded := size + size&1
	if e.pos+8+padded+e.trailerSize(len(e.index)+1) > e.limit {
		return fmt.Errorf("%w: %d frames, %d bytes", ErrSizeLimit, len(e.index), e.pos)
	}

	var b buf
	b.fourcc(chunkID)
	b.u32(uint32(size))
	b.b = append(b.b, data...)
	if size&1 == 1 {
		b.b = append(b.b, 0)
	}
	offset := e.pos
	if err := e.write(b.b); err != nil {
		return err
	}
	e.index = append(e.index, indexEntry{offset: offset, size: uint32(size)})
	return nil
}

// End writes the indexes and patches the headers.
func (e *Encoder) End() error {
	return e.finish()
}

// Abort finalizes the file with the frames written so far.
func (e *Encoder) Abort() error {
	return e.finish()
}

// BytesWritten returns the number of bytes written so far.
func (e *Encoder) BytesWritten() int64 {
	return e.pos
}

// Frames returns the number of frames written.
func (e *Encoder) Frames() int {
	return len(e.index)
}

func (e *Encoder) trailerSize(frames int) int64 {
	n := int64(frames)
	size := 8 + idx1Entry*n
	if !e.opts.Legacy {
		size += 8 + stdIndexHead + stdIndexEntry*n
	}
	return size
}

// dib converts img to a bottom-up DIB.
func (e *Encoder) dib(img *pipeline.Image) []byte {
	px := img.To8()
	w, h := img.Width, img.Height
	stride := rowBytes(w, e.bitCount)
	out := make([]byte, stride*h)
	for y := 0; y < h; y++ {
		row := out[(h-1-y)*stride:]
		if e.channels == 1 {
			copy(row[:w], px[y*w:(y+1)*w])
			continue
		}
		for x := 0; x < w; x++ {
			s := (y*w + x) * 3
			row[x*3] = px[s+2]
			row[x*3+1] = px[s+1]
			row[x*3+2] = px[s]
		}
	}
	return out
}

func (e *Encoder) frameRate() float64 {
	if e.params.FrameRate > 0 {
		return e.params.FrameRate
	}
	return DefaultFrameRate
}

func (e *Encoder) writeHeaders(width, height, channels int) error {
	b := e.headers(width, height, channels)
	e.started = true
	return e.write(b.b)
}

// rational returns the stream rate and scale for fps. Rates too slow for a
// millisecond scale fall back to one frame per scale seconds.
func rational(fps float64) (rate, scale uint32) {
	if r := math.Round(fps * 1000); r >= 1 {
		return uint32(math.Min(r, math.MaxUint32)), 1000
	}
	return 1, uint32(math.Min(math.Max(math.Round(1/fps), 1), math.MaxUint32))
}

// headers builds everything up to the movi list and records the offsets
// patched by finalize.
func (e *Encoder) headers(width, height, channels int) buf {
	e.width, e.height, e.channels = width, height, channels
	e.bitCount = 8
	if channels == 3 {
		e.bitCount = 24
	}
	imageSize := uint32(rowBytes(width, e.bitCount) * height)
	fps := e.frameRate()
	rate, scale := rational(fps)
	suggested := imageSize + 8

	var b buf
	b.fourcc("RIFF")
	b.u32(0)
	b.fourcc("AVI ")

	b.fourcc("LIST")
	hdrlSizePos := b.len()
	b.u32(0)
	b.fourcc("hdrl")

	b.fourcc("avih")
	b.u32(avihSize)
	b.u32(uint32(math.Min(math.Round(1e6/fps), math.MaxUint32)))
	b.u32(uint32(math.Min(float64(imageSize)*fps, math.MaxUint32)))
	b.u32(0) // padding granularity
	b.u32(avifHasIndex)
	e.avihFramesPos = b.len()
	b.u32(0) // total frames
	b.u32(0) // initial frames
	b.u32(1) // streams
	b.u32(suggested)
	b.u32(uint32(width))
	b.u32(uint32(height))
	b.zero(16)

	b.fourcc("LIST")
	strlSizePos := b.len()
	b.u32(0)
	b.fourcc("strl")

	b.fourcc("strh")
	b.u32(strhSize)
	b.fourcc("vids")
	b.fourcc("DIB ")
	b.u32(0) // flags
	b.u16(0) // priority
	b.u16(0) // language
	b.u32(0) // initial frames
	b.u32(scale)
	b.u32(rate)
	b.u32(0) // start
	e.strhLengthPos = b.len()
	b.u32(0) // length
	b.u32(suggested)
	b.u32(math.MaxUint32) // quality: default
	b.u32(0)              // sample size
	b.u16(0)
	b.u16(0)
	b.u16(uint16(width))
	b.u16(uint16(height))

	strfSize := uint32(bitmapInfoSize)
	clrUsed := uint32(0)
	if e.bitCount == 8 {
		strfSize += paletteSize
		clrUsed = 256
	}
	b.fourcc("strf")
	b.u32(strfSize)
	b.u32(bitmapInfoSize)
	b.u32(uint32(width))
	b.u32(uint32(height)) // positive: bottom-up rows
	b.u16(1)
	b.u16(uint16(e.bitCount))
	b.u32(0) // BI_RGB
	b.u32(imageSize)
	b.u32(0)
	b.u32(0)
	b.u32(clrUsed)
	b.u32(0)
	if e.bitCount == 8 {
		for i := 0; i < 256; i++ {
			b.b = append(b.b, byte(i), byte(i), byte(i), 0)
		}
	}

	if !e.opts.Legacy {
		b.fourcc("indx")
		b.u32(superIndexHead + superIndexEntry)
		b.u16(4) // longs per entry
		b.b = append(b.b, 0, indexOfIndexes)
		e.indxPos = b.len()
		b.u32(0) // entries in use
		b.fourcc(chunkID)
		b.zero(12)
		b.zero(superIndexEntry)
	}
	binary.LittleEndian.PutUint32(b.b[strlSizePos:], uint32(b.len()-strlSizePos-4))

	if !e.opts.Legacy {
		b.fourcc("LIST")
		b.u32(4 + 8 + dmlhSize)
		b.fourcc("odml")
		b.fourcc("dmlh")
		b.u32(dmlhSize)
		e.dmlhFramesPos = b.len()
		b.u32(0)
		b.zero(dmlhSize - 4)
	}
	binary.LittleEndian.PutUint32(b.b[hdrlSizePos:], uint32(b.len()-hdrlSizePos-4))

	b.fourcc("LIST")
	e.moviSizePos = b.len()
	b.u32(0)
	e.moviPos = b.len()
	b.fourcc("movi")
	return b
}

// EstimateSize returns the size of a file holding frames images of the
// given geometry, as written by an encoder with opts. Size limits are
// ignored.
func EstimateSize(opts Options, width, height, channels, frames int) int64 {
	e := &Encoder{opts: opts}
	head := e.headers(width, height, channels)
	frame := int64(rowBytes(width, e.bitCount) * height)
	return head.len() + int64(frames)*(8+frame+frame&1) + e.trailerSize(frames)
}

func (e *Encoder) finish() error {
	if e.done || e.file == nil {
		return nil
	}
	e.done = true

	err := e.finalize()
	if cerr := e.file.Close(); cerr != nil && err == nil {
		err = e.ioError("write", ser.ErrWrite, cerr)
	}
	return err
}

func (e *Encoder) finalize() error {
	if !e.started {
		src := e.params.Source
		if err := e.writeHeaders(int(src.Width), int(src.Height), src.Channels()); err != nil {
			return err
		}
	}
	n := len(e.index)

	var ix00Pos int64
	var ix00Size uint32
	if !e.opts.Legacy {
		ix00Pos = e.pos
		var b buf
		b.fourcc("ix00")
		b.u32(uint32(stdIndexHead + stdIndexEntry*n))
		b.u16(2) // longs per entry
		b.b = append(b.b, 0, indexOfChunks)
		b.u32(uint32(n))
		b.fourcc(chunkID)
		b.u64(0) // base offset: entries hold absolute offsets
		b.u32(0)
		for _, ie := range e.index {
			b.u32(uint32(ie.offset + 8))
			b.u32(ie.size)
		}
		ix00Size = uint32(b.len())
		if err := e.write(b.b); err != nil {
			return err
		}
	}
	moviSize := e.pos - e.moviPos

	var idx buf
	idx.fourcc("idx1")
	idx.u32(uint32(idx1Entry * n))
	for _, ie := range e.index {
		idx.fourcc(chunkID)
		idx.u32(aviifKeyframe)
		idx.u32(uint32(ie.offset - e.moviPos))
		idx.u32(ie.size)
	}
	if err := e.write(idx.b); err != nil {
		return err
	}

	patches := []struct {
		pos  int64
		data []byte
	}{
		{4, u32le(uint32(e.pos - 8))},
		{e.moviSizePos, u32le(uint32(moviSize))},
		{e.avihFramesPos, u32le(uint32(n))},
		{e.strhLengthPos, u32le(uint32(n))},
	}
	if !e.opts.Legacy {
		var entry buf
		entry.u64(uint64(ix00Pos))
		entry.u32(ix00Size)
		entry.u32(uint32(n))
		patches = append(patches,
			struct {
				pos  int64
				data []byte
			}{e.dmlhFramesPos, u32le(uint32(n))},
			struct {
				pos  int64
				data []byte
			}{e.indxPos, u32le(1)},
			struct {
				pos  int64
				data []byte
			}{e.indxPos + 20, entry.b},
		)
	}
	for _, p := range patches {
		if _, err := e.file.Seek(p.pos, io.SeekStart); err != nil {
			return e.ioError("write", ser.ErrWrite, err)
		}
		if _, err := e.file.Write(p.data); err != nil {
			return e.ioError("write", ser.ErrWrite, err)
		}
	}
	if _, err := e.file.Seek(0, io.SeekEnd); err != nil {
		return e.ioError("write", ser.ErrWrite, err)
	}
	return nil
}

func (e *Encoder) write(p []byte) error {
	if _, err := e.file.Write(p); err != nil {
		return e.ioError("write", ser.ErrWrite, err)
	}
	e.pos += int64(len(p))
	return nil
}

func (e *Encoder) ioError(op string, kind, cause error) error {
	return &ser.IOError{Op: op, Path: e.params.Path, Err: fmt.Errorf("%w: %w", kind, cause)}
}

var _ ports.FrameEncoder = (*Encoder)(nil)
