// Package gifencoder writes animated GIF files frame by frame.
//
// Every frame carries its own colour table built from the whole frame.
// After the first frame only the area that changed since the previous
// source frame is stored, with unchanged pixels left transparent so the
// frames before show through. One frame is held back so that the
// last one can be written with the final delay, whether the run ends
// normally or is aborted.
package gifencoder

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"math"

	"github.com/user/serexport/pkg/pipeline"
	"github.com/user/serexport/pkg/ports"
	"github.com/user/serexport/pkg/ser"
)

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// Encoder implements ports.FrameEncoder for GIF output.
type Encoder struct {
	fs     ports.FileSystem
	opts   Options
	trials []trial

	params ports.EncoderParams
	file   ports.File
	out    *countingWriter
	s      *stream

	started bool
	done    bool
	frames  int
	width   int
	height  int
	prev    []rgb // Previous source frame
	pending *frame
}

// New creates a new GIF encoder writing through fs.
func New(fs ports.FileSystem, opts Options) *Encoder {
	return &Encoder{fs: fs, opts: opts}
}

// Begin validates the options and creates the output file.
func (e *Encoder) Begin(params ports.EncoderParams) error {
	if err := e.opts.Validate(); err != nil {
		return err
	}
	f, err := e.fs.Create(params.Path)
	if err != nil {
		return &ser.IOError{Op: "open", Path: params.Path, Err: fmt.Errorf("%w: %w", ser.ErrOpen, err)}
	}
	e.params = params
	e.trials = e.opts.trials()
	e.file = f
	e.out = &countingWriter{w: f}
	e.s = newStream(e.out)
	return nil
}

// EncodeFrame prepares one frame and writes the previous one.
func (e *Encoder) EncodeFrame(img *pipeline.Image) error {
	if e.file == nil || e.done {
		return ErrNotStarted
	}
	if !e.started {
		if err := e.start(img.Width, img.Height); err != nil {
			return err
		}
	}
	if img.Width != e.width || img.Height != e.height {
		return fmt.Errorf("%w: %dx%d after %dx%d", ErrGeometry, img.Width, img.Height, e.width, e.height)
	}

	raw := img.RGB8()
	src := make([]rgb, img.Width*img.Height)
	for i := range src {
		src[i] = rgb{raw[i*3], raw[i*3+1], raw[i*3+2]}
	}
	next := e.prepare(src)

	if e.pending != nil {
		if err := e.writeFrame(e.pending, e.opts.FrameDelay); err != nil {
			return err
		}
	}
	e.pending = next
	e.frames++
	return nil
}

// End writes the last frame with the final delay and the trailer.
func (e *Encoder) End() error {
	return e.finish()
}

// Abort completes the file with the frames accepted so far.
func (e *Encoder) Abort() error {
	return e.finish()
}

// BytesWritten returns the number of bytes written so far.
func (e *Encoder) BytesWritten() int64 {
	if e.out == nil {
		return 0
	}
	return e.out.n
}

func (e *Encoder) start(width, height int) error {
	e.width, e.height = width, height
	e.started = true
	if err := e.s.header(width, height); err != nil {
		return e.ioError(err)
	}
	return nil
}

func (e *Encoder) writeFrame(f *frame, delay int) error {
	if err := e.s.frame(f, delay); err != nil {
		return e.ioError(err)
	}
	if err := e.s.flush(); err != nil {
		return e.ioError(err)
	}
	return nil
}

func (e *Encoder) finish() error {
	if e.done || e.file == nil {
		return nil
	}
	e.done = true

	err := func() error {
		if !e.started {
			if err := e.start(int(e.params.Source.Width), int(e.params.Source.Height)); err != nil {
				return err
			}
		}
		if e.pending != nil {
			if err := e.writeFrame(e.pending, e.opts.finalDelay()); err != nil {
				return err
			}
			e.pending = nil
		}
		if err := e.s.trailer(); err != nil {
			return e.ioError(err)
		}
		return nil
	}()
	if cerr := e.file.Close(); cerr != nil && err == nil {
		err = e.ioError(cerr)
	}
	return err
}

func (e *Encoder) ioError(err error) error {
	return &ser.IOError{Op: "write", Path: e.params.Path, Err: fmt.Errorf("%w: %w", ser.ErrWrite, err)}
}

// prepare encodes src under every trial of the options and keeps the
// smallest frame. A trial depends only on src and the previous source
// frame, never on earlier choices, so a larger trial set can only give a
// smaller or equal file.
func (e *Encoder) prepare(src []rgb) *frame {
	var diff []uint8
	var hist [256]int
	if e.prev != nil {
		diff = make([]uint8, len(src))
		for i := range src {
			d := maxDiff(src[i], e.prev[i])
			diff[i] = uint8(d)
			hist[d]++
		}
	}

	full := image.NewRGBA(image.Rect(0, 0, e.width, e.height))
	for i, c := range src {
		full.SetRGBA(i%e.width, i/e.width, color.RGBA{R: c[0], G: c[1], B: c[2], A: 0xff})
	}

	mappers := make(map[paletteKey]*mapper)
	masks := make(map[[2]int]*mask)
	tried := make(map[trial]bool)

	var best *frame
	bestSize := 0
	for _, t := range e.trials {
		if diff == nil {
			t.border, t.spread = 0, 0
		} else {
			t.border = canonicalBorder(&hist, t.border, t.spread)
		}
		if tried[t] {
			continue
		}
		tried[t] = true

		m, ok := mappers[t.palette]
		if !ok {
			colors := 1<<t.palette.bits - 1
			m = newMapper(newQuantizer(t.palette).Quantize(make(color.Palette, 0, colors), full))
			mappers[t.palette] = m
		}
		var mk *mask
		if diff != nil {
			mk, ok = masks[[2]int{t.border, t.spread}]
			if !ok {
				mk = e.mask(diff, t.border, t.spread)
				masks[[2]int{t.border, t.spread}] = mk
			}
		}

		f := e.build(src, m, t.palette.bits, mk, t.lossy)
		if size := frameSize(f); best == nil || size < bestSize {
			best, bestSize = f, size
		}
	}
	e.prev = src
	return best
}

// canonicalBorder lowers border while the lower value selects the same
// pixels, so equivalent trials are encoded once.
func canonicalBorder(hist *[256]int, border, spread int) int {
	for border > 0 && hist[border] == 0 && (spread == 0 || border+spread > 255 || hist[border+spread] == 0) {
		border--
	}
	return border
}

// mask marks the pixels of a frame that are left transparent.
type mask struct {
	transparent []bool
	rect        image.Rectangle // Bounding box of the changed pixels
}

// mask marks pixels within border of the previous frame as transparent,
// then grows those regions into neighbours within border+spread.
func (e *Encoder) mask(diff []uint8, border, spread int) *mask {
	w := e.width
	mk := &mask{transparent: make([]bool, len(diff))}
	for y := 0; y < e.height; y++ {
		for x := 0; x < w; x++ {
			p := y*w + x
			if int(diff[p]) <= border {
				mk.transparent[p] = true
				continue
			}
			mk.rect = mk.rect.Union(image.Rect(x, y, x+1, y+1))
		}
	}
	if spread == 0 || mk.rect.Empty() {
		return mk
	}

	r := mk.rect
	limit := border + spread
	var queue []image.Point
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if mk.transparent[y*w+x] {
				queue = append(queue, image.Pt(x, y))
			}
		}
	}
	steps := []image.Point{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}
	for len(queue) > 0 {
		pt := queue[0]
		queue = queue[1:]
		for _, d := range steps {
			n := pt.Add(d)
			if !n.In(r) {
				continue
			}
			p := n.Y*w + n.X
			if mk.transparent[p] || int(diff[p]) > limit {
				continue
			}
			mk.transparent[p] = true
			queue = append(queue, n)
		}
	}
	return mk
}

// build stores the area of src selected by mk with palette m. A nil mask
// stores the whole frame. Lossy merges a pixel into the run before it when
// its colour is within 3*lossy of the run's palette entry.
func (e *Encoder) build(src []rgb, m *mapper, bits int, mk *mask, lossy int) *frame {
	ti := 1<<bits - 1
	rect := image.Rect(0, 0, e.width, e.height)
	if mk != nil {
		rect = mk.rect
		if rect.Empty() {
			// Nothing changed: a single transparent pixel carries the delay.
			return &frame{
				rect:        image.Rect(0, 0, 1, 1),
				palette:     make([]rgb, 1<<bits),
				bits:        bits,
				indices:     []uint8{uint8(ti)},
				transparent: ti,
			}
		}
	}

	f := &frame{
		rect:        rect,
		palette:     make([]rgb, 1<<bits),
		bits:        bits,
		indices:     make([]uint8, 0, rect.Dx()*rect.Dy()),
		transparent: -1,
	}
	copy(f.palette, m.pal)

	threshold := 3 * lossy
	prev := -1
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			p := y*e.width + x
			if mk != nil && mk.transparent[p] {
				f.indices = append(f.indices, uint8(ti))
				f.transparent = ti
				prev = -1
				continue
			}
			idx := int(m.index(src[p]))
			if threshold > 0 && prev >= 0 && maxDiff(src[p], m.pal[prev]) <= threshold {
				idx = prev
			}
			prev = idx
			f.indices = append(f.indices, uint8(idx))
		}
	}
	return f
}

// frameSize returns the number of bytes f occupies in the file. The delay
// does not change the size.
func frameSize(f *frame) int {
	cw := &countingWriter{w: io.Discard}
	s := newStream(cw)
	if err := s.frame(f, 0); err != nil {
		return math.MaxInt
	}
	if err := s.flush(); err != nil {
		return math.MaxInt
	}
	return int(cw.n)
}

var _ ports.FrameEncoder = (*Encoder)(nil)
