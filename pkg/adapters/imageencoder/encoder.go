// Package imageencoder writes each frame to its own still image file.
package imageencoder

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/user/serexport/pkg/pipeline"
	"github.com/user/serexport/pkg/ports"
	"github.com/user/serexport/pkg/ser"
	"github.com/user/serexport/pkg/timestamp"
)

// Naming selects the number embedded in each file name.
type Naming int

const (
	// NamingSequential counts written files from 1.
	NamingSequential Naming = iota
	// NamingFrameNumber uses the 1-based source frame number.
	NamingFrameNumber
)

// ParseNaming parses "sequential" or "frame".
func ParseNaming(s string) (Naming, bool) {
	switch strings.ToLower(s) {
	case "sequential", "seq":
		return NamingSequential, true
	case "frame", "frame-number", "framenumber":
		return NamingFrameNumber, true
	}
	return NamingSequential, false
}

// Options configures the file names and image format.
type Options struct {
	Format  ports.ImageFormat
	Quality int // JPEG quality (1-100)
	Naming  Naming

	// TimestampSuffix appends _YYYYMMDD_HHMMSS_mmm (UTC) to each name, or
	// _no_timestamp for frames without one.
	TimestampSuffix bool
}

// Encoder implements ports.FrameEncoder for image sequences.
type Encoder struct {
	fs       ports.FileSystem
	renderer ports.Renderer
	opts     Options

	params  ports.EncoderParams
	base    string
	digits  int
	count   int
	bytes   int64
	started bool
	paths   []string
}

// New creates a new image sequence encoder.
func New(fs ports.FileSystem, renderer ports.Renderer, opts Options) *Encoder {
	return &Encoder{fs: fs, renderer: renderer, opts: opts}
}

// Begin derives the base name from params.Path and creates its directory.
func (e *Encoder) Begin(params ports.EncoderParams) error {
	e.params = params
	e.base = strings.TrimSuffix(params.Path, filepath.Ext(params.Path))
	e.digits = len(strconv.Itoa(int(max(params.Source.FrameCount, 1))))
	if dir := filepath.Dir(e.base); dir != "." {
		if err := e.fs.MkdirAll(dir); err != nil {
			return &ser.IOError{Op: "open", Path: dir, Err: fmt.Errorf("%w: %w", ser.ErrOpen, err)}
		}
	}
	e.started = true
	return nil
}

// EncodeFrame writes one image file.
func (e *Encoder) EncodeFrame(img *pipeline.Image) error {
	if !e.started {
		return fmt.Errorf("image encoder: EncodeFrame before Begin")
	}
	e.count++
	path := e.fileName(img)

	data, err := e.renderer.EncodeImage(img.ToImage(), e.opts.Format, e.opts.Quality)
	if err != nil {
		return fmt.Errorf("encode frame %d: %w", img.Index, err)
	}
	if err := e.fs.WriteFile(path, data); err != nil {
		return &ser.IOError{Op: "write", Path: path, Err: fmt.Errorf("%w: %w", ser.ErrWrite, err)}
	}
	e.bytes += int64(len(data))
	e.paths = append(e.paths, path)
	return nil
}

// fileName returns the path of img, numbered by the files written so far.
func (e *Encoder) fileName(img *pipeline.Image) string {
	n := e.count
	if e.opts.Naming == NamingFrameNumber {
		n = img.Index + 1
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s_%0*d", e.base, e.digits, n)
	if e.opts.TimestampSuffix {
		if img.HasTimestamp {
			t := timestamp.TicksToTime(e.params.TimeBase.ToUTC(img.Timestamp))
			fmt.Fprintf(&b, "_%s_%03d", t.Format("20060102_150405"), t.Nanosecond()/1e6)
		} else {
			b.WriteString("_no_timestamp")
		}
	}
	b.WriteString(e.opts.Format.Extension())
	return b.String()
}

// Paths returns the files written so far.
func (e *Encoder) Paths() []string {
	return append([]string(nil), e.paths...)
}

// End does nothing: every file is complete once written.
func (e *Encoder) End() error { return nil }

// Abort leaves the files written so far in place.
func (e *Encoder) Abort() error { return nil }

// BytesWritten returns the total size of the files written so far.
func (e *Encoder) BytesWritten() int64 {
	return e.bytes
}

var _ ports.FrameEncoder = (*Encoder)(nil)
