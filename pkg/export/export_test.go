package export

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"image/gif"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/user/serexport/pkg/adapters/aviencoder"
	"github.com/user/serexport/pkg/adapters/gifencoder"
	"github.com/user/serexport/pkg/adapters/logger"
	"github.com/user/serexport/pkg/adapters/osfilesystem"
	"github.com/user/serexport/pkg/adapters/serencoder"
	"github.com/user/serexport/pkg/mocks"
	"github.com/user/serexport/pkg/pipeline"
	"github.com/user/serexport/pkg/ports"
	"github.com/user/serexport/pkg/process"
	"github.com/user/serexport/pkg/ser"
)

const startTicks = 638_000_000_000_000_000

type sliceSource struct {
	frames []ser.Frame
	i      int
}

func (s *sliceSource) Next() (ser.Frame, error) {
	if s.i >= len(s.frames) {
		return ser.Frame{}, io.EOF
	}
	f := s.frames[s.i]
	s.i++
	return f, nil
}

// writeSource writes a 16-bit mono container with 12 significant bits and
// timestamps 10 ms apart.
func writeSource(t *testing.T, n, w, h int) string {
	t.Helper()
	hdr := ser.NewHeader(w, h, ser.ColorMono, 16)
	hdr.DateTime = startTicks
	hdr.DateTimeUTC = startTicks
	hdr.SetInstrument("ZWO ASI462MM")
	hdr.SetTelescope("C8")
	src := &sliceSource{}
	for i := 0; i < n; i++ {
		data := make([]byte, w*h*2)
		for j := 0; j < len(data); j += 2 {
			data[j] = byte(i*7 + j)
			data[j+1] = byte(i+j) & 0x0f
		}
		src.frames = append(src.frames, ser.Frame{
			Index:        i,
			Data:         data,
			Timestamp:    startTicks + uint64(i)*100_000,
			HasTimestamp: true,
		})
	}
	path := filepath.Join(t.TempDir(), "capture.ser")
	if err := ser.Write(path, hdr, src, true); err != nil {
		t.Fatalf("write source: %v", err)
	}
	return path
}

func baseConfig(source string) Config {
	return Config{
		Source:     source,
		Output:     filepath.Join(filepath.Dir(source), "out.ser"),
		End:        9,
		Decimation: 1,
	}
}

func newEngine(enc ports.FrameEncoder, sink ports.DebugSink) *Engine {
	factory := func(Config) (ports.FrameEncoder, error) { return enc, nil }
	return New(factory, &mocks.Renderer{}, sink, logger.NewNoop())
}

func wait(t *testing.T, run *Run) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := run.Wait(ctx)
	if errors.Is(err, context.DeadlineExceeded) {
		t.Fatal("run did not finish")
	}
	return err
}

func TestSelect(t *testing.T) {
	tests := []struct {
		name             string
		start, end, step int
		dir              Direction
		want             []int
	}{
		{"forward", 2, 9, 3, Forward, []int{2, 5, 8}},
		{"reverse", 2, 9, 3, Reverse, []int{8, 5, 2}},
		{"forward then reverse", 2, 9, 3, ForwardThenReverse, []int{2, 5, 8, 5, 2}},
		{"single frame round trip", 4, 4, 1, ForwardThenReverse, []int{4}},
		{"every frame", 0, 3, 1, Forward, []int{0, 1, 2, 3}},
		{"step past end", 0, 3, 10, Forward, []int{0}},
		{"empty range", 5, 4, 1, Forward, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Select(tt.start, tt.end, tt.step, tt.dir)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Select() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := Config{Source: "a.ser", Output: "b.ser", End: 3, Decimation: 1}
	tests := []struct {
		name   string
		modify func(c *Config)
		field  string
	}{
		{"valid", func(c *Config) {}, ""},
		{"no source", func(c *Config) { c.Source = "" }, "source"},
		{"no output", func(c *Config) { c.Output = "" }, "output"},
		{"zero decimation", func(c *Config) { c.Decimation = 0 }, "decimation"},
		{"negative start", func(c *Config) { c.Start = -1 }, "start"},
		{"end before start", func(c *Config) { c.Start, c.End = 5, 4 }, "end"},
		{"unknown format", func(c *Config) { c.Format = Format(9) }, "format"},
		{"avi size limit", func(c *Config) { c.Format, c.AVI.SizeLimit = FormatAVI, 8 << 30 }, "avi.size_limit"},
		{"gif bits", func(c *Config) { c.Format, c.GIF = FormatGIF, gifencoder.Options{ColorTableBits: 0} }, "gif"},
		{"image quality", func(c *Config) { c.Format, c.Images.Quality = FormatImages, 101 }, "images.quality"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid
			tt.modify(&c)
			err := c.Validate()
			if tt.field == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			var ce *ConfigError
			if !errors.As(err, &ce) || ce.Field != tt.field {
				t.Errorf("error = %v, want ConfigError on %s", err, tt.field)
			}
		})
	}
}

func TestEngine_Completes(t *testing.T) {
	src := writeSource(t, 10, 4, 3)
	enc := &mocks.FrameEncoder{BytesPerCall: 24}
	sink := mocks.NewDebugSink(true)

	cfg := baseConfig(src)
	cfg.Start, cfg.End, cfg.Decimation, cfg.Direction = 2, 9, 3, ForwardThenReverse
	run, err := newEngine(enc, sink).Start(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := wait(t, run); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if got := enc.Indices(); !reflect.DeepEqual(got, []int{2, 5, 8, 5, 2}) {
		t.Errorf("encoded %v", got)
	}
	if !enc.EndCalled || enc.AbortCalled {
		t.Errorf("End called %v, Abort called %v", enc.EndCalled, enc.AbortCalled)
	}
	if enc.Params.Path != cfg.Output || enc.Params.Source.Width != 4 {
		t.Errorf("params = %+v", enc.Params)
	}
	if !enc.Params.TimeBase.UTC {
		t.Error("identical start times should select UTC")
	}

	p := run.Progress()
	if p.State != StateCompleted || p.FramesWritten != 5 || p.FramesTotal != 5 || p.BytesWritten != 120 {
		t.Errorf("progress = %+v", p)
	}
	if p.RunID == "" || p.RunID != run.ID() {
		t.Errorf("run id = %q", p.RunID)
	}
	if len(sink.SelectionJSON) == 0 || len(sink.TimestampsJSON) == 0 || len(sink.Frames) != 5 {
		t.Errorf("debug output: selection %d bytes, timestamps %d bytes, %d frames",
			len(sink.SelectionJSON), len(sink.TimestampsJSON), len(sink.Frames))
	}
	if enc.Frames[0].Timestamp != startTicks+200_000 {
		t.Errorf("timestamp = %d", enc.Frames[0].Timestamp)
	}
}

func TestEngine_Cancel(t *testing.T) {
	src := writeSource(t, 10, 2, 2)
	release := make(chan struct{})
	enc := &mocks.FrameEncoder{}
	enc.EncodeFrameFunc = func(img *pipeline.Image) error {
		if img.Index == 1 {
			<-release
		}
		return nil
	}

	run, err := newEngine(enc, nil).Start(context.Background(), baseConfig(src))
	if err != nil {
		t.Fatal(err)
	}
	run.Cancel()
	if !run.Progress().CancelRequested {
		t.Error("cancel request not visible in progress")
	}
	close(release)

	if err := wait(t, run); !errors.Is(err, ErrCancelled) {
		t.Fatalf("Wait() = %v, want ErrCancelled", err)
	}
	if run.State() != StateAborted {
		t.Errorf("state = %v, want aborted", run.State())
	}
	// Cancellation is polled between frames, so the frame in flight completes.
	if n := len(enc.Indices()); n > 2 {
		t.Errorf("%d frames encoded after cancel", n)
	}
	if !enc.AbortCalled || enc.EndCalled {
		t.Errorf("Abort called %v, End called %v", enc.AbortCalled, enc.EndCalled)
	}
}

func TestEngine_ContextCancel(t *testing.T) {
	src := writeSource(t, 10, 2, 2)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	enc := &mocks.FrameEncoder{}
	enc.EncodeFrameFunc = func(img *pipeline.Image) error {
		if img.Index == 2 {
			cancel()
		}
		return nil
	}

	run, err := newEngine(enc, nil).Start(ctx, baseConfig(src))
	if err != nil {
		t.Fatal(err)
	}
	if err := wait(t, run); !errors.Is(err, ErrCancelled) {
		t.Fatalf("Wait() = %v, want ErrCancelled", err)
	}
	if got := enc.Indices(); !reflect.DeepEqual(got, []int{0, 1, 2}) {
		t.Errorf("encoded %v, want [0 1 2]", got)
	}
}

func TestEngine_EncoderFailure(t *testing.T) {
	src := writeSource(t, 10, 2, 2)
	boom := errors.New("disk on fire")
	enc := &mocks.FrameEncoder{}
	enc.EncodeFrameFunc = func(img *pipeline.Image) error {
		if img.Index == 3 {
			return boom
		}
		return nil
	}

	run, err := newEngine(enc, nil).Start(context.Background(), baseConfig(src))
	if err != nil {
		t.Fatal(err)
	}
	if err := wait(t, run); !errors.Is(err, boom) {
		t.Fatalf("Wait() = %v, want cause", err)
	}
	p := run.Progress()
	if p.State != StateFailed || p.FramesWritten != 3 || !errors.Is(p.Err, boom) {
		t.Errorf("progress = %+v", p)
	}
	if !enc.AbortCalled {
		t.Error("Abort not called after failure")
	}
}

func TestEngine_RejectsBeforeOutput(t *testing.T) {
	src := writeSource(t, 4, 8, 8)
	called := false
	factory := func(Config) (ports.FrameEncoder, error) {
		called = true
		return &mocks.FrameEncoder{}, nil
	}
	e := New(factory, &mocks.Renderer{}, nil, logger.NewNoop())

	tests := []struct {
		name   string
		modify func(c *Config)
		field  string
	}{
		{"end past last frame", func(c *Config) { c.End = 4 }, "end"},
		{"crop outside frame", func(c *Config) {
			c.End = 3
			c.Process = true
			c.Processing.Crop = &pipeline.Rectangle{X: 4, Y: 4, Width: 8, Height: 8}
		}, "processing"},
		{"zero decimation", func(c *Config) {
			c.End = 3
			c.Decimation = 0
		}, "decimation"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := baseConfig(src)
			tt.modify(&cfg)
			_, err := e.Start(context.Background(), cfg)
			var ce *ConfigError
			if !errors.As(err, &ce) || ce.Field != tt.field {
				t.Errorf("error = %v, want ConfigError on %s", err, tt.field)
			}
		})
	}
	if called {
		t.Error("encoder created for an invalid configuration")
	}
}

func TestEngine_FormatError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "short.ser")
	if err := os.WriteFile(path, make([]byte, 100), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := newEngine(&mocks.FrameEncoder{}, nil).Start(context.Background(), baseConfig(path))
	if !errors.Is(err, ser.ErrTooShortForHeader) {
		t.Errorf("error = %v, want ErrTooShortForHeader", err)
	}
}

func TestEngine_ProcessingChain(t *testing.T) {
	src := writeSource(t, 3, 8, 6)
	enc := &mocks.FrameEncoder{}
	cfg := baseConfig(src)
	cfg.End = 2
	cfg.Process = true
	cfg.Processing = process.Options{
		Crop:   &pipeline.Rectangle{X: 2, Y: 2, Width: 4, Height: 2},
		Invert: true,
	}
	run, err := newEngine(enc, nil).Start(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	if err := wait(t, run); err != nil {
		t.Fatal(err)
	}
	for _, f := range enc.Frames {
		if f.Width != 4 || f.Height != 2 {
			t.Errorf("frame %d is %dx%d, want 4x2", f.Index, f.Width, f.Height)
		}
	}
}

func TestEngine_FrameRateFromTimestamps(t *testing.T) {
	src := writeSource(t, 11, 2, 2)
	enc := &mocks.FrameEncoder{}
	cfg := baseConfig(src)
	cfg.Format = FormatAVI
	cfg.Decimation = 2
	cfg.AVI.FrameRateFromTimestamps = true
	run, err := newEngine(enc, nil).Start(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	if err := wait(t, run); err != nil {
		t.Fatal(err)
	}
	// 100 fps capture, every second frame kept.
	if fps := enc.Params.FrameRate; fps < 49.999 || fps > 50.001 {
		t.Errorf("frame rate = %g, want 50", fps)
	}
}

// cancelAfter cancels a context once n frames have been encoded.
type cancelAfter struct {
	ports.FrameEncoder
	n      int
	cancel context.CancelFunc
}

func (c *cancelAfter) EncodeFrame(img *pipeline.Image) error {
	if err := c.FrameEncoder.EncodeFrame(img); err != nil {
		return err
	}
	c.n--
	if c.n == 0 {
		c.cancel()
	}
	return nil
}

func runReal(t *testing.T, cfg Config, cancelAt int) *Run {
	t.Helper()
	fs := osfilesystem.New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	factory := func(cfg Config) (ports.FrameEncoder, error) {
		var enc ports.FrameEncoder
		switch cfg.Format {
		case FormatAVI:
			enc = aviencoder.New(fs, aviencoder.Options{Legacy: cfg.AVI.Legacy})
		case FormatGIF:
			enc = gifencoder.New(fs, cfg.GIF)
		default:
			enc = serencoder.New(fs)
		}
		if cancelAt > 0 {
			enc = &cancelAfter{FrameEncoder: enc, n: cancelAt, cancel: cancel}
		}
		return enc, nil
	}
	run, err := New(factory, &mocks.Renderer{}, nil, logger.NewNoop()).Start(ctx, cfg)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	err = wait(t, run)
	if cancelAt > 0 && !errors.Is(err, ErrCancelled) {
		t.Fatalf("Wait() = %v, want ErrCancelled", err)
	}
	if cancelAt == 0 && err != nil {
		t.Fatalf("Wait() = %v", err)
	}
	return run
}

func TestExport_SERIsByteExact(t *testing.T) {
	src := writeSource(t, 10, 5, 3)
	cfg := baseConfig(src)
	cfg.IncludeTimestamps = true
	run := runReal(t, cfg, 0)

	want, _ := os.ReadFile(src)
	got, _ := os.ReadFile(cfg.Output)
	if !bytes.Equal(got, want) {
		t.Errorf("output differs from source (%d vs %d bytes)", len(got), len(want))
	}
	if run.Progress().BytesWritten != int64(len(got)) {
		t.Errorf("BytesWritten = %d, file is %d bytes", run.Progress().BytesWritten, len(got))
	}
}

func TestExport_SERCancelKeepsFrames(t *testing.T) {
	src := writeSource(t, 10, 4, 4)
	cfg := baseConfig(src)
	runReal(t, cfg, 4)

	c, err := ser.Open(cfg.Output)
	if err != nil {
		t.Fatalf("truncated output does not open: %v", err)
	}
	defer c.Close()
	if c.FrameCount() != 4 {
		t.Errorf("FrameCount() = %d, want 4", c.FrameCount())
	}
}

func TestExport_AVICancelKeepsFrames(t *testing.T) {
	src := writeSource(t, 10, 4, 4)
	cfg := baseConfig(src)
	cfg.Output = filepath.Join(filepath.Dir(src), "out.avi")
	cfg.Format = FormatAVI
	cfg.AVI.Legacy = true
	runReal(t, cfg, 3)

	data, err := os.ReadFile(cfg.Output)
	if err != nil {
		t.Fatal(err)
	}
	// RIFF, hdrl LIST and avih chunk headers precede dwTotalFrames.
	if n := binary.LittleEndian.Uint32(data[32+16:]); n != 3 {
		t.Errorf("dwTotalFrames = %d, want 3", n)
	}
	idx := bytes.LastIndex(data, []byte("idx1"))
	if idx < 0 {
		t.Fatal("no idx1 chunk")
	}
	if n := binary.LittleEndian.Uint32(data[idx+4:]) / 16; n != 3 {
		t.Errorf("idx1 has %d entries, want 3", n)
	}
}

func TestExport_GIFCancelKeepsFrames(t *testing.T) {
	src := writeSource(t, 10, 6, 6)
	cfg := baseConfig(src)
	cfg.Output = filepath.Join(filepath.Dir(src), "out.gif")
	cfg.Format = FormatGIF
	cfg.GIF, _ = gifencoder.Preset(3)
	cfg.GIF.FinalFrameDelay = 150
	runReal(t, cfg, 5)

	f, err := os.Open(cfg.Output)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	g, err := gif.DecodeAll(f)
	if err != nil {
		t.Fatalf("truncated GIF does not decode: %v", err)
	}
	if len(g.Image) != 5 || g.LoopCount != 0 {
		t.Errorf("%d frames, loop count %d; want 5 and 0", len(g.Image), g.LoopCount)
	}
	if g.Delay[4] != 150 {
		t.Errorf("last delay = %d, want 150", g.Delay[4])
	}
}

func TestEngine_EstimateMatchesOutput(t *testing.T) {
	crop := &pipeline.Rectangle{X: 1, Y: 1, Width: 5, Height: 3}
	tests := []struct {
		name   string
		format Format
		modify func(*Config)
	}{
		{"ser with timestamps", FormatSER, func(c *Config) { c.IncludeTimestamps = true }},
		{"ser without timestamps", FormatSER, func(c *Config) {}},
		{"ser decimated and cropped", FormatSER, func(c *Config) {
			c.Decimation = 3
			c.Direction = ForwardThenReverse
			c.IncludeTimestamps = true
			c.Process = true
			c.Processing = process.Options{Crop: crop}
		}},
		{"avi", FormatAVI, func(c *Config) {}},
		{"legacy avi cropped", FormatAVI, func(c *Config) {
			c.AVI.Legacy = true
			c.Process = true
			c.Processing = process.Options{Crop: crop}
		}},
		{"avi resized", FormatAVI, func(c *Config) {
			c.Start, c.End = 2, 7
			c.Process = true
			c.Processing = process.Options{Resize: &process.Resize{Mode: process.SizePercent, Percent: 50}}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := writeSource(t, 10, 7, 5)
			cfg := baseConfig(src)
			cfg.Format = tt.format
			cfg.Output = filepath.Join(filepath.Dir(src), "out."+tt.format.String())
			tt.modify(&cfg)

			est, err := newEngine(&mocks.FrameEncoder{}, nil).Estimate(context.Background(), cfg)
			if err != nil {
				t.Fatalf("Estimate failed: %v", err)
			}
			run := runReal(t, cfg, 0)
			info, err := os.Stat(cfg.Output)
			if err != nil {
				t.Fatal(err)
			}
			if est.Bytes != info.Size() {
				t.Errorf("estimate = %d bytes, file is %d", est.Bytes, info.Size())
			}
			wantLimit := int64(0)
			if tt.format == FormatAVI {
				wantLimit = aviencoder.Options{Legacy: cfg.AVI.Legacy}.Limit()
			}
			if est.Limit != wantLimit {
				t.Errorf("estimate limit = %d, want %d", est.Limit, wantLimit)
			}
			if est.Frames != run.Progress().FramesTotal {
				t.Errorf("estimate frames = %d, run has %d", est.Frames, run.Progress().FramesTotal)
			}
		})
	}
}

func TestEngine_EstimateRejects(t *testing.T) {
	src := writeSource(t, 4, 4, 4)
	engine := newEngine(&mocks.FrameEncoder{}, nil)

	cfg := baseConfig(src)
	cfg.End = 3
	cfg.Format = FormatGIF
	cfg.GIF, _ = gifencoder.Preset(1)
	if _, err := engine.Estimate(context.Background(), cfg); !errors.Is(err, ErrNoEstimate) {
		t.Errorf("gif estimate error = %v, want ErrNoEstimate", err)
	}

	cfg = baseConfig(src)
	cfg.Output = ""
	var cerr *ConfigError
	if _, err := engine.Estimate(context.Background(), cfg); !errors.As(err, &cerr) || cerr.Field != "end" {
		t.Errorf("error = %v, want end frame ConfigError", err)
	}
	cfg.End = 3
	est, err := engine.Estimate(context.Background(), cfg)
	if err != nil {
		t.Fatalf("estimate without output path: %v", err)
	}
	if want := ser.HeaderSize + 4*4*4*2; est.Bytes != int64(want) {
		t.Errorf("estimate = %d, want %d", est.Bytes, want)
	}
}

func TestExport_SERMetadata(t *testing.T) {
	src := writeSource(t, 3, 4, 4)
	cfg := baseConfig(src)
	cfg.End = 2
	observer, telescope := "M. Example", ""
	cfg.Metadata = ser.Metadata{Observer: &observer, Telescope: &telescope}

	c, err := ser.Open(src)
	if err != nil {
		t.Fatal(err)
	}
	srcHeader := c.Header()
	c.Close()

	runReal(t, cfg, 0)
	out, err := ser.Open(cfg.Output)
	if err != nil {
		t.Fatal(err)
	}
	defer out.Close()
	h := out.Header()
	if got := h.ObserverString(); got != observer {
		t.Errorf("observer = %q, want %q", got, observer)
	}
	if srcHeader.TelescopeString() == "" {
		t.Fatal("source has no telescope text")
	}
	if got := h.TelescopeString(); got != "" {
		t.Errorf("telescope = %q, want cleared", got)
	}
	if got := h.InstrumentString(); got != srcHeader.InstrumentString() {
		t.Errorf("instrument = %q, want source text %q", got, srcHeader.InstrumentString())
	}
}
