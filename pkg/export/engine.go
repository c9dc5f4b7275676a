package export

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/user/serexport/pkg/pipeline"
	"github.com/user/serexport/pkg/ports"
	"github.com/user/serexport/pkg/process"
	"github.com/user/serexport/pkg/ser"
	"github.com/user/serexport/pkg/timestamp"
)

// EncoderFactory creates the encoder for a run.
type EncoderFactory func(cfg Config) (ports.FrameEncoder, error)

// Engine starts export runs.
type Engine struct {
	factory  EncoderFactory
	renderer ports.Renderer
	sink     ports.DebugSink
	logger   ports.Logger
}

// New creates a new Engine. The renderer is only needed for label overlays.
func New(factory EncoderFactory, renderer ports.Renderer, sink ports.DebugSink, logger ports.Logger) *Engine {
	return &Engine{
		factory:  factory,
		renderer: renderer,
		sink:     sink,
		logger:   logger.WithComponent("export"),
	}
}

// job holds everything the worker needs.
type job struct {
	cfg       Config
	container *ser.Container
	encoder   ports.FrameEncoder
	chain     *process.Chain
	bits      int
}

// Start validates cfg, opens the source and the output, and runs the
// export on a new goroutine. Configuration and format errors are returned
// before any output is created. Cancelling ctx cancels the run.
func (e *Engine) Start(ctx context.Context, cfg Config) (*Run, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c, err := ser.OpenWithOptions(cfg.Source, ser.OpenOptions{LenientDepth: cfg.LenientDepth})
	if err != nil {
		return nil, err
	}
	j, params, run, err := e.prepare(c, cfg)
	if err != nil {
		c.Close()
		return nil, err
	}

	e.logger.Info("Exporting %d frames to %s (%s)", len(run.selection), cfg.Output, cfg.Format)
	if err := j.encoder.Begin(params); err != nil {
		c.Close()
		return nil, err
	}

	run.state.Store(int32(StateRunning))
	go e.execute(ctx, run, j)
	return run, nil
}

func (e *Engine) prepare(c *ser.Container, cfg Config) (*job, ports.EncoderParams, *Run, error) {
	h := c.Header()
	if err := cfg.ValidateFor(h, c.FrameCount()); err != nil {
		return nil, ports.EncoderParams{}, nil, err
	}
	selection := Select(cfg.Start, cfg.End, cfg.Decimation, cfg.Direction)
	if len(selection) == 0 {
		return nil, ports.EncoderParams{}, nil, ErrNoFrames
	}
	run := newRun(uuid.NewString(), cfg.Output, selection)

	bits, err := e.pixelDepth(c)
	if err != nil {
		return nil, ports.EncoderParams{}, nil, err
	}
	j := &job{cfg: cfg, container: c, bits: bits}

	report := timestamp.Analyze(c.Timestamps())
	base := timestamp.DetectBase(h.DateTime, h.DateTimeUTC, report.Min)
	e.saveDebug(run, report)

	if cfg.Process {
		opts := cfg.Processing
		if opts.Label != nil {
			label := *opts.Label
			label.TimeBase = base
			opts.Label = &label
		}
		chain, err := process.NewChain(opts, e.renderer)
		if err != nil {
			return nil, ports.EncoderParams{}, nil, &ConfigError{Field: "processing", Reason: err.Error()}
		}
		if !chain.Empty() {
			j.chain = chain
			e.logger.Debug("Processing: %s", strings.Join(chain.Names(), ", "))
		}
	}

	enc, err := e.factory(cfg)
	if err != nil {
		return nil, ports.EncoderParams{}, nil, err
	}
	j.encoder = enc

	params := ports.EncoderParams{
		Path:              cfg.Output,
		Source:            h,
		FrameRate:         e.frameRate(cfg, report),
		IncludeTimestamps: cfg.IncludeTimestamps,
		TimeBase:          base,
		Metadata:          cfg.Metadata,
	}
	return j, params, run, nil
}

// pixelDepth returns the significant bits per sample, detected from the
// frame data for 16-bit storage.
func (e *Engine) pixelDepth(c *ser.Container) (int, error) {
	h := c.Header()
	if h.StorageDepth() != 16 {
		return h.StorageDepth(), nil
	}
	bits, err := ser.DetectPixelDepth(c)
	if err != nil {
		return 0, err
	}
	e.logger.Debug("Effective pixel depth: %d bits", bits)
	return bits, nil
}

func (e *Engine) frameRate(cfg Config, report timestamp.Report) float64 {
	if cfg.Format != FormatAVI || !cfg.AVI.FrameRateFromTimestamps {
		return cfg.AVI.FrameRate
	}
	if report.HasRate && report.Order == timestamp.Monotonic {
		fps := report.FrameRate / float64(cfg.Decimation)
		e.logger.Info("Frame rate from timestamps: %.3f fps", fps)
		return fps
	}
	fps := cfg.AVI.FrameRate
	if fps == 0 {
		fps = 25
	}
	e.logger.Warn("No usable timestamps, using %.3f fps", fps)
	return fps
}

func (e *Engine) saveDebug(run *Run, report timestamp.Report) {
	if e.sink == nil || !e.sink.Enabled() {
		return
	}
	sel := struct {
		RunID  string `json:"run_id"`
		Frames []int  `json:"frames"`
	}{run.id, run.selection}
	if data, err := json.MarshalIndent(sel, "", "  "); err == nil {
		if err := e.sink.SaveSelectionJSON(data); err != nil {
			e.logger.Warn("Could not save debug output: %v", err)
		}
	}
	if data, err := json.MarshalIndent(report, "", "  "); err == nil {
		if err := e.sink.SaveTimestampsJSON(data); err != nil {
			e.logger.Warn("Could not save debug output: %v", err)
		}
	}
}

// execute is the worker loop. It owns the container and the encoder.
func (e *Engine) execute(ctx context.Context, run *Run, j *job) {
	defer j.container.Close()

	err := e.loop(ctx, run, j)
	written := int(run.written.Load())
	switch {
	case err == nil:
		if err := j.encoder.End(); err != nil {
			e.fail(run, j, err)
			return
		}
		run.bytes.Store(j.encoder.BytesWritten())
		e.logger.Info("Export completed: %d frames, %d bytes", written, run.bytes.Load())
		run.finish(StateCompleted, nil)

	case errors.Is(err, ErrCancelled):
		if aerr := j.encoder.Abort(); aerr != nil {
			e.fail(run, j, aerr)
			return
		}
		run.bytes.Store(j.encoder.BytesWritten())
		e.logger.Warn("Export cancelled after %d frames, partial output kept at %s", written, j.cfg.Output)
		run.finish(StateAborted, ErrCancelled)

	default:
		if aerr := j.encoder.Abort(); aerr != nil {
			err = errors.Join(err, aerr)
		}
		e.fail(run, j, err)
	}
}

func (e *Engine) fail(run *Run, j *job, err error) {
	run.bytes.Store(j.encoder.BytesWritten())
	e.logger.Error("Export failed after %d frames: %v", run.written.Load(), err)
	run.finish(StateFailed, err)
}

func (e *Engine) loop(ctx context.Context, run *Run, j *job) error {
	h := j.container.Header()
	total := len(run.selection)
	for i, idx := range run.selection {
		if run.cancel.Load() || ctx.Err() != nil {
			run.cancel.Store(true)
			return ErrCancelled
		}

		f, err := j.container.ReadFrame(idx)
		if err != nil {
			return err
		}
		img := ser.DecodeImage(h, f, j.bits)
		if j.chain != nil {
			if img, err = j.chain.Execute(ctx, img); err != nil {
				return fmt.Errorf("process frame %d: %w", idx, err)
			}
		}
		if err := j.encoder.EncodeFrame(img); err != nil {
			return err
		}

		run.written.Add(1)
		run.bytes.Store(j.encoder.BytesWritten())
		e.logger.Debug("Frame %d/%d (source frame %d)", i+1, total, idx+1)
		e.saveFrame(i, img)
	}
	return nil
}

func (e *Engine) saveFrame(i int, img *pipeline.Image) {
	if e.sink == nil || !e.sink.Enabled() {
		return
	}
	if err := e.sink.SaveFrame(i, img.ToImage()); err != nil {
		e.logger.Warn("Could not save debug output: %v", err)
	}
}
