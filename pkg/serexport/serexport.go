// Package serexport provides a high-level API for inspecting SER captures
// and exporting frame sequences from them.
package serexport

import (
	"context"
	"fmt"

	"github.com/user/serexport/pkg/adapters/aviencoder"
	"github.com/user/serexport/pkg/adapters/filesink"
	"github.com/user/serexport/pkg/adapters/gifencoder"
	"github.com/user/serexport/pkg/adapters/ggrenderer"
	"github.com/user/serexport/pkg/adapters/imageencoder"
	"github.com/user/serexport/pkg/adapters/logger"
	"github.com/user/serexport/pkg/adapters/nullsink"
	"github.com/user/serexport/pkg/adapters/osfilesystem"
	"github.com/user/serexport/pkg/adapters/serencoder"
	"github.com/user/serexport/pkg/export"
	"github.com/user/serexport/pkg/ports"
	"github.com/user/serexport/pkg/ser"
	"github.com/user/serexport/pkg/timestamp"
)

// Session is an inspected container. It holds no open file handle; each
// export opens the source again.
type Session struct {
	path       string
	header     ser.Header
	frameCount int
	size       int64
	bits       int
	report     timestamp.Report
	base       timestamp.Base
}

// OpenContainer reads and validates the container at path.
func OpenContainer(path string) (*Session, error) {
	return OpenContainerWithOptions(path, ser.OpenOptions{})
}

// OpenContainerWithOptions is OpenContainer with explicit validation options.
func OpenContainerWithOptions(path string, opts ser.OpenOptions) (*Session, error) {
	c, err := ser.OpenWithOptions(path, opts)
	if err != nil {
		return nil, err
	}
	defer c.Close()

	h := c.Header()
	s := &Session{
		path:       path,
		header:     h,
		frameCount: c.FrameCount(),
		size:       c.Size(),
		bits:       h.StorageDepth(),
		report:     timestamp.Analyze(c.Timestamps()),
	}
	s.base = timestamp.DetectBase(h.DateTime, h.DateTimeUTC, s.report.Min)
	if h.StorageDepth() == 16 {
		if s.bits, err = ser.DetectPixelDepth(c); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Path returns the container path.
func (s *Session) Path() string { return s.path }

// Header returns the container header.
func (s *Session) Header() ser.Header { return s.header }

// FrameCount returns the number of frames.
func (s *Session) FrameCount() int { return s.frameCount }

// Size returns the file size in bytes.
func (s *Session) Size() int64 { return s.size }

// PixelDepth returns the effective bits per sample. For 16-bit storage this
// is detected from the frame data.
func (s *Session) PixelDepth() int { return s.bits }

// TimestampReport returns the analysis of the frame timestamps.
func (s *Session) TimestampReport() timestamp.Report { return s.report }

// TimeBase returns whether frame timestamps are UTC or local time.
func (s *Session) TimeBase() timestamp.Base { return s.base }

// Options configures an Exporter.
type Options struct {
	Logger ports.Logger

	// Debug saves the selection, the timestamp report and every processed
	// frame under DebugDir.
	Debug    bool
	DebugDir string
}

// Exporter starts and controls export runs.
type Exporter struct {
	engine *export.Engine
	logger ports.Logger
}

// NewExporter creates an Exporter writing to the local file system.
func NewExporter(opts Options) *Exporter {
	log := opts.Logger
	if log == nil {
		log = logger.NewNoop()
	}
	fs := osfilesystem.New()
	renderer := ggrenderer.New()

	var sink ports.DebugSink = nullsink.New()
	if opts.Debug {
		sink = filesink.New(opts.DebugDir, fs, renderer)
	}

	return &Exporter{
		engine: export.New(NewEncoderFactory(fs, renderer), renderer, sink, log),
		logger: log,
	}
}

// NewEncoderFactory returns the factory that maps export formats to the
// bundled encoders.
func NewEncoderFactory(fs ports.FileSystem, renderer ports.Renderer) export.EncoderFactory {
	return func(cfg export.Config) (ports.FrameEncoder, error) {
		switch cfg.Format {
		case export.FormatSER:
			return serencoder.New(fs), nil
		case export.FormatAVI:
			return aviencoder.New(fs, aviencoder.Options{
				Legacy:    cfg.AVI.Legacy,
				SizeLimit: cfg.AVI.SizeLimit,
			}), nil
		case export.FormatGIF:
			return gifencoder.New(fs, cfg.GIF), nil
		case export.FormatImages:
			return imageencoder.New(fs, renderer, imageencoder.Options{
				Format:          cfg.Images.Format,
				Quality:         cfg.Images.Quality,
				Naming:          cfg.Images.Naming,
				TimestampSuffix: cfg.Images.TimestampSuffix,
			}), nil
		}
		return nil, &export.ConfigError{Field: "format", Reason: fmt.Sprintf("no encoder for %s", cfg.Format)}
	}
}

// StartExport validates cfg and starts the run in the background.
func (x *Exporter) StartExport(ctx context.Context, cfg export.Config) (*export.Run, error) {
	return x.engine.Start(ctx, cfg)
}

// EstimateSize predicts the size of the SER or AVI file cfg would produce.
// Other formats return export.ErrNoEstimate.
func (x *Exporter) EstimateSize(ctx context.Context, cfg export.Config) (export.Estimate, error) {
	return x.engine.Estimate(ctx, cfg)
}

// PollProgress returns a snapshot of the run.
func (x *Exporter) PollProgress(run *export.Run) export.Progress {
	return run.Progress()
}

// Cancel requests cancellation. The run stops at the next frame boundary
// and finalizes its partial output.
func (x *Exporter) Cancel(run *export.Run) {
	run.Cancel()
}

// RepairFrameCount rewrites the frame count of the container at path to the
// number of whole frames the file holds.
func (x *Exporter) RepairFrameCount(path string) (ser.Header, error) {
	h, err := ser.Repair(path)
	if err != nil {
		return h, err
	}
	x.logger.Info("Repaired %s: frame count set to %d", path, h.FrameCount)
	return h, nil
}
