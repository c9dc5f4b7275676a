package export

import (
	"context"
	"fmt"

	"github.com/user/serexport/pkg/adapters/aviencoder"
	"github.com/user/serexport/pkg/process"
	"github.com/user/serexport/pkg/ser"
)

// Estimate is the predicted output of an export.
type Estimate struct {
	Frames   int
	Width    int
	Height   int
	Channels int
	Bytes    int64

	// Limit is the AVI size ceiling; 0 for SER output. An AVI export whose
	// estimate exceeds it stops with a size limit error.
	Limit int64
}

// Estimate predicts the size of the file cfg would produce without writing
// anything. The first selected frame is processed to learn the output
// geometry. Only SER and AVI output can be estimated; other formats return
// ErrNoEstimate. cfg.Output may be empty.
func (e *Engine) Estimate(ctx context.Context, cfg Config) (Estimate, error) {
	if cfg.Format != FormatSER && cfg.Format != FormatAVI {
		return Estimate{}, fmt.Errorf("%w: %s", ErrNoEstimate, cfg.Format)
	}
	if cfg.Output == "" {
		cfg.Output = cfg.Source
	}
	if err := cfg.Validate(); err != nil {
		return Estimate{}, err
	}

	c, err := ser.OpenWithOptions(cfg.Source, ser.OpenOptions{LenientDepth: cfg.LenientDepth})
	if err != nil {
		return Estimate{}, err
	}
	defer c.Close()

	h := c.Header()
	if err := cfg.ValidateFor(h, c.FrameCount()); err != nil {
		return Estimate{}, err
	}
	selection := Select(cfg.Start, cfg.End, cfg.Decimation, cfg.Direction)
	if len(selection) == 0 {
		return Estimate{}, ErrNoFrames
	}
	bits, err := e.pixelDepth(c)
	if err != nil {
		return Estimate{}, err
	}

	f, err := c.ReadFrame(selection[0])
	if err != nil {
		return Estimate{}, err
	}
	img := ser.DecodeImage(h, f, bits)
	if cfg.Process {
		chain, err := process.NewChain(cfg.Processing, e.renderer)
		if err != nil {
			return Estimate{}, &ConfigError{Field: "processing", Reason: err.Error()}
		}
		if img, err = chain.Execute(ctx, img); err != nil {
			return Estimate{}, fmt.Errorf("process frame %d: %w", selection[0], err)
		}
	}

	est := Estimate{Frames: len(selection), Width: img.Width, Height: img.Height, Channels: img.Channels}
	if cfg.Format == FormatSER {
		out := ser.OutputHeader(h, img)
		est.Bytes = ser.EstimateSize(out, est.Frames, cfg.IncludeTimestamps && c.HasTimestamps())
	} else {
		opts := aviencoder.Options{Legacy: cfg.AVI.Legacy, SizeLimit: cfg.AVI.SizeLimit}
		est.Bytes = aviencoder.EstimateSize(opts, img.Width, img.Height, img.Channels, est.Frames)
		est.Limit = opts.Limit()
	}
	return est, nil
}
