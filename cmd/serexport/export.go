package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ideamans/go-l10n"
	"golang.org/x/sync/errgroup"

	"github.com/user/serexport/pkg/adapters/ggrenderer"
	"github.com/user/serexport/pkg/adapters/logger"
	"github.com/user/serexport/pkg/adapters/osfilesystem"
	"github.com/user/serexport/pkg/config"
	"github.com/user/serexport/pkg/export"
	"github.com/user/serexport/pkg/ports"
	"github.com/user/serexport/pkg/process"
	"github.com/user/serexport/pkg/serexport"
	"github.com/user/serexport/pkg/summarizer"
)

// ExportCmd defines the export subcommand. Flags override values loaded
// from --config.
type ExportCmd struct {
	// Required arguments
	File   string `arg:"" type:"existingfile" help:"Source SER file."`
	Output string `short:"o" required:"" help:"Output file path. Image sequences use it as the name pattern."`
	Config string `short:"c" type:"existingfile" help:"YAML export configuration."`

	// Selection
	Format     *string `short:"f" help:"Output format (ser, avi, gif, images)."`
	Start      *int    `help:"First frame, 1-based (default: 1)."`
	End        *int    `help:"Last frame, 1-based (default: last frame)."`
	Decimation *int    `short:"n" help:"Keep every n-th frame."`
	Direction  *string `help:"Frame order (forward, reverse, pingpong)."`

	// SER
	NoTimestamps bool    `help:"Do not copy frame timestamps into SER output."`
	LenientDepth bool    `help:"Accept pixel depths other than 8 and 16."`
	Observer     *string `help:"Observer written to the SER header (empty clears it)."`
	Instrument   *string `help:"Instrument written to the SER header (empty clears it)."`
	Telescope    *string `help:"Telescope written to the SER header (empty clears it)."`

	// AVI
	Legacy            bool     `help:"Write AVI 1.0 without OpenDML extensions (2GB limit)."`
	SizeLimit         *string  `help:"Largest AVI file (2GB, 4GB or a byte count)."`
	FPS               *float64 `help:"AVI frame rate (default: 25)."`
	FPSFromTimestamps bool     `name:"fps-from-timestamps" help:"Derive the AVI frame rate from the capture timestamps."`

	// GIF
	Preset               *int    `short:"p" help:"GIF preset, 1 (best quality) to 5 (smallest file)."`
	Quantizer            *string `help:"GIF quantizer (neuquant, mediancut)."`
	SampleFactor         *int    `help:"NeuQuant sampling factor (1-30)."`
	ColorBits            *int    `help:"GIF colour table bits (1-8)."`
	Lossy                *int    `help:"GIF lossy level (0-10)."`
	BorderTolerance      *int    `help:"Per-channel difference still treated as unchanged."`
	TransparentTolerance *int    `help:"Extra tolerance when growing transparent areas."`
	Delay                *int    `help:"GIF frame delay in centiseconds."`
	FinalDelay           *int    `help:"GIF final frame delay in centiseconds (default: frame delay)."`

	// Images
	ImageFormat     *string `help:"Image format (png, jpg, bmp, tiff)."`
	Quality         *int    `short:"q" help:"JPEG quality (1-100)."`
	Naming          *string `help:"Image numbering (sequential, frame)."`
	TimestampSuffix bool    `help:"Append the frame timestamp to image file names."`

	// Processing
	Debayer     bool     `help:"Debayer mosaic frames."`
	Pattern     *string  `help:"Override the Bayer pattern (RGGB, GRBG, GBRG, BGGR, ...)."`
	Mono        *string  `help:"Fold colour to mono from channels (r, g, b, rg, rb, gb, rgb)."`
	AlignRed    *string  `help:"Shift the red channel by X,Y pixels."`
	AlignBlue   *string  `help:"Shift the blue channel by X,Y pixels."`
	Gain        *float64 `help:"Gain multiplier."`
	Gamma       *float64 `help:"Gamma exponent."`
	Saturation  *float64 `help:"Saturation in percent (100 = unchanged)."`
	Balance     *string  `help:"Colour balance (off, manual, auto, reference)."`
	BalanceRGB  *string  `name:"balance-rgb" help:"Manual balance factors as R,G,B."`
	Crop        *string  `help:"Crop rectangle as WxH+X+Y."`
	Resize      *string  `help:"Resize to WxH or a percentage such as 50%."`
	Fit         *string  `help:"Resize fit (stretch, pad, crop)."`
	BarColor    *string  `help:"Pad bar colour (hex, e.g., #000000)."`
	Invert      bool     `help:"Invert frames."`
	Label       *string  `help:"Label overlay content (frame, timestamp, both)."`
	LabelCorner *string  `help:"Label corner (top-left, top-right, bottom-left, bottom-right)."`
	LabelScale  *int     `help:"Label magnification."`

	// Output
	Summary string `short:"s" help:"Write a Markdown summary of the run to this path."`

	// Debug options
	Debug    bool   `short:"d" help:"Enable debug output."`
	DebugDir string `default:"./debug" help:"Directory for debug output."`

	LogFlags `embed:""`
}

// Run executes the export command.
func (cmd *ExportCmd) Run() error {
	log := cmd.logger()

	ctx, cancel := signalContext(log)
	defer cancel()

	fc := config.Defaults()
	if cmd.Config != "" {
		loaded, err := config.LoadFromFile(cmd.Config)
		if err != nil {
			return err
		}
		fc = loaded
		log.Info("Loaded configuration from %s", cmd.Config)
	}
	if err := cmd.apply(&fc); err != nil {
		return err
	}

	session, err := open(fc.Source, fc.LenientDepth, log)
	if err != nil {
		return err
	}
	cfg, err := fc.ToExportConfig(session.FrameCount())
	if err != nil {
		return err
	}

	exporter := serexport.NewExporter(serexport.Options{
		Logger:   log,
		Debug:    fc.Debug,
		DebugDir: fc.DebugDir,
	})
	estimated := estimate(ctx, exporter, cfg, log)
	run, err := exporter.StartExport(ctx, cfg)
	if err != nil {
		return err
	}

	showProgress := !cmd.Quiet && logger.IsTerminal(os.Stderr)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-run.Done()
		return run.Err()
	})
	if showProgress {
		g.Go(func() error {
			reportProgress(gctx, exporter, run)
			return nil
		})
	}
	runErr := g.Wait()

	if cmd.Summary != "" {
		if err := cmd.writeSummary(session, cfg, exporter.PollProgress(run), estimated); err != nil {
			log.Error("%v", err)
		} else {
			log.Info("Summary saved to %s", cmd.Summary)
		}
	}
	if runErr != nil {
		return runErr
	}
	log.Info("Output saved to %s", cfg.Output)
	return nil
}

// estimate logs the predicted output size and returns it, or 0 when the
// format has none.
func estimate(ctx context.Context, exporter *serexport.Exporter, cfg export.Config, log ports.Logger) int64 {
	est, err := exporter.EstimateSize(ctx, cfg)
	if err != nil {
		if !errors.Is(err, export.ErrNoEstimate) {
			log.Debug("No size estimate: %v", err)
		}
		return 0
	}
	log.Info("Estimated file size: %d bytes (%d frames of %dx%d)", est.Bytes, est.Frames, est.Width, est.Height)
	if est.Limit > 0 && est.Bytes > est.Limit {
		log.Warn("Estimated size exceeds the AVI limit of %d bytes, the export will stop early", est.Limit)
	}
	return est.Bytes
}

// reportProgress redraws a single progress line until the run finishes.
func reportProgress(ctx context.Context, exporter *serexport.Exporter, run *export.Run) {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	draw := func() {
		p := exporter.PollProgress(run)
		fmt.Fprintf(os.Stderr, "\r%s", l10n.F("Exporting: %d/%d frames (%.0f%%), %d bytes",
			p.FramesWritten, p.FramesTotal, 100*p.Fraction(), p.BytesWritten))
	}
	for {
		select {
		case <-run.Done():
			draw()
			fmt.Fprintln(os.Stderr)
			return
		case <-ctx.Done():
			fmt.Fprintln(os.Stderr)
			return
		case <-ticker.C:
			draw()
		}
	}
}

func (cmd *ExportCmd) writeSummary(s *serexport.Session, cfg export.Config, p export.Progress, estimated int64) error {
	var names []string
	if cfg.Process {
		if chain, err := process.NewChain(cfg.Processing, ggrenderer.New()); err == nil {
			names = chain.Names()
		}
	}
	summary := summarizer.NewBuilder().
		WithSource(s.Path(), s.Header(), s.Size(), s.PixelDepth()).
		WithTimestamps(s.TimestampReport(), s.TimeBase()).
		WithExport(cfg, p, names).
		WithExportEstimate(estimated).
		Build()
	return summarizer.NewWriter(markdown(), osfilesystem.New()).Write(cmd.Summary, summary)
}

// apply copies the flags that were given onto fc.
func (cmd *ExportCmd) apply(fc *config.Config) error {
	fc.Source = cmd.File
	fc.Output = cmd.Output

	setString(&fc.Format, cmd.Format)
	setInt(&fc.StartFrame, cmd.Start)
	setInt(&fc.EndFrame, cmd.End)
	setInt(&fc.Decimation, cmd.Decimation)
	setString(&fc.Direction, cmd.Direction)
	if cmd.NoTimestamps {
		fc.IncludeTimestamps = false
	}
	fc.LenientDepth = fc.LenientDepth || cmd.LenientDepth
	setStringPtr(&fc.Metadata.Observer, cmd.Observer)
	setStringPtr(&fc.Metadata.Instrument, cmd.Instrument)
	setStringPtr(&fc.Metadata.Telescope, cmd.Telescope)
	if cmd.Debug {
		fc.Debug = true
		fc.DebugDir = cmd.DebugDir
	}

	fc.AVI.Legacy = fc.AVI.Legacy || cmd.Legacy
	setString(&fc.AVI.SizeLimit, cmd.SizeLimit)
	if cmd.FPS != nil {
		fc.AVI.FrameRate = *cmd.FPS
	}
	fc.AVI.FrameRateFromTimestamps = fc.AVI.FrameRateFromTimestamps || cmd.FPSFromTimestamps

	setInt(&fc.GIF.Preset, cmd.Preset)
	setString(&fc.GIF.Quantizer, cmd.Quantizer)
	setIntPtr(&fc.GIF.SampleFactor, cmd.SampleFactor)
	setIntPtr(&fc.GIF.ColorTableBits, cmd.ColorBits)
	setIntPtr(&fc.GIF.Lossy, cmd.Lossy)
	setIntPtr(&fc.GIF.BorderTolerance, cmd.BorderTolerance)
	setIntPtr(&fc.GIF.TransparentTolerance, cmd.TransparentTolerance)
	setIntPtr(&fc.GIF.FrameDelay, cmd.Delay)
	setIntPtr(&fc.GIF.FinalFrameDelay, cmd.FinalDelay)

	setString(&fc.Images.Format, cmd.ImageFormat)
	setInt(&fc.Images.Quality, cmd.Quality)
	setString(&fc.Images.Naming, cmd.Naming)
	fc.Images.TimestampSuffix = fc.Images.TimestampSuffix || cmd.TimestampSuffix

	return cmd.applyProcessing(fc)
}

func (cmd *ExportCmd) applyProcessing(fc *config.Config) error {
	given := cmd.Debayer || cmd.Invert || cmd.Pattern != nil || cmd.Mono != nil ||
		cmd.AlignRed != nil || cmd.AlignBlue != nil || cmd.Gain != nil || cmd.Gamma != nil ||
		cmd.Saturation != nil || cmd.Balance != nil || cmd.BalanceRGB != nil || cmd.Crop != nil ||
		cmd.Resize != nil || cmd.Label != nil
	if !given {
		return nil
	}
	if fc.Processing == nil {
		fc.Processing = &config.ProcessingConfig{}
	}
	p := fc.Processing

	p.Debayer = p.Debayer || cmd.Debayer
	p.Invert = p.Invert || cmd.Invert
	setString(&p.Pattern, cmd.Pattern)
	setString(&p.Mono, cmd.Mono)
	setFloat(&p.Gain, cmd.Gain)
	setFloat(&p.Gamma, cmd.Gamma)
	if cmd.Saturation != nil {
		p.Saturation = cmd.Saturation
	}

	if cmd.AlignRed != nil {
		if _, err := fmt.Sscanf(*cmd.AlignRed, "%d,%d", &p.AlignRed.X, &p.AlignRed.Y); err != nil {
			return flagError("align-red", *cmd.AlignRed)
		}
	}
	if cmd.AlignBlue != nil {
		if _, err := fmt.Sscanf(*cmd.AlignBlue, "%d,%d", &p.AlignBlue.X, &p.AlignBlue.Y); err != nil {
			return flagError("align-blue", *cmd.AlignBlue)
		}
	}

	setString(&p.Balance.Mode, cmd.Balance)
	if cmd.BalanceRGB != nil {
		b := &p.Balance
		if _, err := fmt.Sscanf(*cmd.BalanceRGB, "%g,%g,%g", &b.R, &b.G, &b.B); err != nil {
			return flagError("balance-rgb", *cmd.BalanceRGB)
		}
		if b.Mode == "" {
			b.Mode = "manual"
		}
	}

	if cmd.Crop != nil {
		c := &config.CropConfig{}
		if _, err := fmt.Sscanf(*cmd.Crop, "%dx%d+%d+%d", &c.Width, &c.Height, &c.X, &c.Y); err != nil {
			return flagError("crop", *cmd.Crop)
		}
		p.Crop = c
	}

	if cmd.Resize != nil {
		r := &config.ResizeConfig{}
		if pct, ok := strings.CutSuffix(*cmd.Resize, "%"); ok {
			if _, err := fmt.Sscanf(pct, "%g", &r.Percent); err != nil {
				return flagError("resize", *cmd.Resize)
			}
		} else if _, err := fmt.Sscanf(*cmd.Resize, "%dx%d", &r.Width, &r.Height); err != nil {
			return flagError("resize", *cmd.Resize)
		}
		p.Resize = r
	}
	if p.Resize != nil {
		setString(&p.Resize.Fit, cmd.Fit)
		setString(&p.Resize.BarColor, cmd.BarColor)
	}

	if cmd.Label != nil {
		p.Label = &config.LabelConfig{Content: *cmd.Label, Scale: 1}
	}
	if p.Label != nil {
		setString(&p.Label.Corner, cmd.LabelCorner)
		setInt(&p.Label.Scale, cmd.LabelScale)
	}
	return nil
}

func flagError(name, value string) error {
	return &export.ConfigError{Field: name, Reason: fmt.Sprintf("cannot parse %q", value)}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setStringPtr(dst **string, v *string) {
	if v != nil {
		*dst = v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setIntPtr(dst **int, v *int) {
	if v != nil {
		*dst = v
	}
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}
