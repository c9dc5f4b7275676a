// Package main provides the CLI entry point for serexport.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/ideamans/go-l10n"

	"github.com/user/serexport/pkg/adapters/logger"
	"github.com/user/serexport/pkg/adapters/osfilesystem"
	"github.com/user/serexport/pkg/ports"
	"github.com/user/serexport/pkg/ser"
	"github.com/user/serexport/pkg/serexport"
	"github.com/user/serexport/pkg/summarizer"
)

// CLI defines the command-line interface with subcommands.
type CLI struct {
	Info    InfoCmd    `cmd:"" help:"Show the header and timestamp analysis of a SER file."`
	Repair  RepairCmd  `cmd:"" help:"Fix the frame count of a truncated SER file in place."`
	Export  ExportCmd  `cmd:"" help:"Export frames to SER, AVI, GIF or still images."`
	Version VersionCmd `cmd:"" help:"Show version information."`
}

// LogFlags are shared by every command that logs.
type LogFlags struct {
	LogLevel string `short:"l" default:"info" enum:"debug,info,warn,error" help:"Log level (debug, info, warn, error)."`
	Quiet    bool   `short:"Q" help:"Suppress all log output."`
}

func (f LogFlags) logger() ports.Logger {
	if f.Quiet {
		return logger.NewNoop()
	}
	return logger.NewConsole(ports.ParseLogLevel(f.LogLevel))
}

// InfoCmd defines the info subcommand.
type InfoCmd struct {
	File         string `arg:"" type:"existingfile" help:"SER file to inspect."`
	Summary      string `short:"s" help:"Also write the report as Markdown to this path."`
	LenientDepth bool   `help:"Accept pixel depths other than 8 and 16."`

	LogFlags `embed:""`
}

// RepairCmd defines the repair subcommand.
type RepairCmd struct {
	File string `arg:"" type:"existingfile" help:"SER file to repair."`

	LogFlags `embed:""`
}

// VersionCmd shows version information.
type VersionCmd struct{}

var version = "dev"

func main() {
	cli := CLI{}

	ctx := kong.Parse(&cli,
		kong.Name("serexport"),
		kong.Description(l10n.T("Inspect, repair and export SER astronomy captures.")),
		kong.UsageOnError(),
	)

	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(log ports.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			log.Warn("Interrupted, cancelling export...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()
	return ctx, cancel
}

// open opens a container and explains how to repair a recoverable failure.
func open(path string, lenient bool, log ports.Logger) (*serexport.Session, error) {
	s, err := serexport.OpenContainerWithOptions(path, ser.OpenOptions{LenientDepth: lenient})
	if err != nil {
		if ser.IsRecoverable(err) {
			log.Warn("Frame count of %s is invalid: %v", path, err)
			log.Warn("Run 'serexport repair %s' to fix the frame count", path)
		}
		return nil, err
	}
	h := s.Header()
	log.Info("Opened %s: %dx%d %s, %d-bit, %d frames",
		path, h.Width, h.Height, h.ColorID, h.PixelDepth, s.FrameCount())
	if s.PixelDepth() != int(h.PixelDepth) {
		log.Debug("Effective pixel depth: %d bits", s.PixelDepth())
	}
	return s, nil
}

func markdown() *summarizer.MarkdownFormatter {
	return summarizer.NewMarkdownFormatter(
		summarizer.WithTranslator(l10n.T),
		summarizer.WithVersion(version),
	)
}

// Run executes the info command.
func (cmd *InfoCmd) Run() error {
	log := cmd.logger()

	s, err := open(cmd.File, cmd.LenientDepth, log)
	if err != nil {
		return err
	}

	b := summarizer.NewBuilder().
		WithSource(s.Path(), s.Header(), s.Size(), s.PixelDepth()).
		WithTimestamps(s.TimestampReport(), s.TimeBase())

	// Whole-file exports without processing.
	exporter := serexport.NewExporter(serexport.Options{Logger: log})
	for _, cb := range []*serexport.ConfigBuilder{
		serexport.NewConfigBuilder(s, "").AsSER(true).WithLenientDepth(cmd.LenientDepth),
		serexport.NewConfigBuilder(s, "").AsAVI(false).WithLenientDepth(cmd.LenientDepth),
	} {
		cfg := cb.Build()
		est, err := exporter.EstimateSize(context.Background(), cfg)
		if err != nil {
			log.Debug("No %s size estimate: %v", cfg.Format, err)
			continue
		}
		b.WithEstimate(cfg.Format.String(), est.Bytes)
	}
	summary := b.Build()

	formatter := markdown()
	fmt.Print(formatter.Format(summary))

	if cmd.Summary != "" {
		w := summarizer.NewWriter(formatter, osfilesystem.New())
		if err := w.Write(cmd.Summary, summary); err != nil {
			return err
		}
		log.Info("Summary saved to %s", cmd.Summary)
	}
	return nil
}

// Run executes the repair command.
func (cmd *RepairCmd) Run() error {
	log := cmd.logger()
	exporter := serexport.NewExporter(serexport.Options{Logger: log})

	h, err := exporter.RepairFrameCount(cmd.File)
	if err != nil {
		return fmt.Errorf("repair %s: %w", cmd.File, err)
	}
	fmt.Println(l10n.F("%s now declares %d frames", cmd.File, h.FrameCount))
	return nil
}

// Run executes the version command.
func (cmd *VersionCmd) Run() error {
	fmt.Println(l10n.F("serexport version %s", version))
	return nil
}
