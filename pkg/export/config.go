// Package export runs frame export jobs: it selects frames from a source
// container, optionally processes them and streams them into an encoder,
// while reporting progress and honouring cancellation.
package export

import (
	"fmt"
	"strings"

	"github.com/user/serexport/pkg/adapters/aviencoder"
	"github.com/user/serexport/pkg/adapters/gifencoder"
	"github.com/user/serexport/pkg/adapters/imageencoder"
	"github.com/user/serexport/pkg/ports"
	"github.com/user/serexport/pkg/process"
	"github.com/user/serexport/pkg/ser"
)

// Format is the output container.
type Format int

const (
	FormatSER Format = iota
	FormatAVI
	FormatGIF
	FormatImages
)

var formatNames = map[Format]string{
	FormatSER:    "ser",
	FormatAVI:    "avi",
	FormatGIF:    "gif",
	FormatImages: "images",
}

func (f Format) String() string {
	if name, ok := formatNames[f]; ok {
		return name
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

// ParseFormat parses a format name.
func ParseFormat(s string) (Format, bool) {
	for f, name := range formatNames {
		if name == strings.ToLower(s) {
			return f, true
		}
	}
	return FormatSER, false
}

// Direction orders the selected frames.
type Direction int

const (
	Forward Direction = iota
	Reverse
	// ForwardThenReverse plays forward and back again, showing the last
	// frame once.
	ForwardThenReverse
)

var directionNames = map[Direction]string{
	Forward:            "forward",
	Reverse:            "reverse",
	ForwardThenReverse: "pingpong",
}

func (d Direction) String() string {
	if name, ok := directionNames[d]; ok {
		return name
	}
	return fmt.Sprintf("Direction(%d)", int(d))
}

// ParseDirection parses "forward", "reverse" or "pingpong".
func ParseDirection(s string) (Direction, bool) {
	s = strings.ToLower(s)
	if s == "forward-then-reverse" {
		return ForwardThenReverse, true
	}
	for d, name := range directionNames {
		if name == s {
			return d, true
		}
	}
	return Forward, false
}

// AVIOptions configures AVI output.
type AVIOptions struct {
	Legacy    bool
	SizeLimit int64   // 0 selects the ceiling of the chosen flavour
	FrameRate float64 // 0 selects 25 fps

	// FrameRateFromTimestamps derives the rate from the capture timestamps,
	// divided by the decimation factor so playback stays real time.
	FrameRateFromTimestamps bool
}

// ImageOptions configures image sequence output.
type ImageOptions struct {
	Format          ports.ImageFormat
	Quality         int
	Naming          imageencoder.Naming
	TimestampSuffix bool
}

// Config describes one export run. It is not modified once the run starts.
type Config struct {
	Source string
	Output string

	// Start and End are 0-based and inclusive.
	Start      int
	End        int
	Decimation int
	Direction  Direction

	Format Format
	AVI    AVIOptions
	GIF    gifencoder.Options
	Images ImageOptions

	// Process enables the processing chain described by Processing.
	Process    bool
	Processing process.Options

	// IncludeTimestamps copies frame timestamps into SER output.
	IncludeTimestamps bool

	// Metadata overrides the observer, instrument and telescope text of
	// SER output.
	Metadata ser.Metadata

	// LenientDepth accepts sources with pixel depths other than 8 and 16.
	LenientDepth bool
}

// Validate checks everything that does not depend on the source container.
func (c Config) Validate() error {
	switch {
	case c.Source == "":
		return &ConfigError{Field: "source", Reason: "no source file given"}
	case c.Output == "":
		return &ConfigError{Field: "output", Reason: "no output path given"}
	case c.Decimation < 1:
		return &ConfigError{Field: "decimation", Reason: fmt.Sprintf("must be at least 1, got %d", c.Decimation)}
	case c.Start < 0:
		return &ConfigError{Field: "start", Reason: fmt.Sprintf("must not be negative, got %d", c.Start)}
	case c.End < c.Start:
		return &ConfigError{Field: "end", Reason: fmt.Sprintf("%d is before start frame %d", c.End, c.Start)}
	}
	if _, ok := formatNames[c.Format]; !ok {
		return &ConfigError{Field: "format", Reason: fmt.Sprintf("unknown format %d", c.Format)}
	}
	if _, ok := directionNames[c.Direction]; !ok {
		return &ConfigError{Field: "direction", Reason: fmt.Sprintf("unknown direction %d", c.Direction)}
	}

	switch c.Format {
	case FormatAVI:
		if c.AVI.SizeLimit < 0 || c.AVI.SizeLimit > aviencoder.Limit4GB {
			return &ConfigError{Field: "avi.size_limit", Reason: fmt.Sprintf("%d bytes is outside 0..4GB", c.AVI.SizeLimit)}
		}
		if c.AVI.FrameRate < 0 {
			return &ConfigError{Field: "avi.frame_rate", Reason: fmt.Sprintf("must not be negative, got %g", c.AVI.FrameRate)}
		}
	case FormatGIF:
		if err := c.GIF.Validate(); err != nil {
			return &ConfigError{Field: "gif", Reason: err.Error()}
		}
	case FormatImages:
		if c.Images.Quality < 0 || c.Images.Quality > 100 {
			return &ConfigError{Field: "images.quality", Reason: fmt.Sprintf("must be within 0..100, got %d", c.Images.Quality)}
		}
	}
	return nil
}

// ValidateFor checks the frame range and processing options against the
// source header.
func (c Config) ValidateFor(h ser.Header, frameCount int) error {
	if c.End > frameCount-1 {
		return &ConfigError{Field: "end", Reason: fmt.Sprintf("%d is past the last frame %d", c.End, frameCount-1)}
	}
	if c.Process {
		if err := c.Processing.Validate(int(h.Width), int(h.Height)); err != nil {
			return &ConfigError{Field: "processing", Reason: err.Error()}
		}
	}
	return nil
}
