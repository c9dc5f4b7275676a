// Package config provides configuration loading and management.
package config

import (
	"fmt"
	"image/color"
	"os"
	"strconv"
	"strings"

	"github.com/user/serexport/pkg/adapters/aviencoder"
	"github.com/user/serexport/pkg/adapters/gifencoder"
	"github.com/user/serexport/pkg/adapters/imageencoder"
	"github.com/user/serexport/pkg/export"
	"github.com/user/serexport/pkg/pipeline"
	"github.com/user/serexport/pkg/ports"
	"github.com/user/serexport/pkg/process"
	"github.com/user/serexport/pkg/ser"
	"gopkg.in/yaml.v3"
)

// Config represents an export job file.
type Config struct {
	// Input/Output
	Source string `yaml:"source"`
	Output string `yaml:"output"`
	Format string `yaml:"format"`

	// Selection. Frame numbers are 1-based; 0 means the first or last frame.
	StartFrame int    `yaml:"start_frame"`
	EndFrame   int    `yaml:"end_frame"`
	Decimation int    `yaml:"decimation"`
	Direction  string `yaml:"direction"`

	IncludeTimestamps bool `yaml:"include_timestamps"`
	LenientDepth      bool `yaml:"lenient_depth"`

	// Metadata overrides the header text of SER output.
	Metadata MetadataConfig `yaml:"metadata"`

	// Format specific
	AVI    AVIConfig    `yaml:"avi"`
	GIF    GIFConfig    `yaml:"gif"`
	Images ImagesConfig `yaml:"images"`

	// Processing is applied when present.
	Processing *ProcessingConfig `yaml:"processing"`

	// Debug
	Debug    bool   `yaml:"debug"`
	DebugDir string `yaml:"debug_dir"`
}

// MetadataConfig holds replacement header text. Absent keys keep the
// source text; an empty value clears it.
type MetadataConfig struct {
	Observer   *string `yaml:"observer"`
	Instrument *string `yaml:"instrument"`
	Telescope  *string `yaml:"telescope"`
}

// AVIConfig represents AVI output settings.
type AVIConfig struct {
	Legacy                  bool    `yaml:"legacy"`
	SizeLimit               string  `yaml:"size_limit"` // "2GB", "4GB" or empty
	FrameRate               float64 `yaml:"frame_rate"`
	FrameRateFromTimestamps bool    `yaml:"frame_rate_from_timestamps"`
}

// GIFConfig selects a preset and optionally overrides its values.
type GIFConfig struct {
	Preset               int    `yaml:"preset"`
	Quantizer            string `yaml:"quantizer"`
	SampleFactor         *int   `yaml:"sample_factor"`
	BorderTolerance      *int   `yaml:"border_tolerance"`
	TransparentTolerance *int   `yaml:"transparent_tolerance"`
	ColorTableBits       *int   `yaml:"color_table_bits"`
	Lossy                *int   `yaml:"lossy"`
	FrameDelay           *int   `yaml:"frame_delay"`
	FinalFrameDelay      *int   `yaml:"final_frame_delay"`
}

// ImagesConfig represents image sequence settings.
type ImagesConfig struct {
	Format          string `yaml:"format"`
	Quality         int    `yaml:"quality"`
	Naming          string `yaml:"naming"`
	TimestampSuffix bool   `yaml:"timestamp_suffix"`
}

// ProcessingConfig represents the processing chain.
type ProcessingConfig struct {
	Debayer    bool          `yaml:"debayer"`
	Pattern    string        `yaml:"pattern"`
	Mono       string        `yaml:"mono"`
	AlignRed   OffsetConfig  `yaml:"align_red"`
	AlignBlue  OffsetConfig  `yaml:"align_blue"`
	Gain       float64       `yaml:"gain"`
	Gamma      float64       `yaml:"gamma"`
	Saturation *float64      `yaml:"saturation"`
	Balance    BalanceConfig `yaml:"balance"`
	Crop       *CropConfig   `yaml:"crop"`
	Resize     *ResizeConfig `yaml:"resize"`
	Invert     bool          `yaml:"invert"`
	Label      *LabelConfig  `yaml:"label"`
}

// OffsetConfig is a channel shift in pixels.
type OffsetConfig struct {
	X int `yaml:"x"`
	Y int `yaml:"y"`
}

// BalanceConfig represents colour balance settings.
type BalanceConfig struct {
	Mode string  `yaml:"mode"`
	R    float64 `yaml:"r"`
	G    float64 `yaml:"g"`
	B    float64 `yaml:"b"`
}

// CropConfig is a crop rectangle in source pixels.
type CropConfig struct {
	X      int `yaml:"x"`
	Y      int `yaml:"y"`
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// ResizeConfig gives either a pixel size or a percentage.
type ResizeConfig struct {
	Width    int     `yaml:"width"`
	Height   int     `yaml:"height"`
	Percent  float64 `yaml:"percent"`
	Fit      string  `yaml:"fit"`
	BarColor string  `yaml:"bar_color"`
}

// LabelConfig represents the label overlay.
type LabelConfig struct {
	Content string `yaml:"content"`
	Corner  string `yaml:"corner"`
	Scale   int    `yaml:"scale"`
}

// Defaults returns a Config with default values.
func Defaults() Config {
	return Config{
		Format:     "ser",
		Decimation: 1,
		Direction:  "forward",

		IncludeTimestamps: true,

		GIF: GIFConfig{Preset: 2},
		Images: ImagesConfig{
			Format:  "png",
			Quality: 90,
			Naming:  "sequential",
		},

		DebugDir: "./debug",
	}
}

// LoadFromFile loads configuration from a YAML file.
func LoadFromFile(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}

	return cfg, nil
}

// ToExportConfig converts Config to export.Config. frameCount resolves an
// open end frame.
func (c Config) ToExportConfig(frameCount int) (export.Config, error) {
	cfg := export.Config{
		Source:            c.Source,
		Output:            c.Output,
		Decimation:        c.Decimation,
		IncludeTimestamps: c.IncludeTimestamps,
		LenientDepth:      c.LenientDepth,
		Metadata: ser.Metadata{
			Observer:   c.Metadata.Observer,
			Instrument: c.Metadata.Instrument,
			Telescope:  c.Metadata.Telescope,
		},
		AVI: export.AVIOptions{
			Legacy:                  c.AVI.Legacy,
			FrameRate:               c.AVI.FrameRate,
			FrameRateFromTimestamps: c.AVI.FrameRateFromTimestamps,
		},
		Images: export.ImageOptions{
			Quality:         c.Images.Quality,
			TimestampSuffix: c.Images.TimestampSuffix,
		},
	}

	cfg.Start, cfg.End = FrameRange(c.StartFrame, c.EndFrame, frameCount)

	var ok bool
	if cfg.Format, ok = export.ParseFormat(c.Format); !ok {
		return cfg, invalid("format", c.Format)
	}
	if cfg.Direction, ok = export.ParseDirection(c.Direction); !ok {
		return cfg, invalid("direction", c.Direction)
	}
	limit, err := ParseSizeLimit(c.AVI.SizeLimit)
	if err != nil {
		return cfg, &export.ConfigError{Field: "avi.size_limit", Reason: err.Error()}
	}
	cfg.AVI.SizeLimit = limit

	if cfg.GIF, err = c.GIF.options(); err != nil {
		return cfg, &export.ConfigError{Field: "gif", Reason: err.Error()}
	}

	if cfg.Images.Format, ok = ports.ParseImageFormat(c.Images.Format); !ok {
		return cfg, invalid("images.format", c.Images.Format)
	}
	if cfg.Images.Naming, ok = imageencoder.ParseNaming(c.Images.Naming); !ok {
		return cfg, invalid("images.naming", c.Images.Naming)
	}

	if c.Processing != nil {
		opts, err := c.Processing.options()
		if err != nil {
			return cfg, &export.ConfigError{Field: "processing", Reason: err.Error()}
		}
		cfg.Process = true
		cfg.Processing = opts
	}
	return cfg, nil
}

func invalid(field, value string) error {
	return &export.ConfigError{Field: field, Reason: fmt.Sprintf("unknown value %q", value)}
}

// FrameRange converts 1-based user frame numbers to the 0-based inclusive
// range of export.Config. Zero selects the first or the last frame.
func FrameRange(start, end, frameCount int) (int, int) {
	s, e := 0, frameCount-1
	if start > 0 {
		s = start - 1
	}
	if end > 0 {
		e = end - 1
	}
	return s, e
}

// ParseSizeLimit parses "2GB", "4GB", a byte count, or "" for the default.
func ParseSizeLimit(s string) (int64, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "":
		return 0, nil
	case "2GB", "2G":
		return aviencoder.Limit2GB, nil
	case "4GB", "4G":
		return aviencoder.Limit4GB, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("size limit must be 2GB, 4GB or a byte count: %q", s)
	}
	return n, nil
}

func (g GIFConfig) options() (gifencoder.Options, error) {
	preset := g.Preset
	if preset == 0 {
		preset = 2
	}
	o, err := gifencoder.Preset(preset)
	if err != nil {
		return o, err
	}
	if g.Quantizer != "" {
		if o.Quantizer, err = gifencoder.ParseQuantizer(g.Quantizer); err != nil {
			return o, err
		}
	}
	override(&o.SampleFactor, g.SampleFactor)
	override(&o.BorderTolerance, g.BorderTolerance)
	override(&o.TransparentTolerance, g.TransparentTolerance)
	override(&o.ColorTableBits, g.ColorTableBits)
	override(&o.Lossy, g.Lossy)
	override(&o.FrameDelay, g.FrameDelay)
	override(&o.FinalFrameDelay, g.FinalFrameDelay)
	return o, nil
}

func override(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func (p ProcessingConfig) options() (process.Options, error) {
	opts := process.Options{
		Debayer:    p.Debayer,
		AlignRed:   process.Offset{X: p.AlignRed.X, Y: p.AlignRed.Y},
		AlignBlue:  process.Offset{X: p.AlignBlue.X, Y: p.AlignBlue.Y},
		Gain:       p.Gain,
		Gamma:      p.Gamma,
		Saturation: p.Saturation,
		Invert:     p.Invert,
	}

	var err error
	if p.Pattern != "" {
		cfa, ok := pipeline.ParseCFA(strings.ToUpper(p.Pattern))
		if !ok {
			return opts, fmt.Errorf("unknown pattern: %s", p.Pattern)
		}
		opts.Pattern = cfa
	}
	if opts.Mono, err = process.ParseMonoMode(p.Mono); err != nil {
		return opts, err
	}

	opts.Balance = process.Balance{R: p.Balance.R, G: p.Balance.G, B: p.Balance.B}
	if opts.Balance.Mode, err = process.ParseBalanceMode(p.Balance.Mode); err != nil {
		return opts, err
	}

	if p.Crop != nil {
		opts.Crop = &pipeline.Rectangle{X: p.Crop.X, Y: p.Crop.Y, Width: p.Crop.Width, Height: p.Crop.Height}
	}

	if r := p.Resize; r != nil {
		resize := process.Resize{Width: r.Width, Height: r.Height}
		if r.Percent > 0 {
			resize = process.Resize{Mode: process.SizePercent, Percent: r.Percent}
		}
		if resize.Fit, err = process.ParseFitMode(r.Fit); err != nil {
			return opts, err
		}
		if r.BarColor != "" {
			if resize.Bar, err = ParseColor(r.BarColor); err != nil {
				return opts, err
			}
		}
		opts.Resize = &resize
	}

	if l := p.Label; l != nil {
		label := process.Label{Scale: l.Scale}
		if label.Content, err = process.ParseLabelContent(l.Content); err != nil {
			return opts, err
		}
		if label.Corner, err = process.ParseCorner(l.Corner); err != nil {
			return opts, err
		}
		opts.Label = &label
	}
	return opts, nil
}

// ParseColor parses a hex color string such as "#1a1a2e" or "fff".
func ParseColor(hex string) (color.Color, error) {
	s := strings.TrimPrefix(strings.TrimSpace(hex), "#")
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) != 6 {
		return color.Black, fmt.Errorf("invalid color: %q", hex)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return color.Black, fmt.Errorf("invalid color: %q", hex)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, nil
}
