package serexport

import (
	"github.com/user/serexport/pkg/adapters/gifencoder"
	"github.com/user/serexport/pkg/adapters/imageencoder"
	"github.com/user/serexport/pkg/export"
	"github.com/user/serexport/pkg/ports"
	"github.com/user/serexport/pkg/process"
	"github.com/user/serexport/pkg/ser"
)

// GIFQuality represents a GIF quality preset name.
type GIFQuality string

const (
	GIFBest     GIFQuality = "best"
	GIFHigh     GIFQuality = "high"
	GIFMedium   GIFQuality = "medium"
	GIFLow      GIFQuality = "low"
	GIFSmallest GIFQuality = "smallest"
)

var gifPresets = map[GIFQuality]int{
	GIFBest:     1,
	GIFHigh:     2,
	GIFMedium:   3,
	GIFLow:      4,
	GIFSmallest: 5,
}

// GetGIFOptions returns the encoder options for a quality preset. Unknown
// names fall back to GIFHigh.
func GetGIFOptions(q GIFQuality) gifencoder.Options {
	n, ok := gifPresets[q]
	if !ok {
		return gifencoder.DefaultOptions()
	}
	o, _ := gifencoder.Preset(n)
	return o
}

// ConfigBuilder provides a fluent interface for building export.Config.
type ConfigBuilder struct {
	config     export.Config
	frameCount int
}

// NewConfigBuilder creates a ConfigBuilder that exports every frame of the
// session to a SER file at output.
func NewConfigBuilder(s *Session, output string) *ConfigBuilder {
	return &ConfigBuilder{
		config:     defaults(s.Path(), output, s.FrameCount()),
		frameCount: s.FrameCount(),
	}
}

func defaults(source, output string, frameCount int) export.Config {
	return export.Config{
		Source: source,
		Output: output,

		// Selection
		Start:      0,
		End:        frameCount - 1,
		Decimation: 1,
		Direction:  export.Forward,

		// Output
		Format: export.FormatSER,
		AVI: export.AVIOptions{
			FrameRate: 25,
		},
		GIF: gifencoder.DefaultOptions(),
		Images: export.ImageOptions{
			Format:  ports.FormatPNG,
			Quality: 90,
			Naming:  imageencoder.NamingSequential,
		},

		IncludeTimestamps: true,
	}
}

// Build returns the final Config, clamping the frame range to the container.
func (b *ConfigBuilder) Build() export.Config {
	cfg := b.config

	if cfg.Start < 0 {
		cfg.Start = 0
	}
	if cfg.End > b.frameCount-1 {
		cfg.End = b.frameCount - 1
	}
	if cfg.Decimation < 1 {
		cfg.Decimation = 1
	}

	return cfg
}

// WithFrameRange selects frames start to end, 0-based and inclusive.
func (b *ConfigBuilder) WithFrameRange(start, end int) *ConfigBuilder {
	b.config.Start = start
	b.config.End = end
	return b
}

// WithDecimation keeps every n-th frame. Values below 1 are forced to 1.
func (b *ConfigBuilder) WithDecimation(n int) *ConfigBuilder {
	b.config.Decimation = n
	return b
}

// WithDirection sets the playback order.
func (b *ConfigBuilder) WithDirection(d export.Direction) *ConfigBuilder {
	b.config.Direction = d
	return b
}

// AsSER writes a SER file, with or without the timestamp trailer.
func (b *ConfigBuilder) AsSER(includeTimestamps bool) *ConfigBuilder {
	b.config.Format = export.FormatSER
	b.config.IncludeTimestamps = includeTimestamps
	return b
}

// AsAVI writes an uncompressed AVI file. Legacy selects AVI 1.0 with a 2GB
// ceiling.
func (b *ConfigBuilder) AsAVI(legacy bool) *ConfigBuilder {
	b.config.Format = export.FormatAVI
	b.config.AVI.Legacy = legacy
	return b
}

// WithAVISizeLimit sets the largest AVI file size in bytes.
func (b *ConfigBuilder) WithAVISizeLimit(bytes int64) *ConfigBuilder {
	b.config.AVI.SizeLimit = bytes
	return b
}

// WithAVIFrameRate sets a fixed AVI frame rate.
func (b *ConfigBuilder) WithAVIFrameRate(fps float64) *ConfigBuilder {
	b.config.AVI.FrameRate = fps
	b.config.AVI.FrameRateFromTimestamps = false
	return b
}

// WithAVIFrameRateFromTimestamps derives the AVI frame rate from the capture
// timestamps. The fixed rate is used when they are unusable.
func (b *ConfigBuilder) WithAVIFrameRateFromTimestamps() *ConfigBuilder {
	b.config.AVI.FrameRateFromTimestamps = true
	return b
}

// AsGIF writes an animated GIF using a quality preset.
func (b *ConfigBuilder) AsGIF(q GIFQuality) *ConfigBuilder {
	b.config.Format = export.FormatGIF
	delay, final := b.config.GIF.FrameDelay, b.config.GIF.FinalFrameDelay
	b.config.GIF = GetGIFOptions(q)
	b.config.GIF.FrameDelay, b.config.GIF.FinalFrameDelay = delay, final
	return b
}

// WithGIFOptions replaces all GIF options.
func (b *ConfigBuilder) WithGIFOptions(o gifencoder.Options) *ConfigBuilder {
	b.config.GIF = o
	return b
}

// WithGIFDelays sets the per-frame and final delays in centiseconds.
func (b *ConfigBuilder) WithGIFDelays(frame, final int) *ConfigBuilder {
	b.config.GIF.FrameDelay = frame
	b.config.GIF.FinalFrameDelay = final
	return b
}

// AsImages writes one still image per frame.
func (b *ConfigBuilder) AsImages(format ports.ImageFormat) *ConfigBuilder {
	b.config.Format = export.FormatImages
	b.config.Images.Format = format
	return b
}

// WithImageQuality sets the JPEG quality (1-100).
func (b *ConfigBuilder) WithImageQuality(quality int) *ConfigBuilder {
	b.config.Images.Quality = quality
	return b
}

// WithImageNaming selects sequential or source frame numbers in file names.
func (b *ConfigBuilder) WithImageNaming(n imageencoder.Naming) *ConfigBuilder {
	b.config.Images.Naming = n
	return b
}

// WithTimestampSuffix appends the frame timestamp to image file names.
func (b *ConfigBuilder) WithTimestampSuffix(enabled bool) *ConfigBuilder {
	b.config.Images.TimestampSuffix = enabled
	return b
}

// WithProcessing enables the processing chain.
func (b *ConfigBuilder) WithProcessing(opts process.Options) *ConfigBuilder {
	b.config.Process = true
	b.config.Processing = opts
	return b
}

// WithMetadata sets the observer, instrument and telescope text written to
// SER output. Nil fields keep the source text.
func (b *ConfigBuilder) WithMetadata(m ser.Metadata) *ConfigBuilder {
	b.config.Metadata = m
	return b
}

// WithLenientDepth accepts pixel depths other than 8 and 16.
func (b *ConfigBuilder) WithLenientDepth(lenient bool) *ConfigBuilder {
	b.config.LenientDepth = lenient
	return b
}
