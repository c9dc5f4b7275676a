package serexport

import (
	"testing"

	"github.com/user/serexport/pkg/adapters/gifencoder"
	"github.com/user/serexport/pkg/export"
	"github.com/user/serexport/pkg/ports"
	"github.com/user/serexport/pkg/process"
)

func TestConfigBuilder_Defaults(t *testing.T) {
	s := &Session{path: "in.ser", frameCount: 40}
	cfg := NewConfigBuilder(s, "out.ser").Build()

	if cfg.Source != "in.ser" || cfg.Output != "out.ser" {
		t.Errorf("paths = %q, %q", cfg.Source, cfg.Output)
	}
	if cfg.Start != 0 || cfg.End != 39 || cfg.Decimation != 1 || cfg.Direction != export.Forward {
		t.Errorf("selection = %d..%d/%d %v", cfg.Start, cfg.End, cfg.Decimation, cfg.Direction)
	}
	if cfg.Format != export.FormatSER || !cfg.IncludeTimestamps || cfg.Process {
		t.Errorf("format=%v timestamps=%v process=%v", cfg.Format, cfg.IncludeTimestamps, cfg.Process)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestConfigBuilder_Clamps(t *testing.T) {
	s := &Session{path: "in.ser", frameCount: 10}
	cfg := NewConfigBuilder(s, "out.avi").
		WithFrameRange(-5, 100).
		WithDecimation(0).
		Build()

	if cfg.Start != 0 || cfg.End != 9 || cfg.Decimation != 1 {
		t.Errorf("selection = %d..%d/%d, want 0..9/1", cfg.Start, cfg.End, cfg.Decimation)
	}
}

func TestConfigBuilder_Formats(t *testing.T) {
	s := &Session{path: "in.ser", frameCount: 10}

	avi := NewConfigBuilder(s, "out.avi").
		AsAVI(true).
		WithAVIFrameRate(12.5).
		WithAVIFrameRateFromTimestamps().
		Build()
	if avi.Format != export.FormatAVI || !avi.AVI.Legacy || avi.AVI.FrameRate != 12.5 || !avi.AVI.FrameRateFromTimestamps {
		t.Errorf("avi = %v %+v", avi.Format, avi.AVI)
	}

	gif := NewConfigBuilder(s, "out.gif").
		WithGIFDelays(4, 150).
		AsGIF(GIFSmallest).
		WithDirection(export.ForwardThenReverse).
		Build()
	want := GetGIFOptions(GIFSmallest)
	want.FrameDelay, want.FinalFrameDelay = 4, 150
	if gif.Format != export.FormatGIF || gif.GIF != want || gif.Direction != export.ForwardThenReverse {
		t.Errorf("gif = %v %+v", gif.Format, gif.GIF)
	}

	img := NewConfigBuilder(s, "out.jpg").
		AsImages(ports.FormatJPEG).
		WithImageQuality(75).
		WithTimestampSuffix(true).
		WithProcessing(process.Options{Invert: true}).
		Build()
	if img.Format != export.FormatImages || img.Images.Format != ports.FormatJPEG || img.Images.Quality != 75 || !img.Images.TimestampSuffix {
		t.Errorf("images = %+v", img.Images)
	}
	if !img.Process || !img.Processing.Invert {
		t.Errorf("processing = %v %+v", img.Process, img.Processing)
	}
}

func TestGetGIFOptions(t *testing.T) {
	for q, n := range gifPresets {
		want, err := gifencoder.Preset(n)
		if err != nil {
			t.Fatal(err)
		}
		if got := GetGIFOptions(q); got != want {
			t.Errorf("GetGIFOptions(%s) = %+v, want preset %d", q, got, n)
		}
	}
	if got := GetGIFOptions("unknown"); got != gifencoder.DefaultOptions() {
		t.Errorf("unknown preset = %+v, want default", got)
	}
}
