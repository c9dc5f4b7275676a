package config

import (
	"errors"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/user/serexport/pkg/adapters/aviencoder"
	"github.com/user/serexport/pkg/adapters/gifencoder"
	"github.com/user/serexport/pkg/adapters/imageencoder"
	"github.com/user/serexport/pkg/export"
	"github.com/user/serexport/pkg/pipeline"
	"github.com/user/serexport/pkg/ports"
	"github.com/user/serexport/pkg/process"
	"github.com/user/serexport/pkg/ser"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "export.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFromFile_Defaults(t *testing.T) {
	path := writeConfig(t, "source: in.ser\noutput: out.ser\n")

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}
	if cfg.Format != "ser" || cfg.Decimation != 1 || cfg.Direction != "forward" {
		t.Errorf("defaults not kept: %+v", cfg)
	}

	ec, err := cfg.ToExportConfig(100)
	if err != nil {
		t.Fatalf("ToExportConfig: %v", err)
	}
	if ec.Start != 0 || ec.End != 99 {
		t.Errorf("range = %d..%d, want 0..99", ec.Start, ec.End)
	}
	if ec.Format != export.FormatSER || ec.Process {
		t.Errorf("format=%v process=%v", ec.Format, ec.Process)
	}
	if ec.Metadata != (ser.Metadata{}) {
		t.Errorf("metadata = %+v, want source text kept", ec.Metadata)
	}
	if ec.GIF != gifencoder.DefaultOptions() {
		t.Errorf("gif options = %+v, want preset 2", ec.GIF)
	}
	if err := ec.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoadFromFile_Full(t *testing.T) {
	path := writeConfig(t, `
source: jupiter.ser
output: jupiter.gif
format: gif
start_frame: 11
end_frame: 40
decimation: 3
direction: pingpong
metadata:
  observer: A. Observer
  telescope: ""
gif:
  preset: 4
  lossy: 0
  frame_delay: 5
  final_frame_delay: 200
processing:
  debayer: true
  pattern: grbg
  gain: 1.5
  saturation: 0
  balance:
    mode: manual
    r: 1.1
    g: 1
    b: 0.9
  crop: {x: 10, y: 20, width: 320, height: 240}
  resize:
    percent: 50
    fit: pad
    bar_color: "#102030"
  label:
    content: both
    corner: bottom-right
    scale: 2
`)

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}
	ec, err := cfg.ToExportConfig(500)
	if err != nil {
		t.Fatalf("ToExportConfig: %v", err)
	}

	if ec.Start != 10 || ec.End != 39 || ec.Decimation != 3 {
		t.Errorf("selection = %d..%d/%d", ec.Start, ec.End, ec.Decimation)
	}
	if ec.Format != export.FormatGIF || ec.Direction != export.ForwardThenReverse {
		t.Errorf("format=%v direction=%v", ec.Format, ec.Direction)
	}

	want, _ := gifencoder.Preset(4)
	want.Lossy, want.FrameDelay, want.FinalFrameDelay = 0, 5, 200
	if ec.GIF != want {
		t.Errorf("gif = %+v, want %+v", ec.GIF, want)
	}

	m := ec.Metadata
	if m.Observer == nil || *m.Observer != "A. Observer" {
		t.Errorf("observer = %v", m.Observer)
	}
	if m.Telescope == nil || *m.Telescope != "" {
		t.Errorf("telescope = %v, want an empty override", m.Telescope)
	}
	if m.Instrument != nil {
		t.Errorf("instrument = %q, want unset", *m.Instrument)
	}

	p := ec.Processing
	if !ec.Process || !p.Debayer || p.Pattern != pipeline.CFAGRBG || p.Gain != 1.5 {
		t.Errorf("processing = %+v", p)
	}
	if p.Saturation == nil || *p.Saturation != 0 {
		t.Errorf("saturation = %v, want explicit 0", p.Saturation)
	}
	if p.Balance.Mode != process.BalanceManual || p.Balance.R != 1.1 || p.Balance.B != 0.9 {
		t.Errorf("balance = %+v", p.Balance)
	}
	if p.Crop == nil || *p.Crop != (pipeline.Rectangle{X: 10, Y: 20, Width: 320, Height: 240}) {
		t.Errorf("crop = %v", p.Crop)
	}
	if p.Resize == nil || p.Resize.Mode != process.SizePercent || p.Resize.Percent != 50 || p.Resize.Fit != process.FitPad {
		t.Fatalf("resize = %+v", p.Resize)
	}
	if p.Resize.Bar != (color.RGBA{0x10, 0x20, 0x30, 0xff}) {
		t.Errorf("bar = %v", p.Resize.Bar)
	}
	if p.Label == nil || p.Label.Content != process.LabelBoth || p.Label.Corner != process.BottomRight || p.Label.Scale != 2 {
		t.Errorf("label = %+v", p.Label)
	}
}

func TestToExportConfig_AVIAndImages(t *testing.T) {
	cfg := Defaults()
	cfg.Format = "avi"
	cfg.AVI = AVIConfig{Legacy: true, SizeLimit: "2GB", FrameRate: 30}
	cfg.Images = ImagesConfig{Format: "tiff", Quality: 80, Naming: "frame", TimestampSuffix: true}

	ec, err := cfg.ToExportConfig(10)
	if err != nil {
		t.Fatalf("ToExportConfig: %v", err)
	}
	if !ec.AVI.Legacy || ec.AVI.SizeLimit != aviencoder.Limit2GB || ec.AVI.FrameRate != 30 {
		t.Errorf("avi = %+v", ec.AVI)
	}
	if ec.Images.Format != ports.FormatTIFF || ec.Images.Naming != imageencoder.NamingFrameNumber || !ec.Images.TimestampSuffix {
		t.Errorf("images = %+v", ec.Images)
	}
}

func TestToExportConfig_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(*Config)
		field string
	}{
		{"format", func(c *Config) { c.Format = "mp4" }, "format"},
		{"direction", func(c *Config) { c.Direction = "sideways" }, "direction"},
		{"size limit", func(c *Config) { c.AVI.SizeLimit = "lots" }, "avi.size_limit"},
		{"preset", func(c *Config) { c.GIF.Preset = 9 }, "gif"},
		{"quantizer", func(c *Config) { c.GIF.Quantizer = "octree" }, "gif"},
		{"image format", func(c *Config) { c.Images.Format = "webp" }, "images.format"},
		{"naming", func(c *Config) { c.Images.Naming = "random" }, "images.naming"},
		{"mono", func(c *Config) { c.Processing = &ProcessingConfig{Mono: "cmy"} }, "processing"},
		{"pattern", func(c *Config) { c.Processing = &ProcessingConfig{Pattern: "RGBG"} }, "processing"},
		{"bar color", func(c *Config) {
			c.Processing = &ProcessingConfig{Resize: &ResizeConfig{Width: 10, Height: 10, BarColor: "#12"}}
		}, "processing"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.edit(&cfg)
			_, err := cfg.ToExportConfig(10)
			var ce *export.ConfigError
			if !errors.As(err, &ce) {
				t.Fatalf("error = %v, want ConfigError", err)
			}
			if ce.Field != tt.field {
				t.Errorf("field = %q, want %q", ce.Field, tt.field)
			}
		})
	}
}

func TestLoadFromFile_Errors(t *testing.T) {
	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file error = %v", err)
	}
	if _, err := LoadFromFile(writeConfig(t, "decimation: [1, 2\n")); err == nil {
		t.Error("expected YAML error")
	}
}

func TestFrameRange(t *testing.T) {
	tests := []struct {
		start, end, count int
		wantS, wantE      int
	}{
		{0, 0, 50, 0, 49},
		{1, 50, 50, 0, 49},
		{5, 0, 50, 4, 49},
		{0, 10, 50, 0, 9},
	}
	for _, tt := range tests {
		s, e := FrameRange(tt.start, tt.end, tt.count)
		if s != tt.wantS || e != tt.wantE {
			t.Errorf("FrameRange(%d, %d, %d) = %d, %d; want %d, %d",
				tt.start, tt.end, tt.count, s, e, tt.wantS, tt.wantE)
		}
	}
}

func TestParseSizeLimit(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"", 0, false},
		{"2GB", aviencoder.Limit2GB, false},
		{"4gb", aviencoder.Limit4GB, false},
		{"1048576", 1048576, false},
		{"-1", 0, true},
		{"big", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseSizeLimit(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseSizeLimit(%q) = %d, %v", tt.in, got, err)
		}
	}
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in      string
		want    color.Color
		wantErr bool
	}{
		{"#1a1a2e", color.RGBA{0x1a, 0x1a, 0x2e, 0xff}, false},
		{"4ADE80", color.RGBA{0x4a, 0xde, 0x80, 0xff}, false},
		{"#fff", color.RGBA{0xff, 0xff, 0xff, 0xff}, false},
		{"", color.Black, true},
		{"#12345", color.Black, true},
		{"#gggggg", color.Black, true},
	}
	for _, tt := range tests {
		got, err := ParseColor(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseColor(%q) error = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseColor(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
