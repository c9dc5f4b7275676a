package process

import (
	"context"
	"errors"
	"image"
	"image/color"
	"reflect"
	"testing"

	"github.com/user/serexport/pkg/pipeline"
	"github.com/user/serexport/pkg/ports"
)

// mosaic builds a single-channel image where each photosite holds the value
// of its filter colour.
func mosaic(w, h int, cfa pipeline.CFA, values map[pipeline.Filter]uint16) *pipeline.Image {
	img := pipeline.NewImage(w, h, 1, 8, 8)
	img.Mosaic = cfa
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Pix[y*w+x] = values[cfa.At(x, y)]
		}
	}
	return img
}

func ptr[T any](v T) *T { return &v }

func rgb(w, h int, r, g, b uint16) *pipeline.Image {
	img := pipeline.NewImage(w, h, 3, 8, 8)
	for i := 0; i < w*h; i++ {
		img.Pix[i*3], img.Pix[i*3+1], img.Pix[i*3+2] = r, g, b
	}
	return img
}

func TestDebayerUniformBayer(t *testing.T) {
	for _, cfa := range []pipeline.CFA{pipeline.CFARGGB, pipeline.CFAGRBG, pipeline.CFAGBRG, pipeline.CFABGGR} {
		t.Run(cfa.Name, func(t *testing.T) {
			img := mosaic(6, 4, cfa, map[pipeline.Filter]uint16{
				pipeline.FilterR: 100, pipeline.FilterG: 50, pipeline.FilterB: 10,
			})
			out := Debayer(img, pipeline.CFA{})
			if out.Channels != 3 {
				t.Fatalf("channels = %d, want 3", out.Channels)
			}
			if !out.Mosaic.IsZero() {
				t.Error("mosaic should be cleared after debayer")
			}
			for i := 0; i < out.Width*out.Height; i++ {
				if out.Pix[i*3] != 100 || out.Pix[i*3+1] != 50 || out.Pix[i*3+2] != 10 {
					t.Fatalf("pixel %d = %v", i, out.Pix[i*3:i*3+3])
				}
			}
		})
	}
}

func TestDebayerComplementary(t *testing.T) {
	// R=40 G=30 B=20 seen through cyan, yellow and magenta filters.
	img := mosaic(4, 4, pipeline.CFACYYM, map[pipeline.Filter]uint16{
		pipeline.FilterC: 50, pipeline.FilterY: 70, pipeline.FilterM: 60,
	})
	out := Debayer(img, pipeline.CFA{})
	for i := 0; i < 16; i++ {
		if out.Pix[i*3] != 40 || out.Pix[i*3+1] != 30 || out.Pix[i*3+2] != 20 {
			t.Fatalf("pixel %d = %v, want [40 30 20]", i, out.Pix[i*3:i*3+3])
		}
	}
}

func TestDebayerPatternOverride(t *testing.T) {
	img := mosaic(4, 4, pipeline.CFARGGB, map[pipeline.Filter]uint16{
		pipeline.FilterR: 100, pipeline.FilterG: 50, pipeline.FilterB: 10,
	})
	out := Debayer(img, pipeline.CFABGGR)
	if out.Pix[0] != 10 || out.Pix[2] != 100 {
		t.Errorf("override not applied: %v", out.Pix[:3])
	}

	plain := pipeline.NewImage(2, 2, 1, 8, 8)
	if Debayer(plain, pipeline.CFA{}) != plain {
		t.Error("non-mosaic image should pass through")
	}
}

func TestMonochrome(t *testing.T) {
	img := rgb(2, 1, 30, 60, 90)
	tests := []struct {
		mode MonoMode
		want uint16
	}{
		{MonoR, 30},
		{MonoG, 60},
		{MonoRB, 60},
		{MonoRGB, 60},
		{MonoGB, 75},
	}
	for _, tt := range tests {
		out := Monochrome(img, tt.mode)
		if out.Channels != 1 || out.Pix[0] != tt.want {
			t.Errorf("mode %d: got %d channels value %d, want %d", tt.mode, out.Channels, out.Pix[0], tt.want)
		}
	}
}

func TestAlignClampsAtEdges(t *testing.T) {
	img := pipeline.NewImage(3, 1, 3, 8, 8)
	for x := 0; x < 3; x++ {
		img.Pix[x*3] = uint16(10 * (x + 1)) // red 10,20,30
		img.Pix[x*3+2] = uint16(x + 1)      // blue 1,2,3
	}
	out := Align(img, Offset{X: 1}, Offset{X: -1})
	gotR := []uint16{out.Pix[0], out.Pix[3], out.Pix[6]}
	gotB := []uint16{out.Pix[2], out.Pix[5], out.Pix[8]}
	if !reflect.DeepEqual(gotR, []uint16{10, 10, 20}) {
		t.Errorf("red = %v", gotR)
	}
	if !reflect.DeepEqual(gotB, []uint16{2, 3, 3}) {
		t.Errorf("blue = %v", gotB)
	}
}

func TestToneCurve(t *testing.T) {
	img := pipeline.NewImage(3, 1, 1, 8, 8)
	copy(img.Pix, []uint16{0, 100, 200})

	out := newToneCurve(2, 1).Apply(img)
	if !reflect.DeepEqual(out.Pix, []uint16{0, 200, 255}) {
		t.Errorf("gain 2 = %v", out.Pix)
	}

	img.Pix[1] = 64
	out = newToneCurve(1, 2).Apply(img)
	if out.Pix[1] != 128 {
		t.Errorf("gamma 2 of 64 = %d, want 128", out.Pix[1])
	}

	deep := pipeline.NewImage(1, 1, 1, 16, 12)
	deep.Pix[0] = 1000
	out = newToneCurve(2, 1).Apply(deep)
	if out.Bits != 12 || out.Depth != 16 || out.Pix[0] != 2000 {
		t.Errorf("12-bit gain: bits %d depth %d value %d", out.Bits, out.Depth, out.Pix[0])
	}
	if newToneCurve(0, 0).Apply(img) != img {
		t.Error("zero gain and gamma should be identity")
	}
}

func TestSaturate(t *testing.T) {
	img := rgb(1, 1, 200, 100, 50)
	grey := Saturate(img, 0)
	if grey.Pix[0] != grey.Pix[1] || grey.Pix[1] != grey.Pix[2] {
		t.Errorf("0%% saturation should be grey, got %v", grey.Pix)
	}
	// 0.299*200 + 0.587*100 + 0.114*50 = 124.2
	if grey.Pix[0] != 124 {
		t.Errorf("luma = %d, want 124", grey.Pix[0])
	}
	if Saturate(img, 100) != img {
		t.Error("100% saturation should be identity")
	}
}

func TestBalance(t *testing.T) {
	img := rgb(2, 2, 50, 100, 200)
	r, g, b := EstimateBalance(img)
	if r != 2 || g != 1 || b != 0.5 {
		t.Errorf("EstimateBalance = %v %v %v", r, g, b)
	}
	out := ApplyBalance(img, r, g, b)
	if out.Pix[0] != 100 || out.Pix[1] != 100 || out.Pix[2] != 100 {
		t.Errorf("balanced = %v", out.Pix[:3])
	}
}

func TestBalanceAutoReferenceUsesFirstFrame(t *testing.T) {
	chain, err := NewChain(Options{Balance: Balance{Mode: BalanceAutoReference}}, nil)
	if err != nil {
		t.Fatal(err)
	}
	first, err := chain.Execute(context.Background(), rgb(1, 1, 50, 100, 200))
	if err != nil {
		t.Fatal(err)
	}
	if first.Pix[0] != 100 || first.Pix[2] != 100 {
		t.Errorf("first frame = %v", first.Pix)
	}
	second, _ := chain.Execute(context.Background(), rgb(1, 1, 100, 100, 100))
	if second.Pix[0] != 200 || second.Pix[2] != 50 {
		t.Errorf("second frame should reuse reference factors, got %v", second.Pix)
	}
}

func TestCrop(t *testing.T) {
	img := mosaic(4, 4, pipeline.CFARGGB, map[pipeline.Filter]uint16{
		pipeline.FilterR: 1, pipeline.FilterG: 2, pipeline.FilterB: 3,
	})
	out, err := Crop(img, pipeline.Rectangle{X: 1, Y: 0, Width: 2, Height: 2})
	if err != nil {
		t.Fatalf("Crop failed: %v", err)
	}
	if out.Mosaic.Name != "GRBG" {
		t.Errorf("mosaic after odd crop = %s, want GRBG", out.Mosaic.Name)
	}
	if !reflect.DeepEqual(out.Pix, []uint16{2, 1, 3, 2}) {
		t.Errorf("cropped pixels = %v", out.Pix)
	}

	if _, err := Crop(img, pipeline.Rectangle{X: 3, Y: 3, Width: 2, Height: 2}); !errors.Is(err, ErrCropBounds) {
		t.Errorf("error = %v, want ErrCropBounds", err)
	}
}

func TestResize(t *testing.T) {
	img := rgb(8, 4, 10, 20, 30)

	out, err := ResizeImage(img, Resize{Mode: SizePercent, Percent: 50})
	if err != nil {
		t.Fatalf("ResizeImage failed: %v", err)
	}
	if out.Width != 4 || out.Height != 2 {
		t.Fatalf("size = %dx%d, want 4x2", out.Width, out.Height)
	}
	for i := 0; i < 8; i++ {
		if out.Pix[i*3] != 10 || out.Pix[i*3+1] != 20 || out.Pix[i*3+2] != 30 {
			t.Fatalf("uniform image changed at %d: %v", i, out.Pix[i*3:i*3+3])
		}
	}

	padded, err := ResizeImage(img, Resize{Width: 8, Height: 8, Fit: FitPad, Bar: color.RGBA{255, 0, 0, 255}})
	if err != nil {
		t.Fatalf("ResizeImage pad failed: %v", err)
	}
	if padded.Pix[0] != 255 || padded.Pix[1] != 0 {
		t.Errorf("top-left should be bar colour, got %v", padded.Pix[:3])
	}
	mid := padded.Offset(4, 4, 0)
	if padded.Pix[mid] != 10 {
		t.Errorf("centre = %v, want image content", padded.Pix[mid:mid+3])
	}

	cropped, err := ResizeImage(img, Resize{Width: 4, Height: 4, Fit: FitCrop})
	if err != nil {
		t.Fatalf("ResizeImage crop failed: %v", err)
	}
	if cropped.Width != 4 || cropped.Height != 4 || cropped.Pix[0] != 10 {
		t.Errorf("crop-to-fit = %dx%d %v", cropped.Width, cropped.Height, cropped.Pix[:3])
	}
}

func TestResizeKeepsDepth(t *testing.T) {
	img := pipeline.NewImage(4, 4, 1, 16, 12)
	for i := range img.Pix {
		img.Pix[i] = 3000
	}
	out, err := ResizeImage(img, Resize{Width: 2, Height: 2})
	if err != nil {
		t.Fatal(err)
	}
	if out.Depth != 16 || out.Bits != 12 || out.Pix[0] != 3000 {
		t.Errorf("depth %d bits %d value %d", out.Depth, out.Bits, out.Pix[0])
	}
}

func TestInvert(t *testing.T) {
	img := pipeline.NewImage(2, 1, 1, 16, 12)
	copy(img.Pix, []uint16{0, 1000})
	out := Invert(img)
	if out.Pix[0] != 4095 || out.Pix[1] != 3095 {
		t.Errorf("Invert = %v", out.Pix)
	}
}

type fakeRenderer struct{}

func (fakeRenderer) EncodeImage(image.Image, ports.ImageFormat, int) ([]byte, error) {
	return nil, nil
}

func (fakeRenderer) RenderLabel(text string, scale int) *image.Alpha {
	m := image.NewAlpha(image.Rect(0, 0, 2*scale, 2*scale))
	for i := range m.Pix {
		m.Pix[i] = 255
	}
	return m
}

func TestLabel(t *testing.T) {
	img := pipeline.NewImage(16, 16, 1, 8, 8)
	img.Index = 4
	out := DrawLabel(img, fakeRenderer{}, Label{Scale: 1})
	if out.Pix[out.Offset(4, 4, 0)] != 255 {
		t.Error("label pixel not drawn at margin")
	}
	if out.Pix[0] != 0 {
		t.Error("pixel outside label changed")
	}
	if got := LabelText(img, Label{Content: LabelFrameNumber}); got != "#5" {
		t.Errorf("LabelText = %q", got)
	}
}

func TestNewChain(t *testing.T) {
	empty, err := NewChain(Options{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !empty.Empty() {
		t.Errorf("zero options should build an empty chain, got %v", empty.Names())
	}
	img := rgb(2, 2, 1, 2, 3)
	out, _ := empty.Execute(context.Background(), img)
	if out != img {
		t.Error("empty chain should return its input")
	}

	opts := Options{
		Debayer:    true,
		Mono:       MonoRGB,
		AlignRed:   Offset{X: 1},
		Gain:       1.5,
		Saturation: ptr(120.0),
		Balance:    Balance{Mode: BalanceManual, R: 1.1, G: 1, B: 1},
		Crop:       &pipeline.Rectangle{Width: 2, Height: 2},
		Resize:     &Resize{Width: 1, Height: 1},
		Invert:     true,
		Label:      &Label{},
	}
	if _, err := NewChain(opts, nil); err == nil {
		t.Error("label without renderer should fail")
	}
	chain, err := NewChain(opts, fakeRenderer{})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"debayer", "mono", "align", "gain-gamma", "saturation", "balance", "crop", "resize", "invert", "label"}
	if !reflect.DeepEqual(chain.Names(), want) {
		t.Errorf("Names() = %v, want %v", chain.Names(), want)
	}
}

func TestNewChain_ZeroSaturationIsGrey(t *testing.T) {
	chain, err := NewChain(Options{Saturation: ptr(0.0)}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(chain.Names(), []string{"saturation"}) {
		t.Fatalf("Names() = %v, want [saturation]", chain.Names())
	}
	out, err := chain.Execute(context.Background(), rgb(1, 1, 200, 50, 10))
	if err != nil {
		t.Fatal(err)
	}
	// 0.299*200 + 0.587*50 + 0.114*10 = 90.29
	if out.Pix[0] != 90 || out.Pix[1] != 90 || out.Pix[2] != 90 {
		t.Errorf("pixel = %v, want [90 90 90]", out.Pix)
	}

	unchanged, _ := NewChain(Options{Saturation: ptr(100.0)}, nil)
	if !unchanged.Empty() {
		t.Errorf("100%% saturation should be left out, got %v", unchanged.Names())
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		wantErr error
	}{
		{"zero", Options{}, nil},
		{"crop inside", Options{Crop: &pipeline.Rectangle{X: 2, Y: 2, Width: 6, Height: 6}}, nil},
		{"crop outside", Options{Crop: &pipeline.Rectangle{X: 5, Y: 5, Width: 6, Height: 6}}, ErrCropBounds},
		{"crop empty", Options{Crop: &pipeline.Rectangle{Width: 0, Height: 6}}, ErrCropBounds},
		{"resize zero", Options{Resize: &Resize{Width: 0, Height: 10}}, ErrResizeTarget},
		{"resize percent", Options{Resize: &Resize{Mode: SizePercent}}, ErrResizeTarget},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.Validate(10, 10)
			if tt.wantErr == nil && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseOptionNames(t *testing.T) {
	if m, err := ParseMonoMode("RGB"); err != nil || m != MonoRGB {
		t.Errorf("ParseMonoMode(RGB) = %v, %v", m, err)
	}
	if m, err := ParseBalanceMode("reference"); err != nil || m != BalanceAutoReference {
		t.Errorf("ParseBalanceMode(reference) = %v, %v", m, err)
	}
	if f, err := ParseFitMode("pad"); err != nil || f != FitPad {
		t.Errorf("ParseFitMode(pad) = %v, %v", f, err)
	}
	if c, err := ParseLabelContent("both"); err != nil || c != LabelBoth {
		t.Errorf("ParseLabelContent(both) = %v, %v", c, err)
	}
	if c, err := ParseCorner("bottom-right"); err != nil || c != BottomRight {
		t.Errorf("ParseCorner(bottom-right) = %v, %v", c, err)
	}

	for _, bad := range []func() error{
		func() error { _, err := ParseMonoMode("cmy"); return err },
		func() error { _, err := ParseBalanceMode("magic"); return err },
		func() error { _, err := ParseFitMode("zoom"); return err },
		func() error { _, err := ParseLabelContent("date"); return err },
		func() error { _, err := ParseCorner("middle"); return err },
	} {
		if bad() == nil {
			t.Error("expected error for unknown name")
		}
	}
}
