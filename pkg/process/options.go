// Package process implements the per-frame processing operators applied
// between decoding and encoding: debayer, monochrome fold, channel
// alignment, gain and gamma, saturation, colour balance, crop, resize,
// invert and label overlay.
package process

import (
	"fmt"
	"image/color"
	"strings"

	"github.com/user/serexport/pkg/pipeline"
	"github.com/user/serexport/pkg/timestamp"
)

// MonoMode selects which channels are averaged into a monochrome frame.
type MonoMode int

const (
	MonoNone MonoMode = iota
	MonoR
	MonoG
	MonoB
	MonoRG
	MonoRB
	MonoGB
	MonoRGB
)

var monoNames = map[string]MonoMode{
	"": MonoNone, "none": MonoNone,
	"r": MonoR, "g": MonoG, "b": MonoB,
	"rg": MonoRG, "rb": MonoRB, "gb": MonoGB, "rgb": MonoRGB,
}

// ParseMonoMode parses names such as "rgb" or "g".
func ParseMonoMode(s string) (MonoMode, error) {
	if m, ok := monoNames[strings.ToLower(s)]; ok {
		return m, nil
	}
	return MonoNone, fmt.Errorf("unknown mono mode: %s", s)
}

// channels returns the RGB channel indices that contribute to the fold.
func (m MonoMode) channels() []int {
	switch m {
	case MonoR:
		return []int{0}
	case MonoG:
		return []int{1}
	case MonoB:
		return []int{2}
	case MonoRG:
		return []int{0, 1}
	case MonoRB:
		return []int{0, 2}
	case MonoGB:
		return []int{1, 2}
	case MonoRGB:
		return []int{0, 1, 2}
	}
	return nil
}

// BalanceMode selects how colour balance factors are obtained.
type BalanceMode int

const (
	BalanceOff BalanceMode = iota
	BalanceManual
	// BalanceAuto recomputes mean-normalised factors for every frame.
	BalanceAuto
	// BalanceAutoReference computes factors once, from the first frame
	// processed, and applies them to the whole run.
	BalanceAutoReference
)

// Balance configures per-channel multipliers.
type Balance struct {
	Mode    BalanceMode
	R, G, B float64 // Manual factors; 1.0 leaves a channel unchanged
}

// Offset is a channel displacement in pixels.
type Offset struct {
	X, Y int
}

// SizeMode says how resize dimensions are given.
type SizeMode int

const (
	SizePixels SizeMode = iota
	SizePercent
)

// FitMode says how aspect ratio mismatches are resolved.
type FitMode int

const (
	// FitStretch scales to the exact target size.
	FitStretch FitMode = iota
	// FitPad scales to fit inside the target and fills the rest with bars.
	FitPad
	// FitCrop scales to cover the target and crops the overflow.
	FitCrop
)

// Resize describes an output size change.
type Resize struct {
	Mode    SizeMode
	Width   int
	Height  int
	Percent float64
	Fit     FitMode
	Bar     color.Color // Bar colour for FitPad; black when nil
}

// Target returns the output size for a width x height input.
func (r Resize) Target(width, height int) (int, int) {
	if r.Mode == SizePercent {
		w := int(float64(width)*r.Percent/100 + 0.5)
		h := int(float64(height)*r.Percent/100 + 0.5)
		return max(w, 1), max(h, 1)
	}
	return r.Width, r.Height
}

// LabelContent selects the text drawn by the label overlay.
type LabelContent int

const (
	LabelFrameNumber LabelContent = iota
	LabelTimestamp
	LabelBoth
)

// Corner is a label anchor.
type Corner int

const (
	TopLeft Corner = iota
	TopRight
	BottomLeft
	BottomRight
)

// Label configures the text overlay.
type Label struct {
	Content LabelContent
	Corner  Corner
	Scale   int // Integer magnification of the base font, at least 1

	// TimeBase converts frame timestamps to UTC for display.
	TimeBase timestamp.Base
}

// Options is the full set of processing parameters. The zero value leaves
// frames untouched.
type Options struct {
	Debayer bool
	// Pattern overrides the mosaic pattern declared by the container.
	Pattern pipeline.CFA

	Mono MonoMode

	AlignRed  Offset
	AlignBlue Offset

	Gain  float64 // 0 or 1 leaves samples unchanged
	Gamma float64 // 0 or 1 leaves samples unchanged

	Saturation *float64 // Percent; nil or 100 leaves samples unchanged, 0 is grey

	Balance Balance

	Crop   *pipeline.Rectangle
	Resize *Resize

	Invert bool

	Label *Label
}

// Validate checks the options against the input frame size.
func (o Options) Validate(width, height int) error {
	if o.Gain < 0 {
		return fmt.Errorf("gain must not be negative: %g", o.Gain)
	}
	if o.Gamma < 0 {
		return fmt.Errorf("gamma must not be negative: %g", o.Gamma)
	}
	if o.Saturation != nil && *o.Saturation < 0 {
		return fmt.Errorf("saturation must not be negative: %g", *o.Saturation)
	}
	if o.Balance.Mode == BalanceManual && (o.Balance.R < 0 || o.Balance.G < 0 || o.Balance.B < 0) {
		return fmt.Errorf("balance factors must not be negative")
	}
	if o.Crop != nil && !o.Crop.Within(width, height) {
		return fmt.Errorf("%w: %s outside %dx%d", ErrCropBounds, o.Crop, width, height)
	}
	if o.Resize != nil {
		if o.Resize.Mode == SizePercent && o.Resize.Percent <= 0 {
			return fmt.Errorf("%w: percent %g", ErrResizeTarget, o.Resize.Percent)
		}
		if o.Resize.Mode == SizePixels && (o.Resize.Width <= 0 || o.Resize.Height <= 0) {
			return fmt.Errorf("%w: %dx%d", ErrResizeTarget, o.Resize.Width, o.Resize.Height)
		}
	}
	if o.Label != nil && o.Label.Scale < 0 {
		return fmt.Errorf("label scale must not be negative: %d", o.Label.Scale)
	}
	return nil
}

var balanceNames = map[string]BalanceMode{
	"": BalanceOff, "off": BalanceOff,
	"manual":    BalanceManual,
	"auto":      BalanceAuto,
	"reference": BalanceAutoReference,
}

// ParseBalanceMode parses "off", "manual", "auto" or "reference".
func ParseBalanceMode(s string) (BalanceMode, error) {
	if m, ok := balanceNames[strings.ToLower(s)]; ok {
		return m, nil
	}
	return BalanceOff, fmt.Errorf("unknown balance mode: %s", s)
}

// ParseFitMode parses "stretch", "pad" or "crop".
func ParseFitMode(s string) (FitMode, error) {
	switch strings.ToLower(s) {
	case "", "stretch":
		return FitStretch, nil
	case "pad":
		return FitPad, nil
	case "crop":
		return FitCrop, nil
	}
	return FitStretch, fmt.Errorf("unknown fit mode: %s", s)
}

// ParseLabelContent parses "frame", "timestamp" or "both".
func ParseLabelContent(s string) (LabelContent, error) {
	switch strings.ToLower(s) {
	case "", "frame":
		return LabelFrameNumber, nil
	case "timestamp", "time":
		return LabelTimestamp, nil
	case "both":
		return LabelBoth, nil
	}
	return LabelFrameNumber, fmt.Errorf("unknown label content: %s", s)
}

var cornerNames = map[string]Corner{
	"": TopLeft, "top-left": TopLeft,
	"top-right":    TopRight,
	"bottom-left":  BottomLeft,
	"bottom-right": BottomRight,
}

// ParseCorner parses "top-left", "top-right", "bottom-left" or "bottom-right".
func ParseCorner(s string) (Corner, error) {
	if c, ok := cornerNames[strings.ToLower(s)]; ok {
		return c, nil
	}
	return TopLeft, fmt.Errorf("unknown corner: %s", s)
}
