package gifencoder

import (
	"fmt"
	"strings"
)

// Quantizer selects the palette reduction algorithm.
type Quantizer int

const (
	// QuantizerNeuralNet uses NeuQuant: slower, better gradients.
	QuantizerNeuralNet Quantizer = iota
	// QuantizerMedianCut uses median cut: fast, good on flat colours.
	QuantizerMedianCut
)

func (q Quantizer) String() string {
	switch q {
	case QuantizerNeuralNet:
		return "neuquant"
	case QuantizerMedianCut:
		return "mediancut"
	}
	return fmt.Sprintf("Quantizer(%d)", int(q))
}

// ParseQuantizer parses "neuquant" or "mediancut".
func ParseQuantizer(s string) (Quantizer, error) {
	switch strings.ToLower(s) {
	case "neuquant", "nn", "neural":
		return QuantizerNeuralNet, nil
	case "mediancut", "median":
		return QuantizerMedianCut, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidQuantizer, s)
}

// Options controls GIF quality and size trade-offs.
type Options struct {
	Quantizer Quantizer

	// SampleFactor is the NeuQuant sampling factor (1 = every pixel, 30 = fastest).
	SampleFactor int

	// BorderTolerance is the largest per-channel difference to the displayed
	// frame that still counts as unchanged. Unchanged pixels become
	// transparent and frames are trimmed to the changed area.
	BorderTolerance int

	// TransparentTolerance lets transparent areas grow into neighbouring
	// pixels that differ by up to BorderTolerance+TransparentTolerance.
	TransparentTolerance int

	// ColorTableBits sets the local colour table size to 2^bits entries (1..8).
	// One entry is reserved for transparency.
	ColorTableBits int

	// Lossy merges pixel runs whose colours differ by up to 3*Lossy (0..10).
	Lossy int

	// FrameDelay and FinalFrameDelay are in centiseconds. A zero final
	// delay reuses FrameDelay.
	FrameDelay      int
	FinalFrameDelay int

	// Fallback names a preset whose settings are also tried for every
	// frame, as far as they stay within these tolerances, lossy level and
	// colour table size. The smallest encoding wins. 0 disables it.
	Fallback int
}

// DefaultOptions returns preset 2.
func DefaultOptions() Options {
	o, _ := Preset(2)
	return o
}

// Presets lists the preset numbers accepted by Preset.
var Presets = []int{1, 2, 3, 4, 5}

// Preset returns a named default set, from 1 (best quality) to 5 (smallest
// file). Frame delays are left at 10 cs; callers usually override them.
func Preset(n int) (Options, error) {
	o := Options{SampleFactor: 10, FrameDelay: 10, Fallback: n - 1}
	switch n {
	case 1:
		o.Quantizer, o.ColorTableBits, o.SampleFactor = QuantizerNeuralNet, 8, 1
	case 2:
		o.Quantizer, o.ColorTableBits = QuantizerNeuralNet, 8
		o.BorderTolerance = 2
	case 3:
		o.Quantizer, o.ColorTableBits = QuantizerNeuralNet, 7
		o.BorderTolerance, o.TransparentTolerance, o.Lossy = 4, 2, 1
	case 4:
		o.Quantizer, o.ColorTableBits = QuantizerMedianCut, 6
		o.BorderTolerance, o.TransparentTolerance, o.Lossy = 8, 4, 3
	case 5:
		o.Quantizer, o.ColorTableBits = QuantizerMedianCut, 5
		o.BorderTolerance, o.TransparentTolerance, o.Lossy = 12, 8, 6
	default:
		return Options{}, fmt.Errorf("%w: %d", ErrInvalidPreset, n)
	}
	return o, nil
}

// Validate checks value ranges.
func (o Options) Validate() error {
	switch {
	case o.Quantizer != QuantizerNeuralNet && o.Quantizer != QuantizerMedianCut:
		return fmt.Errorf("%w: %d", ErrInvalidQuantizer, o.Quantizer)
	case o.ColorTableBits < 1 || o.ColorTableBits > 8:
		return fmt.Errorf("%w: color table bits %d", ErrInvalidOption, o.ColorTableBits)
	case o.Lossy < 0 || o.Lossy > 10:
		return fmt.Errorf("%w: lossy %d", ErrInvalidOption, o.Lossy)
	case o.BorderTolerance < 0 || o.BorderTolerance > 255:
		return fmt.Errorf("%w: border tolerance %d", ErrInvalidOption, o.BorderTolerance)
	case o.TransparentTolerance < 0 || o.TransparentTolerance > 255:
		return fmt.Errorf("%w: transparent tolerance %d", ErrInvalidOption, o.TransparentTolerance)
	case o.SampleFactor < 0 || o.SampleFactor > 30:
		return fmt.Errorf("%w: sample factor %d", ErrInvalidOption, o.SampleFactor)
	case o.Fallback < 0 || o.Fallback > len(Presets):
		return fmt.Errorf("%w: fallback preset %d", ErrInvalidOption, o.Fallback)
	case o.FrameDelay < 0 || o.FrameDelay > 0xffff || o.FinalFrameDelay < 0 || o.FinalFrameDelay > 0xffff:
		return fmt.Errorf("%w: delay out of range", ErrInvalidOption)
	}
	return nil
}

func (o Options) finalDelay() int {
	if o.FinalFrameDelay > 0 {
		return o.FinalFrameDelay
	}
	return o.FrameDelay
}

// paletteKey identifies the colour table a trial quantizes to.
type paletteKey struct {
	quantizer    Quantizer
	sampleFactor int
	bits         int
}

func (o Options) paletteKey() paletteKey {
	k := paletteKey{quantizer: o.Quantizer, bits: o.ColorTableBits}
	if o.Quantizer == QuantizerNeuralNet {
		k.sampleFactor = o.SampleFactor
		if k.sampleFactor == 0 {
			k.sampleFactor = 10
		}
	}
	return k
}

// trial is one way of encoding a frame.
type trial struct {
	palette paletteKey
	border  int
	spread  int
	lossy   int
}

// trials returns every border tolerance and lossy level up to the
// configured ones, followed by the fallback preset's trials that fit
// within them. Raising a tolerance, the lossy level or the preset number
// only ever adds trials.
func (o Options) trials() []trial {
	var out []trial
	seen := make(map[trial]bool)
	add := func(t trial) {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}

	key := o.paletteKey()
	for b := 0; b <= o.BorderTolerance; b++ {
		for l := 0; l <= o.Lossy; l++ {
			add(trial{palette: key, border: b, spread: o.TransparentTolerance, lossy: l})
		}
	}

	if o.Fallback > 0 {
		base, err := Preset(o.Fallback)
		if err != nil {
			return out
		}
		for _, t := range base.trials() {
			if t.border <= o.BorderTolerance && t.spread <= o.TransparentTolerance &&
				t.lossy <= o.Lossy && t.palette.bits >= o.ColorTableBits {
				add(t)
			}
		}
	}
	return out
}
