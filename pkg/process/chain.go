package process

import (
	"context"
	"errors"

	"github.com/user/serexport/pkg/pipeline"
	"github.com/user/serexport/pkg/ports"
)

// Step is one processing operator.
type Step = pipeline.Stage[*pipeline.Image, *pipeline.Image]

// Chain applies the enabled operators in a fixed order:
// debayer, mono, align, gain/gamma, saturation, balance, crop, resize,
// invert, label.
//
// A chain is built for one export run and may keep state between frames
// (the reference balance), so it must not be shared between runs.
type Chain struct {
	steps []Step
	names []string
}

// NewChain builds the chain for opts. Operators whose parameters are a
// no-op are left out. renderer is only needed when a label is requested.
func NewChain(opts Options, renderer ports.Renderer) (*Chain, error) {
	c := &Chain{}
	add := func(name string, fn func(ctx context.Context, img *pipeline.Image) (*pipeline.Image, error)) {
		c.steps = append(c.steps, pipeline.StageFunc[*pipeline.Image, *pipeline.Image](fn))
		c.names = append(c.names, name)
	}
	pure := func(name string, fn func(img *pipeline.Image) *pipeline.Image) {
		add(name, func(_ context.Context, img *pipeline.Image) (*pipeline.Image, error) {
			return fn(img), nil
		})
	}

	if opts.Debayer {
		pattern := opts.Pattern
		pure("debayer", func(img *pipeline.Image) *pipeline.Image {
			return Debayer(img, pattern)
		})
	}
	if opts.Mono != MonoNone {
		mode := opts.Mono
		pure("mono", func(img *pipeline.Image) *pipeline.Image {
			return Monochrome(img, mode)
		})
	}
	if opts.AlignRed != (Offset{}) || opts.AlignBlue != (Offset{}) {
		red, blue := opts.AlignRed, opts.AlignBlue
		pure("align", func(img *pipeline.Image) *pipeline.Image {
			return Align(img, red, blue)
		})
	}
	if curve := newToneCurve(opts.Gain, opts.Gamma); !curve.identity() {
		pure("gain-gamma", curve.Apply)
	}
	if opts.Saturation != nil && *opts.Saturation != 100 {
		pct := *opts.Saturation
		pure("saturation", func(img *pipeline.Image) *pipeline.Image {
			return Saturate(img, pct)
		})
	}
	if step := balanceStep(opts.Balance); step != nil {
		pure("balance", step)
	}
	if opts.Crop != nil {
		r := *opts.Crop
		add("crop", func(_ context.Context, img *pipeline.Image) (*pipeline.Image, error) {
			return Crop(img, r)
		})
	}
	if opts.Resize != nil {
		rs := *opts.Resize
		add("resize", func(_ context.Context, img *pipeline.Image) (*pipeline.Image, error) {
			return ResizeImage(img, rs)
		})
	}
	if opts.Invert {
		pure("invert", Invert)
	}
	if opts.Label != nil {
		if renderer == nil {
			return nil, errors.New("label overlay requires a renderer")
		}
		l := *opts.Label
		pure("label", func(img *pipeline.Image) *pipeline.Image {
			return DrawLabel(img, renderer, l)
		})
	}
	return c, nil
}

func balanceStep(b Balance) func(*pipeline.Image) *pipeline.Image {
	switch b.Mode {
	case BalanceManual:
		if b.R == 1 && b.G == 1 && b.B == 1 {
			return nil
		}
		return func(img *pipeline.Image) *pipeline.Image {
			return ApplyBalance(img, b.R, b.G, b.B)
		}
	case BalanceAuto:
		return func(img *pipeline.Image) *pipeline.Image {
			r, g, bl := EstimateBalance(img)
			return ApplyBalance(img, r, g, bl)
		}
	case BalanceAutoReference:
		var ref *[3]float64
		return func(img *pipeline.Image) *pipeline.Image {
			if ref == nil {
				r, g, bl := EstimateBalance(img)
				ref = &[3]float64{r, g, bl}
			}
			return ApplyBalance(img, ref[0], ref[1], ref[2])
		}
	}
	return nil
}

// Names returns the enabled operators in execution order.
func (c *Chain) Names() []string {
	return append([]string(nil), c.names...)
}

// Empty reports whether the chain leaves frames untouched.
func (c *Chain) Empty() bool {
	return len(c.steps) == 0
}

// Execute runs img through every enabled operator.
func (c *Chain) Execute(ctx context.Context, img *pipeline.Image) (*pipeline.Image, error) {
	return pipeline.Chain(ctx, img, c.steps...)
}

var _ Step = (*Chain)(nil)
