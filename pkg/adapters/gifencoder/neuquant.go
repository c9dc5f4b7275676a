package gifencoder

import (
	"image"
	"image/color"
	"image/draw"
	"math"
)

// NeuQuant is Dekker's self-organising map quantizer. It trains a
// one-dimensional network of colours on a sample of the image pixels.
type NeuQuant struct {
	// SampleFactor trains on every n-th pixel (1..30, 0 means 10).
	SampleFactor int
}

const (
	nqCycles       = 100
	nqRadiusDec    = 30
	nqBeta         = 1.0 / 1024
	nqGamma        = 1024.0
	nqMinPixels    = 503
	nqInitialAlpha = 1.0
)

var nqPrimes = []int{499, 491, 487, 503}

// Quantize implements draw.Quantizer.
func (q NeuQuant) Quantize(p color.Palette, m image.Image) color.Palette {
	n := cap(p) - len(p)
	if n <= 0 {
		return p
	}
	px := pixels(m)
	if len(px) == 0 {
		return p
	}
	if exact, ok := exactPalette(px, n); ok {
		return appendColors(p, exact)
	}

	net := newNetwork(n)
	net.learn(px, q.SampleFactor)

	out := make([]rgb, n)
	for i, c := range net.colors {
		for k := 0; k < 3; k++ {
			out[i][k] = uint8(math.Max(0, math.Min(255, math.Round(c[k]))))
		}
	}
	return appendColors(p, out)
}

type network struct {
	colors [][3]float64
	bias   []float64
	freq   []float64
}

func newNetwork(n int) *network {
	net := &network{
		colors: make([][3]float64, n),
		bias:   make([]float64, n),
		freq:   make([]float64, n),
	}
	for i := range net.colors {
		v := float64(i*256) / float64(n)
		net.colors[i] = [3]float64{v, v, v}
		net.freq[i] = 1 / float64(n)
	}
	return net
}

func (net *network) learn(px []rgb, sample int) {
	if sample <= 0 {
		sample = 10
	}
	if len(px) < nqMinPixels {
		sample = 1
	}
	n := len(net.colors)
	total := len(px) / sample
	if total == 0 {
		total = 1
	}
	alphaDec := float64(30 + (sample-1)/3)
	delta := total / nqCycles
	if delta == 0 {
		delta = 1
	}

	step := 1
	for _, prime := range nqPrimes {
		if len(px)%prime != 0 {
			step = prime
			break
		}
	}

	alpha := nqInitialAlpha
	radius := float64(n >> 3)
	rad := int(radius)
	if rad <= 1 {
		rad = 0
	}

	pos := 0
	for i := 0; i < total; i++ {
		c := px[pos]
		v := [3]float64{float64(c[0]), float64(c[1]), float64(c[2])}
		j := net.contest(v)
		net.alter(j, alpha, v)
		if rad > 0 {
			net.alterNeighbours(j, rad, alpha, v)
		}

		pos = (pos + step) % len(px)
		if (i+1)%delta == 0 {
			alpha -= alpha / alphaDec
			radius -= radius / nqRadiusDec
			rad = int(radius)
			if rad <= 1 {
				rad = 0
			}
		}
	}
}

// contest finds the closest neuron, biased against neurons that win often.
func (net *network) contest(v [3]float64) int {
	bestD, bestBiasD := math.Inf(1), math.Inf(1)
	best, bestBias := 0, 0
	for i, c := range net.colors {
		d := math.Abs(c[0]-v[0]) + math.Abs(c[1]-v[1]) + math.Abs(c[2]-v[2])
		if d < bestD {
			bestD, best = d, i
		}
		if bd := d - net.bias[i]; bd < bestBiasD {
			bestBiasD, bestBias = bd, i
		}
		betaFreq := net.freq[i] * nqBeta
		net.freq[i] -= betaFreq
		net.bias[i] += betaFreq * nqGamma
	}
	net.freq[best] += nqBeta
	net.bias[best] -= nqBeta * nqGamma
	return bestBias
}

func (net *network) alter(i int, alpha float64, v [3]float64) {
	c := &net.colors[i]
	for k := 0; k < 3; k++ {
		c[k] -= alpha * (c[k] - v[k])
	}
}

func (net *network) alterNeighbours(i, rad int, alpha float64, v [3]float64) {
	r2 := float64(rad * rad)
	lo, hi := i-rad, i+rad
	if lo < -1 {
		lo = -1
	}
	if hi > len(net.colors) {
		hi = len(net.colors)
	}
	for d := 1; d < rad; d++ {
		a := alpha * (r2 - float64(d*d)) / r2
		if j := i + d; j < hi {
			net.alter(j, a, v)
		}
		if j := i - d; j > lo {
			net.alter(j, a, v)
		}
	}
}

var _ draw.Quantizer = NeuQuant{}
