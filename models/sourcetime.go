package models

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

const (
	// pulseRangeWidths is how many fwidths around freq0 carry non-negligible
	// spectral content for a Gaussian pulse (exp(-8) of the peak).
	pulseRangeWidths = 4.0
	// minPulseOffset keeps the pulse peak far enough after t=0 that the
	// truncated leading edge is negligible.
	minPulseOffset = 2.5
	// spectrumThreshold is the relative magnitude below which custom envelope
	// spectra are treated as empty.
	spectrumThreshold = 1e-3
)

// SourceTime is the temporal dependence of a source.
type SourceTime interface {
	// Kind returns the wire name, e.g. "GaussianPulse".
	Kind() string
	CentralFrequency() float64
	// FrequencyRange returns the lowest and highest frequency with
	// non-negligible spectral content.
	FrequencyRange() (float64, float64)
	// Amplitude returns the real signal at time t. It is zero for t < 0.
	Amplitude(t float64) float64
}

type pulseParams struct {
	offset    float64
	phase     float64
	amplitude float64
}

// PulseOption configures a GaussianPulse or ContinuousWave
type PulseOption func(*pulseParams)

// WithOffset sets the envelope delay in units of 1/(2π fwidth).
func WithOffset(offset float64) PulseOption {
	return func(p *pulseParams) {
		p.offset = offset
	}
}

// WithPhase sets the carrier phase in radians.
func WithPhase(phase float64) PulseOption {
	return func(p *pulseParams) {
		p.phase = phase
	}
}

// WithAmplitude scales the signal.
func WithAmplitude(amplitude float64) PulseOption {
	return func(p *pulseParams) {
		p.amplitude = amplitude
	}
}

func newPulseParams(freq0, fwidth float64, opts []PulseOption) (pulseParams, error) {
	p := pulseParams{offset: 5.0, amplitude: 1.0}
	for _, opt := range opts {
		opt(&p)
	}
	if !(freq0 > 0) || math.IsInf(freq0, 0) {
		return p, fmt.Errorf("%w: freq0 %g must be positive", ErrInvalidFrequency, freq0)
	}
	if !(fwidth > 0) || math.IsInf(fwidth, 0) {
		return p, fmt.Errorf("%w: fwidth %g must be positive", ErrInvalidFrequency, fwidth)
	}
	if math.IsNaN(p.offset) || p.offset < minPulseOffset {
		return p, fmt.Errorf("%w: offset %g is below %g, the pulse would start before t=0", ErrInvalidSourceTime, p.offset, minPulseOffset)
	}
	if math.IsNaN(p.phase) || math.IsNaN(p.amplitude) || math.IsInf(p.amplitude, 0) {
		return p, fmt.Errorf("%w: phase and amplitude must be finite", ErrInvalidSourceTime)
	}
	return p, nil
}

// GaussianPulse is a Gaussian envelope modulating a carrier at freq0.
type GaussianPulse struct {
	freq0  float64
	fwidth float64
	params pulseParams
}

// NewGaussianPulse creates a pulse centered at freq0 with spectral standard
// deviation fwidth. The envelope peak sits at offset/(2π fwidth), default offset 5.
func NewGaussianPulse(freq0, fwidth float64, opts ...PulseOption) (*GaussianPulse, error) {
	p, err := newPulseParams(freq0, fwidth, opts)
	if err != nil {
		return nil, err
	}
	return &GaussianPulse{freq0: freq0, fwidth: fwidth, params: p}, nil
}

func (g *GaussianPulse) Kind() string              { return "GaussianPulse" }
func (g *GaussianPulse) CentralFrequency() float64 { return g.freq0 }
func (g *GaussianPulse) Bandwidth() float64        { return g.fwidth }
func (g *GaussianPulse) Offset() float64           { return g.params.offset }
func (g *GaussianPulse) Phase() float64            { return g.params.phase }
func (g *GaussianPulse) Scale() float64            { return g.params.amplitude }

func (g *GaussianPulse) FrequencyRange() (float64, float64) {
	lo := math.Max(0, g.freq0-pulseRangeWidths*g.fwidth)
	return lo, g.freq0 + pulseRangeWidths*g.fwidth
}

// PeakTime returns the time of the envelope maximum.
func (g *GaussianPulse) PeakTime() float64 {
	return g.params.offset / (2 * math.Pi * g.fwidth)
}

func (g *GaussianPulse) Amplitude(t float64) float64 {
	if t < 0 {
		return 0
	}
	twidth := 1 / (2 * math.Pi * g.fwidth)
	dt := t - g.PeakTime()
	env := math.Exp(-dt * dt / (2 * twidth * twidth))
	return g.params.amplitude * env * math.Cos(2*math.Pi*g.freq0*t+g.params.phase)
}

// ContinuousWave ramps up with a Gaussian edge and then stays on at freq0.
type ContinuousWave struct {
	freq0  float64
	fwidth float64
	params pulseParams
}

// NewContinuousWave creates a continuous source whose turn-on has spectral width fwidth.
func NewContinuousWave(freq0, fwidth float64, opts ...PulseOption) (*ContinuousWave, error) {
	p, err := newPulseParams(freq0, fwidth, opts)
	if err != nil {
		return nil, err
	}
	return &ContinuousWave{freq0: freq0, fwidth: fwidth, params: p}, nil
}

func (c *ContinuousWave) Kind() string              { return "ContinuousWave" }
func (c *ContinuousWave) CentralFrequency() float64 { return c.freq0 }
func (c *ContinuousWave) Bandwidth() float64        { return c.fwidth }
func (c *ContinuousWave) Offset() float64           { return c.params.offset }
func (c *ContinuousWave) Phase() float64            { return c.params.phase }
func (c *ContinuousWave) Scale() float64            { return c.params.amplitude }

func (c *ContinuousWave) FrequencyRange() (float64, float64) {
	return math.Max(0, c.freq0-c.fwidth), c.freq0 + c.fwidth
}

func (c *ContinuousWave) Amplitude(t float64) float64 {
	if t < 0 {
		return 0
	}
	twidth := 1 / (2 * math.Pi * c.fwidth)
	t0 := c.params.offset * twidth
	env := 1.0
	if t < t0 {
		dt := t - t0
		env = math.Exp(-dt * dt / (2 * twidth * twidth))
	}
	return c.params.amplitude * env * math.Cos(2*math.Pi*c.freq0*t+c.params.phase)
}

// CustomSourceTime modulates a carrier with a sampled envelope starting at t=0.
type CustomSourceTime struct {
	freq0   float64
	dt      float64
	samples []float64
	lo, hi  float64
}

// NewCustomSourceTime creates a source time from envelope samples spaced dt apart.
// The spectral support is derived from the FFT of the envelope.
func NewCustomSourceTime(freq0, dt float64, samples []float64) (*CustomSourceTime, error) {
	if !(freq0 > 0) || math.IsInf(freq0, 0) {
		return nil, fmt.Errorf("%w: freq0 %g must be positive", ErrInvalidFrequency, freq0)
	}
	if !(dt > 0) || math.IsInf(dt, 0) {
		return nil, fmt.Errorf("%w: sample spacing %g must be positive", ErrInvalidSourceTime, dt)
	}
	if len(samples) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 envelope samples, got %d", ErrInvalidSourceTime, len(samples))
	}
	peak := 0.0
	for i, s := range samples {
		if math.IsNaN(s) || math.IsInf(s, 0) {
			return nil, fmt.Errorf("%w: envelope sample %d is not finite", ErrInvalidSourceTime, i)
		}
		peak = math.Max(peak, math.Abs(s))
	}
	if peak == 0 {
		return nil, fmt.Errorf("%w: envelope is identically zero", ErrInvalidSourceTime)
	}

	c := &CustomSourceTime{freq0: freq0, dt: dt, samples: append([]float64(nil), samples...)}
	bw := envelopeBandwidth(c.samples, dt)
	c.lo = math.Max(0, freq0-bw)
	c.hi = freq0 + bw
	return c, nil
}

// envelopeBandwidth returns the highest frequency at which the envelope
// spectrum is above spectrumThreshold of its peak.
func envelopeBandwidth(samples []float64, dt float64) float64 {
	n := 1
	for n < 4*len(samples) {
		n <<= 1
	}
	padded := make([]float64, n)
	copy(padded, samples)
	spectrum := fft.FFTReal(padded)

	half := n / 2
	mags := make([]float64, half+1)
	peak := 0.0
	for k := 0; k <= half; k++ {
		mags[k] = cmplx.Abs(spectrum[k])
		peak = math.Max(peak, mags[k])
	}
	df := 1 / (float64(n) * dt)
	for k := half; k >= 0; k-- {
		if mags[k] >= spectrumThreshold*peak {
			return float64(k) * df
		}
	}
	return 0
}

func (c *CustomSourceTime) Kind() string                       { return "CustomSourceTime" }
func (c *CustomSourceTime) CentralFrequency() float64          { return c.freq0 }
func (c *CustomSourceTime) SampleSpacing() float64             { return c.dt }
func (c *CustomSourceTime) Samples() []float64                 { return append([]float64(nil), c.samples...) }
func (c *CustomSourceTime) FrequencyRange() (float64, float64) { return c.lo, c.hi }

func (c *CustomSourceTime) Amplitude(t float64) float64 {
	if !(t >= 0) {
		return 0
	}
	pos := t / c.dt
	last := len(c.samples) - 1
	if pos >= float64(last) {
		if pos == float64(last) {
			return c.samples[last] * math.Cos(2*math.Pi*c.freq0*t)
		}
		return 0
	}
	i := int(math.Floor(pos))
	frac := pos - float64(i)
	env := c.samples[i]*(1-frac) + c.samples[i+1]*frac
	return env * math.Cos(2*math.Pi*c.freq0*t)
}
