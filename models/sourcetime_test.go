package models_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fdtd-sdk/models"
)

func TestGaussianPulse_FrequencyRange(t *testing.T) {
	g, err := models.NewGaussianPulse(4e14, 4e13)
	require.NoError(t, err)

	lo, hi := g.FrequencyRange()
	assert.InDelta(t, 2.4e14, lo, 1)
	assert.InDelta(t, 5.6e14, hi, 1)
	assert.Equal(t, 5.0, g.Offset())

	wide, err := models.NewGaussianPulse(1e14, 1e14)
	require.NoError(t, err)
	lo, _ = wide.FrequencyRange()
	assert.Equal(t, 0.0, lo, "range is clamped at zero")
}

func TestGaussianPulse_Validation(t *testing.T) {
	_, err := models.NewGaussianPulse(0, 1e13)
	require.ErrorIs(t, err, models.ErrInvalidFrequency)
	_, err = models.NewGaussianPulse(1e14, -1)
	require.ErrorIs(t, err, models.ErrInvalidFrequency)
	_, err = models.NewGaussianPulse(1e14, 1e13, models.WithOffset(1))
	require.ErrorIs(t, err, models.ErrInvalidSourceTime)
}

func TestGaussianPulse_PeakAndCausality(t *testing.T) {
	g, err := models.NewGaussianPulse(2e14, 2e13, models.WithAmplitude(3))
	require.NoError(t, err)

	peak := g.PeakTime()
	assert.InDelta(t, 3.0*math.Cos(2*math.Pi*2e14*peak), g.Amplitude(peak), 1e-9)
	assert.Less(t, math.Abs(g.Amplitude(0)), 3*math.Exp(-12), "envelope is negligible at t=0")
}

func TestSourceTime_ZeroBeforeStart(t *testing.T) {
	g, _ := models.NewGaussianPulse(2e14, 2e13)
	cw, _ := models.NewContinuousWave(2e14, 2e13)
	custom, _ := models.NewCustomSourceTime(2e14, 1e-15, []float64{0, 1, 1, 0})

	for _, st := range []models.SourceTime{g, cw, custom} {
		assert.Equal(t, 0.0, st.Amplitude(-1e-15), st.Kind())
	}
}

func TestCustomSourceTime_ZeroOutsideSamples(t *testing.T) {
	custom, err := models.NewCustomSourceTime(2e14, 1e-15, []float64{0, 1, 1, 0})
	require.NoError(t, err)

	for _, tm := range []float64{4e-15, 1e300, math.Inf(1), math.NaN(), math.Inf(-1)} {
		assert.NotPanics(t, func() { custom.Amplitude(tm) })
		assert.Equal(t, 0.0, custom.Amplitude(tm), "t=%g", tm)
	}
	// the last sample is still reachable
	assert.InDelta(t, 0.0, custom.Amplitude(3e-15), 1e-9)
	assert.InDelta(t, math.Cos(2*math.Pi*2e14*2e-15), custom.Amplitude(2e-15), 1e-9)
}

func TestContinuousWave_StaysOn(t *testing.T) {
	cw, err := models.NewContinuousWave(1e14, 1e13)
	require.NoError(t, err)

	// well past the ramp the envelope is exactly one
	tm := 1e-11
	assert.InDelta(t, math.Cos(2*math.Pi*1e14*tm), cw.Amplitude(tm), 1e-12)
	lo, hi := cw.FrequencyRange()
	assert.Equal(t, 9e13, lo)
	assert.Equal(t, 1.1e14, hi)
}

func TestCustomSourceTime_SpectralSupport(t *testing.T) {
	const (
		freq0  = 2e14
		dt     = 1e-15
		twidth = 1e-14
	)
	samples := make([]float64, 200)
	for i := range samples {
		tt := float64(i-100) * dt
		samples[i] = math.Exp(-tt * tt / (2 * twidth * twidth))
	}

	c, err := models.NewCustomSourceTime(freq0, dt, samples)
	require.NoError(t, err)

	// Gaussian spectrum falls to 1e-3 of its peak at sqrt(2 ln 1000)/(2π twidth)
	want := math.Sqrt(2*math.Log(1000)) / (2 * math.Pi * twidth)
	lo, hi := c.FrequencyRange()
	assert.InDelta(t, want, hi-freq0, 0.1*want)
	assert.InDelta(t, want, freq0-lo, 0.1*want)
}

func TestCustomSourceTime_Validation(t *testing.T) {
	_, err := models.NewCustomSourceTime(1e14, 1e-15, []float64{1})
	require.ErrorIs(t, err, models.ErrInvalidSourceTime)
	_, err = models.NewCustomSourceTime(1e14, 1e-15, []float64{0, 0, 0})
	require.ErrorIs(t, err, models.ErrInvalidSourceTime)
	_, err = models.NewCustomSourceTime(1e14, 0, []float64{0, 1})
	require.ErrorIs(t, err, models.ErrInvalidSourceTime)
	_, err = models.NewCustomSourceTime(-1, 1e-15, []float64{0, 1})
	require.ErrorIs(t, err, models.ErrInvalidFrequency)
}
