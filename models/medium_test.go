package models_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fdtd-sdk/models"
)

func TestNewMedium_Passivity(t *testing.T) {
	cases := []struct {
		name    string
		eps     float64
		opts    []models.MediumOption
		wantErr bool
	}{
		{"glass", 2.25, nil, false},
		{"vacuum", 1, nil, false},
		{"below floor", 0.5, nil, true},
		{"below floor active", 0.5, []models.MediumOption{models.AsActive()}, false},
		{"negative conductivity", 2, []models.MediumOption{models.WithConductivity(-1)}, true},
		{"gain", 2, []models.MediumOption{models.WithConductivity(-1), models.AsActive()}, false},
		{"nan", math.NaN(), nil, true},
		{"bad pole", 2, []models.MediumOption{models.WithLorentzPole(models.LorentzPole{DeltaEps: 1, Freq: -1})}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := models.NewMedium(tc.eps, tc.opts...)
			if tc.wantErr {
				require.ErrorIs(t, err, models.ErrInvalidPermittivity)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestMedium_RefractiveIndex(t *testing.T) {
	m, err := models.NewMedium(4)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, m.RefractiveIndex(3e14), 1e-12)
	assert.False(t, m.IsDispersive())
}

func TestMedium_LorentzStaticLimit(t *testing.T) {
	m, err := models.NewMedium(1, models.WithLorentzPole(models.LorentzPole{DeltaEps: 3, Freq: 1e15, Gamma: 1e13}))
	require.NoError(t, err)

	eps := m.Permittivity(0)
	assert.InDelta(t, 4.0, real(eps), 1e-12)
	assert.InDelta(t, 0.0, imag(eps), 1e-12)
	assert.True(t, m.IsDispersive())
}

func TestMedium_ConductivityAddsLoss(t *testing.T) {
	m, err := models.NewMedium(2, models.WithConductivity(1e-6))
	require.NoError(t, err)
	assert.Greater(t, imag(m.Permittivity(1e14)), 0.0)
	assert.Equal(t, 2.0, real(m.Permittivity(1e14)))
}

func TestMedium_Equal(t *testing.T) {
	a, _ := models.NewMedium(2, models.WithMediumName("oxide"))
	b, _ := models.NewMedium(2, models.WithMediumName("oxide"))
	c, _ := models.NewMedium(2.1, models.WithMediumName("oxide"))
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.True(t, models.Vacuum().Equal(models.Vacuum()))
}
