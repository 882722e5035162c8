package models

import (
	"fmt"
	"math"
	"math/cmplx"
)

// eps0 is the vacuum permittivity in F/µm.
const eps0 = 8.8541878128e-18

// LorentzPole is one resonant term: DeltaEps * f0^2 / (f0^2 - f^2 - i f gamma).
type LorentzPole struct {
	DeltaEps float64 `json:"delta_eps" yaml:"delta_eps"`
	Freq     float64 `json:"freq" yaml:"freq"`
	Gamma    float64 `json:"gamma" yaml:"gamma"`
}

// DrudePole is one free-carrier term: -fp^2 / (f^2 + i f gamma).
type DrudePole struct {
	Freq  float64 `json:"freq" yaml:"freq"`
	Gamma float64 `json:"gamma" yaml:"gamma"`
}

// Medium describes the electromagnetic response of a material.
type Medium struct {
	name         string
	permittivity float64
	conductivity float64
	lorentz      []LorentzPole
	drude        []DrudePole
	active       bool
}

// MediumOption configures a Medium
type MediumOption func(*Medium)

// WithConductivity sets the electric conductivity in S/µm.
func WithConductivity(sigma float64) MediumOption {
	return func(m *Medium) {
		m.conductivity = sigma
	}
}

// WithMediumName sets a descriptive name.
func WithMediumName(name string) MediumOption {
	return func(m *Medium) {
		m.name = name
	}
}

// WithLorentzPole adds a resonant dispersion term.
func WithLorentzPole(p LorentzPole) MediumOption {
	return func(m *Medium) {
		m.lorentz = append(m.lorentz, p)
	}
}

// WithDrudePole adds a free-carrier dispersion term.
func WithDrudePole(p DrudePole) MediumOption {
	return func(m *Medium) {
		m.drude = append(m.drude, p)
	}
}

// AsActive marks the medium as a gain medium, lifting the passivity checks.
func AsActive() MediumOption {
	return func(m *Medium) {
		m.active = true
	}
}

// NewMedium creates a Medium with the given relative permittivity.
// Passive media need permittivity >= 1 and non-negative conductivity.
func NewMedium(permittivity float64, opts ...MediumOption) (Medium, error) {
	m := Medium{permittivity: permittivity}
	for _, opt := range opts {
		opt(&m)
	}

	if math.IsNaN(permittivity) || math.IsInf(permittivity, 0) {
		return Medium{}, fmt.Errorf("%w: permittivity %g is not finite", ErrInvalidPermittivity, permittivity)
	}
	if math.IsNaN(m.conductivity) || math.IsInf(m.conductivity, 0) {
		return Medium{}, fmt.Errorf("%w: conductivity %g is not finite", ErrInvalidPermittivity, m.conductivity)
	}
	for i, p := range m.lorentz {
		if !(p.Freq > 0) || p.Gamma < 0 || math.IsNaN(p.DeltaEps) {
			return Medium{}, fmt.Errorf("%w: lorentz pole %d %+v", ErrInvalidPermittivity, i, p)
		}
		if p.DeltaEps < 0 && !m.active {
			return Medium{}, fmt.Errorf("%w: lorentz pole %d has negative strength in a passive medium", ErrInvalidPermittivity, i)
		}
	}
	for i, p := range m.drude {
		if !(p.Freq > 0) || p.Gamma < 0 {
			return Medium{}, fmt.Errorf("%w: drude pole %d %+v", ErrInvalidPermittivity, i, p)
		}
	}

	if !m.active {
		if permittivity < 1 {
			return Medium{}, fmt.Errorf("%w: permittivity %g < 1 requires an active medium", ErrInvalidPermittivity, permittivity)
		}
		if m.conductivity < 0 {
			return Medium{}, fmt.Errorf("%w: conductivity %g < 0 requires an active medium", ErrInvalidPermittivity, m.conductivity)
		}
	}

	m.lorentz = append([]LorentzPole(nil), m.lorentz...)
	m.drude = append([]DrudePole(nil), m.drude...)
	return m, nil
}

// Vacuum returns the medium with unit permittivity.
func Vacuum() Medium {
	return Medium{name: "vacuum", permittivity: 1}
}

func (m Medium) Name() string                { return m.name }
func (m Medium) StaticPermittivity() float64 { return m.permittivity }
func (m Medium) Conductivity() float64       { return m.conductivity }
func (m Medium) IsActive() bool              { return m.active }
func (m Medium) LorentzPoles() []LorentzPole { return append([]LorentzPole(nil), m.lorentz...) }
func (m Medium) DrudePoles() []DrudePole     { return append([]DrudePole(nil), m.drude...) }

func (m Medium) IsDispersive() bool {
	return len(m.lorentz) > 0 || len(m.drude) > 0 || m.conductivity != 0
}

// Permittivity returns the complex relative permittivity at frequency f.
// The conductivity term is skipped at f == 0.
func (m Medium) Permittivity(f float64) complex128 {
	eps := complex(m.permittivity, 0)
	for _, p := range m.lorentz {
		num := complex(p.DeltaEps*p.Freq*p.Freq, 0)
		den := complex(p.Freq*p.Freq-f*f, -f*p.Gamma)
		eps += num / den
	}
	for _, p := range m.drude {
		if f == 0 {
			continue
		}
		eps -= complex(p.Freq*p.Freq, 0) / complex(f*f, f*p.Gamma)
	}
	if f > 0 && m.conductivity != 0 {
		omega := 2 * math.Pi * f
		eps += complex(0, m.conductivity/(omega*eps0))
	}
	return eps
}

// RefractiveIndex returns the magnitude of the complex refractive index at f.
// For lossless dielectrics this is sqrt(permittivity).
func (m Medium) RefractiveIndex(f float64) float64 {
	return cmplx.Abs(cmplx.Sqrt(m.Permittivity(f)))
}

// Equal reports whether two media have identical parameters.
func (m Medium) Equal(o Medium) bool {
	if m.name != o.name || m.permittivity != o.permittivity || m.conductivity != o.conductivity || m.active != o.active {
		return false
	}
	if len(m.lorentz) != len(o.lorentz) || len(m.drude) != len(o.drude) {
		return false
	}
	for i := range m.lorentz {
		if m.lorentz[i] != o.lorentz[i] {
			return false
		}
	}
	for i := range m.drude {
		if m.drude[i] != o.drude[i] {
			return false
		}
	}
	return true
}
