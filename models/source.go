package models

import (
	"fmt"
	"math"
)

// Polarization is the field component a current source drives.
type Polarization string

const (
	Ex Polarization = "Ex"
	Ey Polarization = "Ey"
	Ez Polarization = "Ez"
	Hx Polarization = "Hx"
	Hy Polarization = "Hy"
	Hz Polarization = "Hz"
)

// Polarizations lists every valid component in wire order.
var Polarizations = []Polarization{Ex, Ey, Ez, Hx, Hy, Hz}

// Valid reports whether p is a known component.
func (p Polarization) Valid() bool {
	for _, q := range Polarizations {
		if p == q {
			return true
		}
	}
	return false
}

// IsMagnetic reports whether p is a magnetic (H) component.
func (p Polarization) IsMagnetic() bool {
	return len(p) == 2 && p[0] == 'H'
}

// SourceKind distinguishes the source variants on the wire.
type SourceKind string

const (
	UniformCurrentSourceKind SourceKind = "UniformCurrentSource"
	PointDipoleKind          SourceKind = "PointDipole"
)

// Source couples a SourceTime with a spatial footprint and a polarization.
// Zero-size axes denote point or planar footprints.
type Source struct {
	kind         SourceKind
	name         string
	center       Vec3
	size         Vec3
	polarization Polarization
	sourceTime   SourceTime
}

// SourceOption configures a Source
type SourceOption func(*Source)

// WithSourceName names the source for validation messages and the wire format.
func WithSourceName(name string) SourceOption {
	return func(s *Source) {
		s.name = name
	}
}

// NewUniformCurrentSource creates a current source of constant amplitude over its footprint.
func NewUniformCurrentSource(center, size Vec3, st SourceTime, pol Polarization, opts ...SourceOption) (*Source, error) {
	return newSource(UniformCurrentSourceKind, center, size, st, pol, opts)
}

// NewPointDipole creates a source with zero extent at center.
func NewPointDipole(center Vec3, st SourceTime, pol Polarization, opts ...SourceOption) (*Source, error) {
	return newSource(PointDipoleKind, center, Vec3{}, st, pol, opts)
}

func newSource(kind SourceKind, center, size Vec3, st SourceTime, pol Polarization, opts []SourceOption) (*Source, error) {
	if st == nil {
		return nil, fmt.Errorf("%w: source has no source time", ErrInvalidSourceTime)
	}
	if !pol.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPolarization, pol)
	}
	if err := checkFootprint(center, size); err != nil {
		return nil, err
	}
	s := &Source{kind: kind, center: center, size: size, polarization: pol, sourceTime: st}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func checkFootprint(center, size Vec3) error {
	for i := range size {
		if math.IsNaN(size[i]) || size[i] < 0 {
			return fmt.Errorf("%w: size %v has a negative component along %s", ErrInvalidSpatialExtent, size, Axis(i))
		}
		if math.IsNaN(center[i]) || math.IsInf(center[i], 0) {
			return fmt.Errorf("%w: center %v is not finite", ErrInvalidSpatialExtent, center)
		}
	}
	return nil
}

func (s *Source) Kind() SourceKind           { return s.kind }
func (s *Source) Name() string               { return s.name }
func (s *Source) Center() Vec3               { return s.center }
func (s *Source) Size() Vec3                 { return s.size }
func (s *Source) Polarization() Polarization { return s.polarization }
func (s *Source) SourceTime() SourceTime     { return s.sourceTime }

func (s *Source) FrequencyRange() (lo, hi float64) {
	return s.sourceTime.FrequencyRange()
}

// Footprint returns the source region as a Box.
func (s *Source) Footprint() *Box {
	return &Box{center: s.center, size: s.size}
}
