package grid

import (
	"fmt"
	"math"

	"fdtd-sdk/models"
)

// Kind selects how an axis is discretized.
type Kind string

const (
	KindAuto    Kind = "AutoGrid"
	KindUniform Kind = "UniformGrid"
	KindCustom  Kind = "CustomGrid"
)

// Defaults for auto grids.
const (
	DefaultMinStepsPerWvl     = 10.0
	DefaultMinStepsPerSimSize = 10.0
	DefaultMaxScale           = 1.4
	// DefaultMaxCells is the safety ceiling used when Spec.MaxCells is zero.
	DefaultMaxCells int64 = 1_000_000_000
)

// Spec1D is the discretization rule for one axis.
type Spec1D struct {
	Kind Kind

	// Auto
	MinStepsPerWvl     float64
	MinStepsPerSimSize float64
	MaxScale           float64

	// Uniform
	DL float64

	// Custom
	Boundaries []float64
}

// Auto returns an auto rule with the given steps per wavelength; values <= 0
// select DefaultMinStepsPerWvl.
func Auto(minStepsPerWvl float64) Spec1D {
	if minStepsPerWvl <= 0 {
		minStepsPerWvl = DefaultMinStepsPerWvl
	}
	return Spec1D{
		Kind:               KindAuto,
		MinStepsPerWvl:     minStepsPerWvl,
		MinStepsPerSimSize: DefaultMinStepsPerSimSize,
		MaxScale:           DefaultMaxScale,
	}
}

// Uniform returns a rule with constant step dl.
func Uniform(dl float64) Spec1D {
	return Spec1D{Kind: KindUniform, DL: dl}
}

// Custom returns a rule with explicit boundaries. They must cover the domain
// and are clipped to it.
func Custom(boundaries []float64) Spec1D {
	return Spec1D{Kind: KindCustom, Boundaries: append([]float64(nil), boundaries...)}
}

// Validate checks the parameters of the rule.
func (s Spec1D) Validate() error {
	switch s.Kind {
	case KindAuto:
		if !(s.MinStepsPerWvl > 0) || math.IsInf(s.MinStepsPerWvl, 0) {
			return fmt.Errorf("%w: min_steps_per_wvl %g must be positive", ErrInvalidSpec, s.MinStepsPerWvl)
		}
		if s.MinStepsPerSimSize < 0 || math.IsNaN(s.MinStepsPerSimSize) {
			return fmt.Errorf("%w: min_steps_per_sim_size %g must not be negative", ErrInvalidSpec, s.MinStepsPerSimSize)
		}
		if !(s.MaxScale >= 1) || math.IsInf(s.MaxScale, 0) {
			return fmt.Errorf("%w: max_scale %g must be at least 1", ErrInvalidSpec, s.MaxScale)
		}
	case KindUniform:
		if !(s.DL > 0) || math.IsInf(s.DL, 0) {
			return fmt.Errorf("%w: dl %g must be positive", ErrInvalidSpec, s.DL)
		}
	case KindCustom:
		if err := checkBoundaries(s.Boundaries); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidSpec, err)
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidSpec, s.Kind)
	}
	return nil
}

// Spec is the grid rule for all three axes.
type Spec struct {
	X, Y, Z Spec1D
	// Wavelength overrides the vacuum wavelength derived from sources and monitors.
	Wavelength float64
	// SnappingPoints are extra positions that auto axes place a boundary on.
	SnappingPoints []models.Vec3
	// MaxCells is the safety ceiling, DefaultMaxCells when zero.
	MaxCells int64
}

// AutoSpec applies Auto(minStepsPerWvl) on every axis.
func AutoSpec(minStepsPerWvl float64) Spec {
	a := Auto(minStepsPerWvl)
	return Spec{X: a, Y: a, Z: a}
}

// UniformSpec applies Uniform(dl) on every axis.
func UniformSpec(dl float64) Spec {
	u := Uniform(dl)
	return Spec{X: u, Y: u, Z: u}
}

// Axis returns the rule for a.
func (s Spec) Axis(a models.Axis) Spec1D {
	switch a {
	case models.X:
		return s.X
	case models.Y:
		return s.Y
	default:
		return s.Z
	}
}

// IsZero reports whether no rule was set on any axis.
func (s Spec) IsZero() bool {
	return s.X.Kind == "" && s.Y.Kind == "" && s.Z.Kind == ""
}

// NeedsWavelength reports whether any axis is auto and no explicit wavelength is set.
func (s Spec) NeedsWavelength() bool {
	if s.Wavelength > 0 {
		return false
	}
	for _, a := range models.Axes {
		if s.Axis(a).Kind == KindAuto {
			return true
		}
	}
	return false
}

// Limit returns the effective cell ceiling.
func (s Spec) Limit() int64 {
	if s.MaxCells > 0 {
		return s.MaxCells
	}
	return DefaultMaxCells
}

// Validate checks every axis and the global parameters.
func (s Spec) Validate() error {
	for _, a := range models.Axes {
		if err := s.Axis(a).Validate(); err != nil {
			return fmt.Errorf("axis %s: %w", a, err)
		}
	}
	if s.Wavelength < 0 || math.IsNaN(s.Wavelength) || math.IsInf(s.Wavelength, 0) {
		return fmt.Errorf("%w: wavelength %g", ErrInvalidSpec, s.Wavelength)
	}
	if s.MaxCells < 0 {
		return fmt.Errorf("%w: max_cells %d", ErrInvalidSpec, s.MaxCells)
	}
	return nil
}

// Region is a material region seen by the mesher: the bounding box of a
// structure and its refractive index at the highest frequency of interest.
type Region struct {
	Min, Max models.Vec3
	Index    float64
}

// Input is everything grid generation depends on.
type Input struct {
	Center models.Vec3
	Size   models.Vec3
	// Background is the refractive index of the medium filling the domain.
	Background float64
	Regions    []Region
	// Wavelength is the vacuum wavelength at the highest frequency present.
	// Spec.Wavelength takes precedence when set.
	Wavelength float64
	// Symmetry of -1 or 1 on an axis meshes the upper half and mirrors it.
	Symmetry   [3]int
	Boundaries models.BoundarySpec
}

// Make generates the grid. It fails with *GridResolutionError when the cell
// count exceeds the ceiling; the check runs on an estimate before any
// boundary array is allocated, and again on the exact result.
func (s Spec) Make(in Input) (*Grid, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	for i, v := range in.Size {
		if !(v > 0) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: domain size along %s is %g", ErrInvalidSpec, models.Axis(i), v)
		}
	}
	wvl := in.Wavelength
	if s.Wavelength > 0 {
		wvl = s.Wavelength
	}
	if s.NeedsWavelength() && !(wvl > 0) {
		return nil, ErrNoWavelength
	}
	limit := s.Limit()

	var plans [3]axisPlan
	estimate := 1.0
	for _, a := range models.Axes {
		p, err := s.plan(a, in, wvl)
		if err != nil {
			return nil, fmt.Errorf("axis %s: %w", a, err)
		}
		plans[a] = p
		estimate *= p.estimate
	}
	if estimate > float64(limit) {
		cells := int64(math.MaxInt64)
		if estimate < math.MaxInt64 {
			cells = int64(estimate)
		}
		return nil, &GridResolutionError{Cells: cells, Limit: limit, Estimated: true}
	}

	g := &Grid{}
	for _, a := range models.Axes {
		b, err := plans[a].build()
		if err != nil {
			return nil, fmt.Errorf("axis %s: %w", a, err)
		}
		g.boundaries[a] = b
	}
	if n := g.TotalCells(); n > limit {
		return nil, &GridResolutionError{Cells: n, Limit: limit}
	}
	return g, nil
}
