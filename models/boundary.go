package models

import "fmt"

// BoundaryKind is the boundary condition applied on both sides of an axis.
type BoundaryKind string

const (
	PMLKind      BoundaryKind = "PML"
	PeriodicKind BoundaryKind = "Periodic"
	PECKind      BoundaryKind = "PECBoundary"
	PMCKind      BoundaryKind = "PMCBoundary"
)

// DefaultPMLLayers is the absorbing layer count used by PML().
const DefaultPMLLayers = 12

// Boundary is the condition on one axis.
type Boundary struct {
	Kind BoundaryKind `json:"type" yaml:"type"`
	// Layers is the number of absorbing cells added outside the domain, PML only.
	Layers int `json:"num_layers,omitempty" yaml:"num_layers,omitempty"`
}

// PML returns an absorbing boundary. layers <= 0 selects DefaultPMLLayers.
func PML(layers int) Boundary {
	if layers <= 0 {
		layers = DefaultPMLLayers
	}
	return Boundary{Kind: PMLKind, Layers: layers}
}

func Periodic() Boundary { return Boundary{Kind: PeriodicKind} }
func PEC() Boundary      { return Boundary{Kind: PECKind} }
func PMC() Boundary      { return Boundary{Kind: PMCKind} }

// Validate checks the kind and the layer count.
func (b Boundary) Validate() error {
	switch b.Kind {
	case PMLKind:
		if b.Layers <= 0 {
			return fmt.Errorf("%w: PML needs a positive layer count, got %d", ErrInvalidBoundary, b.Layers)
		}
	case PeriodicKind, PECKind, PMCKind:
		if b.Layers != 0 {
			return fmt.Errorf("%w: %s takes no layers", ErrInvalidBoundary, b.Kind)
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidBoundary, b.Kind)
	}
	return nil
}

// ExtraCells returns how many cells the boundary adds on each side.
func (b Boundary) ExtraCells() int {
	if b.Kind == PMLKind {
		return b.Layers
	}
	return 0
}

// BoundarySpec holds one Boundary per axis.
type BoundarySpec struct {
	X Boundary `json:"x" yaml:"x"`
	Y Boundary `json:"y" yaml:"y"`
	Z Boundary `json:"z" yaml:"z"`
}

// DefaultBoundarySpec is PML on every axis.
func DefaultBoundarySpec() BoundarySpec {
	return BoundarySpec{X: PML(0), Y: PML(0), Z: PML(0)}
}

// AllSides applies b on every axis.
func AllSides(b Boundary) BoundarySpec {
	return BoundarySpec{X: b, Y: b, Z: b}
}

// Axis returns the boundary on a.
func (s BoundarySpec) Axis(a Axis) Boundary {
	switch a {
	case X:
		return s.X
	case Y:
		return s.Y
	default:
		return s.Z
	}
}

// IsZero reports whether no boundary was set.
func (s BoundarySpec) IsZero() bool {
	return s == BoundarySpec{}
}

// Validate checks every axis.
func (s BoundarySpec) Validate() error {
	for _, a := range Axes {
		if err := s.Axis(a).Validate(); err != nil {
			return fmt.Errorf("boundary %s: %w", a, err)
		}
	}
	return nil
}
