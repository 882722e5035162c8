package models

import "fmt"

// Structure pairs a Geometry with the Medium filling it. When structures
// overlap, the one later in the simulation's list takes precedence.
type Structure struct {
	name     string
	geometry Geometry
	medium   Medium
}

// NewStructure creates a Structure. The name is optional but shows up in
// validation messages.
func NewStructure(name string, geometry Geometry, medium Medium) (Structure, error) {
	if geometry == nil {
		return Structure{}, fmt.Errorf("%w: structure %q has no geometry", ErrInvalidGeometry, name)
	}
	return Structure{name: name, geometry: geometry, medium: medium}, nil
}

func (s Structure) Name() string       { return s.name }
func (s Structure) Geometry() Geometry { return s.geometry }
func (s Structure) Medium() Medium     { return s.medium }

// Label returns the name, or a positional fallback for unnamed structures.
func (s Structure) Label(index int) string {
	if s.name != "" {
		return fmt.Sprintf("structures[%d] %q", index, s.name)
	}
	return fmt.Sprintf("structures[%d]", index)
}
