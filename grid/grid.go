// Package grid derives the rectilinear mesh a simulation runs on.
//
// A Spec describes how each axis is discretized (auto, uniform or custom).
// Spec.Make turns it into a Grid for a given domain, set of material regions and
// wavelength. Generation is a pure function of its inputs: identical inputs give
// identical boundary arrays.
package grid

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"fdtd-sdk/models"
)

// Grid holds the cell boundary coordinates along each axis.
type Grid struct {
	boundaries [3][]float64
}

// New creates a Grid from boundary arrays. Each needs at least two strictly
// increasing, finite values.
func New(x, y, z []float64) (*Grid, error) {
	g := &Grid{}
	for i, b := range [3][]float64{x, y, z} {
		if err := checkBoundaries(b); err != nil {
			return nil, fmt.Errorf("axis %s: %w", models.Axis(i), err)
		}
		g.boundaries[i] = append([]float64(nil), b...)
	}
	return g, nil
}

func checkBoundaries(b []float64) error {
	if len(b) < 2 {
		return fmt.Errorf("%w: need at least 2 values, got %d", ErrInvalidBoundaries, len(b))
	}
	for i, v := range b {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: value %d is not finite", ErrInvalidBoundaries, i)
		}
		if i > 0 && v <= b[i-1] {
			return fmt.Errorf("%w: value %d (%g) <= value %d (%g)", ErrInvalidBoundaries, i, v, i-1, b[i-1])
		}
	}
	return nil
}

// Boundaries returns a copy of the cell boundaries along axis.
func (g *Grid) Boundaries(axis models.Axis) []float64 {
	return append([]float64(nil), g.boundaries[axis]...)
}

// Centers returns the cell centers along axis.
func (g *Grid) Centers(axis models.Axis) []float64 {
	b := g.boundaries[axis]
	out := make([]float64, len(b)-1)
	for i := range out {
		out[i] = (b[i] + b[i+1]) / 2
	}
	return out
}

// Steps returns the cell sizes along axis.
func (g *Grid) Steps(axis models.Axis) []float64 {
	return steps(g.boundaries[axis])
}

func steps(b []float64) []float64 {
	out := make([]float64, len(b)-1)
	for i := range out {
		out[i] = b[i+1] - b[i]
	}
	return out
}

// NumCells returns the cell count per axis.
func (g *Grid) NumCells() [3]int {
	return [3]int{len(g.boundaries[0]) - 1, len(g.boundaries[1]) - 1, len(g.boundaries[2]) - 1}
}

// TotalCells returns the product of the per-axis cell counts.
func (g *Grid) TotalCells() int64 {
	n := g.NumCells()
	return int64(n[0]) * int64(n[1]) * int64(n[2])
}

func (g *Grid) MinStep(axis models.Axis) float64 { return floats.Min(g.Steps(axis)) }
func (g *Grid) MaxStep(axis models.Axis) float64 { return floats.Max(g.Steps(axis)) }

// Equal reports whether both grids have identical boundaries.
func (g *Grid) Equal(o *Grid) bool {
	if g == nil || o == nil {
		return g == o
	}
	for i := range g.boundaries {
		if !floats.Equal(g.boundaries[i], o.boundaries[i]) {
			return false
		}
	}
	return true
}

// Extent returns the first and last boundary along axis.
func (g *Grid) Extent(axis models.Axis) (float64, float64) {
	b := g.boundaries[axis]
	return b[0], b[len(b)-1]
}
