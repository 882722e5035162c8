// Package models provides the value objects that make up a simulation description.
//
// Geometries, media, sources and monitors are immutable once constructed: every
// constructor validates its inputs and returns an error wrapping one of the
// sentinel errors in errors.go. Lengths are in micrometers, frequencies in Hz and
// times in seconds.
package models

import (
	"fmt"
	"math"
)

// C0 is the speed of light in vacuum in micrometers per second.
const C0 = 299792458e6

// Inf marks an infinite extent along an axis, e.g. a slab invariant in x.
var Inf = math.Inf(1)

// Vec3 is a point or extent in 3D space.
type Vec3 [3]float64

// Add returns v + o.
func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{v[0] + o[0], v[1] + o[1], v[2] + o[2]}
}

// Sub returns v - o.
func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{v[0] - o[0], v[1] - o[1], v[2] - o[2]}
}

// Scale returns v * f.
func (v Vec3) Scale(f float64) Vec3 {
	return Vec3{v[0] * f, v[1] * f, v[2] * f}
}

func (v Vec3) hasNaN() bool {
	return math.IsNaN(v[0]) || math.IsNaN(v[1]) || math.IsNaN(v[2])
}

// Axis identifies one of the three Cartesian axes.
type Axis int

const (
	X Axis = iota
	Y
	Z
)

func (a Axis) String() string {
	switch a {
	case X:
		return "x"
	case Y:
		return "y"
	case Z:
		return "z"
	default:
		return fmt.Sprintf("axis(%d)", int(a))
	}
}

// Valid reports whether a is X, Y or Z.
func (a Axis) Valid() bool {
	return a >= X && a <= Z
}

// Axes lists X, Y, Z in order.
var Axes = [3]Axis{X, Y, Z}

// ParseAxis converts "x", "y" or "z" to an Axis.
func ParseAxis(s string) (Axis, error) {
	switch s {
	case "x", "X":
		return X, nil
	case "y", "Y":
		return Y, nil
	case "z", "Z":
		return Z, nil
	}
	return 0, fmt.Errorf("unknown axis %q", s)
}
