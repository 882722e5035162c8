package models

import (
	"fmt"
	"math"
)

// Geometry is an immutable shape primitive.
type Geometry interface {
	// Kind returns the wire name of the shape, e.g. "Box".
	Kind() string
	Center() Vec3
	// Bounds returns the axis-aligned bounding box as (min, max) corners.
	Bounds() (Vec3, Vec3)
	Volume() float64
	// Contains reports whether p lies inside or on the surface of the shape.
	Contains(p Vec3) bool
}

// Box is an axis-aligned rectangular prism. Zero size along an axis makes it a
// plane, line or point; Inf makes it invariant along that axis.
type Box struct {
	center Vec3
	size   Vec3
}

// NewBox creates a Box, rejecting negative or NaN sizes.
func NewBox(center, size Vec3) (*Box, error) {
	if center.hasNaN() {
		return nil, fmt.Errorf("%w: box center %v contains NaN", ErrInvalidGeometry, center)
	}
	for i, s := range size {
		if math.IsNaN(s) || s < 0 {
			return nil, fmt.Errorf("%w: box size along %s is %g", ErrInvalidGeometry, Axis(i), s)
		}
	}
	return &Box{center: center, size: size}, nil
}

// BoxFromBounds creates the Box spanning [min, max].
func BoxFromBounds(min, max Vec3) (*Box, error) {
	var center, size Vec3
	for i := range center {
		lo, hi := min[i], max[i]
		size[i] = hi - lo
		switch {
		case math.IsInf(lo, -1) && math.IsInf(hi, 1):
			center[i] = 0
			size[i] = Inf
		case math.IsInf(lo, 0) || math.IsInf(hi, 0):
			// half-infinite extents have no finite center
			return nil, fmt.Errorf("%w: half-infinite bounds along %s", ErrInvalidGeometry, Axis(i))
		default:
			center[i] = (lo + hi) / 2
		}
	}
	return NewBox(center, size)
}

func (b *Box) Kind() string    { return "Box" }
func (b *Box) Center() Vec3    { return b.center }
func (b *Box) Size() Vec3      { return b.size }
func (b *Box) Volume() float64 { return extentVolume(b.size) }

func (b *Box) Bounds() (Vec3, Vec3) {
	var lo, hi Vec3
	for i := range lo {
		if math.IsInf(b.size[i], 1) {
			lo[i], hi[i] = math.Inf(-1), math.Inf(1)
			continue
		}
		lo[i] = b.center[i] - b.size[i]/2
		hi[i] = b.center[i] + b.size[i]/2
	}
	return lo, hi
}

func (b *Box) Contains(p Vec3) bool {
	lo, hi := b.Bounds()
	for i := range p {
		if p[i] < lo[i] || p[i] > hi[i] {
			return false
		}
	}
	return true
}

// ZeroAxes returns the axes along which the box has zero size.
func (b *Box) ZeroAxes() []Axis {
	var out []Axis
	for i, s := range b.size {
		if s == 0 {
			out = append(out, Axis(i))
		}
	}
	return out
}

// Sphere is a ball of the given radius.
type Sphere struct {
	center Vec3
	radius float64
}

// NewSphere creates a Sphere; the radius must be finite and non-negative.
func NewSphere(center Vec3, radius float64) (*Sphere, error) {
	if center.hasNaN() {
		return nil, fmt.Errorf("%w: sphere center %v contains NaN", ErrInvalidGeometry, center)
	}
	if math.IsNaN(radius) || math.IsInf(radius, 0) || radius < 0 {
		return nil, fmt.Errorf("%w: sphere radius %g", ErrInvalidGeometry, radius)
	}
	return &Sphere{center: center, radius: radius}, nil
}

func (s *Sphere) Kind() string    { return "Sphere" }
func (s *Sphere) Center() Vec3    { return s.center }
func (s *Sphere) Radius() float64 { return s.radius }

func (s *Sphere) Bounds() (Vec3, Vec3) {
	r := Vec3{s.radius, s.radius, s.radius}
	return s.center.Sub(r), s.center.Add(r)
}

func (s *Sphere) Volume() float64 {
	return 4.0 / 3.0 * math.Pi * s.radius * s.radius * s.radius
}

func (s *Sphere) Contains(p Vec3) bool {
	d := p.Sub(s.center)
	return d[0]*d[0]+d[1]*d[1]+d[2]*d[2] <= s.radius*s.radius
}

// Cylinder is a right circular cylinder aligned with an axis.
type Cylinder struct {
	center Vec3
	radius float64
	length float64
	axis   Axis
}

// NewCylinder creates a Cylinder. length may be Inf.
func NewCylinder(center Vec3, radius, length float64, axis Axis) (*Cylinder, error) {
	if center.hasNaN() {
		return nil, fmt.Errorf("%w: cylinder center %v contains NaN", ErrInvalidGeometry, center)
	}
	if !axis.Valid() {
		return nil, fmt.Errorf("%w: cylinder axis %d", ErrInvalidGeometry, int(axis))
	}
	if math.IsNaN(radius) || math.IsInf(radius, 0) || radius < 0 {
		return nil, fmt.Errorf("%w: cylinder radius %g", ErrInvalidGeometry, radius)
	}
	if math.IsNaN(length) || length < 0 {
		return nil, fmt.Errorf("%w: cylinder length %g", ErrInvalidGeometry, length)
	}
	return &Cylinder{center: center, radius: radius, length: length, axis: axis}, nil
}

func (c *Cylinder) Kind() string    { return "Cylinder" }
func (c *Cylinder) Center() Vec3    { return c.center }
func (c *Cylinder) Radius() float64 { return c.radius }
func (c *Cylinder) Length() float64 { return c.length }
func (c *Cylinder) Axis() Axis      { return c.axis }

func (c *Cylinder) Bounds() (Vec3, Vec3) {
	size := Vec3{2 * c.radius, 2 * c.radius, 2 * c.radius}
	size[c.axis] = c.length
	b := &Box{center: c.center, size: size}
	return b.Bounds()
}

func (c *Cylinder) Volume() float64 {
	if c.radius == 0 {
		return 0
	}
	return math.Pi * c.radius * c.radius * c.length
}

func (c *Cylinder) Contains(p Vec3) bool {
	d := p.Sub(c.center)
	if math.Abs(d[c.axis]) > c.length/2 {
		return false
	}
	u, v := planeAxes(c.axis)
	return d[u]*d[u]+d[v]*d[v] <= c.radius*c.radius
}

// PolySlab is a polygon in the plane normal to axis, extruded between slab bounds.
type PolySlab struct {
	vertices [][2]float64
	axis     Axis
	slabMin  float64
	slabMax  float64
}

// NewPolySlab creates a PolySlab. Vertices are given in the plane coordinates
// (y,z) for axis X, (x,z) for axis Y and (x,y) for axis Z.
func NewPolySlab(vertices [][2]float64, axis Axis, slabMin, slabMax float64) (*PolySlab, error) {
	if !axis.Valid() {
		return nil, fmt.Errorf("%w: polyslab axis %d", ErrInvalidGeometry, int(axis))
	}
	if len(vertices) < 3 {
		return nil, fmt.Errorf("%w: polyslab needs at least 3 vertices, got %d", ErrInvalidGeometry, len(vertices))
	}
	for i, v := range vertices {
		if math.IsNaN(v[0]) || math.IsNaN(v[1]) || math.IsInf(v[0], 0) || math.IsInf(v[1], 0) {
			return nil, fmt.Errorf("%w: polyslab vertex %d is not finite", ErrInvalidGeometry, i)
		}
	}
	if math.IsNaN(slabMin) || math.IsNaN(slabMax) || slabMax < slabMin {
		return nil, fmt.Errorf("%w: polyslab slab bounds [%g, %g]", ErrInvalidGeometry, slabMin, slabMax)
	}
	if math.IsInf(slabMin, 0) != math.IsInf(slabMax, 0) {
		return nil, fmt.Errorf("%w: polyslab slab bounds [%g, %g] are half-infinite", ErrInvalidGeometry, slabMin, slabMax)
	}
	vs := make([][2]float64, len(vertices))
	copy(vs, vertices)
	return &PolySlab{vertices: vs, axis: axis, slabMin: slabMin, slabMax: slabMax}, nil
}

func (p *PolySlab) Kind() string { return "PolySlab" }
func (p *PolySlab) Axis() Axis   { return p.axis }

// Vertices returns a copy of the polygon vertices.
func (p *PolySlab) Vertices() [][2]float64 {
	out := make([][2]float64, len(p.vertices))
	copy(out, p.vertices)
	return out
}

// SlabBounds returns the extrusion range along the slab axis.
func (p *PolySlab) SlabBounds() (float64, float64) { return p.slabMin, p.slabMax }

func (p *PolySlab) Bounds() (Vec3, Vec3) {
	u, v := planeAxes(p.axis)
	var lo, hi Vec3
	lo[u], lo[v] = math.Inf(1), math.Inf(1)
	hi[u], hi[v] = math.Inf(-1), math.Inf(-1)
	for _, vert := range p.vertices {
		lo[u] = math.Min(lo[u], vert[0])
		hi[u] = math.Max(hi[u], vert[0])
		lo[v] = math.Min(lo[v], vert[1])
		hi[v] = math.Max(hi[v], vert[1])
	}
	lo[p.axis], hi[p.axis] = p.slabMin, p.slabMax
	return lo, hi
}

func (p *PolySlab) Center() Vec3 {
	return BoundingBox(p).Center()
}

// Area returns the polygon area (shoelace formula).
func (p *PolySlab) Area() float64 {
	var sum float64
	n := len(p.vertices)
	for i := 0; i < n; i++ {
		a, b := p.vertices[i], p.vertices[(i+1)%n]
		sum += a[0]*b[1] - b[0]*a[1]
	}
	return math.Abs(sum) / 2
}

func (p *PolySlab) Volume() float64 {
	area := p.Area()
	if area == 0 {
		return 0
	}
	return area * (p.slabMax - p.slabMin)
}

func (p *PolySlab) Contains(pt Vec3) bool {
	if pt[p.axis] < p.slabMin || pt[p.axis] > p.slabMax {
		return false
	}
	u, v := planeAxes(p.axis)
	x, y := pt[u], pt[v]
	inside := false
	n := len(p.vertices)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a, b := p.vertices[i], p.vertices[j]
		if (a[1] > y) != (b[1] > y) && x < (b[0]-a[0])*(y-a[1])/(b[1]-a[1])+a[0] {
			inside = !inside
		}
	}
	return inside
}

// planeAxes returns the two in-plane axes for a plane normal to axis.
func planeAxes(axis Axis) (Axis, Axis) {
	switch axis {
	case X:
		return Y, Z
	case Y:
		return X, Z
	default:
		return X, Y
	}
}

// BoundingBox returns the axis-aligned bounding Box of g.
func BoundingBox(g Geometry) *Box {
	if b, ok := g.(*Box); ok {
		return b
	}
	lo, hi := g.Bounds()
	b, err := BoxFromBounds(lo, hi)
	if err != nil {
		// built-in shapes always have symmetric or finite bounds
		panic(err)
	}
	return b
}

// Intersects reports whether two geometries overlap or touch. Bounding boxes
// are compared first; sphere pairs and sphere/box pairs are then tested exactly.
func Intersects(a, b Geometry) bool {
	alo, ahi := a.Bounds()
	blo, bhi := b.Bounds()
	for i := 0; i < 3; i++ {
		if ahi[i] < blo[i] || bhi[i] < alo[i] {
			return false
		}
	}
	switch ga := a.(type) {
	case *Sphere:
		switch gb := b.(type) {
		case *Sphere:
			d := ga.center.Sub(gb.center)
			r := ga.radius + gb.radius
			return d[0]*d[0]+d[1]*d[1]+d[2]*d[2] <= r*r
		case *Box:
			return sphereTouchesBox(ga, gb)
		}
	case *Box:
		if gs, ok := b.(*Sphere); ok {
			return sphereTouchesBox(gs, ga)
		}
	}
	return true
}

func sphereTouchesBox(s *Sphere, b *Box) bool {
	lo, hi := b.Bounds()
	var d2 float64
	for i := 0; i < 3; i++ {
		c := math.Max(lo[i], math.Min(s.center[i], hi[i]))
		diff := s.center[i] - c
		d2 += diff * diff
	}
	return d2 <= s.radius*s.radius
}

// OverlapVolume returns the volume shared by the bounding boxes of a and b.
func OverlapVolume(a, b Geometry) float64 {
	alo, ahi := a.Bounds()
	blo, bhi := b.Bounds()
	var ext Vec3
	for i := 0; i < 3; i++ {
		ext[i] = math.Min(ahi[i], bhi[i]) - math.Max(alo[i], blo[i])
		if ext[i] <= 0 || math.IsNaN(ext[i]) {
			return 0
		}
	}
	return extentVolume(ext)
}

func extentVolume(size Vec3) float64 {
	if size[0] == 0 || size[1] == 0 || size[2] == 0 {
		return 0
	}
	return size[0] * size[1] * size[2]
}
