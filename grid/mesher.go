package grid

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"

	"fdtd-sdk/models"
)

// relTol is the relative distance below which two interface positions merge.
const relTol = 1e-6

// interval is a stretch of an axis between two interfaces, meshed with steps
// no larger than dmax.
type interval struct {
	lo, hi float64
	dmax   float64
}

// axisPlan is the cheap, allocation-light description of an axis that the
// cell estimate is taken from before boundaries are built.
type axisPlan struct {
	kind     Kind
	lo, hi   float64
	mirror   bool
	center   float64
	pml      int
	maxScale float64

	uniformCells int
	custom       []float64
	intervals    []interval

	estimate float64
}

func (s Spec) plan(a models.Axis, in Input, wvl float64) (axisPlan, error) {
	rule := s.Axis(a)
	center := in.Center[a]
	lo, hi := center-in.Size[a]/2, center+in.Size[a]/2
	p := axisPlan{
		kind:   rule.Kind,
		lo:     lo,
		hi:     hi,
		center: center,
		mirror: in.Symmetry[a] != 0,
		pml:    in.Boundaries.Axis(a).ExtraCells(),
	}
	length := hi - lo
	tol := relTol * length

	switch rule.Kind {
	case KindUniform:
		n := math.Max(1, math.Ceil(length/rule.DL-relTol))
		if p.mirror && math.Mod(n, 2) == 1 {
			n++
		}
		p.estimate = n
		if n < float64(math.MaxInt32) {
			p.uniformCells = int(n)
		}

	case KindCustom:
		b := rule.Boundaries
		if b[0] > lo+tol || b[len(b)-1] < hi-tol {
			return p, fmt.Errorf("%w: custom boundaries [%g, %g] do not cover the domain [%g, %g]",
				ErrInvalidSpec, b[0], b[len(b)-1], lo, hi)
		}
		out := []float64{lo}
		for _, v := range b {
			if v > lo+tol && v < hi-tol {
				out = append(out, v)
			}
		}
		p.custom = append(out, hi)
		p.estimate = float64(len(p.custom) - 1)

	case KindAuto:
		p.maxScale = rule.MaxScale
		meshLo := lo
		if p.mirror {
			meshLo = center
		}
		points := p.interfaces(a, in, s.SnappingPoints, meshLo, tol)
		for i := 0; i+1 < len(points); i++ {
			iv := interval{lo: points[i], hi: points[i+1]}
			n := p.indexAt(a, in, (iv.lo+iv.hi)/2)
			iv.dmax = wvl / (n * rule.MinStepsPerWvl)
			if rule.MinStepsPerSimSize > 0 {
				iv.dmax = math.Min(iv.dmax, length/rule.MinStepsPerSimSize)
			}
			p.intervals = append(p.intervals, iv)
			p.estimate += math.Ceil((iv.hi - iv.lo) / iv.dmax)
		}
		if p.mirror {
			p.estimate *= 2
		}
	}
	p.estimate += float64(2 * p.pml)
	return p, nil
}

// interfaces returns the sorted, merged positions in [meshLo, hi] where the
// material changes or a snapping point sits. Mirrored axes fold lower-half
// positions into the upper half.
func (p axisPlan) interfaces(a models.Axis, in Input, snap []models.Vec3, meshLo, tol float64) []float64 {
	pts := []float64{meshLo, p.hi}
	add := func(v float64) {
		if p.mirror && v < p.center {
			v = 2*p.center - v
		}
		if v > meshLo && v < p.hi {
			pts = append(pts, v)
		}
	}
	for _, r := range in.Regions {
		if !overlapsDomain(r, in) {
			continue
		}
		add(r.Min[a])
		add(r.Max[a])
	}
	for _, sp := range snap {
		add(sp[a])
	}
	sort.Float64s(pts)

	out := []float64{pts[0]}
	for _, v := range pts[1:] {
		if v-out[len(out)-1] > tol {
			out = append(out, v)
		}
	}
	if last := out[len(out)-1]; last != p.hi {
		if len(out) > 1 && p.hi-last <= tol {
			out[len(out)-1] = p.hi
		} else {
			out = append(out, p.hi)
		}
	}
	return out
}

// indexAt returns the largest refractive index covering position x on axis a,
// never below 1 so the vacuum wavelength bound always holds.
func (p axisPlan) indexAt(a models.Axis, in Input, x float64) float64 {
	n := math.Max(1, in.Background)
	for _, r := range in.Regions {
		if !overlapsDomain(r, in) {
			continue
		}
		covers := r.Min[a] <= x && x <= r.Max[a]
		if p.mirror {
			xm := 2*p.center - x
			covers = covers || (r.Min[a] <= xm && xm <= r.Max[a])
		}
		if covers && r.Index > n {
			n = r.Index
		}
	}
	return n
}

func overlapsDomain(r Region, in Input) bool {
	for i := 0; i < 3; i++ {
		lo, hi := in.Center[i]-in.Size[i]/2, in.Center[i]+in.Size[i]/2
		if r.Max[i] < lo || r.Min[i] > hi {
			return false
		}
	}
	return true
}

func (p axisPlan) build() ([]float64, error) {
	var b []float64
	switch p.kind {
	case KindUniform:
		b = floats.Span(make([]float64, p.uniformCells+1), p.lo, p.hi)
	case KindCustom:
		b = append([]float64(nil), p.custom...)
	case KindAuto:
		b = p.buildAuto()
		if p.mirror {
			b = mirror(b, p.center)
		}
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidSpec, p.kind)
	}
	b = extend(b, p.pml)
	if err := checkBoundaries(b); err != nil {
		return nil, err
	}
	return b, nil
}

func (p axisPlan) buildAuto() []float64 {
	ivs := p.intervals
	out := []float64{ivs[0].lo}
	for i, iv := range ivs {
		left, right := iv.dmax, iv.dmax
		if i > 0 {
			left = math.Min(left, ivs[i-1].dmax)
		}
		if i+1 < len(ivs) {
			right = math.Min(right, ivs[i+1].dmax)
		}
		st := fillInterval(iv.hi-iv.lo, left, right, iv.dmax, p.maxScale)
		pos := floats.CumSum(make([]float64, len(st)), st)
		floats.AddConst(iv.lo, pos)
		pos[len(pos)-1] = iv.hi
		out = append(out, pos...)
	}
	return out
}

// fillInterval returns steps summing to length that grow geometrically by at
// most ratio from a at the left end and b at the right end towards d. No step
// exceeds d.
func fillInterval(length, a, b, d, ratio float64) []float64 {
	if length <= a && length <= b {
		return []float64{length}
	}
	left, right := ramp(a, d, ratio), ramp(b, d, ratio)
	used := floats.Sum(left) + floats.Sum(right)
	if ratio <= 1 || used > length {
		return uniformSteps(length, math.Min(math.Min(a, b), d))
	}

	m := int(math.Ceil((length - used) / d))
	st := make([]float64, 0, len(left)+m+len(right))
	st = append(st, left...)
	for i := 0; i < m; i++ {
		st = append(st, d)
	}
	for i := len(right) - 1; i >= 0; i-- {
		st = append(st, right[i])
	}
	if total := floats.Sum(st); total > length {
		floats.Scale(length/total, st)
	}
	return st
}

// ramp returns s, s*ratio, s*ratio^2, ... up to but excluding d.
func ramp(s, d, ratio float64) []float64 {
	if ratio <= 1 {
		return nil
	}
	var out []float64
	for ; s < d*(1-relTol); s *= ratio {
		out = append(out, s)
	}
	return out
}

func uniformSteps(length, step float64) []float64 {
	n := int(math.Max(1, math.Ceil(length/step)))
	st := make([]float64, n)
	for i := range st {
		st[i] = length / float64(n)
	}
	return st
}

// mirror reflects boundaries starting at center to the lower half.
func mirror(half []float64, center float64) []float64 {
	out := make([]float64, 0, 2*len(half)-1)
	for i := len(half) - 1; i > 0; i-- {
		out = append(out, 2*center-half[i])
	}
	return append(out, half...)
}

// extend adds n cells on both sides using the edge step.
func extend(b []float64, n int) []float64 {
	if n <= 0 {
		return b
	}
	first := b[1] - b[0]
	last := b[len(b)-1] - b[len(b)-2]
	out := make([]float64, 0, len(b)+2*n)
	for k := n; k > 0; k-- {
		out = append(out, b[0]-float64(k)*first)
	}
	out = append(out, b...)
	for k := 1; k <= n; k++ {
		out = append(out, b[len(b)-1]+float64(k)*last)
	}
	return out
}
