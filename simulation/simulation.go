// Package simulation composes models into a validated, immutable Simulation.
//
// New checks every cross-entity invariant at once and reports all violations in
// a single *ValidationError. The Grid is derived on first use and cached.
package simulation

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"fdtd-sdk/grid"
	"fdtd-sdk/models"
	"fdtd-sdk/utils"
)

// Defaults applied by New.
const (
	DefaultCourant = 0.99
	DefaultShutoff = 1e-5
)

// Config holds everything a Simulation is built from. Zero values select
// defaults: vacuum background, auto grid, PML on all sides.
type Config struct {
	Name   string
	Center models.Vec3
	Size   models.Vec3
	// Medium is the background. Nil means vacuum.
	Medium     *models.Medium
	Structures []models.Structure
	Sources    []*models.Source
	Monitors   []*models.Monitor
	GridSpec   grid.Spec
	Boundaries models.BoundarySpec
	// Symmetry per axis: 0 none, 1 even, -1 odd.
	Symmetry [3]int
	// RunTime is the total simulated time in seconds.
	RunTime float64
	// Courant is the time step stability factor in (0, 1].
	Courant float64
	// Shutoff stops the solver early once field energy decays below this fraction.
	Shutoff float64
}

// Simulation is a validated simulation description. It is safe for
// concurrent use.
type Simulation struct {
	cfg      Config
	medium   models.Medium
	warnings []string

	gridOnce sync.Once
	grid     *grid.Grid
	gridErr  error
}

// New validates cfg and returns the Simulation. On failure the error is a
// *ValidationError listing every problem found.
func New(cfg Config) (*Simulation, error) {
	cfg = withDefaults(cfg)
	if err := validate(cfg); err != nil {
		return nil, err
	}

	s := &Simulation{cfg: cfg, medium: models.Vacuum()}
	if cfg.Medium != nil {
		s.medium = *cfg.Medium
	}
	s.warnings = overlapWarnings(cfg.Structures)
	for _, w := range s.warnings {
		utils.LogDebug("simulation %q: %s", cfg.Name, w)
	}
	return s, nil
}

func withDefaults(cfg Config) Config {
	if cfg.GridSpec.IsZero() {
		spec := grid.AutoSpec(grid.DefaultMinStepsPerWvl)
		spec.Wavelength = cfg.GridSpec.Wavelength
		spec.SnappingPoints = cfg.GridSpec.SnappingPoints
		spec.MaxCells = cfg.GridSpec.MaxCells
		cfg.GridSpec = spec
	}
	if cfg.Boundaries.IsZero() {
		cfg.Boundaries = models.DefaultBoundarySpec()
	}
	if cfg.Courant == 0 {
		cfg.Courant = DefaultCourant
	}
	if cfg.Shutoff == 0 {
		cfg.Shutoff = DefaultShutoff
	}
	cfg.Structures = append([]models.Structure(nil), cfg.Structures...)
	cfg.Sources = append([]*models.Source(nil), cfg.Sources...)
	cfg.Monitors = append([]*models.Monitor(nil), cfg.Monitors...)
	cfg.GridSpec.SnappingPoints = append([]models.Vec3(nil), cfg.GridSpec.SnappingPoints...)
	return cfg
}

func validate(cfg Config) error {
	var l issues

	sizeOK := true
	for i, v := range cfg.Size {
		if !(v > 0) || math.IsInf(v, 0) {
			l.add("size", "must be positive and finite along %s, got %g", models.Axis(i), v)
			sizeOK = false
		}
	}
	for i, v := range cfg.Center {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			l.add("center", "must be finite along %s, got %g", models.Axis(i), v)
			sizeOK = false
		}
	}
	for i, v := range cfg.Symmetry {
		if v < -1 || v > 1 {
			l.add(fmt.Sprintf("symmetry[%d]", i), "must be -1, 0 or 1, got %d", v)
		}
	}
	if err := cfg.Boundaries.Validate(); err != nil {
		l.add("boundaries", "%v", err)
	}
	if err := cfg.GridSpec.Validate(); err != nil {
		l.add("grid_spec", "%v", err)
	}
	if !(cfg.Courant > 0 && cfg.Courant <= 1) {
		l.add("courant", "must be in (0, 1], got %g", cfg.Courant)
	}
	if !(cfg.Shutoff >= 0 && cfg.Shutoff < 1) {
		l.add("shutoff", "must be in [0, 1), got %g", cfg.Shutoff)
	}

	validateRunTime(cfg, &l)

	var domain *models.Box
	if sizeOK {
		domain, _ = models.NewBox(cfg.Center, cfg.Size)
	}
	for i, st := range cfg.Structures {
		field := fmt.Sprintf("structures[%d]", i)
		if st.Geometry() == nil {
			l.add(field, "%s has no geometry", st.Label(i))
			continue
		}
		if domain != nil && !models.Intersects(domain, st.Geometry()) {
			l.add(field, "%s lies entirely outside the simulation domain", st.Label(i))
		}
	}
	for i, src := range cfg.Sources {
		field := fmt.Sprintf("sources[%d]", i)
		if src == nil {
			l.add(field, "is nil")
			continue
		}
		if domain != nil && !models.Intersects(domain, src.Footprint()) {
			l.add(field, "source %q at %v does not intersect the simulation domain", src.Name(), src.Center())
		}
	}
	validateMonitors(cfg, domain, &l)

	if cfg.GridSpec.NeedsWavelength() && maxFrequency(cfg) == 0 {
		l.add("grid_spec", "auto grid needs a source, a monitor frequency or an explicit wavelength")
	}
	return l.err()
}

func validateRunTime(cfg Config, l *issues) {
	if !(cfg.RunTime > 0) || math.IsInf(cfg.RunTime, 0) {
		l.add("run_time", "must be positive and finite, got %g", cfg.RunTime)
		return
	}
	fmin := math.Inf(1)
	for _, src := range cfg.Sources {
		if src != nil {
			fmin = math.Min(fmin, src.SourceTime().CentralFrequency())
		}
	}
	if !math.IsInf(fmin, 1) && cfg.RunTime < 1/fmin {
		l.add("run_time", "%g s is shorter than one period %g s of the lowest source frequency %g Hz", cfg.RunTime, 1/fmin, fmin)
	}
}

func validateMonitors(cfg Config, domain *models.Box, l *issues) {
	names := make(map[string]int, len(cfg.Monitors))
	for i, m := range cfg.Monitors {
		field := fmt.Sprintf("monitors[%d]", i)
		if m == nil {
			l.add(field, "is nil")
			continue
		}
		if m.Name() == "" {
			l.add(field, "monitor name must not be empty")
		} else if j, dup := names[m.Name()]; dup {
			l.add(field, "monitor name %q is already used by monitors[%d]", m.Name(), j)
		} else {
			names[m.Name()] = i
		}
		if domain != nil && !models.Intersects(domain, m.Footprint()) {
			l.add(field, "monitor %q does not intersect the simulation domain", m.Name())
		}
		if len(cfg.Sources) == 0 {
			continue
		}
		for _, f := range m.Freqs() {
			if !coveredBySources(cfg.Sources, f) {
				l.add(field, "monitor %q frequency %g Hz is outside every source spectrum", m.Name(), f)
				break
			}
		}
	}
}

func coveredBySources(sources []*models.Source, f float64) bool {
	for _, src := range sources {
		if src == nil {
			continue
		}
		lo, hi := src.FrequencyRange()
		if f >= lo && f <= hi {
			return true
		}
	}
	return false
}

// maxFrequency is the highest source central frequency or monitor frequency.
func maxFrequency(cfg Config) float64 {
	fmax := 0.0
	for _, src := range cfg.Sources {
		if src != nil {
			fmax = math.Max(fmax, src.SourceTime().CentralFrequency())
		}
	}
	for _, m := range cfg.Monitors {
		if m == nil {
			continue
		}
		_, hi := m.FrequencyRange()
		fmax = math.Max(fmax, hi)
	}
	return fmax
}

func overlapWarnings(structures []models.Structure) []string {
	var out []string
	for j := 1; j < len(structures); j++ {
		for i := 0; i < j; i++ {
			a, b := structures[i], structures[j]
			if a.Geometry() == nil || b.Geometry() == nil {
				continue
			}
			if models.Intersects(a.Geometry(), b.Geometry()) && models.OverlapVolume(a.Geometry(), b.Geometry()) > 0 {
				out = append(out, fmt.Sprintf("%s overlaps %s and takes precedence", b.Label(j), a.Label(i)))
			}
		}
	}
	return out
}

func (s *Simulation) Name() string                    { return s.cfg.Name }
func (s *Simulation) Center() models.Vec3             { return s.cfg.Center }
func (s *Simulation) Size() models.Vec3               { return s.cfg.Size }
func (s *Simulation) Medium() models.Medium           { return s.medium }
func (s *Simulation) GridSpec() grid.Spec             { return s.cfg.GridSpec }
func (s *Simulation) Boundaries() models.BoundarySpec { return s.cfg.Boundaries }
func (s *Simulation) Symmetry() [3]int                { return s.cfg.Symmetry }
func (s *Simulation) RunTime() float64                { return s.cfg.RunTime }
func (s *Simulation) Courant() float64                { return s.cfg.Courant }
func (s *Simulation) Shutoff() float64                { return s.cfg.Shutoff }

func (s *Simulation) Structures() []models.Structure {
	return append([]models.Structure(nil), s.cfg.Structures...)
}

func (s *Simulation) Sources() []*models.Source {
	return append([]*models.Source(nil), s.cfg.Sources...)
}

func (s *Simulation) Monitors() []*models.Monitor {
	return append([]*models.Monitor(nil), s.cfg.Monitors...)
}

func (s *Simulation) Warnings() []string {
	return append([]string(nil), s.warnings...)
}

// Domain returns the simulation region as a Box.
func (s *Simulation) Domain() *models.Box {
	b, _ := models.NewBox(s.cfg.Center, s.cfg.Size)
	return b
}

// Monitor returns the monitor with the given name.
func (s *Simulation) Monitor(name string) (*models.Monitor, bool) {
	for _, m := range s.cfg.Monitors {
		if m.Name() == name {
			return m, true
		}
	}
	return nil, false
}

// MonitorNames returns the monitor names in sorted order.
func (s *Simulation) MonitorNames() []string {
	out := make([]string, 0, len(s.cfg.Monitors))
	for _, m := range s.cfg.Monitors {
		out = append(out, m.Name())
	}
	sort.Strings(out)
	return out
}

// MaxFrequency is the highest frequency the grid must resolve.
func (s *Simulation) MaxFrequency() float64 {
	return maxFrequency(s.cfg)
}

// Wavelength returns the vacuum wavelength at MaxFrequency, or the grid
// spec's explicit wavelength when set.
func (s *Simulation) Wavelength() float64 {
	if s.cfg.GridSpec.Wavelength > 0 {
		return s.cfg.GridSpec.Wavelength
	}
	if f := s.MaxFrequency(); f > 0 {
		return models.C0 / f
	}
	return 0
}

// MediumAt returns the medium at p. Later structures take precedence over
// earlier ones; points outside every structure get the background.
func (s *Simulation) MediumAt(p models.Vec3) models.Medium {
	for i := len(s.cfg.Structures) - 1; i >= 0; i-- {
		st := s.cfg.Structures[i]
		if st.Geometry().Contains(p) {
			return st.Medium()
		}
	}
	return s.medium
}

// Grid returns the derived grid, computing it on first call.
func (s *Simulation) Grid() (*grid.Grid, error) {
	s.gridOnce.Do(func() {
		s.grid, s.gridErr = s.cfg.GridSpec.Make(s.gridInput())
		if s.gridErr == nil {
			n := s.grid.NumCells()
			utils.LogDebug("simulation %q: grid %dx%dx%d", s.cfg.Name, n[0], n[1], n[2])
		}
	})
	return s.grid, s.gridErr
}

func (s *Simulation) gridInput() grid.Input {
	f := s.MaxFrequency()
	in := grid.Input{
		Center:     s.cfg.Center,
		Size:       s.cfg.Size,
		Background: s.medium.RefractiveIndex(f),
		Symmetry:   s.cfg.Symmetry,
		Boundaries: s.cfg.Boundaries,
	}
	if f > 0 {
		in.Wavelength = models.C0 / f
	}
	for _, st := range s.cfg.Structures {
		lo, hi := st.Geometry().Bounds()
		in.Regions = append(in.Regions, grid.Region{Min: lo, Max: hi, Index: st.Medium().RefractiveIndex(f)})
	}
	return in
}

// TimeStep returns the Courant-limited time step on the derived grid.
func (s *Simulation) TimeStep() (float64, error) {
	g, err := s.Grid()
	if err != nil {
		return 0, err
	}
	var inv float64
	for _, a := range models.Axes {
		dl := g.MinStep(a)
		inv += 1 / (dl * dl)
	}
	return s.cfg.Courant / (models.C0 * math.Sqrt(inv)), nil
}

// NumTimeSteps returns how many time steps cover RunTime.
func (s *Simulation) NumTimeSteps() (int64, error) {
	dt, err := s.TimeStep()
	if err != nil {
		return 0, err
	}
	return int64(math.Ceil(s.cfg.RunTime / dt)), nil
}
