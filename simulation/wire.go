package simulation

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"fdtd-sdk/grid"
	"fdtd-sdk/models"
	"fdtd-sdk/utils"
)

// SchemaVersion is written into every document. Documents with the same major
// version are accepted; unknown top-level keys in them are ignored.
const SchemaVersion = "2.1"

var knownKeys = map[string]bool{
	"version": true, "type": true, "name": true, "center": true, "size": true,
	"medium": true, "structures": true, "sources": true, "monitors": true,
	"grid_spec": true, "boundary_spec": true, "symmetry": true, "run_time": true,
	"courant": true, "shutoff": true,
}

// wireFloat encodes infinities as "Infinity" and "-Infinity".
type wireFloat float64

func (f wireFloat) MarshalJSON() ([]byte, error) {
	v := float64(f)
	switch {
	case math.IsInf(v, 1):
		return []byte(`"Infinity"`), nil
	case math.IsInf(v, -1):
		return []byte(`"-Infinity"`), nil
	case math.IsNaN(v):
		return nil, fmt.Errorf("cannot encode NaN")
	}
	return strconv.AppendFloat(nil, v, 'g', -1, 64), nil
}

func (f *wireFloat) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		switch strings.ToLower(s) {
		case "infinity", "+infinity", "inf":
			*f = wireFloat(math.Inf(1))
		case "-infinity", "-inf":
			*f = wireFloat(math.Inf(-1))
		default:
			return fmt.Errorf("invalid number %q", s)
		}
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*f = wireFloat(v)
	return nil
}

type wireVec [3]wireFloat

func toWireVec(v models.Vec3) wireVec {
	return wireVec{wireFloat(v[0]), wireFloat(v[1]), wireFloat(v[2])}
}

func (w wireVec) vec() models.Vec3 {
	return models.Vec3{float64(w[0]), float64(w[1]), float64(w[2])}
}

type wireMedium struct {
	Type         string               `json:"type"`
	Name         string               `json:"name,omitempty"`
	Permittivity float64              `json:"permittivity"`
	Conductivity float64              `json:"conductivity"`
	Lorentz      []models.LorentzPole `json:"lorentz,omitempty"`
	Drude        []models.DrudePole   `json:"drude,omitempty"`
	Active       bool                 `json:"active,omitempty"`
}

type wireGeometry struct {
	Type       string        `json:"type"`
	Center     *wireVec      `json:"center,omitempty"`
	Size       *wireVec      `json:"size,omitempty"`
	Radius     *float64      `json:"radius,omitempty"`
	Length     *wireFloat    `json:"length,omitempty"`
	Axis       *int          `json:"axis,omitempty"`
	Vertices   [][2]float64  `json:"vertices,omitempty"`
	SlabBounds *[2]wireFloat `json:"slab_bounds,omitempty"`
}

type wireStructure struct {
	Type     string       `json:"type"`
	Name     string       `json:"name,omitempty"`
	Geometry wireGeometry `json:"geometry"`
	Medium   wireMedium   `json:"medium"`
}

type wireSourceTime struct {
	Type      string    `json:"type"`
	Freq0     float64   `json:"freq0"`
	Fwidth    float64   `json:"fwidth,omitempty"`
	Offset    float64   `json:"offset,omitempty"`
	Phase     float64   `json:"phase,omitempty"`
	Amplitude float64   `json:"amplitude,omitempty"`
	Dt        float64   `json:"dt,omitempty"`
	Samples   []float64 `json:"samples,omitempty"`
}

type wireSource struct {
	Type         string              `json:"type"`
	Name         string              `json:"name,omitempty"`
	Center       wireVec             `json:"center"`
	Size         wireVec             `json:"size"`
	Polarization models.Polarization `json:"polarization"`
	SourceTime   wireSourceTime      `json:"source_time"`
}

type wireMonitor struct {
	Type     string                `json:"type"`
	Name     string                `json:"name"`
	Center   wireVec               `json:"center"`
	Size     wireVec               `json:"size"`
	Freqs    []float64             `json:"freqs"`
	Fields   []models.Polarization `json:"fields,omitempty"`
	Colocate bool                  `json:"colocate,omitempty"`
}

type wireGrid1D struct {
	Type               string    `json:"type"`
	MinStepsPerWvl     float64   `json:"min_steps_per_wvl,omitempty"`
	MinStepsPerSimSize *float64  `json:"min_steps_per_sim_size,omitempty"`
	MaxScale           float64   `json:"max_scale,omitempty"`
	DL                 float64   `json:"dl,omitempty"`
	Coords             []float64 `json:"coords,omitempty"`
}

type wireGridSpec struct {
	Type           string     `json:"type"`
	GridX          wireGrid1D `json:"grid_x"`
	GridY          wireGrid1D `json:"grid_y"`
	GridZ          wireGrid1D `json:"grid_z"`
	Wavelength     float64    `json:"wavelength,omitempty"`
	SnappingPoints []wireVec  `json:"snapping_points,omitempty"`
	MaxCells       int64      `json:"max_cells,omitempty"`
}

type wireSimulation struct {
	Version      string              `json:"version"`
	Type         string              `json:"type"`
	Name         string              `json:"name,omitempty"`
	Center       wireVec             `json:"center"`
	Size         wireVec             `json:"size"`
	Medium       wireMedium          `json:"medium"`
	Structures   []wireStructure     `json:"structures"`
	Sources      []wireSource        `json:"sources"`
	Monitors     []wireMonitor       `json:"monitors"`
	GridSpec     wireGridSpec        `json:"grid_spec"`
	BoundarySpec models.BoundarySpec `json:"boundary_spec"`
	Symmetry     [3]int              `json:"symmetry"`
	RunTime      float64             `json:"run_time"`
	Courant      float64             `json:"courant"`
	Shutoff      float64             `json:"shutoff"`
}

// MarshalJSON encodes the Simulation as a versioned wire document.
func (s *Simulation) MarshalJSON() ([]byte, error) {
	w := wireSimulation{
		Version:      SchemaVersion,
		Type:         "Simulation",
		Name:         s.cfg.Name,
		Center:       toWireVec(s.cfg.Center),
		Size:         toWireVec(s.cfg.Size),
		Medium:       encodeMedium(s.medium),
		Structures:   []wireStructure{},
		Sources:      []wireSource{},
		Monitors:     []wireMonitor{},
		GridSpec:     encodeGridSpec(s.cfg.GridSpec),
		BoundarySpec: s.cfg.Boundaries,
		Symmetry:     s.cfg.Symmetry,
		RunTime:      s.cfg.RunTime,
		Courant:      s.cfg.Courant,
		Shutoff:      s.cfg.Shutoff,
	}
	for i, st := range s.cfg.Structures {
		geo, err := encodeGeometry(st.Geometry())
		if err != nil {
			return nil, fmt.Errorf("structures[%d]: %w", i, err)
		}
		w.Structures = append(w.Structures, wireStructure{
			Type:     "Structure",
			Name:     st.Name(),
			Geometry: geo,
			Medium:   encodeMedium(st.Medium()),
		})
	}
	for i, src := range s.cfg.Sources {
		st, err := encodeSourceTime(src.SourceTime())
		if err != nil {
			return nil, fmt.Errorf("sources[%d]: %w", i, err)
		}
		w.Sources = append(w.Sources, wireSource{
			Type:         string(src.Kind()),
			Name:         src.Name(),
			Center:       toWireVec(src.Center()),
			Size:         toWireVec(src.Size()),
			Polarization: src.Polarization(),
			SourceTime:   st,
		})
	}
	for _, m := range s.cfg.Monitors {
		w.Monitors = append(w.Monitors, wireMonitor{
			Type:     string(m.Kind()),
			Name:     m.Name(),
			Center:   toWireVec(m.Center()),
			Size:     toWireVec(m.Size()),
			Freqs:    m.Freqs(),
			Fields:   m.Fields(),
			Colocate: m.Colocate(),
		})
	}
	return json.Marshal(w)
}

func encodeMedium(m models.Medium) wireMedium {
	return wireMedium{
		Type:         "Medium",
		Name:         m.Name(),
		Permittivity: m.StaticPermittivity(),
		Conductivity: m.Conductivity(),
		Lorentz:      m.LorentzPoles(),
		Drude:        m.DrudePoles(),
		Active:       m.IsActive(),
	}
}

func encodeGeometry(g models.Geometry) (wireGeometry, error) {
	w := wireGeometry{Type: g.Kind()}
	center := toWireVec(g.Center())
	switch geo := g.(type) {
	case *models.Box:
		size := toWireVec(geo.Size())
		w.Center, w.Size = &center, &size
	case *models.Sphere:
		r := geo.Radius()
		w.Center, w.Radius = &center, &r
	case *models.Cylinder:
		r, l, a := geo.Radius(), wireFloat(geo.Length()), int(geo.Axis())
		w.Center, w.Radius, w.Length, w.Axis = &center, &r, &l, &a
	case *models.PolySlab:
		lo, hi := geo.SlabBounds()
		a := int(geo.Axis())
		w.Vertices = geo.Vertices()
		w.Axis = &a
		w.SlabBounds = &[2]wireFloat{wireFloat(lo), wireFloat(hi)}
	default:
		return w, fmt.Errorf("geometry %q cannot be encoded", g.Kind())
	}
	return w, nil
}

func encodeSourceTime(st models.SourceTime) (wireSourceTime, error) {
	w := wireSourceTime{Type: st.Kind(), Freq0: st.CentralFrequency()}
	switch t := st.(type) {
	case *models.GaussianPulse:
		w.Fwidth, w.Offset, w.Phase, w.Amplitude = t.Bandwidth(), t.Offset(), t.Phase(), t.Scale()
	case *models.ContinuousWave:
		w.Fwidth, w.Offset, w.Phase, w.Amplitude = t.Bandwidth(), t.Offset(), t.Phase(), t.Scale()
	case *models.CustomSourceTime:
		w.Dt, w.Samples = t.SampleSpacing(), t.Samples()
	default:
		return w, fmt.Errorf("source time %q cannot be encoded", st.Kind())
	}
	return w, nil
}

func encodeGridSpec(s grid.Spec) wireGridSpec {
	w := wireGridSpec{
		Type:       "GridSpec",
		GridX:      encodeGrid1D(s.X),
		GridY:      encodeGrid1D(s.Y),
		GridZ:      encodeGrid1D(s.Z),
		Wavelength: s.Wavelength,
		MaxCells:   s.MaxCells,
	}
	for _, p := range s.SnappingPoints {
		w.SnappingPoints = append(w.SnappingPoints, toWireVec(p))
	}
	return w
}

func encodeGrid1D(s grid.Spec1D) wireGrid1D {
	w := wireGrid1D{Type: string(s.Kind)}
	switch s.Kind {
	case grid.KindAuto:
		steps := s.MinStepsPerSimSize
		w.MinStepsPerWvl, w.MinStepsPerSimSize, w.MaxScale = s.MinStepsPerWvl, &steps, s.MaxScale
	case grid.KindUniform:
		w.DL = s.DL
	case grid.KindCustom:
		w.Coords = append([]float64(nil), s.Boundaries...)
	}
	return w
}

// Unmarshal decodes a wire document and validates the result with New.
func Unmarshal(data []byte) (*Simulation, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}

	var version string
	if raw, ok := top["version"]; !ok {
		return nil, fmt.Errorf("%w: missing version", ErrMalformedDocument)
	} else if err := json.Unmarshal(raw, &version); err != nil {
		return nil, fmt.Errorf("%w: version: %v", ErrMalformedDocument, err)
	}
	if err := checkVersion(version); err != nil {
		return nil, err
	}

	var unknown []string
	for k := range top {
		if !knownKeys[k] {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		utils.LogDebug("ignoring unknown simulation keys %v in version %s document", unknown, version)
	}

	var w wireSimulation
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	if w.Type != "" && w.Type != "Simulation" {
		return nil, fmt.Errorf("%w: type %q is not a Simulation", ErrMalformedDocument, w.Type)
	}
	cfg, err := w.config()
	if err != nil {
		return nil, err
	}
	return New(cfg)
}

func checkVersion(version string) error {
	major, _, _ := strings.Cut(version, ".")
	n, err := strconv.Atoi(major)
	if err != nil {
		return fmt.Errorf("%w: version %q", ErrMalformedDocument, version)
	}
	want, _, _ := strings.Cut(SchemaVersion, ".")
	if strconv.Itoa(n) != want {
		return fmt.Errorf("%w: document version %s, supported %s", ErrIncompatibleSchema, version, SchemaVersion)
	}
	return nil
}

func (w wireSimulation) config() (Config, error) {
	medium, err := w.Medium.decode()
	if err != nil {
		return Config{}, fmt.Errorf("%w: medium: %w", ErrMalformedDocument, err)
	}
	gs, err := w.GridSpec.decode()
	if err != nil {
		return Config{}, fmt.Errorf("%w: grid_spec: %w", ErrMalformedDocument, err)
	}
	cfg := Config{
		Name:       w.Name,
		Center:     w.Center.vec(),
		Size:       w.Size.vec(),
		Medium:     &medium,
		GridSpec:   gs,
		Boundaries: w.BoundarySpec,
		Symmetry:   w.Symmetry,
		RunTime:    w.RunTime,
		Courant:    w.Courant,
		Shutoff:    w.Shutoff,
	}
	for i, ws := range w.Structures {
		geo, err := ws.Geometry.decode()
		if err != nil {
			return Config{}, fmt.Errorf("%w: structures[%d]: %w", ErrMalformedDocument, i, err)
		}
		m, err := ws.Medium.decode()
		if err != nil {
			return Config{}, fmt.Errorf("%w: structures[%d]: %w", ErrMalformedDocument, i, err)
		}
		st, err := models.NewStructure(ws.Name, geo, m)
		if err != nil {
			return Config{}, fmt.Errorf("%w: structures[%d]: %w", ErrMalformedDocument, i, err)
		}
		cfg.Structures = append(cfg.Structures, st)
	}
	for i, ws := range w.Sources {
		src, err := ws.decode()
		if err != nil {
			return Config{}, fmt.Errorf("%w: sources[%d]: %w", ErrMalformedDocument, i, err)
		}
		cfg.Sources = append(cfg.Sources, src)
	}
	for i, wm := range w.Monitors {
		m, err := wm.decode()
		if err != nil {
			return Config{}, fmt.Errorf("%w: monitors[%d]: %w", ErrMalformedDocument, i, err)
		}
		cfg.Monitors = append(cfg.Monitors, m)
	}
	return cfg, nil
}

func (w wireMedium) decode() (models.Medium, error) {
	if w.Type == "" && w.Permittivity == 0 {
		return models.Vacuum(), nil
	}
	opts := []models.MediumOption{models.WithMediumName(w.Name), models.WithConductivity(w.Conductivity)}
	for _, p := range w.Lorentz {
		opts = append(opts, models.WithLorentzPole(p))
	}
	for _, p := range w.Drude {
		opts = append(opts, models.WithDrudePole(p))
	}
	if w.Active {
		opts = append(opts, models.AsActive())
	}
	return models.NewMedium(w.Permittivity, opts...)
}

func (w wireGeometry) decode() (models.Geometry, error) {
	need := func(ok bool, field string) error {
		if !ok {
			return fmt.Errorf("%s geometry is missing %s", w.Type, field)
		}
		return nil
	}
	switch w.Type {
	case "Box":
		if err := need(w.Center != nil && w.Size != nil, "center or size"); err != nil {
			return nil, err
		}
		return models.NewBox(w.Center.vec(), w.Size.vec())
	case "Sphere":
		if err := need(w.Center != nil && w.Radius != nil, "center or radius"); err != nil {
			return nil, err
		}
		return models.NewSphere(w.Center.vec(), *w.Radius)
	case "Cylinder":
		if err := need(w.Center != nil && w.Radius != nil && w.Length != nil && w.Axis != nil, "center, radius, length or axis"); err != nil {
			return nil, err
		}
		return models.NewCylinder(w.Center.vec(), *w.Radius, float64(*w.Length), models.Axis(*w.Axis))
	case "PolySlab":
		if err := need(w.SlabBounds != nil && w.Axis != nil, "slab_bounds or axis"); err != nil {
			return nil, err
		}
		return models.NewPolySlab(w.Vertices, models.Axis(*w.Axis), float64(w.SlabBounds[0]), float64(w.SlabBounds[1]))
	}
	return nil, fmt.Errorf("unknown geometry type %q", w.Type)
}

func (w wireSourceTime) decode() (models.SourceTime, error) {
	var opts []models.PulseOption
	if w.Offset != 0 {
		opts = append(opts, models.WithOffset(w.Offset))
	}
	if w.Phase != 0 {
		opts = append(opts, models.WithPhase(w.Phase))
	}
	if w.Amplitude != 0 {
		opts = append(opts, models.WithAmplitude(w.Amplitude))
	}
	switch w.Type {
	case "GaussianPulse":
		return models.NewGaussianPulse(w.Freq0, w.Fwidth, opts...)
	case "ContinuousWave":
		return models.NewContinuousWave(w.Freq0, w.Fwidth, opts...)
	case "CustomSourceTime":
		return models.NewCustomSourceTime(w.Freq0, w.Dt, w.Samples)
	}
	return nil, fmt.Errorf("unknown source time type %q", w.Type)
}

func (w wireSource) decode() (*models.Source, error) {
	st, err := w.SourceTime.decode()
	if err != nil {
		return nil, err
	}
	opts := []models.SourceOption{models.WithSourceName(w.Name)}
	switch models.SourceKind(w.Type) {
	case models.UniformCurrentSourceKind:
		return models.NewUniformCurrentSource(w.Center.vec(), w.Size.vec(), st, w.Polarization, opts...)
	case models.PointDipoleKind:
		return models.NewPointDipole(w.Center.vec(), st, w.Polarization, opts...)
	}
	return nil, fmt.Errorf("unknown source type %q", w.Type)
}

func (w wireMonitor) decode() (*models.Monitor, error) {
	switch models.MonitorKind(w.Type) {
	case models.FieldMonitorKind:
		opts := []models.MonitorOption{models.WithColocate(w.Colocate)}
		if len(w.Fields) > 0 {
			opts = append(opts, models.WithFields(w.Fields...))
		}
		return models.NewFieldMonitor(w.Name, w.Center.vec(), w.Size.vec(), w.Freqs, opts...)
	case models.FluxMonitorKind:
		return models.NewFluxMonitor(w.Name, w.Center.vec(), w.Size.vec(), w.Freqs)
	}
	return nil, fmt.Errorf("unknown monitor type %q", w.Type)
}

func (w wireGridSpec) decode() (grid.Spec, error) {
	var s grid.Spec
	for i, g := range []wireGrid1D{w.GridX, w.GridY, w.GridZ} {
		rule, err := g.decode()
		if err != nil {
			return s, fmt.Errorf("grid_%s: %w", models.Axis(i), err)
		}
		switch i {
		case 0:
			s.X = rule
		case 1:
			s.Y = rule
		default:
			s.Z = rule
		}
	}
	s.Wavelength = w.Wavelength
	s.MaxCells = w.MaxCells
	for _, p := range w.SnappingPoints {
		s.SnappingPoints = append(s.SnappingPoints, p.vec())
	}
	return s, nil
}

func (w wireGrid1D) decode() (grid.Spec1D, error) {
	switch grid.Kind(w.Type) {
	case grid.KindAuto, "":
		rule := grid.Auto(w.MinStepsPerWvl)
		if w.MinStepsPerSimSize != nil {
			rule.MinStepsPerSimSize = *w.MinStepsPerSimSize
		}
		if w.MaxScale != 0 {
			rule.MaxScale = w.MaxScale
		}
		return rule, nil
	case grid.KindUniform:
		return grid.Uniform(w.DL), nil
	case grid.KindCustom:
		return grid.Custom(w.Coords), nil
	}
	return grid.Spec1D{}, fmt.Errorf("unknown grid type %q", w.Type)
}
