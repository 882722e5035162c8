package models

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// MonitorKind is the recording mode of a monitor.
type MonitorKind string

const (
	FieldMonitorKind MonitorKind = "FieldMonitor"
	FluxMonitorKind  MonitorKind = "FluxMonitor"
)

// Monitor records frequency-domain data over a footprint.
type Monitor struct {
	kind     MonitorKind
	name     string
	center   Vec3
	size     Vec3
	freqs    []float64
	fields   []Polarization
	colocate bool
}

// MonitorOption configures a Monitor
type MonitorOption func(*Monitor)

// WithFields restricts a field monitor to the given components. Default is all six.
func WithFields(fields ...Polarization) MonitorOption {
	return func(m *Monitor) {
		m.fields = append([]Polarization(nil), fields...)
	}
}

// WithColocate requests field values interpolated onto the cell boundaries
// instead of the staggered component positions.
func WithColocate(colocate bool) MonitorOption {
	return func(m *Monitor) {
		m.colocate = colocate
	}
}

// NewFieldMonitor creates a monitor that records field components at freqs.
func NewFieldMonitor(name string, center, size Vec3, freqs []float64, opts ...MonitorOption) (*Monitor, error) {
	m := &Monitor{kind: FieldMonitorKind, fields: append([]Polarization(nil), Polarizations...)}
	for _, opt := range opts {
		opt(m)
	}
	if len(m.fields) == 0 {
		return nil, fmt.Errorf("%w: monitor %q records no field components", ErrInvalidPolarization, name)
	}
	seen := make(map[Polarization]bool, len(m.fields))
	for _, f := range m.fields {
		if !f.Valid() {
			return nil, fmt.Errorf("%w: monitor %q field %q", ErrInvalidPolarization, name, f)
		}
		if seen[f] {
			return nil, fmt.Errorf("%w: monitor %q lists %q twice", ErrInvalidPolarization, name, f)
		}
		seen[f] = true
	}
	return m, initMonitor(m, name, center, size, freqs)
}

// NewFluxMonitor creates a monitor that records the power flux through a plane.
// The footprint must have exactly one zero-size axis.
func NewFluxMonitor(name string, center, size Vec3, freqs []float64) (*Monitor, error) {
	m := &Monitor{kind: FluxMonitorKind}
	if err := initMonitor(m, name, center, size, freqs); err != nil {
		return nil, err
	}
	if _, ok := m.NormalAxis(); !ok {
		return nil, fmt.Errorf("%w: flux monitor %q must be planar, got size %v", ErrInvalidSpatialExtent, name, size)
	}
	return m, nil
}

func initMonitor(m *Monitor, name string, center, size Vec3, freqs []float64) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: monitor name must not be empty", ErrInvalidName)
	}
	if err := checkFootprint(center, size); err != nil {
		return fmt.Errorf("monitor %q: %w", name, err)
	}
	if len(freqs) == 0 {
		return fmt.Errorf("%w: monitor %q has no frequencies", ErrInvalidFrequency, name)
	}
	for _, f := range freqs {
		if !(f > 0) || math.IsInf(f, 0) {
			return fmt.Errorf("%w: monitor %q frequency %g must be positive", ErrInvalidFrequency, name, f)
		}
	}
	m.name = name
	m.center = center
	m.size = size
	m.freqs = append([]float64(nil), freqs...)
	return nil
}

func (m *Monitor) Kind() MonitorKind { return m.kind }
func (m *Monitor) Name() string      { return m.name }
func (m *Monitor) Center() Vec3      { return m.center }
func (m *Monitor) Size() Vec3        { return m.size }
func (m *Monitor) Colocate() bool    { return m.colocate }

// Freqs returns a copy of the sampling frequencies.
func (m *Monitor) Freqs() []float64 {
	return append([]float64(nil), m.freqs...)
}

// Fields returns the recorded components, nil for flux monitors.
func (m *Monitor) Fields() []Polarization {
	return append([]Polarization(nil), m.fields...)
}

// FrequencyRange returns the smallest and largest sampling frequency.
func (m *Monitor) FrequencyRange() (float64, float64) {
	sorted := append([]float64(nil), m.freqs...)
	sort.Float64s(sorted)
	return sorted[0], sorted[len(sorted)-1]
}

// NormalAxis returns the single zero-size axis of a planar footprint.
func (m *Monitor) NormalAxis() (Axis, bool) {
	zeros := m.Footprint().ZeroAxes()
	if len(zeros) != 1 {
		return 0, false
	}
	return zeros[0], true
}

// Footprint returns the monitor region as a Box.
func (m *Monitor) Footprint() *Box {
	return &Box{center: m.center, size: m.size}
}
