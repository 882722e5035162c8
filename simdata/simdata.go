// Package simdata decodes the result artifact of a finished simulation.
//
// The artifact is a JSON document keyed by monitor name. Field components are
// stored as flat real/imaginary arrays in (x, y, z, frequency) order.
package simdata

import (
	"errors"
	"fmt"
	"sort"

	"fdtd-sdk/models"
)

var (
	ErrMalformedData   = errors.New("simdata: malformed result artifact")
	ErrUnits           = errors.New("simdata: unexpected units")
	ErrMonitorNotFound = errors.New("simdata: monitor not found")
	ErrFieldNotFound   = errors.New("simdata: field component not found")
)

// Fixed units of the artifact.
const (
	LengthUnit    = "um"
	FrequencyUnit = "Hz"
)

// Units records the units the artifact was written in.
type Units struct {
	Length    string `json:"length"`
	Frequency string `json:"frequency"`
	Fields    string `json:"fields"`
}

// SimulationData is the decoded result of one task.
type SimulationData struct {
	Version  string
	TaskID   string
	Units    Units
	Monitors map[string]*MonitorData
}

// MonitorData holds what one monitor recorded.
type MonitorData struct {
	Name  string
	Type  models.MonitorKind
	Freqs []float64
	// Coords are the sample positions along x, y and z.
	Coords [3][]float64
	Fields map[models.Polarization]*FieldArray
	// Flux is the power through a flux monitor, one value per frequency.
	Flux []float64
}

// FieldArray is a complex field component sampled on a (nx, ny, nz, nf) grid.
type FieldArray struct {
	Shape  [4]int
	Values []complex128
}

// Index returns the flat position of (i, j, k, f).
func (a *FieldArray) Index(i, j, k, f int) int {
	return ((i*a.Shape[1]+j)*a.Shape[2]+k)*a.Shape[3] + f
}

// At returns the value at (i, j, k, f).
func (a *FieldArray) At(i, j, k, f int) complex128 {
	return a.Values[a.Index(i, j, k, f)]
}

// Intensity returns |E|^2 of every spatial sample at frequency index f.
func (a *FieldArray) Intensity(f int) []float64 {
	n := a.Shape[0] * a.Shape[1] * a.Shape[2]
	out := make([]float64, 0, n)
	for p := 0; p < n; p++ {
		v := a.Values[p*a.Shape[3]+f]
		out = append(out, real(v)*real(v)+imag(v)*imag(v))
	}
	return out
}

// Monitor returns the data recorded by the named monitor.
func (d *SimulationData) Monitor(name string) (*MonitorData, error) {
	m, ok := d.Monitors[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrMonitorNotFound, name)
	}
	return m, nil
}

// Names returns the monitor names in sorted order.
func (d *SimulationData) Names() []string {
	out := make([]string, 0, len(d.Monitors))
	for name := range d.Monitors {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Covers checks that every named monitor is present.
func (d *SimulationData) Covers(names []string) error {
	for _, n := range names {
		if _, ok := d.Monitors[n]; !ok {
			return fmt.Errorf("%w: %q", ErrMonitorNotFound, n)
		}
	}
	return nil
}

// Field returns one recorded component.
func (m *MonitorData) Field(c models.Polarization) (*FieldArray, error) {
	f, ok := m.Fields[c]
	if !ok {
		return nil, fmt.Errorf("%w: monitor %q has no %s", ErrFieldNotFound, m.Name, c)
	}
	return f, nil
}
