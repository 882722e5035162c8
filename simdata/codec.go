package simdata

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"fdtd-sdk/models"
)

type wireArray struct {
	Shape [4]int    `json:"shape"`
	Real  []float64 `json:"real"`
	Imag  []float64 `json:"imag"`
}

type wireCoords struct {
	X []float64 `json:"x"`
	Y []float64 `json:"y"`
	Z []float64 `json:"z"`
}

type wireMonitor struct {
	Type   string               `json:"type"`
	Freqs  []float64            `json:"freqs"`
	Coords *wireCoords          `json:"coords,omitempty"`
	Fields map[string]wireArray `json:"fields,omitempty"`
	Flux   []float64            `json:"flux,omitempty"`
}

type wireData struct {
	Version  string                 `json:"version"`
	TaskID   string                 `json:"task_id"`
	Units    Units                  `json:"units"`
	Monitors map[string]wireMonitor `json:"monitors"`
}

// Decode reads and validates an artifact.
func Decode(r io.Reader) (*SimulationData, error) {
	var w wireData
	if err := json.NewDecoder(r).Decode(&w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedData, err)
	}
	if w.Units.Length != LengthUnit || w.Units.Frequency != FrequencyUnit {
		return nil, fmt.Errorf("%w: length %q, frequency %q", ErrUnits, w.Units.Length, w.Units.Frequency)
	}

	d := &SimulationData{
		Version:  w.Version,
		TaskID:   w.TaskID,
		Units:    w.Units,
		Monitors: make(map[string]*MonitorData, len(w.Monitors)),
	}
	for name, wm := range w.Monitors {
		m, err := wm.decode(name)
		if err != nil {
			return nil, err
		}
		d.Monitors[name] = m
	}
	return d, nil
}

func (wm wireMonitor) decode(name string) (*MonitorData, error) {
	m := &MonitorData{
		Name:  name,
		Type:  models.MonitorKind(wm.Type),
		Freqs: wm.Freqs,
		Flux:  wm.Flux,
	}
	if len(wm.Freqs) == 0 {
		return nil, fmt.Errorf("%w: monitor %q has no frequencies", ErrMalformedData, name)
	}
	if wm.Coords != nil {
		m.Coords = [3][]float64{wm.Coords.X, wm.Coords.Y, wm.Coords.Z}
	}
	if m.Type == models.FluxMonitorKind && len(wm.Flux) != len(wm.Freqs) {
		return nil, fmt.Errorf("%w: monitor %q has %d flux values for %d frequencies", ErrMalformedData, name, len(wm.Flux), len(wm.Freqs))
	}

	if len(wm.Fields) > 0 {
		m.Fields = make(map[models.Polarization]*FieldArray, len(wm.Fields))
	}
	for comp, arr := range wm.Fields {
		c := models.Polarization(comp)
		if !c.Valid() {
			return nil, fmt.Errorf("%w: monitor %q has unknown component %q", ErrMalformedData, name, comp)
		}
		fa, err := arr.decode()
		if err != nil {
			return nil, fmt.Errorf("%w: monitor %q component %s: %v", ErrMalformedData, name, comp, err)
		}
		if fa.Shape[3] != len(wm.Freqs) {
			return nil, fmt.Errorf("%w: monitor %q component %s has %d frequencies, want %d", ErrMalformedData, name, comp, fa.Shape[3], len(wm.Freqs))
		}
		if wm.Coords != nil {
			for ax := 0; ax < 3; ax++ {
				if fa.Shape[ax] != len(m.Coords[ax]) {
					return nil, fmt.Errorf("%w: monitor %q component %s has %d samples along %s, coords have %d",
						ErrMalformedData, name, comp, fa.Shape[ax], models.Axis(ax), len(m.Coords[ax]))
				}
			}
		}
		m.Fields[c] = fa
	}
	return m, nil
}

func (w wireArray) decode() (*FieldArray, error) {
	n := 1
	for _, s := range w.Shape {
		if s <= 0 {
			return nil, fmt.Errorf("shape %v has a non-positive dimension", w.Shape)
		}
		n *= s
	}
	if len(w.Real) != n || len(w.Imag) != n {
		return nil, fmt.Errorf("shape %v needs %d values, got %d real and %d imaginary", w.Shape, n, len(w.Real), len(w.Imag))
	}
	vals := make([]complex128, n)
	for i := range vals {
		vals[i] = complex(w.Real[i], w.Imag[i])
	}
	return &FieldArray{Shape: w.Shape, Values: vals}, nil
}

// DecodeBytes decodes an artifact body, gunzipping it when it starts with the
// gzip magic bytes.
func DecodeBytes(body []byte) (*SimulationData, error) {
	if len(body) >= 2 && body[0] == 0x1f && body[1] == 0x8b {
		gz, err := gzip.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedData, err)
		}
		defer gz.Close()
		return Decode(gz)
	}
	return Decode(bytes.NewReader(body))
}

// Encode writes d as an artifact.
func Encode(w io.Writer, d *SimulationData) error {
	out := wireData{
		Version:  d.Version,
		TaskID:   d.TaskID,
		Units:    d.Units,
		Monitors: make(map[string]wireMonitor, len(d.Monitors)),
	}
	if out.Units.Length == "" {
		out.Units.Length = LengthUnit
	}
	if out.Units.Frequency == "" {
		out.Units.Frequency = FrequencyUnit
	}
	for name, m := range d.Monitors {
		wm := wireMonitor{Type: string(m.Type), Freqs: m.Freqs, Flux: m.Flux}
		if m.Coords[0] != nil || m.Coords[1] != nil || m.Coords[2] != nil {
			wm.Coords = &wireCoords{X: m.Coords[0], Y: m.Coords[1], Z: m.Coords[2]}
		}
		if len(m.Fields) > 0 {
			wm.Fields = make(map[string]wireArray, len(m.Fields))
		}
		for c, fa := range m.Fields {
			arr := wireArray{Shape: fa.Shape, Real: make([]float64, len(fa.Values)), Imag: make([]float64, len(fa.Values))}
			for i, v := range fa.Values {
				arr.Real[i], arr.Imag[i] = real(v), imag(v)
			}
			wm.Fields[string(c)] = arr
		}
		out.Monitors[name] = wm
	}
	return json.NewEncoder(w).Encode(out)
}

// ReadFile decodes an artifact from path. Paths ending in .gz are gunzipped.
func ReadFile(path string) (*SimulationData, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open result file: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedData, err)
		}
		defer gz.Close()
		r = gz
	}
	return Decode(r)
}

// WriteFile encodes d to path. Paths ending in .gz are gzipped.
func WriteFile(path string, d *SimulationData) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create result file: %w", err)
	}
	return writeTo(f, strings.HasSuffix(path, ".gz"), d)
}

// writeTo encodes d into w and closes it. A failed close is reported since
// it may be the first sign of an incomplete write.
func writeTo(w io.WriteCloser, gzipped bool, d *SimulationData) error {
	var err error
	if gzipped {
		gz := gzip.NewWriter(w)
		if err = Encode(gz, d); err == nil {
			err = gz.Close()
		}
	} else {
		err = Encode(w, d)
	}
	if cerr := w.Close(); cerr != nil && err == nil {
		err = fmt.Errorf("failed to write result file: %w", cerr)
	}
	return err
}
