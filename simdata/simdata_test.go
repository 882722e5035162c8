package simdata_test

import (
	"bytes"
	"compress/gzip"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fdtd-sdk/models"
	"fdtd-sdk/simdata"
)

const artifact = `{
  "version": "1.0",
  "task_id": "fdve-123",
  "units": {"length": "um", "frequency": "Hz", "fields": "normalized"},
  "monitors": {
    "fields": {
      "type": "FieldMonitor",
      "freqs": [4e14],
      "coords": {"x": [-1, 0, 1], "y": [0, 1], "z": [0]},
      "fields": {
        "Ey": {"shape": [3, 2, 1, 1], "real": [1, 2, 3, 4, 5, 6], "imag": [0, 0, 0, 0, 0, 1]}
      }
    },
    "flux": {"type": "FluxMonitor", "freqs": [3e14, 4e14], "flux": [0.5, 0.25]}
  }
}`

func TestDecode(t *testing.T) {
	d, err := simdata.Decode(strings.NewReader(artifact))
	require.NoError(t, err)

	assert.Equal(t, "fdve-123", d.TaskID)
	assert.Equal(t, []string{"fields", "flux"}, d.Names())

	m, err := d.Monitor("fields")
	require.NoError(t, err)
	ey, err := m.Field(models.Ey)
	require.NoError(t, err)
	assert.Equal(t, [4]int{3, 2, 1, 1}, ey.Shape)
	assert.Equal(t, complex(3, 0), ey.At(1, 0, 0, 0))
	assert.Equal(t, complex(6, 1), ey.At(2, 1, 0, 0))
	assert.Equal(t, []float64{1, 4, 9, 16, 25, 37}, ey.Intensity(0))

	_, err = m.Field(models.Ex)
	require.ErrorIs(t, err, simdata.ErrFieldNotFound)
	_, err = d.Monitor("missing")
	require.ErrorIs(t, err, simdata.ErrMonitorNotFound)

	flux, err := d.Monitor("flux")
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, 0.25}, flux.Flux)

	require.NoError(t, d.Covers([]string{"fields", "flux"}))
	require.ErrorIs(t, d.Covers([]string{"fields", "modes"}), simdata.ErrMonitorNotFound)
}

func TestDecode_Rejects(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(string) string
		wantErr error
	}{
		{"wrong length unit", func(s string) string { return strings.Replace(s, `"um"`, `"nm"`, 1) }, simdata.ErrUnits},
		{"shape mismatch", func(s string) string { return strings.Replace(s, `[3, 2, 1, 1]`, `[3, 2, 2, 1]`, 1) }, simdata.ErrMalformedData},
		{"coords mismatch", func(s string) string { return strings.Replace(s, `"y": [0, 1]`, `"y": [0]`, 1) }, simdata.ErrMalformedData},
		{"flux length", func(s string) string { return strings.Replace(s, `[0.5, 0.25]`, `[0.5]`, 1) }, simdata.ErrMalformedData},
		{"unknown component", func(s string) string { return strings.Replace(s, `"Ey"`, `"Ew"`, 1) }, simdata.ErrMalformedData},
		{"truncated", func(s string) string { return s[:len(s)/2] }, simdata.ErrMalformedData},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := simdata.Decode(strings.NewReader(tc.mutate(artifact)))
			require.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestDecodeBytes_Gzip(t *testing.T) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err := gz.Write([]byte(artifact))
	require.NoError(t, err)
	require.NoError(t, gz.Close())

	d, err := simdata.DecodeBytes(buf.Bytes())
	require.NoError(t, err)
	assert.Len(t, d.Monitors, 2)

	d, err = simdata.DecodeBytes([]byte(artifact))
	require.NoError(t, err)
	assert.Len(t, d.Monitors, 2)
}

func TestFiles_RoundTrip(t *testing.T) {
	d, err := simdata.Decode(strings.NewReader(artifact))
	require.NoError(t, err)

	dir := t.TempDir()
	for _, name := range []string{"result.json", "result.json.gz"} {
		path := filepath.Join(dir, name)
		require.NoError(t, simdata.WriteFile(path, d))

		back, err := simdata.ReadFile(path)
		require.NoError(t, err, name)
		assert.Equal(t, d, back)
	}

	_, err = simdata.ReadFile(filepath.Join(dir, "nope.json"))
	require.Error(t, err)
}

type failingCloser struct {
	bytes.Buffer
	closed bool
}

func (f *failingCloser) Close() error {
	f.closed = true
	return errors.New("disk full")
}

func TestWriteFile_ReportsCloseError(t *testing.T) {
	d, err := simdata.Decode(strings.NewReader(artifact))
	require.NoError(t, err)

	for _, gzipped := range []bool{false, true} {
		w := &failingCloser{}
		err := simdata.WriteTo(w, gzipped, d)
		require.Error(t, err, "gzipped=%v", gzipped)
		assert.Contains(t, err.Error(), "disk full")
		assert.True(t, w.closed)
		assert.NotZero(t, w.Len())
	}

	err = simdata.WriteFile(filepath.Join(t.TempDir(), "missing", "result.json"), d)
	require.Error(t, err)
}
