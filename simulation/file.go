package simulation

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// MarshalYAML encodes the Simulation as a YAML wire document.
func MarshalYAML(s *Simulation) ([]byte, error) {
	data, err := s.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var doc map[string]interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return yaml.Marshal(doc)
}

// UnmarshalYAML decodes a YAML wire document. YAML is converted to JSON and
// decoded by Unmarshal, so both formats share one schema.
func UnmarshalYAML(data []byte) (*Simulation, error) {
	var doc map[string]interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	jsonData, err := json.Marshal(normalizeYAML(doc))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	return Unmarshal(jsonData)
}

// normalizeYAML makes a decoded YAML tree JSON-encodable: .inf becomes
// "Infinity" and maps with non-string keys get string keys.
func normalizeYAML(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		for k, item := range t {
			t[k] = normalizeYAML(item)
		}
		return t
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, item := range t {
			out[fmt.Sprint(k)] = normalizeYAML(item)
		}
		return out
	case []interface{}:
		for i, item := range t {
			t[i] = normalizeYAML(item)
		}
		return t
	case float64:
		switch {
		case math.IsInf(t, 1):
			return "Infinity"
		case math.IsInf(t, -1):
			return "-Infinity"
		}
	}
	return v
}

// LoadFile reads a simulation from a .json, .yaml or .yml file.
func LoadFile(path string) (*Simulation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read simulation file: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return UnmarshalYAML(data)
	case ".json":
		return Unmarshal(data)
	}
	return nil, fmt.Errorf("unsupported simulation file extension %q", filepath.Ext(path))
}

// WriteFile writes s to path, choosing the format from the extension.
func WriteFile(s *Simulation, path string) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = MarshalYAML(s)
	case ".json":
		data, err = json.MarshalIndent(s, "", "  ")
	default:
		return fmt.Errorf("unsupported simulation file extension %q", filepath.Ext(path))
	}
	if err != nil {
		return fmt.Errorf("failed to encode simulation: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write simulation file: %w", err)
	}
	return nil
}
