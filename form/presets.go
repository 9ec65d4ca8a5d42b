package form

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"juliaform/params"
)

// ErrEmptyPresets is returned when a presets document sets no field at all.
var ErrEmptyPresets = errors.New("form: presets file sets no fields")

// ParsePresets decodes a YAML mapping of field name to value. Scalars are kept
// as written, so "250.0" stays "250.0" rather than becoming a float.
func ParsePresets(data []byte) (params.Snapshot, error) {
	var s params.Snapshot
	if err := yaml.Unmarshal(data, &s); err != nil {
		return params.Snapshot{}, fmt.Errorf("form: decode presets: %w", err)
	}
	if s.IsZero() {
		return params.Snapshot{}, ErrEmptyPresets
	}
	return s, nil
}

// LoadPresets reads and decodes a presets file.
func LoadPresets(path string) (params.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return params.Snapshot{}, fmt.Errorf("form: read presets %s: %w", path, err)
	}
	return ParsePresets(data)
}

// DefaultParams is the starting view: the classic c = -0.8 + 0.156i set over
// a 4 by 3 window.
func DefaultParams() params.Snapshot {
	return params.Snapshot{
		RealComponent:      "-0.8",
		ImaginaryComponent: "0.156",
		MinXValue:          "-2",
		MaxXValue:          "2",
		MinYValue:          "-1.5",
		MaxYValue:          "1.5",
		PictureWidth:       "800",
		PictureHeight:      "600",
		Iterations:         "250",
		MaxModulus:         "2",
	}
}
