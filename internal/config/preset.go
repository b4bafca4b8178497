package config

import (
	"slices"
	"strings"
)

// Preset is a named adaptive threshold profile.
type Preset struct {
	Name              string
	WindowSize        int
	ThresholdConstant int
}

var (
	PresetGeneral  = Preset{Name: "general", WindowSize: 21, ThresholdConstant: 10}
	PresetDocument = Preset{Name: "document", WindowSize: 41, ThresholdConstant: 15}
)

var presets = map[string]Preset{
	PresetGeneral.Name:  PresetGeneral,
	PresetDocument.Name: PresetDocument,
}

func LookupPreset(name string) (Preset, error) {
	if preset, exists := presets[strings.ToLower(name)]; exists {
		return preset, nil
	}

	return Preset{}, &ConfigError{
		Context: "preset selection",
		Field:   "preset",
		Value:   name,
		Reason:  "must be one of " + strings.Join(PresetNames(), ", "),
	}
}

func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Processing returns the full-pipeline configuration for this preset:
// upscale, grayscale and binarize on, median denoise off.
func (p Preset) Processing() ProcessingConfig {
	return ProcessingConfig{
		Grayscale:         true,
		Binarize:          true,
		Upscale:           true,
		WindowSize:        p.WindowSize,
		ThresholdConstant: p.ThresholdConstant,
	}
}
