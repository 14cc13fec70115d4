package settings

import (
	"fmt"
	"sort"
	"strings"

	"SignalForge/internal/domain/models"
)

// Named weight presets.
const (
	PresetBalanced     = "balanced"
	PresetMomentum     = "momentum"
	PresetSentiment    = "sentiment"
	PresetConservative = "conservative"
)

// presetTable holds the immutable preset constants. Values leave this table
// only through Preset, which clones and normalizes.
var presetTable = map[string]models.FusionWeights{
	PresetBalanced:     {Technical: 25, Volume: 15, Patterns: 15, Elliott: 10, Sentiment: 15, AIFusion: 20},
	PresetMomentum:     {Technical: 35, Volume: 20, Patterns: 15, Elliott: 5, Sentiment: 10, AIFusion: 15},
	PresetSentiment:    {Technical: 15, Volume: 10, Patterns: 10, Elliott: 5, Sentiment: 35, AIFusion: 25},
	PresetConservative: {Technical: 30, Volume: 20, Patterns: 15, Elliott: 10, Sentiment: 10, AIFusion: 15},
}

// Preset returns a freshly cloned, normalized weight vector for the named
// preset.
func Preset(name string) (models.FusionWeights, error) {
	w, ok := presetTable[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return models.FusionWeights{}, fmt.Errorf("unknown weight preset: %q", name)
	}
	return w.Normalized(), nil
}

// PresetNames lists the available presets in stable order.
func PresetNames() []string {
	names := make([]string, 0, len(presetTable))
	for name := range presetTable {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
