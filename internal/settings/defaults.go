package settings

import (
	"github.com/creasty/defaults"

	"SignalForge/internal/domain/models"
)

// Defaults returns the smart-default configuration. Every call returns an
// independent deep copy so callers can mutate freely.
func Defaults() *models.UserAISettings {
	s := &models.UserAISettings{}
	// Scalar defaults (sensitivity, minConfidence, bias mode, model, source
	// toggles) come from struct tags.
	_ = defaults.Set(s)
	s.FusionWeights = presetTable[PresetBalanced].Normalized()
	s.Indicators = map[string]models.IndicatorSettings{
		models.IndicatorTechnical: {Enabled: true, Params: map[string]float64{
			"rsiPeriod":  14,
			"macdFast":   12,
			"macdSlow":   26,
			"macdSignal": 9,
			"emaFast":    20,
			"emaSlow":    50,
			"atrPeriod":  14,
		}},
		models.IndicatorVolume: {Enabled: true, Params: map[string]float64{
			"avgWindow":  10,
			"spikeRatio": 1.5,
		}},
		models.IndicatorPatterns: {Enabled: true, Params: map[string]float64{
			"minBodyPct": 0.5,
		}},
		models.IndicatorElliott: {Enabled: false, Params: map[string]float64{
			"waveDepth": 5,
		}},
		models.IndicatorSentiment: {Enabled: true, Params: map[string]float64{
			"lookbackHours": 24,
		}},
		models.IndicatorAIFusion: {Enabled: true, Params: map[string]float64{
			"temperature": 0.2,
		}},
		models.IndicatorWave: {Enabled: false, Params: map[string]float64{
			"period": 21,
		}},
		models.IndicatorCandlePatterns: {Enabled: true, Params: map[string]float64{
			"minRangePct": 0.3,
		}},
	}
	return s
}
