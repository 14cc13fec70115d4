package settings

import "SignalForge/internal/domain/models"

// applyOverride deep-merges ov into base, in place. base must be a private
// clone owned by the caller. Merge rules: scalar fields overwrite when set;
// the indicator map merges key-by-key and each indicator's param map merges
// key-by-key, so an override can never drop params it does not name; an
// explicit weight vector replaces the base vector and is renormalized to sum
// to 100. Indicator keys unknown to the defaults are merged in verbatim —
// schema validation is the sole gate.
func applyOverride(base *models.UserAISettings, ov *models.SettingsOverride) {
	if ov == nil {
		return
	}
	for name, io := range ov.Indicators {
		cur, ok := base.Indicators[name]
		if !ok {
			cur = models.IndicatorSettings{}
		}
		if io.Enabled != nil {
			cur.Enabled = *io.Enabled
		}
		if len(io.Params) > 0 {
			if cur.Params == nil {
				cur.Params = make(map[string]float64, len(io.Params))
			}
			for k, v := range io.Params {
				cur.Params[k] = v
			}
		} else if cur.Params == nil {
			cur.Params = map[string]float64{}
		}
		base.Indicators[name] = cur
	}
	if ov.FusionWeights != nil {
		base.FusionWeights = ov.FusionWeights.Normalized()
	}
	if ov.Sensitivity != nil {
		base.Sensitivity = *ov.Sensitivity
	}
	if ov.MinConfidence != nil {
		base.MinConfidence = *ov.MinConfidence
	}
	if ov.BiasMode != nil {
		base.BiasMode = *ov.BiasMode
	}
	if ov.Model != nil {
		base.Model = *ov.Model
	}
	if ov.Sources != nil {
		if ov.Sources.AI != nil {
			base.Sources.AI = *ov.Sources.AI
		}
		if ov.Sources.TradingView != nil {
			base.Sources.TradingView = *ov.Sources.TradingView
		}
		if ov.Sources.Legacy != nil {
			base.Sources.Legacy = *ov.Sources.Legacy
		}
	}
}
