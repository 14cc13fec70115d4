package settings

import (
	"SignalForge/internal/domain/models"
	domrepo "SignalForge/internal/domain/repository"
)

// timeframeProfiles are built-in partial overlays applied after tenant
// overrides. They make the final sensitivity and confidence thresholds
// timeframe-aware even when a tenant has no stored overrides at all.
var timeframeProfiles = map[domrepo.Timeframe]*models.SettingsOverride{
	domrepo.TF1m: {
		Sensitivity:   strPtr(models.SensitivityHigh),
		MinConfidence: intPtr(50),
	},
	domrepo.TF5m: {
		Sensitivity:   strPtr(models.SensitivityHigh),
		MinConfidence: intPtr(55),
	},
	domrepo.TF15m: {
		Sensitivity:   strPtr(models.SensitivityMedium),
		MinConfidence: intPtr(55),
	},
	domrepo.TF1h: {
		Sensitivity:   strPtr(models.SensitivityMedium),
		MinConfidence: intPtr(60),
	},
	domrepo.TF4h: {
		Sensitivity:   strPtr(models.SensitivityLow),
		MinConfidence: intPtr(65),
	},
	domrepo.TF1d: {
		Sensitivity:   strPtr(models.SensitivityLow),
		MinConfidence: intPtr(70),
		// Daily bias leans on slower, sentiment-heavy inputs.
		FusionWeights: &models.FusionWeights{Technical: 20, Volume: 10, Patterns: 10, Elliott: 10, Sentiment: 25, AIFusion: 25},
	},
}

// TimeframeProfile returns a clone of the built-in overlay for tf, or nil
// when no overlay exists.
func TimeframeProfile(tf domrepo.Timeframe) *models.SettingsOverride {
	return timeframeProfiles[tf].Clone()
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }
