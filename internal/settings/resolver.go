package settings

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"SignalForge/internal/domain/models"
	domrepo "SignalForge/internal/domain/repository"
)

// Resolver merges stored tenant settings with smart defaults and built-in
// timeframe profiles into one validated configuration.
type Resolver struct {
	validate *validator.Validate
}

func NewResolver() *Resolver {
	v := validator.New()
	v.RegisterStructValidation(validateWeightSum, models.FusionWeights{})
	return &Resolver{validate: v}
}

// Resolve produces the effective configuration for one (tenant, timeframe)
// pair. Merge order is strict: defaults, stored global override, stored
// per-timeframe override, built-in timeframe profile. The result is
// validated against the schema; a failing configuration is an error, never
// silently coerced.
func (r *Resolver) Resolve(stored *models.StoredAISettings, tf domrepo.Timeframe) (*models.UserAISettings, error) {
	out := Defaults()

	if stored != nil {
		applyOverride(out, stored.GlobalSettings)
	}
	if tf != "" {
		if stored != nil && stored.TimeframeProfiles != nil {
			applyOverride(out, stored.TimeframeProfiles[string(tf)])
		}
		applyOverride(out, TimeframeProfile(tf))
	}

	if err := r.validate.Struct(out); err != nil {
		return nil, fmt.Errorf("resolve settings (tf=%s): %w", tf, err)
	}
	return out, nil
}

func validateWeightSum(sl validator.StructLevel) {
	w := sl.Current().Interface().(models.FusionWeights)
	if w.Sum() != 100 {
		sl.ReportError(w.Technical, "FusionWeights", "fusionWeights", "weightsum", "100")
	}
}
