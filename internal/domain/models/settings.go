package models

import "time"

// Sensitivity levels.
const (
	SensitivityLow    = "low"
	SensitivityMedium = "medium"
	SensitivityHigh   = "high"
)

// Bias modes.
const (
	BiasAuto     = "auto"
	BiasBreakout = "breakout"
	BiasReversal = "reversal"
)

// Analysis models.
const (
	ModelHybrid    = "hybrid"
	ModelTechnical = "technical"
	ModelSentiment = "sentiment"
)

// Well-known indicator keys. Overrides may carry keys outside this set;
// they are merged verbatim and gated by schema validation only.
const (
	IndicatorTechnical      = "technical"
	IndicatorVolume         = "volume"
	IndicatorPatterns       = "patterns"
	IndicatorElliott        = "elliott"
	IndicatorSentiment      = "sentiment"
	IndicatorAIFusion       = "aiFusion"
	IndicatorWave           = "wave"
	IndicatorCandlePatterns = "candlePatterns"
)

// IndicatorSettings configures one named indicator. An enabled indicator
// always carries its param map.
type IndicatorSettings struct {
	Enabled bool               `json:"enabled"`
	Params  map[string]float64 `json:"params"`
}

// Clone returns a deep copy.
func (s IndicatorSettings) Clone() IndicatorSettings {
	out := IndicatorSettings{Enabled: s.Enabled}
	if s.Params != nil {
		out.Params = make(map[string]float64, len(s.Params))
		for k, v := range s.Params {
			out.Params[k] = v
		}
	}
	return out
}

// FusionWeights are per-category contribution percentages used when blending
// the local proposal with external signal sources. A valid vector sums to
// exactly 100.
type FusionWeights struct {
	Technical int `json:"technical" validate:"gte=0,lte=100"`
	Volume    int `json:"volume" validate:"gte=0,lte=100"`
	Patterns  int `json:"patterns" validate:"gte=0,lte=100"`
	Elliott   int `json:"elliott" validate:"gte=0,lte=100"`
	Sentiment int `json:"sentiment" validate:"gte=0,lte=100"`
	AIFusion  int `json:"aiFusion" validate:"gte=0,lte=100"`
}

// Sum returns the raw total of all six weights.
func (w FusionWeights) Sum() int {
	return w.Technical + w.Volume + w.Patterns + w.Elliott + w.Sentiment + w.AIFusion
}

// Normalized proportionally rescales the vector so it sums to exactly 100.
// Each component becomes round(raw*100/sum); any rounding residual is folded
// into the largest component so the invariant holds. A zero vector becomes an
// even split.
func (w FusionWeights) Normalized() FusionWeights {
	raw := [6]int{w.Technical, w.Volume, w.Patterns, w.Elliott, w.Sentiment, w.AIFusion}
	sum := 0
	for _, v := range raw {
		sum += v
	}
	var scaled [6]int
	if sum == 0 {
		for i := range scaled {
			scaled[i] = 100 / len(scaled)
		}
	} else {
		for i, v := range raw {
			scaled[i] = int(float64(v)*100/float64(sum) + 0.5)
		}
	}
	total, largest := 0, 0
	for i, v := range scaled {
		total += v
		if scaled[i] > scaled[largest] {
			largest = i
		}
	}
	scaled[largest] += 100 - total
	return FusionWeights{
		Technical: scaled[0],
		Volume:    scaled[1],
		Patterns:  scaled[2],
		Elliott:   scaled[3],
		Sentiment: scaled[4],
		AIFusion:  scaled[5],
	}
}

// SourceToggles enables or disables whole signal source families.
type SourceToggles struct {
	AI          bool `json:"ai" default:"true"`
	TradingView bool `json:"tradingview" default:"true"`
	Legacy      bool `json:"legacy" default:"false"`
}

// UserAISettings is the single resolved configuration consumed by every
// downstream pipeline step. Instances are constructed fresh per resolution
// call; merge steps never mutate a value shared with a caller.
type UserAISettings struct {
	Indicators    map[string]IndicatorSettings `json:"indicators" validate:"required"`
	FusionWeights FusionWeights                `json:"fusionWeights"`
	Sensitivity   string                       `json:"sensitivity" default:"medium" validate:"oneof=low medium high"`
	MinConfidence int                          `json:"minConfidence" default:"60" validate:"gte=40,lte=90"`
	BiasMode      string                       `json:"biasMode" default:"auto" validate:"oneof=auto breakout reversal"`
	Model         string                       `json:"model" default:"hybrid" validate:"oneof=hybrid technical sentiment"`
	Sources       SourceToggles                `json:"sources"`
}

// Clone returns a deep copy with no shared references.
func (s *UserAISettings) Clone() *UserAISettings {
	if s == nil {
		return nil
	}
	out := *s
	out.Indicators = make(map[string]IndicatorSettings, len(s.Indicators))
	for name, ind := range s.Indicators {
		out.Indicators[name] = ind.Clone()
	}
	return &out
}

// IndicatorOverride is a partial revision of one indicator's settings.
type IndicatorOverride struct {
	Enabled *bool              `json:"enabled,omitempty"`
	Params  map[string]float64 `json:"params,omitempty"`
}

// SourceTogglesOverride is a partial revision of SourceToggles.
type SourceTogglesOverride struct {
	AI          *bool `json:"ai,omitempty"`
	TradingView *bool `json:"tradingview,omitempty"`
	Legacy      *bool `json:"legacy,omitempty"`
}

// SettingsOverride is a partial UserAISettings. Nil fields leave the base
// value untouched; the indicator map and each param map merge key-by-key so
// an override can never erase params it does not name.
type SettingsOverride struct {
	Indicators    map[string]IndicatorOverride `json:"indicators,omitempty"`
	FusionWeights *FusionWeights               `json:"fusionWeights,omitempty"`
	Sensitivity   *string                      `json:"sensitivity,omitempty"`
	MinConfidence *int                         `json:"minConfidence,omitempty"`
	BiasMode      *string                      `json:"biasMode,omitempty"`
	Model         *string                      `json:"model,omitempty"`
	Sources       *SourceTogglesOverride       `json:"sources,omitempty"`
}

// Clone returns a deep copy.
func (o *SettingsOverride) Clone() *SettingsOverride {
	if o == nil {
		return nil
	}
	out := &SettingsOverride{}
	if o.Indicators != nil {
		out.Indicators = make(map[string]IndicatorOverride, len(o.Indicators))
		for name, io := range o.Indicators {
			c := IndicatorOverride{}
			if io.Enabled != nil {
				v := *io.Enabled
				c.Enabled = &v
			}
			if io.Params != nil {
				c.Params = make(map[string]float64, len(io.Params))
				for k, v := range io.Params {
					c.Params[k] = v
				}
			}
			out.Indicators[name] = c
		}
	}
	if o.FusionWeights != nil {
		w := *o.FusionWeights
		out.FusionWeights = &w
	}
	out.Sensitivity = cloneStr(o.Sensitivity)
	out.MinConfidence = cloneInt(o.MinConfidence)
	out.BiasMode = cloneStr(o.BiasMode)
	out.Model = cloneStr(o.Model)
	if o.Sources != nil {
		s := SourceTogglesOverride{
			AI:          cloneBool(o.Sources.AI),
			TradingView: cloneBool(o.Sources.TradingView),
			Legacy:      cloneBool(o.Sources.Legacy),
		}
		out.Sources = &s
	}
	return out
}

func cloneStr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneBool(p *bool) *bool {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// StoredAISettings is the persisted per-tenant record. Owned by the
// persistence layer; read-only to the pipeline.
type StoredAISettings struct {
	UserID            string                       `json:"userId"`
	SmartModeEnabled  bool                         `json:"smartModeEnabled"`
	GlobalSettings    *SettingsOverride            `json:"globalSettings,omitempty"`
	TimeframeProfiles map[string]*SettingsOverride `json:"timeframeProfiles,omitempty"`
	WeightPresets     map[string]FusionWeights     `json:"weightPresets,omitempty"`
	SignalSource      string                       `json:"signalSource,omitempty"`
	CreatedAt         time.Time                    `json:"createdAt"`
	UpdatedAt         time.Time                    `json:"updatedAt"`
}
