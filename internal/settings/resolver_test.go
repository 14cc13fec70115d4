package settings

import (
	"testing"

	"SignalForge/internal/domain/models"
	domrepo "SignalForge/internal/domain/repository"
)

func TestResolveNilStoredReturnsDefaults(t *testing.T) {
	r := NewResolver()
	got, err := r.Resolve(nil, "")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	want := Defaults()
	if got.MinConfidence != want.MinConfidence {
		t.Fatalf("minConfidence = %d, want %d", got.MinConfidence, want.MinConfidence)
	}
	if got.Sensitivity != want.Sensitivity || got.BiasMode != want.BiasMode || got.Model != want.Model {
		t.Fatalf("scalar defaults differ: %+v", got)
	}
	if len(got.Indicators) != len(want.Indicators) {
		t.Fatalf("indicators = %d, want %d", len(got.Indicators), len(want.Indicators))
	}
}

func TestResolveResultIsIndependentCopy(t *testing.T) {
	r := NewResolver()
	a, err := r.Resolve(nil, "")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	a.MinConfidence = 90
	a.Indicators[models.IndicatorTechnical].Params["rsiPeriod"] = 99
	a.Indicators["custom"] = models.IndicatorSettings{Enabled: true}

	b, err := r.Resolve(nil, "")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if b.MinConfidence == 90 {
		t.Fatalf("scalar mutation leaked into defaults")
	}
	if b.Indicators[models.IndicatorTechnical].Params["rsiPeriod"] == 99 {
		t.Fatalf("param mutation leaked into defaults")
	}
	if _, ok := b.Indicators["custom"]; ok {
		t.Fatalf("indicator map mutation leaked into defaults")
	}
}

func TestResolveWeightSumInvariant(t *testing.T) {
	r := NewResolver()
	stored := &models.StoredAISettings{
		UserID: "u1",
		GlobalSettings: &models.SettingsOverride{
			// Raw sum 60; must be renormalized, never rejected.
			FusionWeights: &models.FusionWeights{Technical: 10, Volume: 10, Patterns: 10, Elliott: 10, Sentiment: 10, AIFusion: 10},
		},
	}
	got, err := r.Resolve(stored, domrepo.TF1h)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if s := got.FusionWeights.Sum(); s != 100 {
		t.Fatalf("weight sum = %d, want 100", s)
	}
}

func TestResolveTimeframeProfilePrecedence(t *testing.T) {
	r := NewResolver()
	// No stored tenant settings at all: the built-in 1d overlay still applies.
	got, err := r.Resolve(nil, domrepo.TF1d)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got.MinConfidence != 70 {
		t.Fatalf("minConfidence = %d, want 70 from 1d profile", got.MinConfidence)
	}
	if got.Sensitivity != models.SensitivityLow {
		t.Fatalf("sensitivity = %s, want low", got.Sensitivity)
	}

	// The built-in overlay also wins over a stored per-timeframe override.
	stored := &models.StoredAISettings{
		UserID: "u1",
		TimeframeProfiles: map[string]*models.SettingsOverride{
			"1d": {MinConfidence: intPtr(45)},
		},
	}
	got, err = r.Resolve(stored, domrepo.TF1d)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got.MinConfidence != 70 {
		t.Fatalf("minConfidence = %d, want 70", got.MinConfidence)
	}
}

func TestResolveMergeKeepsUnnamedParams(t *testing.T) {
	r := NewResolver()
	stored := &models.StoredAISettings{
		UserID: "u1",
		GlobalSettings: &models.SettingsOverride{
			Indicators: map[string]models.IndicatorOverride{
				models.IndicatorTechnical: {Params: map[string]float64{"rsiPeriod": 21}},
			},
		},
	}
	got, err := r.Resolve(stored, "")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	tech := got.Indicators[models.IndicatorTechnical]
	if tech.Params["rsiPeriod"] != 21 {
		t.Fatalf("rsiPeriod = %v, want 21", tech.Params["rsiPeriod"])
	}
	if tech.Params["macdFast"] != 12 {
		t.Fatalf("macdFast = %v, want untouched default 12", tech.Params["macdFast"])
	}
	if !tech.Enabled {
		t.Fatalf("enabled flag lost during param merge")
	}
}

func TestResolveUnknownIndicatorMergedVerbatim(t *testing.T) {
	r := NewResolver()
	enabled := true
	stored := &models.StoredAISettings{
		UserID: "u1",
		GlobalSettings: &models.SettingsOverride{
			Indicators: map[string]models.IndicatorOverride{
				"orderflow": {Enabled: &enabled, Params: map[string]float64{"depth": 20}},
			},
		},
	}
	got, err := r.Resolve(stored, "")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	of, ok := got.Indicators["orderflow"]
	if !ok {
		t.Fatalf("unknown indicator key was dropped")
	}
	if !of.Enabled || of.Params["depth"] != 20 {
		t.Fatalf("unknown indicator merged incorrectly: %+v", of)
	}
}

func TestResolveRejectsOutOfBoundsMinConfidence(t *testing.T) {
	r := NewResolver()
	bad := 95
	stored := &models.StoredAISettings{
		UserID:         "u1",
		GlobalSettings: &models.SettingsOverride{MinConfidence: &bad},
	}
	if _, err := r.Resolve(stored, ""); err == nil {
		t.Fatalf("expected validation error for minConfidence=95")
	}
}

func TestResolveRejectsBadEnum(t *testing.T) {
	r := NewResolver()
	bad := "aggressive"
	stored := &models.StoredAISettings{
		UserID:         "u1",
		GlobalSettings: &models.SettingsOverride{Sensitivity: &bad},
	}
	if _, err := r.Resolve(stored, ""); err == nil {
		t.Fatalf("expected validation error for sensitivity=aggressive")
	}
}

func TestResolveGlobalOverrideScalars(t *testing.T) {
	r := NewResolver()
	mc := 80
	bias := models.BiasReversal
	stored := &models.StoredAISettings{
		UserID: "u1",
		GlobalSettings: &models.SettingsOverride{
			MinConfidence: &mc,
			BiasMode:      &bias,
		},
	}
	got, err := r.Resolve(stored, "")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got.MinConfidence != 80 || got.BiasMode != models.BiasReversal {
		t.Fatalf("global override not applied: %+v", got)
	}
}
