package scoring

import (
	"testing"

	"SignalForge/internal/domain/models"
)

func bullishSnapshot() *models.IndicatorSnapshot {
	return &models.IndicatorSnapshot{
		Price: 95,
		RSI:   25,
		MACD: models.MACDValue{
			MACD: 1.2, Signal: 0.8, Histogram: 0.4, Trend: models.MACDBullish,
		},
		EMA20: 103,
		EMA50: 100,
		Bollinger: models.BollingerValue{
			Upper: 110, Middle: 102, Lower: 96,
		},
		Stochastic: models.StochasticValue{K: 12, D: 15, Signal: models.StochOversold},
		ATR:        2.5,
		Trend:      models.TrendValue{Direction: models.TrendBullish, Strength: models.StrengthStrong},
	}
}

func bearishSnapshot() *models.IndicatorSnapshot {
	return &models.IndicatorSnapshot{
		Price: 111,
		RSI:   78,
		MACD: models.MACDValue{
			MACD: -1.1, Signal: -0.6, Histogram: -0.5, Trend: models.MACDBearish,
		},
		EMA20: 97,
		EMA50: 100,
		Bollinger: models.BollingerValue{
			Upper: 110, Middle: 102, Lower: 96,
		},
		Stochastic: models.StochasticValue{K: 88, D: 85, Signal: models.StochOverbought},
		ATR:        2.5,
		Trend:      models.TrendValue{Direction: models.TrendBearish, Strength: models.StrengthStrong},
	}
}

func TestScoreRejectsBadInput(t *testing.T) {
	if _, err := Score(nil, models.SideBuy, 1); err == nil {
		t.Fatal("expected error for nil snapshot")
	}
	if _, err := Score(bullishSnapshot(), models.Side("hold"), 1); err == nil {
		t.Fatal("expected error for invalid side")
	}
}

func TestScoreAllFactorsAligned(t *testing.T) {
	score, err := Score(bullishSnapshot(), models.SideBuy, 1.8)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	// rsi .9, macd .9, trend .95, volume .9, pattern .5, bollinger .85,
	// stochastic .85 with the published weights comes out at 86.
	if score.Confidence != 86 {
		t.Fatalf("confidence = %d, want 86", score.Confidence)
	}
	if score.RiskLevel != models.RiskLow {
		t.Fatalf("risk = %q, want LOW", score.RiskLevel)
	}
	if len(score.Factors) != 7 {
		t.Fatalf("expected 7 factors, got %d", len(score.Factors))
	}
	if len(score.Reasoning) == 0 {
		t.Fatal("expected reasoning lines")
	}
}

func TestScoreMirrorsForSell(t *testing.T) {
	buy, err := Score(bullishSnapshot(), models.SideBuy, 1.8)
	if err != nil {
		t.Fatalf("buy: %v", err)
	}
	sell, err := Score(bearishSnapshot(), models.SideSell, 1.8)
	if err != nil {
		t.Fatalf("sell: %v", err)
	}
	if buy.Confidence != sell.Confidence {
		t.Fatalf("mirror symmetry broken: buy %d vs sell %d", buy.Confidence, sell.Confidence)
	}
}

func TestScoreOpposedFactorsIsHighRisk(t *testing.T) {
	score, err := Score(bearishSnapshot(), models.SideBuy, 0.5)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if score.RiskLevel != models.RiskHigh {
		t.Fatalf("risk = %q (confidence %d), want HIGH", score.RiskLevel, score.Confidence)
	}
	if score.Confidence >= 50 {
		t.Fatalf("confidence = %d, want < 50", score.Confidence)
	}
}

func TestRiskBucketBoundaries(t *testing.T) {
	cases := []struct {
		confidence int
		want       models.RiskLevel
	}{
		{100, models.RiskLow},
		{75, models.RiskLow},
		{74, models.RiskMedium},
		{50, models.RiskMedium},
		{49, models.RiskHigh},
		{0, models.RiskHigh},
	}
	for _, tc := range cases {
		if got := riskBucket(tc.confidence); got != tc.want {
			t.Fatalf("riskBucket(%d) = %q, want %q", tc.confidence, got, tc.want)
		}
	}
}

func TestPatternFactorDirectional(t *testing.T) {
	bull := 0.8
	if got := patternFactor(&bull, models.SideBuy); got <= 0.5 {
		t.Fatalf("matched pattern should lift the factor, got %v", got)
	}
	if got := patternFactor(&bull, models.SideSell); got >= 0.5 {
		t.Fatalf("opposed pattern should drag the factor, got %v", got)
	}
	if got := patternFactor(nil, models.SideBuy); got != 0.5 {
		t.Fatalf("absent pattern should be neutral, got %v", got)
	}
}

func TestVolumeFactorBands(t *testing.T) {
	cases := []struct {
		ratio float64
		want  float64
	}{
		{2.0, 0.9},
		{1.3, 0.7},
		{1.0, 0.5},
		{0.5, 0.3},
		{0, 0.4},
	}
	for _, tc := range cases {
		if got := volumeFactor(tc.ratio); got != tc.want {
			t.Fatalf("volumeFactor(%v) = %v, want %v", tc.ratio, got, tc.want)
		}
	}
}
