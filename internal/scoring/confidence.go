package scoring

import (
	"fmt"
	"math"

	"SignalForge/internal/domain/models"
)

// Factor weights. They sum to 1 so the weighted blend stays in [0,1].
const (
	weightRSI        = 0.20
	weightMACD       = 0.20
	weightTrend      = 0.20
	weightVolume     = 0.15
	weightPattern    = 0.10
	weightBollinger  = 0.10
	weightStochastic = 0.05
)

// Risk bucket boundaries on the 0-100 confidence scale.
const (
	lowRiskFloor   = 75
	highRiskBelow  = 50
	strongFactor   = 0.7
)

// Score blends seven indicator factors into a 0-100 confidence value with a
// risk bucket and human-readable reasoning lines.
func Score(snap *models.IndicatorSnapshot, side models.Side, volumeRatio float64) (*models.ConfidenceScore, error) {
	if snap == nil {
		return nil, fmt.Errorf("score confidence: nil snapshot")
	}
	if side != models.SideBuy && side != models.SideSell {
		return nil, fmt.Errorf("score confidence: invalid side %q", side)
	}

	factors := map[string]float64{
		"rsi":        rsiFactor(snap.RSI, side),
		"macd":       macdFactor(snap.MACD, side),
		"trend":      trendFactor(snap.Trend, side),
		"volume":     volumeFactor(volumeRatio),
		"pattern":    patternFactor(snap.Pattern, side),
		"bollinger":  bollingerFactor(snap, side),
		"stochastic": stochasticFactor(snap.Stochastic, side),
	}

	raw := factors["rsi"]*weightRSI +
		factors["macd"]*weightMACD +
		factors["trend"]*weightTrend +
		factors["volume"]*weightVolume +
		factors["pattern"]*weightPattern +
		factors["bollinger"]*weightBollinger +
		factors["stochastic"]*weightStochastic

	confidence := int(math.Round(clamp01(raw) * 100))

	return &models.ConfidenceScore{
		Confidence: confidence,
		RiskLevel:  riskBucket(confidence),
		Factors:    factors,
		Reasoning:  reasoning(factors, confidence, side),
	}, nil
}

func riskBucket(confidence int) models.RiskLevel {
	switch {
	case confidence >= lowRiskFloor:
		return models.RiskLow
	case confidence < highRiskBelow:
		return models.RiskHigh
	default:
		return models.RiskMedium
	}
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func rsiFactor(rsi float64, side models.Side) float64 {
	if side == models.SideSell {
		rsi = 100 - rsi
	}
	switch {
	case rsi < 30:
		return 0.9
	case rsi < 40:
		return 0.7
	case rsi < 55:
		return 0.5
	default:
		return 0.25
	}
}

func macdFactor(m models.MACDValue, side models.Side) float64 {
	aligned := (side == models.SideBuy && m.Trend == models.MACDBullish) ||
		(side == models.SideSell && m.Trend == models.MACDBearish)
	growing := (side == models.SideBuy && m.Histogram > 0) ||
		(side == models.SideSell && m.Histogram < 0)
	switch {
	case aligned && growing:
		return 0.9
	case aligned:
		return 0.65
	default:
		return 0.2
	}
}

func trendFactor(t models.TrendValue, side models.Side) float64 {
	matched := (side == models.SideBuy && t.Direction == models.TrendBullish) ||
		(side == models.SideSell && t.Direction == models.TrendBearish)
	opposed := (side == models.SideBuy && t.Direction == models.TrendBearish) ||
		(side == models.SideSell && t.Direction == models.TrendBullish)
	switch {
	case matched && t.Strength == models.StrengthStrong:
		return 0.95
	case matched && t.Strength == models.StrengthModerate:
		return 0.75
	case matched:
		return 0.6
	case opposed && t.Strength == models.StrengthStrong:
		return 0.1
	case opposed:
		return 0.25
	default:
		return 0.45
	}
}

// volumeFactor scores the current-volume-to-average ratio. Ratio <= 0 means
// volume data was unavailable and scores neutral-low.
func volumeFactor(ratio float64) float64 {
	switch {
	case ratio > 1.5:
		return 0.9
	case ratio > 1.2:
		return 0.7
	case ratio > 0.8:
		return 0.5
	case ratio > 0:
		return 0.3
	default:
		return 0.4
	}
}

// patternFactor scores an optional candlestick/chart pattern signal in
// [-1, 1] where sign encodes direction. Nil means no detector ran.
func patternFactor(pattern *float64, side models.Side) float64 {
	if pattern == nil {
		return 0.5
	}
	v := clamp01(math.Abs(*pattern))
	matched := (side == models.SideBuy && *pattern > 0) ||
		(side == models.SideSell && *pattern < 0)
	if matched {
		return 0.5 + 0.4*v
	}
	return 0.5 - 0.4*v
}

func bollingerFactor(snap *models.IndicatorSnapshot, side models.Side) float64 {
	b := snap.Bollinger
	outside := (side == models.SideBuy && snap.Price <= b.Lower) ||
		(side == models.SideSell && snap.Price >= b.Upper)
	switch {
	case outside:
		return 0.85
	case b.Squeeze:
		return 0.7
	default:
		return 0.45
	}
}

func stochasticFactor(s models.StochasticValue, side models.Side) float64 {
	matched := (side == models.SideBuy && s.Signal == models.StochOversold) ||
		(side == models.SideSell && s.Signal == models.StochOverbought)
	opposed := (side == models.SideBuy && s.Signal == models.StochOverbought) ||
		(side == models.SideSell && s.Signal == models.StochOversold)
	switch {
	case matched:
		return 0.85
	case opposed:
		return 0.2
	default:
		return 0.5
	}
}

var factorRemarks = map[string]map[models.Side]string{
	"rsi": {
		models.SideBuy:  "RSI in oversold territory supports an entry",
		models.SideSell: "RSI in overbought territory supports an exit",
	},
	"macd": {
		models.SideBuy:  "MACD momentum confirms the upside move",
		models.SideSell: "MACD momentum confirms the downside move",
	},
	"trend": {
		models.SideBuy:  "prevailing trend is aligned with the long side",
		models.SideSell: "prevailing trend is aligned with the short side",
	},
	"volume": {
		models.SideBuy:  "volume expansion backs the move",
		models.SideSell: "volume expansion backs the move",
	},
	"pattern": {
		models.SideBuy:  "bullish pattern detected on recent candles",
		models.SideSell: "bearish pattern detected on recent candles",
	},
	"bollinger": {
		models.SideBuy:  "price stretched below the lower band",
		models.SideSell: "price stretched above the upper band",
	},
	"stochastic": {
		models.SideBuy:  "stochastic oscillator deeply oversold",
		models.SideSell: "stochastic oscillator deeply overbought",
	},
}

// reasoningOrder keeps the output stable across runs.
var reasoningOrder = []string{"rsi", "macd", "trend", "volume", "pattern", "bollinger", "stochastic"}

func reasoning(factors map[string]float64, confidence int, side models.Side) []string {
	var lines []string
	for _, name := range reasoningOrder {
		if factors[name] >= strongFactor {
			lines = append(lines, factorRemarks[name][side])
		}
	}
	switch {
	case confidence >= lowRiskFloor:
		lines = append(lines, "multiple indicators are in strong agreement")
	case confidence < highRiskBelow:
		lines = append(lines, "indicator agreement is weak, treat with caution")
	}
	if len(lines) == 0 {
		lines = append(lines, "mixed indicator readings, moderate conviction")
	}
	return lines
}
