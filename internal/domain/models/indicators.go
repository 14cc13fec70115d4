package models

// MACD trend labels.
const (
	MACDBullish = "bullish"
	MACDBearish = "bearish"
)

// Trend directions.
const (
	TrendBullish  = "bullish"
	TrendBearish  = "bearish"
	TrendSideways = "sideways"
)

// Trend strengths.
const (
	StrengthStrong   = "strong"
	StrengthModerate = "moderate"
	StrengthWeak     = "weak"
)

// Stochastic classifications.
const (
	StochOverbought = "overbought"
	StochOversold   = "oversold"
	StochNeutral    = "neutral"
)

type MACDValue struct {
	MACD      float64 `json:"macd"`
	Signal    float64 `json:"signal"`
	Histogram float64 `json:"histogram"`
	Trend     string  `json:"trend"`
}

type BollingerValue struct {
	Upper   float64 `json:"upper"`
	Middle  float64 `json:"middle"`
	Lower   float64 `json:"lower"`
	Squeeze bool    `json:"squeeze"`
}

type StochasticValue struct {
	K      float64 `json:"k"`
	D      float64 `json:"d"`
	Signal string  `json:"signal"`
}

type TrendValue struct {
	Direction string `json:"direction"`
	Strength  string `json:"strength"`
}

// IndicatorSnapshot is the full indicator state computed over one candle
// window. Pattern is set only when a pattern detector contributed a score.
type IndicatorSnapshot struct {
	Price      float64         `json:"price"`
	RSI        float64         `json:"rsi"`
	MACD       MACDValue       `json:"macd"`
	EMA20      float64         `json:"ema20"`
	EMA50      float64         `json:"ema50"`
	Bollinger  BollingerValue  `json:"bollinger"`
	Stochastic StochasticValue `json:"stochastic"`
	ATR        float64         `json:"atr"`
	Trend      TrendValue      `json:"trend"`
	Pattern    *float64        `json:"pattern,omitempty"`
}
