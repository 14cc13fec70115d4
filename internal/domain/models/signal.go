package models

import "time"

// Side is the direction of a locally generated proposal.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// RawSide is the direction of a raw signal on the wire.
type RawSide string

const (
	RawBuy  RawSide = "BUY"
	RawSell RawSide = "SELL"
)

// SourceKind identifies where a raw signal came from.
type SourceKind string

const (
	SourceAIAnalyzer   SourceKind = "AI_ANALYZER"
	SourceTVWebhook    SourceKind = "TV_WEBHOOK"
	SourceLegacyEngine SourceKind = "LEGACY_ENGINE"
	SourceManual       SourceKind = "MANUAL"
)

// RiskLevel buckets a confidence score.
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// RawSignalSource is one externally- or internally-produced directional
// opinion prior to fusion. Immutable once produced.
type RawSignalSource struct {
	Source      SourceKind `json:"source"`
	Symbol      string     `json:"symbol"`
	Timeframe   string     `json:"timeframe"`
	Side        RawSide    `json:"side"`
	Confidence  *float64   `json:"confidence,omitempty"`
	Entry       float64    `json:"entry,omitempty"`
	StopLoss    float64    `json:"stopLoss,omitempty"`
	TakeProfit  float64    `json:"takeProfit,omitempty"`
	RRRatio     float64    `json:"rrRatio,omitempty"`
	GeneratedAt time.Time  `json:"generatedAt"`
}

// GeneratedSignal is the strategy generator's output. It lives for one
// fusion cycle; ownership passes to the dispatcher immediately.
type GeneratedSignal struct {
	Symbol          string             `json:"symbol"`
	Side            Side               `json:"side"`
	Timeframe       string             `json:"timeframe"`
	EntryPrice      float64            `json:"entryPrice"`
	Confidence      int                `json:"confidence"`
	RiskLevel       RiskLevel          `json:"riskLevel"`
	Reason          string             `json:"reason"`
	StopLossPrice   float64            `json:"stopLossPrice"`
	TakeProfitPrice float64            `json:"takeProfitPrice"`
	Meta            *IndicatorSnapshot `json:"meta,omitempty"`
}

// ConfidenceScore is the scoring algorithm's result.
type ConfidenceScore struct {
	Confidence int                `json:"confidence"`
	RiskLevel  RiskLevel          `json:"riskLevel"`
	Factors    map[string]float64 `json:"factors"`
	Reasoning  []string           `json:"reasoning"`
}

// FusedSignal is the single dispatch artifact produced per (symbol,
// timeframe) pair per cycle.
type FusedSignal struct {
	Symbol      string    `json:"symbol"`
	Timeframe   string    `json:"timeframe"`
	Side        RawSide   `json:"side"`
	Confidence  float64   `json:"confidence"`
	Entry       float64   `json:"entry"`
	StopLoss    float64   `json:"stopLoss,omitempty"`
	TakeProfit  float64   `json:"takeProfit,omitempty"`
	Sources     []string  `json:"sources"`
	GeneratedAt time.Time `json:"generatedAt"`
}
