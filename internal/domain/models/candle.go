package models

import "time"

// Candle is one OHLCV bar. Candle windows are always ordered oldest first.
type Candle struct {
	Bucket time.Time `json:"t"`
	Symbol string    `json:"symbol"`
	Open   float64   `json:"o"`
	High   float64   `json:"h"`
	Low    float64   `json:"l"`
	Close  float64   `json:"c"`
	Volume float64   `json:"v"`
}

// CandleUpdate is a live bar revision from a market stream. Closed marks the
// final revision of a bucket; open buckets replace the previous revision.
type CandleUpdate struct {
	Symbol    string
	Timeframe string
	Candle    Candle
	Closed    bool
}
