package strategy

import (
	"context"
	"testing"
	"time"

	"SignalForge/internal/domain/models"
	"SignalForge/internal/settings"
)

type stubCalc struct {
	snap *models.IndicatorSnapshot
	err  error
}

func (s *stubCalc) Compute([]models.Candle) (*models.IndicatorSnapshot, error) {
	return s.snap, s.err
}

func testCandles(n int, lastVolume float64) []models.Candle {
	out := make([]models.Candle, n)
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := range out {
		out[i] = models.Candle{
			Bucket: base.Add(time.Duration(i) * time.Minute),
			Symbol: "BTCUSDT",
			Open:   100, High: 101, Low: 99, Close: 100,
			Volume: 100,
		}
	}
	out[n-1].Volume = lastVolume
	return out
}

func buySnapshot() *models.IndicatorSnapshot {
	return &models.IndicatorSnapshot{
		Price:      95,
		RSI:        25,
		MACD:       models.MACDValue{MACD: 1.2, Signal: 0.8, Histogram: 0.4, Trend: models.MACDBullish},
		EMA20:      103,
		EMA50:      100,
		Bollinger:  models.BollingerValue{Upper: 110, Middle: 102, Lower: 96},
		Stochastic: models.StochasticValue{K: 12, D: 15, Signal: models.StochOversold},
		ATR:        2.5,
		Trend:      models.TrendValue{Direction: models.TrendBullish, Strength: models.StrengthStrong},
	}
}

func neutralSnapshot() *models.IndicatorSnapshot {
	return &models.IndicatorSnapshot{
		Price:      100,
		RSI:        50,
		MACD:       models.MACDValue{Histogram: 0.1, Trend: models.MACDBullish},
		EMA20:      100,
		EMA50:      100,
		Bollinger:  models.BollingerValue{Upper: 105, Middle: 100, Lower: 95},
		Stochastic: models.StochasticValue{K: 50, D: 50, Signal: models.StochNeutral},
		ATR:        1,
		Trend:      models.TrendValue{Direction: models.TrendSideways, Strength: models.StrengthWeak},
	}
}

func newTestGenerator(calc IndicatorCalculator) *Generator {
	cfg := Config{Timeframes: []string{"1h", "4h"}, MinCandles: 50}
	return NewGenerator(cfg, calc, nil)
}

func baseRequest() Request {
	return Request{
		Symbol:    "BTCUSDT",
		Timeframe: "1h",
		Price:     95,
		Candles:   testCandles(50, 180),
		Settings:  settings.Defaults(),
	}
}

func TestGenerateHistoryGate(t *testing.T) {
	g := newTestGenerator(&stubCalc{snap: buySnapshot()})
	req := baseRequest()
	req.Candles = testCandles(49, 180)
	sig, err := g.Generate(context.Background(), req)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if sig != nil {
		t.Fatal("49 candles must soft-skip")
	}
}

func TestGenerateContextValidation(t *testing.T) {
	g := newTestGenerator(&stubCalc{snap: buySnapshot()})
	cases := []func(*Request){
		func(r *Request) { r.Symbol = "" },
		func(r *Request) { r.Timeframe = "" },
		func(r *Request) { r.Timeframe = "2h" },
		func(r *Request) { r.Price = 0 },
		func(r *Request) { r.Settings = nil },
		func(r *Request) { r.Candles = nil },
	}
	for i, mutate := range cases {
		req := baseRequest()
		mutate(&req)
		sig, err := g.Generate(context.Background(), req)
		if err != nil {
			t.Fatalf("case %d: Generate: %v", i, err)
		}
		if sig != nil {
			t.Fatalf("case %d: invalid context must soft-skip", i)
		}
	}
}

func TestGenerateBuySignal(t *testing.T) {
	g := newTestGenerator(&stubCalc{snap: buySnapshot()})
	sig, err := g.Generate(context.Background(), baseRequest())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if sig == nil {
		t.Fatal("expected a signal")
	}
	if sig.Side != models.SideBuy {
		t.Fatalf("side = %q", sig.Side)
	}
	if sig.Confidence < 60 {
		t.Fatalf("confidence = %d, want >= default threshold", sig.Confidence)
	}
	if sig.RiskLevel != models.RiskLow {
		t.Fatalf("risk = %q", sig.RiskLevel)
	}
	// ATR 2.5 at entry 95: stop offset 2x, target offset 4x.
	if sig.StopLossPrice != 90 {
		t.Fatalf("stop = %v, want 90", sig.StopLossPrice)
	}
	if sig.TakeProfitPrice != 105 {
		t.Fatalf("target = %v, want 105", sig.TakeProfitPrice)
	}
	if sig.Meta == nil {
		t.Fatal("indicator snapshot must be attached")
	}
	if sig.Reason == "" {
		t.Fatal("reason must be populated")
	}
}

func TestGenerateNoBiasReturnsNil(t *testing.T) {
	g := newTestGenerator(&stubCalc{snap: neutralSnapshot()})
	sig, err := g.Generate(context.Background(), baseRequest())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if sig != nil {
		t.Fatalf("neutral snapshot must not produce a signal: %+v", sig)
	}
}

func TestGenerateConfidenceGate(t *testing.T) {
	g := newTestGenerator(&stubCalc{snap: buySnapshot()})
	req := baseRequest()
	req.Settings.MinConfidence = 90
	sig, err := g.Generate(context.Background(), req)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if sig != nil {
		t.Fatalf("confidence %d should not clear a threshold of 90", sig.Confidence)
	}
}

func TestGeneratePercentFallbackWhenNoATR(t *testing.T) {
	snap := buySnapshot()
	snap.ATR = 0
	g := newTestGenerator(&stubCalc{snap: snap})
	req := baseRequest()
	req.Price = 100
	sig, err := g.Generate(context.Background(), req)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if sig == nil {
		t.Fatal("expected a signal")
	}
	if sig.StopLossPrice != 98 {
		t.Fatalf("stop = %v, want 98 (2%% below entry)", sig.StopLossPrice)
	}
	if sig.TakeProfitPrice != 104 {
		t.Fatalf("target = %v, want 104 (4%% above entry)", sig.TakeProfitPrice)
	}
}

func TestDetermineSideVoting(t *testing.T) {
	// RSI says buy, MACD says sell: 2-2 deadlock, no side.
	snap := neutralSnapshot()
	snap.RSI = 25
	snap.MACD = models.MACDValue{Histogram: -0.2, Trend: models.MACDBearish}
	if _, ok := determineSide(snap); ok {
		t.Fatal("a 2-2 vote must not produce a side")
	}
	// The EMA ordering vote breaks the tie at 3-2.
	snap.EMA20 = 101
	side, ok := determineSide(snap)
	if !ok || side != models.SideBuy {
		t.Fatalf("3-2 vote should go buy, got %q ok=%v", side, ok)
	}

	sellSnap := neutralSnapshot()
	sellSnap.RSI = 75
	sellSnap.MACD = models.MACDValue{Histogram: -0.2, Trend: models.MACDBearish}
	side, ok = determineSide(sellSnap)
	if !ok || side != models.SideSell {
		t.Fatalf("4 sell points should vote sell, got %q ok=%v", side, ok)
	}
}

func TestRoundPriceMagnitude(t *testing.T) {
	if got := roundPrice(1.23456, 50); got != 1.23 {
		t.Fatalf("got %v", got)
	}
	// Large entries widen the precision window.
	if got := roundPrice(123456.789, 1e8); got != 123456.78900 {
		t.Fatalf("got %v", got)
	}
}

func TestVolumeRatio(t *testing.T) {
	if got := volumeRatio(testCandles(50, 180), 10); got != 1.8 {
		t.Fatalf("got %v", got)
	}
	if got := volumeRatio(testCandles(5, 180), 10); got != 0 {
		t.Fatalf("short window should yield 0, got %v", got)
	}
}
