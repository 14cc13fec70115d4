package indicators

import (
	"math"
	"testing"
	"time"

	"SignalForge/internal/domain/models"
)

func mkCandles(closes []float64) []models.Candle {
	out := make([]models.Candle, len(closes))
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	for i, c := range closes {
		out[i] = models.Candle{
			Bucket: base.Add(time.Duration(i) * time.Minute),
			Symbol: "BTCUSDT",
			Open:   c,
			High:   c * 1.01,
			Low:    c * 0.99,
			Close:  c,
			Volume: 100,
		}
	}
	return out
}

func ramp(n int, start, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out
}

func TestComputeRejectsShortHistory(t *testing.T) {
	c := New()
	if _, err := c.Compute(mkCandles(ramp(MinCandles-1, 100, 1))); err == nil {
		t.Fatal("expected error for short history")
	}
}

func TestRSIExtremes(t *testing.T) {
	if got := RSI(ramp(60, 100, 1), 14); got != 100 {
		t.Fatalf("monotonic rise should give RSI 100, got %v", got)
	}
	if got := RSI(ramp(60, 200, -1), 14); got != 0 {
		t.Fatalf("monotonic fall should give RSI 0, got %v", got)
	}
}

func TestRSIFlatIsNeutral(t *testing.T) {
	flat := make([]float64, 60)
	for i := range flat {
		flat[i] = 100
	}
	// No losses at all means the index saturates at 100 by convention.
	if got := RSI(flat, 14); got != 100 {
		t.Fatalf("got %v", got)
	}
}

func TestMACDTrendLabels(t *testing.T) {
	up := MACD(ramp(60, 100, 2), 12, 26, 9)
	if up.Trend != models.MACDBullish {
		t.Fatalf("rising series: trend = %q", up.Trend)
	}
	if up.Histogram <= 0 {
		t.Fatalf("rising series: histogram = %v", up.Histogram)
	}
	down := MACD(ramp(60, 300, -2), 12, 26, 9)
	if down.Trend != models.MACDBearish {
		t.Fatalf("falling series: trend = %q", down.Trend)
	}
}

func TestBollingerOrderingAndSqueeze(t *testing.T) {
	b := Bollinger(ramp(60, 100, 1), 20, 2)
	if !(b.Lower < b.Middle && b.Middle < b.Upper) {
		t.Fatalf("band ordering violated: %+v", b)
	}
	if b.Squeeze {
		t.Fatal("trending series should not squeeze")
	}

	flat := make([]float64, 60)
	for i := range flat {
		flat[i] = 100 + 0.01*float64(i%2)
	}
	if got := Bollinger(flat, 20, 2); !got.Squeeze {
		t.Fatalf("flat series should squeeze: %+v", got)
	}
}

func TestStochasticClassification(t *testing.T) {
	up := Stochastic(mkCandles(ramp(60, 100, 1)), 14, 3)
	if up.Signal != models.StochOverbought {
		t.Fatalf("close at range top: signal = %q (K=%v D=%v)", up.Signal, up.K, up.D)
	}
	down := Stochastic(mkCandles(ramp(60, 200, -1)), 14, 3)
	if down.Signal != models.StochOversold {
		t.Fatalf("close at range bottom: signal = %q", down.Signal)
	}
}

func TestATRPositiveForVolatileSeries(t *testing.T) {
	if got := ATR(mkCandles(ramp(60, 100, 1)), 14); got <= 0 {
		t.Fatalf("got %v", got)
	}
}

func TestTrendClassification(t *testing.T) {
	cases := []struct {
		ema20, ema50    float64
		dir, strength   string
	}{
		{103, 100, models.TrendBullish, models.StrengthStrong},
		{101, 100, models.TrendBullish, models.StrengthModerate},
		{100.05, 100, models.TrendSideways, models.StrengthWeak},
		{97, 100, models.TrendBearish, models.StrengthStrong},
	}
	for _, tc := range cases {
		got := classifyTrend(tc.ema20, tc.ema50)
		if got.Direction != tc.dir || got.Strength != tc.strength {
			t.Fatalf("classifyTrend(%v,%v) = %+v, want %s/%s", tc.ema20, tc.ema50, got, tc.dir, tc.strength)
		}
	}
}

func TestComputeSnapshotShape(t *testing.T) {
	snap, err := New().Compute(mkCandles(ramp(60, 100, 1)))
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if snap.Price != 159 {
		t.Fatalf("price should be last close, got %v", snap.Price)
	}
	if snap.EMA20 <= snap.EMA50 {
		t.Fatalf("uptrend: EMA20 (%v) should exceed EMA50 (%v)", snap.EMA20, snap.EMA50)
	}
	if snap.Trend.Direction != models.TrendBullish {
		t.Fatalf("trend = %+v", snap.Trend)
	}
	if math.IsNaN(snap.RSI) || math.IsNaN(snap.ATR) {
		t.Fatal("NaN leaked into snapshot")
	}
}
