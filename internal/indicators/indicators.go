package indicators

import (
	"fmt"
	"math"

	"SignalForge/internal/domain/models"
)

// MinCandles is the floor below which indicator output is unreliable: the
// slow EMA needs 50 bars of history.
const MinCandles = 50

// Calc computes the full indicator snapshot over a candle window. Pure and
// deterministic given its input.
type Calc struct{}

func New() *Calc { return &Calc{} }

// Compute derives the indicator snapshot from candles (oldest first).
func (c *Calc) Compute(candles []models.Candle) (*models.IndicatorSnapshot, error) {
	if len(candles) < MinCandles {
		return nil, fmt.Errorf("compute indicators: need %d candles, got %d", MinCandles, len(candles))
	}

	closes := make([]float64, len(candles))
	for i, cd := range candles {
		closes[i] = cd.Close
	}

	ema20 := EMA(closes, 20)
	ema50 := EMA(closes, 50)

	snap := &models.IndicatorSnapshot{
		Price:      closes[len(closes)-1],
		RSI:        RSI(closes, 14),
		MACD:       MACD(closes, 12, 26, 9),
		EMA20:      ema20,
		EMA50:      ema50,
		Bollinger:  Bollinger(closes, 20, 2),
		Stochastic: Stochastic(candles, 14, 3),
		ATR:        ATR(candles, 14),
		Trend:      classifyTrend(ema20, ema50),
	}
	return snap, nil
}

func emaSeries(values []float64, period int) []float64 {
	if len(values) == 0 || period <= 0 {
		return nil
	}
	out := make([]float64, len(values))
	k := 2 / float64(period+1)
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = values[i]*k + out[i-1]*(1-k)
	}
	return out
}

// EMA returns the last value of the exponential moving average.
func EMA(values []float64, period int) float64 {
	s := emaSeries(values, period)
	if len(s) == 0 {
		return 0
	}
	return s[len(s)-1]
}

// RSI is Wilder's relative strength index.
func RSI(closes []float64, period int) float64 {
	if len(closes) <= period {
		return 50
	}
	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		delta := closes[i] - closes[i-1]
		if delta > 0 {
			avgGain += delta
		} else {
			avgLoss -= delta
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)
	for i := period + 1; i < len(closes); i++ {
		delta := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if delta > 0 {
			gain = delta
		} else {
			loss = -delta
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// MACD computes the moving average convergence divergence with trend label.
func MACD(closes []float64, fast, slow, signal int) models.MACDValue {
	fastS := emaSeries(closes, fast)
	slowS := emaSeries(closes, slow)
	macdLine := make([]float64, len(closes))
	for i := range closes {
		macdLine[i] = fastS[i] - slowS[i]
	}
	signalS := emaSeries(macdLine, signal)
	last := len(closes) - 1
	v := models.MACDValue{
		MACD:      macdLine[last],
		Signal:    signalS[last],
		Histogram: macdLine[last] - signalS[last],
	}
	if v.MACD >= v.Signal {
		v.Trend = models.MACDBullish
	} else {
		v.Trend = models.MACDBearish
	}
	return v
}

// Bollinger computes the 20-period bands. Squeeze is flagged when the band
// width shrinks below 5% of the middle band.
func Bollinger(closes []float64, period int, mult float64) models.BollingerValue {
	if len(closes) < period {
		period = len(closes)
	}
	window := closes[len(closes)-period:]
	var sum float64
	for _, v := range window {
		sum += v
	}
	mid := sum / float64(period)
	var variance float64
	for _, v := range window {
		variance += (v - mid) * (v - mid)
	}
	sd := math.Sqrt(variance / float64(period))
	b := models.BollingerValue{
		Upper:  mid + mult*sd,
		Middle: mid,
		Lower:  mid - mult*sd,
	}
	if mid > 0 && (b.Upper-b.Lower)/mid < 0.05 {
		b.Squeeze = true
	}
	return b
}

// Stochastic computes %K/%D with an overbought/oversold classification.
func Stochastic(candles []models.Candle, kPeriod, dPeriod int) models.StochasticValue {
	if len(candles) < kPeriod+dPeriod {
		return models.StochasticValue{K: 50, D: 50, Signal: models.StochNeutral}
	}
	kAt := func(end int) float64 {
		lo, hi := math.MaxFloat64, -math.MaxFloat64
		for _, c := range candles[end-kPeriod+1 : end+1] {
			lo = math.Min(lo, c.Low)
			hi = math.Max(hi, c.High)
		}
		if hi == lo {
			return 50
		}
		return (candles[end].Close - lo) / (hi - lo) * 100
	}
	last := len(candles) - 1
	var dSum float64
	for i := 0; i < dPeriod; i++ {
		dSum += kAt(last - i)
	}
	v := models.StochasticValue{K: kAt(last), D: dSum / float64(dPeriod)}
	switch {
	case v.K > 80 && v.D > 80:
		v.Signal = models.StochOverbought
	case v.K < 20 && v.D < 20:
		v.Signal = models.StochOversold
	default:
		v.Signal = models.StochNeutral
	}
	return v
}

// ATR is Wilder's average true range.
func ATR(candles []models.Candle, period int) float64 {
	if len(candles) <= period {
		return 0
	}
	trAt := func(i int) float64 {
		hl := candles[i].High - candles[i].Low
		hc := math.Abs(candles[i].High - candles[i-1].Close)
		lc := math.Abs(candles[i].Low - candles[i-1].Close)
		return math.Max(hl, math.Max(hc, lc))
	}
	var atr float64
	for i := 1; i <= period; i++ {
		atr += trAt(i)
	}
	atr /= float64(period)
	for i := period + 1; i < len(candles); i++ {
		atr = (atr*float64(period-1) + trAt(i)) / float64(period)
	}
	return atr
}

// classifyTrend labels direction and strength from the EMA pair. Direction
// follows the fast-over-slow ordering; strength follows relative separation.
func classifyTrend(ema20, ema50 float64) models.TrendValue {
	if ema50 == 0 {
		return models.TrendValue{Direction: models.TrendSideways, Strength: models.StrengthWeak}
	}
	sep := (ema20 - ema50) / ema50
	t := models.TrendValue{}
	switch {
	case sep > 0.001:
		t.Direction = models.TrendBullish
	case sep < -0.001:
		t.Direction = models.TrendBearish
	default:
		t.Direction = models.TrendSideways
	}
	abs := math.Abs(sep)
	switch {
	case abs > 0.02:
		t.Strength = models.StrengthStrong
	case abs > 0.005:
		t.Strength = models.StrengthModerate
	default:
		t.Strength = models.StrengthWeak
	}
	return t
}
