package strategy

import (
	"context"
	"math"
	"strings"

	"SignalForge/internal/domain/models"
	"SignalForge/internal/scoring"
	applogger "SignalForge/pkg/logger"
)

// IndicatorCalculator computes the indicator snapshot over a candle window.
type IndicatorCalculator interface {
	Compute(candles []models.Candle) (*models.IndicatorSnapshot, error)
}

// Config holds the generator's static limits.
type Config struct {
	Timeframes    []string `yaml:"timeframes"`
	MarketTypes   []string `yaml:"market_types"`
	MinCandles    int      `yaml:"min_candles" default:"50"`
	StopLossPct   float64  `yaml:"stop_loss_pct" default:"0.02"`
	TakeProfitPct float64  `yaml:"take_profit_pct" default:"0.04"`
}

// Request carries everything one generation pass needs.
type Request struct {
	Symbol     string
	Timeframe  string
	MarketType string
	Price      float64
	Candles    []models.Candle
	Settings   *models.UserAISettings
}

// Generator turns a candle window plus resolved settings into a signal
// proposal, or nil when no actionable bias exists. A nil result is a soft
// skip, never an error; errors are reserved for collaborator faults.
type Generator struct {
	cfg  Config
	calc IndicatorCalculator
	l    *applogger.Logger
}

func NewGenerator(cfg Config, calc IndicatorCalculator, l *applogger.Logger) *Generator {
	if cfg.MinCandles <= 0 {
		cfg.MinCandles = 50
	}
	if cfg.StopLossPct <= 0 {
		cfg.StopLossPct = 0.02
	}
	if cfg.TakeProfitPct <= 0 {
		cfg.TakeProfitPct = 0.04
	}
	return &Generator{cfg: cfg, calc: calc, l: l}
}

// Generate runs the full pass: context validation, history gate, indicator
// computation, side vote, confidence gate, risk levels.
func (g *Generator) Generate(ctx context.Context, req Request) (*models.GeneratedSignal, error) {
	if !g.validContext(req) {
		return nil, nil
	}
	if len(req.Candles) < g.cfg.MinCandles {
		if g.l != nil {
			g.l.Debug("insufficient history, skipping",
				applogger.String("symbol", req.Symbol),
				applogger.String("tf", req.Timeframe),
				applogger.Int("candles", len(req.Candles)),
				applogger.Int("min", g.cfg.MinCandles),
			)
		}
		return nil, nil
	}

	snap, err := g.calc.Compute(req.Candles)
	if err != nil {
		return nil, err
	}

	side, ok := determineSide(snap)
	if !ok {
		return nil, nil
	}

	score, err := scoring.Score(snap, side, volumeRatio(req.Candles, avgWindow(req.Settings)))
	if err != nil {
		return nil, err
	}
	if score.Confidence < req.Settings.MinConfidence {
		if g.l != nil {
			g.l.Debug("confidence below threshold, skipping",
				applogger.String("symbol", req.Symbol),
				applogger.String("side", string(side)),
				applogger.Int("confidence", score.Confidence),
				applogger.Int("min", req.Settings.MinConfidence),
			)
		}
		return nil, nil
	}

	stop, target := g.riskLevels(req.Price, snap.ATR, side)

	return &models.GeneratedSignal{
		Symbol:          req.Symbol,
		Side:            side,
		Timeframe:       req.Timeframe,
		EntryPrice:      roundPrice(req.Price, req.Price),
		Confidence:      score.Confidence,
		RiskLevel:       score.RiskLevel,
		Reason:          strings.Join(score.Reasoning, "; "),
		StopLossPrice:   stop,
		TakeProfitPrice: target,
		Meta:            snap,
	}, nil
}

func (g *Generator) validContext(req Request) bool {
	if req.Symbol == "" || req.Timeframe == "" || req.Price <= 0 ||
		req.Settings == nil || len(req.Candles) == 0 {
		return false
	}
	if len(g.cfg.Timeframes) > 0 && !contains(g.cfg.Timeframes, req.Timeframe) {
		return false
	}
	if req.MarketType != "" && len(g.cfg.MarketTypes) > 0 && !contains(g.cfg.MarketTypes, req.MarketType) {
		return false
	}
	return true
}

// determineSide runs the point vote over six indicator facets. A side wins
// with at least 3 points and strictly more than the opposing side.
func determineSide(snap *models.IndicatorSnapshot) (models.Side, bool) {
	var buy, sell int

	switch {
	case snap.RSI < 30:
		buy += 2
	case snap.RSI < 40:
		buy++
	case snap.RSI > 70:
		sell += 2
	case snap.RSI > 60:
		sell++
	}

	if snap.MACD.Trend == models.MACDBullish {
		buy++
		if snap.MACD.Histogram > 0 {
			buy++
		}
	} else {
		sell++
		if snap.MACD.Histogram < 0 {
			sell++
		}
	}

	if snap.Price <= snap.Bollinger.Lower {
		buy += 2
	} else if snap.Price >= snap.Bollinger.Upper {
		sell += 2
	}

	switch snap.Stochastic.Signal {
	case models.StochOversold:
		buy++
	case models.StochOverbought:
		sell++
	}

	if snap.EMA20 > snap.EMA50 {
		buy++
	} else if snap.EMA20 < snap.EMA50 {
		sell++
	}

	switch {
	case buy >= 3 && buy > sell:
		return models.SideBuy, true
	case sell >= 3 && sell > buy:
		return models.SideSell, true
	default:
		return "", false
	}
}

func (g *Generator) riskLevels(entry, atr float64, side models.Side) (stop, target float64) {
	if atr > 0 {
		if side == models.SideBuy {
			stop, target = entry-2*atr, entry+4*atr
		} else {
			stop, target = entry+2*atr, entry-4*atr
		}
	} else {
		if side == models.SideBuy {
			stop, target = entry*(1-g.cfg.StopLossPct), entry*(1+g.cfg.TakeProfitPct)
		} else {
			stop, target = entry*(1+g.cfg.StopLossPct), entry*(1-g.cfg.TakeProfitPct)
		}
	}
	return roundPrice(stop, entry), roundPrice(target, entry)
}

// roundPrice rounds to a precision derived from the entry price's magnitude.
func roundPrice(v, entry float64) float64 {
	decimals := 2
	if entry > 0 {
		if d := int(math.Floor(math.Log10(entry))) - 3; d > decimals {
			decimals = d
		}
	}
	pow := math.Pow10(decimals)
	return math.Round(v*pow) / pow
}

// volumeRatio compares the latest candle's volume against the trailing
// average. Zero means not enough data.
func volumeRatio(candles []models.Candle, window int) float64 {
	if window <= 0 {
		window = 10
	}
	if len(candles) < window+1 {
		return 0
	}
	last := candles[len(candles)-1].Volume
	var sum float64
	for _, c := range candles[len(candles)-1-window : len(candles)-1] {
		sum += c.Volume
	}
	if sum == 0 {
		return 0
	}
	return last / (sum / float64(window))
}

func avgWindow(s *models.UserAISettings) int {
	if s == nil {
		return 10
	}
	if vol, ok := s.Indicators[models.IndicatorVolume]; ok {
		if w, ok := vol.Params["avgWindow"]; ok && w > 0 {
			return int(w)
		}
	}
	return 10
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
