package fusion

import (
	"context"
	"fmt"
	"math"
	"time"

	"SignalForge/internal/domain/models"
	applogger "SignalForge/pkg/logger"
	"SignalForge/pkg/queue"
)

// Publisher sends the fused artifact downstream. Satisfied by the Kafka
// producer.
type Publisher interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
}

// Fuser blends the local proposal with auxiliary raw sources into a single
// FusedSignal per call and publishes it exactly once. On transient publish
// failure the signal is parked on the retry queue instead of being dropped.
type Fuser struct {
	publisher Publisher
	retry     queue.QueueService
	topic     string
	l         *applogger.Logger

	now func() time.Time
}

func NewFuser(publisher Publisher, retry queue.QueueService, topic string, l *applogger.Logger) *Fuser {
	return &Fuser{
		publisher: publisher,
		retry:     retry,
		topic:     topic,
		l:         l,
		now:       time.Now,
	}
}

type contribution struct {
	name       string
	side       models.RawSide
	weight     float64
	confidence float64
	entry      float64
	stopLoss   float64
	takeProfit float64
}

// FuseAndDispatch combines local and auxiliary opinions under the tenant's
// fusion weights and source toggles. A call with nothing to fuse is a no-op.
func (f *Fuser) FuseAndDispatch(ctx context.Context, local *models.GeneratedSignal, aux []models.RawSignalSource, marketPrice float64, settings *models.UserAISettings) error {
	if settings == nil {
		return fmt.Errorf("fuse: nil settings")
	}

	fused := Fuse(local, aux, marketPrice, settings, f.now())
	if fused == nil {
		return nil
	}

	if err := f.publisher.Publish(ctx, f.topic, []byte(fused.Symbol), fused); err != nil {
		if f.l != nil {
			f.l.Warn("publish failed, parking signal on retry queue",
				applogger.String("symbol", fused.Symbol),
				applogger.String("tf", fused.Timeframe),
				applogger.Error(err),
			)
		}
		if f.retry == nil {
			return fmt.Errorf("publish fused signal: %w", err)
		}
		if qErr := f.retry.PublishMessage(ctx, RedispatchType, fused); qErr != nil {
			return fmt.Errorf("publish fused signal (retry enqueue also failed: %v): %w", qErr, err)
		}
		return nil
	}

	if f.l != nil {
		f.l.Info("fused signal dispatched",
			applogger.String("symbol", fused.Symbol),
			applogger.String("tf", fused.Timeframe),
			applogger.String("side", string(fused.Side)),
			applogger.Float64("confidence", fused.Confidence),
			applogger.Strings("sources", fused.Sources),
		)
	}
	return nil
}

// Fuse is the pure blend step. It returns nil when the toggles filter out
// every input or the weighted vote is a deadlock.
func Fuse(local *models.GeneratedSignal, aux []models.RawSignalSource, marketPrice float64, settings *models.UserAISettings, at time.Time) *models.FusedSignal {
	w := settings.FusionWeights.Normalized()
	localWeight := float64(w.Technical+w.Volume+w.Patterns+w.Elliott) / 100

	var contribs []contribution
	var symbol, timeframe string

	if local != nil {
		symbol, timeframe = local.Symbol, local.Timeframe
		contribs = append(contribs, contribution{
			name:       "local",
			side:       rawSide(local.Side),
			weight:     localWeight,
			confidence: float64(local.Confidence) / 100,
			entry:      local.EntryPrice,
			stopLoss:   local.StopLossPrice,
			takeProfit: local.TakeProfitPrice,
		})
	}

	for _, src := range aux {
		if !sourceEnabled(src.Source, settings.Sources) {
			continue
		}
		if src.Side != models.RawBuy && src.Side != models.RawSell {
			continue
		}
		if symbol == "" {
			symbol, timeframe = src.Symbol, src.Timeframe
		}
		contribs = append(contribs, contribution{
			name:       string(src.Source),
			side:       src.Side,
			weight:     sourceWeight(src.Source, w),
			confidence: sourceConfidence(src.Confidence),
			entry:      src.Entry,
			stopLoss:   src.StopLoss,
			takeProfit: src.TakeProfit,
		})
	}
	if len(contribs) == 0 {
		return nil
	}

	var buyScore, sellScore, totalWeight float64
	for _, c := range contribs {
		totalWeight += c.weight
		if c.side == models.RawBuy {
			buyScore += c.weight * c.confidence
		} else {
			sellScore += c.weight * c.confidence
		}
	}
	if totalWeight == 0 || buyScore == sellScore {
		return nil
	}

	side := models.RawBuy
	winning := buyScore
	if sellScore > buyScore {
		side = models.RawSell
		winning = sellScore
	}

	fused := &models.FusedSignal{
		Symbol:      symbol,
		Timeframe:   timeframe,
		Side:        side,
		Confidence:  math.Min(100, winning/totalWeight*100),
		Entry:       marketPrice,
		GeneratedAt: at,
	}

	// Price levels come from the heaviest agreeing contributor that has them.
	var best contribution
	for _, c := range contribs {
		if c.side == side && c.entry > 0 && c.weight >= best.weight {
			best = c
		}
	}
	if best.entry > 0 {
		fused.Entry = best.entry
		fused.StopLoss = best.stopLoss
		fused.TakeProfit = best.takeProfit
	}

	for _, c := range contribs {
		if c.side == side {
			fused.Sources = append(fused.Sources, c.name)
		}
	}
	return fused
}

func rawSide(s models.Side) models.RawSide {
	if s == models.SideSell {
		return models.RawSell
	}
	return models.RawBuy
}

func sourceEnabled(kind models.SourceKind, toggles models.SourceToggles) bool {
	switch kind {
	case models.SourceAIAnalyzer:
		return toggles.AI
	case models.SourceTVWebhook:
		return toggles.TradingView
	case models.SourceLegacyEngine:
		return toggles.Legacy
	default:
		return true
	}
}

func sourceWeight(kind models.SourceKind, w models.FusionWeights) float64 {
	switch kind {
	case models.SourceAIAnalyzer:
		return float64(w.AIFusion) / 100
	default:
		return float64(w.Sentiment) / 100
	}
}

// sourceConfidence defaults to a middling 0.5 when the wire record carried
// no confidence at all.
func sourceConfidence(c *float64) float64 {
	if c == nil {
		return 0.5
	}
	v := *c
	if v > 1 {
		v /= 100
	}
	return math.Max(0, math.Min(1, v))
}
