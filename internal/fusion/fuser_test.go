package fusion

import (
	"context"
	"errors"
	"testing"
	"time"

	"SignalForge/internal/domain/models"
	"SignalForge/internal/settings"
)

type capturePublisher struct {
	calls  int
	topic  string
	key    string
	value  interface{}
	err    error
}

func (p *capturePublisher) Publish(_ context.Context, topic string, key []byte, value interface{}) error {
	p.calls++
	p.topic, p.key, p.value = topic, string(key), value
	return p.err
}

type captureQueue struct {
	calls   int
	msgType string
	payload interface{}
	err     error
}

func (q *captureQueue) PublishMessage(_ context.Context, msgType string, payload interface{}) error {
	q.calls++
	q.msgType, q.payload = msgType, payload
	return q.err
}

func localBuy() *models.GeneratedSignal {
	return &models.GeneratedSignal{
		Symbol:          "BTCUSDT",
		Side:            models.SideBuy,
		Timeframe:       "1h",
		EntryPrice:      100,
		Confidence:      80,
		RiskLevel:       models.RiskLow,
		StopLossPrice:   95,
		TakeProfitPrice: 110,
	}
}

func auxSource(kind models.SourceKind, side models.RawSide, conf float64) models.RawSignalSource {
	return models.RawSignalSource{
		Source:      kind,
		Symbol:      "BTCUSDT",
		Timeframe:   "1h",
		Side:        side,
		Confidence:  &conf,
		GeneratedAt: time.Now(),
	}
}

func TestFuseLocalOnly(t *testing.T) {
	fused := Fuse(localBuy(), nil, 100, settings.Defaults(), time.Now())
	if fused == nil {
		t.Fatal("expected a fused signal")
	}
	if fused.Side != models.RawBuy {
		t.Fatalf("side = %q", fused.Side)
	}
	if fused.Entry != 100 || fused.StopLoss != 95 || fused.TakeProfit != 110 {
		t.Fatalf("price levels not carried over: %+v", fused)
	}
	if len(fused.Sources) != 1 || fused.Sources[0] != "local" {
		t.Fatalf("sources = %v", fused.Sources)
	}
}

func TestFuseNothingToFuse(t *testing.T) {
	if got := Fuse(nil, nil, 100, settings.Defaults(), time.Now()); got != nil {
		t.Fatalf("expected nil, got %+v", got)
	}
}

func TestFuseRespectsSourceToggles(t *testing.T) {
	s := settings.Defaults()
	s.Sources.AI = false
	aux := []models.RawSignalSource{auxSource(models.SourceAIAnalyzer, models.RawSell, 0.95)}

	fused := Fuse(localBuy(), aux, 100, s, time.Now())
	if fused == nil {
		t.Fatal("expected a fused signal")
	}
	if fused.Side != models.RawBuy {
		t.Fatalf("disabled AI source must not vote, side = %q", fused.Side)
	}
	for _, name := range fused.Sources {
		if name == string(models.SourceAIAnalyzer) {
			t.Fatal("disabled source leaked into the source list")
		}
	}
}

func TestFuseLegacyDisabledByDefault(t *testing.T) {
	aux := []models.RawSignalSource{auxSource(models.SourceLegacyEngine, models.RawBuy, 0.9)}
	if got := Fuse(nil, aux, 100, settings.Defaults(), time.Now()); got != nil {
		t.Fatalf("legacy source is off by default, got %+v", got)
	}
}

func TestFuseAuxOutweighsWeakLocal(t *testing.T) {
	s := settings.Defaults()
	s.FusionWeights = models.FusionWeights{Technical: 10, AIFusion: 90}.Normalized()

	local := localBuy()
	local.Confidence = 40
	aux := []models.RawSignalSource{auxSource(models.SourceAIAnalyzer, models.RawSell, 0.9)}

	fused := Fuse(local, aux, 100, s, time.Now())
	if fused == nil {
		t.Fatal("expected a fused signal")
	}
	if fused.Side != models.RawSell {
		t.Fatalf("heavyweight AI vote should win, side = %q", fused.Side)
	}
}

func TestFuseDiscardsSidelessRows(t *testing.T) {
	bad := auxSource(models.SourceAIAnalyzer, "", 0.9)
	if got := Fuse(nil, []models.RawSignalSource{bad}, 100, settings.Defaults(), time.Now()); got != nil {
		t.Fatalf("row without a side must be discarded, got %+v", got)
	}
}

func TestFuseAndDispatchPublishesOnce(t *testing.T) {
	pub := &capturePublisher{}
	f := NewFuser(pub, &captureQueue{}, "signals.fused", nil)

	if err := f.FuseAndDispatch(context.Background(), localBuy(), nil, 100, settings.Defaults()); err != nil {
		t.Fatalf("FuseAndDispatch: %v", err)
	}
	if pub.calls != 1 {
		t.Fatalf("publish calls = %d, want 1", pub.calls)
	}
	if pub.topic != "signals.fused" || pub.key != "BTCUSDT" {
		t.Fatalf("topic/key = %q/%q", pub.topic, pub.key)
	}
}

func TestFuseAndDispatchNoOpPublishesNothing(t *testing.T) {
	pub := &capturePublisher{}
	f := NewFuser(pub, nil, "signals.fused", nil)

	if err := f.FuseAndDispatch(context.Background(), nil, nil, 100, settings.Defaults()); err != nil {
		t.Fatalf("FuseAndDispatch: %v", err)
	}
	if pub.calls != 0 {
		t.Fatalf("publish calls = %d, want 0", pub.calls)
	}
}

func TestFuseAndDispatchParksOnPublishFailure(t *testing.T) {
	pub := &capturePublisher{err: errors.New("broker down")}
	q := &captureQueue{}
	f := NewFuser(pub, q, "signals.fused", nil)

	if err := f.FuseAndDispatch(context.Background(), localBuy(), nil, 100, settings.Defaults()); err != nil {
		t.Fatalf("parked signal should not surface an error: %v", err)
	}
	if q.calls != 1 || q.msgType != RedispatchType {
		t.Fatalf("retry enqueue calls = %d type = %q", q.calls, q.msgType)
	}
}

func TestFuseAndDispatchErrorsWhenRetryAlsoFails(t *testing.T) {
	pub := &capturePublisher{err: errors.New("broker down")}
	q := &captureQueue{err: errors.New("redis down")}
	f := NewFuser(pub, q, "signals.fused", nil)

	if err := f.FuseAndDispatch(context.Background(), localBuy(), nil, 100, settings.Defaults()); err == nil {
		t.Fatal("expected an error when both publish and retry fail")
	}
}
