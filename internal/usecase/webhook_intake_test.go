package usecase

import (
	"context"
	"testing"

	"SignalForge/internal/domain/models"
)

type captureSink struct {
	pushed []models.RawSignalSource
	err    error
}

func (s *captureSink) Push(_ context.Context, src models.RawSignalSource) error {
	s.pushed = append(s.pushed, src)
	return s.err
}

func TestWebhookIntakeMapsPayload(t *testing.T) {
	sink := &captureSink{}
	h := NewWebhookIntakeHandler("webhooks.tradingview", sink, nopMetrics{}, nil)

	payload := []byte(`{"ticker":"BTCUSDT","interval":"1h","action":"buy","price":50000,"sl":49000,"tp":52000,"confidence":0.8}`)
	if err := h.Handle(context.Background(), payload); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(sink.pushed) != 1 {
		t.Fatalf("pushed %d rows, want 1", len(sink.pushed))
	}
	got := sink.pushed[0]
	if got.Source != models.SourceTVWebhook || got.Symbol != "BTCUSDT" || got.Timeframe != "1h" {
		t.Fatalf("mapped row: %+v", got)
	}
	if got.Side != models.RawBuy || got.Entry != 50000 || got.StopLoss != 49000 || got.TakeProfit != 52000 {
		t.Fatalf("mapped row: %+v", got)
	}
	if got.Confidence == nil || *got.Confidence != 0.8 {
		t.Fatalf("confidence not carried: %+v", got.Confidence)
	}
}

func TestWebhookIntakeDropsMalformedWithoutError(t *testing.T) {
	sink := &captureSink{}
	h := NewWebhookIntakeHandler("webhooks.tradingview", sink, nopMetrics{}, nil)

	cases := [][]byte{
		[]byte(`not json`),
		[]byte(`{"ticker":"BTCUSDT","interval":"1h","action":"hold"}`),
		[]byte(`{"interval":"1h","action":"buy"}`),
		[]byte(`{"ticker":"BTCUSDT","action":"buy"}`),
	}
	for i, payload := range cases {
		if err := h.Handle(context.Background(), payload); err != nil {
			t.Fatalf("case %d: malformed payload must not error: %v", i, err)
		}
	}
	if len(sink.pushed) != 0 {
		t.Fatalf("pushed %d rows, want 0", len(sink.pushed))
	}
}

func TestWebhookIntakeNormalizesInterval(t *testing.T) {
	sink := &captureSink{}
	h := NewWebhookIntakeHandler("webhooks.tradingview", sink, nopMetrics{}, nil)

	payload := []byte(`{"ticker":"ETHUSDT","interval":"bogus","action":"sell","price":3000}`)
	if err := h.Handle(context.Background(), payload); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(sink.pushed) != 1 {
		t.Fatalf("pushed %d rows, want 1", len(sink.pushed))
	}
	if got := sink.pushed[0].Timeframe; got != "1h" {
		t.Fatalf("unknown interval should normalize to default, got %q", got)
	}
}
