package usecase

import (
	"context"
	"encoding/json"
	"time"

	"SignalForge/internal/domain/models"
	domrepo "SignalForge/internal/domain/repository"
	pkgkafka "SignalForge/pkg/kafka"
	applogger "SignalForge/pkg/logger"
	"SignalForge/pkg/util"
)

// WebhookSink stores mapped webhook signals for later pickup by the
// production cycle.
type WebhookSink interface {
	Push(ctx context.Context, src models.RawSignalSource) error
}

// WebhookIntakeHandler consumes TradingView-style webhook payloads off Kafka
// and parks them in the webhook store. Malformed rows are dropped, never
// retried: a payload that does not parse today will not parse tomorrow.
type WebhookIntakeHandler struct {
	topic   string
	sink    WebhookSink
	metrics domrepo.Metrics
	l       *applogger.Logger
}

func NewWebhookIntakeHandler(topic string, sink WebhookSink, metrics domrepo.Metrics, l *applogger.Logger) *WebhookIntakeHandler {
	return &WebhookIntakeHandler{topic: topic, sink: sink, metrics: metrics, l: l}
}

func (h *WebhookIntakeHandler) Topic() string { return h.topic }

// incoming message schema: {ticker, interval, action, price, sl, tp, time}
func (h *WebhookIntakeHandler) Handle(ctx context.Context, b []byte) error {
	var m struct {
		Ticker   string   `json:"ticker"`
		Interval string   `json:"interval"`
		Action   string   `json:"action"`
		Price    float64  `json:"price"`
		SL       float64  `json:"sl"`
		TP       float64  `json:"tp"`
		Conf     *float64 `json:"confidence"`
		Time     string   `json:"time"`
	}
	if err := json.Unmarshal(b, &m); err != nil {
		h.metrics.RecordError("webhook_unmarshal")
		if h.l != nil {
			h.l.Warn("webhook payload dropped", applogger.Error(err))
		}
		return nil
	}

	side, ok := mapWebhookAction(m.Action)
	if !ok || m.Ticker == "" || m.Interval == "" {
		h.metrics.RecordSkip("webhook_incomplete")
		return nil
	}

	src := models.RawSignalSource{
		Source:      models.SourceTVWebhook,
		Symbol:      m.Ticker,
		Timeframe:   string(domrepo.NormalizeTimeframe(m.Interval)),
		Side:        side,
		Confidence:  m.Conf,
		Entry:       m.Price,
		StopLoss:    m.SL,
		TakeProfit:  m.TP,
		GeneratedAt: util.ParseTimeDefault(m.Time, time.Now()),
	}
	if err := h.sink.Push(ctx, src); err != nil {
		h.metrics.RecordError("webhook_store")
		return err
	}
	return nil
}

func mapWebhookAction(action string) (models.RawSide, bool) {
	switch action {
	case "buy", "BUY", "long", "LONG":
		return models.RawBuy, true
	case "sell", "SELL", "short", "SHORT":
		return models.RawSell, true
	default:
		return "", false
	}
}

var _ pkgkafka.MessageHandler = (*WebhookIntakeHandler)(nil)
