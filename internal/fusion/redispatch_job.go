package fusion

import (
	"context"
	"fmt"

	"SignalForge/internal/domain/models"
	applogger "SignalForge/pkg/logger"
	"SignalForge/pkg/queue"
)

// RedispatchType is the queue message type for parked fused signals.
const RedispatchType = "signal.redispatch"

// RedispatchJob replays fused signals that failed their first publish. The
// queue's own retry/backoff policy governs repeated failures.
type RedispatchJob struct {
	publisher Publisher
	topic     string
	l         *applogger.Logger
}

func NewRedispatchJob(publisher Publisher, topic string, l *applogger.Logger) *RedispatchJob {
	return &RedispatchJob{publisher: publisher, topic: topic, l: l}
}

func (j *RedispatchJob) Name() string { return "fused signal redispatch" }

func (j *RedispatchJob) Type() string { return RedispatchType }

func (j *RedispatchJob) Handle(ctx context.Context, payload interface{}) error {
	fused, err := queue.ParsePayload[models.FusedSignal](payload)
	if err != nil {
		return fmt.Errorf("parse redispatch payload: %w", err)
	}
	if err := j.publisher.Publish(ctx, j.topic, []byte(fused.Symbol), fused); err != nil {
		return fmt.Errorf("redispatch %s/%s: %w", fused.Symbol, fused.Timeframe, err)
	}
	if j.l != nil {
		j.l.Info("parked signal redispatched",
			applogger.String("symbol", fused.Symbol),
			applogger.String("tf", fused.Timeframe),
		)
	}
	return nil
}
