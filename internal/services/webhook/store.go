package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"SignalForge/internal/domain/models"
	domrepo "SignalForge/internal/domain/repository"
	applogger "SignalForge/pkg/logger"
)

const (
	defaultKeyPrefix = "signalforge:webhooks"
	defaultMaxKept   = 50
	defaultTTL       = 24 * time.Hour
)

// Store keeps webhook-delivered raw signals in per-pair Redis lists, newest
// first. The intake consumer pushes; the production cycle reads.
type Store struct {
	client  *redis.Client
	prefix  string
	maxKept int64
	ttl     time.Duration
	l       *applogger.Logger
}

func NewStore(client *redis.Client, l *applogger.Logger) *Store {
	return &Store{
		client:  client,
		prefix:  defaultKeyPrefix,
		maxKept: defaultMaxKept,
		ttl:     defaultTTL,
		l:       l,
	}
}

func (s *Store) key(symbol, tf string) string {
	return fmt.Sprintf("%s:%s:%s", s.prefix, symbol, tf)
}

// Push prepends a raw signal to its pair's list, trimming to the retention
// cap and refreshing the TTL.
func (s *Store) Push(ctx context.Context, src models.RawSignalSource) error {
	if src.Symbol == "" || src.Timeframe == "" {
		return fmt.Errorf("push webhook signal: missing symbol or timeframe")
	}
	data, err := json.Marshal(src)
	if err != nil {
		return fmt.Errorf("encode webhook signal: %w", err)
	}
	key := s.key(src.Symbol, src.Timeframe)

	pipe := s.client.Pipeline()
	pipe.LPush(ctx, key, data)
	pipe.LTrim(ctx, key, 0, s.maxKept-1)
	pipe.Expire(ctx, key, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("push webhook signal %s: %w", key, err)
	}
	return nil
}

// Recent returns up to limit raw signals for a pair, newest first. Rows that
// fail to decode or carry no usable side are dropped silently.
func (s *Store) Recent(ctx context.Context, symbol string, tf domrepo.Timeframe, limit int) ([]models.RawSignalSource, error) {
	if limit <= 0 {
		limit = 3
	}
	key := s.key(symbol, string(tf))
	rows, err := s.client.LRange(ctx, key, 0, int64(limit)-1).Result()
	if err != nil {
		return nil, fmt.Errorf("recent webhook signals %s: %w", key, err)
	}

	out := make([]models.RawSignalSource, 0, len(rows))
	for _, row := range rows {
		var src models.RawSignalSource
		if err := json.Unmarshal([]byte(row), &src); err != nil {
			if s.l != nil {
				s.l.Warn("malformed webhook row dropped",
					applogger.String("key", key),
					applogger.Error(err),
				)
			}
			continue
		}
		if src.Side != models.RawBuy && src.Side != models.RawSell {
			continue
		}
		src.Source = models.SourceTVWebhook
		out = append(out, src)
	}
	return out, nil
}

var _ domrepo.WebhookSource = (*Store)(nil)
