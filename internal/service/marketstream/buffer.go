package marketstream

import (
	"context"
	"sync"

	"SignalForge/internal/domain/models"
	drepo "SignalForge/internal/domain/repository"
)

// DefaultBufferCapacity bounds the rolling window kept per pair.
const DefaultBufferCapacity = 500

// CandleBuffer is an in-memory rolling candle window per (symbol, timeframe)
// pair, fed by the live stream. It is the candle backend used when no
// ClickHouse history store is configured.
type CandleBuffer struct {
	mu       sync.RWMutex
	capacity int
	windows  map[string][]models.Candle
}

func NewCandleBuffer(capacity int) *CandleBuffer {
	if capacity <= 0 {
		capacity = DefaultBufferCapacity
	}
	return &CandleBuffer{
		capacity: capacity,
		windows:  make(map[string][]models.Candle),
	}
}

func bufferKey(symbol, tf string) string { return symbol + "|" + tf }

// Apply folds a stream update into the window: an update for the bucket at
// the tail replaces it (the candle is still forming), a newer bucket appends
// and trims the head.
func (b *CandleBuffer) Apply(update *models.CandleUpdate) {
	if update == nil || update.Symbol == "" || update.Timeframe == "" {
		return
	}
	key := bufferKey(update.Symbol, update.Timeframe)

	b.mu.Lock()
	defer b.mu.Unlock()

	window := b.windows[key]
	if n := len(window); n > 0 && window[n-1].Bucket.Equal(update.Candle.Bucket) {
		window[n-1] = update.Candle
		return
	}
	window = append(window, update.Candle)
	if len(window) > b.capacity {
		window = window[len(window)-b.capacity:]
	}
	b.windows[key] = window
}

// GetRecent returns up to limit candles for a pair, oldest first.
func (b *CandleBuffer) GetRecent(_ context.Context, symbol string, tf drepo.Timeframe, limit int) ([]models.Candle, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	window := b.windows[bufferKey(symbol, string(tf))]
	if limit > 0 && len(window) > limit {
		window = window[len(window)-limit:]
	}
	out := make([]models.Candle, len(window))
	copy(out, window)
	return out, nil
}

var _ drepo.CandleProvider = (*CandleBuffer)(nil)
