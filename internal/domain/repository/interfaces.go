package repository

import (
	"context"

	"SignalForge/internal/domain/models"
)

// CandleProvider serves recent candle windows, oldest first.
type CandleProvider interface {
	GetRecent(ctx context.Context, symbol string, tf Timeframe, limit int) ([]models.Candle, error)
}

// SettingsStore reads persisted per-tenant settings. A missing record is
// (nil, nil), not an error.
type SettingsStore interface {
	Load(ctx context.Context, userID string) (*models.StoredAISettings, error)
}

// AnalyzerSource serves the single most recent externally computed opinion
// for a pair, or nil when the analyzer has none.
type AnalyzerSource interface {
	Latest(ctx context.Context, symbol string, tf Timeframe) (*models.RawSignalSource, error)
}

// WebhookSource serves recent webhook-delivered raw signals for a pair,
// newest first. Malformed rows are filtered, never surfaced as errors.
type WebhookSource interface {
	Recent(ctx context.Context, symbol string, tf Timeframe, limit int) ([]models.RawSignalSource, error)
}

// SymbolUniverse discovers the active symbol set, e.g. from live
// subscriptions. An empty result means the caller falls back to its static
// configured list.
type SymbolUniverse interface {
	ActiveSymbols(ctx context.Context) ([]string, error)
}

// Dispatcher fuses a local proposal with auxiliary raw signals and hands the
// result to downstream consumers. The orchestration loop calls it at most
// once per (symbol, timeframe) pair per cycle.
type Dispatcher interface {
	FuseAndDispatch(ctx context.Context, local *models.GeneratedSignal, aux []models.RawSignalSource, marketPrice float64, settings *models.UserAISettings) error
}

// MarketStream is a live candle feed.
type MarketStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.CandleUpdate, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// Metrics records pipeline observability signals.
type Metrics interface {
	RecordCycle(seconds float64)
	RecordDispatch(symbol, timeframe string)
	RecordSkip(reason string)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
	RecordConfidence(symbol, timeframe string, confidence float64)
	RecordLastPrice(symbol string, price float64)
}
