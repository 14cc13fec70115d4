package analyzer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"SignalForge/internal/domain/models"
	domrepo "SignalForge/internal/domain/repository"
	"SignalForge/pkg/cache"
	xhttp "SignalForge/pkg/http"
	applogger "SignalForge/pkg/logger"
	"SignalForge/pkg/util"
)

// Config holds the external analyzer connection parameters.
type Config struct {
	BaseURL  string        `yaml:"base_url"`
	Timeout  time.Duration `yaml:"timeout" default:"3s"`
	Retries  int           `yaml:"retries" default:"3"`
	CacheTTL time.Duration `yaml:"cache_ttl" default:"30s"`
}

// Client fetches the analyzer's latest opinion for a pair over HTTP. Results
// are cached briefly so one cycle cannot hammer the analyzer for a pair the
// previous cycle just asked about.
type Client struct {
	baseURL string
	retries int
	ttl     time.Duration
	client  *xhttp.Client
	cache   cache.Service
	l       *applogger.Logger
}

func NewClient(cfg Config, c cache.Service, l *applogger.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	retries := cfg.Retries
	if retries <= 0 {
		retries = 3
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Client{
		baseURL: cfg.BaseURL,
		retries: retries,
		ttl:     ttl,
		client:  xhttp.NewClient(xhttp.WithTimeout(timeout)),
		cache:   c,
		l:       l,
	}
}

// latestResponse is the analyzer's wire schema.
type latestResponse struct {
	Symbol      string   `json:"symbol"`
	Timeframe   string   `json:"timeframe"`
	Side        string   `json:"side"`
	Confidence  *float64 `json:"confidence,omitempty"`
	Entry       float64  `json:"entry,omitempty"`
	StopLoss    float64  `json:"stopLoss,omitempty"`
	TakeProfit  float64  `json:"takeProfit,omitempty"`
	RRRatio     float64  `json:"rrRatio,omitempty"`
	GeneratedAt string   `json:"generatedAt,omitempty"`
}

// Latest returns the analyzer's most recent opinion for a pair, or nil when
// it has none or the row is malformed.
func (c *Client) Latest(ctx context.Context, symbol string, tf domrepo.Timeframe) (*models.RawSignalSource, error) {
	if c.baseURL == "" {
		return nil, nil
	}
	key := fmt.Sprintf("analyzer:latest:%s:%s", symbol, tf)
	if c.cache != nil {
		var raw string
		if err := c.cache.Get(ctx, key, &raw); err == nil {
			var row latestResponse
			if json.Unmarshal([]byte(raw), &row) == nil {
				return c.mapRow(row), nil
			}
		} else if !errors.Is(err, cache.ErrCacheMiss) && c.l != nil {
			c.l.Warn("analyzer cache read failed", applogger.Error(err))
		}
	}

	var row latestResponse
	err := c.getWithRetry(ctx, fmt.Sprintf("/signals/latest?symbol=%s&tf=%s", symbol, tf), &row)
	if err != nil {
		return nil, fmt.Errorf("analyzer latest %s/%s: %w", symbol, tf, err)
	}

	if c.cache != nil {
		if data, mErr := json.Marshal(row); mErr == nil {
			if cErr := c.cache.Set(ctx, key, string(data), c.ttl); cErr != nil && c.l != nil {
				c.l.Warn("analyzer cache write failed", applogger.Error(cErr))
			}
		}
	}
	return c.mapRow(row), nil
}

// mapRow converts the wire schema into the common raw-source shape. Rows
// without a usable side are discarded, not surfaced as errors.
func (c *Client) mapRow(row latestResponse) *models.RawSignalSource {
	side, ok := normalizeSide(row.Side)
	if !ok {
		return nil
	}
	return &models.RawSignalSource{
		Source:      models.SourceAIAnalyzer,
		Symbol:      row.Symbol,
		Timeframe:   row.Timeframe,
		Side:        side,
		Confidence:  row.Confidence,
		Entry:       row.Entry,
		StopLoss:    row.StopLoss,
		TakeProfit:  row.TakeProfit,
		RRRatio:     row.RRRatio,
		GeneratedAt: util.ParseTimeDefault(row.GeneratedAt, time.Now()),
	}
}

func (c *Client) getWithRetry(ctx context.Context, path string, dest interface{}) error {
	var err error
	for i := 1; i <= c.retries; i++ {
		err = c.client.SendAndParse(ctx, &xhttp.RequestOptions{
			Method: xhttp.MethodGet,
			URL:    c.baseURL + path,
		}, dest)
		if err == nil {
			return nil
		}
		select {
		case <-time.After(time.Duration(i) * 50 * time.Millisecond):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func normalizeSide(s string) (models.RawSide, bool) {
	switch s {
	case "BUY", "buy", "LONG", "long":
		return models.RawBuy, true
	case "SELL", "sell", "SHORT", "short":
		return models.RawSell, true
	default:
		return "", false
	}
}

var _ domrepo.AnalyzerSource = (*Client)(nil)
