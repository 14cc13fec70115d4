package marketstream

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"SignalForge/internal/domain/models"
	drepo "SignalForge/internal/domain/repository"
	applogger "SignalForge/pkg/logger"
)

// Client implements a MarketStream backed by an exchange kline WebSocket
// (Binance combined-stream wire format).
type Client struct {
	websocketURL   string
	symbols        []string
	timeframes     []string
	reconnectDelay time.Duration
	pingInterval   time.Duration
	l              *applogger.Logger

	conn      *websocket.Conn
	connected bool
}

// New creates a kline MarketStream.
func New(websocketURL string, symbols, timeframes []string, reconnectDelay, pingInterval time.Duration, l *applogger.Logger) drepo.MarketStream {
	return &Client{
		websocketURL:   websocketURL,
		symbols:        symbols,
		timeframes:     timeframes,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
		l:              l,
	}
}

// Connect establishes the WebSocket connection.
func (c *Client) Connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.websocketURL, nil)
	if err != nil {
		return fmt.Errorf("stream connect: %w", err)
	}
	c.conn = conn
	c.connected = true
	if c.l != nil {
		c.l.Info("market stream connected", applogger.String("url", c.websocketURL))
	}
	return nil
}

// Subscribe subscribes to the kline streams of every configured
// (symbol, timeframe) pair.
func (c *Client) Subscribe(ctx context.Context) error {
	if c.conn == nil || !c.connected {
		return fmt.Errorf("stream not connected")
	}
	params := make([]string, 0, len(c.symbols)*len(c.timeframes))
	for _, s := range c.symbols {
		for _, tf := range c.timeframes {
			params = append(params, fmt.Sprintf("%s@kline_%s", strings.ToLower(s), tf))
		}
	}
	msg := map[string]interface{}{
		"method": "SUBSCRIBE",
		"params": params,
		"id":     1,
	}
	if err := c.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("subscribe klines: %w", err)
	}
	if c.l != nil {
		c.l.Info("market stream subscribed", applogger.Int("streams", len(params)))
	}
	return nil
}

type wsKline struct {
	Start    int64  `json:"t"`
	Symbol   string `json:"s"`
	Interval string `json:"i"`
	Open     string `json:"o"`
	High     string `json:"h"`
	Low      string `json:"l"`
	Close    string `json:"c"`
	Volume   string `json:"v"`
	Closed   bool   `json:"x"`
}

type wsMessage struct {
	Event  string  `json:"e"`
	Symbol string  `json:"s"`
	Kline  wsKline `json:"k"`
}

// Read streams candle updates and errors.
func (c *Client) Read(ctx context.Context) (<-chan *models.CandleUpdate, <-chan error) {
	updates := make(chan *models.CandleUpdate, 1024)
	errs := make(chan error, 1)

	// ping loop
	go func() {
		ticker := time.NewTicker(c.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if c.conn != nil {
					_ = c.conn.WriteMessage(websocket.PingMessage, nil)
				}
			}
		}
	}()

	// read loop
	go func() {
		defer close(updates)
		defer close(errs)
		for {
			select {
			case <-ctx.Done():
				return
			default:
				if c.conn == nil {
					errs <- fmt.Errorf("stream conn nil")
					return
				}
				_, b, err := c.conn.ReadMessage()
				if err != nil {
					errs <- fmt.Errorf("stream read: %w", err)
					return
				}
				var m wsMessage
				if err := json.Unmarshal(b, &m); err != nil {
					// ignore non-kline frames
					continue
				}
				if m.Event != "kline" {
					continue
				}
				update, err := mapKline(m)
				if err != nil {
					continue
				}
				select {
				case updates <- update:
				default:
					// drop on backpressure
				}
			}
		}
	}()

	return updates, errs
}

func mapKline(m wsMessage) (*models.CandleUpdate, error) {
	k := m.Kline
	open, err1 := parseFloat(k.Open)
	high, err2 := parseFloat(k.High)
	low, err3 := parseFloat(k.Low)
	cl, err4 := parseFloat(k.Close)
	vol, err5 := parseFloat(k.Volume)
	for _, err := range []error{err1, err2, err3, err4, err5} {
		if err != nil {
			return nil, fmt.Errorf("parse kline: %w", err)
		}
	}
	symbol := k.Symbol
	if symbol == "" {
		symbol = m.Symbol
	}
	return &models.CandleUpdate{
		Symbol:    symbol,
		Timeframe: k.Interval,
		Closed:    k.Closed,
		Candle: models.Candle{
			Bucket: time.UnixMilli(k.Start).UTC(),
			Symbol: symbol,
			Open:   open,
			High:   high,
			Low:    low,
			Close:  cl,
			Volume: vol,
		},
	}, nil
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(s, 64)
}

// Reconnect closes and reconnects.
func (c *Client) Reconnect(ctx context.Context) error {
	_ = c.Close()
	time.Sleep(c.reconnectDelay)
	if err := c.Connect(ctx); err != nil {
		return err
	}
	return c.Subscribe(ctx)
}

// Close closes the WS connection.
func (c *Client) Close() error {
	c.connected = false
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// IsConnected indicates status.
func (c *Client) IsConnected() bool { return c.connected }
