package usecase

import (
	"context"

	"SignalForge/internal/domain/models"
	drepo "SignalForge/internal/domain/repository"
	mid "SignalForge/internal/middleware"
	"SignalForge/internal/service/marketstream"
)

// bufferProc adapts the in-memory candle buffer to the pipeline's
// downstream contract.
type bufferProc struct {
	buf *marketstream.CandleBuffer
}

func (p bufferProc) Process(_ context.Context, u *models.CandleUpdate) error {
	p.buf.Apply(u)
	return nil
}

// NewBufferProc wraps a CandleBuffer so the stream pipeline can feed it.
func NewBufferProc(buf *marketstream.CandleBuffer) mid.Proc {
	return bufferProc{buf: buf}
}

// CandleCollector consumes live kline updates from the market stream and
// channels them through the pipeline into the candle buffer.
type CandleCollector struct {
	stream  drepo.MarketStream
	proc    mid.Proc
	metrics drepo.Metrics
	pipe    *mid.StreamPipeline
}

// NewCandleCollector creates a new CandleCollector instance.
func NewCandleCollector(stream drepo.MarketStream, proc mid.Proc, metrics drepo.Metrics, pipe *mid.StreamPipeline) *CandleCollector {
	return &CandleCollector{stream: stream, proc: proc, metrics: metrics, pipe: pipe}
}

// IsConnected returns true if the market stream is connected.
func (c *CandleCollector) IsConnected() bool {
	return c.stream.IsConnected()
}

func (c *CandleCollector) Start(ctx context.Context) error {
	if err := c.stream.Connect(ctx); err != nil {
		return err
	}
	if err := c.stream.Subscribe(ctx); err != nil {
		return err
	}
	if c.pipe != nil {
		c.pipe.Start(ctx)
	}
	upCh, errCh := c.stream.Read(ctx)
	go c.consume(ctx, upCh, errCh)
	return nil
}

func (c *CandleCollector) consume(ctx context.Context, upCh <-chan *models.CandleUpdate, errCh <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-errCh:
			if err != nil {
				c.metrics.RecordError("stream")
				_ = c.stream.Reconnect(ctx)
			}
		case u := <-upCh:
			if u == nil {
				continue
			}
			if c.pipe != nil {
				_ = c.pipe.Process(ctx, u)
			} else {
				_ = c.proc.Process(ctx, u)
			}
			c.metrics.RecordLastPrice(u.Symbol, u.Candle.Close)
		}
	}
}

func (c *CandleCollector) Stop() error { return c.stream.Close() }

// Shutdown stops the pipeline and closes the stream.
func (c *CandleCollector) Shutdown(ctx context.Context) error {
	if c.pipe != nil {
		c.pipe.Stop()
	}
	return c.stream.Close()
}
