package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"SignalForge/internal/domain/models"
	domrepo "SignalForge/internal/domain/repository"
	"SignalForge/internal/service/ratelimit"
)

// Proc is the minimal processor interface the pipeline needs.
type Proc interface {
	Process(ctx context.Context, u *models.CandleUpdate) error
}

// StreamPipeline sits between the WebSocket stream and the candle buffer.
// It validates, throttles forming-candle churn per pair, optionally
// transforms, and buffers when downstream is unavailable.
type StreamPipeline struct {
	proc    Proc
	metrics domrepo.Metrics
	maxRPS  int
	bufSize int
	bufCh   chan *models.CandleUpdate
	stopCh  chan struct{}
	started bool
	mu      sync.Mutex
	limiter *ratelimit.Limiter // per-pair forming-candle throttle
	// optional format transform hook
	transform func(*models.CandleUpdate) *models.CandleUpdate
}

type PipelineOption func(*StreamPipeline)

// WithMaxRPS sets the max accepted updates per second per pair. Closed
// candles always pass.
func WithMaxRPS(n int) PipelineOption {
	return func(p *StreamPipeline) {
		if n > 0 {
			p.maxRPS = n
		}
	}
}

// WithBufferSize sets the temporary buffer size when downstream is unavailable.
func WithBufferSize(n int) PipelineOption {
	return func(p *StreamPipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

// WithTransform sets a transformation hook to modify the update format.
func WithTransform(fn func(*models.CandleUpdate) *models.CandleUpdate) PipelineOption {
	return func(p *StreamPipeline) { p.transform = fn }
}

// NewStreamPipeline creates a new pipeline.
func NewStreamPipeline(proc Proc, metrics domrepo.Metrics, opts ...PipelineOption) *StreamPipeline {
	p := &StreamPipeline{
		proc:    proc,
		metrics: metrics,
		maxRPS:  20,   // default throttle per pair
		bufSize: 1000, // default buffer
		bufCh:   make(chan *models.CandleUpdate, 1000),
		stopCh:  make(chan struct{}),
		limiter: ratelimit.New(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.bufSize != cap(p.bufCh) {
		p.bufCh = make(chan *models.CandleUpdate, p.bufSize)
	}
	return p
}

// Start launches background flushing of buffered updates.
func (p *StreamPipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go func() {
		backoff := 50 * time.Millisecond
		for {
			select {
			case <-p.stopCh:
				return
			case u := <-p.bufCh:
				if u == nil {
					continue
				}
				if err := p.proc.Process(ctx, u); err != nil {
					// exponential backoff with cap
					if backoff < 2*time.Second {
						backoff *= 2
					}
					p.metrics.RecordError("pipeline_flush")
					time.Sleep(backoff)
					// requeue if space; drop otherwise
					select {
					case p.bufCh <- u:
					default:
						p.metrics.RecordError("pipeline_buffer_drop")
					}
				} else {
					backoff = 50 * time.Millisecond
				}
			}
		}
	}()
}

// Stop stops the background flushing.
func (p *StreamPipeline) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	p.mu.Unlock()
	close(p.stopCh)
}

// Process validates, throttles, and forwards the update downstream,
// buffering on errors.
func (p *StreamPipeline) Process(ctx context.Context, u *models.CandleUpdate) error {
	start := time.Now()
	if err := validateUpdate(u); err != nil {
		p.metrics.RecordError("pipeline_validate")
		return err
	}
	if p.transform != nil {
		u = p.transform(u)
		if err := validateUpdate(u); err != nil {
			p.metrics.RecordError("pipeline_transform_invalid")
			return err
		}
	}
	if !u.Closed && !p.allow(u.Symbol+"|"+u.Timeframe) {
		// throttled forming-candle churn; drop silently
		p.metrics.RecordSkip("pipeline_throttle")
		return nil
	}

	if err := p.proc.Process(ctx, u); err != nil {
		p.metrics.RecordError("pipeline_process")
		// buffer non-blocking
		select {
		case p.bufCh <- u:
		default:
			p.metrics.RecordError("pipeline_buffer_full")
		}
		return fmt.Errorf("pipeline downstream: %w", err)
	}
	p.metrics.RecordLatency("pipeline_process", time.Since(start).Seconds())
	return nil
}

func validateUpdate(u *models.CandleUpdate) error {
	if u == nil {
		return fmt.Errorf("update nil")
	}
	if u.Symbol == "" {
		return fmt.Errorf("symbol empty")
	}
	if u.Timeframe == "" {
		return fmt.Errorf("timeframe empty")
	}
	if u.Candle.Bucket.IsZero() {
		return fmt.Errorf("bucket invalid")
	}
	if u.Candle.Close < 0 || u.Candle.Volume < 0 {
		return fmt.Errorf("negative price/volume")
	}
	if u.Candle.High < u.Candle.Low {
		return fmt.Errorf("high below low")
	}
	return nil
}

func (p *StreamPipeline) allow(pair string) bool {
	if p.maxRPS <= 0 {
		return true
	}
	return p.limiter.Allow(pair, float64(p.maxRPS), float64(p.maxRPS))
}
