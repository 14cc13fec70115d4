package middleware

import (
	"context"
	"errors"
	"testing"
	"time"

	"SignalForge/internal/domain/models"
)

type stubProc struct {
	calls int
	err   error
}

func (s *stubProc) Process(context.Context, *models.CandleUpdate) error {
	s.calls++
	return s.err
}

type nopMetrics struct{}

func (nopMetrics) RecordCycle(float64)                      {}
func (nopMetrics) RecordDispatch(string, string)            {}
func (nopMetrics) RecordSkip(string)                        {}
func (nopMetrics) RecordError(string)                       {}
func (nopMetrics) RecordLatency(string, float64)            {}
func (nopMetrics) RecordConfidence(string, string, float64) {}
func (nopMetrics) RecordLastPrice(string, float64)          {}

func validCandleUpdate() *models.CandleUpdate {
	return &models.CandleUpdate{
		Symbol:    "BTCUSDT",
		Timeframe: "1h",
		Closed:    true,
		Candle: models.Candle{
			Bucket: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
			Symbol: "BTCUSDT",
			Open:   100, High: 101, Low: 99, Close: 100,
			Volume: 5,
		},
	}
}

func TestPipelineForwardsValidUpdate(t *testing.T) {
	proc := &stubProc{}
	p := NewStreamPipeline(proc, nopMetrics{})

	if err := p.Process(context.Background(), validCandleUpdate()); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if proc.calls != 1 {
		t.Fatalf("downstream calls = %d, want 1", proc.calls)
	}
}

func TestPipelineRejectsInvalidUpdates(t *testing.T) {
	proc := &stubProc{}
	p := NewStreamPipeline(proc, nopMetrics{})

	cases := []func(*models.CandleUpdate){
		func(u *models.CandleUpdate) { u.Symbol = "" },
		func(u *models.CandleUpdate) { u.Timeframe = "" },
		func(u *models.CandleUpdate) { u.Candle.Bucket = time.Time{} },
		func(u *models.CandleUpdate) { u.Candle.Close = -1 },
		func(u *models.CandleUpdate) { u.Candle.High = 1; u.Candle.Low = 2 },
	}
	for i, mutate := range cases {
		u := validCandleUpdate()
		mutate(u)
		if err := p.Process(context.Background(), u); err == nil {
			t.Fatalf("case %d: expected validation error", i)
		}
	}
	if proc.calls != 0 {
		t.Fatalf("invalid updates reached downstream: %d", proc.calls)
	}
}

func TestPipelineThrottlesFormingCandles(t *testing.T) {
	proc := &stubProc{}
	p := NewStreamPipeline(proc, nopMetrics{}, WithMaxRPS(1))

	u := validCandleUpdate()
	u.Closed = false
	for i := 0; i < 5; i++ {
		if err := p.Process(context.Background(), u); err != nil {
			t.Fatalf("Process %d: %v", i, err)
		}
	}
	if proc.calls != 1 {
		t.Fatalf("throttle let through %d updates, want 1", proc.calls)
	}
}

func TestPipelineClosedCandlesBypassThrottle(t *testing.T) {
	proc := &stubProc{}
	p := NewStreamPipeline(proc, nopMetrics{}, WithMaxRPS(1))

	for i := 0; i < 3; i++ {
		if err := p.Process(context.Background(), validCandleUpdate()); err != nil {
			t.Fatalf("Process %d: %v", i, err)
		}
	}
	if proc.calls != 3 {
		t.Fatalf("closed candles must always pass, got %d", proc.calls)
	}
}

func TestPipelineBuffersOnDownstreamError(t *testing.T) {
	proc := &stubProc{err: errors.New("buffer backend down")}
	p := NewStreamPipeline(proc, nopMetrics{}, WithBufferSize(4))

	if err := p.Process(context.Background(), validCandleUpdate()); err == nil {
		t.Fatal("downstream error should surface")
	}
	if len(p.bufCh) != 1 {
		t.Fatalf("update not buffered, depth = %d", len(p.bufCh))
	}
}
