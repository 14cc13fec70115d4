package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"SignalForge/internal/domain/models"
	domrepo "SignalForge/internal/domain/repository"
	"SignalForge/internal/settings"
	"SignalForge/internal/strategy"
)

type stubCandles struct {
	perSymbol map[string]int // candle count override
	failFor   map[string]bool
}

func (s *stubCandles) GetRecent(_ context.Context, symbol string, _ domrepo.Timeframe, limit int) ([]models.Candle, error) {
	if s.failFor[symbol] {
		return nil, errors.New("clickhouse timeout")
	}
	n := limit
	if override, ok := s.perSymbol[symbol]; ok {
		n = override
	}
	if n > limit {
		n = limit
	}
	out := make([]models.Candle, n)
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := range out {
		out[i] = models.Candle{
			Bucket: base.Add(time.Duration(i) * time.Minute),
			Symbol: symbol,
			Open:   100, High: 101, Low: 99, Close: 100,
			Volume: 100,
		}
	}
	if n > 0 {
		out[n-1].Volume = 180
	}
	return out, nil
}

type stubStore struct{ stored *models.StoredAISettings }

func (s *stubStore) Load(context.Context, string) (*models.StoredAISettings, error) {
	return s.stored, nil
}

type stubAnalyzer struct {
	row *models.RawSignalSource
	err error
}

func (s *stubAnalyzer) Latest(context.Context, string, domrepo.Timeframe) (*models.RawSignalSource, error) {
	return s.row, s.err
}

type stubWebhooks struct {
	rows []models.RawSignalSource
	err  error
}

func (s *stubWebhooks) Recent(context.Context, string, domrepo.Timeframe, int) ([]models.RawSignalSource, error) {
	return s.rows, s.err
}

type stubUniverse struct {
	symbols []string
	err     error
}

func (s *stubUniverse) ActiveSymbols(context.Context) ([]string, error) {
	return s.symbols, s.err
}

type recordingDispatcher struct {
	mu       sync.Mutex
	calls    map[string]int
	panicFor string
	err      error
}

func newRecordingDispatcher() *recordingDispatcher {
	return &recordingDispatcher{calls: map[string]int{}}
}

func (d *recordingDispatcher) FuseAndDispatch(_ context.Context, local *models.GeneratedSignal, aux []models.RawSignalSource, _ float64, _ *models.UserAISettings) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	var key string
	if local != nil {
		key = local.Symbol + "/" + local.Timeframe
	} else if len(aux) > 0 {
		key = aux[0].Symbol + "/" + aux[0].Timeframe
	}
	if d.panicFor != "" && key == d.panicFor {
		panic("dispatcher exploded")
	}
	d.calls[key]++
	return d.err
}

func (d *recordingDispatcher) total() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, c := range d.calls {
		n += c
	}
	return n
}

type nopMetrics struct{}

func (nopMetrics) RecordCycle(float64)                      {}
func (nopMetrics) RecordDispatch(string, string)            {}
func (nopMetrics) RecordSkip(string)                        {}
func (nopMetrics) RecordError(string)                       {}
func (nopMetrics) RecordLatency(string, float64)            {}
func (nopMetrics) RecordConfidence(string, string, float64) {}
func (nopMetrics) RecordLastPrice(string, float64)          {}

type fixedCalc struct{ snap *models.IndicatorSnapshot }

func (c *fixedCalc) Compute([]models.Candle) (*models.IndicatorSnapshot, error) {
	return c.snap, nil
}

func bullish() *models.IndicatorSnapshot {
	return &models.IndicatorSnapshot{
		Price:      100,
		RSI:        25,
		MACD:       models.MACDValue{MACD: 1.2, Signal: 0.8, Histogram: 0.4, Trend: models.MACDBullish},
		EMA20:      103,
		EMA50:      100,
		Bollinger:  models.BollingerValue{Upper: 110, Middle: 104, Lower: 101},
		Stochastic: models.StochasticValue{K: 12, D: 15, Signal: models.StochOversold},
		ATR:        2.5,
		Trend:      models.TrendValue{Direction: models.TrendBullish, Strength: models.StrengthStrong},
	}
}

func neutral() *models.IndicatorSnapshot {
	return &models.IndicatorSnapshot{
		Price:      100,
		RSI:        50,
		MACD:       models.MACDValue{Histogram: 0.1, Trend: models.MACDBullish},
		EMA20:      100,
		EMA50:      100,
		Bollinger:  models.BollingerValue{Upper: 105, Middle: 100, Lower: 95},
		Stochastic: models.StochasticValue{K: 50, D: 50, Signal: models.StochNeutral},
		ATR:        1,
		Trend:      models.TrendValue{Direction: models.TrendSideways, Strength: models.StrengthWeak},
	}
}

type runnerOpts struct {
	candles    *stubCandles
	analyzer   domrepo.AnalyzerSource
	webhooks   domrepo.WebhookSource
	universe   domrepo.SymbolUniverse
	dispatcher domrepo.Dispatcher
	snap       *models.IndicatorSnapshot
}

func newTestRunner(t *testing.T, opts runnerOpts) *CycleRunner {
	t.Helper()
	if opts.candles == nil {
		opts.candles = &stubCandles{}
	}
	if opts.analyzer == nil {
		opts.analyzer = &stubAnalyzer{}
	}
	if opts.webhooks == nil {
		opts.webhooks = &stubWebhooks{}
	}
	if opts.snap == nil {
		opts.snap = bullish()
	}
	gen := strategy.NewGenerator(
		strategy.Config{Timeframes: []string{"1h", "4h"}, MinCandles: 50},
		&fixedCalc{snap: opts.snap},
		nil,
	)
	cfg := CycleConfig{
		UserID:      "tenant-1",
		Symbols:     []string{"BTCUSDT", "ETHUSDT", "SOLUSDT"},
		Timeframes:  []domrepo.Timeframe{domrepo.TF1h, domrepo.TF4h},
		CandleLimit: 60,
		MinCandles:  50,
	}
	return NewCycleRunner(cfg, CycleRunnerDeps{
		Resolver:   settings.NewResolver(),
		Store:      &stubStore{},
		Candles:    opts.candles,
		Analyzer:   opts.analyzer,
		Webhooks:   opts.webhooks,
		Universe:   opts.universe,
		Generator:  gen,
		Dispatcher: opts.dispatcher,
		Metrics:    nopMetrics{},
	}, nil)
}

func TestRunOnceDispatchesAtMostOncePerPair(t *testing.T) {
	d := newRecordingDispatcher()
	r := newTestRunner(t, runnerOpts{dispatcher: d})

	if err := r.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if d.total() != 6 {
		t.Fatalf("dispatch calls = %d, want 6 (3 symbols x 2 timeframes)", d.total())
	}
	for _, sym := range []string{"BTCUSDT", "ETHUSDT", "SOLUSDT"} {
		for _, tf := range []string{"1h", "4h"} {
			key := fmt.Sprintf("%s/%s", sym, tf)
			if d.calls[key] != 1 {
				t.Fatalf("pair %s dispatched %d times, want exactly 1", key, d.calls[key])
			}
		}
	}
}

func TestRunOncePairFailureIsIsolated(t *testing.T) {
	d := newRecordingDispatcher()
	r := newTestRunner(t, runnerOpts{
		candles:    &stubCandles{failFor: map[string]bool{"ETHUSDT": true}},
		dispatcher: d,
	})

	if err := r.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if d.total() != 4 {
		t.Fatalf("dispatch calls = %d, want 4 (failing symbol excluded)", d.total())
	}
	report := r.LastReport()
	if report == nil {
		t.Fatal("expected a report")
	}
	if report.Failed != 2 {
		t.Fatalf("failed pairs = %d, want 2", report.Failed)
	}
	if report.Dispatched != 4 {
		t.Fatalf("dispatched = %d, want 4", report.Dispatched)
	}
}

func TestRunOncePanicIsContained(t *testing.T) {
	d := newRecordingDispatcher()
	d.panicFor = "BTCUSDT/1h"
	r := newTestRunner(t, runnerOpts{dispatcher: d})

	if err := r.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if d.total() != 5 {
		t.Fatalf("dispatch calls = %d, want 5", d.total())
	}
	report := r.LastReport()
	if report.Failed != 1 {
		t.Fatalf("failed = %d, want 1", report.Failed)
	}
}

func TestRunOnceInsufficientCandlesSkips(t *testing.T) {
	d := newRecordingDispatcher()
	r := newTestRunner(t, runnerOpts{
		candles:    &stubCandles{perSymbol: map[string]int{"SOLUSDT": 40}},
		dispatcher: d,
	})

	if err := r.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if d.total() != 4 {
		t.Fatalf("dispatch calls = %d, want 4", d.total())
	}
	if r.LastReport().Skipped != 2 {
		t.Fatalf("skipped = %d, want 2", r.LastReport().Skipped)
	}
}

func TestRunOnceNoOpGate(t *testing.T) {
	d := newRecordingDispatcher()
	r := newTestRunner(t, runnerOpts{dispatcher: d, snap: neutral()})

	if err := r.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if d.total() != 0 {
		t.Fatalf("no local bias and no aux sources must not dispatch, got %d calls", d.total())
	}
	if r.LastReport().Skipped != 6 {
		t.Fatalf("skipped = %d, want 6", r.LastReport().Skipped)
	}
}

func TestRunOnceAuxAloneTriggersDispatch(t *testing.T) {
	d := newRecordingDispatcher()
	conf := 0.9
	r := newTestRunner(t, runnerOpts{
		dispatcher: d,
		snap:       neutral(),
		analyzer: &stubAnalyzer{row: &models.RawSignalSource{
			Source: models.SourceAIAnalyzer, Symbol: "BTCUSDT", Timeframe: "1h",
			Side: models.RawBuy, Confidence: &conf, GeneratedAt: time.Now(),
		}},
	})

	if err := r.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	// Analyzer stub answers for every pair, so every pair dispatches.
	if d.total() != 6 {
		t.Fatalf("dispatch calls = %d, want 6", d.total())
	}
}

func TestRunOnceAuxFailureIsDiscarded(t *testing.T) {
	d := newRecordingDispatcher()
	r := newTestRunner(t, runnerOpts{
		dispatcher: d,
		analyzer:   &stubAnalyzer{err: errors.New("analyzer down")},
		webhooks:   &stubWebhooks{err: errors.New("redis down")},
	})

	if err := r.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	// The local proposal still dispatches without auxiliary sources.
	if d.total() != 6 {
		t.Fatalf("dispatch calls = %d, want 6", d.total())
	}
}

func TestResolveSymbolsFallsBackToConfigured(t *testing.T) {
	d := newRecordingDispatcher()
	r := newTestRunner(t, runnerOpts{dispatcher: d, universe: &stubUniverse{}})

	got := r.resolveSymbols(context.Background())
	if len(got) != 3 {
		t.Fatalf("empty discovery should fall back to configured list, got %v", got)
	}

	r2 := newTestRunner(t, runnerOpts{
		dispatcher: d,
		universe:   &stubUniverse{symbols: []string{"DOGEUSDT"}},
	})
	got = r2.resolveSymbols(context.Background())
	if len(got) != 1 || got[0] != "DOGEUSDT" {
		t.Fatalf("discovery result should win, got %v", got)
	}
}

func TestWatchStopsOnContextCancel(t *testing.T) {
	d := newRecordingDispatcher()
	r := newTestRunner(t, runnerOpts{dispatcher: d})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Watch(ctx, time.Hour)
		close(done)
	}()

	// Let the first cycle run, then cancel.
	deadline := time.After(2 * time.Second)
	for r.LastReport() == nil {
		select {
		case <-deadline:
			t.Fatal("first cycle never completed")
		case <-time.After(10 * time.Millisecond):
		}
	}
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not stop after cancel")
	}
	if d.total() != 6 {
		t.Fatalf("exactly one cycle should have run, got %d dispatches", d.total())
	}
}
