package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"SignalForge/internal/domain/models"
	domrepo "SignalForge/internal/domain/repository"
	"SignalForge/internal/settings"
	"SignalForge/internal/strategy"
	applogger "SignalForge/pkg/logger"
)

// CycleConfig bounds one production cycle.
type CycleConfig struct {
	UserID       string
	Symbols      []string
	Timeframes   []domrepo.Timeframe
	CandleLimit  int
	MinCandles   int
	WebhookLimit int
	AuxTimeout   time.Duration
}

func (c *CycleConfig) applyDefaults() {
	if c.CandleLimit <= 0 {
		c.CandleLimit = 200
	}
	if c.MinCandles <= 0 {
		c.MinCandles = 50
	}
	if c.WebhookLimit <= 0 {
		c.WebhookLimit = 3
	}
	if c.AuxTimeout <= 0 {
		c.AuxTimeout = 5 * time.Second
	}
}

// PairOutcome records what happened to one (symbol, timeframe) pair.
type PairOutcome struct {
	Symbol     string `json:"symbol"`
	Timeframe  string `json:"timeframe"`
	Outcome    string `json:"outcome"` // dispatched | skipped | failed
	Reason     string `json:"reason,omitempty"`
	Confidence int    `json:"confidence,omitempty"`
}

// CycleReport is the last cycle's summary, served by the ops API.
type CycleReport struct {
	StartedAt  time.Time     `json:"startedAt"`
	Duration   time.Duration `json:"duration"`
	Symbols    []string      `json:"symbols"`
	Dispatched int           `json:"dispatched"`
	Skipped    int           `json:"skipped"`
	Failed     int           `json:"failed"`
	Pairs      []PairOutcome `json:"pairs"`
}

// CycleRunner drives the signal production loop: resolve settings per
// timeframe, iterate symbols sequentially, generate a local proposal, collect
// auxiliary sources concurrently, and dispatch at most once per pair per
// cycle. A single pair's failure never aborts the cycle.
type CycleRunner struct {
	cfg        CycleConfig
	resolver   *settings.Resolver
	store      domrepo.SettingsStore
	candles    domrepo.CandleProvider
	analyzer   domrepo.AnalyzerSource
	webhooks   domrepo.WebhookSource
	universe   domrepo.SymbolUniverse
	generator  *strategy.Generator
	dispatcher domrepo.Dispatcher
	metrics    domrepo.Metrics
	l          *applogger.Logger

	mu   sync.RWMutex
	last *CycleReport
}

type CycleRunnerDeps struct {
	Resolver   *settings.Resolver
	Store      domrepo.SettingsStore
	Candles    domrepo.CandleProvider
	Analyzer   domrepo.AnalyzerSource
	Webhooks   domrepo.WebhookSource
	Universe   domrepo.SymbolUniverse
	Generator  *strategy.Generator
	Dispatcher domrepo.Dispatcher
	Metrics    domrepo.Metrics
}

func NewCycleRunner(cfg CycleConfig, deps CycleRunnerDeps, l *applogger.Logger) *CycleRunner {
	cfg.applyDefaults()
	return &CycleRunner{
		cfg:        cfg,
		resolver:   deps.Resolver,
		store:      deps.Store,
		candles:    deps.Candles,
		analyzer:   deps.Analyzer,
		webhooks:   deps.Webhooks,
		universe:   deps.Universe,
		generator:  deps.Generator,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		l:          l,
	}
}

// LastReport returns the most recent cycle summary, or nil before the first
// cycle completes.
func (r *CycleRunner) LastReport() *CycleReport {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.last
}

// Watch runs cycles forever on a fixed delay: the next cycle is scheduled
// only after the current one finishes, so slow cycles push out but never
// overlap the next. Stopping is the caller's concern via ctx.
func (r *CycleRunner) Watch(ctx context.Context, interval time.Duration) {
	for {
		if err := r.RunOnce(ctx); err != nil {
			if r.l != nil {
				r.l.Error("cycle failed", applogger.Error(err))
			}
		}
		select {
		case <-ctx.Done():
			if r.l != nil {
				r.l.Info("watch mode stopped")
			}
			return
		case <-time.After(interval):
		}
	}
}

// RunOnce executes a single production cycle. The returned error covers only
// cycle-level faults (e.g. settings load); per-pair failures are absorbed
// into the report.
func (r *CycleRunner) RunOnce(ctx context.Context) error {
	start := time.Now()
	report := &CycleReport{StartedAt: start}

	symbols := r.resolveSymbols(ctx)
	report.Symbols = symbols

	var stored *models.StoredAISettings
	if r.store != nil {
		var err error
		stored, err = r.store.Load(ctx, r.cfg.UserID)
		if err != nil {
			r.metrics.RecordError("settings_load")
			return fmt.Errorf("load settings for %q: %w", r.cfg.UserID, err)
		}
	}

	for _, tf := range r.cfg.Timeframes {
		resolved, err := r.resolver.Resolve(stored, tf)
		if err != nil {
			r.metrics.RecordError("settings_resolve")
			if r.l != nil {
				r.l.Error("settings resolution failed, skipping timeframe",
					applogger.String("tf", string(tf)),
					applogger.Error(err),
				)
			}
			continue
		}
		for _, symbol := range symbols {
			outcome := r.processPair(ctx, symbol, tf, resolved)
			report.Pairs = append(report.Pairs, outcome)
			switch outcome.Outcome {
			case "dispatched":
				report.Dispatched++
			case "failed":
				report.Failed++
			default:
				report.Skipped++
			}
		}
	}

	report.Duration = time.Since(start)
	r.metrics.RecordCycle(report.Duration.Seconds())
	if r.l != nil {
		r.l.Info("cycle complete",
			applogger.Int("pairs", len(report.Pairs)),
			applogger.Int("dispatched", report.Dispatched),
			applogger.Int("skipped", report.Skipped),
			applogger.Int("failed", report.Failed),
			applogger.Duration("duration_ms", report.Duration),
		)
	}

	r.mu.Lock()
	r.last = report
	r.mu.Unlock()
	return nil
}

func (r *CycleRunner) resolveSymbols(ctx context.Context) []string {
	if r.universe == nil {
		return r.cfg.Symbols
	}
	active, err := r.universe.ActiveSymbols(ctx)
	if err != nil {
		if r.l != nil {
			r.l.Warn("symbol discovery failed, using configured list", applogger.Error(err))
		}
		return r.cfg.Symbols
	}
	if len(active) == 0 {
		return r.cfg.Symbols
	}
	return active
}

// processPair handles one (symbol, timeframe) pair. Panics are contained
// here so a single pair can never take down the cycle.
func (r *CycleRunner) processPair(ctx context.Context, symbol string, tf domrepo.Timeframe, resolved *models.UserAISettings) (outcome PairOutcome) {
	outcome = PairOutcome{Symbol: symbol, Timeframe: string(tf)}
	defer func() {
		if rec := recover(); rec != nil {
			r.metrics.RecordError("pair_panic")
			if r.l != nil {
				r.l.Error("pair processing panicked",
					applogger.String("symbol", symbol),
					applogger.String("tf", string(tf)),
					applogger.Any("panic", rec),
				)
			}
			outcome.Outcome = "failed"
			outcome.Reason = fmt.Sprintf("panic: %v", rec)
		}
	}()

	fetchStart := time.Now()
	candles, err := r.candles.GetRecent(ctx, symbol, tf, r.cfg.CandleLimit)
	r.metrics.RecordLatency("candle_fetch", time.Since(fetchStart).Seconds())
	if err != nil {
		r.metrics.RecordError("candle_fetch")
		if r.l != nil {
			r.l.Error("candle fetch failed",
				applogger.String("symbol", symbol),
				applogger.String("tf", string(tf)),
				applogger.Error(err),
			)
		}
		outcome.Outcome = "failed"
		outcome.Reason = "candle fetch"
		return outcome
	}
	if len(candles) < r.cfg.MinCandles {
		r.metrics.RecordSkip("insufficient_candles")
		outcome.Outcome = "skipped"
		outcome.Reason = "insufficient candles"
		return outcome
	}

	price := candles[len(candles)-1].Close
	r.metrics.RecordLastPrice(symbol, price)

	local, err := r.generator.Generate(ctx, strategy.Request{
		Symbol:    symbol,
		Timeframe: string(tf),
		Price:     price,
		Candles:   candles,
		Settings:  resolved,
	})
	if err != nil {
		r.metrics.RecordError("generate")
		if r.l != nil {
			r.l.Error("signal generation failed",
				applogger.String("symbol", symbol),
				applogger.String("tf", string(tf)),
				applogger.Error(err),
			)
		}
		outcome.Outcome = "failed"
		outcome.Reason = "generation"
		return outcome
	}

	aux := r.collectAux(ctx, symbol, tf)

	if local == nil && len(aux) == 0 {
		r.metrics.RecordSkip("no_signal")
		outcome.Outcome = "skipped"
		outcome.Reason = "no signal"
		return outcome
	}

	if err := r.dispatcher.FuseAndDispatch(ctx, local, aux, price, resolved); err != nil {
		r.metrics.RecordError("dispatch")
		if r.l != nil {
			r.l.Error("dispatch failed",
				applogger.String("symbol", symbol),
				applogger.String("tf", string(tf)),
				applogger.Error(err),
			)
		}
		outcome.Outcome = "failed"
		outcome.Reason = "dispatch"
		return outcome
	}

	r.metrics.RecordDispatch(symbol, string(tf))
	outcome.Outcome = "dispatched"
	if local != nil {
		outcome.Confidence = local.Confidence
		r.metrics.RecordConfidence(symbol, string(tf), float64(local.Confidence))
	}
	return outcome
}

// collectAux fires the auxiliary-source lookups concurrently and awaits them
// all. A source's failure discards its contribution, never the pair.
func (r *CycleRunner) collectAux(ctx context.Context, symbol string, tf domrepo.Timeframe) []models.RawSignalSource {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.AuxTimeout)
	defer cancel()

	type item struct {
		name string
		rows []models.RawSignalSource
		err  error
	}
	ch := make(chan item, 2)
	var wg sync.WaitGroup

	if r.analyzer != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			row, err := r.analyzer.Latest(ctx, symbol, tf)
			var rows []models.RawSignalSource
			if row != nil {
				rows = []models.RawSignalSource{*row}
			}
			ch <- item{"analyzer", rows, err}
		}()
	}
	if r.webhooks != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rows, err := r.webhooks.Recent(ctx, symbol, tf, r.cfg.WebhookLimit)
			ch <- item{"webhook", rows, err}
		}()
	}

	go func() { wg.Wait(); close(ch) }()

	var aux []models.RawSignalSource
	for it := range ch {
		if it.err != nil {
			r.metrics.RecordError("aux_" + it.name)
			if r.l != nil {
				r.l.Warn("auxiliary source fetch failed",
					applogger.String("source", it.name),
					applogger.String("symbol", symbol),
					applogger.Error(it.err),
				)
			}
			continue
		}
		aux = append(aux, it.rows...)
	}
	return aux
}
