package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	cycleDuration prometheus.Histogram
	dispatched    *prometheus.CounterVec
	skips         *prometheus.CounterVec
	errorsTotal   *prometheus.CounterVec
	latency       *prometheus.HistogramVec
	confidence    *prometheus.GaugeVec
	lastPrice     *prometheus.GaugeVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		cycleDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "signalforge_cycle_duration_seconds",
				Help:    "Duration of a full production cycle in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		dispatched: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signalforge_signals_dispatched_total",
				Help: "Total number of fused signals dispatched downstream",
			},
			[]string{"symbol", "timeframe"},
		),
		skips: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signalforge_pair_skips_total",
				Help: "Pairs skipped during a cycle, by reason",
			},
			[]string{"reason"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signalforge_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "signalforge_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		confidence: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "signalforge_signal_confidence",
				Help: "Confidence of the most recent fused signal per pair",
			},
			[]string{"symbol", "timeframe"},
		),
		lastPrice: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "signalforge_last_price",
				Help: "Last observed price for a symbol",
			},
			[]string{"symbol"},
		),
	}
}

// RecordCycle records the duration of a completed cycle.
func (r *Recorder) RecordCycle(seconds float64) {
	r.cycleDuration.Observe(seconds)
}

// RecordDispatch records a fused signal handed to downstream consumers.
func (r *Recorder) RecordDispatch(symbol, timeframe string) {
	r.dispatched.WithLabelValues(symbol, timeframe).Inc()
}

// RecordSkip records a pair skipped during a cycle.
func (r *Recorder) RecordSkip(reason string) {
	r.skips.WithLabelValues(reason).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// RecordConfidence records the confidence of the latest fused signal.
func (r *Recorder) RecordConfidence(symbol, timeframe string, confidence float64) {
	r.confidence.WithLabelValues(symbol, timeframe).Set(confidence)
}

// RecordLastPrice records the last price for a symbol.
func (r *Recorder) RecordLastPrice(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}
