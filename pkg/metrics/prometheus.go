package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	runsCompleted  *prometheus.CounterVec
	tickerFailures *prometheus.CounterVec
	errorsTotal    *prometheus.CounterVec
	bluffRate      *prometheus.GaugeVec
	feedLatency    *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		runsCompleted: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bluffscan_runs_completed_total",
				Help: "Total number of analysis runs by outcome",
			},
			[]string{"outcome"},
		),
		tickerFailures: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bluffscan_ticker_failures_total",
				Help: "Tickers excluded from runs by failure reason",
			},
			[]string{"reason"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bluffscan_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		bluffRate: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "bluffscan_bluff_rate_pct",
				Help: "Bluff rate of the most recent run by scope",
			},
			[]string{"scope"},
		),
		feedLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bluffscan_operation_duration_seconds",
				Help:    "Duration of feed and storage operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordRunCompleted records a finished analysis run.
func (r *Recorder) RecordRunCompleted(outcome string) {
	r.runsCompleted.WithLabelValues(outcome).Inc()
}

// RecordTickerFailure records a ticker excluded from a run.
func (r *Recorder) RecordTickerFailure(reason string) {
	r.tickerFailures.WithLabelValues(reason).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordBluffRate records the latest bluff rate for a scope.
func (r *Recorder) RecordBluffRate(scope string, pct float64) {
	r.bluffRate.WithLabelValues(scope).Set(pct)
}

// RecordFeedLatency records operation latency in seconds.
func (r *Recorder) RecordFeedLatency(op string, seconds float64) {
	r.feedLatency.WithLabelValues(op).Observe(seconds)
}
