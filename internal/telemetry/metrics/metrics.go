// Package metrics exposes the engine's Prometheus instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds all Prometheus metrics for the median engine.
type Registry struct {
	CalcDuration    *prometheus.HistogramVec
	Fallbacks       *prometheus.CounterVec
	AnomalySeverity prometheus.Gauge
	FlaggedResults  prometheus.Counter
	HistorySize     prometheus.Gauge

	registry *prometheus.Registry
}

// NewRegistry creates and registers all engine metrics on a dedicated
// Prometheus registry.
func NewRegistry() *Registry {
	r := &Registry{
		CalcDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "medianengine_calc_duration_seconds",
				Help:    "Duration of median calculations in seconds",
				Buckets: []float64{0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
			},
			[]string{"strategy", "result"},
		),
		Fallbacks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "medianengine_fallbacks_total",
				Help: "Total strategy fallbacks by the strategy whose result failed validation",
			},
			[]string{"failed_strategy"},
		),
		AnomalySeverity: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "medianengine_anomaly_severity",
				Help: "Aggregated anomaly severity of the most recent calculation (0.0 to 1.0)",
			},
		),
		FlaggedResults: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "medianengine_flagged_total",
				Help: "Total results flagged for review",
			},
		),
		HistorySize: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "medianengine_history_size",
				Help: "Current number of records in the rolling history store",
			},
		),
		registry: prometheus.NewRegistry(),
	}

	r.registry.MustRegister(
		r.CalcDuration,
		r.Fallbacks,
		r.AnomalySeverity,
		r.FlaggedResults,
		r.HistorySize,
	)
	return r
}

// Prometheus returns the underlying registry for HTTP exposition.
func (r *Registry) Prometheus() *prometheus.Registry { return r.registry }

// ObserveCalculation records one calculation's duration and outcome.
func (r *Registry) ObserveCalculation(strategy, result string, seconds float64) {
	r.CalcDuration.WithLabelValues(strategy, result).Observe(seconds)
}

// IncFallback counts a result-validation failure that triggered a fallback.
func (r *Registry) IncFallback(failedStrategy string) {
	r.Fallbacks.WithLabelValues(failedStrategy).Inc()
}

// SetAnomalySeverity publishes the latest aggregated severity.
func (r *Registry) SetAnomalySeverity(severity float64) {
	r.AnomalySeverity.Set(severity)
}

// IncFlagged counts a result flagged for review.
func (r *Registry) IncFlagged() {
	r.FlaggedResults.Inc()
}

// SetHistorySize publishes the rolling store occupancy.
func (r *Registry) SetHistorySize(n int) {
	r.HistorySize.Set(float64(n))
}
