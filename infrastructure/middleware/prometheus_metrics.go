// Package middleware provides observability adapters for the ensemble
// pipeline.
package middleware

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mizanlegal/mizan/internal/ports"
)

// PrometheusMetrics implements ports.MetricsCollector on top of a
// Prometheus registry.
type PrometheusMetrics struct {
	latency  *prometheus.HistogramVec
	counters *prometheus.CounterVec
	gauges   *prometheus.GaugeVec
}

var _ ports.MetricsCollector = (*PrometheusMetrics)(nil)

// NewPrometheusMetrics registers the ensemble metric families on the
// given registerer. Pass prometheus.DefaultRegisterer for the usual
// process-wide registry, or a fresh registry in tests.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	pm := &PrometheusMetrics{
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mizan_operation_duration_seconds",
				Help:    "Duration of pipeline operations and provider calls.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation", "model", "status"},
		),
		counters: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mizan_events_total",
				Help: "Counts of pipeline events such as calls, failures, and tokens.",
			},
			[]string{"metric", "model", "status", "token_type"},
		),
		gauges: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "mizan_state",
				Help: "Point-in-time pipeline values such as consensus score and excerpt overlap.",
			},
			[]string{"metric"},
		),
	}
	reg.MustRegister(pm.latency, pm.counters, pm.gauges)
	return pm
}

// RecordLatency implements ports.MetricsCollector.
func (pm *PrometheusMetrics) RecordLatency(operation string, duration time.Duration, labels map[string]string) {
	pm.latency.WithLabelValues(operation, labelOr(labels, "model"), labelOr(labels, "status")).
		Observe(duration.Seconds())
}

// RecordCounter implements ports.MetricsCollector.
func (pm *PrometheusMetrics) RecordCounter(metric string, value float64, labels map[string]string) {
	pm.counters.WithLabelValues(metric, labelOr(labels, "model"), labelOr(labels, "status"), labelOr(labels, "token_type")).
		Add(value)
}

// RecordGauge implements ports.MetricsCollector.
func (pm *PrometheusMetrics) RecordGauge(metric string, value float64, labels map[string]string) {
	pm.gauges.WithLabelValues(metric).Set(value)
}

func labelOr(labels map[string]string, key string) string {
	if v, ok := labels[key]; ok {
		return v
	}
	return ""
}
