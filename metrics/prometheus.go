// Package metrics provides a Prometheus-backed implementation of
// core/middleware.MetricsCollector, grounded on the promauto pattern
// used throughout Jeeves-Cluster-Organization's coreengine/observability
// package.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusCollector records dispatcher processing outcomes as
// Prometheus counters and histograms, one set of series per route.
type PrometheusCollector struct {
	messagesTotal   *prometheus.CounterVec
	durationSeconds *prometheus.HistogramVec
}

// NewPrometheusCollector registers the collector's series with reg. A
// nil reg registers against prometheus.DefaultRegisterer, matching
// promauto's default behaviour.
func NewPrometheusCollector(reg prometheus.Registerer) *PrometheusCollector {
	factory := promauto.With(reg)
	return &PrometheusCollector{
		messagesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mofoxbus_messages_processed_total",
				Help: "Total number of envelopes processed by the dispatcher",
			},
			[]string{"route", "status"},
		),
		durationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mofoxbus_message_duration_seconds",
				Help:    "Envelope processing duration in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
			},
			[]string{"route"},
		),
	}
}

// MessageProcessed implements core/middleware.MetricsCollector.
func (c *PrometheusCollector) MessageProcessed(route string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	c.messagesTotal.WithLabelValues(route, status).Inc()
	c.durationSeconds.WithLabelValues(route).Observe(duration.Seconds())
}
