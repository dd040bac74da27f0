// Package telemetry exports resilience strategy state and events to
// Prometheus and OpenTelemetry, grounded on the teacher's own Prometheus
// collector example and the pack's OTel-instrumented resilience package.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/1mb-dev/resilience/internal/breaker"
)

// BreakerCollector implements prometheus.Collector over one or more named
// circuit breakers, exposing their current state as a gauge and their
// request counts as counters, all labeled by breaker name.
type BreakerCollector struct {
	breakers map[string]breaker.StateProvider

	state          *prometheus.Desc
	requests       *prometheus.Desc
	totalSuccesses *prometheus.Desc
	totalFailures  *prometheus.Desc
}

// NewBreakerCollector builds a collector over the given name-to-breaker map.
// Register it with a prometheus.Registry (or the default registerer) to
// expose breaker state on a /metrics endpoint.
func NewBreakerCollector(breakers map[string]breaker.StateProvider) *BreakerCollector {
	return &BreakerCollector{
		breakers: breakers,
		state: prometheus.NewDesc(
			"resilience_circuit_breaker_state",
			"Current circuit breaker state (0=closed, 1=open, 2=half-open, 3=isolated).",
			[]string{"breaker"}, nil,
		),
		requests: prometheus.NewDesc(
			"resilience_circuit_breaker_requests_total",
			"Requests observed by the circuit breaker since its last reset.",
			[]string{"breaker"}, nil,
		),
		totalSuccesses: prometheus.NewDesc(
			"resilience_circuit_breaker_successes_total",
			"Successful requests observed by the circuit breaker since its last reset.",
			[]string{"breaker"}, nil,
		),
		totalFailures: prometheus.NewDesc(
			"resilience_circuit_breaker_failures_total",
			"Failed requests observed by the circuit breaker since its last reset.",
			[]string{"breaker"}, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *BreakerCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.state
	ch <- c.requests
	ch <- c.totalSuccesses
	ch <- c.totalFailures
}

// Collect implements prometheus.Collector.
func (c *BreakerCollector) Collect(ch chan<- prometheus.Metric) {
	for name, b := range c.breakers {
		counts := b.Counts()
		ch <- prometheus.MustNewConstMetric(c.state, prometheus.GaugeValue, float64(b.State()), name)
		ch <- prometheus.MustNewConstMetric(c.requests, prometheus.CounterValue, float64(counts.Requests), name)
		ch <- prometheus.MustNewConstMetric(c.totalSuccesses, prometheus.CounterValue, float64(counts.TotalSuccesses), name)
		ch <- prometheus.MustNewConstMetric(c.totalFailures, prometheus.CounterValue, float64(counts.TotalFailures), name)
	}
}

var _ prometheus.Collector = (*BreakerCollector)(nil)
