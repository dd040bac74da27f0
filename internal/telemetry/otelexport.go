package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/1mb-dev/resilience/internal/breaker"
)

// OTelMetrics records resilience strategy events onto a set of OpenTelemetry
// instruments, mirroring the attribute-per-event style the pack uses for its
// own resilience metrics.
type OTelMetrics struct {
	executions   metric.Int64Counter
	stateChanges metric.Int64Counter
	rejections   metric.Int64Counter
}

// NewOTelMetrics creates the counters on meter, prefixed "resilience.".
func NewOTelMetrics(meter metric.Meter) (*OTelMetrics, error) {
	executions, err := meter.Int64Counter("resilience.executions",
		metric.WithDescription("Executions through a resilience strategy, labeled by strategy and outcome."))
	if err != nil {
		return nil, err
	}
	stateChanges, err := meter.Int64Counter("resilience.circuit_breaker.state_changes",
		metric.WithDescription("Circuit breaker state transitions."))
	if err != nil {
		return nil, err
	}
	rejections, err := meter.Int64Counter("resilience.rejections",
		metric.WithDescription("Executions rejected by a resilience strategy before the inner operation ran."))
	if err != nil {
		return nil, err
	}
	return &OTelMetrics{executions: executions, stateChanges: stateChanges, rejections: rejections}, nil
}

// RecordExecution records one completed execution through strategyName.
func (m *OTelMetrics) RecordExecution(ctx context.Context, strategyName string, succeeded bool) {
	m.executions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("strategy", strategyName),
		attribute.Bool("success", succeeded),
	))
}

// RecordRejection records a rejection by strategyName, with the sentinel
// error's message as the reason label.
func (m *OTelMetrics) RecordRejection(ctx context.Context, strategyName, reason string) {
	m.rejections.Add(ctx, 1, metric.WithAttributes(
		attribute.String("strategy", strategyName),
		attribute.String("reason", reason),
	))
}

// RecordStateChange records a circuit breaker transition; pass this as a
// breaker.Config.OnStateChange callback.
func (m *OTelMetrics) RecordStateChange(ctx context.Context) func(sc breaker.StateChange) {
	return func(sc breaker.StateChange) {
		m.stateChanges.Add(ctx, 1, metric.WithAttributes(
			attribute.String("breaker", sc.Name),
			attribute.String("from", sc.From.String()),
			attribute.String("to", sc.To.String()),
		))
	}
}
