package otel

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "reviewforge"

// Metrics holds the review metric instruments. It implements the engine's
// metrics recorder.
type Metrics struct {
	Reviews          metric.Int64Counter
	ReviewDuration   metric.Float64Histogram
	ReviewerFailures metric.Int64Counter
	Decisions        metric.Int64Counter
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.Reviews, err = meter.Int64Counter("reviewforge.reviews",
		metric.WithDescription("Number of review rounds run"))
	if err != nil {
		return nil, err
	}

	m.ReviewDuration, err = meter.Float64Histogram("reviewforge.review.duration_seconds",
		metric.WithDescription("Review round duration in seconds"))
	if err != nil {
		return nil, err
	}

	m.ReviewerFailures, err = meter.Int64Counter("reviewforge.reviewer.failures",
		metric.WithDescription("Number of failed reviewer verdicts"))
	if err != nil {
		return nil, err
	}

	m.Decisions, err = meter.Int64Counter("reviewforge.decisions",
		metric.WithDescription("Number of decisions, by action and severity"))
	if err != nil {
		return nil, err
	}

	return m, nil
}

// RecordReview records one finished review round.
func (m *Metrics) RecordReview(ctx context.Context, stage string, duration time.Duration, failedVerdicts int) {
	attrs := metric.WithAttributes(attribute.String("stage", stage))
	m.Reviews.Add(ctx, 1, attrs)
	m.ReviewDuration.Record(ctx, duration.Seconds(), attrs)
	if failedVerdicts > 0 {
		m.ReviewerFailures.Add(ctx, int64(failedVerdicts), attrs)
	}
}

// RecordDecision records one emitted decision.
func (m *Metrics) RecordDecision(ctx context.Context, action, severity string) {
	m.Decisions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("action", action),
		attribute.String("severity", severity),
	))
}
