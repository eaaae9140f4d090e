package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "reviewforge"

// StartReviewCycleSpan starts a span covering one full review cycle for a
// lifecycle event, from gates through resolution.
func StartReviewCycleSpan(ctx context.Context, sessionID, stage string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "review.cycle",
		trace.WithAttributes(
			attribute.String("session.id", sessionID),
			attribute.String("review.stage", stage),
		),
	)
}

// StartReviewerCallSpan starts a span for a single reviewer backend call
// within a review round.
func StartReviewerCallSpan(ctx context.Context, reviewerID, stage string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "reviewer.call",
		trace.WithAttributes(
			attribute.String("reviewer.id", reviewerID),
			attribute.String("review.stage", stage),
		),
	)
}
