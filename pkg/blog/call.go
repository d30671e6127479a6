package blog

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/rhuss/scribe/pkg/observability"
)

// call runs fn against an upstream target under the service's deadline and
// records a span and metrics for it. The deadline is derived from ctx, so a
// client disconnect cancels the call.
func call[T any](ctx context.Context, s *Service, target, op string, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	ctx, span := s.tracer.Start(ctx, target+"."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("scribe.upstream.target", target),
			attribute.String("scribe.upstream.operation", op),
		),
	)
	defer span.End()

	start := time.Now()
	v, err := fn(ctx)
	result := outcome(err)

	observability.ObserveUpstream(target, op, result, time.Since(start))
	span.SetAttributes(attribute.String("scribe.upstream.outcome", result))
	if err != nil && result != "rejected" && result != "not_found" {
		span.RecordError(err)
		span.SetStatus(codes.Error, result)
	}
	return v, err
}
