package services

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	types "github.com/yungbote/employee-directory/internal/domain"
	"github.com/yungbote/employee-directory/internal/observability"
)

// traced wraps one service operation in a span and records its outcome.
// The returned finish must be called exactly once with the operation's error.
func traced(ctx context.Context, metrics *observability.Metrics, op string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	start := time.Now()
	ctx, span := observability.Tracer().Start(ctx, op, trace.WithAttributes(attrs...))
	return ctx, func(err error) {
		status := "ok"
		if err != nil {
			status = string(types.CodeOf(err))
			if status == "" {
				status = string(types.CodeInternal)
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, status)
		}
		metrics.ObserveStore(op, status, time.Since(start))
		span.End()
	}
}
