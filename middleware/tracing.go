package middleware

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/xraph/taskpool/task"
)

// tracerName is the instrumentation scope name for taskpool tracing.
const tracerName = "github.com/xraph/taskpool"

// Tracing returns middleware that wraps task execution in an OpenTelemetry
// span using the global TracerProvider. Without a configured provider the
// noop tracer is used.
//
// Span attributes: taskpool.task.id, taskpool.job.id, taskpool.signature.
func Tracing() Middleware {
	return TracingWithTracer(otel.Tracer(tracerName))
}

// TracingWithTracer returns tracing middleware using the provided tracer.
func TracingWithTracer(tracer trace.Tracer) Middleware {
	return func(ctx context.Context, t *task.Task, next Handler) error {
		ctx, span := tracer.Start(ctx, "taskpool.task.perform",
			trace.WithAttributes(
				attribute.Int64("taskpool.task.id", t.ID),
				attribute.Int64("taskpool.job.id", t.JobID),
				attribute.String("taskpool.signature", t.Signature.String()),
			),
			trace.WithSpanKind(trace.SpanKindInternal),
		)
		defer span.End()

		err := next(ctx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		return err
	}
}
