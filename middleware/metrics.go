package middleware

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/xraph/taskpool/task"
)

// meterName is the instrumentation scope name for taskpool metrics.
const meterName = "github.com/xraph/taskpool"

// Metrics returns middleware that records per-task execution metrics using
// the global OTel MeterProvider.
//
// Instruments:
//   - taskpool.task.duration (Float64Histogram): execution time in seconds
//   - taskpool.task.executions (Int64Counter): total executions
//
// Both carry the attributes job_id and status ("done" or "failed").
func Metrics() Middleware {
	return MetricsWithMeter(otel.Meter(meterName))
}

// MetricsWithMeter returns metrics middleware using the provided meter.
func MetricsWithMeter(meter metric.Meter) Middleware {
	// On error the API hands back noop instruments.
	duration, _ := meter.Float64Histogram(
		"taskpool.task.duration",
		metric.WithDescription("Duration of task execution in seconds"),
		metric.WithUnit("s"),
	)
	executions, _ := meter.Int64Counter(
		"taskpool.task.executions",
		metric.WithDescription("Total number of task executions"),
		metric.WithUnit("{execution}"),
	)

	return func(ctx context.Context, t *task.Task, next Handler) error {
		start := time.Now()
		err := next(ctx)
		elapsed := time.Since(start).Seconds()

		status := task.StatusDone
		if err != nil {
			status = task.StatusFailed
		}
		attrs := metric.WithAttributes(
			attribute.Int64("job_id", t.JobID),
			attribute.String("status", string(status)),
		)
		duration.Record(ctx, elapsed, attrs)
		executions.Add(ctx, 1, attrs)
		return err
	}
}
