package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/xraph/taskpool"
	"github.com/xraph/taskpool/ext"
	"github.com/xraph/taskpool/id"
	"github.com/xraph/taskpool/job"
	"github.com/xraph/taskpool/task"
)

// Compile-time interface checks.
var (
	_ ext.Extension      = (*MetricsExtension)(nil)
	_ ext.JobAdded       = (*MetricsExtension)(nil)
	_ ext.TaskAdded      = (*MetricsExtension)(nil)
	_ ext.TasksCollected = (*MetricsExtension)(nil)
	_ ext.TaskClosed     = (*MetricsExtension)(nil)
	_ ext.WorkerLaunched = (*MetricsExtension)(nil)
	_ ext.ScheduleFired  = (*MetricsExtension)(nil)
)

const meterName = "github.com/xraph/taskpool/observability"

// MetricsExtension records pool-wide lifecycle counters on an OTel meter.
// Register it with an ext.Registry shared by the manager, broker and
// scheduler.
type MetricsExtension struct {
	JobsAdded       metric.Int64Counter
	TasksAdded      metric.Int64Counter
	TasksCollected  metric.Int64Counter
	TasksClosed     metric.Int64Counter
	WorkersLaunched metric.Int64Counter
	SchedulesFired  metric.Int64Counter
}

// NewMetricsExtension creates a MetricsExtension on the global
// MeterProvider.
func NewMetricsExtension() *MetricsExtension {
	return NewMetricsExtensionWithMeter(otel.Meter(meterName))
}

// NewMetricsExtensionWithMeter creates a MetricsExtension on meter. On
// instrument errors the OTel API returns noop instruments.
func NewMetricsExtensionWithMeter(meter metric.Meter) *MetricsExtension {
	counter := func(name, desc string) metric.Int64Counter {
		c, _ := meter.Int64Counter(name, metric.WithDescription(desc))
		return c
	}
	return &MetricsExtension{
		JobsAdded:       counter("taskpool.jobs.added", "Jobs stored"),
		TasksAdded:      counter("taskpool.tasks.added", "Tasks stored"),
		TasksCollected:  counter("taskpool.tasks.collected", "Tasks reserved by collections"),
		TasksClosed:     counter("taskpool.tasks.closed", "Tasks closed, by status"),
		WorkersLaunched: counter("taskpool.workers.launched", "Background workers started"),
		SchedulesFired:  counter("taskpool.schedules.fired", "Periodic dispatches fired"),
	}
}

// Name implements ext.Extension.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// ── Pool hooks ──────────────────────────────────────

// OnJobAdded implements ext.JobAdded.
func (m *MetricsExtension) OnJobAdded(ctx context.Context, _ *job.Job) error {
	m.JobsAdded.Add(ctx, 1)
	return nil
}

// OnTaskAdded implements ext.TaskAdded.
func (m *MetricsExtension) OnTaskAdded(ctx context.Context, _ *task.Task) error {
	m.TasksAdded.Add(ctx, 1)
	return nil
}

// OnTasksCollected implements ext.TasksCollected.
func (m *MetricsExtension) OnTasksCollected(ctx context.Context, _ int64, _ task.Signature, tasks []*task.Task) error {
	m.TasksCollected.Add(ctx, int64(len(tasks)))
	return nil
}

// OnTaskClosed implements ext.TaskClosed.
func (m *MetricsExtension) OnTaskClosed(ctx context.Context, _ int64, status task.Status) error {
	m.TasksClosed.Add(ctx, 1, metric.WithAttributes(attribute.String("status", string(status))))
	return nil
}

// ── Dispatch hooks ──────────────────────────────────

// OnWorkerLaunched implements ext.WorkerLaunched.
func (m *MetricsExtension) OnWorkerLaunched(ctx context.Context, _ id.DispatchID, _ int64, _ taskpool.Count, _ string) error {
	m.WorkersLaunched.Add(ctx, 1)
	return nil
}

// OnScheduleFired implements ext.ScheduleFired.
func (m *MetricsExtension) OnScheduleFired(ctx context.Context, entryName string, _ id.DispatchID) error {
	m.SchedulesFired.Add(ctx, 1, metric.WithAttributes(attribute.String("entry", entryName)))
	return nil
}
