package observability_test

import (
	"context"
	"log/slog"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/xraph/taskpool"
	"github.com/xraph/taskpool/ext"
	"github.com/xraph/taskpool/id"
	"github.com/xraph/taskpool/manager"
	"github.com/xraph/taskpool/observability"
	"github.com/xraph/taskpool/store/memory"
	"github.com/xraph/taskpool/task"
)

func newTestExtension() (*observability.MetricsExtension, *sdkmetric.ManualReader) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	return observability.NewMetricsExtensionWithMeter(mp.Meter("test")), reader
}

// sums returns the total of every Int64 sum by instrument name, and per
// status attribute for taskpool.tasks.closed.
func sums(t *testing.T, reader *sdkmetric.ManualReader) (map[string]int64, map[string]int64) {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}
	totals := make(map[string]int64)
	closed := make(map[string]int64)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				totals[m.Name] += dp.Value
				if m.Name == "taskpool.tasks.closed" {
					v, _ := dp.Attributes.Value("status")
					closed[v.AsString()] += dp.Value
				}
			}
		}
	}
	return totals, closed
}

func TestMetricsExtension_Name(t *testing.T) {
	e, _ := newTestExtension()
	if e.Name() != "observability-metrics" {
		t.Errorf("expected name %q, got %q", "observability-metrics", e.Name())
	}
}

func TestMetricsExtension_CountsPoolLifecycle(t *testing.T) {
	e, reader := newTestExtension()
	reg := ext.NewRegistry(slog.Default())
	reg.Register(e)

	ctx := context.Background()
	m := manager.New(memory.New(), manager.WithExtensions(reg))
	jobID, err := m.AddJob(ctx, "job")
	if err != nil {
		t.Fatalf("add job: %v", err)
	}
	for i := 0; i < 4; i++ {
		if _, err := m.AddTask(ctx, jobID, i); err != nil {
			t.Fatalf("add task: %v", err)
		}
	}
	tasks, err := m.CollectTasks(ctx, jobID, taskpool.Limit(3))
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	_ = m.CloseReserved(ctx, tasks[0], task.StatusDone)
	_ = m.CloseReserved(ctx, tasks[1], task.StatusFailed)
	_ = m.CloseReserved(ctx, tasks[2], "")

	totals, closed := sums(t, reader)
	want := map[string]int64{
		"taskpool.jobs.added":      1,
		"taskpool.tasks.added":     4,
		"taskpool.tasks.collected": 3,
		"taskpool.tasks.closed":    3,
	}
	for name, v := range want {
		if totals[name] != v {
			t.Errorf("%s = %d, want %d", name, totals[name], v)
		}
	}
	if closed["done"] != 2 || closed["failed"] != 1 {
		t.Errorf("closed by status = %v", closed)
	}
}

func TestMetricsExtension_DispatchHooks(t *testing.T) {
	e, reader := newTestExtension()
	ctx := context.Background()

	dispatchID := id.NewDispatchID()

	if err := e.OnWorkerLaunched(ctx, dispatchID, 1, taskpool.Limit(2), "123"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := e.OnScheduleFired(ctx, "nightly", dispatchID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	totals, _ := sums(t, reader)
	if totals["taskpool.workers.launched"] != 1 || totals["taskpool.schedules.fired"] != 1 {
		t.Errorf("totals = %v", totals)
	}
}
