package ext_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/xraph/taskpool"
	"github.com/xraph/taskpool/ext"
	"github.com/xraph/taskpool/id"
	"github.com/xraph/taskpool/job"
	"github.com/xraph/taskpool/task"
)

// ──────────────────────────────────────────────────
// Test extensions
// ──────────────────────────────────────────────────

// allHooksExt implements every lifecycle hook for testing.
type allHooksExt struct {
	calls []string
}

func (e *allHooksExt) Name() string { return "all-hooks" }

func (e *allHooksExt) OnJobAdded(_ context.Context, _ *job.Job) error {
	e.calls = append(e.calls, "OnJobAdded")
	return nil
}

func (e *allHooksExt) OnTaskAdded(_ context.Context, _ *task.Task) error {
	e.calls = append(e.calls, "OnTaskAdded")
	return nil
}

func (e *allHooksExt) OnTasksCollected(_ context.Context, _ int64, _ task.Signature, _ []*task.Task) error {
	e.calls = append(e.calls, "OnTasksCollected")
	return nil
}

func (e *allHooksExt) OnTaskClosed(_ context.Context, _ int64, _ task.Status) error {
	e.calls = append(e.calls, "OnTaskClosed")
	return nil
}

func (e *allHooksExt) OnTaskPerformed(_ context.Context, _ *task.Task, _ task.Status, _ time.Duration) error {
	e.calls = append(e.calls, "OnTaskPerformed")
	return nil
}

func (e *allHooksExt) OnWorkerLaunched(_ context.Context, _ id.DispatchID, _ int64, _ taskpool.Count, _ string) error {
	e.calls = append(e.calls, "OnWorkerLaunched")
	return nil
}

func (e *allHooksExt) OnScheduleFired(_ context.Context, _ string, _ id.DispatchID) error {
	e.calls = append(e.calls, "OnScheduleFired")
	return nil
}

func (e *allHooksExt) OnShutdown(_ context.Context) error {
	e.calls = append(e.calls, "OnShutdown")
	return nil
}

// closedOnlyExt implements a single hook.
type closedOnlyExt struct {
	statuses []task.Status
}

func (e *closedOnlyExt) Name() string { return "closed-only" }

func (e *closedOnlyExt) OnTaskClosed(_ context.Context, _ int64, status task.Status) error {
	e.statuses = append(e.statuses, status)
	return nil
}

// failingExt returns an error from its hook.
type failingExt struct{}

func (failingExt) Name() string { return "failing" }

func (failingExt) OnJobAdded(_ context.Context, _ *job.Job) error {
	return errors.New("boom")
}

// ──────────────────────────────────────────────────
// Tests
// ──────────────────────────────────────────────────

func emitAll(ctx context.Context, r *ext.Registry) {
	r.EmitJobAdded(ctx, &job.Job{ID: 1})
	r.EmitTaskAdded(ctx, &task.Task{ID: 1, JobID: 1})
	r.EmitTasksCollected(ctx, 1, "sig", nil)
	r.EmitTaskClosed(ctx, 1, task.StatusDone)
	r.EmitTaskPerformed(ctx, &task.Task{ID: 1}, task.StatusDone, time.Millisecond)
	r.EmitWorkerLaunched(ctx, id.NewDispatchID(), 1, taskpool.Limit(3), "42")
	r.EmitScheduleFired(ctx, "nightly", id.NewDispatchID())
	r.EmitShutdown(ctx)
}

func TestRegistryDispatchesAllHooks(t *testing.T) {
	r := ext.NewRegistry(slog.Default())
	all := &allHooksExt{}
	r.Register(all)

	emitAll(context.Background(), r)

	want := []string{
		"OnJobAdded", "OnTaskAdded", "OnTasksCollected", "OnTaskClosed",
		"OnTaskPerformed", "OnWorkerLaunched", "OnScheduleFired", "OnShutdown",
	}
	if len(all.calls) != len(want) {
		t.Fatalf("expected %d calls, got %d: %v", len(want), len(all.calls), all.calls)
	}
	for i := range want {
		if all.calls[i] != want[i] {
			t.Errorf("call %d: got %s, want %s", i, all.calls[i], want[i])
		}
	}
}

func TestRegistryOptIn(t *testing.T) {
	r := ext.NewRegistry(slog.Default())
	closed := &closedOnlyExt{}
	r.Register(closed)

	emitAll(context.Background(), r)
	r.EmitTaskClosed(context.Background(), 2, task.StatusFailed)

	if len(closed.statuses) != 2 || closed.statuses[1] != task.StatusFailed {
		t.Fatalf("unexpected statuses: %v", closed.statuses)
	}
	if len(r.Extensions()) != 1 {
		t.Errorf("expected 1 extension, got %d", len(r.Extensions()))
	}
}

func TestRegistryHookErrorIsLogged(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	r := ext.NewRegistry(logger)
	r.Register(failingExt{})
	all := &allHooksExt{}
	r.Register(all)

	r.EmitJobAdded(context.Background(), &job.Job{ID: 7})

	if !strings.Contains(buf.String(), "extension hook error") || !strings.Contains(buf.String(), "failing") {
		t.Errorf("expected hook error log, got %q", buf.String())
	}
	if len(all.calls) != 1 {
		t.Errorf("later extensions should still be notified, got %v", all.calls)
	}
}
