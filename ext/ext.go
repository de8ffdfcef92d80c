package ext

import (
	"context"
	"time"

	"github.com/xraph/taskpool"
	"github.com/xraph/taskpool/id"
	"github.com/xraph/taskpool/job"
	"github.com/xraph/taskpool/task"
)

// Extension is the base interface all extensions must implement.
type Extension interface {
	// Name returns a unique human-readable name for the extension.
	Name() string
}

// ──────────────────────────────────────────────────
// Pool hooks
// ──────────────────────────────────────────────────

// JobAdded is called after a job is stored.
type JobAdded interface {
	OnJobAdded(ctx context.Context, j *job.Job) error
}

// TaskAdded is called after a task is stored.
type TaskAdded interface {
	OnTaskAdded(ctx context.Context, t *task.Task) error
}

// TasksCollected is called after a collection reserved and read back its
// tasks. It fires for empty collections too.
type TasksCollected interface {
	OnTasksCollected(ctx context.Context, jobID int64, sig task.Signature, tasks []*task.Task) error
}

// TaskClosed is called after a task status is written.
type TaskClosed interface {
	OnTaskClosed(ctx context.Context, taskID int64, status task.Status) error
}

// ──────────────────────────────────────────────────
// Worker hooks
// ──────────────────────────────────────────────────

// TaskPerformed is called by the worker loop after a task was performed
// and closed.
type TaskPerformed interface {
	OnTaskPerformed(ctx context.Context, t *task.Task, status task.Status, elapsed time.Duration) error
}

// ──────────────────────────────────────────────────
// Dispatch hooks
// ──────────────────────────────────────────────────

// WorkerLaunched is called after the broker started a background worker
// for one share.
type WorkerLaunched interface {
	OnWorkerLaunched(ctx context.Context, dispatchID id.DispatchID, jobID int64, share taskpool.Count, handle string) error
}

// ScheduleFired is called when a periodic dispatch entry fires.
type ScheduleFired interface {
	OnScheduleFired(ctx context.Context, entryName string, dispatchID id.DispatchID) error
}

// Shutdown is called during graceful shutdown.
type Shutdown interface {
	OnShutdown(ctx context.Context) error
}
