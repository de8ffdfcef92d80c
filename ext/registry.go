package ext

import (
	"context"
	"log/slog"
	"time"

	"github.com/xraph/taskpool"
	"github.com/xraph/taskpool/id"
	"github.com/xraph/taskpool/job"
	"github.com/xraph/taskpool/task"
)

// Named entry types pair a hook implementation with the extension name
// captured at registration time. This avoids type-asserting back to
// Extension inside the emit methods.
type jobAddedEntry struct {
	name string
	hook JobAdded
}

type taskAddedEntry struct {
	name string
	hook TaskAdded
}

type tasksCollectedEntry struct {
	name string
	hook TasksCollected
}

type taskClosedEntry struct {
	name string
	hook TaskClosed
}

type taskPerformedEntry struct {
	name string
	hook TaskPerformed
}

type workerLaunchedEntry struct {
	name string
	hook WorkerLaunched
}

type scheduleFiredEntry struct {
	name string
	hook ScheduleFired
}

type shutdownEntry struct {
	name string
	hook Shutdown
}

// Registry holds registered extensions and dispatches lifecycle events
// to them. It type-caches extensions at registration time so emit calls
// iterate only over extensions that implement the relevant hook.
//
// Register all extensions before the registry is shared between
// goroutines; emitting is safe for concurrent use afterwards.
type Registry struct {
	extensions []Extension
	logger     *slog.Logger

	jobAdded       []jobAddedEntry
	taskAdded      []taskAddedEntry
	tasksCollected []tasksCollectedEntry
	taskClosed     []taskClosedEntry
	taskPerformed  []taskPerformedEntry
	workerLaunched []workerLaunchedEntry
	scheduleFired  []scheduleFiredEntry
	shutdown       []shutdownEntry
}

// NewRegistry creates an extension registry with the given logger.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{logger: logger}
}

// Register adds an extension and type-asserts it into all applicable
// hook caches. Extensions are notified in registration order.
func (r *Registry) Register(e Extension) {
	r.extensions = append(r.extensions, e)
	name := e.Name()

	if h, ok := e.(JobAdded); ok {
		r.jobAdded = append(r.jobAdded, jobAddedEntry{name, h})
	}
	if h, ok := e.(TaskAdded); ok {
		r.taskAdded = append(r.taskAdded, taskAddedEntry{name, h})
	}
	if h, ok := e.(TasksCollected); ok {
		r.tasksCollected = append(r.tasksCollected, tasksCollectedEntry{name, h})
	}
	if h, ok := e.(TaskClosed); ok {
		r.taskClosed = append(r.taskClosed, taskClosedEntry{name, h})
	}
	if h, ok := e.(TaskPerformed); ok {
		r.taskPerformed = append(r.taskPerformed, taskPerformedEntry{name, h})
	}
	if h, ok := e.(WorkerLaunched); ok {
		r.workerLaunched = append(r.workerLaunched, workerLaunchedEntry{name, h})
	}
	if h, ok := e.(ScheduleFired); ok {
		r.scheduleFired = append(r.scheduleFired, scheduleFiredEntry{name, h})
	}
	if h, ok := e.(Shutdown); ok {
		r.shutdown = append(r.shutdown, shutdownEntry{name, h})
	}
}

// Extensions returns all registered extensions.
func (r *Registry) Extensions() []Extension { return r.extensions }

// ──────────────────────────────────────────────────
// Pool event emitters
// ──────────────────────────────────────────────────

// EmitJobAdded notifies all extensions that implement JobAdded.
func (r *Registry) EmitJobAdded(ctx context.Context, j *job.Job) {
	for _, e := range r.jobAdded {
		if err := e.hook.OnJobAdded(ctx, j); err != nil {
			r.logHookError("OnJobAdded", e.name, err)
		}
	}
}

// EmitTaskAdded notifies all extensions that implement TaskAdded.
func (r *Registry) EmitTaskAdded(ctx context.Context, t *task.Task) {
	for _, e := range r.taskAdded {
		if err := e.hook.OnTaskAdded(ctx, t); err != nil {
			r.logHookError("OnTaskAdded", e.name, err)
		}
	}
}

// EmitTasksCollected notifies all extensions that implement TasksCollected.
func (r *Registry) EmitTasksCollected(ctx context.Context, jobID int64, sig task.Signature, tasks []*task.Task) {
	for _, e := range r.tasksCollected {
		if err := e.hook.OnTasksCollected(ctx, jobID, sig, tasks); err != nil {
			r.logHookError("OnTasksCollected", e.name, err)
		}
	}
}

// EmitTaskClosed notifies all extensions that implement TaskClosed.
func (r *Registry) EmitTaskClosed(ctx context.Context, taskID int64, status task.Status) {
	for _, e := range r.taskClosed {
		if err := e.hook.OnTaskClosed(ctx, taskID, status); err != nil {
			r.logHookError("OnTaskClosed", e.name, err)
		}
	}
}

// ──────────────────────────────────────────────────
// Worker and dispatch event emitters
// ──────────────────────────────────────────────────

// EmitTaskPerformed notifies all extensions that implement TaskPerformed.
func (r *Registry) EmitTaskPerformed(ctx context.Context, t *task.Task, status task.Status, elapsed time.Duration) {
	for _, e := range r.taskPerformed {
		if err := e.hook.OnTaskPerformed(ctx, t, status, elapsed); err != nil {
			r.logHookError("OnTaskPerformed", e.name, err)
		}
	}
}

// EmitWorkerLaunched notifies all extensions that implement WorkerLaunched.
func (r *Registry) EmitWorkerLaunched(ctx context.Context, dispatchID id.DispatchID, jobID int64, share taskpool.Count, handle string) {
	for _, e := range r.workerLaunched {
		if err := e.hook.OnWorkerLaunched(ctx, dispatchID, jobID, share, handle); err != nil {
			r.logHookError("OnWorkerLaunched", e.name, err)
		}
	}
}

// EmitScheduleFired notifies all extensions that implement ScheduleFired.
func (r *Registry) EmitScheduleFired(ctx context.Context, entryName string, dispatchID id.DispatchID) {
	for _, e := range r.scheduleFired {
		if err := e.hook.OnScheduleFired(ctx, entryName, dispatchID); err != nil {
			r.logHookError("OnScheduleFired", e.name, err)
		}
	}
}

// EmitShutdown notifies all extensions that implement Shutdown.
func (r *Registry) EmitShutdown(ctx context.Context) {
	for _, e := range r.shutdown {
		if err := e.hook.OnShutdown(ctx); err != nil {
			r.logHookError("OnShutdown", e.name, err)
		}
	}
}

// logHookError logs a warning when a lifecycle hook returns an error.
// Errors from hooks are never propagated.
func (r *Registry) logHookError(hook, extName string, err error) {
	r.logger.Warn("extension hook error",
		slog.String("hook", hook),
		slog.String("extension", extName),
		slog.String("error", err.Error()),
	)
}
