package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/xraph/taskpool"
	"github.com/xraph/taskpool/ext"
	"github.com/xraph/taskpool/id"
	"github.com/xraph/taskpool/manager"
	"github.com/xraph/taskpool/middleware"
	"github.com/xraph/taskpool/task"
)

// errPerformFailed is returned into the middleware chain when Perform
// reports false, so middleware observe the failure like any other error.
var errPerformFailed = errors.New("perform reported failure")

// Result summarizes one Runner.Execute call.
type Result struct {
	RunID     id.RunID
	JobID     int64
	Collected int
	Done      int
	Failed    int
}

// Runner collects tasks of a job and performs them with a Worker.
type Runner struct {
	manager    *manager.Manager
	worker     Worker
	mws        []middleware.Middleware
	mw         middleware.Middleware
	extensions *ext.Registry
	logger     *slog.Logger
}

// NewRunner creates a Runner performing tasks with w.
func NewRunner(m *manager.Manager, w Worker, opts ...Option) *Runner {
	r := &Runner{
		manager: m,
		worker:  w,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.extensions == nil {
		r.extensions = ext.NewRegistry(r.logger)
	}
	r.mw = middleware.Chain(r.mws...)
	return r
}

// Execute reserves up to count tasks of jobID and performs them in ID
// order. Initialize runs once before the first task, even when nothing was
// collected. Every collected task is closed done or failed; one failure
// never stops the batch.
//
// If Initialize fails the error is returned and the collected tasks stay
// reserved. Close errors are logged and returned joined after the batch.
func (r *Runner) Execute(ctx context.Context, jobID int64, count taskpool.Count) (Result, error) {
	res := Result{RunID: id.NewRunID(), JobID: jobID}
	logger := r.logger.With(
		slog.String("run_id", res.RunID.String()),
		slog.Int64("job_id", jobID),
	)

	payload, err := r.manager.GetJob(ctx, jobID)
	if err != nil {
		return res, err
	}

	tasks, err := r.manager.CollectTasks(ctx, jobID, count)
	if err != nil {
		return res, err
	}
	res.Collected = len(tasks)

	if err := r.worker.Initialize(ctx, payload); err != nil {
		logger.Error("worker initialize failed",
			slog.Int("reserved", len(tasks)),
			slog.String("error", err.Error()),
		)
		return res, fmt.Errorf("initialize job %d: %w", jobID, err)
	}

	var closeErrs []error
	for i, t := range tasks {
		if err := ctx.Err(); err != nil {
			logger.Warn("run cancelled",
				slog.Int("left_reserved", len(tasks)-i),
			)
			closeErrs = append(closeErrs, err)
			break
		}

		status, elapsed := r.perform(ctx, t, logger)
		if err := r.manager.CloseReserved(context.WithoutCancel(ctx), t, status); err != nil {
			logger.Error("failed to close task",
				slog.Int64("task_id", t.ID),
				slog.String("status", string(status)),
				slog.String("error", err.Error()),
			)
			closeErrs = append(closeErrs, err)
			continue
		}

		if status == task.StatusDone {
			res.Done++
		} else {
			res.Failed++
		}
		r.extensions.EmitTaskPerformed(ctx, t, status, elapsed)
	}

	logger.Info("run finished",
		slog.Int("collected", res.Collected),
		slog.Int("done", res.Done),
		slog.Int("failed", res.Failed),
	)
	return res, errors.Join(closeErrs...)
}

// perform runs the worker on one task through the middleware chain. A
// panic anywhere in the chain fails the task.
func (r *Runner) perform(ctx context.Context, t *task.Task, logger *slog.Logger) (status task.Status, elapsed time.Duration) {
	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			logger.Error("task panicked",
				slog.Int64("task_id", t.ID),
				slog.Any("panic", p),
				slog.String("stack", string(debug.Stack())),
			)
			status, elapsed = task.StatusFailed, time.Since(start)
		}
	}()

	terminal := func(ctx context.Context) error {
		if !r.worker.Perform(ctx, r.manager.Payload(t)) {
			return errPerformFailed
		}
		return nil
	}
	if err := r.mw(ctx, t, terminal); err != nil {
		return task.StatusFailed, time.Since(start)
	}
	return task.StatusDone, time.Since(start)
}
