package manager

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xraph/taskpool"
	"github.com/xraph/taskpool/codec"
	"github.com/xraph/taskpool/ext"
	"github.com/xraph/taskpool/job"
	"github.com/xraph/taskpool/store"
	"github.com/xraph/taskpool/task"
)

// Manager owns the job and task lifecycle and the reservation protocol.
// It holds no state besides its collaborators and is safe for concurrent
// use; all coordination between workers happens in the store.
type Manager struct {
	store      store.Store
	codec      codec.Codec
	extensions *ext.Registry
	logger     *slog.Logger
}

// New creates a Manager on top of s.
func New(s store.Store, opts ...Option) *Manager {
	m := &Manager{
		store:  s,
		codec:  codec.JSON{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.extensions == nil {
		m.extensions = ext.NewRegistry(m.logger)
	}
	return m
}

// Store returns the underlying store.
func (m *Manager) Store() store.Store { return m.store }

// Codec returns the payload codec.
func (m *Manager) Codec() codec.Codec { return m.codec }

// AddJob encodes data and stores it as a new job.
func (m *Manager) AddJob(ctx context.Context, data any) (int64, error) {
	p, err := codec.Encode(m.codec, data)
	if err != nil {
		return 0, fmt.Errorf("add job: %w", err)
	}

	j := &job.Job{Data: p.Bytes()}
	jobID, err := m.store.InsertJob(ctx, j)
	if err != nil {
		return 0, fmt.Errorf("add job: %w", err)
	}
	j.ID = jobID

	m.logger.Debug("job added", slog.Int64("job_id", jobID))
	m.extensions.EmitJobAdded(ctx, j)
	return jobID, nil
}

// AddTask encodes data and stores it as a pending task of jobID. Stores
// reject tasks of unknown jobs with taskpool.ErrJobNotFound.
func (m *Manager) AddTask(ctx context.Context, jobID int64, data any) (int64, error) {
	p, err := codec.Encode(m.codec, data)
	if err != nil {
		return 0, fmt.Errorf("add task: %w", err)
	}

	t := &task.Task{JobID: jobID, Data: p.Bytes(), Status: task.StatusPending}
	taskID, err := m.store.InsertTask(ctx, t)
	if err != nil {
		return 0, fmt.Errorf("add task to job %d: %w", jobID, err)
	}
	t.ID = taskID

	m.extensions.EmitTaskAdded(ctx, t)
	return taskID, nil
}

// GetJob returns the payload of a job. It returns taskpool.ErrJobNotFound
// when the job does not exist.
func (m *Manager) GetJob(ctx context.Context, jobID int64) (codec.Payload, error) {
	j, err := m.store.GetJob(ctx, jobID)
	if err != nil {
		return codec.Payload{}, fmt.Errorf("get job %d: %w", jobID, err)
	}
	return codec.NewPayload(j.Data, m.codec), nil
}

// DecodeJob returns the payload of a job decoded into T.
func DecodeJob[T any](ctx context.Context, m *Manager, jobID int64) (T, error) {
	var v T
	p, err := m.GetJob(ctx, jobID)
	if err != nil {
		return v, err
	}
	return codec.As[T](p)
}

// CollectTasks reserves up to count pending, unreserved tasks of jobID and
// returns them ordered by ID.
//
// A fresh signature is stamped onto the rows in one atomic store update and
// the rows carrying it are read back. Concurrent calls therefore return
// disjoint sets. Tasks stay reserved until closed.
func (m *Manager) CollectTasks(ctx context.Context, jobID int64, count taskpool.Count) ([]*task.Task, error) {
	if count.IsZero() {
		return []*task.Task{}, nil
	}

	sig, err := task.NewSignature()
	if err != nil {
		return nil, err
	}

	reserved, err := m.store.ReserveTasks(ctx, jobID, sig, count)
	if err != nil {
		return nil, fmt.Errorf("collect tasks of job %d: reserve: %w", jobID, err)
	}

	tasks, err := m.store.TasksBySignature(ctx, jobID, sig)
	if err != nil {
		return nil, fmt.Errorf("collect tasks of job %d: read back: %w", jobID, err)
	}

	if int64(len(tasks)) != reserved {
		m.logger.Warn("reserved and collected task counts differ",
			slog.Int64("job_id", jobID),
			slog.String("signature", sig.String()),
			slog.Int64("reserved", reserved),
			slog.Int("collected", len(tasks)),
		)
	}

	m.logger.Debug("tasks collected",
		slog.Int64("job_id", jobID),
		slog.String("count", count.String()),
		slog.Int("collected", len(tasks)),
	)
	m.extensions.EmitTasksCollected(ctx, jobID, sig, tasks)
	return tasks, nil
}

// Payload wraps the data of a collected task with the manager's codec.
func (m *Manager) Payload(t *task.Task) codec.Payload {
	return codec.NewPayload(t.Data, m.codec)
}

// CloseTask sets the final status of a task. The zero status closes the
// task as done. The reservation is not checked: any caller may close any
// task, and closing twice overwrites the first status.
func (m *Manager) CloseTask(ctx context.Context, taskID int64, status task.Status) error {
	return m.close(ctx, taskID, status, "")
}

// CloseReserved closes a task previously returned by CollectTasks. It fails
// with taskpool.ErrTaskNotReserved when the task no longer carries the
// signature it was collected with.
func (m *Manager) CloseReserved(ctx context.Context, t *task.Task, status task.Status) error {
	if t.Signature.IsZero() {
		return fmt.Errorf("close task %d: %w", t.ID, taskpool.ErrTaskNotReserved)
	}
	return m.close(ctx, t.ID, status, t.Signature)
}

func (m *Manager) close(ctx context.Context, taskID int64, status task.Status, match task.Signature) error {
	final, err := status.Closing()
	if err != nil {
		return fmt.Errorf("close task %d: %w", taskID, err)
	}
	if err := m.store.CloseTask(ctx, taskID, final, match); err != nil {
		return fmt.Errorf("close task %d: %w", taskID, err)
	}
	m.extensions.EmitTaskClosed(ctx, taskID, final)
	return nil
}

// ViewJobs returns all jobs that are not soft-deleted, ordered by ID.
func (m *Manager) ViewJobs(ctx context.Context) ([]*job.Job, error) {
	jobs, err := m.store.ListJobs(ctx)
	if err != nil {
		return nil, fmt.Errorf("view jobs: %w", err)
	}
	return jobs, nil
}

// Stats counts the tasks of a job by state.
func (m *Manager) Stats(ctx context.Context, jobID int64) (task.Stats, error) {
	if _, err := m.store.GetJob(ctx, jobID); err != nil {
		return task.Stats{}, fmt.Errorf("stats of job %d: %w", jobID, err)
	}
	st, err := m.store.TaskStats(ctx, jobID)
	if err != nil {
		return task.Stats{}, fmt.Errorf("stats of job %d: %w", jobID, err)
	}
	return st, nil
}
