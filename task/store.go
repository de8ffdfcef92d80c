package task

import (
	"context"

	"github.com/xraph/taskpool"
)

// Store defines the persistence contract for tasks.
type Store interface {
	// InsertTask persists a new task and returns its assigned ID. The task
	// is stored with status pending and an empty signature.
	InsertTask(ctx context.Context, t *Task) (int64, error)

	// ReserveTasks stamps sig onto up to count tasks of jobID that are
	// pending and unreserved, in a single atomic operation, and returns the
	// number of tasks stamped. An unbounded count reserves all of them.
	ReserveTasks(ctx context.Context, jobID int64, sig Signature, count taskpool.Count) (int64, error)

	// TasksBySignature returns the tasks of jobID carrying sig, ordered by
	// ID.
	TasksBySignature(ctx context.Context, jobID int64, sig Signature) ([]*Task, error)

	// CloseTask sets the status of a task. When match is non-empty the
	// update only applies while the task still carries that signature and
	// taskpool.ErrTaskNotReserved is returned otherwise. With an empty
	// match a missing task yields taskpool.ErrTaskNotFound.
	CloseTask(ctx context.Context, taskID int64, status Status, match Signature) error

	// GetTask retrieves a task by ID.
	GetTask(ctx context.Context, taskID int64) (*Task, error)

	// TaskStats counts the tasks of jobID by state.
	TaskStats(ctx context.Context, jobID int64) (Stats, error)
}
