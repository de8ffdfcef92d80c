package worker

import (
	"context"

	"github.com/xraph/taskpool/codec"
)

// Worker implements the domain logic for the tasks of a job.
type Worker interface {
	// Initialize is called once per run with the job payload, before any
	// task is performed.
	Initialize(ctx context.Context, job codec.Payload) error

	// Perform processes one task payload and reports whether it succeeded.
	Perform(ctx context.Context, data codec.Payload) bool
}

// Typed adapts typed functions to the Worker interface. The job payload is
// decoded into J and every task payload into T. A task payload that fails
// to decode counts as a failed task.
type Typed[J, T any] struct {
	// OnInit receives the decoded job payload. Optional.
	OnInit func(ctx context.Context, job J) error

	// OnTask processes one decoded task payload.
	OnTask func(ctx context.Context, data T) bool
}

var _ Worker = (*Typed[any, any])(nil)

// Initialize decodes the job payload and calls OnInit.
func (w *Typed[J, T]) Initialize(ctx context.Context, job codec.Payload) error {
	if w.OnInit == nil {
		return nil
	}
	j, err := codec.As[J](job)
	if err != nil {
		return err
	}
	return w.OnInit(ctx, j)
}

// Perform decodes the task payload and calls OnTask. Without OnTask every
// task fails.
func (w *Typed[J, T]) Perform(ctx context.Context, data codec.Payload) bool {
	if w.OnTask == nil {
		return false
	}
	v, err := codec.As[T](data)
	if err != nil {
		return false
	}
	return w.OnTask(ctx, v)
}
