package middleware

import (
	"context"
	"time"

	"github.com/xraph/taskpool/task"
)

// Timeout returns middleware that cancels the task context after d. A
// non-positive d disables the deadline. Workers that ignore their context
// are not interrupted.
func Timeout(d time.Duration) Middleware {
	return func(ctx context.Context, _ *task.Task, next Handler) error {
		if d <= 0 {
			return next(ctx)
		}
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()
		return next(ctx)
	}
}
