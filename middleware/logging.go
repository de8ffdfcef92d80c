package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/xraph/taskpool/task"
)

// Logging returns middleware that logs the start and outcome of a task.
func Logging(logger *slog.Logger) Middleware {
	return func(ctx context.Context, t *task.Task, next Handler) error {
		logger.Debug("task started",
			slog.Int64("task_id", t.ID),
			slog.Int64("job_id", t.JobID),
		)

		start := time.Now()
		err := next(ctx)
		elapsed := time.Since(start)

		if err != nil {
			logger.Warn("task failed",
				slog.Int64("task_id", t.ID),
				slog.Int64("job_id", t.JobID),
				slog.Duration("elapsed", elapsed),
				slog.String("error", err.Error()),
			)
			return err
		}

		logger.Info("task done",
			slog.Int64("task_id", t.ID),
			slog.Int64("job_id", t.JobID),
			slog.Duration("elapsed", elapsed),
		)
		return nil
	}
}
