// Package middleware provides composable middleware around task execution.
//
// A [Middleware] wraps the call that performs one collected task. The
// worker runner composes middleware with [Chain] and runs the chain once per
// task. The first middleware in the slice is the outermost wrapper.
//
//	// logging → recover → perform
//	chain := middleware.Chain(middleware.Logging(logger), middleware.Recover(logger))
//
// # Built-in Middleware
//
//   - [Logging] logs task id, job id and outcome of each execution
//   - [Recover] converts panics into errors so the task closes as failed
//   - [Timeout] bounds every execution by a fixed deadline
//   - [Tracing] wraps execution in an OpenTelemetry span
//   - [Metrics] records per-task duration and outcome counters
//
// # Writing Custom Middleware
//
//	func MyMiddleware() middleware.Middleware {
//	    return func(ctx context.Context, t *task.Task, next middleware.Handler) error {
//	        // pre-processing
//	        err := next(ctx)
//	        // post-processing
//	        return err
//	    }
//	}
//
// Middleware MUST call next to continue the chain unless intentionally
// short-circuiting.
package middleware
