// Package ext defines the extension system for taskpool.
//
// Extensions are notified of lifecycle events, for example to record
// metrics.
// Each lifecycle hook is a separate interface so extensions opt in only
// to the events they care about.
//
// # Implementing an Extension
//
//	type MyExtension struct{}
//
//	func (e *MyExtension) Name() string { return "my-extension" }
//
//	func (e *MyExtension) OnTaskClosed(ctx context.Context, taskID int64, status task.Status) error {
//	    log.Printf("task %d closed as %s", taskID, status)
//	    return nil
//	}
//
// # Hooks
//
//   - [JobAdded], [TaskAdded]: the pool gained work
//   - [TasksCollected]: a worker reserved a batch
//   - [TaskClosed]: a task status was written
//   - [TaskPerformed]: the worker loop finished one task
//   - [WorkerLaunched]: the broker started a worker for a share
//   - [ScheduleFired]: a periodic dispatch ran
//   - [Shutdown]: a long-running command is stopping
//
// Hook errors are logged and never propagated. Extensions run inline in the
// process that emits the event; worker processes only see events of their
// own invocation.
package ext
