// Package manager implements the pool manager: adding jobs and tasks,
// reading jobs back, and the reservation protocol that lets concurrent
// workers collect disjoint batches of a job's pending tasks.
//
//	m := manager.New(store, manager.WithLogger(logger))
//
//	jobID, err := m.AddJob(ctx, Batch{Name: "batch1"})
//	taskID, err := m.AddTask(ctx, jobID, 42)
//
//	tasks, err := m.CollectTasks(ctx, jobID, taskpool.Limit(10))
//	for _, t := range tasks {
//	    // ...
//	    err = m.CloseReserved(ctx, t, task.StatusDone)
//	}
//
// The manager performs no retries. Store errors are wrapped and returned
// as-is, so callers can match taskpool.ErrJobNotFound and friends with
// errors.Is.
package manager
