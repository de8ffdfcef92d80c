// Package worker runs the tasks of one job share inside a worker process.
//
// A [Worker] carries the domain logic: [Worker.Initialize] receives the job
// payload once, [Worker.Perform] is called for every collected task and
// reports success. The [Runner] drives the loop against a manager.Manager:
//
//	r := worker.NewRunner(mgr, myWorker,
//	    worker.WithMiddleware(middleware.Recover(logger), middleware.Logging(logger)),
//	)
//	res, err := r.Execute(ctx, jobID, taskpool.Limit(50))
//
// Worker entry points started by the broker receive the job id and the count
// as their two positional arguments; [Main] parses and runs them.
package worker
