// Package taskpool is a minimal job/task pool backed by a shared store.
//
// A job carries an opaque payload and is decomposed into tasks. Worker
// invocations reserve disjoint subsets of a job's pending tasks, perform
// them, and close each one as done or failed. A broker partitions a task
// count into near-equal shares and launches one background worker per
// share.
//
// # Quick Start
//
//	s := memory.New()
//	m := manager.New(s)
//
//	jobID, _ := m.AddJob(ctx, map[string]any{"name": "batch1"})
//	for i := 1; i <= 5; i++ {
//	    m.AddTask(ctx, jobID, i)
//	}
//
//	l, _ := process.New("taskpool work")
//	d, err := broker.New(l).Execute(ctx, jobID, taskpool.Limit(5), 2)
//	// d.Shares() == [3 2]
//
// # Reservation
//
// Collecting tasks generates a fresh random signature, stamps it onto up to
// N pending unreserved rows in a single atomic update, then reads back the
// rows that carry it. Two concurrent collections therefore never return the
// same task.
//
// # Counts
//
// A [Count] is either a bound ([Limit]) or "all pending tasks" ([All]). The
// worker command line uses -1 for the latter, see [ParseCount].
//
// # Backends
//
// Stores live under store/: memory, sqlite, mysql, postgres (pgx), bun,
// redis and mongo. cmd/taskpool selects one with --driver and --dsn.
package taskpool
