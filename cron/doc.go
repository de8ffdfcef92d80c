// Package cron dispatches jobs periodically.
//
// A [Scheduler] holds named entries. Each entry pairs a cron expression
// with the arguments of one dispatch: job id, task count and number of
// parts. When an entry is due the scheduler calls its [DispatchFunc],
// normally a broker's Execute, and computes the next run.
//
//	s := cron.NewScheduler(func(ctx context.Context, jobID int64, count taskpool.Count, parts int) (id.DispatchID, error) {
//	    d, err := b.Execute(ctx, jobID, count, parts)
//	    return d.ID, err
//	}, cron.WithEmitter(registry))
//	_, err := s.Register(cron.Definition{
//	    Name:     "nightly-import",
//	    Schedule: "0 2 * * *",
//	    JobID:    42,
//	    Count:    taskpool.All(),
//	    Parts:    4,
//	})
//
// Schedules accept the standard five-field syntax and descriptors such as
// "@hourly" or "@every 30s". Entries live in memory; run a single scheduler
// per deployment.
package cron
