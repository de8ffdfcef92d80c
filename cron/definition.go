package cron

import "github.com/xraph/taskpool"

// Definition describes a periodic dispatch.
type Definition struct {
	// Name is the unique identifier for this entry.
	Name string

	// Schedule is a cron expression (e.g., "*/5 * * * *" or "@every 30s").
	Schedule string

	// JobID is the job dispatched on each run.
	JobID int64

	// Count is the number of tasks dispatched on each run.
	Count taskpool.Count

	// Parts is the number of workers the count is split over. Zero means one.
	Parts int
}
