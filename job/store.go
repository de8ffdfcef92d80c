package job

import "context"

// Store defines the persistence contract for jobs.
type Store interface {
	// InsertJob persists a new job, assigns its ID and returns it.
	InsertJob(ctx context.Context, j *Job) (int64, error)

	// GetJob retrieves a job by ID, soft-deleted or not. Returns
	// taskpool.ErrJobNotFound when no row matches.
	GetJob(ctx context.Context, jobID int64) (*Job, error)

	// ListJobs returns all jobs that are not soft-deleted, ordered by ID.
	ListJobs(ctx context.Context) ([]*Job, error)
}
