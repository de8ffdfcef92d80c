package bunstore

import (
	"context"
	"fmt"

	"github.com/xraph/taskpool"
	"github.com/xraph/taskpool/job"
)

// InsertJob persists a new job and returns the serial ID assigned to it.
func (s *Store) InsertJob(ctx context.Context, j *job.Job) (int64, error) {
	m := toJobModel(j)
	_, err := s.db.NewInsert().Model(m).Returning("id, created_at").Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("taskpool/bun: insert job: %w", err)
	}
	j.ID = m.ID
	j.CreatedAt = m.CreatedAt
	return m.ID, nil
}

// GetJob retrieves a job by ID, including soft-deleted ones.
func (s *Store) GetJob(ctx context.Context, jobID int64) (*job.Job, error) {
	m := new(jobModel)
	err := s.db.NewSelect().Model(m).
		Where("id = ?", jobID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, taskpool.ErrJobNotFound
		}
		return nil, fmt.Errorf("taskpool/bun: get job: %w", err)
	}
	return fromJobModel(m), nil
}

// ListJobs returns all jobs that are not soft-deleted, ordered by ID.
func (s *Store) ListJobs(ctx context.Context) ([]*job.Job, error) {
	var models []jobModel
	err := s.db.NewSelect().Model(&models).
		Where("deleted = FALSE").
		OrderExpr("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("taskpool/bun: list jobs: %w", err)
	}

	jobs := make([]*job.Job, 0, len(models))
	for i := range models {
		jobs = append(jobs, fromJobModel(&models[i]))
	}
	return jobs, nil
}
