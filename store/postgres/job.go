package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/xraph/taskpool"
	"github.com/xraph/taskpool/job"
)

// InsertJob persists a new job and returns the serial ID assigned to it.
func (s *Store) InsertJob(ctx context.Context, j *job.Job) (int64, error) {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO taskpool_jobs (data, deleted)
		VALUES ($1, $2)
		RETURNING id, created_at`,
		nonNil(j.Data), j.Deleted,
	).Scan(&j.ID, &j.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("taskpool/postgres: insert job: %w", err)
	}
	return j.ID, nil
}

// GetJob retrieves a job by ID, including soft-deleted ones.
func (s *Store) GetJob(ctx context.Context, jobID int64) (*job.Job, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, data, deleted, created_at
		FROM taskpool_jobs
		WHERE id = $1`,
		jobID,
	)

	j, err := scanJob(row)
	if err != nil {
		if isNoRows(err) {
			return nil, taskpool.ErrJobNotFound
		}
		return nil, fmt.Errorf("taskpool/postgres: get job: %w", err)
	}
	return j, nil
}

// ListJobs returns all jobs that are not soft-deleted, ordered by ID.
func (s *Store) ListJobs(ctx context.Context) ([]*job.Job, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, data, deleted, created_at
		FROM taskpool_jobs
		WHERE deleted = FALSE
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("taskpool/postgres: list jobs: %w", err)
	}
	defer rows.Close()

	jobs := make([]*job.Job, 0)
	for rows.Next() {
		j, scanErr := scanJob(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("taskpool/postgres: scan job: %w", scanErr)
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

func scanJob(row pgx.Row) (*job.Job, error) {
	j := &job.Job{}
	if err := row.Scan(&j.ID, &j.Data, &j.Deleted, &j.CreatedAt); err != nil {
		return nil, err
	}
	return j, nil
}

func nonNil(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}
