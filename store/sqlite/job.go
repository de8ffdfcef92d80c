package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/xraph/taskpool"
	"github.com/xraph/taskpool/job"
)

type rowScanner interface {
	Scan(dest ...any) error
}

// InsertJob persists a new job and returns its rowid.
func (s *Store) InsertJob(ctx context.Context, j *job.Job) (int64, error) {
	if j.CreatedAt.IsZero() {
		j.CreatedAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO taskpool_jobs (data, deleted, created_at) VALUES (?, ?, ?)`,
		nonNil(j.Data), j.Deleted, j.CreatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("taskpool/sqlite: insert job: %w", err)
	}
	jobID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("taskpool/sqlite: insert job: %w", err)
	}
	j.ID = jobID
	return jobID, nil
}

// GetJob retrieves a job by ID, including soft-deleted ones.
func (s *Store) GetJob(ctx context.Context, jobID int64) (*job.Job, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, data, deleted, created_at FROM taskpool_jobs WHERE id = ?`,
		jobID,
	)
	j, err := scanJob(row)
	if err != nil {
		if isNoRows(err) {
			return nil, taskpool.ErrJobNotFound
		}
		return nil, fmt.Errorf("taskpool/sqlite: get job: %w", err)
	}
	return j, nil
}

// ListJobs returns all jobs that are not soft-deleted, ordered by ID.
func (s *Store) ListJobs(ctx context.Context) ([]*job.Job, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, data, deleted, created_at FROM taskpool_jobs WHERE deleted = 0 ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("taskpool/sqlite: list jobs: %w", err)
	}
	defer rows.Close()

	jobs := make([]*job.Job, 0)
	for rows.Next() {
		j, scanErr := scanJob(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("taskpool/sqlite: scan job: %w", scanErr)
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

func scanJob(row rowScanner) (*job.Job, error) {
	j := &job.Job{}
	if err := row.Scan(&j.ID, &j.Data, &j.Deleted, &j.CreatedAt); err != nil {
		return nil, err
	}
	return j, nil
}
