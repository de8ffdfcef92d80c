package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/xraph/taskpool"
	"github.com/xraph/taskpool/job"
)

// InsertJob assigns the next ID from the job counter and stores the job as
// a Hash.
func (s *Store) InsertJob(ctx context.Context, j *job.Job) (int64, error) {
	jobID, err := s.client.Incr(ctx, jobSeqKey).Result()
	if err != nil {
		return 0, fmt.Errorf("taskpool/redis: insert job: next id: %w", err)
	}
	if j.CreatedAt.IsZero() {
		j.CreatedAt = time.Now().UTC()
	}

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, jobKey(jobID),
		"data", j.Data,
		"deleted", strconv.FormatBool(j.Deleted),
		"created_at", j.CreatedAt.Format(time.RFC3339Nano),
	)
	pipe.ZAdd(ctx, jobIDsKey, goredis.Z{Score: float64(jobID), Member: jobID})
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("taskpool/redis: insert job: %w", err)
	}

	j.ID = jobID
	return jobID, nil
}

// GetJob retrieves a job by ID, including soft-deleted ones.
func (s *Store) GetJob(ctx context.Context, jobID int64) (*job.Job, error) {
	vals, err := s.client.HGetAll(ctx, jobKey(jobID)).Result()
	if err != nil {
		return nil, fmt.Errorf("taskpool/redis: get job: %w", err)
	}
	if len(vals) == 0 {
		return nil, taskpool.ErrJobNotFound
	}
	return jobFromMap(jobID, vals)
}

// ListJobs returns all jobs that are not soft-deleted, ordered by ID.
func (s *Store) ListJobs(ctx context.Context) ([]*job.Job, error) {
	ids, err := s.client.ZRange(ctx, jobIDsKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("taskpool/redis: list jobs: %w", err)
	}

	jobs := make([]*job.Job, 0, len(ids))
	for _, raw := range ids {
		jobID, parseErr := strconv.ParseInt(raw, 10, 64)
		if parseErr != nil {
			return nil, fmt.Errorf("taskpool/redis: list jobs: bad id %q: %w", raw, parseErr)
		}
		j, getErr := s.GetJob(ctx, jobID)
		if errors.Is(getErr, taskpool.ErrJobNotFound) {
			continue
		}
		if getErr != nil {
			return nil, getErr
		}
		if !j.Deleted {
			jobs = append(jobs, j)
		}
	}
	return jobs, nil
}

func jobFromMap(jobID int64, m map[string]string) (*job.Job, error) {
	j := &job.Job{ID: jobID, Data: []byte(m["data"])}
	var err error
	if j.Deleted, err = strconv.ParseBool(m["deleted"]); err != nil {
		return nil, fmt.Errorf("taskpool/redis: job %d: deleted flag: %w", jobID, err)
	}
	if j.CreatedAt, err = time.Parse(time.RFC3339Nano, m["created_at"]); err != nil {
		return nil, fmt.Errorf("taskpool/redis: job %d: created_at: %w", jobID, err)
	}
	return j, nil
}
