package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/taskpool"
	"github.com/xraph/taskpool/job"
)

// InsertJob persists a new job under the next value of the jobs counter.
func (s *Store) InsertJob(ctx context.Context, j *job.Job) (int64, error) {
	jobID, err := s.nextID(ctx, colJobs)
	if err != nil {
		return 0, err
	}

	m := &jobModel{
		ID:        jobID,
		Data:      j.Data,
		Deleted:   j.Deleted,
		CreatedAt: now(),
	}
	if !j.CreatedAt.IsZero() {
		m.CreatedAt = j.CreatedAt.UTC().Truncate(time.Millisecond)
	}
	if _, err := s.db.Collection(colJobs).InsertOne(ctx, m); err != nil {
		return 0, fmt.Errorf("taskpool/mongo: insert job: %w", err)
	}

	j.ID = jobID
	j.CreatedAt = m.CreatedAt
	return jobID, nil
}

// GetJob retrieves a job by ID, including soft-deleted ones.
func (s *Store) GetJob(ctx context.Context, jobID int64) (*job.Job, error) {
	var m jobModel
	err := s.db.Collection(colJobs).FindOne(ctx, bson.M{"_id": jobID}).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, taskpool.ErrJobNotFound
		}
		return nil, fmt.Errorf("taskpool/mongo: get job: %w", err)
	}
	return fromJobModel(&m), nil
}

// ListJobs returns all jobs that are not soft-deleted, ordered by ID.
func (s *Store) ListJobs(ctx context.Context) ([]*job.Job, error) {
	cursor, err := s.db.Collection(colJobs).Find(ctx,
		bson.M{"deleted": false},
		options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("taskpool/mongo: list jobs: %w", err)
	}
	defer cursor.Close(ctx)

	var models []jobModel
	if err := cursor.All(ctx, &models); err != nil {
		return nil, fmt.Errorf("taskpool/mongo: decode jobs: %w", err)
	}

	jobs := make([]*job.Job, 0, len(models))
	for i := range models {
		jobs = append(jobs, fromJobModel(&models[i]))
	}
	return jobs, nil
}
