package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/taskpool"
	"github.com/xraph/taskpool/task"
)

// InsertTask persists a new pending, unreserved task under the next value
// of the tasks counter.
func (s *Store) InsertTask(ctx context.Context, t *task.Task) (int64, error) {
	n, err := s.db.Collection(colJobs).CountDocuments(ctx, bson.M{"_id": t.JobID})
	if err != nil {
		return 0, fmt.Errorf("taskpool/mongo: insert task: check job: %w", err)
	}
	if n == 0 {
		return 0, taskpool.ErrJobNotFound
	}

	taskID, err := s.nextID(ctx, colTasks)
	if err != nil {
		return 0, err
	}

	ts := now()
	m := &taskModel{
		ID:        taskID,
		JobID:     t.JobID,
		Data:      t.Data,
		Status:    string(task.StatusPending),
		CreatedAt: ts,
		UpdatedAt: ts,
	}
	if _, err := s.db.Collection(colTasks).InsertOne(ctx, m); err != nil {
		return 0, fmt.Errorf("taskpool/mongo: insert task: %w", err)
	}

	t.ID = taskID
	return taskID, nil
}

// ReserveTasks claims open tasks of jobID one at a time, lowest ID first,
// until count tasks are claimed or none are left.
func (s *Store) ReserveTasks(ctx context.Context, jobID int64, sig task.Signature, count taskpool.Count) (int64, error) {
	col := s.db.Collection(colTasks)
	filter := bson.M{
		"job_id":    jobID,
		"status":    string(task.StatusPending),
		"signature": "",
	}
	opts := options.FindOneAndUpdate().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetProjection(bson.M{"_id": 1})

	var claimed int64
	for count.Unbounded() || claimed < int64(count.N()) {
		update := bson.M{"$set": bson.M{
			"signature":  string(sig),
			"updated_at": now(),
		}}

		var m taskModel
		err := col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&m)
		if err != nil {
			if isNoDocuments(err) {
				break
			}
			return claimed, fmt.Errorf("taskpool/mongo: reserve tasks: %w", err)
		}
		claimed++
	}
	return claimed, nil
}

// TasksBySignature returns the tasks of jobID carrying sig, ordered by ID.
func (s *Store) TasksBySignature(ctx context.Context, jobID int64, sig task.Signature) ([]*task.Task, error) {
	cursor, err := s.db.Collection(colTasks).Find(ctx,
		bson.M{"job_id": jobID, "signature": string(sig)},
		options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("taskpool/mongo: tasks by signature: %w", err)
	}
	defer cursor.Close(ctx)

	var models []taskModel
	if err := cursor.All(ctx, &models); err != nil {
		return nil, fmt.Errorf("taskpool/mongo: decode tasks: %w", err)
	}

	tasks := make([]*task.Task, 0, len(models))
	for i := range models {
		tasks = append(tasks, fromTaskModel(&models[i]))
	}
	return tasks, nil
}

// CloseTask sets the status of a task, guarded by match when it is set.
func (s *Store) CloseTask(ctx context.Context, taskID int64, status task.Status, match task.Signature) error {
	filter := bson.M{"_id": taskID}
	if !match.IsZero() {
		filter["signature"] = string(match)
	}

	res, err := s.db.Collection(colTasks).UpdateOne(ctx, filter, bson.M{"$set": bson.M{
		"status":     string(status),
		"updated_at": now(),
	}})
	if err != nil {
		return fmt.Errorf("taskpool/mongo: close task: %w", err)
	}
	if res.MatchedCount == 0 {
		if !match.IsZero() {
			return taskpool.ErrTaskNotReserved
		}
		return taskpool.ErrTaskNotFound
	}
	return nil
}

// GetTask retrieves a task by ID.
func (s *Store) GetTask(ctx context.Context, taskID int64) (*task.Task, error) {
	var m taskModel
	err := s.db.Collection(colTasks).FindOne(ctx, bson.M{"_id": taskID}).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, taskpool.ErrTaskNotFound
		}
		return nil, fmt.Errorf("taskpool/mongo: get task: %w", err)
	}
	return fromTaskModel(&m), nil
}

// TaskStats counts the tasks of jobID by state in one aggregation.
func (s *Store) TaskStats(ctx context.Context, jobID int64) (task.Stats, error) {
	countIf := func(cond bson.M) bson.M {
		return bson.M{"$sum": bson.M{"$cond": bson.A{cond, 1, 0}}}
	}
	isPending := bson.M{"$eq": bson.A{"$status", string(task.StatusPending)}}
	unsigned := bson.M{"$eq": bson.A{"$signature", ""}}

	pipeline := bson.A{
		bson.M{"$match": bson.M{"job_id": jobID}},
		bson.M{"$group": bson.M{
			"_id":      nil,
			"pending":  countIf(bson.M{"$and": bson.A{isPending, unsigned}}),
			"reserved": countIf(bson.M{"$and": bson.A{isPending, bson.M{"$not": bson.A{unsigned}}}}),
			"done":     countIf(bson.M{"$eq": bson.A{"$status", string(task.StatusDone)}}),
			"failed":   countIf(bson.M{"$eq": bson.A{"$status", string(task.StatusFailed)}}),
			"total":    bson.M{"$sum": 1},
		}},
	}

	cursor, err := s.db.Collection(colTasks).Aggregate(ctx, pipeline)
	if err != nil {
		return task.Stats{}, fmt.Errorf("taskpool/mongo: task stats: %w", err)
	}
	defer cursor.Close(ctx)

	st := task.Stats{JobID: jobID}
	if cursor.Next(ctx) {
		var row struct {
			Pending  int64 `bson:"pending"`
			Reserved int64 `bson:"reserved"`
			Done     int64 `bson:"done"`
			Failed   int64 `bson:"failed"`
			Total    int64 `bson:"total"`
		}
		if err := cursor.Decode(&row); err != nil {
			return task.Stats{}, fmt.Errorf("taskpool/mongo: decode stats: %w", err)
		}
		st.Pending, st.Reserved, st.Done, st.Failed, st.Total =
			row.Pending, row.Reserved, row.Done, row.Failed, row.Total
	}
	if err := cursor.Err(); err != nil {
		return task.Stats{}, fmt.Errorf("taskpool/mongo: task stats: %w", err)
	}
	return st, nil
}
