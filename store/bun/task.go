package bunstore

import (
	"context"
	"fmt"

	"github.com/xraph/taskpool"
	"github.com/xraph/taskpool/task"
)

// InsertTask persists a new pending, unreserved task. A missing job is
// reported as taskpool.ErrJobNotFound.
func (s *Store) InsertTask(ctx context.Context, t *task.Task) (int64, error) {
	m := &taskModel{
		JobID:  t.JobID,
		Data:   nonNil(t.Data),
		Status: string(task.StatusPending),
	}
	_, err := s.db.NewInsert().Model(m).Returning("id").Exec(ctx)
	if err != nil {
		if isForeignKeyViolation(err) {
			return 0, taskpool.ErrJobNotFound
		}
		return 0, fmt.Errorf("taskpool/bun: insert task: %w", err)
	}
	t.ID = m.ID
	return m.ID, nil
}

// ReserveTasks stamps sig onto up to count open tasks of jobID. The
// candidate sub-select locks with SKIP LOCKED so concurrent reservations
// divide the open rows between them.
func (s *Store) ReserveTasks(ctx context.Context, jobID int64, sig task.Signature, count taskpool.Count) (int64, error) {
	candidates := s.db.NewSelect().
		Model((*taskModel)(nil)).
		Column("id").
		Where("job_id = ?", jobID).
		Where("status = ?", string(task.StatusPending)).
		Where("signature = ''").
		OrderExpr("id ASC").
		For("UPDATE SKIP LOCKED")
	if !count.Unbounded() {
		candidates = candidates.Limit(count.N())
	}

	res, err := s.db.NewUpdate().
		Model((*taskModel)(nil)).
		Set("signature = ?", string(sig)).
		Set("updated_at = NOW()").
		Where("id IN (?)", candidates).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("taskpool/bun: reserve tasks: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("taskpool/bun: reserve tasks: %w", err)
	}
	return n, nil
}

// TasksBySignature returns the tasks of jobID carrying sig, ordered by ID.
func (s *Store) TasksBySignature(ctx context.Context, jobID int64, sig task.Signature) ([]*task.Task, error) {
	var models []taskModel
	err := s.db.NewSelect().Model(&models).
		Where("job_id = ?", jobID).
		Where("signature = ?", string(sig)).
		OrderExpr("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("taskpool/bun: tasks by signature: %w", err)
	}

	tasks := make([]*task.Task, 0, len(models))
	for i := range models {
		tasks = append(tasks, fromTaskModel(&models[i]))
	}
	return tasks, nil
}

// CloseTask sets the status of a task, guarded by match when it is set.
func (s *Store) CloseTask(ctx context.Context, taskID int64, status task.Status, match task.Signature) error {
	q := s.db.NewUpdate().
		Model((*taskModel)(nil)).
		Set("status = ?", string(status)).
		Set("updated_at = NOW()").
		Where("id = ?", taskID)
	if !match.IsZero() {
		q = q.Where("signature = ?", string(match))
	}

	res, err := q.Exec(ctx)
	if err != nil {
		return fmt.Errorf("taskpool/bun: close task: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("taskpool/bun: close task: %w", err)
	}
	if n == 0 {
		if !match.IsZero() {
			return taskpool.ErrTaskNotReserved
		}
		return taskpool.ErrTaskNotFound
	}
	return nil
}

// GetTask retrieves a task by ID.
func (s *Store) GetTask(ctx context.Context, taskID int64) (*task.Task, error) {
	m := new(taskModel)
	err := s.db.NewSelect().Model(m).
		Where("id = ?", taskID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, taskpool.ErrTaskNotFound
		}
		return nil, fmt.Errorf("taskpool/bun: get task: %w", err)
	}
	return fromTaskModel(m), nil
}

// TaskStats counts the tasks of jobID by state.
func (s *Store) TaskStats(ctx context.Context, jobID int64) (task.Stats, error) {
	st := task.Stats{JobID: jobID}
	err := s.db.NewSelect().
		Model((*taskModel)(nil)).
		ColumnExpr("COUNT(*) FILTER (WHERE status = 'pending' AND signature = '')").
		ColumnExpr("COUNT(*) FILTER (WHERE status = 'pending' AND signature <> '')").
		ColumnExpr("COUNT(*) FILTER (WHERE status = 'done')").
		ColumnExpr("COUNT(*) FILTER (WHERE status = 'failed')").
		ColumnExpr("COUNT(*)").
		Where("job_id = ?", jobID).
		Scan(ctx, &st.Pending, &st.Reserved, &st.Done, &st.Failed, &st.Total)
	if err != nil {
		return task.Stats{}, fmt.Errorf("taskpool/bun: task stats: %w", err)
	}
	return st, nil
}
