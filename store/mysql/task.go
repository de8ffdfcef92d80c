package mysql

import (
	"context"
	"fmt"
	"time"

	"github.com/xraph/taskpool"
	"github.com/xraph/taskpool/task"
)

const taskColumns = `id, job_id, data, status, signature, created_at, updated_at`

// InsertTask persists a new pending, unreserved task. A missing job is
// reported as taskpool.ErrJobNotFound.
func (s *Store) InsertTask(ctx context.Context, t *task.Task) (int64, error) {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO taskpool_tasks (job_id, data, status, signature, created_at, updated_at)
		VALUES (?, ?, 'pending', '', ?, ?)`,
		t.JobID, nonNil(t.Data), now, now,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return 0, taskpool.ErrJobNotFound
		}
		return 0, fmt.Errorf("taskpool/mysql: insert task: %w", err)
	}
	taskID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("taskpool/mysql: insert task: %w", err)
	}
	t.ID = taskID
	return taskID, nil
}

// ReserveTasks stamps sig onto up to count open tasks of jobID with one
// UPDATE ... ORDER BY id LIMIT n. An unbounded count drops the LIMIT.
func (s *Store) ReserveTasks(ctx context.Context, jobID int64, sig task.Signature, count taskpool.Count) (int64, error) {
	query := `
		UPDATE taskpool_tasks
		SET signature = ?, updated_at = ?
		WHERE job_id = ? AND status = 'pending' AND signature = ''
		ORDER BY id`
	args := []any{string(sig), time.Now().UTC(), jobID}
	if !count.Unbounded() {
		query += ` LIMIT ?`
		args = append(args, count.N())
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("taskpool/mysql: reserve tasks: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("taskpool/mysql: reserve tasks: %w", err)
	}
	return n, nil
}

// TasksBySignature returns the tasks of jobID carrying sig, ordered by ID.
func (s *Store) TasksBySignature(ctx context.Context, jobID int64, sig task.Signature) ([]*task.Task, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+taskColumns+` FROM taskpool_tasks WHERE job_id = ? AND signature = ? ORDER BY id`,
		jobID, string(sig),
	)
	if err != nil {
		return nil, fmt.Errorf("taskpool/mysql: tasks by signature: %w", err)
	}
	defer rows.Close()

	tasks := make([]*task.Task, 0)
	for rows.Next() {
		t, scanErr := scanTask(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("taskpool/mysql: scan task: %w", scanErr)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// CloseTask sets the status of a task, guarded by match when it is set.
func (s *Store) CloseTask(ctx context.Context, taskID int64, status task.Status, match task.Signature) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE taskpool_tasks
		SET status = ?, updated_at = ?
		WHERE id = ? AND (? = '' OR signature = ?)`,
		string(status), time.Now().UTC(), taskID, string(match), string(match),
	)
	if err != nil {
		return fmt.Errorf("taskpool/mysql: close task: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("taskpool/mysql: close task: %w", err)
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
	row := s.db.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM taskpool_tasks WHERE id = ?`, taskID)
	t, err := scanTask(row)
	if err != nil {
		if isNoRows(err) {
			return nil, taskpool.ErrTaskNotFound
		}
		return nil, fmt.Errorf("taskpool/mysql: get task: %w", err)
	}
	return t, nil
}

// TaskStats counts the tasks of jobID by state.
func (s *Store) TaskStats(ctx context.Context, jobID int64) (task.Stats, error) {
	st := task.Stats{JobID: jobID}
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN status = 'pending' AND signature = '' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'pending' AND signature <> '' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'done' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END), 0),
			COUNT(*)
		FROM taskpool_tasks
		WHERE job_id = ?`,
		jobID,
	).Scan(&st.Pending, &st.Reserved, &st.Done, &st.Failed, &st.Total)
	if err != nil {
		return task.Stats{}, fmt.Errorf("taskpool/mysql: task stats: %w", err)
	}
	return st, nil
}

func scanTask(row rowScanner) (*task.Task, error) {
	var (
		t      task.Task
		status string
		sig    string
	)
	if err := row.Scan(&t.ID, &t.JobID, &t.Data, &status, &sig, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	t.Status = task.Status(status)
	t.Signature = task.Signature(sig)
	return &t, nil
}
