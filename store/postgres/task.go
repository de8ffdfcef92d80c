package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/xraph/taskpool"
	"github.com/xraph/taskpool/task"
)

const taskColumns = `id, job_id, data, status, signature, created_at, updated_at`

// InsertTask persists a new pending, unreserved task. A missing job is
// reported as taskpool.ErrJobNotFound.
func (s *Store) InsertTask(ctx context.Context, t *task.Task) (int64, error) {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO taskpool_tasks (job_id, data)
		VALUES ($1, $2)
		RETURNING id`,
		t.JobID, nonNil(t.Data),
	).Scan(&t.ID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return 0, taskpool.ErrJobNotFound
		}
		return 0, fmt.Errorf("taskpool/postgres: insert task: %w", err)
	}
	return t.ID, nil
}

// ReserveTasks stamps sig onto up to count open tasks of jobID in one
// statement. Rows locked by a concurrent reservation are skipped rather
// than waited on. A NULL limit reserves every open task.
func (s *Store) ReserveTasks(ctx context.Context, jobID int64, sig task.Signature, count taskpool.Count) (int64, error) {
	var limit *int64
	if !count.Unbounded() {
		n := int64(count.N())
		limit = &n
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE taskpool_tasks
		SET signature = $1, updated_at = NOW()
		WHERE id IN (
			SELECT id FROM taskpool_tasks
			WHERE job_id = $2
			  AND status = 'pending'
			  AND signature = ''
			ORDER BY id
			LIMIT $3
			FOR UPDATE SKIP LOCKED
		)`,
		string(sig), jobID, limit,
	)
	if err != nil {
		return 0, fmt.Errorf("taskpool/postgres: reserve tasks: %w", err)
	}
	return tag.RowsAffected(), nil
}

// TasksBySignature returns the tasks of jobID carrying sig, ordered by ID.
func (s *Store) TasksBySignature(ctx context.Context, jobID int64, sig task.Signature) ([]*task.Task, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+taskColumns+`
		FROM taskpool_tasks
		WHERE job_id = $1 AND signature = $2
		ORDER BY id`,
		jobID, string(sig),
	)
	if err != nil {
		return nil, fmt.Errorf("taskpool/postgres: tasks by signature: %w", err)
	}
	defer rows.Close()

	tasks := make([]*task.Task, 0)
	for rows.Next() {
		t, scanErr := scanTask(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("taskpool/postgres: scan task: %w", scanErr)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// CloseTask sets the status of a task, guarded by match when it is set.
func (s *Store) CloseTask(ctx context.Context, taskID int64, status task.Status, match task.Signature) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE taskpool_tasks
		SET status = $2, updated_at = NOW()
		WHERE id = $1
		  AND ($3::text = '' OR signature = $3::text)`,
		taskID, string(status), string(match),
	)
	if err != nil {
		return fmt.Errorf("taskpool/postgres: close task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if !match.IsZero() {
			return taskpool.ErrTaskNotReserved
		}
		return taskpool.ErrTaskNotFound
	}
	return nil
}

// GetTask retrieves a task by ID.
func (s *Store) GetTask(ctx context.Context, taskID int64) (*task.Task, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+taskColumns+`
		FROM taskpool_tasks
		WHERE id = $1`,
		taskID,
	)

	t, err := scanTask(row)
	if err != nil {
		if isNoRows(err) {
			return nil, taskpool.ErrTaskNotFound
		}
		return nil, fmt.Errorf("taskpool/postgres: get task: %w", err)
	}
	return t, nil
}

// TaskStats counts the tasks of jobID by state.
func (s *Store) TaskStats(ctx context.Context, jobID int64) (task.Stats, error) {
	st := task.Stats{JobID: jobID}
	err := s.pool.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE status = 'pending' AND signature = ''),
			COUNT(*) FILTER (WHERE status = 'pending' AND signature <> ''),
			COUNT(*) FILTER (WHERE status = 'done'),
			COUNT(*) FILTER (WHERE status = 'failed'),
			COUNT(*)
		FROM taskpool_tasks
		WHERE job_id = $1`,
		jobID,
	).Scan(&st.Pending, &st.Reserved, &st.Done, &st.Failed, &st.Total)
	if err != nil {
		return task.Stats{}, fmt.Errorf("taskpool/postgres: task stats: %w", err)
	}
	return st, nil
}

func scanTask(row pgx.Row) (*task.Task, error) {
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
