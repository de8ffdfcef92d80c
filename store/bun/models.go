package bunstore

import (
	"time"

	"github.com/uptrace/bun"

	"github.com/xraph/taskpool/job"
	"github.com/xraph/taskpool/task"
)

// ── Job model ─────────────────────────────────────────────────────

type jobModel struct {
	bun.BaseModel `bun:"table:taskpool_jobs"`

	ID        int64     `bun:"id,pk,autoincrement"`
	Data      []byte    `bun:"data,notnull,type:bytea"`
	Deleted   bool      `bun:"deleted,notnull"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

func toJobModel(j *job.Job) *jobModel {
	return &jobModel{
		Data:      nonNil(j.Data),
		Deleted:   j.Deleted,
		CreatedAt: j.CreatedAt,
	}
}

func fromJobModel(m *jobModel) *job.Job {
	return &job.Job{
		ID:        m.ID,
		Data:      m.Data,
		Deleted:   m.Deleted,
		CreatedAt: m.CreatedAt,
	}
}

// ── Task model ────────────────────────────────────────────────────

type taskModel struct {
	bun.BaseModel `bun:"table:taskpool_tasks"`

	ID        int64     `bun:"id,pk,autoincrement"`
	JobID     int64     `bun:"job_id,notnull"`
	Data      []byte    `bun:"data,notnull,type:bytea"`
	Status    string    `bun:"status,notnull,default:'pending'"`
	Signature string    `bun:"signature,notnull"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

func fromTaskModel(m *taskModel) *task.Task {
	return &task.Task{
		ID:        m.ID,
		JobID:     m.JobID,
		Data:      m.Data,
		Status:    task.Status(m.Status),
		Signature: task.Signature(m.Signature),
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}
