package mongo

import (
	"time"

	"github.com/xraph/taskpool/job"
	"github.com/xraph/taskpool/task"
)

// ── Job model ─────────────────────────────────────────────────────

type jobModel struct {
	ID        int64     `bson:"_id"`
	Data      []byte    `bson:"data"`
	Deleted   bool      `bson:"deleted"`
	CreatedAt time.Time `bson:"created_at"`
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
	ID        int64     `bson:"_id"`
	JobID     int64     `bson:"job_id"`
	Data      []byte    `bson:"data"`
	Status    string    `bson:"status"`
	Signature string    `bson:"signature"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
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
