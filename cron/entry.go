package cron

import (
	"time"

	"github.com/xraph/taskpool"
	"github.com/xraph/taskpool/id"
)

// Entry is a registered periodic dispatch.
type Entry struct {
	ID        id.ScheduleID  `json:"id"`
	Name      string         `json:"name"`
	Schedule  string         `json:"schedule"`
	JobID     int64          `json:"job_id"`
	Count     taskpool.Count `json:"count"`
	Parts     int            `json:"parts"`
	Enabled   bool           `json:"enabled"`
	LastRunAt *time.Time     `json:"last_run_at,omitempty"`
	NextRunAt *time.Time     `json:"next_run_at,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}
