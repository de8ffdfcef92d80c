package task

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/xraph/taskpool"
)

// Status is the lifecycle status of a task.
type Status string

const (
	// StatusPending means the task has not been closed. It may or may not
	// be reserved.
	StatusPending Status = "pending"
	// StatusDone means the task was performed successfully.
	StatusDone Status = "done"
	// StatusFailed means performing the task reported failure or faulted.
	StatusFailed Status = "failed"
)

// Closing returns the status a task is closed with. The zero status closes
// as done; anything other than done or failed is rejected.
func (s Status) Closing() (Status, error) {
	switch s {
	case "", StatusDone:
		return StatusDone, nil
	case StatusFailed:
		return StatusFailed, nil
	default:
		return "", fmt.Errorf("%w: %q", taskpool.ErrInvalidStatus, string(s))
	}
}

// Signature is the reservation token stamped onto tasks by one collection
// call. The empty signature marks an unreserved task.
type Signature string

// NewSignature returns a fresh signature: the 16 random bytes of a version 4
// UUID, hex encoded.
func NewSignature() (Signature, error) {
	u, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("taskpool: generate signature: %w", err)
	}
	return Signature(hex.EncodeToString(u[:])), nil
}

// IsZero reports whether s is the unreserved signature.
func (s Signature) IsZero() bool { return s == "" }

func (s Signature) String() string { return string(s) }

// Task is one independently processable piece of a job.
type Task struct {
	ID        int64     `json:"id"`
	JobID     int64     `json:"job_id"`
	Data      []byte    `json:"data"`
	Status    Status    `json:"status"`
	Signature Signature `json:"signature"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Reserved reports whether the task is claimed and still open.
func (t *Task) Reserved() bool {
	return t.Status == StatusPending && !t.Signature.IsZero()
}

// Stats counts the tasks of one job by state.
type Stats struct {
	JobID int64 `json:"job_id"`
	// Pending counts open tasks that no collection has reserved.
	Pending int64 `json:"pending"`
	// Reserved counts open tasks carrying a signature.
	Reserved int64 `json:"reserved"`
	Done     int64 `json:"done"`
	Failed   int64 `json:"failed"`
	Total    int64 `json:"total"`
}

// Open returns the number of tasks not yet closed.
func (s Stats) Open() int64 { return s.Pending + s.Reserved }
