package job

import "time"

// Job is a unit of work decomposed into tasks. Data is the encoded payload
// and is opaque to the store.
type Job struct {
	ID        int64     `json:"id"`
	Data      []byte    `json:"data"`
	Deleted   bool      `json:"deleted"`
	CreatedAt time.Time `json:"created_at"`
}
