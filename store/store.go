// Package store defines the aggregate persistence interface. The job and
// task packages each define their own store interface and the composite
// Store composes them. Backends: Memory, SQLite, MySQL, Postgres, Bun,
// Redis and MongoDB.
package store

import (
	"context"

	"github.com/xraph/taskpool/job"
	"github.com/xraph/taskpool/task"
)

// Store is the aggregate persistence interface.
// A single backend implements every subsystem store.
type Store interface {
	job.Store
	task.Store

	// Migrate creates or updates the schema.
	Migrate(ctx context.Context) error

	// Ping checks connectivity.
	Ping(ctx context.Context) error

	// Close releases the connection.
	Close() error
}
