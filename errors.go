package taskpool

import "errors"

var (
	// Store errors.
	ErrNoStore         = errors.New("taskpool: no store configured")
	ErrStoreClosed     = errors.New("taskpool: store closed")
	ErrMigrationFailed = errors.New("taskpool: migration failed")
	ErrUnknownDriver   = errors.New("taskpool: unknown store driver")

	// Not found errors.
	ErrJobNotFound  = errors.New("taskpool: job not found")
	ErrTaskNotFound = errors.New("taskpool: task not found")

	// Payload errors.
	ErrSerialization = errors.New("taskpool: payload serialization failed")

	// State errors.
	ErrInvalidStatus   = errors.New("taskpool: invalid task status")
	ErrInvalidCount    = errors.New("taskpool: invalid task count")
	ErrInvalidParts    = errors.New("taskpool: parts must be at least 1")
	ErrTaskNotReserved = errors.New("taskpool: task not reserved by this signature")

	// Schedule errors.
	ErrScheduleNotFound  = errors.New("taskpool: schedule entry not found")
	ErrDuplicateSchedule = errors.New("taskpool: schedule entry already exists")
	ErrInvalidSchedule   = errors.New("taskpool: invalid cron expression")
)
