// Package id defines TypeID-based identifiers for taskpool runtime entities.
//
// Jobs and tasks use integer ids assigned by the store. The identifiers here
// name things that only exist at runtime: a broker dispatch, a worker
// invocation and a scheduled dispatch entry. They are K-sortable
// (UUIDv7-based) and render as "prefix_suffix", which keeps log lines from
// concurrent workers easy to correlate.
package id

import (
	"fmt"

	"go.jetify.com/typeid/v2"
)

// Prefix identifies the entity type encoded in a TypeID.
type Prefix string

// Prefix constants for taskpool runtime entities.
const (
	PrefixDispatch Prefix = "dsp"
	PrefixRun      Prefix = "run"
	PrefixSchedule Prefix = "sched"
)

// ID wraps a TypeID providing a prefix-qualified, globally unique,
// sortable identifier.
//
//nolint:recvcheck // Value receivers for read-only methods, pointer receiver for UnmarshalText.
type ID struct {
	inner typeid.TypeID
	valid bool
}

// Nil is the zero-value ID.
var Nil ID

// New generates a new ID with the given prefix.
// It panics if prefix is not a valid TypeID prefix (programming error).
func New(prefix Prefix) ID {
	tid, err := typeid.Generate(string(prefix))
	if err != nil {
		panic(fmt.Sprintf("id: invalid prefix %q: %v", prefix, err))
	}

	return ID{inner: tid, valid: true}
}

// Parse parses a TypeID string into an ID.
func Parse(s string) (ID, error) {
	if s == "" {
		return Nil, fmt.Errorf("id: parse %q: empty string", s)
	}

	tid, err := typeid.Parse(s)
	if err != nil {
		return Nil, fmt.Errorf("id: parse %q: %w", s, err)
	}

	return ID{inner: tid, valid: true}, nil
}

// DispatchID identifies one Broker.Execute call (prefix: "dsp").
type DispatchID = ID

// RunID identifies one worker invocation (prefix: "run").
type RunID = ID

// ScheduleID identifies a periodic dispatch entry (prefix: "sched").
type ScheduleID = ID

// NewDispatchID generates a new dispatch ID.
func NewDispatchID() ID { return New(PrefixDispatch) }

// NewRunID generates a new worker run ID.
func NewRunID() ID { return New(PrefixRun) }

// NewScheduleID generates a new schedule entry ID.
func NewScheduleID() ID { return New(PrefixSchedule) }

// String returns the TypeID string, or "" for the Nil ID.
func (i ID) String() string {
	if !i.valid {
		return ""
	}

	return i.inner.String()
}

// Prefix returns the prefix component of this ID.
func (i ID) Prefix() Prefix {
	if !i.valid {
		return ""
	}

	return Prefix(i.inner.Prefix())
}

// IsNil reports whether this ID is the zero value.
func (i ID) IsNil() bool {
	return !i.valid
}

// MarshalText implements encoding.TextMarshaler.
func (i ID) MarshalText() ([]byte, error) {
	if !i.valid {
		return []byte{}, nil
	}

	return []byte(i.inner.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (i *ID) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*i = Nil
		return nil
	}

	parsed, err := Parse(string(data))
	if err != nil {
		return err
	}

	*i = parsed
	return nil
}
