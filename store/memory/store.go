package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/xraph/taskpool"
	"github.com/xraph/taskpool/job"
	"github.com/xraph/taskpool/store"
	"github.com/xraph/taskpool/task"
)

// Ensure Store implements store.Store at compile time.
var _ store.Store = (*Store)(nil)

// Store is a fully in-memory implementation of store.Store.
// Safe for concurrent access. Intended for unit testing and development.
type Store struct {
	mu sync.RWMutex

	jobs  map[int64]*job.Job
	tasks map[int64]*task.Task

	nextJobID  int64
	nextTaskID int64
	closed     bool
}

// New returns a new empty Store.
func New() *Store {
	return &Store{
		jobs:  make(map[int64]*job.Job),
		tasks: make(map[int64]*task.Task),
	}
}

// ──────────────────────────────────────────────────
// Lifecycle
// ──────────────────────────────────────────────────

// Migrate is a no-op for the memory store.
func (m *Store) Migrate(_ context.Context) error { return nil }

// Ping fails only after Close.
func (m *Store) Ping(_ context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return taskpool.ErrStoreClosed
	}
	return nil
}

// Close marks the store closed. Subsequent Ping calls fail; data stays
// readable.
func (m *Store) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

// ──────────────────────────────────────────────────
// Job Store
// ──────────────────────────────────────────────────

// InsertJob stores a copy of j under the next ID.
func (m *Store) InsertJob(_ context.Context, j *job.Job) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextJobID++
	cp := *j
	cp.ID = m.nextJobID
	cp.Data = cloneBytes(j.Data)
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}
	m.jobs[cp.ID] = &cp
	j.ID = cp.ID
	return cp.ID, nil
}

// GetJob retrieves a job by ID.
func (m *Store) GetJob(_ context.Context, jobID int64) (*job.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	j, ok := m.jobs[jobID]
	if !ok {
		return nil, taskpool.ErrJobNotFound
	}
	cp := *j
	return &cp, nil
}

// ListJobs returns non-deleted jobs ordered by ID.
func (m *Store) ListJobs(_ context.Context) ([]*job.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*job.Job, 0, len(m.jobs))
	for _, j := range m.jobs {
		if j.Deleted {
			continue
		}
		cp := *j
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].ID < out[k].ID })
	return out, nil
}

// ──────────────────────────────────────────────────
// Task Store
// ──────────────────────────────────────────────────

// InsertTask stores a pending, unreserved copy of t under the next ID.
func (m *Store) InsertTask(_ context.Context, t *task.Task) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.jobs[t.JobID]; !ok {
		return 0, taskpool.ErrJobNotFound
	}

	now := time.Now().UTC()
	m.nextTaskID++
	cp := *t
	cp.ID = m.nextTaskID
	cp.Data = cloneBytes(t.Data)
	cp.Status = task.StatusPending
	cp.Signature = ""
	cp.CreatedAt = now
	cp.UpdatedAt = now
	m.tasks[cp.ID] = &cp
	t.ID = cp.ID
	return cp.ID, nil
}

// ReserveTasks stamps sig onto up to count pending, unreserved tasks of
// jobID, lowest IDs first. The whole pass runs under the write lock.
func (m *Store) ReserveTasks(_ context.Context, jobID int64, sig task.Signature, count taskpool.Count) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	candidates := make([]*task.Task, 0)
	for _, t := range m.tasks {
		if t.JobID == jobID && t.Status == task.StatusPending && t.Signature.IsZero() {
			candidates = append(candidates, t)
		}
	}
	sort.Slice(candidates, func(i, k int) bool { return candidates[i].ID < candidates[k].ID })

	if !count.Unbounded() && len(candidates) > count.N() {
		candidates = candidates[:count.N()]
	}

	now := time.Now().UTC()
	for _, t := range candidates {
		t.Signature = sig
		t.UpdatedAt = now
	}
	return int64(len(candidates)), nil
}

// TasksBySignature returns copies of the tasks of jobID carrying sig.
func (m *Store) TasksBySignature(_ context.Context, jobID int64, sig task.Signature) ([]*task.Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*task.Task, 0)
	for _, t := range m.tasks {
		if t.JobID == jobID && t.Signature == sig {
			cp := *t
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, k int) bool { return out[i].ID < out[k].ID })
	return out, nil
}

// CloseTask sets the status of a task, optionally requiring a signature.
func (m *Store) CloseTask(_ context.Context, taskID int64, status task.Status, match task.Signature) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tasks[taskID]
	if !match.IsZero() {
		if !ok || t.Signature != match {
			return taskpool.ErrTaskNotReserved
		}
	} else if !ok {
		return taskpool.ErrTaskNotFound
	}

	t.Status = status
	t.UpdatedAt = time.Now().UTC()
	return nil
}

// GetTask retrieves a task by ID.
func (m *Store) GetTask(_ context.Context, taskID int64) (*task.Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.tasks[taskID]
	if !ok {
		return nil, taskpool.ErrTaskNotFound
	}
	cp := *t
	return &cp, nil
}

// TaskStats counts the tasks of jobID by state.
func (m *Store) TaskStats(_ context.Context, jobID int64) (task.Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	st := task.Stats{JobID: jobID}
	for _, t := range m.tasks {
		if t.JobID != jobID {
			continue
		}
		st.Total++
		switch {
		case t.Status == task.StatusDone:
			st.Done++
		case t.Status == task.StatusFailed:
			st.Failed++
		case t.Signature.IsZero():
			st.Pending++
		default:
			st.Reserved++
		}
	}
	return st, nil
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	cp := make([]byte, len(b))
	copy(cp, b)
	return cp
}
