// Package storetest is a conformance suite for store.Store backends.
// Every backend's tests call Run with a constructor that returns a fresh,
// migrated, empty store.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/xraph/taskpool"
	"github.com/xraph/taskpool/job"
	"github.com/xraph/taskpool/store"
	"github.com/xraph/taskpool/task"
)

// Factory returns a fresh, migrated, empty store.
type Factory func(t *testing.T) store.Store

// Run executes the conformance suite against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Helper()

	tests := []struct {
		name string
		fn   func(t *testing.T, s store.Store)
	}{
		{"Lifecycle", testLifecycle},
		{"JobInsertAndGet", testJobInsertAndGet},
		{"ListJobsSkipsDeleted", testListJobsSkipsDeleted},
		{"TaskInsertAndGet", testTaskInsertAndGet},
		{"TaskInsertUnknownJob", testTaskInsertUnknownJob},
		{"ReserveBounded", testReserveBounded},
		{"ReserveAll", testReserveAll},
		{"ReserveSkipsClosed", testReserveSkipsClosed},
		{"ReserveConcurrent", testReserveConcurrent},
		{"CloseTask", testCloseTask},
		{"CloseTaskWithSignature", testCloseTaskWithSignature},
		{"TaskStats", testTaskStats},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, newStore(t))
		})
	}
}

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

func mustJob(t *testing.T, s store.Store, data string) int64 {
	t.Helper()
	jobID, err := s.InsertJob(context.Background(), &job.Job{Data: []byte(data)})
	if err != nil {
		t.Fatalf("insert job: %v", err)
	}
	return jobID
}

func mustTasks(t *testing.T, s store.Store, jobID int64, n int) []int64 {
	t.Helper()
	ids := make([]int64, 0, n)
	for i := 1; i <= n; i++ {
		taskID, err := s.InsertTask(context.Background(), &task.Task{
			JobID: jobID,
			Data:  []byte(fmt.Sprintf("%d", i)),
		})
		if err != nil {
			t.Fatalf("insert task: %v", err)
		}
		ids = append(ids, taskID)
	}
	return ids
}

func mustSignature(t *testing.T) task.Signature {
	t.Helper()
	sig, err := task.NewSignature()
	if err != nil {
		t.Fatalf("signature: %v", err)
	}
	return sig
}

func reserve(t *testing.T, s store.Store, jobID int64, count taskpool.Count) []*task.Task {
	t.Helper()
	ctx := context.Background()
	sig := mustSignature(t)
	n, err := s.ReserveTasks(ctx, jobID, sig, count)
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	tasks, err := s.TasksBySignature(ctx, jobID, sig)
	if err != nil {
		t.Fatalf("tasks by signature: %v", err)
	}
	if int64(len(tasks)) != n {
		t.Fatalf("reserved %d tasks but read back %d", n, len(tasks))
	}
	for i, tk := range tasks {
		if tk.Signature != sig {
			t.Errorf("task %d carries signature %q, want %q", tk.ID, tk.Signature, sig)
		}
		if i > 0 && tasks[i-1].ID >= tk.ID {
			t.Errorf("tasks not ordered by id: %d before %d", tasks[i-1].ID, tk.ID)
		}
	}
	return tasks
}

// ──────────────────────────────────────────────────
// Cases
// ──────────────────────────────────────────────────

func testLifecycle(t *testing.T, s store.Store) {
	ctx := context.Background()
	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
	if err := s.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}
}

func testJobInsertAndGet(t *testing.T, s store.Store) {
	ctx := context.Background()
	first := mustJob(t, s, `{"name":"batch1"}`)
	second := mustJob(t, s, `{}`)
	if second <= first {
		t.Fatalf("expected increasing ids, got %d then %d", first, second)
	}

	got, err := s.GetJob(ctx, first)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if got.ID != first || string(got.Data) != `{"name":"batch1"}` || got.Deleted {
		t.Errorf("unexpected job: %+v", got)
	}

	_, err = s.GetJob(ctx, second+1000)
	if !errors.Is(err, taskpool.ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
}

func testListJobsSkipsDeleted(t *testing.T, s store.Store) {
	ctx := context.Background()
	a := mustJob(t, s, `"a"`)
	deleted, err := s.InsertJob(ctx, &job.Job{Data: []byte(`"gone"`), Deleted: true})
	if err != nil {
		t.Fatalf("insert deleted job: %v", err)
	}
	c := mustJob(t, s, `"c"`)

	jobs, err := s.ListJobs(ctx)
	if err != nil {
		t.Fatalf("list jobs: %v", err)
	}
	if len(jobs) != 2 || jobs[0].ID != a || jobs[1].ID != c {
		t.Fatalf("expected jobs [%d %d], got %+v", a, c, jobs)
	}

	// Soft-deleted jobs stay readable by id.
	got, err := s.GetJob(ctx, deleted)
	if err != nil {
		t.Fatalf("get deleted job: %v", err)
	}
	if !got.Deleted {
		t.Error("expected deleted flag to round-trip")
	}
}

func testTaskInsertAndGet(t *testing.T, s store.Store) {
	ctx := context.Background()
	jobID := mustJob(t, s, `{}`)
	ids := mustTasks(t, s, jobID, 2)

	got, err := s.GetTask(ctx, ids[1])
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if got.JobID != jobID || string(got.Data) != "2" {
		t.Errorf("unexpected task: %+v", got)
	}
	if got.Status != task.StatusPending || !got.Signature.IsZero() {
		t.Errorf("new task should be pending and unreserved, got %q / %q", got.Status, got.Signature)
	}

	_, err = s.GetTask(ctx, ids[1]+1000)
	if !errors.Is(err, taskpool.ErrTaskNotFound) {
		t.Fatalf("expected ErrTaskNotFound, got %v", err)
	}
}

func testTaskInsertUnknownJob(t *testing.T, s store.Store) {
	jobID := mustJob(t, s, `{}`)
	_, err := s.InsertTask(context.Background(), &task.Task{JobID: jobID + 1000, Data: []byte("1")})
	if !errors.Is(err, taskpool.ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
}

func testReserveBounded(t *testing.T, s store.Store) {
	jobID := mustJob(t, s, `{}`)
	mustTasks(t, s, jobID, 5)

	first := reserve(t, s, jobID, taskpool.Limit(3))
	if len(first) != 3 {
		t.Fatalf("expected 3 tasks, got %d", len(first))
	}
	second := reserve(t, s, jobID, taskpool.Limit(3))
	if len(second) != 2 {
		t.Fatalf("expected 2 remaining tasks, got %d", len(second))
	}
	third := reserve(t, s, jobID, taskpool.Limit(3))
	if len(third) != 0 {
		t.Fatalf("expected no tasks, got %d", len(third))
	}

	seen := make(map[int64]bool)
	for _, tk := range append(first, second...) {
		if seen[tk.ID] {
			t.Fatalf("task %d reserved twice", tk.ID)
		}
		seen[tk.ID] = true
	}
}

func testReserveAll(t *testing.T, s store.Store) {
	jobID := mustJob(t, s, `{}`)
	other := mustJob(t, s, `{}`)
	ids := mustTasks(t, s, jobID, 4)
	mustTasks(t, s, other, 3)

	got := reserve(t, s, jobID, taskpool.All())
	if len(got) != len(ids) {
		t.Fatalf("expected %d tasks, got %d", len(ids), len(got))
	}
	for i, tk := range got {
		if tk.JobID != jobID {
			t.Errorf("task %d belongs to job %d", tk.ID, tk.JobID)
		}
		if tk.ID != ids[i] {
			t.Errorf("position %d: got task %d, want %d", i, tk.ID, ids[i])
		}
	}

	// The other job's tasks are untouched.
	st, err := s.TaskStats(context.Background(), other)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st.Pending != 3 || st.Reserved != 0 {
		t.Errorf("other job stats changed: %+v", st)
	}
}

func testReserveSkipsClosed(t *testing.T, s store.Store) {
	ctx := context.Background()
	jobID := mustJob(t, s, `{}`)
	ids := mustTasks(t, s, jobID, 3)

	if err := s.CloseTask(ctx, ids[0], task.StatusDone, ""); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := s.CloseTask(ctx, ids[1], task.StatusFailed, ""); err != nil {
		t.Fatalf("close: %v", err)
	}

	got := reserve(t, s, jobID, taskpool.All())
	if len(got) != 1 || got[0].ID != ids[2] {
		t.Fatalf("expected only task %d, got %+v", ids[2], got)
	}
}

func testReserveConcurrent(t *testing.T, s store.Store) {
	const (
		total   = 60
		workers = 8
		each    = 7
	)
	jobID := mustJob(t, s, `{}`)
	mustTasks(t, s, jobID, total)

	var (
		mu    sync.Mutex
		wg    sync.WaitGroup
		owner = make(map[int64]int)
		sum   int64
		errs  = make(chan error, workers)
	)

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			ctx := context.Background()
			sig, err := task.NewSignature()
			if err != nil {
				errs <- err
				return
			}
			n, err := s.ReserveTasks(ctx, jobID, sig, taskpool.Limit(each))
			if err != nil {
				errs <- err
				return
			}
			tasks, err := s.TasksBySignature(ctx, jobID, sig)
			if err != nil {
				errs <- err
				return
			}

			mu.Lock()
			defer mu.Unlock()
			sum += n
			for _, tk := range tasks {
				if prev, dup := owner[tk.ID]; dup {
					errs <- fmt.Errorf("task %d claimed by workers %d and %d", tk.ID, prev, w)
					return
				}
				owner[tk.ID] = w
			}
		}(w)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
	if int64(len(owner)) != sum {
		t.Errorf("union of claimed tasks = %d, sum of reserved = %d", len(owner), sum)
	}
	if sum != workers*each {
		t.Errorf("expected %d tasks reserved, got %d", workers*each, sum)
	}
}

func testCloseTask(t *testing.T, s store.Store) {
	ctx := context.Background()
	jobID := mustJob(t, s, `{}`)
	ids := mustTasks(t, s, jobID, 2)

	for _, status := range []task.Status{task.StatusDone, task.StatusFailed} {
		if err := s.CloseTask(ctx, ids[0], status, ""); err != nil {
			t.Fatalf("close %s: %v", status, err)
		}
		got, err := s.GetTask(ctx, ids[0])
		if err != nil {
			t.Fatalf("get task: %v", err)
		}
		if got.Status != status {
			t.Errorf("status = %q, want %q", got.Status, status)
		}
	}

	// Closing twice with the same status is accepted.
	if err := s.CloseTask(ctx, ids[0], task.StatusFailed, ""); err != nil {
		t.Fatalf("idempotent close: %v", err)
	}

	err := s.CloseTask(ctx, ids[1]+1000, task.StatusDone, "")
	if !errors.Is(err, taskpool.ErrTaskNotFound) {
		t.Fatalf("expected ErrTaskNotFound, got %v", err)
	}
}

func testCloseTaskWithSignature(t *testing.T, s store.Store) {
	ctx := context.Background()
	jobID := mustJob(t, s, `{}`)
	ids := mustTasks(t, s, jobID, 2)

	reserved := reserve(t, s, jobID, taskpool.Limit(1))
	if len(reserved) != 1 || reserved[0].ID != ids[0] {
		t.Fatalf("expected task %d reserved, got %+v", ids[0], reserved)
	}
	sig := reserved[0].Signature

	// Wrong signature on a reserved task.
	err := s.CloseTask(ctx, ids[0], task.StatusDone, mustSignature(t))
	if !errors.Is(err, taskpool.ErrTaskNotReserved) {
		t.Fatalf("expected ErrTaskNotReserved, got %v", err)
	}
	// Unreserved task.
	err = s.CloseTask(ctx, ids[1], task.StatusDone, sig)
	if !errors.Is(err, taskpool.ErrTaskNotReserved) {
		t.Fatalf("expected ErrTaskNotReserved for unreserved task, got %v", err)
	}

	if err := s.CloseTask(ctx, ids[0], task.StatusDone, sig); err != nil {
		t.Fatalf("close with signature: %v", err)
	}
	got, err := s.GetTask(ctx, ids[0])
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if got.Status != task.StatusDone || got.Signature != sig {
		t.Errorf("unexpected task after close: %+v", got)
	}
}

func testTaskStats(t *testing.T, s store.Store) {
	ctx := context.Background()
	jobID := mustJob(t, s, `{}`)
	ids := mustTasks(t, s, jobID, 6)

	reserve(t, s, jobID, taskpool.Limit(3))
	if err := s.CloseTask(ctx, ids[0], task.StatusDone, ""); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := s.CloseTask(ctx, ids[1], task.StatusFailed, ""); err != nil {
		t.Fatalf("close: %v", err)
	}

	st, err := s.TaskStats(ctx, jobID)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	want := task.Stats{JobID: jobID, Pending: 3, Reserved: 1, Done: 1, Failed: 1, Total: 6}
	if st != want {
		t.Errorf("stats = %+v, want %+v", st, want)
	}
	if st.Open() != 4 {
		t.Errorf("open = %d, want 4", st.Open())
	}
}
