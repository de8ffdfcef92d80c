package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/xraph/taskpool"
	"github.com/xraph/taskpool/job"
	"github.com/xraph/taskpool/store"
	"github.com/xraph/taskpool/store/storetest"
	"github.com/xraph/taskpool/task"
)

func TestConformance(t *testing.T) {
	storetest.Run(t, func(_ *testing.T) store.Store { return New() })
}

func TestPingAfterClose(t *testing.T) {
	t.Parallel()
	s := New()
	ctx := context.Background()

	if err := s.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := s.Ping(ctx); !errors.Is(err, taskpool.ErrStoreClosed) {
		t.Fatalf("expected ErrStoreClosed, got %v", err)
	}
}

func TestInsertCopiesInput(t *testing.T) {
	t.Parallel()
	s := New()
	ctx := context.Background()

	data := []byte(`{"name":"batch1"}`)
	j := &job.Job{Data: data}
	jobID, err := s.InsertJob(ctx, j)
	if err != nil {
		t.Fatalf("insert job: %v", err)
	}
	if j.ID != jobID {
		t.Errorf("expected input ID to be set to %d, got %d", jobID, j.ID)
	}
	data[0] = 'X'

	got, err := s.GetJob(ctx, jobID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if string(got.Data) != `{"name":"batch1"}` {
		t.Errorf("stored data aliased caller buffer: %q", got.Data)
	}
}

func TestInsertTaskResetsState(t *testing.T) {
	t.Parallel()
	s := New()
	ctx := context.Background()

	jobID, err := s.InsertJob(ctx, &job.Job{})
	if err != nil {
		t.Fatalf("insert job: %v", err)
	}
	taskID, err := s.InsertTask(ctx, &task.Task{
		JobID:     jobID,
		Status:    task.StatusDone,
		Signature: "deadbeef",
	})
	if err != nil {
		t.Fatalf("insert task: %v", err)
	}
	got, err := s.GetTask(ctx, taskID)
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if got.Status != task.StatusPending || !got.Signature.IsZero() {
		t.Errorf("expected pending unreserved task, got %q / %q", got.Status, got.Signature)
	}
}

func TestReserveZero(t *testing.T) {
	t.Parallel()
	s := New()
	ctx := context.Background()

	jobID, err := s.InsertJob(ctx, &job.Job{})
	if err != nil {
		t.Fatalf("insert job: %v", err)
	}
	if _, err := s.InsertTask(ctx, &task.Task{JobID: jobID}); err != nil {
		t.Fatalf("insert task: %v", err)
	}
	n, err := s.ReserveTasks(ctx, jobID, "abc", taskpool.Limit(0))
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if n != 0 {
		t.Errorf("reserved %d tasks with a zero limit", n)
	}
}
