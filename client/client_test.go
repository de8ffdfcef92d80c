package client_test

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/xraph/taskpool"
	"github.com/xraph/taskpool/api"
	"github.com/xraph/taskpool/client"
	"github.com/xraph/taskpool/manager"
	"github.com/xraph/taskpool/store/memory"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupClientTest(t *testing.T) (*client.Client, *manager.Manager) {
	t.Helper()
	mgr := manager.New(memory.New(), manager.WithLogger(testLogger()))
	a := api.New(mgr, api.WithLogger(testLogger()), api.WithWatchInterval(10*time.Millisecond))
	ts := httptest.NewServer(a.Handler())
	t.Cleanup(ts.Close)
	return client.New(ts.URL, client.WithLogger(testLogger())), mgr
}

func TestStats(t *testing.T) {
	c, mgr := setupClientTest(t)
	ctx := context.Background()
	jobID, _ := mgr.AddJob(ctx, "job")
	_, _ = mgr.AddTask(ctx, jobID, 1)

	st, err := c.Stats(ctx, jobID)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st.Pending != 1 || st.JobID != jobID {
		t.Errorf("stats = %+v", st)
	}

	if _, err := c.Stats(ctx, 404); err == nil || !strings.Contains(err.Error(), "job not found") {
		t.Errorf("expected not found error, got %v", err)
	}
}

func TestWatchUntilDone(t *testing.T) {
	c, mgr := setupClientTest(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	jobID, _ := mgr.AddJob(ctx, "job")
	for i := 0; i < 3; i++ {
		_, _ = mgr.AddTask(ctx, jobID, i)
	}

	ch, err := c.Watch(ctx, jobID)
	if err != nil {
		t.Fatalf("watch: %v", err)
	}

	first, ok := <-ch
	if !ok || first.Pending != 3 {
		t.Fatalf("first snapshot = %+v (ok=%v)", first, ok)
	}

	tasks, err := mgr.CollectTasks(ctx, jobID, taskpool.All())
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	for _, tk := range tasks {
		_ = mgr.CloseReserved(ctx, tk, "")
	}

	var last = first
	for st := range ch {
		last = st
	}
	if last.Done != 3 || last.Open() != 0 {
		t.Errorf("last snapshot = %+v", last)
	}
}

func TestWatchCancel(t *testing.T) {
	c, mgr := setupClientTest(t)
	ctx, cancel := context.WithCancel(context.Background())

	jobID, _ := mgr.AddJob(ctx, "job")
	_, _ = mgr.AddTask(ctx, jobID, 1)

	ch, err := c.Watch(ctx, jobID)
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	<-ch
	cancel()

	timeout := time.After(5 * time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-timeout:
			t.Fatal("channel not closed after cancel")
		}
	}
}

func TestWatchUnknownJob(t *testing.T) {
	c, _ := setupClientTest(t)
	if _, err := c.Watch(context.Background(), 77); err == nil {
		t.Fatal("expected dial error for unknown job")
	}
}
