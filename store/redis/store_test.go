//go:build integration

package redis_test

import (
	"context"
	"testing"

	goredis "github.com/redis/go-redis/v9"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"github.com/xraph/taskpool"
	"github.com/xraph/taskpool/job"
	"github.com/xraph/taskpool/store"
	redisstore "github.com/xraph/taskpool/store/redis"
	"github.com/xraph/taskpool/store/storetest"
	"github.com/xraph/taskpool/task"
)

func setupTestStore(t *testing.T) (*redisstore.Store, *goredis.Client) {
	t.Helper()

	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	if err != nil {
		t.Fatalf("start redis container: %v", err)
	}
	t.Cleanup(func() {
		if termErr := container.Terminate(ctx); termErr != nil {
			t.Logf("terminate container: %v", termErr)
		}
	})

	uri, err := container.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("get connection string: %v", err)
	}
	opts, err := goredis.ParseURL(uri)
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	client := goredis.NewClient(opts)
	t.Cleanup(func() { _ = client.Close() })

	return redisstore.New(client), client
}

func TestConformance(t *testing.T) {
	s, client := setupTestStore(t)

	storetest.Run(t, func(t *testing.T) store.Store {
		if err := client.FlushDB(context.Background()).Err(); err != nil {
			t.Fatalf("flush: %v", err)
		}
		return s
	})
}

func TestCloseRemovesFromOpenSet(t *testing.T) {
	s, _ := setupTestStore(t)
	ctx := context.Background()

	jobID, err := s.InsertJob(ctx, &job.Job{Data: []byte(`{}`)})
	if err != nil {
		t.Fatalf("insert job: %v", err)
	}
	taskID, err := s.InsertTask(ctx, &task.Task{JobID: jobID, Data: []byte("1")})
	if err != nil {
		t.Fatalf("insert task: %v", err)
	}
	if err := s.CloseTask(ctx, taskID, task.StatusDone, ""); err != nil {
		t.Fatalf("close: %v", err)
	}

	n, err := s.ReserveTasks(ctx, jobID, "abc", taskpool.All())
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if n != 0 {
		t.Errorf("closed task was reserved")
	}
}
