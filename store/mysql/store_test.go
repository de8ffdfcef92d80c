//go:build integration

package mysql_test

import (
	"context"
	"log/slog"
	"testing"

	tcmysql "github.com/testcontainers/testcontainers-go/modules/mysql"

	"github.com/xraph/taskpool/store"
	"github.com/xraph/taskpool/store/mysql"
	"github.com/xraph/taskpool/store/storetest"
)

// setupTestStore starts a MySQL container and returns a migrated Store.
func setupTestStore(t *testing.T) *mysql.Store {
	t.Helper()

	ctx := context.Background()

	container, err := tcmysql.Run(ctx,
		"mysql:8.0",
		tcmysql.WithDatabase("taskpool_test"),
		tcmysql.WithUsername("test"),
		tcmysql.WithPassword("test"),
	)
	if err != nil {
		t.Fatalf("start mysql container: %v", err)
	}
	t.Cleanup(func() {
		if termErr := container.Terminate(ctx); termErr != nil {
			t.Logf("terminate container: %v", termErr)
		}
	})

	dsn, err := container.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("get connection string: %v", err)
	}

	s, err := mysql.New(dsn, mysql.WithLogger(slog.Default()))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	if migErr := s.Migrate(ctx); migErr != nil {
		t.Fatalf("migrate: %v", migErr)
	}
	return s
}

func TestConformance(t *testing.T) {
	s := setupTestStore(t)

	storetest.Run(t, func(t *testing.T) store.Store {
		ctx := context.Background()
		for _, table := range []string{"taskpool_tasks", "taskpool_jobs"} {
			if _, err := s.DB().ExecContext(ctx, "DELETE FROM "+table); err != nil {
				t.Fatalf("clear %s: %v", table, err)
			}
		}
		return s
	})
}
