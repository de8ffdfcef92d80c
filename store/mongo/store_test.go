//go:build integration

package mongo_test

import (
	"context"
	"testing"

	tcmongo "github.com/testcontainers/testcontainers-go/modules/mongodb"
	mongod "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/taskpool/store"
	"github.com/xraph/taskpool/store/mongo"
	"github.com/xraph/taskpool/store/storetest"
)

func setupTestDatabase(t *testing.T) *mongod.Database {
	t.Helper()

	ctx := context.Background()

	container, err := tcmongo.Run(ctx, "mongo:7")
	if err != nil {
		t.Fatalf("start mongo container: %v", err)
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
	client, err := mongod.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { _ = client.Disconnect(ctx) })

	return client.Database("taskpool_test")
}

func TestConformance(t *testing.T) {
	db := setupTestDatabase(t)

	storetest.Run(t, func(t *testing.T) store.Store {
		ctx := context.Background()
		if err := db.Drop(ctx); err != nil {
			t.Fatalf("drop: %v", err)
		}
		s := mongo.New(db)
		if err := s.Migrate(ctx); err != nil {
			t.Fatalf("migrate: %v", err)
		}
		return s
	})
}
