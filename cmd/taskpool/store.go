package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	mysqldriver "github.com/go-sql-driver/mysql"
	goredis "github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	mongod "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/taskpool"
	"github.com/xraph/taskpool/store"
	bunstore "github.com/xraph/taskpool/store/bun"
	"github.com/xraph/taskpool/store/memory"
	mongostore "github.com/xraph/taskpool/store/mongo"
	mysqlstore "github.com/xraph/taskpool/store/mysql"
	"github.com/xraph/taskpool/store/postgres"
	redisstore "github.com/xraph/taskpool/store/redis"
	"github.com/xraph/taskpool/store/sqlite"
)

const defaultMongoDatabase = "taskpool"

// ownedStore closes a client the store itself leaves open.
type ownedStore struct {
	store.Store
	release func() error
}

func (s ownedStore) Close() error {
	return errors.Join(s.Store.Close(), s.release())
}

// openStore connects the backend named by cfg.Driver.
func openStore(ctx context.Context, cfg taskpool.StoreConfig, logger *slog.Logger) (store.Store, error) {
	switch cfg.Driver {
	case "memory":
		return memory.New(), nil

	case "sqlite":
		return sqlite.New(cfg.DSN, sqlite.WithLogger(logger))

	case "mysql":
		dsn, err := mysqlCredentials(cfg)
		if err != nil {
			return nil, err
		}
		return mysqlstore.New(dsn, mysqlstore.WithLogger(logger))

	case "postgres":
		dsn, err := urlCredentials(cfg)
		if err != nil {
			return nil, err
		}
		return postgres.New(ctx, dsn, postgres.WithLogger(logger))

	case "bun":
		dsn, err := urlCredentials(cfg)
		if err != nil {
			return nil, err
		}
		sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
		db := bun.NewDB(sqldb, pgdialect.New())
		return ownedStore{Store: bunstore.New(db, bunstore.WithLogger(logger)), release: db.Close}, nil

	case "redis":
		opts, err := goredis.ParseURL(cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("redis: parse dsn: %w", err)
		}
		if cfg.Username != "" {
			opts.Username = cfg.Username
		}
		if cfg.Password != "" {
			opts.Password = cfg.Password
		}
		client := goredis.NewClient(opts)
		return ownedStore{Store: redisstore.New(client, redisstore.WithLogger(logger)), release: client.Close}, nil

	case "mongo":
		return openMongo(cfg, logger)

	case "":
		return nil, taskpool.ErrNoStore

	default:
		return nil, fmt.Errorf("%w: %q", taskpool.ErrUnknownDriver, cfg.Driver)
	}
}

func openMongo(cfg taskpool.StoreConfig, logger *slog.Logger) (store.Store, error) {
	u, err := url.Parse(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("mongo: parse dsn: %w", err)
	}
	name := strings.TrimPrefix(u.Path, "/")
	if name == "" {
		name = defaultMongoDatabase
	}

	copts := options.Client().ApplyURI(cfg.DSN)
	if cfg.Username != "" {
		copts.SetAuth(options.Credential{Username: cfg.Username, Password: cfg.Password})
	}
	client, err := mongod.Connect(copts)
	if err != nil {
		return nil, fmt.Errorf("mongo: connect: %w", err)
	}
	release := func() error { return client.Disconnect(context.Background()) }
	return ownedStore{Store: mongostore.New(client.Database(name), mongostore.WithLogger(logger)), release: release}, nil
}

// urlCredentials applies the configured user and password to a URL dsn.
func urlCredentials(cfg taskpool.StoreConfig) (string, error) {
	if cfg.Username == "" && cfg.Password == "" {
		return cfg.DSN, nil
	}
	u, err := url.Parse(cfg.DSN)
	if err != nil {
		return "", fmt.Errorf("%s: parse dsn: %w", cfg.Driver, err)
	}
	user := cfg.Username
	if user == "" && u.User != nil {
		user = u.User.Username()
	}
	u.User = url.UserPassword(user, cfg.Password)
	return u.String(), nil
}

func mysqlCredentials(cfg taskpool.StoreConfig) (string, error) {
	if cfg.Username == "" && cfg.Password == "" {
		return cfg.DSN, nil
	}
	mc, err := mysqldriver.ParseDSN(cfg.DSN)
	if err != nil {
		return "", fmt.Errorf("mysql: parse dsn: %w", err)
	}
	if cfg.Username != "" {
		mc.User = cfg.Username
	}
	if cfg.Password != "" {
		mc.Passwd = cfg.Password
	}
	return mc.FormatDSN(), nil
}
