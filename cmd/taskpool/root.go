package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/xraph/taskpool"
	"github.com/xraph/taskpool/codec"
	"github.com/xraph/taskpool/ext"
	"github.com/xraph/taskpool/manager"
	"github.com/xraph/taskpool/observability"
	"github.com/xraph/taskpool/store"
)

// app carries the state shared by all commands of one invocation.
type app struct {
	cfg       taskpool.Config
	logLevel  string
	logFormat string
	rate      float64

	out    io.Writer
	logger *slog.Logger
	exts   *ext.Registry

	store   store.Store
	manager *manager.Manager
}

func newRootCmd(out io.Writer) *cobra.Command {
	a := &app{cfg: taskpool.DefaultConfig(), out: out}

	root := &cobra.Command{
		Use:           "taskpool",
		Short:         "A job and task pool with background workers",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd.ErrOrStderr())
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return a.close()
		},
	}
	root.SetOut(out)

	cfg := &a.cfg
	f := root.PersistentFlags()
	f.StringVar(&cfg.Store.Driver, "driver", envString("TASKPOOL_DRIVER", cfg.Store.Driver), "store driver: memory, sqlite, mysql, postgres, bun, redis or mongo")
	f.StringVar(&cfg.Store.DSN, "dsn", envString("TASKPOOL_DSN", cfg.Store.DSN), "store connection string")
	f.StringVar(&cfg.Store.Username, "username", envString("TASKPOOL_USERNAME", ""), "store user, overrides the dsn")
	f.StringVar(&cfg.Store.Password, "password", envString("TASKPOOL_PASSWORD", ""), "store password, overrides the dsn")
	f.StringVar(&cfg.Codec, "codec", envString("TASKPOOL_CODEC", cfg.Codec), "payload codec: json or msgpack")
	f.StringVar(&a.logLevel, "log-level", envString("TASKPOOL_LOG_LEVEL", "info"), "log level: debug, info, warn or error")
	f.StringVar(&a.logFormat, "log-format", envString("TASKPOOL_LOG_FORMAT", "text"), "log format: text or json")
	f.StringVar(&cfg.Launch.Mode, "launch-mode", envString("TASKPOOL_LAUNCH_MODE", cfg.Launch.Mode), "worker launcher: process, local or k8s")
	f.StringVar(&cfg.Launch.Command, "launch-command", envString("TASKPOOL_LAUNCH_COMMAND", cfg.Launch.Command), "worker command template for the process launcher")
	f.StringVar(&cfg.Launch.Output, "launch-output", envString("TASKPOOL_LAUNCH_OUTPUT", cfg.Launch.Output), "file receiving the output of launched processes")
	f.Float64Var(&a.rate, "launch-rate", envFloat("TASKPOOL_LAUNCH_RATE", 0), "launches per second, 0 disables pacing")
	f.IntVar(&cfg.Launch.Burst, "launch-burst", envInt("TASKPOOL_LAUNCH_BURST", cfg.Launch.Burst), "launch burst used with --launch-rate")
	f.StringVar(&cfg.Launch.Namespace, "namespace", envString("TASKPOOL_NAMESPACE", cfg.Launch.Namespace), "kubernetes namespace of worker jobs")
	f.StringVar(&cfg.Launch.Image, "image", envString("TASKPOOL_IMAGE", ""), "container image of worker jobs")
	f.DurationVar(&cfg.WatchInterval, "watch-interval", envDuration("TASKPOOL_WATCH_INTERVAL", cfg.WatchInterval), "interval of the status feed")
	f.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout", envDuration("TASKPOOL_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout), "graceful shutdown bound")

	root.AddCommand(
		newMigrateCmd(a),
		newAddJobCmd(a),
		newAddTaskCmd(a),
		newJobsCmd(a),
		newStatusCmd(a),
		newDispatchCmd(a),
		newWorkCmd(a),
		newServeCmd(a),
		newWatchCmd(a),
		newScheduleCmd(a),
	)
	return root
}

func (a *app) setup(stderr io.Writer) error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(a.logLevel)); err != nil {
		return fmt.Errorf("invalid --log-level %q: %w", a.logLevel, err)
	}
	hopts := &slog.HandlerOptions{Level: level}
	switch a.logFormat {
	case "text":
		a.logger = slog.New(slog.NewTextHandler(stderr, hopts))
	case "json":
		a.logger = slog.New(slog.NewJSONHandler(stderr, hopts))
	default:
		return fmt.Errorf("invalid --log-format %q", a.logFormat)
	}

	a.cfg.Launch.Rate = rate.Limit(a.rate)
	a.exts = ext.NewRegistry(a.logger)
	a.exts.Register(observability.NewMetricsExtension())
	return nil
}

// pool opens the store and builds the manager on first use.
func (a *app) pool(ctx context.Context) (*manager.Manager, error) {
	if a.manager != nil {
		return a.manager, nil
	}
	c, err := codec.Get(a.cfg.Codec)
	if err != nil {
		return nil, err
	}
	s, err := openStore(ctx, a.cfg.Store, a.logger)
	if err != nil {
		return nil, err
	}
	a.store = s
	a.manager = manager.New(s,
		manager.WithLogger(a.logger),
		manager.WithCodec(c),
		manager.WithExtensions(a.exts),
	)
	return a.manager, nil
}

func (a *app) close() error {
	if a.store == nil {
		return nil
	}
	err := a.store.Close()
	a.store, a.manager = nil, nil
	return err
}

// ──────────────────────────────────────────────────
// Environment fallbacks
// ──────────────────────────────────────────────────

func envString(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if f, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return f
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return d
	}
	return def
}
