package taskpool

import (
	"time"

	"golang.org/x/time/rate"
)

// StoreConfig describes how to reach the task store.
type StoreConfig struct {
	// Driver selects the backend: memory, sqlite, mysql, postgres, bun,
	// redis or mongo.
	Driver string

	// DSN is the connection descriptor understood by the driver.
	DSN string

	// Username and Password override credentials embedded in DSN when set.
	Username string
	Password string
}

// LaunchConfig describes how dispatched workers are started.
type LaunchConfig struct {
	// Mode selects the launcher: process, local or k8s.
	Mode string

	// Command is the worker command template. The job id and share are
	// appended as the last two arguments.
	Command string

	// Output receives the stdout and stderr of launched processes.
	Output string

	// Rate paces launches per second. Zero disables pacing.
	Rate rate.Limit

	// Burst is the token-bucket burst used with Rate.
	Burst int

	// Namespace and Image are used by the k8s launcher.
	Namespace string
	Image     string
}

// Config holds configuration shared by the taskpool components.
type Config struct {
	Store  StoreConfig
	Launch LaunchConfig

	// Codec names the payload codec: json or msgpack.
	Codec string

	// WatchInterval is how often the status feed pushes job stats.
	WatchInterval time.Duration

	// ShutdownTimeout bounds graceful shutdown of long-running commands.
	ShutdownTimeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Store: StoreConfig{
			Driver: "sqlite",
			DSN:    "file:taskpool.db?_busy_timeout=5000",
		},
		Launch: LaunchConfig{
			Mode:      "process",
			Command:   "taskpool work",
			Output:    "/dev/null",
			Burst:     1,
			Namespace: "default",
		},
		Codec:           "json",
		WatchInterval:   time.Second,
		ShutdownTimeout: 30 * time.Second,
	}
}
