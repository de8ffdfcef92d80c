package worker

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"os/exec"

	"github.com/xraph/taskpool/codec"
)

// Noop succeeds on every task.
type Noop struct{}

// Initialize does nothing.
func (Noop) Initialize(context.Context, codec.Payload) error { return nil }

// Perform reports success.
func (Noop) Perform(context.Context, codec.Payload) bool { return true }

// Shell performs every task by running a shell command. The raw job payload
// is exported as TASKPOOL_JOB and the raw task payload is written to the
// command's stdin. A zero exit status means success.
type Shell struct {
	Command string
	Logger  *slog.Logger

	job []byte
}

// Initialize keeps the job payload for the environment of every command.
func (s *Shell) Initialize(_ context.Context, job codec.Payload) error {
	s.job = job.Bytes()
	return nil
}

// Perform runs the command for one task.
func (s *Shell) Perform(ctx context.Context, data codec.Payload) bool {
	cmd := exec.CommandContext(ctx, "/bin/sh", "-c", s.Command)
	cmd.Env = append(os.Environ(), "TASKPOOL_JOB="+string(s.job))
	cmd.Stdin = bytes.NewReader(data.Bytes())
	out, err := cmd.CombinedOutput()
	if err != nil {
		logger := s.Logger
		if logger == nil {
			logger = slog.Default()
		}
		logger.Warn("shell task failed",
			slog.String("command", s.Command),
			slog.String("output", string(out)),
			slog.String("error", err.Error()),
		)
		return false
	}
	return true
}

// Builtins returns a registry holding the built-in workers: "noop" and,
// when command is non-empty, "shell".
func Builtins(command string, logger *slog.Logger) *Registry {
	r := NewRegistry()
	r.Register("noop", Noop{})
	if command != "" {
		r.Register("shell", &Shell{Command: command, Logger: logger})
	}
	return r
}
