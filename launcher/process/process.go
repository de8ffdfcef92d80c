// Package process launches workers as detached operating system processes.
package process

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"github.com/xraph/taskpool/launcher"
)

var _ launcher.Launcher = (*Launcher)(nil)

const defaultOutput = "/dev/null"

// Launcher starts a command template once per launch. The launch arguments
// are appended to the template's argv. Processes run in their own session
// with stdout and stderr sent to the output file, and are reaped in the
// background.
type Launcher struct {
	argv   []string
	output string
	dir    string
	env    []string
	logger *slog.Logger

	reapers sync.WaitGroup
}

// New creates a Launcher for command. The command is split on white space;
// quoting is not interpreted.
func New(command string, opts ...Option) (*Launcher, error) {
	argv := strings.Fields(command)
	if len(argv) == 0 {
		return nil, errors.New("process: empty command")
	}
	l := &Launcher{
		argv:   argv,
		output: defaultOutput,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Launch starts the process and returns its pid. The process is not bound
// to ctx and keeps running after the caller returns.
func (l *Launcher) Launch(_ context.Context, args ...string) (string, error) {
	out, err := os.OpenFile(l.output, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return "", fmt.Errorf("process: open output %q: %w", l.output, err)
	}
	defer out.Close()

	argv := make([]string, 0, len(l.argv)+len(args))
	argv = append(argv, l.argv...)
	argv = append(argv, args...)

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Stdout = out
	cmd.Stderr = out
	cmd.Dir = l.dir
	if len(l.env) > 0 {
		cmd.Env = append(os.Environ(), l.env...)
	}
	detach(cmd)

	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("process: start %q: %w", argv[0], err)
	}
	pid := cmd.Process.Pid

	l.reapers.Add(1)
	go func() {
		defer l.reapers.Done()
		err := cmd.Wait()
		if err != nil {
			l.logger.Warn("worker process exited with error",
				slog.Int("pid", pid),
				slog.String("error", err.Error()),
			)
			return
		}
		l.logger.Debug("worker process exited", slog.Int("pid", pid))
	}()

	return strconv.Itoa(pid), nil
}

// Wait blocks until every process started so far has exited.
func (l *Launcher) Wait() {
	l.reapers.Wait()
}
