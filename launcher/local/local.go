// Package local runs workers as goroutines of the current process.
package local

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/xraph/taskpool/launcher"
)

var _ launcher.Launcher = (*Launcher)(nil)

// RunFunc performs one worker run with the launch arguments.
type RunFunc func(ctx context.Context, args []string) error

// Launcher runs every launch on its own goroutine. Runs are detached from
// the launch context's cancellation but keep its values.
type Launcher struct {
	run    RunFunc
	group  errgroup.Group
	seq    atomic.Int64
	logger *slog.Logger
}

// Option configures a Launcher.
type Option func(*Launcher)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(ll *Launcher) { ll.logger = l }
}

// New creates a Launcher calling run for every launch.
func New(run RunFunc, opts ...Option) *Launcher {
	l := &Launcher{run: run, logger: slog.Default()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Launch starts run on a new goroutine and returns a handle of the form
// "local-N".
func (l *Launcher) Launch(ctx context.Context, args ...string) (string, error) {
	handle := fmt.Sprintf("local-%d", l.seq.Add(1))
	runCtx := context.WithoutCancel(ctx)
	argv := append([]string(nil), args...)

	l.group.Go(func() error {
		if err := l.run(runCtx, argv); err != nil {
			l.logger.Warn("local worker failed",
				slog.String("handle", handle),
				slog.String("error", err.Error()),
			)
			return fmt.Errorf("%s: %w", handle, err)
		}
		return nil
	})
	return handle, nil
}

// Wait blocks until all launched runs finished and returns the first error.
func (l *Launcher) Wait() error {
	return l.group.Wait()
}
