// Package launcher starts background workers for the broker.
//
// A Launcher starts one worker run with the given positional arguments and
// returns as soon as the run has started. It never waits for the run to
// finish and reports only an identity for the run: a process id, a
// Kubernetes Job name or a local run name.
//
// Implementations live in the sub-packages process, local and k8s.
package launcher

import "context"

// Launcher starts detached worker runs.
type Launcher interface {
	// Launch starts one run with args and returns its handle.
	Launch(ctx context.Context, args ...string) (string, error)
}

// Func adapts a function to the Launcher interface.
type Func func(ctx context.Context, args ...string) (string, error)

// Launch calls f.
func (f Func) Launch(ctx context.Context, args ...string) (string, error) {
	return f(ctx, args...)
}
