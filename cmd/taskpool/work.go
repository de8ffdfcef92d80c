package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/xraph/taskpool/middleware"
	"github.com/xraph/taskpool/worker"
)

// workerFlags select the worker logic of a run.
type workerFlags struct {
	name    string
	command string
	timeout time.Duration
}

func (w *workerFlags) bind(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&w.name, "worker", envString("TASKPOOL_WORKER", "noop"), "worker logic: noop or shell")
	f.StringVar(&w.command, "shell-command", envString("TASKPOOL_SHELL_COMMAND", ""), "command run per task by the shell worker")
	f.DurationVar(&w.timeout, "task-timeout", envDuration("TASKPOOL_TASK_TIMEOUT", 0), "per task time limit, 0 disables it")
}

func newWorkCmd(a *app) *cobra.Command {
	w := &workerFlags{}
	cmd := &cobra.Command{
		Use:   "work <job-id> <count>",
		Short: "Collect and perform tasks of a job",
		Long:  "Collect up to count tasks of the job (-1 for all pending tasks) and perform them one by one.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.work(cmd.Context(), w, args)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "run %s: collected %d, done %d, failed %d\n",
				res.RunID, res.Collected, res.Done, res.Failed)
			return nil
		},
	}
	// Flags precede the positional arguments so a count of -1 is not
	// taken for a flag.
	cmd.Flags().SetInterspersed(false)
	w.bind(cmd)
	return cmd
}

// work performs one worker run. Every run builds its own worker so runs
// sharing the process do not share worker state.
func (a *app) work(ctx context.Context, w *workerFlags, args []string) (worker.Result, error) {
	m, err := a.pool(ctx)
	if err != nil {
		return worker.Result{}, err
	}
	impl, err := worker.Builtins(w.command, a.logger).MustGet(w.name)
	if err != nil {
		return worker.Result{}, err
	}

	mws := []middleware.Middleware{
		middleware.Recover(a.logger),
		middleware.Logging(a.logger),
		middleware.Tracing(),
		middleware.Metrics(),
	}
	if w.timeout > 0 {
		mws = append(mws, middleware.Timeout(w.timeout))
	}
	r := worker.NewRunner(m, impl,
		worker.WithLogger(a.logger),
		worker.WithExtensions(a.exts),
		worker.WithMiddleware(mws...),
	)
	return worker.Main(ctx, r, args)
}
