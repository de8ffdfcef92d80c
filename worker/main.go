package worker

import (
	"context"
	"fmt"
	"strconv"

	"github.com/xraph/taskpool"
)

// ParseArgs parses the two positional worker arguments: the job id and the
// task count, where -1 means all pending tasks.
func ParseArgs(args []string) (int64, taskpool.Count, error) {
	if len(args) != 2 {
		return 0, taskpool.Count{}, fmt.Errorf("worker: expected <job-id> <count>, got %d arguments", len(args))
	}
	jobID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return 0, taskpool.Count{}, fmt.Errorf("worker: invalid job id %q: %w", args[0], err)
	}
	count, err := taskpool.ParseCountString(args[1])
	if err != nil {
		return 0, taskpool.Count{}, fmt.Errorf("worker: %w", err)
	}
	return jobID, count, nil
}

// Main parses args and executes the run.
func Main(ctx context.Context, r *Runner, args []string) (Result, error) {
	jobID, count, err := ParseArgs(args)
	if err != nil {
		return Result{}, err
	}
	return r.Execute(ctx, jobID, count)
}
