package worker_test

import (
	"context"
	"errors"
	"testing"

	"github.com/xraph/taskpool"
	"github.com/xraph/taskpool/worker"
)

func TestParseArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		jobID   int64
		count   taskpool.Count
		wantErr bool
	}{
		{"bounded", []string{"12", "3"}, 12, taskpool.Limit(3), false},
		{"all", []string{"12", "-1"}, 12, taskpool.All(), false},
		{"zero", []string{"1", "0"}, 1, taskpool.Limit(0), false},
		{"missing count", []string{"12"}, 0, taskpool.Count{}, true},
		{"extra", []string{"1", "2", "3"}, 0, taskpool.Count{}, true},
		{"bad job", []string{"x", "2"}, 0, taskpool.Count{}, true},
		{"bad count", []string{"1", "-5"}, 0, taskpool.Count{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			jobID, count, err := worker.ParseArgs(tt.args)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if jobID != tt.jobID || count != tt.count {
				t.Errorf("got (%d, %v), want (%d, %v)", jobID, count, tt.jobID, tt.count)
			}
		})
	}
}

func TestRunMainInvalidCount(t *testing.T) {
	m, _ := setup(t)
	r := worker.NewRunner(m, worker.Noop{})

	_, err := worker.Main(context.Background(), r, []string{"1", "-3"})
	if !errors.Is(err, taskpool.ErrInvalidCount) {
		t.Fatalf("expected ErrInvalidCount, got %v", err)
	}
}

func TestRunMain(t *testing.T) {
	m, jobID := setup(t, 1, 2)
	r := worker.NewRunner(m, worker.Noop{})

	res, err := worker.Main(context.Background(), r, []string{"1", "-1"})
	if err != nil {
		t.Fatalf("main: %v", err)
	}
	if res.JobID != jobID || res.Done != 2 {
		t.Errorf("unexpected result: %+v", res)
	}
}
