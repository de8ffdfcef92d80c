package broker_test

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/xraph/taskpool"
	"github.com/xraph/taskpool/broker"
	"github.com/xraph/taskpool/ext"
	"github.com/xraph/taskpool/id"
	"github.com/xraph/taskpool/launcher"
)

// recordingLauncher records launch arguments and fails on demand.
type recordingLauncher struct {
	mu     sync.Mutex
	calls  []string
	failAt int
}

func (r *recordingLauncher) Launch(_ context.Context, args ...string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAt > 0 && len(r.calls)+1 == r.failAt {
		return "", errors.New("fork failed")
	}
	r.calls = append(r.calls, strings.Join(args, " "))
	return fmt.Sprintf("pid-%d", len(r.calls)), nil
}

func TestExecuteLaunchesNonEmptyShares(t *testing.T) {
	rl := &recordingLauncher{}
	b := broker.New(rl)

	d, err := b.Execute(context.Background(), 9, taskpool.Limit(2), 4)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if d.ID.IsNil() || d.ID.Prefix() != id.PrefixDispatch {
		t.Errorf("unexpected dispatch id %v", d.ID)
	}
	if len(d.Launches) != 2 {
		t.Fatalf("expected 2 launches, got %+v", d.Launches)
	}
	if rl.calls[0] != "9 1" || rl.calls[1] != "9 1" {
		t.Errorf("launch args = %v", rl.calls)
	}
	if d.Launches[0].Handle != "pid-1" || d.Launches[1].Handle != "pid-2" {
		t.Errorf("handles = %+v", d.Launches)
	}
}

func TestExecuteAllUsesSentinelArgument(t *testing.T) {
	rl := &recordingLauncher{}
	d, err := broker.New(rl).Execute(context.Background(), 3, taskpool.All(), 2)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(d.Launches) != 2 || rl.calls[0] != "3 -1" || rl.calls[1] != "3 -1" {
		t.Errorf("launches = %+v, calls = %v", d.Launches, rl.calls)
	}
}

func TestExecuteZeroCountLaunchesNothing(t *testing.T) {
	rl := &recordingLauncher{}
	d, err := broker.New(rl).Execute(context.Background(), 3, taskpool.Limit(0), 3)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(d.Launches) != 0 || len(rl.calls) != 0 {
		t.Errorf("expected no launches, got %+v", d.Launches)
	}
}

func TestExecuteInvalidParts(t *testing.T) {
	rl := &recordingLauncher{}
	_, err := broker.New(rl).Execute(context.Background(), 3, taskpool.Limit(4), 0)
	if !errors.Is(err, taskpool.ErrInvalidParts) {
		t.Fatalf("expected ErrInvalidParts, got %v", err)
	}
	if len(rl.calls) != 0 {
		t.Error("nothing should be launched")
	}
}

func TestExecuteStopsOnLaunchError(t *testing.T) {
	rl := &recordingLauncher{failAt: 2}
	d, err := broker.New(rl).Execute(context.Background(), 1, taskpool.Limit(9), 3)
	if err == nil || !strings.Contains(err.Error(), "fork failed") {
		t.Fatalf("expected launch error, got %v", err)
	}
	if len(d.Launches) != 1 || d.Launches[0].Share != taskpool.Limit(3) {
		t.Errorf("launches = %+v", d.Launches)
	}
}

func TestExecuteLaunchRate(t *testing.T) {
	rl := &recordingLauncher{}
	b := broker.New(rl, broker.WithLaunchRate(rate.Every(20*time.Millisecond), 1))

	start := time.Now()
	if _, err := b.Execute(context.Background(), 1, taskpool.Limit(3), 3); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
		t.Errorf("expected paced launches, took %v", elapsed)
	}
}

func TestExecuteLaunchRateHonoursContext(t *testing.T) {
	rl := &recordingLauncher{}
	b := broker.New(rl, broker.WithLaunchRate(rate.Every(time.Hour), 1))
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	d, err := b.Execute(ctx, 1, taskpool.Limit(2), 2)
	if err == nil {
		t.Fatal("expected rate wait error")
	}
	if len(d.Launches) != 1 {
		t.Errorf("expected the first launch only, got %+v", d.Launches)
	}
}

// launchRecorder collects WorkerLaunched events.
type launchRecorder struct {
	mu      sync.Mutex
	handles []string
	ids     map[string]bool
}

func (l *launchRecorder) Name() string { return "launches" }

func (l *launchRecorder) OnWorkerLaunched(_ context.Context, dispatchID id.DispatchID, _ int64, _ taskpool.Count, handle string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.handles = append(l.handles, handle)
	l.ids[dispatchID.String()] = true
	return nil
}

func TestExecuteEmitsWorkerLaunched(t *testing.T) {
	rec := &launchRecorder{ids: make(map[string]bool)}
	reg := ext.NewRegistry(slog.Default())
	reg.Register(rec)

	var l launcher.Launcher = launcher.Func(func(_ context.Context, args ...string) (string, error) {
		return "h" + args[1], nil
	})
	d, err := broker.New(l, broker.WithExtensions(reg)).Execute(context.Background(), 1, taskpool.Limit(5), 2)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(rec.handles) != 2 || rec.handles[0] != "h3" || rec.handles[1] != "h2" {
		t.Errorf("handles = %v", rec.handles)
	}
	if len(rec.ids) != 1 || !rec.ids[d.ID.String()] {
		t.Errorf("dispatch ids = %v", rec.ids)
	}
}
