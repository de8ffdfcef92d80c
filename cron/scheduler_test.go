package cron

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/xraph/taskpool"
	"github.com/xraph/taskpool/id"
)

// dispatchSpy records dispatch calls.
type dispatchSpy struct {
	mu    sync.Mutex
	calls []dispatchCall
	err   error
}

type dispatchCall struct {
	JobID int64
	Count taskpool.Count
	Parts int
}

func (d *dispatchSpy) Fn() DispatchFunc {
	return func(_ context.Context, jobID int64, count taskpool.Count, parts int) (id.DispatchID, error) {
		d.mu.Lock()
		defer d.mu.Unlock()
		if d.err != nil {
			return id.Nil, d.err
		}
		d.calls = append(d.calls, dispatchCall{JobID: jobID, Count: count, Parts: parts})
		return id.NewDispatchID(), nil
	}
}

func (d *dispatchSpy) Count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.calls)
}

// stubEmitter records EmitScheduleFired calls.
type stubEmitter struct {
	mu    sync.Mutex
	names []string
}

func (e *stubEmitter) EmitScheduleFired(_ context.Context, entryName string, _ id.DispatchID) {
	e.mu.Lock()
	e.names = append(e.names, entryName)
	e.mu.Unlock()
}

func newTestScheduler(spy *dispatchSpy, opts ...SchedulerOption) (*Scheduler, *time.Time) {
	clock := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	s := NewScheduler(spy.Fn(), opts...)
	s.now = func() time.Time { return clock }
	return s, &clock
}

func TestRegisterComputesNextRun(t *testing.T) {
	s, clock := newTestScheduler(&dispatchSpy{})

	e, err := s.Register(Definition{Name: "hourly", Schedule: "@hourly", JobID: 1, Count: taskpool.All()})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if e.Parts != 1 || !e.Enabled || e.ID.Prefix() != id.PrefixSchedule {
		t.Errorf("unexpected entry %+v", e)
	}
	if want := clock.Add(time.Hour); !e.NextRunAt.Equal(want) {
		t.Errorf("next run = %v, want %v", e.NextRunAt, want)
	}
}

func TestRegisterValidation(t *testing.T) {
	s, _ := newTestScheduler(&dispatchSpy{})
	if _, err := s.Register(Definition{Name: "a", Schedule: "@hourly"}); err != nil {
		t.Fatalf("register: %v", err)
	}

	tests := []struct {
		name string
		def  Definition
		want error
	}{
		{"duplicate", Definition{Name: "a", Schedule: "@daily"}, taskpool.ErrDuplicateSchedule},
		{"bad expression", Definition{Name: "b", Schedule: "every tuesday"}, taskpool.ErrInvalidSchedule},
		{"negative parts", Definition{Name: "c", Schedule: "@daily", Parts: -2}, taskpool.ErrInvalidParts},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.Register(tt.def); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
	if _, err := s.Register(Definition{Schedule: "@daily"}); err == nil {
		t.Error("expected error for missing name")
	}
}

func TestTickFiresDueEntries(t *testing.T) {
	spy := &dispatchSpy{}
	em := &stubEmitter{}
	s, clock := newTestScheduler(spy, WithEmitter(em))

	if _, err := s.Register(Definition{Name: "every-5m", Schedule: "*/5 * * * *", JobID: 7, Count: taskpool.Limit(10), Parts: 2}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := s.Register(Definition{Name: "daily", Schedule: "@daily", JobID: 8, Count: taskpool.All()}); err != nil {
		t.Fatalf("register: %v", err)
	}

	ctx := context.Background()
	s.tick(ctx, clock.Add(time.Minute))
	if spy.Count() != 0 {
		t.Fatalf("nothing should be due yet, got %d dispatches", spy.Count())
	}

	s.tick(ctx, clock.Add(5*time.Minute))
	if spy.Count() != 1 {
		t.Fatalf("expected 1 dispatch, got %d", spy.Count())
	}
	call := spy.calls[0]
	if call.JobID != 7 || call.Count != taskpool.Limit(10) || call.Parts != 2 {
		t.Errorf("unexpected dispatch %+v", call)
	}
	if len(em.names) != 1 || em.names[0] != "every-5m" {
		t.Errorf("emitted = %v", em.names)
	}

	// Same instant again: next run moved forward.
	s.tick(ctx, clock.Add(5*time.Minute))
	if spy.Count() != 1 {
		t.Errorf("entry fired twice for the same slot")
	}

	for _, e := range s.Entries() {
		if e.Name == "every-5m" {
			if e.LastRunAt == nil || !e.NextRunAt.Equal(clock.Add(10*time.Minute)) {
				t.Errorf("unexpected entry state %+v", e)
			}
		}
	}
}

func TestTickMissedRunsFireOnce(t *testing.T) {
	spy := &dispatchSpy{}
	s, clock := newTestScheduler(spy)
	if _, err := s.Register(Definition{Name: "m", Schedule: "@every 1m", JobID: 1, Count: taskpool.All()}); err != nil {
		t.Fatalf("register: %v", err)
	}

	s.tick(context.Background(), clock.Add(time.Hour))
	if spy.Count() != 1 {
		t.Fatalf("expected a single catch-up dispatch, got %d", spy.Count())
	}
}

func TestDisabledEntriesDoNotFire(t *testing.T) {
	spy := &dispatchSpy{}
	s, clock := newTestScheduler(spy)
	if _, err := s.Register(Definition{Name: "m", Schedule: "@every 1m", JobID: 1, Count: taskpool.All()}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := s.SetEnabled("m", false); err != nil {
		t.Fatalf("disable: %v", err)
	}
	s.tick(context.Background(), clock.Add(2*time.Minute))
	if spy.Count() != 0 {
		t.Fatalf("disabled entry fired")
	}

	*clock = clock.Add(2 * time.Minute)
	if err := s.SetEnabled("m", true); err != nil {
		t.Fatalf("enable: %v", err)
	}
	s.tick(context.Background(), clock.Add(time.Minute))
	if spy.Count() != 1 {
		t.Fatalf("expected dispatch after re-enable, got %d", spy.Count())
	}

	if err := s.SetEnabled("missing", true); !errors.Is(err, taskpool.ErrScheduleNotFound) {
		t.Errorf("expected ErrScheduleNotFound, got %v", err)
	}
}

func TestRemove(t *testing.T) {
	s, _ := newTestScheduler(&dispatchSpy{})
	if _, err := s.Register(Definition{Name: "m", Schedule: "@hourly"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := s.Remove("m"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if len(s.Entries()) != 0 {
		t.Error("entry still listed")
	}
	if err := s.Remove("m"); !errors.Is(err, taskpool.ErrScheduleNotFound) {
		t.Errorf("expected ErrScheduleNotFound, got %v", err)
	}
}

func TestDispatchErrorDoesNotEmit(t *testing.T) {
	spy := &dispatchSpy{err: errors.New("launcher down")}
	em := &stubEmitter{}
	s, clock := newTestScheduler(spy, WithEmitter(em))
	if _, err := s.Register(Definition{Name: "m", Schedule: "@every 1m", JobID: 1, Count: taskpool.All()}); err != nil {
		t.Fatalf("register: %v", err)
	}

	s.tick(context.Background(), clock.Add(time.Minute))
	if len(em.names) != 0 {
		t.Errorf("emitted %v after failed dispatch", em.names)
	}
}

func TestStartStop(t *testing.T) {
	spy := &dispatchSpy{}
	s := NewScheduler(spy.Fn(), WithTickInterval(10*time.Millisecond))
	if _, err := s.Register(Definition{Name: "fast", Schedule: "@every 1s", JobID: 1, Count: taskpool.All()}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for spy.Count() == 0 && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if spy.Count() == 0 {
		t.Fatal("expected at least one dispatch")
	}
}
