package cron

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	cronlib "github.com/robfig/cron/v3"

	"github.com/xraph/taskpool"
	"github.com/xraph/taskpool/id"
)

// DispatchFunc runs one dispatch and returns its id.
type DispatchFunc func(ctx context.Context, jobID int64, count taskpool.Count, parts int) (id.DispatchID, error)

// Emitter emits schedule lifecycle events.
// ext.Registry satisfies this interface via EmitScheduleFired.
type Emitter interface {
	EmitScheduleFired(ctx context.Context, entryName string, dispatchID id.DispatchID)
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithTickInterval sets how often the scheduler checks for due entries.
func WithTickInterval(d time.Duration) SchedulerOption {
	return func(s *Scheduler) { s.tickInterval = d }
}

// WithLogger sets the logger of the scheduler.
func WithLogger(l *slog.Logger) SchedulerOption {
	return func(s *Scheduler) { s.logger = l }
}

// WithEmitter sets the receiver of ScheduleFired events.
func WithEmitter(e Emitter) SchedulerOption {
	return func(s *Scheduler) { s.emitter = e }
}

// cronParser supports standard 5-field cron and descriptors like "@every 30s".
var cronParser = cronlib.NewParser(
	cronlib.Minute | cronlib.Hour | cronlib.Dom | cronlib.Month | cronlib.Dow | cronlib.Descriptor,
)

// ParseSchedule parses a cron expression and returns the schedule.
func ParseSchedule(expr string) (cronlib.Schedule, error) {
	sched, err := cronParser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", taskpool.ErrInvalidSchedule, expr, err)
	}
	return sched, nil
}

// Scheduler fires registered entries on a tick loop.
type Scheduler struct {
	dispatch DispatchFunc
	emitter  Emitter
	logger   *slog.Logger

	tickInterval time.Duration

	mu        sync.Mutex
	entries   map[string]*Entry
	schedules map[string]cronlib.Schedule
	now       func() time.Time

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewScheduler creates a Scheduler calling dispatch for due entries.
func NewScheduler(dispatch DispatchFunc, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		dispatch:     dispatch,
		logger:       slog.Default(),
		tickInterval: time.Second,
		entries:      make(map[string]*Entry),
		schedules:    make(map[string]cronlib.Schedule),
		now:          func() time.Time { return time.Now().UTC() },
		stopCh:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register adds an enabled entry for def. Its first run is the first
// schedule time after now.
func (s *Scheduler) Register(def Definition) (*Entry, error) {
	if def.Name == "" {
		return nil, fmt.Errorf("cron: entry name is required")
	}
	sched, err := ParseSchedule(def.Schedule)
	if err != nil {
		return nil, err
	}
	parts := def.Parts
	if parts == 0 {
		parts = 1
	}
	if parts < 0 {
		return nil, fmt.Errorf("%w: %d", taskpool.ErrInvalidParts, parts)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[def.Name]; ok {
		return nil, fmt.Errorf("%w: %q", taskpool.ErrDuplicateSchedule, def.Name)
	}

	now := s.now()
	next := sched.Next(now)
	e := &Entry{
		ID:        id.NewScheduleID(),
		Name:      def.Name,
		Schedule:  def.Schedule,
		JobID:     def.JobID,
		Count:     def.Count,
		Parts:     parts,
		Enabled:   true,
		NextRunAt: &next,
		CreatedAt: now,
	}
	s.entries[e.Name] = e
	s.schedules[e.Name] = sched

	cp := *e
	return &cp, nil
}

// Remove deletes the entry with the given name.
func (s *Scheduler) Remove(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[name]; !ok {
		return fmt.Errorf("%w: %q", taskpool.ErrScheduleNotFound, name)
	}
	delete(s.entries, name)
	delete(s.schedules, name)
	return nil
}

// SetEnabled enables or disables the entry with the given name. Re-enabled
// entries resume from the next schedule time after now.
func (s *Scheduler) SetEnabled(name string, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[name]
	if !ok {
		return fmt.Errorf("%w: %q", taskpool.ErrScheduleNotFound, name)
	}
	if enabled && !e.Enabled {
		next := s.schedules[name].Next(s.now())
		e.NextRunAt = &next
	}
	e.Enabled = enabled
	return nil
}

// Entries returns copies of all entries ordered by name.
func (s *Scheduler) Entries() []*Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Entry, 0, len(s.entries))
	for _, e := range s.entries {
		cp := *e
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Start launches the tick goroutine.
func (s *Scheduler) Start(_ context.Context) error {
	s.wg.Add(1)
	go s.tickLoop()
	s.logger.Info("cron scheduler started",
		slog.Duration("tick_interval", s.tickInterval),
	)
	return nil
}

// Stop signals the scheduler to stop and waits for the tick goroutine.
func (s *Scheduler) Stop(_ context.Context) error {
	close(s.stopCh)
	s.wg.Wait()
	s.logger.Info("cron scheduler stopped")
	return nil
}

func (s *Scheduler) tickLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.tick(context.Background(), s.now())
		}
	}
}

// tick fires every enabled entry due at now. Entries that missed several
// runs fire once.
func (s *Scheduler) tick(ctx context.Context, now time.Time) {
	s.mu.Lock()
	var due []Entry
	for name, e := range s.entries {
		if !e.Enabled || e.NextRunAt == nil || e.NextRunAt.After(now) {
			continue
		}
		next := s.schedules[name].Next(now)
		last := now
		e.LastRunAt = &last
		e.NextRunAt = &next
		due = append(due, *e)
	}
	s.mu.Unlock()

	sort.Slice(due, func(i, j int) bool { return due[i].Name < due[j].Name })
	for i := range due {
		s.fire(ctx, &due[i])
	}
}

func (s *Scheduler) fire(ctx context.Context, e *Entry) {
	dispatchID, err := s.dispatch(ctx, e.JobID, e.Count, e.Parts)
	if err != nil {
		s.logger.Error("scheduled dispatch failed",
			slog.String("entry", e.Name),
			slog.Int64("job_id", e.JobID),
			slog.String("error", err.Error()),
		)
		return
	}

	if s.emitter != nil {
		s.emitter.EmitScheduleFired(ctx, e.Name, dispatchID)
	}
	s.logger.Info("schedule fired",
		slog.String("entry", e.Name),
		slog.Int64("job_id", e.JobID),
		slog.String("dispatch_id", dispatchID.String()),
	)
}
