package broker

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"golang.org/x/time/rate"

	"github.com/xraph/taskpool"
	"github.com/xraph/taskpool/ext"
	"github.com/xraph/taskpool/id"
	"github.com/xraph/taskpool/launcher"
)

// Launch records one started worker.
type Launch struct {
	Share  taskpool.Count `json:"share"`
	Handle string         `json:"handle"`
}

// Dispatch is the outcome of one Execute call.
type Dispatch struct {
	ID       id.DispatchID `json:"id"`
	JobID    int64         `json:"job_id"`
	Launches []Launch      `json:"launches"`
}

// Shares returns the share of every launch in launch order.
func (d Dispatch) Shares() []taskpool.Count {
	out := make([]taskpool.Count, len(d.Launches))
	for i, l := range d.Launches {
		out[i] = l.Share
	}
	return out
}

// Broker launches background workers for the shares of a job.
type Broker struct {
	launcher   launcher.Launcher
	limiter    *rate.Limiter
	extensions *ext.Registry
	logger     *slog.Logger
}

// New creates a Broker starting workers through l.
func New(l launcher.Launcher, opts ...Option) *Broker {
	b := &Broker{
		launcher: l,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.extensions == nil {
		b.extensions = ext.NewRegistry(b.logger)
	}
	return b
}

// Execute partitions count into parts shares and launches one worker per
// non-empty share with the arguments (jobID, share). It returns once every
// worker has been started.
//
// A launch error stops the remaining launches. The returned Dispatch then
// lists the workers that were already started; they keep running.
func (b *Broker) Execute(ctx context.Context, jobID int64, count taskpool.Count, parts int) (Dispatch, error) {
	d := Dispatch{ID: id.NewDispatchID(), JobID: jobID}

	shares, err := Partition(count, parts)
	if err != nil {
		return d, err
	}

	logger := b.logger.With(
		slog.String("dispatch_id", d.ID.String()),
		slog.Int64("job_id", jobID),
	)

	for i, share := range shares {
		if share.IsZero() {
			continue
		}
		if b.limiter != nil {
			if err := b.limiter.Wait(ctx); err != nil {
				return d, fmt.Errorf("dispatch job %d: share %d: %w", jobID, i, err)
			}
		}

		handle, err := b.launcher.Launch(ctx, strconv.FormatInt(jobID, 10), strconv.Itoa(share.Int()))
		if err != nil {
			logger.Error("worker launch failed",
				slog.Int("share_index", i),
				slog.String("share", share.String()),
				slog.Int("launched", len(d.Launches)),
				slog.String("error", err.Error()),
			)
			return d, fmt.Errorf("dispatch job %d: share %d: %w", jobID, i, err)
		}

		d.Launches = append(d.Launches, Launch{Share: share, Handle: handle})
		logger.Debug("worker launched",
			slog.String("share", share.String()),
			slog.String("handle", handle),
		)
		b.extensions.EmitWorkerLaunched(ctx, d.ID, jobID, share, handle)
	}

	logger.Info("job dispatched",
		slog.String("count", count.String()),
		slog.Int("parts", parts),
		slog.Int("launched", len(d.Launches)),
	)
	return d, nil
}
