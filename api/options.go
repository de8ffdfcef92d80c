package api

import (
	"log/slog"
	"time"

	"github.com/xraph/taskpool/broker"
	"github.com/xraph/taskpool/cron"
)

// Option configures an API.
type Option func(*API)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *API) { a.logger = l }
}

// WithBroker enables the dispatch route.
func WithBroker(b *broker.Broker) Option {
	return func(a *API) { a.broker = b }
}

// WithScheduler enables the schedules route.
func WithScheduler(s *cron.Scheduler) Option {
	return func(a *API) { a.scheduler = s }
}

// WithWatchInterval sets how often the watch feed pushes task counts.
// Default: one second.
func WithWatchInterval(d time.Duration) Option {
	return func(a *API) { a.watchInterval = d }
}
