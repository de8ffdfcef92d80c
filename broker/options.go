package broker

import (
	"log/slog"

	"golang.org/x/time/rate"

	"github.com/xraph/taskpool/ext"
)

// Option configures a Broker.
type Option func(*Broker)

// WithLogger sets the logger of the broker.
func WithLogger(l *slog.Logger) Option {
	return func(b *Broker) { b.logger = l }
}

// WithExtensions sets the extension registry notified of launches.
func WithExtensions(reg *ext.Registry) Option {
	return func(b *Broker) { b.extensions = reg }
}

// WithLaunchRate paces launches with a token bucket of the given rate and
// burst. A zero or infinite limit disables pacing; a burst below one is
// raised to one.
func WithLaunchRate(limit rate.Limit, burst int) Option {
	return func(b *Broker) {
		if limit <= 0 || limit == rate.Inf {
			b.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		b.limiter = rate.NewLimiter(limit, burst)
	}
}
