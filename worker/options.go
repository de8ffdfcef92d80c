package worker

import (
	"log/slog"

	"github.com/xraph/taskpool/ext"
	"github.com/xraph/taskpool/middleware"
)

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger of the runner.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// WithMiddleware appends middleware around every Perform call. The first
// middleware is the outermost.
func WithMiddleware(mws ...middleware.Middleware) Option {
	return func(r *Runner) { r.mws = append(r.mws, mws...) }
}

// WithExtensions sets the extension registry notified of performed tasks.
func WithExtensions(reg *ext.Registry) Option {
	return func(r *Runner) { r.extensions = reg }
}
