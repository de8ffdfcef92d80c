package manager

import (
	"log/slog"

	"github.com/xraph/taskpool/codec"
	"github.com/xraph/taskpool/ext"
)

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithCodec sets the payload codec. Default: JSON.
func WithCodec(c codec.Codec) Option {
	return func(m *Manager) { m.codec = c }
}

// WithExtensions sets the extension registry notified of pool events.
func WithExtensions(r *ext.Registry) Option {
	return func(m *Manager) { m.extensions = r }
}
