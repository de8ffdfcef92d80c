package process

import "log/slog"

// Option configures a Launcher.
type Option func(*Launcher)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Launcher) { p.logger = l }
}

// WithOutput sets the file receiving stdout and stderr of launched
// processes. The file is created if needed and appended to.
// Default: "/dev/null".
func WithOutput(path string) Option {
	return func(p *Launcher) { p.output = path }
}

// WithDir sets the working directory of launched processes.
func WithDir(dir string) Option {
	return func(p *Launcher) { p.dir = dir }
}

// WithEnv adds KEY=value entries to the environment inherited by launched
// processes.
func WithEnv(kv ...string) Option {
	return func(p *Launcher) { p.env = append(p.env, kv...) }
}
