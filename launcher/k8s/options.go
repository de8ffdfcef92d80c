package k8s

import "log/slog"

// Option configures a Launcher.
type Option func(*Launcher)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(k *Launcher) { k.logger = l }
}

// WithCommand sets the container entrypoint. The launch arguments become the
// container args. Default: the image entrypoint with args "work".
func WithCommand(cmd ...string) Option {
	return func(k *Launcher) { k.command = cmd }
}

// WithLabels adds labels to every created Job and its Pod template.
func WithLabels(labels map[string]string) Option {
	return func(k *Launcher) {
		for key, v := range labels {
			k.labels[key] = v
		}
	}
}

// WithServiceAccount sets the service account of the worker Pods.
func WithServiceAccount(name string) Option {
	return func(k *Launcher) { k.serviceAccount = name }
}

// WithTTLAfterFinished sets how long finished Jobs are kept before the
// cluster deletes them. A negative value keeps them forever.
// Default: 3600 seconds.
func WithTTLAfterFinished(seconds int32) Option {
	return func(k *Launcher) { k.ttlSeconds = seconds }
}

// WithNamePrefix sets the prefix of generated Job names.
// Default: "taskpool-worker".
func WithNamePrefix(prefix string) Option {
	return func(k *Launcher) { k.namePrefix = prefix }
}

// WithEnv sets environment variables of the worker container.
func WithEnv(env map[string]string) Option {
	return func(k *Launcher) {
		for key, v := range env {
			k.env[key] = v
		}
	}
}
