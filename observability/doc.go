// Package observability provides an OpenTelemetry metrics extension for
// taskpool. The MetricsExtension implements lifecycle hooks and counts
// added jobs and tasks, collected tasks, closed tasks by status, worker
// launches and schedule fires.
//
// For per-task tracing and metrics, see the middleware package:
// middleware.Tracing() and middleware.Metrics().
package observability
