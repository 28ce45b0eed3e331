// Package logger configures the process-wide log/slog JSON logger and
// threads per-request loggers through context.Context, so every line written
// while serving a request carries its trace_id.
package logger
