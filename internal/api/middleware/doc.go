// Package middleware contains the HTTP middleware of the API: caller
// identification, trace IDs with request-scoped loggers, Prometheus request
// metrics and per-client rate limiting.
package middleware
