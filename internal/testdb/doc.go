//go:build integration

// Package testdb provides utilities specifically for database testing.
// Tests using it are compiled only with the integration build tag and are
// skipped when no database URL is configured.
package testdb
