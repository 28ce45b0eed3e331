// Package store defines the persistence interfaces for users and tasks, the
// errors their implementations return, and the transaction helper the
// services use to make an ownership check and a write atomic.
//
// Implementations live in internal/platform/postgres.
package store
