// Package domain contains the core business entities of the to-do service:
// users, tasks, and the caller identity on whose behalf task methods run.
// Authorization rules that depend only on entity state (ownership and
// visibility) live here so the service and publication layers share them.
package domain
