// Package service contains the application use cases: the four task methods,
// the tasks publication query, and account registration and login.
//
// Authorization lives here. Handlers pass the caller through unchanged, and
// every task method decides on its own whether that caller may act, returning
// domain.ErrNotAuthorized otherwise. Mutations lock the task row inside a
// transaction so the ownership check and the write see the same state.
//
// Services depend on the store interfaces, never on a concrete database.
package service
