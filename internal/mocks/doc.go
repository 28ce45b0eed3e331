// Package mocks holds hand-written test doubles for the service and auth
// interfaces.
//
// Each mock exposes one function field per interface method. Leaving a field
// nil selects a default: the task service mock keeps tasks in memory and
// applies the same ownership and visibility rules as the real service, so
// handler tests can exercise authorization without a database.
//
//	svc := &mocks.MockTaskService{
//	    InsertFn: func(ctx context.Context, c domain.Caller, text string) (*domain.Task, error) {
//	        return nil, domain.ErrNotAuthorized
//	    },
//	}
package mocks
