// Package events carries task change notifications from the mutation
// methods to whoever renders the live tasks publication.
//
// The service layer emits a TaskEvent after every committed mutation. The
// emitter fans it out synchronously to registered handlers; handlers must
// not block, since they run on the mutating request's goroutine.
package events
