// Package api handles incoming HTTP requests, routing, request validation,
// and response formatting. It acts as an adapter between external clients
// and the task and account services.
//
// The task methods are reachable two ways: REST-style routes under
// /api/tasks, and named method calls at /api/methods/{name} whose body is
// {"params": [...]}. The tasks publication is served as a snapshot at
// GET /api/tasks and as a live websocket feed at /api/tasks/subscribe.
package api
