package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/simple-todos/internal/api/shared"
	"github.com/phrazzld/simple-todos/internal/domain"
	"github.com/phrazzld/simple-todos/internal/platform/logger"
	"github.com/phrazzld/simple-todos/internal/platform/metrics"
	"github.com/phrazzld/simple-todos/internal/service"
)

// Task method names.
const (
	MethodInsert     = "tasks.insert"
	MethodRemove     = "tasks.remove"
	MethodSetChecked = "tasks.setChecked"
	MethodSetPrivate = "tasks.setPrivate"
)

// ErrInvalidParams is returned when a method call's positional params do not
// match the method's signature.
var ErrInvalidParams = fmt.Errorf("%w: invalid method params", domain.ErrValidation)

// Method runs a named method on behalf of caller.
type Method func(ctx context.Context, caller domain.Caller, params []json.RawMessage) (interface{}, error)

// MethodRegistry holds the named methods callable at /api/methods/{name}.
type MethodRegistry struct {
	mu      sync.RWMutex
	methods map[string]Method
}

// NewMethodRegistry creates an empty registry.
func NewMethodRegistry() *MethodRegistry {
	return &MethodRegistry{methods: make(map[string]Method)}
}

// Register adds a method. It fails if the name is taken.
func (r *MethodRegistry) Register(name string, m Method) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.methods[name]; exists {
		return fmt.Errorf("method already registered: %s", name)
	}
	r.methods[name] = m
	return nil
}

// Find looks up a method by name.
func (r *MethodRegistry) Find(name string) (Method, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.methods[name]
	return m, ok
}

// Names returns the registered method names, sorted.
func (r *MethodRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.methods))
	for name := range r.methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RegisterTaskMethods registers the four task methods backed by svc.
func RegisterTaskMethods(r *MethodRegistry, svc service.TaskService) error {
	methods := map[string]Method{
		MethodInsert: func(ctx context.Context, caller domain.Caller, params []json.RawMessage) (interface{}, error) {
			var text string
			if err := bindParams(params, &text); err != nil {
				return nil, err
			}
			task, err := svc.Insert(ctx, caller, text)
			if err != nil {
				return nil, err
			}
			return taskToResponse(task), nil
		},
		MethodRemove: func(ctx context.Context, caller domain.Caller, params []json.RawMessage) (interface{}, error) {
			var taskID uuid.UUID
			if err := bindParams(params, &taskID); err != nil {
				return nil, err
			}
			return nil, svc.Remove(ctx, caller, taskID)
		},
		MethodSetChecked: func(ctx context.Context, caller domain.Caller, params []json.RawMessage) (interface{}, error) {
			var taskID uuid.UUID
			var checked bool
			if err := bindParams(params, &taskID, &checked); err != nil {
				return nil, err
			}
			task, err := svc.SetChecked(ctx, caller, taskID, checked)
			if err != nil {
				return nil, err
			}
			return taskToResponse(task), nil
		},
		MethodSetPrivate: func(ctx context.Context, caller domain.Caller, params []json.RawMessage) (interface{}, error) {
			var taskID uuid.UUID
			var private bool
			if err := bindParams(params, &taskID, &private); err != nil {
				return nil, err
			}
			task, err := svc.SetPrivate(ctx, caller, taskID, private)
			if err != nil {
				return nil, err
			}
			return taskToResponse(task), nil
		},
	}

	for _, name := range []string{MethodInsert, MethodRemove, MethodSetChecked, MethodSetPrivate} {
		if err := r.Register(name, requireLogin(methods[name])); err != nil {
			return err
		}
	}
	return nil
}

// requireLogin rejects anonymous callers before params are bound.
func requireLogin(m Method) Method {
	return func(ctx context.Context, caller domain.Caller, params []json.RawMessage) (interface{}, error) {
		if !caller.IsAuthenticated() {
			return nil, domain.ErrNotAuthorized
		}
		return m(ctx, caller, params)
	}
}

// bindParams decodes positional params into dst. The count must match.
func bindParams(params []json.RawMessage, dst ...interface{}) error {
	if len(params) != len(dst) {
		return fmt.Errorf("%w: expected %d, got %d", ErrInvalidParams, len(dst), len(params))
	}
	for i, raw := range params {
		if err := json.Unmarshal(raw, dst[i]); err != nil {
			return fmt.Errorf("%w: param %d: %v", ErrInvalidParams, i, err)
		}
	}
	return nil
}

// MethodHandler serves POST /api/methods/{name}.
type MethodHandler struct {
	registry *MethodRegistry
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewMethodHandler creates a MethodHandler. m may be nil.
func NewMethodHandler(registry *MethodRegistry, m *metrics.Metrics, logger *slog.Logger) *MethodHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &MethodHandler{
		registry: registry,
		metrics:  m,
		logger:   logger.With(slog.String("component", "method_handler")),
	}
}

// Call looks up the method named in the path and runs it with the caller from
// the request context.
func (h *MethodHandler) Call(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	name := chi.URLParam(r, "name")
	method, ok := h.registry.Find(name)
	if !ok {
		log.Debug("unknown method", slog.String("method", name))
		shared.RespondWithError(w, r, http.StatusNotFound, fmt.Sprintf("Method '%s' not found", name))
		return
	}

	var req MethodCallRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		return
	}

	result, err := method(r.Context(), shared.CallerFromContext(r.Context()), req.Params)
	recordMethodCall(h.metrics, name, err)
	if err != nil {
		if errors.Is(err, ErrInvalidParams) {
			shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid params for "+name, err)
			return
		}
		HandleAPIError(w, r, err, "Method call failed")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, MethodCallResponse{Method: name, Result: result})
}

func recordMethodCall(m *metrics.Metrics, name string, err error) {
	if m == nil {
		return
	}
	outcome := metrics.OutcomeOK
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrNotAuthorized):
		outcome = metrics.OutcomeNotAuthorized
	default:
		outcome = metrics.OutcomeError
	}
	m.MethodCalls.WithLabelValues(name, outcome).Inc()
}
