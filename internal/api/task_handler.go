package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/phrazzld/simple-todos/internal/api/shared"
	"github.com/phrazzld/simple-todos/internal/domain"
	"github.com/phrazzld/simple-todos/internal/platform/logger"
	"github.com/phrazzld/simple-todos/internal/platform/metrics"
	"github.com/phrazzld/simple-todos/internal/service"
	"github.com/phrazzld/simple-todos/internal/store"
)

// HideCompletedParam is the query parameter that drops checked tasks from
// the publication snapshot.
const HideCompletedParam = "hide_completed"

// TaskHandler exposes the task methods and the publication snapshot over
// REST-style routes.
type TaskHandler struct {
	taskService service.TaskService
	metrics     *metrics.Metrics
	logger      *slog.Logger
}

// NewTaskHandler creates a new TaskHandler. m may be nil.
func NewTaskHandler(taskService service.TaskService, m *metrics.Metrics, logger *slog.Logger) *TaskHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for TaskHandler")
	}
	return &TaskHandler{
		taskService: taskService,
		metrics:     m,
		logger:      logger.With(slog.String("component", "task_handler")),
	}
}

// ListTasks handles GET /api/tasks.
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	filter, err := parseTaskFilter(r)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid hide_completed value", err)
		return
	}

	view, err := h.taskService.Visible(r.Context(), shared.CallerFromContext(r.Context()), filter)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list tasks")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, TaskListResponse{
		Tasks:           tasksToResponse(view.Tasks),
		IncompleteCount: view.IncompleteCount,
	})
}

// CreateTask handles POST /api/tasks (tasks.insert).
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	caller, ok := h.requireCaller(w, r, MethodInsert)
	if !ok {
		return
	}

	var req CreateTaskRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	task, err := h.taskService.Insert(r.Context(), caller, req.Text)
	recordMethodCall(h.metrics, MethodInsert, err)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to create task")
		return
	}

	log.Debug("task created", slog.String("task_id", task.ID.String()))
	shared.RespondWithJSON(w, r, http.StatusCreated, taskToResponse(task))
}

// DeleteTask handles DELETE /api/tasks/{id} (tasks.remove).
func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.requireCaller(w, r, MethodRemove)
	if !ok {
		return
	}

	taskID, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	err = h.taskService.Remove(r.Context(), caller, taskID)
	recordMethodCall(h.metrics, MethodRemove, err)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to remove task")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// SetChecked handles PUT /api/tasks/{id}/checked (tasks.setChecked).
func (h *TaskHandler) SetChecked(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.requireCaller(w, r, MethodSetChecked)
	if !ok {
		return
	}

	taskID, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	var req SetCheckedRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	task, err := h.taskService.SetChecked(r.Context(), caller, taskID, *req.Checked)
	recordMethodCall(h.metrics, MethodSetChecked, err)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to update task")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, taskToResponse(task))
}

// SetPrivate handles PUT /api/tasks/{id}/private (tasks.setPrivate).
func (h *TaskHandler) SetPrivate(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.requireCaller(w, r, MethodSetPrivate)
	if !ok {
		return
	}

	taskID, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	var req SetPrivateRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	task, err := h.taskService.SetPrivate(r.Context(), caller, taskID, *req.Private)
	recordMethodCall(h.metrics, MethodSetPrivate, err)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to update task")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, taskToResponse(task))
}

// requireCaller answers anonymous mutations with not-authorized before the
// request body is looked at, so a bad body never masks the 403.
func (h *TaskHandler) requireCaller(w http.ResponseWriter, r *http.Request, method string) (domain.Caller, bool) {
	caller := shared.CallerFromContext(r.Context())
	if caller.IsAuthenticated() {
		return caller, true
	}
	recordMethodCall(h.metrics, method, domain.ErrNotAuthorized)
	HandleAPIError(w, r, domain.ErrNotAuthorized, "")
	return domain.Anonymous, false
}

func parseTaskFilter(r *http.Request) (store.TaskFilter, error) {
	var filter store.TaskFilter
	raw := r.URL.Query().Get(HideCompletedParam)
	if raw == "" {
		return filter, nil
	}
	hide, err := strconv.ParseBool(raw)
	if err != nil {
		return filter, err
	}
	filter.HideCompleted = hide
	return filter, nil
}
