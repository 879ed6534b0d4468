package task

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/FACorreiaa/go-taskflow-api/internal/api"
	"github.com/FACorreiaa/go-taskflow-api/internal/api/auth"
	"github.com/FACorreiaa/go-taskflow-api/internal/types"
)

var _ Handler = (*HandlerImpl)(nil)

type Handler interface {
	CreateTask(w http.ResponseWriter, r *http.Request)
	ListTasks(w http.ResponseWriter, r *http.Request)
	UpdateTask(w http.ResponseWriter, r *http.Request)
	DeleteTask(w http.ResponseWriter, r *http.Request)
	AssignTask(w http.ResponseWriter, r *http.Request)
}

type HandlerImpl struct {
	taskService Service
	logger      *slog.Logger
}

func NewHandlerImpl(taskService Service, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{
		taskService: taskService,
		logger:      logger,
	}
}

// callerIdentity pulls the authenticated user's id and role out of the
// request context. The auth middleware guarantees both are present on
// protected routes.
func callerIdentity(r *http.Request) (uuid.UUID, types.Role, error) {
	idStr, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		return uuid.Nil, "", errors.New("user ID missing from context")
	}
	userID, err := uuid.Parse(idStr)
	if err != nil {
		return uuid.Nil, "", err
	}
	roleStr, ok := auth.GetUserRoleFromContext(r.Context())
	if !ok {
		return uuid.Nil, "", errors.New("role missing from context")
	}
	return userID, types.Role(roleStr), nil
}

func parseListFilter(values url.Values) (types.TaskListFilter, error) {
	var f types.TaskListFilter

	if v := values.Get("status"); v != "" {
		if !types.ValidStatus(v) {
			return f, errors.New("invalid status filter")
		}
		status := types.TaskStatus(v)
		f.Status = &status
	}
	if v := values.Get("priority"); v != "" {
		if !types.ValidPriority(v) {
			return f, errors.New("invalid priority filter")
		}
		priority := types.TaskPriority(v)
		f.Priority = &priority
	}
	f.Search = values.Get("search")
	if v := values.Get("dueDateFrom"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return f, errors.New("dueDateFrom must be an RFC3339 timestamp")
		}
		f.DueDateFrom = &t
	}
	if v := values.Get("dueDateTo"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return f, errors.New("dueDateTo must be an RFC3339 timestamp")
		}
		f.DueDateTo = &t
	}
	f.SortBy = values.Get("sortBy")
	f.SortOrder = values.Get("sortOrder")
	return f, nil
}

// writeServiceError maps the service error taxonomy onto HTTP responses.
func writeServiceError(w http.ResponseWriter, r *http.Request, l *slog.Logger, err error) {
	switch {
	case errors.Is(err, types.ErrNotFound):
		api.ErrorResponse(w, r, http.StatusNotFound, "Task not found")
	case errors.Is(err, types.ErrForbidden):
		api.ErrorResponse(w, r, http.StatusForbidden, "You do not have permission to perform this action")
	case errors.Is(err, types.ErrValidation):
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
	default:
		l.ErrorContext(r.Context(), "Task operation failed", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Server error")
	}
}

// CreateTask godoc
// @Summary      Create Task
// @Description  Creates a task assigned to an existing user. Status always starts as Pending.
// @Tags         Tasks
// @Accept       json
// @Produce      json
// @Param        payload body types.CreateTaskRequest true "Task Parameters"
// @Success      201 {object} types.Task "Created Task"
// @Failure      400 {object} types.Response "Validation Error"
// @Security     BearerAuth
// @Router       /tasks [post]
func (h *HandlerImpl) CreateTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "CreateTask"))

	userID, _, err := callerIdentity(r)
	if err != nil {
		l.ErrorContext(ctx, "Failed to resolve caller", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req types.CreateTaskRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.WarnContext(ctx, "Failed to decode request", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	created, err := h.taskService.Create(ctx, userID, req)
	if err != nil {
		writeServiceError(w, r, l, err)
		return
	}

	api.WriteJSONResponse(w, r, http.StatusCreated, created)
}

// ListTasks godoc
// @Summary      List Tasks
// @Description  Lists tasks visible to the caller's role, with optional filters and sorting.
// @Tags         Tasks
// @Produce      json
// @Param        status      query string false "Status filter"
// @Param        priority    query string false "Priority filter"
// @Param        search      query string false "Substring match on title/description"
// @Param        dueDateFrom query string false "RFC3339 lower bound on due date"
// @Param        dueDateTo   query string false "RFC3339 upper bound on due date"
// @Param        sortBy      query string false "Sort column" Enums(createdAt, updatedAt, dueDate, priority, status, title)
// @Param        sortOrder   query string false "asc or desc"
// @Success      200 {array} types.Task "Tasks"
// @Failure      400 {object} types.Response "Invalid Filter"
// @Security     BearerAuth
// @Router       /tasks [get]
func (h *HandlerImpl) ListTasks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "ListTasks"))

	userID, role, err := callerIdentity(r)
	if err != nil {
		l.ErrorContext(ctx, "Failed to resolve caller", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	filter, err := parseListFilter(r.URL.Query())
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	tasks, err := h.taskService.List(ctx, userID, role, filter)
	if err != nil {
		writeServiceError(w, r, l, err)
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, tasks)
}

// UpdateTask godoc
// @Summary      Update Task
// @Description  Partially updates a task. Permission is checked against the task's pre-update state.
// @Tags         Tasks
// @Accept       json
// @Produce      json
// @Param        id path string true "Task ID"
// @Param        payload body types.UpdateTaskRequest true "Fields to update"
// @Success      200 {object} types.Task "Updated Task"
// @Failure      400 {object} types.Response "Validation Error"
// @Failure      403 {object} types.Response "Forbidden"
// @Failure      404 {object} types.Response "Task Not Found"
// @Security     BearerAuth
// @Router       /tasks/{id} [put]
func (h *HandlerImpl) UpdateTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "UpdateTask"))

	userID, role, err := callerIdentity(r)
	if err != nil {
		l.ErrorContext(ctx, "Failed to resolve caller", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	taskID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid task ID format")
		return
	}

	var req types.UpdateTaskRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.WarnContext(ctx, "Failed to decode request", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := h.taskService.Update(ctx, userID, role, taskID, req)
	if err != nil {
		writeServiceError(w, r, l, err)
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, updated)
}

// DeleteTask godoc
// @Summary      Delete Task
// @Description  Deletes a task. Only the creator or an Admin may delete.
// @Tags         Tasks
// @Produce      json
// @Param        id path string true "Task ID"
// @Success      200 {object} types.Response "Task removed"
// @Failure      403 {object} types.Response "Forbidden"
// @Failure      404 {object} types.Response "Task Not Found"
// @Security     BearerAuth
// @Router       /tasks/{id} [delete]
func (h *HandlerImpl) DeleteTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "DeleteTask"))

	userID, role, err := callerIdentity(r)
	if err != nil {
		l.ErrorContext(ctx, "Failed to resolve caller", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	taskID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid task ID format")
		return
	}

	if err := h.taskService.Delete(ctx, userID, role, taskID); err != nil {
		writeServiceError(w, r, l, err)
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, types.Response{Msg: "Task removed"})
}

// AssignTask godoc
// @Summary      Assign Task
// @Description  Reassigns a task to another user. Admin and Manager only.
// @Tags         Tasks
// @Accept       json
// @Produce      json
// @Param        taskId path string true "Task ID"
// @Param        payload body types.AssignTaskRequest true "Target user"
// @Success      200 {object} types.Task "Updated Task"
// @Failure      400 {object} types.Response "Validation Error"
// @Failure      403 {object} types.Response "Forbidden"
// @Failure      404 {object} types.Response "Task Not Found"
// @Security     BearerAuth
// @Router       /tasks/{taskId}/assign [put]
func (h *HandlerImpl) AssignTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "AssignTask"))

	taskID, err := uuid.Parse(chi.URLParam(r, "taskId"))
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid task ID format")
		return
	}

	var req types.AssignTaskRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.WarnContext(ctx, "Failed to decode request", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	assigneeID, err := uuid.Parse(req.UserID)
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid user ID format")
		return
	}

	updated, err := h.taskService.Assign(ctx, taskID, assigneeID)
	if err != nil {
		writeServiceError(w, r, l, err)
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, updated)
}
