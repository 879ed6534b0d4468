package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-taskflow-api/internal/api/policy"
	"github.com/FACorreiaa/go-taskflow-api/internal/broadcast"
	"github.com/FACorreiaa/go-taskflow-api/internal/cache"
	"github.com/FACorreiaa/go-taskflow-api/internal/notify"
	"github.com/FACorreiaa/go-taskflow-api/internal/types"
)

// UserDirectory is the slice of the identity store the task service needs:
// reference validation at create/assign time.
type UserDirectory interface {
	UserExists(ctx context.Context, userID uuid.UUID) (bool, error)
}

// CacheInvalidator is the slice of the response cache mutations invalidate.
type CacheInvalidator interface {
	InvalidatePrefix(prefix string) int
}

var _ Service = (*ServiceImpl)(nil)

// Service orchestrates task mutations: access policy, persistence, then the
// fire-and-forget side effects (cache invalidation, broadcast, notification).
type Service interface {
	Create(ctx context.Context, userID uuid.UUID, req types.CreateTaskRequest) (*types.Task, error)
	List(ctx context.Context, userID uuid.UUID, role types.Role, filter types.TaskListFilter) ([]*types.Task, error)
	Update(ctx context.Context, userID uuid.UUID, role types.Role, taskID uuid.UUID, req types.UpdateTaskRequest) (*types.Task, error)
	Delete(ctx context.Context, userID uuid.UUID, role types.Role, taskID uuid.UUID) error
	Assign(ctx context.Context, taskID, newAssigneeID uuid.UUID) (*types.Task, error)
}

type ServiceImpl struct {
	logger   *slog.Logger
	repo     Repository
	users    UserDirectory
	cache    CacheInvalidator
	hub      broadcast.Broadcaster
	notifier notify.Notifier
	tracer   trace.Tracer
}

func NewService(repo Repository, users UserDirectory, responseCache CacheInvalidator,
	hub broadcast.Broadcaster, notifier notify.Notifier, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger:   logger,
		repo:     repo,
		users:    users,
		cache:    responseCache,
		hub:      hub,
		notifier: notifier,
		tracer:   otel.Tracer("github.com/FACorreiaa/go-taskflow-api/internal/api/task"),
	}
}

// afterWrite runs the post-commit hooks in fixed order: cache invalidation,
// broadcast, notification. Each has its own error boundary; none can fail the
// committed mutation. Cache invalidation is synchronous so the next read in
// this window recomputes; the notification leaves the request goroutine.
func (s *ServiceImpl) afterWrite(ctx context.Context, event string, payload interface{}, notifType string, task *types.Task, recipientID uuid.UUID) {
	func() {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.ErrorContext(ctx, "Cache invalidation panicked", slog.Any("panic", rec))
			}
		}()
		s.cache.InvalidatePrefix(cache.TaskListPrefix)
	}()

	s.hub.Emit(event, payload)

	// context.WithoutCancel keeps the dispatch alive after the response is
	// written; the notifier applies its own bounded timeout.
	go s.notifier.Send(context.WithoutCancel(ctx), notifType, task, recipientID.String())
}

// Create validates the payload, forces status to Pending and persists the
// task with the caller as creator. Notification type TASK_CREATED.
func (s *ServiceImpl) Create(ctx context.Context, userID uuid.UUID, req types.CreateTaskRequest) (*types.Task, error) {
	ctx, span := s.tracer.Start(ctx, "TaskService.Create")
	defer span.End()

	if strings.TrimSpace(req.Title) == "" {
		return nil, fmt.Errorf("title is required: %w", types.ErrValidation)
	}
	assigneeID, err := uuid.Parse(req.AssignedTo)
	if err != nil {
		return nil, fmt.Errorf("assigned user ID must be a valid UUID: %w", types.ErrValidation)
	}
	priority := types.PriorityMedium
	if req.Priority != nil {
		if !types.ValidPriority(*req.Priority) {
			return nil, fmt.Errorf("invalid priority value: %w", types.ErrValidation)
		}
		priority = types.TaskPriority(*req.Priority)
	}

	exists, err := s.users.UserExists(ctx, assigneeID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("assigned user does not exist: %w", types.ErrValidation)
	}

	task := &types.Task{
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate,
		Priority:    priority,
		// Caller-supplied status is ignored: every task starts Pending.
		Status:     types.StatusPending,
		AssignedTo: assigneeID,
		CreatedBy:  userID,
	}

	if err := s.repo.Create(ctx, task); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "task insert failed")
		return nil, err
	}

	span.SetAttributes(attribute.String("task.id", task.ID.String()))
	s.logger.InfoContext(ctx, "Task created",
		slog.String("task_id", task.ID.String()),
		slog.String("assigned_to", assigneeID.String()),
	)

	s.afterWrite(ctx, types.EventTaskCreated, task, types.NotifyTaskCreated, task, assigneeID)
	return task, nil
}

// List returns the tasks visible to the caller's role, intersected with the
// caller-supplied filters.
func (s *ServiceImpl) List(ctx context.Context, userID uuid.UUID, role types.Role, filter types.TaskListFilter) ([]*types.Task, error) {
	ctx, span := s.tracer.Start(ctx, "TaskService.List",
		trace.WithAttributes(attribute.String("role", string(role))))
	defer span.End()

	scope := policy.TaskScope(userID, role)
	tasks, err := s.repo.List(ctx, scope, filter)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("task.count", len(tasks)))
	return tasks, nil
}

// Update merges the supplied fields onto the stored record after the
// permission check. The check runs against the pre-update state: a caller
// reassigning a task away from themselves is still allowed to finish this
// request. An assignee change switches the notification to TASK_ASSIGNED.
func (s *ServiceImpl) Update(ctx context.Context, userID uuid.UUID, role types.Role, taskID uuid.UUID, req types.UpdateTaskRequest) (*types.Task, error) {
	ctx, span := s.tracer.Start(ctx, "TaskService.Update",
		trace.WithAttributes(attribute.String("task.id", taskID.String())))
	defer span.End()

	// 404 before 403: the permission check needs the stored record.
	task, err := s.repo.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if !policy.CanUpdate(role, userID, task) {
		return nil, fmt.Errorf("you do not have permission to update this task: %w", types.ErrForbidden)
	}

	notifType := types.NotifyTaskStatusUpdate

	if req.Title != nil {
		if strings.TrimSpace(*req.Title) == "" {
			return nil, fmt.Errorf("title is required: %w", types.ErrValidation)
		}
		task.Title = *req.Title
	}
	if req.Description != nil {
		task.Description = req.Description
	}
	if req.DueDate != nil {
		task.DueDate = req.DueDate
	}
	if req.Priority != nil {
		if !types.ValidPriority(*req.Priority) {
			return nil, fmt.Errorf("invalid priority value: %w", types.ErrValidation)
		}
		task.Priority = types.TaskPriority(*req.Priority)
	}
	if req.Status != nil {
		if !types.ValidStatus(*req.Status) {
			return nil, fmt.Errorf("invalid status value: %w", types.ErrValidation)
		}
		task.Status = types.TaskStatus(*req.Status)
	}
	if req.AssignedTo != nil {
		newAssignee, err := uuid.Parse(*req.AssignedTo)
		if err != nil {
			return nil, fmt.Errorf("assigned user ID must be a valid UUID: %w", types.ErrValidation)
		}
		if newAssignee != task.AssignedTo {
			notifType = types.NotifyTaskAssigned
		}
		task.AssignedTo = newAssignee
	}

	if err := s.repo.Update(ctx, task); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "task update failed")
		return nil, err
	}

	s.logger.InfoContext(ctx, "Task updated",
		slog.String("task_id", task.ID.String()),
		slog.String("notification", notifType),
	)

	s.afterWrite(ctx, types.EventTaskUpdated, task, notifType, task, task.AssignedTo)
	return task, nil
}

// Delete removes the task after the permission check. The broadcast and
// notification carry only the id and prior assignee since the record is gone.
func (s *ServiceImpl) Delete(ctx context.Context, userID uuid.UUID, role types.Role, taskID uuid.UUID) error {
	ctx, span := s.tracer.Start(ctx, "TaskService.Delete",
		trace.WithAttributes(attribute.String("task.id", taskID.String())))
	defer span.End()

	task, err := s.repo.GetByID(ctx, taskID)
	if err != nil {
		return err
	}

	if !policy.CanDelete(role, userID, task) {
		return fmt.Errorf("you do not have permission to delete this task: %w", types.ErrForbidden)
	}

	priorAssignee := task.AssignedTo

	if err := s.repo.Delete(ctx, taskID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "task delete failed")
		return err
	}

	s.logger.InfoContext(ctx, "Task deleted", slog.String("task_id", taskID.String()))

	minimal := &types.Task{ID: taskID, AssignedTo: priorAssignee}
	s.afterWrite(ctx, types.EventTaskDeleted, map[string]string{"taskId": taskID.String()},
		types.NotifyTaskDeleted, minimal, priorAssignee)
	return nil
}

// Assign moves the task to a new assignee. The Admin/Manager restriction is
// enforced at the route level via policy.CanAssign; here the task and target
// user are validated and persisted.
func (s *ServiceImpl) Assign(ctx context.Context, taskID, newAssigneeID uuid.UUID) (*types.Task, error) {
	ctx, span := s.tracer.Start(ctx, "TaskService.Assign",
		trace.WithAttributes(attribute.String("task.id", taskID.String())))
	defer span.End()

	task, err := s.repo.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}

	exists, err := s.users.UserExists(ctx, newAssigneeID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("assigned user does not exist: %w", types.ErrValidation)
	}

	task.AssignedTo = newAssigneeID
	if err := s.repo.Update(ctx, task); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "task assign failed")
		return nil, err
	}

	// Re-read so the response carries the new assignee's resolved identity.
	updated, err := s.repo.GetByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			// Deleted concurrently between write and re-read; the write
			// itself succeeded.
			updated = task
		} else {
			return nil, err
		}
	}

	s.logger.InfoContext(ctx, "Task assigned",
		slog.String("task_id", taskID.String()),
		slog.String("assigned_to", newAssigneeID.String()),
	)

	s.afterWrite(ctx, types.EventTaskAssigned, updated, types.NotifyTaskAssigned, updated, newAssigneeID)
	return updated, nil
}
