package types

import (
	"time"

	"github.com/google/uuid"
)

// TaskStatus is the lifecycle state of a task.
type TaskStatus string

const (
	StatusPending    TaskStatus = "Pending"
	StatusInProgress TaskStatus = "In Progress"
	StatusCompleted  TaskStatus = "Completed"
	StatusOverdue    TaskStatus = "Overdue"
)

// ValidStatus reports whether s is a known task status.
func ValidStatus(s string) bool {
	switch TaskStatus(s) {
	case StatusPending, StatusInProgress, StatusCompleted, StatusOverdue:
		return true
	}
	return false
}

// TaskPriority orders tasks by urgency.
type TaskPriority string

const (
	PriorityLow    TaskPriority = "Low"
	PriorityMedium TaskPriority = "Medium"
	PriorityHigh   TaskPriority = "High"
)

// ValidPriority reports whether s is a known task priority.
func ValidPriority(s string) bool {
	switch TaskPriority(s) {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Task represents a unit of work assigned to a user. AssignedTo and CreatedBy
// reference existing users at creation time and are not re-validated after.
type Task struct {
	ID          uuid.UUID    `json:"id"`
	Title       string       `json:"title"`
	Description *string      `json:"description,omitempty"`
	DueDate     *time.Time   `json:"dueDate,omitempty"`
	Priority    TaskPriority `json:"priority"`
	Status      TaskStatus   `json:"status"`
	AssignedTo  uuid.UUID    `json:"assignedTo"`
	CreatedBy   uuid.UUID    `json:"createdBy"`

	// Resolved from the users table on reads; empty on writes.
	AssigneeUsername string `json:"assigneeUsername,omitempty"`
	AssigneeEmail    string `json:"assigneeEmail,omitempty"`
	CreatorUsername  string `json:"creatorUsername,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TaskScope is the role-derived visibility restriction ANDed onto every task
// query. The zero value is unrestricted (Admin).
type TaskScope struct {
	// AssignedTo restricts to tasks assigned to this user (User role).
	AssignedTo *uuid.UUID
	// CreatedByOrAssignedTo restricts to tasks this user created OR is
	// assigned to (Manager role).
	CreatedByOrAssignedTo *uuid.UUID
}

// Unrestricted reports whether the scope imposes no visibility restriction.
func (s TaskScope) Unrestricted() bool {
	return s.AssignedTo == nil && s.CreatedByOrAssignedTo == nil
}

// TaskListFilter carries the caller-supplied query filters and sort for
// GET /api/tasks. All fields are optional.
type TaskListFilter struct {
	Status      *TaskStatus
	Priority    *TaskPriority
	Search      string
	DueDateFrom *time.Time
	DueDateTo   *time.Time
	SortBy      string
	SortOrder   string
}

// CreateTaskRequest is the payload for POST /api/tasks. Status is ignored:
// new tasks always start Pending.
type CreateTaskRequest struct {
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	DueDate     *time.Time `json:"dueDate"`
	Priority    *string    `json:"priority"`
	Status      *string    `json:"status"`
	AssignedTo  string     `json:"assignedTo"`
}

// UpdateTaskRequest is the partial-merge payload for PUT /api/tasks/{id}.
// Nil fields are left untouched on the stored record.
type UpdateTaskRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	DueDate     *time.Time `json:"dueDate"`
	Priority    *string    `json:"priority"`
	Status      *string    `json:"status"`
	AssignedTo  *string    `json:"assignedTo"`
}

// AssignTaskRequest is the payload for PUT /api/tasks/{taskId}/assign.
type AssignTaskRequest struct {
	UserID string `json:"userId"`
}

// Broadcast event names emitted after task mutations.
const (
	EventTaskCreated  = "task:created"
	EventTaskUpdated  = "task:updated"
	EventTaskDeleted  = "task:deleted"
	EventTaskAssigned = "task:assigned"
)

// Notification types dispatched to the third-party notification service.
const (
	NotifyTaskCreated      = "TASK_CREATED"
	NotifyTaskAssigned     = "TASK_ASSIGNED"
	NotifyTaskStatusUpdate = "TASK_STATUS_UPDATE"
	NotifyTaskDeleted      = "TASK_DELETED"
)
