// Package policy maps (role, identity) to task visibility scopes and
// mutation permissions. It is pure: no I/O, no clock, no dependencies on the
// rest of the application.
package policy

import (
	"github.com/google/uuid"

	"github.com/FACorreiaa/go-taskflow-api/internal/types"
)

// TaskScope returns the visibility restriction a role operates under.
// Users only see tasks assigned to them; Managers see tasks they created or
// are assigned to; Admins see everything.
func TaskScope(userID uuid.UUID, role types.Role) types.TaskScope {
	switch role {
	case types.RoleUser:
		return types.TaskScope{AssignedTo: &userID}
	case types.RoleManager:
		return types.TaskScope{CreatedByOrAssignedTo: &userID}
	default:
		// Admin, and any unknown role degrades to the least privilege of
		// the known set only through the middleware; here Admin means
		// unrestricted.
		return types.TaskScope{}
	}
}

// CanUpdate reports whether the caller may update the task. Admins always
// may; otherwise the caller must be the assignee or the creator. The check
// runs against the pre-update state of the task.
func CanUpdate(role types.Role, userID uuid.UUID, task *types.Task) bool {
	if role == types.RoleAdmin {
		return true
	}
	return task.AssignedTo == userID || task.CreatedBy == userID
}

// CanDelete reports whether the caller may delete the task. Admins always
// may; otherwise only the creator.
func CanDelete(role types.Role, userID uuid.UUID, task *types.Task) bool {
	if role == types.RoleAdmin {
		return true
	}
	return task.CreatedBy == userID
}

// CanAssign reports whether the role may reassign tasks at all. Assignment
// is reserved for Admins and Managers regardless of task ownership.
func CanAssign(role types.Role) bool {
	return role == types.RoleAdmin || role == types.RoleManager
}
