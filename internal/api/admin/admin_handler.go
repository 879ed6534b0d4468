package admin

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/FACorreiaa/go-taskflow-api/internal/api"
	"github.com/FACorreiaa/go-taskflow-api/internal/api/auth"
	"github.com/FACorreiaa/go-taskflow-api/internal/types"
)

var _ Handler = (*HandlerImpl)(nil)

type Handler interface {
	UpdateUserRole(w http.ResponseWriter, r *http.Request)
}

type HandlerImpl struct {
	users  auth.Repository
	logger *slog.Logger
}

func NewHandlerImpl(users auth.Repository, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{
		users:  users,
		logger: logger,
	}
}

type updateRoleRequest struct {
	Role string `json:"role"`
}

type updateRoleResponse struct {
	Msg  string      `json:"msg"`
	User *types.User `json:"user"`
}

// UpdateUserRole godoc
// @Summary      Update User Role
// @Description  Sets a user's role. Admin only; the route guard enforces it.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        userID path string true "User ID"
// @Param        payload body updateRoleRequest true "New role"
// @Success      200 {object} updateRoleResponse "Updated User"
// @Failure      400 {object} types.Response "Invalid Role"
// @Failure      403 {object} types.Response "Forbidden"
// @Failure      404 {object} types.Response "User Not Found"
// @Security     BearerAuth
// @Router       /admin/users/{userID}/role [put]
func (h *HandlerImpl) UpdateUserRole(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "UpdateUserRole"))

	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid user ID format")
		return
	}

	var req updateRoleRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.WarnContext(ctx, "Failed to decode request", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if !types.ValidRole(req.Role) {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid role value")
		return
	}

	user, err := h.users.UpdateUserRole(ctx, userID, types.Role(req.Role))
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			api.ErrorResponse(w, r, http.StatusNotFound, "User not found")
			return
		}
		l.ErrorContext(ctx, "Failed to update role", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Server error updating role")
		return
	}

	l.InfoContext(ctx, "User role updated",
		slog.String("user_id", userID.String()),
		slog.String("role", string(user.Role)),
	)

	api.WriteJSONResponse(w, r, http.StatusOK, updateRoleResponse{
		Msg:  fmt.Sprintf("Role for user %s updated to %s", user.Username, user.Role),
		User: user,
	})
}
