package analytics

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/FACorreiaa/go-taskflow-api/internal/api"
	"github.com/FACorreiaa/go-taskflow-api/internal/api/auth"
	"github.com/FACorreiaa/go-taskflow-api/internal/types"
)

var _ Handler = (*HandlerImpl)(nil)

type Handler interface {
	TaskAnalytics(w http.ResponseWriter, r *http.Request)
}

type HandlerImpl struct {
	analyticsService Service
	logger           *slog.Logger
}

func NewHandlerImpl(analyticsService Service, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{
		analyticsService: analyticsService,
		logger:           logger,
	}
}

// TaskAnalytics godoc
// @Summary      Task Analytics
// @Description  Aggregate statistics over the tasks visible to the caller. Leaderboard included for Admin and Manager.
// @Tags         Analytics
// @Produce      json
// @Success      200 {object} types.TaskAnalytics "Analytics"
// @Failure      401 {object} types.Response "Unauthorized"
// @Security     BearerAuth
// @Router       /analytics/tasks [get]
func (h *HandlerImpl) TaskAnalytics(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "TaskAnalytics"))

	idStr, ok := auth.GetUserIDFromContext(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}
	userID, err := uuid.Parse(idStr)
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid user ID format")
		return
	}
	roleStr, _ := auth.GetUserRoleFromContext(ctx)

	stats, err := h.analyticsService.TaskAnalytics(ctx, userID, types.Role(roleStr))
	if err != nil {
		l.ErrorContext(ctx, "Failed to compute analytics", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Server error computing analytics")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, stats)
}
