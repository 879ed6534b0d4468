package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/FACorreiaa/go-taskflow-api/internal/api"
	"github.com/FACorreiaa/go-taskflow-api/internal/types"
)

var _ Handler = (*HandlerImpl)(nil)

type Handler interface {
	Register(w http.ResponseWriter, r *http.Request)
	Login(w http.ResponseWriter, r *http.Request)
	Profile(w http.ResponseWriter, r *http.Request)
	Logout(w http.ResponseWriter, r *http.Request)
}

type HandlerImpl struct {
	authService Service
	logger      *slog.Logger
}

func NewHandlerImpl(authService Service, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{
		authService: authService,
		logger:      logger,
	}
}

// Register godoc
// @Summary      Register User
// @Description  Creates an account and returns a signed access token.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        payload body types.RegisterRequest true "Registration Parameters"
// @Success      201 {object} types.TokenResponse "Token"
// @Failure      400 {object} types.Response "Validation Error / Duplicate"
// @Router       /auth/register [post]
func (h *HandlerImpl) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "Register"))

	var req types.RegisterRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.WarnContext(ctx, "Failed to decode request", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	token, err := h.authService.Register(ctx, req)
	if err != nil {
		switch {
		case errors.Is(err, types.ErrConflict):
			api.ErrorResponse(w, r, http.StatusBadRequest, "User already exists")
		case errors.Is(err, types.ErrValidation):
			api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		default:
			l.ErrorContext(ctx, "Registration failed", slog.Any("error", err))
			api.ErrorResponse(w, r, http.StatusInternalServerError, "Server error during registration")
		}
		return
	}

	api.WriteJSONResponse(w, r, http.StatusCreated, types.TokenResponse{Token: token})
}

// Login godoc
// @Summary      Login
// @Description  Verifies credentials and returns a signed access token.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        payload body types.LoginRequest true "Login Parameters"
// @Success      200 {object} types.TokenResponse "Token"
// @Failure      400 {object} types.Response "Invalid Credentials"
// @Router       /auth/login [post]
func (h *HandlerImpl) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "Login"))

	var req types.LoginRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.WarnContext(ctx, "Failed to decode request", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	token, err := h.authService.Login(ctx, req)
	if err != nil {
		if errors.Is(err, types.ErrInvalidCredentials) {
			api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid Credentials")
			return
		}
		l.ErrorContext(ctx, "Login failed", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Server error during login")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, types.TokenResponse{Token: token})
}

// Profile godoc
// @Summary      Get Profile
// @Description  Returns the authenticated user's profile, password omitted.
// @Tags         Auth
// @Produce      json
// @Success      200 {object} types.User "User Profile"
// @Failure      401 {object} types.Response "Unauthorized"
// @Failure      404 {object} types.Response "User Not Found"
// @Security     BearerAuth
// @Router       /auth/profile [get]
func (h *HandlerImpl) Profile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "Profile"))

	userIDStr, ok := GetUserIDFromContext(ctx)
	if !ok || userIDStr == "" {
		l.ErrorContext(ctx, "User ID not found in context")
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		l.ErrorContext(ctx, "Invalid user ID format", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid user ID format")
		return
	}

	user, err := h.authService.GetProfile(ctx, userID)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			api.ErrorResponse(w, r, http.StatusNotFound, "User not found")
			return
		}
		l.ErrorContext(ctx, "Failed to get profile", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Server error fetching profile")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, user)
}

// Logout godoc
// @Summary      Logout
// @Description  Acknowledges logout. Tokens are stateless so nothing is revoked server-side.
// @Tags         Auth
// @Produce      json
// @Success      200 {object} types.Response "Acknowledgement"
// @Security     BearerAuth
// @Router       /auth/logout [post]
func (h *HandlerImpl) Logout(w http.ResponseWriter, r *http.Request) {
	api.WriteJSONResponse(w, r, http.StatusOK, types.Response{
		Msg: "Logged out successfully. Token invalidated (if blacklisting is implemented).",
	})
}
