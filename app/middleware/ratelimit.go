package appMiddleware

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"

	"github.com/FACorreiaa/go-taskflow-api/internal/api"
	"github.com/FACorreiaa/go-taskflow-api/internal/api/auth"
	"github.com/FACorreiaa/go-taskflow-api/internal/types"
)

// Per-role request budgets over a 15 minute window. The login limiter is
// stricter and keyed by IP since it runs before authentication.
const (
	rateWindow        = 15 * time.Minute
	adminLimit        = 500
	managerLimit      = 250
	defaultLimit      = 100
	sensitiveLimit    = 50
	loginWindow       = 5 * time.Minute
	loginAttemptLimit = 5
)

func tooManyRequests(message string) httprate.Option {
	return httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
		api.WriteJSONResponse(w, r, http.StatusTooManyRequests, map[string]interface{}{
			"msg":  message,
			"code": http.StatusTooManyRequests,
		})
	})
}

// keyByUser keys rate buckets on the authenticated user, falling back to the
// client IP for anything that slipped past authentication.
func keyByUser(r *http.Request) (string, error) {
	if userID, ok := auth.GetUserIDFromContext(r.Context()); ok && userID != "" {
		return userID, nil
	}
	return httprate.KeyByIP(r)
}

// LoginRateLimiter guards POST /api/auth/login against brute force: five
// attempts per IP per five minutes, rejected before any credential check.
func LoginRateLimiter() func(next http.Handler) http.Handler {
	return httprate.Limit(loginAttemptLimit, loginWindow,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		tooManyRequests("Too many login attempts from this IP, please try again after 5 minutes"),
	)
}

// SensitiveEndpointLimiter applies the strict budget used on mutating task
// routes.
func SensitiveEndpointLimiter() func(next http.Handler) http.Handler {
	return httprate.Limit(sensitiveLimit, rateWindow,
		httprate.WithKeyFuncs(keyByUser),
		tooManyRequests("Too many requests to this endpoint, please try again after 15 minutes"),
	)
}

// RoleBasedRateLimiter dispatches to a per-role limiter based on the role the
// Authenticate middleware stored in the context. Unknown or missing roles get
// the default (User) budget.
func RoleBasedRateLimiter() func(next http.Handler) http.Handler {
	msg := "Too many requests, please try again after 15 minutes"
	return func(next http.Handler) http.Handler {
		adminNext := httprate.Limit(adminLimit, rateWindow,
			httprate.WithKeyFuncs(keyByUser), tooManyRequests(msg))(next)
		managerNext := httprate.Limit(managerLimit, rateWindow,
			httprate.WithKeyFuncs(keyByUser), tooManyRequests(msg))(next)
		userNext := httprate.Limit(defaultLimit, rateWindow,
			httprate.WithKeyFuncs(keyByUser), tooManyRequests(msg))(next)

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, _ := auth.GetUserRoleFromContext(r.Context())
			switch types.Role(role) {
			case types.RoleAdmin:
				adminNext.ServeHTTP(w, r)
			case types.RoleManager:
				managerNext.ServeHTTP(w, r)
			default:
				userNext.ServeHTTP(w, r)
			}
		})
	}
}
