package types

import (
	"github.com/golang-jwt/jwt/v5"
)

// Claims is the JWT payload issued at register/login. Tokens are stateless
// and valid for a fixed window from issuance; logout does not revoke them.
type Claims struct {
	UserID string `json:"uid"` // Custom claim for User ID.
	Role   string `json:"rol"` // Custom claim for User Role.
	jwt.RegisteredClaims
}

// RegisterRequest is the payload for POST /api/auth/register.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest is the payload for POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenResponse carries a freshly issued access token.
type TokenResponse struct {
	Token string `json:"token"`
}

// Response is a generic message envelope for acknowledgement-style replies.
type Response struct {
	Success bool   `json:"success,omitempty"`
	Msg     string `json:"msg,omitempty"`
}
