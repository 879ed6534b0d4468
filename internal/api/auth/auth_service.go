package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/FACorreiaa/go-taskflow-api/config"
	"github.com/FACorreiaa/go-taskflow-api/internal/types"
)

var _ Service = (*ServiceImpl)(nil)

// Service issues identity tokens and resolves profiles.
type Service interface {
	Register(ctx context.Context, req types.RegisterRequest) (string, error)
	Login(ctx context.Context, req types.LoginRequest) (string, error)
	GetProfile(ctx context.Context, userID uuid.UUID) (*types.User, error)
}

type ServiceImpl struct {
	logger *slog.Logger
	repo   Repository
	jwtCfg config.JWTConfig
}

func NewService(repo Repository, cfg *config.Config, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger: logger,
		repo:   repo,
		jwtCfg: cfg.JWT,
	}
}

// Register validates the payload, rejects duplicate emails, stores the bcrypt
// hash and returns a fresh token for the new user.
func (s *ServiceImpl) Register(ctx context.Context, req types.RegisterRequest) (string, error) {
	if strings.TrimSpace(req.Username) == "" {
		return "", fmt.Errorf("username is required: %w", types.ErrValidation)
	}
	if !strings.Contains(req.Email, "@") {
		return "", fmt.Errorf("please include a valid email: %w", types.ErrValidation)
	}
	if len(req.Password) < 6 {
		return "", fmt.Errorf("password must be at least 6 characters: %w", types.ErrValidation)
	}

	if _, err := s.repo.GetUserByEmail(ctx, req.Email); err == nil {
		return "", fmt.Errorf("user already exists: %w", types.ErrConflict)
	} else if !errors.Is(err, types.ErrNotFound) {
		return "", err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.repo.CreateUser(ctx, req.Username, req.Email, string(hash))
	if err != nil {
		if errors.Is(err, types.ErrConflict) {
			// Lost the race against a concurrent registration for the
			// same email; same outcome as the pre-check.
			return "", fmt.Errorf("user already exists: %w", types.ErrConflict)
		}
		return "", err
	}

	s.logger.InfoContext(ctx, "User registered",
		slog.String("user_id", user.ID.String()),
		slog.String("role", string(user.Role)),
	)
	return s.generateToken(user)
}

// Login verifies credentials and returns a token. Unknown email and wrong
// password are indistinguishable to the caller.
func (s *ServiceImpl) Login(ctx context.Context, req types.LoginRequest) (string, error) {
	user, err := s.repo.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return "", types.ErrInvalidCredentials
		}
		return "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return "", types.ErrInvalidCredentials
	}

	s.logger.InfoContext(ctx, "User logged in", slog.String("user_id", user.ID.String()))
	return s.generateToken(user)
}

// GetProfile returns the user record for the authenticated caller.
func (s *ServiceImpl) GetProfile(ctx context.Context, userID uuid.UUID) (*types.User, error) {
	return s.repo.GetUserByID(ctx, userID)
}

// generateToken signs a stateless HS256 token carrying {userID, role}, valid
// for the configured window (24h by default).
func (s *ServiceImpl) generateToken(user *types.User) (string, error) {
	ttl := s.jwtCfg.TokenTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	now := time.Now()
	claims := types.Claims{
		UserID: user.ID.String(),
		Role:   string(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			Issuer:    s.jwtCfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.jwtCfg.SecretKey))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}
