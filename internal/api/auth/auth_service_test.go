package auth

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/FACorreiaa/go-taskflow-api/config"
	"github.com/FACorreiaa/go-taskflow-api/internal/types"
)

type mockUserRepo struct {
	mock.Mock
}

func (m *mockUserRepo) CreateUser(ctx context.Context, username, email, passwordHash string) (*types.User, error) {
	args := m.Called(ctx, username, email, passwordHash)
	if u := args.Get(0); u != nil {
		return u.(*types.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserRepo) GetUserByEmail(ctx context.Context, email string) (*types.User, error) {
	args := m.Called(ctx, email)
	if u := args.Get(0); u != nil {
		return u.(*types.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserRepo) GetUserByID(ctx context.Context, userID uuid.UUID) (*types.User, error) {
	args := m.Called(ctx, userID)
	if u := args.Get(0); u != nil {
		return u.(*types.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserRepo) UserExists(ctx context.Context, userID uuid.UUID) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

func (m *mockUserRepo) UpdateUserRole(ctx context.Context, userID uuid.UUID, role types.Role) (*types.User, error) {
	args := m.Called(ctx, userID, role)
	if u := args.Get(0); u != nil {
		return u.(*types.User), args.Error(1)
	}
	return nil, args.Error(1)
}

const testSecret = "unit-test-secret"

func newAuthService(repo Repository) *ServiceImpl {
	cfg := &config.Config{}
	cfg.JWT = config.JWTConfig{
		SecretKey: testSecret,
		Issuer:    "taskflow-api",
		TokenTTL:  24 * time.Hour,
	}
	return NewService(repo, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestRegister_DuplicateEmail(t *testing.T) {
	repo := new(mockUserRepo)
	svc := newAuthService(repo)

	existing := &types.User{ID: uuid.New(), Email: "ana@example.com"}
	repo.On("GetUserByEmail", mock.Anything, "ana@example.com").Return(existing, nil)

	_, err := svc.Register(context.Background(), types.RegisterRequest{
		Username: "ana",
		Email:    "ana@example.com",
		Password: "secret123",
	})
	assert.ErrorIs(t, err, types.ErrConflict)
	repo.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRegister_ValidationRules(t *testing.T) {
	svc := newAuthService(new(mockUserRepo))

	cases := []struct {
		name string
		req  types.RegisterRequest
	}{
		{"empty username", types.RegisterRequest{Username: " ", Email: "a@b.com", Password: "secret123"}},
		{"invalid email", types.RegisterRequest{Username: "ana", Email: "not-an-email", Password: "secret123"}},
		{"short password", types.RegisterRequest{Username: "ana", Email: "a@b.com", Password: "12345"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tc.req)
			assert.ErrorIs(t, err, types.ErrValidation)
		})
	}
}

func TestRegister_IssuesVerifiableToken(t *testing.T) {
	repo := new(mockUserRepo)
	svc := newAuthService(repo)
	userID := uuid.New()

	repo.On("GetUserByEmail", mock.Anything, "ana@example.com").
		Return(nil, types.ErrNotFound)
	repo.On("CreateUser", mock.Anything, "ana", "ana@example.com", mock.AnythingOfType("string")).
		Return(&types.User{ID: userID, Username: "ana", Email: "ana@example.com", Role: types.RoleUser}, nil)

	tokenStr, err := svc.Register(context.Background(), types.RegisterRequest{
		Username: "ana",
		Email:    "ana@example.com",
		Password: "secret123",
	})
	require.NoError(t, err)

	claims := &types.Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(testSecret), nil
	})
	require.NoError(t, err)
	assert.True(t, token.Valid)
	assert.Equal(t, userID.String(), claims.UserID)
	assert.Equal(t, string(types.RoleUser), claims.Role)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), claims.ExpiresAt.Time, time.Minute)
}

func TestLogin_WrongPassword(t *testing.T) {
	repo := new(mockUserRepo)
	svc := newAuthService(repo)

	hash, err := bcrypt.GenerateFromPassword([]byte("right-password"), bcrypt.MinCost)
	require.NoError(t, err)
	repo.On("GetUserByEmail", mock.Anything, "ana@example.com").
		Return(&types.User{ID: uuid.New(), Email: "ana@example.com", PasswordHash: string(hash)}, nil)

	_, err = svc.Login(context.Background(), types.LoginRequest{
		Email:    "ana@example.com",
		Password: "wrong-password",
	})
	assert.ErrorIs(t, err, types.ErrInvalidCredentials)
}

func TestLogin_UnknownEmailLooksLikeWrongPassword(t *testing.T) {
	repo := new(mockUserRepo)
	svc := newAuthService(repo)
	repo.On("GetUserByEmail", mock.Anything, "nobody@example.com").
		Return(nil, types.ErrNotFound)

	_, err := svc.Login(context.Background(), types.LoginRequest{
		Email:    "nobody@example.com",
		Password: "whatever",
	})
	assert.ErrorIs(t, err, types.ErrInvalidCredentials)
}

func TestLogin_Succeeds(t *testing.T) {
	repo := new(mockUserRepo)
	svc := newAuthService(repo)
	userID := uuid.New()

	hash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	require.NoError(t, err)
	repo.On("GetUserByEmail", mock.Anything, "ana@example.com").
		Return(&types.User{ID: userID, Email: "ana@example.com", PasswordHash: string(hash), Role: types.RoleManager}, nil)

	tokenStr, err := svc.Login(context.Background(), types.LoginRequest{
		Email:    "ana@example.com",
		Password: "secret123",
	})
	require.NoError(t, err)

	claims := &types.Claims{}
	_, err = jwt.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(testSecret), nil
	})
	require.NoError(t, err)
	assert.Equal(t, string(types.RoleManager), claims.Role)
}
