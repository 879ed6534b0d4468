package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-taskflow-api/internal/types"
)

type mockAuthService struct {
	mock.Mock
}

func (m *mockAuthService) Register(ctx context.Context, req types.RegisterRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *mockAuthService) Login(ctx context.Context, req types.LoginRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *mockAuthService) GetProfile(ctx context.Context, userID uuid.UUID) (*types.User, error) {
	args := m.Called(ctx, userID)
	if u := args.Get(0); u != nil {
		return u.(*types.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func newHandlerFixture() (*HandlerImpl, *mockAuthService) {
	svc := new(mockAuthService)
	h := NewHandlerImpl(svc, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return h, svc
}

func jsonBody(t *testing.T, v interface{}) *bytes.Reader {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(b)
}

func decodeMsg(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	msg, _ := body["msg"].(string)
	return msg
}

func TestRegisterHandler_DuplicateUser(t *testing.T) {
	h, svc := newHandlerFixture()
	svc.On("Register", mock.Anything, mock.Anything).Return("", types.ErrConflict)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/register",
		jsonBody(t, types.RegisterRequest{Username: "ana", Email: "ana@example.com", Password: "secret123"}))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.Register(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "User already exists", decodeMsg(t, w))
}

func TestRegisterHandler_ReturnsToken(t *testing.T) {
	h, svc := newHandlerFixture()
	svc.On("Register", mock.Anything, mock.Anything).Return("signed.jwt.token", nil)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/register",
		jsonBody(t, types.RegisterRequest{Username: "ana", Email: "ana@example.com", Password: "secret123"}))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.Register(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	var resp types.TokenResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "signed.jwt.token", resp.Token)
}

func TestLoginHandler_InvalidCredentials(t *testing.T) {
	h, svc := newHandlerFixture()
	svc.On("Login", mock.Anything, mock.Anything).Return("", types.ErrInvalidCredentials)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login",
		jsonBody(t, types.LoginRequest{Email: "ana@example.com", Password: "wrong"}))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.Login(w, req)

	// Credential failures are 400, indistinguishable between unknown email
	// and wrong password.
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid Credentials", decodeMsg(t, w))
}

func TestProfileHandler_OmitsPasswordHash(t *testing.T) {
	h, svc := newHandlerFixture()
	userID := uuid.New()
	svc.On("GetProfile", mock.Anything, userID).Return(&types.User{
		ID: userID, Username: "ana", Email: "ana@example.com",
		PasswordHash: "super-secret-hash", Role: types.RoleUser,
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/profile", nil)
	req = req.WithContext(context.WithValue(req.Context(), UserIDKey, userID.String()))
	w := httptest.NewRecorder()
	h.Profile(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "super-secret-hash")
	assert.Contains(t, w.Body.String(), "ana@example.com")
}

func TestProfileHandler_UserNotFound(t *testing.T) {
	h, svc := newHandlerFixture()
	userID := uuid.New()
	svc.On("GetProfile", mock.Anything, userID).Return(nil, types.ErrNotFound)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/profile", nil)
	req = req.WithContext(context.WithValue(req.Context(), UserIDKey, userID.String()))
	w := httptest.NewRecorder()
	h.Profile(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "User not found", decodeMsg(t, w))
}

func TestLogoutHandler_Acknowledges(t *testing.T) {
	h, _ := newHandlerFixture()

	w := httptest.NewRecorder()
	h.Logout(w, httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Logged out successfully")
}
