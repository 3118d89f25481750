package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"microfin-office/internal/api/handler/dto"
	"microfin-office/internal/config"
	"microfin-office/internal/domain/user"
	"microfin-office/internal/pkg/apperrors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) CreateUser(ctx context.Context, username, password, fullName string, role user.Role, branchID *int64) (*user.User, error) {
	args := m.Called(ctx, username, password, fullName, role, branchID)
	if created, ok := args.Get(0).(*user.User); ok {
		return created, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUserService) GetUser(ctx context.Context, userID int64) (*user.User, error) {
	args := m.Called(ctx, userID)
	if found, ok := args.Get(0).(*user.User); ok {
		return found, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUserService) ListUsers(ctx context.Context, activeOnly bool) ([]*user.User, error) {
	args := m.Called(ctx, activeOnly)
	if users, ok := args.Get(0).([]*user.User); ok {
		return users, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUserService) ChangePassword(ctx context.Context, userID int64, newPassword string) error {
	args := m.Called(ctx, userID, newPassword)
	return args.Error(0)
}

func (m *MockUserService) DeactivateUser(ctx context.Context, userID int64) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockUserService) ReactivateUser(ctx context.Context, userID int64) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockUserService) DeleteUser(ctx context.Context, userID int64) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockUserService) Authenticate(ctx context.Context, username, password string) (*user.User, error) {
	args := m.Called(ctx, username, password)
	if account, ok := args.Get(0).(*user.User); ok {
		return account, args.Error(1)
	}
	return nil, args.Error(1)
}

func TestAuthHandlerLogin(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	cfg := config.AuthConfig{
		Enabled:     true,
		JWTSecret:   "test-secret",
		TokenExpiry: time.Hour,
	}

	t.Run("issues token for valid credentials", func(t *testing.T) {
		mockService := new(MockUserService)
		handler := NewAuthHandler(mockService, cfg, logger)

		account := &user.User{
			UserID:   1,
			Username: "admin",
			FullName: "Head Office Admin",
			Role:     user.RoleAdmin,
			Active:   true,
		}
		mockService.On("Authenticate", mock.Anything, "admin", "s3cret").Return(account, nil)

		body := bytes.NewBufferString(`{"username":"admin","password":"s3cret"}`)
		req := httptest.NewRequest(http.MethodPost, "/auth/login", body)
		rec := httptest.NewRecorder()

		handler.Login(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var resp dto.LoginResponse
		err := json.NewDecoder(rec.Body).Decode(&resp)
		assert.NoError(t, err)
		assert.NotEmpty(t, resp.Token)
		assert.Equal(t, "admin", resp.User.Username)

		parsed, err := jwt.Parse(resp.Token, func(token *jwt.Token) (interface{}, error) {
			return []byte(cfg.JWTSecret), nil
		})
		assert.NoError(t, err)
		assert.True(t, parsed.Valid)
		mockService.AssertExpectations(t)
	})

	t.Run("rejects wrong password", func(t *testing.T) {
		mockService := new(MockUserService)
		handler := NewAuthHandler(mockService, cfg, logger)

		mockService.On("Authenticate", mock.Anything, "admin", "wrong").
			Return((*user.User)(nil), apperrors.ErrUnauthorized)

		body := bytes.NewBufferString(`{"username":"admin","password":"wrong"}`)
		req := httptest.NewRequest(http.MethodPost, "/auth/login", body)
		rec := httptest.NewRecorder()

		handler.Login(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		var resp dto.ErrorResponse
		err := json.NewDecoder(rec.Body).Decode(&resp)
		assert.NoError(t, err)
		assert.Equal(t, "Invalid credentials.", resp.Error.Message)
		mockService.AssertExpectations(t)
	})

	t.Run("rejects payload without password", func(t *testing.T) {
		mockService := new(MockUserService)
		handler := NewAuthHandler(mockService, cfg, logger)

		body := bytes.NewBufferString(`{"username":"admin"}`)
		req := httptest.NewRequest(http.MethodPost, "/auth/login", body)
		rec := httptest.NewRecorder()

		handler.Login(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		mockService.AssertNotCalled(t, "Authenticate")
	})
}
