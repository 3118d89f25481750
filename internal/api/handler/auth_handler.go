package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"microfin-office/internal/api/handler/dto"
	"microfin-office/internal/api/middleware"
	"microfin-office/internal/config"
	"microfin-office/internal/domain/user"
	"microfin-office/internal/pkg/apperrors"

	"github.com/golang-jwt/jwt/v5"
)

type AuthHandler struct {
	userService user.Service
	cfg         config.AuthConfig
	logger      *slog.Logger
}

func NewAuthHandler(userService user.Service, cfg config.AuthConfig, l *slog.Logger) *AuthHandler {
	if userService == nil {
		panic("user service cannot be nil")
	}
	return &AuthHandler{
		userService: userService,
		cfg:         cfg,
		logger:      l.With("component", "AuthHandler"),
	}
}

// Login verifies credentials and issues a JWT bearer token.
//
// @Summary Log in
// @Description Verifies a username and password and returns a signed bearer token carrying the account's role and branch scope.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body dto.LoginRequest true "Credentials"
// @Success 200 {object} dto.LoginResponse "Token successfully issued"
// @Failure 400 {object} dto.ErrorResponse "Invalid request payload"
// @Failure 401 {object} dto.ErrorResponse "Unknown user, wrong password, or deactivated account"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		h.logger.WarnContext(r.Context(), "Failed to decode login request", slog.Any("error", err))
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}
	if err := req.Validate(); err != nil {
		respondError(w, err)
		return
	}

	account, err := h.userService.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		h.logger.WarnContext(r.Context(), "Authentication failed", slog.String("username", req.Username))
		respondError(w, err)
		return
	}

	tokenString, err := h.signToken(account)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Failed to sign token", slog.Any("error", err))
		respondError(w, fmt.Errorf("%w: could not issue token", apperrors.ErrInternalServer))
		return
	}

	h.logger.InfoContext(r.Context(), "User logged in", slog.String("username", account.Username), slog.String("role", string(account.Role)))
	respondJSON(w, http.StatusOK, dto.LoginResponse{
		Token: tokenString,
		User:  dto.NewUserResponse(account),
	})
}

func (h *AuthHandler) signToken(account *user.User) (string, error) {
	expiry := h.cfg.TokenExpiry
	if expiry <= 0 {
		expiry = 24 * time.Hour
	}

	claims := &middleware.Claims{
		Username: account.Username,
		Role:     account.Role,
		BranchID: account.BranchID,
		UserID:   account.UserID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiry)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(h.cfg.JWTSecret))
}
