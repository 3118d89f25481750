package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"microfin-office/internal/api/handler/dto"
	"microfin-office/internal/domain/user"
	"microfin-office/internal/pkg/apperrors"
)

type UserHandler struct {
	service user.Service
	logger  *slog.Logger
}

func NewUserHandler(s user.Service, l *slog.Logger) *UserHandler {
	if s == nil {
		panic("user service cannot be nil")
	}
	return &UserHandler{
		service: s,
		logger:  l.With("component", "UserHandler"),
	}
}

// CreateUser handles POST /users
// @Summary Create a staff account
// @Description Creates a back-office account. Managers and officers must be scoped to a branch; admins must not be.
// @Tags Users
// @Accept json
// @Produce json
// @Param request body dto.CreateUserRequest true "Account creation request"
// @Success 201 {object} dto.UserResponse "Account successfully created"
// @Failure 400 {object} dto.ErrorResponse "Invalid request payload"
// @Failure 409 {object} dto.ErrorResponse "Username already taken"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /users [post]
// @Security BearerAuth
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		h.logger.WarnContext(r.Context(), "Failed to decode request body", slog.Any("error", err))
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}
	if err := req.Validate(); err != nil {
		respondError(w, err)
		return
	}

	account, err := h.service.CreateUser(r.Context(), req.Username, req.Password, req.FullName, user.Role(req.Role), req.BranchID)
	if err != nil {
		level := slog.LevelWarn
		if !errors.Is(err, user.ErrDuplicateUsername) && !errors.Is(err, apperrors.ErrValidation) {
			level = slog.LevelError
		}
		h.logger.Log(r.Context(), level, "Service failed to create user", slog.Any("error", err))
		respondError(w, err)
		return
	}

	resp := dto.NewUserResponse(account)
	h.logger.InfoContext(r.Context(), "User created successfully", slog.String("userID", resp.UserID))
	respondJSON(w, http.StatusCreated, resp)
}

// GetUser handles GET /users/{userID}
// @Summary Retrieve a staff account
// @Description Retrieves a back-office account by its ID. The password hash is never returned.
// @Tags Users
// @Produce json
// @Param userID path int true "User ID" Minimum(1)
// @Success 200 {object} dto.UserResponse "Account retrieved"
// @Failure 400 {object} dto.ErrorResponse "Invalid user ID format"
// @Failure 404 {object} dto.ErrorResponse "User not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /users/{userID} [get]
// @Security BearerAuth
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	userID, err := idFromURL(r, "userID")
	if err != nil {
		respondError(w, err)
		return
	}

	account, err := h.service.GetUser(r.Context(), userID)
	if err != nil {
		level := slog.LevelWarn
		if !errors.Is(err, user.ErrNotFound) {
			level = slog.LevelError
		}
		h.logger.Log(r.Context(), level, "Service failed to get user", slog.Any("error", err))
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.NewUserResponse(account))
}

// ListUsers handles GET /users
// @Summary List staff accounts
// @Description Retrieves all accounts, or only active ones when `active=true`.
// @Tags Users
// @Produce json
// @Param active query bool false "Only return active accounts" Example(true)
// @Success 200 {array} dto.UserResponse "List of accounts"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /users [get]
// @Security BearerAuth
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active") == "true"

	accounts, err := h.service.ListUsers(r.Context(), activeOnly)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Service failed to list users", slog.Any("error", err))
		respondError(w, err)
		return
	}

	resp := make([]dto.UserResponse, len(accounts))
	for i, account := range accounts {
		resp[i] = dto.NewUserResponse(account)
	}

	h.logger.InfoContext(r.Context(), "Users listed successfully", slog.Int("count", len(resp)))
	respondJSON(w, http.StatusOK, resp)
}

// ChangePassword handles PUT /users/{userID}/password
// @Summary Change an account password
// @Description Replaces the password for a staff account.
// @Tags Users
// @Accept json
// @Produce json
// @Param userID path int true "User ID" Minimum(1)
// @Param request body dto.ChangePasswordRequest true "New password payload"
// @Success 204 "Password successfully changed"
// @Failure 400 {object} dto.ErrorResponse "Invalid user ID or weak password"
// @Failure 404 {object} dto.ErrorResponse "User not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /users/{userID}/password [put]
// @Security BearerAuth
func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	userID, err := idFromURL(r, "userID")
	if err != nil {
		respondError(w, err)
		return
	}

	var req dto.ChangePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}
	if err := req.Validate(); err != nil {
		respondError(w, err)
		return
	}

	if err := h.service.ChangePassword(r.Context(), userID, req.NewPassword); err != nil {
		level := slog.LevelWarn
		if !errors.Is(err, user.ErrNotFound) && !errors.Is(err, apperrors.ErrValidation) {
			level = slog.LevelError
		}
		h.logger.Log(r.Context(), level, "Service failed to change password", slog.Any("error", err))
		respondError(w, err)
		return
	}

	h.logger.InfoContext(r.Context(), "Password changed successfully")
	respondJSON(w, http.StatusNoContent, nil)
}

// DeactivateUser handles DELETE /users/{userID}
// @Summary Deactivate a staff account
// @Description Marks an account as inactive so it can no longer log in.
// @Tags Users
// @Produce json
// @Param userID path int true "User ID" Minimum(1)
// @Success 204 "Account successfully deactivated"
// @Failure 400 {object} dto.ErrorResponse "Invalid user ID"
// @Failure 404 {object} dto.ErrorResponse "User not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /users/{userID} [delete]
// @Security BearerAuth
func (h *UserHandler) DeactivateUser(w http.ResponseWriter, r *http.Request) {
	userID, err := idFromURL(r, "userID")
	if err != nil {
		respondError(w, err)
		return
	}

	if err := h.service.DeactivateUser(r.Context(), userID); err != nil {
		level := slog.LevelWarn
		if !errors.Is(err, user.ErrNotFound) {
			level = slog.LevelError
		}
		h.logger.Log(r.Context(), level, "Service failed to deactivate user", slog.Any("error", err))
		respondError(w, err)
		return
	}

	h.logger.InfoContext(r.Context(), "User deactivated successfully")
	respondJSON(w, http.StatusNoContent, nil)
}

// ReactivateUser handles PUT /users/{userID}/reactivate
// @Summary Reactivate a staff account
// @Description Marks an account as active again.
// @Tags Users
// @Produce json
// @Param userID path int true "User ID" Minimum(1)
// @Success 204 "Account successfully reactivated"
// @Failure 400 {object} dto.ErrorResponse "Invalid user ID"
// @Failure 404 {object} dto.ErrorResponse "User not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /users/{userID}/reactivate [put]
// @Security BearerAuth
func (h *UserHandler) ReactivateUser(w http.ResponseWriter, r *http.Request) {
	userID, err := idFromURL(r, "userID")
	if err != nil {
		respondError(w, err)
		return
	}

	if err := h.service.ReactivateUser(r.Context(), userID); err != nil {
		level := slog.LevelWarn
		if !errors.Is(err, user.ErrNotFound) {
			level = slog.LevelError
		}
		h.logger.Log(r.Context(), level, "Service failed to reactivate user", slog.Any("error", err))
		respondError(w, err)
		return
	}

	h.logger.InfoContext(r.Context(), "User reactivated successfully")
	respondJSON(w, http.StatusNoContent, nil)
}

// DeleteUser handles DELETE /users/{userID}/permanent
// @Summary Permanently delete a staff account
// @Description Removes an account row entirely. Prefer deactivation; this exists for cleaning up accounts created in error.
// @Tags Users
// @Produce json
// @Param userID path int true "User ID" Minimum(1)
// @Success 204 "Account permanently deleted"
// @Failure 400 {object} dto.ErrorResponse "Invalid user ID"
// @Failure 404 {object} dto.ErrorResponse "User not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /users/{userID}/permanent [delete]
// @Security BearerAuth
func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	userID, err := idFromURL(r, "userID")
	if err != nil {
		respondError(w, err)
		return
	}

	if err := h.service.DeleteUser(r.Context(), userID); err != nil {
		level := slog.LevelWarn
		if !errors.Is(err, user.ErrNotFound) {
			level = slog.LevelError
		}
		h.logger.Log(r.Context(), level, "Service failed to delete user", slog.Any("error", err))
		respondError(w, err)
		return
	}

	h.logger.InfoContext(r.Context(), "User deleted successfully")
	respondJSON(w, http.StatusNoContent, nil)
}
