package dto

import (
	"strconv"
	"strings"
	"time"

	"microfin-office/internal/domain/user"
	"microfin-office/internal/pkg/apperrors"
)

type CreateUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	FullName string `json:"fullName"`
	Role     string `json:"role"`
	BranchID *int64 `json:"branchId,omitempty"`
}

func (r *CreateUserRequest) Validate() error {
	if strings.TrimSpace(r.Username) == "" {
		return apperrors.NewValidationError("username", "cannot be empty")
	}
	if r.Password == "" {
		return apperrors.NewValidationError("password", "cannot be empty")
	}
	if !user.Role(r.Role).Valid() {
		return apperrors.NewValidationError("role", "must be one of admin, branch_manager, officer")
	}
	if r.BranchID != nil && *r.BranchID <= 0 {
		return apperrors.NewValidationError("branchId", "must be positive when provided")
	}
	return nil
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (r *LoginRequest) Validate() error {
	if strings.TrimSpace(r.Username) == "" || r.Password == "" {
		return apperrors.NewValidationError("", "username and password are required")
	}
	return nil
}

type LoginResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

type ChangePasswordRequest struct {
	NewPassword string `json:"newPassword"`
}

func (r *ChangePasswordRequest) Validate() error {
	if r.NewPassword == "" {
		return apperrors.NewValidationError("newPassword", "cannot be empty")
	}
	return nil
}

type UserResponse struct {
	UserID    string    `json:"userId"`
	Username  string    `json:"username"`
	FullName  string    `json:"fullName"`
	Role      string    `json:"role"`
	BranchID  *string   `json:"branchId,omitempty"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func NewUserResponse(u *user.User) UserResponse {
	if u == nil {
		return UserResponse{}
	}

	var branchIDStr *string
	if u.BranchID != nil {
		s := strconv.FormatInt(*u.BranchID, 10)
		branchIDStr = &s
	}

	return UserResponse{
		UserID:    strconv.FormatInt(u.UserID, 10),
		Username:  u.Username,
		FullName:  u.FullName,
		Role:      string(u.Role),
		BranchID:  branchIDStr,
		Active:    u.Active,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}
