package dto

import (
	"strconv"
	"strings"
	"time"

	"microfin-office/internal/domain/branch"
	"microfin-office/internal/pkg/apperrors"
)

type CreateBranchRequest struct {
	Name    string `json:"name"`
	Code    string `json:"code"`
	Address string `json:"address,omitempty"`
	Phone   string `json:"phone,omitempty"`
}

func (r *CreateBranchRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return apperrors.NewValidationError("name", "cannot be empty")
	}
	if strings.TrimSpace(r.Code) == "" {
		return apperrors.NewValidationError("code", "cannot be empty")
	}
	return nil
}

type UpdateBranchRequest struct {
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
	Phone   string `json:"phone,omitempty"`
}

func (r *UpdateBranchRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return apperrors.NewValidationError("name", "cannot be empty")
	}
	return nil
}

type BranchResponse struct {
	BranchID  string    `json:"branchId"`
	Name      string    `json:"name"`
	Code      string    `json:"code"`
	Address   string    `json:"address,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func NewBranchResponse(b *branch.Branch) BranchResponse {
	if b == nil {
		return BranchResponse{}
	}
	return BranchResponse{
		BranchID:  strconv.FormatInt(b.BranchID, 10),
		Name:      b.Name,
		Code:      b.Code,
		Address:   b.Address,
		Phone:     b.Phone,
		Active:    b.Active,
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
}
