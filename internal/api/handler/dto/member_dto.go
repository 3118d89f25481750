package dto

import (
	"strconv"
	"strings"
	"time"

	"microfin-office/internal/domain/member"
	"microfin-office/internal/pkg/apperrors"
)

type CreateMemberRequest struct {
	BranchID   int64  `json:"branchId"`
	GroupID    *int64 `json:"groupId,omitempty"`
	Name       string `json:"name"`
	Phone      string `json:"phone,omitempty"`
	Address    string `json:"address,omitempty"`
	NationalID string `json:"nationalId,omitempty"`
	PhotoURL   string `json:"photoUrl,omitempty"`
}

func (r *CreateMemberRequest) Validate() error {
	if r.BranchID <= 0 {
		return apperrors.NewValidationError("branchId", "must be positive")
	}
	if strings.TrimSpace(r.Name) == "" {
		return apperrors.NewValidationError("name", "cannot be empty")
	}
	if r.GroupID != nil && *r.GroupID <= 0 {
		return apperrors.NewValidationError("groupId", "must be positive when provided")
	}
	return nil
}

type UpdateMemberContactRequest struct {
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

func (r *UpdateMemberContactRequest) Validate() error {
	if strings.TrimSpace(r.Phone) == "" && strings.TrimSpace(r.Address) == "" {
		return apperrors.NewValidationError("", "at least one of phone or address must be provided")
	}
	return nil
}

type AssignGroupRequest struct {
	GroupID int64 `json:"groupId"`
}

func (r *AssignGroupRequest) Validate() error {
	if r.GroupID <= 0 {
		return apperrors.NewValidationError("groupId", "must be a positive number")
	}
	return nil
}

type AssignLoanRequest struct {
	LoanID int64 `json:"loanId"`
}

func (r *AssignLoanRequest) Validate() error {
	if r.LoanID <= 0 {
		return apperrors.NewValidationError("loanId", "must be a positive number")
	}
	return nil
}

type UpdateOverdueStandingRequest struct {
	Overdue bool `json:"overdue"`
}

type MemberResponse struct {
	MemberID     string    `json:"memberId"`
	BranchID     string    `json:"branchId"`
	GroupID      *string   `json:"groupId,omitempty"`
	MemberNumber string    `json:"memberNumber"`
	Name         string    `json:"name"`
	Phone        string    `json:"phone,omitempty"`
	Address      string    `json:"address,omitempty"`
	NationalID   string    `json:"nationalId,omitempty"`
	PhotoURL     string    `json:"photoUrl,omitempty"`
	Overdue      bool      `json:"overdue"`
	Active       bool      `json:"active"`
	LoanID       *string   `json:"loanId,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func NewMemberResponse(memb *member.Member) MemberResponse {
	if memb == nil {
		return MemberResponse{}
	}

	var groupIDStr, loanIDStr *string
	if memb.GroupID != nil {
		s := strconv.FormatInt(*memb.GroupID, 10)
		groupIDStr = &s
	}
	if memb.LoanID != nil {
		s := strconv.FormatInt(*memb.LoanID, 10)
		loanIDStr = &s
	}

	return MemberResponse{
		MemberID:     strconv.FormatInt(memb.MemberID, 10),
		BranchID:     strconv.FormatInt(memb.BranchID, 10),
		GroupID:      groupIDStr,
		MemberNumber: memb.MemberNumber,
		Name:         memb.Name,
		Phone:        memb.Phone,
		Address:      memb.Address,
		NationalID:   memb.NationalID,
		PhotoURL:     memb.PhotoURL,
		Overdue:      memb.Overdue,
		Active:       memb.Active,
		LoanID:       loanIDStr,
		CreatedAt:    memb.CreatedAt,
		UpdatedAt:    memb.UpdatedAt,
	}
}
