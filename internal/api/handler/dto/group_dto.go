package dto

import (
	"strconv"
	"strings"
	"time"

	"microfin-office/internal/domain/group"
	"microfin-office/internal/pkg/apperrors"
)

type CreateGroupRequest struct {
	BranchID   int64  `json:"branchId"`
	Name       string `json:"name"`
	MeetingDay string `json:"meetingDay,omitempty"`
}

func (r *CreateGroupRequest) Validate() error {
	if r.BranchID <= 0 {
		return apperrors.NewValidationError("branchId", "must be positive")
	}
	if strings.TrimSpace(r.Name) == "" {
		return apperrors.NewValidationError("name", "cannot be empty")
	}
	return nil
}

type RenameGroupRequest struct {
	Name string `json:"name"`
}

func (r *RenameGroupRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return apperrors.NewValidationError("name", "cannot be empty")
	}
	return nil
}

type GroupResponse struct {
	GroupID     string    `json:"groupId"`
	BranchID    string    `json:"branchId"`
	Name        string    `json:"name"`
	MeetingDay  string    `json:"meetingDay,omitempty"`
	MemberCount int       `json:"memberCount"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func NewGroupResponse(g *group.Group) GroupResponse {
	if g == nil {
		return GroupResponse{}
	}
	return GroupResponse{
		GroupID:     strconv.FormatInt(g.GroupID, 10),
		BranchID:    strconv.FormatInt(g.BranchID, 10),
		Name:        g.Name,
		MeetingDay:  g.MeetingDay,
		MemberCount: g.MemberCount,
		CreatedAt:   g.CreatedAt,
		UpdatedAt:   g.UpdatedAt,
	}
}
