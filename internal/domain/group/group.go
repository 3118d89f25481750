package group

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("group not found")

type Group struct {
	GroupID     int64     `json:"groupId"`
	BranchID    int64     `json:"branchId"`
	Name        string    `json:"name"`
	MeetingDay  string    `json:"meetingDay,omitempty"`
	MemberCount int       `json:"memberCount"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func NewGroup(branchID int64, name, meetingDay string) *Group {
	now := time.Now()
	return &Group{
		BranchID:   branchID,
		Name:       name,
		MeetingDay: meetingDay,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

type Repository interface {
	Save(ctx context.Context, group *Group) error

	FindByID(ctx context.Context, groupID int64) (*Group, error)

	// FindAll returns groups with their member counts, optionally
	// restricted to a branch.
	FindAll(ctx context.Context, branchID *int64) ([]*Group, error)
}
