package member

import (
	"context"
	"errors"
)

var (
	ErrNotFound = errors.New("member not found")

	ErrDuplicateLoanID = errors.New("loan ID already assigned to another member")

	ErrDuplicateNationalID = errors.New("national ID already registered")

	ErrCannotDeactivateActiveLoan = errors.New("cannot deactivate member with active loan")

	ErrMemberAlreadyHasLoan = errors.New("member already has an assigned active loan")
)

// ListFilter narrows FindAll; nil fields mean no constraint. The original
// pages filtered per-branch and per-group after fetching everything.
type ListFilter struct {
	BranchID   *int64
	GroupID    *int64
	ActiveOnly bool
}

type Repository interface {
	Save(ctx context.Context, member *Member) error

	FindByID(ctx context.Context, memberID int64) (*Member, error)

	FindByLoanID(ctx context.Context, loanID int64) (*Member, error)

	FindAll(ctx context.Context, filter ListFilter) ([]*Member, error)

	SetOverdueStanding(ctx context.Context, memberID int64, overdue bool) error

	SetActiveStatus(ctx context.Context, memberID int64, isActive bool) error
}
