package branch

import (
	"context"
	"errors"
)

var (
	ErrNotFound = errors.New("branch not found")

	ErrDuplicateCode = errors.New("branch code already in use")

	ErrBranchHasActiveLoans = errors.New("cannot deactivate branch with active loans")
)

type Repository interface {
	Save(ctx context.Context, branch *Branch) error

	FindByID(ctx context.Context, branchID int64) (*Branch, error)

	FindByCode(ctx context.Context, code string) (*Branch, error)

	FindAll(ctx context.Context, activeOnly bool) ([]*Branch, error)

	CountActiveLoans(ctx context.Context, branchID int64) (int, error)

	SetActiveStatus(ctx context.Context, branchID int64, isActive bool) error
}
