package user

import (
	"context"
	"errors"
)

var (
	ErrNotFound          = errors.New("user not found")
	ErrDuplicateUsername = errors.New("username already taken")
)

type Repository interface {
	Save(ctx context.Context, u *User) error

	FindByID(ctx context.Context, userID int64) (*User, error)

	FindByUsername(ctx context.Context, username string) (*User, error)

	FindAll(ctx context.Context, activeOnly bool) ([]*User, error)

	SetActiveStatus(ctx context.Context, userID int64, active bool) error

	Delete(ctx context.Context, userID int64) error
}
