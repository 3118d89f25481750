package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5"

	"microfin-office/internal/domain/user"
	"microfin-office/internal/pkg/apperrors"
)

type UserRepository struct {
	db     DBPool
	logger *slog.Logger
}

var _ user.Repository = (*UserRepository)(nil)

func NewUserRepository(db DBPool, logger *slog.Logger) *UserRepository {
	if db == nil {
		panic("DBPool cannot be nil for UserRepository")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
		logger.Warn("Warning: No logger provided to NewUserRepository, using default stderr handler")
	}
	return &UserRepository{
		db:     db,
		logger: logger.With("component", "UserRepository"),
	}
}

func (r *UserRepository) Save(ctx context.Context, u *user.User) error {
	if u == nil {
		return fmt.Errorf("%w: user cannot be nil", apperrors.ErrInvalidArgument)
	}

	if u.UserID == 0 {
		return r.createUser(ctx, u)
	}
	return r.updateUser(ctx, u)
}

func (r *UserRepository) createUser(ctx context.Context, u *user.User) error {
	r.logger.InfoContext(ctx, "Attempting to insert new user", slog.String("username", u.Username))

	query := `
        INSERT INTO users (username, password_hash, full_name, role, branch_id, active, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
        RETURNING id, created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		u.Username,
		u.PasswordHash,
		u.FullName,
		u.Role,
		u.BranchID,
		u.Active,
	).Scan(
		&u.UserID,
		&u.CreatedAt,
		&u.UpdatedAt,
	)

	if err != nil {
		translatedErr := translateDBError(err, r.logger)
		if errors.Is(translatedErr, apperrors.ErrAlreadyExists) {
			r.logger.WarnContext(ctx, "Failed to insert user due to unique constraint violation", slog.String("username", u.Username))
			return fmt.Errorf("%w: %s", user.ErrDuplicateUsername, u.Username)
		}
		r.logger.ErrorContext(ctx, "Failed to insert user", slog.Any("error", err))
		return fmt.Errorf("%w: failed to insert user: %w", apperrors.ErrDatabase, err)
	}

	r.logger.InfoContext(ctx, "User inserted successfully", slog.Int64("userID", u.UserID))
	return nil
}

func (r *UserRepository) updateUser(ctx context.Context, u *user.User) error {
	r.logger.InfoContext(ctx, "Attempting to update user")

	query := `
        UPDATE users
        SET username = $1,
            password_hash = $2,
            full_name = $3,
            role = $4,
            branch_id = $5,
            active = $6,
            updated_at = NOW()
        WHERE id = $7`

	cmdTag, err := r.db.Exec(ctx, query,
		u.Username,
		u.PasswordHash,
		u.FullName,
		u.Role,
		u.BranchID,
		u.Active,
		u.UserID,
	)

	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to update user", slog.Any("error", err))
		return fmt.Errorf("%w: failed to update user: %w", apperrors.ErrDatabase, err)
	}

	if cmdTag.RowsAffected() == 0 {
		r.logger.WarnContext(ctx, "Update affected zero rows, user likely not found")
		return user.ErrNotFound
	}

	r.logger.InfoContext(ctx, "User updated successfully")
	return nil
}

const userColumns = `id, username, password_hash, full_name, role, branch_id, active, created_at, updated_at`

func scanUser(row pgx.Row, u *user.User) error {
	return row.Scan(
		&u.UserID,
		&u.Username,
		&u.PasswordHash,
		&u.FullName,
		&u.Role,
		&u.BranchID,
		&u.Active,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
}

func (r *UserRepository) FindByID(ctx context.Context, userID int64) (*user.User, error) {
	r.logger.InfoContext(ctx, "Attempting to find user by ID")

	query := `
        SELECT ` + userColumns + `
        FROM users
        WHERE id = $1`

	var u user.User
	err := scanUser(r.db.QueryRow(ctx, query, userID), &u)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.WarnContext(ctx, "User not found")
			return nil, user.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to query/scan user by ID", slog.Any("error", err))
		return nil, fmt.Errorf("%w: failed to get user by ID: %w", apperrors.ErrDatabase, err)
	}

	r.logger.InfoContext(ctx, "User found successfully")
	return &u, nil
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*user.User, error) {
	r.logger.InfoContext(ctx, "Attempting to find user by username")

	query := `
        SELECT ` + userColumns + `
        FROM users
        WHERE username = $1`

	var u user.User
	err := scanUser(r.db.QueryRow(ctx, query, username), &u)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.WarnContext(ctx, "User not found by username")
			return nil, user.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to query/scan user by username", slog.Any("error", err))
		return nil, fmt.Errorf("%w: failed to get user by username: %w", apperrors.ErrDatabase, err)
	}

	r.logger.InfoContext(ctx, "User found successfully by username")
	return &u, nil
}

func (r *UserRepository) FindAll(ctx context.Context, activeOnly bool) ([]*user.User, error) {
	r.logger.InfoContext(ctx, "Attempting to find all users")

	baseQuery := `
        SELECT ` + userColumns + `
        FROM users`
	args := []any{}
	query := baseQuery
	if activeOnly {
		query += " WHERE active = $1"
		args = append(args, true)
	}
	query += " ORDER BY id ASC"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to query users", slog.Any("error", err))
		return nil, fmt.Errorf("%w: failed to query users: %w", apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	users := make([]*user.User, 0)
	for rows.Next() {
		var u user.User
		if err := scanUser(rows, &u); err != nil {
			r.logger.ErrorContext(ctx, "Failed to scan user row", slog.Any("error", err))
			return nil, fmt.Errorf("%w: failed to scan user row: %w", apperrors.ErrDatabase, err)
		}
		users = append(users, &u)
	}

	if err = rows.Err(); err != nil {
		r.logger.ErrorContext(ctx, "Error iterating user rows", slog.Any("error", err))
		return nil, fmt.Errorf("%w: error iterating user rows: %w", apperrors.ErrDatabase, err)
	}

	r.logger.InfoContext(ctx, "Finished finding users", slog.Int("count", len(users)))
	return users, nil
}

func (r *UserRepository) SetActiveStatus(ctx context.Context, userID int64, active bool) error {
	r.logger.InfoContext(ctx, "Attempting to set user active status")

	query := `UPDATE users SET active = $1, updated_at = NOW() WHERE id = $2`

	cmdTag, err := r.db.Exec(ctx, query, active, userID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to execute update active status", slog.Any("error", err))
		return fmt.Errorf("%w: failed to update active status: %w", apperrors.ErrDatabase, err)
	}

	if cmdTag.RowsAffected() == 0 {
		r.logger.WarnContext(ctx, "Update active status affected zero rows, user likely not found")
		return user.ErrNotFound
	}

	r.logger.InfoContext(ctx, "User active status updated successfully")
	return nil
}

func (r *UserRepository) Delete(ctx context.Context, userID int64) error {
	r.logger.InfoContext(ctx, "Attempting to delete user")

	query := `DELETE FROM users WHERE id = $1`

	cmdTag, err := r.db.Exec(ctx, query, userID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to execute delete user", slog.Any("error", err))
		return fmt.Errorf("%w: failed to delete user: %w", apperrors.ErrDatabase, err)
	}

	if cmdTag.RowsAffected() == 0 {
		r.logger.WarnContext(ctx, "Delete affected zero rows, user likely not found")
		return user.ErrNotFound
	}

	r.logger.InfoContext(ctx, "User deleted successfully")
	return nil
}
