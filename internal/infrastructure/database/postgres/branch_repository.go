package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5"

	"microfin-office/internal/domain/branch"
	"microfin-office/internal/pkg/apperrors"
)

type BranchRepository struct {
	db     DBPool
	logger *slog.Logger
}

var _ branch.Repository = (*BranchRepository)(nil)

func NewBranchRepository(db DBPool, logger *slog.Logger) *BranchRepository {
	if db == nil {
		panic("DBPool cannot be nil for BranchRepository")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
		logger.Warn("Warning: No logger provided to NewBranchRepository, using default stderr handler")
	}
	return &BranchRepository{
		db:     db,
		logger: logger.With("component", "BranchRepository"),
	}
}

func (r *BranchRepository) Save(ctx context.Context, b *branch.Branch) error {
	if b == nil {
		return fmt.Errorf("%w: branch cannot be nil", apperrors.ErrInvalidArgument)
	}

	if b.BranchID == 0 {
		return r.createBranch(ctx, b)
	}
	return r.updateBranch(ctx, b)
}

func (r *BranchRepository) createBranch(ctx context.Context, b *branch.Branch) error {
	r.logger.InfoContext(ctx, "Attempting to insert new branch", slog.String("code", b.Code))

	query := `
        INSERT INTO branches (name, code, address, phone, active, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
        RETURNING id, created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		b.Name,
		b.Code,
		b.Address,
		b.Phone,
		b.Active,
	).Scan(
		&b.BranchID,
		&b.CreatedAt,
		&b.UpdatedAt,
	)

	if err != nil {
		translatedErr := translateDBError(err, r.logger)
		if errors.Is(translatedErr, apperrors.ErrAlreadyExists) {
			r.logger.WarnContext(ctx, "Failed to insert branch due to unique constraint violation", slog.String("code", b.Code))
			return translatedErr
		}
		r.logger.ErrorContext(ctx, "Failed to insert branch", slog.Any("error", err))
		return fmt.Errorf("%w: failed to insert branch: %w", apperrors.ErrDatabase, err)
	}

	r.logger.InfoContext(ctx, "Branch inserted successfully", slog.Int64("branchID", b.BranchID))
	return nil
}

func (r *BranchRepository) updateBranch(ctx context.Context, b *branch.Branch) error {
	r.logger.InfoContext(ctx, "Attempting to update branch")

	query := `
        UPDATE branches
        SET name = $1,
            code = $2,
            address = $3,
            phone = $4,
            active = $5,
            updated_at = NOW()
        WHERE id = $6`

	cmdTag, err := r.db.Exec(ctx, query,
		b.Name,
		b.Code,
		b.Address,
		b.Phone,
		b.Active,
		b.BranchID,
	)

	if err != nil {
		translatedErr := translateDBError(err, r.logger)
		if errors.Is(translatedErr, apperrors.ErrAlreadyExists) {
			r.logger.WarnContext(ctx, "Failed to update branch due to unique constraint violation", slog.String("code", b.Code))
			return translatedErr
		}
		r.logger.ErrorContext(ctx, "Failed to update branch", slog.Any("error", err))
		return fmt.Errorf("%w: failed to update branch: %w", apperrors.ErrDatabase, err)
	}

	if cmdTag.RowsAffected() == 0 {
		r.logger.WarnContext(ctx, "Update affected zero rows, branch likely not found")
		return branch.ErrNotFound
	}

	r.logger.InfoContext(ctx, "Branch updated successfully")
	return nil
}

func (r *BranchRepository) FindByID(ctx context.Context, branchID int64) (*branch.Branch, error) {
	r.logger.InfoContext(ctx, "Attempting to find branch by ID")

	query := `
        SELECT id, name, code, address, phone, active, created_at, updated_at
        FROM branches
        WHERE id = $1`

	var b branch.Branch
	err := r.db.QueryRow(ctx, query, branchID).Scan(
		&b.BranchID,
		&b.Name,
		&b.Code,
		&b.Address,
		&b.Phone,
		&b.Active,
		&b.CreatedAt,
		&b.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.WarnContext(ctx, "Branch not found")
			return nil, branch.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to query/scan branch by ID", slog.Any("error", err))
		return nil, fmt.Errorf("%w: failed to get branch by ID: %w", apperrors.ErrDatabase, err)
	}

	r.logger.InfoContext(ctx, "Branch found successfully")
	return &b, nil
}

func (r *BranchRepository) FindByCode(ctx context.Context, code string) (*branch.Branch, error) {
	r.logger.InfoContext(ctx, "Attempting to find branch by code")

	query := `
        SELECT id, name, code, address, phone, active, created_at, updated_at
        FROM branches
        WHERE code = $1`

	var b branch.Branch
	err := r.db.QueryRow(ctx, query, code).Scan(
		&b.BranchID,
		&b.Name,
		&b.Code,
		&b.Address,
		&b.Phone,
		&b.Active,
		&b.CreatedAt,
		&b.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.WarnContext(ctx, "Branch not found by code")
			return nil, branch.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to query/scan branch by code", slog.Any("error", err))
		return nil, fmt.Errorf("%w: failed to get branch by code: %w", apperrors.ErrDatabase, err)
	}

	r.logger.InfoContext(ctx, "Branch found successfully by code")
	return &b, nil
}

func (r *BranchRepository) FindAll(ctx context.Context, activeOnly bool) ([]*branch.Branch, error) {
	r.logger.InfoContext(ctx, "Attempting to find all branches")

	baseQuery := `
        SELECT id, name, code, address, phone, active, created_at, updated_at
        FROM branches`
	args := []any{}
	query := baseQuery
	if activeOnly {
		query += " WHERE active = $1"
		args = append(args, true)
	}
	query += " ORDER BY id ASC"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to query branches", slog.Any("error", err))
		return nil, fmt.Errorf("%w: failed to query branches: %w", apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	branches := make([]*branch.Branch, 0)
	for rows.Next() {
		var b branch.Branch
		err := rows.Scan(
			&b.BranchID,
			&b.Name,
			&b.Code,
			&b.Address,
			&b.Phone,
			&b.Active,
			&b.CreatedAt,
			&b.UpdatedAt,
		)
		if err != nil {
			r.logger.ErrorContext(ctx, "Failed to scan branch row", slog.Any("error", err))
			return nil, fmt.Errorf("%w: failed to scan branch row: %w", apperrors.ErrDatabase, err)
		}
		branches = append(branches, &b)
	}

	if err = rows.Err(); err != nil {
		r.logger.ErrorContext(ctx, "Error iterating branch rows", slog.Any("error", err))
		return nil, fmt.Errorf("%w: error iterating branch rows: %w", apperrors.ErrDatabase, err)
	}

	r.logger.InfoContext(ctx, "Finished finding branches", slog.Int("count", len(branches)))
	return branches, nil
}

func (r *BranchRepository) CountActiveLoans(ctx context.Context, branchID int64) (int, error) {
	r.logger.InfoContext(ctx, "Counting active loans for branch", slog.Int64("branchID", branchID))

	query := `SELECT COUNT(*) FROM loans WHERE branch_id = $1 AND status IN ('ACTIVE', 'OVERDUE')`

	var count int
	if err := r.db.QueryRow(ctx, query, branchID).Scan(&count); err != nil {
		r.logger.ErrorContext(ctx, "Failed to count active loans", slog.Any("error", err))
		return 0, fmt.Errorf("%w: failed to count active loans: %w", apperrors.ErrDatabase, err)
	}

	return count, nil
}

func (r *BranchRepository) SetActiveStatus(ctx context.Context, branchID int64, isActive bool) error {
	r.logger.InfoContext(ctx, "Attempting to set branch active status")

	query := `UPDATE branches SET active = $1, updated_at = NOW() WHERE id = $2`

	cmdTag, err := r.db.Exec(ctx, query, isActive, branchID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to execute update active status", slog.Any("error", err))
		return fmt.Errorf("%w: failed to update active status: %w", apperrors.ErrDatabase, err)
	}

	if cmdTag.RowsAffected() == 0 {
		r.logger.WarnContext(ctx, "Update active status affected zero rows, branch likely not found")
		return branch.ErrNotFound
	}

	r.logger.InfoContext(ctx, "Branch active status updated successfully")
	return nil
}
