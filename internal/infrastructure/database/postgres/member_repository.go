package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5"

	"microfin-office/internal/domain/member"
	"microfin-office/internal/pkg/apperrors"
)

type MemberRepository struct {
	db     DBPool
	logger *slog.Logger
}

var _ member.Repository = (*MemberRepository)(nil)

func NewMemberRepository(db DBPool, logger *slog.Logger) *MemberRepository {
	if db == nil {
		panic("DBPool cannot be nil for MemberRepository")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
		logger.Warn("Warning: No logger provided to NewMemberRepository, using default stderr handler")
	}
	return &MemberRepository{
		db:     db,
		logger: logger.With("component", "MemberRepository"),
	}
}

func (r *MemberRepository) Save(ctx context.Context, memb *member.Member) error {
	if memb == nil {
		return fmt.Errorf("%w: member cannot be nil", apperrors.ErrInvalidArgument)
	}

	if memb.MemberID == 0 {
		return r.createMember(ctx, memb)
	}
	return r.updateMember(ctx, memb)
}

func (r *MemberRepository) createMember(ctx context.Context, memb *member.Member) error {
	r.logger.InfoContext(ctx, "Attempting to insert new member", slog.String("name", memb.Name))

	// member_number comes from the table default (branch-prefixed sequence).
	query := `
        INSERT INTO members (branch_id, group_id, name, phone, address, national_id, photo_url, overdue, active, loan_id, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
        RETURNING id, member_number, created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		memb.BranchID,
		memb.GroupID,
		memb.Name,
		memb.Phone,
		memb.Address,
		memb.NationalID,
		memb.PhotoURL,
		memb.Overdue,
		memb.Active,
		memb.LoanID,
	).Scan(
		&memb.MemberID,
		&memb.MemberNumber,
		&memb.CreatedAt,
		&memb.UpdatedAt,
	)

	if err != nil {
		translatedErr := translateDBError(err, r.logger)
		if errors.Is(translatedErr, apperrors.ErrAlreadyExists) {
			r.logger.WarnContext(ctx, "Failed to insert member due to unique constraint violation", slog.Any("error", err))
			return translatedErr
		}
		r.logger.ErrorContext(ctx, "Failed to insert member", slog.Any("error", err))
		return fmt.Errorf("%w: failed to insert member: %w", apperrors.ErrDatabase, err)
	}

	r.logger.InfoContext(ctx, "Member inserted successfully", slog.Int64("memberID", memb.MemberID))
	return nil
}

func (r *MemberRepository) updateMember(ctx context.Context, memb *member.Member) error {
	r.logger.InfoContext(ctx, "Attempting to update member")

	query := `
        UPDATE members
        SET branch_id = $1,
            group_id = $2,
            name = $3,
            phone = $4,
            address = $5,
            national_id = $6,
            photo_url = $7,
            overdue = $8,
            active = $9,
            loan_id = $10,
            updated_at = NOW()
        WHERE id = $11`

	cmdTag, err := r.db.Exec(ctx, query,
		memb.BranchID,
		memb.GroupID,
		memb.Name,
		memb.Phone,
		memb.Address,
		memb.NationalID,
		memb.PhotoURL,
		memb.Overdue,
		memb.Active,
		memb.LoanID,
		memb.MemberID,
	)

	if err != nil {
		translatedErr := translateDBError(err, r.logger)
		if errors.Is(translatedErr, apperrors.ErrAlreadyExists) {
			r.logger.WarnContext(ctx, "Failed to update member due to unique constraint violation", slog.Any("error", err))
			return translatedErr
		}
		r.logger.ErrorContext(ctx, "Failed to update member", slog.Any("error", err))
		return fmt.Errorf("%w: failed to update member: %w", apperrors.ErrDatabase, err)
	}

	if cmdTag.RowsAffected() == 0 {
		r.logger.WarnContext(ctx, "Update affected zero rows, member likely not found")
		return member.ErrNotFound
	}

	r.logger.InfoContext(ctx, "Member updated successfully")
	return nil
}

const memberColumns = `id, branch_id, group_id, member_number, name, phone, address, national_id, photo_url, overdue, active, loan_id, created_at, updated_at`

func scanMember(row pgx.Row, memb *member.Member) error {
	return row.Scan(
		&memb.MemberID,
		&memb.BranchID,
		&memb.GroupID,
		&memb.MemberNumber,
		&memb.Name,
		&memb.Phone,
		&memb.Address,
		&memb.NationalID,
		&memb.PhotoURL,
		&memb.Overdue,
		&memb.Active,
		&memb.LoanID,
		&memb.CreatedAt,
		&memb.UpdatedAt,
	)
}

func (r *MemberRepository) FindByID(ctx context.Context, memberID int64) (*member.Member, error) {
	r.logger.InfoContext(ctx, "Attempting to find member by ID")

	query := `
        SELECT ` + memberColumns + `
        FROM members
        WHERE id = $1`

	var memb member.Member
	err := scanMember(r.db.QueryRow(ctx, query, memberID), &memb)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.WarnContext(ctx, "Member not found")
			return nil, member.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to query/scan member by ID", slog.Any("error", err))
		return nil, fmt.Errorf("%w: failed to get member by ID: %w", apperrors.ErrDatabase, err)
	}

	r.logger.InfoContext(ctx, "Member found successfully")
	return &memb, nil
}

func (r *MemberRepository) FindByLoanID(ctx context.Context, loanID int64) (*member.Member, error) {
	r.logger.InfoContext(ctx, "Attempting to find member by loan ID")

	query := `
        SELECT ` + memberColumns + `
        FROM members
        WHERE loan_id = $1`

	var memb member.Member
	err := scanMember(r.db.QueryRow(ctx, query, loanID), &memb)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.WarnContext(ctx, "Member not found for the given loan ID")
			return nil, member.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to query/scan member by loan ID", slog.Any("error", err))
		return nil, fmt.Errorf("%w: failed to get member by loan ID: %w", apperrors.ErrDatabase, err)
	}

	r.logger.InfoContext(ctx, "Member found successfully by loan ID", slog.Int64("memberID", memb.MemberID))
	return &memb, nil
}

func (r *MemberRepository) FindAll(ctx context.Context, filter member.ListFilter) ([]*member.Member, error) {
	r.logger.InfoContext(ctx, "Attempting to find all members")

	query := `
        SELECT ` + memberColumns + `
        FROM members
        WHERE 1=1`
	args := []any{}
	argPos := 1

	if filter.BranchID != nil {
		query += fmt.Sprintf(" AND branch_id = $%d", argPos)
		args = append(args, *filter.BranchID)
		argPos++
	}
	if filter.GroupID != nil {
		query += fmt.Sprintf(" AND group_id = $%d", argPos)
		args = append(args, *filter.GroupID)
		argPos++
	}
	if filter.ActiveOnly {
		query += fmt.Sprintf(" AND active = $%d", argPos)
		args = append(args, true)
	}
	query += " ORDER BY id ASC"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to query members", slog.Any("error", err))
		return nil, fmt.Errorf("%w: failed to query members: %w", apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	members := make([]*member.Member, 0)
	for rows.Next() {
		var memb member.Member
		if err := scanMember(rows, &memb); err != nil {
			r.logger.ErrorContext(ctx, "Failed to scan member row", slog.Any("error", err))
			return nil, fmt.Errorf("%w: failed to scan member row: %w", apperrors.ErrDatabase, err)
		}
		members = append(members, &memb)
	}

	if err = rows.Err(); err != nil {
		r.logger.ErrorContext(ctx, "Error iterating member rows", slog.Any("error", err))
		return nil, fmt.Errorf("%w: error iterating member rows: %w", apperrors.ErrDatabase, err)
	}

	r.logger.InfoContext(ctx, "Finished finding members", slog.Int("count", len(members)))
	return members, nil
}

func (r *MemberRepository) SetOverdueStanding(ctx context.Context, memberID int64, overdue bool) error {
	r.logger.InfoContext(ctx, "Attempting to set overdue standing")

	query := `UPDATE members SET overdue = $1, updated_at = NOW() WHERE id = $2`

	cmdTag, err := r.db.Exec(ctx, query, overdue, memberID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to execute update overdue standing", slog.Any("error", err))
		return fmt.Errorf("%w: failed to update overdue standing: %w", apperrors.ErrDatabase, err)
	}

	if cmdTag.RowsAffected() == 0 {
		r.logger.WarnContext(ctx, "Update overdue standing affected zero rows, member likely not found")
		return member.ErrNotFound
	}

	r.logger.InfoContext(ctx, "Member overdue standing updated successfully")
	return nil
}

func (r *MemberRepository) SetActiveStatus(ctx context.Context, memberID int64, isActive bool) error {
	r.logger.InfoContext(ctx, "Attempting to set active status")

	query := `UPDATE members SET active = $1, updated_at = NOW() WHERE id = $2`

	cmdTag, err := r.db.Exec(ctx, query, isActive, memberID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to execute update active status", slog.Any("error", err))
		return fmt.Errorf("%w: failed to update active status: %w", apperrors.ErrDatabase, err)
	}

	if cmdTag.RowsAffected() == 0 {
		r.logger.WarnContext(ctx, "Update active status affected zero rows, member likely not found")
		return member.ErrNotFound
	}

	r.logger.InfoContext(ctx, "Member active status updated successfully")
	return nil
}
