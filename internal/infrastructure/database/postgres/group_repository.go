package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5"

	"microfin-office/internal/domain/group"
	"microfin-office/internal/pkg/apperrors"
)

type GroupRepository struct {
	db     DBPool
	logger *slog.Logger
}

var _ group.Repository = (*GroupRepository)(nil)

func NewGroupRepository(db DBPool, logger *slog.Logger) *GroupRepository {
	if db == nil {
		panic("DBPool cannot be nil for GroupRepository")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
		logger.Warn("Warning: No logger provided to NewGroupRepository, using default stderr handler")
	}
	return &GroupRepository{
		db:     db,
		logger: logger.With("component", "GroupRepository"),
	}
}

func (r *GroupRepository) Save(ctx context.Context, g *group.Group) error {
	if g == nil {
		return fmt.Errorf("%w: group cannot be nil", apperrors.ErrInvalidArgument)
	}

	if g.GroupID == 0 {
		return r.createGroup(ctx, g)
	}
	return r.updateGroup(ctx, g)
}

func (r *GroupRepository) createGroup(ctx context.Context, g *group.Group) error {
	r.logger.InfoContext(ctx, "Attempting to insert new group", slog.String("name", g.Name))

	query := `
        INSERT INTO groups (branch_id, name, meeting_day, created_at, updated_at)
        VALUES ($1, $2, $3, NOW(), NOW())
        RETURNING id, created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		g.BranchID,
		g.Name,
		g.MeetingDay,
	).Scan(
		&g.GroupID,
		&g.CreatedAt,
		&g.UpdatedAt,
	)

	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to insert group", slog.Any("error", err))
		return fmt.Errorf("%w: failed to insert group: %w", apperrors.ErrDatabase, err)
	}

	r.logger.InfoContext(ctx, "Group inserted successfully", slog.Int64("groupID", g.GroupID))
	return nil
}

func (r *GroupRepository) updateGroup(ctx context.Context, g *group.Group) error {
	r.logger.InfoContext(ctx, "Attempting to update group")

	query := `
        UPDATE groups
        SET name = $1,
            meeting_day = $2,
            updated_at = NOW()
        WHERE id = $3`

	cmdTag, err := r.db.Exec(ctx, query, g.Name, g.MeetingDay, g.GroupID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to update group", slog.Any("error", err))
		return fmt.Errorf("%w: failed to update group: %w", apperrors.ErrDatabase, err)
	}

	if cmdTag.RowsAffected() == 0 {
		r.logger.WarnContext(ctx, "Update affected zero rows, group likely not found")
		return group.ErrNotFound
	}

	r.logger.InfoContext(ctx, "Group updated successfully")
	return nil
}

func (r *GroupRepository) FindByID(ctx context.Context, groupID int64) (*group.Group, error) {
	r.logger.InfoContext(ctx, "Attempting to find group by ID")

	query := `
        SELECT g.id, g.branch_id, g.name, g.meeting_day,
               (SELECT COUNT(*) FROM members m WHERE m.group_id = g.id AND m.active) AS member_count,
               g.created_at, g.updated_at
        FROM groups g
        WHERE g.id = $1`

	var g group.Group
	err := r.db.QueryRow(ctx, query, groupID).Scan(
		&g.GroupID,
		&g.BranchID,
		&g.Name,
		&g.MeetingDay,
		&g.MemberCount,
		&g.CreatedAt,
		&g.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.WarnContext(ctx, "Group not found")
			return nil, group.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to query/scan group by ID", slog.Any("error", err))
		return nil, fmt.Errorf("%w: failed to get group by ID: %w", apperrors.ErrDatabase, err)
	}

	r.logger.InfoContext(ctx, "Group found successfully")
	return &g, nil
}

func (r *GroupRepository) FindAll(ctx context.Context, branchID *int64) ([]*group.Group, error) {
	r.logger.InfoContext(ctx, "Attempting to find all groups")

	query := `
        SELECT g.id, g.branch_id, g.name, g.meeting_day,
               (SELECT COUNT(*) FROM members m WHERE m.group_id = g.id AND m.active) AS member_count,
               g.created_at, g.updated_at
        FROM groups g`
	args := []any{}
	if branchID != nil {
		query += " WHERE g.branch_id = $1"
		args = append(args, *branchID)
	}
	query += " ORDER BY g.id ASC"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to query groups", slog.Any("error", err))
		return nil, fmt.Errorf("%w: failed to query groups: %w", apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	groups := make([]*group.Group, 0)
	for rows.Next() {
		var g group.Group
		err := rows.Scan(
			&g.GroupID,
			&g.BranchID,
			&g.Name,
			&g.MeetingDay,
			&g.MemberCount,
			&g.CreatedAt,
			&g.UpdatedAt,
		)
		if err != nil {
			r.logger.ErrorContext(ctx, "Failed to scan group row", slog.Any("error", err))
			return nil, fmt.Errorf("%w: failed to scan group row: %w", apperrors.ErrDatabase, err)
		}
		groups = append(groups, &g)
	}

	if err = rows.Err(); err != nil {
		r.logger.ErrorContext(ctx, "Error iterating group rows", slog.Any("error", err))
		return nil, fmt.Errorf("%w: error iterating group rows: %w", apperrors.ErrDatabase, err)
	}

	r.logger.InfoContext(ctx, "Finished finding groups", slog.Int("count", len(groups)))
	return groups, nil
}
