package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5"

	"microfin-office/internal/domain/expense"
	"microfin-office/internal/pkg/apperrors"
)

type ExpenseRepository struct {
	db     DBPool
	logger *slog.Logger
}

var _ expense.Repository = (*ExpenseRepository)(nil)

func NewExpenseRepository(db DBPool, logger *slog.Logger) *ExpenseRepository {
	if db == nil {
		panic("DBPool cannot be nil for ExpenseRepository")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
		logger.Warn("Warning: No logger provided to NewExpenseRepository, using default stderr handler")
	}
	return &ExpenseRepository{
		db:     db,
		logger: logger.With("component", "ExpenseRepository"),
	}
}

func (r *ExpenseRepository) Save(ctx context.Context, exp *expense.Expense) error {
	if exp == nil {
		return fmt.Errorf("%w: expense cannot be nil", apperrors.ErrInvalidArgument)
	}

	r.logger.InfoContext(ctx, "Attempting to insert new expense", slog.String("category", exp.Category))

	query := `
        INSERT INTO expenses (branch_id, category, amount, note, spent_at, recorded_by, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, NOW())
        RETURNING id, created_at`

	err := r.db.QueryRow(ctx, query,
		exp.BranchID,
		exp.Category,
		exp.Amount,
		exp.Note,
		exp.SpentAt,
		exp.RecordedBy,
	).Scan(
		&exp.ExpenseID,
		&exp.CreatedAt,
	)

	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to insert expense", slog.Any("error", err))
		return fmt.Errorf("%w: failed to insert expense: %w", apperrors.ErrDatabase, err)
	}

	r.logger.InfoContext(ctx, "Expense inserted successfully", slog.Int64("expenseID", exp.ExpenseID))
	return nil
}

const expenseColumns = `id, branch_id, category, amount, note, spent_at, recorded_by, created_at`

func (r *ExpenseRepository) FindByID(ctx context.Context, expenseID int64) (*expense.Expense, error) {
	r.logger.InfoContext(ctx, "Attempting to find expense by ID")

	query := `
        SELECT ` + expenseColumns + `
        FROM expenses
        WHERE id = $1`

	var exp expense.Expense
	err := r.db.QueryRow(ctx, query, expenseID).Scan(
		&exp.ExpenseID,
		&exp.BranchID,
		&exp.Category,
		&exp.Amount,
		&exp.Note,
		&exp.SpentAt,
		&exp.RecordedBy,
		&exp.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.WarnContext(ctx, "Expense not found")
			return nil, expense.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to query/scan expense by ID", slog.Any("error", err))
		return nil, fmt.Errorf("%w: failed to get expense by ID: %w", apperrors.ErrDatabase, err)
	}

	r.logger.InfoContext(ctx, "Expense found successfully")
	return &exp, nil
}

// buildExpenseFilter renders the shared WHERE clause for filtered queries.
func buildExpenseFilter(filter expense.ListFilter) (string, []any) {
	clause := " WHERE 1=1"
	args := []any{}
	argPos := 1

	if filter.BranchID != nil {
		clause += fmt.Sprintf(" AND branch_id = $%d", argPos)
		args = append(args, *filter.BranchID)
		argPos++
	}
	if filter.Category != "" {
		clause += fmt.Sprintf(" AND category = $%d", argPos)
		args = append(args, filter.Category)
		argPos++
	}
	if !filter.From.IsZero() {
		clause += fmt.Sprintf(" AND spent_at >= $%d", argPos)
		args = append(args, filter.From)
		argPos++
	}
	if !filter.To.IsZero() {
		clause += fmt.Sprintf(" AND spent_at <= $%d", argPos)
		args = append(args, filter.To)
	}

	return clause, args
}

func (r *ExpenseRepository) FindAll(ctx context.Context, filter expense.ListFilter) ([]*expense.Expense, error) {
	r.logger.InfoContext(ctx, "Attempting to find expenses")

	clause, args := buildExpenseFilter(filter)
	query := `
        SELECT ` + expenseColumns + `
        FROM expenses` + clause + ` ORDER BY spent_at DESC, id DESC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to query expenses", slog.Any("error", err))
		return nil, fmt.Errorf("%w: failed to query expenses: %w", apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	expenses := make([]*expense.Expense, 0)
	for rows.Next() {
		var exp expense.Expense
		err := rows.Scan(
			&exp.ExpenseID,
			&exp.BranchID,
			&exp.Category,
			&exp.Amount,
			&exp.Note,
			&exp.SpentAt,
			&exp.RecordedBy,
			&exp.CreatedAt,
		)
		if err != nil {
			r.logger.ErrorContext(ctx, "Failed to scan expense row", slog.Any("error", err))
			return nil, fmt.Errorf("%w: failed to scan expense row: %w", apperrors.ErrDatabase, err)
		}
		expenses = append(expenses, &exp)
	}

	if err = rows.Err(); err != nil {
		r.logger.ErrorContext(ctx, "Error iterating expense rows", slog.Any("error", err))
		return nil, fmt.Errorf("%w: error iterating expense rows: %w", apperrors.ErrDatabase, err)
	}

	r.logger.InfoContext(ctx, "Finished finding expenses", slog.Int("count", len(expenses)))
	return expenses, nil
}

func (r *ExpenseRepository) TotalByCategory(ctx context.Context, filter expense.ListFilter) ([]expense.CategoryTotal, error) {
	r.logger.InfoContext(ctx, "Attempting to total expenses by category")

	clause, args := buildExpenseFilter(filter)
	query := `
        SELECT category, COALESCE(SUM(amount), 0.00)
        FROM expenses` + clause + ` GROUP BY category ORDER BY category ASC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to query expense totals", slog.Any("error", err))
		return nil, fmt.Errorf("%w: failed to query expense totals: %w", apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	totals := make([]expense.CategoryTotal, 0)
	for rows.Next() {
		var t expense.CategoryTotal
		if err := rows.Scan(&t.Category, &t.Total); err != nil {
			r.logger.ErrorContext(ctx, "Failed to scan expense total row", slog.Any("error", err))
			return nil, fmt.Errorf("%w: failed to scan expense total row: %w", apperrors.ErrDatabase, err)
		}
		totals = append(totals, t)
	}

	if err = rows.Err(); err != nil {
		r.logger.ErrorContext(ctx, "Error iterating expense total rows", slog.Any("error", err))
		return nil, fmt.Errorf("%w: error iterating expense total rows: %w", apperrors.ErrDatabase, err)
	}

	return totals, nil
}

func (r *ExpenseRepository) Delete(ctx context.Context, expenseID int64) error {
	r.logger.InfoContext(ctx, "Attempting to delete expense")

	query := `DELETE FROM expenses WHERE id = $1`

	cmdTag, err := r.db.Exec(ctx, query, expenseID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to execute delete expense", slog.Any("error", err))
		return fmt.Errorf("%w: failed to delete expense: %w", apperrors.ErrDatabase, err)
	}

	if cmdTag.RowsAffected() == 0 {
		r.logger.WarnContext(ctx, "Delete affected zero rows, expense likely not found")
		return expense.ErrNotFound
	}

	r.logger.InfoContext(ctx, "Expense deleted successfully")
	return nil
}
