package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5"

	"microfin-office/internal/domain/report"
	"microfin-office/internal/infrastructure/monitoring"
	"microfin-office/internal/pkg/apperrors"
)

type ReportRepository struct {
	db     DBPool
	logger *slog.Logger
}

var _ report.Repository = (*ReportRepository)(nil)

func NewReportRepository(db DBPool, logger *slog.Logger) *ReportRepository {
	if db == nil {
		panic("DBPool cannot be nil for ReportRepository")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
		logger.Warn("Warning: No logger provided to NewReportRepository, using default stderr handler")
	}
	return &ReportRepository{
		db:     db,
		logger: logger.With("component", "ReportRepository"),
	}
}

// summarySelect computes every figure in SQL; outstanding and overdue sums
// come from unpaid installment rows, expenses from the requested window.
const summarySelect = `
    SELECT b.id,
           b.name,
           (SELECT COUNT(*) FROM members m WHERE m.branch_id = b.id AND m.active) AS member_count,
           (SELECT COUNT(*) FROM loans l WHERE l.branch_id = b.id AND l.status = 'ACTIVE') AS active_loans,
           (SELECT COUNT(*) FROM loans l WHERE l.branch_id = b.id AND l.status = 'OVERDUE') AS overdue_loans,
           (SELECT COUNT(*) FROM loans l WHERE l.branch_id = b.id AND l.status = 'PAID_OFF') AS paid_off_loans,
           (SELECT COALESCE(SUM(li.due_amount - li.paid_amount), 0.00)
              FROM loan_installments li
              JOIN loans l ON l.id = li.loan_id
             WHERE l.branch_id = b.id AND li.status != 'PAID') AS total_outstanding,
           (SELECT COALESCE(SUM(li.due_amount - li.paid_amount), 0.00)
              FROM loan_installments li
              JOIN loans l ON l.id = li.loan_id
             WHERE l.branch_id = b.id AND li.status != 'PAID' AND li.due_date < NOW()) AS total_overdue,
           (SELECT COALESCE(SUM(e.amount), 0.00)
              FROM expenses e
             WHERE e.branch_id = b.id AND e.spent_at >= $1 AND e.spent_at <= $2) AS total_expenses
    FROM branches b`

func scanBranchSummary(row pgx.Row, s *report.BranchSummary) error {
	return row.Scan(
		&s.BranchID,
		&s.BranchName,
		&s.MemberCount,
		&s.ActiveLoans,
		&s.OverdueLoans,
		&s.PaidOffLoans,
		&s.TotalOutstanding,
		&s.TotalOverdue,
		&s.TotalExpenses,
	)
}

func (r *ReportRepository) BranchSummary(ctx context.Context, branchID int64, from, to time.Time) (*report.BranchSummary, error) {
	r.logger.InfoContext(ctx, "Querying branch summary", slog.Int64("branchID", branchID))

	query := summarySelect + ` WHERE b.id = $3`
	status := "success"
	startTime := time.Now()

	var summary report.BranchSummary
	err := scanBranchSummary(r.db.QueryRow(ctx, query, from, to, branchID), &summary)

	if err != nil {
		status = "error"
	}
	monitoring.RecordDBQuery("BranchSummary", status, time.Since(startTime))

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.WarnContext(ctx, "Branch not found for summary", slog.Int64("branchID", branchID))
			return nil, report.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to query branch summary", slog.Any("error", err))
		return nil, fmt.Errorf("%w: failed to query branch summary: %w", apperrors.ErrDatabase, err)
	}

	return &summary, nil
}

func (r *ReportRepository) AllBranchSummaries(ctx context.Context, from, to time.Time) ([]report.BranchSummary, error) {
	r.logger.InfoContext(ctx, "Querying all branch summaries")

	query := summarySelect + ` WHERE b.active ORDER BY b.id ASC`
	status := "success"
	startTime := time.Now()

	rows, err := r.db.Query(ctx, query, from, to)
	if err != nil {
		monitoring.RecordDBQuery("AllBranchSummaries", "error", time.Since(startTime))
		r.logger.ErrorContext(ctx, "Failed to query branch summaries", slog.Any("error", err))
		return nil, fmt.Errorf("%w: failed to query branch summaries: %w", apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	summaries := make([]report.BranchSummary, 0)
	for rows.Next() {
		var summary report.BranchSummary
		if err := scanBranchSummary(rows, &summary); err != nil {
			status = "error"
			monitoring.RecordDBQuery("AllBranchSummaries", status, time.Since(startTime))
			r.logger.ErrorContext(ctx, "Failed to scan branch summary row", slog.Any("error", err))
			return nil, fmt.Errorf("%w: failed to scan branch summary row: %w", apperrors.ErrDatabase, err)
		}
		summaries = append(summaries, summary)
	}

	if err = rows.Err(); err != nil {
		monitoring.RecordDBQuery("AllBranchSummaries", "error", time.Since(startTime))
		r.logger.ErrorContext(ctx, "Error iterating branch summary rows", slog.Any("error", err))
		return nil, fmt.Errorf("%w: error iterating branch summary rows: %w", apperrors.ErrDatabase, err)
	}

	monitoring.RecordDBQuery("AllBranchSummaries", status, time.Since(startTime))
	r.logger.InfoContext(ctx, "Finished querying branch summaries", slog.Int("count", len(summaries)))
	return summaries, nil
}
