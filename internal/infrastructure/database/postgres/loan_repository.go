package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pashagolub/pgxmock/v4"

	"microfin-office/internal/domain/loan"
	"microfin-office/internal/infrastructure/monitoring"
	"microfin-office/internal/pkg/apperrors"
)

type DBPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Acquire(ctx context.Context) (*pgxpool.Conn, error)
	Close()
}

type LoanRepository struct {
	db     DBPool
	logger *slog.Logger
}

var _ DBPool = (*pgxpool.Pool)(nil)

var _ DBPool = (pgxmock.PgxPoolIface)(nil)

var _ loan.Repository = (*LoanRepository)(nil)

var errMsgFormat = "%w: %w"

func NewLoanRepository(db DBPool, logger *slog.Logger) *LoanRepository {
	return &LoanRepository{db: db, logger: logger.With("component", "LoanRepository")}
}

func (r *LoanRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to begin transaction", "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return tx, nil
}

func (r *LoanRepository) CommitTx(ctx context.Context, tx pgx.Tx) error {
	err := tx.Commit(ctx)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to commit transaction", "error", err)
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return nil
}

func (r *LoanRepository) RollbackTx(ctx context.Context, tx pgx.Tx) error {
	err := tx.Rollback(ctx)

	if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		r.logger.ErrorContext(ctx, "Failed to rollback transaction", "error", err)
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return nil
}

// CreateLoan inserts the loan and its installment rows and links the member
// record, all in one transaction. The link only succeeds while the member has
// no loan assigned, so a concurrent second issuance fails with ErrConflict.
func (r *LoanRepository) CreateLoan(ctx context.Context, newLoan *loan.Loan, schedule []loan.Installment) (*loan.Loan, error) {
	tx, err := r.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer r.RollbackTx(ctx, tx)

	loanSQL := `
        INSERT INTO loans (member_id, branch_id, principal_amount, interest_rate, term_weeks, weekly_payment_amount, total_loan_amount, start_date, status, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
        RETURNING id, member_id, branch_id, principal_amount, interest_rate, term_weeks, weekly_payment_amount, total_loan_amount, start_date, status, created_at, updated_at`

	var createdLoan loan.Loan
	err = tx.QueryRow(ctx, loanSQL,
		newLoan.MemberID, newLoan.BranchID, newLoan.PrincipalAmount, newLoan.InterestRate, newLoan.TermWeeks,
		newLoan.WeeklyPaymentAmount, newLoan.TotalLoanAmount, newLoan.StartDate, newLoan.Status,
	).Scan(
		&createdLoan.ID, &createdLoan.MemberID, &createdLoan.BranchID, &createdLoan.PrincipalAmount,
		&createdLoan.InterestRate, &createdLoan.TermWeeks, &createdLoan.WeeklyPaymentAmount,
		&createdLoan.TotalLoanAmount, &createdLoan.StartDate, &createdLoan.Status,
		&createdLoan.CreatedAt, &createdLoan.UpdatedAt,
	)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to insert loan", "error", err)
		return nil, fmt.Errorf("%w: failed to insert loan: %w", apperrors.ErrDatabase, err)
	}
	r.logger.InfoContext(ctx, "Loan created in DB", "loan_id", createdLoan.ID)

	if len(schedule) > 0 {
		scheduleSQL := `
            INSERT INTO loan_installments (loan_id, week_number, due_date, due_amount, status, created_at, updated_at)
            VALUES ($1, $2, $3, $4, $5, NOW(), NOW())`

		batch := &pgx.Batch{}
		for _, entry := range schedule {
			batch.Queue(scheduleSQL, createdLoan.ID, entry.WeekNumber, entry.DueDate, entry.DueAmount, entry.Status)
		}

		results := tx.SendBatch(ctx, batch)

		for i := 0; i < len(schedule); i++ {
			_, err = results.Exec()
			if err != nil {
				results.Close()
				r.logger.ErrorContext(ctx, "Failed executing installment batch insert", "error", err, "entry_index", i, "loan_id", createdLoan.ID)
				return nil, fmt.Errorf("%w: failed inserting installment %d: %w", apperrors.ErrDatabase, i+1, err)
			}
		}
		err = results.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "Failed closing installment batch results", "error", err, "loan_id", createdLoan.ID)
			return nil, fmt.Errorf("%w: closing batch results failed: %w", apperrors.ErrDatabase, err)
		}
	}
	r.logger.InfoContext(ctx, "Loan installments created in DB", "loan_id", createdLoan.ID, "num_entries", len(schedule))

	r.logger.Info("Updating member record to link loan")
	linkMemberSQL := `
        UPDATE members
        SET loan_id = $1, updated_at = NOW()
        WHERE id = $2 AND loan_id IS NULL`

	cmdTag, err := tx.Exec(ctx, linkMemberSQL, createdLoan.ID, newLoan.MemberID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to update member with loan ID", slog.Any("error", err))
		return nil, fmt.Errorf("%w: failed to link loan to member: %w", apperrors.ErrDatabase, err)
	}
	if cmdTag.RowsAffected() == 0 {
		r.logger.Error("Failed to link loan to member: member not found or already has a loan ID", slog.Int64("memberID", newLoan.MemberID))
		return nil, fmt.Errorf("%w: failed to link loan, member %d not found or already linked", apperrors.ErrConflict, newLoan.MemberID)
	}

	if err := r.CommitTx(ctx, tx); err != nil {
		return nil, err
	}

	return &createdLoan, nil
}

func (r *LoanRepository) GetLoanByID(ctx context.Context, loanID int64) (*loan.Loan, error) {
	query := `
        SELECT id, member_id, branch_id, principal_amount, interest_rate, term_weeks, weekly_payment_amount, total_loan_amount, start_date, status, created_at, updated_at
        FROM loans
        WHERE id = $1`
	status := "success"
	startTime := time.Now()

	var l loan.Loan
	err := r.db.QueryRow(ctx, query, loanID).Scan(
		&l.ID, &l.MemberID, &l.BranchID, &l.PrincipalAmount, &l.InterestRate, &l.TermWeeks,
		&l.WeeklyPaymentAmount, &l.TotalLoanAmount, &l.StartDate,
		&l.Status, &l.CreatedAt, &l.UpdatedAt,
	)

	if err != nil {
		status = "error"
	}
	monitoring.RecordDBQuery("GetLoanByID", status, time.Since(startTime))

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.WarnContext(ctx, "Loan not found", "loan_id", loanID)
			return nil, apperrors.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to get loan by ID", "loan_id", loanID, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return &l, nil
}

const installmentColumns = `id, loan_id, week_number, due_date, due_amount, paid_amount, payment_date, status, created_at, updated_at`

func (r *LoanRepository) scanInstallments(ctx context.Context, rows pgx.Rows, loanID int64) ([]loan.Installment, error) {
	defer rows.Close()

	schedule := make([]loan.Installment, 0)
	for rows.Next() {
		var entry loan.Installment
		err := rows.Scan(
			&entry.ID, &entry.LoanID, &entry.WeekNumber, &entry.DueDate,
			&entry.DueAmount, &entry.PaidAmount, &entry.PaymentDate,
			&entry.Status, &entry.CreatedAt, &entry.UpdatedAt,
		)
		if err != nil {
			r.logger.ErrorContext(ctx, "Failed to scan installment row", "loan_id", loanID, "error", err)
			return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
		}
		schedule = append(schedule, entry)
	}

	if err := rows.Err(); err != nil {
		r.logger.ErrorContext(ctx, "Error iterating installment rows", "loan_id", loanID, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}

	return schedule, nil
}

func (r *LoanRepository) GetScheduleByLoanID(ctx context.Context, loanID int64) ([]loan.Installment, error) {
	query := `
        SELECT ` + installmentColumns + `
        FROM loan_installments
        WHERE loan_id = $1
        ORDER BY week_number ASC`

	rows, err := r.db.Query(ctx, query, loanID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to query loan installments", "loan_id", loanID, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return r.scanInstallments(ctx, rows, loanID)
}

func (r *LoanRepository) GetUnpaidInstallments(ctx context.Context, loanID int64) ([]loan.Installment, error) {
	query := `
        SELECT ` + installmentColumns + `
        FROM loan_installments
        WHERE loan_id = $1 AND status != 'PAID'
        ORDER BY due_date ASC`

	rows, err := r.db.Query(ctx, query, loanID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to query unpaid installments", "loan_id", loanID, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return r.scanInstallments(ctx, rows, loanID)
}

func (r *LoanRepository) GetPastDueUnpaidInstallments(ctx context.Context, loanID int64, asOf time.Time) ([]loan.Installment, error) {
	query := `
        SELECT ` + installmentColumns + `
        FROM loan_installments
        WHERE loan_id = $1 AND status != 'PAID'
        AND due_date < $2
        ORDER BY due_date ASC`

	rows, err := r.db.Query(ctx, query, loanID, asOf)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to query past-due installments", "loan_id", loanID, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return r.scanInstallments(ctx, rows, loanID)
}

func (r *LoanRepository) FindOldestPendingInstallmentForUpdate(ctx context.Context, tx pgx.Tx, loanID int64) (*loan.Installment, error) {
	query := `
        SELECT ` + installmentColumns + `
        FROM loan_installments
        WHERE loan_id = $1 AND status = 'PENDING'
        ORDER BY due_date ASC
        LIMIT 1
        FOR UPDATE`

	var entry loan.Installment
	err := tx.QueryRow(ctx, query, loanID).Scan(
		&entry.ID, &entry.LoanID, &entry.WeekNumber, &entry.DueDate,
		&entry.DueAmount, &entry.PaidAmount, &entry.PaymentDate,
		&entry.Status, &entry.CreatedAt, &entry.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.InfoContext(ctx, "No pending installment found for update", "loan_id", loanID)
			return nil, apperrors.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to find/lock oldest pending installment", "loan_id", loanID, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return &entry, nil
}

func (r *LoanRepository) UpdateInstallmentInTx(ctx context.Context, tx pgx.Tx, entry *loan.Installment) error {
	sql := `
        UPDATE loan_installments
        SET paid_amount = $1, payment_date = $2, status = $3, updated_at = NOW()
        WHERE id = $4 AND loan_id = $5`

	cmdTag, err := tx.Exec(ctx, sql, entry.PaidAmount, entry.PaymentDate, entry.Status, entry.ID, entry.LoanID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to update installment", "entry_id", entry.ID, "loan_id", entry.LoanID, "error", err)
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	if cmdTag.RowsAffected() != 1 {
		r.logger.ErrorContext(ctx, "Installment update affected zero rows", "entry_id", entry.ID, "loan_id", entry.LoanID)
		return fmt.Errorf("%w: installment update affected zero rows", apperrors.ErrDatabase)
	}
	return nil
}

func (r *LoanRepository) UpdateLoanStatusInTx(ctx context.Context, tx pgx.Tx, loanID int64, status loan.LoanStatus) error {
	sql := `UPDATE loans SET status = $1, updated_at = NOW() WHERE id = $2`
	cmdTag, err := tx.Exec(ctx, sql, status, loanID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to update loan status", "loan_id", loanID, "status", status, "error", err)
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	if cmdTag.RowsAffected() != 1 {
		r.logger.ErrorContext(ctx, "Loan status update affected zero rows", "loan_id", loanID, "status", status)
		return fmt.Errorf("%w: loan status update affected zero rows", apperrors.ErrDatabase)
	}
	r.logger.InfoContext(ctx, "Loan status updated in DB", "loan_id", loanID, "new_status", status)
	return nil
}

func (r *LoanRepository) CheckIfAllPaymentsMadeInTx(ctx context.Context, tx pgx.Tx, loanID int64) (bool, error) {
	var count int
	query := `SELECT COUNT(*) FROM loan_installments WHERE loan_id = $1 AND status != 'PAID'`
	err := tx.QueryRow(ctx, query, loanID).Scan(&count)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to count non-paid installments", "loan_id", loanID, "error", err)
		return false, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return count == 0, nil
}

func (r *LoanRepository) ClearMemberLoanLinkInTx(ctx context.Context, tx pgx.Tx, loanID int64) error {
	sql := `
        UPDATE members
        SET loan_id = NULL, overdue = false, updated_at = NOW()
        WHERE loan_id = $1`

	cmdTag, err := tx.Exec(ctx, sql, loanID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to clear member loan link", "loan_id", loanID, "error", err)
		return fmt.Errorf("%w: failed to clear member loan link: %w", apperrors.ErrDatabase, err)
	}
	if cmdTag.RowsAffected() == 0 {
		// Nothing to do when no member points at this loan.
		r.logger.WarnContext(ctx, "No member row linked to loan when clearing link", "loan_id", loanID)
		return nil
	}

	r.logger.InfoContext(ctx, "Member loan link cleared", "loan_id", loanID)
	return nil
}

func (r *LoanRepository) InsertPaymentInTx(ctx context.Context, tx pgx.Tx, payment *loan.Payment) (*loan.Payment, error) {
	sql := `
        INSERT INTO loan_payments (loan_id, installment_id, amount, receipt_number, recorded_by, paid_at, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, NOW())
        RETURNING id, created_at`

	err := tx.QueryRow(ctx, sql,
		payment.LoanID, payment.InstallmentID, payment.Amount,
		payment.ReceiptNumber, payment.RecordedBy, payment.PaidAt,
	).Scan(&payment.ID, &payment.CreatedAt)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to insert payment", "loan_id", payment.LoanID, "error", err)
		return nil, fmt.Errorf("%w: failed to insert payment: %w", apperrors.ErrDatabase, err)
	}

	r.logger.InfoContext(ctx, "Payment inserted in DB", "payment_id", payment.ID, "loan_id", payment.LoanID)
	return payment, nil
}

func (r *LoanRepository) ListPayments(ctx context.Context, loanID int64) ([]loan.Payment, error) {
	query := `
        SELECT id, loan_id, installment_id, amount, receipt_number, recorded_by, paid_at, created_at
        FROM loan_payments
        WHERE loan_id = $1
        ORDER BY paid_at ASC`

	rows, err := r.db.Query(ctx, query, loanID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to query payments", "loan_id", loanID, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	payments := make([]loan.Payment, 0)
	for rows.Next() {
		var p loan.Payment
		err := rows.Scan(
			&p.ID, &p.LoanID, &p.InstallmentID, &p.Amount,
			&p.ReceiptNumber, &p.RecordedBy, &p.PaidAt, &p.CreatedAt,
		)
		if err != nil {
			r.logger.ErrorContext(ctx, "Failed to scan payment row", "loan_id", loanID, "error", err)
			return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
		}
		payments = append(payments, p)
	}

	if err = rows.Err(); err != nil {
		r.logger.ErrorContext(ctx, "Error iterating payment rows", "loan_id", loanID, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}

	return payments, nil
}

func (r *LoanRepository) GetTotalOutstandingAmount(ctx context.Context, loanID int64) (float64, error) {
	var totalOutstanding float64

	query := `
        SELECT COALESCE(SUM(due_amount - paid_amount), 0.00)
        FROM loan_installments
        WHERE loan_id = $1 AND status != 'PAID'`

	err := r.db.QueryRow(ctx, query, loanID).Scan(&totalOutstanding)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			r.logger.ErrorContext(ctx, "Failed to calculate total outstanding amount", "loan_id", loanID, "error", err)
			return 0, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
		}
	}

	if totalOutstanding < 0 {
		r.logger.WarnContext(ctx, "Calculated outstanding amount is negative, returning 0", "loan_id", loanID, "calculated_value", totalOutstanding)
		return 0, nil
	}

	return totalOutstanding, nil
}

func (r *LoanRepository) GetAllActiveLoanIDs(ctx context.Context) ([]int64, error) {
	logCtx := r.logger.With(slog.String("operation", "GetAllActiveLoanIDs"))
	logCtx.DebugContext(ctx, "Attempting to get all active loan IDs")

	query := `SELECT id FROM loans WHERE status = $1 ORDER BY id`

	rows, err := r.db.Query(ctx, query, loan.StatusActive)
	if err != nil {
		logCtx.ErrorContext(ctx, "Failed to query active loan IDs", slog.Any("error", err))
		return nil, fmt.Errorf("%w: failed to query active loans: %w", apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	loanIDs := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			logCtx.ErrorContext(ctx, "Failed to scan active loan ID row", slog.Any("error", err))
			return nil, fmt.Errorf("%w: failed scanning active loan ID: %w", apperrors.ErrDatabase, err)
		}
		loanIDs = append(loanIDs, id)
	}

	if err = rows.Err(); err != nil {
		logCtx.ErrorContext(ctx, "Error iterating active loan ID rows", slog.Any("error", err))
		return nil, fmt.Errorf("%w: error iterating active loan IDs: %w", apperrors.ErrDatabase, err)
	}

	logCtx.DebugContext(ctx, "Finished getting active loan IDs", slog.Int("count", len(loanIDs)))
	return loanIDs, nil
}

func translateDBError(err error, contextLogger *slog.Logger) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == "23505" {
			contextLogger.Warn("Database unique constraint violation", "detail", pgErr.Detail, "constraint", pgErr.ConstraintName)
			return fmt.Errorf("%w: %s", apperrors.ErrAlreadyExists, pgErr.ConstraintName)
		}

		contextLogger.Error("PostgreSQL specific error", "code", pgErr.Code, "message", pgErr.Message, "detail", pgErr.Detail)
		return fmt.Errorf("%w: db error code %s", apperrors.ErrDatabase, pgErr.Code)
	}

	contextLogger.Error("Generic database error", "error", err)
	return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
}
