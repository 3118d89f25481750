package loan

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
)

type Repository interface {
	CreateLoan(ctx context.Context, loan *Loan, schedule []Installment) (createdLoan *Loan, err error)

	GetLoanByID(ctx context.Context, loanID int64) (*Loan, error)

	GetScheduleByLoanID(ctx context.Context, loanID int64) ([]Installment, error)

	GetUnpaidInstallments(ctx context.Context, loanID int64) ([]Installment, error)

	// GetPastDueUnpaidInstallments returns unpaid installments whose due
	// date is before asOf, oldest first.
	GetPastDueUnpaidInstallments(ctx context.Context, loanID int64, asOf time.Time) ([]Installment, error)

	FindOldestPendingInstallmentForUpdate(ctx context.Context, tx pgx.Tx, loanID int64) (*Installment, error)

	UpdateInstallmentInTx(ctx context.Context, tx pgx.Tx, entry *Installment) error

	UpdateLoanStatusInTx(ctx context.Context, tx pgx.Tx, loanID int64, status LoanStatus) error

	CheckIfAllPaymentsMadeInTx(ctx context.Context, tx pgx.Tx, loanID int64) (bool, error)

	// ClearMemberLoanLinkInTx releases the member's loan slot and resets
	// their overdue standing. Called when the loan is closed so the member
	// can take a new loan and be deactivated again.
	ClearMemberLoanLinkInTx(ctx context.Context, tx pgx.Tx, loanID int64) error

	InsertPaymentInTx(ctx context.Context, tx pgx.Tx, payment *Payment) (*Payment, error)

	ListPayments(ctx context.Context, loanID int64) ([]Payment, error)

	GetTotalOutstandingAmount(ctx context.Context, loanID int64) (float64, error)

	GetAllActiveLoanIDs(ctx context.Context) ([]int64, error)

	BeginTx(ctx context.Context) (pgx.Tx, error)

	CommitTx(ctx context.Context, tx pgx.Tx) error

	RollbackTx(ctx context.Context, tx pgx.Tx) error
}
