package loan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"microfin-office/internal/domain/member"
	"microfin-office/internal/event"
	"microfin-office/internal/infrastructure/monitoring"
	"microfin-office/internal/pkg/apperrors"
)

type Money = float64

// Policy carries the configurable lending rules. OverdueThreshold is the
// number of past-due unpaid installments that makes a loan overdue.
type Policy struct {
	DefaultTermWeeks    int
	DefaultInterestRate float64
	OverdueThreshold    int
	MaxPrincipal        float64
}

type Service interface {
	IssueLoan(ctx context.Context, memberID int64, principal Money, termWeeks int, annualInterestRate Money, startDate time.Time) (*Loan, error)

	GetLoan(ctx context.Context, loanID int64) (*Loan, error)

	GetLoanSchedule(ctx context.Context, loanID int64) ([]Installment, error)

	// GetUnpaidInstallments returns the not-yet-paid part of the
	// schedule, oldest due date first.
	GetUnpaidInstallments(ctx context.Context, loanID int64) ([]Installment, error)

	GetOutstanding(ctx context.Context, loanID int64) (Money, error)

	IsOverdue(ctx context.Context, loanID int64) (bool, error)

	RecordPayment(ctx context.Context, loanID int64, amount Money, recordedBy string) (*Payment, error)

	ListPayments(ctx context.Context, loanID int64) ([]Payment, error)

	MarkOverdue(ctx context.Context, loanID int64) error
}

type loanServiceImpl struct {
	repo          Repository
	memberService member.Service
	pub           event.Publisher
	policy        Policy
	logger        *slog.Logger
}

func NewService(r Repository, ms member.Service, pub event.Publisher, policy Policy, logger *slog.Logger) Service {
	if r == nil || ms == nil {
		panic("loan service dependencies cannot be nil")
	}
	if pub == nil {
		pub = event.NoopPublisher{}
	}
	if policy.OverdueThreshold <= 0 {
		policy.OverdueThreshold = 1
	}
	if policy.DefaultTermWeeks <= 0 {
		policy.DefaultTermWeeks = DefaultTermWeeks
	}
	if policy.DefaultInterestRate <= 0 {
		policy.DefaultInterestRate = DefaultInterestRate
	}
	return &loanServiceImpl{repo: r, memberService: ms, pub: pub, policy: policy, logger: logger}
}

func (s *loanServiceImpl) IssueLoan(ctx context.Context, memberID int64, principal Money, termWeeks int, annualInterestRate Money, startDate time.Time) (*Loan, error) {
	s.logger.Info("Issuing new loan", "memberID", memberID)

	memb, err := s.memberService.GetMember(ctx, memberID)
	if err != nil {
		if errors.Is(err, member.ErrNotFound) || errors.Is(err, apperrors.ErrNotFound) {
			s.logger.Error("Member not found", slog.Any("error", err))
			return nil, fmt.Errorf("%w: member %d not found", apperrors.ErrValidation, memberID)
		}
		s.logger.Error("Failed to get member details from member service", slog.Any("error", err))
		return nil, fmt.Errorf("failed to verify member status: %w", err)
	}

	if !memb.Active {
		s.logger.Error("Attempted to issue loan for inactive member")
		return nil, fmt.Errorf("%w: member %d is not active", apperrors.ErrValidation, memberID)
	}

	if memb.LoanID != nil {
		existingLoanID := *memb.LoanID
		existingLoan, err := s.GetLoan(ctx, existingLoanID)
		if err != nil {
			s.logger.Error("Failed to get existing loan details", "error", err)
			return nil, fmt.Errorf("failed to get existing loan details: %w", err)
		}

		if existingLoan.Status != StatusPaidOff {
			s.logger.Error("Member already has an assigned open loan")
			return nil, fmt.Errorf("%w (LoanID: %d)", member.ErrMemberAlreadyHasLoan, existingLoanID)
		}
	}

	if s.policy.MaxPrincipal > 0 && principal > s.policy.MaxPrincipal {
		s.logger.Error("Principal exceeds policy maximum", "principal", principal, "max", s.policy.MaxPrincipal)
		return nil, fmt.Errorf("%w: principal %.2f exceeds maximum %.2f", apperrors.ErrValidation, principal, s.policy.MaxPrincipal)
	}
	if termWeeks <= 0 {
		termWeeks = s.policy.DefaultTermWeeks
	}
	if annualInterestRate <= 0 {
		annualInterestRate = s.policy.DefaultInterestRate
	}

	newLoan, err := NewLoan(memberID, memb.BranchID, principal, termWeeks, annualInterestRate, startDate)
	if err != nil {
		s.logger.Error("Failed to create new loan object", "error", err)
		return nil, fmt.Errorf("failed to create new loan object: %w", err)
	}

	schedule, err := newLoan.GenerateSchedule()
	if err != nil {
		s.logger.Error("Failed to generate loan schedule", "error", err)
		return nil, fmt.Errorf("failed to generate schedule: %w", err)
	}

	createdLoan, err := s.repo.CreateLoan(ctx, newLoan, schedule)
	if err != nil {
		s.logger.Error("Failed to save loan and schedule", "error", err)
		return nil, fmt.Errorf("%w: failed to save loan and schedule: %v", apperrors.ErrInternalServer, err)
	}
	monitoring.RecordLoanIssued()

	evt := event.LoanCreatedEvent{
		Timestamp: time.Now(),
		Payload: event.LoanEventPayload{
			LoanID:    createdLoan.ID,
			MemberID:  createdLoan.MemberID,
			BranchID:  createdLoan.BranchID,
			Principal: createdLoan.PrincipalAmount,
			Status:    string(createdLoan.Status),
		},
	}
	if pubErr := s.pub.PublishLoanCreated(ctx, evt); pubErr != nil {
		s.logger.Error("Loan created, but FAILED to publish creation event", slog.Any("error", pubErr))
	}

	s.logger.Info("Loan issued successfully", "loanID", createdLoan.ID, "memberID", memberID)
	return createdLoan, nil
}

func (s *loanServiceImpl) GetOutstanding(ctx context.Context, loanID int64) (Money, error) {
	s.logger.Info("Getting total outstanding amount for loan", "loanID", loanID)
	outstandingAmount, err := s.repo.GetTotalOutstandingAmount(ctx, loanID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.logger.Warn("Loan not found", "loanID", loanID)
			return 0, fmt.Errorf("%w: loan with ID %d not found", apperrors.ErrNotFound, loanID)
		}
		s.logger.Warn("Failed to get outstanding amount", "loanID", loanID, "error", err)
		return 0, fmt.Errorf("%w: failed to get outstanding amount for loan %d: %v", apperrors.ErrInternalServer, loanID, err)
	}

	return outstandingAmount, nil
}

func (s *loanServiceImpl) IsOverdue(ctx context.Context, loanID int64) (bool, error) {
	s.logger.Info("Checking if loan is overdue", "loanID", loanID)
	pastDue, err := s.repo.GetPastDueUnpaidInstallments(ctx, loanID, time.Now())
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.logger.Warn("Loan not found", "loanID", loanID)
			return false, fmt.Errorf("%w: loan with ID %d not found for overdue check", apperrors.ErrNotFound, loanID)
		}
		s.logger.Warn("Failed to check overdue status", "loanID", loanID, "error", err)
		return false, fmt.Errorf("%w: failed to check overdue status for loan %d: %v", apperrors.ErrInternalServer, loanID, err)
	}

	return len(pastDue) >= s.policy.OverdueThreshold, nil
}

func (s *loanServiceImpl) RecordPayment(ctx context.Context, loanID int64, amount Money, recordedBy string) (payment *Payment, err error) {
	s.logger.Info("Recording payment", "loanID", loanID, "amount", amount)
	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		s.logger.Error("Failed to begin transaction", "error", err)
		return nil, fmt.Errorf("%w: could not begin transaction: %v", apperrors.ErrInternalServer, err)
	}

	defer func() {
		status := "failure_internal"
		if err == nil {
			status = "success"
		}
		if errors.Is(err, apperrors.ErrInvalidPaymentAmount) {
			status = "failure_amount"
		}
		if errors.Is(err, apperrors.ErrLoanFullyPaid) {
			status = "failure_fully_paid"
		}
		monitoring.RecordPayment(status)
		if p := recover(); p != nil {
			s.logger.Error("Panic occurred during payment processing", "loanID", loanID, "error", p)
			_ = s.repo.RollbackTx(ctx, tx)
			panic(p)
		} else if err != nil {
			s.logger.Error("Rolling back transaction due to error", "error", err)
			_ = s.repo.RollbackTx(ctx, tx)
		}
	}()

	entry, err := s.repo.FindOldestPendingInstallmentForUpdate(ctx, tx, loanID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.logger.Error("Loan is already fully paid", "loanID", loanID, "error", err)
			return nil, apperrors.ErrLoanFullyPaid
		}

		if errors.Is(err, pgx.ErrNoRows) {
			_, checkLoanErr := s.repo.GetLoanByID(ctx, loanID)
			if errors.Is(checkLoanErr, pgx.ErrNoRows) || errors.Is(checkLoanErr, apperrors.ErrNotFound) {
				s.logger.Error("Loan not found", "loanID", loanID, "error", checkLoanErr)
				return nil, fmt.Errorf("%w: cannot record payment, loan ID %d not found", apperrors.ErrNotFound, loanID)
			}

			return nil, apperrors.ErrLoanFullyPaid
		}
		s.logger.Error("Failed to find installment to pay", "loanID", loanID, "error", err)
		return nil, fmt.Errorf("%w: could not find installment to pay: %v", apperrors.ErrInternalServer, err)
	}

	tolerance := 0.001
	if math.Abs(amount-entry.DueAmount) > tolerance {
		s.logger.Error("Payment amount does not match due amount", "loanID", loanID, "amount", amount, "dueAmount", entry.DueAmount)
		return nil, fmt.Errorf("%w: payment amount %.2f does not match due amount %.2f",
			apperrors.ErrInvalidPaymentAmount, amount, entry.DueAmount)
	}

	now := time.Now()
	entry.Status = InstallmentPaid
	entry.PaidAmount = amount
	entry.PaymentDate = &now
	entry.UpdatedAt = now

	err = s.repo.UpdateInstallmentInTx(ctx, tx, entry)
	if err != nil {
		s.logger.Error("Failed to update installment", "loanID", loanID, "error", err)
		return nil, fmt.Errorf("%w: could not update installment: %v", apperrors.ErrInternalServer, err)
	}

	payment, err = s.repo.InsertPaymentInTx(ctx, tx, &Payment{
		LoanID:        loanID,
		InstallmentID: entry.ID,
		Amount:        amount,
		ReceiptNumber: uuid.NewString(),
		RecordedBy:    recordedBy,
		PaidAt:        now,
	})
	if err != nil {
		s.logger.Error("Failed to insert payment record", "loanID", loanID, "error", err)
		return nil, fmt.Errorf("%w: could not insert payment record: %v", apperrors.ErrInternalServer, err)
	}

	allPaid, err := s.repo.CheckIfAllPaymentsMadeInTx(ctx, tx, loanID)
	if err != nil {
		s.logger.Error("Failed to check if all payments are made", "loanID", loanID, "error", err)
		return nil, fmt.Errorf("%w: could not check if loan payments are complete: %v", apperrors.ErrInternalServer, err)
	}

	if allPaid {
		err = s.repo.UpdateLoanStatusInTx(ctx, tx, loanID, StatusPaidOff)
		if err != nil {
			s.logger.Error("Failed to update loan status to paid off", "loanID", loanID, "error", err)
			return nil, fmt.Errorf("%w: could not update loan status to paid off: %v", apperrors.ErrInternalServer, err)
		}

		// Release the member's loan slot and reset their overdue
		// standing, so the member can borrow again or be deactivated.
		err = s.repo.ClearMemberLoanLinkInTx(ctx, tx, loanID)
		if err != nil {
			s.logger.Error("Failed to clear member loan link after payoff", "loanID", loanID, "error", err)
			return nil, fmt.Errorf("%w: could not clear member loan link: %v", apperrors.ErrInternalServer, err)
		}
	}

	err = s.repo.CommitTx(ctx, tx)
	if err != nil {
		s.logger.Error("Failed to commit transaction", "loanID", loanID, "error", err)
		return nil, fmt.Errorf("%w: could not commit transaction: %v", apperrors.ErrInternalServer, err)
	}

	evt := event.PaymentRecordedEvent{
		Timestamp: now,
		Payload: event.PaymentEventPayload{
			PaymentID:     payment.ID,
			LoanID:        loanID,
			Amount:        amount,
			ReceiptNumber: payment.ReceiptNumber,
		},
	}
	if pubErr := s.pub.PublishPaymentRecorded(ctx, evt); pubErr != nil {
		s.logger.Error("Payment recorded, but FAILED to publish event", slog.Any("error", pubErr))
	}

	s.logger.Info("Payment processed successfully", "loanID", loanID, "amount", amount, "receipt", payment.ReceiptNumber)
	return payment, nil
}

func (s *loanServiceImpl) ListPayments(ctx context.Context, loanID int64) ([]Payment, error) {
	s.logger.Info("Listing payments for loan", "loanID", loanID)
	payments, err := s.repo.ListPayments(ctx, loanID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: loan with ID %d not found when listing payments", apperrors.ErrNotFound, loanID)
		}
		return nil, fmt.Errorf("%w: failed to list payments for loan %d: %v", apperrors.ErrInternalServer, loanID, err)
	}
	return payments, nil
}

func (s *loanServiceImpl) MarkOverdue(ctx context.Context, loanID int64) error {
	s.logger.Info("Marking loan overdue", "loanID", loanID)
	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("%w: could not begin transaction: %v", apperrors.ErrInternalServer, err)
	}

	if err = s.repo.UpdateLoanStatusInTx(ctx, tx, loanID, StatusOverdue); err != nil {
		_ = s.repo.RollbackTx(ctx, tx)
		s.logger.Error("Failed to update loan status to overdue", "loanID", loanID, "error", err)
		return fmt.Errorf("%w: could not update loan status to overdue: %v", apperrors.ErrInternalServer, err)
	}

	if err = s.repo.CommitTx(ctx, tx); err != nil {
		return fmt.Errorf("%w: could not commit transaction: %v", apperrors.ErrInternalServer, err)
	}
	monitoring.RecordLoanMarkedOverdue()

	markedLoan, getErr := s.repo.GetLoanByID(ctx, loanID)
	if getErr != nil {
		s.logger.Warn("Loan marked overdue but could not be reloaded for event payload", "loanID", loanID, "error", getErr)
		return nil
	}

	evt := event.LoanOverdueEvent{
		Timestamp: time.Now(),
		Payload: event.LoanEventPayload{
			LoanID:    markedLoan.ID,
			MemberID:  markedLoan.MemberID,
			BranchID:  markedLoan.BranchID,
			Principal: markedLoan.PrincipalAmount,
			Status:    string(markedLoan.Status),
		},
	}
	if pubErr := s.pub.PublishLoanOverdue(ctx, evt); pubErr != nil {
		s.logger.Error("Loan marked overdue, but FAILED to publish event", slog.Any("error", pubErr))
	}

	return nil
}

func (s *loanServiceImpl) GetLoan(ctx context.Context, loanID int64) (*Loan, error) {
	s.logger.Info("Getting loan details", "loanID", loanID)
	foundLoan, err := s.repo.GetLoanByID(ctx, loanID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, apperrors.ErrNotFound) {
			s.logger.Warn("Loan not found", "loanID", loanID)
			return nil, fmt.Errorf("%w: loan with ID %d not found", apperrors.ErrNotFound, loanID)
		}

		s.logger.Error("Failed to get loan", "loanID", loanID, "error", err)
		return nil, fmt.Errorf("%w: failed to get loan %d: %v", apperrors.ErrInternalServer, loanID, err)
	}

	schedule, err := s.GetLoanSchedule(ctx, loanID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.logger.Warn("Loan schedule not found", "loanID", loanID)
		} else {
			s.logger.Error("Failed to get loan schedule", "loanID", loanID, "error", err)
		}
	}

	foundLoan.Schedule = schedule
	return foundLoan, nil
}

func (s *loanServiceImpl) GetLoanSchedule(ctx context.Context, loanID int64) ([]Installment, error) {
	s.logger.Info("Getting loan schedule", "loanID", loanID)
	schedule, err := s.repo.GetScheduleByLoanID(ctx, loanID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.logger.Warn("Loan not found", "loanID", loanID)
			return nil, fmt.Errorf("%w: loan with ID %d not found when getting schedule", apperrors.ErrNotFound, loanID)
		}
		return nil, fmt.Errorf("%w: failed to get schedule for loan %d: %v", apperrors.ErrInternalServer, loanID, err)
	}
	if len(schedule) == 0 {
		_, checkLoanErr := s.repo.GetLoanByID(ctx, loanID)
		if errors.Is(checkLoanErr, pgx.ErrNoRows) || errors.Is(checkLoanErr, apperrors.ErrNotFound) {
			s.logger.Warn("Loan not found", "loanID", loanID)
			return nil, fmt.Errorf("%w: loan with ID %d not found when getting schedule", apperrors.ErrNotFound, loanID)
		}
	}
	return schedule, nil
}

func (s *loanServiceImpl) GetUnpaidInstallments(ctx context.Context, loanID int64) ([]Installment, error) {
	s.logger.Info("Getting unpaid installments", "loanID", loanID)
	unpaid, err := s.repo.GetUnpaidInstallments(ctx, loanID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.logger.Warn("Loan not found", "loanID", loanID)
			return nil, fmt.Errorf("%w: loan with ID %d not found when getting unpaid installments", apperrors.ErrNotFound, loanID)
		}
		return nil, fmt.Errorf("%w: failed to get unpaid installments for loan %d: %v", apperrors.ErrInternalServer, loanID, err)
	}
	// A fully paid loan legitimately has no unpaid rows, so only verify
	// the loan exists when nothing came back.
	if len(unpaid) == 0 {
		_, checkLoanErr := s.repo.GetLoanByID(ctx, loanID)
		if errors.Is(checkLoanErr, pgx.ErrNoRows) || errors.Is(checkLoanErr, apperrors.ErrNotFound) {
			s.logger.Warn("Loan not found", "loanID", loanID)
			return nil, fmt.Errorf("%w: loan with ID %d not found when getting unpaid installments", apperrors.ErrNotFound, loanID)
		}
	}
	return unpaid, nil
}
