package loan

import (
	"fmt"
	"math"
	"time"

	"microfin-office/internal/pkg/apperrors"
)

const (
	DefaultTermWeeks    = 50
	DefaultInterestRate = 0.10
)

type LoanStatus string

const (
	StatusActive  LoanStatus = "ACTIVE"
	StatusPaidOff LoanStatus = "PAID_OFF"
	StatusOverdue LoanStatus = "OVERDUE"
)

type InstallmentStatus string

const (
	InstallmentPending InstallmentStatus = "PENDING"
	InstallmentPaid    InstallmentStatus = "PAID"
	InstallmentMissed  InstallmentStatus = "MISSED"
)

type Loan struct {
	ID                  int64
	MemberID            int64
	BranchID            int64
	PrincipalAmount     float64
	InterestRate        float64
	TermWeeks           int
	WeeklyPaymentAmount float64
	TotalLoanAmount     float64
	StartDate           time.Time
	Status              LoanStatus
	CreatedAt           time.Time
	UpdatedAt           time.Time
	Schedule            []Installment
}

type Installment struct {
	ID          int64
	LoanID      int64
	WeekNumber  int
	DueDate     time.Time
	DueAmount   float64
	PaidAmount  float64
	PaymentDate *time.Time
	Status      InstallmentStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Payment is the receipt-level record of a repayment; the installment row it
// settled keeps the authoritative paid amount.
type Payment struct {
	ID            int64
	LoanID        int64
	InstallmentID int64
	Amount        float64
	ReceiptNumber string
	RecordedBy    string
	PaidAt        time.Time
	CreatedAt     time.Time
}

func NewLoan(memberID, branchID int64, principal float64, termWeeks int, annualInterestRate float64, startDate time.Time) (*Loan, error) {
	if memberID <= 0 {
		return nil, fmt.Errorf("%w: member ID must be positive", apperrors.ErrInvalidArgument)
	}
	if principal <= 0 {
		return nil, fmt.Errorf("%w: principal must be positive", apperrors.ErrInvalidArgument)
	}
	if termWeeks <= 0 {
		termWeeks = DefaultTermWeeks
	}
	if annualInterestRate < 0 {
		annualInterestRate = DefaultInterestRate
	}
	if startDate.IsZero() {
		startDate = time.Now().Truncate(24 * time.Hour)
	}

	loan := &Loan{
		MemberID:        memberID,
		BranchID:        branchID,
		PrincipalAmount: principal,
		TermWeeks:       termWeeks,
		InterestRate:    annualInterestRate,
		StartDate:       startDate,
		Status:          StatusActive,
	}

	totalInterest := loan.PrincipalAmount * loan.InterestRate
	loan.TotalLoanAmount = loan.PrincipalAmount + totalInterest

	loan.WeeklyPaymentAmount = roundTo(loan.TotalLoanAmount/float64(loan.TermWeeks), 2)

	return loan, nil
}

// GenerateSchedule produces the weekly installment rows. The final
// installment absorbs rounding drift so the rows sum exactly to the total
// loan amount.
func (l *Loan) GenerateSchedule() ([]Installment, error) {
	if l.TermWeeks <= 0 || l.WeeklyPaymentAmount < 0 {
		return nil, fmt.Errorf("%w: invalid loan terms for schedule generation", apperrors.ErrInvalidArgument)
	}

	schedule := make([]Installment, 0, l.TermWeeks)
	accumulatedPayment := 0.0

	for week := 1; week <= l.TermWeeks; week++ {
		dueDate := l.StartDate.AddDate(0, 0, week*7)

		paymentAmount := l.WeeklyPaymentAmount
		if week == l.TermWeeks {
			paymentAmount = roundTo(l.TotalLoanAmount-accumulatedPayment, 2)
			if paymentAmount < 0 {
				paymentAmount = 0
			}
		}

		entry := Installment{
			WeekNumber: week,
			DueDate:    dueDate,
			DueAmount:  paymentAmount,
			Status:     InstallmentPending,
		}
		schedule = append(schedule, entry)
		accumulatedPayment += paymentAmount
	}

	finalAccumulated := roundTo(accumulatedPayment, 2)
	expectedTotal := roundTo(l.TotalLoanAmount, 2)
	if math.Abs(finalAccumulated-expectedTotal) > 0.01 {
		return nil, fmt.Errorf("%w: schedule generation failed sanity check - total payment %.2f != expected total %.2f",
			apperrors.ErrInternalServer, finalAccumulated, expectedTotal)
	}

	return schedule, nil
}

func roundTo(n float64, decimals int) float64 {
	pow := math.Pow(10, float64(decimals))
	return math.Round(n*pow) / pow
}
