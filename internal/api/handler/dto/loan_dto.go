package dto

import (
	"strconv"
	"time"

	"microfin-office/internal/domain/loan"
	"microfin-office/internal/pkg/apperrors"

	"github.com/shopspring/decimal"
)

type CreateLoanRequest struct {
	MemberID int64 `json:"memberId"`
	// Principal is a decimal string so callers never lose cents to
	// float encoding.
	Principal          string `json:"principal"`
	TermWeeks          int    `json:"termWeeks,omitempty"`
	AnnualInterestRate string `json:"annualInterestRate,omitempty"`
	StartDate          string `json:"startDate,omitempty"`
}

func (r *CreateLoanRequest) Validate() error {
	if r.MemberID <= 0 {
		return apperrors.NewValidationError("memberId", "must be positive")
	}
	principal, err := decimal.NewFromString(r.Principal)
	if err != nil || !principal.IsPositive() {
		return apperrors.NewValidationError("principal", "must be a positive decimal string")
	}
	if r.TermWeeks < 0 {
		return apperrors.NewValidationError("termWeeks", "cannot be negative")
	}
	if r.AnnualInterestRate != "" {
		rate, err := decimal.NewFromString(r.AnnualInterestRate)
		if err != nil || rate.IsNegative() {
			return apperrors.NewValidationError("annualInterestRate", "must be a non-negative decimal string")
		}
	}
	if r.StartDate != "" {
		if _, err := time.Parse(time.RFC3339[:10], r.StartDate); err != nil {
			return apperrors.NewValidationError("startDate", "invalid format, use YYYY-MM-DD")
		}
	}
	return nil
}

type MakePaymentRequest struct {
	Amount string `json:"amount"`
}

func (r *MakePaymentRequest) Validate() error {
	if _, err := decimal.NewFromString(r.Amount); err != nil || r.Amount == "" {
		return apperrors.NewValidationError("amount", "must be a positive decimal string")
	}
	return nil
}

type LoanResponse struct {
	ID                  string                  `json:"id"`
	MemberID            string                  `json:"memberId"`
	BranchID            string                  `json:"branchId"`
	PrincipalAmount     string                  `json:"principalAmount"`
	InterestRate        string                  `json:"interestRate"`
	TermWeeks           int                     `json:"termWeeks"`
	WeeklyPaymentAmount string                  `json:"weeklyPaymentAmount"`
	TotalLoanAmount     string                  `json:"totalLoanAmount"`
	StartDate           string                  `json:"startDate"`
	Status              string                  `json:"status"`
	CreatedAt           time.Time               `json:"createdAt"`
	UpdatedAt           time.Time               `json:"updatedAt"`
	Schedule            []InstallmentResponse   `json:"schedule,omitempty"`
}

type InstallmentResponse struct {
	ID          string     `json:"id"`
	WeekNumber  int        `json:"weekNumber"`
	DueDate     string     `json:"dueDate"`
	DueAmount   string     `json:"dueAmount"`
	PaidAmount  *string    `json:"paidAmount,omitempty"`
	PaymentDate *time.Time `json:"paymentDate,omitempty"`
	Status      string     `json:"status"`
}

type PaymentResponse struct {
	ID            string    `json:"id"`
	LoanID        string    `json:"loanId"`
	InstallmentID string    `json:"installmentId"`
	Amount        string    `json:"amount"`
	ReceiptNumber string    `json:"receiptNumber"`
	RecordedBy    string    `json:"recordedBy,omitempty"`
	PaidAt        time.Time `json:"paidAt"`
}

type OutstandingResponse struct {
	LoanID            string `json:"loanId"`
	OutstandingAmount string `json:"outstandingAmount"`
}

type OverdueStatusResponse struct {
	LoanID    string `json:"loanId"`
	IsOverdue bool   `json:"isOverdue"`
}

type ErrorDetail struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

func formatMoney(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

func NewLoanResponse(domainLoan *loan.Loan, includeSchedule bool) LoanResponse {
	resp := LoanResponse{
		ID:                  strconv.FormatInt(domainLoan.ID, 10),
		MemberID:            strconv.FormatInt(domainLoan.MemberID, 10),
		BranchID:            strconv.FormatInt(domainLoan.BranchID, 10),
		PrincipalAmount:     formatMoney(domainLoan.PrincipalAmount),
		InterestRate:        decimal.NewFromFloat(domainLoan.InterestRate).String(),
		TermWeeks:           domainLoan.TermWeeks,
		WeeklyPaymentAmount: formatMoney(domainLoan.WeeklyPaymentAmount),
		TotalLoanAmount:     formatMoney(domainLoan.TotalLoanAmount),
		StartDate:           domainLoan.StartDate.Format(time.RFC3339[:10]),
		Status:              string(domainLoan.Status),
		CreatedAt:           domainLoan.CreatedAt,
		UpdatedAt:           domainLoan.UpdatedAt,
	}

	if includeSchedule && domainLoan.Schedule != nil {
		resp.Schedule = make([]InstallmentResponse, len(domainLoan.Schedule))
		for i, entry := range domainLoan.Schedule {
			resp.Schedule[i] = NewInstallmentResponse(&entry)
		}
	}

	return resp
}

func NewInstallmentResponse(entry *loan.Installment) InstallmentResponse {
	var paidAmountStr *string
	if entry.PaidAmount != 0 {
		s := formatMoney(entry.PaidAmount)
		paidAmountStr = &s
	}

	return InstallmentResponse{
		ID:          strconv.FormatInt(entry.ID, 10),
		WeekNumber:  entry.WeekNumber,
		DueDate:     entry.DueDate.Format(time.RFC3339[:10]),
		DueAmount:   formatMoney(entry.DueAmount),
		PaidAmount:  paidAmountStr,
		PaymentDate: entry.PaymentDate,
		Status:      string(entry.Status),
	}
}

func NewPaymentResponse(p *loan.Payment) PaymentResponse {
	return PaymentResponse{
		ID:            strconv.FormatInt(p.ID, 10),
		LoanID:        strconv.FormatInt(p.LoanID, 10),
		InstallmentID: strconv.FormatInt(p.InstallmentID, 10),
		Amount:        formatMoney(p.Amount),
		ReceiptNumber: p.ReceiptNumber,
		RecordedBy:    p.RecordedBy,
		PaidAt:        p.PaidAt,
	}
}
