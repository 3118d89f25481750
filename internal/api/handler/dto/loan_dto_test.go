package dto

import (
	"testing"
	"time"

	"microfin-office/internal/domain/loan"

	"github.com/stretchr/testify/assert"
)

func TestNewLoanResponse(t *testing.T) {
	mockLoan := &loan.Loan{
		ID:                  1,
		MemberID:            7,
		BranchID:            2,
		PrincipalAmount:     1000.0,
		InterestRate:        0.1,
		TermWeeks:           10,
		WeeklyPaymentAmount: 110.0,
		TotalLoanAmount:     1100.0,
		StartDate:           time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC),
		Status:              loan.StatusActive,
		CreatedAt:           time.Now(),
		UpdatedAt:           time.Now(),
		Schedule: []loan.Installment{
			{
				ID:          1,
				WeekNumber:  1,
				DueDate:     time.Date(2025, 1, 13, 0, 0, 0, 0, time.UTC),
				DueAmount:   110.0,
				PaidAmount:  110.0,
				PaymentDate: nil,
				Status:      loan.InstallmentPaid,
			},
		},
	}

	t.Run("Test without schedule", func(t *testing.T) {
		response := NewLoanResponse(mockLoan, false)

		assert.Equal(t, "1", response.ID)
		assert.Equal(t, "7", response.MemberID)
		assert.Equal(t, "2", response.BranchID)
		assert.Equal(t, "1000.00", response.PrincipalAmount)
		assert.Equal(t, "0.1", response.InterestRate)
		assert.Equal(t, 10, response.TermWeeks)
		assert.Equal(t, "110.00", response.WeeklyPaymentAmount)
		assert.Equal(t, "1100.00", response.TotalLoanAmount)
		assert.Equal(t, "2025-01-06", response.StartDate)
		assert.Equal(t, string(loan.StatusActive), response.Status)
		assert.Nil(t, response.Schedule)
	})

	t.Run("Test with schedule", func(t *testing.T) {
		response := NewLoanResponse(mockLoan, true)

		assert.NotNil(t, response.Schedule)
		assert.Len(t, response.Schedule, 1)

		entry := response.Schedule[0]
		assert.Equal(t, "1", entry.ID)
		assert.Equal(t, 1, entry.WeekNumber)
		assert.Equal(t, "2025-01-13", entry.DueDate)
		assert.Equal(t, "110.00", entry.DueAmount)
		assert.NotNil(t, entry.PaidAmount)
		assert.Equal(t, "110.00", *entry.PaidAmount)
		assert.Nil(t, entry.PaymentDate)
		assert.Equal(t, string(loan.InstallmentPaid), entry.Status)
	})
}

func TestCreateLoanRequestValidate(t *testing.T) {
	t.Run("valid with defaults omitted", func(t *testing.T) {
		req := CreateLoanRequest{MemberID: 5, Principal: "2500000"}
		assert.NoError(t, req.Validate())
	})

	t.Run("rejects non-positive principal", func(t *testing.T) {
		req := CreateLoanRequest{MemberID: 5, Principal: "0"}
		assert.Error(t, req.Validate())
	})

	t.Run("rejects malformed principal", func(t *testing.T) {
		req := CreateLoanRequest{MemberID: 5, Principal: "ten"}
		assert.Error(t, req.Validate())
	})

	t.Run("rejects bad start date", func(t *testing.T) {
		req := CreateLoanRequest{MemberID: 5, Principal: "100", StartDate: "06-01-2025"}
		assert.Error(t, req.Validate())
	})

	t.Run("rejects missing member", func(t *testing.T) {
		req := CreateLoanRequest{Principal: "100"}
		assert.Error(t, req.Validate())
	})
}

func TestNewPaymentResponse(t *testing.T) {
	paidAt := time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC)
	p := &loan.Payment{
		ID:            4,
		LoanID:        9,
		InstallmentID: 12,
		Amount:        110.0,
		ReceiptNumber: "rcpt-1",
		RecordedBy:    "officer1",
		PaidAt:        paidAt,
	}

	response := NewPaymentResponse(p)

	assert.Equal(t, "4", response.ID)
	assert.Equal(t, "9", response.LoanID)
	assert.Equal(t, "12", response.InstallmentID)
	assert.Equal(t, "110.00", response.Amount)
	assert.Equal(t, "rcpt-1", response.ReceiptNumber)
	assert.Equal(t, "officer1", response.RecordedBy)
	assert.Equal(t, paidAt, response.PaidAt)
}
