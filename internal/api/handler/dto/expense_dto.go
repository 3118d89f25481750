package dto

import (
	"strconv"
	"strings"
	"time"

	"microfin-office/internal/domain/expense"
	"microfin-office/internal/pkg/apperrors"

	"github.com/shopspring/decimal"
)

type RecordExpenseRequest struct {
	BranchID int64  `json:"branchId"`
	Category string `json:"category"`
	Amount   string `json:"amount"`
	Note     string `json:"note,omitempty"`
	SpentAt  string `json:"spentAt,omitempty"`
}

func (r *RecordExpenseRequest) Validate() error {
	if r.BranchID <= 0 {
		return apperrors.NewValidationError("branchId", "must be positive")
	}
	if strings.TrimSpace(r.Category) == "" {
		return apperrors.NewValidationError("category", "cannot be empty")
	}
	amount, err := decimal.NewFromString(r.Amount)
	if err != nil || !amount.IsPositive() {
		return apperrors.NewValidationError("amount", "must be a positive decimal string")
	}
	if r.SpentAt != "" {
		if _, err := time.Parse(time.RFC3339[:10], r.SpentAt); err != nil {
			return apperrors.NewValidationError("spentAt", "invalid format, use YYYY-MM-DD")
		}
	}
	return nil
}

type ExpenseResponse struct {
	ExpenseID  string    `json:"expenseId"`
	BranchID   string    `json:"branchId"`
	Category   string    `json:"category"`
	Amount     string    `json:"amount"`
	Note       string    `json:"note,omitempty"`
	SpentAt    string    `json:"spentAt"`
	RecordedBy string    `json:"recordedBy,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

type CategoryTotalResponse struct {
	Category string `json:"category"`
	Total    string `json:"total"`
}

func NewExpenseResponse(e *expense.Expense) ExpenseResponse {
	if e == nil {
		return ExpenseResponse{}
	}
	return ExpenseResponse{
		ExpenseID:  strconv.FormatInt(e.ExpenseID, 10),
		BranchID:   strconv.FormatInt(e.BranchID, 10),
		Category:   e.Category,
		Amount:     formatMoney(e.Amount),
		Note:       e.Note,
		SpentAt:    e.SpentAt.Format(time.RFC3339[:10]),
		RecordedBy: e.RecordedBy,
		CreatedAt:  e.CreatedAt,
	}
}

func NewCategoryTotalResponse(ct expense.CategoryTotal) CategoryTotalResponse {
	return CategoryTotalResponse{
		Category: ct.Category,
		Total:    formatMoney(ct.Total),
	}
}
