package expense

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("expense not found")

// Expense is a branch-level operating cost entry (rent, salaries, transport).
type Expense struct {
	ExpenseID  int64     `json:"expenseId"`
	BranchID   int64     `json:"branchId"`
	Category   string    `json:"category"`
	Amount     float64   `json:"amount"`
	Note       string    `json:"note,omitempty"`
	SpentAt    time.Time `json:"spentAt"`
	RecordedBy string    `json:"recordedBy,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// CategoryTotal is one row of a per-category aggregation over a date range.
type CategoryTotal struct {
	Category string  `json:"category"`
	Total    float64 `json:"total"`
}
