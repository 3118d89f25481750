package expense

import (
	"context"
	"time"
)

// ListFilter narrows expense queries. Zero-value fields mean "no filter";
// From/To bound SpentAt inclusively when non-zero.
type ListFilter struct {
	BranchID *int64
	Category string
	From     time.Time
	To       time.Time
}

type Repository interface {
	Save(ctx context.Context, exp *Expense) error

	FindByID(ctx context.Context, expenseID int64) (*Expense, error)

	FindAll(ctx context.Context, filter ListFilter) ([]*Expense, error)

	// TotalByCategory aggregates amounts per category for the filter range.
	TotalByCategory(ctx context.Context, filter ListFilter) ([]CategoryTotal, error)

	Delete(ctx context.Context, expenseID int64) error
}
