package report

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("branch not found for report")

// BranchSummary is the per-branch operational snapshot: portfolio counts and
// balances plus operating expenses for the requested period.
type BranchSummary struct {
	BranchID         int64     `json:"branchId"`
	BranchName       string    `json:"branchName"`
	MemberCount      int       `json:"memberCount"`
	ActiveLoans      int       `json:"activeLoans"`
	OverdueLoans     int       `json:"overdueLoans"`
	PaidOffLoans     int       `json:"paidOffLoans"`
	TotalOutstanding float64   `json:"totalOutstanding"`
	TotalOverdue     float64   `json:"totalOverdue"`
	TotalExpenses    float64   `json:"totalExpenses"`
	PeriodStart      time.Time `json:"periodStart"`
	PeriodEnd        time.Time `json:"periodEnd"`
}

// PortfolioSummary rolls every branch up into one view.
type PortfolioSummary struct {
	BranchCount      int             `json:"branchCount"`
	MemberCount      int             `json:"memberCount"`
	ActiveLoans      int             `json:"activeLoans"`
	OverdueLoans     int             `json:"overdueLoans"`
	PaidOffLoans     int             `json:"paidOffLoans"`
	TotalOutstanding float64         `json:"totalOutstanding"`
	TotalOverdue     float64         `json:"totalOverdue"`
	TotalExpenses    float64         `json:"totalExpenses"`
	PeriodStart      time.Time       `json:"periodStart"`
	PeriodEnd        time.Time       `json:"periodEnd"`
	Branches         []BranchSummary `json:"branches"`
}

// Repository runs the aggregate queries. Implementations push the counting
// and summing into SQL; the service only assembles rows.
type Repository interface {
	BranchSummary(ctx context.Context, branchID int64, from, to time.Time) (*BranchSummary, error)

	AllBranchSummaries(ctx context.Context, from, to time.Time) ([]BranchSummary, error)
}
