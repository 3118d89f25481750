package dto

import (
	"strconv"
	"time"

	"microfin-office/internal/domain/report"
)

type BranchSummaryResponse struct {
	BranchID         string    `json:"branchId"`
	BranchName       string    `json:"branchName"`
	MemberCount      int       `json:"memberCount"`
	ActiveLoans      int       `json:"activeLoans"`
	OverdueLoans     int       `json:"overdueLoans"`
	PaidOffLoans     int       `json:"paidOffLoans"`
	TotalOutstanding string    `json:"totalOutstanding"`
	TotalOverdue     string    `json:"totalOverdue"`
	TotalExpenses    string    `json:"totalExpenses"`
	PeriodStart      time.Time `json:"periodStart"`
	PeriodEnd        time.Time `json:"periodEnd"`
}

type PortfolioSummaryResponse struct {
	BranchCount      int                     `json:"branchCount"`
	MemberCount      int                     `json:"memberCount"`
	ActiveLoans      int                     `json:"activeLoans"`
	OverdueLoans     int                     `json:"overdueLoans"`
	PaidOffLoans     int                     `json:"paidOffLoans"`
	TotalOutstanding string                  `json:"totalOutstanding"`
	TotalOverdue     string                  `json:"totalOverdue"`
	TotalExpenses    string                  `json:"totalExpenses"`
	PeriodStart      time.Time               `json:"periodStart"`
	PeriodEnd        time.Time               `json:"periodEnd"`
	Branches         []BranchSummaryResponse `json:"branches"`
}

func NewBranchSummaryResponse(s *report.BranchSummary) BranchSummaryResponse {
	if s == nil {
		return BranchSummaryResponse{}
	}
	return BranchSummaryResponse{
		BranchID:         strconv.FormatInt(s.BranchID, 10),
		BranchName:       s.BranchName,
		MemberCount:      s.MemberCount,
		ActiveLoans:      s.ActiveLoans,
		OverdueLoans:     s.OverdueLoans,
		PaidOffLoans:     s.PaidOffLoans,
		TotalOutstanding: formatMoney(s.TotalOutstanding),
		TotalOverdue:     formatMoney(s.TotalOverdue),
		TotalExpenses:    formatMoney(s.TotalExpenses),
		PeriodStart:      s.PeriodStart,
		PeriodEnd:        s.PeriodEnd,
	}
}

func NewPortfolioSummaryResponse(s *report.PortfolioSummary) PortfolioSummaryResponse {
	if s == nil {
		return PortfolioSummaryResponse{}
	}

	branches := make([]BranchSummaryResponse, len(s.Branches))
	for i := range s.Branches {
		branches[i] = NewBranchSummaryResponse(&s.Branches[i])
	}

	return PortfolioSummaryResponse{
		BranchCount:      s.BranchCount,
		MemberCount:      s.MemberCount,
		ActiveLoans:      s.ActiveLoans,
		OverdueLoans:     s.OverdueLoans,
		PaidOffLoans:     s.PaidOffLoans,
		TotalOutstanding: formatMoney(s.TotalOutstanding),
		TotalOverdue:     formatMoney(s.TotalOverdue),
		TotalExpenses:    formatMoney(s.TotalExpenses),
		PeriodStart:      s.PeriodStart,
		PeriodEnd:        s.PeriodEnd,
		Branches:         branches,
	}
}
