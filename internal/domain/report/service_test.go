package report

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

var logger = slog.New(slog.NewTextHandler(os.Stdout, nil))

type MockRepository struct {
	mock.Mock
}

func (_m *MockRepository) BranchSummary(ctx context.Context, branchID int64, from, to time.Time) (*BranchSummary, error) {
	ret := _m.Called(ctx, branchID, from, to)

	var r0 *BranchSummary
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*BranchSummary)
	}
	return r0, ret.Error(1)
}

func (_m *MockRepository) AllBranchSummaries(ctx context.Context, from, to time.Time) ([]BranchSummary, error) {
	ret := _m.Called(ctx, from, to)

	var r0 []BranchSummary
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]BranchSummary)
	}
	return r0, ret.Error(1)
}

func TestGetBranchSummary(t *testing.T) {
	repo := new(MockRepository)
	svc := NewService(repo, logger)
	ctx := context.Background()

	from := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)
	repo.On("BranchSummary", ctx, int64(2), from, to).
		Return(&BranchSummary{BranchID: 2, BranchName: "Kilimandogo", MemberCount: 40, ActiveLoans: 25}, nil)

	summary, err := svc.GetBranchSummary(ctx, 2, from, to)

	assert.NoError(t, err)
	assert.Equal(t, "Kilimandogo", summary.BranchName)
	assert.Equal(t, from, summary.PeriodStart)
	assert.Equal(t, to, summary.PeriodEnd)
	repo.AssertExpectations(t)
}

func TestGetBranchSummaryNotFound(t *testing.T) {
	repo := new(MockRepository)
	svc := NewService(repo, logger)
	ctx := context.Background()

	from := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)
	repo.On("BranchSummary", ctx, int64(99), from, to).Return(nil, ErrNotFound)

	summary, err := svc.GetBranchSummary(ctx, 99, from, to)

	assert.Nil(t, summary)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetBranchSummaryInvalidRange(t *testing.T) {
	repo := new(MockRepository)
	svc := NewService(repo, logger)

	from := time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	summary, err := svc.GetBranchSummary(context.Background(), 2, from, to)

	assert.Nil(t, summary)
	assert.Error(t, err)
	repo.AssertNotCalled(t, "BranchSummary")
}

func TestGetPortfolioSummaryRollsUpBranches(t *testing.T) {
	repo := new(MockRepository)
	svc := NewService(repo, logger)
	ctx := context.Background()

	from := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)
	repo.On("AllBranchSummaries", ctx, from, to).Return([]BranchSummary{
		{BranchID: 1, MemberCount: 40, ActiveLoans: 25, OverdueLoans: 3, TotalOutstanding: 120_000, TotalExpenses: 4_500},
		{BranchID: 2, MemberCount: 60, ActiveLoans: 41, OverdueLoans: 5, TotalOutstanding: 230_000, TotalExpenses: 6_100},
	}, nil)

	portfolio, err := svc.GetPortfolioSummary(ctx, from, to)

	assert.NoError(t, err)
	assert.Equal(t, 2, portfolio.BranchCount)
	assert.Equal(t, 100, portfolio.MemberCount)
	assert.Equal(t, 66, portfolio.ActiveLoans)
	assert.Equal(t, 8, portfolio.OverdueLoans)
	assert.InDelta(t, 350_000, portfolio.TotalOutstanding, 0.01)
	assert.InDelta(t, 10_600, portfolio.TotalExpenses, 0.01)
	assert.Len(t, portfolio.Branches, 2)
	repo.AssertExpectations(t)
}

func TestGetPortfolioSummaryDefaultsRange(t *testing.T) {
	repo := new(MockRepository)
	svc := NewService(repo, logger)
	ctx := context.Background()

	repo.On("AllBranchSummaries", ctx, mock.AnythingOfType("time.Time"), mock.AnythingOfType("time.Time")).
		Return([]BranchSummary{}, nil)

	portfolio, err := svc.GetPortfolioSummary(ctx, time.Time{}, time.Time{})

	assert.NoError(t, err)
	assert.Equal(t, 1, portfolio.PeriodStart.Day())
	assert.False(t, portfolio.PeriodEnd.IsZero())
}
