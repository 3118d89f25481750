package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"
)

type Service interface {
	GetBranchSummary(ctx context.Context, branchID int64, from, to time.Time) (*BranchSummary, error)
	GetPortfolioSummary(ctx context.Context, from, to time.Time) (*PortfolioSummary, error)
}

var _ Service = (*reportService)(nil)

type reportService struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) Service {
	if repo == nil {
		panic("report repository cannot be nil")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
		logger.Warn("Warning: No logger provided to report NewService, using default stderr handler")
	}

	return &reportService{
		repo:   repo,
		logger: logger.With(slog.String("component", "reportService")),
	}
}

// normalizeRange defaults the period to the current calendar month.
func normalizeRange(from, to time.Time) (time.Time, time.Time, error) {
	now := time.Now()
	if from.IsZero() {
		from = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	}
	if to.IsZero() {
		to = now
	}
	if to.Before(from) {
		return from, to, errors.New("report range end cannot be before start")
	}
	return from, to, nil
}

func (s *reportService) GetBranchSummary(ctx context.Context, branchID int64, from, to time.Time) (*BranchSummary, error) {
	s.logger.InfoContext(ctx, "Building branch summary", slog.Int64("branchID", branchID))

	from, to, err := normalizeRange(from, to)
	if err != nil {
		s.logger.WarnContext(ctx, "Validation failed: invalid report range")
		return nil, err
	}

	summary, err := s.repo.BranchSummary(ctx, branchID, from, to)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.logger.WarnContext(ctx, "Branch not found for summary", slog.Int64("branchID", branchID))
			return nil, ErrNotFound
		}
		s.logger.ErrorContext(ctx, "Repository error building branch summary", slog.Any("error", err))
		return nil, fmt.Errorf("failed to build summary for branch %d: %w", branchID, err)
	}

	summary.PeriodStart = from
	summary.PeriodEnd = to
	return summary, nil
}

func (s *reportService) GetPortfolioSummary(ctx context.Context, from, to time.Time) (*PortfolioSummary, error) {
	s.logger.InfoContext(ctx, "Building portfolio summary")

	from, to, err := normalizeRange(from, to)
	if err != nil {
		s.logger.WarnContext(ctx, "Validation failed: invalid report range")
		return nil, err
	}

	branches, err := s.repo.AllBranchSummaries(ctx, from, to)
	if err != nil {
		s.logger.ErrorContext(ctx, "Repository error building portfolio summary", slog.Any("error", err))
		return nil, fmt.Errorf("failed to build portfolio summary: %w", err)
	}

	portfolio := &PortfolioSummary{
		BranchCount: len(branches),
		PeriodStart: from,
		PeriodEnd:   to,
		Branches:    branches,
	}
	for i := range branches {
		branches[i].PeriodStart = from
		branches[i].PeriodEnd = to
		portfolio.MemberCount += branches[i].MemberCount
		portfolio.ActiveLoans += branches[i].ActiveLoans
		portfolio.OverdueLoans += branches[i].OverdueLoans
		portfolio.PaidOffLoans += branches[i].PaidOffLoans
		portfolio.TotalOutstanding += branches[i].TotalOutstanding
		portfolio.TotalOverdue += branches[i].TotalOverdue
		portfolio.TotalExpenses += branches[i].TotalExpenses
	}

	s.logger.InfoContext(ctx, "Portfolio summary built", slog.Int("branches", len(branches)))
	return portfolio, nil
}
