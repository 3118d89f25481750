package expense

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"microfin-office/internal/event"
)

type Service interface {
	RecordExpense(ctx context.Context, branchID int64, category string, amount float64, note string, spentAt time.Time, recordedBy string) (*Expense, error)
	GetExpense(ctx context.Context, expenseID int64) (*Expense, error)
	ListExpenses(ctx context.Context, filter ListFilter) ([]*Expense, error)
	CategoryTotals(ctx context.Context, filter ListFilter) ([]CategoryTotal, error)
	DeleteExpense(ctx context.Context, expenseID int64) error
}

var _ Service = (*expenseService)(nil)

type expenseService struct {
	repo   Repository
	pub    event.Publisher
	logger *slog.Logger
}

func NewService(repo Repository, pub event.Publisher, logger *slog.Logger) Service {
	if repo == nil {
		panic("expense repository cannot be nil")
	}
	if pub == nil {
		pub = event.NoopPublisher{}
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
		logger.Warn("Warning: No logger provided to expense NewService, using default stderr handler")
	}

	return &expenseService{
		repo:   repo,
		pub:    pub,
		logger: logger.With(slog.String("component", "expenseService")),
	}
}

func (s *expenseService) RecordExpense(ctx context.Context, branchID int64, category string, amount float64, note string, spentAt time.Time, recordedBy string) (*Expense, error) {
	s.logger.InfoContext(ctx, "Attempting to record expense", slog.Int64("branchID", branchID))

	category = strings.TrimSpace(category)
	if branchID <= 0 {
		s.logger.WarnContext(ctx, "Validation failed: invalid branch ID")
		return nil, errors.New("branch ID must be positive")
	}
	if category == "" {
		s.logger.WarnContext(ctx, "Validation failed: category is empty")
		return nil, errors.New("expense category cannot be empty")
	}
	if amount <= 0 {
		s.logger.WarnContext(ctx, "Validation failed: non-positive amount", slog.Float64("amount", amount))
		return nil, errors.New("expense amount must be positive")
	}
	if spentAt.IsZero() {
		spentAt = time.Now()
	}

	now := time.Now()
	exp := &Expense{
		BranchID:   branchID,
		Category:   category,
		Amount:     amount,
		Note:       strings.TrimSpace(note),
		SpentAt:    spentAt,
		RecordedBy: recordedBy,
		CreatedAt:  now,
	}

	s.logger.InfoContext(ctx, "Calling repository Save")
	if err := s.repo.Save(ctx, exp); err != nil {
		s.logger.ErrorContext(ctx, "Repository failed to save expense", slog.Any("error", err))
		return nil, fmt.Errorf("failed to save expense: %w", err)
	}

	recorded := event.ExpenseRecordedEvent{
		Timestamp: now,
		Payload: event.ExpenseEventPayload{
			ExpenseID: exp.ExpenseID,
			BranchID:  exp.BranchID,
			Category:  exp.Category,
			Amount:    exp.Amount,
		},
	}
	if pubErr := s.pub.PublishExpenseRecorded(ctx, recorded); pubErr != nil {
		s.logger.ErrorContext(ctx, "Expense recorded, but FAILED to publish event", slog.Any("error", pubErr))
	}

	s.logger.InfoContext(ctx, "Successfully recorded expense", slog.Int64("expenseID", exp.ExpenseID))
	return exp, nil
}

func (s *expenseService) GetExpense(ctx context.Context, expenseID int64) (*Expense, error) {
	s.logger.InfoContext(ctx, "Attempting to get expense by ID", slog.Int64("expenseID", expenseID))

	exp, err := s.repo.FindByID(ctx, expenseID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.logger.WarnContext(ctx, "Expense not found by repository", slog.Int64("expenseID", expenseID))
			return nil, ErrNotFound
		}
		s.logger.ErrorContext(ctx, "Repository error finding expense", slog.Any("error", err))
		return nil, fmt.Errorf("failed to get expense %d: %w", expenseID, err)
	}

	return exp, nil
}

func (s *expenseService) ListExpenses(ctx context.Context, filter ListFilter) ([]*Expense, error) {
	s.logger.InfoContext(ctx, "Attempting to list expenses")

	if !filter.From.IsZero() && !filter.To.IsZero() && filter.To.Before(filter.From) {
		s.logger.WarnContext(ctx, "Validation failed: range end before start")
		return nil, errors.New("date range end cannot be before start")
	}

	expenses, err := s.repo.FindAll(ctx, filter)
	if err != nil {
		s.logger.ErrorContext(ctx, "Repository error listing expenses", slog.Any("error", err))
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}

	s.logger.InfoContext(ctx, "Successfully retrieved expenses", slog.Int("count", len(expenses)))
	return expenses, nil
}

func (s *expenseService) CategoryTotals(ctx context.Context, filter ListFilter) ([]CategoryTotal, error) {
	s.logger.InfoContext(ctx, "Attempting to total expenses by category")

	if !filter.From.IsZero() && !filter.To.IsZero() && filter.To.Before(filter.From) {
		s.logger.WarnContext(ctx, "Validation failed: range end before start")
		return nil, errors.New("date range end cannot be before start")
	}

	totals, err := s.repo.TotalByCategory(ctx, filter)
	if err != nil {
		s.logger.ErrorContext(ctx, "Repository error totalling expenses", slog.Any("error", err))
		return nil, fmt.Errorf("failed to total expenses: %w", err)
	}

	return totals, nil
}

func (s *expenseService) DeleteExpense(ctx context.Context, expenseID int64) error {
	s.logger.InfoContext(ctx, "Attempting to delete expense", slog.Int64("expenseID", expenseID))

	if err := s.repo.Delete(ctx, expenseID); err != nil {
		if errors.Is(err, ErrNotFound) {
			s.logger.WarnContext(ctx, "Expense not found by repository for delete")
			return ErrNotFound
		}
		s.logger.ErrorContext(ctx, "Repository failed to delete expense", slog.Any("error", err))
		return fmt.Errorf("failed to delete expense %d: %w", expenseID, err)
	}

	s.logger.InfoContext(ctx, "Successfully deleted expense")
	return nil
}
