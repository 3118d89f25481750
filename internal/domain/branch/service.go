package branch

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

const inputValidationPassed = "Input validation passed"

type Service interface {
	CreateBranch(ctx context.Context, name, code, address, phone string) (*Branch, error)
	GetBranch(ctx context.Context, branchID int64) (*Branch, error)
	ListBranches(ctx context.Context, activeOnly bool) ([]*Branch, error)
	UpdateBranch(ctx context.Context, branchID int64, name, address, phone string) error
	DeactivateBranch(ctx context.Context, branchID int64) error
	ReactivateBranch(ctx context.Context, branchID int64) error
}

var _ Service = (*branchService)(nil)

type branchService struct {
	repo   Repository
	pub    event.Publisher
	logger *slog.Logger
}

func NewService(repo Repository, pub event.Publisher, logger *slog.Logger) Service {
	if repo == nil {
		panic("branch repository cannot be nil")
	}
	if pub == nil {
		pub = event.NoopPublisher{}
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
		logger.Warn("Warning: No logger provided to branch NewService, using default stderr handler")
	}

	return &branchService{
		repo:   repo,
		pub:    pub,
		logger: logger.With(slog.String("component", "branchService")),
	}
}

func (s *branchService) CreateBranch(ctx context.Context, name, code, address, phone string) (*Branch, error) {
	s.logger.InfoContext(ctx, "Attempting to create new branch")

	name = strings.TrimSpace(name)
	code = strings.ToUpper(strings.TrimSpace(code))
	address = strings.TrimSpace(address)
	phone = strings.TrimSpace(phone)
	if name == "" {
		s.logger.WarnContext(ctx, "Validation failed: name is empty")
		return nil, errors.New("branch name cannot be empty")
	}
	if code == "" {
		s.logger.WarnContext(ctx, "Validation failed: code is empty", slog.String("name", name))
		return nil, errors.New("branch code cannot be empty")
	}
	s.logger.InfoContext(ctx, inputValidationPassed, slog.String("code", code))

	existing, err := s.repo.FindByCode(ctx, code)
	if err != nil && !errors.Is(err, ErrNotFound) {
		s.logger.ErrorContext(ctx, "Repository error checking branch code", slog.Any("error", err))
		return nil, fmt.Errorf("failed to check branch code %s: %w", code, err)
	}
	if existing != nil {
		s.logger.WarnContext(ctx, "Branch code already in use", slog.String("code", code))
		return nil, fmt.Errorf("%w: %s", ErrDuplicateCode, code)
	}

	branch := NewBranch(name, code, address, phone)

	s.logger.InfoContext(ctx, "Calling repository Save")
	if err := s.repo.Save(ctx, branch); err != nil {
		s.logger.ErrorContext(ctx, "Repository failed to save new branch", slog.Any("error", err))
		return nil, fmt.Errorf("failed to save new branch: %w", err)
	}

	created := event.BranchCreatedEvent{
		Timestamp: time.Now(),
		Payload: event.BranchEventPayload{
			BranchID: branch.BranchID,
			Name:     branch.Name,
			Code:     branch.Code,
			Active:   branch.Active,
		},
	}
	if pubErr := s.pub.PublishBranchCreated(ctx, created); pubErr != nil {
		s.logger.ErrorContext(ctx, "Branch created, but FAILED to publish creation event", slog.Any("error", pubErr))
	}

	s.logger.InfoContext(ctx, "Successfully created new branch", slog.Int64("branchID", branch.BranchID))
	return branch, nil
}

func (s *branchService) GetBranch(ctx context.Context, branchID int64) (*Branch, error) {
	s.logger.InfoContext(ctx, "Attempting to get branch by ID", slog.Int64("branchID", branchID))

	branch, err := s.repo.FindByID(ctx, branchID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.logger.WarnContext(ctx, "Branch not found by repository", slog.Int64("branchID", branchID))
			return nil, ErrNotFound
		}
		s.logger.ErrorContext(ctx, "Repository error finding branch", slog.Any("error", err))
		return nil, fmt.Errorf("failed to get branch %d: %w", branchID, err)
	}

	return branch, nil
}

func (s *branchService) ListBranches(ctx context.Context, activeOnly bool) ([]*Branch, error) {
	s.logger.InfoContext(ctx, "Attempting to list branches", slog.Bool("activeOnly", activeOnly))

	branches, err := s.repo.FindAll(ctx, activeOnly)
	if err != nil {
		s.logger.ErrorContext(ctx, "Repository error listing branches", slog.Any("error", err))
		return nil, fmt.Errorf("failed to list branches: %w", err)
	}

	s.logger.InfoContext(ctx, "Successfully retrieved branches", slog.Int("count", len(branches)))
	return branches, nil
}

func (s *branchService) UpdateBranch(ctx context.Context, branchID int64, name, address, phone string) error {
	s.logger.InfoContext(ctx, "Attempting to update branch", slog.Int64("branchID", branchID))

	name = strings.TrimSpace(name)
	if name == "" {
		s.logger.WarnContext(ctx, "Validation failed: name is empty")
		return errors.New("branch name cannot be empty")
	}

	branch, err := s.repo.FindByID(ctx, branchID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.logger.WarnContext(ctx, "Branch not found by repository for update")
			return ErrNotFound
		}
		s.logger.ErrorContext(ctx, "Repository error finding branch for update", slog.Any("error", err))
		return fmt.Errorf("failed to get branch %d for update: %w", branchID, err)
	}

	branch.Name = name
	branch.Address = strings.TrimSpace(address)
	branch.Phone = strings.TrimSpace(phone)
	branch.UpdatedAt = time.Now()

	if err := s.repo.Save(ctx, branch); err != nil {
		s.logger.ErrorContext(ctx, "Repository failed to save updated branch", slog.Any("error", err))
		return fmt.Errorf("failed to update branch %d: %w", branchID, err)
	}

	s.logger.InfoContext(ctx, "Successfully updated branch")
	return nil
}

func (s *branchService) DeactivateBranch(ctx context.Context, branchID int64) error {
	s.logger.InfoContext(ctx, "Attempting to deactivate branch", slog.Int64("branchID", branchID))

	if _, err := s.GetBranch(ctx, branchID); err != nil {
		return err
	}

	activeLoans, err := s.repo.CountActiveLoans(ctx, branchID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Repository error counting active loans", slog.Any("error", err))
		return fmt.Errorf("failed to count active loans for branch %d: %w", branchID, err)
	}
	if activeLoans > 0 {
		s.logger.WarnContext(ctx, "Branch has active loans, refusing to deactivate", slog.Int("activeLoans", activeLoans))
		return fmt.Errorf("%w: %d active loans", ErrBranchHasActiveLoans, activeLoans)
	}

	if err := s.repo.SetActiveStatus(ctx, branchID, false); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		s.logger.ErrorContext(ctx, "Repository failed to deactivate branch", slog.Any("error", err))
		return fmt.Errorf("failed to deactivate branch %d: %w", branchID, err)
	}

	s.logger.InfoContext(ctx, "Successfully deactivated branch")
	return nil
}

func (s *branchService) ReactivateBranch(ctx context.Context, branchID int64) error {
	s.logger.InfoContext(ctx, "Attempting to reactivate branch", slog.Int64("branchID", branchID))

	if err := s.repo.SetActiveStatus(ctx, branchID, true); err != nil {
		if errors.Is(err, ErrNotFound) {
			s.logger.WarnContext(ctx, "Branch not found by repository for reactivation")
			return ErrNotFound
		}
		s.logger.ErrorContext(ctx, "Repository failed to reactivate branch", slog.Any("error", err))
		return fmt.Errorf("failed to reactivate branch %d: %w", branchID, err)
	}

	s.logger.InfoContext(ctx, "Successfully reactivated branch")
	return nil
}
