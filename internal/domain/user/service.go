package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"microfin-office/internal/pkg/apperrors"
)

const minPasswordLength = 8

type Service interface {
	CreateUser(ctx context.Context, username, password, fullName string, role Role, branchID *int64) (*User, error)
	GetUser(ctx context.Context, userID int64) (*User, error)
	ListUsers(ctx context.Context, activeOnly bool) ([]*User, error)
	ChangePassword(ctx context.Context, userID int64, newPassword string) error
	DeactivateUser(ctx context.Context, userID int64) error
	ReactivateUser(ctx context.Context, userID int64) error
	DeleteUser(ctx context.Context, userID int64) error

	// Authenticate verifies credentials and returns the active account.
	// Returns apperrors.ErrUnauthorized for bad credentials or inactive
	// accounts so callers cannot tell the two apart.
	Authenticate(ctx context.Context, username, password string) (*User, error)
}

var _ Service = (*userService)(nil)

type userService struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) Service {
	if repo == nil {
		panic("user repository cannot be nil")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
		logger.Warn("Warning: No logger provided to user NewService, using default stderr handler")
	}

	return &userService{
		repo:   repo,
		logger: logger.With(slog.String("component", "userService")),
	}
}

func (s *userService) CreateUser(ctx context.Context, username, password, fullName string, role Role, branchID *int64) (*User, error) {
	s.logger.InfoContext(ctx, "Attempting to create user", slog.String("username", username))

	username = strings.ToLower(strings.TrimSpace(username))
	fullName = strings.TrimSpace(fullName)
	if username == "" {
		s.logger.WarnContext(ctx, "Validation failed: username is empty")
		return nil, errors.New("username cannot be empty")
	}
	if len(password) < minPasswordLength {
		s.logger.WarnContext(ctx, "Validation failed: password too short", slog.String("username", username))
		return nil, fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}
	if !role.Valid() {
		s.logger.WarnContext(ctx, "Validation failed: unknown role", slog.String("role", string(role)))
		return nil, fmt.Errorf("unknown role %q", role)
	}
	if role != RoleAdmin && branchID == nil {
		s.logger.WarnContext(ctx, "Validation failed: non-admin user requires a branch", slog.String("role", string(role)))
		return nil, fmt.Errorf("role %q requires a branch assignment", role)
	}

	existing, err := s.repo.FindByUsername(ctx, username)
	if err != nil && !errors.Is(err, ErrNotFound) {
		s.logger.ErrorContext(ctx, "Repository error checking username", slog.Any("error", err))
		return nil, fmt.Errorf("failed to check username %s: %w", username, err)
	}
	if existing != nil {
		s.logger.WarnContext(ctx, "Username already taken", slog.String("username", username))
		return nil, fmt.Errorf("%w: %s", ErrDuplicateUsername, username)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to hash password", slog.Any("error", err))
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	u := &User{
		Username:     username,
		PasswordHash: string(hash),
		FullName:     fullName,
		Role:         role,
		BranchID:     branchID,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	s.logger.InfoContext(ctx, "Calling repository Save")
	if err := s.repo.Save(ctx, u); err != nil {
		s.logger.ErrorContext(ctx, "Repository failed to save new user", slog.Any("error", err))
		return nil, fmt.Errorf("failed to save new user: %w", err)
	}

	s.logger.InfoContext(ctx, "Successfully created user", slog.Int64("userID", u.UserID))
	return u, nil
}

func (s *userService) GetUser(ctx context.Context, userID int64) (*User, error) {
	s.logger.InfoContext(ctx, "Attempting to get user by ID", slog.Int64("userID", userID))

	u, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.logger.WarnContext(ctx, "User not found by repository", slog.Int64("userID", userID))
			return nil, ErrNotFound
		}
		s.logger.ErrorContext(ctx, "Repository error finding user", slog.Any("error", err))
		return nil, fmt.Errorf("failed to get user %d: %w", userID, err)
	}

	return u, nil
}

func (s *userService) ListUsers(ctx context.Context, activeOnly bool) ([]*User, error) {
	s.logger.InfoContext(ctx, "Attempting to list users", slog.Bool("activeOnly", activeOnly))

	users, err := s.repo.FindAll(ctx, activeOnly)
	if err != nil {
		s.logger.ErrorContext(ctx, "Repository error listing users", slog.Any("error", err))
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	s.logger.InfoContext(ctx, "Successfully retrieved users", slog.Int("count", len(users)))
	return users, nil
}

func (s *userService) ChangePassword(ctx context.Context, userID int64, newPassword string) error {
	s.logger.InfoContext(ctx, "Attempting to change password", slog.Int64("userID", userID))

	if len(newPassword) < minPasswordLength {
		s.logger.WarnContext(ctx, "Validation failed: password too short")
		return fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}

	u, err := s.GetUser(ctx, userID)
	if err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to hash password", slog.Any("error", err))
		return fmt.Errorf("failed to hash password: %w", err)
	}

	u.PasswordHash = string(hash)
	u.UpdatedAt = time.Now()
	if err := s.repo.Save(ctx, u); err != nil {
		s.logger.ErrorContext(ctx, "Repository failed to save password change", slog.Any("error", err))
		return fmt.Errorf("failed to change password for user %d: %w", userID, err)
	}

	s.logger.InfoContext(ctx, "Successfully changed password")
	return nil
}

func (s *userService) DeactivateUser(ctx context.Context, userID int64) error {
	s.logger.InfoContext(ctx, "Attempting to deactivate user", slog.Int64("userID", userID))

	if err := s.repo.SetActiveStatus(ctx, userID, false); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		s.logger.ErrorContext(ctx, "Repository failed to deactivate user", slog.Any("error", err))
		return fmt.Errorf("failed to deactivate user %d: %w", userID, err)
	}

	s.logger.InfoContext(ctx, "Successfully deactivated user")
	return nil
}

func (s *userService) ReactivateUser(ctx context.Context, userID int64) error {
	s.logger.InfoContext(ctx, "Attempting to reactivate user", slog.Int64("userID", userID))

	if err := s.repo.SetActiveStatus(ctx, userID, true); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		s.logger.ErrorContext(ctx, "Repository failed to reactivate user", slog.Any("error", err))
		return fmt.Errorf("failed to reactivate user %d: %w", userID, err)
	}

	s.logger.InfoContext(ctx, "Successfully reactivated user")
	return nil
}

func (s *userService) DeleteUser(ctx context.Context, userID int64) error {
	s.logger.InfoContext(ctx, "Attempting to delete user", slog.Int64("userID", userID))

	if err := s.repo.Delete(ctx, userID); err != nil {
		if errors.Is(err, ErrNotFound) {
			s.logger.WarnContext(ctx, "User not found by repository for delete")
			return ErrNotFound
		}
		s.logger.ErrorContext(ctx, "Repository failed to delete user", slog.Any("error", err))
		return fmt.Errorf("failed to delete user %d: %w", userID, err)
	}

	s.logger.InfoContext(ctx, "Successfully deleted user")
	return nil
}

func (s *userService) Authenticate(ctx context.Context, username, password string) (*User, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	s.logger.InfoContext(ctx, "Authenticating user", slog.String("username", username))

	u, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.logger.WarnContext(ctx, "Authentication failed: unknown username", slog.String("username", username))
			return nil, apperrors.ErrUnauthorized
		}
		s.logger.ErrorContext(ctx, "Repository error during authentication", slog.Any("error", err))
		return nil, fmt.Errorf("failed to authenticate user %s: %w", username, err)
	}

	if !u.Active {
		s.logger.WarnContext(ctx, "Authentication failed: account inactive", slog.String("username", username))
		return nil, apperrors.ErrUnauthorized
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		s.logger.WarnContext(ctx, "Authentication failed: bad password", slog.String("username", username))
		return nil, apperrors.ErrUnauthorized
	}

	s.logger.InfoContext(ctx, "Authentication succeeded", slog.Int64("userID", u.UserID))
	return u, nil
}
