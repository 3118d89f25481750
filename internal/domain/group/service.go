package group

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"microfin-office/internal/domain/member"
)

type Service interface {
	CreateGroup(ctx context.Context, branchID int64, name, meetingDay string) (*Group, error)
	GetGroup(ctx context.Context, groupID int64) (*Group, error)
	ListGroups(ctx context.Context, branchID *int64) ([]*Group, error)
	RenameGroup(ctx context.Context, groupID int64, name string) error
	GetGroupRoster(ctx context.Context, groupID int64) ([]*member.Member, error)
}

var _ Service = (*groupService)(nil)

type groupService struct {
	repo       Repository
	memberRepo member.Repository
	logger     *slog.Logger
}

func NewService(repo Repository, memberRepo member.Repository, logger *slog.Logger) Service {
	if repo == nil || memberRepo == nil {
		panic("group service dependencies cannot be nil")
	}
	return &groupService{
		repo:       repo,
		memberRepo: memberRepo,
		logger:     logger.With(slog.String("component", "groupService")),
	}
}

func (s *groupService) CreateGroup(ctx context.Context, branchID int64, name, meetingDay string) (*Group, error) {
	s.logger.InfoContext(ctx, "Attempting to create new group", slog.Int64("branchID", branchID))

	name = strings.TrimSpace(name)
	if name == "" {
		s.logger.WarnContext(ctx, "Validation failed: name is empty")
		return nil, errors.New("group name cannot be empty")
	}
	if branchID <= 0 {
		return nil, errors.New("branch ID must be positive")
	}

	group := NewGroup(branchID, name, strings.TrimSpace(meetingDay))
	if err := s.repo.Save(ctx, group); err != nil {
		s.logger.ErrorContext(ctx, "Repository failed to save new group", slog.Any("error", err))
		return nil, fmt.Errorf("failed to save new group: %w", err)
	}

	s.logger.InfoContext(ctx, "Successfully created new group", slog.Int64("groupID", group.GroupID))
	return group, nil
}

func (s *groupService) GetGroup(ctx context.Context, groupID int64) (*Group, error) {
	group, err := s.repo.FindByID(ctx, groupID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.logger.WarnContext(ctx, "Group not found by repository", slog.Int64("groupID", groupID))
			return nil, ErrNotFound
		}
		s.logger.ErrorContext(ctx, "Repository error finding group", slog.Any("error", err))
		return nil, fmt.Errorf("failed to get group %d: %w", groupID, err)
	}
	return group, nil
}

func (s *groupService) ListGroups(ctx context.Context, branchID *int64) ([]*Group, error) {
	groups, err := s.repo.FindAll(ctx, branchID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Repository error listing groups", slog.Any("error", err))
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	s.logger.InfoContext(ctx, "Successfully retrieved groups", slog.Int("count", len(groups)))
	return groups, nil
}

func (s *groupService) RenameGroup(ctx context.Context, groupID int64, name string) error {
	s.logger.InfoContext(ctx, "Attempting to rename group", slog.Int64("groupID", groupID))

	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("group name cannot be empty")
	}

	group, err := s.GetGroup(ctx, groupID)
	if err != nil {
		return err
	}

	group.Name = name
	group.UpdatedAt = time.Now()
	if err := s.repo.Save(ctx, group); err != nil {
		s.logger.ErrorContext(ctx, "Repository failed to save renamed group", slog.Any("error", err))
		return fmt.Errorf("failed to rename group %d: %w", groupID, err)
	}

	s.logger.InfoContext(ctx, "Successfully renamed group")
	return nil
}

func (s *groupService) GetGroupRoster(ctx context.Context, groupID int64) ([]*member.Member, error) {
	s.logger.InfoContext(ctx, "Attempting to get group roster", slog.Int64("groupID", groupID))

	if _, err := s.GetGroup(ctx, groupID); err != nil {
		return nil, err
	}

	roster, err := s.memberRepo.FindAll(ctx, member.ListFilter{GroupID: &groupID})
	if err != nil {
		s.logger.ErrorContext(ctx, "Repository error listing group members", slog.Any("error", err))
		return nil, fmt.Errorf("failed to list members of group %d: %w", groupID, err)
	}

	s.logger.InfoContext(ctx, "Successfully retrieved group roster", slog.Int("count", len(roster)))
	return roster, nil
}
