package member

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"microfin-office/internal/event"
	"microfin-office/internal/infrastructure/monitoring"
)

const (
	inputValidationPassed = "Input validation passed"
	memberNotFound        = "Member not found by repository"
)

type Service interface {
	CreateMember(ctx context.Context, branchID int64, groupID *int64, name, phone, address, nationalID, photoURL string) (*Member, error)
	GetMember(ctx context.Context, memberID int64) (*Member, error)
	ListMembers(ctx context.Context, filter ListFilter) ([]*Member, error)
	UpdateMemberContact(ctx context.Context, memberID int64, phone, address string) error
	AssignMemberToGroup(ctx context.Context, memberID, groupID int64) error
	AssignLoanToMember(ctx context.Context, memberID, loanID int64) error
	UpdateOverdueStanding(ctx context.Context, memberID int64, overdue bool) error
	DeactivateMember(ctx context.Context, memberID int64) error
	ReactivateMember(ctx context.Context, memberID int64) error
	FindMemberByLoan(ctx context.Context, loanID int64) (*Member, error)
}

var _ Service = (*memberService)(nil)

type memberService struct {
	repo   Repository
	pub    event.Publisher
	logger *slog.Logger
}

func NewService(repo Repository, pub event.Publisher, logger *slog.Logger) Service {
	if repo == nil {
		panic("member repository cannot be nil")
	}
	if pub == nil {
		pub = event.NoopPublisher{}
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
		logger.Warn("Warning: No logger provided to member NewService, using default stderr handler")
	}

	return &memberService{
		repo:   repo,
		pub:    pub,
		logger: logger.With(slog.String("component", "memberService")),
	}
}

func newMemberEventPayload(m *Member) event.MemberEventPayload {
	if m == nil {
		return event.MemberEventPayload{}
	}
	return event.MemberEventPayload{
		MemberID: m.MemberID,
		BranchID: m.BranchID,
		GroupID:  m.GroupID,
		Name:     m.Name,
		Active:   m.Active,
		Overdue:  m.Overdue,
	}
}

func (s *memberService) publishMemberUpdated(ctx context.Context, m *Member) {
	if m == nil {
		s.logger.ErrorContext(ctx, "Attempted to publish update event for nil member")
		return
	}
	evt := event.MemberUpdatedEvent{
		Timestamp: time.Now(),
		Payload:   newMemberEventPayload(m),
	}
	if err := s.pub.PublishMemberUpdated(ctx, evt); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish member update event", slog.Any("error", err))
	}
}

func (s *memberService) CreateMember(ctx context.Context, branchID int64, groupID *int64, name, phone, address, nationalID, photoURL string) (*Member, error) {
	s.logger.InfoContext(ctx, "Attempting to create new member", slog.Int64("branchID", branchID))

	name = strings.TrimSpace(name)
	nationalID = strings.TrimSpace(nationalID)
	if name == "" {
		s.logger.WarnContext(ctx, "Validation failed: name is empty")
		return nil, errors.New("member name cannot be empty")
	}
	if branchID <= 0 {
		s.logger.WarnContext(ctx, "Validation failed: branchID is not positive")
		return nil, errors.New("branch ID must be positive")
	}
	s.logger.InfoContext(ctx, inputValidationPassed)

	member := NewMember(branchID, groupID, name, strings.TrimSpace(phone), strings.TrimSpace(address), nationalID, strings.TrimSpace(photoURL))

	s.logger.InfoContext(ctx, "Calling repository Save")
	if err := s.repo.Save(ctx, member); err != nil {
		s.logger.ErrorContext(ctx, "Repository failed to save new member", slog.Any("error", err))
		return nil, fmt.Errorf("failed to save new member: %w", err)
	}
	monitoring.RecordMemberCreated()

	createdEvent := event.MemberCreatedEvent{
		Timestamp: time.Now(),
		Payload:   newMemberEventPayload(member),
	}
	if pubErr := s.pub.PublishMemberCreated(ctx, createdEvent); pubErr != nil {
		s.logger.ErrorContext(ctx, "Member created, but FAILED to publish creation event", slog.Any("error", pubErr))
	}

	s.logger.InfoContext(ctx, "Successfully created new member", slog.Int64("memberID", member.MemberID))
	return member, nil
}

func (s *memberService) GetMember(ctx context.Context, memberID int64) (*Member, error) {
	s.logger.InfoContext(ctx, "Attempting to get member by ID", slog.Int64("memberID", memberID))

	member, err := s.repo.FindByID(ctx, memberID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.logger.WarnContext(ctx, memberNotFound)
			return nil, ErrNotFound
		}
		s.logger.ErrorContext(ctx, "Repository error finding member", slog.Any("error", err))
		return nil, fmt.Errorf("failed to get member %d: %w", memberID, err)
	}

	return member, nil
}

func (s *memberService) ListMembers(ctx context.Context, filter ListFilter) ([]*Member, error) {
	s.logger.InfoContext(ctx, "Attempting to list members", slog.Bool("activeOnly", filter.ActiveOnly))

	members, err := s.repo.FindAll(ctx, filter)
	if err != nil {
		s.logger.ErrorContext(ctx, "Repository error listing members", slog.Any("error", err))
		return nil, fmt.Errorf("failed to list members: %w", err)
	}

	s.logger.InfoContext(ctx, "Successfully retrieved members", slog.Int("count", len(members)))
	return members, nil
}

func (s *memberService) UpdateMemberContact(ctx context.Context, memberID int64, phone, address string) error {
	s.logger.InfoContext(ctx, "Attempting to update member contact details", slog.Int64("memberID", memberID))

	phone = strings.TrimSpace(phone)
	address = strings.TrimSpace(address)
	if phone == "" && address == "" {
		s.logger.WarnContext(ctx, "Validation failed: nothing to update")
		return errors.New("phone and address cannot both be empty")
	}
	s.logger.InfoContext(ctx, inputValidationPassed)

	member, err := s.repo.FindByID(ctx, memberID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.logger.WarnContext(ctx, memberNotFound)
			return ErrNotFound
		}
		s.logger.ErrorContext(ctx, "Repository error finding member for update", slog.Any("error", err))
		return fmt.Errorf("failed to get member %d for update: %w", memberID, err)
	}

	if phone != "" {
		member.Phone = phone
	}
	if address != "" {
		member.Address = address
	}
	member.UpdatedAt = time.Now()

	if err := s.repo.Save(ctx, member); err != nil {
		s.logger.ErrorContext(ctx, "Repository failed to save member contact update", slog.Any("error", err))
		return fmt.Errorf("failed to update member %d: %w", memberID, err)
	}

	s.publishMemberUpdated(ctx, member)
	s.logger.InfoContext(ctx, "Successfully updated member contact details")
	return nil
}

func (s *memberService) AssignMemberToGroup(ctx context.Context, memberID, groupID int64) error {
	s.logger.InfoContext(ctx, "Attempting to assign member to group",
		slog.Int64("memberID", memberID), slog.Int64("groupID", groupID))

	if groupID <= 0 {
		return errors.New("group ID must be positive")
	}

	member, err := s.repo.FindByID(ctx, memberID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.logger.WarnContext(ctx, memberNotFound)
			return ErrNotFound
		}
		return fmt.Errorf("failed to get member %d: %w", memberID, err)
	}

	member.AssignGroup(groupID)
	if err := s.repo.Save(ctx, member); err != nil {
		s.logger.ErrorContext(ctx, "Repository failed to save group assignment", slog.Any("error", err))
		return fmt.Errorf("failed to assign member %d to group %d: %w", memberID, groupID, err)
	}

	s.publishMemberUpdated(ctx, member)
	s.logger.InfoContext(ctx, "Successfully assigned member to group")
	return nil
}

func (s *memberService) AssignLoanToMember(ctx context.Context, memberID, loanID int64) error {
	s.logger.InfoContext(ctx, "Attempting to assign loan to member",
		slog.Int64("memberID", memberID), slog.Int64("loanID", loanID))

	if loanID <= 0 {
		return errors.New("loan ID must be positive")
	}

	member, err := s.repo.FindByID(ctx, memberID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.logger.WarnContext(ctx, memberNotFound)
			return ErrNotFound
		}
		return fmt.Errorf("failed to get member %d: %w", memberID, err)
	}

	if member.LoanID != nil && *member.LoanID != loanID {
		s.logger.WarnContext(ctx, "Member already has an assigned loan", slog.Int64("existingLoanID", *member.LoanID))
		return fmt.Errorf("%w (existing LoanID: %d)", ErrMemberAlreadyHasLoan, *member.LoanID)
	}

	existing, err := s.repo.FindByLoanID(ctx, loanID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("failed to check loan assignment %d: %w", loanID, err)
	}
	if existing != nil && existing.MemberID != memberID {
		s.logger.WarnContext(ctx, "Loan already assigned to another member", slog.Int64("otherMemberID", existing.MemberID))
		return ErrDuplicateLoanID
	}

	member.AssignLoan(loanID)
	if err := s.repo.Save(ctx, member); err != nil {
		s.logger.ErrorContext(ctx, "Repository failed to save loan assignment", slog.Any("error", err))
		return fmt.Errorf("failed to assign loan %d to member %d: %w", loanID, memberID, err)
	}

	s.publishMemberUpdated(ctx, member)
	s.logger.InfoContext(ctx, "Successfully assigned loan to member")
	return nil
}

func (s *memberService) UpdateOverdueStanding(ctx context.Context, memberID int64, overdue bool) error {
	s.logger.InfoContext(ctx, "Attempting to update member overdue standing",
		slog.Int64("memberID", memberID), slog.Bool("overdue", overdue))

	if err := s.repo.SetOverdueStanding(ctx, memberID, overdue); err != nil {
		if errors.Is(err, ErrNotFound) {
			s.logger.WarnContext(ctx, memberNotFound)
			return ErrNotFound
		}
		s.logger.ErrorContext(ctx, "Repository failed to update overdue standing", slog.Any("error", err))
		return fmt.Errorf("failed to update overdue standing for member %d: %w", memberID, err)
	}

	s.logger.InfoContext(ctx, "Successfully updated member overdue standing")
	return nil
}

func (s *memberService) DeactivateMember(ctx context.Context, memberID int64) error {
	s.logger.InfoContext(ctx, "Attempting to deactivate member", slog.Int64("memberID", memberID))

	member, err := s.repo.FindByID(ctx, memberID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.logger.WarnContext(ctx, memberNotFound)
			return ErrNotFound
		}
		return fmt.Errorf("failed to get member %d: %w", memberID, err)
	}

	if member.LoanID != nil {
		s.logger.WarnContext(ctx, "Member has an assigned loan, refusing to deactivate", slog.Int64("loanID", *member.LoanID))
		return ErrCannotDeactivateActiveLoan
	}

	if err := s.repo.SetActiveStatus(ctx, memberID, false); err != nil {
		s.logger.ErrorContext(ctx, "Repository failed to deactivate member", slog.Any("error", err))
		return fmt.Errorf("failed to deactivate member %d: %w", memberID, err)
	}

	member.Deactivate()
	s.publishMemberUpdated(ctx, member)
	s.logger.InfoContext(ctx, "Successfully deactivated member")
	return nil
}

func (s *memberService) ReactivateMember(ctx context.Context, memberID int64) error {
	s.logger.InfoContext(ctx, "Attempting to reactivate member", slog.Int64("memberID", memberID))

	if err := s.repo.SetActiveStatus(ctx, memberID, true); err != nil {
		if errors.Is(err, ErrNotFound) {
			s.logger.WarnContext(ctx, memberNotFound)
			return ErrNotFound
		}
		s.logger.ErrorContext(ctx, "Repository failed to reactivate member", slog.Any("error", err))
		return fmt.Errorf("failed to reactivate member %d: %w", memberID, err)
	}

	s.logger.InfoContext(ctx, "Successfully reactivated member")
	return nil
}

func (s *memberService) FindMemberByLoan(ctx context.Context, loanID int64) (*Member, error) {
	s.logger.InfoContext(ctx, "Attempting to find member by loan", slog.Int64("loanID", loanID))

	member, err := s.repo.FindByLoanID(ctx, loanID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.logger.WarnContext(ctx, memberNotFound)
			return nil, ErrNotFound
		}
		s.logger.ErrorContext(ctx, "Repository error finding member by loan", slog.Any("error", err))
		return nil, fmt.Errorf("failed to find member by loan %d: %w", loanID, err)
	}

	return member, nil
}
