package member

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"microfin-office/internal/event"
)

var logger = slog.New(slog.NewTextHandler(os.Stdout, nil))

type MockRepository struct {
	mock.Mock
}

func (_m *MockRepository) Save(ctx context.Context, member *Member) error {
	ret := _m.Called(ctx, member)
	return ret.Error(0)
}

func (_m *MockRepository) FindByID(ctx context.Context, memberID int64) (*Member, error) {
	ret := _m.Called(ctx, memberID)

	var r0 *Member
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*Member)
	}
	return r0, ret.Error(1)
}

func (_m *MockRepository) FindByLoanID(ctx context.Context, loanID int64) (*Member, error) {
	ret := _m.Called(ctx, loanID)

	var r0 *Member
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*Member)
	}
	return r0, ret.Error(1)
}

func (_m *MockRepository) FindAll(ctx context.Context, filter ListFilter) ([]*Member, error) {
	ret := _m.Called(ctx, filter)

	var r0 []*Member
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]*Member)
	}
	return r0, ret.Error(1)
}

func (_m *MockRepository) SetOverdueStanding(ctx context.Context, memberID int64, overdue bool) error {
	ret := _m.Called(ctx, memberID, overdue)
	return ret.Error(0)
}

func (_m *MockRepository) SetActiveStatus(ctx context.Context, memberID int64, isActive bool) error {
	ret := _m.Called(ctx, memberID, isActive)
	return ret.Error(0)
}

func newTestService(repo *MockRepository) Service {
	return NewService(repo, event.NoopPublisher{}, logger)
}

func TestCreateMemberSuccess(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo)
	ctx := context.Background()

	repo.On("Save", ctx, mock.AnythingOfType("*member.Member")).Return(nil)

	created, err := svc.CreateMember(ctx, 1, nil, "Amina Yusuf", "0712345678", "Soko St", "CM-11-22", "")

	assert.NoError(t, err)
	assert.NotNil(t, created)
	assert.Equal(t, int64(1), created.BranchID)
	assert.True(t, created.Active)
	assert.False(t, created.Overdue)
	assert.Nil(t, created.LoanID)
	repo.AssertExpectations(t)
}

func TestCreateMemberEmptyName(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo)

	created, err := svc.CreateMember(context.Background(), 1, nil, "   ", "", "", "", "")

	assert.Error(t, err)
	assert.Nil(t, created)
	repo.AssertNotCalled(t, "Save")
}

func TestCreateMemberInvalidBranch(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo)

	created, err := svc.CreateMember(context.Background(), 0, nil, "Amina", "", "", "", "")

	assert.Error(t, err)
	assert.Nil(t, created)
}

func TestAssignLoanToMemberAlreadyHasLoan(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo)
	ctx := context.Background()

	existingLoan := int64(10)
	repo.On("FindByID", ctx, int64(5)).Return(&Member{MemberID: 5, LoanID: &existingLoan}, nil)

	err := svc.AssignLoanToMember(ctx, 5, 11)

	assert.ErrorIs(t, err, ErrMemberAlreadyHasLoan)
	repo.AssertNotCalled(t, "Save")
}

func TestAssignLoanToMemberDuplicateLoan(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo)
	ctx := context.Background()

	repo.On("FindByID", ctx, int64(5)).Return(&Member{MemberID: 5}, nil)
	repo.On("FindByLoanID", ctx, int64(11)).Return(&Member{MemberID: 6}, nil)

	err := svc.AssignLoanToMember(ctx, 5, 11)

	assert.ErrorIs(t, err, ErrDuplicateLoanID)
	repo.AssertNotCalled(t, "Save")
}

func TestAssignLoanToMemberSuccess(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo)
	ctx := context.Background()

	repo.On("FindByID", ctx, int64(5)).Return(&Member{MemberID: 5}, nil)
	repo.On("FindByLoanID", ctx, int64(11)).Return(nil, ErrNotFound)
	repo.On("Save", ctx, mock.AnythingOfType("*member.Member")).Return(nil)

	err := svc.AssignLoanToMember(ctx, 5, 11)

	assert.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestDeactivateMemberWithLoan(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo)
	ctx := context.Background()

	loanID := int64(3)
	repo.On("FindByID", ctx, int64(5)).Return(&Member{MemberID: 5, Active: true, LoanID: &loanID}, nil)

	err := svc.DeactivateMember(ctx, 5)

	assert.ErrorIs(t, err, ErrCannotDeactivateActiveLoan)
	repo.AssertNotCalled(t, "SetActiveStatus")
}

func TestDeactivateMemberSuccess(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo)
	ctx := context.Background()

	repo.On("FindByID", ctx, int64(5)).Return(&Member{MemberID: 5, Active: true}, nil)
	repo.On("SetActiveStatus", ctx, int64(5), false).Return(nil)

	err := svc.DeactivateMember(ctx, 5)

	assert.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestUpdateMemberContactNothingToUpdate(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo)

	err := svc.UpdateMemberContact(context.Background(), 5, " ", " ")

	assert.Error(t, err)
	repo.AssertNotCalled(t, "FindByID")
}

func TestFindMemberByLoanNotFound(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo)
	ctx := context.Background()

	repo.On("FindByLoanID", ctx, int64(99)).Return(nil, ErrNotFound)

	got, err := svc.FindMemberByLoan(ctx, 99)

	assert.Nil(t, got)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateOverdueStandingSuccess(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo)
	ctx := context.Background()

	repo.On("SetOverdueStanding", ctx, int64(5), true).Return(nil)

	err := svc.UpdateOverdueStanding(ctx, 5, true)

	assert.NoError(t, err)
	repo.AssertExpectations(t)
}
