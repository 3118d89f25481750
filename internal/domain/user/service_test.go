package user

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"golang.org/x/crypto/bcrypt"

	"microfin-office/internal/pkg/apperrors"
)

var logger = slog.New(slog.NewTextHandler(os.Stdout, nil))

type MockRepository struct {
	mock.Mock
}

func (_m *MockRepository) Save(ctx context.Context, u *User) error {
	ret := _m.Called(ctx, u)
	return ret.Error(0)
}

func (_m *MockRepository) FindByID(ctx context.Context, userID int64) (*User, error) {
	ret := _m.Called(ctx, userID)

	var r0 *User
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*User)
	}
	return r0, ret.Error(1)
}

func (_m *MockRepository) FindByUsername(ctx context.Context, username string) (*User, error) {
	ret := _m.Called(ctx, username)

	var r0 *User
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*User)
	}
	return r0, ret.Error(1)
}

func (_m *MockRepository) FindAll(ctx context.Context, activeOnly bool) ([]*User, error) {
	ret := _m.Called(ctx, activeOnly)

	var r0 []*User
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]*User)
	}
	return r0, ret.Error(1)
}

func (_m *MockRepository) SetActiveStatus(ctx context.Context, userID int64, active bool) error {
	ret := _m.Called(ctx, userID, active)
	return ret.Error(0)
}

func (_m *MockRepository) Delete(ctx context.Context, userID int64) error {
	ret := _m.Called(ctx, userID)
	return ret.Error(0)
}

func newTestService(repo *MockRepository) Service {
	return NewService(repo, logger)
}

func TestCreateUserSuccess(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo)
	ctx := context.Background()

	branchID := int64(2)
	repo.On("FindByUsername", ctx, "jwafula").Return(nil, ErrNotFound)
	repo.On("Save", ctx, mock.AnythingOfType("*user.User")).Return(nil)

	created, err := svc.CreateUser(ctx, "JWafula", "s3cret-pass", "Joan Wafula", RoleOfficer, &branchID)

	assert.NoError(t, err)
	assert.NotNil(t, created)
	assert.Equal(t, "jwafula", created.Username)
	assert.Equal(t, RoleOfficer, created.Role)
	assert.True(t, created.Active)
	assert.NotEqual(t, "s3cret-pass", created.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(created.PasswordHash), []byte("s3cret-pass")))
	repo.AssertExpectations(t)
}

func TestCreateUserShortPassword(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo)

	created, err := svc.CreateUser(context.Background(), "jwafula", "short", "Joan Wafula", RoleOfficer, nil)

	assert.Nil(t, created)
	assert.Error(t, err)
	repo.AssertNotCalled(t, "Save")
}

func TestCreateUserUnknownRole(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo)

	created, err := svc.CreateUser(context.Background(), "jwafula", "s3cret-pass", "Joan Wafula", Role("superuser"), nil)

	assert.Nil(t, created)
	assert.Error(t, err)
	repo.AssertNotCalled(t, "Save")
}

func TestCreateUserNonAdminRequiresBranch(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo)

	created, err := svc.CreateUser(context.Background(), "jwafula", "s3cret-pass", "Joan Wafula", RoleBranchManager, nil)

	assert.Nil(t, created)
	assert.Error(t, err)
	repo.AssertNotCalled(t, "Save")
}

func TestCreateUserAdminWithoutBranch(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo)
	ctx := context.Background()

	repo.On("FindByUsername", ctx, "admin").Return(nil, ErrNotFound)
	repo.On("Save", ctx, mock.AnythingOfType("*user.User")).Return(nil)

	created, err := svc.CreateUser(ctx, "admin", "s3cret-pass", "Head Office", RoleAdmin, nil)

	assert.NoError(t, err)
	assert.Nil(t, created.BranchID)
}

func TestCreateUserDuplicateUsername(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo)
	ctx := context.Background()

	branchID := int64(2)
	repo.On("FindByUsername", ctx, "jwafula").Return(&User{UserID: 5, Username: "jwafula"}, nil)

	created, err := svc.CreateUser(ctx, "jwafula", "s3cret-pass", "Joan Wafula", RoleOfficer, &branchID)

	assert.Nil(t, created)
	assert.ErrorIs(t, err, ErrDuplicateUsername)
	repo.AssertNotCalled(t, "Save")
}

func TestAuthenticateSuccess(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo)
	ctx := context.Background()

	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret-pass"), bcrypt.MinCost)
	assert.NoError(t, err)
	repo.On("FindByUsername", ctx, "jwafula").
		Return(&User{UserID: 5, Username: "jwafula", PasswordHash: string(hash), Active: true}, nil)

	u, err := svc.Authenticate(ctx, "JWafula", "s3cret-pass")

	assert.NoError(t, err)
	assert.Equal(t, int64(5), u.UserID)
}

func TestAuthenticateBadPassword(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo)
	ctx := context.Background()

	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret-pass"), bcrypt.MinCost)
	assert.NoError(t, err)
	repo.On("FindByUsername", ctx, "jwafula").
		Return(&User{UserID: 5, Username: "jwafula", PasswordHash: string(hash), Active: true}, nil)

	u, err := svc.Authenticate(ctx, "jwafula", "wrong-pass")

	assert.Nil(t, u)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestAuthenticateUnknownUsername(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo)
	ctx := context.Background()

	repo.On("FindByUsername", ctx, "ghost").Return(nil, ErrNotFound)

	u, err := svc.Authenticate(ctx, "ghost", "whatever1")

	assert.Nil(t, u)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestAuthenticateInactiveAccount(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo)
	ctx := context.Background()

	repo.On("FindByUsername", ctx, "jwafula").
		Return(&User{UserID: 5, Username: "jwafula", PasswordHash: "x", Active: false}, nil)

	u, err := svc.Authenticate(ctx, "jwafula", "s3cret-pass")

	assert.Nil(t, u)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestChangePassword(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo)
	ctx := context.Background()

	existing := &User{UserID: 5, Username: "jwafula", PasswordHash: "old", Active: true}
	repo.On("FindByID", ctx, int64(5)).Return(existing, nil)
	repo.On("Save", ctx, existing).Return(nil)

	err := svc.ChangePassword(ctx, 5, "new-s3cret-pass")

	assert.NoError(t, err)
	assert.NotEqual(t, "old", existing.PasswordHash)
	repo.AssertExpectations(t)
}

func TestDeleteUserNotFound(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo)
	ctx := context.Background()

	repo.On("Delete", ctx, int64(9)).Return(ErrNotFound)

	err := svc.DeleteUser(ctx, 9)

	assert.ErrorIs(t, err, ErrNotFound)
}
