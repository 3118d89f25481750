package expense

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"microfin-office/internal/event"
)

var logger = slog.New(slog.NewTextHandler(os.Stdout, nil))

type MockRepository struct {
	mock.Mock
}

func (_m *MockRepository) Save(ctx context.Context, exp *Expense) error {
	ret := _m.Called(ctx, exp)
	return ret.Error(0)
}

func (_m *MockRepository) FindByID(ctx context.Context, expenseID int64) (*Expense, error) {
	ret := _m.Called(ctx, expenseID)

	var r0 *Expense
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*Expense)
	}
	return r0, ret.Error(1)
}

func (_m *MockRepository) FindAll(ctx context.Context, filter ListFilter) ([]*Expense, error) {
	ret := _m.Called(ctx, filter)

	var r0 []*Expense
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]*Expense)
	}
	return r0, ret.Error(1)
}

func (_m *MockRepository) TotalByCategory(ctx context.Context, filter ListFilter) ([]CategoryTotal, error) {
	ret := _m.Called(ctx, filter)

	var r0 []CategoryTotal
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]CategoryTotal)
	}
	return r0, ret.Error(1)
}

func (_m *MockRepository) Delete(ctx context.Context, expenseID int64) error {
	ret := _m.Called(ctx, expenseID)
	return ret.Error(0)
}

func newTestService(repo *MockRepository) Service {
	return NewService(repo, event.NoopPublisher{}, logger)
}

func TestRecordExpenseSuccess(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo)
	ctx := context.Background()

	repo.On("Save", ctx, mock.AnythingOfType("*expense.Expense")).Return(nil)

	spentAt := time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC)
	exp, err := svc.RecordExpense(ctx, 2, "rent", 1500, "March office rent", spentAt, "manager1")

	assert.NoError(t, err)
	assert.NotNil(t, exp)
	assert.Equal(t, int64(2), exp.BranchID)
	assert.Equal(t, "rent", exp.Category)
	assert.Equal(t, spentAt, exp.SpentAt)
	repo.AssertExpectations(t)
}

func TestRecordExpenseEmptyCategory(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo)

	exp, err := svc.RecordExpense(context.Background(), 2, "  ", 1500, "", time.Now(), "manager1")

	assert.Nil(t, exp)
	assert.Error(t, err)
	repo.AssertNotCalled(t, "Save")
}

func TestRecordExpenseNonPositiveAmount(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo)

	exp, err := svc.RecordExpense(context.Background(), 2, "transport", -5, "", time.Now(), "manager1")

	assert.Nil(t, exp)
	assert.Error(t, err)
	repo.AssertNotCalled(t, "Save")
}

func TestRecordExpenseSaveFails(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo)
	ctx := context.Background()

	repo.On("Save", ctx, mock.AnythingOfType("*expense.Expense")).Return(errors.New("db down"))

	exp, err := svc.RecordExpense(ctx, 2, "rent", 1500, "", time.Now(), "manager1")

	assert.Nil(t, exp)
	assert.ErrorContains(t, err, "failed to save expense")
}

func TestGetExpenseNotFound(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo)
	ctx := context.Background()

	repo.On("FindByID", ctx, int64(9)).Return(nil, ErrNotFound)

	exp, err := svc.GetExpense(ctx, 9)

	assert.Nil(t, exp)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListExpensesInvalidRange(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo)

	from := time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	expenses, err := svc.ListExpenses(context.Background(), ListFilter{From: from, To: to})

	assert.Nil(t, expenses)
	assert.Error(t, err)
	repo.AssertNotCalled(t, "FindAll")
}

func TestListExpensesByBranch(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo)
	ctx := context.Background()

	branchID := int64(2)
	filter := ListFilter{BranchID: &branchID}
	expected := []*Expense{{ExpenseID: 1, BranchID: branchID, Category: "rent", Amount: 1500}}
	repo.On("FindAll", ctx, filter).Return(expected, nil)

	expenses, err := svc.ListExpenses(ctx, filter)

	assert.NoError(t, err)
	assert.Equal(t, expected, expenses)
	repo.AssertExpectations(t)
}

func TestCategoryTotals(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo)
	ctx := context.Background()

	branchID := int64(2)
	filter := ListFilter{BranchID: &branchID}
	expected := []CategoryTotal{{Category: "rent", Total: 4500}, {Category: "transport", Total: 320}}
	repo.On("TotalByCategory", ctx, filter).Return(expected, nil)

	totals, err := svc.CategoryTotals(ctx, filter)

	assert.NoError(t, err)
	assert.Equal(t, expected, totals)
	repo.AssertExpectations(t)
}

func TestDeleteExpenseNotFound(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo)
	ctx := context.Background()

	repo.On("Delete", ctx, int64(4)).Return(ErrNotFound)

	err := svc.DeleteExpense(ctx, 4)

	assert.ErrorIs(t, err, ErrNotFound)
}
