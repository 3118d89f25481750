package loan

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"microfin-office/internal/domain/member"
	"microfin-office/internal/event"
	"microfin-office/internal/pkg/apperrors"
)

var logger = slog.New(slog.NewTextHandler(os.Stdout, nil))

type MockRepository struct {
	mock.Mock
}

func (_m *MockRepository) CreateLoan(ctx context.Context, newLoan *Loan, schedule []Installment) (*Loan, error) {
	ret := _m.Called(ctx, newLoan, schedule)

	var r0 *Loan
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*Loan)
	}
	return r0, ret.Error(1)
}

func (_m *MockRepository) GetLoanByID(ctx context.Context, loanID int64) (*Loan, error) {
	ret := _m.Called(ctx, loanID)

	var r0 *Loan
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*Loan)
	}
	return r0, ret.Error(1)
}

func (_m *MockRepository) GetScheduleByLoanID(ctx context.Context, loanID int64) ([]Installment, error) {
	ret := _m.Called(ctx, loanID)

	var r0 []Installment
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]Installment)
	}
	return r0, ret.Error(1)
}

func (_m *MockRepository) GetUnpaidInstallments(ctx context.Context, loanID int64) ([]Installment, error) {
	ret := _m.Called(ctx, loanID)

	var r0 []Installment
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]Installment)
	}
	return r0, ret.Error(1)
}

func (_m *MockRepository) GetPastDueUnpaidInstallments(ctx context.Context, loanID int64, asOf time.Time) ([]Installment, error) {
	ret := _m.Called(ctx, loanID, asOf)

	var r0 []Installment
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]Installment)
	}
	return r0, ret.Error(1)
}

func (_m *MockRepository) FindOldestPendingInstallmentForUpdate(ctx context.Context, tx pgx.Tx, loanID int64) (*Installment, error) {
	ret := _m.Called(ctx, tx, loanID)

	var r0 *Installment
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*Installment)
	}
	return r0, ret.Error(1)
}

func (_m *MockRepository) UpdateInstallmentInTx(ctx context.Context, tx pgx.Tx, entry *Installment) error {
	ret := _m.Called(ctx, tx, entry)
	return ret.Error(0)
}

func (_m *MockRepository) UpdateLoanStatusInTx(ctx context.Context, tx pgx.Tx, loanID int64, status LoanStatus) error {
	ret := _m.Called(ctx, tx, loanID, status)
	return ret.Error(0)
}

func (_m *MockRepository) CheckIfAllPaymentsMadeInTx(ctx context.Context, tx pgx.Tx, loanID int64) (bool, error) {
	ret := _m.Called(ctx, tx, loanID)
	return ret.Bool(0), ret.Error(1)
}

func (_m *MockRepository) ClearMemberLoanLinkInTx(ctx context.Context, tx pgx.Tx, loanID int64) error {
	ret := _m.Called(ctx, tx, loanID)
	return ret.Error(0)
}

func (_m *MockRepository) InsertPaymentInTx(ctx context.Context, tx pgx.Tx, payment *Payment) (*Payment, error) {
	ret := _m.Called(ctx, tx, payment)

	var r0 *Payment
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*Payment)
	}
	return r0, ret.Error(1)
}

func (_m *MockRepository) ListPayments(ctx context.Context, loanID int64) ([]Payment, error) {
	ret := _m.Called(ctx, loanID)

	var r0 []Payment
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]Payment)
	}
	return r0, ret.Error(1)
}

func (_m *MockRepository) GetTotalOutstandingAmount(ctx context.Context, loanID int64) (float64, error) {
	ret := _m.Called(ctx, loanID)
	return ret.Get(0).(float64), ret.Error(1)
}

func (_m *MockRepository) GetAllActiveLoanIDs(ctx context.Context) ([]int64, error) {
	ret := _m.Called(ctx)

	var r0 []int64
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]int64)
	}
	return r0, ret.Error(1)
}

func (_m *MockRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	ret := _m.Called(ctx)

	var r0 pgx.Tx
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(pgx.Tx)
	}
	return r0, ret.Error(1)
}

func (_m *MockRepository) CommitTx(ctx context.Context, tx pgx.Tx) error {
	ret := _m.Called(ctx, tx)
	return ret.Error(0)
}

func (_m *MockRepository) RollbackTx(ctx context.Context, tx pgx.Tx) error {
	ret := _m.Called(ctx, tx)
	return ret.Error(0)
}

type MockMemberService struct {
	mock.Mock
}

func (_m *MockMemberService) CreateMember(ctx context.Context, branchID int64, groupID *int64, name, phone, address, nationalID, photoURL string) (*member.Member, error) {
	ret := _m.Called(ctx, branchID, groupID, name, phone, address, nationalID, photoURL)

	var r0 *member.Member
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*member.Member)
	}
	return r0, ret.Error(1)
}

func (_m *MockMemberService) GetMember(ctx context.Context, memberID int64) (*member.Member, error) {
	ret := _m.Called(ctx, memberID)

	var r0 *member.Member
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*member.Member)
	}
	return r0, ret.Error(1)
}

func (_m *MockMemberService) ListMembers(ctx context.Context, filter member.ListFilter) ([]*member.Member, error) {
	ret := _m.Called(ctx, filter)

	var r0 []*member.Member
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]*member.Member)
	}
	return r0, ret.Error(1)
}

func (_m *MockMemberService) UpdateMemberContact(ctx context.Context, memberID int64, phone, address string) error {
	ret := _m.Called(ctx, memberID, phone, address)
	return ret.Error(0)
}

func (_m *MockMemberService) AssignMemberToGroup(ctx context.Context, memberID, groupID int64) error {
	ret := _m.Called(ctx, memberID, groupID)
	return ret.Error(0)
}

func (_m *MockMemberService) AssignLoanToMember(ctx context.Context, memberID, loanID int64) error {
	ret := _m.Called(ctx, memberID, loanID)
	return ret.Error(0)
}

func (_m *MockMemberService) UpdateOverdueStanding(ctx context.Context, memberID int64, overdue bool) error {
	ret := _m.Called(ctx, memberID, overdue)
	return ret.Error(0)
}

func (_m *MockMemberService) DeactivateMember(ctx context.Context, memberID int64) error {
	ret := _m.Called(ctx, memberID)
	return ret.Error(0)
}

func (_m *MockMemberService) ReactivateMember(ctx context.Context, memberID int64) error {
	ret := _m.Called(ctx, memberID)
	return ret.Error(0)
}

func (_m *MockMemberService) FindMemberByLoan(ctx context.Context, loanID int64) (*member.Member, error) {
	ret := _m.Called(ctx, loanID)

	var r0 *member.Member
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*member.Member)
	}
	return r0, ret.Error(1)
}

func newTestService(repo *MockRepository, ms *MockMemberService) Service {
	return NewService(repo, ms, event.NoopPublisher{}, Policy{OverdueThreshold: 1}, logger)
}

func TestIssueLoan(t *testing.T) {
	mockRepo := new(MockRepository)
	mockMemberService := new(MockMemberService)
	service := newTestService(mockRepo, mockMemberService)

	ctx := context.Background()
	principal := Money(1000)
	termWeeks := 52
	annualInterestRate := Money(0.05)
	startDate := time.Now()
	memberID := int64(1)

	created := &Loan{ID: 9, MemberID: memberID}
	mockMemberService.On("GetMember", ctx, memberID).
		Return(&member.Member{MemberID: memberID, BranchID: 2, Active: true}, nil)
	mockRepo.On("CreateLoan", ctx, mock.Anything, mock.Anything).Return(created, nil)

	result, err := service.IssueLoan(ctx, memberID, principal, termWeeks, annualInterestRate, startDate)

	assert.NoError(t, err)
	assert.Equal(t, created, result)
	mockRepo.AssertExpectations(t)
}

func TestIssueLoanInactiveMember(t *testing.T) {
	mockRepo := new(MockRepository)
	mockMemberService := new(MockMemberService)
	service := newTestService(mockRepo, mockMemberService)

	ctx := context.Background()
	mockMemberService.On("GetMember", ctx, int64(1)).
		Return(&member.Member{MemberID: 1, Active: false}, nil)

	result, err := service.IssueLoan(ctx, 1, 1000, 52, 0.05, time.Now())

	assert.Nil(t, result)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	mockRepo.AssertNotCalled(t, "CreateLoan")
}

func TestIssueLoanMemberHasOpenLoan(t *testing.T) {
	mockRepo := new(MockRepository)
	mockMemberService := new(MockMemberService)
	service := newTestService(mockRepo, mockMemberService)

	ctx := context.Background()
	existing := int64(4)
	mockMemberService.On("GetMember", ctx, int64(1)).
		Return(&member.Member{MemberID: 1, Active: true, LoanID: &existing}, nil)
	mockRepo.On("GetLoanByID", ctx, existing).Return(&Loan{ID: existing, Status: StatusActive}, nil)
	mockRepo.On("GetScheduleByLoanID", ctx, existing).Return([]Installment{{}}, nil)

	result, err := service.IssueLoan(ctx, 1, 1000, 52, 0.05, time.Now())

	assert.Nil(t, result)
	assert.ErrorIs(t, err, member.ErrMemberAlreadyHasLoan)
	mockRepo.AssertNotCalled(t, "CreateLoan")
}

func TestIssueLoanAfterPriorLoanPaidOff(t *testing.T) {
	mockRepo := new(MockRepository)
	mockMemberService := new(MockMemberService)
	service := newTestService(mockRepo, mockMemberService)

	ctx := context.Background()
	prior := int64(4)
	created := &Loan{ID: 9, MemberID: 1}
	mockMemberService.On("GetMember", ctx, int64(1)).
		Return(&member.Member{MemberID: 1, BranchID: 2, Active: true, LoanID: &prior}, nil)
	mockRepo.On("GetLoanByID", ctx, prior).Return(&Loan{ID: prior, Status: StatusPaidOff}, nil)
	mockRepo.On("GetScheduleByLoanID", ctx, prior).Return([]Installment{{}}, nil)
	mockRepo.On("CreateLoan", ctx, mock.Anything, mock.Anything).Return(created, nil)

	result, err := service.IssueLoan(ctx, 1, 1000, 52, 0.05, time.Now())

	assert.NoError(t, err)
	assert.Equal(t, created, result)
	mockRepo.AssertExpectations(t)
}

func TestGetOutstanding(t *testing.T) {
	mockRepo := new(MockRepository)
	mockMemberService := new(MockMemberService)
	service := newTestService(mockRepo, mockMemberService)

	ctx := context.Background()
	loanID := int64(1)
	expectedOutstanding := Money(500)

	mockRepo.On("GetTotalOutstandingAmount", ctx, loanID).Return(expectedOutstanding, nil)

	result, err := service.GetOutstanding(ctx, loanID)

	assert.NoError(t, err)
	assert.Equal(t, expectedOutstanding, result)
	mockRepo.AssertExpectations(t)
}

func TestIsOverdue(t *testing.T) {
	mockRepo := new(MockRepository)
	mockMemberService := new(MockMemberService)
	service := newTestService(mockRepo, mockMemberService)

	ctx := context.Background()
	loanID := int64(1)
	pastDue := []Installment{{}}

	mockRepo.On("GetPastDueUnpaidInstallments", ctx, loanID, mock.AnythingOfType("time.Time")).Return(pastDue, nil)

	result, err := service.IsOverdue(ctx, loanID)

	assert.NoError(t, err)
	assert.True(t, result)
	mockRepo.AssertExpectations(t)
}

func TestIsOverdueBelowThreshold(t *testing.T) {
	mockRepo := new(MockRepository)
	mockMemberService := new(MockMemberService)
	service := NewService(mockRepo, mockMemberService, event.NoopPublisher{}, Policy{OverdueThreshold: 2}, logger)

	ctx := context.Background()
	mockRepo.On("GetPastDueUnpaidInstallments", ctx, int64(1), mock.AnythingOfType("time.Time")).
		Return([]Installment{{}}, nil)

	result, err := service.IsOverdue(ctx, 1)

	assert.NoError(t, err)
	assert.False(t, result)
}

func TestRecordPayment(t *testing.T) {
	type TxMock struct {
		pgx.Tx
	}
	mockRepo := new(MockRepository)
	mockMemberService := new(MockMemberService)
	service := newTestService(mockRepo, mockMemberService)

	ctx := context.Background()
	loanID := int64(1)
	amount := Money(100)
	tx := &TxMock{}
	entry := &Installment{ID: 8, DueAmount: amount}

	mockRepo.On("BeginTx", ctx).Return(tx, nil)
	mockRepo.On("FindOldestPendingInstallmentForUpdate", ctx, tx, loanID).Return(entry, nil)
	mockRepo.On("UpdateInstallmentInTx", ctx, tx, entry).Return(nil)
	mockRepo.On("InsertPaymentInTx", ctx, tx, mock.AnythingOfType("*loan.Payment")).
		Return(&Payment{ID: 3, LoanID: loanID, InstallmentID: 8, Amount: amount, ReceiptNumber: "r-1"}, nil)
	mockRepo.On("CheckIfAllPaymentsMadeInTx", ctx, tx, loanID).Return(false, nil)
	mockRepo.On("CommitTx", ctx, tx).Return(nil)

	payment, err := service.RecordPayment(ctx, loanID, amount, "teller1")

	assert.NoError(t, err)
	assert.NotNil(t, payment)
	assert.Equal(t, "r-1", payment.ReceiptNumber)
	mockRepo.AssertExpectations(t)
}

func TestRecordPaymentWrongAmount(t *testing.T) {
	type TxMock struct {
		pgx.Tx
	}
	mockRepo := new(MockRepository)
	mockMemberService := new(MockMemberService)
	service := newTestService(mockRepo, mockMemberService)

	ctx := context.Background()
	loanID := int64(1)
	tx := &TxMock{}
	entry := &Installment{DueAmount: 100}

	mockRepo.On("BeginTx", ctx).Return(tx, nil)
	mockRepo.On("FindOldestPendingInstallmentForUpdate", ctx, tx, loanID).Return(entry, nil)
	mockRepo.On("RollbackTx", ctx, tx).Return(nil)

	payment, err := service.RecordPayment(ctx, loanID, 55, "teller1")

	assert.Nil(t, payment)
	assert.ErrorIs(t, err, apperrors.ErrInvalidPaymentAmount)
	mockRepo.AssertNotCalled(t, "UpdateInstallmentInTx")
}

func TestRecordPaymentFullyPaid(t *testing.T) {
	type TxMock struct {
		pgx.Tx
	}
	mockRepo := new(MockRepository)
	mockMemberService := new(MockMemberService)
	service := newTestService(mockRepo, mockMemberService)

	ctx := context.Background()
	loanID := int64(1)
	tx := &TxMock{}

	mockRepo.On("BeginTx", ctx).Return(tx, nil)
	mockRepo.On("FindOldestPendingInstallmentForUpdate", ctx, tx, loanID).Return(nil, apperrors.ErrNotFound)
	mockRepo.On("RollbackTx", ctx, tx).Return(nil)

	payment, err := service.RecordPayment(ctx, loanID, 100, "teller1")

	assert.Nil(t, payment)
	assert.ErrorIs(t, err, apperrors.ErrLoanFullyPaid)
}

func TestRecordPaymentLastInstallmentFlipsStatus(t *testing.T) {
	type TxMock struct {
		pgx.Tx
	}
	mockRepo := new(MockRepository)
	mockMemberService := new(MockMemberService)
	service := newTestService(mockRepo, mockMemberService)

	ctx := context.Background()
	loanID := int64(1)
	amount := Money(100)
	tx := &TxMock{}
	entry := &Installment{ID: 50, DueAmount: amount}

	mockRepo.On("BeginTx", ctx).Return(tx, nil)
	mockRepo.On("FindOldestPendingInstallmentForUpdate", ctx, tx, loanID).Return(entry, nil)
	mockRepo.On("UpdateInstallmentInTx", ctx, tx, entry).Return(nil)
	mockRepo.On("InsertPaymentInTx", ctx, tx, mock.AnythingOfType("*loan.Payment")).
		Return(&Payment{ID: 7, LoanID: loanID, InstallmentID: 50, Amount: amount, ReceiptNumber: "r-7"}, nil)
	mockRepo.On("CheckIfAllPaymentsMadeInTx", ctx, tx, loanID).Return(true, nil)
	mockRepo.On("UpdateLoanStatusInTx", ctx, tx, loanID, StatusPaidOff).Return(nil)
	mockRepo.On("ClearMemberLoanLinkInTx", ctx, tx, loanID).Return(nil)
	mockRepo.On("CommitTx", ctx, tx).Return(nil)

	payment, err := service.RecordPayment(ctx, loanID, amount, "teller1")

	assert.NoError(t, err)
	assert.NotNil(t, payment)
	mockRepo.AssertExpectations(t)
}

func TestRecordPaymentPayoffClearFailureRollsBack(t *testing.T) {
	type TxMock struct {
		pgx.Tx
	}
	mockRepo := new(MockRepository)
	mockMemberService := new(MockMemberService)
	service := newTestService(mockRepo, mockMemberService)

	ctx := context.Background()
	loanID := int64(1)
	amount := Money(100)
	tx := &TxMock{}
	entry := &Installment{ID: 50, DueAmount: amount}

	mockRepo.On("BeginTx", ctx).Return(tx, nil)
	mockRepo.On("FindOldestPendingInstallmentForUpdate", ctx, tx, loanID).Return(entry, nil)
	mockRepo.On("UpdateInstallmentInTx", ctx, tx, entry).Return(nil)
	mockRepo.On("InsertPaymentInTx", ctx, tx, mock.AnythingOfType("*loan.Payment")).
		Return(&Payment{ID: 7, LoanID: loanID, InstallmentID: 50, Amount: amount}, nil)
	mockRepo.On("CheckIfAllPaymentsMadeInTx", ctx, tx, loanID).Return(true, nil)
	mockRepo.On("UpdateLoanStatusInTx", ctx, tx, loanID, StatusPaidOff).Return(nil)
	mockRepo.On("ClearMemberLoanLinkInTx", ctx, tx, loanID).Return(apperrors.ErrDatabase)
	mockRepo.On("RollbackTx", ctx, tx).Return(nil)

	payment, err := service.RecordPayment(ctx, loanID, amount, "teller1")

	assert.Nil(t, payment)
	assert.ErrorIs(t, err, apperrors.ErrInternalServer)
	mockRepo.AssertNotCalled(t, "CommitTx")
}

func TestGetLoan(t *testing.T) {
	mockRepo := new(MockRepository)
	mockMemberService := new(MockMemberService)
	service := newTestService(mockRepo, mockMemberService)

	ctx := context.Background()
	loanID := int64(1)
	expectedLoan := &Loan{ID: loanID}

	mockRepo.On("GetLoanByID", ctx, loanID).Return(expectedLoan, nil)
	mockRepo.On("GetScheduleByLoanID", ctx, loanID).Return([]Installment{}, nil)

	result, err := service.GetLoan(ctx, loanID)

	assert.NoError(t, err)
	assert.Equal(t, expectedLoan, result)
}

func TestGetLoanSchedule(t *testing.T) {
	mockRepo := new(MockRepository)
	mockMemberService := new(MockMemberService)
	service := newTestService(mockRepo, mockMemberService)

	ctx := context.Background()
	loanID := int64(1)
	expectedSchedule := []Installment{{}, {}}

	mockRepo.On("GetScheduleByLoanID", ctx, loanID).Return(expectedSchedule, nil)

	result, err := service.GetLoanSchedule(ctx, loanID)

	assert.NoError(t, err)
	assert.Equal(t, expectedSchedule, result)
	mockRepo.AssertExpectations(t)
}

func TestGetUnpaidInstallments(t *testing.T) {
	mockRepo := new(MockRepository)
	mockMemberService := new(MockMemberService)
	service := newTestService(mockRepo, mockMemberService)

	ctx := context.Background()
	loanID := int64(1)
	unpaid := []Installment{{ID: 3, Status: InstallmentPending}}

	mockRepo.On("GetUnpaidInstallments", ctx, loanID).Return(unpaid, nil)

	result, err := service.GetUnpaidInstallments(ctx, loanID)

	assert.NoError(t, err)
	assert.Equal(t, unpaid, result)
	mockRepo.AssertNotCalled(t, "GetLoanByID")
}

func TestGetUnpaidInstallmentsFullyPaidLoan(t *testing.T) {
	mockRepo := new(MockRepository)
	mockMemberService := new(MockMemberService)
	service := newTestService(mockRepo, mockMemberService)

	ctx := context.Background()
	loanID := int64(1)

	mockRepo.On("GetUnpaidInstallments", ctx, loanID).Return([]Installment{}, nil)
	mockRepo.On("GetLoanByID", ctx, loanID).Return(&Loan{ID: loanID, Status: StatusPaidOff}, nil)

	result, err := service.GetUnpaidInstallments(ctx, loanID)

	assert.NoError(t, err)
	assert.Empty(t, result)
	mockRepo.AssertExpectations(t)
}

func TestGetUnpaidInstallmentsUnknownLoan(t *testing.T) {
	mockRepo := new(MockRepository)
	mockMemberService := new(MockMemberService)
	service := newTestService(mockRepo, mockMemberService)

	ctx := context.Background()
	loanID := int64(99)

	mockRepo.On("GetUnpaidInstallments", ctx, loanID).Return([]Installment{}, nil)
	mockRepo.On("GetLoanByID", ctx, loanID).Return(nil, apperrors.ErrNotFound)

	result, err := service.GetUnpaidInstallments(ctx, loanID)

	assert.Nil(t, result)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestMarkOverdue(t *testing.T) {
	type TxMock struct {
		pgx.Tx
	}
	mockRepo := new(MockRepository)
	mockMemberService := new(MockMemberService)
	service := newTestService(mockRepo, mockMemberService)

	ctx := context.Background()
	loanID := int64(1)
	tx := &TxMock{}

	mockRepo.On("BeginTx", ctx).Return(tx, nil)
	mockRepo.On("UpdateLoanStatusInTx", ctx, tx, loanID, StatusOverdue).Return(nil)
	mockRepo.On("CommitTx", ctx, tx).Return(nil)
	mockRepo.On("GetLoanByID", ctx, loanID).Return(&Loan{ID: loanID, Status: StatusOverdue}, nil)

	err := service.MarkOverdue(ctx, loanID)

	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
}
