package event

import (
	"context"
	"time"
)

// Routing keys follow the entity.action convention on a topic exchange so
// consumers can bind to a subset (e.g. "loan.*").
const (
	RoutingKeyBranchCreated   = "branch.created"
	RoutingKeyMemberCreated   = "member.created"
	RoutingKeyMemberUpdated   = "member.updated"
	RoutingKeyLoanCreated     = "loan.created"
	RoutingKeyPaymentRecorded = "loan.payment.recorded"
	RoutingKeyLoanOverdue     = "loan.overdue"
	RoutingKeyExpenseRecorded = "expense.recorded"
)

type BranchEventPayload struct {
	BranchID int64  `json:"branchId"`
	Name     string `json:"name"`
	Code     string `json:"code"`
	Active   bool   `json:"active"`
}

type MemberEventPayload struct {
	MemberID int64  `json:"memberId"`
	BranchID int64  `json:"branchId"`
	GroupID  *int64 `json:"groupId,omitempty"`
	Name     string `json:"name"`
	Active   bool   `json:"active"`
	Overdue  bool   `json:"overdue"`
}

type LoanEventPayload struct {
	LoanID    int64   `json:"loanId"`
	MemberID  int64   `json:"memberId"`
	BranchID  int64   `json:"branchId"`
	Principal float64 `json:"principal"`
	Status    string  `json:"status"`
}

type PaymentEventPayload struct {
	PaymentID     int64   `json:"paymentId"`
	LoanID        int64   `json:"loanId"`
	Amount        float64 `json:"amount"`
	ReceiptNumber string  `json:"receiptNumber"`
}

type ExpenseEventPayload struct {
	ExpenseID int64   `json:"expenseId"`
	BranchID  int64   `json:"branchId"`
	Category  string  `json:"category"`
	Amount    float64 `json:"amount"`
}

type BranchCreatedEvent struct {
	Timestamp time.Time          `json:"timestamp"`
	Payload   BranchEventPayload `json:"payload"`
}

type MemberCreatedEvent struct {
	Timestamp time.Time          `json:"timestamp"`
	Payload   MemberEventPayload `json:"payload"`
}

type MemberUpdatedEvent struct {
	Timestamp time.Time          `json:"timestamp"`
	Payload   MemberEventPayload `json:"payload"`
}

type LoanCreatedEvent struct {
	Timestamp time.Time        `json:"timestamp"`
	Payload   LoanEventPayload `json:"payload"`
}

type PaymentRecordedEvent struct {
	Timestamp time.Time           `json:"timestamp"`
	Payload   PaymentEventPayload `json:"payload"`
}

type LoanOverdueEvent struct {
	Timestamp time.Time        `json:"timestamp"`
	Payload   LoanEventPayload `json:"payload"`
}

type ExpenseRecordedEvent struct {
	Timestamp time.Time           `json:"timestamp"`
	Payload   ExpenseEventPayload `json:"payload"`
}

type Publisher interface {
	PublishBranchCreated(ctx context.Context, event BranchCreatedEvent) error
	PublishMemberCreated(ctx context.Context, event MemberCreatedEvent) error
	PublishMemberUpdated(ctx context.Context, event MemberUpdatedEvent) error
	PublishLoanCreated(ctx context.Context, event LoanCreatedEvent) error
	PublishPaymentRecorded(ctx context.Context, event PaymentRecordedEvent) error
	PublishLoanOverdue(ctx context.Context, event LoanOverdueEvent) error
	PublishExpenseRecorded(ctx context.Context, event ExpenseRecordedEvent) error
}

// NoopPublisher is wired when rabbitmq is disabled in config and in tests.
type NoopPublisher struct{}

func (NoopPublisher) PublishBranchCreated(context.Context, BranchCreatedEvent) error     { return nil }
func (NoopPublisher) PublishMemberCreated(context.Context, MemberCreatedEvent) error     { return nil }
func (NoopPublisher) PublishMemberUpdated(context.Context, MemberUpdatedEvent) error     { return nil }
func (NoopPublisher) PublishLoanCreated(context.Context, LoanCreatedEvent) error         { return nil }
func (NoopPublisher) PublishPaymentRecorded(context.Context, PaymentRecordedEvent) error { return nil }
func (NoopPublisher) PublishLoanOverdue(context.Context, LoanOverdueEvent) error         { return nil }
func (NoopPublisher) PublishExpenseRecorded(context.Context, ExpenseRecordedEvent) error { return nil }

var _ Publisher = NoopPublisher{}
