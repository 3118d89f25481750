package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"microfin-office/internal/api/handler/dto"
	"microfin-office/internal/api/middleware"
	"microfin-office/internal/domain/branch"
	"microfin-office/internal/domain/expense"
	"microfin-office/internal/domain/group"
	"microfin-office/internal/domain/loan"
	"microfin-office/internal/domain/member"
	"microfin-office/internal/domain/report"
	"microfin-office/internal/domain/user"
	"microfin-office/internal/pkg/apperrors"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

type LoanHandler struct {
	service loan.Service
	logger  *slog.Logger
}

func NewLoanHandler(s loan.Service, l *slog.Logger) *LoanHandler {
	return &LoanHandler{
		service: s,
		logger:  l.With("component", "LoanHandler"),
	}
}

func decodeJSON(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return fmt.Errorf("no request body")
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(v)
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	if payload == nil {
		w.WriteHeader(status)
		return
	}
	response, err := json.Marshal(payload)
	if err != nil {
		slog.Default().Error("Failed to marshal JSON response", "error", err)
		http.Error(w, `{"error":{"message":"Internal server error"}}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(response)
}

func respondError(w http.ResponseWriter, err error) {
	status, message, field := http.StatusInternalServerError, "An unexpected error occurred.", ""
	var validationError *apperrors.ValidationError
	var appErr *apperrors.AppError

	switch {
	case errors.Is(err, apperrors.ErrNotFound),
		errors.Is(err, branch.ErrNotFound),
		errors.Is(err, member.ErrNotFound),
		errors.Is(err, group.ErrNotFound),
		errors.Is(err, expense.ErrNotFound),
		errors.Is(err, user.ErrNotFound),
		errors.Is(err, report.ErrNotFound):
		status, message = http.StatusNotFound, "Resource not found."
	case errors.Is(err, apperrors.ErrUnauthorized):
		status, message = http.StatusUnauthorized, "Invalid credentials."
	case errors.Is(err, apperrors.ErrConflict),
		errors.Is(err, apperrors.ErrAlreadyExists),
		errors.Is(err, branch.ErrDuplicateCode),
		errors.Is(err, branch.ErrBranchHasActiveLoans),
		errors.Is(err, member.ErrDuplicateLoanID),
		errors.Is(err, member.ErrMemberAlreadyHasLoan),
		errors.Is(err, member.ErrCannotDeactivateActiveLoan),
		errors.Is(err, user.ErrDuplicateUsername):
		status, message = http.StatusConflict, err.Error()
	case errors.As(err, &validationError):
		status, message, field = http.StatusBadRequest, validationError.Message, validationError.Field
	case errors.Is(err, apperrors.ErrInvalidArgument), errors.Is(err, apperrors.ErrValidation):
		status, message = http.StatusBadRequest, err.Error()
	case errors.Is(err, apperrors.ErrInvalidPaymentAmount), errors.Is(err, apperrors.ErrLoanFullyPaid):
		status, message = http.StatusBadRequest, err.Error()
	case errors.As(err, &appErr):
		message = appErr.Error()
	default:
		slog.Default().Error("Unhandled internal error", "error", err)
	}

	resp := dto.ErrorResponse{
		Error: dto.ErrorDetail{
			Message: message,
			Field:   field,
		},
	}
	respondJSON(w, status, resp)
}

func idFromURL(r *http.Request, param string) (int64, error) {
	idStr := chi.URLParam(r, param)
	if idStr == "" {
		return 0, fmt.Errorf("%w: %s not found in URL path", apperrors.ErrInvalidArgument, param)
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid %s format in URL path: %s", apperrors.ErrInvalidArgument, param, idStr)
	}
	return id, nil
}

// usernameFromContext returns the authenticated username, or empty when auth
// is disabled.
func usernameFromContext(r *http.Request) string {
	if claims, ok := middleware.ClaimsFromContext(r.Context()); ok {
		return claims.Username
	}
	return ""
}

// IssueLoan handles the creation of a new loan.
//
// @Summary Issue a new loan
// @Description Issues a loan to a member. Term and interest rate fall back to the configured lending policy when omitted. The weekly repayment schedule is generated up front.
// @Tags Loans
// @Accept json
// @Produce json
// @Param request body dto.CreateLoanRequest true "Loan issuance request payload"
// @Success 201 {object} dto.LoanResponse "Loan successfully issued"
// @Failure 400 {object} dto.ErrorResponse "Invalid request payload or validation error"
// @Failure 409 {object} dto.ErrorResponse "Member already has an open loan"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /loans [post]
// @Security BearerAuth
func (h *LoanHandler) IssueLoan(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateLoanRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}
	if err := req.Validate(); err != nil {
		respondError(w, err)
		return
	}

	principalDec, _ := decimal.NewFromString(req.Principal)
	principal, _ := principalDec.Float64()

	var rate float64
	if req.AnnualInterestRate != "" {
		rateDec, _ := decimal.NewFromString(req.AnnualInterestRate)
		rate, _ = rateDec.Float64()
	}

	var startDate time.Time
	if req.StartDate != "" {
		startDate, _ = time.Parse(time.RFC3339[:10], req.StartDate)
	}

	createdLoan, err := h.service.IssueLoan(r.Context(), req.MemberID, principal, req.TermWeeks, rate, startDate)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Service failed to issue loan", slog.Any("error", err))
		respondError(w, err)
		return
	}

	resp := dto.NewLoanResponse(createdLoan, true)
	h.logger.InfoContext(r.Context(), "Loan issued successfully", slog.String("loanID", resp.ID))
	respondJSON(w, http.StatusCreated, resp)
}

// GetLoan retrieves the details of a specific loan.
//
// @Summary Retrieve loan details
// @Description Retrieves a loan by its ID. The repayment schedule can be included by adding the query parameter `include=schedule`.
// @Tags Loans
// @Produce json
// @Param loanID path int true "Loan ID"
// @Param include query string false "Optional parameter to include repayment schedule (use 'schedule')"
// @Success 200 {object} dto.LoanResponse "Loan details successfully retrieved"
// @Failure 400 {object} dto.ErrorResponse "Invalid loan ID"
// @Failure 404 {object} dto.ErrorResponse "Loan not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /loans/{loanID} [get]
// @Security BearerAuth
func (h *LoanHandler) GetLoan(w http.ResponseWriter, r *http.Request) {
	loanID, err := idFromURL(r, "loanID")
	if err != nil {
		respondError(w, err)
		return
	}

	domainLoan, err := h.service.GetLoan(r.Context(), loanID)
	if err != nil {
		respondError(w, err)
		return
	}

	includeSchedule := r.URL.Query().Get("include") == "schedule"
	resp := dto.NewLoanResponse(domainLoan, includeSchedule)
	respondJSON(w, http.StatusOK, resp)
}

// GetSchedule retrieves the repayment schedule for a loan.
//
// @Summary Retrieve loan repayment schedule
// @Description Retrieves the weekly installment schedule for a loan by its ID. Pass status=unpaid to get only the installments still owed, oldest first.
// @Tags Loans
// @Produce json
// @Param loanID path int true "Loan ID"
// @Param status query string false "Set to 'unpaid' to restrict the schedule to unpaid installments"
// @Success 200 {array} dto.InstallmentResponse "Schedule successfully retrieved"
// @Failure 400 {object} dto.ErrorResponse "Invalid loan ID"
// @Failure 404 {object} dto.ErrorResponse "Loan not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /loans/{loanID}/schedule [get]
// @Security BearerAuth
func (h *LoanHandler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	loanID, err := idFromURL(r, "loanID")
	if err != nil {
		respondError(w, err)
		return
	}

	var schedule []loan.Installment
	if r.URL.Query().Get("status") == "unpaid" {
		schedule, err = h.service.GetUnpaidInstallments(r.Context(), loanID)
	} else {
		schedule, err = h.service.GetLoanSchedule(r.Context(), loanID)
	}
	if err != nil {
		respondError(w, err)
		return
	}

	resp := make([]dto.InstallmentResponse, len(schedule))
	for i := range schedule {
		resp[i] = dto.NewInstallmentResponse(&schedule[i])
	}
	respondJSON(w, http.StatusOK, resp)
}

// GetOutstanding retrieves the outstanding amount for a specific loan.
//
// @Summary Retrieve outstanding loan amount
// @Description Retrieves the unpaid balance for a loan by its ID.
// @Tags Loans
// @Produce json
// @Param loanID path int true "Loan ID"
// @Success 200 {object} dto.OutstandingResponse "Outstanding amount successfully retrieved"
// @Failure 400 {object} dto.ErrorResponse "Invalid loan ID"
// @Failure 404 {object} dto.ErrorResponse "Loan not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /loans/{loanID}/outstanding [get]
// @Security BearerAuth
func (h *LoanHandler) GetOutstanding(w http.ResponseWriter, r *http.Request) {
	loanID, err := idFromURL(r, "loanID")
	if err != nil {
		respondError(w, err)
		return
	}

	outstanding, err := h.service.GetOutstanding(r.Context(), loanID)
	if err != nil {
		respondError(w, err)
		return
	}

	resp := dto.OutstandingResponse{
		LoanID:            strconv.FormatInt(loanID, 10),
		OutstandingAmount: fmt.Sprintf("%.2f", outstanding),
	}
	respondJSON(w, http.StatusOK, resp)
}

// IsOverdue checks whether a loan is overdue.
//
// @Summary Check loan overdue status
// @Description Checks whether a loan has crossed the configured threshold of missed weekly installments.
// @Tags Loans
// @Produce json
// @Param loanID path int true "Loan ID"
// @Success 200 {object} dto.OverdueStatusResponse "Overdue status successfully retrieved"
// @Failure 400 {object} dto.ErrorResponse "Invalid loan ID"
// @Failure 404 {object} dto.ErrorResponse "Loan not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /loans/{loanID}/overdue [get]
// @Security BearerAuth
func (h *LoanHandler) IsOverdue(w http.ResponseWriter, r *http.Request) {
	loanID, err := idFromURL(r, "loanID")
	if err != nil {
		respondError(w, err)
		return
	}

	isOverdue, err := h.service.IsOverdue(r.Context(), loanID)
	if err != nil {
		respondError(w, err)
		return
	}

	resp := dto.OverdueStatusResponse{
		LoanID:    strconv.FormatInt(loanID, 10),
		IsOverdue: isOverdue,
	}
	respondJSON(w, http.StatusOK, resp)
}

// RecordPayment processes a repayment for a specific loan.
//
// @Summary Record a loan payment
// @Description Records a repayment against the oldest unpaid installment. The amount must match the weekly installment exactly. Returns the receipt.
// @Tags Loans
// @Accept json
// @Produce json
// @Param loanID path int true "Loan ID"
// @Param request body dto.MakePaymentRequest true "Payment request payload"
// @Success 201 {object} dto.PaymentResponse "Payment successfully recorded"
// @Failure 400 {object} dto.ErrorResponse "Invalid loan ID, payload, or payment amount"
// @Failure 404 {object} dto.ErrorResponse "Loan not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /loans/{loanID}/payments [post]
// @Security BearerAuth
func (h *LoanHandler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	loanID, err := idFromURL(r, "loanID")
	if err != nil {
		respondError(w, err)
		return
	}

	var req dto.MakePaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}
	if err := req.Validate(); err != nil {
		respondError(w, err)
		return
	}

	amountDecimal, err := decimal.NewFromString(req.Amount)
	if err != nil {
		respondError(w, fmt.Errorf("%w: invalid numeric format for amount", apperrors.ErrInvalidArgument))
		return
	}
	amountFloat, _ := amountDecimal.Float64()

	payment, err := h.service.RecordPayment(r.Context(), loanID, amountFloat, usernameFromContext(r))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Service failed to record payment", slog.Any("error", err))
		respondError(w, err)
		return
	}

	resp := dto.NewPaymentResponse(payment)
	h.logger.InfoContext(r.Context(), "Payment recorded successfully", slog.String("receiptNumber", resp.ReceiptNumber))
	respondJSON(w, http.StatusCreated, resp)
}

// ListPayments returns the payment history for a loan.
//
// @Summary List loan payments
// @Description Retrieves all recorded payments for a loan, oldest first.
// @Tags Loans
// @Produce json
// @Param loanID path int true "Loan ID"
// @Success 200 {array} dto.PaymentResponse "Payment history retrieved"
// @Failure 400 {object} dto.ErrorResponse "Invalid loan ID"
// @Failure 404 {object} dto.ErrorResponse "Loan not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /loans/{loanID}/payments [get]
// @Security BearerAuth
func (h *LoanHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	loanID, err := idFromURL(r, "loanID")
	if err != nil {
		respondError(w, err)
		return
	}

	payments, err := h.service.ListPayments(r.Context(), loanID)
	if err != nil {
		respondError(w, err)
		return
	}

	resp := make([]dto.PaymentResponse, len(payments))
	for i := range payments {
		resp[i] = dto.NewPaymentResponse(&payments[i])
	}
	respondJSON(w, http.StatusOK, resp)
}
