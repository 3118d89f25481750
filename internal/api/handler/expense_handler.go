package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"microfin-office/internal/api/handler/dto"
	"microfin-office/internal/domain/expense"
	"microfin-office/internal/pkg/apperrors"

	"github.com/shopspring/decimal"
)

type ExpenseHandler struct {
	service expense.Service
	logger  *slog.Logger
}

func NewExpenseHandler(s expense.Service, l *slog.Logger) *ExpenseHandler {
	if s == nil {
		panic("expense service cannot be nil")
	}
	return &ExpenseHandler{
		service: s,
		logger:  l.With("component", "ExpenseHandler"),
	}
}

// RecordExpense handles POST /expenses
// @Summary Record a branch expense
// @Description Records an operating expense against a branch. The spend date defaults to today when omitted.
// @Tags Expenses
// @Accept json
// @Produce json
// @Param request body dto.RecordExpenseRequest true "Expense payload"
// @Success 201 {object} dto.ExpenseResponse "Expense successfully recorded"
// @Failure 400 {object} dto.ErrorResponse "Invalid request payload"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /expenses [post]
// @Security BearerAuth
func (h *ExpenseHandler) RecordExpense(w http.ResponseWriter, r *http.Request) {
	var req dto.RecordExpenseRequest
	if err := decodeJSON(r, &req); err != nil {
		h.logger.WarnContext(r.Context(), "Failed to decode request body", slog.Any("error", err))
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}
	if err := req.Validate(); err != nil {
		respondError(w, err)
		return
	}

	amountDec, _ := decimal.NewFromString(req.Amount)
	amount, _ := amountDec.Float64()

	var spentAt time.Time
	if req.SpentAt != "" {
		spentAt, _ = time.Parse(time.RFC3339[:10], req.SpentAt)
	}

	recorded, err := h.service.RecordExpense(r.Context(), req.BranchID, req.Category, amount, req.Note, spentAt, usernameFromContext(r))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Service failed to record expense", slog.Any("error", err))
		respondError(w, err)
		return
	}

	resp := dto.NewExpenseResponse(recorded)
	h.logger.InfoContext(r.Context(), "Expense recorded successfully", slog.String("expenseID", resp.ExpenseID))
	respondJSON(w, http.StatusCreated, resp)
}

// GetExpense handles GET /expenses/{expenseID}
// @Summary Retrieve an expense
// @Description Retrieves a single expense record by its ID.
// @Tags Expenses
// @Produce json
// @Param expenseID path int true "Expense ID" Minimum(1)
// @Success 200 {object} dto.ExpenseResponse "Expense retrieved"
// @Failure 400 {object} dto.ErrorResponse "Invalid expense ID format"
// @Failure 404 {object} dto.ErrorResponse "Expense not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /expenses/{expenseID} [get]
// @Security BearerAuth
func (h *ExpenseHandler) GetExpense(w http.ResponseWriter, r *http.Request) {
	expenseID, err := idFromURL(r, "expenseID")
	if err != nil {
		respondError(w, err)
		return
	}

	record, err := h.service.GetExpense(r.Context(), expenseID)
	if err != nil {
		level := slog.LevelWarn
		if !errors.Is(err, expense.ErrNotFound) {
			level = slog.LevelError
		}
		h.logger.Log(r.Context(), level, "Service failed to get expense", slog.Any("error", err))
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.NewExpenseResponse(record))
}

// ListExpenses handles GET /expenses
// @Summary List expenses
// @Description Retrieves expenses filtered by branch, category, and date range, newest first.
// @Tags Expenses
// @Produce json
// @Param branch_id query int false "Filter by branch ID"
// @Param category query string false "Filter by category"
// @Param from query string false "Start of date range (YYYY-MM-DD)"
// @Param to query string false "End of date range (YYYY-MM-DD)"
// @Success 200 {array} dto.ExpenseResponse "List of expenses"
// @Failure 400 {object} dto.ErrorResponse "Invalid filter parameters"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /expenses [get]
// @Security BearerAuth
func (h *ExpenseHandler) ListExpenses(w http.ResponseWriter, r *http.Request) {
	filter, err := expenseFilterFromQuery(r)
	if err != nil {
		respondError(w, err)
		return
	}

	expenses, err := h.service.ListExpenses(r.Context(), filter)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Service failed to list expenses", slog.Any("error", err))
		respondError(w, err)
		return
	}

	resp := make([]dto.ExpenseResponse, len(expenses))
	for i, e := range expenses {
		resp[i] = dto.NewExpenseResponse(e)
	}

	h.logger.InfoContext(r.Context(), "Expenses listed successfully", slog.Int("count", len(resp)))
	respondJSON(w, http.StatusOK, resp)
}

// GetCategoryTotals handles GET /expenses/totals
// @Summary Expense totals by category
// @Description Sums expenses per category over an optional branch and date range.
// @Tags Expenses
// @Produce json
// @Param branch_id query int false "Filter by branch ID"
// @Param from query string false "Start of date range (YYYY-MM-DD)"
// @Param to query string false "End of date range (YYYY-MM-DD)"
// @Success 200 {array} dto.CategoryTotalResponse "Per-category totals"
// @Failure 400 {object} dto.ErrorResponse "Invalid filter parameters"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /expenses/totals [get]
// @Security BearerAuth
func (h *ExpenseHandler) GetCategoryTotals(w http.ResponseWriter, r *http.Request) {
	filter, err := expenseFilterFromQuery(r)
	if err != nil {
		respondError(w, err)
		return
	}

	totals, err := h.service.CategoryTotals(r.Context(), filter)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Service failed to total expenses", slog.Any("error", err))
		respondError(w, err)
		return
	}

	resp := make([]dto.CategoryTotalResponse, len(totals))
	for i, ct := range totals {
		resp[i] = dto.NewCategoryTotalResponse(ct)
	}
	respondJSON(w, http.StatusOK, resp)
}

// DeleteExpense handles DELETE /expenses/{expenseID}
// @Summary Delete an expense
// @Description Removes a mis-entered expense record.
// @Tags Expenses
// @Produce json
// @Param expenseID path int true "Expense ID" Minimum(1)
// @Success 204 "Expense successfully deleted"
// @Failure 400 {object} dto.ErrorResponse "Invalid expense ID"
// @Failure 404 {object} dto.ErrorResponse "Expense not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /expenses/{expenseID} [delete]
// @Security BearerAuth
func (h *ExpenseHandler) DeleteExpense(w http.ResponseWriter, r *http.Request) {
	expenseID, err := idFromURL(r, "expenseID")
	if err != nil {
		respondError(w, err)
		return
	}

	if err := h.service.DeleteExpense(r.Context(), expenseID); err != nil {
		level := slog.LevelWarn
		if !errors.Is(err, expense.ErrNotFound) {
			level = slog.LevelError
		}
		h.logger.Log(r.Context(), level, "Service failed to delete expense", slog.Any("error", err))
		respondError(w, err)
		return
	}

	h.logger.InfoContext(r.Context(), "Expense deleted successfully")
	respondJSON(w, http.StatusNoContent, nil)
}

func expenseFilterFromQuery(r *http.Request) (expense.ListFilter, error) {
	var filter expense.ListFilter

	if v := r.URL.Query().Get("branch_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			return filter, fmt.Errorf("%w: invalid branch_id: %s", apperrors.ErrInvalidArgument, v)
		}
		filter.BranchID = &id
	}
	filter.Category = r.URL.Query().Get("category")

	if v := r.URL.Query().Get("from"); v != "" {
		from, err := time.Parse(time.RFC3339[:10], v)
		if err != nil {
			return filter, fmt.Errorf("%w: invalid from date (use YYYY-MM-DD): %s", apperrors.ErrInvalidArgument, v)
		}
		filter.From = from
	}
	if v := r.URL.Query().Get("to"); v != "" {
		to, err := time.Parse(time.RFC3339[:10], v)
		if err != nil {
			return filter, fmt.Errorf("%w: invalid to date (use YYYY-MM-DD): %s", apperrors.ErrInvalidArgument, v)
		}
		filter.To = to
	}

	return filter, nil
}
