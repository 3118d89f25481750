package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"microfin-office/internal/api/handler/dto"
	"microfin-office/internal/domain/report"
	"microfin-office/internal/pkg/apperrors"
)

type ReportHandler struct {
	service report.Service
	logger  *slog.Logger
}

func NewReportHandler(s report.Service, l *slog.Logger) *ReportHandler {
	if s == nil {
		panic("report service cannot be nil")
	}
	return &ReportHandler{
		service: s,
		logger:  l.With("component", "ReportHandler"),
	}
}

func reportRangeFromQuery(r *http.Request) (time.Time, time.Time, error) {
	var from, to time.Time

	if v := r.URL.Query().Get("from"); v != "" {
		parsed, err := time.Parse(time.RFC3339[:10], v)
		if err != nil {
			return from, to, fmt.Errorf("%w: invalid from date (use YYYY-MM-DD): %s", apperrors.ErrInvalidArgument, v)
		}
		from = parsed
	}
	if v := r.URL.Query().Get("to"); v != "" {
		parsed, err := time.Parse(time.RFC3339[:10], v)
		if err != nil {
			return from, to, fmt.Errorf("%w: invalid to date (use YYYY-MM-DD): %s", apperrors.ErrInvalidArgument, v)
		}
		// Make the end date inclusive.
		to = parsed.Add(24*time.Hour - time.Nanosecond)
	}

	return from, to, nil
}

// GetBranchSummary handles GET /reports/branches/{branchID}
// @Summary Branch operational summary
// @Description Retrieves member, loan, and balance counts for one branch, with expenses windowed to the requested period. The period defaults to the current month.
// @Tags Reports
// @Produce json
// @Param branchID path int true "Branch ID" Minimum(1)
// @Param from query string false "Start of period (YYYY-MM-DD)"
// @Param to query string false "End of period (YYYY-MM-DD)"
// @Success 200 {object} dto.BranchSummaryResponse "Branch summary retrieved"
// @Failure 400 {object} dto.ErrorResponse "Invalid branch ID or date range"
// @Failure 404 {object} dto.ErrorResponse "Branch not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /reports/branches/{branchID} [get]
// @Security BearerAuth
func (h *ReportHandler) GetBranchSummary(w http.ResponseWriter, r *http.Request) {
	branchID, err := idFromURL(r, "branchID")
	if err != nil {
		respondError(w, err)
		return
	}

	from, to, err := reportRangeFromQuery(r)
	if err != nil {
		respondError(w, err)
		return
	}

	summary, err := h.service.GetBranchSummary(r.Context(), branchID, from, to)
	if err != nil {
		level := slog.LevelWarn
		if !errors.Is(err, report.ErrNotFound) {
			level = slog.LevelError
		}
		h.logger.Log(r.Context(), level, "Service failed to build branch summary", slog.Any("error", err))
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.NewBranchSummaryResponse(summary))
}

// GetPortfolioSummary handles GET /reports/portfolio
// @Summary Portfolio-wide summary
// @Description Rolls every active branch up into one portfolio view for the requested period. The period defaults to the current month.
// @Tags Reports
// @Produce json
// @Param from query string false "Start of period (YYYY-MM-DD)"
// @Param to query string false "End of period (YYYY-MM-DD)"
// @Success 200 {object} dto.PortfolioSummaryResponse "Portfolio summary retrieved"
// @Failure 400 {object} dto.ErrorResponse "Invalid date range"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /reports/portfolio [get]
// @Security BearerAuth
func (h *ReportHandler) GetPortfolioSummary(w http.ResponseWriter, r *http.Request) {
	from, to, err := reportRangeFromQuery(r)
	if err != nil {
		respondError(w, err)
		return
	}

	summary, err := h.service.GetPortfolioSummary(r.Context(), from, to)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Service failed to build portfolio summary", slog.Any("error", err))
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.NewPortfolioSummaryResponse(summary))
}
