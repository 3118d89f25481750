package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"microfin-office/internal/api/handler/dto"
	"microfin-office/internal/domain/branch"
	"microfin-office/internal/pkg/apperrors"
)

type BranchHandler struct {
	service branch.Service
	logger  *slog.Logger
}

func NewBranchHandler(s branch.Service, l *slog.Logger) *BranchHandler {
	if s == nil {
		panic("branch service cannot be nil")
	}
	return &BranchHandler{
		service: s,
		logger:  l.With("component", "BranchHandler"),
	}
}

// CreateBranch handles POST /branches
// @Summary Create a new branch
// @Description Creates a branch office. The code is uppercased and must be unique.
// @Tags Branches
// @Accept json
// @Produce json
// @Param request body dto.CreateBranchRequest true "Branch creation request"
// @Success 201 {object} dto.BranchResponse "Branch successfully created"
// @Failure 400 {object} dto.ErrorResponse "Invalid request payload"
// @Failure 409 {object} dto.ErrorResponse "Branch code already in use"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /branches [post]
// @Security BearerAuth
func (h *BranchHandler) CreateBranch(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateBranchRequest
	if err := decodeJSON(r, &req); err != nil {
		h.logger.WarnContext(r.Context(), "Failed to decode request body", slog.Any("error", err))
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}
	if err := req.Validate(); err != nil {
		respondError(w, err)
		return
	}

	createdBranch, err := h.service.CreateBranch(r.Context(), req.Name, req.Code, req.Address, req.Phone)
	if err != nil {
		level := slog.LevelWarn
		if !errors.Is(err, branch.ErrDuplicateCode) {
			level = slog.LevelError
		}
		h.logger.Log(r.Context(), level, "Service failed to create branch", slog.Any("error", err))
		respondError(w, err)
		return
	}

	resp := dto.NewBranchResponse(createdBranch)
	h.logger.InfoContext(r.Context(), "Branch created successfully", slog.String("branchID", resp.BranchID))
	respondJSON(w, http.StatusCreated, resp)
}

// GetBranch handles GET /branches/{branchID}
// @Summary Retrieve branch details
// @Description Retrieves details for a specific branch by its ID.
// @Tags Branches
// @Produce json
// @Param branchID path int true "Branch ID" Minimum(1)
// @Success 200 {object} dto.BranchResponse "Branch details retrieved"
// @Failure 400 {object} dto.ErrorResponse "Invalid branch ID format"
// @Failure 404 {object} dto.ErrorResponse "Branch not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /branches/{branchID} [get]
// @Security BearerAuth
func (h *BranchHandler) GetBranch(w http.ResponseWriter, r *http.Request) {
	branchID, err := idFromURL(r, "branchID")
	if err != nil {
		respondError(w, err)
		return
	}

	domainBranch, err := h.service.GetBranch(r.Context(), branchID)
	if err != nil {
		level := slog.LevelWarn
		if !errors.Is(err, branch.ErrNotFound) {
			level = slog.LevelError
		}
		h.logger.Log(r.Context(), level, "Service failed to get branch", slog.Any("error", err))
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.NewBranchResponse(domainBranch))
}

// ListBranches handles GET /branches
// @Summary List branches
// @Description Retrieves all branches, or only active ones when `active=true`.
// @Tags Branches
// @Produce json
// @Param active query bool false "Only return active branches" Example(true)
// @Success 200 {array} dto.BranchResponse "List of branches"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /branches [get]
// @Security BearerAuth
func (h *BranchHandler) ListBranches(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active") == "true"

	branches, err := h.service.ListBranches(r.Context(), activeOnly)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Service failed to list branches", slog.Any("error", err))
		respondError(w, err)
		return
	}

	resp := make([]dto.BranchResponse, len(branches))
	for i, b := range branches {
		resp[i] = dto.NewBranchResponse(b)
	}

	h.logger.InfoContext(r.Context(), "Branches listed successfully", slog.Int("count", len(resp)))
	respondJSON(w, http.StatusOK, resp)
}

// UpdateBranch handles PUT /branches/{branchID}
// @Summary Update branch details
// @Description Updates the name, address, and phone for a branch. The code is immutable.
// @Tags Branches
// @Accept json
// @Produce json
// @Param branchID path int true "Branch ID" Minimum(1)
// @Param request body dto.UpdateBranchRequest true "Branch update payload"
// @Success 204 "Branch successfully updated"
// @Failure 400 {object} dto.ErrorResponse "Invalid branch ID or request payload"
// @Failure 404 {object} dto.ErrorResponse "Branch not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /branches/{branchID} [put]
// @Security BearerAuth
func (h *BranchHandler) UpdateBranch(w http.ResponseWriter, r *http.Request) {
	branchID, err := idFromURL(r, "branchID")
	if err != nil {
		respondError(w, err)
		return
	}

	var req dto.UpdateBranchRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}
	if err := req.Validate(); err != nil {
		respondError(w, err)
		return
	}

	if err := h.service.UpdateBranch(r.Context(), branchID, req.Name, req.Address, req.Phone); err != nil {
		level := slog.LevelWarn
		if !errors.Is(err, branch.ErrNotFound) {
			level = slog.LevelError
		}
		h.logger.Log(r.Context(), level, "Service failed to update branch", slog.Any("error", err))
		respondError(w, err)
		return
	}

	h.logger.InfoContext(r.Context(), "Branch updated successfully")
	respondJSON(w, http.StatusNoContent, nil)
}

// DeactivateBranch handles DELETE /branches/{branchID}
// @Summary Deactivate a branch
// @Description Marks a branch as inactive. Fails while the branch still has open loans.
// @Tags Branches
// @Produce json
// @Param branchID path int true "Branch ID" Minimum(1)
// @Success 204 "Branch successfully deactivated"
// @Failure 400 {object} dto.ErrorResponse "Invalid branch ID"
// @Failure 404 {object} dto.ErrorResponse "Branch not found"
// @Failure 409 {object} dto.ErrorResponse "Branch still has open loans"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /branches/{branchID} [delete]
// @Security BearerAuth
func (h *BranchHandler) DeactivateBranch(w http.ResponseWriter, r *http.Request) {
	branchID, err := idFromURL(r, "branchID")
	if err != nil {
		respondError(w, err)
		return
	}

	if err := h.service.DeactivateBranch(r.Context(), branchID); err != nil {
		level := slog.LevelWarn
		if !errors.Is(err, branch.ErrNotFound) &&
			!errors.Is(err, branch.ErrBranchHasActiveLoans) {
			level = slog.LevelError
		}
		h.logger.Log(r.Context(), level, "Service failed to deactivate branch", slog.Any("error", err))
		respondError(w, err)
		return
	}

	h.logger.InfoContext(r.Context(), "Branch deactivated successfully")
	respondJSON(w, http.StatusNoContent, nil)
}

// ReactivateBranch handles PUT /branches/{branchID}/reactivate
// @Summary Reactivate a branch
// @Description Marks a branch as active again.
// @Tags Branches
// @Produce json
// @Param branchID path int true "Branch ID" Minimum(1)
// @Success 204 "Branch successfully reactivated"
// @Failure 400 {object} dto.ErrorResponse "Invalid branch ID"
// @Failure 404 {object} dto.ErrorResponse "Branch not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /branches/{branchID}/reactivate [put]
// @Security BearerAuth
func (h *BranchHandler) ReactivateBranch(w http.ResponseWriter, r *http.Request) {
	branchID, err := idFromURL(r, "branchID")
	if err != nil {
		respondError(w, err)
		return
	}

	if err := h.service.ReactivateBranch(r.Context(), branchID); err != nil {
		level := slog.LevelWarn
		if !errors.Is(err, branch.ErrNotFound) {
			level = slog.LevelError
		}
		h.logger.Log(r.Context(), level, "Service failed to reactivate branch", slog.Any("error", err))
		respondError(w, err)
		return
	}

	h.logger.InfoContext(r.Context(), "Branch reactivated successfully")
	respondJSON(w, http.StatusNoContent, nil)
}
