package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"microfin-office/internal/api/handler/dto"
	"microfin-office/internal/domain/member"
	"microfin-office/internal/pkg/apperrors"
)

type MemberHandler struct {
	service member.Service
	logger  *slog.Logger
}

func NewMemberHandler(s member.Service, l *slog.Logger) *MemberHandler {
	if s == nil {
		panic("member service cannot be nil")
	}
	if l == nil {
		panic("logger cannot be nil")
	}
	return &MemberHandler{
		service: s,
		logger:  l.With("component", "MemberHandler"),
	}
}

// CreateMember handles POST /members
// @Summary Register a new member
// @Description Registers a borrower under a branch, optionally assigned to a lending group. The member number is generated server-side.
// @Tags Members
// @Accept json
// @Produce json
// @Param request body dto.CreateMemberRequest true "Member registration request"
// @Success 201 {object} dto.MemberResponse "Member successfully registered"
// @Failure 400 {object} dto.ErrorResponse "Invalid request payload"
// @Failure 409 {object} dto.ErrorResponse "Duplicate national ID"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /members [post]
// @Security BearerAuth
func (h *MemberHandler) CreateMember(w http.ResponseWriter, r *http.Request) {
	h.logger.DebugContext(r.Context(), "Received create member request")

	var req dto.CreateMemberRequest
	if err := decodeJSON(r, &req); err != nil {
		h.logger.WarnContext(r.Context(), "Failed to decode request body", slog.Any("error", err))
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}
	if err := req.Validate(); err != nil {
		h.logger.WarnContext(r.Context(), "Validation failed", slog.Any("error", err))
		respondError(w, err)
		return
	}

	createdMember, err := h.service.CreateMember(r.Context(), req.BranchID, req.GroupID, req.Name, req.Phone, req.Address, req.NationalID, req.PhotoURL)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Service failed to create member", slog.Any("error", err))
		respondError(w, err)
		return
	}

	resp := dto.NewMemberResponse(createdMember)
	h.logger.InfoContext(r.Context(), "Member created successfully", slog.String("memberID", resp.MemberID))
	respondJSON(w, http.StatusCreated, resp)
}

// GetMember handles GET /members/{memberID}
// @Summary Retrieve member details
// @Description Retrieves details for a specific member by their ID.
// @Tags Members
// @Produce json
// @Param memberID path int true "Member ID" Minimum(1)
// @Success 200 {object} dto.MemberResponse "Member details retrieved"
// @Failure 400 {object} dto.ErrorResponse "Invalid member ID format"
// @Failure 404 {object} dto.ErrorResponse "Member not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /members/{memberID} [get]
// @Security BearerAuth
func (h *MemberHandler) GetMember(w http.ResponseWriter, r *http.Request) {
	memberID, err := idFromURL(r, "memberID")
	if err != nil {
		respondError(w, err)
		return
	}

	domainMember, err := h.service.GetMember(r.Context(), memberID)
	if err != nil {
		level := slog.LevelWarn
		if !errors.Is(err, member.ErrNotFound) && !errors.Is(err, apperrors.ErrNotFound) {
			level = slog.LevelError
		}
		h.logger.Log(r.Context(), level, "Service failed to get member", slog.Any("error", err))
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.NewMemberResponse(domainMember))
}

// ListMembers handles GET /members
// @Summary List members
// @Description Retrieves members, optionally filtered by branch, group, or active status.
// @Tags Members
// @Produce json
// @Param branch_id query int false "Filter by branch ID"
// @Param group_id query int false "Filter by group ID"
// @Param active query bool false "Only return active members" Example(true)
// @Success 200 {array} dto.MemberResponse "List of members"
// @Failure 400 {object} dto.ErrorResponse "Invalid filter parameters"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /members [get]
// @Security BearerAuth
func (h *MemberHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	filter, err := memberFilterFromQuery(r)
	if err != nil {
		h.logger.WarnContext(r.Context(), "Invalid member list filter", slog.Any("error", err))
		respondError(w, err)
		return
	}

	members, err := h.service.ListMembers(r.Context(), filter)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Service failed to list members", slog.Any("error", err))
		respondError(w, err)
		return
	}

	resp := make([]dto.MemberResponse, len(members))
	for i, memb := range members {
		resp[i] = dto.NewMemberResponse(memb)
	}

	h.logger.InfoContext(r.Context(), "Members listed successfully", slog.Int("count", len(resp)))
	respondJSON(w, http.StatusOK, resp)
}

func memberFilterFromQuery(r *http.Request) (member.ListFilter, error) {
	var filter member.ListFilter

	if v := r.URL.Query().Get("branch_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			return filter, fmt.Errorf("%w: invalid branch_id: %s", apperrors.ErrInvalidArgument, v)
		}
		filter.BranchID = &id
	}
	if v := r.URL.Query().Get("group_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			return filter, fmt.Errorf("%w: invalid group_id: %s", apperrors.ErrInvalidArgument, v)
		}
		filter.GroupID = &id
	}
	filter.ActiveOnly = r.URL.Query().Get("active") == "true"

	return filter, nil
}

// FindMemberByLoan handles GET /members/by-loan/{loanID}
// @Summary Find the member holding a loan
// @Description Retrieves the member associated with a specific loan ID.
// @Tags Members
// @Produce json
// @Param loanID path int true "Loan ID" Minimum(1)
// @Success 200 {object} dto.MemberResponse "Member details retrieved"
// @Failure 400 {object} dto.ErrorResponse "Invalid loan ID"
// @Failure 404 {object} dto.ErrorResponse "No member holds the given loan"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /members/by-loan/{loanID} [get]
// @Security BearerAuth
func (h *MemberHandler) FindMemberByLoan(w http.ResponseWriter, r *http.Request) {
	loanID, err := idFromURL(r, "loanID")
	if err != nil {
		respondError(w, err)
		return
	}

	domainMember, err := h.service.FindMemberByLoan(r.Context(), loanID)
	if err != nil {
		level := slog.LevelWarn
		if !errors.Is(err, member.ErrNotFound) && !errors.Is(err, apperrors.ErrNotFound) {
			level = slog.LevelError
		}
		h.logger.Log(r.Context(), level, "Service failed to find member by loan", slog.Any("error", err))
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.NewMemberResponse(domainMember))
}

// UpdateMemberContact handles PUT /members/{memberID}/contact
// @Summary Update member contact details
// @Description Updates the phone and address for a specific member.
// @Tags Members
// @Accept json
// @Produce json
// @Param memberID path int true "Member ID" Minimum(1)
// @Param request body dto.UpdateMemberContactRequest true "New contact payload"
// @Success 204 "Contact successfully updated"
// @Failure 400 {object} dto.ErrorResponse "Invalid member ID or request payload"
// @Failure 404 {object} dto.ErrorResponse "Member not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /members/{memberID}/contact [put]
// @Security BearerAuth
func (h *MemberHandler) UpdateMemberContact(w http.ResponseWriter, r *http.Request) {
	memberID, err := idFromURL(r, "memberID")
	if err != nil {
		respondError(w, err)
		return
	}

	var req dto.UpdateMemberContactRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}
	if err := req.Validate(); err != nil {
		respondError(w, err)
		return
	}

	if err := h.service.UpdateMemberContact(r.Context(), memberID, req.Phone, req.Address); err != nil {
		level := slog.LevelWarn
		if !errors.Is(err, member.ErrNotFound) {
			level = slog.LevelError
		}
		h.logger.Log(r.Context(), level, "Service failed to update member contact", slog.Any("error", err))
		respondError(w, err)
		return
	}

	h.logger.InfoContext(r.Context(), "Member contact updated successfully")
	respondJSON(w, http.StatusNoContent, nil)
}

// AssignMemberToGroup handles PUT /members/{memberID}/group
// @Summary Move a member into a lending group
// @Description Assigns a member to a group within the same branch.
// @Tags Members
// @Accept json
// @Produce json
// @Param memberID path int true "Member ID" Minimum(1)
// @Param request body dto.AssignGroupRequest true "Group ID payload"
// @Success 204 "Member successfully assigned"
// @Failure 400 {object} dto.ErrorResponse "Invalid member ID or payload, or branch mismatch"
// @Failure 404 {object} dto.ErrorResponse "Member or group not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /members/{memberID}/group [put]
// @Security BearerAuth
func (h *MemberHandler) AssignMemberToGroup(w http.ResponseWriter, r *http.Request) {
	memberID, err := idFromURL(r, "memberID")
	if err != nil {
		respondError(w, err)
		return
	}

	var req dto.AssignGroupRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}
	if err := req.Validate(); err != nil {
		respondError(w, err)
		return
	}

	if err := h.service.AssignMemberToGroup(r.Context(), memberID, req.GroupID); err != nil {
		h.logger.ErrorContext(r.Context(), "Service failed to assign member to group", slog.Any("error", err))
		respondError(w, err)
		return
	}

	h.logger.InfoContext(r.Context(), "Member assigned to group successfully")
	respondJSON(w, http.StatusNoContent, nil)
}

// AssignLoanToMember handles PUT /members/{memberID}/loan
// @Summary Link a loan to a member
// @Description Associates a loan ID with a member. Fails if the member already has a loan or the loan is linked elsewhere.
// @Tags Members
// @Accept json
// @Produce json
// @Param memberID path int true "Member ID" Minimum(1)
// @Param request body dto.AssignLoanRequest true "Loan ID payload (loanId must be positive)"
// @Success 204 "Loan successfully linked"
// @Failure 400 {object} dto.ErrorResponse "Invalid member ID or payload"
// @Failure 404 {object} dto.ErrorResponse "Member not found"
// @Failure 409 {object} dto.ErrorResponse "Member already has a loan, or loan already linked"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /members/{memberID}/loan [put]
// @Security BearerAuth
func (h *MemberHandler) AssignLoanToMember(w http.ResponseWriter, r *http.Request) {
	memberID, err := idFromURL(r, "memberID")
	if err != nil {
		respondError(w, err)
		return
	}

	var req dto.AssignLoanRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}
	if err := req.Validate(); err != nil {
		respondError(w, err)
		return
	}

	if err := h.service.AssignLoanToMember(r.Context(), memberID, req.LoanID); err != nil {
		level := slog.LevelWarn
		if !errors.Is(err, member.ErrNotFound) &&
			!errors.Is(err, member.ErrDuplicateLoanID) &&
			!errors.Is(err, member.ErrMemberAlreadyHasLoan) {
			level = slog.LevelError
		}
		h.logger.Log(r.Context(), level, "Service failed to assign loan to member", slog.Any("error", err))
		respondError(w, err)
		return
	}

	h.logger.InfoContext(r.Context(), "Loan assigned to member successfully")
	respondJSON(w, http.StatusNoContent, nil)
}

// UpdateOverdueStanding handles PUT /members/{memberID}/overdue
// @Summary Update member overdue standing
// @Description Sets the overdue flag for a specific member.
// @Tags Members
// @Accept json
// @Produce json
// @Param memberID path int true "Member ID" Minimum(1)
// @Param request body dto.UpdateOverdueStandingRequest true "Overdue standing payload (`overdue`: true/false)"
// @Success 204 "Overdue standing successfully updated"
// @Failure 400 {object} dto.ErrorResponse "Invalid member ID or request payload"
// @Failure 404 {object} dto.ErrorResponse "Member not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /members/{memberID}/overdue [put]
// @Security BearerAuth
func (h *MemberHandler) UpdateOverdueStanding(w http.ResponseWriter, r *http.Request) {
	memberID, err := idFromURL(r, "memberID")
	if err != nil {
		respondError(w, err)
		return
	}

	var req dto.UpdateOverdueStandingRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}

	if err := h.service.UpdateOverdueStanding(r.Context(), memberID, req.Overdue); err != nil {
		level := slog.LevelWarn
		if !errors.Is(err, member.ErrNotFound) {
			level = slog.LevelError
		}
		h.logger.Log(r.Context(), level, "Service failed to update overdue standing", slog.Any("error", err))
		respondError(w, err)
		return
	}

	h.logger.InfoContext(r.Context(), "Member overdue standing updated successfully")
	respondJSON(w, http.StatusNoContent, nil)
}

// DeactivateMember handles DELETE /members/{memberID}
// @Summary Deactivate a member
// @Description Marks a member as inactive. Fails if the member has a loan that is not paid off.
// @Tags Members
// @Produce json
// @Param memberID path int true "Member ID" Minimum(1)
// @Success 204 "Member successfully deactivated"
// @Failure 400 {object} dto.ErrorResponse "Invalid member ID"
// @Failure 404 {object} dto.ErrorResponse "Member not found"
// @Failure 409 {object} dto.ErrorResponse "Member has an open loan"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /members/{memberID} [delete]
// @Security BearerAuth
func (h *MemberHandler) DeactivateMember(w http.ResponseWriter, r *http.Request) {
	memberID, err := idFromURL(r, "memberID")
	if err != nil {
		respondError(w, err)
		return
	}

	if err := h.service.DeactivateMember(r.Context(), memberID); err != nil {
		level := slog.LevelWarn
		if !errors.Is(err, member.ErrNotFound) &&
			!errors.Is(err, member.ErrCannotDeactivateActiveLoan) {
			level = slog.LevelError
		}
		h.logger.Log(r.Context(), level, "Service failed to deactivate member", slog.Any("error", err))
		respondError(w, err)
		return
	}

	h.logger.InfoContext(r.Context(), "Member deactivated successfully")
	respondJSON(w, http.StatusNoContent, nil)
}

// ReactivateMember handles PUT /members/{memberID}/reactivate
// @Summary Reactivate a member
// @Description Marks a member as active again.
// @Tags Members
// @Produce json
// @Param memberID path int true "Member ID" Minimum(1)
// @Success 204 "Member successfully reactivated"
// @Failure 400 {object} dto.ErrorResponse "Invalid member ID"
// @Failure 404 {object} dto.ErrorResponse "Member not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /members/{memberID}/reactivate [put]
// @Security BearerAuth
func (h *MemberHandler) ReactivateMember(w http.ResponseWriter, r *http.Request) {
	memberID, err := idFromURL(r, "memberID")
	if err != nil {
		respondError(w, err)
		return
	}

	if err := h.service.ReactivateMember(r.Context(), memberID); err != nil {
		level := slog.LevelWarn
		if !errors.Is(err, member.ErrNotFound) {
			level = slog.LevelError
		}
		h.logger.Log(r.Context(), level, "Service failed to reactivate member", slog.Any("error", err))
		respondError(w, err)
		return
	}

	h.logger.InfoContext(r.Context(), "Member reactivated successfully")
	respondJSON(w, http.StatusNoContent, nil)
}
