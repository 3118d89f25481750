package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"microfin-office/internal/api/handler/dto"
	"microfin-office/internal/domain/group"
	"microfin-office/internal/pkg/apperrors"
)

type GroupHandler struct {
	service group.Service
	logger  *slog.Logger
}

func NewGroupHandler(s group.Service, l *slog.Logger) *GroupHandler {
	if s == nil {
		panic("group service cannot be nil")
	}
	return &GroupHandler{
		service: s,
		logger:  l.With("component", "GroupHandler"),
	}
}

// CreateGroup handles POST /groups
// @Summary Create a lending group
// @Description Creates a lending group under a branch, optionally with a weekly meeting day.
// @Tags Groups
// @Accept json
// @Produce json
// @Param request body dto.CreateGroupRequest true "Group creation request"
// @Success 201 {object} dto.GroupResponse "Group successfully created"
// @Failure 400 {object} dto.ErrorResponse "Invalid request payload"
// @Failure 404 {object} dto.ErrorResponse "Branch not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /groups [post]
// @Security BearerAuth
func (h *GroupHandler) CreateGroup(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateGroupRequest
	if err := decodeJSON(r, &req); err != nil {
		h.logger.WarnContext(r.Context(), "Failed to decode request body", slog.Any("error", err))
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}
	if err := req.Validate(); err != nil {
		respondError(w, err)
		return
	}

	createdGroup, err := h.service.CreateGroup(r.Context(), req.BranchID, req.Name, req.MeetingDay)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Service failed to create group", slog.Any("error", err))
		respondError(w, err)
		return
	}

	resp := dto.NewGroupResponse(createdGroup)
	h.logger.InfoContext(r.Context(), "Group created successfully", slog.String("groupID", resp.GroupID))
	respondJSON(w, http.StatusCreated, resp)
}

// GetGroup handles GET /groups/{groupID}
// @Summary Retrieve group details
// @Description Retrieves a group with its current member count.
// @Tags Groups
// @Produce json
// @Param groupID path int true "Group ID" Minimum(1)
// @Success 200 {object} dto.GroupResponse "Group details retrieved"
// @Failure 400 {object} dto.ErrorResponse "Invalid group ID format"
// @Failure 404 {object} dto.ErrorResponse "Group not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /groups/{groupID} [get]
// @Security BearerAuth
func (h *GroupHandler) GetGroup(w http.ResponseWriter, r *http.Request) {
	groupID, err := idFromURL(r, "groupID")
	if err != nil {
		respondError(w, err)
		return
	}

	domainGroup, err := h.service.GetGroup(r.Context(), groupID)
	if err != nil {
		level := slog.LevelWarn
		if !errors.Is(err, group.ErrNotFound) {
			level = slog.LevelError
		}
		h.logger.Log(r.Context(), level, "Service failed to get group", slog.Any("error", err))
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.NewGroupResponse(domainGroup))
}

// ListGroups handles GET /groups
// @Summary List lending groups
// @Description Retrieves groups with member counts, optionally restricted to one branch.
// @Tags Groups
// @Produce json
// @Param branch_id query int false "Filter by branch ID"
// @Success 200 {array} dto.GroupResponse "List of groups"
// @Failure 400 {object} dto.ErrorResponse "Invalid branch_id parameter"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /groups [get]
// @Security BearerAuth
func (h *GroupHandler) ListGroups(w http.ResponseWriter, r *http.Request) {
	var branchID *int64
	if v := r.URL.Query().Get("branch_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			respondError(w, fmt.Errorf("%w: invalid branch_id: %s", apperrors.ErrInvalidArgument, v))
			return
		}
		branchID = &id
	}

	groups, err := h.service.ListGroups(r.Context(), branchID)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Service failed to list groups", slog.Any("error", err))
		respondError(w, err)
		return
	}

	resp := make([]dto.GroupResponse, len(groups))
	for i, g := range groups {
		resp[i] = dto.NewGroupResponse(g)
	}

	h.logger.InfoContext(r.Context(), "Groups listed successfully", slog.Int("count", len(resp)))
	respondJSON(w, http.StatusOK, resp)
}

// RenameGroup handles PUT /groups/{groupID}/name
// @Summary Rename a group
// @Description Changes the display name of a lending group.
// @Tags Groups
// @Accept json
// @Produce json
// @Param groupID path int true "Group ID" Minimum(1)
// @Param request body dto.RenameGroupRequest true "New name payload"
// @Success 204 "Group successfully renamed"
// @Failure 400 {object} dto.ErrorResponse "Invalid group ID or request payload"
// @Failure 404 {object} dto.ErrorResponse "Group not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /groups/{groupID}/name [put]
// @Security BearerAuth
func (h *GroupHandler) RenameGroup(w http.ResponseWriter, r *http.Request) {
	groupID, err := idFromURL(r, "groupID")
	if err != nil {
		respondError(w, err)
		return
	}

	var req dto.RenameGroupRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}
	if err := req.Validate(); err != nil {
		respondError(w, err)
		return
	}

	if err := h.service.RenameGroup(r.Context(), groupID, req.Name); err != nil {
		level := slog.LevelWarn
		if !errors.Is(err, group.ErrNotFound) {
			level = slog.LevelError
		}
		h.logger.Log(r.Context(), level, "Service failed to rename group", slog.Any("error", err))
		respondError(w, err)
		return
	}

	h.logger.InfoContext(r.Context(), "Group renamed successfully")
	respondJSON(w, http.StatusNoContent, nil)
}

// GetGroupRoster handles GET /groups/{groupID}/members
// @Summary Retrieve the group roster
// @Description Retrieves the active members of a lending group.
// @Tags Groups
// @Produce json
// @Param groupID path int true "Group ID" Minimum(1)
// @Success 200 {array} dto.MemberResponse "Group roster retrieved"
// @Failure 400 {object} dto.ErrorResponse "Invalid group ID"
// @Failure 404 {object} dto.ErrorResponse "Group not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /groups/{groupID}/members [get]
// @Security BearerAuth
func (h *GroupHandler) GetGroupRoster(w http.ResponseWriter, r *http.Request) {
	groupID, err := idFromURL(r, "groupID")
	if err != nil {
		respondError(w, err)
		return
	}

	roster, err := h.service.GetGroupRoster(r.Context(), groupID)
	if err != nil {
		level := slog.LevelWarn
		if !errors.Is(err, group.ErrNotFound) {
			level = slog.LevelError
		}
		h.logger.Log(r.Context(), level, "Service failed to get group roster", slog.Any("error", err))
		respondError(w, err)
		return
	}

	resp := make([]dto.MemberResponse, len(roster))
	for i, memb := range roster {
		resp[i] = dto.NewMemberResponse(memb)
	}
	respondJSON(w, http.StatusOK, resp)
}
