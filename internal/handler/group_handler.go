package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/edulane/edulane-backend/internal/middleware"
	"github.com/edulane/edulane-backend/internal/model"
	"github.com/edulane/edulane-backend/internal/response"
	"github.com/edulane/edulane-backend/internal/service"
	"github.com/edulane/edulane-backend/internal/validator"
	"github.com/gin-gonic/gin"
)

// GroupHandler handles the group lifecycle, membership, and permission-grant
// API.
type GroupHandler struct {
	groupService      *service.GroupService
	membershipService *service.MembershipService
	grantService      *service.GrantService
}

// NewGroupHandler creates a new GroupHandler.
func NewGroupHandler(
	groupService *service.GroupService,
	membershipService *service.MembershipService,
	grantService *service.GrantService,
) *GroupHandler {
	return &GroupHandler{
		groupService:      groupService,
		membershipService: membershipService,
		grantService:      grantService,
	}
}

// PermissionEntry is one resource grant in a request payload.
type PermissionEntry struct {
	Resource    model.ResourceRef `json:"resource" binding:"required"`
	AccessLevel model.AccessLevel `json:"access_level" binding:"required"`
}

// MemberEntry is one membership in a request payload.
type MemberEntry struct {
	UserID    int             `json:"user_id" binding:"required"`
	Role      model.GroupRole `json:"role" binding:"required"`
	ExpiresAt *time.Time      `json:"expires_at,omitempty"`
}

// CreateGroupRequest is the payload for creating a group.
type CreateGroupRequest struct {
	Name        string            `json:"name" binding:"required,min=1,max=255"`
	ParentID    *int              `json:"parent_id,omitempty"`
	Permissions []PermissionEntry `json:"permissions"`
	Members     []MemberEntry     `json:"members"`
}

// UpdateGroupRequest is the payload for replacing a group's state.
type UpdateGroupRequest struct {
	Name        string            `json:"name" binding:"required,min=1,max=255"`
	ParentID    *int              `json:"parent_id,omitempty"`
	Version     int               `json:"version" binding:"required,min=1"`
	Permissions []PermissionEntry `json:"permissions"`
	Members     []MemberEntry     `json:"members"`
}

// CreateGroup godoc
// POST /api/v1/groups
func (h *GroupHandler) CreateGroup(c *gin.Context) {
	var req CreateGroupRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	detail, err := h.groupService.CreateGroup(c.Request.Context(), middleware.GetCaller(c), service.CreateGroupInput{
		Name:        req.Name,
		ParentID:    req.ParentID,
		Permissions: toPermissionInputs(req.Permissions),
		Members:     toMemberInputs(req.Members),
	})
	if err != nil {
		failFromError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, detail)
}

// UpdateGroup godoc
// PUT /api/v1/groups/:id
func (h *GroupHandler) UpdateGroup(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req UpdateGroupRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	detail, err := h.groupService.UpdateGroup(c.Request.Context(), middleware.GetCaller(c), service.UpdateGroupInput{
		ID:          id,
		Name:        req.Name,
		ParentID:    req.ParentID,
		Version:     req.Version,
		Permissions: toPermissionInputs(req.Permissions),
		Members:     toMemberInputs(req.Members),
	})
	if err != nil {
		failFromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, detail)
}

// DeleteGroup godoc
// DELETE /api/v1/groups/:id
func (h *GroupHandler) DeleteGroup(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.groupService.DeleteGroup(c.Request.Context(), middleware.GetCaller(c), id); err != nil {
		failFromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// GetGroup godoc
// GET /api/v1/groups/:id
func (h *GroupHandler) GetGroup(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	detail, err := h.groupService.GetGroup(c.Request.Context(), middleware.GetCaller(c), id)
	if err != nil {
		failFromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, detail)
}

// ListMyGroups godoc
// GET /api/v1/groups
func (h *GroupHandler) ListMyGroups(c *gin.Context) {
	groups, err := h.groupService.ListMyGroups(c.Request.Context(), middleware.GetCaller(c))
	if err != nil {
		failFromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"groups": groups})
}

// GrantMemberRequest is the payload for granting a membership.
type GrantMemberRequest struct {
	UserID          int             `json:"user_id" binding:"required"`
	Role            model.GroupRole `json:"role" binding:"required"`
	DurationMinutes *int            `json:"duration_minutes,omitempty"`
}

// GrantMember godoc
// POST /api/v1/groups/:id/members
func (h *GroupHandler) GrantMember(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req GrantMemberRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	m, err := h.membershipService.GrantGroupAccess(
		c.Request.Context(), middleware.GetCaller(c), id, req.UserID, req.Role, req.DurationMinutes,
	)
	if err != nil {
		failFromError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"membership": m})
}

// RevokeMember godoc
// DELETE /api/v1/groups/:id/members/:user_id
func (h *GroupHandler) RevokeMember(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}
	userID, err := strconv.Atoi(c.Param("user_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.membershipService.RevokeGroupAccess(c.Request.Context(), middleware.GetCaller(c), id, userID); err != nil {
		failFromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"revoked": true})
}

// TransferOwnerRequest is the payload for an ownership transfer.
type TransferOwnerRequest struct {
	NewOwnerID int `json:"new_owner_id" binding:"required"`
}

// TransferOwner godoc
// POST /api/v1/groups/:id/owner
func (h *GroupHandler) TransferOwner(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req TransferOwnerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.membershipService.ChangeGroupOwner(c.Request.Context(), middleware.GetCaller(c), id, req.NewOwnerID); err != nil {
		failFromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"transferred": true})
}

// GrantPermission godoc
// POST /api/v1/groups/:id/permissions
func (h *GroupHandler) GrantPermission(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req PermissionEntry
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	p, err := h.grantService.GrantGroupPermission(c.Request.Context(), middleware.GetCaller(c), id, service.PermissionInput{
		Resource:    req.Resource,
		AccessLevel: req.AccessLevel,
	})
	if err != nil {
		failFromError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"permission": p})
}

// RevokePermission godoc
// DELETE /api/v1/permissions/:id
func (h *GroupHandler) RevokePermission(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.grantService.RevokeGroupPermission(c.Request.Context(), middleware.GetCaller(c), id); err != nil {
		failFromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"revoked": true})
}

func toPermissionInputs(entries []PermissionEntry) []service.PermissionInput {
	out := make([]service.PermissionInput, len(entries))
	for i, e := range entries {
		out[i] = service.PermissionInput{Resource: e.Resource, AccessLevel: e.AccessLevel}
	}
	return out
}

func toMemberInputs(entries []MemberEntry) []service.MemberInput {
	out := make([]service.MemberInput, len(entries))
	for i, e := range entries {
		out[i] = service.MemberInput{UserID: e.UserID, Role: e.Role, ExpiresAt: e.ExpiresAt}
	}
	return out
}
