package handler

import (
	"net/http"

	"github.com/edulane/edulane-backend/internal/access"
	"github.com/edulane/edulane-backend/internal/middleware"
	"github.com/edulane/edulane-backend/internal/model"
	"github.com/edulane/edulane-backend/internal/response"
	"github.com/edulane/edulane-backend/internal/validator"
	"github.com/gin-gonic/gin"
)

// AccessHandler exposes access-check endpoints so clients can gate their UI
// on the same decisions the server enforces.
type AccessHandler struct {
	engine *access.Engine
}

// NewAccessHandler creates a new AccessHandler.
func NewAccessHandler(engine *access.Engine) *AccessHandler {
	return &AccessHandler{engine: engine}
}

// CheckRequest asks whether the caller holds a level on one resource.
type CheckRequest struct {
	Resource model.ResourceRef `json:"resource" binding:"required"`
	Required model.AccessLevel `json:"required" binding:"required"`
}

// BatchCheckRequest asks whether the caller passes every listed check.
type BatchCheckRequest struct {
	Checks []CheckRequest `json:"checks" binding:"required,min=1,dive"`
}

// Check godoc
// POST /api/v1/access/check
func (h *AccessHandler) Check(c *gin.Context) {
	var req CheckRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	if !req.Required.Valid() {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidRequest)
		return
	}

	granted, err := h.engine.EffectiveHasAccess(c.Request.Context(), middleware.GetCaller(c), req.Resource, req.Required)
	if err != nil {
		failFromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"granted": granted})
}

// CheckBatch godoc
// POST /api/v1/access/check-batch
// All-or-nothing: a single failing check fails the whole batch.
func (h *AccessHandler) CheckBatch(c *gin.Context) {
	var req BatchCheckRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	checks := make([]access.Check, len(req.Checks))
	for i, entry := range req.Checks {
		checks[i] = access.Check{Resource: entry.Resource, Required: entry.Required}
	}

	granted, err := h.engine.EffectiveHasAccessBatch(c.Request.Context(), middleware.GetCaller(c), checks)
	if err != nil {
		failFromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"granted": granted})
}

// ResolveRequest asks for the caller's best level on one resource.
type ResolveRequest struct {
	Resource model.ResourceRef `json:"resource" binding:"required"`
}

// Resolve godoc
// POST /api/v1/access/resolve
// Returns the best level the caller holds and one group granting it, or
// null when no active membership grants any level.
func (h *AccessHandler) Resolve(c *gin.Context) {
	var req ResolveRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	best, err := h.engine.EffectiveBestAccess(c.Request.Context(), middleware.GetCaller(c), req.Resource)
	if err != nil {
		failFromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"best": best})
}
