package handler

import (
	"net/http"

	"github.com/edulane/edulane-backend/internal/middleware"
	"github.com/edulane/edulane-backend/internal/model"
	"github.com/edulane/edulane-backend/internal/response"
	"github.com/edulane/edulane-backend/internal/service"
	"github.com/edulane/edulane-backend/internal/validator"
	"github.com/gin-gonic/gin"
)

// LessonHandler handles lesson CRUD.
type LessonHandler struct {
	lessonService *service.LessonService
}

// NewLessonHandler creates a new LessonHandler.
func NewLessonHandler(lessonService *service.LessonService) *LessonHandler {
	return &LessonHandler{lessonService: lessonService}
}

// LessonRequest is the payload for creating or updating a lesson.
type LessonRequest struct {
	Title    string `json:"title" binding:"required,min=1,max=255"`
	Content  string `json:"content"`
	Position int    `json:"position" binding:"min=0"`
}

// ListLessons godoc
// GET /api/v1/courses/:id/lessons
func (h *LessonHandler) ListLessons(c *gin.Context) {
	lessons, err := h.lessonService.ListByCourse(c.Request.Context(), middleware.GetCaller(c), c.Param("id"))
	if err != nil {
		failFromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"lessons": lessons})
}

// GetLesson godoc
// GET /api/v1/lessons/:id
func (h *LessonHandler) GetLesson(c *gin.Context) {
	lesson, err := h.lessonService.Get(c.Request.Context(), middleware.GetCaller(c), c.Param("id"))
	if err != nil {
		failFromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"lesson": lesson})
}

// CreateLesson godoc
// POST /api/v1/courses/:id/lessons
func (h *LessonHandler) CreateLesson(c *gin.Context) {
	var req LessonRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	lesson := &model.Lesson{
		CourseID: c.Param("id"),
		Title:    req.Title,
		Content:  req.Content,
		Position: req.Position,
	}

	if err := h.lessonService.Create(c.Request.Context(), middleware.GetCaller(c), lesson); err != nil {
		failFromError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"lesson": lesson})
}

// UpdateLesson godoc
// PUT /api/v1/lessons/:id
func (h *LessonHandler) UpdateLesson(c *gin.Context) {
	var req LessonRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	lesson := &model.Lesson{
		ID:       c.Param("id"),
		Title:    req.Title,
		Content:  req.Content,
		Position: req.Position,
	}

	if err := h.lessonService.Update(c.Request.Context(), middleware.GetCaller(c), lesson); err != nil {
		failFromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"lesson": lesson})
}

// DeleteLesson godoc
// DELETE /api/v1/lessons/:id
func (h *LessonHandler) DeleteLesson(c *gin.Context) {
	if err := h.lessonService.Delete(c.Request.Context(), middleware.GetCaller(c), c.Param("id")); err != nil {
		failFromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}
