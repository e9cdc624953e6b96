package handler

import (
	"errors"
	"net/http"

	"github.com/edulane/edulane-backend/internal/access"
	"github.com/edulane/edulane-backend/internal/response"
	"github.com/gin-gonic/gin"
)

// failFromError maps the access error taxonomy onto HTTP responses. Anything
// outside the taxonomy is an internal error.
func failFromError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, access.ErrInvalidRequest):
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidRequest)
	case errors.Is(err, access.ErrForbidden):
		response.Fail(c, http.StatusForbidden, response.ErrForbidden)
	case errors.Is(err, access.ErrNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, access.ErrConflict):
		response.Fail(c, http.StatusConflict, response.ErrConflict)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
