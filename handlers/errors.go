package handlers

import (
	"errors"
	"net/http"

	"catastro-backend/service"

	"github.com/gin-gonic/gin"
)

// respondError translates an engine error into the HTTP envelope. The
// wrapped sentinels are checked most-specific first: ErrAlreadyAssigned
// and ErrAlreadyReviewed wrap ErrInvalidTransition.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	code := "INTERNAL"

	switch {
	case errors.Is(err, service.ErrAlreadyAssigned):
		status, code = http.StatusConflict, "ALREADY_ASSIGNED"
	case errors.Is(err, service.ErrAlreadyReviewed):
		status, code = http.StatusConflict, "ALREADY_REVIEWED"
	case errors.Is(err, service.ErrInvalidTransition):
		status, code = http.StatusConflict, "INVALID_TRANSITION"
	case errors.Is(err, service.ErrConflict):
		status, code = http.StatusConflict, "CONFLICT"
	case errors.Is(err, service.ErrNotFound):
		status, code = http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, service.ErrForbidden):
		status, code = http.StatusForbidden, "FORBIDDEN"
	case errors.Is(err, service.ErrValidation):
		status, code = http.StatusBadRequest, "VALIDATION_ERROR"
	case errors.Is(err, service.ErrUnavailable):
		status, code = http.StatusServiceUnavailable, "UNAVAILABLE"
	}

	c.JSON(status, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": err.Error(),
		},
	})
}

// respondBadRequest is for malformed input caught before the engine runs
func respondBadRequest(c *gin.Context, code, message string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

func respondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    data,
	})
}

func respondCreated(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    data,
	})
}
