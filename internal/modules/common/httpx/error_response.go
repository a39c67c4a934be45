package httpx

import (
	"net/http"
	platformservice "snowtricks-server/internal/platform/service"

	"github.com/gin-gonic/gin"
)

// WriteServiceError writes a standardized HTTP error response for service-layer errors.
func WriteServiceError(c *gin.Context, err error, fallbackMessage string) {
	if serviceErr, ok := platformservice.AsServiceError(err); ok {
		c.JSON(serviceErrorStatus(serviceErr.Code), gin.H{"error": serviceErr.Message})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": fallbackMessage})
}

func serviceErrorStatus(code platformservice.ErrorCode) int {
	switch code {
	case platformservice.ErrorCodeValidation:
		return http.StatusBadRequest
	case platformservice.ErrorCodeUnauthorized:
		return http.StatusUnauthorized
	case platformservice.ErrorCodeForbidden:
		return http.StatusForbidden
	case platformservice.ErrorCodeConflict:
		return http.StatusConflict
	case platformservice.ErrorCodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
