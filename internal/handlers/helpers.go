package handlers

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/tripmates/tripmates-backend/pkg/apperrors"
)

// respondError maps a service error to a REST response. Domain errors carry
// their message and mapped status; anything else is logged and surfaced as a
// generic 500.
func respondError(c *gin.Context, err error) {
	if appErr, ok := apperrors.AsError(err); ok {
		c.JSON(apperrors.HTTPStatus(appErr), gin.H{"error": appErr.Message})
		return
	}
	log.Printf("Internal error on %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	c.JSON(500, gin.H{"error": "internal server error"})
}
