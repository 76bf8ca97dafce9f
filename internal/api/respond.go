package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/workstream-hq/workstream/internal/apperr"
)

// respondError translates a service error into an HTTP response. Domain
// errors carry their own status; anything else is a 500 logged with the
// cause but returned without it.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	if e, ok := apperr.As(err); ok {
		body := gin.H{"error": e.Message}
		if e.CurrentVersion > 0 {
			body["current_version"] = e.CurrentVersion
		}
		c.JSON(e.Status, body)
		return
	}

	logger.Error("request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Error(err),
	)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}
