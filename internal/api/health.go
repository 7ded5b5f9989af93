package api

import (
	"context"
	"net/http"
	"time"

	"license-server/internal/database"
	"license-server/pkg/logging"

	"github.com/gin-gonic/gin"
)

// Health reports service status and database reachability.
func (h *Handler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := database.Ping(ctx, h.db); err != nil {
		logging.Errorf("Health check failed: %v", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":   "unavailable",
			"service":  h.serviceName,
			"database": "down",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"service":  h.serviceName,
		"database": "up",
	})
}
