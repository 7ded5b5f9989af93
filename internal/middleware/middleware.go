package middleware

import (
	"net/http"
	"time"

	"license-server/internal/response"
	"license-server/pkg/logging"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

// RequestID tags each request with an id, reusing the caller's when present,
// and logs the request once it completes.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		c.Set("request_id", requestID)
		c.Set("request_time", time.Now())
		c.Header(RequestIDHeader, requestID)

		c.Next()

		logging.Debugf("Request completed - id: %s, method: %s, path: %s, status: %d",
			requestID, c.Request.Method, c.FullPath(), c.Writer.Status())
	}
}

// SimulationGate rejects requests when payment simulation is disabled.
func SimulationGate(enabled bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !enabled {
			logging.Warnf("Payment simulation rejected - ip: %s", c.ClientIP())
			response.AbortWithError(c, http.StatusForbidden, "SIMULATION_DISABLED", "Payment simulation is disabled")
			return
		}
		c.Next()
	}
}
