package api

import (
	"errors"
	"net/http"

	"license-server/internal/response"
	"license-server/internal/services"
	"license-server/pkg/logging"

	"github.com/gin-gonic/gin"
)

// statusFor maps a service error to an HTTP status.
func statusFor(err error) int {
	switch services.KindOf(err) {
	case services.KindInvalidInput:
		return http.StatusBadRequest
	case services.KindNotFound:
		return http.StatusNotFound
	case services.KindInvalidState, services.KindConflict:
		return http.StatusConflict
	}
	if errors.Is(err, services.ErrServiceUnavailable) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// writeError reports err to the client. Internal failures are logged and
// replaced by a generic message.
func writeError(c *gin.Context, err error) {
	status := statusFor(err)
	code := services.ReasonCode(err)

	message := err.Error()
	if status >= http.StatusInternalServerError {
		logging.Errorf("Request failed - path: %s, error: %v", c.FullPath(), err)
		message = "Internal server error"
		if status == http.StatusServiceUnavailable {
			message = "Service temporarily unavailable, please retry"
		}
	}
	response.ErrorJSON(c, status, code, message)
}

func bindError(c *gin.Context, err error) {
	response.ErrorJSON(c, http.StatusBadRequest, services.ReasonInvalidRequest, "Invalid request format: "+err.Error())
}
