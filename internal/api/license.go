package api

import (
	"errors"
	"net/http"

	"license-server/internal/response"
	"license-server/internal/services"

	"github.com/gin-gonic/gin"
)

// VerifyRequest represents a license verification request
type VerifyRequest struct {
	LicenseKey string `json:"license_key" binding:"required"`
	DeviceID   string `json:"device_id" binding:"required"`
}

// VerifyResponse represents a successful verification
type VerifyResponse struct {
	Status     string `json:"status"`
	LicenseKey string `json:"license_key"`
}

// Verify validates a license key for a device, binding it on first use.
func (h *Handler) Verify(c *gin.Context) {
	var req VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	result, err := h.licenses.Verify(c.Request.Context(), req.LicenseKey, req.DeviceID)
	if err != nil {
		// License rule violations are client errors, including unknown keys.
		if errors.Is(err, services.ErrInvalidLicense) || services.KindOf(err) == services.KindInvalidState {
			response.ErrorJSON(c, http.StatusBadRequest, services.ReasonCode(err), verifyMessage(err))
			return
		}
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, VerifyResponse{
		Status:     "valid",
		LicenseKey: result.LicenseKey,
	})
}

func verifyMessage(err error) string {
	switch {
	case errors.Is(err, services.ErrInvalidLicense):
		return "Invalid license"
	case errors.Is(err, services.ErrLicenseInactive):
		return "License inactive"
	case errors.Is(err, services.ErrDeviceMismatch):
		return "Device mismatch"
	}
	return err.Error()
}
