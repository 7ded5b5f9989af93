package api

import (
	"net/http"

	"license-server/internal/services"

	"github.com/gin-gonic/gin"
)

// PaymentCallbackRequest represents a payment gateway notification
type PaymentCallbackRequest struct {
	OrderNo     string `json:"order_no" form:"order_no" binding:"required"`
	TradeNo     string `json:"trade_no" form:"trade_no"`
	TradeStatus string `json:"trade_status" form:"trade_status"`
}

// SimulatePaymentRequest represents a simulated payment request
type SimulatePaymentRequest struct {
	OrderNo string `json:"order_no" form:"order_no" binding:"required"`
}

// PaymentResponse represents the outcome of a callback or simulation
type PaymentResponse struct {
	Success    bool   `json:"success"`
	LicenseKey string `json:"license_key,omitempty"`
	Message    string `json:"message"`
	Code       string `json:"code,omitempty"`
}

// PaymentCallback settles an order from a gateway notification. Repeated
// notifications for a paid order return the license issued the first time.
func (h *Handler) PaymentCallback(c *gin.Context) {
	var req PaymentCallbackRequest
	if err := c.ShouldBind(&req); err != nil {
		bindError(c, err)
		return
	}

	result, err := h.payments.Settle(c.Request.Context(), req.OrderNo, req.TradeNo, req.TradeStatus)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, settleResponse(result))
}

// SimulatePayment settles an order as paid without a gateway.
func (h *Handler) SimulatePayment(c *gin.Context) {
	var req SimulatePaymentRequest
	req.OrderNo = c.Query("order_no")
	if req.OrderNo == "" {
		if err := c.ShouldBind(&req); err != nil {
			bindError(c, err)
			return
		}
	}

	result, err := h.payments.Simulate(c.Request.Context(), req.OrderNo)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, settleResponse(result))
}

func settleResponse(result *services.SettleResult) PaymentResponse {
	switch result.Status {
	case services.SettleStatusSettled:
		return PaymentResponse{Success: true, LicenseKey: result.LicenseKey, Message: "Payment successful, license issued"}
	case services.SettleStatusAlreadyProcessed:
		return PaymentResponse{Success: true, LicenseKey: result.LicenseKey, Message: "Order already processed"}
	default:
		return PaymentResponse{Success: false, Message: "Payment not completed", Code: services.ReasonPaymentFailed}
	}
}
