package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// CreateOrderRequest represents a create order request
type CreateOrderRequest struct {
	Email         string `json:"email" binding:"required,email"`
	DeviceID      string `json:"device_id" binding:"required"`
	PaymentMethod string `json:"payment_method" binding:"required,oneof=alipay wechat"`
}

// CreateOrderResponse represents a created order awaiting payment
type CreateOrderResponse struct {
	Success    bool    `json:"success"`
	OrderNo    string  `json:"order_no"`
	Amount     float64 `json:"amount"`
	PaymentURL string  `json:"payment_url"`
	QRCode     string  `json:"qr_code"`
}

// OrderStatusResponse represents the state of an order
type OrderStatusResponse struct {
	OrderNo    string  `json:"order_no"`
	Status     string  `json:"status"`
	Amount     float64 `json:"amount"`
	CreatedAt  string  `json:"created_at"`
	LicenseKey string  `json:"license_key,omitempty"`
	TradeNo    string  `json:"trade_no,omitempty"`
	PaidAt     string  `json:"paid_at,omitempty"`
}

// CreateOrder creates a pending order and returns how to pay for it.
func (h *Handler) CreateOrder(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	handle, err := h.payments.CreateOrder(c.Request.Context(), req.Email, req.DeviceID, req.PaymentMethod)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, CreateOrderResponse{
		Success:    true,
		OrderNo:    handle.OrderNo,
		Amount:     handle.Amount,
		PaymentURL: handle.PaymentURL,
		QRCode:     handle.QRCode,
	})
}

// GetOrderStatus returns an order and its license key once paid.
func (h *Handler) GetOrderStatus(c *gin.Context) {
	status, err := h.payments.GetOrderStatus(c.Request.Context(), c.Param("order_no"))
	if err != nil {
		writeError(c, err)
		return
	}

	order := status.Order
	resp := OrderStatusResponse{
		OrderNo:    order.OrderNo,
		Status:     order.Status,
		Amount:     order.Amount,
		CreatedAt:  order.CreatedAt.Format(time.RFC3339),
		LicenseKey: status.LicenseKey,
	}
	if order.TradeNo != nil {
		resp.TradeNo = *order.TradeNo
	}
	if order.PaidAt != nil {
		resp.PaidAt = order.PaidAt.Format(time.RFC3339)
	}

	c.JSON(http.StatusOK, resp)
}
