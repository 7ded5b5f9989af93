package models

import "time"

// Order statuses. Expired and cancelled are reserved for a timeout/cancel path.
const (
	OrderStatusPending   = "pending"
	OrderStatusPaid      = "paid"
	OrderStatusExpired   = "expired"
	OrderStatusCancelled = "cancelled"
)

// Supported payment methods.
const (
	PaymentMethodAlipay = "alipay"
	PaymentMethodWechat = "wechat"
)

// Order tracks one purchase from creation to settlement.
type Order struct {
	BaseModel

	OrderNo string `json:"order_no" gorm:"size:32;uniqueIndex;not null"`

	// Purchase intent, fixed at creation
	Email         string  `json:"email" gorm:"size:255;not null;index"`
	DeviceID      string  `json:"device_id" gorm:"size:255;not null"`
	Amount        float64 `json:"amount" gorm:"type:decimal(10,2);not null"`
	PaymentMethod string  `json:"payment_method" gorm:"size:20;not null"`

	Status string `json:"status" gorm:"size:20;not null;index"`

	// Set once on settlement
	TradeNo *string    `json:"trade_no,omitempty" gorm:"size:64"`
	PaidAt  *time.Time `json:"paid_at,omitempty"`
}

// TableName overrides the singular naming strategy
func (Order) TableName() string {
	return "orders"
}

// IsPaid reports whether the order has been settled.
func (o *Order) IsPaid() bool {
	return o.Status == OrderStatusPaid
}
