package database

import (
	"context"
	"fmt"
	"time"

	"license-server/internal/models"

	"gorm.io/gorm"
)

// OrderStore persists orders.
type OrderStore struct {
	db *gorm.DB
}

// NewOrderStore creates an order store on the given handle
func NewOrderStore(db *gorm.DB) *OrderStore {
	return &OrderStore{db: db}
}

// WithTx returns a store bound to an open transaction.
func (s *OrderStore) WithTx(tx *gorm.DB) *OrderStore {
	return &OrderStore{db: tx}
}

// Create inserts a new order. A colliding order number yields ErrDuplicateOrderNumber.
func (s *OrderStore) Create(ctx context.Context, order *models.Order) error {
	if order.Status == "" {
		order.Status = models.OrderStatusPending
	}
	if err := s.db.WithContext(ctx).Create(order).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrDuplicateOrderNumber, order.OrderNo)
		}
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

// FindByOrderNo looks up an order by its number.
func (s *OrderStore) FindByOrderNo(ctx context.Context, orderNo string) (*models.Order, error) {
	var order models.Order
	err := s.db.WithContext(ctx).Where("order_no = ?", orderNo).First(&order).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &order, nil
}

// UpdateStatusToPaid moves the order from pending to paid with a conditional
// update. It reports true when this call made the transition. If the order
// was already paid, order is refreshed from the store and false is returned
// without error.
func (s *OrderStore) UpdateStatusToPaid(ctx context.Context, order *models.Order, tradeNo string, paidAt time.Time) (bool, error) {
	db := s.db.WithContext(ctx)

	result := db.Model(&models.Order{}).
		Where("id = ? AND status = ?", order.ID, models.OrderStatusPending).
		Updates(map[string]interface{}{
			"status":   models.OrderStatusPaid,
			"trade_no": tradeNo,
			"paid_at":  paidAt,
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to update order status: %w", result.Error)
	}

	if result.RowsAffected == 1 {
		order.Status = models.OrderStatusPaid
		order.TradeNo = &tradeNo
		order.PaidAt = &paidAt
		return true, nil
	}

	// Lost the race or already settled; report what is stored.
	var current models.Order
	if err := db.First(&current, order.ID).Error; err != nil {
		return false, notFound(err)
	}
	*order = current

	if current.Status != models.OrderStatusPaid {
		return false, fmt.Errorf("%w: order %s is %s", ErrInvalidTransition, current.OrderNo, current.Status)
	}
	return false, nil
}
