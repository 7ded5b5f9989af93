package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"license-server/internal/database"
	"license-server/internal/keygen"
	"license-server/internal/lock"
	"license-server/internal/metrics"
	"license-server/internal/models"
	"license-server/internal/notify"
	"license-server/pkg/logging"

	"gorm.io/gorm"
)

// Trade statuses reported by the payment gateway that mean the buyer paid.
const (
	TradeStatusSuccess  = "TRADE_SUCCESS"
	TradeStatusFinished = "TRADE_FINISHED"
)

// SettleStatus describes what a payment callback did.
type SettleStatus string

const (
	SettleStatusSettled          SettleStatus = "settled"
	SettleStatusAlreadyProcessed SettleStatus = "already_processed"
	SettleStatusPaymentFailed    SettleStatus = "payment_failed"
)

// SettleResult is the outcome of a payment callback.
type SettleResult struct {
	Status     SettleStatus
	OrderNo    string
	LicenseKey string
}

// Success reports whether the order is paid and has a license.
func (r *SettleResult) Success() bool {
	return r.Status == SettleStatusSettled || r.Status == SettleStatusAlreadyProcessed
}

// OrderHandle is what a client needs to pay for a new order.
type OrderHandle struct {
	OrderNo    string
	Amount     float64
	PaymentURL string
	QRCode     string
	Order      *models.Order
}

// OrderStatus is an order together with its license key once paid.
type OrderStatus struct {
	Order      *models.Order
	LicenseKey string
}

// Notifier delivers issued licenses without blocking the caller.
type Notifier interface {
	Dispatch(n notify.Notice)
}

// PaymentConfig holds order pricing and identifier retry settings.
type PaymentConfig struct {
	Price          float64
	PaymentBaseURL string
	IDRetryLimit   int
}

// PaymentService creates orders and settles them into licenses.
type PaymentService struct {
	db       *gorm.DB
	orders   *database.OrderStore
	licenses *database.LicenseStore
	locker   lock.Locker
	notifier Notifier
	metrics  *metrics.Metrics
	cfg      PaymentConfig

	now           func() time.Time
	newOrderNo    func() (string, error)
	newLicenseKey func() (string, error)
}

// NewPaymentService creates a new payment service
func NewPaymentService(db *gorm.DB, locker lock.Locker, notifier Notifier, m *metrics.Metrics, cfg PaymentConfig) *PaymentService {
	if cfg.IDRetryLimit <= 0 {
		cfg.IDRetryLimit = 5
	}
	return &PaymentService{
		db:            db,
		orders:        database.NewOrderStore(db),
		licenses:      database.NewLicenseStore(db),
		locker:        locker,
		notifier:      notifier,
		metrics:       m,
		cfg:           cfg,
		now:           time.Now,
		newOrderNo:    keygen.GenerateOrderNo,
		newLicenseKey: keygen.GenerateLicenseKey,
	}
}

// CreateOrder records a pending order at the configured price and returns
// the payment URL for it.
func (s *PaymentService) CreateOrder(ctx context.Context, email, deviceID, paymentMethod string) (*OrderHandle, error) {
	email = strings.TrimSpace(email)
	deviceID = strings.TrimSpace(deviceID)
	if email == "" || deviceID == "" {
		return nil, fmt.Errorf("%w: email and device_id are required", ErrInvalidInput)
	}
	if paymentMethod != models.PaymentMethodAlipay && paymentMethod != models.PaymentMethodWechat {
		return nil, fmt.Errorf("%w: unsupported payment method %q", ErrInvalidInput, paymentMethod)
	}

	for attempt := 1; attempt <= s.cfg.IDRetryLimit; attempt++ {
		orderNo, err := s.newOrderNo()
		if err != nil {
			return nil, fmt.Errorf("failed to generate order number: %w", err)
		}

		order := &models.Order{
			OrderNo:       orderNo,
			Email:         email,
			DeviceID:      deviceID,
			Amount:        s.cfg.Price,
			PaymentMethod: paymentMethod,
			Status:        models.OrderStatusPending,
		}
		err = s.orders.Create(ctx, order)
		if errors.Is(err, database.ErrDuplicateOrderNumber) {
			logging.Warnf("Order number collision, regenerating - order: %s, attempt: %d", orderNo, attempt)
			continue
		}
		if err != nil {
			return nil, err
		}

		s.metrics.ObserveOrderCreated()
		logging.Infof("Order created - order: %s, email: %s, method: %s, amount: %.2f",
			order.OrderNo, order.Email, order.PaymentMethod, order.Amount)

		paymentURL := s.paymentURL(order)
		return &OrderHandle{
			OrderNo:    order.OrderNo,
			Amount:     order.Amount,
			PaymentURL: paymentURL,
			QRCode:     paymentURL,
			Order:      order,
		}, nil
	}

	logging.Errorf("Order number retries exhausted after %d attempts", s.cfg.IDRetryLimit)
	return nil, fmt.Errorf("%w: could not allocate an order number", ErrServiceUnavailable)
}

func (s *PaymentService) paymentURL(order *models.Order) string {
	q := url.Values{}
	q.Set("order_no", order.OrderNo)
	q.Set("amount", fmt.Sprintf("%.2f", order.Amount))
	q.Set("method", order.PaymentMethod)

	sep := "?"
	if strings.Contains(s.cfg.PaymentBaseURL, "?") {
		sep = "&"
	}
	return s.cfg.PaymentBaseURL + sep + q.Encode()
}

// Settle applies a payment callback. Callbacks may repeat: once an order is
// paid every later callback reports the license issued the first time.
func (s *PaymentService) Settle(ctx context.Context, orderNo, tradeNo, tradeStatus string) (*SettleResult, error) {
	result, err := s.settle(ctx, strings.TrimSpace(orderNo), strings.TrimSpace(tradeNo), strings.TrimSpace(tradeStatus))
	if err != nil {
		s.metrics.ObserveSettlement("error")
		return nil, err
	}
	s.metrics.ObserveSettlement(string(result.Status))
	return result, nil
}

func (s *PaymentService) settle(ctx context.Context, orderNo, tradeNo, tradeStatus string) (*SettleResult, error) {
	if orderNo == "" {
		return nil, fmt.Errorf("%w: order_no is required", ErrInvalidInput)
	}

	unlock, err := acquire(ctx, s.locker, "order:"+orderNo)
	if err != nil {
		return nil, err
	}
	defer unlock()

	order, err := s.findOrder(ctx, orderNo)
	if err != nil {
		return nil, err
	}

	if order.IsPaid() {
		return s.alreadyProcessed(ctx, order)
	}

	if !isSuccessfulTrade(tradeStatus) {
		logging.Warnf("Payment not successful - order: %s, trade: %s, status: %s", orderNo, tradeNo, tradeStatus)
		return &SettleResult{Status: SettleStatusPaymentFailed, OrderNo: orderNo}, nil
	}

	var (
		license  *models.License
		replayed bool
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		transitioned, err := s.orders.WithTx(tx).UpdateStatusToPaid(ctx, order, tradeNo, s.now())
		if err != nil {
			return err
		}
		if !transitioned {
			replayed = true
			license, err = s.licenses.WithTx(tx).FindByOrderID(ctx, order.ID)
			return err
		}

		license, err = s.issueLicense(ctx, tx, order)
		return err
	})
	if err != nil {
		logging.Errorf("Settlement rolled back - order: %s, trade: %s, error: %v", orderNo, tradeNo, err)
		return nil, fmt.Errorf("failed to settle order %s: %w", orderNo, err)
	}

	if replayed {
		return &SettleResult{Status: SettleStatusAlreadyProcessed, OrderNo: orderNo, LicenseKey: license.LicenseKey}, nil
	}

	logging.Infof("Order settled - order: %s, trade: %s, license: %s", orderNo, tradeNo, logging.Mask(license.LicenseKey))

	if s.notifier != nil {
		s.notifier.Dispatch(notify.Notice{
			Email:      license.Email,
			LicenseKey: license.LicenseKey,
			OrderNo:    order.OrderNo,
			DeviceID:   license.BoundDevice(),
			IssuedAt:   license.CreatedAt,
		})
	}

	return &SettleResult{Status: SettleStatusSettled, OrderNo: orderNo, LicenseKey: license.LicenseKey}, nil
}

// issueLicense mints a license for order inside tx, pre-bound to the device
// the order was placed for. Each insert runs in a savepoint so a key
// collision can be retried without aborting tx.
func (s *PaymentService) issueLicense(ctx context.Context, tx *gorm.DB, order *models.Order) (*models.License, error) {
	for attempt := 1; attempt <= s.cfg.IDRetryLimit; attempt++ {
		key, err := s.newLicenseKey()
		if err != nil {
			return nil, fmt.Errorf("failed to generate license key: %w", err)
		}

		license := &models.License{
			LicenseKey: key,
			Email:      order.Email,
			IsActive:   true,
			OrderID:    &order.ID,
		}
		if order.DeviceID != "" {
			deviceID := order.DeviceID
			license.DeviceID = &deviceID
		}

		err = tx.Transaction(func(sp *gorm.DB) error {
			return s.licenses.WithTx(sp).Create(ctx, license)
		})
		if errors.Is(err, database.ErrDuplicateLicenseKey) {
			logging.Warnf("License key collision, regenerating - order: %s, attempt: %d", order.OrderNo, attempt)
			continue
		}
		if err != nil {
			return nil, err
		}
		return license, nil
	}

	logging.Errorf("License key retries exhausted - order: %s", order.OrderNo)
	return nil, fmt.Errorf("%w: could not allocate a license key", ErrServiceUnavailable)
}

func (s *PaymentService) alreadyProcessed(ctx context.Context, order *models.Order) (*SettleResult, error) {
	license, err := s.licenses.FindByOrderID(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load license for paid order %s: %w", order.OrderNo, err)
	}
	logging.Infof("Duplicate callback ignored - order: %s", order.OrderNo)
	return &SettleResult{Status: SettleStatusAlreadyProcessed, OrderNo: order.OrderNo, LicenseKey: license.LicenseKey}, nil
}

// GetOrderStatus returns the order and, once paid, its license key.
func (s *PaymentService) GetOrderStatus(ctx context.Context, orderNo string) (*OrderStatus, error) {
	order, err := s.findOrder(ctx, strings.TrimSpace(orderNo))
	if err != nil {
		return nil, err
	}

	status := &OrderStatus{Order: order}
	if !order.IsPaid() {
		return status, nil
	}

	license, err := s.licenses.FindByOrderID(ctx, order.ID)
	switch {
	case err == nil:
		status.LicenseKey = license.LicenseKey
	case errors.Is(err, database.ErrNotFound):
		logging.Warnf("Paid order has no license - order: %s", order.OrderNo)
	default:
		return nil, fmt.Errorf("failed to load license: %w", err)
	}
	return status, nil
}

// Simulate settles orderNo as if the gateway reported a successful payment.
func (s *PaymentService) Simulate(ctx context.Context, orderNo string) (*SettleResult, error) {
	tradeNo := fmt.Sprintf("SIM%d", s.now().UnixNano())
	return s.Settle(ctx, orderNo, tradeNo, TradeStatusSuccess)
}

func (s *PaymentService) findOrder(ctx context.Context, orderNo string) (*models.Order, error) {
	if orderNo == "" {
		return nil, fmt.Errorf("%w: order_no is required", ErrInvalidInput)
	}
	order, err := s.orders.FindByOrderNo(ctx, orderNo)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	return order, nil
}

func isSuccessfulTrade(status string) bool {
	return status == TradeStatusSuccess || status == TradeStatusFinished
}
