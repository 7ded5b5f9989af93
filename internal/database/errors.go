package database

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateOrderNumber means a generated order number collided; regenerate and retry.
	ErrDuplicateOrderNumber = errors.New("duplicate order number")

	// ErrDuplicateLicenseKey means a generated license key collided; regenerate and retry.
	ErrDuplicateLicenseKey = errors.New("duplicate license key")

	// ErrLicenseAlreadyIssued means the order already owns a license.
	ErrLicenseAlreadyIssued = errors.New("license already issued for order")

	// ErrInvalidTransition is returned when an order is in a state that cannot move to paid.
	ErrInvalidTransition = errors.New("invalid order status transition")
)

// isUniqueViolation recognises unique-constraint failures from both the
// SQLite and PostgreSQL drivers.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
