package services

import (
	"context"
	"errors"

	"license-server/internal/database"
	"license-server/internal/lock"
	"license-server/pkg/logging"
)

var (
	ErrInvalidInput       = errors.New("invalid request")
	ErrInvalidLicense     = errors.New("invalid license")
	ErrLicenseInactive    = errors.New("license inactive")
	ErrDeviceMismatch     = errors.New("device mismatch")
	ErrOrderNotFound      = errors.New("order not found")
	ErrServiceUnavailable = errors.New("service temporarily unavailable")
)

// Kind groups errors by how a caller should react to them.
type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidInput
	KindNotFound
	KindConflict
	KindInvalidState
	KindTransient
)

// KindOf classifies err. Unrecognised errors are treated as transient
// persistence or network failures.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrInvalidInput):
		return KindInvalidInput
	case errors.Is(err, ErrInvalidLicense), errors.Is(err, ErrOrderNotFound), errors.Is(err, database.ErrNotFound):
		return KindNotFound
	case errors.Is(err, database.ErrDuplicateOrderNumber), errors.Is(err, database.ErrDuplicateLicenseKey),
		errors.Is(err, database.ErrLicenseAlreadyIssued):
		return KindConflict
	case errors.Is(err, ErrLicenseInactive), errors.Is(err, ErrDeviceMismatch), errors.Is(err, database.ErrInvalidTransition):
		return KindInvalidState
	default:
		return KindTransient
	}
}

// Reason codes returned to clients.
const (
	ReasonInvalidLicense     = "INVALID_LICENSE"
	ReasonLicenseInactive    = "LICENSE_INACTIVE"
	ReasonDeviceMismatch     = "DEVICE_MISMATCH"
	ReasonOrderNotFound      = "ORDER_NOT_FOUND"
	ReasonPaymentFailed      = "PAYMENT_FAILED"
	ReasonServiceUnavailable = "SERVICE_UNAVAILABLE"
	ReasonInvalidRequest     = "INVALID_REQUEST"
	ReasonInvalidState       = "INVALID_STATE"
	ReasonInternal           = "INTERNAL_ERROR"
)

// ReasonCode maps err to the reason code reported to clients.
func ReasonCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return ReasonInvalidRequest
	case errors.Is(err, ErrInvalidLicense):
		return ReasonInvalidLicense
	case errors.Is(err, ErrLicenseInactive):
		return ReasonLicenseInactive
	case errors.Is(err, ErrDeviceMismatch):
		return ReasonDeviceMismatch
	case errors.Is(err, ErrOrderNotFound), errors.Is(err, database.ErrNotFound):
		return ReasonOrderNotFound
	case errors.Is(err, database.ErrInvalidTransition):
		return ReasonInvalidState
	case errors.Is(err, ErrServiceUnavailable), errors.Is(err, lock.ErrLockTimeout):
		return ReasonServiceUnavailable
	default:
		return ReasonInternal
	}
}

// acquire takes the advisory lock for key. Failures other than a cancelled
// request are logged and the caller proceeds on the stores' conditional updates.
func acquire(ctx context.Context, locker lock.Locker, key string) (func(), error) {
	if locker == nil {
		return func() {}, nil
	}
	unlock, err := locker.Lock(ctx, key)
	if err == nil {
		return unlock, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	logging.Warnf("Proceeding without lock - key: %s, error: %v", key, err)
	return func() {}, nil
}
