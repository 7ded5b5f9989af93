package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"license-server/internal/database"
	"license-server/internal/lock"
	"license-server/internal/metrics"
	"license-server/internal/models"
	"license-server/pkg/logging"

	"gorm.io/gorm"
)

// VerifyResult is the outcome of a successful verification.
type VerifyResult struct {
	LicenseKey string
	DeviceID   string
	// NewlyBound is true when this call bound the license to DeviceID.
	NewlyBound bool
}

// LicenseService validates license keys against the device using them.
//
// A license is unbound until its first successful verification, which binds
// it to the calling device. From then on only that device verifies.
type LicenseService struct {
	licenses *database.LicenseStore
	locker   lock.Locker
	metrics  *metrics.Metrics
}

// NewLicenseService creates a new license service
func NewLicenseService(db *gorm.DB, locker lock.Locker, m *metrics.Metrics) *LicenseService {
	return &LicenseService{
		licenses: database.NewLicenseStore(db),
		locker:   locker,
		metrics:  m,
	}
}

// Verify checks licenseKey for deviceID, binding the license on first use.
func (s *LicenseService) Verify(ctx context.Context, licenseKey, deviceID string) (*VerifyResult, error) {
	result, err := s.verify(ctx, licenseKey, deviceID)
	if err != nil {
		s.metrics.ObserveVerification(ReasonCode(err))
		return nil, err
	}
	s.metrics.ObserveVerification("valid")
	return result, nil
}

func (s *LicenseService) verify(ctx context.Context, licenseKey, deviceID string) (*VerifyResult, error) {
	licenseKey = strings.TrimSpace(licenseKey)
	deviceID = strings.TrimSpace(deviceID)
	if licenseKey == "" || deviceID == "" {
		return nil, fmt.Errorf("%w: license_key and device_id are required", ErrInvalidInput)
	}

	unlock, err := acquire(ctx, s.locker, "license:"+licenseKey)
	if err != nil {
		return nil, err
	}
	defer unlock()

	license, err := s.licenses.FindByKey(ctx, licenseKey)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrInvalidLicense
		}
		return nil, fmt.Errorf("failed to load license: %w", err)
	}

	if !license.IsActive {
		return nil, ErrLicenseInactive
	}

	if license.Bound() {
		return s.checkDevice(license, deviceID)
	}

	bound, err := s.licenses.BindDevice(ctx, license, deviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to bind device: %w", err)
	}
	if !bound {
		// Another request bound it first.
		return s.checkDevice(license, deviceID)
	}

	logging.Infof("License bound - license: %s, device: %s", logging.Mask(licenseKey), deviceID)
	return &VerifyResult{LicenseKey: license.LicenseKey, DeviceID: deviceID, NewlyBound: true}, nil
}

func (s *LicenseService) checkDevice(license *models.License, deviceID string) (*VerifyResult, error) {
	if license.BoundDevice() != deviceID {
		logging.Warnf("Device mismatch - license: %s, device: %s", logging.Mask(license.LicenseKey), deviceID)
		return nil, ErrDeviceMismatch
	}
	return &VerifyResult{LicenseKey: license.LicenseKey, DeviceID: deviceID}, nil
}
