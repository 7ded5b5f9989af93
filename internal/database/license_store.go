package database

import (
	"context"
	"fmt"
	"strings"

	"license-server/internal/models"

	"gorm.io/gorm"
)

// LicenseStore persists licenses.
type LicenseStore struct {
	db *gorm.DB
}

// NewLicenseStore creates a license store on the given handle
func NewLicenseStore(db *gorm.DB) *LicenseStore {
	return &LicenseStore{db: db}
}

// WithTx returns a store bound to an open transaction.
func (s *LicenseStore) WithTx(tx *gorm.DB) *LicenseStore {
	return &LicenseStore{db: tx}
}

// Create inserts a license. A key collision yields ErrDuplicateLicenseKey and
// a second license for the same order yields ErrLicenseAlreadyIssued.
func (s *LicenseStore) Create(ctx context.Context, license *models.License) error {
	err := s.db.WithContext(ctx).Create(license).Error
	if err == nil {
		return nil
	}
	if isUniqueViolation(err) {
		if strings.Contains(strings.ToLower(err.Error()), "order_id") {
			return ErrLicenseAlreadyIssued
		}
		return ErrDuplicateLicenseKey
	}
	return fmt.Errorf("failed to create license: %w", err)
}

// FindByKey looks up a license by key.
func (s *LicenseStore) FindByKey(ctx context.Context, key string) (*models.License, error) {
	var license models.License
	err := s.db.WithContext(ctx).Where("license_key = ?", key).First(&license).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &license, nil
}

// FindByOrderID returns the license issued for an order.
func (s *LicenseStore) FindByOrderID(ctx context.Context, orderID uint) (*models.License, error) {
	var license models.License
	err := s.db.WithContext(ctx).Where("order_id = ?", orderID).First(&license).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &license, nil
}

// BindDevice sets device_id only if it is still unset. It reports whether
// this call performed the binding; either way license is refreshed so the
// caller sees the device that holds the license.
func (s *LicenseStore) BindDevice(ctx context.Context, license *models.License, deviceID string) (bool, error) {
	db := s.db.WithContext(ctx)

	result := db.Model(&models.License{}).
		Where("id = ? AND (device_id IS NULL OR device_id = '')", license.ID).
		Update("device_id", deviceID)
	if result.Error != nil {
		return false, fmt.Errorf("failed to bind device: %w", result.Error)
	}

	if result.RowsAffected == 1 {
		license.DeviceID = &deviceID
		return true, nil
	}

	var current models.License
	if err := db.First(&current, license.ID).Error; err != nil {
		return false, notFound(err)
	}
	*license = current
	return false, nil
}
