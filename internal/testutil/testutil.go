// Package testutil holds shared fixtures for package tests.
package testutil

import (
	"context"
	"fmt"
	"testing"

	"license-server/internal/database"
	"license-server/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

// NewTestDB opens a private in-memory SQLite database with the schema migrated.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		NamingStrategy: schema.NamingStrategy{
			SingularTable: true,
		},
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.AutoMigrate(db))

	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	return db
}

// CreateTestOrder inserts a pending order.
func CreateTestOrder(t *testing.T, db *gorm.DB, orderNo, email, deviceID string) *models.Order {
	t.Helper()

	order := &models.Order{
		OrderNo:       orderNo,
		Email:         email,
		DeviceID:      deviceID,
		Amount:        99.00,
		PaymentMethod: models.PaymentMethodAlipay,
		Status:        models.OrderStatusPending,
	}
	require.NoError(t, database.NewOrderStore(db).Create(context.Background(), order))
	return order
}

// CreateTestLicense inserts a license. An empty deviceID leaves it unbound.
func CreateTestLicense(t *testing.T, db *gorm.DB, key, email, deviceID string, active bool) *models.License {
	t.Helper()

	license := &models.License{
		LicenseKey: key,
		Email:      email,
		IsActive:   active,
	}
	if deviceID != "" {
		license.DeviceID = &deviceID
	}
	require.NoError(t, database.NewLicenseStore(db).Create(context.Background(), license))
	return license
}

// CountLicenses returns the number of license rows.
func CountLicenses(t *testing.T, db *gorm.DB) int64 {
	t.Helper()

	var count int64
	require.NoError(t, db.Model(&models.License{}).Count(&count).Error)
	return count
}
