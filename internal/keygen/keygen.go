// Package keygen produces license keys and order numbers from crypto/rand.
package keygen

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

const (
	// LicenseKeyLength is the number of symbols in a license key.
	LicenseKeyLength = 32

	// OrderNoPrefix starts every order number.
	OrderNoPrefix = "XP"

	licenseAlphabet  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	orderTimeLayout  = "20060102150405"
	orderSuffixRange = 1000000
)

// GenerateLicenseKey returns 32 symbols drawn uniformly from A-Z0-9.
// Uniqueness is enforced by the license store, not here.
func GenerateLicenseKey() (string, error) {
	max := big.NewInt(int64(len(licenseAlphabet)))
	key := make([]byte, LicenseKeyLength)
	for i := range key {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to read random source: %w", err)
		}
		key[i] = licenseAlphabet[n.Int64()]
	}
	return string(key), nil
}

// GenerateOrderNo returns XP + YYYYMMDDHHMMSS + a 6-digit random suffix,
// sortable by creation second.
func GenerateOrderNo() (string, error) {
	return generateOrderNoAt(time.Now())
}

func generateOrderNoAt(now time.Time) (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(orderSuffixRange))
	if err != nil {
		return "", fmt.Errorf("failed to read random source: %w", err)
	}
	return fmt.Sprintf("%s%s%06d", OrderNoPrefix, now.Format(orderTimeLayout), n.Int64()), nil
}
