package keygen

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	licenseKeyPattern = regexp.MustCompile(`^[A-Z0-9]{32}$`)
	orderNoPattern    = regexp.MustCompile(`^XP\d{14}\d{6}$`)
)

func TestGenerateLicenseKey_Format(t *testing.T) {
	for i := 0; i < 200; i++ {
		key, err := GenerateLicenseKey()
		require.NoError(t, err)
		assert.Regexp(t, licenseKeyPattern, key)
	}
}

func TestGenerateLicenseKey_NoRepeats(t *testing.T) {
	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		key, err := GenerateLicenseKey()
		require.NoError(t, err)
		_, dup := seen[key]
		require.False(t, dup, "duplicate key %s", key)
		seen[key] = struct{}{}
	}
}

func TestGenerateLicenseKey_UsesWholeAlphabet(t *testing.T) {
	counts := make(map[rune]int)
	for i := 0; i < 500; i++ {
		key, err := GenerateLicenseKey()
		require.NoError(t, err)
		for _, r := range key {
			counts[r]++
		}
	}
	// 16000 draws over 36 symbols; every symbol should turn up
	assert.Len(t, counts, len(licenseAlphabet))
}

func TestGenerateOrderNo_Format(t *testing.T) {
	orderNo, err := GenerateOrderNo()
	require.NoError(t, err)
	assert.Regexp(t, orderNoPattern, orderNo)
}

func TestGenerateOrderNo_TimestampPrefix(t *testing.T) {
	at := time.Date(2026, 3, 7, 9, 5, 1, 0, time.Local)
	orderNo, err := generateOrderNoAt(at)
	require.NoError(t, err)
	assert.Equal(t, "XP20260307090501", orderNo[:16])
	assert.Len(t, orderNo, 22)
}

func TestGenerateOrderNo_SortsByCreationTime(t *testing.T) {
	earlier, err := generateOrderNoAt(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	later, err := generateOrderNoAt(time.Date(2026, 1, 1, 0, 0, 1, 0, time.UTC))
	require.NoError(t, err)
	assert.Less(t, earlier, later)
}
