package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestMetrics_ExposesCounters(t *testing.T) {
	m := New()
	m.ObserveVerification("valid")
	m.ObserveVerification("valid")
	m.ObserveVerification("DEVICE_MISMATCH")
	m.ObserveOrderCreated()
	m.ObserveSettlement("settled")
	m.ObserveNotificationFailure("brevo", errors.New("down"))

	body := scrape(t, m)
	assert.Contains(t, body, `license_server_verifications_total{result="valid"} 2`)
	assert.Contains(t, body, `license_server_verifications_total{result="DEVICE_MISMATCH"} 1`)
	assert.Contains(t, body, `license_server_orders_created_total 1`)
	assert.Contains(t, body, `license_server_settlements_total{outcome="settled"} 1`)
	assert.Contains(t, body, `license_server_notification_failures_total{sink="brevo"} 1`)
	assert.Contains(t, body, "go_goroutines")
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveVerification("valid")
		m.ObserveOrderCreated()
		m.ObserveSettlement("settled")
		m.ObserveNotificationFailure("webhook", nil)
	})
}

func TestMetrics_RegistriesAreIndependent(t *testing.T) {
	a, b := New(), New()
	a.ObserveOrderCreated()

	assert.Contains(t, scrape(t, a), "license_server_orders_created_total 1")
	assert.Contains(t, scrape(t, b), "license_server_orders_created_total 0")
}
