// Package metrics exposes Prometheus counters for licensing and payment flows.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "license_server"

// Metrics holds the collectors and the registry they are registered on.
type Metrics struct {
	registry *prometheus.Registry

	Verifications        *prometheus.CounterVec
	OrdersCreated        prometheus.Counter
	Settlements          *prometheus.CounterVec
	NotificationFailures *prometheus.CounterVec
}

// New creates a Metrics on a fresh registry, including Go runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		Verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verifications_total",
			Help:      "License verification attempts by result.",
		}, []string{"result"}),
		OrdersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_created_total",
			Help:      "Orders created.",
		}),
		Settlements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "settlements_total",
			Help:      "Payment callbacks by outcome.",
		}, []string{"outcome"}),
		NotificationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notification_failures_total",
			Help:      "Failed license notifications by sink.",
		}, []string{"sink"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.Verifications,
		m.OrdersCreated,
		m.Settlements,
		m.NotificationFailures,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveVerification counts one verification result.
func (m *Metrics) ObserveVerification(result string) {
	if m == nil {
		return
	}
	m.Verifications.WithLabelValues(result).Inc()
}

// ObserveOrderCreated counts one created order.
func (m *Metrics) ObserveOrderCreated() {
	if m == nil {
		return
	}
	m.OrdersCreated.Inc()
}

// ObserveSettlement counts one processed callback.
func (m *Metrics) ObserveSettlement(outcome string) {
	if m == nil {
		return
	}
	m.Settlements.WithLabelValues(outcome).Inc()
}

// ObserveNotificationFailure counts one failed delivery. Its signature matches notify.FailureHook.
func (m *Metrics) ObserveNotificationFailure(sink string, _ error) {
	if m == nil {
		return
	}
	m.NotificationFailures.WithLabelValues(sink).Inc()
}
