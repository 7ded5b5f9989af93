package api

import (
	"license-server/internal/metrics"
	"license-server/internal/middleware"
	"license-server/internal/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Handler serves the licensing and payment endpoints.
type Handler struct {
	licenses    *services.LicenseService
	payments    *services.PaymentService
	db          *gorm.DB
	metrics     *metrics.Metrics
	serviceName string
}

// NewHandler creates a handler over the given services.
func NewHandler(licenses *services.LicenseService, payments *services.PaymentService, db *gorm.DB, m *metrics.Metrics, serviceName string) *Handler {
	return &Handler{
		licenses:    licenses,
		payments:    payments,
		db:          db,
		metrics:     m,
		serviceName: serviceName,
	}
}

// SetupRoutes sets up all routes
func SetupRoutes(r *gin.Engine, h *Handler, simulateEnabled bool) {
	r.Use(middleware.RequestID())

	// License activation (client API)
	r.POST("/verify", h.Verify)

	api := r.Group("/api")
	{
		api.POST("/order/create", h.CreateOrder)
		api.GET("/order/status/:order_no", h.GetOrderStatus)

		payment := api.Group("/payment")
		{
			// Gateway notifications, delivered at least once
			payment.POST("/callback", h.PaymentCallback)
			payment.POST("/simulate", middleware.SimulationGate(simulateEnabled), h.SimulatePayment)
		}
	}

	r.GET("/health", h.Health)
	if h.metrics != nil {
		r.GET("/metrics", gin.WrapH(h.metrics.Handler()))
	}
}
