package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"license-server/internal/api"
	"license-server/internal/config"
	"license-server/internal/database"
	"license-server/internal/lock"
	"license-server/internal/metrics"
	"license-server/internal/notify"
	"license-server/internal/services"
	"license-server/pkg/logging"

	"github.com/gin-gonic/gin"
)

func main() {
	// Initialize configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to initialize config:", err)
	}

	// Initialize logging
	logging.InitLogging(cfg.LogLevel)

	// Initialize database
	db, err := database.Open(cfg)
	if err != nil {
		log.Fatal("Failed to initialize database:", err)
	}

	rdb, err := database.OpenRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal("Failed to initialize redis:", err)
	}
	defer database.Close(db, rdb)

	var locker lock.Locker = lock.NewLocalLocker()
	if rdb != nil {
		locker = lock.NewRedisLocker(rdb, cfg.LockTTL)
	}

	m := metrics.New()
	dispatcher := notify.NewDispatcher(2*time.Minute, m.ObserveNotificationFailure, sinks(cfg)...)

	licenses := services.NewLicenseService(db, locker, m)
	payments := services.NewPaymentService(db, locker, dispatcher, m, services.PaymentConfig{
		Price:          cfg.LicensePrice,
		PaymentBaseURL: cfg.PaymentBaseURL,
		IDRetryLimit:   cfg.IDRetryLimit,
	})

	// Set Gin mode
	gin.SetMode(cfg.Mode)

	// Create Gin engine
	r := gin.Default()

	// Setup routes
	api.SetupRoutes(r, api.NewHandler(licenses, payments, db, m, cfg.ServiceName), cfg.PaymentSimulateEnabled)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logging.Infof("Starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server:", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logging.Infof("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logging.Errorf("Server shutdown failed: %v", err)
	}

	// Let in-flight license notifications finish
	dispatcher.Wait()
}

func sinks(cfg *config.Config) []notify.Sink {
	var out []notify.Sink
	if cfg.EmailEnabled() {
		out = append(out, notify.NewBrevoSink(cfg.BrevoAPIKey, cfg.BrevoFromEmail, cfg.BrevoFromName, cfg.ServiceName, ""))
	} else {
		logging.Warnf("Brevo email not configured, license emails will only be logged")
		out = append(out, notify.LogSink{})
	}
	if cfg.WebhookCallbackURL != "" {
		out = append(out, notify.NewWebhookSink(cfg.WebhookCallbackURL, cfg.WebhookSecret))
	}
	return out
}
