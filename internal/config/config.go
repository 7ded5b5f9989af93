package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server configuration
	Port string
	Mode string

	// Database configuration
	DatabaseURL string
	SQLitePath  string

	// Redis configuration (optional, enables distributed locks)
	RedisURL string
	LockTTL  time.Duration

	// Brevo email configuration
	BrevoAPIKey    string
	BrevoFromEmail string
	BrevoFromName  string
	ServiceName    string

	// Order and payment configuration
	LicensePrice           float64
	PaymentBaseURL         string
	PaymentSimulateEnabled bool
	IDRetryLimit           int

	// Merchant webhook configuration
	WebhookCallbackURL string
	WebhookSecret      string

	LogLevel string
}

// Load reads configuration from the environment, after loading an optional .env file.
func Load() (*Config, error) {
	// Ignore error if .env file doesn't exist
	_ = godotenv.Load()

	mode := getEnv("GIN_MODE", "debug")

	price, err := strconv.ParseFloat(getEnv("LICENSE_PRICE", "99.00"), 64)
	if err != nil || price <= 0 {
		return nil, fmt.Errorf("LICENSE_PRICE must be a positive number, got %q", os.Getenv("LICENSE_PRICE"))
	}

	cfg := &Config{
		Port:                   getEnv("PORT", "8080"),
		Mode:                   mode,
		DatabaseURL:            getEnv("DATABASE_URL", ""),
		SQLitePath:             getEnv("SQLITE_PATH", "license-server.db"),
		RedisURL:               getEnv("REDIS_URL", ""),
		LockTTL:                time.Duration(getEnvInt("LOCK_TTL_SECONDS", 10)) * time.Second,
		BrevoAPIKey:            getEnv("BREVO_API_KEY", ""),
		BrevoFromEmail:         getEnv("BREVO_FROM_EMAIL", ""),
		BrevoFromName:          getEnv("BREVO_FROM_NAME", "License Service"),
		ServiceName:            getEnv("SERVICE_NAME", "License Service"),
		LicensePrice:           price,
		PaymentBaseURL:         getEnv("PAYMENT_BASE_URL", "https://pay.example.com/checkout"),
		PaymentSimulateEnabled: getEnvBool("PAYMENT_SIMULATE_ENABLED", mode != "release"),
		IDRetryLimit:           getEnvInt("ID_RETRY_LIMIT", 5),
		WebhookCallbackURL:     getEnv("WEBHOOK_CALLBACK_URL", ""),
		WebhookSecret:          getEnv("WEBHOOK_SECRET", ""),
		LogLevel:               getEnv("LOG_LEVEL", "info"),
	}

	if cfg.IDRetryLimit <= 0 {
		return nil, fmt.Errorf("ID_RETRY_LIMIT must be positive, got %d", cfg.IDRetryLimit)
	}
	if cfg.LockTTL <= 0 {
		return nil, fmt.Errorf("LOCK_TTL_SECONDS must be positive")
	}

	return cfg, nil
}

// EmailEnabled reports whether Brevo delivery is configured.
func (c *Config) EmailEnabled() bool {
	return c.BrevoAPIKey != "" && c.BrevoFromEmail != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return defaultValue
}
