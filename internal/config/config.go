package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// RazorpayFallback carries the legacy environment credentials used when no
// gateway row is configured, or when the configured Razorpay row fails.
type RazorpayFallback struct {
	KeyID         string
	KeySecret     string
	WebhookSecret string
}

// Configured reports whether the fallback is usable.
func (f RazorpayFallback) Configured() bool {
	return f.KeyID != "" && f.KeySecret != ""
}

type Config struct {
	DBSource    string
	Port        string
	Env         string
	JWTSecret   string
	FrontendURL string
	BackendURL  string
	PaymentMode string // "test" or "live"

	// WebhookSigningSecret signs outbound merchant webhooks.
	WebhookSigningSecret string

	Razorpay RazorpayFallback
}

// Load reads configuration from the environment, consulting a .env file when
// present. DB_SOURCE and JWT_SECRET are required.
func Load() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	dbSource := os.Getenv("DB_SOURCE")
	if dbSource == "" {
		return nil, fmt.Errorf("DB_SOURCE environment variable is required")
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is required")
	}

	return &Config{
		DBSource:             dbSource,
		Port:                 getEnv("SERVER_PORT", "8080"),
		Env:                  getEnv("ENVIRONMENT", "development"),
		JWTSecret:            jwtSecret,
		FrontendURL:          getEnv("FRONTEND_URL", "http://localhost:3000"),
		BackendURL:           getEnv("BACKEND_URL", "http://localhost:8080"),
		PaymentMode:          getEnv("PAYMENT_MODE", "test"),
		WebhookSigningSecret: getEnv("WEBHOOK_SIGNING_SECRET", jwtSecret),
		Razorpay: RazorpayFallback{
			KeyID:         os.Getenv("RAZORPAY_KEY_ID"),
			KeySecret:     os.Getenv("RAZORPAY_KEY_SECRET"),
			WebhookSecret: os.Getenv("RAZORPAY_WEBHOOK_SECRET"),
		},
	}, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
