package config

import (
	"fmt"
	"os"
	"time"
)

// Config holds everything the server needs at startup. It is built
// once in main and handed to the services explicitly.
type Config struct {
	Port        string
	Environment string // "development" or "production"
	CORSOrigin  string

	DatabaseURL string

	JWTSecret     string
	JWTExpiration time.Duration

	// SMSProvider selects the verification backend: "twilio" or "store".
	// The store provider keeps hashed codes in Postgres and is meant
	// for local development.
	SMSProvider string
	Twilio      TwilioConfig
}

// TwilioConfig holds Twilio Verify credentials.
type TwilioConfig struct {
	AccountSID       string
	AuthToken        string
	VerifyServiceSID string
}

func Load() (*Config, error) {
	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),
		CORSOrigin:  getEnv("CORS_ORIGIN", "http://localhost:3000"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		JWTSecret:   os.Getenv("JWT_SECRET"),
		SMSProvider: getEnv("SMS_PROVIDER", "store"),
		Twilio: TwilioConfig{
			AccountSID:       os.Getenv("TWILIO_ACCOUNT_SID"),
			AuthToken:        os.Getenv("TWILIO_AUTH_TOKEN"),
			VerifyServiceSID: os.Getenv("TWILIO_VERIFY_SERVICE_SID"),
		},
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is not set")
	}

	expiration := getEnv("JWT_EXPIRATION", "720h") // 30 days
	d, err := time.ParseDuration(expiration)
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_EXPIRATION %q: %w", expiration, err)
	}
	cfg.JWTExpiration = d

	if cfg.SMSProvider == "twilio" {
		if cfg.Twilio.AccountSID == "" || cfg.Twilio.AuthToken == "" || cfg.Twilio.VerifyServiceSID == "" {
			return nil, fmt.Errorf("twilio provider selected but credentials are incomplete")
		}
	}

	return cfg, nil
}

// IsProduction reports whether the server runs with production settings
// (secure cookies, JSON logs).
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
