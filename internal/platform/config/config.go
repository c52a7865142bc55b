// Copyright (c) 2026 Caseline. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package config handles application-wide settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into a strongly-typed
Go struct, providing early validation and default values.

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}

Architecture:

  - Immutability: Once loaded, configuration is read-only.
  - DI-Friendly: Passed to core components (DB, Redis) via constructors.
  - Zero Hidden State: No global variables are used to store config.
*/
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Session store backends accepted by SESSION_STORE.
const (
	SessionStoreRedis  = "redis"
	SessionStoreMemory = "memory"
)

// # Configuration Schema

// Config holds all runtime configuration for the Caseline API server.
type Config struct {

	// Server settings
	ServerPort  string `env:"SERVER_PORT"  envDefault:"8080"`
	Environment string `env:"ENVIRONMENT"  envDefault:"development"`
	Debug       bool   `env:"DEBUG"        envDefault:"false"`

	// Relational Database (PostgreSQL)
	DatabaseURL string `env:"DATABASE_URL,required"`

	// MigrationPath is the filesystem path to the SQL migrations directory.
	MigrationPath string `env:"MIGRATION_PATH" envDefault:"./data/migrations"`

	// Key-Value Cache (Redis). Also backs the rate limiters.
	RedisURL string `env:"REDIS_URL,required"`

	// Session storage
	SessionStore      string `env:"SESSION_STORE"       envDefault:"redis"`
	SessionCookieName string `env:"SESSION_COOKIE_NAME" envDefault:"sid"`

	// Signing secrets, one per token purpose
	AccessTokenSecret   string `env:"ACCESS_TOKEN_SECRET,required,notEmpty"`
	RefreshTokenSecret  string `env:"REFRESH_TOKEN_SECRET,required,notEmpty"`
	ResetTokenSecret    string `env:"RESET_TOKEN_SECRET,required,notEmpty"`
	RecoveryTokenSecret string `env:"RECOVERY_TOKEN_SECRET,required,notEmpty"`

	// Token lifetimes
	AccessTokenTTL  time.Duration `env:"ACCESS_TOKEN_TTL"  envDefault:"15m"`
	RefreshTokenTTL time.Duration `env:"REFRESH_TOKEN_TTL" envDefault:"168h"`
	LinkTokenTTL    time.Duration `env:"LINK_TOKEN_TTL"    envDefault:"30m"`

	// One-time codes
	OTPMaxPerWindow   int           `env:"OTP_MAX_PER_WINDOW"  envDefault:"3"`
	OTPWindow         time.Duration `env:"OTP_WINDOW"          envDefault:"5m"`
	OTPTTL            time.Duration `env:"OTP_TTL"             envDefault:"5m"`
	OTPVerifyAttempts int           `env:"OTP_VERIFY_ATTEMPTS" envDefault:"5"`

	// Login throttling
	LoginAttempts int           `env:"LOGIN_ATTEMPTS" envDefault:"10"`
	LoginWindow   time.Duration `env:"LOGIN_WINDOW"   envDefault:"15m"`

	// Outbound mail. An empty MAIL_API_URL logs mail instead of sending it.
	PublicBaseURL string `env:"PUBLIC_BASE_URL" envDefault:"http://localhost:3000"`
	MailAPIURL    string `env:"MAIL_API_URL"`
	MailAPIKey    string `env:"MAIL_API_KEY"`
	MailSender    string `env:"MAIL_SENDER"     envDefault:"no-reply@caseline.app"`

	// Cross-Origin Resource Sharing, comma separated
	ExtraOrigins string `env:"EXTRA_ORIGINS"`
}

// # Configuration Loading

// Load parses environment variables into a [Config] struct.
func Load() (*Config, error) {

	// Initialize an empty config struct
	cfg := &Config{}

	// Use the 'env' package to map environment variables to struct fields.
	// This will fail if any field marked with 'required' is missing.
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.SessionStore {
	case SessionStoreRedis, SessionStoreMemory:
	default:
		return fmt.Errorf("config: unknown SESSION_STORE %q", c.SessionStore)
	}

	if c.OTPMaxPerWindow <= 0 || c.OTPVerifyAttempts <= 0 || c.LoginAttempts <= 0 {
		return fmt.Errorf("config: attempt limits must be positive")
	}

	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= c.AccessTokenTTL {
		return fmt.Errorf("config: REFRESH_TOKEN_TTL must exceed ACCESS_TOKEN_TTL")
	}

	return nil
}

// IsDevelopment reports whether the server is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction reports whether the server is running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// AllowedOrigins returns the trimmed, non-empty entries of EXTRA_ORIGINS.
func (c *Config) AllowedOrigins() []string {
	var origins []string
	for _, origin := range strings.Split(c.ExtraOrigins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}
