// Package config provides centralized configuration loaded from environment
// variables. Shared by every subcommand.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds every tunable of the application.
type Config struct {
	// Upstream HTTP client
	RateLimitInterval time.Duration // minimum spacing between upstream requests
	MaxRetries        int           // total attempts per upstream call
	RequestTimeout    time.Duration
	UserAgent         string

	// Cache and identity store
	CacheDir        string
	DBPath          string
	CacheExpiryDays int
	// CacheMinGames is the per-season game count below which the stored
	// game list is refreshed from the source.
	CacheMinGames int

	// API server
	APIHost     string
	APIPort     int
	Environment string // development, staging, production
	Debug       bool

	// CORS
	CORSAllowOrigins []string

	// Inbound rate limiting
	RateLimitEnabled  bool
	RateLimitRequests int
	// RateLimitBurst is the instantaneous allowance per IP; non-positive
	// means half of RateLimitRequests.
	RateLimitBurst  int
	RateLimitWindow time.Duration
}

// Load reads configuration from environment variables with defaults that
// work out of the box for local use.
func Load() (*Config, error) {
	return &Config{
		RateLimitInterval: time.Duration(envFloat("MLB_API_RATE_LIMIT", 2.0) * float64(time.Second)),
		MaxRetries:        envInt("MLB_API_MAX_RETRIES", 3),
		RequestTimeout:    time.Duration(envInt("MLB_API_TIMEOUT", 30)) * time.Second,
		UserAgent:         envOr("MLB_API_USER_AGENT", "pitchwatch/1.0"),

		CacheDir:        envOr("MLB_CACHE_DIR", "./data"),
		DBPath:          envOr("MLB_DB_PATH", "./data/db.sqlite"),
		CacheExpiryDays: envInt("MLB_CACHE_EXPIRY_DAYS", 7),
		CacheMinGames:   envInt("MLB_CACHE_MIN_GAMES", 5),

		APIHost:     envOr("API_HOST", "0.0.0.0"),
		APIPort:     envInt("API_PORT", envInt("PORT", 8000)),
		Environment: envOr("ENVIRONMENT", "development"),
		Debug:       envBool("DEBUG", false),

		CORSAllowOrigins: envList("CORS_ALLOW_ORIGINS", []string{
			"http://localhost:3000",
			"http://localhost:5173",
		}),

		RateLimitEnabled:  envBool("RATE_LIMIT_ENABLED", true),
		RateLimitRequests: envInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitBurst:    envInt("RATE_LIMIT_BURST", 0),
		RateLimitWindow:   time.Duration(envInt("RATE_LIMIT_WINDOW", 60)) * time.Second,
	}, nil
}

// IsProduction returns true if running in production environment.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// --------------------------------------------------------------------------
// Env helpers
// --------------------------------------------------------------------------

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}
