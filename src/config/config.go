package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	DBDriver     string
	DatabaseURL  string
	SQLitePath   string
	Port         string
	JWTSecret    string
	LogLevel     string
	LogPretty    bool
	BatchWorkers int
	// BatchSchedule is a cron spec; empty disables scheduled runs.
	BatchSchedule string
	// BatchMaxAge is how long a stored persona stays current; older
	// user/windows are recomputed even when complete. Zero disables this.
	BatchMaxAge time.Duration
	// APICacheTTL of zero disables the read API cache.
	APICacheTTL time.Duration
	// APIRateLimit is requests per second; zero disables limiting.
	APIRateLimit float64
	APIRateBurst int
}

func Load() Config {
	// Load .env file if present
	_ = godotenv.Load()

	return Config{
		DBDriver:      strings.ToLower(getEnv("DB_DRIVER", DriverPostgres)),
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		SQLitePath:    getEnv("SQLITE_PATH", "personas.db"),
		Port:          getEnv("PORT", "8080"),
		JWTSecret:     getEnv("JWT_SECRET", ""),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogPretty:     getEnvAsBool("LOG_PRETTY", false),
		BatchWorkers:  getEnvAsInt("BATCH_WORKERS", 0),
		BatchSchedule: getEnv("BATCH_SCHEDULE", ""),
		BatchMaxAge:   getEnvAsDuration("BATCH_MAX_AGE", 24*time.Hour),
		APICacheTTL:   getEnvAsDuration("API_CACHE_TTL", time.Minute),
		APIRateLimit:  getEnvAsFloat("API_RATE_LIMIT", 20),
		APIRateBurst:  getEnvAsInt("API_RATE_BURST", 40),
	}
}

// Validate checks the settings every command needs to reach the store.
func (c Config) Validate() error {
	switch c.DBDriver {
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required")
		}
	case DriverSQLite:
		if c.SQLitePath == "" {
			return errors.New("SQLITE_PATH is required")
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	if c.APICacheTTL < 0 {
		return fmt.Errorf("API_CACHE_TTL must not be negative, got %s", c.APICacheTTL)
	}
	if c.BatchMaxAge < 0 {
		return fmt.Errorf("BATCH_MAX_AGE must not be negative, got %s", c.BatchMaxAge)
	}
	if c.BatchWorkers < 0 {
		return fmt.Errorf("BATCH_WORKERS must not be negative, got %d", c.BatchWorkers)
	}
	return nil
}

// ValidateServe adds the settings only the HTTP server needs.
func (c Config) ValidateServe() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(strings.TrimSpace(value)); err == nil {
			return d
		}
	}
	return fallback
}
