package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"DB_DRIVER", "DATABASE_URL", "SQLITE_PATH", "PORT", "JWT_SECRET",
		"LOG_LEVEL", "LOG_PRETTY", "BATCH_WORKERS", "BATCH_SCHEDULE", "BATCH_MAX_AGE", "API_CACHE_TTL", "API_RATE_LIMIT", "API_RATE_BURST"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}

	cfg := Load()

	assert.Equal(t, DriverPostgres, cfg.DBDriver)
	assert.Equal(t, "personas.db", cfg.SQLitePath)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.LogPretty)
	assert.Zero(t, cfg.BatchWorkers)
	assert.Empty(t, cfg.BatchSchedule)
	assert.Equal(t, 24*time.Hour, cfg.BatchMaxAge)
	assert.Equal(t, time.Minute, cfg.APICacheTTL)
	assert.Equal(t, 20.0, cfg.APIRateLimit)
	assert.Equal(t, 40, cfg.APIRateBurst)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("DB_DRIVER", "SQLite")
	t.Setenv("SQLITE_PATH", "/tmp/insights.db")
	t.Setenv("LOG_PRETTY", "true")
	t.Setenv("BATCH_WORKERS", "4")
	t.Setenv("BATCH_SCHEDULE", "@daily")
	t.Setenv("BATCH_MAX_AGE", "6h")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("API_CACHE_TTL", "0s")
	t.Setenv("API_RATE_LIMIT", "2.5")

	cfg := Load()

	assert.Equal(t, DriverSQLite, cfg.DBDriver)
	assert.Equal(t, "/tmp/insights.db", cfg.SQLitePath)
	assert.True(t, cfg.LogPretty)
	assert.Equal(t, 4, cfg.BatchWorkers)
	assert.Equal(t, "@daily", cfg.BatchSchedule)
	assert.Equal(t, 6*time.Hour, cfg.BatchMaxAge)
	assert.Zero(t, cfg.APICacheTTL)
	assert.Equal(t, 2.5, cfg.APIRateLimit)
	require.NoError(t, cfg.ValidateServe())
}

func TestLoadIgnoresMalformedNumbers(t *testing.T) {
	t.Setenv("BATCH_WORKERS", "many")
	t.Setenv("LOG_PRETTY", "sometimes")

	cfg := Load()

	assert.Zero(t, cfg.BatchWorkers)
	assert.False(t, cfg.LogPretty)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{"postgres ok", Config{DBDriver: DriverPostgres, DatabaseURL: "postgres://localhost/insights"}, ""},
		{"postgres without url", Config{DBDriver: DriverPostgres}, "DATABASE_URL is required"},
		{"sqlite ok", Config{DBDriver: DriverSQLite, SQLitePath: "personas.db"}, ""},
		{"sqlite without path", Config{DBDriver: DriverSQLite}, "SQLITE_PATH is required"},
		{"unknown driver", Config{DBDriver: "mysql"}, `unsupported DB_DRIVER "mysql"`},
		{"negative workers", Config{DBDriver: DriverSQLite, SQLitePath: "x.db", BatchWorkers: -1}, "BATCH_WORKERS"},
		{"negative max age", Config{DBDriver: DriverSQLite, SQLitePath: "x.db", BatchMaxAge: -time.Hour}, "BATCH_MAX_AGE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateServeNeedsSecret(t *testing.T) {
	cfg := Config{DBDriver: DriverSQLite, SQLitePath: "personas.db"}
	require.NoError(t, cfg.Validate())

	err := cfg.ValidateServe()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}
