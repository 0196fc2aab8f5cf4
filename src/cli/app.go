// Package cli holds the subcommands of the insights binary.
package cli

import (
	"context"
	"fmt"
	"strings"

	"budgee-insights/src/config"
	"budgee-insights/src/db"
	"budgee-insights/src/db/postgres"
	"budgee-insights/src/db/sqlite"
	"budgee-insights/src/logger"
	"budgee-insights/src/models"

	"github.com/google/subcommands"
	"github.com/rs/zerolog"
)

// Register adds every insights subcommand to c.
func Register(c *subcommands.Commander) {
	c.Register(&batchCmd{}, "engine")
	c.Register(&computeCmd{}, "engine")
	c.Register(&serveCmd{}, "server")
	c.Register(&migrateCmd{}, "database")
}

// env is what every command needs before touching the store.
type env struct {
	cfg   config.Config
	log   zerolog.Logger
	store db.Store
}

func setup(ctx context.Context, verbose bool, validate func(config.Config) error) (*env, error) {
	cfg := config.Load()
	if err := validate(cfg); err != nil {
		return nil, err
	}
	level := cfg.LogLevel
	if verbose {
		level = "debug"
	}
	log := logger.New(logger.Config{Level: level, Pretty: cfg.LogPretty})

	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, log: log, store: store}, nil
}

func openStore(ctx context.Context, cfg config.Config) (db.Store, error) {
	switch cfg.DBDriver {
	case config.DriverSQLite:
		store, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.DriverPostgres:
		// One connection per worker plus headroom for the API.
		workers := cfg.BatchWorkers
		if workers <= 0 {
			workers = 4
		}
		store, err := postgres.Connect(ctx, cfg.DatabaseURL, workers+4)
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		return store, nil
	}
	return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
}

// parseWindows accepts a comma separated list; empty or "all" means every window.
func parseWindows(value string) ([]models.Window, error) {
	value = strings.TrimSpace(value)
	if value == "" || value == "all" {
		return models.Windows, nil
	}
	var windows []models.Window
	for _, token := range strings.Split(value, ",") {
		w, err := models.ParseWindow(strings.TrimSpace(token))
		if err != nil {
			return nil, err
		}
		windows = append(windows, w)
	}
	return windows, nil
}

func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
