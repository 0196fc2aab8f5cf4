package cli

import (
	"context"
	"flag"
	"path/filepath"
	"testing"

	"budgee-insights/src/config"
	"budgee-insights/src/models"

	"github.com/google/subcommands"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWindows(t *testing.T) {
	windows, err := parseWindows("")
	require.NoError(t, err)
	assert.Equal(t, models.Windows, windows)

	windows, err = parseWindows("all")
	require.NoError(t, err)
	assert.Equal(t, models.Windows, windows)

	windows, err = parseWindows(" 180d ")
	require.NoError(t, err)
	assert.Equal(t, []models.Window{models.Window180d}, windows)

	_, err = parseWindows("30d,90d")
	assert.ErrorIs(t, err, models.ErrUnknownWindow)
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"alice", "bob"}, splitList(" alice, ,bob,"))
	assert.Nil(t, splitList(""))
}

func TestOpenStoreRejectsUnknownDriver(t *testing.T) {
	_, err := openStore(context.Background(), config.Config{DBDriver: "mysql"})
	assert.Error(t, err)
}

func TestMigrateAndComputeAgainstSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "insights.db")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", path)
	t.Setenv("LOG_LEVEL", "error")
	ctx := context.Background()

	migrate := &migrateCmd{}
	assert.Equal(t, subcommands.ExitSuccess, migrate.Execute(ctx, flag.NewFlagSet("migrate", flag.ContinueOnError)))

	compute := &computeCmd{user: "nobody", windows: "30d", dryRun: true}
	assert.Equal(t, subcommands.ExitSuccess, compute.Execute(ctx, flag.NewFlagSet("compute", flag.ContinueOnError)))

	compute = &computeCmd{user: "", windows: "30d"}
	assert.Equal(t, subcommands.ExitUsageError, compute.Execute(ctx, flag.NewFlagSet("compute", flag.ContinueOnError)))

	run := &batchCmd{windows: "all"}
	assert.Equal(t, subcommands.ExitSuccess, run.Execute(ctx, flag.NewFlagSet("batch", flag.ContinueOnError)))

	run = &batchCmd{windows: "7d"}
	assert.Equal(t, subcommands.ExitUsageError, run.Execute(ctx, flag.NewFlagSet("batch", flag.ContinueOnError)))
}
