package cli

import (
	"context"
	"flag"
	"fmt"
	"os"

	"budgee-insights/src/config"

	"github.com/google/subcommands"
)

type migrateCmd struct{}

func (*migrateCmd) Name() string     { return "migrate" }
func (*migrateCmd) Synopsis() string { return "create the insights tables if they do not exist" }
func (*migrateCmd) Usage() string {
	return `insights migrate

  Applies the embedded schema for the configured DB_DRIVER.
`
}

func (*migrateCmd) SetFlags(*flag.FlagSet) {}

func (*migrateCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	e, err := setup(ctx, false, config.Config.Validate)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer e.store.Close()

	if err := e.store.Migrate(ctx); err != nil {
		e.log.Error().Err(err).Msg("Migration failed")
		return subcommands.ExitFailure
	}
	e.log.Info().Str("driver", e.cfg.DBDriver).Msg("Schema applied")
	return subcommands.ExitSuccess
}
