package cli

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"budgee-insights/src/batch"
	"budgee-insights/src/config"
	"budgee-insights/src/features"
	"budgee-insights/src/persona"
	"budgee-insights/src/util"

	"github.com/google/subcommands"
)

type batchCmd struct {
	force   bool
	maxAge  time.Duration
	workers int
	verbose bool
	users   string
	windows string
	json    bool
}

func (*batchCmd) Name() string     { return "batch" }
func (*batchCmd) Synopsis() string { return "compute features and personas for every user" }
func (*batchCmd) Usage() string {
	return `insights batch [-force] [-max-age 24h] [-workers n] [-v] [-user id,id] [-window 30d,180d] [-json]

  Computes the four signals and the persona for every user and window.
  User/windows that already have a complete feature set and a persona are
  skipped unless -force is given or their persona is older than -max-age
  (default: BATCH_MAX_AGE). Per-user failures are reported and do not
  stop the run.
`
}

func (c *batchCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.force, "force", false, "recompute user/windows that are already complete")
	f.DurationVar(&c.maxAge, "max-age", 0, "recompute complete user/windows older than this (default: BATCH_MAX_AGE)")
	f.IntVar(&c.workers, "workers", 0, "number of parallel workers (default: CPUs - 1)")
	f.BoolVar(&c.verbose, "v", false, "log every user/window")
	f.StringVar(&c.users, "user", "", "comma separated user ids to process instead of every user")
	f.StringVar(&c.windows, "window", "all", "comma separated windows to compute")
	f.BoolVar(&c.json, "json", false, "print the run report as JSON")
}

func (c *batchCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	windows, err := parseWindows(c.windows)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	userIDs := splitList(c.users)
	for _, id := range userIDs {
		if !util.ValidateUserID(id) {
			fmt.Fprintf(os.Stderr, "Error: invalid user id %q\n", id)
			return subcommands.ExitUsageError
		}
	}

	e, err := setup(ctx, c.verbose, config.Config.Validate)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer e.store.Close()

	workers := c.workers
	if workers <= 0 {
		workers = e.cfg.BatchWorkers
	}
	maxAge := c.maxAge
	if maxAge <= 0 {
		maxAge = e.cfg.BatchMaxAge
	}

	runner := batch.NewRunner(e.store, features.NewAggregator(e.log), persona.NewClassifier(e.log), e.log)
	report, err := runner.Run(ctx, batch.Options{
		Workers: workers,
		Force:   c.force,
		MaxAge:  maxAge,
		UserIDs: userIDs,
		Windows: windows,
	})
	if err != nil {
		e.log.Error().Err(err).Msg("Batch run aborted")
		return subcommands.ExitFailure
	}

	if c.json {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.Encode(report)
	}
	if report.Failed > 0 {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
