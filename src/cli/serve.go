package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"budgee-insights/src/api"
	"budgee-insights/src/batch"
	"budgee-insights/src/config"
	"budgee-insights/src/db"
	"budgee-insights/src/features"
	"budgee-insights/src/persona"
	"budgee-insights/src/scheduler"

	"github.com/google/subcommands"
)

type serveCmd struct {
	port     string
	schedule string
	verbose  bool
}

func (*serveCmd) Name() string     { return "serve" }
func (*serveCmd) Synopsis() string { return "serve stored features and personas over HTTP" }
func (*serveCmd) Usage() string {
	return `insights serve [-port 8080] [-schedule "@daily"] [-v]

  Starts the read-only API. With -schedule (or BATCH_SCHEDULE) the batch is
  re-run on that cron schedule, skipping complete user/windows whose persona
  is newer than BATCH_MAX_AGE.
`
}

func (c *serveCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.port, "port", "", "listen port (default: PORT)")
	f.StringVar(&c.schedule, "schedule", "", "cron schedule for batch runs (default: BATCH_SCHEDULE)")
	f.BoolVar(&c.verbose, "v", false, "debug logging")
}

func (c *serveCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	e, err := setup(ctx, c.verbose, config.Config.ValidateServe)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer e.store.Close()

	port := c.port
	if port == "" {
		port = e.cfg.Port
	}
	schedule := c.schedule
	if schedule == "" {
		schedule = e.cfg.BatchSchedule
	}

	var cache *db.ReadCache
	if e.cfg.APICacheTTL > 0 {
		cache, err = db.NewReadCache(10000, e.cfg.APICacheTTL)
		if err != nil {
			e.log.Error().Err(err).Msg("Failed to initialize cache")
			return subcommands.ExitFailure
		}
		defer cache.Close()
	}

	if schedule != "" {
		sched := scheduler.New(e.log)
		runner := batch.NewRunner(e.store, features.NewAggregator(e.log), persona.NewClassifier(e.log), e.log)
		job := scheduler.NewBatchJob(runner, batch.Options{Workers: e.cfg.BatchWorkers, MaxAge: e.cfg.BatchMaxAge}, 6*time.Hour)
		job.AfterRun = func(batch.Report) { cache.Clear() }
		if err := sched.AddJob(schedule, job); err != nil {
			e.log.Error().Err(err).Str("schedule", schedule).Msg("Invalid batch schedule")
			return subcommands.ExitUsageError
		}
		sched.Start()
		defer sched.Stop()
	}

	router := api.NewRouter(e.store, api.Options{
		JWTSecret: []byte(e.cfg.JWTSecret),
		Cache:     cache,
		RateLimit: e.cfg.APIRateLimit,
		Burst:     e.cfg.APIRateBurst,
	}, e.log)
	server := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		e.log.Info().Str("port", port).Msg("API server running")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			e.log.Error().Err(err).Msg("API server failed")
			return subcommands.ExitFailure
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			e.log.Error().Err(err).Msg("Shutdown failed")
			return subcommands.ExitFailure
		}
		e.log.Info().Msg("API server stopped")
	}
	return subcommands.ExitSuccess
}
