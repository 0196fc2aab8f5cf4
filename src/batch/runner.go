// Package batch computes features and personas for many users with a fixed
// pool of workers, each holding its own store connection.
package batch

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"budgee-insights/src/db"
	"budgee-insights/src/features"
	"budgee-insights/src/models"
	"budgee-insights/src/persona"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type Options struct {
	// Workers <= 0 means one less than the number of CPUs, at least one.
	Workers int
	Force   bool
	// MaxAge > 0 recomputes complete user/windows whose persona was
	// assigned longer ago than MaxAge.
	MaxAge  time.Duration
	UserIDs []string
	Windows []models.Window
}

type Failure struct {
	UserID string        `json:"user_id"`
	Window models.Window `json:"time_window,omitempty"`
	Error  string        `json:"error"`
}

type Report struct {
	RunID     string        `json:"run_id"`
	Users     int           `json:"users"`
	Processed int           `json:"processed"`
	Skipped   int           `json:"skipped"`
	Failed    int           `json:"failed"`
	Failures  []Failure     `json:"failures"`
	Duration  time.Duration `json:"duration"`
}

type Runner struct {
	store      db.Store
	aggregator *features.Aggregator
	classifier *persona.Classifier
	log        zerolog.Logger
	now        func() time.Time
}

func NewRunner(store db.Store, aggregator *features.Aggregator, classifier *persona.Classifier, log zerolog.Logger) *Runner {
	return &Runner{
		store:      store,
		aggregator: aggregator,
		classifier: classifier,
		log:        log.With().Str("component", "batch").Logger(),
		now:        time.Now,
	}
}

// WithClock replaces the time source used for the MaxAge cutoff.
func (r *Runner) WithClock(now func() time.Time) *Runner {
	r.now = now
	return r
}

// DefaultWorkers is the pool size used when none is configured.
func DefaultWorkers() int {
	if n := runtime.NumCPU() - 1; n > 1 {
		return n
	}
	return 1
}

type outcome int

const (
	outcomeProcessed outcome = iota
	outcomeSkipped
	outcomeFailed
)

type result struct {
	userID  string
	window  models.Window
	outcome outcome
	persona models.Persona
	err     error
}

// Run processes every user (or opts.UserIDs) for every window. Per-user
// failures are recorded in the report; only failing to list users aborts.
func (r *Runner) Run(ctx context.Context, opts Options) (Report, error) {
	start := time.Now()
	report := Report{RunID: uuid.NewString(), Failures: []Failure{}}
	log := r.log.With().Str("run_id", report.RunID).Logger()

	userIDs := opts.UserIDs
	if len(userIDs) == 0 {
		var err error
		userIDs, err = r.store.ListUserIDs(ctx)
		if err != nil {
			return report, fmt.Errorf("list users: %w", err)
		}
	}
	windows := opts.Windows
	if len(windows) == 0 {
		windows = models.Windows
	}
	report.Users = len(userIDs)
	if len(userIDs) == 0 {
		log.Info().Msg("No users to process")
		return report, nil
	}

	numWorkers := opts.Workers
	if numWorkers <= 0 {
		numWorkers = DefaultWorkers()
	}
	if numWorkers > len(userIDs) {
		numWorkers = len(userIDs)
	}

	log.Info().
		Int("users", len(userIDs)).
		Int("workers", numWorkers).
		Bool("force", opts.Force).
		Dur("max_age", opts.MaxAge).
		Msg("Starting batch run")

	jobs := make(chan string, len(userIDs))
	results := make(chan result, len(userIDs)*len(windows))

	var notBefore time.Time
	if opts.MaxAge > 0 {
		notBefore = r.now().Add(-opts.MaxAge)
	}

	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.worker(ctx, jobs, results, windows, opts.Force, notBefore)
		}()
	}

	for _, id := range userIDs {
		jobs <- id
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	// Results arrive in completion order.
	for res := range results {
		switch res.outcome {
		case outcomeProcessed:
			report.Processed++
			log.Debug().
				Str("user_id", res.userID).
				Str("window", string(res.window)).
				Str("persona", string(res.persona)).
				Msg("Processed user")
		case outcomeSkipped:
			report.Skipped++
			log.Debug().
				Str("user_id", res.userID).
				Str("window", string(res.window)).
				Msg("Skipped complete user")
		case outcomeFailed:
			report.Failed++
			report.Failures = append(report.Failures, Failure{
				UserID: res.userID,
				Window: res.window,
				Error:  res.err.Error(),
			})
			log.Error().
				Err(res.err).
				Str("user_id", res.userID).
				Str("window", string(res.window)).
				Msg("Failed to process user")
		}
	}

	report.Duration = time.Since(start)
	log.Info().
		Int("processed", report.Processed).
		Int("skipped", report.Skipped).
		Int("failed", report.Failed).
		Dur("duration", report.Duration).
		Msg("Batch run finished")

	return report, nil
}

func (r *Runner) worker(ctx context.Context, jobs <-chan string, results chan<- result, windows []models.Window, force bool, notBefore time.Time) {
	conn, err := r.store.Acquire(ctx)
	if err != nil {
		for userID := range jobs {
			for _, w := range windows {
				results <- result{userID: userID, window: w, outcome: outcomeFailed, err: err}
			}
		}
		return
	}
	defer conn.Release()

	for userID := range jobs {
		for _, w := range windows {
			results <- r.process(ctx, conn, userID, w, force, notBefore)
		}
	}
}

func (r *Runner) process(ctx context.Context, conn db.Conn, userID string, window models.Window, force bool, notBefore time.Time) (res result) {
	res = result{userID: userID, window: window}
	defer func() {
		if p := recover(); p != nil {
			res.outcome = outcomeFailed
			res.err = fmt.Errorf("panic: %v", p)
		}
	}()

	if !force {
		complete, err := Complete(ctx, conn, userID, window, notBefore)
		if err != nil {
			res.outcome, res.err = outcomeFailed, err
			return res
		}
		if complete {
			res.outcome = outcomeSkipped
			return res
		}
	}

	fs, err := r.aggregator.ComputeAndStore(ctx, conn, userID, window)
	if err != nil {
		res.outcome, res.err = outcomeFailed, err
		return res
	}
	pa, err := r.classifier.Assign(ctx, conn, fs)
	if err != nil {
		res.outcome, res.err = outcomeFailed, err
		return res
	}
	res.outcome, res.persona = outcomeProcessed, pa.Persona
	return res
}

// Complete reports whether all four signal types and a persona are stored
// for the user and window. A persona assigned before a non-zero notBefore
// counts as stale.
func Complete(ctx context.Context, conn db.Conn, userID string, window models.Window, notBefore time.Time) (bool, error) {
	fs, _, err := conn.FeatureSet(ctx, userID, window)
	if err != nil {
		return false, fmt.Errorf("load features: %w", err)
	}
	if !fs.Complete() {
		return false, nil
	}
	pa, err := conn.Persona(ctx, userID, window)
	if errors.Is(err, db.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load persona: %w", err)
	}
	return notBefore.IsZero() || !pa.AssignedAt.Before(notBefore), nil
}
