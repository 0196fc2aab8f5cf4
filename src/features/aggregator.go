// Package features runs every signal detector for a user and window and
// stores the resulting feature set.
package features

import (
	"context"
	"fmt"
	"time"

	"budgee-insights/src/models"
	"budgee-insights/src/signals"

	"github.com/rs/zerolog"
)

type Store interface {
	signals.Source
	ReplaceFeatureSet(ctx context.Context, fs models.FeatureSet, computedAt time.Time) error
}

type Aggregator struct {
	log zerolog.Logger
	now func() time.Time
}

func NewAggregator(log zerolog.Logger) *Aggregator {
	return &Aggregator{
		log: log.With().Str("component", "features").Logger(),
		now: time.Now,
	}
}

// WithClock replaces the time source used for window cutoffs and computed_at.
func (a *Aggregator) WithClock(now func() time.Time) *Aggregator {
	a.now = now
	return a
}

// Compute runs the four detectors sequentially without storing anything.
func (a *Aggregator) Compute(ctx context.Context, src signals.Source, userID string, window models.Window) (models.FeatureSet, error) {
	return a.compute(ctx, src, userID, window, a.now())
}

func (a *Aggregator) compute(ctx context.Context, src signals.Source, userID string, window models.Window, now time.Time) (models.FeatureSet, error) {
	fs := models.FeatureSet{UserID: userID, Window: window}

	subs, err := signals.Subscriptions(ctx, src, userID, window, now)
	if err != nil {
		return fs, fmt.Errorf("subscriptions: %w", err)
	}
	credit, err := signals.CreditUtilization(ctx, src, userID, window, now)
	if err != nil {
		return fs, fmt.Errorf("credit utilization: %w", err)
	}
	savings, err := signals.SavingsBehavior(ctx, src, userID, window, now)
	if err != nil {
		return fs, fmt.Errorf("savings behavior: %w", err)
	}
	income, err := signals.IncomeStability(ctx, src, userID, window, now)
	if err != nil {
		return fs, fmt.Errorf("income stability: %w", err)
	}

	fs.Subscriptions = &subs
	fs.CreditUtilization = &credit
	fs.SavingsBehavior = &savings
	fs.IncomeStability = &income
	return fs, nil
}

// ComputeAndStore computes the feature set and replaces any stored signals for
// the same user and window in a single write.
func (a *Aggregator) ComputeAndStore(ctx context.Context, store Store, userID string, window models.Window) (models.FeatureSet, error) {
	now := a.now()
	fs, err := a.compute(ctx, store, userID, window, now)
	if err != nil {
		return fs, err
	}
	if err := store.ReplaceFeatureSet(ctx, fs, now.UTC()); err != nil {
		return fs, fmt.Errorf("store features: %w", err)
	}

	a.log.Debug().
		Str("user_id", userID).
		Str("window", string(window)).
		Int("recurring_merchants", len(fs.Subscriptions.RecurringMerchants)).
		Float64("overall_utilization", fs.CreditUtilization.OverallUtilization).
		Str("pay_frequency", fs.IncomeStability.Frequency).
		Msg("Stored feature set")

	return fs, nil
}
