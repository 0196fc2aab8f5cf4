package persona

import (
	"context"
	"fmt"
	"time"

	"budgee-insights/src/models"

	"github.com/rs/zerolog"
)

type Store interface {
	FeatureSet(ctx context.Context, userID string, window models.Window) (models.FeatureSet, bool, error)
	ReplacePersona(ctx context.Context, pa models.PersonaAssignment) error
}

type Classifier struct {
	log zerolog.Logger
	now func() time.Time
}

func NewClassifier(log zerolog.Logger) *Classifier {
	return &Classifier{
		log: log.With().Str("component", "persona").Logger(),
		now: time.Now,
	}
}

func (c *Classifier) WithClock(now func() time.Time) *Classifier {
	c.now = now
	return c
}

// Assign classifies fs and replaces the stored assignment for its user and window.
func (c *Classifier) Assign(ctx context.Context, store Store, fs models.FeatureSet) (models.PersonaAssignment, error) {
	persona, criteria := Classify(fs)
	pa := models.PersonaAssignment{
		UserID:      fs.UserID,
		Window:      fs.Window,
		Persona:     persona,
		CriteriaMet: criteria,
		AssignedAt:  c.now().UTC(),
	}
	if err := store.ReplacePersona(ctx, pa); err != nil {
		return pa, fmt.Errorf("store persona: %w", err)
	}

	c.log.Debug().
		Str("user_id", pa.UserID).
		Str("window", string(pa.Window)).
		Str("persona", string(pa.Persona)).
		Strs("criteria_met", pa.CriteriaMet).
		Msg("Assigned persona")

	return pa, nil
}

// AssignStored classifies whatever feature set is stored for the user and
// window. A missing feature set yields general wellness.
func (c *Classifier) AssignStored(ctx context.Context, store Store, userID string, window models.Window) (models.PersonaAssignment, error) {
	fs, _, err := store.FeatureSet(ctx, userID, window)
	if err != nil {
		return models.PersonaAssignment{}, fmt.Errorf("load features: %w", err)
	}
	fs.UserID, fs.Window = userID, window
	return c.Assign(ctx, store, fs)
}
