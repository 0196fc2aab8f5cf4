package persona

import (
	"context"
	"testing"
	"time"

	"budgee-insights/src/db/sqlite"
	"budgee-insights/src/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var assignedAt = time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)

func newTestClassifier() *Classifier {
	return NewClassifier(zerolog.Nop()).WithClock(func() time.Time { return assignedAt })
}

func TestAssignReplacesStoredPersona(t *testing.T) {
	ctx := context.Background()
	store := sqlite.NewTestStore(t)
	conn, err := store.Acquire(ctx)
	require.NoError(t, err)
	defer conn.Release()

	fs := quietFeatures()
	fs.CreditUtilization.OverallUtilization = 68

	c := newTestClassifier()
	first, err := c.Assign(ctx, conn, fs)
	require.NoError(t, err)
	assert.Equal(t, models.PersonaHighUtilization, first.Persona)

	second, err := c.Assign(ctx, conn, fs)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, sqlite.CountPersonaRows(t, store, "user-1", models.Window180d))

	fs.CreditUtilization.OverallUtilization = 10
	_, err = c.Assign(ctx, conn, fs)
	require.NoError(t, err)

	stored, err := conn.Persona(ctx, "user-1", models.Window180d)
	require.NoError(t, err)
	assert.Equal(t, models.PersonaGeneralWellness, stored.Persona)
	assert.Empty(t, stored.CriteriaMet)
	assert.True(t, stored.AssignedAt.Equal(assignedAt))
	assert.Equal(t, 1, sqlite.CountPersonaRows(t, store, "user-1", models.Window180d))
}

func TestAssignStoredWithoutFeatures(t *testing.T) {
	ctx := context.Background()
	store := sqlite.NewTestStore(t)
	conn, err := store.Acquire(ctx)
	require.NoError(t, err)
	defer conn.Release()

	pa, err := newTestClassifier().AssignStored(ctx, conn, "nobody", models.Window30d)
	require.NoError(t, err)

	assert.Equal(t, "nobody", pa.UserID)
	assert.Equal(t, models.Window30d, pa.Window)
	assert.Equal(t, models.PersonaGeneralWellness, pa.Persona)
	assert.Empty(t, pa.CriteriaMet)
}

func TestAssignStoredReadsFeatures(t *testing.T) {
	ctx := context.Background()
	store := sqlite.NewTestStore(t)
	conn, err := store.Acquire(ctx)
	require.NoError(t, err)
	defer conn.Release()

	fs := quietFeatures()
	fs.Subscriptions = &models.SubscriptionSignal{
		RecurringMerchants: []string{"Gym", "Netflix", "Spotify"},
		MonthlyRecurring:   64.97,
		SubscriptionShare:  4,
		MerchantDetails:    map[string]models.MerchantDetail{},
	}
	require.NoError(t, conn.ReplaceFeatureSet(ctx, fs, assignedAt))

	pa, err := newTestClassifier().AssignStored(ctx, conn, "user-1", models.Window180d)
	require.NoError(t, err)

	assert.Equal(t, models.PersonaSubscriptionHeavy, pa.Persona)
	assert.Len(t, pa.CriteriaMet, 2)
}
