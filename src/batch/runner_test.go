package batch

import (
	"context"
	"testing"
	"time"

	"budgee-insights/src/db"
	"budgee-insights/src/db/sqlite"
	"budgee-insights/src/features"
	"budgee-insights/src/models"
	"budgee-insights/src/persona"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var refNow = time.Date(2025, 7, 1, 9, 30, 0, 0, time.UTC)

func strPtr(s string) *string { return &s }

func seedUser(t *testing.T, s *sqlite.Store, userID string, balance float64) {
	t.Helper()
	sqlite.SeedAccounts(t, s,
		models.Account{AccountID: userID + "-chk", UserID: userID, Type: "depository", Subtype: "checking", Balance: 2400},
		models.Account{AccountID: userID + "-cc", UserID: userID, Type: "credit", Subtype: "credit card", Balance: balance, Limit: 5000},
	)
	var txns []models.Transaction
	for i := 0; i < 6; i++ {
		day := refNow.AddDate(0, 0, -(5 + 30*i))
		txns = append(txns,
			models.Transaction{AccountID: userID + "-chk", UserID: userID, Date: day, Amount: 2800, MerchantName: strPtr("Acme Payroll"), Category: []string{"Income"}},
			models.Transaction{AccountID: userID + "-chk", UserID: userID, Date: day.AddDate(0, 0, 2), Amount: -900, MerchantName: strPtr("Landlord"), Category: []string{"Rent"}},
		)
	}
	sqlite.SeedTransactions(t, s, txns...)
}

func newTestRunner(store db.Store) *Runner {
	clock := func() time.Time { return refNow }
	return NewRunner(store,
		features.NewAggregator(zerolog.Nop()).WithClock(clock),
		persona.NewClassifier(zerolog.Nop()).WithClock(clock),
		zerolog.Nop())
}

func TestRunProcessesEveryUserAndWindow(t *testing.T) {
	ctx := context.Background()
	store := sqlite.NewTestStore(t)
	seedUser(t, store, "alice", 4000)
	seedUser(t, store, "bob", 500)
	seedUser(t, store, "carol", 1000)

	report, err := newTestRunner(store).Run(ctx, Options{Workers: 2})
	require.NoError(t, err)

	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, 3, report.Users)
	assert.Equal(t, 6, report.Processed)
	assert.Zero(t, report.Skipped)
	assert.Zero(t, report.Failed)
	assert.Empty(t, report.Failures)

	conn, err := store.Acquire(ctx)
	require.NoError(t, err)
	defer conn.Release()

	for _, user := range []string{"alice", "bob", "carol"} {
		for _, w := range models.Windows {
			assert.Equal(t, 4, sqlite.CountFeatureRows(t, store, user, w))
			assert.Equal(t, 1, sqlite.CountPersonaRows(t, store, user, w))
		}
	}

	pa, err := conn.Persona(ctx, "alice", models.Window180d)
	require.NoError(t, err)
	assert.Equal(t, models.PersonaHighUtilization, pa.Persona)

	pa, err = conn.Persona(ctx, "bob", models.Window180d)
	require.NoError(t, err)
	assert.Equal(t, models.PersonaGeneralWellness, pa.Persona)
}

func TestRunSkipsCompleteUsersUnlessForced(t *testing.T) {
	ctx := context.Background()
	store := sqlite.NewTestStore(t)
	seedUser(t, store, "alice", 4000)
	seedUser(t, store, "bob", 500)
	runner := newTestRunner(store)

	_, err := runner.Run(ctx, Options{Workers: 2})
	require.NoError(t, err)

	report, err := runner.Run(ctx, Options{Workers: 2})
	require.NoError(t, err)
	assert.Equal(t, 4, report.Skipped)
	assert.Zero(t, report.Processed)

	report, err = runner.Run(ctx, Options{Workers: 2, Force: true})
	require.NoError(t, err)
	assert.Equal(t, 4, report.Processed)
	assert.Zero(t, report.Skipped)

	for _, user := range []string{"alice", "bob"} {
		for _, w := range models.Windows {
			assert.Equal(t, 4, sqlite.CountFeatureRows(t, store, user, w))
			assert.Equal(t, 1, sqlite.CountPersonaRows(t, store, user, w))
		}
	}
}

func TestRunRecomputesStaleUsers(t *testing.T) {
	ctx := context.Background()
	store := sqlite.NewTestStore(t)
	seedUser(t, store, "alice", 4000)
	runner := newTestRunner(store)

	_, err := runner.Run(ctx, Options{Workers: 1})
	require.NoError(t, err)

	// Two hours after the personas were assigned.
	runner.WithClock(func() time.Time { return refNow.Add(2 * time.Hour) })

	report, err := runner.Run(ctx, Options{Workers: 1, MaxAge: 3 * time.Hour})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Skipped)
	assert.Zero(t, report.Processed)

	report, err = runner.Run(ctx, Options{Workers: 1, MaxAge: time.Hour})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Processed)
	assert.Zero(t, report.Skipped)

	for _, w := range models.Windows {
		assert.Equal(t, 4, sqlite.CountFeatureRows(t, store, "alice", w))
		assert.Equal(t, 1, sqlite.CountPersonaRows(t, store, "alice", w))
	}
}

func TestRunUserWithoutCheckingOrPayroll(t *testing.T) {
	ctx := context.Background()
	store := sqlite.NewTestStore(t)
	sqlite.SeedAccounts(t, store,
		models.Account{AccountID: "dave-cc", UserID: "dave", Type: "credit", Subtype: "credit card", Balance: 100, Limit: 5000},
	)

	report, err := newTestRunner(store).Run(ctx, Options{Workers: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Processed)

	conn, err := store.Acquire(ctx)
	require.NoError(t, err)
	defer conn.Release()

	// Without a checking account the income signal is irregular with a zero buffer.
	for _, w := range models.Windows {
		pa, err := conn.Persona(ctx, "dave", w)
		require.NoError(t, err)
		assert.Equal(t, models.PersonaVariableIncome, pa.Persona, w)
		assert.Equal(t, []string{"irregular pay frequency", "cash-flow buffer 0.00 months < 1.0"}, pa.CriteriaMet, w)
	}
}

func TestRunRestrictedToUsers(t *testing.T) {
	ctx := context.Background()
	store := sqlite.NewTestStore(t)
	seedUser(t, store, "alice", 4000)
	seedUser(t, store, "bob", 500)

	report, err := newTestRunner(store).Run(ctx, Options{
		UserIDs: []string{"bob"},
		Windows: []models.Window{models.Window30d},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, report.Users)
	assert.Equal(t, 1, report.Processed)
	assert.Equal(t, 1, sqlite.CountPersonaRows(t, store, "bob", models.Window30d))
	assert.Zero(t, sqlite.CountPersonaRows(t, store, "bob", models.Window180d))
	assert.Zero(t, sqlite.CountPersonaRows(t, store, "alice", models.Window30d))
}

func TestRunEmptyStore(t *testing.T) {
	report, err := newTestRunner(sqlite.NewTestStore(t)).Run(context.Background(), Options{})
	require.NoError(t, err)

	assert.Zero(t, report.Users)
	assert.Zero(t, report.Processed)
	assert.Empty(t, report.Failures)
}

// panickyStore hands out connections that panic while reading accounts for
// one user.
type panickyStore struct {
	*sqlite.Store
	userID string
}

func (s *panickyStore) Acquire(ctx context.Context) (db.Conn, error) {
	c, err := s.Store.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return &panickyConn{Conn: c, userID: s.userID}, nil
}

type panickyConn struct {
	db.Conn
	userID string
}

func (c *panickyConn) Accounts(ctx context.Context, filter db.AccountFilter) ([]models.Account, error) {
	if filter.UserID == c.userID {
		panic("corrupt account row")
	}
	return c.Conn.Accounts(ctx, filter)
}

func TestRunRecordsFailuresAndContinues(t *testing.T) {
	ctx := context.Background()
	store := sqlite.NewTestStore(t)
	seedUser(t, store, "alice", 4000)
	seedUser(t, store, "bob", 500)
	seedUser(t, store, "mallory", 100)

	report, err := newTestRunner(&panickyStore{Store: store, userID: "mallory"}).Run(ctx, Options{Workers: 2})
	require.NoError(t, err)

	assert.Equal(t, 4, report.Processed)
	assert.Equal(t, 2, report.Failed)
	require.Len(t, report.Failures, 2)
	for _, f := range report.Failures {
		assert.Equal(t, "mallory", f.UserID)
		assert.Contains(t, f.Error, "corrupt account row")
	}
	assert.Zero(t, sqlite.CountPersonaRows(t, store, "mallory", models.Window180d))
	assert.Equal(t, 1, sqlite.CountPersonaRows(t, store, "alice", models.Window180d))
}

func TestDefaultWorkers(t *testing.T) {
	assert.GreaterOrEqual(t, DefaultWorkers(), 1)
}

func TestComplete(t *testing.T) {
	ctx := context.Background()
	store := sqlite.NewTestStore(t)
	conn, err := store.Acquire(ctx)
	require.NoError(t, err)
	defer conn.Release()

	complete, err := Complete(ctx, conn, "alice", models.Window30d, time.Time{})
	require.NoError(t, err)
	assert.False(t, complete)

	require.NoError(t, conn.ReplaceFeature(ctx, models.StoredFeature{
		UserID:     "alice",
		Window:     models.Window30d,
		SignalType: models.SignalSubscriptions,
		SignalData: []byte(`{"recurring_merchants":[]}`),
		ComputedAt: refNow,
	}))
	require.NoError(t, conn.ReplacePersona(ctx, models.PersonaAssignment{
		UserID: "alice", Window: models.Window30d, Persona: models.PersonaGeneralWellness, AssignedAt: refNow,
	}))
	complete, err = Complete(ctx, conn, "alice", models.Window30d, time.Time{})
	require.NoError(t, err)
	assert.False(t, complete, "three signal types are missing")

	fs := models.FeatureSet{
		UserID:            "alice",
		Window:            models.Window30d,
		Subscriptions:     &models.SubscriptionSignal{},
		CreditUtilization: &models.CreditSignal{},
		SavingsBehavior:   &models.SavingsSignal{},
		IncomeStability:   &models.IncomeSignal{},
	}
	require.NoError(t, conn.ReplaceFeatureSet(ctx, fs, refNow))
	complete, err = Complete(ctx, conn, "alice", models.Window30d, time.Time{})
	require.NoError(t, err)
	assert.True(t, complete)

	complete, err = Complete(ctx, conn, "alice", models.Window180d, time.Time{})
	require.NoError(t, err)
	assert.False(t, complete)

	complete, err = Complete(ctx, conn, "alice", models.Window30d, refNow)
	require.NoError(t, err)
	assert.True(t, complete, "assigned exactly at the cutoff")

	complete, err = Complete(ctx, conn, "alice", models.Window30d, refNow.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, complete, "assigned before the cutoff")
}
